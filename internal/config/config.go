package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"colegiobot/internal/constants"
	"colegiobot/internal/models"
)

var (
	ErrMissingDBPath = models.ConfigError{Message: "missing database path"}
)

// LoadConfig reads the JSON configuration file, applies defaults and
// environment overrides, and validates the result. Credentials are
// never read from the file; they come from the environment only.
func LoadConfig(path string) (*models.Config, error) {
	if strings.ContainsRune(path, 0) {
		return nil, fmt.Errorf("invalid config path")
	}

	file, err := os.ReadFile(path) // #nosec G304 - path comes from the operator's -config flag
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	applyDefaults(&config)
	applyEnvironmentOverrides(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func applyDefaults(c *models.Config) {
	if c.Server.Port == 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeoutSec
	}
	if c.Server.IdleTimeoutSec <= 0 {
		c.Server.IdleTimeoutSec = constants.DefaultServerIdleTimeoutSec
	}

	if c.Twilio.APIBaseURL == "" {
		c.Twilio.APIBaseURL = constants.DefaultTwilioAPIBaseURL
	}
	if c.Twilio.TimeoutSec <= 0 {
		c.Twilio.TimeoutSec = constants.DefaultTwilioTimeoutSec
	}
	if c.Twilio.MaxFailures <= 0 {
		c.Twilio.MaxFailures = constants.DefaultBreakerMaxFailures
	}
	if c.Twilio.CooldownSec <= 0 {
		c.Twilio.CooldownSec = constants.DefaultBreakerCooldownSec
	}

	if c.LLM.APIBaseURL == "" {
		c.LLM.APIBaseURL = constants.DefaultOpenRouterAPIBaseURL
	}
	if c.LLM.Model == "" {
		c.LLM.Model = constants.DefaultLLMModel
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = constants.DefaultLLMMaxTokens
	}
	if c.LLM.Temperature <= 0 {
		c.LLM.Temperature = constants.DefaultLLMTemperature
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = constants.DefaultLLMTimeoutSec
	}
	if c.LLM.MaxFailures <= 0 {
		c.LLM.MaxFailures = constants.DefaultBreakerMaxFailures
	}
	if c.LLM.CooldownSec <= 0 {
		c.LLM.CooldownSec = constants.DefaultBreakerCooldownSec
	}

	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = constants.DefaultBackoffInitialMs
	}
	if c.Retry.MaxBackoffMs <= 0 {
		c.Retry.MaxBackoffMs = constants.DefaultMaxBackoffMs
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = constants.DefaultMaxAttempts
	}

	applySchoolDefaults(&c.School)

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Timezone == "" {
		c.Timezone = constants.DefaultTimezone
	}
}

// applySchoolDefaults fills in the knowledge block the responders
// answer from. Deployments override these in the config file.
func applySchoolDefaults(s *models.SchoolProfile) {
	if s.Name == "" {
		s.Name = "Colegio"
	}
	if s.Hours == "" {
		s.Hours = "Lunes a Viernes de 7:00 am a 3:00 pm"
	}
	if s.Programs == "" {
		s.Programs = "Primaria, Secundaria"
	}
	if s.EnrollmentCost == "" {
		s.EnrollmentCost = "$5,000 MXN"
	}
	if s.VisitURL == "" {
		s.VisitURL = "https://calendly.com/tu-colegio"
	}
}

func applyEnvironmentOverrides(c *models.Config) {
	// Credentials only come from the environment.
	c.Twilio.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	c.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	c.LLM.APIKey = os.Getenv("OPENROUTER_API_KEY")

	if from := os.Getenv("TWILIO_WHATSAPP_FROM"); from != "" {
		c.Twilio.FromNumber = from
	}
	if model := os.Getenv("OPENROUTER_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if path := os.Getenv("DB_PATH"); path != "" {
		c.Database.Path = path
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 && p < 65536 {
			c.Server.Port = p
		}
	}
}

func validate(c *models.Config) error {
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return models.ConfigError{Message: fmt.Sprintf("invalid server port: %d", c.Server.Port)}
	}
	if c.Twilio.FromNumber != "" && !strings.HasPrefix(c.Twilio.FromNumber, "whatsapp:") {
		return models.ConfigError{Message: "twilio from number must carry the whatsapp: prefix"}
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return models.ConfigError{Message: fmt.Sprintf("invalid timezone: %s", c.Timezone)}
	}
	return nil
}
