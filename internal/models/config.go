package models

// Config holds the application configuration.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Twilio   TwilioConfig   `json:"twilio"`
	LLM      LLMConfig      `json:"llm"`
	School   SchoolProfile  `json:"school"`
	Retry    RetryConfig    `json:"retry"`
	Tracing  TracingConfig  `json:"tracing"`
	LogLevel string         `json:"log_level"`
	Timezone string         `json:"timezone"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int `json:"port"`
	ReadTimeoutSec  int `json:"readTimeoutSec"`
	WriteTimeoutSec int `json:"writeTimeoutSec"`
	IdleTimeoutSec  int `json:"idleTimeoutSec"`
}

// DatabaseConfig holds database related configuration.
type DatabaseConfig struct {
	Path string `json:"path"`
}

// TwilioConfig holds messaging-gateway credentials and settings. The
// credentials come from the environment; missing credentials disable
// outbound delivery instead of failing startup.
type TwilioConfig struct {
	AccountSID  string `json:"-"`
	AuthToken   string `json:"-"`
	FromNumber  string `json:"from_number"`
	APIBaseURL  string `json:"api_base_url"`
	TimeoutSec  int    `json:"timeoutSec"`
	MaxFailures int    `json:"maxFailures"`
	CooldownSec int    `json:"cooldownSec"`
}

// Configured reports whether outbound delivery can be attempted.
func (c TwilioConfig) Configured() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.FromNumber != ""
}

// LLMConfig holds settings for the LLM-backed responder. A missing API
// key disables the LLM path; the rule-based responder still answers.
type LLMConfig struct {
	APIKey      string  `json:"-"`
	APIBaseURL  string  `json:"api_base_url"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
	TimeoutSec  int     `json:"timeoutSec"`
	MaxFailures int     `json:"maxFailures"`
	CooldownSec int     `json:"cooldownSec"`
}

// Configured reports whether the LLM responder can be used.
func (c LLMConfig) Configured() bool {
	return c.APIKey != ""
}

// SchoolProfile is the knowledge block the responders answer from. It is
// loaded at process start and passed by reference into the services, not
// kept in ambient global state.
type SchoolProfile struct {
	Name           string `json:"name"`
	Hours          string `json:"hours"`
	Location       string `json:"location"`
	Programs       string `json:"programs"`
	EnrollmentCost string `json:"enrollment_cost"`
	VisitURL       string `json:"visit_url"`
}

// RetryConfig holds retry related configuration.
type RetryConfig struct {
	InitialBackoffMs int `json:"initialBackoffMs"`
	MaxBackoffMs     int `json:"maxBackoffMs"`
	MaxAttempts      int `json:"maxAttempts"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	ServiceName    string  `json:"service_name"`
	ServiceVersion string  `json:"service_version"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlp_endpoint"`
	SampleRate     float64 `json:"sample_rate"`
	Enabled        bool    `json:"enabled"`
	UseStdout      bool    `json:"use_stdout"`
}

// ConfigError reports an invalid or incomplete configuration.
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
