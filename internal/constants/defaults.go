package constants

// Default server configuration values
const (
	DefaultServerPort            = 8000
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 30
	ServerErrorChannelSize       = 1
)

// Default retry and backoff values
const (
	DefaultRetryBackoffMs        = 1000
	DefaultMaxBackoffMs          = 60000
	DefaultMaxAttempts           = 3
	DefaultDatabaseRetryAttempts = 5
	DefaultBackoffInitialMs      = 500
)

// Default external-call timeouts and endpoints
const (
	DefaultTwilioTimeoutSec     = 10
	DefaultLLMTimeoutSec        = 10
	DefaultTwilioAPIBaseURL     = "https://api.twilio.com"
	DefaultOpenRouterAPIBaseURL = "https://openrouter.ai/api/v1"
	DefaultLLMModel             = "google/gemini-2.0-flash-exp:free"
)

// Default circuit breaker settings for outbound calls
const (
	DefaultBreakerMaxFailures = 5
	DefaultBreakerCooldownSec = 30
)

// Default LLM sampling parameters
const (
	DefaultLLMMaxTokens    = 300
	DefaultLLMTemperature  = 0.7
	DefaultHistoryMessages = 5
	DefaultHistoryCharCap  = 200
)

// Pagination limits for listings and the panel
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Validation constants
const (
	MinPhoneNumberLength = 10
	MaxPhoneNumberLength = 20
	MaxMessageBodyLength = 4096
)

// Privacy settings
const (
	DefaultPhoneMaskLength = 4
)

// Display settings for the panel
const (
	DefaultTimezone = "America/Mexico_City"
)

// Encryption salts; the key itself is derived from an environment secret.
const (
	EncryptionSalt       = "colegiobot-db-v1"
	EncryptionLookupSalt = "colegiobot-lookup-v1"
)
