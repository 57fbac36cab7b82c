package settings

import "time"

// Environment keys recognized by the contact relay.
const (
	// WebhookURLKey is the chat incoming-webhook URL.
	WebhookURLKey = "DISCORD_WEBHOOK_URL"
	// EmailAPIKeyKey is the transactional email API key.
	EmailAPIKeyKey = "RESEND_API_KEY"
	// EmailToKey is the recipient address for contact emails.
	EmailToKey = "EMAIL_TO"
	// EmailFromKey is the sender identity for contact emails.
	EmailFromKey = "EMAIL_FROM"
	// EmailAPIURLKey overrides the transactional email endpoint.
	EmailAPIURLKey = "EMAIL_API_URL"
	// ChannelTimeoutKey bounds a single channel delivery call.
	ChannelTimeoutKey = "CHANNEL_TIMEOUT"

	// HostKey is the listen host.
	HostKey = "HOST"
	// PortKey is the listen port.
	PortKey = "PORT"
	// AllowedOriginsKey lists the comma-separated browser origins allowed to post the form.
	AllowedOriginsKey = "CORS_ALLOWED_ORIGINS"
	// ConfigReloadIntervalKey sets how often the config file is polled for changes; 0 disables.
	ConfigReloadIntervalKey = "CONFIG_RELOAD_INTERVAL"

	// RateLimitMaxKey is the number of submissions allowed per window.
	RateLimitMaxKey = "CONTACT_RATE_LIMIT_MAX"
	// RateLimitWindowKey is the sliding window length.
	RateLimitWindowKey = "CONTACT_RATE_LIMIT_WINDOW"
	// RateLimitSweepIntervalKey controls how often idle clients are evicted.
	RateLimitSweepIntervalKey = "CONTACT_RATE_LIMIT_SWEEP_INTERVAL"
	// RateLimitRedisAddrKey defines the Redis address for rate limiting.
	RateLimitRedisAddrKey = "RATE_LIMIT_REDIS_ADDR"
	// RateLimitRedisPasswordKey defines the Redis password for rate limiting.
	RateLimitRedisPasswordKey = "RATE_LIMIT_REDIS_PASSWORD"
	// RateLimitRedisDBKey defines the Redis DB index for rate limiting.
	RateLimitRedisDBKey = "RATE_LIMIT_REDIS_DB"
	// RateLimitRedisPrefixKey defines the Redis key prefix for rate limiting.
	RateLimitRedisPrefixKey = "RATE_LIMIT_REDIS_PREFIX"

	// DBConnectionKey is the submission store DSN.
	DBConnectionKey = "DB_CONNECTION"

	// AdminUsernameKey is the admin login name.
	AdminUsernameKey = "ADMIN_USERNAME"
	// AdminPasswordHashKey is the bcrypt hash of the admin password.
	AdminPasswordHashKey = "ADMIN_PASSWORD_HASH"
	// JWTSecretKey signs admin tokens.
	JWTSecretKey = "JWT_SECRET"
	// JWTExpiryKey is the admin token lifetime.
	JWTExpiryKey = "JWT_EXPIRY"

	// LogLevelKey sets the logrus level.
	LogLevelKey = "LOG_LEVEL"
	// LogFormatKey selects "json" or "text".
	LogFormatKey = "LOG_FORMAT"
	// LogFileKey enables rotated file output.
	LogFileKey = "LOG_FILE"
)

// Defaults applied before the config file and environment.
const (
	DefaultHost                   = "0.0.0.0"
	DefaultPort                   = 8080
	DefaultConfigReloadInterval   = 10 * time.Second
	DefaultRateLimitMax           = 5
	DefaultRateLimitWindow        = 60 * time.Second
	DefaultRateLimitSweepInterval = 5 * time.Minute
	DefaultRateLimitRedisPrefix   = "contact:rl"
	DefaultChannelTimeout         = 10 * time.Second
	DefaultEmailAPIURL            = "https://api.resend.com/emails"
	DefaultEmailFrom              = "Contact Form <onboarding@resend.dev>"
	DefaultJWTExpiry              = 24 * time.Hour
	DefaultLogLevel               = "info"
	DefaultLogFormat              = "text"
)
