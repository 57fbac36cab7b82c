package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	internalsettings "github.com/router-for-me/ContactRelay/internal/settings"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath = "CONFIG_PATH"
)

// ErrNoChannelConfigured indicates neither the webhook nor the email channel has its required options.
var ErrNoChannelConfigured = errors.New("no notification channel configured")

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string `yaml:"-"`

	Server    ServerConfig    `yaml:"server"`
	Channels  ChannelsConfig  `yaml:"channels"`
	RateLimit RateLimitConfig `yaml:"rate-limit"`
	Database  DatabaseConfig  `yaml:"database"`
	Admin     AdminConfig     `yaml:"admin"`
	JWT       JWTConfig       `yaml:"jwt"`
	Logging   LoggingConfig   `yaml:"logging"`

	// DatabaseDSN is the flat legacy spelling of database.dsn.
	DatabaseDSN string `yaml:"database-dsn"`
}

// ServerConfig holds listener settings.
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port" validate:"gte=1,lte=65535"`
	AllowedOrigins []string `yaml:"allowed-origins"`

	// ReloadInterval is the config file poll period for live rate limit changes.
	ReloadInterval time.Duration `yaml:"reload-interval" validate:"gte=0"`
}

// ChannelsConfig holds notification channel settings.
type ChannelsConfig struct {
	WebhookURL  string        `yaml:"webhook-url" validate:"omitempty,url"`
	EmailAPIKey string        `yaml:"email-api-key"`
	EmailTo     string        `yaml:"email-to" validate:"omitempty,email"`
	EmailFrom   string        `yaml:"email-from"`
	EmailAPIURL string        `yaml:"email-api-url" validate:"omitempty,url"`
	Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
}

// RateLimitConfig holds contact rate limit settings.
type RateLimitConfig struct {
	Max           int           `yaml:"max" validate:"gte=1"`
	Window        time.Duration `yaml:"window" validate:"gt=0"`
	SweepInterval time.Duration `yaml:"sweep-interval" validate:"gte=0"`
	Redis         RedisConfig   `yaml:"redis"`
}

// RedisConfig holds the optional shared limiter backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Prefix   string `yaml:"prefix"`
}

// DatabaseConfig holds the submission store DSN.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// AdminConfig holds the single admin account.
type AdminConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password-hash"`
}

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// LoggingConfig holds logrus and rotation settings.
type LoggingConfig struct {
	Level      string `yaml:"level" validate:"oneof=trace debug info warn warning error"`
	Format     string `yaml:"format" validate:"oneof=json text"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max-size-mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max-backups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max-age-days" validate:"gte=0"`
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return Load(os.Getenv(EnvConfigPath))
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		Server: ServerConfig{
			Host:           internalsettings.DefaultHost,
			Port:           internalsettings.DefaultPort,
			ReloadInterval: internalsettings.DefaultConfigReloadInterval,
		},
		Channels: ChannelsConfig{
			EmailFrom:   internalsettings.DefaultEmailFrom,
			EmailAPIURL: internalsettings.DefaultEmailAPIURL,
			Timeout:     internalsettings.DefaultChannelTimeout,
		},
		RateLimit: RateLimitConfig{
			Max:           internalsettings.DefaultRateLimitMax,
			Window:        internalsettings.DefaultRateLimitWindow,
			SweepInterval: internalsettings.DefaultRateLimitSweepInterval,
			Redis: RedisConfig{
				Prefix: internalsettings.DefaultRateLimitRedisPrefix,
			},
		},
		JWT: JWTConfig{
			Expiry: internalsettings.DefaultJWTExpiry,
		},
		Logging: LoggingConfig{
			Level:      internalsettings.DefaultLogLevel,
			Format:     internalsettings.DefaultLogFormat,
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at configPath (optional),
// a .env file (optional) and the process environment, in increasing precedence.
func Load(configPath string) (AppConfig, error) {
	cfg := Defaults()
	cfg.ConfigPath = ResolveConfigPath(configPath)

	data, errRead := os.ReadFile(cfg.ConfigPath)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return AppConfig{}, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
	case errors.Is(errRead, os.ErrNotExist):
	default:
		return AppConfig{}, fmt.Errorf("read config file: %w", errRead)
	}

	// godotenv never overrides variables already present in the environment.
	_ = godotenv.Load()

	if errEnv := applyEnv(&cfg); errEnv != nil {
		return AppConfig{}, errEnv
	}
	cfg.normalize()

	if errValidate := cfg.Validate(); errValidate != nil {
		return AppConfig{}, errValidate
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c AppConfig) Validate() error {
	if errStruct := validator.New().Struct(c); errStruct != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(errStruct, &validationErrs) {
			fields := make([]string, 0, len(validationErrs))
			for _, fieldErr := range validationErrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fieldErr.Namespace(), fieldErr.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", errStruct)
	}
	return nil
}

func (c *AppConfig) normalize() {
	origins := make([]string, 0, len(c.Server.AllowedOrigins))
	for _, origin := range c.Server.AllowedOrigins {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			origins = append(origins, origin)
		}
	}
	c.Server.AllowedOrigins = origins

	c.Channels.WebhookURL = strings.TrimSpace(c.Channels.WebhookURL)
	c.Channels.EmailAPIKey = strings.TrimSpace(c.Channels.EmailAPIKey)
	c.Channels.EmailTo = strings.TrimSpace(c.Channels.EmailTo)
	c.Channels.EmailFrom = strings.TrimSpace(c.Channels.EmailFrom)
	if c.Channels.EmailFrom == "" {
		c.Channels.EmailFrom = internalsettings.DefaultEmailFrom
	}
	c.Channels.EmailAPIURL = strings.TrimSpace(c.Channels.EmailAPIURL)
	if c.Channels.EmailAPIURL == "" {
		c.Channels.EmailAPIURL = internalsettings.DefaultEmailAPIURL
	}

	c.RateLimit.Redis.Addr = strings.TrimSpace(c.RateLimit.Redis.Addr)
	c.RateLimit.Redis.Password = strings.TrimSpace(c.RateLimit.Redis.Password)
	c.RateLimit.Redis.Prefix = strings.TrimSpace(c.RateLimit.Redis.Prefix)
	if c.RateLimit.Redis.Prefix == "" {
		c.RateLimit.Redis.Prefix = internalsettings.DefaultRateLimitRedisPrefix
	}

	if strings.TrimSpace(c.Database.DSN) == "" {
		c.Database.DSN = c.DatabaseDSN
	}
	c.Database.DSN = strings.TrimSpace(c.Database.DSN)

	c.Admin.Username = strings.TrimSpace(c.Admin.Username)
	c.Admin.PasswordHash = strings.TrimSpace(c.Admin.PasswordHash)
	c.JWT.Secret = strings.TrimSpace(c.JWT.Secret)
	if c.JWT.Expiry <= 0 {
		c.JWT.Expiry = internalsettings.DefaultJWTExpiry
	}

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = internalsettings.DefaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = internalsettings.DefaultLogFormat
	}
}

// WebhookConfigured reports whether the chat webhook channel can be used.
func (c ChannelsConfig) WebhookConfigured() bool {
	return c.WebhookURL != ""
}

// EmailConfigured reports whether the email channel has both a sender key and a recipient.
func (c ChannelsConfig) EmailConfigured() bool {
	return c.EmailAPIKey != "" && c.EmailTo != ""
}

// MissingVariables names the environment variables that would enable the unconfigured channels.
func (c ChannelsConfig) MissingVariables() []string {
	var missing []string
	if !c.WebhookConfigured() {
		missing = append(missing, internalsettings.WebhookURLKey)
	}
	if c.EmailAPIKey == "" {
		missing = append(missing, internalsettings.EmailAPIKeyKey)
	}
	if c.EmailTo == "" {
		missing = append(missing, internalsettings.EmailToKey)
	}
	return missing
}

// RequireChannel returns ErrNoChannelConfigured, annotated with the missing variables, when no channel is usable.
func (c ChannelsConfig) RequireChannel() error {
	if c.WebhookConfigured() || c.EmailConfigured() {
		return nil
	}
	return fmt.Errorf("%w (missing %s)", ErrNoChannelConfigured, strings.Join(c.MissingVariables(), ", "))
}

// StoreEnabled reports whether submissions are persisted.
func (c AppConfig) StoreEnabled() bool {
	return c.Database.DSN != ""
}

// AdminEnabled reports whether the admin API can be served.
func (c AppConfig) AdminEnabled() bool {
	return c.StoreEnabled() && c.Admin.Username != "" && c.Admin.PasswordHash != "" && c.JWT.Secret != ""
}

// RedisEnabled reports whether the shared limiter backend is configured.
func (c RateLimitConfig) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

func applyEnv(cfg *AppConfig) error {
	setString(&cfg.Server.Host, internalsettings.HostKey)
	if origins := strings.TrimSpace(os.Getenv(internalsettings.AllowedOriginsKey)); origins != "" {
		cfg.Server.AllowedOrigins = strings.Split(origins, ",")
	}
	if errPort := setInt(&cfg.Server.Port, internalsettings.PortKey); errPort != nil {
		return errPort
	}
	if errReload := setDuration(&cfg.Server.ReloadInterval, internalsettings.ConfigReloadIntervalKey); errReload != nil {
		return errReload
	}

	setString(&cfg.Channels.WebhookURL, internalsettings.WebhookURLKey)
	setString(&cfg.Channels.EmailAPIKey, internalsettings.EmailAPIKeyKey)
	setString(&cfg.Channels.EmailTo, internalsettings.EmailToKey)
	setString(&cfg.Channels.EmailFrom, internalsettings.EmailFromKey)
	setString(&cfg.Channels.EmailAPIURL, internalsettings.EmailAPIURLKey)
	if errTimeout := setDuration(&cfg.Channels.Timeout, internalsettings.ChannelTimeoutKey); errTimeout != nil {
		return errTimeout
	}

	if errMax := setInt(&cfg.RateLimit.Max, internalsettings.RateLimitMaxKey); errMax != nil {
		return errMax
	}
	if errWindow := setDuration(&cfg.RateLimit.Window, internalsettings.RateLimitWindowKey); errWindow != nil {
		return errWindow
	}
	if errSweep := setDuration(&cfg.RateLimit.SweepInterval, internalsettings.RateLimitSweepIntervalKey); errSweep != nil {
		return errSweep
	}
	setString(&cfg.RateLimit.Redis.Addr, internalsettings.RateLimitRedisAddrKey)
	setString(&cfg.RateLimit.Redis.Password, internalsettings.RateLimitRedisPasswordKey)
	if errDB := setInt(&cfg.RateLimit.Redis.DB, internalsettings.RateLimitRedisDBKey); errDB != nil {
		return errDB
	}
	setString(&cfg.RateLimit.Redis.Prefix, internalsettings.RateLimitRedisPrefixKey)

	setString(&cfg.Database.DSN, internalsettings.DBConnectionKey)

	setString(&cfg.Admin.Username, internalsettings.AdminUsernameKey)
	setString(&cfg.Admin.PasswordHash, internalsettings.AdminPasswordHashKey)
	setString(&cfg.JWT.Secret, internalsettings.JWTSecretKey)
	if expiryRaw := strings.TrimSpace(os.Getenv(internalsettings.JWTExpiryKey)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			cfg.JWT.Expiry = expiry
		}
	}

	setString(&cfg.Logging.Level, internalsettings.LogLevelKey)
	setString(&cfg.Logging.Format, internalsettings.LogFormatKey)
	setString(&cfg.Logging.File, internalsettings.LogFileKey)
	return nil
}

func setString(dst *string, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*dst = value
	}
}

func setInt(dst *int, key string) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	parsed, errParse := strconv.Atoi(raw)
	if errParse != nil {
		return fmt.Errorf("invalid %s: %w", key, errParse)
	}
	*dst = parsed
	return nil
}

// setDuration accepts Go duration syntax or a bare number of seconds.
func setDuration(dst *time.Duration, key string) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	if seconds, errAtoi := strconv.Atoi(raw); errAtoi == nil {
		*dst = time.Duration(seconds) * time.Second
		return nil
	}
	parsed, errParse := time.ParseDuration(raw)
	if errParse != nil {
		return fmt.Errorf("invalid %s: %w", key, errParse)
	}
	*dst = parsed
	return nil
}
