package ratelimit

import (
	"strings"
	"time"

	"github.com/router-for-me/ContactRelay/internal/config"
	internalsettings "github.com/router-for-me/ContactRelay/internal/settings"
)

// SettingsConfig captures the contact rate limit settings.
type SettingsConfig struct {
	Limit         int
	Window        time.Duration
	SweepInterval time.Duration
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// SettingsFromConfig converts the loaded application config into a limiter settings snapshot.
func SettingsFromConfig(cfg config.RateLimitConfig) SettingsConfig {
	out := SettingsConfig{
		Limit:         cfg.Max,
		Window:        cfg.Window,
		SweepInterval: cfg.SweepInterval,
		RedisEnabled:  cfg.RedisEnabled(),
		RedisAddr:     strings.TrimSpace(cfg.Redis.Addr),
		RedisPassword: strings.TrimSpace(cfg.Redis.Password),
		RedisDB:       cfg.Redis.DB,
		RedisPrefix:   strings.TrimSpace(cfg.Redis.Prefix),
	}
	return out.normalized()
}

// StaticSettings returns a provider that always yields cfg.
func StaticSettings(cfg SettingsConfig) SettingsProvider {
	cfg = cfg.normalized()
	return func() SettingsConfig { return cfg }
}

// DefaultSettings returns the built-in limits: five submissions per sixty seconds, memory backend.
func DefaultSettings() SettingsConfig {
	return SettingsConfig{
		Limit:         internalsettings.DefaultRateLimitMax,
		Window:        internalsettings.DefaultRateLimitWindow,
		SweepInterval: internalsettings.DefaultRateLimitSweepInterval,
		RedisPrefix:   internalsettings.DefaultRateLimitRedisPrefix,
	}
}

func (c SettingsConfig) normalized() SettingsConfig {
	if c.Limit <= 0 {
		c.Limit = internalsettings.DefaultRateLimitMax
	}
	if c.Window <= 0 {
		c.Window = internalsettings.DefaultRateLimitWindow
	}
	if c.SweepInterval < 0 {
		c.SweepInterval = 0
	}
	if c.RedisPrefix == "" {
		c.RedisPrefix = internalsettings.DefaultRateLimitRedisPrefix
	}
	if c.RedisDB < 0 {
		c.RedisDB = 0
	}
	if c.RedisAddr == "" {
		c.RedisEnabled = false
	}
	return c
}
