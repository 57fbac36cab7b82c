package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/router-for-me/ContactRelay/internal/config"
	"github.com/router-for-me/ContactRelay/internal/ratelimit"
	log "github.com/sirupsen/logrus"
)

// ConfigWatcher polls the config file and republishes rate limit settings when its contents change.
type ConfigWatcher struct {
	configPath   string
	pollInterval time.Duration
	load         func(string) (config.AppConfig, error)

	mu        sync.RWMutex
	cfgHash   string
	rateLimit ratelimit.SettingsConfig
}

// NewConfigWatcher seeds the watcher with the settings loaded at startup.
func NewConfigWatcher(initial config.AppConfig, pollInterval time.Duration) *ConfigWatcher {
	w := &ConfigWatcher{
		configPath:   strings.TrimSpace(initial.ConfigPath),
		pollInterval: pollInterval,
		load:         config.Load,
		rateLimit:    ratelimit.SettingsFromConfig(initial.RateLimit),
	}
	if data, errRead := os.ReadFile(w.configPath); errRead == nil {
		w.cfgHash = hashBytes(data)
	}
	return w
}

// RateLimitSettings returns the latest limiter settings. Its method value is a ratelimit.SettingsProvider.
func (w *ConfigWatcher) RateLimitSettings() ratelimit.SettingsConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.rateLimit
}

// Run polls until ctx is cancelled. A non-positive interval disables polling.
func (w *ConfigWatcher) Run(ctx context.Context) error {
	if w.pollInterval <= 0 || w.configPath == "" {
		return nil
	}
	log.Infof("config watcher started (path=%s poll_interval=%s)", w.configPath, w.pollInterval)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.pollConfig()
		}
	}
}

// pollConfig reloads the config file when its contents change.
func (w *ConfigWatcher) pollConfig() {
	data, errRead := os.ReadFile(w.configPath)
	if errRead != nil || len(data) == 0 {
		return
	}
	hash := hashBytes(data)

	w.mu.RLock()
	prevHash := w.cfgHash
	w.mu.RUnlock()
	if prevHash == hash {
		return
	}

	cfg, errLoad := w.load(w.configPath)
	if errLoad != nil {
		log.WithError(errLoad).Warn("config watcher: load config failed, keeping previous settings")
		// Remember the hash so a broken file is reported once.
		w.mu.Lock()
		w.cfgHash = hash
		w.mu.Unlock()
		return
	}
	next := ratelimit.SettingsFromConfig(cfg.RateLimit)

	w.mu.Lock()
	prev := w.rateLimit
	w.rateLimit = next
	w.cfgHash = hash
	w.mu.Unlock()

	if prev != next {
		log.WithFields(log.Fields{
			"limit":  next.Limit,
			"window": next.Window.String(),
			"redis":  next.RedisEnabled,
		}).Info("config watcher: rate limit settings reloaded")
	}
}

// hashBytes returns the SHA-256 hex digest of the input bytes.
func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
