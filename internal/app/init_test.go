package app

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/router-for-me/ContactRelay/internal/config"
	"github.com/router-for-me/ContactRelay/internal/security"
)

func TestBuildDSN_SQLiteDefaults(t *testing.T) {
	dsn, err := BuildDSN(InitRequest{})
	if err != nil {
		t.Fatalf("BuildDSN: %v", err)
	}
	if !strings.HasPrefix(dsn, "file:contact.db?") {
		t.Fatalf("unexpected dsn %q", dsn)
	}
	if !strings.Contains(dsn, "_pragma=busy_timeout(5000)") {
		t.Fatalf("expected busy timeout pragma in %q", dsn)
	}
}

func TestBuildDSN_Postgres(t *testing.T) {
	dsn, err := BuildDSN(InitRequest{
		DatabaseType:     "postgres",
		DatabaseHost:     "db",
		DatabasePort:     5433,
		DatabaseUser:     "relay",
		DatabasePassword: "secret",
		DatabaseName:     "contact",
	})
	if err != nil {
		t.Fatalf("BuildDSN: %v", err)
	}
	if dsn != "postgres://relay:secret@db:5433/contact?sslmode=disable" {
		t.Fatalf("unexpected dsn %q", dsn)
	}
}

func TestValidateInitRequest(t *testing.T) {
	cases := []struct {
		name string
		req  InitRequest
		ok   bool
	}{
		{name: "sqlite defaults", req: InitRequest{AdminUsername: "admin", AdminPassword: "pw"}, ok: true},
		{name: "missing admin", req: InitRequest{}, ok: false},
		{name: "postgres without host", req: InitRequest{DatabaseType: "postgres", AdminUsername: "admin", AdminPassword: "pw"}, ok: false},
		{name: "unknown type", req: InitRequest{DatabaseType: "mysql", AdminUsername: "admin", AdminPassword: "pw"}, ok: false},
		{name: "bad port", req: InitRequest{ServerPort: 70000, AdminUsername: "admin", AdminPassword: "pw"}, ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := tc.req
			err := validateInitRequest(&req)
			if tc.ok && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestRunInit_WritesLoadableConfig(t *testing.T) {
	for _, key := range []string{"ADMIN_USERNAME", "ADMIN_PASSWORD_HASH", "JWT_SECRET", "DB_CONNECTION", "PORT", "DISCORD_WEBHOOK_URL", "EMAIL_TO"} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	req := InitRequest{
		DatabasePath:  filepath.Join(dir, "contact.db"),
		ServerPort:    9090,
		AdminUsername: "admin",
		AdminPassword: "hunter2",
		WebhookURL:    "https://discord.example/api/webhooks/1/token",
	}
	if err := RunInit(configPath, req); err != nil {
		t.Fatalf("RunInit: %v", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("stat config: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("load written config: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.AdminEnabled() || !cfg.StoreEnabled() {
		t.Fatalf("expected admin and store enabled, got admin=%v store=%v", cfg.AdminEnabled(), cfg.StoreEnabled())
	}
	if !security.CheckAdminCredentials(cfg.Admin.Username, cfg.Admin.PasswordHash, "admin", "hunter2") {
		t.Fatalf("expected written hash to match the admin password")
	}
	if !cfg.Channels.WebhookConfigured() {
		t.Fatalf("expected webhook channel to be configured")
	}

	if err := RunInit(configPath, req); !errors.Is(err, ErrConfigExists) {
		t.Fatalf("expected ErrConfigExists, got %v", err)
	}
}
