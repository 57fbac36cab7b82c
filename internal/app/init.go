package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/router-for-me/ContactRelay/internal/db"
	"github.com/router-for-me/ContactRelay/internal/security"
	internalsettings "github.com/router-for-me/ContactRelay/internal/settings"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ErrConfigExists is returned when init would overwrite an existing config file.
var ErrConfigExists = errors.New("config file already exists")

// InitRequest contains parameters for first-run setup.
type InitRequest struct {
	DatabaseType     string
	DatabaseHost     string
	DatabasePort     int
	DatabaseUser     string
	DatabasePassword string
	DatabaseName     string
	DatabasePath     string
	DatabaseSSLMode  string
	ServerPort       int
	AdminUsername    string
	AdminPassword    string
	WebhookURL       string
	EmailTo          string
}

// ConfigExists reports whether the config file exists at the path.
func ConfigExists(configPath string) bool {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return false
	}
	return true
}

// defaultSQLitePath is the default SQLite database file name.
const defaultSQLitePath = "contact.db"

// BuildDSN builds a database DSN from the init request.
func BuildDSN(req InitRequest) (string, error) {
	switch strings.ToLower(strings.TrimSpace(req.DatabaseType)) {
	case "", "sqlite":
		return buildSQLiteDSN(req.DatabasePath), nil
	case "postgres":
		sslMode := req.DatabaseSSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf(
			"postgres://%s:%s@%s:%d/%s?sslmode=%s",
			req.DatabaseUser,
			req.DatabasePassword,
			req.DatabaseHost,
			req.DatabasePort,
			req.DatabaseName,
			sslMode,
		), nil
	default:
		return "", fmt.Errorf("unsupported database type")
	}
}

// buildSQLiteDSN constructs a SQLite DSN with default pragmas.
func buildSQLiteDSN(path string) string {
	dsn := strings.TrimSpace(path)
	if dsn == "" {
		dsn = defaultSQLitePath
	}
	if !strings.HasPrefix(strings.ToLower(dsn), "file:") {
		dsn = "file:" + dsn
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + strings.Join([]string{
		"_pragma=busy_timeout(5000)",
		"_pragma=journal_mode(WAL)",
		"_pragma=synchronous(NORMAL)",
	}, "&")
}

// TestDatabaseConnection opens the DSN, migrates the submission table and pings.
func TestDatabaseConnection(dsn string) error {
	conn, err := db.Open(dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql db: %w", err)
	}
	defer func() {
		if errClose := sqlDB.Close(); errClose != nil {
			log.Errorf("sql db close error: %v", errClose)
		}
	}()
	if errPing := sqlDB.Ping(); errPing != nil {
		return fmt.Errorf("failed to ping database: %w", errPing)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return fmt.Errorf("migrate database: %w", errMigrate)
	}
	return nil
}

// validateInitRequest normalizes and validates init input data.
func validateInitRequest(req *InitRequest) error {
	dbType := strings.ToLower(strings.TrimSpace(req.DatabaseType))
	if dbType == "" {
		dbType = "sqlite"
	}
	req.DatabaseType = dbType

	switch dbType {
	case "postgres":
		if strings.TrimSpace(req.DatabaseHost) == "" {
			return fmt.Errorf("database host is required")
		}
		if req.DatabasePort <= 0 {
			req.DatabasePort = 5432
		}
		if strings.TrimSpace(req.DatabaseUser) == "" {
			return fmt.Errorf("database username is required")
		}
		if strings.TrimSpace(req.DatabaseName) == "" {
			return fmt.Errorf("database name is required")
		}
	case "sqlite":
		if strings.TrimSpace(req.DatabasePath) == "" {
			req.DatabasePath = defaultSQLitePath
		}
	default:
		return fmt.Errorf("unsupported database type %q", req.DatabaseType)
	}

	if req.ServerPort == 0 {
		req.ServerPort = internalsettings.DefaultPort
	}
	if req.ServerPort < 0 || req.ServerPort > 65535 {
		return fmt.Errorf("invalid port: %d", req.ServerPort)
	}
	req.AdminUsername = strings.TrimSpace(req.AdminUsername)
	if req.AdminUsername == "" || req.AdminPassword == "" {
		return fmt.Errorf("admin username and password are required")
	}
	return nil
}

// configFile maps the YAML fields written by init.
type configFile struct {
	Server   serverCfg   `yaml:"server"`
	Channels channelsCfg `yaml:"channels,omitempty"`
	Database databaseCfg `yaml:"database"`
	Admin    adminCfg    `yaml:"admin"`
	JWT      jwtCfg      `yaml:"jwt"`
}

type serverCfg struct {
	Port int `yaml:"port"`
}

type channelsCfg struct {
	WebhookURL string `yaml:"webhook-url,omitempty"`
	EmailTo    string `yaml:"email-to,omitempty"`
}

type databaseCfg struct {
	DSN string `yaml:"dsn"`
}

type adminCfg struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password-hash"`
}

// jwtCfg holds JWT settings for the generated config file.
type jwtCfg struct {
	Secret string `yaml:"secret"`
	Expiry string `yaml:"expiry"`
}

// generateJWTSecret creates a random JWT secret string.
func generateJWTSecret() (string, error) {
	secret, err := security.GenerateRandomString(32)
	if err != nil {
		return "", fmt.Errorf("generate jwt secret: %w", err)
	}
	return secret, nil
}

// WriteConfigFile writes the initial config file to disk.
func WriteConfigFile(configPath string, req InitRequest, dsn string) error {
	hash, errHash := security.HashPassword(req.AdminPassword)
	if errHash != nil {
		return fmt.Errorf("hash password: %w", errHash)
	}
	secret, errSecret := generateJWTSecret()
	if errSecret != nil {
		return errSecret
	}

	cfg := configFile{
		Server:   serverCfg{Port: req.ServerPort},
		Channels: channelsCfg{WebhookURL: strings.TrimSpace(req.WebhookURL), EmailTo: strings.TrimSpace(req.EmailTo)},
		Database: databaseCfg{DSN: dsn},
		Admin:    adminCfg{Username: req.AdminUsername, PasswordHash: hash},
		JWT: jwtCfg{
			Secret: secret,
			Expiry: internalsettings.DefaultJWTExpiry.String(),
		},
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(configPath)
	if errMkdir := os.MkdirAll(dir, 0755); errMkdir != nil {
		return fmt.Errorf("create config dir: %w", errMkdir)
	}

	if errWrite := os.WriteFile(configPath, data, 0600); errWrite != nil {
		return fmt.Errorf("write config file: %w", errWrite)
	}

	return nil
}

// RunInit validates req, prepares the submission store and writes a config file.
// It refuses to overwrite an existing file.
func RunInit(configPath string, req InitRequest) error {
	if ConfigExists(configPath) {
		return fmt.Errorf("%w: %s", ErrConfigExists, configPath)
	}
	if errValidate := validateInitRequest(&req); errValidate != nil {
		return errValidate
	}
	dsn, errDSN := BuildDSN(req)
	if errDSN != nil {
		return errDSN
	}

	target, errTarget := databaseTargetFromDSN(dsn)
	if errTarget != nil {
		return errTarget
	}
	log.WithFields(target.Fields()).Info("init: checking database")
	if errConn := TestDatabaseConnection(dsn); errConn != nil {
		return errConn
	}

	if errWrite := WriteConfigFile(configPath, req, dsn); errWrite != nil {
		return errWrite
	}
	log.Infof("init: wrote %s", configPath)
	return nil
}
