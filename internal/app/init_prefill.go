package app

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/router-for-me/ContactRelay/internal/db"
	log "github.com/sirupsen/logrus"
)

// databaseTarget describes a DSN without its password.
type databaseTarget struct {
	Type        string
	Host        string
	Port        int
	User        string
	Name        string
	SSLMode     string
	Path        string
	PasswordSet bool
}

// Fields returns the target as log fields.
func (t databaseTarget) Fields() log.Fields {
	if t.Type == db.DialectSQLite {
		return log.Fields{"db_type": t.Type, "db_path": t.Path}
	}
	return log.Fields{
		"db_type": t.Type,
		"db_host": t.Host,
		"db_port": t.Port,
		"db_user": t.User,
		"db_name": t.Name,
		"db_ssl":  t.SSLMode,
	}
}

func databaseTargetFromDSN(dsn string) (databaseTarget, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return databaseTarget{}, fmt.Errorf("empty dsn")
	}

	if db.DialectForDSN(trimmed) == db.DialectSQLite {
		pathPart := trimmed
		lowered := strings.ToLower(pathPart)
		for _, prefix := range []string{"file:", "sqlite:"} {
			if strings.HasPrefix(lowered, prefix) {
				pathPart = pathPart[len(prefix):]
				break
			}
		}
		pathPart, _, _ = strings.Cut(pathPart, "?")
		return databaseTarget{
			Type: db.DialectSQLite,
			Path: strings.TrimSpace(pathPart),
		}, nil
	}

	u, errParse := url.Parse(trimmed)
	if errParse != nil {
		return databaseTarget{}, fmt.Errorf("parse dsn: %w", errParse)
	}

	switch strings.ToLower(strings.TrimSpace(u.Scheme)) {
	case "postgres", "postgresql":
		port := 5432
		if rawPort := strings.TrimSpace(u.Port()); rawPort != "" {
			parsedPort, errPort := strconv.Atoi(rawPort)
			if errPort != nil {
				return databaseTarget{}, fmt.Errorf("parse port: %w", errPort)
			}
			port = parsedPort
		}

		username := ""
		passwordSet := false
		if u.User != nil {
			username = strings.TrimSpace(u.User.Username())
			_, passwordSet = u.User.Password()
		}

		sslMode := strings.TrimSpace(u.Query().Get("sslmode"))
		if sslMode == "" {
			sslMode = "disable"
		}

		return databaseTarget{
			Type:        db.DialectPostgres,
			Host:        strings.TrimSpace(u.Hostname()),
			Port:        port,
			User:        username,
			Name:        strings.TrimSpace(strings.TrimPrefix(u.Path, "/")),
			SSLMode:     sslMode,
			PasswordSet: passwordSet,
		}, nil
	default:
		return databaseTarget{}, fmt.Errorf("unsupported dsn scheme")
	}
}
