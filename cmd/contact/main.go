package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/router-for-me/ContactRelay/internal/app"
	"github.com/router-for-me/ContactRelay/internal/config"
	"github.com/router-for-me/ContactRelay/internal/logging"
	"github.com/router-for-me/ContactRelay/internal/security"

	log "github.com/sirupsen/logrus"
)

// main runs the CLI entrypoint and exits on unrecoverable command errors.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if errRun := run(ctx, os.Args[1:], os.Stdout); errRun != nil {
		log.WithError(errRun).Error("command failed")
		stop()
		os.Exit(1)
	}
}

// run parses flags, loads config, and starts the relay or a helper command.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) > 0 {
		switch args[0] {
		case "hash-password":
			return hashPassword(args[1:], stdout)
		case "init":
			return initConfig(args[1:], stdout)
		}
	}

	fs := flag.NewFlagSet("contact", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file path (or env CONFIG_PATH)")
	port := fs.Int("port", 0, "server port (overrides config and PORT)")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}

	var (
		appCfg config.AppConfig
		err    error
	)
	if path := strings.TrimSpace(*cfgPath); path != "" {
		appCfg, err = config.Load(path)
	} else {
		appCfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return err
	}
	if *port != 0 {
		if errValidate := validatePort(*port); errValidate != nil {
			return errValidate
		}
		appCfg.Server.Port = *port
	}

	closer, errLog := logging.Setup(appCfg.Logging)
	if errLog != nil {
		return errLog
	}
	defer func() {
		_ = closer.Close()
	}()

	return app.RunServer(ctx, appCfg)
}

// hashPassword prints a bcrypt hash for ADMIN_PASSWORD_HASH.
func hashPassword(args []string, stdout io.Writer) error {
	if len(args) != 1 || args[0] == "" {
		return errors.New("usage: contact hash-password <password>")
	}
	hash, errHash := security.HashPassword(args[0])
	if errHash != nil {
		return errHash
	}
	_, errWrite := fmt.Fprintln(stdout, hash)
	return errWrite
}

// initConfig writes a first-run config file with a hashed admin password and generated JWT secret.
func initConfig(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("contact init", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "config file to create (default ./config.yaml)")
	var req app.InitRequest
	fs.StringVar(&req.DatabaseType, "db-type", "sqlite", "database type: sqlite or postgres")
	fs.StringVar(&req.DatabasePath, "db-path", "", "sqlite database file")
	fs.StringVar(&req.DatabaseHost, "db-host", "", "postgres host")
	fs.IntVar(&req.DatabasePort, "db-port", 5432, "postgres port")
	fs.StringVar(&req.DatabaseUser, "db-user", "", "postgres user")
	fs.StringVar(&req.DatabaseName, "db-name", "", "postgres database name")
	fs.StringVar(&req.DatabaseSSLMode, "db-sslmode", "disable", "postgres sslmode")
	fs.IntVar(&req.ServerPort, "port", 0, "server port")
	fs.StringVar(&req.AdminUsername, "admin-user", "admin", "admin username")
	fs.StringVar(&req.WebhookURL, "webhook-url", "", "chat webhook URL")
	fs.StringVar(&req.EmailTo, "email-to", "", "recipient for contact emails")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}
	// Passwords are read from the environment only.
	req.AdminPassword = os.Getenv("ADMIN_PASSWORD")
	req.DatabasePassword = os.Getenv("DB_PASSWORD")
	if req.AdminPassword == "" {
		return errors.New("usage: ADMIN_PASSWORD=... contact init [flags]")
	}

	path := config.ResolveConfigPath(*cfgPath)
	if errInit := app.RunInit(path, req); errInit != nil {
		return errInit
	}
	_, errWrite := fmt.Fprintf(stdout, "wrote %s\n", path)
	return errWrite
}

func validatePort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port: %d", port)
	}
	return nil
}
