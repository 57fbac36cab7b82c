package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/router-for-me/ContactRelay/internal/config"
	"github.com/router-for-me/ContactRelay/internal/db"
	"github.com/router-for-me/ContactRelay/internal/http/api/admin"
	adminhandlers "github.com/router-for-me/ContactRelay/internal/http/api/admin/handlers"
	"github.com/router-for-me/ContactRelay/internal/http/api/front"
	fronthandlers "github.com/router-for-me/ContactRelay/internal/http/api/front/handlers"
	"github.com/router-for-me/ContactRelay/internal/logging"
	"github.com/router-for-me/ContactRelay/internal/notify"
	"github.com/router-for-me/ContactRelay/internal/ratelimit"
	"github.com/router-for-me/ContactRelay/internal/store"
	"github.com/router-for-me/ContactRelay/internal/watcher"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// Server holds the wired components of one relay instance.
type Server struct {
	cfg     config.AppConfig
	engine  *gin.Engine
	limiter *ratelimit.Manager
	watcher *watcher.ConfigWatcher
	conn    *gorm.DB
}

// NewServer wires the limiter, dispatcher, optional store and routes for cfg.
func NewServer(cfg config.AppConfig) (*Server, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if errChannel := cfg.Channels.RequireChannel(); errChannel != nil {
		log.WithError(errChannel).Warn("contact submissions will fail until a channel is configured")
	}

	configWatcher := watcher.NewConfigWatcher(cfg, cfg.Server.ReloadInterval)
	limiter := ratelimit.NewManager(
		configWatcher.RateLimitSettings,
		nil,
		nil,
	).WithMetrics(ratelimit.NewMetrics(registry))

	httpClient := &http.Client{Timeout: cfg.Channels.Timeout}
	dispatcher := notify.NewDispatcher(
		notify.NewWebhookSender(httpClient),
		notify.NewEmailSender(httpClient, notify.EmailSenderConfig{
			APIKey: cfg.Channels.EmailAPIKey,
			APIURL: cfg.Channels.EmailAPIURL,
			From:   cfg.Channels.EmailFrom,
		}),
		cfg.Channels.Timeout,
	).WithMetrics(notify.NewMetrics(registry))

	var (
		conn        *gorm.DB
		submissions *store.GormSubmissionStore
		recorder    fronthandlers.SubmissionRecorder
	)
	if cfg.StoreEnabled() {
		var errOpen error
		conn, errOpen = db.Open(cfg.Database.DSN)
		if errOpen != nil {
			return nil, errOpen
		}
		if errMigrate := db.Migrate(conn); errMigrate != nil {
			return nil, errMigrate
		}
		submissions = store.NewGormSubmissionStore(conn)
		recorder = submissions
		if target, errTarget := databaseTargetFromDSN(cfg.Database.DSN); errTarget == nil {
			log.WithFields(target.Fields()).Info("submission store ready")
		}
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(logging.GinLogger())
	engine.Use(logging.Recovery())
	engine.Use(corsMiddleware(cfg.Server.AllowedOrigins))

	healthHandler := adminhandlers.NewHealthHandler(cfg.Channels, conn)
	engine.GET("/healthz", healthHandler.Healthz)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	contactHandler := fronthandlers.NewContactHandler(limiter, dispatcher, cfg.Channels, recorder)
	front.RegisterContactRoutes(engine, contactHandler)

	if cfg.AdminEnabled() {
		admin.RegisterAdminRoutes(engine, submissions, cfg.Admin, cfg.JWT)
	} else if cfg.StoreEnabled() {
		log.Info("admin API disabled: set ADMIN_USERNAME, ADMIN_PASSWORD_HASH and JWT_SECRET to enable")
	}

	return &Server{
		cfg:     cfg,
		engine:  engine,
		limiter: limiter,
		watcher: configWatcher,
		conn:    conn,
	}, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down within shutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2*s.cfg.Channels.Timeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.WithFields(log.Fields{
			"addr":   addr,
			"limit":  s.cfg.RateLimit.Max,
			"window": s.cfg.RateLimit.Window.String(),
			"redis":  s.cfg.RateLimit.RedisEnabled(),
			"store":  s.cfg.StoreEnabled(),
			"admin":  s.cfg.AdminEnabled(),
		}).Info("starting contact relay")
		if errListen := srv.ListenAndServe(); errListen != nil && !errors.Is(errListen, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", addr, errListen)
		}
		return nil
	})
	group.Go(func() error {
		return s.limiter.RunJanitor(groupCtx)
	})
	group.Go(func() error {
		return s.watcher.Run(groupCtx)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.WithError(errShutdown).Error("contact relay shutdown error")
		}
		return nil
	})

	errRun := group.Wait()
	s.close()
	log.Info("contact relay stopped")
	return errRun
}

func (s *Server) close() {
	if s.conn == nil {
		return
	}
	if sqlDB, errDB := s.conn.DB(); errDB == nil {
		_ = sqlDB.Close()
	}
}

// RunServer builds and runs the relay for cfg.
func RunServer(ctx context.Context, cfg config.AppConfig) error {
	srv, errNew := NewServer(cfg)
	if errNew != nil {
		return errNew
	}
	return srv.Run(ctx)
}

// corsMiddleware answers preflight requests and tags responses for allowed origins.
// An empty list allows any origin.
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if _, ok := allowed[origin]; ok || len(allowed) == 0 {
				if len(allowed) == 0 {
					c.Header("Access-Control-Allow-Origin", "*")
				} else {
					c.Header("Access-Control-Allow-Origin", origin)
					c.Header("Vary", "Origin")
				}
				c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
				c.Header("Access-Control-Max-Age", "86400")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
