// Package main is the entrypoint for the Guildhall API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/guildhall/guildhall/internal/authapi"
	"github.com/guildhall/guildhall/internal/cache"
	"github.com/guildhall/guildhall/internal/config"
	"github.com/guildhall/guildhall/internal/guard"
	"github.com/guildhall/guildhall/internal/handler"
	"github.com/guildhall/guildhall/internal/mail"
	"github.com/guildhall/guildhall/internal/metrics"
	"github.com/guildhall/guildhall/internal/middleware"
	"github.com/guildhall/guildhall/internal/realtime"
	"github.com/guildhall/guildhall/internal/repository"
	"github.com/guildhall/guildhall/internal/server"
	"github.com/guildhall/guildhall/internal/service"
	"github.com/guildhall/guildhall/internal/session"
)

func main() {
	ctx := context.Background()

	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	repo, err := repository.New(ctx, cfg.DatabaseURL, repository.PoolOptions{MaxConns: cfg.DBMaxConns})
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Every open notification stream pins one connection, so LISTEN gets
	// its own pool and cannot starve request queries.
	listenPool, err := repository.NewPool(ctx, cfg.DatabaseURL, repository.PoolOptions{MaxConns: cfg.DBListenMaxConns})
	if err != nil {
		logger.Error(
			"failed to open listen pool",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		repo.Close()
		os.Exit(1)
	}

	cacheClient, err := cache.New(ctx, cfg.RedisURL, cache.Options{PoolSize: cfg.RedisPoolSize, MinIdleConns: 2})
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		listenPool.Close()
		repo.Close()
		os.Exit(1)
	}
	logger.Info("connected to Redis")

	recorder := metrics.NewPrometheus()

	authClient := authapi.New(cfg.AuthURL, cfg.AuthAnonKey, authapi.NewHTTPClient(cfg.AuthTimeout))
	sessions := session.NewResolver(authClient, session.CookieConfig{
		AccessName:  cfg.CookieAccessName,
		RefreshName: cfg.CookieRefreshName,
		Domain:      cfg.CookieDomain,
		Secure:      cfg.SecureCookies(),
	}, logger, recorder)

	var mailer mail.Mailer
	if cfg.SendGridAPIKey != "" {
		mailer = mail.NewSendGridMailer(cfg.SendGridAPIKey, cfg.MailFrom, cfg.MailFromName, logger)
	} else {
		logger.Warn("SENDGRID_API_KEY not set, email is logged instead of sent")
		mailer = mail.NewLogMailer(logger)
	}
	outbox := mail.NewOutbox(cacheClient.Client(), logger, recorder)

	applications := service.NewApplicationService(repo, outbox, service.ApplicationConfig{
		AppName:    cfg.AppName,
		BaseURL:    cfg.BaseURL,
		AdminEmail: cfg.AdminNotifyEmail,
	}, logger, recorder)
	members := service.NewMemberService(repo, logger, recorder)

	notifications := handler.NewNotificationsHandler(
		realtime.NewPGListener(listenPool, logger, recorder),
		repo,
		handler.NotificationsConfig{
			OriginPatterns: cfg.GetWSOriginPatterns(),
			ToastTTL:       cfg.ToastTTL,
			MaxToasts:      cfg.ToastMaxEntries,
		},
		logger,
		recorder,
	)

	handlers := routes{
		health: handler.NewHealthHandler(logger,
			handler.Dependency{Name: "postgres", Checker: repo},
			handler.Dependency{Name: "realtime", Checker: listenPool},
			handler.Dependency{Name: "redis", Checker: cacheClient},
		),
		metrics:       handler.NewMetricsHandler(recorder.Handler(), nil),
		auth:          handler.NewAuthHandler(authClient, sessions, logger),
		applications:  handler.NewApplicationHandler(applications, logger),
		dashboard:     handler.NewDashboardHandler(members, logger),
		admin:         handler.NewAdminHandler(applications, members, logger),
		notifications: notifications,
	}

	r := setupRouter(handlers, sessions, repo, cacheClient, cfg, logger, recorder)

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// Hooks run LIFO: stores close after everything that uses them.
	srv.OnShutdown("redis", func(context.Context) error { return cacheClient.Close() })
	srv.OnShutdown("database", closePool(repo.Pool()))
	srv.OnShutdown("listen-pool", closePool(listenPool))
	srv.OnHTTPShutdown(notifications.Close)

	if cfg.EmailWorkerEnabled {
		worker := mail.NewWorker(cacheClient.Client(), mailer, logger, mail.NewConsumerID(), recorder)
		srv.Go("email-worker", worker.Run)
		srv.OnShutdown("email-worker", worker.Shutdown)
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_url", cfg.BaseURL,
		"env", cfg.AppEnv,
		"email_worker", cfg.EmailWorkerEnabled,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func closePool(pool *pgxpool.Pool) server.ShutdownFunc {
	return func(context.Context) error {
		pool.Close()
		return nil
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// routes groups the HTTP handlers served by the router.
type routes struct {
	health        *handler.HealthHandler
	metrics       *handler.MetricsHandler
	auth          *handler.AuthHandler
	applications  *handler.ApplicationHandler
	dashboard     *handler.DashboardHandler
	admin         *handler.AdminHandler
	notifications *handler.NotificationsHandler
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h routes,
	sessions middleware.SessionResolver,
	repo *repository.Repository,
	cacheClient *cache.Cache,
	cfg *config.Config,
	logger *slog.Logger,
	recorder metrics.Recorder,
) *chi.Mux {
	r := chi.NewRouter()

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.SelfOrigin = middleware.OriginOf(cfg.BaseURL)
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))
	r.Use(middleware.Gate(middleware.GateConfig{
		Logger:   logger,
		Sessions: sessions,
		Records:  repo,
		Paths:    guard.DefaultPaths(),
		Metrics:  recorder,
	}))

	// Health endpoints (no auth required)
	r.Get("/healthz", h.health.Healthz)
	r.Get("/readyz", h.health.Readyz)
	r.Get("/metrics", h.metrics.Metrics)

	loginLimit := middleware.RateLimitIP(middleware.RateLimitConfig{
		Logger:  logger,
		Limiter: cacheClient,
		Enabled: cfg.RateLimitEnabled,
		Scope:   "login",
		RPS:     cfg.RateLimitLoginRPS,
		Burst:   cfg.RateLimitLoginBurst,
	})
	applyLimit := middleware.RateLimitIP(middleware.RateLimitConfig{
		Logger:  logger,
		Limiter: cacheClient,
		Enabled: cfg.RateLimitEnabled,
		Scope:   "apply",
		RPS:     cfg.RateLimitApplyRPS,
		Burst:   cfg.RateLimitApplyBurst,
	})

	// Public pages and sign-in
	r.Get("/login", h.auth.MemberLoginPage)
	r.With(loginLimit).Post("/auth/login", h.auth.Login)
	r.Post("/auth/logout", h.auth.Logout)
	r.With(applyLimit).Post("/api/applications", h.applications.Submit)

	// Member area; the gate has already required a session.
	r.Route("/dashboard", func(r chi.Router) {
		r.Get("/", h.dashboard.Get)
		r.Get("/messages", h.dashboard.Conversation)
		r.With(middleware.RequireActive(logger, repo)).Post("/messages", h.dashboard.SendMessage)
		r.Get("/notifications", h.notifications.Stream)
	})

	// Admin console. Everything but the login page sits behind an admin record.
	r.Route("/admin", func(r chi.Router) {
		r.Get("/login", h.auth.AdminLoginPage)
		r.Get("/", h.admin.Overview)
		r.Get("/applications", h.admin.ListApplications)
		r.Post("/applications/{id}/approve", h.admin.ApproveApplication)
		r.Post("/applications/{id}/reject", h.admin.RejectApplication)
		r.Get("/members", h.admin.ListMembers)
		r.Post("/members/{id}/status", h.admin.SetMemberStatus)
	})

	// 404 and 405 handlers
	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
