package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"agendamento-backend/internal/auth"
	"agendamento-backend/internal/availability"
	"agendamento-backend/internal/booking"
	"agendamento-backend/internal/cache"
	"agendamento-backend/internal/config"
	"agendamento-backend/internal/db"
	"agendamento-backend/internal/handlers"
	"agendamento-backend/internal/maintenance"
	"agendamento-backend/internal/mercadopago"
	"agendamento-backend/internal/metrics"
	"agendamento-backend/internal/middleware"
	"agendamento-backend/internal/notifications"
	"agendamento-backend/internal/reconcile"
	"agendamento-backend/internal/store"
	"agendamento-backend/internal/tracing"
	"agendamento-backend/internal/validation"
)

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		ServiceName:  cfg.OTelServiceName,
		OTLPEndpoint: cfg.OTelEndpoint,
	})
	if err != nil {
		logger.Error("tracing setup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		_ = shutdownTracing(context.Background())
	}()

	var st *store.Store
	if cfg.StoreEnabled {
		client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			logger.Error("mongo connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("mongo connected", slog.String("db", cfg.MongoDB))
		defer client.Disconnect(context.Background())

		if err := db.EnsureIndexes(ctx, cols); err != nil {
			if !errors.Is(err, db.ErrDuplicateKeys) {
				logger.Error("index creation failed", slog.String("error", err.Error()))
				os.Exit(1)
			}
			logger.Warn("index creation incomplete, run maintenance clean-duplicates",
				slog.String("error", err.Error()),
			)
		}
		st = store.NewMongo(cols, cfg.PlaceholderEmail)
	} else {
		logger.Warn("store disabled, using in-memory store")
		st = store.NewMemory(cfg.PlaceholderEmail)
	}

	var cacheStore cache.Cache = cache.NewNoop()
	if cfg.RedisURL != "" || cfg.RedisAddr != "" {
		var redisCache *cache.RedisCache
		if cfg.RedisURL != "" {
			redisCache, err = cache.NewRedisFromURL(cfg.RedisURL)
		} else {
			redisCache = cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		}
		if err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := redisCache.Ping(ctx); err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisCache.Close()
		logger.Info("redis connected")
		cacheStore = redisCache
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	var jwtManager *auth.Manager
	if cfg.JWTSecret != "" {
		jwtManager = &auth.Manager{
			Secret:     []byte(cfg.JWTSecret),
			AccessTTL:  time.Duration(cfg.AccessTTLMinutes) * time.Minute,
			RefreshTTL: time.Duration(cfg.RefreshTTLMinutes) * time.Minute,
			Issuer:     "agendamento-backend",
		}
	}

	gateway := mercadopago.New(mercadopago.Config{
		BaseURL:         cfg.MPBaseURL,
		AccessToken:     cfg.MPAccessToken,
		NotificationURL: cfg.MPNotificationURL,
		Timeout:         cfg.GatewayTimeout,
		HTTPClient: &http.Client{
			Timeout:   cfg.GatewayTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		Logger:  logger,
		Metrics: m,
	})
	if !gateway.Configured() {
		logger.Warn("mercadopago access token missing, pix payments disabled")
	}

	var mailer reconcile.Mailer
	if brevo := notifications.NewBrevoClient(cfg.BrevoAPIKey, cfg.BrevoSenderEmail, cfg.BrevoSenderName, cfg.BrevoSandbox); brevo != nil {
		logger.Info("brevo mailer enabled", slog.String("sender", cfg.BrevoSenderEmail), slog.Bool("sandbox", cfg.BrevoSandbox))
		mailer = brevo
	} else {
		logger.Info("brevo mailer disabled")
	}

	val := validation.New()
	resolver := availability.NewResolver(st.Blocks, st.Appointments,
		availability.WithCache(cacheStore, time.Duration(cfg.CacheTTLSeconds)*time.Second),
		availability.WithHours(cfg.Hours),
		availability.WithLocation(cfg.Timezone),
		availability.WithLogger(logger),
		availability.WithMetrics(m),
	)
	bookingService := booking.New(booking.Config{
		Appointments:     st.Appointments,
		Payments:         st.Payments,
		Resolver:         resolver,
		Gateway:          gateway,
		Validator:        val,
		Logger:           logger,
		Metrics:          m,
		PlaceholderEmail: cfg.PlaceholderEmail,
	})
	reconciler := reconcile.New(reconcile.Config{
		Appointments:     st.Appointments,
		Payments:         st.Payments,
		Gateway:          gateway,
		Resolver:         resolver,
		Mailer:           mailer,
		Logger:           logger,
		Metrics:          m,
		PlaceholderEmail: cfg.PlaceholderEmail,
		Lookback:         cfg.ReconcileLookback,
	})

	server := &handlers.Server{
		Cfg:         cfg,
		Store:       st,
		Resolver:    resolver,
		Booking:     bookingService,
		Reconciler:  reconciler,
		Maintenance: maintenance.New(st, cacheStore, logger, cfg.AllowReset),
		Val:         val,
		Log:         logger,
		Auth:        jwtManager,
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger, m))
	r.Use(middleware.CORS(cfg.FrontendOrigins))
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	bookingLimiter := middleware.NewRateLimiter(cfg.RateLimitBookings, time.Duration(cfg.RateLimitWindowSec)*time.Second)

	r.Get("/healthz", server.Healthz)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Route("/api", func(api chi.Router) {
		server.Register(api, bookingLimiter)
	})

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	if gateway.Configured() {
		go reconcile.NewWorker(reconciler, cfg.ReconcileInterval, logger).Run(workerCtx)
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           otelhttp.NewHandler(r, "agendamento-api"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", slog.String("addr", cfg.ServerAddr), slog.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	stopWorker()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
}
