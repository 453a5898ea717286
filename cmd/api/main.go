package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/ecobin/ecobin-api/internal/config"
	"github.com/ecobin/ecobin-api/internal/domain/audit"
	"github.com/ecobin/ecobin-api/internal/domain/bin"
	"github.com/ecobin/ecobin-api/internal/domain/cashout"
	"github.com/ecobin/ecobin-api/internal/domain/fraud"
	"github.com/ecobin/ecobin-api/internal/domain/location"
	"github.com/ecobin/ecobin-api/internal/domain/realtime"
	"github.com/ecobin/ecobin-api/internal/domain/report"
	"github.com/ecobin/ecobin-api/internal/domain/submission"
	"github.com/ecobin/ecobin-api/internal/domain/user"
	"github.com/ecobin/ecobin-api/internal/domain/wallet"
	"github.com/ecobin/ecobin-api/internal/middleware"
	"github.com/ecobin/ecobin-api/internal/pkg/database"
	"github.com/ecobin/ecobin-api/internal/pkg/jwt"
	"github.com/ecobin/ecobin-api/internal/pkg/logger"
	"github.com/ecobin/ecobin-api/internal/pkg/payout"
	pkgresponse "github.com/ecobin/ecobin-api/internal/pkg/response"
	"github.com/ecobin/ecobin-api/internal/pkg/storage"
)

// Access tokens are minted by the identity service; the TTL only matters for
// tokens this process signs itself (tests, local tooling).
const accessTokenTTL = 15 * time.Minute

func main() {
	cfg := config.Load()

	logCloser, err := logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		LogFile:     cfg.LogFile,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise logger")
	}
	defer logCloser.Close()

	pkgresponse.ExposeTraces(cfg.IsDevelopment())

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting EcoBin API")

	db, err := database.NewPostgres(database.PostgresConfig{
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL, cfg.RedisPoolSize)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, running without bin cache and cross-instance events")
		redis = nil
	} else {
		defer database.CloseRedis(redis)
	}

	jwtService := jwt.NewService(cfg.JWTSecret, accessTokenTTL)

	// Video storage
	var videos storage.ObjectStore
	if cfg.S3AccessKey != "" || cfg.S3Endpoint != "" {
		s3Storage, err := storage.NewS3Storage(context.Background(), storage.Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialise video storage")
		}
		videos = s3Storage
	} else {
		log.Warn().Msg("S3 not configured, video references are not verified")
	}

	// Payout gateway
	var gateway payout.Gateway = payout.Sandbox{}
	if cfg.PayoutBaseURL != "" {
		gateway = payout.NewClient(payout.Config{
			BaseURL:     cfg.PayoutBaseURL,
			MerchantKey: cfg.PayoutMerchantKey,
			Timeout:     cfg.PayoutTimeout,
		})
	} else if cfg.IsProduction() {
		log.Warn().Msg("PAYOUT_BASE_URL not set, using sandbox payouts")
	}

	// Realtime
	hub := realtime.NewHub(redis)
	go hub.Run()

	// Repositories
	walletRepo := wallet.NewRepository(db)
	auditRepo := audit.NewRepository(db)
	fraudRepo := fraud.NewRepository(db)
	userRepo := user.NewRepository(db)

	// Services
	var binCache bin.Cache
	if redis != nil {
		binCache = bin.NewRedisCache(redis, cfg.BinCacheTTL)
	}
	binService := bin.NewService(bin.NewRepository(db), binCache)
	validator := location.NewValidator(binService).WithSearchRadius(cfg.NearestBinMaxMeter)

	submissionService := submission.NewService(
		submission.NewPostgresStore(db, walletRepo, auditRepo, fraudRepo),
		validator,
		videos,
		hub,
		submission.Config{
			BaseReward:          cfg.PointsBaseReward,
			QualityBonusMax:     cfg.PointsQualityBonusMax,
			AutoVerifyThreshold: cfg.AutoVerifyThreshold,
			AutoRejectThreshold: cfg.AutoRejectThreshold,
			VideoURLTTL:         cfg.VideoURLTTL,
			RequireStoredObject: cfg.RequireStorage,
		},
	)

	cashoutService := cashout.NewService(
		cashout.NewPostgresStore(db, walletRepo, auditRepo),
		gateway,
		hub,
		cashout.Config{
			PointsToCashRate: cfg.PointsToCashRate,
			MinPoints:        cfg.MinCashoutPoints,
			Currency:         cfg.CashoutCurrency,
		},
	)

	userService := user.NewService(userRepo)
	health := func(ctx context.Context) (map[string]string, bool) {
		return database.Check(ctx, db, redis)
	}

	a := &api{
		jwt:         jwtService,
		bins:        bin.NewHandler(binService),
		locations:   location.NewHandler(validator),
		submissions: submission.NewHandler(submissionService),
		flags:       fraud.NewHandler(fraud.NewService(fraudRepo)),
		wallet:      wallet.NewHandler(wallet.NewService(walletRepo)),
		cashouts:    cashout.NewHandler(cashoutService),
		reports:     report.NewHandler(report.NewService(report.NewRepository(db), binService)),
		users:       user.NewHandler(userService),
		ws:          realtime.NewHandler(hub, cfg.AllowedOrigins),
		health:      health,

		// a payout call plus the two short transactions around it
		requestTimeout: cfg.PayoutTimeout + 15*time.Second,
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(a, cfg.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: a.requestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hub.Shutdown()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

// api bundles the HTTP handlers the router mounts.
type api struct {
	jwt *jwt.Service

	bins        *bin.Handler
	locations   *location.Handler
	submissions *submission.Handler
	flags       *fraud.Handler
	wallet      *wallet.Handler
	cashouts    *cashout.Handler
	reports     *report.Handler
	users       *user.Handler
	ws          *realtime.Handler

	// health reports backing store state; nil means always healthy.
	health         func(ctx context.Context) (map[string]string, bool)
	requestTimeout time.Duration
}

func newRouter(a *api, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(allowedOrigins))

	authMiddleware := middleware.Auth(a.jwt)
	// Every authenticated caller gets a users row, and banned callers stop here.
	authed := func(next http.Handler) http.Handler {
		return authMiddleware(a.users.Provision(next))
	}
	moderatorOnly := middleware.RequireModerator()
	financeOnly := middleware.RequireFinance()
	councilOnly := middleware.RequireRole(middleware.RoleCouncil, middleware.RoleModerator)
	adminOnly := middleware.RequireAdmin()

	// WebSocket must bypass compression and the timeout handler
	r.With(middleware.QueryAuth(a.jwt)).Get("/ws", a.ws.WebSocket)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{"status": "ok", "version": "1.0.0"}
		if a.health == nil {
			pkgresponse.OK(w, body)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		deps, healthy := a.health(ctx)
		for k, v := range deps {
			body[k] = v
		}
		if !healthy {
			body["status"] = "degraded"
			pkgresponse.JSON(w, http.StatusServiceUnavailable, body)
			return
		}
		pkgresponse.OK(w, body)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Compress(5))
		if a.requestTimeout > 0 {
			r.Use(middleware.Timeout(a.requestTimeout))
		}

		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			pkgresponse.OK(w, map[string]string{"message": "pong"})
		})

		r.With(authed).Get("/me", a.users.Me)

		r.Mount("/bins", a.bins.Routes(authed, adminOnly))
		r.Mount("/locations", a.locations.Routes(authed))

		r.Mount("/submissions", a.submissions.Routes(authed))
		r.Mount("/moderation/submissions", a.submissions.ModerationRoutes(authed, moderatorOnly))
		r.Route("/moderation/flags", func(r chi.Router) {
			r.Use(authed)
			r.Use(moderatorOnly)
			r.Mount("/", a.flags.Routes())
		})

		r.Mount("/wallet", a.wallet.Routes(authed))
		r.Mount("/cashouts", a.cashouts.Routes(authed))
		r.Mount("/finance/cashouts", a.cashouts.FinanceRoutes(authed, financeOnly))

		r.Mount("/reports", a.reports.Routes(authed, councilOnly, financeOnly))
		r.Mount("/admin/users", a.users.AdminRoutes(authed, adminOnly))
	})

	return r
}
