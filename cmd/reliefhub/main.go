package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/rajasatyajit/ReliefHub/config"
	"github.com/rajasatyajit/ReliefHub/internal/api"
	"github.com/rajasatyajit/ReliefHub/internal/auth"
	"github.com/rajasatyajit/ReliefHub/internal/classifier"
	"github.com/rajasatyajit/ReliefHub/internal/database"
	"github.com/rajasatyajit/ReliefHub/internal/geocoder"
	"github.com/rajasatyajit/ReliefHub/internal/logger"
	"github.com/rajasatyajit/ReliefHub/internal/metrics"
	middlewares "github.com/rajasatyajit/ReliefHub/internal/middleware"
	"github.com/rajasatyajit/ReliefHub/internal/pipeline"
	"github.com/rajasatyajit/ReliefHub/internal/ratelimit"
	"github.com/rajasatyajit/ReliefHub/internal/store"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	genKey := flag.Bool("gen-admin-key", false, "print a new admin key and its bcrypt hash, then exit")
	flag.Parse()

	if *genKey {
		key, hash, err := auth.GenerateAdminKey()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate admin key: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("ADMIN_KEY=%s\nADMIN_KEY_HASH=%s\n", key, hash)
		return
	}

	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Starting ReliefHub",
		"version", Version,
		"build_time", BuildTime,
		"git_commit", GitCommit,
	)

	if err := metrics.Init(cfg.Metrics.Enabled); err != nil {
		logger.Fatal("Failed to initialize metrics", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Fatal("Server failed", "error", err)
	}
	logger.Info("Server exited")
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer db.Close(context.Background())

	st := store.New(db)

	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		rdb, err = ratelimit.NewRedisClient(ctx, cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("Redis unavailable; falling back to in-process state", "error", err)
			rdb = nil
		} else {
			defer rdb.Close()
		}
	}

	geo := newGeocoder(cfg.Geocoder, rdb)
	if c, ok := geo.(*geocoder.Client); ok {
		defer c.Close()
	}

	var limiter ratelimit.Limiter
	switch {
	case cfg.RateLimit.RequestsPerMinute <= 0:
		logger.Info("Rate limiting disabled")
	case rdb != nil:
		limiter = ratelimit.NewRedisLimiter(rdb, cfg.RateLimit.RequestsPerMinute)
	default:
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.RequestsPerMinute)
	}

	admin := auth.NewAdminVerifier(cfg.Admin)
	if !admin.Configured() {
		logger.Warn("No admin key configured; admin routes are disabled")
	}

	svc := pipeline.New(st, geocoder.NewExtractor(), geo, classifier.New(), cfg.Matching)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.Logging)
	r.Use(middlewares.Metrics)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	r.Use(middlewares.Security)
	r.Use(middlewares.CORS(cfg.CORS.AllowedOrigins))

	api.NewHandler(svc, api.Options{
		Version:     Version,
		BuildTime:   BuildTime,
		GitCommit:   GitCommit,
		Environment: os.Getenv("APP_ENV"),
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		Admin:       admin,
		Limiter:     limiter,
		DB:          db,
	}).RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	servers := []*http.Server{srv}
	if cfg.Metrics.Enabled {
		servers = append(servers, newMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range servers {
		s := s
		g.Go(func() error {
			logger.Info("Starting HTTP server", "address", s.Addr)
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen on %s: %w", s.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
		defer cancel()

		var errs []error
		for _, s := range servers {
			if err := s.Shutdown(shutdownCtx); err != nil {
				logger.Error("Server forced to shutdown", "address", s.Addr, "error", err)
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

// newGeocoder returns the Nominatim client, cached in Redis when available
func newGeocoder(cfg config.GeocoderConfig, rdb *redis.Client) pipeline.Geocoder {
	if !cfg.Enabled {
		logger.Info("Geocoding disabled")
		return geocoder.Disabled{}
	}
	opts := geocoder.Options{
		BaseURL:   cfg.URL,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
	}
	if rdb != nil {
		opts.Cache = geocoder.NewRedisCache(rdb, cfg.CacheTTL)
	}
	return geocoder.NewClient(opts)
}

func newMetricsServer(port int, path string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())
	return &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
}
