package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hireloop/matchdex/internal/config"
	dbRedis "github.com/hireloop/matchdex/internal/db/redis"
	"github.com/hireloop/matchdex/internal/docsource"
	"github.com/hireloop/matchdex/internal/domain"
	logpkg "github.com/hireloop/matchdex/internal/logger"
	"github.com/hireloop/matchdex/internal/metrics"
	"github.com/hireloop/matchdex/internal/repository/embcache"
	"github.com/hireloop/matchdex/internal/repository/memindex"
	"github.com/hireloop/matchdex/internal/repository/memrecord"
	recordrepo "github.com/hireloop/matchdex/internal/repository/record"
	"github.com/hireloop/matchdex/internal/repository/vectorindex"
	chiTransport "github.com/hireloop/matchdex/internal/transport/chi"
	openaiEmb "github.com/hireloop/matchdex/internal/transport/openai"
	healthuc "github.com/hireloop/matchdex/internal/usecase/health"
	indexinguc "github.com/hireloop/matchdex/internal/usecase/indexing"
	matchuc "github.com/hireloop/matchdex/internal/usecase/match"
	"github.com/hireloop/matchdex/internal/version"
	"github.com/hireloop/matchdex/internal/worker"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Println(version.String())
		return
	}

	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting matchdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterIndexingMetrics()
	metrics.RegisterHTTPMetrics()

	ctx := context.Background()

	// Base embedding provider with transport metrics built in
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	// Pick the storage backend. All four interfaces the usecases consume are
	// satisfied by either wiring; nothing downstream branches on the driver.
	var (
		records   indexinguc.RecordStore
		vindex    vectorIndex
		embedder  domain.Embedder = base
		pinger    healthuc.StorePinger
		closeStor func()
	)

	switch cfg.Database.Driver {
	case "redis":
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		closeStor = store.Close

		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		logger.Info("Connected to database")

		repo := vectorindex.New(store, cfg.Index.VectorDim).WithHNSW(vectorindex.HNSWConfig{
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
		})
		if err := repo.EnsureIndexes(ctx); err != nil {
			logger.Fatal("Failed to ensure vector indexes", zap.Error(err))
		}

		records = recordrepo.New(store)
		vindex = repo
		pinger = store

		if cfg.Embedding.Cache {
			embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
		}

	case "memory":
		records = memrecord.New()
		vindex = memindex.New()
		pinger = noopPinger{}
		logger.Info("Using in-memory vector index")

	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	if closeStor != nil {
		defer closeStor()
	}

	source := docsource.New(docsource.Config{
		JobsBaseURL:     cfg.Sources.JobsURL,
		ProfilesBaseURL: cfg.Sources.ProfilesURL,
		APIKey:          cfg.Sources.APIKey,
		Timeout:         time.Duration(cfg.Sources.TimeoutSec) * time.Second,
	})

	indexingSvc := indexinguc.New(records, source, embedder, vindex, logger)
	matchSvc := matchuc.New(records, vindex, source, logger).
		WithPagination(cfg.Index.DefaultPageSize, cfg.Index.MaxPageSize)
	healthSvc := healthuc.New(pinger, embeddingHealthChecker{embedder: base})

	// Background indexing pool: per-document-key sharding keeps concurrent
	// ProcessIndexing calls for the same document serialized.
	pool := worker.New(indexingSvc, worker.Config{
		Shards:      cfg.Worker.Shards,
		QueueSize:   cfg.Worker.QueueSize,
		TaskTimeout: time.Duration(cfg.Worker.TaskTimeoutSec) * time.Second,
	}, logger)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	var workerWG sync.WaitGroup
	workerWG.Add(1)
	go func() {
		defer workerWG.Done()
		pool.Run(workerCtx)
	}()

	var resolver chiTransport.KeyResolver
	if len(cfg.Auth.Principals) > 0 {
		table := make(map[string]chiTransport.Principal, len(cfg.Auth.Principals))
		for _, p := range cfg.Auth.Principals {
			table[p.APIKey] = chiTransport.Principal{
				UserID: p.UserID,
				Role:   chiTransport.Role(p.Role),
			}
		}
		resolver = chiTransport.StaticKeys(table)
	}

	server := chiTransport.NewServer(indexingSvc, matchSvc, healthSvc, pool, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(resolver))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	stopWorkers()
	workerWG.Wait()

	logger.Info("Server stopped gracefully")
}

// vectorIndex is the union of the read and write sides consumed by the usecases.
type vectorIndex interface {
	indexinguc.VectorIndex
	matchuc.VectorIndex
}

type noopPinger struct{}

func (noopPinger) Ping(context.Context) error { return nil }

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func (h embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line - one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
