package main

import (
	"context"
	"expvar"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dinhtoai1/layso/internal/config"
	"github.com/Dinhtoai1/layso/internal/httpapi"
	"github.com/Dinhtoai1/layso/internal/hub"
	"github.com/Dinhtoai1/layso/internal/queue"
	"github.com/Dinhtoai1/layso/internal/registry"
	"github.com/Dinhtoai1/layso/internal/store"
	"github.com/Dinhtoai1/layso/internal/store/memory"
	"github.com/Dinhtoai1/layso/internal/store/postgres"
	"github.com/Dinhtoai1/layso/internal/telemetry"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	shutdownTelemetry := telemetry.Setup("queue-service")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	var st store.Store
	if cfg.DatabaseURL == "" {
		log.Printf("DB_DSN is empty, using in-memory store")
		st = memory.NewStore(memory.Options{})
	} else {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db connect: %v", err)
		}
		defer pool.Close()

		pgStore := postgres.NewStore(pool, postgres.Options{})
		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := pgStore.Migrate(migrateCtx, registry.Names()); err != nil {
			cancel()
			log.Fatalf("migrate: %v", err)
		}
		cancel()
		st = pgStore
	}

	if cfg.AdminPassword != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := st.EnsureStaffUser(ctx, cfg.AdminUsername, cfg.AdminPassword, "", "admin"); err != nil {
			log.Printf("bootstrap admin user error: %v", err)
		}
		cancel()
	}

	displays := hub.New()
	engine := queue.New(st, queue.Options{
		RecallWindow:  cfg.RecallWindow,
		CallFreshness: cfg.CallFreshness,
		Location:      cfg.Timezone,
		Notifier:      displays,
	})

	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := engine.ResetIfNewDay(startCtx); err != nil {
		log.Printf("startup reset check error: %v", err)
	}
	cancel()

	handler := httpapi.NewHandler(engine, st, httpapi.Options{SessionTTL: cfg.SessionTTL})
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		PerMinute: cfg.RateLimitPerMinute,
		Burst:     cfg.RateLimitBurst,
	})

	mux := http.NewServeMux()
	mux.Handle("/", handler.Routes())
	mux.Handle("/metrics", expvar.Handler())
	mux.Handle("/display/", displays.Handler("/display"))

	chain := httpapi.AuthMiddleware(st, mux)
	chain = limiter.Middleware(chain)
	chain = httpapi.LoggingMiddleware(chain)
	otelHandler := otelhttp.NewHandler(chain, "queue-service")

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	loopCtx, stopLoop := context.WithCancel(context.Background())
	go engine.RunResetLoop(loopCtx, cfg.ResetCheckInterval)

	go func() {
		log.Printf("queue-service listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	stopLoop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
