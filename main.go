package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kit-marketplace/batcher"
	"kit-marketplace/cache"
	"kit-marketplace/catalog"
	"kit-marketplace/config"
	"kit-marketplace/handlers"
	"kit-marketplace/history"
	"kit-marketplace/logger"
	"kit-marketplace/middlewares"
	"kit-marketplace/pubsub"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func main() {
	config.Load()
	cfg := config.FromEnv()

	if err := logger.Init(cfg.LogDir); err != nil {
		log.Fatalf("Failed to initialize loggers: %v", err)
	}

	// An empty DSN leaves the Sentry client disabled.
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		TracesSampleRate: 1.0,
	}); err != nil {
		logger.Error.Printf("Sentry initialization failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, cfg)
	stop()

	sentry.Flush(2 * time.Second)
	logger.Close()
	if err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	db, err := config.OpenHistoryDB(cfg.HistoryDBPath, logger.Debug)
	if err != nil {
		return err
	}
	store, err := openHistoryStore(ctx, db)
	if err != nil {
		return err
	}
	defer store.Close()

	rdb, err := cache.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer rdb.Close()

	itemCache, err := newItemCache(cfg, rdb)
	if err != nil {
		return err
	}
	cat := catalog.NewClient(rdb, itemCache)

	views := batcher.NewTimeBatcher(cfg.ViewFlushInterval, viewFlusher(cat)).WithThreshold(cfg.ViewFlushThreshold)
	views.Start()
	defer views.Stop()

	ps := pubsub.NewPubSub(rdb)
	if err := ps.Subscribe(ctx, pubsub.EventItemUpdated, invalidateOnUpdate(cat)); err != nil {
		return err
	}

	router := handlers.NewRouter(handlers.Deps{
		Items:     &handlers.ItemHandler{Catalog: cat, History: store, Views: views},
		History:   &handlers.HistoryHandler{History: store},
		Health:    &handlers.HealthHandler{History: store},
		RateLimit: middlewares.RateLimitMiddleware(rdb, int64(cfg.RateLimitPerMinute)),
	})
	sentryHandler := sentryhttp.New(sentryhttp.Options{Repanic: true})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           sentryHandler.Handle(router),
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts end on shutdown so history streams close
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Audit.Printf("Server is running on http://localhost:%s", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openHistoryStore wraps db in the history store, closing db if the store
// cannot be built.
func openHistoryStore(ctx context.Context, db *gorm.DB) (*history.Store, error) {
	store, err := history.NewStore(ctx, db)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, err
	}
	return store, nil
}

// newItemCache builds the catalog item cache selected by CACHE_BACKEND. The
// redis backend shares rdb, which run closes itself.
func newItemCache(cfg config.Config, rdb *redis.Client) (cache.ItemCache, error) {
	switch cfg.CacheBackend {
	case config.CacheRedis:
		return cache.NewRedisStore(rdb, "cache:item:", cfg.CacheTTL), nil
	case config.CacheBigCache, "":
		store, err := cache.NewBigCacheStore(cfg.CacheTTL)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown CACHE_BACKEND %q", cfg.CacheBackend)
	}
}

// viewFlusher pushes aggregated view counts to the catalog.
func viewFlusher(cat *catalog.Client) batcher.FlushFunc {
	return func(counts batcher.AggregatedCount) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cat.IncrementViews(ctx, counts); err != nil {
			logger.Error.Printf("view count flush failed: %v", err)
			sentry.CaptureException(err)
		}
	}
}

// invalidateOnUpdate drops a catalog item from the cache when the backend
// reports a change. History snapshots are left untouched.
func invalidateOnUpdate(cat *catalog.Client) pubsub.HandlerFunc {
	return func(data map[string]interface{}) {
		id, _ := data["id"].(string)
		if id == "" {
			return
		}
		if err := cat.Invalidate(id); err != nil {
			logger.Error.Printf("invalidate %s failed: %v", id, err)
		}
	}
}
