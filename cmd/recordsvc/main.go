// Command recordsvc runs the customer-record HTTP service: MongoDB for
// durable storage, an optional cache tier (redis or in-process), a
// single enrichment worker and a redis pub/sub event stream.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/recordsvc"
	"github.com/unkn0wn-root/recordsvc/codec"
	"github.com/unkn0wn-root/recordsvc/enrich"
	eventredis "github.com/unkn0wn-root/recordsvc/event/redis"
	"github.com/unkn0wn-root/recordsvc/httpapi"
	"github.com/unkn0wn-root/recordsvc/internal/config"
	zaplog "github.com/unkn0wn-root/recordsvc/log/zap"
	"github.com/unkn0wn-root/recordsvc/provider"
	providerbigcache "github.com/unkn0wn-root/recordsvc/provider/bigcache"
	providerredis "github.com/unkn0wn-root/recordsvc/provider/redis"
	"github.com/unkn0wn-root/recordsvc/store/mongo"
)

const shutdownTimeout = 10 * time.Second

func main() {
	zl, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer zl.Sync()
	log := zaplog.Logger{L: zl}

	cfg, err := config.FromEnv()
	if err != nil {
		zl.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := mongo.New(ctx, mongo.Config{
		Host: cfg.MongoHost,
		Port: cfg.MongoPort,
	})
	if err != nil {
		zl.Fatal("connect mongo", zap.Error(err))
	}
	defer store.Close(context.Background())

	rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr()})
	defer rdb.Close()

	prov, err := newProvider(cfg, rdb)
	if err != nil {
		zl.Fatal("build cache provider", zap.Error(err))
	}
	if prov != nil {
		defer prov.Close(context.Background())
	}

	records, listings, err := newCaches(cfg, prov, log)
	if err != nil {
		zl.Fatal("build caches", zap.Error(err))
	}

	pub, err := eventredis.New(eventredis.Config{Client: rdb})
	if err != nil {
		zl.Fatal("build publisher", zap.Error(err))
	}

	queue := enrich.NewQueue()
	worker, err := enrich.NewWorker(enrich.WorkerOptions{
		Queue:     queue,
		Publisher: pub,
		Logger:    log,
		Delay:     cfg.EnrichDelay,
	})
	if err != nil {
		zl.Fatal("build worker", zap.Error(err))
	}
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Run(ctx)
	}()

	svc, err := recordsvc.NewService(recordsvc.ServiceOptions{
		Store:    store,
		Queue:    queue,
		Records:  records,
		Listings: listings,
		Logger:   log,
		CacheTTL: cfg.CacheTTL,
	})
	if err != nil {
		zl.Fatal("build service", zap.Error(err))
	}

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: httpapi.NewRouter(httpapi.Options{Service: svc, Logger: log}),
	}
	go func() {
		zl.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		zl.Warn("http shutdown", zap.Error(err))
	}
	<-workerDone
	if err := pub.Close(context.Background()); err != nil {
		zl.Warn("close publisher", zap.Error(err))
	}
}

// newProvider returns nil when caching is off.
func newProvider(cfg config.Config, rdb goredis.UniversalClient) (provider.Provider, error) {
	switch cfg.CacheProvider {
	case config.ProviderRedis:
		return providerredis.New(providerredis.Config{Client: rdb})
	case config.ProviderMemory:
		return providerbigcache.New(providerbigcache.Config{LifeWindow: cfg.CacheTTL})
	default: // config.ProviderOff
		return nil, nil
	}
}

// newCaches builds the record and listing caches over a shared provider.
// A nil provider yields nil caches; the service substitutes NopCache.
func newCaches(cfg config.Config, prov provider.Provider, log recordsvc.Logger) (recordsvc.Cache[recordsvc.Record], recordsvc.Cache[[]recordsvc.Record], error) {
	if prov == nil {
		return nil, nil, nil
	}
	recCodec, err := codec.ByName[recordsvc.Record](cfg.CacheCodec)
	if err != nil {
		return nil, nil, err
	}
	listCodec, err := codec.ByName[[]recordsvc.Record](cfg.CacheCodec)
	if err != nil {
		return nil, nil, err
	}
	records, err := recordsvc.NewCache(recordsvc.CacheOptions[recordsvc.Record]{
		Namespace:  "record",
		Provider:   prov,
		Codec:      recCodec,
		Logger:     log,
		DefaultTTL: cfg.CacheTTL,
	})
	if err != nil {
		return nil, nil, err
	}
	listings, err := recordsvc.NewCache(recordsvc.CacheOptions[[]recordsvc.Record]{
		Namespace:  "record",
		Provider:   prov,
		Codec:      listCodec,
		Logger:     log,
		DefaultTTL: cfg.CacheTTL,
	})
	if err != nil {
		return nil, nil, err
	}
	return records, listings, nil
}
