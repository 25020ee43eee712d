package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"printarcade/internal/config"
	"printarcade/internal/db"
	"printarcade/internal/domain"
	"printarcade/internal/fulfillment"
	"printarcade/internal/httpserver"
	"printarcade/internal/kvstore"
	"printarcade/internal/migrate"
	"printarcade/internal/notify"
	"printarcade/internal/payment"
	gamerepo "printarcade/internal/repository/game"
	orderrepo "printarcade/internal/repository/order"
	webhookeventrepo "printarcade/internal/repository/webhookevent"
	catalogsvc "printarcade/internal/service/catalog"
	checkoutsvc "printarcade/internal/service/checkout"
	discountsvc "printarcade/internal/service/discount"
	fulfillmentsyncsvc "printarcade/internal/service/fulfillmentsync"
	ratelimitsvc "printarcade/internal/service/ratelimit"
	sessioncartsvc "printarcade/internal/service/sessioncart"
	settlementsvc "printarcade/internal/service/settlement"
)

const purgeInterval = 5 * time.Minute

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	if err := migrate.Apply(ctx, dbpool); err != nil {
		logger.Fatalf("apply migrations: %v", err)
	}

	store, closeStore, err := openStore(ctx, cfg, dbpool, logger)
	if err != nil {
		logger.Fatalf("open kv store: %v", err)
	}
	defer closeStore()

	gateway := payment.NewStripe(payment.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		SuccessURL:    cfg.CheckoutSuccessURL,
		CancelURL:     cfg.CheckoutCancelURL,
		Timeout:       cfg.ProviderTimeout,
	}, logger)
	printful := fulfillment.NewPrintful(fulfillment.PrintfulConfig{
		BaseURL: cfg.PrintfulAPIURL,
		Token:   cfg.PrintfulAPIToken,
		StoreID: cfg.PrintfulStoreID,
		Timeout: cfg.ProviderTimeout,
		RPS:     cfg.ProviderRPS,
	}, logger)

	var notifier notify.Sender = notify.NewLogSender(logger)
	if cfg.AMQPURL != "" {
		amqpSender, err := notify.DialAMQP(cfg.AMQPURL, cfg.NotifyExchange, logger)
		if err != nil {
			logger.Printf("amqp unavailable, logging notifications instead: %v", err)
		} else {
			defer amqpSender.Close()
			notifier = amqpSender
		}
	}

	orderRepo := orderrepo.NewPostgres(dbpool, logger)
	gameRepo := gamerepo.NewPostgres(dbpool, logger)
	eventRepo := webhookeventrepo.NewPostgres(dbpool, logger)

	catalogService := catalogsvc.New(printful, store, catalogsvc.DefaultTTL, logger)
	checkoutService := checkoutsvc.New(store, gateway, printful, orderRepo, checkoutsvc.Config{
		FlatShippingCents: cfg.ShippingFlatCents,
		SnapshotTTL:       cfg.SnapshotTTL,
	}, logger)
	settlementService := settlementsvc.New(gateway, eventRepo, orderRepo, store, printful, notifier, logger)
	fulfillmentSync := fulfillmentsyncsvc.New(orderRepo, catalogService, notifier, cfg.FulfillmentWebhookSecret, logger)
	limiter := ratelimitsvc.New(store, ratelimitsvc.Limit{Requests: cfg.RateLimitPerMinute, Window: time.Minute}, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Discount:        discountsvc.New(gameRepo, logger),
		SessionCart:     sessioncartsvc.New(store, cfg.CartTTL, logger),
		RateLimiter:     limiter,
		Checkout:        checkoutService,
		Settlement:      settlementService,
		FulfillmentSync: fulfillmentSync,
		Catalog:         catalogService,
		CORSOrigins:     cfg.CORSOrigins,
		ReadyChecks:     map[string]httpserver.ReadyCheck{"kv": kvReady(store)},
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}

// openStore selects the ephemeral key-value backend. The postgres backend
// gets a background purge of expired rows until ctx is cancelled.
func openStore(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, logger *log.Logger) (kvstore.Store, func(), error) {
	switch cfg.KVBackend {
	case "memory":
		logger.Printf("kv store: memory (single instance only)")
		return kvstore.NewMemory(), func() {}, nil
	case "redis":
		r, err := kvstore.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Printf("kv store: redis")
		return r, func() { _ = r.Close() }, nil
	case "postgres", "":
		pg := kvstore.NewPostgres(pool, logger)
		go purgeLoop(ctx, pg, logger)
		logger.Printf("kv store: postgres")
		return pg, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown KV_BACKEND %q", cfg.KVBackend)
	}
}

// kvReady checks the store with a read; a missing key still proves the
// backend answered.
func kvReady(store kvstore.Store) httpserver.ReadyCheck {
	return func(ctx context.Context) error {
		_, err := store.Get(ctx, "health:ready")
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
}

func purgeLoop(ctx context.Context, pg *kvstore.Postgres, logger *log.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := pg.Purge(ctx)
			if err != nil {
				logger.Printf("kv store: purge error=%v", err)
				continue
			}
			if n > 0 {
				logger.Printf("kv store: purged %d expired entries", n)
			}
		}
	}
}
