package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"printarcade/internal/config"
	"printarcade/internal/db"
	"printarcade/internal/fulfillment"
	orderrepo "printarcade/internal/repository/order"
	settlementsvc "printarcade/internal/service/settlement"
)

// reconcile lists fulfillment drafts that never became local orders so an
// operator can confirm or delete them at the provider.
func main() {
	var timeout time.Duration
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "Overall deadline for the sweep")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.FromEnv()
	logger := log.New(os.Stderr, "[reconcile] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	printful := fulfillment.NewPrintful(fulfillment.PrintfulConfig{
		BaseURL: cfg.PrintfulAPIURL,
		Token:   cfg.PrintfulAPIToken,
		StoreID: cfg.PrintfulStoreID,
		Timeout: cfg.ProviderTimeout,
		RPS:     cfg.ProviderRPS,
	}, logger)
	svc := settlementsvc.New(nil, nil, orderrepo.NewPostgres(pool, logger), nil, printful, nil, logger)

	orphans, err := svc.FindOrphanDrafts(ctx)
	if err != nil {
		logger.Fatalf("find orphan drafts: %v", err)
	}
	for _, o := range orphans {
		fmt.Printf("%s\t%s\t%s\t%s\n", o.ID, o.ExternalID, o.Status, o.CreatedAt.Format(time.RFC3339))
	}
	logger.Printf("orphan drafts=%d", len(orphans))
}
