// ingest-catalog mirrors the external card catalog into the local SQLite
// database, walking expansions oldest-first and skipping online-only
// releases.
//
// Usage: ingest-catalog [-dry-run] [-page-size=N] [-max-pages=N] [-start-set=ID] [-max-sets=N]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/pokebinder/backend/internal/catalog"
	"github.com/pokebinder/backend/internal/config"
	"github.com/pokebinder/backend/internal/database"
	"github.com/pokebinder/backend/internal/ingest"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Walk the catalog and report counts without writing rows")
	pageSize := flag.Int("page-size", 250, "Catalog page size for set and card requests")
	maxPages := flag.Int("max-pages", 0, "Max card pages per expansion (0 = no cap)")
	startSet := flag.String("start-set", "", "Resume from this expansion ID")
	maxSets := flag.Int("max-sets", 0, "Max expansions to ingest (0 = no cap)")
	flag.Parse()

	if err := run(*dryRun, *pageSize, *maxPages, *startSet, *maxSets); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(dryRun bool, pageSize, maxPages int, startSet string, maxSets int) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return err
	}

	client := catalog.NewClient(catalog.Config{
		BaseURL:   cfg.CatalogBaseURL,
		APIKey:    cfg.CatalogAPIKey,
		TeamID:    cfg.CatalogTeamID,
		Timeout:   cfg.CatalogTimeout,
		RateLimit: cfg.CatalogRateLimit,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := ingest.NewRunner(client, db, logger)
	summary, runErr := runner.Run(ctx, ingest.Options{
		DryRun:   dryRun,
		PageSize: pageSize,
		MaxPages: maxPages,
		StartSet: startSet,
		MaxSets:  maxSets,
	})

	fmt.Printf("Expansions seen:     %d\n", summary.SetsSeen)
	fmt.Printf("Expansions ingested: %d\n", summary.SetsUpserted)
	fmt.Printf("Expansions skipped:  %d (online-only)\n", summary.SetsSkipped)
	fmt.Printf("Cards upserted:      %d\n", summary.CardsUpserted)
	fmt.Printf("Cards skipped:       %d\n", summary.CardsSkipped)
	fmt.Printf("Pages fetched:       %d\n", summary.PagesFetched)
	fmt.Printf("Elapsed:             %s\n", summary.Elapsed.Round(time.Millisecond))
	if !summary.Complete && runErr == nil {
		fmt.Println("Stopped at cap before the catalog was exhausted.")
	}
	if dryRun {
		fmt.Println("Dry run: no rows were written.")
	}

	return runErr
}
