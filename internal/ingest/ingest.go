// Package ingest mirrors the external card catalog into the local database.
// It walks the expansion list oldest-first, then pulls every card in each
// expansion, skipping online-only releases.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pokebinder/backend/internal/catalog"
	"github.com/pokebinder/backend/internal/metrics"
	"github.com/pokebinder/backend/internal/models"
	"github.com/pokebinder/backend/internal/search"
)

const upsertBatchSize = 100

// Options control one ingest run.
type Options struct {
	// DryRun walks the catalog and reports counts without writing rows.
	DryRun bool
	// PageSize is the catalog page size for both set and card requests.
	PageSize int
	// MaxPages caps the card pages fetched per expansion; 0 means no cap.
	MaxPages int
	// StartSet skips expansions until this set ID is seen, then ingests
	// from there. Useful for resuming an interrupted run.
	StartSet string
	// MaxSets caps how many expansions are ingested; 0 means no cap.
	MaxSets int
}

// Summary reports what one run did. Complete is false when a cap stopped the
// walk before the catalog was exhausted.
type Summary struct {
	SetsSeen      int
	SetsUpserted  int
	SetsSkipped   int
	CardsUpserted int
	CardsSkipped  int
	PagesFetched  int
	Complete      bool
	Elapsed       time.Duration
}

// Runner drives a catalog mirror run.
type Runner struct {
	catalog *catalog.Client
	db      *gorm.DB
	log     logrus.FieldLogger
}

func NewRunner(client *catalog.Client, db *gorm.DB, logger logrus.FieldLogger) *Runner {
	return &Runner{
		catalog: client,
		db:      db,
		log:     logger.WithField("component", "ingest"),
	}
}

// Run mirrors the catalog per opts. It returns a summary even on error so the
// caller can report partial progress.
func (r *Runner) Run(ctx context.Context, opts Options) (Summary, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = 250
	}

	start := time.Now()
	summary := Summary{Complete: true}

	skipping := opts.StartSet != ""
	page := 1
	for {
		setPage, err := r.catalog.SearchSets(ctx, catalog.Params{
			Page:     page,
			PageSize: opts.PageSize,
			OrderBy:  "releaseDate",
		})
		if err != nil {
			summary.Elapsed = time.Since(start)
			return summary, fmt.Errorf("failed to list expansions (page %d): %w", page, err)
		}
		summary.PagesFetched++

		for _, set := range setPage.Sets {
			if skipping {
				if set.ID != opts.StartSet {
					continue
				}
				skipping = false
			}
			summary.SetsSeen++

			if catalog.IsOnlineOnly(set.ID, set.Name) {
				summary.SetsSkipped++
				metrics.IngestRowsSkippedTotal.WithLabelValues("online_only").Inc()
				r.log.WithField("set", set.ID).Debug("skipping online-only expansion")
				continue
			}

			if err := r.ingestSet(ctx, set, opts, &summary); err != nil {
				summary.Elapsed = time.Since(start)
				return summary, err
			}

			if opts.MaxSets > 0 && summary.SetsUpserted >= opts.MaxSets {
				summary.Complete = false
				summary.Elapsed = time.Since(start)
				return summary, nil
			}
		}

		if len(setPage.Sets) < opts.PageSize {
			break
		}
		page++
	}

	if skipping {
		summary.Elapsed = time.Since(start)
		return summary, fmt.Errorf("start set %q not found in catalog", opts.StartSet)
	}

	summary.Elapsed = time.Since(start)
	return summary, nil
}

func (r *Runner) ingestSet(ctx context.Context, set catalog.Set, opts Options, summary *Summary) error {
	if !opts.DryRun {
		row := catalog.SetToRow(set)
		if err := r.upsert(&row, "expansions"); err != nil {
			return fmt.Errorf("failed to upsert expansion %s: %w", set.ID, err)
		}
	}
	summary.SetsUpserted++

	query := search.BuildSetCardsQuery(set.ID)
	page := 1
	for {
		cardPage, err := r.catalog.SearchCards(ctx, catalog.Params{
			Page:     page,
			PageSize: opts.PageSize,
			Query:    query,
			OrderBy:  "number",
		})
		if err != nil {
			return fmt.Errorf("failed to list cards for %s (page %d): %w", set.ID, page, err)
		}
		summary.PagesFetched++

		rows := make([]models.Card, 0, len(cardPage.Cards))
		for _, card := range cardPage.Cards {
			if catalog.IsOnlineOnly(card.Set.ID, card.Set.Name) {
				summary.CardsSkipped++
				metrics.IngestRowsSkippedTotal.WithLabelValues("online_only").Inc()
				continue
			}
			rows = append(rows, catalog.ToRow(card))
		}

		if !opts.DryRun && len(rows) > 0 {
			if err := r.upsertCards(rows); err != nil {
				return fmt.Errorf("failed to upsert cards for %s: %w", set.ID, err)
			}
		}
		summary.CardsUpserted += len(rows)

		if len(cardPage.Cards) < opts.PageSize {
			break
		}
		if opts.MaxPages > 0 && page >= opts.MaxPages {
			summary.Complete = false
			r.log.WithFields(logrus.Fields{"set": set.ID, "pages": page}).Warn("page cap reached before set exhausted")
			break
		}
		page++
	}

	r.log.WithFields(logrus.Fields{"set": set.ID, "name": set.Name}).Info("expansion ingested")
	return nil
}

func (r *Runner) upsert(row interface{}, table string) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(row).Error
	if err != nil {
		return err
	}
	metrics.IngestRowsUpsertedTotal.WithLabelValues(table).Inc()
	return nil
}

func (r *Runner) upsertCards(rows []models.Card) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).CreateInBatches(rows, upsertBatchSize).Error
	if err != nil {
		return err
	}
	metrics.IngestRowsUpsertedTotal.WithLabelValues("cards").Add(float64(len(rows)))
	return nil
}
