// Package syncer runs the Square → listmonk sync: one Run fetches every
// customer, reconciles them, and imports the subscribe and blocklist buckets
// in that order. The Scheduler repeats Run on a fixed interval, never
// letting two runs overlap.
package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/square-listmonk-sync/internal/config"
	"github.com/ignite/square-listmonk-sync/internal/domain"
	"github.com/ignite/square-listmonk-sync/internal/listmonk"
	"github.com/ignite/square-listmonk-sync/internal/pkg/logger"
	"github.com/ignite/square-listmonk-sync/internal/reconcile"
	"github.com/ignite/square-listmonk-sync/internal/square"
)

// CustomerSource supplies the full customer directory.
type CustomerSource interface {
	FetchAllCustomers(ctx context.Context) ([]square.Customer, error)
}

// Importer encodes one bucket and pushes it to listmonk. Encoding failures
// wrap listmonk.ErrEncode.
type Importer interface {
	Upload(ctx context.Context, batch listmonk.ImportBatch) error
}

// Syncer performs a single sync run. It holds no state between runs.
type Syncer struct {
	cfg      config.Config
	source   CustomerSource
	importer Importer
	now      func() time.Time
}

// New creates a Syncer. cfg is copied; later changes to the caller's value
// have no effect.
func New(cfg config.Config, source CustomerSource, importer Importer) *Syncer {
	return &Syncer{
		cfg:      cfg,
		source:   source,
		importer: importer,
		now:      time.Now,
	}
}

// Run executes one full sync. The returned report is filled in as far as
// the run got, even when an error is returned. A failure in the blocklist
// upload leaves the subscribe import applied; the next run resyncs.
func (s *Syncer) Run(ctx context.Context) (domain.RunReport, error) {
	report := domain.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: s.now().UTC(),
		Uploaded:  make(map[domain.ImportMode]int),
	}
	logger.Info("Syncing...", "run_id", report.RunID)

	err := s.run(ctx, &report)

	report.FinishedAt = s.now().UTC()
	if err != nil {
		report.Error = err.Error()
		return report, err
	}
	return report, nil
}

func (s *Syncer) run(ctx context.Context, report *domain.RunReport) error {
	customers, err := s.source.FetchAllCustomers(ctx)
	if err != nil {
		return &RunError{Stage: StageFetch, Err: err}
	}
	report.Fetched = len(customers)

	subscribers, stats := reconcile.ReconcileWithStats(customers)
	report.Unique = len(subscribers)
	logger.Info("Found unique Square customers",
		"run_id", report.RunID,
		"unique", stats.Output,
		"missing_email", stats.MissingEmail,
		"duplicates", stats.Duplicates)

	subscribed, blocked := reconcile.Split(subscribers)
	buckets := map[domain.ImportMode][]domain.Subscriber{
		domain.ModeSubscribe: subscribed,
		domain.ModeBlocklist: blocked,
	}

	for _, mode := range domain.Buckets {
		bucket := buckets[mode]
		batch := listmonk.NewImportBatch(mode, s.cfg.SubscriptionStatus(), s.cfg.ListmonkListIDs, s.cfg.ListmonkOverwrite, bucket)

		logger.Info("Uploading listmonk subscribers", "run_id", report.RunID, "mode", mode, "count", len(bucket))
		if err := s.importer.Upload(ctx, batch); err != nil {
			stage := StageUpload
			if errors.Is(err, listmonk.ErrEncode) {
				stage = StageEncode
			}
			return &RunError{Stage: stage, Bucket: string(mode), Err: err}
		}
		report.Uploaded[mode] = len(bucket)
	}
	return nil
}
