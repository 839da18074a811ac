package syncer

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kevp/kptv-sync/internal/config"
	"github.com/kevp/kptv-sync/internal/fetcher"
	"github.com/kevp/kptv-sync/internal/filter"
	"github.com/kevp/kptv-sync/internal/models"
	"github.com/kevp/kptv-sync/internal/store"
)

const (
	syncDeadline = time.Hour

	minSyncWorkers    = 4
	maxSyncWorkers    = 8
	maxWorkerOverride = 16
)

// Syncer orchestrates provider ingestion, stream validity testing, and
// quarantine remediation. lookupMu serializes provider/filter lookups;
// writeMu serializes every repository write. Neither lock is held during
// network I/O, so providers fetch in parallel.
type Syncer struct {
	cfg     *config.Config
	store   store.Store
	log     *logrus.Logger
	workers int

	lookupMu sync.Mutex
	writeMu  sync.Mutex
}

// New creates a Syncer. A nil logger falls back to the logrus standard logger.
func New(cfg *config.Config, st store.Store, log *logrus.Logger) *Syncer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Syncer{
		cfg:     cfg,
		store:   st,
		log:     log,
		workers: workerCount(cfg.Workers),
	}
}

// workerCount sizes the ingestion pool: 2x the core count bounded to [4,8],
// or an explicit override bounded to [1,16].
func workerCount(override int) int {
	if override != 0 {
		return clamp(override, 1, maxWorkerOverride)
	}
	return clamp(2*runtime.NumCPU(), minSyncWorkers, maxSyncWorkers)
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// Options scope a sync run.
type Options struct {
	// ProviderID restricts the run to one provider; 0 syncs all.
	ProviderID int64
	// Only restricts which API stream-type groups are fetched.
	Only fetcher.TypeSelection
}

// Sync runs the full ingestion pipeline: one task per provider fans out to
// the worker pool, then the staged rows are merged, cleaned up, and fixed up
// serially. Individual provider failures never cancel sibling tasks;
// the run reports them in the summary and returns a non-nil error.
func (s *Syncer) Sync(ctx context.Context, opts Options) error {
	start := time.Now()
	s.clearCache(ctx)

	providers, err := s.store.GetProviders(ctx, opts.ProviderID)
	if err != nil {
		return fmt.Errorf("load providers: %w", err)
	}
	if len(providers) == 0 {
		return errors.New("no providers to sync")
	}
	s.log.Infof("syncing %d provider(s) with %d workers", len(providers), s.workers)

	results := runTasks(providers, s.workers, func(p models.Provider) models.SyncOutcome {
		return s.syncProvider(ctx, p, opts.Only)
	})
	outcomes, abandoned := collect(results, len(providers), syncDeadline)
	if abandoned > 0 {
		s.log.Warnf("sync deadline reached, %d provider task(s) abandoned", abandoned)
	}

	runErr := abandoned > 0
	s.writeMu.Lock()
	for _, step := range []struct {
		name string
		fn   func(context.Context) error
	}{
		{"merge", s.store.MergeStaging},
		{"cleanup", s.store.CleanupStreams},
		{"fixup", s.store.FixupStreams},
	} {
		if err := step.fn(ctx); err != nil {
			s.log.Errorf("finalize %s: %v", step.name, err)
			runErr = true
		}
	}
	s.writeMu.Unlock()

	if s.summarize(outcomes, abandoned, time.Since(start)) {
		runErr = true
	}
	if runErr {
		return errors.New("sync completed with errors")
	}
	return nil
}

// syncProvider is one pool task: filters, fetch+normalize+filter, convert,
// insert. Any failure or panic becomes a zero-count outcome with a reason.
func (s *Syncer) syncProvider(ctx context.Context, prov models.Provider, only fetcher.TypeSelection) (out models.SyncOutcome) {
	out.Provider = prov.Name
	defer func() {
		if r := recover(); r != nil {
			out = models.SyncOutcome{Provider: prov.Name, Err: fmt.Sprintf("panic: %v", r)}
		}
	}()

	s.lookupMu.Lock()
	rules, err := s.store.GetFilterRules(ctx, prov.OwnerID)
	s.lookupMu.Unlock()
	if err != nil {
		return models.SyncOutcome{Provider: prov.Name, Err: fmt.Sprintf("load filters: %v", err)}
	}
	if len(rules) == 0 {
		// Soft failure: syncing an unfiltered provider would flood the
		// staging table with the provider's entire catalogue.
		return models.SyncOutcome{Provider: prov.Name, Err: "no filters configured"}
	}

	// Each task owns its fetcher so the minimum request interval throttles
	// per provider, not across the pool.
	f := fetcher.New(s.cfg.UserAgent, s.cfg.Timeout, fetcher.DefaultMinInterval)
	res, err := f.FetchStreams(ctx, &prov, only)
	if err != nil {
		return models.SyncOutcome{Provider: prov.Name, Err: err.Error()}
	}
	if res.Skipped > 0 {
		s.log.Debugf("%s: skipped %d malformed record(s)", prov.Name, res.Skipped)
	}

	kept := filter.Filter(res.Streams, rules)
	rows := make([]models.StorageRow, 0, len(kept))
	for _, cs := range kept {
		rows = append(rows, cs.ToStorageRow(&prov))
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.store.InsertStagingRows(ctx, rows, store.DefaultInsertBatch, true); err != nil {
		return models.SyncOutcome{Provider: prov.Name, Err: fmt.Sprintf("insert: %v", err)}
	}
	if err := s.store.UpdateProviderRefreshed(ctx, prov.ID); err != nil {
		return models.SyncOutcome{Provider: prov.Name, Err: fmt.Sprintf("refresh timestamp: %v", err)}
	}

	out.Fetched = len(res.Streams)
	out.Converted = len(rows)
	return out
}

// summarize logs the run outcome and reports whether any task failed.
func (s *Syncer) summarize(outcomes []models.SyncOutcome, abandoned int, elapsed time.Duration) bool {
	var succeeded, failed, fetched, converted int
	for _, o := range outcomes {
		if o.Failed() {
			continue
		}
		succeeded++
		fetched += o.Fetched
		converted += o.Converted
		s.log.Infof("  %s: %d fetched, %d converted", o.Provider, o.Fetched, o.Converted)
	}
	for _, o := range outcomes {
		if o.Failed() {
			failed++
			s.log.Errorf("  %s (%s)", o.Provider, o.Err)
		}
	}
	s.log.Infof("sync finished in %s: %d succeeded, %d failed, %d abandoned, %d fetched, %d converted",
		elapsed.Round(time.Second), succeeded, failed, abandoned, fetched, converted)
	if failed > 0 || abandoned > 0 {
		s.log.Warn("sync completed WITH ERRORS")
		return failed > 0
	}
	s.log.Info("sync completed SUCCESSFULLY")
	return false
}

// Fixup runs the standalone guide-id/logo repair operation.
func (s *Syncer) Fixup(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.store.FixupStreams(ctx); err != nil {
		return fmt.Errorf("fixup: %w", err)
	}
	s.log.Info("fixup completed")
	return nil
}

func (s *Syncer) clearCache(ctx context.Context) {
	if err := s.store.ClearCache(ctx); err != nil {
		s.log.Warnf("cache clear: %v", err)
	}
}
