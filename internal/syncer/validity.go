package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kevp/kptv-sync/internal/models"
	"github.com/kevp/kptv-sync/internal/probe"
)

const (
	validityDeadline = 2 * time.Hour
	validityWorkers  = 4
	progressEvery    = 100

	invalidLogPrefix = "invalid_streams_"
	invalidLogRule   = "----------------------------------------"
)

// TestActiveStreams probes every active live/series stream with a fixed
// 4-worker pool and writes the invalid ones to a timestamped log file in
// LogDir. That file is the input to RemediateFromLog.
func (s *Syncer) TestActiveStreams(ctx context.Context) error {
	start := time.Now()
	s.clearCache(ctx)

	streams, err := s.store.GetActiveStreams(ctx)
	if err != nil {
		return fmt.Errorf("load active streams: %w", err)
	}
	if len(streams) == 0 {
		return errors.New("no active streams to test")
	}
	s.log.Infof("testing %d active stream(s) with %d workers", len(streams), validityWorkers)

	tester := probe.NewTester(s.cfg.ProbeTimeout, s.cfg.UserAgent)
	results := runTasks(streams, validityWorkers, func(as models.ActiveStream) models.ValidityOutcome {
		res := tester.Test(ctx, as.URL)
		if len(res.Detected) > 0 || res.Codec != "" {
			s.log.Debugf("%s: detected=%s codec=%s", as.Name, strings.Join(res.Detected, ","), res.Codec)
		}
		return models.ValidityOutcome{StreamID: as.ID, Valid: res.Valid, Reason: res.Reason}
	})

	byID := make(map[int64]models.ActiveStream, len(streams))
	for _, as := range streams {
		byID[as.ID] = as
	}

	timer := time.NewTimer(validityDeadline)
	defer timer.Stop()
	var done, valid int
	var invalid []models.ValidityOutcome
collect:
	for done < len(streams) {
		select {
		case r := <-results:
			done++
			if r.Valid {
				valid++
			} else {
				invalid = append(invalid, r)
			}
			if done%progressEvery == 0 {
				s.log.Infof("tested %d/%d streams", done, len(streams))
			}
		case <-timer.C:
			s.log.Warnf("validity deadline reached, %d probe(s) abandoned", len(streams)-done)
			break collect
		}
	}

	if len(invalid) > 0 {
		path, err := s.writeInvalidLog(invalid, byID)
		if err != nil {
			return err
		}
		s.log.Infof("wrote %d invalid stream(s) to %s", len(invalid), path)
	}
	s.log.Infof("validity test finished in %s: %d tested, %d valid, %d invalid, %d abandoned",
		time.Since(start).Round(time.Second), done, valid, len(invalid), len(streams)-done)
	return nil
}

// writeInvalidLog records each invalid stream as an ID/Name/URL/Provider/Error
// block separated by a dashed rule.
func (s *Syncer) writeInvalidLog(invalid []models.ValidityOutcome, byID map[int64]models.ActiveStream) (string, error) {
	name := invalidLogPrefix + time.Now().Format("20060102_150405") + ".log"
	path := filepath.Join(s.cfg.LogDir, name)

	var b strings.Builder
	for _, r := range invalid {
		as := byID[r.StreamID]
		fmt.Fprintf(&b, "ID: %d\nName: %s\nURL: %s\nProvider: %s\nError: %s\n%s\n",
			as.ID, as.Name, as.URL, as.ProviderName, r.Reason, invalidLogRule)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write invalid log: %w", err)
	}
	return path, nil
}
