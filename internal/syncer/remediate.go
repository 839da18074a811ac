package syncer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var reInvalidLogID = regexp.MustCompile(`(?m)^ID: (\d+)$`)

// RemediateFromLog moves the streams recorded in the newest invalid-stream
// log file into quarantine.
func (s *Syncer) RemediateFromLog(ctx context.Context) error {
	path, err := s.newestInvalidLog()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var ids []int64
	for _, m := range reInvalidLogID.FindAllStringSubmatch(string(data), -1) {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		s.log.Infof("no stream ids found in %s, nothing to move", filepath.Base(path))
		return nil
	}

	s.writeMu.Lock()
	moved, err := s.store.MoveToQuarantine(ctx, ids)
	s.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("quarantine: %w", err)
	}
	s.log.Infof("remediation from %s: %d id(s) found, %d moved to quarantine",
		filepath.Base(path), len(ids), moved)
	return nil
}

// newestInvalidLog returns the most recently modified invalid-stream log
// file in LogDir.
func (s *Syncer) newestInvalidLog() (string, error) {
	entries, err := os.ReadDir(s.cfg.LogDir)
	if err != nil {
		return "", fmt.Errorf("read log dir: %w", err)
	}
	var newest string
	var newestMod time.Time
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), invalidLogPrefix) || !strings.HasSuffix(e.Name(), ".log") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = e.Name()
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		return "", fmt.Errorf("no %s*.log files in %s", invalidLogPrefix, s.cfg.LogDir)
	}
	return filepath.Join(s.cfg.LogDir, newest), nil
}
