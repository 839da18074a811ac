package syncer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kevp/kptv-sync/internal/config"
	"github.com/kevp/kptv-sync/internal/models"
)

type fakeStore struct {
	mu        sync.Mutex
	providers []models.Provider
	rules     map[int64][]models.FilterRule
	active    []models.ActiveStream

	inserted  []models.StorageRow
	refreshed []int64
	merged    int
	cleaned   int
	fixed     int
	moved     [][]int64
	cleared   int
}

func (f *fakeStore) GetProviders(ctx context.Context, providerID int64) ([]models.Provider, error) {
	if providerID == 0 {
		return f.providers, nil
	}
	for _, p := range f.providers {
		if p.ID == providerID {
			return []models.Provider{p}, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetFilterRules(ctx context.Context, ownerID int64) ([]models.FilterRule, error) {
	return f.rules[ownerID], nil
}

func (f *fakeStore) InsertStagingRows(ctx context.Context, rows []models.StorageRow, batchSize int, ignoreDups bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, rows...)
	return nil
}

func (f *fakeStore) UpdateProviderRefreshed(ctx context.Context, providerID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed = append(f.refreshed, providerID)
	return nil
}

func (f *fakeStore) MergeStaging(ctx context.Context) error   { f.merged++; return nil }
func (f *fakeStore) CleanupStreams(ctx context.Context) error { f.cleaned++; return nil }
func (f *fakeStore) FixupStreams(ctx context.Context) error   { f.fixed++; return nil }

func (f *fakeStore) GetActiveStreams(ctx context.Context) ([]models.ActiveStream, error) {
	return f.active, nil
}

func (f *fakeStore) MoveToQuarantine(ctx context.Context, ids []int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moved = append(f.moved, ids)
	return int64(len(ids)), nil
}

func (f *fakeStore) ClearCache(ctx context.Context) error { f.cleared++; return nil }

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		DatabaseURL:  "postgres://unused",
		LogDir:       t.TempDir(),
		UserAgent:    "test-agent",
		Timeout:      5 * time.Second,
		ProbeTimeout: time.Second,
	}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestWorkerCount(t *testing.T) {
	if got := workerCount(0); got < 4 || got > 8 {
		t.Errorf("workerCount(0) = %d; want within [4,8]", got)
	}
	if got := workerCount(1); got != 1 {
		t.Errorf("workerCount(1) = %d; want 1", got)
	}
	if got := workerCount(-3); got != 1 {
		t.Errorf("workerCount(-3) = %d; want clamped to 1", got)
	}
	if got := workerCount(50); got != 16 {
		t.Errorf("workerCount(50) = %d; want clamped to 16", got)
	}
	if got := workerCount(12); got != 12 {
		t.Errorf("workerCount(12) = %d; want 12", got)
	}
}

func TestCollect_deadlineAbandonsSlowTasks(t *testing.T) {
	// Slow tasks are left running past the deadline; collect only stops
	// waiting for them.
	tasks := []time.Duration{time.Millisecond, time.Millisecond, time.Minute}
	results := runTasks(tasks, 3, func(d time.Duration) int {
		time.Sleep(d)
		return 1
	})
	out, abandoned := collect(results, len(tasks), 200*time.Millisecond)
	if len(out) != 2 || abandoned != 1 {
		t.Errorf("got %d results, %d abandoned; want 2, 1", len(out), abandoned)
	}
}

func TestCollect_allComplete(t *testing.T) {
	results := runTasks([]int{1, 2, 3}, 2, func(n int) int { return n * 2 })
	out, abandoned := collect(results, 3, time.Second)
	if len(out) != 3 || abandoned != 0 {
		t.Errorf("got %d results, %d abandoned; want 3, 0", len(out), abandoned)
	}
}

func TestSync_endToEndPlaylistProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`#EXTM3U
#EXTINF:-1 group-title="News",News
http://x/news.ts
#EXTINF:-1 group-title="News",Newsflash
http://x/newsflash.ts
#EXTINF:-1 group-title="Docs",Documentary
http://x/docs.ts
`))
	}))
	defer srv.Close()

	st := &fakeStore{
		providers: []models.Provider{{
			ID:      1,
			OwnerID: 10,
			Name:    "P1",
			Source:  models.SourcePlaylist,
			Domain:  srv.URL,
		}},
		rules: map[int64][]models.FilterRule{10: {
			{Kind: models.IncludeNameRegex, Pattern: "^News$", Active: true},
			{Kind: models.ExcludeNameContains, Pattern: "news", Active: true},
		}},
	}
	s := New(testConfig(t), st, quietLogger())
	if err := s.Sync(context.Background(), Options{}); err != nil {
		t.Fatal(err)
	}

	// Include wins for "News", "Newsflash" excluded, "Documentary" untouched.
	if len(st.inserted) != 2 {
		t.Fatalf("inserted = %+v; want News and Documentary", st.inserted)
	}
	names := map[string]bool{}
	for _, r := range st.inserted {
		names[r.OrigName] = true
		if r.OwnerID != 10 || r.ProviderID != 1 {
			t.Errorf("row = %+v; want owner 10 provider 1", r)
		}
	}
	if !names["News"] || !names["Documentary"] {
		t.Errorf("names = %v", names)
	}
	if len(st.refreshed) != 1 || st.refreshed[0] != 1 {
		t.Errorf("refreshed = %v; want [1]", st.refreshed)
	}
	if st.merged != 1 || st.cleaned != 1 || st.fixed != 1 {
		t.Errorf("finalize counts = %d/%d/%d; want 1/1/1", st.merged, st.cleaned, st.fixed)
	}
	if st.cleared != 1 {
		t.Errorf("cache cleared %d times; want 1", st.cleared)
	}
}

func TestSync_noProviders(t *testing.T) {
	s := New(testConfig(t), &fakeStore{}, quietLogger())
	if err := s.Sync(context.Background(), Options{}); err == nil {
		t.Error("expected fail-fast error with no providers")
	}
}

func TestSync_providerWithoutFiltersIsSoftFailure(t *testing.T) {
	st := &fakeStore{
		providers: []models.Provider{{ID: 1, OwnerID: 10, Name: "P1", Source: models.SourcePlaylist, Domain: "http://unused"}},
		rules:     map[int64][]models.FilterRule{},
	}
	s := New(testConfig(t), st, quietLogger())
	err := s.Sync(context.Background(), Options{})
	if err == nil {
		t.Error("run with a failed provider should report an error")
	}
	if len(st.inserted) != 0 {
		t.Errorf("inserted = %+v; want nothing", st.inserted)
	}
	// Finalization still runs: other providers may have staged rows.
	if st.merged != 1 {
		t.Errorf("merged = %d; want 1", st.merged)
	}
}

func TestSync_oneFailureDoesNotBlockOthers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("#EXTINF:-1,Kept\nhttp://x/kept.ts\n"))
	}))
	defer srv.Close()

	st := &fakeStore{
		providers: []models.Provider{
			{ID: 1, OwnerID: 10, Name: "Good", Source: models.SourcePlaylist, Domain: srv.URL},
			{ID: 2, OwnerID: 11, Name: "Bad", Source: models.SourcePlaylist, Domain: srv.URL},
		},
		rules: map[int64][]models.FilterRule{
			10: {{Kind: models.ExcludeNameContains, Pattern: "zzz", Active: true}},
			// Owner 11 has no rules: soft failure.
		},
	}
	s := New(testConfig(t), st, quietLogger())
	err := s.Sync(context.Background(), Options{})
	if err == nil {
		t.Error("expected run-level error")
	}
	if len(st.inserted) != 1 || st.inserted[0].OrigName != "Kept" {
		t.Errorf("inserted = %+v; want the good provider's stream", st.inserted)
	}
}

func TestSync_scopedToOneProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("#EXTINF:-1,Solo\nhttp://x/solo.ts\n"))
	}))
	defer srv.Close()

	st := &fakeStore{
		providers: []models.Provider{
			{ID: 1, OwnerID: 10, Name: "P1", Source: models.SourcePlaylist, Domain: srv.URL},
			{ID: 2, OwnerID: 10, Name: "P2", Source: models.SourcePlaylist, Domain: "http://never-called"},
		},
		rules: map[int64][]models.FilterRule{
			10: {{Kind: models.ExcludeNameContains, Pattern: "zzz", Active: true}},
		},
	}
	s := New(testConfig(t), st, quietLogger())
	if err := s.Sync(context.Background(), Options{ProviderID: 1}); err != nil {
		t.Fatal(err)
	}
	if len(st.refreshed) != 1 || st.refreshed[0] != 1 {
		t.Errorf("refreshed = %v; want only provider 1", st.refreshed)
	}
}
