package fetcher

import (
	"context"
	"fmt"

	"github.com/kevp/kptv-sync/internal/models"
)

// TypeSelection restricts which API stream-type groups are fetched.
// The zero value means the default set: live and series. VOD is only fetched
// when explicitly requested.
type TypeSelection struct {
	Live   bool
	Series bool
	Vod    bool
}

func (t TypeSelection) want(g apiGroup) bool {
	if !t.Live && !t.Series && !t.Vod {
		return g == groupLive || g == groupSeries
	}
	switch g {
	case groupLive:
		return t.Live
	case groupSeries:
		return t.Series
	default:
		return t.Vod
	}
}

// Result is the outcome of fetching one provider's listings.
type Result struct {
	Streams map[string]models.CanonicalStream
	Skipped int
}

// FetchStreams retrieves and normalizes a provider's listings via the path
// matching its source kind. Per-group fetch failures leave the combined
// result partial rather than failing the provider outright; a playlist
// provider failing its single fetch is an error.
func (f *Fetcher) FetchStreams(ctx context.Context, prov *models.Provider, sel TypeSelection) (Result, error) {
	switch prov.Source {
	case models.SourcePlaylist:
		return f.fetchPlaylist(ctx, prov)
	default:
		return f.fetchAPI(ctx, prov, sel)
	}
}

func (f *Fetcher) fetchPlaylist(ctx context.Context, prov *models.Provider) (Result, error) {
	content, err := f.GetText(ctx, prov.Domain)
	if err != nil {
		return Result{}, fmt.Errorf("fetch playlist: %w", err)
	}
	streams, skipped := ParsePlaylist(content, prov)
	return Result{Streams: streams, Skipped: skipped}, nil
}

func (f *Fetcher) fetchAPI(ctx context.Context, prov *models.Provider, sel TypeSelection) (Result, error) {
	combined := make(map[string]models.CanonicalStream)
	skipped := 0
	var firstErr error
	for _, g := range []apiGroup{groupLive, groupSeries, groupVod} {
		if !sel.want(g) {
			continue
		}
		var records []apiRecord
		if err := f.GetJSON(ctx, g.endpoint(prov), &records); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		_, n := normalizeAPIRecords(combined, records, g, prov)
		skipped += n
	}
	if len(combined) == 0 && firstErr != nil {
		return Result{}, fmt.Errorf("fetch api: %w", firstErr)
	}
	return Result{Streams: combined, Skipped: skipped}, nil
}
