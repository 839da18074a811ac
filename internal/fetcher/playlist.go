package fetcher

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kevp/kptv-sync/internal/models"
)

var (
	reExtinf   = regexp.MustCompile(`^#EXTINF:-1\s*(.*?),(.*)$`)
	reGroup    = regexp.MustCompile(`group-title="([^"]*)"`)
	reTvgID    = regexp.MustCompile(`tvg-id="([^"]*)"`)
	reTvgLogo  = regexp.MustCompile(`tvg-logo="([^"]*)"`)
	reAdult    = regexp.MustCompile(`adult="([^"]*)"`)
	reNonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

const extinfMarker = "#EXTINF:"

// ParsePlaylist scans M3U playlist text into canonical streams keyed by a
// derived id. An #EXTINF header may continue across following plain lines
// until its URL line; headers that never reach a URL line are counted as
// skipped. Id collisions get a numeric suffix instead of overwriting.
func ParsePlaylist(content string, prov *models.Provider) (map[string]models.CanonicalStream, int) {
	streams := make(map[string]models.CanonicalStream)
	skipped := 0
	var header string
	open := false

	commit := func(url string) {
		if s, ok := buildPlaylistEntry(header, url, prov); ok {
			id := uniqueStreamID(streams, s.ID)
			s.ID = id
			streams[id] = s
		} else {
			skipped++
		}
	}

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, extinfMarker):
			// A new entry marker while one is open means the previous
			// entry never got its URL line.
			if open {
				skipped++
			}
			header = line
			open = true
		case strings.HasPrefix(line, "#"):
			// Any other comment aborts an open entry.
			if open {
				skipped++
				open = false
			}
		case strings.HasPrefix(line, "http"):
			if open {
				commit(line)
				open = false
			}
		default:
			// Attribute/name payload continued onto the next line.
			if open {
				header += " " + line
			}
		}
	}
	if open {
		skipped++
	}
	return streams, skipped
}

// buildPlaylistEntry parses one assembled #EXTINF header plus its URL line.
func buildPlaylistEntry(header, url string, prov *models.Provider) (models.CanonicalStream, bool) {
	m := reExtinf.FindStringSubmatch(header)
	if m == nil {
		return models.CanonicalStream{}, false
	}
	attrs, name := m[1], strings.TrimSpace(m[2])
	if name == "" {
		return models.CanonicalStream{}, false
	}

	epgID := name
	if am := reTvgID.FindStringSubmatch(attrs); am != nil && am[1] != "" {
		epgID = am[1]
	}
	category := "Uncategorized"
	if am := reGroup.FindStringSubmatch(attrs); am != nil && am[1] != "" {
		category = am[1]
	}
	icon := prov.Icon()
	if am := reTvgLogo.FindStringSubmatch(attrs); am != nil && am[1] != "" {
		icon = am[1]
	}
	adult := false
	if am := reAdult.FindStringSubmatch(attrs); am != nil {
		adult = strings.EqualFold(am[1], "true")
	}

	kind := kindFromName(name, prov.StreamHint)
	// URL path evidence beats name-based inference.
	if k, ok := kindFromURL(url); ok {
		kind = k
	}

	return models.CanonicalStream{
		ID:         strings.ToLower(reNonAlnum.ReplaceAllString(name, "")),
		Name:       name,
		URL:        url,
		CategoryID: category,
		EPGID:      epgID,
		Icon:       icon,
		Adult:      adult,
		Kind:       kind,
		Group:      kind.GroupLabel(),
	}, true
}

// kindFromName infers the stream kind from keywords in the display name,
// falling back to the provider's hint.
func kindFromName(name string, hint models.StreamKind) models.StreamKind {
	lower := strings.ToLower(name)
	switch {
	case containsAny(lower, "24/7", "series", "shows", "show"):
		return models.KindSeries
	case containsAny(lower, "movie", "movies", "vod"):
		return models.KindVod
	}
	return hint
}

// kindFromURL infers the stream kind from path segments of the playable URL.
func kindFromURL(url string) (models.StreamKind, bool) {
	switch {
	case containsAny(url, "/series/", "/shows/", "/show/"):
		return models.KindSeries, true
	case containsAny(url, "/movie/", "/movies/", "/vod/"):
		return models.KindVod, true
	}
	return 0, false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// uniqueStreamID disambiguates id collisions within one parse with a numeric
// suffix so no entry is silently dropped.
func uniqueStreamID(streams map[string]models.CanonicalStream, id string) string {
	if _, exists := streams[id]; !exists {
		return id
	}
	for n := 1; ; n++ {
		candidate := id + "_" + strconv.Itoa(n)
		if _, exists := streams[candidate]; !exists {
			return candidate
		}
	}
}
