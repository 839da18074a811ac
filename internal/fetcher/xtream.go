package fetcher

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/kevp/kptv-sync/internal/models"
)

// Xtream player_api endpoint and playback URL templates.
const (
	apiLiveTmpl   = "%s/player_api.php?username=%s&password=%s&action=get_live_streams"
	apiSeriesTmpl = "%s/player_api.php?username=%s&password=%s&action=get_series"
	apiVodTmpl    = "%s/player_api.php?username=%s&password=%s&action=get_vod_streams"

	streamLiveTmpl   = "%s/live/%s/%s/%s.%s"
	streamSeriesTmpl = "%s/series/%s/%s/%s.%s"
	streamVodTmpl    = "%s/movie/%s/%s/%s.%s"
)

var (
	reSeriesName = regexp.MustCompile(`(?i)24/7|247|series|shows?`)
	reVodName    = regexp.MustCompile(`(?i)movie|vod`)
)

// apiGroup is one of the player_api stream-type groups.
type apiGroup int

const (
	groupLive apiGroup = iota
	groupSeries
	groupVod
)

func (g apiGroup) endpoint(prov *models.Provider) string {
	tmpl := apiLiveTmpl
	switch g {
	case groupSeries:
		tmpl = apiSeriesTmpl
	case groupVod:
		tmpl = apiVodTmpl
	}
	return fmt.Sprintf(tmpl, strings.TrimSuffix(prov.Domain, "/"),
		url.QueryEscape(prov.Username), url.QueryEscape(prov.Password))
}

// apiRecord is one entry of a player_api JSON array. Xtream panels are sloppy
// about types (ids arrive as numbers or strings), so loose fields are decoded
// as interface{} and coerced.
type apiRecord struct {
	StreamID           any    `json:"stream_id"`
	SeriesID           any    `json:"series_id"`
	Name               string `json:"name"`
	CategoryID         any    `json:"category_id"`
	EPGChannelID       any    `json:"epg_channel_id"`
	StreamIcon         string `json:"stream_icon"`
	Cover              string `json:"cover"`
	TMDB               any    `json:"tmdb"`
	IsAdult            any    `json:"is_adult"`
	ContainerExtension string `json:"container_extension"`
	StreamURL          string `json:"stream_url"`
}

// id returns the record's stream or series id as a string, or "" when absent.
func (r *apiRecord) id() string {
	if s := coerceString(r.StreamID); s != "" {
		return s
	}
	return coerceString(r.SeriesID)
}

// normalizeAPIRecords maps one group's records into dst. Records missing
// required fields are counted as skipped and never abort the batch. A later
// record with an id already in dst overwrites it (last write wins).
func normalizeAPIRecords(dst map[string]models.CanonicalStream, records []apiRecord, group apiGroup, prov *models.Provider) (processed, skipped int) {
	for i := range records {
		s, ok := normalizeAPIRecord(&records[i], group, prov)
		if !ok {
			skipped++
			continue
		}
		dst[s.ID] = s
		processed++
	}
	return processed, skipped
}

func normalizeAPIRecord(rec *apiRecord, group apiGroup, prov *models.Provider) (models.CanonicalStream, bool) {
	id := rec.id()
	if id == "" || rec.Name == "" {
		return models.CanonicalStream{}, false
	}
	category := coerceString(rec.CategoryID)

	var s models.CanonicalStream
	switch group {
	case groupLive:
		if rec.CategoryID == nil || rec.EPGChannelID == nil {
			return models.CanonicalStream{}, false
		}
		// Provider hint, overridden when the name looks like a series or a
		// movie catalog masquerading as a live channel.
		kind := prov.StreamHint
		lower := strings.ToLower(rec.Name)
		if reSeriesName.MatchString(lower) {
			kind = models.KindSeries
		} else if reVodName.MatchString(lower) {
			kind = models.KindVod
		}
		s = models.CanonicalStream{
			CategoryID: category,
			EPGID:      coerceString(rec.EPGChannelID),
			Adult:      coerceBool(rec.IsAdult),
			Kind:       kind,
			Icon:       defaultString(rec.StreamIcon, prov.Icon()),
		}
	case groupSeries:
		s = models.CanonicalStream{
			CategoryID: category,
			EPGID:      defaultString(coerceString(rec.TMDB), rec.Name),
			Adult:      false,
			Kind:       models.KindSeries,
			Icon:       defaultString(rec.Cover, prov.Icon()),
		}
	case groupVod:
		if rec.IsAdult == nil {
			return models.CanonicalStream{}, false
		}
		s = models.CanonicalStream{
			CategoryID: category,
			EPGID:      defaultString(coerceString(rec.TMDB), rec.Name),
			Adult:      coerceBool(rec.IsAdult),
			Kind:       models.KindVod,
			Icon:       defaultString(rec.StreamIcon, prov.Icon()),
		}
	}

	s.ID = id
	s.Name = rec.Name
	s.Group = s.Kind.GroupLabel()
	s.URL = playableURL(rec, s.Kind, id, prov)
	return s, true
}

// playableURL builds the final stream URL. Playlist-sourced providers carry a
// ready URL on the record; API providers get one built from the template that
// matches the final stream kind.
func playableURL(rec *apiRecord, kind models.StreamKind, id string, prov *models.Provider) string {
	if prov.Source == models.SourcePlaylist {
		return rec.StreamURL
	}
	ext := "ts"
	if prov.StreamHint != models.KindLive {
		ext = "m3u8"
	}
	tmpl := streamLiveTmpl
	switch kind {
	case models.KindSeries:
		tmpl = streamSeriesTmpl
	case models.KindVod:
		tmpl = streamVodTmpl
		if rec.ContainerExtension != "" {
			ext = rec.ContainerExtension
		}
	}
	return fmt.Sprintf(tmpl, strings.TrimSuffix(prov.Domain, "/"),
		url.PathEscape(prov.Username), url.PathEscape(prov.Password),
		url.PathEscape(id), ext)
}

func coerceString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatInt(int64(x), 10)
	}
	return ""
}

func coerceBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x == "1" || strings.EqualFold(x, "true")
	}
	return false
}

func defaultString(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
