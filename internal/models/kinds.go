package models

// SourceKind tells which fetch path a provider uses.
type SourceKind int16

const (
	SourceAPI      SourceKind = 0 // Xtream-style JSON API
	SourcePlaylist SourceKind = 1 // M3U playlist text
)

// StreamKind is the stream type id persisted with each stream.
// The values match the type ids used by the stream manager schema.
type StreamKind int16

const (
	KindLive   StreamKind = 0
	KindVod    StreamKind = 3
	KindSeries StreamKind = 5
)

// GroupLabel returns the stream group label stored alongside the type id.
func (k StreamKind) GroupLabel() string {
	switch k {
	case KindSeries:
		return "series"
	case KindVod:
		return "vod"
	default:
		return "live"
	}
}

// RuleKind is the filter rule type id.
type RuleKind int16

const (
	IncludeNameRegex    RuleKind = 0
	ExcludeNameContains RuleKind = 1
	ExcludeNameRegex    RuleKind = 2
	ExcludeURLRegex     RuleKind = 3
)
