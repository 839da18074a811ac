package models

import "time"

// DefaultIcon is used when neither the entry nor the provider carries a logo.
const DefaultIcon = "https://cdn.kevp.us/tv/kptv-icon.svg"

// Provider is one external stream source, either API-based or playlist-based.
type Provider struct {
	ID            int64      `json:"id"`
	OwnerID       int64      `json:"u_id"`
	Name          string     `json:"sp_name"`
	Source        SourceKind `json:"sp_type"`
	Domain        string     `json:"sp_domain"`
	Username      string     `json:"sp_username"`
	Password      string     `json:"sp_password"`
	StreamHint    StreamKind `json:"sp_stream_type"`
	ConnLimit     int        `json:"sp_cnx_limit"`
	RefreshPeriod int        `json:"sp_refresh_period"`
	LastSynced    *time.Time `json:"sp_last_synced,omitempty"`
	DefaultIcon   string     `json:"sp_default_icon,omitempty"`
}

// Icon returns the provider's fallback logo URL.
func (p *Provider) Icon() string {
	if p.DefaultIcon != "" {
		return p.DefaultIcon
	}
	return DefaultIcon
}

// FilterRule is an owner-scoped include/exclude pattern applied before storage.
type FilterRule struct {
	ID      int64    `json:"id"`
	OwnerID int64    `json:"u_id"`
	Kind    RuleKind `json:"sf_type_id"`
	Pattern string   `json:"sf_filter"`
	Active  bool     `json:"sf_active"`
}
