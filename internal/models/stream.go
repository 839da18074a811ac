package models

// CanonicalStream is the normalized in-memory form of one provider-supplied
// channel or title, keyed by its source-local id until storage conversion.
type CanonicalStream struct {
	ID         string
	Name       string
	URL        string
	CategoryID string
	EPGID      string
	Icon       string
	Adult      bool
	Kind       StreamKind
	Group      string
}

// StorageRow is the shape persisted to the staging table.
type StorageRow struct {
	OwnerID    int64
	ProviderID int64
	OrigName   string
	StreamURI  string
	TypeID     StreamKind
	TVGID      string
	TVGLogo    string
	Extras     string // reserved, always empty
	Group      string
}

// ToStorageRow converts a canonical stream to its staging row for prov.
func (s CanonicalStream) ToStorageRow(prov *Provider) StorageRow {
	return StorageRow{
		OwnerID:    prov.OwnerID,
		ProviderID: prov.ID,
		OrigName:   s.Name,
		StreamURI:  s.URL,
		TypeID:     s.Kind,
		TVGID:      s.EPGID,
		TVGLogo:    s.Icon,
		Extras:     "",
		Group:      s.Group,
	}
}

// ActiveStream is one active live/series stream joined with its provider's
// connection-limit metadata, as loaded for validity testing.
type ActiveStream struct {
	ID           int64
	Name         string
	URL          string
	TypeID       StreamKind
	ProviderID   int64
	ProviderName string
	ConnLimit    int
}
