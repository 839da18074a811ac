package store

import (
	"context"

	"github.com/kevp/kptv-sync/internal/models"
)

// DefaultInsertBatch is the staging insert batch size.
const DefaultInsertBatch = 2500

// Store defines persistence for providers, filter rules, staged streams and
// the stream maintenance operations.
type Store interface {
	// GetProviders returns all providers, or just one when providerID != 0.
	GetProviders(ctx context.Context, providerID int64) ([]models.Provider, error)
	// GetFilterRules returns the owner's active filter rules in stored order.
	GetFilterRules(ctx context.Context, ownerID int64) ([]models.FilterRule, error)
	// InsertStagingRows bulk-inserts rows into the staging table in batches.
	// When ignoreDups is true, duplicate rows are silently dropped.
	InsertStagingRows(ctx context.Context, rows []models.StorageRow, batchSize int, ignoreDups bool) error
	// UpdateProviderRefreshed stamps the provider's last-synced time.
	UpdateProviderRefreshed(ctx context.Context, providerID int64) error
	// MergeStaging promotes staged rows into the main streams table.
	MergeStaging(ctx context.Context) error
	// CleanupStreams removes dead rows from the main streams table.
	CleanupStreams(ctx context.Context) error
	// FixupStreams repairs guide ids and logos on the main streams table.
	FixupStreams(ctx context.Context) error
	// GetActiveStreams returns active live/series streams joined with their
	// provider's name and connection limit.
	GetActiveStreams(ctx context.Context) ([]models.ActiveStream, error)
	// MoveToQuarantine moves the given stream ids into the quarantine table
	// in chunks, each chunk in its own transaction. A failed chunk is logged
	// and skipped; the rest proceed. Returns the number of streams moved.
	MoveToQuarantine(ctx context.Context, ids []int64) (int64, error)
	// ClearCache drops any run-scoped lookup caches. No-op for plain stores.
	ClearCache(ctx context.Context) error
}
