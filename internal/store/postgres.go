package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/kevp/kptv-sync/internal/models"
)

// quarantineChunk is how many streams one quarantine transaction covers.
const quarantineChunk = 100

// Postgres implements Store using PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
	log  *logrus.Logger
}

// NewPostgres creates a Postgres store from a DSN. Caller must call Close when
// done. A nil logger falls back to the logrus standard logger.
func NewPostgres(ctx context.Context, dsn string, log *logrus.Logger) (*Postgres, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool, log: log}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

const providerColumns = `id, u_id, sp_name, sp_type, sp_domain, sp_username, sp_password,
	sp_stream_type, sp_cnx_limit, sp_refresh_period, sp_last_synced, sp_default_icon`

// GetProviders returns all providers, or just one when providerID != 0.
func (p *Postgres) GetProviders(ctx context.Context, providerID int64) ([]models.Provider, error) {
	var preds []predicate
	if providerID != 0 {
		preds = append(preds, whereEq("id", providerID))
	}
	where, args, err := buildWhere(preds, 1)
	if err != nil {
		return nil, fmt.Errorf("GetProviders: %w", err)
	}
	rows, err := p.pool.Query(ctx,
		`SELECT `+providerColumns+` FROM stream_providers`+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("GetProviders: %w", err)
	}
	defer rows.Close()
	var providers []models.Provider
	for rows.Next() {
		var prov models.Provider
		var icon *string
		if err := rows.Scan(&prov.ID, &prov.OwnerID, &prov.Name, &prov.Source, &prov.Domain,
			&prov.Username, &prov.Password, &prov.StreamHint, &prov.ConnLimit,
			&prov.RefreshPeriod, &prov.LastSynced, &icon); err != nil {
			return nil, fmt.Errorf("GetProviders scan: %w", err)
		}
		if icon != nil {
			prov.DefaultIcon = *icon
		}
		providers = append(providers, prov)
	}
	return providers, rows.Err()
}

// GetFilterRules returns the owner's active filter rules in stored order.
func (p *Postgres) GetFilterRules(ctx context.Context, ownerID int64) ([]models.FilterRule, error) {
	where, args, err := buildWhere([]predicate{
		whereEq("u_id", ownerID),
		whereEq("sf_active", true),
	}, 1)
	if err != nil {
		return nil, fmt.Errorf("GetFilterRules: %w", err)
	}
	rows, err := p.pool.Query(ctx,
		`SELECT id, u_id, sf_type_id, sf_filter, sf_active FROM stream_filters`+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("GetFilterRules: %w", err)
	}
	defer rows.Close()
	var rules []models.FilterRule
	for rows.Next() {
		var r models.FilterRule
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.Kind, &r.Pattern, &r.Active); err != nil {
			return nil, fmt.Errorf("GetFilterRules scan: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// InsertStagingRows bulk-inserts rows into stream_temp in batches.
func (p *Postgres) InsertStagingRows(ctx context.Context, rows []models.StorageRow, batchSize int, ignoreDups bool) error {
	if batchSize <= 0 {
		batchSize = DefaultInsertBatch
	}
	sql := `INSERT INTO stream_temp (u_id, p_id, s_orig_name, s_stream_uri, s_type_id, s_tvg_id, s_tvg_logo, s_extras, s_group)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if ignoreDups {
		sql += ` ON CONFLICT DO NOTHING`
	}
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := &pgx.Batch{}
		for _, r := range rows[start:end] {
			batch.Queue(sql, r.OwnerID, r.ProviderID, r.OrigName, r.StreamURI,
				r.TypeID, r.TVGID, r.TVGLogo, r.Extras, r.Group)
		}
		if err := p.pool.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("InsertStagingRows batch at %d: %w", start, err)
		}
	}
	return nil
}

// callProc invokes one of the named stored operations.
func (p *Postgres) callProc(ctx context.Context, call string, args ...any) error {
	if _, err := p.pool.Exec(ctx, call, args...); err != nil {
		return fmt.Errorf("%s: %w", call, err)
	}
	return nil
}

// UpdateProviderRefreshed stamps the provider's last-synced time.
func (p *Postgres) UpdateProviderRefreshed(ctx context.Context, providerID int64) error {
	return p.callProc(ctx, `CALL provider_update_refreshed($1)`, providerID)
}

// MergeStaging promotes staged rows into the main streams table.
func (p *Postgres) MergeStaging(ctx context.Context) error {
	return p.callProc(ctx, `CALL streams_all_sync()`)
}

// CleanupStreams removes dead rows from the main streams table.
func (p *Postgres) CleanupStreams(ctx context.Context) error {
	return p.callProc(ctx, `CALL streams_cleanup()`)
}

// FixupStreams repairs guide ids and logos on the main streams table.
func (p *Postgres) FixupStreams(ctx context.Context) error {
	return p.callProc(ctx, `CALL streams_fixup()`)
}

// GetActiveStreams returns active live/series streams with provider info.
func (p *Postgres) GetActiveStreams(ctx context.Context) ([]models.ActiveStream, error) {
	where, args, err := buildWhere([]predicate{
		whereEq("s.s_active", true),
		whereIn("s.s_type_id", []any{int16(models.KindLive), int16(models.KindSeries)}),
	}, 1)
	if err != nil {
		return nil, fmt.Errorf("GetActiveStreams: %w", err)
	}
	rows, err := p.pool.Query(ctx,
		`SELECT s.id, s.s_orig_name, s.s_stream_uri, s.s_type_id, s.p_id, p.sp_cnx_limit, p.sp_name
		 FROM streams s
		 INNER JOIN stream_providers p ON s.p_id = p.id`+where+` ORDER BY s.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("GetActiveStreams: %w", err)
	}
	defer rows.Close()
	var streams []models.ActiveStream
	for rows.Next() {
		var s models.ActiveStream
		if err := rows.Scan(&s.ID, &s.Name, &s.URL, &s.TypeID, &s.ProviderID, &s.ConnLimit, &s.ProviderName); err != nil {
			return nil, fmt.Errorf("GetActiveStreams scan: %w", err)
		}
		streams = append(streams, s)
	}
	return streams, rows.Err()
}

// MoveToQuarantine moves stream ids into streams_other in chunks of 100,
// one transaction per chunk. A failed chunk is logged and skipped.
func (p *Postgres) MoveToQuarantine(ctx context.Context, ids []int64) (int64, error) {
	var moved int64
	for start := 0; start < len(ids); start += quarantineChunk {
		end := start + quarantineChunk
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]
		if err := p.moveChunk(ctx, chunk); err != nil {
			p.log.Warnf("quarantine: chunk at %d failed, skipping %d streams: %v", start, len(chunk), err)
			continue
		}
		moved += int64(len(chunk))
	}
	return moved, nil
}

func (p *Postgres) moveChunk(ctx context.Context, ids []int64) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)
	for _, id := range ids {
		if _, err := tx.Exec(ctx, `CALL streams_move_to_other($1)`, id); err != nil {
			return fmt.Errorf("streams_move_to_other(%d): %w", id, err)
		}
	}
	return tx.Commit(ctx)
}

// ClearCache is a no-op for the plain Postgres store.
func (p *Postgres) ClearCache(ctx context.Context) error { return nil }
