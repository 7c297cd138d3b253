package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"

	"ylabs/internal/common"
	"ylabs/internal/domain/analytics"
)

const analyticsSchema = `CREATE TABLE IF NOT EXISTS analytics_events (
	id BIGSERIAL PRIMARY KEY,
	event_type TEXT NOT NULL,
	netid TEXT NOT NULL,
	user_type TEXT NOT NULL,
	listing_id TEXT,
	search_query TEXT,
	search_departments TEXT[],
	metadata JSONB,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS analytics_events_type_time ON analytics_events (event_type, created_at DESC);
CREATE INDEX IF NOT EXISTS analytics_events_netid_time ON analytics_events (netid, created_at DESC);
CREATE INDEX IF NOT EXISTS analytics_events_type_netid_time ON analytics_events (event_type, netid, created_at DESC);`

type AnalyticsRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewAnalyticsRepository(db *sql.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db, now: time.Now}
}

func (r *AnalyticsRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, analyticsSchema); err != nil {
		return common.NewError(common.CodeInternal, "failed to create analytics schema", err)
	}
	return nil
}

func (r *AnalyticsRepository) Create(ctx context.Context, event analytics.Event) error {
	var listingID sql.NullString
	if event.ListingID != nil {
		listingID = sql.NullString{String: event.ListingID.Hex(), Valid: true}
	}
	var metadata any
	if len(event.Metadata) > 0 {
		encoded, err := json.Marshal(event.Metadata)
		if err != nil {
			return common.NewError(common.CodeValidation, "invalid analytics metadata", err)
		}
		metadata = encoded
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO analytics_events (event_type, netid, user_type, listing_id, search_query, search_departments, metadata, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)`,
		string(event.EventType), event.NetID, event.UserType, listingID, event.SearchQuery, pq.Array(event.SearchDepartments), metadata, event.Timestamp)
	if err != nil {
		return common.NewError(common.CodeInternal, "failed to store analytics event", err)
	}
	return nil
}

// Purge deletes events older than the retention window and returns how many
// rows were removed.
func (r *AnalyticsRepository) Purge(ctx context.Context) (int64, error) {
	cutoff := r.now().UTC().Add(-analytics.Retention)
	res, err := r.db.ExecContext(ctx, `DELETE FROM analytics_events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, common.NewError(common.CodeInternal, "failed to purge analytics events", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, common.NewError(common.CodeInternal, "failed to count purged analytics events", err)
	}
	return n, nil
}
