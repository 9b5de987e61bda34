package persistence

import (
	"context"
	"database/sql"
	"time"
)

// Bounded so a slow DB cannot stall the core loop; on timeout the caller
// treats the key as fresh and the unique index rejects a true duplicate.
const idempotencyLookupTimeout = 500 * time.Millisecond

// PostgresIdempotencyChecker is the tier-2 dedup check, consulted when a
// key misses the in-memory LRU.
type PostgresIdempotencyChecker struct {
	db *sql.DB
}

func NewPostgresIdempotencyChecker(db *sql.DB) *PostgresIdempotencyChecker {
	return &PostgresIdempotencyChecker{db: db}
}

// IsDuplicate reports whether the event already exists in the event log.
func (pic *PostgresIdempotencyChecker) IsDuplicate(eventType string, idempotencyKey string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), idempotencyLookupTimeout)
	defer cancel()

	var exists bool
	err := pic.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM event_log.events
			WHERE event_type = $1 AND idempotency_key = $2
		)
	`, eventType, idempotencyKey).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
