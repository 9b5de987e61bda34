package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SnapshotManager handles creating and loading state snapshots for recovery.
// Snapshots contain balances, platform state, markets, bets, cards, price
// feed observations, idempotency LRU keys, sequence counters, and the last
// state hash.
type SnapshotManager struct {
	db *sql.DB
}

// SnapshotData contains the full in-memory state at a point in time.
type SnapshotData struct {
	Sequence        int64                    `json:"sequence"`
	StateHash       []byte                   `json:"state_hash"`
	Balances        map[string]int64         `json:"balances"` // AccountPath -> balance
	Platform        *PlatformSnapshot        `json:"platform,omitempty"`
	Markets         []MarketSnapshot         `json:"markets"`
	Bets            []BetSnapshot            `json:"bets"`
	Cards           []CardSnapshot           `json:"cards"`
	PriceFeeds      map[string]PriceFeedSnap `json:"price_feeds"`      // feedID -> latest observation
	SequenceState   map[string]int64         `json:"sequence_state"`   // partition -> next expected seq
	IdempotencyKeys []string                 `json:"idempotency_keys"` // Recent keys for LRU warming
	CreatedAt       time.Time                `json:"created_at"`
}

// PlatformSnapshot is the serializable platform singleton.
type PlatformSnapshot struct {
	Authority    string `json:"authority"`
	Treasury     string `json:"treasury"`
	TotalMarkets int64  `json:"total_markets"`
	TotalVolume  int64  `json:"total_volume"`
	CreatedAt    int64  `json:"created_at"`
	Version      int64  `json:"version"`
}

// MarketSnapshot is a serializable market. The oracle configuration is
// flattened; which fields are meaningful depends on oracle_data_type.
type MarketSnapshot struct {
	Address        string `json:"address"`
	Creator        string `json:"creator"`
	Authority      string `json:"authority"`
	Question       string `json:"question"`
	Description    string `json:"description"`
	Category       int32  `json:"category"`
	EndTime        int64  `json:"end_time"`
	CreatedAt      int64  `json:"created_at"`
	Resolved       bool   `json:"resolved"`
	Outcome        bool   `json:"outcome"`
	TotalYesAmount int64  `json:"total_yes_amount"`
	TotalNoAmount  int64  `json:"total_no_amount"`
	FeeCollected   bool   `json:"fee_collected"`
	Version        int64  `json:"version"`

	OracleSource   int32  `json:"oracle_source"`
	OracleDataType int32  `json:"oracle_data_type"`
	PriceFeed      string `json:"price_feed,omitempty"`
	TargetPrice    int64  `json:"target_price,omitempty"`
	StrikePrice    int64  `json:"strike_price,omitempty"`
	GameID         string `json:"game_id,omitempty"`
	TargetSpread   int64  `json:"target_spread,omitempty"`
	TeamAScore     int64  `json:"team_a_score,omitempty"`
	TeamBScore     int64  `json:"team_b_score,omitempty"`
	Location       string `json:"location,omitempty"`
	WeatherMetric  int32  `json:"weather_metric,omitempty"`
	TargetValue    int64  `json:"target_value,omitempty"`
	DataIdentifier string `json:"data_identifier,omitempty"`
	MetricKind     int32  `json:"metric_kind,omitempty"`
	Threshold      int64  `json:"threshold,omitempty"`
	RecordedValue  int64  `json:"recorded_value,omitempty"`
	ValueRecorded  bool   `json:"value_recorded,omitempty"`
}

// BetSnapshot is a serializable bet.
type BetSnapshot struct {
	Address    string `json:"address"`
	MarketAddr string `json:"market_addr"`
	Bettor     string `json:"bettor"`
	Amount     int64  `json:"amount"`
	Prediction bool   `json:"prediction"`
	Claimed    bool   `json:"claimed"`
	CardMint   string `json:"card_mint,omitempty"`
	Multiplier int64  `json:"multiplier"`
	PlacedAt   int64  `json:"placed_at"`
	Version    int64  `json:"version"`
}

// CardSnapshot is a serializable battle card.
type CardSnapshot struct {
	Mint       string `json:"mint"`
	Owner      string `json:"owner"`
	Power      uint8  `json:"power"`
	Rarity     uint8  `json:"rarity"`
	Multiplier int64  `json:"multiplier"`
	Wins       int64  `json:"wins"`
	Losses     int64  `json:"losses"`
	MintedAt   int64  `json:"minted_at"`
	Version    int64  `json:"version"`
}

// PriceFeedSnap is the latest observation for one feed.
type PriceFeedSnap struct {
	FeedID      string `json:"feed_id"`
	Price       int64  `json:"price"`
	PublishTime int64  `json:"publish_time"`
	Sequence    int64  `json:"sequence"`
}

func NewSnapshotManager(db *sql.DB) *SnapshotManager {
	return &SnapshotManager{db: db}
}

// SaveSnapshot persists a snapshot to Postgres. Snapshots are taken
// periodically and verified by replaying events from the snapshot sequence
// forward before being trusted for restarts.
func (sm *SnapshotManager) SaveSnapshot(ctx context.Context, snap *SnapshotData) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	snapshotID := uuid.New()
	sizeBytes := len(data)
	formatVersion := int32(1) // v1: JSON-encoded SnapshotData

	_, err = sm.db.ExecContext(ctx, `
		INSERT INTO event_log.snapshots
			(snapshot_id, sequence, data, state_hash, format_version, size_bytes, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
		ON CONFLICT (sequence) DO UPDATE SET data = $3, state_hash = $4, size_bytes = $6
	`, snapshotID, snap.Sequence, data, snap.StateHash, formatVersion, sizeBytes, snap.CreatedAt)

	return err
}

// LoadLatestSnapshot loads the most recent verified snapshot. On warm
// restart, the caller loads this then replays events from sequence+1.
func (sm *SnapshotManager) LoadLatestSnapshot(ctx context.Context) (*SnapshotData, error) {
	row := sm.db.QueryRowContext(ctx, `
		SELECT data FROM event_log.snapshots
		WHERE verified = TRUE
		ORDER BY sequence DESC
		LIMIT 1
	`)

	var data []byte
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // No snapshot — cold start
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap SnapshotData
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return &snap, nil
}

// MarkVerified marks a snapshot as verified after integrity check.
func (sm *SnapshotManager) MarkVerified(ctx context.Context, sequence int64) error {
	_, err := sm.db.ExecContext(ctx, `
		UPDATE event_log.snapshots SET verified = TRUE WHERE sequence = $1
	`, sequence)
	return err
}

// LoadEventsFrom loads events from a given sequence for replay. Used for
// warm restart (replay from snapshot) and cold restart (replay all).
func (sm *SnapshotManager) LoadEventsFrom(ctx context.Context, fromSequence int64, limit int) ([]EventRow, error) {
	rows, err := sm.db.QueryContext(ctx, `
		SELECT sequence, event_type, idempotency_key, market_addr, payload,
		       state_hash, prev_hash, timestamp, source_sequence
		FROM event_log.events
		WHERE sequence >= $1
		ORDER BY sequence ASC
		LIMIT $2
	`, fromSequence, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []EventRow
	for rows.Next() {
		var e EventRow
		if err := rows.Scan(
			&e.Sequence, &e.EventType, &e.IdempotencyKey, &e.MarketAddr,
			&e.Payload, &e.StateHash, &e.PrevHash, &e.Timestamp, &e.SourceSequence,
		); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// GetLatestSequence returns the highest sequence in the event log.
func (sm *SnapshotManager) GetLatestSequence(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := sm.db.QueryRowContext(ctx, `
		SELECT MAX(sequence) FROM event_log.events
	`).Scan(&seq)
	if err != nil {
		return 0, err
	}
	if !seq.Valid {
		return 0, nil // Empty event log
	}
	return seq.Int64, nil
}
