package event

import (
	"github.com/google/uuid"

	"PredictionLedger/internal/state"
)

// CreateMarket opens a new binary market. The oracle-specific optional
// fields mirror the wire schema: exactly the set matching OracleDataType
// must be present, the rest nil.
// Idempotency key: request_id.
type CreateMarket struct {
	RequestID   uuid.UUID
	Creator     string
	Authority   string
	Question    string
	Description string
	Category    state.MarketCategory
	EndTime     int64 // epoch seconds

	OracleSource   state.OracleSource
	OracleDataType state.OracleDataType

	// price
	PriceFeed   *string
	TargetPrice *int64 // x10^8

	// sports
	GameID       *string
	TargetSpread *int64

	// weather
	Location      *string
	WeatherMetric *state.WeatherMetric
	TargetValue   *int64 // x100

	// social / box office / custom
	DataIdentifier *string
	MetricType     *state.MetricType
	Threshold      *int64

	Sequence  int64
	Timestamp int64
}

func (e *CreateMarket) IdempotencyKey() string {
	return e.RequestID.String()
}

func (e *CreateMarket) EventType() EventType {
	return EventTypeCreateMarket
}

func (e *CreateMarket) MarketID() *string {
	m := state.DeriveMarketAddress(e.Creator, e.Question)
	return &m
}

func (e *CreateMarket) SourceSequence() int64 {
	return e.Sequence
}

func (e *CreateMarket) EventTimestamp() int64 {
	return e.Timestamp
}
