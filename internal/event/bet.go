package event

import "github.com/google/uuid"

// PlaceBet escrows a stake into a market's vault.
// Idempotency key: request_id.
type PlaceBet struct {
	RequestID  uuid.UUID
	Market     string
	Bettor     string
	Amount     int64
	Prediction bool
	Sequence   int64
	Timestamp  int64
}

func (e *PlaceBet) IdempotencyKey() string {
	return e.RequestID.String()
}

func (e *PlaceBet) EventType() EventType {
	return EventTypePlaceBet
}

func (e *PlaceBet) MarketID() *string {
	m := e.Market
	return &m
}

func (e *PlaceBet) SourceSequence() int64 {
	return e.Sequence
}

func (e *PlaceBet) EventTimestamp() int64 {
	return e.Timestamp
}

// BattleStake is the card-bearing bet variant: same escrow effect, with the
// card's mint and reward multiplier attached to the resulting bet.
type BattleStake struct {
	RequestID  uuid.UUID
	Market     string
	Bettor     string
	Amount     int64
	Prediction bool
	CardMint   string
	Sequence   int64
	Timestamp  int64
}

func (e *BattleStake) IdempotencyKey() string {
	return e.RequestID.String()
}

func (e *BattleStake) EventType() EventType {
	return EventTypeBattleStake
}

func (e *BattleStake) MarketID() *string {
	m := e.Market
	return &m
}

func (e *BattleStake) SourceSequence() int64 {
	return e.Sequence
}

func (e *BattleStake) EventTimestamp() int64 {
	return e.Timestamp
}

// ClaimWinnings pays out a winning bet and marks it claimed.
type ClaimWinnings struct {
	RequestID uuid.UUID
	Market    string
	Bettor    string
	Sequence  int64
	Timestamp int64
}

func (e *ClaimWinnings) IdempotencyKey() string {
	return e.RequestID.String()
}

func (e *ClaimWinnings) EventType() EventType {
	return EventTypeClaimWinnings
}

func (e *ClaimWinnings) MarketID() *string {
	m := e.Market
	return &m
}

func (e *ClaimWinnings) SourceSequence() int64 {
	return e.Sequence
}

func (e *ClaimWinnings) EventTimestamp() int64 {
	return e.Timestamp
}
