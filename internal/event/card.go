package event

import "github.com/google/uuid"

// MintCard creates a card record for a mint identifier.
// Idempotency key: request_id.
type MintCard struct {
	RequestID  uuid.UUID
	Mint       string
	Owner      string
	Power      uint8
	Rarity     uint8
	Multiplier int64 // x1000
	Sequence   int64
	Timestamp  int64
}

func (e *MintCard) IdempotencyKey() string {
	return e.RequestID.String()
}

func (e *MintCard) EventType() EventType {
	return EventTypeMintCard
}

func (e *MintCard) MarketID() *string {
	return nil // Global event
}

func (e *MintCard) SourceSequence() int64 {
	return e.Sequence
}

func (e *MintCard) EventTimestamp() int64 {
	return e.Timestamp
}

// BattleCards pits two cards head to head: strictly greater power wins
// and both cards' counters move. Equal power is a draw, neither moves.
// Requires signer = challenger card owner.
type BattleCards struct {
	RequestID  uuid.UUID
	Challenger string // card mint
	Defender   string // card mint
	Signer     string
	Sequence   int64
	Timestamp  int64
}

func (e *BattleCards) IdempotencyKey() string {
	return e.RequestID.String()
}

func (e *BattleCards) EventType() EventType {
	return EventTypeBattleCards
}

func (e *BattleCards) MarketID() *string {
	return nil
}

func (e *BattleCards) SourceSequence() int64 {
	return e.Sequence
}

func (e *BattleCards) EventTimestamp() int64 {
	return e.Timestamp
}

// UpdateCardStats increments a card's win or loss counter.
// Requires signer = card owner.
type UpdateCardStats struct {
	RequestID uuid.UUID
	Mint      string
	Signer    string
	Won       bool
	Sequence  int64
	Timestamp int64
}

func (e *UpdateCardStats) IdempotencyKey() string {
	return e.RequestID.String()
}

func (e *UpdateCardStats) EventType() EventType {
	return EventTypeUpdateCardStats
}

func (e *UpdateCardStats) MarketID() *string {
	return nil
}

func (e *UpdateCardStats) SourceSequence() int64 {
	return e.Sequence
}

func (e *UpdateCardStats) EventTimestamp() int64 {
	return e.Timestamp
}
