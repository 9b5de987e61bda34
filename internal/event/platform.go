package event

import "github.com/google/uuid"

// InitializePlatform creates the singleton platform registry.
// Idempotency key: request_id.
type InitializePlatform struct {
	RequestID uuid.UUID
	Authority string
	Treasury  string
	Sequence  int64
	Timestamp int64 // epoch seconds, versioned input
}

func (e *InitializePlatform) IdempotencyKey() string {
	return e.RequestID.String()
}

func (e *InitializePlatform) EventType() EventType {
	return EventTypeInitializePlatform
}

func (e *InitializePlatform) MarketID() *string {
	return nil // Global event
}

func (e *InitializePlatform) SourceSequence() int64 {
	return e.Sequence
}

func (e *InitializePlatform) EventTimestamp() int64 {
	return e.Timestamp
}

// CollectPlatformFee drains the fee portion of a resolved market's vault
// into the treasury. Callable by any principal, once per market.
type CollectPlatformFee struct {
	RequestID uuid.UUID
	Market    string
	Signer    string
	Sequence  int64
	Timestamp int64
}

func (e *CollectPlatformFee) IdempotencyKey() string {
	return e.RequestID.String()
}

func (e *CollectPlatformFee) EventType() EventType {
	return EventTypeCollectPlatformFee
}

func (e *CollectPlatformFee) MarketID() *string {
	m := e.Market
	return &m
}

func (e *CollectPlatformFee) SourceSequence() int64 {
	return e.Sequence
}

func (e *CollectPlatformFee) EventTimestamp() int64 {
	return e.Timestamp
}
