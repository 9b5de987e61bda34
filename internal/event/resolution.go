package event

import "github.com/google/uuid"

// ResolveManual sets a manual market's outcome directly.
// Requires signer = market authority.
type ResolveManual struct {
	RequestID uuid.UUID
	Market    string
	Signer    string
	Outcome   bool
	Sequence  int64
	Timestamp int64
}

func (e *ResolveManual) IdempotencyKey() string  { return e.RequestID.String() }
func (e *ResolveManual) EventType() EventType    { return EventTypeResolveManual }
func (e *ResolveManual) SourceSequence() int64   { return e.Sequence }
func (e *ResolveManual) EventTimestamp() int64   { return e.Timestamp }
func (e *ResolveManual) MarketID() *string       { m := e.Market; return &m }

// ResolveWithOracle resolves a price-feed market from the cached feed data.
// Permissionless: any signer may invoke it, the comparison is deterministic
// from public feed data. This asymmetry against the authority-gated paths
// is intentional.
type ResolveWithOracle struct {
	RequestID uuid.UUID
	Market    string
	Signer    string
	// FeedID names the feed the caller resolved against. When set it must
	// match the market's configured feed; empty defers to the config.
	FeedID    string
	Sequence  int64
	Timestamp int64
}

func (e *ResolveWithOracle) IdempotencyKey() string { return e.RequestID.String() }
func (e *ResolveWithOracle) EventType() EventType   { return EventTypeResolveWithOracle }
func (e *ResolveWithOracle) SourceSequence() int64  { return e.Sequence }
func (e *ResolveWithOracle) EventTimestamp() int64  { return e.Timestamp }
func (e *ResolveWithOracle) MarketID() *string      { m := e.Market; return &m }

// ResolveSports records final scores and resolves. Authority-gated.
type ResolveSports struct {
	RequestID  uuid.UUID
	Market     string
	Signer     string
	TeamAScore int64
	TeamBScore int64
	Sequence   int64
	Timestamp  int64
}

func (e *ResolveSports) IdempotencyKey() string { return e.RequestID.String() }
func (e *ResolveSports) EventType() EventType   { return EventTypeResolveSports }
func (e *ResolveSports) SourceSequence() int64  { return e.Sequence }
func (e *ResolveSports) EventTimestamp() int64  { return e.Timestamp }
func (e *ResolveSports) MarketID() *string      { m := e.Market; return &m }

// ResolveWeather records a measurement (x100 scale) and resolves.
// Authority-gated.
type ResolveWeather struct {
	RequestID     uuid.UUID
	Market        string
	Signer        string
	RecordedValue int64
	Sequence      int64
	Timestamp     int64
}

func (e *ResolveWeather) IdempotencyKey() string { return e.RequestID.String() }
func (e *ResolveWeather) EventType() EventType   { return EventTypeResolveWeather }
func (e *ResolveWeather) SourceSequence() int64  { return e.Sequence }
func (e *ResolveWeather) EventTimestamp() int64  { return e.Timestamp }
func (e *ResolveWeather) MarketID() *string      { m := e.Market; return &m }

// ResolveSocial records a metric value and resolves. Authority-gated.
type ResolveSocial struct {
	RequestID   uuid.UUID
	Market      string
	Signer      string
	ActualValue int64
	Sequence    int64
	Timestamp   int64
}

func (e *ResolveSocial) IdempotencyKey() string { return e.RequestID.String() }
func (e *ResolveSocial) EventType() EventType   { return EventTypeResolveSocial }
func (e *ResolveSocial) SourceSequence() int64  { return e.Sequence }
func (e *ResolveSocial) EventTimestamp() int64  { return e.Timestamp }
func (e *ResolveSocial) MarketID() *string      { m := e.Market; return &m }
