package event

import "github.com/google/uuid"

// Deposit credits a bettor's wallet from the external boundary.
type Deposit struct {
	RequestID uuid.UUID
	Bettor    string
	Amount    int64
	Sequence  int64
	Timestamp int64
}

func (e *Deposit) IdempotencyKey() string {
	return e.RequestID.String()
}

func (e *Deposit) EventType() EventType {
	return EventTypeDeposit
}

func (e *Deposit) MarketID() *string {
	return nil // Global event
}

func (e *Deposit) SourceSequence() int64 {
	return e.Sequence
}

func (e *Deposit) EventTimestamp() int64 {
	return e.Timestamp
}

// Withdraw returns wallet funds to the external boundary.
type Withdraw struct {
	RequestID uuid.UUID
	Bettor    string
	Amount    int64
	Sequence  int64
	Timestamp int64
}

func (e *Withdraw) IdempotencyKey() string {
	return e.RequestID.String()
}

func (e *Withdraw) EventType() EventType {
	return EventTypeWithdraw
}

func (e *Withdraw) MarketID() *string {
	return nil
}

func (e *Withdraw) SourceSequence() int64 {
	return e.Sequence
}

func (e *Withdraw) EventTimestamp() int64 {
	return e.Timestamp
}
