package event

import "fmt"

// PriceFeedUpdate carries a new observation for one external price feed.
// Idempotency key: feed_id + feed sequence.
type PriceFeedUpdate struct {
	FeedID       string
	Price        int64 // x10^8
	PublishTime  int64 // epoch seconds, versioned input
	FeedSequence int64 // Monotonic per feed
}

func (e *PriceFeedUpdate) IdempotencyKey() string {
	return fmt.Sprintf("%s:price:%d", e.FeedID, e.FeedSequence)
}

func (e *PriceFeedUpdate) EventType() EventType {
	return EventTypePriceFeedUpdate
}

func (e *PriceFeedUpdate) MarketID() *string {
	return nil // Feed updates are not market-scoped
}

func (e *PriceFeedUpdate) SourceSequence() int64 {
	return e.FeedSequence
}

func (e *PriceFeedUpdate) EventTimestamp() int64 {
	return e.PublishTime
}
