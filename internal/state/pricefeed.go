package state

// PriceStalenessBound is the maximum age, in seconds, of feed data a price
// resolution will accept. Older data fails closed with ErrStalePriceData.
const PriceStalenessBound int64 = 60

// PriceSnapshot is the latest observation for one feed.
// Price uses the x10^8 scale.
type PriceSnapshot struct {
	FeedID      string
	Price       int64
	PublishTime int64 // epoch seconds, versioned input timestamp
	Sequence    int64 // source sequence of the update event
}

// PriceFeedCache tracks the latest snapshot per feed. Updates arrive as
// ordered events; the cache never reads the wall clock itself.
type PriceFeedCache struct {
	feeds map[string]*PriceSnapshot
}

func NewPriceFeedCache() *PriceFeedCache {
	return &PriceFeedCache{
		feeds: make(map[string]*PriceSnapshot),
	}
}

// Update stores a snapshot, ignoring out-of-order updates for the feed
func (pc *PriceFeedCache) Update(snap *PriceSnapshot) {
	existing, ok := pc.feeds[snap.FeedID]
	if ok && existing.Sequence >= snap.Sequence {
		return
	}
	pc.feeds[snap.FeedID] = snap
}

// Get returns the latest snapshot for a feed
func (pc *PriceFeedCache) Get(feedID string) (*PriceSnapshot, bool) {
	snap, ok := pc.feeds[feedID]
	return snap, ok
}

// GetAll returns all snapshots (for snapshot creation)
func (pc *PriceFeedCache) GetAll() map[string]*PriceSnapshot {
	result := make(map[string]*PriceSnapshot, len(pc.feeds))
	for k, v := range pc.feeds {
		result[k] = v
	}
	return result
}

// Restore directly sets a snapshot (used for snapshot restore)
func (pc *PriceFeedCache) Restore(snap *PriceSnapshot) {
	pc.feeds[snap.FeedID] = snap
}
