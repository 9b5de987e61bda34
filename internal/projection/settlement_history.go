package projection

import "sync"

// SettlementEntry is one escrow movement affecting a bettor: a stake, a
// winnings payout, a deposit or a withdrawal.
type SettlementEntry struct {
	Bettor     string
	MarketAddr string
	Kind       int32 // escrow.JournalType ordinal
	Amount     int64 // Signed: positive credits the wallet
	JournalID  string
	Sequence   int64
	Timestamp  int64
}

// SettlementHistoryProjection maintains queryable per-bettor escrow
// history. Reads may come from a different goroutine than the
// projection worker appending entries.
type SettlementHistoryProjection struct {
	mu      sync.RWMutex
	entries []SettlementEntry
}

func NewSettlementHistoryProjection() *SettlementHistoryProjection {
	return &SettlementHistoryProjection{
		entries: make([]SettlementEntry, 0),
	}
}

// AddEntry records an escrow movement.
func (p *SettlementHistoryProjection) AddEntry(entry SettlementEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, entry)
}

// QueryByBettor returns the most recent movements for a bettor.
func (p *SettlementHistoryProjection) QueryByBettor(bettor string, limit int) []SettlementEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]SettlementEntry, 0)
	for i := len(p.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if p.entries[i].Bettor == bettor {
			result = append(result, p.entries[i])
		}
	}

	return result
}

// QueryByMarket returns the most recent movements for a market.
func (p *SettlementHistoryProjection) QueryByMarket(marketAddr string, limit int) []SettlementEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]SettlementEntry, 0)
	for i := len(p.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if p.entries[i].MarketAddr == marketAddr {
			result = append(result, p.entries[i])
		}
	}

	return result
}
