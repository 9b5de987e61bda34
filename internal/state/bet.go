package state

// Bet is the unique stake record for a (market, bettor) pair.
type Bet struct {
	Address    string
	MarketAddr string
	Bettor     string
	Amount     int64
	Prediction bool
	Claimed    bool
	CardMint   string // empty when no card is attached
	Multiplier int64  // x1000, neutral 1000 when no card
	PlacedAt   int64  // epoch seconds
	Version    int64  // Optimistic concurrency control
}

// HasCard reports whether the bet was placed through the card-bearing flow
func (b *Bet) HasCard() bool {
	return b.CardMint != ""
}

// CanonicalBytes returns deterministic serialization for hashing
func (b *Bet) CanonicalBytes() []byte {
	buf := make([]byte, 0, 192)
	buf = appendString(buf, b.Address)
	buf = appendString(buf, b.MarketAddr)
	buf = appendString(buf, b.Bettor)
	buf = appendInt64LE(buf, b.Amount)
	buf = appendBool(buf, b.Prediction)
	buf = appendBool(buf, b.Claimed)
	buf = appendString(buf, b.CardMint)
	buf = appendInt64LE(buf, b.Multiplier)
	buf = appendInt64LE(buf, b.PlacedAt)
	return buf
}
