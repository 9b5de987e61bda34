package state

import "sort"

// The stores below are keyed arenas with create-if-absent semantics: the
// deterministic address is the key, and creating an existing key fails
// instead of overwriting. Access is single-threaded through the engine's
// event loop, so no locking happens here.

// MarketStore holds all market records by address
type MarketStore struct {
	markets map[string]*Market
}

func NewMarketStore() *MarketStore {
	return &MarketStore{
		markets: make(map[string]*Market),
	}
}

// Create inserts a market, failing on address collision
func (ms *MarketStore) Create(m *Market) error {
	if _, ok := ms.markets[m.Address]; ok {
		return ErrMarketExists
	}
	ms.markets[m.Address] = m
	return nil
}

// Get returns the market at an address
func (ms *MarketStore) Get(addr string) (*Market, bool) {
	m, ok := ms.markets[addr]
	return m, ok
}

// Len returns the number of markets
func (ms *MarketStore) Len() int {
	return len(ms.markets)
}

// GetAllSorted returns markets in address order for deterministic iteration
func (ms *MarketStore) GetAllSorted() []*Market {
	result := make([]*Market, 0, len(ms.markets))
	for _, m := range ms.markets {
		result = append(result, m)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Address < result[j].Address
	})
	return result
}

// Restore directly sets a market (used for snapshot restore)
func (ms *MarketStore) Restore(m *Market) {
	ms.markets[m.Address] = m
}

// BetStore holds all bet records by address
type BetStore struct {
	bets map[string]*Bet
}

func NewBetStore() *BetStore {
	return &BetStore{
		bets: make(map[string]*Bet),
	}
}

// Create inserts a bet, failing on address collision. A second placement
// for the same (market, bettor) pair lands on the same address.
func (bs *BetStore) Create(b *Bet) error {
	if _, ok := bs.bets[b.Address]; ok {
		return ErrBetExists
	}
	bs.bets[b.Address] = b
	return nil
}

// Get returns the bet at an address
func (bs *BetStore) Get(addr string) (*Bet, bool) {
	b, ok := bs.bets[addr]
	return b, ok
}

// GetByMarketBettor resolves the deterministic address and looks it up
func (bs *BetStore) GetByMarketBettor(marketAddr, bettor string) (*Bet, bool) {
	return bs.Get(DeriveBetAddress(marketAddr, bettor))
}

// GetMarketBets returns all bets on a market in address order
func (bs *BetStore) GetMarketBets(marketAddr string) []*Bet {
	result := make([]*Bet, 0)
	for _, b := range bs.bets {
		if b.MarketAddr == marketAddr {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Address < result[j].Address
	})
	return result
}

// Len returns the number of bets
func (bs *BetStore) Len() int {
	return len(bs.bets)
}

// GetAllSorted returns bets in address order for deterministic iteration
func (bs *BetStore) GetAllSorted() []*Bet {
	result := make([]*Bet, 0, len(bs.bets))
	for _, b := range bs.bets {
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Address < result[j].Address
	})
	return result
}

// Restore directly sets a bet (used for snapshot restore)
func (bs *BetStore) Restore(b *Bet) {
	bs.bets[b.Address] = b
}

// CardStore holds all card records by mint
type CardStore struct {
	cards map[string]*Card
}

func NewCardStore() *CardStore {
	return &CardStore{
		cards: make(map[string]*Card),
	}
}

// Create inserts a card, failing if one already exists for the mint
func (cs *CardStore) Create(c *Card) error {
	if _, ok := cs.cards[c.Mint]; ok {
		return ErrCardExists
	}
	cs.cards[c.Mint] = c
	return nil
}

// Get returns the card for a mint
func (cs *CardStore) Get(mint string) (*Card, bool) {
	c, ok := cs.cards[mint]
	return c, ok
}

// Len returns the number of cards
func (cs *CardStore) Len() int {
	return len(cs.cards)
}

// GetAllSorted returns cards in mint order for deterministic iteration
func (cs *CardStore) GetAllSorted() []*Card {
	result := make([]*Card, 0, len(cs.cards))
	for _, c := range cs.cards {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Mint < result[j].Mint
	})
	return result
}

// Restore directly sets a card (used for snapshot restore)
func (cs *CardStore) Restore(c *Card) {
	cs.cards[c.Mint] = c
}
