package state_test

import (
	"testing"

	"PredictionLedger/internal/state"
)

const (
	creator = "c9a646dc93c4ebf1d174dce01f31cb64"
	bettor  = "5d41402abc4b2a76b9719d911017c592"
)

// ============================================================================
// Test: Deterministic addressing
// ============================================================================

func TestDeriveMarketAddress_Deterministic(t *testing.T) {
	a := state.DeriveMarketAddress(creator, "Will BTC close above 100k by March?")
	b := state.DeriveMarketAddress(creator, "Will BTC close above 100k by March?")
	if a != b {
		t.Error("same (creator, question) must derive the same address")
	}
	if len(a) != 64 {
		t.Errorf("address should be 64 hex chars, got %d", len(a))
	}
}

func TestDeriveMarketAddress_QuestionPrefixOnly(t *testing.T) {
	// Only the first 32 bytes of the question participate in the seed.
	base := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" // exactly 32 bytes
	a := state.DeriveMarketAddress(creator, base+"tail one")
	b := state.DeriveMarketAddress(creator, base+"different tail")
	if a != b {
		t.Error("questions sharing a 32-byte prefix must collide")
	}
}

func TestDeriveMarketAddress_DiffersByCreator(t *testing.T) {
	a := state.DeriveMarketAddress(creator, "same question")
	b := state.DeriveMarketAddress(bettor, "same question")
	if a == b {
		t.Error("different creators must derive different addresses")
	}
}

func TestDeriveBetAddress_UniquePerPair(t *testing.T) {
	market := state.DeriveMarketAddress(creator, "q")
	a := state.DeriveBetAddress(market, bettor)
	b := state.DeriveBetAddress(market, creator)
	if a == b {
		t.Error("different bettors must derive different bet addresses")
	}
}

// ============================================================================
// Test: Stores (create-if-absent)
// ============================================================================

func TestMarketStore_CreateCollision(t *testing.T) {
	ms := state.NewMarketStore()
	m := &state.Market{
		Address: state.DeriveMarketAddress(creator, "q"),
		Creator: creator,
		Oracle:  state.ManualOracle{},
	}

	if err := ms.Create(m); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if err := ms.Create(m); err != state.ErrMarketExists {
		t.Errorf("second create = %v, want ErrMarketExists", err)
	}
}

func TestBetStore_CreateCollision(t *testing.T) {
	bs := state.NewBetStore()
	market := state.DeriveMarketAddress(creator, "q")
	b := &state.Bet{
		Address:    state.DeriveBetAddress(market, bettor),
		MarketAddr: market,
		Bettor:     bettor,
		Amount:     100,
	}

	if err := bs.Create(b); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if err := bs.Create(b); err != state.ErrBetExists {
		t.Errorf("second create = %v, want ErrBetExists", err)
	}
}

func TestPlatformStore_SingleInitialize(t *testing.T) {
	ps := state.NewPlatformStore()

	if _, err := ps.Get(); err != state.ErrPlatformNotInitialized {
		t.Errorf("Get before init = %v, want ErrPlatformNotInitialized", err)
	}

	p := &state.Platform{Authority: creator, Treasury: creator}
	if err := ps.Initialize(p); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if err := ps.Initialize(p); err != state.ErrPlatformExists {
		t.Errorf("re-initialize = %v, want ErrPlatformExists", err)
	}
}

// ============================================================================
// Test: Market
// ============================================================================

func TestMarket_BettingOpen(t *testing.T) {
	m := &state.Market{EndTime: 1000, Oracle: state.ManualOracle{}}

	if !m.BettingOpen(999) {
		t.Error("betting should be open before end time")
	}
	if m.BettingOpen(1000) {
		t.Error("betting should close at end time")
	}

	m.Resolved = true
	if m.BettingOpen(500) {
		t.Error("betting should be closed on a resolved market")
	}
}

func TestMarket_WinningPool(t *testing.T) {
	m := &state.Market{
		Oracle:         state.ManualOracle{},
		Resolved:       true,
		Outcome:        true,
		TotalYesAmount: 2_500_000_000,
		TotalNoAmount:  2_000_000_000,
	}

	if got := m.TotalPool(); got != 4_500_000_000 {
		t.Errorf("total pool = %d", got)
	}
	if got := m.WinningPool(); got != 2_500_000_000 {
		t.Errorf("winning pool = %d", got)
	}

	m.Outcome = false
	if got := m.WinningPool(); got != 2_000_000_000 {
		t.Errorf("winning pool = %d", got)
	}
}

// ============================================================================
// Test: Card battle rule
// ============================================================================

func TestResolveBattle(t *testing.T) {
	strong := &state.Card{Mint: "a", Power: 7}
	weak := &state.Card{Mint: "b", Power: 3}

	if got := state.ResolveBattle(strong, weak); got != state.BattleChallengerWins {
		t.Errorf("got %v, want challenger win", got)
	}
	if got := state.ResolveBattle(weak, strong); got != state.BattleDefenderWins {
		t.Errorf("got %v, want defender win", got)
	}

	even := &state.Card{Mint: "c", Power: 7}
	if got := state.ResolveBattle(strong, even); got != state.BattleDraw {
		t.Errorf("got %v, want draw", got)
	}
}

func TestValidateTraits(t *testing.T) {
	if err := state.ValidateTraits(5, 2, 1500); err != nil {
		t.Errorf("valid traits rejected: %v", err)
	}
	if err := state.ValidateTraits(0, 2, 1500); err != state.ErrInvalidCardTraits {
		t.Error("power 0 should be rejected")
	}
	if err := state.ValidateTraits(11, 2, 1500); err != state.ErrInvalidCardTraits {
		t.Error("power 11 should be rejected")
	}
	if err := state.ValidateTraits(5, 5, 1500); err != state.ErrInvalidCardTraits {
		t.Error("rarity 5 should be rejected")
	}
	if err := state.ValidateTraits(5, 2, 0); err != state.ErrInvalidCardTraits {
		t.Error("zero multiplier should be rejected")
	}
}

// ============================================================================
// Test: Price feed cache
// ============================================================================

func TestPriceFeedCache_IgnoresOutOfOrder(t *testing.T) {
	pc := state.NewPriceFeedCache()

	pc.Update(&state.PriceSnapshot{FeedID: "btc-usd", Price: 100, Sequence: 5})
	pc.Update(&state.PriceSnapshot{FeedID: "btc-usd", Price: 90, Sequence: 4})

	snap, ok := pc.Get("btc-usd")
	if !ok {
		t.Fatal("feed should exist")
	}
	if snap.Price != 100 {
		t.Errorf("stale update should be ignored, got price %d", snap.Price)
	}
}

// ============================================================================
// Test: Canonical serialization
// ============================================================================

func TestCanonicalBytes_Deterministic(t *testing.T) {
	m := &state.Market{
		Address:  state.DeriveMarketAddress(creator, "q"),
		Creator:  creator,
		Question: "q",
		Oracle: &state.PriceOracle{
			Src:         state.SourcePythPrice,
			FeedID:      "btc-usd",
			TargetPrice: 100_000 * 100_000_000,
		},
		EndTime:        1000,
		TotalYesAmount: 1,
	}

	a := m.CanonicalBytes()
	b := m.CanonicalBytes()
	if string(a) != string(b) {
		t.Error("canonical bytes must be deterministic")
	}

	m.TotalYesAmount = 2
	c := m.CanonicalBytes()
	if string(a) == string(c) {
		t.Error("canonical bytes must reflect field changes")
	}
}
