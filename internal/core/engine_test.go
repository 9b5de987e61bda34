package core_test

import (
	"errors"
	"testing"

	"PredictionLedger/internal/core"
	"PredictionLedger/internal/event"
	"PredictionLedger/internal/state"

	"github.com/google/uuid"
)

// --- Test helpers ---

// testEnv wraps a DeterministicCore with per-partition sequence counters so
// tests do not have to thread source sequences by hand.
type testEnv struct {
	t          *testing.T
	core       *core.DeterministicCore
	persist    chan core.CoreOutput
	projection chan core.CoreOutput
	seqs       map[string]int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	persistChan := make(chan core.CoreOutput, 1024)
	projChan := make(chan core.CoreOutput, 1024)
	return &testEnv{
		t:          t,
		core:       core.NewDeterministicCore(0, persistChan, projChan, nil, nil),
		persist:    persistChan,
		projection: projChan,
		seqs:       make(map[string]int64),
	}
}

func (env *testEnv) nextSeq(marketAddr string) int64 {
	partition := "global"
	if marketAddr != "" {
		partition = "market:" + marketAddr
	}
	seq := env.seqs[partition]
	env.seqs[partition] = seq + 1
	return seq
}

func (env *testEnv) process(evt event.Event) error {
	return env.core.ProcessEvent(evt)
}

func (env *testEnv) mustProcess(evt event.Event) {
	env.t.Helper()
	if err := env.core.ProcessEvent(evt); err != nil {
		env.t.Fatalf("ProcessEvent(%s): %v", evt.EventType(), err)
	}
}

func (env *testEnv) initPlatform(authority, treasury string, ts int64) {
	env.t.Helper()
	env.mustProcess(&event.InitializePlatform{
		RequestID: uuid.New(),
		Authority: authority,
		Treasury:  treasury,
		Sequence:  env.nextSeq(""),
		Timestamp: ts,
	})
}

func (env *testEnv) deposit(bettor string, amount, ts int64) {
	env.t.Helper()
	env.mustProcess(&event.Deposit{
		RequestID: uuid.New(),
		Bettor:    bettor,
		Amount:    amount,
		Sequence:  env.nextSeq(""),
		Timestamp: ts,
	})
}

func manualMarket(creator, question string, endTime int64) *event.CreateMarket {
	return &event.CreateMarket{
		RequestID:      uuid.New(),
		Creator:        creator,
		Authority:      creator,
		Question:       question,
		Description:    "test market",
		Category:       state.CategoryOther,
		EndTime:        endTime,
		OracleSource:   state.SourceManual,
		OracleDataType: state.DataTypeNone,
		Timestamp:      100,
	}
}

// createManualMarket creates a manual-resolution market and returns its address.
func (env *testEnv) createManualMarket(creator, question string, endTime int64) string {
	env.t.Helper()
	evt := manualMarket(creator, question, endTime)
	addr := state.DeriveMarketAddress(creator, question)
	evt.Sequence = env.nextSeq(addr)
	env.mustProcess(evt)
	return addr
}

func (env *testEnv) placeBet(market, bettor string, amount int64, prediction bool, ts int64) error {
	return env.process(&event.PlaceBet{
		RequestID:  uuid.New(),
		Market:     market,
		Bettor:     bettor,
		Amount:     amount,
		Prediction: prediction,
		Sequence:   env.nextSeq(market),
		Timestamp:  ts,
	})
}

func (env *testEnv) resolveManual(market, signer string, outcome bool, ts int64) error {
	return env.process(&event.ResolveManual{
		RequestID: uuid.New(),
		Market:    market,
		Signer:    signer,
		Outcome:   outcome,
		Sequence:  env.nextSeq(market),
		Timestamp: ts,
	})
}

func (env *testEnv) claim(market, bettor string, ts int64) error {
	return env.process(&event.ClaimWinnings{
		RequestID: uuid.New(),
		Market:    market,
		Bettor:    bettor,
		Sequence:  env.nextSeq(market),
		Timestamp: ts,
	})
}

func (env *testEnv) collectFee(market, signer string, ts int64) error {
	return env.process(&event.CollectPlatformFee{
		RequestID: uuid.New(),
		Market:    market,
		Signer:    signer,
		Sequence:  env.nextSeq(market),
		Timestamp: ts,
	})
}

func (env *testEnv) mintCard(mint, owner string, power, rarity uint8, multiplier, ts int64) error {
	return env.process(&event.MintCard{
		RequestID:  uuid.New(),
		Mint:       mint,
		Owner:      owner,
		Power:      power,
		Rarity:     rarity,
		Multiplier: multiplier,
		Sequence:   env.nextSeq(""),
		Timestamp:  ts,
	})
}

func (env *testEnv) drainOutputs() []core.CoreOutput {
	var outputs []core.CoreOutput
	for {
		select {
		case out := <-env.persist:
			outputs = append(outputs, out)
		default:
			return outputs
		}
	}
}

// --- Lifecycle tests ---

func TestFullMarketLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.initPlatform("auth", "treasury-owner", 100)
	env.deposit("alice", 3_000_000_000, 100)
	env.deposit("bob", 3_000_000_000, 100)
	env.deposit("carol", 3_000_000_000, 100)

	market := env.createManualMarket("auth", "Will it happen?", 2000)

	// Pools chosen to hit the reference payout: yes=2.5B, no=2B,
	// fee=90M, net=4.41B.
	if err := env.placeBet(market, "alice", 1_000_000_000, true, 1000); err != nil {
		t.Fatalf("alice bet: %v", err)
	}
	if err := env.placeBet(market, "bob", 1_500_000_000, true, 1000); err != nil {
		t.Fatalf("bob bet: %v", err)
	}
	if err := env.placeBet(market, "carol", 2_000_000_000, false, 1000); err != nil {
		t.Fatalf("carol bet: %v", err)
	}

	// Escrow mirrors the accepted pools exactly
	if got := env.core.VaultBalance(market); got != 4_500_000_000 {
		t.Errorf("vault = %d, want 4500000000", got)
	}
	m, _ := env.core.Market(market)
	if m.TotalYesAmount != 2_500_000_000 || m.TotalNoAmount != 2_000_000_000 {
		t.Errorf("pools = %d/%d", m.TotalYesAmount, m.TotalNoAmount)
	}

	if err := env.resolveManual(market, "auth", true, 2000); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if err := env.claim(market, "alice", 2100); err != nil {
		t.Fatalf("alice claim: %v", err)
	}
	// floor(1e9 * 4.41e9 / 2.5e9)
	wantAlice := int64(3_000_000_000 - 1_000_000_000 + 1_764_000_000)
	if got := env.core.WalletBalance("alice"); got != wantAlice {
		t.Errorf("alice wallet = %d, want %d", got, wantAlice)
	}

	if err := env.claim(market, "bob", 2100); err != nil {
		t.Fatalf("bob claim: %v", err)
	}

	// Losing bet cannot claim
	if err := env.claim(market, "carol", 2100); !errors.Is(err, state.ErrLosingBet) {
		t.Errorf("carol claim err = %v, want ErrLosingBet", err)
	}

	// Double claim rejected
	if err := env.claim(market, "alice", 2200); !errors.Is(err, state.ErrAlreadyClaimed) {
		t.Errorf("double claim err = %v, want ErrAlreadyClaimed", err)
	}

	if err := env.collectFee(market, "auth", 2300); err != nil {
		t.Fatalf("collect fee: %v", err)
	}
	if err := env.collectFee(market, "auth", 2301); !errors.Is(err, state.ErrFeeAlreadyCollected) {
		t.Errorf("second fee err = %v, want ErrFeeAlreadyCollected", err)
	}

	// Both winners paid and the fee swept: vault is exactly empty.
	if got := env.core.VaultBalance(market); got != 0 {
		t.Errorf("vault after settlement = %d, want 0", got)
	}
}

func TestPayoutsDeterministic(t *testing.T) {
	run := func() ([32]byte, int64) {
		env := newTestEnv(t)
		env.initPlatform("auth", "tr", 100)
		env.deposit("alice", 5_000_000_000, 100)
		env.deposit("bob", 5_000_000_000, 100)
		market := env.createManualMarket("auth", "deterministic?", 2000)
		env.mustProcess(&event.PlaceBet{
			RequestID: uuid.New(), Market: market, Bettor: "alice",
			Amount: 700_000_007, Prediction: true,
			Sequence: env.nextSeq(market), Timestamp: 500,
		})
		env.mustProcess(&event.PlaceBet{
			RequestID: uuid.New(), Market: market, Bettor: "bob",
			Amount: 1_300_000_013, Prediction: false,
			Sequence: env.nextSeq(market), Timestamp: 600,
		})
		if err := env.resolveManual(market, "auth", true, 2000); err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if err := env.claim(market, "alice", 2100); err != nil {
			t.Fatalf("claim: %v", err)
		}
		return env.core.GetStateHash(), env.core.WalletBalance("alice")
	}

	hash1, bal1 := run()
	hash2, bal2 := run()
	if hash1 != hash2 {
		t.Error("state hashes diverged across identical replays")
	}
	if bal1 != bal2 {
		t.Errorf("payouts diverged: %d vs %d", bal1, bal2)
	}
}

// --- Bet preconditions ---

func TestBetPreconditions(t *testing.T) {
	env := newTestEnv(t)
	env.initPlatform("auth", "tr", 100)
	env.deposit("alice", 1_000_000_000, 100)
	market := env.createManualMarket("auth", "open?", 2000)

	if err := env.placeBet(market, "alice", 0, true, 500); !errors.Is(err, state.ErrInvalidAmount) {
		t.Errorf("zero amount err = %v, want ErrInvalidAmount", err)
	}
	if err := env.placeBet("no-such-market", "alice", 100, true, 500); !errors.Is(err, state.ErrMarketNotFound) {
		t.Errorf("missing market err = %v, want ErrMarketNotFound", err)
	}

	// Betting window closes exactly at end time
	if err := env.placeBet(market, "alice", 100, true, 2000); !errors.Is(err, state.ErrMarketEnded) {
		t.Errorf("at-end bet err = %v, want ErrMarketEnded", err)
	}
	if err := env.placeBet(market, "alice", 100, true, 1999); err != nil {
		t.Fatalf("pre-end bet: %v", err)
	}

	// One bet per (market, bettor)
	if err := env.placeBet(market, "alice", 100, false, 1999); !errors.Is(err, state.ErrBetExists) {
		t.Errorf("second bet err = %v, want ErrBetExists", err)
	}

	// Stake larger than wallet rejected, wallet and pools unchanged
	before, _ := env.core.Market(market)
	yesBefore := before.TotalYesAmount
	if err := env.placeBet(market, "bob", 100, true, 1999); err == nil {
		t.Error("unfunded bet accepted")
	}
	after, _ := env.core.Market(market)
	if after.TotalYesAmount != yesBefore {
		t.Error("rejected bet mutated pools")
	}
}

func TestBetOnResolvedMarket(t *testing.T) {
	env := newTestEnv(t)
	env.initPlatform("auth", "tr", 100)
	env.deposit("alice", 1_000_000_000, 100)
	market := env.createManualMarket("auth", "done?", 2000)
	if err := env.resolveManual(market, "auth", false, 2000); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := env.placeBet(market, "alice", 100, true, 2100); !errors.Is(err, state.ErrMarketAlreadyResolved) {
		t.Errorf("err = %v, want ErrMarketAlreadyResolved", err)
	}
}

// --- Resolution ---

func TestResolutionPreconditions(t *testing.T) {
	env := newTestEnv(t)
	env.initPlatform("auth", "tr", 100)
	market := env.createManualMarket("auth", "later?", 2000)

	if err := env.resolveManual(market, "auth", true, 1999); !errors.Is(err, state.ErrMarketNotEnded) {
		t.Errorf("early resolve err = %v, want ErrMarketNotEnded", err)
	}
	if err := env.resolveManual(market, "mallory", true, 2000); !errors.Is(err, state.ErrUnauthorized) {
		t.Errorf("wrong signer err = %v, want ErrUnauthorized", err)
	}
	if err := env.resolveManual(market, "auth", true, 2000); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := env.resolveManual(market, "auth", false, 2001); !errors.Is(err, state.ErrMarketAlreadyResolved) {
		t.Errorf("double resolve err = %v, want ErrMarketAlreadyResolved", err)
	}

	m, _ := env.core.Market(market)
	if !m.Resolved || m.Outcome != true {
		t.Errorf("market state = resolved=%v outcome=%v", m.Resolved, m.Outcome)
	}
}

func TestClaimOnUnresolvedMarket(t *testing.T) {
	env := newTestEnv(t)
	env.initPlatform("auth", "tr", 100)
	env.deposit("alice", 1_000_000_000, 100)
	market := env.createManualMarket("auth", "pending?", 2000)
	if err := env.placeBet(market, "alice", 500, true, 500); err != nil {
		t.Fatalf("bet: %v", err)
	}
	if err := env.claim(market, "alice", 1000); !errors.Is(err, state.ErrMarketNotResolved) {
		t.Errorf("err = %v, want ErrMarketNotResolved", err)
	}
}

func TestPriceOracleResolution(t *testing.T) {
	env := newTestEnv(t)
	env.initPlatform("auth", "tr", 100)

	feedID := "pyth:SOL-USD"
	target := int64(150_00000000)
	evt := &event.CreateMarket{
		RequestID:      uuid.New(),
		Creator:        "auth",
		Authority:      "auth",
		Question:       "SOL above 150?",
		Description:    "price market",
		Category:       state.CategoryCrypto,
		EndTime:        2000,
		OracleSource:   state.SourcePythPrice,
		OracleDataType: state.DataTypePrice,
		PriceFeed:      &feedID,
		TargetPrice:    &target,
		Timestamp:      100,
	}
	market := state.DeriveMarketAddress("auth", evt.Question)
	evt.Sequence = env.nextSeq(market)
	env.mustProcess(evt)

	resolve := func(ts int64) error {
		return env.process(&event.ResolveWithOracle{
			RequestID: uuid.New(),
			Market:    market,
			Signer:    "anyone", // permissionless path
			Sequence:  env.nextSeq(market),
			Timestamp: ts,
		})
	}

	// No observation yet
	if err := resolve(2000); !errors.Is(err, state.ErrPriceNotAvailable) {
		t.Errorf("no feed err = %v, want ErrPriceNotAvailable", err)
	}

	// Stale observation rejected
	env.mustProcess(&event.PriceFeedUpdate{
		FeedID: feedID, Price: 160_00000000, PublishTime: 1900, FeedSequence: 1,
	})
	if err := resolve(1961); !errors.Is(err, state.ErrStalePriceData) {
		t.Errorf("stale err = %v, want ErrStalePriceData", err)
	}

	// Fresh observation at the target resolves yes
	env.mustProcess(&event.PriceFeedUpdate{
		FeedID: feedID, Price: 150_00000000, PublishTime: 2000, FeedSequence: 2,
	})
	if err := resolve(2000); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	m, _ := env.core.Market(market)
	if !m.Resolved || !m.Outcome {
		t.Errorf("resolved=%v outcome=%v, want true/true", m.Resolved, m.Outcome)
	}
}

// --- Cards ---

func TestCardBoostedPayout(t *testing.T) {
	env := newTestEnv(t)
	env.initPlatform("auth", "tr", 100)
	env.deposit("alice", 3_000_000_000, 100)
	env.deposit("bob", 3_000_000_000, 100)
	env.deposit("carol", 3_000_000_000, 100)

	if err := env.mintCard("card-1", "alice", 7, 2, 1500, 100); err != nil {
		t.Fatalf("mint: %v", err)
	}

	market := env.createManualMarket("auth", "boosted?", 2000)

	// Same pool shape as the lifecycle test, alice stakes with a 1.5x card
	env.mustProcess(&event.BattleStake{
		RequestID: uuid.New(), Market: market, Bettor: "alice",
		Amount: 1_000_000_000, Prediction: true, CardMint: "card-1",
		Sequence: env.nextSeq(market), Timestamp: 500,
	})
	if err := env.placeBet(market, "bob", 1_500_000_000, true, 500); err != nil {
		t.Fatalf("bob bet: %v", err)
	}
	if err := env.placeBet(market, "carol", 2_000_000_000, false, 500); err != nil {
		t.Fatalf("carol bet: %v", err)
	}
	if err := env.resolveManual(market, "auth", true, 2000); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if err := env.claim(market, "alice", 2100); err != nil {
		t.Fatalf("claim: %v", err)
	}
	// floor(1e9 * 4.41e9 * 1500 / (2.5e9 * 1000))
	want := int64(3_000_000_000 - 1_000_000_000 + 2_646_000_000)
	if got := env.core.WalletBalance("alice"); got != want {
		t.Errorf("alice wallet = %d, want %d", got, want)
	}
}

func TestBattleStakeRequiresOwnedCard(t *testing.T) {
	env := newTestEnv(t)
	env.initPlatform("auth", "tr", 100)
	env.deposit("bob", 1_000_000_000, 100)
	if err := env.mintCard("card-1", "alice", 5, 1, 1200, 100); err != nil {
		t.Fatalf("mint: %v", err)
	}
	market := env.createManualMarket("auth", "whose card?", 2000)

	stake := func(mint string) error {
		return env.process(&event.BattleStake{
			RequestID: uuid.New(), Market: market, Bettor: "bob",
			Amount: 100, Prediction: true, CardMint: mint,
			Sequence: env.nextSeq(market), Timestamp: 500,
		})
	}

	if err := stake("missing-card"); !errors.Is(err, state.ErrCardNotFound) {
		t.Errorf("missing card err = %v, want ErrCardNotFound", err)
	}
	if err := stake("card-1"); !errors.Is(err, state.ErrNotCardOwner) {
		t.Errorf("not-owner err = %v, want ErrNotCardOwner", err)
	}
}

func TestBoostedClaimCannotOverdrawVault(t *testing.T) {
	env := newTestEnv(t)
	env.initPlatform("auth", "tr", 100)
	env.deposit("alice", 2_000_000_000, 100)
	env.deposit("bob", 2_000_000_000, 100)

	if err := env.mintCard("card-max", "alice", 10, 4, 2000, 100); err != nil {
		t.Fatalf("mint: %v", err)
	}

	market := env.createManualMarket("auth", "overdraw?", 2000)

	// Sole winner with a 2x card: boosted payout (~3.92B) exceeds the
	// 2B vault, so the claim must fail rather than mint funds.
	env.mustProcess(&event.BattleStake{
		RequestID: uuid.New(), Market: market, Bettor: "alice",
		Amount: 1_000_000_000, Prediction: true, CardMint: "card-max",
		Sequence: env.nextSeq(market), Timestamp: 500,
	})
	if err := env.placeBet(market, "bob", 1_000_000_000, false, 500); err != nil {
		t.Fatalf("bob bet: %v", err)
	}
	if err := env.resolveManual(market, "auth", true, 2000); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if err := env.claim(market, "alice", 2100); err == nil {
		t.Fatal("overdrawing claim accepted")
	}

	// Escrow untouched by the failed claim
	if got := env.core.VaultBalance(market); got != 2_000_000_000 {
		t.Errorf("vault = %d, want 2000000000", got)
	}
	bet, _ := env.core.Bet(market, "alice")
	if bet.Claimed {
		t.Error("failed claim marked bet claimed")
	}
}

func TestCardStats(t *testing.T) {
	env := newTestEnv(t)
	env.initPlatform("auth", "tr", 100)
	if err := env.mintCard("card-1", "alice", 5, 1, 1200, 100); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := env.mintCard("card-1", "bob", 5, 1, 1200, 100); !errors.Is(err, state.ErrCardExists) {
		t.Errorf("duplicate mint err = %v, want ErrCardExists", err)
	}
	if err := env.mintCard("card-bad", "alice", 11, 1, 1200, 100); !errors.Is(err, state.ErrInvalidCardTraits) {
		t.Errorf("bad traits err = %v, want ErrInvalidCardTraits", err)
	}

	update := func(signer string, won bool) error {
		return env.process(&event.UpdateCardStats{
			RequestID: uuid.New(), Mint: "card-1", Signer: signer, Won: won,
			Sequence: env.nextSeq(""), Timestamp: 200,
		})
	}
	if err := update("bob", true); !errors.Is(err, state.ErrNotCardOwner) {
		t.Errorf("wrong signer err = %v, want ErrNotCardOwner", err)
	}
	if err := update("alice", true); err != nil {
		t.Fatalf("win update: %v", err)
	}
	if err := update("alice", false); err != nil {
		t.Fatalf("loss update: %v", err)
	}
	card, _ := env.core.Card("card-1")
	if card.Wins != 1 || card.Losses != 1 {
		t.Errorf("record = %d-%d, want 1-1", card.Wins, card.Losses)
	}
}

func TestCardBattle(t *testing.T) {
	env := newTestEnv(t)
	env.initPlatform("auth", "tr", 100)
	if err := env.mintCard("strong", "alice", 8, 2, 1500, 100); err != nil {
		t.Fatalf("mint strong: %v", err)
	}
	if err := env.mintCard("weak", "bob", 3, 0, 1100, 100); err != nil {
		t.Fatalf("mint weak: %v", err)
	}
	if err := env.mintCard("equal", "carol", 8, 1, 1200, 100); err != nil {
		t.Fatalf("mint equal: %v", err)
	}

	battle := func(challenger, defender, signer string) error {
		return env.process(&event.BattleCards{
			RequestID: uuid.New(), Challenger: challenger, Defender: defender,
			Signer: signer, Sequence: env.nextSeq(""), Timestamp: 200,
		})
	}

	// Only the challenger card's owner can start a battle.
	if err := battle("strong", "weak", "bob"); !errors.Is(err, state.ErrNotCardOwner) {
		t.Errorf("wrong signer err = %v, want ErrNotCardOwner", err)
	}
	if err := battle("strong", "strong", "alice"); !errors.Is(err, state.ErrBattleSameCard) {
		t.Errorf("self battle err = %v, want ErrBattleSameCard", err)
	}
	if err := battle("strong", "missing", "alice"); !errors.Is(err, state.ErrCardNotFound) {
		t.Errorf("missing defender err = %v, want ErrCardNotFound", err)
	}

	// Higher power wins: both counters move.
	if err := battle("strong", "weak", "alice"); err != nil {
		t.Fatalf("battle: %v", err)
	}
	strong, _ := env.core.Card("strong")
	weak, _ := env.core.Card("weak")
	if strong.Wins != 1 || strong.Losses != 0 {
		t.Errorf("strong record = %d-%d, want 1-0", strong.Wins, strong.Losses)
	}
	if weak.Wins != 0 || weak.Losses != 1 {
		t.Errorf("weak record = %d-%d, want 0-1", weak.Wins, weak.Losses)
	}

	// The weaker challenger loses regardless of who starts the fight.
	if err := battle("weak", "strong", "bob"); err != nil {
		t.Fatalf("rematch: %v", err)
	}
	strong, _ = env.core.Card("strong")
	weak, _ = env.core.Card("weak")
	if strong.Wins != 2 || weak.Losses != 2 {
		t.Errorf("after rematch: strong %d-%d, weak %d-%d",
			strong.Wins, strong.Losses, weak.Wins, weak.Losses)
	}

	// Equal power is a draw: neither record moves.
	if err := battle("strong", "equal", "alice"); err != nil {
		t.Fatalf("draw battle: %v", err)
	}
	strong, _ = env.core.Card("strong")
	equal, _ := env.core.Card("equal")
	if strong.Wins != 2 || strong.Losses != 0 || equal.Wins != 0 || equal.Losses != 0 {
		t.Errorf("draw moved counters: strong %d-%d, equal %d-%d",
			strong.Wins, strong.Losses, equal.Wins, equal.Losses)
	}
}

// --- Funds ---

func TestWithdrawRequiresBalance(t *testing.T) {
	env := newTestEnv(t)
	env.deposit("alice", 1000, 100)

	withdraw := func(amount int64) error {
		return env.process(&event.Withdraw{
			RequestID: uuid.New(), Bettor: "alice", Amount: amount,
			Sequence: env.nextSeq(""), Timestamp: 200,
		})
	}

	if err := withdraw(1001); err == nil {
		t.Error("overdraft withdrawal accepted")
	}
	if err := withdraw(1000); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if got := env.core.WalletBalance("alice"); got != 0 {
		t.Errorf("wallet = %d, want 0", got)
	}
}

// --- Pipeline mechanics ---

func TestDuplicateEventSuppressed(t *testing.T) {
	env := newTestEnv(t)
	env.initPlatform("auth", "tr", 100)

	evt := &event.Deposit{
		RequestID: uuid.New(), Bettor: "alice", Amount: 500,
		Sequence: env.nextSeq(""), Timestamp: 200,
	}
	env.mustProcess(evt)
	hashAfter := env.core.GetStateHash()

	// Redelivery of the same event: accepted silently, no state change
	if err := env.process(evt); err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if env.core.GetStateHash() != hashAfter {
		t.Error("duplicate advanced the state hash")
	}
	if got := env.core.WalletBalance("alice"); got != 500 {
		t.Errorf("wallet = %d, want 500", got)
	}
}

func TestSequenceGapRejected(t *testing.T) {
	env := newTestEnv(t)
	env.initPlatform("auth", "tr", 100)

	evt := &event.Deposit{
		RequestID: uuid.New(), Bettor: "alice", Amount: 500,
		Sequence: 5, // expected 1
		Timestamp: 200,
	}
	if err := env.process(evt); err == nil {
		t.Error("gapped event accepted")
	}

	// Feed sequences tolerate gaps
	if err := env.process(&event.PriceFeedUpdate{
		FeedID: "f", Price: 1, PublishTime: 100, FeedSequence: 50,
	}); err != nil {
		t.Errorf("feed gap rejected: %v", err)
	}
}

func TestHashChainLinks(t *testing.T) {
	env := newTestEnv(t)
	env.initPlatform("auth", "tr", 100)
	env.deposit("alice", 1000, 100)

	outputs := env.drainOutputs()
	if len(outputs) != 2 {
		t.Fatalf("outputs = %d, want 2", len(outputs))
	}
	if outputs[1].Envelope.PrevHash != outputs[0].Envelope.StateHash {
		t.Error("envelope chain broken: prev hash does not link")
	}
	if outputs[0].Envelope.Sequence != 0 || outputs[1].Envelope.Sequence != 1 {
		t.Errorf("sequences = %d, %d", outputs[0].Envelope.Sequence, outputs[1].Envelope.Sequence)
	}
}

func TestFailedEventLeavesNoTrace(t *testing.T) {
	env := newTestEnv(t)
	env.initPlatform("auth", "tr", 100)
	env.drainOutputs()
	hash := env.core.GetStateHash()
	seq := env.core.GetSequence()

	err := env.process(&event.PlaceBet{
		RequestID: uuid.New(), Market: "nope", Bettor: "alice",
		Amount: 100, Prediction: true,
		Sequence: env.nextSeq("nope"), Timestamp: 500,
	})
	if err == nil {
		t.Fatal("expected rejection")
	}
	if env.core.GetStateHash() != hash || env.core.GetSequence() != seq {
		t.Error("rejected event advanced sequence or hash")
	}
	if outputs := env.drainOutputs(); len(outputs) != 0 {
		t.Errorf("rejected event emitted %d outputs", len(outputs))
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.initPlatform("auth", "tr", 100)
	env.deposit("alice", 2_000_000_000, 100)
	env.deposit("bob", 2_000_000_000, 100)
	market := env.createManualMarket("auth", "snapshot?", 2000)
	if err := env.placeBet(market, "alice", 500_000_000, true, 500); err != nil {
		t.Fatalf("bet: %v", err)
	}
	if err := env.mintCard("card-1", "alice", 5, 1, 1200, 100); err != nil {
		t.Fatalf("mint: %v", err)
	}

	snap := env.core.CreateSnapshotState()

	restored := newTestEnv(t)
	restored.core.RestoreFromSnapshot(snap)
	restored.seqs = env.seqs // carry partition counters

	if restored.core.GetSequence() != env.core.GetSequence() {
		t.Errorf("sequence = %d, want %d", restored.core.GetSequence(), env.core.GetSequence())
	}
	if restored.core.GetStateHash() != env.core.GetStateHash() {
		t.Error("state hash not carried through snapshot")
	}
	if got := restored.core.WalletBalance("alice"); got != 1_500_000_000 {
		t.Errorf("alice wallet = %d, want 1500000000", got)
	}
	if got := restored.core.VaultBalance(market); got != 500_000_000 {
		t.Errorf("vault = %d, want 500000000", got)
	}
	if _, ok := restored.core.Card("card-1"); !ok {
		t.Error("card lost in snapshot")
	}

	// Both cores process the same next event and land on the same hash
	next := func(e *testEnv) {
		t.Helper()
		if err := e.placeBet(market, "bob", 300_000_000, false, 600); err != nil {
			t.Fatalf("post-restore bet: %v", err)
		}
	}
	savedSeqs := make(map[string]int64, len(env.seqs))
	for k, v := range env.seqs {
		savedSeqs[k] = v
	}
	next(env)
	restored.seqs = savedSeqs
	next(restored)

	if env.core.GetStateHash() != restored.core.GetStateHash() {
		t.Error("hashes diverged after restore")
	}

	// The first journal written after restore carries the same sequence as
	// its envelope: the generator resumes in step with the engine.
	outputs := restored.drainOutputs()
	if len(outputs) != 1 {
		t.Fatalf("expected 1 output after restore, got %d", len(outputs))
	}
	if got, want := outputs[0].Batch.Sequence, outputs[0].Envelope.Sequence; got != want {
		t.Errorf("journal sequence = %d, envelope sequence = %d", got, want)
	}
}

func TestGlobalZeroSum(t *testing.T) {
	env := newTestEnv(t)
	env.initPlatform("auth", "tr", 100)
	env.deposit("alice", 1_000_000, 100)
	env.deposit("bob", 2_000_000, 100)
	market := env.createManualMarket("auth", "zero sum?", 2000)
	if err := env.placeBet(market, "alice", 400_000, true, 500); err != nil {
		t.Fatalf("bet: %v", err)
	}
	if err := env.placeBet(market, "bob", 600_000, false, 500); err != nil {
		t.Fatalf("bet: %v", err)
	}
	if err := env.resolveManual(market, "auth", true, 2000); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := env.claim(market, "alice", 2100); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := env.collectFee(market, "auth", 2200); err != nil {
		t.Fatalf("fee: %v", err)
	}

	// Fully settled market: sole winner took the net pool, treasury the
	// fee, vault emptied, and all internal accounts together equal the
	// total deposited.
	aliceWallet := env.core.WalletBalance("alice")
	bobWallet := env.core.WalletBalance("bob")
	if aliceWallet != 1_580_000 {
		t.Errorf("alice wallet = %d, want 1580000", aliceWallet)
	}
	if bobWallet != 1_400_000 {
		t.Errorf("bob wallet = %d, want 1400000", bobWallet)
	}
	if got := env.core.VaultBalance(market); got != 0 {
		t.Errorf("vault = %d, want 0", got)
	}
	if got := env.core.TreasuryBalance(); got != 20_000 {
		t.Errorf("treasury = %d, want 20000", got)
	}
	if total := aliceWallet + bobWallet + env.core.TreasuryBalance(); total != 3_000_000 {
		t.Errorf("internal total = %d, want 3000000", total)
	}
}

func TestCreateMarketValidation(t *testing.T) {
	env := newTestEnv(t)

	// Platform must exist first
	evt := manualMarket("auth", "too early?", 2000)
	evt.Sequence = env.nextSeq(state.DeriveMarketAddress("auth", evt.Question))
	if err := env.process(evt); !errors.Is(err, state.ErrPlatformNotInitialized) {
		t.Errorf("err = %v, want ErrPlatformNotInitialized", err)
	}

	env.initPlatform("auth", "tr", 100)

	long := make([]byte, 101)
	for i := range long {
		long[i] = 'q'
	}
	evt = manualMarket("auth", string(long), 2000)
	evt.Sequence = env.nextSeq(state.DeriveMarketAddress("auth", evt.Question))
	if err := env.process(evt); !errors.Is(err, state.ErrQuestionTooLong) {
		t.Errorf("long question err = %v, want ErrQuestionTooLong", err)
	}

	evt = manualMarket("auth", "past?", 99)
	evt.Sequence = env.nextSeq(state.DeriveMarketAddress("auth", evt.Question))
	if err := env.process(evt); !errors.Is(err, state.ErrInvalidEndTime) {
		t.Errorf("past end err = %v, want ErrInvalidEndTime", err)
	}

	// Oracle optionals must match the declared data type exactly
	feed := "pyth:X"
	evt = manualMarket("auth", "stray field?", 2000)
	evt.PriceFeed = &feed
	evt.Sequence = env.nextSeq(state.DeriveMarketAddress("auth", evt.Question))
	if err := env.process(evt); !errors.Is(err, state.ErrOracleConfigRequired) {
		t.Errorf("stray optional err = %v, want ErrOracleConfigRequired", err)
	}

	// Same creator+question collides
	market := env.createManualMarket("auth", "unique?", 2000)
	dup := manualMarket("auth", "unique?", 3000)
	dup.Sequence = env.nextSeq(market)
	if err := env.process(dup); !errors.Is(err, state.ErrMarketExists) {
		t.Errorf("duplicate market err = %v, want ErrMarketExists", err)
	}

	p, err := env.core.Platform()
	if err != nil {
		t.Fatalf("platform: %v", err)
	}
	if p.TotalMarkets != 1 {
		t.Errorf("TotalMarkets = %d, want 1", p.TotalMarkets)
	}
}

func TestNoWinningBets(t *testing.T) {
	env := newTestEnv(t)
	env.initPlatform("auth", "tr", 100)
	env.deposit("alice", 1_000_000, 100)
	market := env.createManualMarket("auth", "one sided?", 2000)
	if err := env.placeBet(market, "alice", 500_000, false, 500); err != nil {
		t.Fatalf("bet: %v", err)
	}
	// Everyone bet no, outcome is yes: claims hit the empty winning pool
	if err := env.resolveManual(market, "auth", true, 2000); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := env.claim(market, "alice", 2100); !errors.Is(err, state.ErrLosingBet) {
		t.Errorf("err = %v, want ErrLosingBet", err)
	}
}

func TestZeroPayoutClaimStillSettles(t *testing.T) {
	env := newTestEnv(t)
	env.initPlatform("auth", "tr", 100)
	env.deposit("alice", 1_000_000, 100)
	env.deposit("bob", 1_000_000, 100)
	market := env.createManualMarket("auth", "dust share?", 2000)

	// One-sided pool of 100: fee=2, net=98. Alice's 1-unit share floors
	// to floor(1*98/100) = 0.
	if err := env.placeBet(market, "alice", 1, true, 500); err != nil {
		t.Fatalf("alice bet: %v", err)
	}
	if err := env.placeBet(market, "bob", 99, true, 500); err != nil {
		t.Fatalf("bob bet: %v", err)
	}
	if err := env.resolveManual(market, "auth", true, 2000); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	walletBefore := env.core.WalletBalance("alice")
	if err := env.claim(market, "alice", 2100); err != nil {
		t.Fatalf("zero-payout claim: %v", err)
	}
	if got := env.core.WalletBalance("alice"); got != walletBefore {
		t.Errorf("alice wallet = %d, want unchanged %d", got, walletBefore)
	}
	bet, ok := env.core.Bet(market, "alice")
	if !ok || !bet.Claimed {
		t.Errorf("bet not marked claimed after zero payout")
	}
	if err := env.claim(market, "alice", 2200); !errors.Is(err, state.ErrAlreadyClaimed) {
		t.Errorf("reclaim err = %v, want ErrAlreadyClaimed", err)
	}

	// Bob's share is unaffected by the dust claim.
	if err := env.claim(market, "bob", 2100); err != nil {
		t.Fatalf("bob claim: %v", err)
	}
	if got := env.core.WalletBalance("bob"); got != 1_000_000-99+97 {
		t.Errorf("bob wallet = %d, want %d", got, 1_000_000-99+97)
	}
}
