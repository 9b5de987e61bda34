package projection

import (
	"testing"

	"PredictionLedger/internal/escrow"
)

const (
	bettorA = "5d41402abc4b2a76b9719d911017c592"
	bettorB = "7d793037a0760186574b0282f2f435e7"
	market1 = "2e7d2c03a9507ae265ecf5b5356885a5"
)

func strPtr(s string) *string { return &s }

// journalEntries converts generator output the way the orchestrator bridge
// does before handing it to the projection worker.
func journalEntries(t *testing.T, tracker *escrow.BalanceTracker, batch *escrow.Batch) []JournalEntry {
	t.Helper()
	if err := tracker.ApplyBatch(batch); err != nil {
		t.Fatalf("apply batch: %v", err)
	}
	entries := make([]JournalEntry, 0, len(batch.Journals))
	for _, j := range batch.Journals {
		entries = append(entries, JournalEntry{
			JournalID:     j.JournalID.String(),
			DebitAccount:  j.DebitAccount.AccountPath(),
			CreditAccount: j.CreditAccount.AccountPath(),
			AssetID:       uint16(j.AssetID),
			Amount:        j.Amount,
			JournalType:   int32(j.JournalType),
		})
	}
	return entries
}

func TestBettorFromAccountPath(t *testing.T) {
	cases := []struct {
		path   string
		bettor string
		ok     bool
	}{
		{"bettor:" + bettorA + ":wallet:SOL", bettorA, true},
		{"bettor:" + bettorA + ":wallet:USDC", bettorA, true},
		{"vault:" + market1 + ":SOL", "", false},
		{"system:treasury:SOL", "", false},
		{"external:deposits:SOL", "", false},
		{"bettor:" + bettorA + ":escrow:SOL", "", false},
	}

	for _, tc := range cases {
		bettor, ok := bettorFromAccountPath(tc.path)
		if ok != tc.ok || bettor != tc.bettor {
			t.Errorf("%s: got (%q, %v), want (%q, %v)", tc.path, bettor, ok, tc.bettor, tc.ok)
		}
	}
}

// Settlement history amounts must carry the wallet's point of view: a stake
// leaves the wallet (negative), a payout arrives (positive), matching the
// direction escrow.BalanceTracker applies the same journals.
func TestRecordSettlements_StakeAndPayout(t *testing.T) {
	tracker := escrow.NewBalanceTracker()
	gen := escrow.NewJournalGenerator(10, tracker)
	pw := &ProjectionWorker{settlement: NewSettlementHistoryProjection()}

	deposit, err := gen.GenerateDeposit("evt-1", bettorA, 10_000_000, escrow.NativeAsset, 1700000000000000)
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	pw.recordSettlements(ProjectionOutput{
		Sequence:       10,
		Timestamp:      1700000000000000,
		JournalEntries: journalEntries(t, tracker, deposit),
	})

	stake, err := gen.GenerateBetStake("evt-2", bettorA, market1, 5_000_000, escrow.NativeAsset, 1700000001000000)
	if err != nil {
		t.Fatalf("stake: %v", err)
	}
	pw.recordSettlements(ProjectionOutput{
		Sequence:       11,
		MarketAddr:     strPtr(market1),
		Timestamp:      1700000001000000,
		JournalEntries: journalEntries(t, tracker, stake),
	})

	payout, err := gen.GenerateWinningsPayout("evt-3", bettorA, market1, 4_900_000, escrow.NativeAsset, 1700000002000000)
	if err != nil {
		t.Fatalf("payout: %v", err)
	}
	pw.recordSettlements(ProjectionOutput{
		Sequence:       12,
		MarketAddr:     strPtr(market1),
		Timestamp:      1700000002000000,
		JournalEntries: journalEntries(t, tracker, payout),
	})

	entries := pw.SettlementHistory().QueryByBettor(bettorA, 10)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	// Most recent first.
	if entries[0].Amount != 4_900_000 {
		t.Errorf("payout amount = %d, want 4900000", entries[0].Amount)
	}
	if entries[1].Amount != -5_000_000 {
		t.Errorf("stake amount = %d, want -5000000 (wallet outflow)", entries[1].Amount)
	}
	if entries[2].Amount != 10_000_000 {
		t.Errorf("deposit amount = %d, want 10000000", entries[2].Amount)
	}

	// Summing the history must land on the tracker's wallet balance.
	var total int64
	for _, e := range entries {
		total += e.Amount
	}
	if want := tracker.GetWalletBalance(bettorA, escrow.NativeAsset); total != want {
		t.Errorf("settlement sum = %d, tracker wallet = %d", total, want)
	}
}

func TestRecordSettlements_SkipsNonBettorLegs(t *testing.T) {
	tracker := escrow.NewBalanceTracker()
	gen := escrow.NewJournalGenerator(20, tracker)
	pw := &ProjectionWorker{settlement: NewSettlementHistoryProjection()}

	deposit, _ := gen.GenerateDeposit("evt-1", bettorB, 1_000_000, escrow.NativeAsset, 0)
	if err := tracker.ApplyBatch(deposit); err != nil {
		t.Fatalf("fund wallet: %v", err)
	}
	stake, _ := gen.GenerateBetStake("evt-2", bettorB, market1, 1_000_000, escrow.NativeAsset, 0)
	if err := tracker.ApplyBatch(stake); err != nil {
		t.Fatalf("fund vault: %v", err)
	}

	// Fee collection moves vault -> treasury: no bettor wallet involved.
	fee, err := gen.GeneratePlatformFee("evt-3", market1, 20_000, escrow.NativeAsset, 0)
	if err != nil {
		t.Fatalf("fee: %v", err)
	}
	pw.recordSettlements(ProjectionOutput{
		Sequence:       22,
		MarketAddr:     strPtr(market1),
		JournalEntries: journalEntries(t, tracker, fee),
	})

	if got := pw.SettlementHistory().QueryByMarket(market1, 10); len(got) != 0 {
		t.Errorf("expected no entries for treasury sweep, got %d", len(got))
	}
}

func TestQueryByBettor_LimitAndIsolation(t *testing.T) {
	p := NewSettlementHistoryProjection()
	for i := int64(0); i < 5; i++ {
		p.AddEntry(SettlementEntry{Bettor: bettorA, MarketAddr: market1, Amount: i, Sequence: i})
	}
	p.AddEntry(SettlementEntry{Bettor: bettorB, MarketAddr: market1, Amount: 99, Sequence: 100})

	got := p.QueryByBettor(bettorA, 3)
	if len(got) != 3 {
		t.Fatalf("limit not applied, got %d entries", len(got))
	}
	if got[0].Sequence != 4 {
		t.Errorf("expected newest entry first, got seq %d", got[0].Sequence)
	}
	for _, e := range got {
		if e.Bettor != bettorA {
			t.Errorf("leaked entry for %s", e.Bettor)
		}
	}
}
