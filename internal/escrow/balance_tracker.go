package escrow

import (
	"fmt"
)

// BalanceTracker maintains in-memory account balances
type BalanceTracker struct {
	balances map[AccountKey]int64
}

func NewBalanceTracker() *BalanceTracker {
	return &BalanceTracker{
		balances: make(map[AccountKey]int64),
	}
}

// ApplyJournal applies a single journal entry to balances
func (bt *BalanceTracker) ApplyJournal(j Journal) {
	bt.balances[j.DebitAccount] += j.Amount
	bt.balances[j.CreditAccount] -= j.Amount
}

// ApplyBatch applies all journals in a batch
func (bt *BalanceTracker) ApplyBatch(batch *Batch) error {
	if err := batch.Validate(); err != nil {
		return fmt.Errorf("invalid batch: %w", err)
	}

	for _, j := range batch.Journals {
		bt.ApplyJournal(j)
	}

	return nil
}

// GetBalance returns the current balance for an account
func (bt *BalanceTracker) GetBalance(key AccountKey) int64 {
	return bt.balances[key]
}

// GetWalletBalance returns a bettor's spendable balance
func (bt *BalanceTracker) GetWalletBalance(bettor string, assetID AssetID) int64 {
	return bt.GetBalance(NewBettorAccountKey(bettor, assetID))
}

// GetVaultBalance returns the escrowed pool balance for a market
func (bt *BalanceTracker) GetVaultBalance(marketAddr string, assetID AssetID) int64 {
	return bt.GetBalance(NewVaultAccountKey(marketAddr, assetID))
}

// GetTreasuryBalance returns accumulated platform fees
func (bt *BalanceTracker) GetTreasuryBalance(assetID AssetID) int64 {
	return bt.GetBalance(NewTreasuryAccountKey(assetID))
}

// === Invariant Checks ===

// ValidateSufficientWallet checks the bettor can cover a stake
func (bt *BalanceTracker) ValidateSufficientWallet(bettor string, assetID AssetID, required int64) error {
	available := bt.GetWalletBalance(bettor, assetID)
	if available < required {
		return fmt.Errorf("insufficient wallet balance for %s: have=%d, need=%d", bettor, available, required)
	}
	return nil
}

// ValidateSufficientVault checks the vault can cover a payout or fee drain
func (bt *BalanceTracker) ValidateSufficientVault(marketAddr string, assetID AssetID, required int64) error {
	balance := bt.GetVaultBalance(marketAddr, assetID)
	if balance < required {
		return fmt.Errorf("insufficient vault balance for %s: have=%d, need=%d", marketAddr, balance, required)
	}
	return nil
}

// ValidateNonNegative checks that a specific account balance is >= 0
func (bt *BalanceTracker) ValidateNonNegative(key AccountKey) error {
	balance := bt.GetBalance(key)
	if balance < 0 {
		return fmt.Errorf("account %s has negative balance: %d", key.AccountPath(), balance)
	}
	return nil
}

// ComputeGlobalBalance sums all account balances (should be 0 for zero-sum ledger)
func (bt *BalanceTracker) ComputeGlobalBalance() map[AssetID]int64 {
	totals := make(map[AssetID]int64)

	for key, balance := range bt.balances {
		totals[key.AssetID] += balance
	}

	return totals
}

// Snapshot returns a copy of all balances (for state hashing)
func (bt *BalanceTracker) Snapshot() map[AccountKey]int64 {
	snapshot := make(map[AccountKey]int64, len(bt.balances))
	for k, v := range bt.balances {
		snapshot[k] = v
	}
	return snapshot
}

// Restore replaces all balances from a snapshot
func (bt *BalanceTracker) Restore(snapshot map[AccountKey]int64) {
	bt.balances = make(map[AccountKey]int64, len(snapshot))
	for k, v := range snapshot {
		bt.balances[k] = v
	}
}
