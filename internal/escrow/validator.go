package escrow

import (
	"fmt"
)

// InvariantValidator checks escrow invariants
type InvariantValidator struct {
	tracker *BalanceTracker
}

func NewInvariantValidator(tracker *BalanceTracker) *InvariantValidator {
	return &InvariantValidator{
		tracker: tracker,
	}
}

// ValidateBatchBalance verifies the batch is balanced
func (v *InvariantValidator) ValidateBatchBalance(batch *Batch) error {
	return batch.Validate()
}

// ValidateVaultNonNegative checks a market vault never overdraws
func (v *InvariantValidator) ValidateVaultNonNegative(marketAddr string, assetID AssetID) error {
	return v.tracker.ValidateNonNegative(NewVaultAccountKey(marketAddr, assetID))
}

// ValidateWalletNonNegative checks a bettor wallet never overdraws
func (v *InvariantValidator) ValidateWalletNonNegative(bettor string, assetID AssetID) error {
	return v.tracker.ValidateNonNegative(NewBettorAccountKey(bettor, assetID))
}

// ValidateTreasuryNonNegative checks collected fees never go negative
func (v *InvariantValidator) ValidateTreasuryNonNegative(assetID AssetID) error {
	return v.tracker.ValidateNonNegative(NewTreasuryAccountKey(assetID))
}

// ValidateGlobalBalance verifies the system is zero-sum
func (v *InvariantValidator) ValidateGlobalBalance() error {
	totals := v.tracker.ComputeGlobalBalance()

	for assetID, total := range totals {
		if total != 0 {
			assetName, _ := GetAssetName(assetID)
			return fmt.Errorf("global balance for %s is non-zero: %d", assetName, total)
		}
	}

	return nil
}
