package escrow

import (
	"fmt"

	"github.com/google/uuid"
)

// JournalGenerator creates balanced journal batches from settlement operations
type JournalGenerator struct {
	sequence       int64
	balanceTracker *BalanceTracker
}

func NewJournalGenerator(startSequence int64, tracker *BalanceTracker) *JournalGenerator {
	return &JournalGenerator{
		sequence:       startSequence,
		balanceTracker: tracker,
	}
}

// Sequence returns the next sequence the generator will assign.
func (jg *JournalGenerator) Sequence() int64 {
	return jg.sequence
}

// SetSequence resets the generator after a snapshot restore.
func (jg *JournalGenerator) SetSequence(seq int64) {
	jg.sequence = seq
}

func (jg *JournalGenerator) newBatch(eventRef string, timestamp int64) *Batch {
	return &Batch{
		BatchID:   uuid.New(),
		EventRef:  eventRef,
		Sequence:  jg.sequence,
		Timestamp: timestamp,
		Journals:  make([]Journal, 0, 1),
	}
}

func (jg *JournalGenerator) appendJournal(b *Batch, debit, credit AccountKey, amount int64, jt JournalType) {
	b.Journals = append(b.Journals, Journal{
		JournalID:     uuid.New(),
		BatchID:       b.BatchID,
		EventRef:      b.EventRef,
		Sequence:      jg.sequence,
		DebitAccount:  debit,
		CreditAccount: credit,
		AssetID:       debit.AssetID,
		Amount:        amount,
		JournalType:   jt,
		Timestamp:     b.Timestamp,
	})
}

// GenerateDeposit credits a bettor's wallet from the external boundary.
// Moves funds: external:deposits → bettor:wallet
func (jg *JournalGenerator) GenerateDeposit(
	eventRef string,
	bettor string,
	amount int64,
	assetID AssetID,
	timestamp int64,
) (*Batch, error) {
	batch := jg.newBatch(eventRef, timestamp)
	jg.appendJournal(batch,
		NewBettorAccountKey(bettor, assetID),
		NewExternalAccountKey(SubTypeExternalDeposits, assetID),
		amount, JournalTypeDeposit)
	jg.sequence++
	return batch, nil
}

// GenerateWithdrawal returns wallet funds to the external boundary.
// Pre-check: bettor must have sufficient wallet balance.
// Moves funds: bettor:wallet → external:withdrawals
func (jg *JournalGenerator) GenerateWithdrawal(
	eventRef string,
	bettor string,
	amount int64,
	assetID AssetID,
	timestamp int64,
) (*Batch, error) {
	if err := jg.balanceTracker.ValidateSufficientWallet(bettor, assetID, amount); err != nil {
		return nil, fmt.Errorf("withdrawal pre-check failed: %w", err)
	}

	batch := jg.newBatch(eventRef, timestamp)
	jg.appendJournal(batch,
		NewExternalAccountKey(SubTypeExternalWithdrawals, assetID),
		NewBettorAccountKey(bettor, assetID),
		amount, JournalTypeWithdrawal)
	jg.sequence++
	return batch, nil
}

// GenerateBetStake escrows a stake into the market vault.
// Pre-check: bettor must have sufficient wallet balance.
// Moves funds: bettor:wallet → vault(market)
func (jg *JournalGenerator) GenerateBetStake(
	eventRef string,
	bettor string,
	marketAddr string,
	amount int64,
	assetID AssetID,
	timestamp int64,
) (*Batch, error) {
	if err := jg.balanceTracker.ValidateSufficientWallet(bettor, assetID, amount); err != nil {
		return nil, fmt.Errorf("stake pre-check failed: %w", err)
	}

	batch := jg.newBatch(eventRef, timestamp)
	jg.appendJournal(batch,
		NewVaultAccountKey(marketAddr, assetID),
		NewBettorAccountKey(bettor, assetID),
		amount, JournalTypeBetStake)
	jg.sequence++
	return batch, nil
}

// GenerateWinningsPayout releases a winner's share from the market vault.
// Pre-check: the vault must cover the payout. A card-boosted payout that
// exceeds what remains in the vault is rejected rather than overdrawing.
// Moves funds: vault(market) → bettor:wallet
func (jg *JournalGenerator) GenerateWinningsPayout(
	eventRef string,
	bettor string,
	marketAddr string,
	payout int64,
	assetID AssetID,
	timestamp int64,
) (*Batch, error) {
	if err := jg.balanceTracker.ValidateSufficientVault(marketAddr, assetID, payout); err != nil {
		return nil, fmt.Errorf("payout pre-check failed: %w", err)
	}

	batch := jg.newBatch(eventRef, timestamp)
	jg.appendJournal(batch,
		NewBettorAccountKey(bettor, assetID),
		NewVaultAccountKey(marketAddr, assetID),
		payout, JournalTypeWinningsPayout)
	jg.sequence++
	return batch, nil
}

// GeneratePlatformFee drains the resolved market's fee into the treasury.
// Pre-check: the vault must still hold the fee amount.
// Moves funds: vault(market) → system:treasury
func (jg *JournalGenerator) GeneratePlatformFee(
	eventRef string,
	marketAddr string,
	fee int64,
	assetID AssetID,
	timestamp int64,
) (*Batch, error) {
	if err := jg.balanceTracker.ValidateSufficientVault(marketAddr, assetID, fee); err != nil {
		return nil, fmt.Errorf("fee pre-check failed: %w", err)
	}

	batch := jg.newBatch(eventRef, timestamp)
	jg.appendJournal(batch,
		NewTreasuryAccountKey(assetID),
		NewVaultAccountKey(marketAddr, assetID),
		fee, JournalTypePlatformFee)
	jg.sequence++
	return batch, nil
}
