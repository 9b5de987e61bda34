package projection

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"PredictionLedger/internal/observability"
)

// ProjectionOutput mirrors the data projection workers need. The
// orchestrator bridges between core.CoreOutput and this.
type ProjectionOutput struct {
	Sequence       int64
	EventType      string
	MarketAddr     *string
	JournalEntries []JournalEntry
	Market         *MarketState
	Bet            *BetState
	Card           *CardState
	Card2          *CardState
	Timestamp      int64
}

// JournalEntry is a simplified journal for projection consumption.
type JournalEntry struct {
	JournalID     string
	DebitAccount  string
	CreditAccount string
	AssetID       uint16
	Amount        int64
	JournalType   int32
}

// MarketState is the post-event market record.
type MarketState struct {
	Address        string
	Creator        string
	Question       string
	Description    string
	Category       int32
	OracleSource   int32
	OracleDataType int32
	EndTime        int64
	CreatedAt      int64
	Resolved       bool
	Outcome        bool
	TotalYesAmount int64
	TotalNoAmount  int64
	FeeCollected   bool
	Version        int64
}

// BetState is the post-event bet record.
type BetState struct {
	Address    string
	MarketAddr string
	Bettor     string
	Amount     int64
	Prediction bool
	Claimed    bool
	CardMint   string
	Multiplier int64
	PlacedAt   int64
	Version    int64
}

// CardState is the post-event card record.
type CardState struct {
	Mint       string
	Owner      string
	Power      int16
	Rarity     int16
	Multiplier int64
	Wins       int64
	Losses     int64
	MintedAt   int64
	Version    int64
}

// ProjectionWorker updates projection tables from processed events. The
// projection channel is non-blocking with drop; if projections fall behind,
// they can be rebuilt from the event log.
type ProjectionWorker struct {
	db         *sql.DB
	inputChan  <-chan ProjectionOutput
	metrics    *observability.Metrics
	settlement *SettlementHistoryProjection
	lastSeq    int64
}

func NewProjectionWorker(db *sql.DB, inputChan <-chan ProjectionOutput, metrics *observability.Metrics) *ProjectionWorker {
	return &ProjectionWorker{
		db:         db,
		inputChan:  inputChan,
		metrics:    metrics,
		settlement: NewSettlementHistoryProjection(),
	}
}

// SettlementHistory exposes the in-memory per-bettor escrow history.
func (pw *ProjectionWorker) SettlementHistory() *SettlementHistoryProjection {
	return pw.settlement
}

// Run starts the projection worker loop.
func (pw *ProjectionWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case output, ok := <-pw.inputChan:
			if !ok {
				return nil
			}

			if err := pw.processOutput(ctx, output); err != nil {
				log.Printf("WARN: projection update failed at seq=%d: %v", output.Sequence, err)
				// Continue: projections are eventually consistent
				// and can be rebuilt from the event log
			}

			pw.recordSettlements(output)
			pw.lastSeq = output.Sequence
		}
	}
}

func (pw *ProjectionWorker) processOutput(ctx context.Context, output ProjectionOutput) error {
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Update balance projections from journal entries
	if len(output.JournalEntries) > 0 {
		start := time.Now()
		for _, j := range output.JournalEntries {
			if err := pw.updateBalanceProjection(ctx, tx, j, output.Sequence); err != nil {
				return fmt.Errorf("balance projection: %w", err)
			}
		}
		pw.observe("balance", start)
	}

	if output.Market != nil {
		start := time.Now()
		if err := pw.upsertMarket(ctx, tx, output.Market, output.Sequence); err != nil {
			return fmt.Errorf("market projection: %w", err)
		}
		pw.observe("market", start)
	}
	if output.Bet != nil {
		start := time.Now()
		if err := pw.upsertBet(ctx, tx, output.Bet, output.Sequence); err != nil {
			return fmt.Errorf("bet projection: %w", err)
		}
		pw.observe("bet", start)
	}
	if output.Card != nil {
		start := time.Now()
		if err := pw.upsertCard(ctx, tx, output.Card, output.Sequence); err != nil {
			return fmt.Errorf("card projection: %w", err)
		}
		pw.observe("card", start)
	}
	if output.Card2 != nil {
		start := time.Now()
		if err := pw.upsertCard(ctx, tx, output.Card2, output.Sequence); err != nil {
			return fmt.Errorf("card projection: %w", err)
		}
		pw.observe("card", start)
	}

	// Update projection watermark
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.watermark (worker_id, last_sequence, updated_at)
		VALUES ('main', $1, NOW())
		ON CONFLICT (worker_id) DO UPDATE SET last_sequence = $1, updated_at = NOW()
	`, output.Sequence); err != nil {
		return fmt.Errorf("watermark update: %w", err)
	}

	return tx.Commit()
}

func (pw *ProjectionWorker) observe(kind string, start time.Time) {
	if pw.metrics != nil {
		pw.metrics.ProjectionUpdateDur.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
}

// recordSettlements feeds the in-memory settlement history from journal
// entries that touch a bettor wallet. A wallet on the debit side receives
// funds (positive amount); on the credit side it gives them up (negative).
func (pw *ProjectionWorker) recordSettlements(output ProjectionOutput) {
	marketAddr := ""
	if output.MarketAddr != nil {
		marketAddr = *output.MarketAddr
	}

	for _, j := range output.JournalEntries {
		if bettor, ok := bettorFromAccountPath(j.DebitAccount); ok {
			pw.settlement.AddEntry(SettlementEntry{
				Bettor:     bettor,
				MarketAddr: marketAddr,
				Kind:       j.JournalType,
				Amount:     j.Amount,
				JournalID:  j.JournalID,
				Sequence:   output.Sequence,
				Timestamp:  output.Timestamp,
			})
		}
		if bettor, ok := bettorFromAccountPath(j.CreditAccount); ok {
			pw.settlement.AddEntry(SettlementEntry{
				Bettor:     bettor,
				MarketAddr: marketAddr,
				Kind:       j.JournalType,
				Amount:     -j.Amount,
				JournalID:  j.JournalID,
				Sequence:   output.Sequence,
				Timestamp:  output.Timestamp,
			})
		}
	}
}

// bettorFromAccountPath extracts the bettor address from a wallet
// account path of the form "bettor:<addr>:wallet:<asset>".
func bettorFromAccountPath(path string) (string, bool) {
	if !strings.HasPrefix(path, "bettor:") {
		return "", false
	}
	parts := strings.Split(path, ":")
	if len(parts) != 4 || parts[2] != "wallet" {
		return "", false
	}
	return parts[1], true
}

// updateBalanceProjection applies one journal with the same convention as
// escrow.BalanceTracker.ApplyJournal: the debit account receives the amount,
// the credit account gives it up.
func (pw *ProjectionWorker) updateBalanceProjection(ctx context.Context, tx *sql.Tx, j JournalEntry, seq int64) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, asset_id, balance, last_sequence)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_path, asset_id)
		DO UPDATE SET balance = projections.balances.balance + $3, last_sequence = $4
	`, j.DebitAccount, j.AssetID, j.Amount, seq); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, asset_id, balance, last_sequence)
		VALUES ($1, $2, -$3, $4)
		ON CONFLICT (account_path, asset_id)
		DO UPDATE SET balance = projections.balances.balance - $3, last_sequence = $4
	`, j.CreditAccount, j.AssetID, j.Amount, seq); err != nil {
		return err
	}

	return nil
}

// upsertMarket writes the full post-event market state. Version guards
// against redelivered outputs applying out of order.
func (pw *ProjectionWorker) upsertMarket(ctx context.Context, tx *sql.Tx, m *MarketState, seq int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO projections.markets
			(address, creator, question, description, category,
			 oracle_source, oracle_data_type, end_time, created_at,
			 resolved, outcome, total_yes_amount, total_no_amount,
			 fee_collected, version, last_sequence)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (address) DO UPDATE SET
			resolved = $10, outcome = $11,
			total_yes_amount = $12, total_no_amount = $13,
			fee_collected = $14, version = $15, last_sequence = $16
		WHERE projections.markets.version < $15
	`, m.Address, m.Creator, m.Question, m.Description, m.Category,
		m.OracleSource, m.OracleDataType, m.EndTime, m.CreatedAt,
		m.Resolved, m.Outcome, m.TotalYesAmount, m.TotalNoAmount,
		m.FeeCollected, m.Version, seq)
	return err
}

func (pw *ProjectionWorker) upsertBet(ctx context.Context, tx *sql.Tx, b *BetState, seq int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO projections.bets
			(address, market_addr, bettor, amount, prediction, claimed,
			 card_mint, multiplier, placed_at, version, last_sequence)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (address) DO UPDATE SET
			claimed = $6, version = $10, last_sequence = $11
		WHERE projections.bets.version < $10
	`, b.Address, b.MarketAddr, b.Bettor, b.Amount, b.Prediction, b.Claimed,
		b.CardMint, b.Multiplier, b.PlacedAt, b.Version, seq)
	return err
}

func (pw *ProjectionWorker) upsertCard(ctx context.Context, tx *sql.Tx, c *CardState, seq int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO projections.cards
			(mint, owner, power, rarity, multiplier, wins, losses,
			 minted_at, version, last_sequence)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (mint) DO UPDATE SET
			wins = $6, losses = $7, version = $9, last_sequence = $10
		WHERE projections.cards.version < $9
	`, c.Mint, c.Owner, c.Power, c.Rarity, c.Multiplier, c.Wins, c.Losses,
		c.MintedAt, c.Version, seq)
	return err
}

// RebuildProjections rebuilds balance projections from the event log.
// Record projections (markets, bets, cards) are restored from the latest
// snapshot followed by replay, so only balances need the SQL rebuild.
func RebuildProjections(ctx context.Context, db *sql.DB) error {
	truncateStatements := []string{
		`TRUNCATE projections.balances`,
		`DELETE FROM projections.watermark WHERE worker_id = 'main'`,
	}

	for _, stmt := range truncateStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("truncate failed: %w", err)
		}
	}

	// Rebuild from journal entries: debit accounts accumulate, credit
	// accounts drain, matching escrow.BalanceTracker.ApplyJournal.
	_, err := db.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, asset_id, balance, last_sequence)
		SELECT
			debit_account AS account_path,
			asset_id,
			SUM(amount) AS balance,
			MAX(sequence) AS last_sequence
		FROM event_log.journal
		GROUP BY debit_account, asset_id
		ON CONFLICT (account_path, asset_id) DO UPDATE
			SET balance = EXCLUDED.balance, last_sequence = EXCLUDED.last_sequence
	`)
	if err != nil {
		return fmt.Errorf("rebuild debit balances: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, asset_id, balance, last_sequence)
		SELECT
			credit_account AS account_path,
			asset_id,
			-SUM(amount) AS balance,
			MAX(sequence) AS last_sequence
		FROM event_log.journal
		GROUP BY credit_account, asset_id
		ON CONFLICT (account_path, asset_id) DO UPDATE
			SET balance = projections.balances.balance + EXCLUDED.balance,
			    last_sequence = GREATEST(projections.balances.last_sequence, EXCLUDED.last_sequence)
	`)
	if err != nil {
		return fmt.Errorf("rebuild credit balances: %w", err)
	}

	log.Println("INFO: projection rebuild complete")
	return nil
}
