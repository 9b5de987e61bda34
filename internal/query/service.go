package query

import (
	"context"
	"database/sql"
	"fmt"

	"PredictionLedger/internal/escrow"
	fpmath "PredictionLedger/internal/math"
)

// ErrNotFound is returned when the requested record does not exist in the
// projections.
var ErrNotFound = sql.ErrNoRows

// QueryService provides read-only access to projection tables. All
// responses include as_of_sequence for freshness semantics.
type QueryService struct {
	db *sql.DB
}

func NewQueryService(db *sql.DB) *QueryService {
	return &QueryService{db: db}
}

// GetBalance returns a bettor's wallet balance plus the total still locked
// in open stakes.
func (qs *QueryService) GetBalance(ctx context.Context, bettor string) (*BalanceResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	walletPath := escrow.NewBettorAccountKey(bettor, escrow.NativeAsset).AccountPath()
	wallet, err := qs.getProjectedBalance(ctx, walletPath)
	if err != nil {
		return nil, err
	}

	var staked sql.NullInt64
	err = qs.db.QueryRowContext(ctx, `
		SELECT SUM(amount) FROM projections.bets
		WHERE bettor = $1 AND NOT claimed
	`, bettor).Scan(&staked)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	return &BalanceResponse{
		Bettor:        bettor,
		Asset:         "SOL",
		WalletBalance: wallet,
		StakedAmount:  staked.Int64,
		AsOfSequence:  asOfSeq,
	}, nil
}

// GetMarket returns one market by address.
func (qs *QueryService) GetMarket(ctx context.Context, addr string) (*MarketResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	var m MarketResponse
	m.AsOfSequence = asOfSeq
	err = qs.db.QueryRowContext(ctx, `
		SELECT address, creator, question, description, category,
		       oracle_source, oracle_data_type, end_time, created_at,
		       resolved, outcome, total_yes_amount, total_no_amount,
		       fee_collected, version
		FROM projections.markets
		WHERE address = $1
	`, addr).Scan(
		&m.Address, &m.Creator, &m.Question, &m.Description, &m.Category,
		&m.OracleSource, &m.OracleDataType, &m.EndTime, &m.CreatedAt,
		&m.Resolved, &m.Outcome, &m.TotalYesAmount, &m.TotalNoAmount,
		&m.FeeCollected, &m.Version,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMarkets returns markets with optional category and resolution filters,
// newest first, with cursor-based pagination on created_at.
func (qs *QueryService) ListMarkets(
	ctx context.Context,
	category *int32,
	resolved *bool,
	limit int,
	beforeCreated *int64,
) ([]MarketResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT address, creator, question, description, category,
		       oracle_source, oracle_data_type, end_time, created_at,
		       resolved, outcome, total_yes_amount, total_no_amount,
		       fee_collected, version
		FROM projections.markets
		WHERE TRUE
	`
	args := []interface{}{}
	argIdx := 1

	if category != nil {
		query += fmt.Sprintf(" AND category = $%d", argIdx)
		args = append(args, *category)
		argIdx++
	}
	if resolved != nil {
		query += fmt.Sprintf(" AND resolved = $%d", argIdx)
		args = append(args, *resolved)
		argIdx++
	}
	if beforeCreated != nil {
		query += fmt.Sprintf(" AND created_at < $%d", argIdx)
		args = append(args, *beforeCreated)
		argIdx++
	}

	query += " ORDER BY created_at DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := qs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var markets []MarketResponse
	for rows.Next() {
		var m MarketResponse
		m.AsOfSequence = asOfSeq
		if err := rows.Scan(
			&m.Address, &m.Creator, &m.Question, &m.Description, &m.Category,
			&m.OracleSource, &m.OracleDataType, &m.EndTime, &m.CreatedAt,
			&m.Resolved, &m.Outcome, &m.TotalYesAmount, &m.TotalNoAmount,
			&m.FeeCollected, &m.Version,
		); err != nil {
			return nil, err
		}
		markets = append(markets, m)
	}

	return markets, rows.Err()
}

// GetBet returns one bet by market and bettor.
func (qs *QueryService) GetBet(ctx context.Context, marketAddr, bettor string) (*BetResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	var b BetResponse
	b.AsOfSequence = asOfSeq
	err = qs.db.QueryRowContext(ctx, `
		SELECT address, market_addr, bettor, amount, prediction, claimed,
		       card_mint, multiplier, placed_at, version
		FROM projections.bets
		WHERE market_addr = $1 AND bettor = $2
	`, marketAddr, bettor).Scan(
		&b.Address, &b.MarketAddr, &b.Bettor, &b.Amount, &b.Prediction,
		&b.Claimed, &b.CardMint, &b.Multiplier, &b.PlacedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBetsByBettor returns a bettor's bets, newest first.
func (qs *QueryService) ListBetsByBettor(
	ctx context.Context,
	bettor string,
	limit int,
	beforePlaced *int64,
) ([]BetResponse, error) {
	return qs.listBets(ctx, "bettor", bettor, limit, beforePlaced)
}

// ListBetsByMarket returns all bets on a market, newest first.
func (qs *QueryService) ListBetsByMarket(
	ctx context.Context,
	marketAddr string,
	limit int,
	beforePlaced *int64,
) ([]BetResponse, error) {
	return qs.listBets(ctx, "market_addr", marketAddr, limit, beforePlaced)
}

func (qs *QueryService) listBets(
	ctx context.Context,
	column, value string,
	limit int,
	beforePlaced *int64,
) ([]BetResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT address, market_addr, bettor, amount, prediction, claimed,
		       card_mint, multiplier, placed_at, version
		FROM projections.bets
		WHERE %s = $1
	`, column)
	args := []interface{}{value}
	argIdx := 2

	if beforePlaced != nil {
		query += fmt.Sprintf(" AND placed_at < $%d", argIdx)
		args = append(args, *beforePlaced)
		argIdx++
	}

	query += " ORDER BY placed_at DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := qs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bets []BetResponse
	for rows.Next() {
		var b BetResponse
		b.AsOfSequence = asOfSeq
		if err := rows.Scan(
			&b.Address, &b.MarketAddr, &b.Bettor, &b.Amount, &b.Prediction,
			&b.Claimed, &b.CardMint, &b.Multiplier, &b.PlacedAt, &b.Version,
		); err != nil {
			return nil, err
		}
		bets = append(bets, b)
	}

	return bets, rows.Err()
}

// GetCard returns one battle card by mint.
func (qs *QueryService) GetCard(ctx context.Context, mint string) (*CardResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	var c CardResponse
	c.AsOfSequence = asOfSeq
	err = qs.db.QueryRowContext(ctx, `
		SELECT mint, owner, power, rarity, multiplier, wins, losses,
		       minted_at, version
		FROM projections.cards
		WHERE mint = $1
	`, mint).Scan(
		&c.Mint, &c.Owner, &c.Power, &c.Rarity, &c.Multiplier,
		&c.Wins, &c.Losses, &c.MintedAt, &c.Version,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCardsByOwner returns all cards owned by an address.
func (qs *QueryService) ListCardsByOwner(ctx context.Context, owner string) ([]CardResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := qs.db.QueryContext(ctx, `
		SELECT mint, owner, power, rarity, multiplier, wins, losses,
		       minted_at, version
		FROM projections.cards
		WHERE owner = $1
		ORDER BY minted_at DESC
	`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []CardResponse
	for rows.Next() {
		var c CardResponse
		c.AsOfSequence = asOfSeq
		if err := rows.Scan(
			&c.Mint, &c.Owner, &c.Power, &c.Rarity, &c.Multiplier,
			&c.Wins, &c.Losses, &c.MintedAt, &c.Version,
		); err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}

	return cards, rows.Err()
}

// PreviewPayout computes what a winning claim would pay given current
// pools. Derived at query time, never a ledger balance.
func (qs *QueryService) PreviewPayout(ctx context.Context, marketAddr, bettor string) (*PayoutPreview, error) {
	market, err := qs.GetMarket(ctx, marketAddr)
	if err != nil {
		return nil, err
	}
	bet, err := qs.GetBet(ctx, marketAddr, bettor)
	if err != nil {
		return nil, err
	}

	grossPool := market.TotalYesAmount + market.TotalNoAmount
	fee := fpmath.ComputePlatformFee(grossPool)
	netPool := fpmath.ComputeNetPool(grossPool)

	// Before resolution, preview against the bettor's own side
	winningPool := market.TotalNoAmount
	winningSide := false
	if market.Resolved {
		winningSide = market.Outcome
	} else {
		winningSide = bet.Prediction
	}
	if winningSide {
		winningPool = market.TotalYesAmount
	}

	var payout int64
	if winningPool > 0 && (!market.Resolved || bet.Prediction == market.Outcome) {
		payout = fpmath.ComputePayout(bet.Amount, netPool, winningPool, bet.Multiplier)
	}

	return &PayoutPreview{
		MarketAddr:   marketAddr,
		Bettor:       bettor,
		Amount:       bet.Amount,
		Multiplier:   bet.Multiplier,
		GrossPool:    grossPool,
		PlatformFee:  fee,
		NetPool:      netPool,
		WinningPool:  winningPool,
		Payout:       payout,
		AsOfSequence: market.AsOfSequence,
	}, nil
}

// GetPlatformStats aggregates cumulative platform counters over the
// market and bet projections.
func (qs *QueryService) GetPlatformStats(ctx context.Context) (*PlatformStats, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	var stats PlatformStats
	stats.AsOfSequence = asOfSeq
	err = qs.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE resolved),
		       COALESCE(SUM(total_yes_amount + total_no_amount), 0)
		FROM projections.markets
	`).Scan(&stats.TotalMarkets, &stats.ResolvedMarkets, &stats.TotalVolume)
	if err != nil {
		return nil, err
	}

	err = qs.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projections.bets`,
	).Scan(&stats.TotalBets)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

// GetJournalHistory returns journal entries touching a bettor's wallet,
// with cursor-based pagination.
func (qs *QueryService) GetJournalHistory(
	ctx context.Context,
	bettor string,
	limit int,
	afterSequence *int64,
) ([]JournalHistoryEntry, error) {
	accountPrefix := fmt.Sprintf("bettor:%s:%%", bettor)

	query := `
		SELECT journal_id, batch_id, event_ref, sequence,
		       debit_account, credit_account, asset_id, amount, journal_type, timestamp
		FROM event_log.journal
		WHERE debit_account LIKE $1 OR credit_account LIKE $1
	`
	args := []interface{}{accountPrefix}
	argIdx := 2

	if afterSequence != nil {
		query += fmt.Sprintf(" AND sequence < $%d", argIdx)
		args = append(args, *afterSequence)
		argIdx++
	}

	query += " ORDER BY sequence DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := qs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []JournalHistoryEntry
	for rows.Next() {
		var e JournalHistoryEntry
		if err := rows.Scan(
			&e.JournalID, &e.BatchID, &e.EventRef, &e.Sequence,
			&e.DebitAccount, &e.CreditAccount, &e.AssetID, &e.Amount,
			&e.JournalType, &e.Timestamp,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// --- Admin APIs ---

// VerifyIntegrity checks hash chain and global balance invariants.
func (qs *QueryService) VerifyIntegrity(ctx context.Context) (*IntegrityReport, error) {
	report := &IntegrityReport{}

	// Check hash chain continuity
	rows, err := qs.db.QueryContext(ctx, `
		SELECT e1.sequence, e1.prev_hash, e2.state_hash
		FROM event_log.events e1
		LEFT JOIN event_log.events e2 ON e2.sequence = e1.sequence - 1
		WHERE e1.sequence > 0 AND e1.prev_hash != COALESCE(e2.state_hash, e1.prev_hash)
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seq int64
		var prevHash, expectedHash []byte
		if err := rows.Scan(&seq, &prevHash, &expectedHash); err != nil {
			return nil, err
		}
		report.HashChainBreaks = append(report.HashChainBreaks, seq)
	}

	// Global balance must sum to zero across all accounts per asset
	balanceRows, err := qs.db.QueryContext(ctx, `
		SELECT asset_id, SUM(balance) as total
		FROM projections.balances
		GROUP BY asset_id
		HAVING SUM(balance) != 0
	`)
	if err != nil {
		return nil, err
	}
	defer balanceRows.Close()

	for balanceRows.Next() {
		var assetID uint16
		var total int64
		if err := balanceRows.Scan(&assetID, &total); err != nil {
			return nil, err
		}
		report.UnbalancedAssets = append(report.UnbalancedAssets, UnbalancedAsset{
			AssetID:   assetID,
			Imbalance: total,
		})
	}

	report.IsHealthy = len(report.HashChainBreaks) == 0 && len(report.UnbalancedAssets) == 0
	return report, nil
}

// --- helpers ---

func (qs *QueryService) getWatermark(ctx context.Context) (int64, error) {
	var seq int64
	err := qs.db.QueryRowContext(ctx, `
		SELECT COALESCE(last_sequence, 0) FROM projections.watermark WHERE worker_id = 'main'
	`).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return seq, err
}

func (qs *QueryService) getProjectedBalance(ctx context.Context, accountPath string) (int64, error) {
	var balance int64
	err := qs.db.QueryRowContext(ctx, `
		SELECT COALESCE(balance, 0) FROM projections.balances
		WHERE account_path = $1
	`, accountPath).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return balance, err
}
