package query

// BalanceResponse represents a bettor's escrow balances for API queries.
type BalanceResponse struct {
	Bettor string `json:"bettor"`
	Asset  string `json:"asset"`

	// Ledger balances (from journal entries)
	WalletBalance int64 `json:"wallet_balance"`
	StakedAmount  int64 `json:"staked_amount"` // sum of unclaimed open stakes

	AsOfSequence int64 `json:"as_of_sequence"` // last applied event sequence
}

// MarketResponse represents a market for API queries.
type MarketResponse struct {
	Address        string `json:"address"`
	Creator        string `json:"creator"`
	Question       string `json:"question"`
	Description    string `json:"description"`
	Category       int32  `json:"category"`
	OracleSource   int32  `json:"oracle_source"`
	OracleDataType int32  `json:"oracle_data_type"`
	EndTime        int64  `json:"end_time"`
	CreatedAt      int64  `json:"created_at"`
	Resolved       bool   `json:"resolved"`
	Outcome        bool   `json:"outcome"`
	TotalYesAmount int64  `json:"total_yes_amount"`
	TotalNoAmount  int64  `json:"total_no_amount"`
	FeeCollected   bool   `json:"fee_collected"`
	Version        int64  `json:"version"`
	AsOfSequence   int64  `json:"as_of_sequence"`
}

// BetResponse represents a bet for API queries.
type BetResponse struct {
	Address      string `json:"address"`
	MarketAddr   string `json:"market_addr"`
	Bettor       string `json:"bettor"`
	Amount       int64  `json:"amount"`
	Prediction   bool   `json:"prediction"`
	Claimed      bool   `json:"claimed"`
	CardMint     string `json:"card_mint,omitempty"`
	Multiplier   int64  `json:"multiplier"`
	PlacedAt     int64  `json:"placed_at"`
	Version      int64  `json:"version"`
	AsOfSequence int64  `json:"as_of_sequence"`
}

// CardResponse represents a battle card for API queries.
type CardResponse struct {
	Mint         string `json:"mint"`
	Owner        string `json:"owner"`
	Power        int16  `json:"power"`
	Rarity       int16  `json:"rarity"`
	Multiplier   int64  `json:"multiplier"`
	Wins         int64  `json:"wins"`
	Losses       int64  `json:"losses"`
	MintedAt     int64  `json:"minted_at"`
	Version      int64  `json:"version"`
	AsOfSequence int64  `json:"as_of_sequence"`
}

// PlatformStats aggregates the platform's cumulative counters from the
// market projection. TotalVolume sums both pools across all markets.
type PlatformStats struct {
	TotalMarkets    int64 `json:"total_markets"`
	ResolvedMarkets int64 `json:"resolved_markets"`
	TotalVolume     int64 `json:"total_volume"`
	TotalBets       int64 `json:"total_bets"`
	AsOfSequence    int64 `json:"as_of_sequence"`
}

// PayoutPreview is a derived value computed at query time, NOT a ledger
// balance: what a winning claim would pay given the current pools.
type PayoutPreview struct {
	MarketAddr   string `json:"market_addr"`
	Bettor       string `json:"bettor"`
	Amount       int64  `json:"amount"`
	Multiplier   int64  `json:"multiplier"`
	GrossPool    int64  `json:"gross_pool"`
	PlatformFee  int64  `json:"platform_fee"`
	NetPool      int64  `json:"net_pool"`
	WinningPool  int64  `json:"winning_pool"`
	Payout       int64  `json:"payout"`
	AsOfSequence int64  `json:"as_of_sequence"`
}

// JournalHistoryEntry represents a journal entry for API queries.
type JournalHistoryEntry struct {
	JournalID     string `json:"journal_id"`
	BatchID       string `json:"batch_id"`
	EventRef      string `json:"event_ref"`
	Sequence      int64  `json:"sequence"`
	DebitAccount  string `json:"debit_account"`
	CreditAccount string `json:"credit_account"`
	AssetID       uint16 `json:"asset_id"`
	Amount        int64  `json:"amount"`
	JournalType   int32  `json:"journal_type"`
	Timestamp     int64  `json:"timestamp"`
}

// IntegrityReport is the result of an integrity verification check.
type IntegrityReport struct {
	IsHealthy        bool              `json:"is_healthy"`
	HashChainBreaks  []int64           `json:"hash_chain_breaks,omitempty"`
	UnbalancedAssets []UnbalancedAsset `json:"unbalanced_assets,omitempty"`
}

// UnbalancedAsset represents an asset with non-zero global balance sum.
type UnbalancedAsset struct {
	AssetID   uint16 `json:"asset_id"`
	Imbalance int64  `json:"imbalance"`
}
