package core

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"PredictionLedger/internal/escrow"
	"PredictionLedger/internal/event"
	fpmath "PredictionLedger/internal/math"
	"PredictionLedger/internal/observability"
	"PredictionLedger/internal/oracle"
	"PredictionLedger/internal/state"

	"github.com/google/uuid"
)

// DeterministicCore is the single-threaded event processor. All settlement
// operations flow through ProcessEvent one at a time, which is what makes
// contended pool mutations serialize without record-level locks.
type DeterministicCore struct {
	sequence          int64
	hasher            *StateHasher
	balanceTracker    *escrow.BalanceTracker
	journalGen        *escrow.JournalGenerator
	validator         *escrow.InvariantValidator
	platform          *state.PlatformStore
	markets           *state.MarketStore
	bets              *state.BetStore
	cards             *state.CardStore
	priceFeeds        *state.PriceFeedCache
	idempotency       *IdempotencyChecker
	sequenceValidator *SequenceValidator
	metrics           *observability.Metrics

	persistChan    chan<- CoreOutput
	projectionChan chan<- CoreOutput

	// replayMode disables the Postgres idempotency tier while the event log
	// is being replayed into a fresh core.
	replayMode bool
}

// SetReplayMode toggles replay behavior. Must only be called while no other
// goroutine is feeding ProcessEvent.
func (c *DeterministicCore) SetReplayMode(enabled bool) {
	c.replayMode = enabled
}

// CoreOutput is what the pipeline emits per applied event. Market, Bet and
// Card are post-mutation copies of the records the event touched (nil when
// untouched), so downstream consumers never share pointers with the core.
type CoreOutput struct {
	Envelope   *event.EventEnvelope
	Batch      *escrow.Batch
	StateDelta []byte
	Market     *state.Market
	Bet        *state.Bet
	Card       *state.Card
	Card2      *state.Card // defender in head-to-head battles
}

func NewDeterministicCore(
	startSequence int64,
	persistChan, projectionChan chan<- CoreOutput,
	dbChecker DBIdempotencyChecker,
	metrics *observability.Metrics,
) *DeterministicCore {
	balanceTracker := escrow.NewBalanceTracker()
	validator := escrow.NewInvariantValidator(balanceTracker)
	journalGen := escrow.NewJournalGenerator(startSequence, balanceTracker)

	// Initialize with capacity of 1M entries (configurable)
	idempotencyChecker := NewIdempotencyChecker(1_000_000, dbChecker)
	sequenceValidator := NewSequenceValidator()

	return &DeterministicCore{
		sequence:          startSequence,
		hasher:            NewStateHasher(),
		balanceTracker:    balanceTracker,
		journalGen:        journalGen,
		validator:         validator,
		platform:          state.NewPlatformStore(),
		markets:           state.NewMarketStore(),
		bets:              state.NewBetStore(),
		cards:             state.NewCardStore(),
		priceFeeds:        state.NewPriceFeedCache(),
		idempotency:       idempotencyChecker,
		sequenceValidator: sequenceValidator,
		metrics:           metrics,
		persistChan:       persistChan,
		projectionChan:    projectionChan,
	}
}

// ProcessEvent is the main processing pipeline
func (c *DeterministicCore) ProcessEvent(evt event.Event) error {
	start := time.Now()
	eventType := evt.EventType().String()
	idempotencyKey := evt.IdempotencyKey()

	// Step 1: Idempotency check (two-tier; LRU-only during replay)
	var isDuplicate bool
	if c.replayMode {
		isDuplicate = c.idempotency.IsDuplicateLocal(eventType, idempotencyKey)
	} else {
		isDuplicate = c.idempotency.IsDuplicate(eventType, idempotencyKey)
	}

	// Step 2: Sequence validation
	partition := c.getPartition(evt)
	sourceSequence := evt.SourceSequence()

	// Special handling for price feed updates (gaps tolerated)
	if feedEvt, ok := evt.(*event.PriceFeedUpdate); ok {
		if err := c.sequenceValidator.ValidateFeedSequence(feedEvt.FeedID, feedEvt.FeedSequence); err != nil {
			return err
		}
	} else {
		if err := c.sequenceValidator.ValidateSequence(partition, sourceSequence, idempotencyKey, isDuplicate); err != nil {
			return fmt.Errorf("sequence validation failed: %w", err)
		}
	}

	// If duplicate, skip processing
	if isDuplicate {
		if c.metrics != nil {
			c.metrics.CoreEventsRejected.WithLabelValues(eventType, "duplicate").Inc()
		}
		return nil
	}

	// Step 3: Event dispatch. Handlers run every precondition before the
	// first mutation, so a returned error means no state changed at all.
	batch, err := c.dispatchEvent(evt)
	if err != nil {
		if c.metrics != nil {
			c.metrics.CoreEventsRejected.WithLabelValues(eventType, "precondition").Inc()
		}
		return fmt.Errorf("dispatch failed: %w", err)
	}

	// Step 4: Validate and apply the journal batch. State-only events
	// (market creation, resolution, card mutations, feed updates) produce
	// an empty batch but still need an envelope in the event log.
	if len(batch.Journals) > 0 {
		if err := c.validator.ValidateBatchBalance(batch); err != nil {
			panic(fmt.Sprintf("FATAL: unbalanced batch: %v", err))
		}

		if err := c.balanceTracker.ApplyBatch(batch); err != nil {
			return fmt.Errorf("apply batch failed: %w", err)
		}
	}

	// Step 5: Compute state digest and hash
	market, bet, card, card2 := c.touchedRecords(evt)
	stateDigest := c.computeStateDigest(batch, evt, market, bet, card, card2)
	stateHash := c.hasher.ComputeHash(c.sequence, stateDigest)

	// Step 6: Create envelope. Payload is the typed event re-encoded so the
	// event log can be replayed without the original wire message.
	payload, _ := json.Marshal(evt)
	envelope := &event.EventEnvelope{
		Sequence:       c.sequence,
		IdempotencyKey: idempotencyKey,
		EventType:      evt.EventType(),
		MarketID:       evt.MarketID(),
		Timestamp:      evt.EventTimestamp(),
		SourceSequence: sourceSequence,
		Payload:        payload,
		StateHash:      stateHash,
		PrevHash:       c.hasher.GetPrevHash(),
	}

	output := CoreOutput{
		Envelope:   envelope,
		Batch:      batch,
		StateDelta: stateDigest,
		Market:     market,
		Bet:        bet,
		Card:       card,
		Card2:      card2,
	}
	c.sequence++

	// Step 7: Post-checks
	if err := c.postCheckInvariants(evt); err != nil {
		panic(fmt.Sprintf("FATAL: invariant violated: %v", err))
	}

	// Step 8: Emit outputs.
	// Persistence: blocking send — the core stalls until the persistence
	// worker drains. This guarantees no event is lost.
	c.persistChan <- output

	// Projections: non-blocking send — drop on full. Projection workers
	// can rebuild from the event log if they fall behind.
	select {
	case c.projectionChan <- output:
	default:
		// Silently dropped — projection will catch up via rebuild
	}

	// Step 9: Mark as processed (add to LRU)
	c.idempotency.MarkProcessed(eventType, idempotencyKey)

	if c.metrics != nil {
		c.metrics.CoreEventsApplied.WithLabelValues(eventType).Inc()
		c.metrics.CoreEventDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
		c.metrics.CoreSequence.Set(float64(c.sequence))
	}

	return nil
}

// getPartition determines partition key for sequence validation
func (c *DeterministicCore) getPartition(evt event.Event) string {
	if marketID := evt.MarketID(); marketID != nil {
		return fmt.Sprintf("market:%s", *marketID)
	}
	return "global"
}

// touchedRecords returns post-mutation copies of the market, bet and cards
// the event affected. Copies keep the persist and projection goroutines off
// the core's live pointers. The second card is only set for head-to-head
// battles.
func (c *DeterministicCore) touchedRecords(evt event.Event) (*state.Market, *state.Bet, *state.Card, *state.Card) {
	copyMarket := func(addr string) *state.Market {
		if m, ok := c.markets.Get(addr); ok {
			cp := *m
			return &cp
		}
		return nil
	}
	copyBet := func(marketAddr, bettor string) *state.Bet {
		if b, ok := c.bets.GetByMarketBettor(marketAddr, bettor); ok {
			cp := *b
			return &cp
		}
		return nil
	}
	copyCard := func(mint string) *state.Card {
		if card, ok := c.cards.Get(mint); ok {
			cp := *card
			return &cp
		}
		return nil
	}

	switch e := evt.(type) {
	case *event.CreateMarket:
		return copyMarket(state.DeriveMarketAddress(e.Creator, e.Question)), nil, nil, nil
	case *event.PlaceBet:
		return copyMarket(e.Market), copyBet(e.Market, e.Bettor), nil, nil
	case *event.BattleStake:
		return copyMarket(e.Market), copyBet(e.Market, e.Bettor), copyCard(e.CardMint), nil
	case *event.ResolveManual:
		return copyMarket(e.Market), nil, nil, nil
	case *event.ResolveWithOracle:
		return copyMarket(e.Market), nil, nil, nil
	case *event.ResolveSports:
		return copyMarket(e.Market), nil, nil, nil
	case *event.ResolveWeather:
		return copyMarket(e.Market), nil, nil, nil
	case *event.ResolveSocial:
		return copyMarket(e.Market), nil, nil, nil
	case *event.ClaimWinnings:
		return copyMarket(e.Market), copyBet(e.Market, e.Bettor), nil, nil
	case *event.CollectPlatformFee:
		return copyMarket(e.Market), nil, nil, nil
	case *event.MintCard:
		return nil, nil, copyCard(e.Mint), nil
	case *event.UpdateCardStats:
		return nil, nil, copyCard(e.Mint), nil
	case *event.BattleCards:
		return nil, nil, copyCard(e.Challenger), copyCard(e.Defender)
	}
	return nil, nil, nil, nil
}

// computeStateDigest creates canonical bytes for the state hash: the
// balances of every account the batch touched, followed by the canonical
// serialization of every record the event touched.
func (c *DeterministicCore) computeStateDigest(
	batch *escrow.Batch,
	evt event.Event,
	market *state.Market,
	bet *state.Bet,
	card *state.Card,
	card2 *state.Card,
) []byte {
	// Collect all affected accounts
	affectedAccounts := make(map[escrow.AccountKey]bool)

	if batch != nil {
		for _, j := range batch.Journals {
			affectedAccounts[j.DebitAccount] = true
			affectedAccounts[j.CreditAccount] = true
		}
	}

	accounts := make([]escrow.AccountKey, 0, len(affectedAccounts))
	for key := range affectedAccounts {
		accounts = append(accounts, key)
	}

	// Sort by AccountPath (deterministic string ordering)
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].AccountPath() < accounts[j].AccountPath()
	})

	digest := make([]byte, 0, len(accounts)*64)

	for _, key := range accounts {
		balance := c.balanceTracker.GetBalance(key)

		path := key.AccountPath()
		digest = append(digest, byte(len(path)))
		digest = append(digest, []byte(path)...)

		digest = appendInt64LE(digest, balance)
	}

	// Platform counters move on init, market creation and bets; hash the
	// singleton whenever it exists.
	switch evt.(type) {
	case *event.InitializePlatform, *event.CreateMarket, *event.PlaceBet, *event.BattleStake:
		if p, err := c.platform.Get(); err == nil {
			digest = append(digest, p.CanonicalBytes()...)
		}
	}

	if market != nil {
		digest = append(digest, market.CanonicalBytes()...)
	}
	if bet != nil {
		digest = append(digest, bet.CanonicalBytes()...)
	}
	if card != nil {
		digest = append(digest, card.CanonicalBytes()...)
	}
	if card2 != nil {
		digest = append(digest, card2.CanonicalBytes()...)
	}

	if feedEvt, ok := evt.(*event.PriceFeedUpdate); ok {
		if snap, ok := c.priceFeeds.Get(feedEvt.FeedID); ok {
			digest = appendInt64LE(append(digest, []byte(snap.FeedID)...), snap.Price)
			digest = appendInt64LE(digest, snap.PublishTime)
		}
	}

	return digest
}

func appendInt64LE(buf []byte, v int64) []byte {
	return append(buf,
		byte(v),
		byte(v>>8),
		byte(v>>16),
		byte(v>>24),
		byte(v>>32),
		byte(v>>40),
		byte(v>>48),
		byte(v>>56),
	)
}

// postCheckInvariants validates invariants after batch application
func (c *DeterministicCore) postCheckInvariants(evt event.Event) error {
	switch e := evt.(type) {
	case *event.PlaceBet:
		if err := c.checkPoolAccounting(e.Market, e.Bettor); err != nil {
			return err
		}
	case *event.BattleStake:
		if err := c.checkPoolAccounting(e.Market, e.Bettor); err != nil {
			return err
		}
	case *event.ClaimWinnings:
		if err := c.validator.ValidateVaultNonNegative(e.Market, escrow.NativeAsset); err != nil {
			return fmt.Errorf("post-check vault: %w", err)
		}
	case *event.CollectPlatformFee:
		if err := c.validator.ValidateVaultNonNegative(e.Market, escrow.NativeAsset); err != nil {
			return fmt.Errorf("post-check vault: %w", err)
		}
		if err := c.validator.ValidateTreasuryNonNegative(escrow.NativeAsset); err != nil {
			return fmt.Errorf("post-check treasury: %w", err)
		}
	case *event.Withdraw:
		if err := c.validator.ValidateWalletNonNegative(e.Bettor, escrow.NativeAsset); err != nil {
			return fmt.Errorf("post-check wallet: %w", err)
		}
	}

	// Periodic global zero-sum check
	if c.sequence > 0 && c.sequence%1000 == 0 {
		totals := c.balanceTracker.ComputeGlobalBalance()
		for assetID, total := range totals {
			if total != 0 {
				return fmt.Errorf("post-check: global balance non-zero for asset %d: %d (at seq %d)",
					assetID, total, c.sequence)
			}
		}
	}

	return nil
}

// checkPoolAccounting verifies the accepted-stake invariant after a bet:
// while the market is open, its vault holds exactly totalYes + totalNo.
func (c *DeterministicCore) checkPoolAccounting(marketAddr, bettor string) error {
	if err := c.validator.ValidateWalletNonNegative(bettor, escrow.NativeAsset); err != nil {
		return fmt.Errorf("post-check wallet: %w", err)
	}

	m, ok := c.markets.Get(marketAddr)
	if !ok || m.Resolved {
		return nil
	}

	vault := c.balanceTracker.GetVaultBalance(marketAddr, escrow.NativeAsset)
	if vault != m.TotalPool() {
		return fmt.Errorf("post-check pool accounting: vault=%d, pools=%d for market %s",
			vault, m.TotalPool(), marketAddr)
	}
	return nil
}

// --- Event handlers ---

func (c *DeterministicCore) handleInitializePlatform(evt *event.InitializePlatform) (*escrow.Batch, error) {
	if c.platform.Initialized() {
		return nil, state.ErrPlatformExists
	}

	err := c.platform.Initialize(&state.Platform{
		Authority: evt.Authority,
		Treasury:  evt.Treasury,
		CreatedAt: evt.Timestamp,
	})
	if err != nil {
		return nil, err
	}

	return c.emptyBatch(evt), nil
}

func (c *DeterministicCore) handleCreateMarket(evt *event.CreateMarket) (*escrow.Batch, error) {
	platform, err := c.platform.Get()
	if err != nil {
		return nil, err
	}

	if len(evt.Question) > 100 {
		return nil, state.ErrQuestionTooLong
	}
	if len(evt.Description) > 200 {
		return nil, state.ErrDescriptionTooLong
	}
	if evt.EndTime <= evt.Timestamp {
		return nil, state.ErrInvalidEndTime
	}

	oracleCfg, err := buildOracleConfig(evt)
	if err != nil {
		return nil, err
	}

	addr := state.DeriveMarketAddress(evt.Creator, evt.Question)
	market := &state.Market{
		Address:     addr,
		Creator:     evt.Creator,
		Authority:   evt.Authority,
		Question:    evt.Question,
		Description: evt.Description,
		Category:    evt.Category,
		Oracle:      oracleCfg,
		EndTime:     evt.EndTime,
		CreatedAt:   evt.Timestamp,
	}

	if err := c.markets.Create(market); err != nil {
		return nil, err
	}

	platform.TotalMarkets++
	platform.Version++

	return c.emptyBatch(evt), nil
}

// buildOracleConfig maps the flat optional-field wire schema onto the oracle
// sum type, enforcing that exactly the fields for the chosen data type are
// present and every other optional is absent.
func buildOracleConfig(evt *event.CreateMarket) (state.OracleConfig, error) {
	present := func(fields ...bool) int {
		n := 0
		for _, f := range fields {
			if f {
				n++
			}
		}
		return n
	}

	price := present(evt.PriceFeed != nil, evt.TargetPrice != nil)
	sports := present(evt.GameID != nil, evt.TargetSpread != nil)
	weather := present(evt.Location != nil, evt.WeatherMetric != nil, evt.TargetValue != nil)
	social := present(evt.DataIdentifier != nil, evt.MetricType != nil, evt.Threshold != nil)

	switch evt.OracleDataType {
	case state.DataTypeNone:
		if evt.OracleSource != state.SourceManual {
			return nil, state.ErrOracleConfigRequired
		}
		if price+sports+weather+social != 0 {
			return nil, state.ErrOracleConfigRequired
		}
		return state.ManualOracle{}, nil

	case state.DataTypePrice:
		if !evt.OracleSource.IsPriceSource() {
			return nil, state.ErrOracleConfigRequired
		}
		if price != 2 || sports+weather+social != 0 {
			return nil, state.ErrOracleConfigRequired
		}
		return &state.PriceOracle{
			Src:         evt.OracleSource,
			FeedID:      *evt.PriceFeed,
			TargetPrice: *evt.TargetPrice,
		}, nil

	case state.DataTypeSportsScore, state.DataTypeSportsWinner:
		if evt.GameID == nil || price+weather+social != 0 {
			return nil, state.ErrOracleConfigRequired
		}
		cfg := &state.SportsOracle{
			Src:    evt.OracleSource,
			Kind:   evt.OracleDataType,
			GameID: *evt.GameID,
		}
		if evt.OracleDataType == state.DataTypeSportsScore {
			if evt.TargetSpread == nil {
				return nil, state.ErrOracleConfigRequired
			}
			cfg.TargetSpread = *evt.TargetSpread
		} else if evt.TargetSpread != nil {
			return nil, state.ErrOracleConfigRequired
		}
		return cfg, nil

	case state.DataTypeWeather:
		if weather != 3 || price+sports+social != 0 {
			return nil, state.ErrOracleConfigRequired
		}
		return &state.WeatherOracle{
			Src:         evt.OracleSource,
			Location:    *evt.Location,
			Metric:      *evt.WeatherMetric,
			TargetValue: *evt.TargetValue,
		}, nil

	case state.DataTypeSocial, state.DataTypeBoxOffice, state.DataTypeCustom:
		if social != 3 || price+sports+weather != 0 {
			return nil, state.ErrOracleConfigRequired
		}
		return &state.SocialOracle{
			Src:            evt.OracleSource,
			Kind:           evt.OracleDataType,
			DataIdentifier: *evt.DataIdentifier,
			Metric:         *evt.MetricType,
			Threshold:      *evt.Threshold,
		}, nil
	}

	return nil, state.ErrOracleConfigRequired
}

func (c *DeterministicCore) handlePlaceBet(evt *event.PlaceBet) (*escrow.Batch, error) {
	return c.placeStake(evt, evt.Market, evt.Bettor, evt.Amount, evt.Prediction, "", fpmath.NeutralMultiplier, evt.Timestamp)
}

func (c *DeterministicCore) handleBattleStake(evt *event.BattleStake) (*escrow.Batch, error) {
	card, ok := c.cards.Get(evt.CardMint)
	if !ok {
		return nil, state.ErrCardNotFound
	}
	if card.Owner != evt.Bettor {
		return nil, state.ErrNotCardOwner
	}

	return c.placeStake(evt, evt.Market, evt.Bettor, evt.Amount, evt.Prediction, card.Mint, card.Multiplier, evt.Timestamp)
}

// placeStake is the shared escrow path for both bet variants. All
// preconditions run before the first mutation.
func (c *DeterministicCore) placeStake(
	evt event.Event,
	marketAddr, bettor string,
	amount int64,
	prediction bool,
	cardMint string,
	multiplier int64,
	timestamp int64,
) (*escrow.Batch, error) {
	if amount <= 0 {
		return nil, state.ErrInvalidAmount
	}

	market, ok := c.markets.Get(marketAddr)
	if !ok {
		return nil, state.ErrMarketNotFound
	}
	if market.Resolved {
		return nil, state.ErrMarketAlreadyResolved
	}
	if timestamp >= market.EndTime {
		return nil, state.ErrMarketEnded
	}

	platform, err := c.platform.Get()
	if err != nil {
		return nil, err
	}

	betAddr := state.DeriveBetAddress(marketAddr, bettor)
	if _, exists := c.bets.Get(betAddr); exists {
		return nil, state.ErrBetExists
	}

	// Checked accumulator updates, computed before any mutation
	newYes, newNo := market.TotalYesAmount, market.TotalNoAmount
	if prediction {
		if newYes, ok = fpmath.CheckedAdd(newYes, amount); !ok {
			return nil, state.ErrMathOverflow
		}
	} else {
		if newNo, ok = fpmath.CheckedAdd(newNo, amount); !ok {
			return nil, state.ErrMathOverflow
		}
	}
	newVolume, ok := fpmath.CheckedAdd(platform.TotalVolume, amount)
	if !ok {
		return nil, state.ErrMathOverflow
	}

	// Wallet sufficiency is the last precondition; batch generation does
	// not move funds until ApplyBatch runs in the pipeline.
	batch, err := c.journalGen.GenerateBetStake(
		evt.IdempotencyKey(), bettor, marketAddr, amount, escrow.NativeAsset, timestamp)
	if err != nil {
		return nil, err
	}

	bet := &state.Bet{
		Address:    betAddr,
		MarketAddr: marketAddr,
		Bettor:     bettor,
		Amount:     amount,
		Prediction: prediction,
		CardMint:   cardMint,
		Multiplier: multiplier,
		PlacedAt:   timestamp,
	}
	if err := c.bets.Create(bet); err != nil {
		return nil, err
	}

	market.TotalYesAmount = newYes
	market.TotalNoAmount = newNo
	market.Version++
	platform.TotalVolume = newVolume
	platform.Version++

	return batch, nil
}

func (c *DeterministicCore) handleResolveManual(evt *event.ResolveManual) (*escrow.Batch, error) {
	market, ok := c.markets.Get(evt.Market)
	if !ok {
		return nil, state.ErrMarketNotFound
	}
	if err := oracle.CheckResolvable(market, evt.Timestamp); err != nil {
		return nil, err
	}
	if evt.Signer != market.Authority {
		return nil, state.ErrUnauthorized
	}

	outcome, err := oracle.EvaluateManual(market, evt.Outcome)
	if err != nil {
		return nil, err
	}

	c.applyResolution(market, outcome)
	return c.emptyBatch(evt), nil
}

// handleResolveWithOracle is deliberately permissionless: the price
// comparison is deterministic from public feed data, so no authority
// check happens here, unlike every other resolution path.
func (c *DeterministicCore) handleResolveWithOracle(evt *event.ResolveWithOracle) (*escrow.Batch, error) {
	market, ok := c.markets.Get(evt.Market)
	if !ok {
		return nil, state.ErrMarketNotFound
	}
	if err := oracle.CheckResolvable(market, evt.Timestamp); err != nil {
		return nil, err
	}

	outcome, err := oracle.EvaluatePrice(market, c.priceFeeds, evt.FeedID, evt.Timestamp)
	if err != nil {
		return nil, err
	}

	c.applyResolution(market, outcome)
	return c.emptyBatch(evt), nil
}

func (c *DeterministicCore) handleResolveSports(evt *event.ResolveSports) (*escrow.Batch, error) {
	market, ok := c.markets.Get(evt.Market)
	if !ok {
		return nil, state.ErrMarketNotFound
	}
	if err := oracle.CheckResolvable(market, evt.Timestamp); err != nil {
		return nil, err
	}
	if evt.Signer != market.Authority {
		return nil, state.ErrUnauthorized
	}

	outcome, err := oracle.EvaluateSports(market, evt.TeamAScore, evt.TeamBScore)
	if err != nil {
		return nil, err
	}

	c.applyResolution(market, outcome)
	return c.emptyBatch(evt), nil
}

func (c *DeterministicCore) handleResolveWeather(evt *event.ResolveWeather) (*escrow.Batch, error) {
	market, ok := c.markets.Get(evt.Market)
	if !ok {
		return nil, state.ErrMarketNotFound
	}
	if err := oracle.CheckResolvable(market, evt.Timestamp); err != nil {
		return nil, err
	}
	if evt.Signer != market.Authority {
		return nil, state.ErrUnauthorized
	}

	outcome, err := oracle.EvaluateWeather(market, evt.RecordedValue)
	if err != nil {
		return nil, err
	}

	c.applyResolution(market, outcome)
	return c.emptyBatch(evt), nil
}

func (c *DeterministicCore) handleResolveSocial(evt *event.ResolveSocial) (*escrow.Batch, error) {
	market, ok := c.markets.Get(evt.Market)
	if !ok {
		return nil, state.ErrMarketNotFound
	}
	if err := oracle.CheckResolvable(market, evt.Timestamp); err != nil {
		return nil, err
	}
	if evt.Signer != market.Authority {
		return nil, state.ErrUnauthorized
	}

	outcome, err := oracle.EvaluateSocial(market, evt.ActualValue)
	if err != nil {
		return nil, err
	}

	c.applyResolution(market, outcome)
	return c.emptyBatch(evt), nil
}

// applyResolution writes the terminal transition in one step: resolved flag
// and outcome together, no intermediate state observable.
func (c *DeterministicCore) applyResolution(market *state.Market, outcome bool) {
	market.Resolved = true
	market.Outcome = outcome
	market.Version++
}

func (c *DeterministicCore) handleClaimWinnings(evt *event.ClaimWinnings) (*escrow.Batch, error) {
	market, ok := c.markets.Get(evt.Market)
	if !ok {
		return nil, state.ErrMarketNotFound
	}
	if !market.Resolved {
		return nil, state.ErrMarketNotResolved
	}

	bet, ok := c.bets.GetByMarketBettor(evt.Market, evt.Bettor)
	if !ok {
		return nil, state.ErrBetNotFound
	}
	if bet.Claimed {
		return nil, state.ErrAlreadyClaimed
	}
	if bet.Prediction != market.Outcome {
		return nil, state.ErrLosingBet
	}

	winningPool := market.WinningPool()
	if winningPool == 0 {
		return nil, state.ErrNoWinningBets
	}

	netPool := fpmath.ComputeNetPool(market.TotalPool())
	payout := fpmath.ComputePayout(bet.Amount, netPool, winningPool, bet.Multiplier)
	if payout < 0 {
		return nil, state.ErrInvalidAmount
	}

	// A tiny winning stake can floor to a zero share once the fee is
	// taken. The claim still succeeds so the bet settles; no funds move.
	if payout == 0 {
		bet.Claimed = true
		bet.Version++
		return c.emptyBatch(evt), nil
	}

	// A card-boosted payout exceeding what remains in the vault fails here
	// rather than overdrawing shared escrow.
	batch, err := c.journalGen.GenerateWinningsPayout(
		evt.IdempotencyKey(), evt.Bettor, evt.Market, payout, escrow.NativeAsset, evt.Timestamp)
	if err != nil {
		return nil, err
	}

	bet.Claimed = true
	bet.Version++

	return batch, nil
}

func (c *DeterministicCore) handleCollectPlatformFee(evt *event.CollectPlatformFee) (*escrow.Batch, error) {
	market, ok := c.markets.Get(evt.Market)
	if !ok {
		return nil, state.ErrMarketNotFound
	}
	if !market.Resolved {
		return nil, state.ErrMarketNotResolved
	}
	if market.FeeCollected {
		return nil, state.ErrFeeAlreadyCollected
	}

	fee := fpmath.ComputePlatformFee(market.TotalPool())
	if fee == 0 {
		// Nothing to drain; still a one-time operation per market.
		market.FeeCollected = true
		market.Version++
		return c.emptyBatch(evt), nil
	}

	batch, err := c.journalGen.GeneratePlatformFee(
		evt.IdempotencyKey(), evt.Market, fee, escrow.NativeAsset, evt.Timestamp)
	if err != nil {
		return nil, err
	}

	market.FeeCollected = true
	market.Version++

	return batch, nil
}

func (c *DeterministicCore) handleMintCard(evt *event.MintCard) (*escrow.Batch, error) {
	if err := state.ValidateTraits(evt.Power, evt.Rarity, evt.Multiplier); err != nil {
		return nil, err
	}

	card := &state.Card{
		Mint:       evt.Mint,
		Owner:      evt.Owner,
		Power:      evt.Power,
		Rarity:     evt.Rarity,
		Multiplier: evt.Multiplier,
		MintedAt:   evt.Timestamp,
	}
	if err := c.cards.Create(card); err != nil {
		return nil, err
	}

	return c.emptyBatch(evt), nil
}

func (c *DeterministicCore) handleUpdateCardStats(evt *event.UpdateCardStats) (*escrow.Batch, error) {
	card, ok := c.cards.Get(evt.Mint)
	if !ok {
		return nil, state.ErrCardNotFound
	}
	if card.Owner != evt.Signer {
		return nil, state.ErrNotCardOwner
	}

	if evt.Won {
		card.Wins++
	} else {
		card.Losses++
	}
	card.Version++

	return c.emptyBatch(evt), nil
}

func (c *DeterministicCore) handleBattleCards(evt *event.BattleCards) (*escrow.Batch, error) {
	if evt.Challenger == evt.Defender {
		return nil, state.ErrBattleSameCard
	}
	challenger, ok := c.cards.Get(evt.Challenger)
	if !ok {
		return nil, state.ErrCardNotFound
	}
	defender, ok := c.cards.Get(evt.Defender)
	if !ok {
		return nil, state.ErrCardNotFound
	}
	if challenger.Owner != evt.Signer {
		return nil, state.ErrNotCardOwner
	}

	switch state.ResolveBattle(challenger, defender) {
	case state.BattleChallengerWins:
		challenger.Wins++
		defender.Losses++
		challenger.Version++
		defender.Version++
	case state.BattleDefenderWins:
		challenger.Losses++
		defender.Wins++
		challenger.Version++
		defender.Version++
	case state.BattleDraw:
		// Neither counter moves.
	}

	return c.emptyBatch(evt), nil
}

func (c *DeterministicCore) handlePriceFeedUpdate(evt *event.PriceFeedUpdate) (*escrow.Batch, error) {
	c.priceFeeds.Update(&state.PriceSnapshot{
		FeedID:      evt.FeedID,
		Price:       evt.Price,
		PublishTime: evt.PublishTime,
		Sequence:    evt.FeedSequence,
	})

	return c.emptyBatch(evt), nil
}

func (c *DeterministicCore) handleDeposit(evt *event.Deposit) (*escrow.Batch, error) {
	if evt.Amount <= 0 {
		return nil, state.ErrInvalidAmount
	}
	return c.journalGen.GenerateDeposit(
		evt.IdempotencyKey(), evt.Bettor, evt.Amount, escrow.NativeAsset, evt.Timestamp)
}

func (c *DeterministicCore) handleWithdraw(evt *event.Withdraw) (*escrow.Batch, error) {
	if evt.Amount <= 0 {
		return nil, state.ErrInvalidAmount
	}
	return c.journalGen.GenerateWithdrawal(
		evt.IdempotencyKey(), evt.Bettor, evt.Amount, escrow.NativeAsset, evt.Timestamp)
}

// emptyBatch wraps a state-only event so it still flows through the
// envelope/hash/persist pipeline.
func (c *DeterministicCore) emptyBatch(evt event.Event) *escrow.Batch {
	return &escrow.Batch{
		BatchID:   uuid.New(),
		EventRef:  evt.IdempotencyKey(),
		Sequence:  c.sequence,
		Timestamp: evt.EventTimestamp(),
		Journals:  []escrow.Journal{},
	}
}

func (c *DeterministicCore) dispatchEvent(evt event.Event) (*escrow.Batch, error) {
	switch e := evt.(type) {
	case *event.InitializePlatform:
		return c.handleInitializePlatform(e)
	case *event.CreateMarket:
		return c.handleCreateMarket(e)
	case *event.PlaceBet:
		return c.handlePlaceBet(e)
	case *event.BattleStake:
		return c.handleBattleStake(e)
	case *event.ResolveManual:
		return c.handleResolveManual(e)
	case *event.ResolveWithOracle:
		return c.handleResolveWithOracle(e)
	case *event.ResolveSports:
		return c.handleResolveSports(e)
	case *event.ResolveWeather:
		return c.handleResolveWeather(e)
	case *event.ResolveSocial:
		return c.handleResolveSocial(e)
	case *event.ClaimWinnings:
		return c.handleClaimWinnings(e)
	case *event.CollectPlatformFee:
		return c.handleCollectPlatformFee(e)
	case *event.MintCard:
		return c.handleMintCard(e)
	case *event.UpdateCardStats:
		return c.handleUpdateCardStats(e)
	case *event.BattleCards:
		return c.handleBattleCards(e)
	case *event.PriceFeedUpdate:
		return c.handlePriceFeedUpdate(e)
	case *event.Deposit:
		return c.handleDeposit(e)
	case *event.Withdraw:
		return c.handleWithdraw(e)
	default:
		return nil, fmt.Errorf("unknown event type: %T", evt)
	}
}

// --- Read accessors for the query path ---
// These return live pointers; callers outside the core loop must go through
// the query service, which reads projections instead.

func (c *DeterministicCore) Platform() (*state.Platform, error) {
	return c.platform.Get()
}

func (c *DeterministicCore) Market(addr string) (*state.Market, bool) {
	return c.markets.Get(addr)
}

func (c *DeterministicCore) Bet(marketAddr, bettor string) (*state.Bet, bool) {
	return c.bets.GetByMarketBettor(marketAddr, bettor)
}

func (c *DeterministicCore) Card(mint string) (*state.Card, bool) {
	return c.cards.Get(mint)
}

func (c *DeterministicCore) WalletBalance(bettor string) int64 {
	return c.balanceTracker.GetWalletBalance(bettor, escrow.NativeAsset)
}

func (c *DeterministicCore) VaultBalance(marketAddr string) int64 {
	return c.balanceTracker.GetVaultBalance(marketAddr, escrow.NativeAsset)
}

func (c *DeterministicCore) TreasuryBalance() int64 {
	return c.balanceTracker.GetTreasuryBalance(escrow.NativeAsset)
}

// --- Snapshot Restore & Startup Methods ---

// SnapshotState holds the serializable in-memory state for restore.
// This mirrors persistence.SnapshotData but uses typed fields.
type SnapshotState struct {
	Sequence        int64
	StateHash       [32]byte
	PrevHash        [32]byte
	Balances        map[escrow.AccountKey]int64
	Platform        *state.Platform
	Markets         []*state.Market
	Bets            []*state.Bet
	Cards           []*state.Card
	PriceFeeds      map[string]*state.PriceSnapshot
	SequenceState   map[string]int64
	IdempotencyKeys []string
}

// RestoreFromSnapshot restores the core's in-memory state from a snapshot.
// On warm restart, load the latest snapshot then replay events after it.
func (c *DeterministicCore) RestoreFromSnapshot(snap *SnapshotState) {
	c.sequence = snap.Sequence + 1 // Next sequence to assign

	c.hasher.SetPrevHash(snap.StateHash)

	c.balanceTracker.Restore(snap.Balances)

	if snap.Platform != nil {
		c.platform.Restore(snap.Platform)
	}
	for _, m := range snap.Markets {
		c.markets.Restore(m)
	}
	for _, b := range snap.Bets {
		c.bets.Restore(b)
	}
	for _, card := range snap.Cards {
		c.cards.Restore(card)
	}
	for _, ps := range snap.PriceFeeds {
		c.priceFeeds.Restore(ps)
	}

	for partition, nextSeq := range snap.SequenceState {
		c.sequenceValidator.RestorePartition(partition, nextSeq)
	}

	// The journal generator assigns the same sequence the engine will use
	// next, so it advances past the snapshot too.
	c.journalGen.SetSequence(snap.Sequence + 1)
}

// WarmLRU loads recent idempotency keys into the LRU cache.
func (c *DeterministicCore) WarmLRU(keys []string) {
	c.idempotency.lru.WarmFromKeys(keys)
}

// GetSequence returns the current global sequence number.
func (c *DeterministicCore) GetSequence() int64 {
	return c.sequence
}

// GetStateHash returns the current state hash (chain tip).
func (c *DeterministicCore) GetStateHash() [32]byte {
	return c.hasher.GetPrevHash()
}

// CreateSnapshotState captures the current in-memory state for persistence.
func (c *DeterministicCore) CreateSnapshotState() *SnapshotState {
	var platform *state.Platform
	if p, err := c.platform.Get(); err == nil {
		platform = p
	}

	return &SnapshotState{
		Sequence:        c.sequence - 1, // Last processed sequence
		StateHash:       c.hasher.GetPrevHash(),
		Balances:        c.balanceTracker.Snapshot(),
		Platform:        platform,
		Markets:         c.markets.GetAllSorted(),
		Bets:            c.bets.GetAllSorted(),
		Cards:           c.cards.GetAllSorted(),
		PriceFeeds:      c.priceFeeds.GetAll(),
		SequenceState:   c.sequenceValidator.GetAllPartitions(),
		IdempotencyKeys: c.idempotency.lru.GetAllKeys(),
	}
}
