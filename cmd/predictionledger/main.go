package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"PredictionLedger/internal/config"
	"PredictionLedger/internal/core"
	"PredictionLedger/internal/escrow"
	"PredictionLedger/internal/event"
	"PredictionLedger/internal/ingestion"
	"PredictionLedger/internal/observability"
	"PredictionLedger/internal/persistence"
	"PredictionLedger/internal/projection"
	"PredictionLedger/internal/query"
	"PredictionLedger/internal/server"
	"PredictionLedger/internal/state"
)

func main() {
	logger := observability.NewLogger("main")

	configPath := flag.String("config", "", "path to config file (optional, env vars override)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	logger.Info().Msg("prediction ledger starting")

	// --- Context with graceful shutdown ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// --- Postgres ---
	db, err := sql.Open("postgres", cfg.Postgres.DSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres open")
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal().Err(err).Msg("postgres ping")
	}
	logger.Info().Msg("postgres connected")

	// --- Run SQL migrations ---
	migrator := persistence.NewMigrator(db, cfg.Postgres.MigrationsDir)
	if err := migrator.Up(ctx); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}
	logger.Info().Msg("migrations applied")

	snapMgr := persistence.NewSnapshotManager(db)

	// --- Recovery: load snapshot + replay ---
	startSequence := int64(0)

	snap, err := snapMgr.LoadLatestSnapshot(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("load snapshot failed")
	}
	if snap != nil {
		startSequence = snap.Sequence + 1
		logger.Info().Int64("sequence", snap.Sequence).Msg("loaded snapshot")
	} else {
		logger.Info().Msg("no snapshot found, cold start from sequence 0")
	}

	// --- Channels ---
	// The persist channel blocks to give backpressure; the projection channel
	// drops when full since projections can be rebuilt from the journal.
	persistCoreChan := make(chan core.CoreOutput, cfg.Core.PersistChanSize)
	projectionCoreChan := make(chan core.CoreOutput, cfg.Core.ProjectionChanSize)

	// Bridge channels for the workers (avoids import cycle)
	persistWorkerChan := make(chan persistence.CoreOutput, cfg.Core.PersistChanSize)
	projectionWorkerChan := make(chan projection.ProjectionOutput, cfg.Core.ProjectionChanSize)

	dbChecker := persistence.NewPostgresIdempotencyChecker(db)

	metrics := observability.NewMetrics()
	healthChecker := observability.NewHealthChecker()

	// --- Deterministic core ---
	deterministicCore := core.NewDeterministicCore(
		startSequence,
		persistCoreChan,
		projectionCoreChan,
		dbChecker,
		metrics,
	)

	if snap != nil {
		if err := restoreStateFromSnapshot(deterministicCore, snap); err != nil {
			logger.Fatal().Err(err).Msg("restore snapshot state")
		}
		logger.Info().Int64("sequence", snap.Sequence).Msg("restored in-memory state from snapshot")

		if len(snap.IdempotencyKeys) > 0 {
			deterministicCore.WarmLRU(snap.IdempotencyKeys)
			logger.Info().Int("keys", len(snap.IdempotencyKeys)).Msg("warmed idempotency LRU from snapshot")
		}
	}

	// --- NATS ---
	nc, js, err := ingestion.ConnectNATS(cfg.NATS.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("nats connect")
	}
	defer nc.Close()
	logger.Info().Str("url", cfg.NATS.URL).Msg("nats connected")

	if err := ingestion.EnsureStreams(ctx, js); err != nil {
		logger.Fatal().Err(err).Msg("ensure nats streams")
	}
	if err := ingestion.EnsureOutboundStream(ctx, js); err != nil {
		logger.Fatal().Err(err).Msg("ensure outbound stream")
	}

	publishChan := make(chan ingestion.PublishableEvent, cfg.NATS.RawChanSize)
	outboundPublisher := ingestion.NewOutboundPublisher(js, publishChan)

	// --- Start the output side before replay. Replayed events flow through
	// the same persist path; the writer's ON CONFLICT clauses make
	// re-persisting them a no-op, and without the workers running a long
	// replay would fill the persist channel and stall.
	errChan := make(chan error, 8)

	persistWorker := persistence.NewPersistenceWorker(db, persistWorkerChan, cfg.Persistence.BatchSize, cfg.Persistence.FlushTimeout, metrics)
	go func() {
		errChan <- persistWorker.Run(ctx)
	}()

	projWorker := projection.NewProjectionWorker(db, projectionWorkerChan, metrics)
	go func() {
		errChan <- projWorker.Run(ctx)
	}()

	go func() {
		errChan <- outboundPublisher.Run(ctx)
	}()

	go bridgeCoreOutputs(ctx, persistCoreChan, projectionCoreChan, persistWorkerChan, projectionWorkerChan, publishChan)

	// --- Event replay from snapshot (or genesis) to head ---
	// Replay mode keeps the Postgres idempotency tier out of the way: every
	// replayed event is already in the events table by definition.
	deterministicCore.SetReplayMode(true)
	replayCount, err := replayEventsFromLog(ctx, snapMgr, deterministicCore, startSequence)
	deterministicCore.SetReplayMode(false)
	if err != nil {
		logger.Fatal().Err(err).Msg("event replay failed")
	}
	if replayCount > 0 {
		logger.Info().
			Int64("events", replayCount).
			Int64("sequence", deterministicCore.GetSequence()).
			Msg("replayed events")
	}

	// Verify restored state hash when nothing was replayed on top
	if snap != nil && replayCount == 0 {
		var expectedHash [32]byte
		copy(expectedHash[:], snap.StateHash)
		actualHash := deterministicCore.GetStateHash()
		if expectedHash != actualHash {
			logger.Fatal().
				Hex("expected", expectedHash[:]).
				Hex("actual", actualHash[:]).
				Msg("state hash mismatch after restore")
		}
		logger.Info().Msg("state hash verified after snapshot restore")
	}

	// --- Subscribe only after replay so live events queue behind it ---
	rawEventChan := make(chan ingestion.RawEvent, cfg.NATS.RawChanSize)
	natsSubscriber := ingestion.NewNATSSubscriber(js, rawEventChan)
	if err := natsSubscriber.Subscribe(ctx, ingestion.DefaultSubjects()); err != nil {
		logger.Fatal().Err(err).Msg("nats subscribe")
	}

	// --- Services ---
	queryService := query.NewQueryService(db)
	submitChan := make(chan server.SubmitRequest, cfg.NATS.SubmitChanSize)
	httpServer := server.NewHTTPServer(cfg.HTTP.Addr, queryService, submitChan, healthChecker, projWorker.SettlementHistory())

	// Single core loop: both NATS events and synchronous HTTP submissions
	// funnel into the one goroutine allowed to call ProcessEvent.
	typedEventChan := make(chan event.Event, cfg.NATS.RawChanSize)
	go runParseLoop(ctx, rawEventChan, typedEventChan)
	go runCoreLoop(ctx, typedEventChan, submitChan, deterministicCore)

	go func() {
		errChan <- httpServer.Run(ctx)
	}()

	go runPeriodicSnapshots(ctx, deterministicCore, snapMgr, cfg.Core.SnapshotInterval, metrics)

	healthChecker.SetReady(true)
	logger.Info().
		Int64("sequence", deterministicCore.GetSequence()).
		Str("http", cfg.HTTP.Addr).
		Msg("prediction ledger ready")

	// --- Wait for shutdown signal ---
	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errChan:
		logger.Error().Err(err).Msg("goroutine failed, shutting down")
	}

	// --- Graceful shutdown: stop intake, flush workers, final snapshot ---
	cancel()
	natsSubscriber.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	close(persistWorkerChan)
	close(projectionWorkerChan)
	close(publishChan)

	if err := takeSnapshot(shutdownCtx, deterministicCore, snapMgr, metrics); err != nil {
		logger.Error().Err(err).Msg("final snapshot failed")
	} else {
		logger.Info().Msg("final snapshot saved")
	}

	logger.Info().Msg("shutdown complete")
}

// bridgeCoreOutputs converts core.CoreOutput into the persistence, projection
// and outbound-publish formats.
func bridgeCoreOutputs(
	ctx context.Context,
	persistIn <-chan core.CoreOutput,
	projectionIn <-chan core.CoreOutput,
	persistOut chan<- persistence.CoreOutput,
	projectionOut chan<- projection.ProjectionOutput,
	publishOut chan<- ingestion.PublishableEvent,
) {
	for {
		select {
		case <-ctx.Done():
			return

		case output, ok := <-persistIn:
			if !ok {
				return
			}

			var marketAddr *string
			if output.Envelope.MarketID != nil {
				s := *output.Envelope.MarketID
				marketAddr = &s
			}

			stateHash := output.Envelope.StateHash[:]
			prevHash := output.Envelope.PrevHash[:]

			pOutput := persistence.CoreOutput{
				EventRow: persistence.EventRow{
					Sequence:       output.Envelope.Sequence,
					EventType:      output.Envelope.EventType.String(),
					IdempotencyKey: output.Envelope.IdempotencyKey,
					MarketAddr:     marketAddr,
					Payload:        output.Envelope.Payload,
					StateHash:      stateHash,
					PrevHash:       prevHash,
					Timestamp:      output.Envelope.Timestamp,
					SourceSequence: output.Envelope.SourceSequence,
				},
			}

			if output.Batch != nil {
				for _, j := range output.Batch.Journals {
					pOutput.JournalRows = append(pOutput.JournalRows, persistence.JournalRow{
						JournalID:     j.JournalID.String(),
						BatchID:       j.BatchID.String(),
						EventRef:      j.EventRef,
						Sequence:      j.Sequence,
						DebitAccount:  j.DebitAccount.AccountPath(),
						CreditAccount: j.CreditAccount.AccountPath(),
						AssetID:       uint16(j.AssetID),
						Amount:        j.Amount,
						JournalType:   int32(j.JournalType),
						Timestamp:     j.Timestamp,
					})
				}
			}

			// Blocking send: persistence backpressure must reach the core.
			select {
			case persistOut <- pOutput:
			case <-ctx.Done():
				return
			}

			select {
			case publishOut <- ingestion.PublishableEvent{
				Sequence:       output.Envelope.Sequence,
				EventType:      output.Envelope.EventType.String(),
				IdempotencyKey: output.Envelope.IdempotencyKey,
				MarketAddr:     marketAddr,
				Payload:        output.Batch,
				StateHash:      stateHash,
				Timestamp:      time.Unix(output.Envelope.Timestamp, 0).UTC(),
			}:
			default:
				// Drop if publish channel is full
			}

		case output, ok := <-projectionIn:
			if !ok {
				return
			}

			var marketAddr *string
			if output.Envelope.MarketID != nil {
				s := *output.Envelope.MarketID
				marketAddr = &s
			}

			pOutput := projection.ProjectionOutput{
				Sequence:   output.Envelope.Sequence,
				EventType:  output.Envelope.EventType.String(),
				MarketAddr: marketAddr,
				Market:     marketToProjection(output.Market),
				Bet:        betToProjection(output.Bet),
				Card:       cardToProjection(output.Card),
				Card2:      cardToProjection(output.Card2),
				Timestamp:  output.Envelope.Timestamp,
			}

			if output.Batch != nil {
				for _, j := range output.Batch.Journals {
					pOutput.JournalEntries = append(pOutput.JournalEntries, projection.JournalEntry{
						JournalID:     j.JournalID.String(),
						DebitAccount:  j.DebitAccount.AccountPath(),
						CreditAccount: j.CreditAccount.AccountPath(),
						AssetID:       uint16(j.AssetID),
						Amount:        j.Amount,
						JournalType:   int32(j.JournalType),
					})
				}
			}

			select {
			case projectionOut <- pOutput:
			default:
				// Drop if projection channel is full; RebuildProjections recovers
			}
		}
	}
}

// runParseLoop parses raw NATS messages into typed events. Messages are
// acked after the send to the typed channel succeeds, NOT after core
// processing, so backpressure propagates via channel blocking without
// AckWait expiry.
func runParseLoop(ctx context.Context, rawChan <-chan ingestion.RawEvent, typedChan chan<- event.Event) {
	logger := observability.NewLogger("ingest")

	// Subject-prefix → event-type lookup (subjects end in ".>")
	subjectToType := make(map[string]string)
	for _, sc := range ingestion.DefaultSubjects() {
		prefix := sc.Subject
		if len(prefix) > 2 && prefix[len(prefix)-2:] == ".>" {
			prefix = prefix[:len(prefix)-2]
		}
		subjectToType[prefix] = sc.EventType
	}

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-rawChan:
			if !ok {
				close(typedChan)
				return
			}

			eventType := resolveEventType(raw.Subject, subjectToType)
			if eventType == "" {
				logger.Warn().Str("subject", raw.Subject).Msg("unknown nats subject")
				raw.AckFunc() // Ack to avoid a redelivery loop
				continue
			}

			evt, err := ingestion.ParseRawEvent(raw, eventType)
			if err != nil {
				logger.Warn().Err(err).Str("subject", raw.Subject).Msg("parse event failed")
				raw.AckFunc() // Unparseable events are acked but not forwarded
				continue
			}

			select {
			case typedChan <- evt:
				raw.AckFunc()
			case <-ctx.Done():
				raw.NakFunc()
				return
			}
		}
	}
}

// runCoreLoop is the only goroutine allowed to call ProcessEvent. It drains
// NATS-delivered events and synchronous HTTP submissions in arrival order.
func runCoreLoop(
	ctx context.Context,
	typedChan <-chan event.Event,
	submitChan <-chan server.SubmitRequest,
	deterministicCore *core.DeterministicCore,
) {
	logger := observability.NewLogger("core")

	for {
		select {
		case <-ctx.Done():
			return

		case evt, ok := <-typedChan:
			if !ok {
				return
			}
			if err := deterministicCore.ProcessEvent(evt); err != nil {
				logger.Error().
					Err(err).
					Stringer("type", evt.EventType()).
					Str("key", evt.IdempotencyKey()).
					Msg("process event failed")
			}

		case req, ok := <-submitChan:
			if !ok {
				return
			}
			err := deterministicCore.ProcessEvent(req.Event)
			if err != nil {
				logger.Warn().
					Err(err).
					Stringer("type", req.Event.EventType()).
					Str("key", req.Event.IdempotencyKey()).
					Msg("submitted event rejected")
			}
			req.Reply <- err
		}
	}
}

// resolveEventType finds the event type for a NATS subject by longest prefix match.
func resolveEventType(subject string, prefixMap map[string]string) string {
	bestMatch := ""
	bestType := ""
	for prefix, evtType := range prefixMap {
		if len(subject) >= len(prefix) && subject[:len(prefix)] == prefix {
			if len(prefix) > len(bestMatch) {
				bestMatch = prefix
				bestType = evtType
			}
		}
	}
	return bestType
}

// --- Snapshot restore & replay ---

// restoreStateFromSnapshot converts persistence.SnapshotData into
// core.SnapshotState and restores the core's in-memory state.
func restoreStateFromSnapshot(deterministicCore *core.DeterministicCore, snap *persistence.SnapshotData) error {
	coreSnap := &core.SnapshotState{
		Sequence:        snap.Sequence,
		Balances:        make(map[escrow.AccountKey]int64, len(snap.Balances)),
		PriceFeeds:      make(map[string]*state.PriceSnapshot, len(snap.PriceFeeds)),
		SequenceState:   snap.SequenceState,
		IdempotencyKeys: snap.IdempotencyKeys,
	}
	copy(coreSnap.StateHash[:], snap.StateHash)

	for path, balance := range snap.Balances {
		key, err := escrow.ParseAccountPath(path)
		if err != nil {
			return fmt.Errorf("restore balance: %w", err)
		}
		coreSnap.Balances[key] = balance
	}

	if snap.Platform != nil {
		coreSnap.Platform = &state.Platform{
			Authority:    snap.Platform.Authority,
			Treasury:     snap.Platform.Treasury,
			TotalMarkets: snap.Platform.TotalMarkets,
			TotalVolume:  snap.Platform.TotalVolume,
			CreatedAt:    snap.Platform.CreatedAt,
			Version:      snap.Platform.Version,
		}
	}

	for _, ms := range snap.Markets {
		m, err := snapshotToMarket(ms)
		if err != nil {
			return err
		}
		coreSnap.Markets = append(coreSnap.Markets, m)
	}

	for _, bs := range snap.Bets {
		coreSnap.Bets = append(coreSnap.Bets, &state.Bet{
			Address:    bs.Address,
			MarketAddr: bs.MarketAddr,
			Bettor:     bs.Bettor,
			Amount:     bs.Amount,
			Prediction: bs.Prediction,
			Claimed:    bs.Claimed,
			CardMint:   bs.CardMint,
			Multiplier: bs.Multiplier,
			PlacedAt:   bs.PlacedAt,
			Version:    bs.Version,
		})
	}

	for _, cs := range snap.Cards {
		coreSnap.Cards = append(coreSnap.Cards, &state.Card{
			Mint:       cs.Mint,
			Owner:      cs.Owner,
			Power:      cs.Power,
			Rarity:     cs.Rarity,
			Multiplier: cs.Multiplier,
			Wins:       cs.Wins,
			Losses:     cs.Losses,
			MintedAt:   cs.MintedAt,
			Version:    cs.Version,
		})
	}

	for feedID, ps := range snap.PriceFeeds {
		coreSnap.PriceFeeds[feedID] = &state.PriceSnapshot{
			FeedID:      ps.FeedID,
			Price:       ps.Price,
			PublishTime: ps.PublishTime,
			Sequence:    ps.Sequence,
		}
	}

	deterministicCore.RestoreFromSnapshot(coreSnap)
	return nil
}

// replayEventsFromLog replays events from the event log starting at fromSequence.
func replayEventsFromLog(
	ctx context.Context,
	snapMgr *persistence.SnapshotManager,
	deterministicCore *core.DeterministicCore,
	fromSequence int64,
) (int64, error) {
	logger := observability.NewLogger("replay")

	const batchSize = 1000
	var totalReplayed int64

	for {
		events, err := snapMgr.LoadEventsFrom(ctx, fromSequence, batchSize)
		if err != nil {
			return totalReplayed, fmt.Errorf("load events from seq %d: %w", fromSequence, err)
		}
		if len(events) == 0 {
			break
		}

		for _, row := range events {
			typedEvt, err := ingestion.DecodeStoredEvent(row.EventType, row.Payload)
			if err != nil {
				return totalReplayed, fmt.Errorf("decode event seq=%d: %w", row.Sequence, err)
			}

			if err := deterministicCore.ProcessEvent(typedEvt); err != nil {
				// Replayed events already passed validation once; a failure
				// here means the log and the code disagree.
				return totalReplayed, fmt.Errorf("replay event seq=%d: %w", row.Sequence, err)
			}
			totalReplayed++
		}

		logger.Debug().Int64("through", events[len(events)-1].Sequence).Msg("replay batch applied")
		fromSequence = events[len(events)-1].Sequence + 1
	}

	return totalReplayed, nil
}

// --- Snapshot helpers ---

// runPeriodicSnapshots takes a snapshot every N processed events.
func runPeriodicSnapshots(
	ctx context.Context,
	deterministicCore *core.DeterministicCore,
	snapMgr *persistence.SnapshotManager,
	interval int64,
	metrics *observability.Metrics,
) {
	logger := observability.NewLogger("snapshot")

	lastSnapshotSeq := deterministicCore.GetSequence()
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			currentSeq := deterministicCore.GetSequence()
			if currentSeq-lastSnapshotSeq >= interval {
				if err := takeSnapshot(ctx, deterministicCore, snapMgr, metrics); err != nil {
					logger.Warn().Err(err).Msg("periodic snapshot failed")
				} else {
					lastSnapshotSeq = currentSeq
					logger.Info().Int64("sequence", currentSeq).Msg("periodic snapshot saved")
				}
			}
		}
	}
}

// takeSnapshot captures the core's in-memory state and persists it.
func takeSnapshot(
	ctx context.Context,
	deterministicCore *core.DeterministicCore,
	snapMgr *persistence.SnapshotManager,
	metrics *observability.Metrics,
) error {
	start := time.Now()

	coreSnap := deterministicCore.CreateSnapshotState()

	snapData := &persistence.SnapshotData{
		Sequence:        coreSnap.Sequence,
		StateHash:       coreSnap.StateHash[:],
		Balances:        make(map[string]int64, len(coreSnap.Balances)),
		Markets:         make([]persistence.MarketSnapshot, 0, len(coreSnap.Markets)),
		Bets:            make([]persistence.BetSnapshot, 0, len(coreSnap.Bets)),
		Cards:           make([]persistence.CardSnapshot, 0, len(coreSnap.Cards)),
		PriceFeeds:      make(map[string]persistence.PriceFeedSnap, len(coreSnap.PriceFeeds)),
		SequenceState:   coreSnap.SequenceState,
		IdempotencyKeys: coreSnap.IdempotencyKeys,
		CreatedAt:       time.Now().UTC(),
	}

	for key, balance := range coreSnap.Balances {
		snapData.Balances[key.AccountPath()] = balance
	}

	if coreSnap.Platform != nil {
		snapData.Platform = &persistence.PlatformSnapshot{
			Authority:    coreSnap.Platform.Authority,
			Treasury:     coreSnap.Platform.Treasury,
			TotalMarkets: coreSnap.Platform.TotalMarkets,
			TotalVolume:  coreSnap.Platform.TotalVolume,
			CreatedAt:    coreSnap.Platform.CreatedAt,
			Version:      coreSnap.Platform.Version,
		}
	}

	for _, m := range coreSnap.Markets {
		snapData.Markets = append(snapData.Markets, marketToSnapshot(m))
	}

	for _, b := range coreSnap.Bets {
		snapData.Bets = append(snapData.Bets, persistence.BetSnapshot{
			Address:    b.Address,
			MarketAddr: b.MarketAddr,
			Bettor:     b.Bettor,
			Amount:     b.Amount,
			Prediction: b.Prediction,
			Claimed:    b.Claimed,
			CardMint:   b.CardMint,
			Multiplier: b.Multiplier,
			PlacedAt:   b.PlacedAt,
			Version:    b.Version,
		})
	}

	for _, c := range coreSnap.Cards {
		snapData.Cards = append(snapData.Cards, persistence.CardSnapshot{
			Mint:       c.Mint,
			Owner:      c.Owner,
			Power:      c.Power,
			Rarity:     c.Rarity,
			Multiplier: c.Multiplier,
			Wins:       c.Wins,
			Losses:     c.Losses,
			MintedAt:   c.MintedAt,
			Version:    c.Version,
		})
	}

	for feedID, ps := range coreSnap.PriceFeeds {
		snapData.PriceFeeds[feedID] = persistence.PriceFeedSnap{
			FeedID:      ps.FeedID,
			Price:       ps.Price,
			PublishTime: ps.PublishTime,
			Sequence:    ps.Sequence,
		}
	}

	if err := snapMgr.SaveSnapshot(ctx, snapData); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	// Mark as verified immediately; it was captured from live state
	if err := snapMgr.MarkVerified(ctx, snapData.Sequence); err != nil {
		return fmt.Errorf("mark snapshot verified: %w", err)
	}

	if metrics != nil {
		metrics.SnapshotTaken.Inc()
		metrics.SnapshotDuration.Observe(time.Since(start).Seconds())
		metrics.SnapshotLastSeq.Set(float64(snapData.Sequence))
	}

	return nil
}

// --- Record conversions ---

// marketToSnapshot flattens the oracle sum type into the snapshot row.
func marketToSnapshot(m *state.Market) persistence.MarketSnapshot {
	ms := persistence.MarketSnapshot{
		Address:        m.Address,
		Creator:        m.Creator,
		Authority:      m.Authority,
		Question:       m.Question,
		Description:    m.Description,
		Category:       int32(m.Category),
		EndTime:        m.EndTime,
		CreatedAt:      m.CreatedAt,
		Resolved:       m.Resolved,
		Outcome:        m.Outcome,
		TotalYesAmount: m.TotalYesAmount,
		TotalNoAmount:  m.TotalNoAmount,
		FeeCollected:   m.FeeCollected,
		Version:        m.Version,
		OracleSource:   int32(m.Oracle.Source()),
		OracleDataType: int32(m.Oracle.DataType()),
	}

	switch o := m.Oracle.(type) {
	case *state.PriceOracle:
		ms.PriceFeed = o.FeedID
		ms.TargetPrice = o.TargetPrice
		ms.StrikePrice = o.StrikePrice
	case *state.SportsOracle:
		ms.GameID = o.GameID
		ms.TargetSpread = o.TargetSpread
		ms.TeamAScore = o.TeamAScore
		ms.TeamBScore = o.TeamBScore
		ms.ValueRecorded = o.Recorded
	case *state.WeatherOracle:
		ms.Location = o.Location
		ms.WeatherMetric = int32(o.Metric)
		ms.TargetValue = o.TargetValue
		ms.RecordedValue = o.RecordedValue
		ms.ValueRecorded = o.Recorded
	case *state.SocialOracle:
		ms.DataIdentifier = o.DataIdentifier
		ms.MetricKind = int32(o.Metric)
		ms.Threshold = o.Threshold
		ms.RecordedValue = o.ActualValue
		ms.ValueRecorded = o.Recorded
	}

	return ms
}

// snapshotToMarket rebuilds the oracle sum type from the flattened row.
func snapshotToMarket(ms persistence.MarketSnapshot) (*state.Market, error) {
	m := &state.Market{
		Address:        ms.Address,
		Creator:        ms.Creator,
		Authority:      ms.Authority,
		Question:       ms.Question,
		Description:    ms.Description,
		Category:       state.MarketCategory(ms.Category),
		EndTime:        ms.EndTime,
		CreatedAt:      ms.CreatedAt,
		Resolved:       ms.Resolved,
		Outcome:        ms.Outcome,
		TotalYesAmount: ms.TotalYesAmount,
		TotalNoAmount:  ms.TotalNoAmount,
		FeeCollected:   ms.FeeCollected,
		Version:        ms.Version,
	}

	src := state.OracleSource(ms.OracleSource)
	switch state.OracleDataType(ms.OracleDataType) {
	case state.DataTypeNone:
		m.Oracle = state.ManualOracle{}
	case state.DataTypePrice:
		m.Oracle = &state.PriceOracle{
			Src:         src,
			FeedID:      ms.PriceFeed,
			TargetPrice: ms.TargetPrice,
			StrikePrice: ms.StrikePrice,
		}
	case state.DataTypeSportsScore, state.DataTypeSportsWinner:
		m.Oracle = &state.SportsOracle{
			Src:          src,
			Kind:         state.OracleDataType(ms.OracleDataType),
			GameID:       ms.GameID,
			TargetSpread: ms.TargetSpread,
			TeamAScore:   ms.TeamAScore,
			TeamBScore:   ms.TeamBScore,
			Recorded:     ms.ValueRecorded,
		}
	case state.DataTypeWeather:
		m.Oracle = &state.WeatherOracle{
			Src:           src,
			Location:      ms.Location,
			Metric:        state.WeatherMetric(ms.WeatherMetric),
			TargetValue:   ms.TargetValue,
			RecordedValue: ms.RecordedValue,
			Recorded:      ms.ValueRecorded,
		}
	case state.DataTypeSocial, state.DataTypeBoxOffice, state.DataTypeCustom:
		m.Oracle = &state.SocialOracle{
			Src:            src,
			Kind:           state.OracleDataType(ms.OracleDataType),
			DataIdentifier: ms.DataIdentifier,
			Metric:         state.MetricType(ms.MetricKind),
			Threshold:      ms.Threshold,
			ActualValue:    ms.RecordedValue,
			Recorded:       ms.ValueRecorded,
		}
	default:
		return nil, fmt.Errorf("unknown oracle data type %d for market %s", ms.OracleDataType, ms.Address)
	}

	return m, nil
}

func marketToProjection(m *state.Market) *projection.MarketState {
	if m == nil {
		return nil
	}
	return &projection.MarketState{
		Address:        m.Address,
		Creator:        m.Creator,
		Question:       m.Question,
		Description:    m.Description,
		Category:       int32(m.Category),
		OracleSource:   int32(m.Oracle.Source()),
		OracleDataType: int32(m.Oracle.DataType()),
		EndTime:        m.EndTime,
		CreatedAt:      m.CreatedAt,
		Resolved:       m.Resolved,
		Outcome:        m.Outcome,
		TotalYesAmount: m.TotalYesAmount,
		TotalNoAmount:  m.TotalNoAmount,
		FeeCollected:   m.FeeCollected,
		Version:        m.Version,
	}
}

func betToProjection(b *state.Bet) *projection.BetState {
	if b == nil {
		return nil
	}
	return &projection.BetState{
		Address:    b.Address,
		MarketAddr: b.MarketAddr,
		Bettor:     b.Bettor,
		Amount:     b.Amount,
		Prediction: b.Prediction,
		Claimed:    b.Claimed,
		CardMint:   b.CardMint,
		Multiplier: b.Multiplier,
		PlacedAt:   b.PlacedAt,
		Version:    b.Version,
	}
}

func cardToProjection(c *state.Card) *projection.CardState {
	if c == nil {
		return nil
	}
	return &projection.CardState{
		Mint:       c.Mint,
		Owner:      c.Owner,
		Power:      int16(c.Power),
		Rarity:     int16(c.Rarity),
		Multiplier: c.Multiplier,
		Wins:       c.Wins,
		Losses:     c.Losses,
		MintedAt:   c.MintedAt,
		Version:    c.Version,
	}
}
