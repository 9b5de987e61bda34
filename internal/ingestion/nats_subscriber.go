package ingestion

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSSubscriber subscribes to NATS JetStream subjects and feeds events
// into the deterministic core via the eventChan. NATS is the primary
// high-throughput ingestion surface; each subject maps to one event type.
type NATSSubscriber struct {
	js        jetstream.JetStream
	eventChan chan<- RawEvent
	consumers []jetstream.ConsumeContext
}

// RawEvent is the parsed-but-untyped event from NATS, ready for the shell
// to validate and convert into a typed event.Event before sending to the core.
type RawEvent struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	AckFunc   func() // Call to ACK the NATS message after successful processing
	NakFunc   func() // Call to NAK on failure (will be redelivered)
}

// SubjectConfig maps NATS subjects to event types.
type SubjectConfig struct {
	Subject      string
	EventType    string
	ConsumerName string
	StreamName   string
}

// DefaultSubjects returns the standard subject configuration. Each event
// type gets its own consumer so redelivery behavior is independent.
func DefaultSubjects() []SubjectConfig {
	return []SubjectConfig{
		{Subject: "pred.platform.init.>", EventType: "InitializePlatform", ConsumerName: "ledger-platform-init", StreamName: "PRED_PLATFORM"},
		{Subject: "pred.platform.fee.>", EventType: "CollectPlatformFee", ConsumerName: "ledger-platform-fee", StreamName: "PRED_PLATFORM"},
		{Subject: "pred.markets.create.>", EventType: "CreateMarket", ConsumerName: "ledger-market-create", StreamName: "PRED_MARKETS"},
		{Subject: "pred.bets.place.>", EventType: "PlaceBet", ConsumerName: "ledger-bet-place", StreamName: "PRED_BETS"},
		{Subject: "pred.bets.battle.>", EventType: "BattleStake", ConsumerName: "ledger-bet-battle", StreamName: "PRED_BETS"},
		{Subject: "pred.bets.claim.>", EventType: "ClaimWinnings", ConsumerName: "ledger-bet-claim", StreamName: "PRED_BETS"},
		{Subject: "pred.resolutions.manual.>", EventType: "ResolveManual", ConsumerName: "ledger-resolve-manual", StreamName: "PRED_RESOLUTIONS"},
		{Subject: "pred.resolutions.oracle.>", EventType: "ResolveWithOracle", ConsumerName: "ledger-resolve-oracle", StreamName: "PRED_RESOLUTIONS"},
		{Subject: "pred.resolutions.sports.>", EventType: "ResolveSports", ConsumerName: "ledger-resolve-sports", StreamName: "PRED_RESOLUTIONS"},
		{Subject: "pred.resolutions.weather.>", EventType: "ResolveWeather", ConsumerName: "ledger-resolve-weather", StreamName: "PRED_RESOLUTIONS"},
		{Subject: "pred.resolutions.social.>", EventType: "ResolveSocial", ConsumerName: "ledger-resolve-social", StreamName: "PRED_RESOLUTIONS"},
		{Subject: "pred.cards.mint.>", EventType: "MintCard", ConsumerName: "ledger-card-mint", StreamName: "PRED_CARDS"},
		{Subject: "pred.cards.stats.>", EventType: "UpdateCardStats", ConsumerName: "ledger-card-stats", StreamName: "PRED_CARDS"},
		{Subject: "pred.cards.battle.>", EventType: "BattleCards", ConsumerName: "ledger-card-battle", StreamName: "PRED_CARDS"},
		{Subject: "pred.prices.>", EventType: "PriceFeedUpdate", ConsumerName: "ledger-prices", StreamName: "PRED_PRICES"},
		{Subject: "pred.funds.deposit.>", EventType: "Deposit", ConsumerName: "ledger-deposit", StreamName: "PRED_FUNDS"},
		{Subject: "pred.funds.withdraw.>", EventType: "Withdraw", ConsumerName: "ledger-withdraw", StreamName: "PRED_FUNDS"},
	}
}

func NewNATSSubscriber(js jetstream.JetStream, eventChan chan<- RawEvent) *NATSSubscriber {
	return &NATSSubscriber{
		js:        js,
		eventChan: eventChan,
	}
}

// Subscribe creates JetStream consumers for all configured subjects.
// Consumers use explicit ACK, max_deliver=5, ack_wait=30s.
func (ns *NATSSubscriber) Subscribe(ctx context.Context, subjects []SubjectConfig) error {
	for _, cfg := range subjects {
		consumer, err := ns.js.CreateOrUpdateConsumer(ctx, cfg.StreamName, jetstream.ConsumerConfig{
			Durable:       cfg.ConsumerName,
			FilterSubject: cfg.Subject,
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       30 * time.Second,
			MaxDeliver:    5,
			DeliverPolicy: jetstream.DeliverAllPolicy,
		})
		if err != nil {
			return fmt.Errorf("create consumer %s: %w", cfg.ConsumerName, err)
		}

		consumerContext, err := consumer.Consume(func(msg jetstream.Msg) {
			raw := RawEvent{
				Subject:   msg.Subject(),
				Data:      msg.Data(),
				Timestamp: time.Now(),
				AckFunc:   func() { msg.Ack() },
				NakFunc:   func() { msg.Nak() },
			}

			select {
			case ns.eventChan <- raw:
				// Successfully queued for processing
			case <-ctx.Done():
				msg.Nak()
			}
		})
		if err != nil {
			return fmt.Errorf("consume %s: %w", cfg.ConsumerName, err)
		}

		ns.consumers = append(ns.consumers, consumerContext)
		log.Printf("INFO: subscribed to %s (consumer=%s)", cfg.Subject, cfg.ConsumerName)
	}

	return nil
}

// fileStream is the common stream shape: FileStorage, limits retention,
// 72h max age. Single replica; the ledger is the system of record, the
// streams are a transport buffer.
func fileStream(name, subject string) jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:      name,
		Subjects:  []string{subject},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	}
}

// EnsureStreams creates the inbound JetStream streams if they don't exist.
func EnsureStreams(ctx context.Context, js jetstream.JetStream) error {
	streams := []jetstream.StreamConfig{
		fileStream("PRED_PLATFORM", "pred.platform.>"),
		fileStream("PRED_MARKETS", "pred.markets.>"),
		fileStream("PRED_BETS", "pred.bets.>"),
		fileStream("PRED_RESOLUTIONS", "pred.resolutions.>"),
		fileStream("PRED_CARDS", "pred.cards.>"),
		fileStream("PRED_PRICES", "pred.prices.>"),
		fileStream("PRED_FUNDS", "pred.funds.>"),
	}

	for _, cfg := range streams {
		if _, err := js.CreateOrUpdateStream(ctx, cfg); err != nil {
			return fmt.Errorf("create stream %s: %w", cfg.Name, err)
		}
		log.Printf("INFO: ensured stream %s", cfg.Name)
	}

	return nil
}

// Stop gracefully stops all consumers.
func (ns *NATSSubscriber) Stop() {
	for _, cc := range ns.consumers {
		cc.Stop()
	}
	log.Println("INFO: NATS subscribers stopped")
}

// ConnectNATS establishes a NATS connection and returns a JetStream context.
func ConnectNATS(url string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("WARN: NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Println("INFO: NATS reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}

	return nc, js, nil
}
