package event

// EventType discriminator for event payloads
type EventType int32

const (
	EventTypeUnknown EventType = iota
	EventTypeInitializePlatform
	EventTypeCreateMarket
	EventTypePlaceBet
	EventTypeBattleStake
	EventTypeResolveManual
	EventTypeResolveWithOracle
	EventTypeResolveSports
	EventTypeResolveWeather
	EventTypeResolveSocial
	EventTypeClaimWinnings
	EventTypeCollectPlatformFee
	EventTypeMintCard
	EventTypeUpdateCardStats
	EventTypePriceFeedUpdate
	EventTypeDeposit
	EventTypeWithdraw
	EventTypeBattleCards
)

// EventEnvelope wraps every event in the log
type EventEnvelope struct {
	// Global monotonic sequence assigned by core
	Sequence int64

	// Stable idempotency key from upstream
	IdempotencyKey string

	// Event type discriminator
	EventType EventType

	// Market context (nullable for global events)
	MarketID *string

	// Versioned input timestamp, epoch seconds (NOT wall-clock)
	Timestamp int64

	// Upstream sequence for ordering validation
	SourceSequence int64

	// JSON-encoded event-specific data
	Payload []byte

	// SHA-256 of state AFTER applying this event
	StateHash [32]byte

	// Previous event's state hash (chain integrity)
	PrevHash [32]byte
}

// Event is the interface all event payloads must implement
type Event interface {
	// IdempotencyKey returns the stable dedup key
	IdempotencyKey() string

	// EventType returns the discriminator
	EventType() EventType

	// MarketID returns the market context (nil for global events)
	MarketID() *string

	// SourceSequence returns upstream ordering key
	SourceSequence() int64

	// EventTimestamp returns the versioned input timestamp (epoch seconds)
	EventTimestamp() int64
}

func (et EventType) String() string {
	switch et {
	case EventTypeInitializePlatform:
		return "InitializePlatform"
	case EventTypeCreateMarket:
		return "CreateMarket"
	case EventTypePlaceBet:
		return "PlaceBet"
	case EventTypeBattleStake:
		return "BattleStake"
	case EventTypeResolveManual:
		return "ResolveManual"
	case EventTypeResolveWithOracle:
		return "ResolveWithOracle"
	case EventTypeResolveSports:
		return "ResolveSports"
	case EventTypeResolveWeather:
		return "ResolveWeather"
	case EventTypeResolveSocial:
		return "ResolveSocial"
	case EventTypeClaimWinnings:
		return "ClaimWinnings"
	case EventTypeCollectPlatformFee:
		return "CollectPlatformFee"
	case EventTypeMintCard:
		return "MintCard"
	case EventTypeUpdateCardStats:
		return "UpdateCardStats"
	case EventTypePriceFeedUpdate:
		return "PriceFeedUpdate"
	case EventTypeDeposit:
		return "Deposit"
	case EventTypeWithdraw:
		return "Withdraw"
	case EventTypeBattleCards:
		return "BattleCards"
	default:
		return "Unknown"
	}
}
