package ingestion

import (
	"encoding/json"
	"fmt"

	"PredictionLedger/internal/event"
)

// DecodeStoredEvent decodes an event-log payload back into a typed event.
// Stored payloads are the core's own re-encoding of the typed event (not the
// upstream wire format), so this is a plain symmetric unmarshal.
func DecodeStoredEvent(eventType string, data []byte) (event.Event, error) {
	var evt event.Event
	switch eventType {
	case "InitializePlatform":
		evt = &event.InitializePlatform{}
	case "CreateMarket":
		evt = &event.CreateMarket{}
	case "PlaceBet":
		evt = &event.PlaceBet{}
	case "BattleStake":
		evt = &event.BattleStake{}
	case "ResolveManual":
		evt = &event.ResolveManual{}
	case "ResolveWithOracle":
		evt = &event.ResolveWithOracle{}
	case "ResolveSports":
		evt = &event.ResolveSports{}
	case "ResolveWeather":
		evt = &event.ResolveWeather{}
	case "ResolveSocial":
		evt = &event.ResolveSocial{}
	case "ClaimWinnings":
		evt = &event.ClaimWinnings{}
	case "CollectPlatformFee":
		evt = &event.CollectPlatformFee{}
	case "MintCard":
		evt = &event.MintCard{}
	case "UpdateCardStats":
		evt = &event.UpdateCardStats{}
	case "BattleCards":
		evt = &event.BattleCards{}
	case "PriceFeedUpdate":
		evt = &event.PriceFeedUpdate{}
	case "Deposit":
		evt = &event.Deposit{}
	case "Withdraw":
		evt = &event.Withdraw{}
	default:
		return nil, fmt.Errorf("unknown stored event type: %s", eventType)
	}

	if err := json.Unmarshal(data, evt); err != nil {
		return nil, fmt.Errorf("decode stored %s: %w", eventType, err)
	}
	return evt, nil
}
