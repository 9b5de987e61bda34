package ingestion_test

import (
	"PredictionLedger/internal/event"
	"PredictionLedger/internal/ingestion"
	"PredictionLedger/internal/state"
	"encoding/json"
	"testing"
	"time"
)

func rawFromJSON(t *testing.T, v interface{}) ingestion.RawEvent {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return ingestion.RawEvent{
		Subject:   "test",
		Data:      data,
		Timestamp: time.Now(),
		AckFunc:   func() {},
		NakFunc:   func() {},
	}
}

func TestParseCreateMarket(t *testing.T) {
	payload := map[string]interface{}{
		"request_id":       "550e8400-e29b-41d4-a716-446655440000",
		"creator":          "alice",
		"authority":        "platform-authority",
		"question":         "Will BTC close above 100k by year end?",
		"description":      "Resolved against the Pyth BTC/USD feed",
		"category":         "crypto",
		"end_time":         int64(1767225600),
		"oracle_source":    "pyth_price",
		"oracle_data_type": "price",
		"price_feed":       "pyth:btc-usd",
		"target_price":     int64(100_000_00),
		"sequence":         int64(1),
		"timestamp":        int64(1760000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "CreateMarket")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	cm, ok := evt.(*event.CreateMarket)
	if !ok {
		t.Fatalf("expected *event.CreateMarket, got %T", evt)
	}

	if cm.Creator != "alice" {
		t.Errorf("creator: got %s, want alice", cm.Creator)
	}
	if cm.Category != state.CategoryCrypto {
		t.Errorf("category: got %v, want CategoryCrypto", cm.Category)
	}
	if cm.OracleSource != state.SourcePythPrice {
		t.Errorf("oracle_source: got %v, want SourcePythPrice", cm.OracleSource)
	}
	if cm.OracleDataType != state.DataTypePrice {
		t.Errorf("oracle_data_type: got %v, want DataTypePrice", cm.OracleDataType)
	}
	if cm.PriceFeed == nil || *cm.PriceFeed != "pyth:btc-usd" {
		t.Errorf("price_feed: got %v, want pyth:btc-usd", cm.PriceFeed)
	}
	if cm.TargetPrice == nil || *cm.TargetPrice != 100_000_00 {
		t.Errorf("target_price: got %v, want 100_000_00", cm.TargetPrice)
	}
	if cm.GameID != nil || cm.WeatherMetric != nil || cm.MetricType != nil {
		t.Error("unset optionals should stay nil")
	}
	if cm.EndTime != 1767225600 {
		t.Errorf("end_time: got %d, want 1767225600", cm.EndTime)
	}
	if cm.EventType() != event.EventTypeCreateMarket {
		t.Errorf("event type: got %v, want CreateMarket", cm.EventType())
	}
}

func TestParseCreateMarketWeatherOptionals(t *testing.T) {
	payload := map[string]interface{}{
		"request_id":       "550e8400-e29b-41d4-a716-446655440000",
		"creator":          "alice",
		"authority":        "platform-authority",
		"question":         "Will it rain in Hanoi tomorrow?",
		"description":      "",
		"category":         "weather",
		"end_time":         int64(1767225600),
		"oracle_source":    "chainlink_weather",
		"oracle_data_type": "weather",
		"location":         "hanoi",
		"weather_metric":   "precipitation",
		"target_value":     int64(500),
		"sequence":         int64(2),
		"timestamp":        int64(1760000000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "CreateMarket")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	cm := evt.(*event.CreateMarket)
	if cm.Location == nil || *cm.Location != "hanoi" {
		t.Errorf("location: got %v, want hanoi", cm.Location)
	}
	if cm.WeatherMetric == nil || *cm.WeatherMetric != state.WeatherPrecipitation {
		t.Errorf("weather_metric: got %v, want WeatherPrecipitation", cm.WeatherMetric)
	}
	if cm.TargetValue == nil || *cm.TargetValue != 500 {
		t.Errorf("target_value: got %v, want 500", cm.TargetValue)
	}
}

func TestParseCreateMarketBadEnum_Fails(t *testing.T) {
	payload := map[string]interface{}{
		"request_id":       "550e8400-e29b-41d4-a716-446655440000",
		"creator":          "alice",
		"authority":        "platform-authority",
		"question":         "q",
		"category":         "esports",
		"end_time":         int64(1),
		"oracle_source":    "manual",
		"oracle_data_type": "none",
	}

	raw := rawFromJSON(t, payload)
	if _, err := ingestion.ParseRawEvent(raw, "CreateMarket"); err == nil {
		t.Fatal("expected error for unknown category")
	}
}

func TestParsePlaceBet(t *testing.T) {
	payload := map[string]interface{}{
		"request_id": "660e8400-e29b-41d4-a716-446655440001",
		"market":     "mkt-1",
		"bettor":     "bob",
		"amount":     int64(1_000_000_000),
		"prediction": true,
		"sequence":   int64(7),
		"timestamp":  int64(1760000100),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "PlaceBet")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	pb, ok := evt.(*event.PlaceBet)
	if !ok {
		t.Fatalf("expected *event.PlaceBet, got %T", evt)
	}

	if pb.Market != "mkt-1" {
		t.Errorf("market: got %s, want mkt-1", pb.Market)
	}
	if pb.Amount != 1_000_000_000 {
		t.Errorf("amount: got %d, want 1_000_000_000", pb.Amount)
	}
	if !pb.Prediction {
		t.Error("prediction: got false, want true")
	}
	if pb.Sequence != 7 {
		t.Errorf("sequence: got %d, want 7", pb.Sequence)
	}
}

func TestParseBattleStakeRequiresCardMint(t *testing.T) {
	payload := map[string]interface{}{
		"request_id": "660e8400-e29b-41d4-a716-446655440001",
		"market":     "mkt-1",
		"bettor":     "bob",
		"amount":     int64(100),
		"prediction": false,
	}

	raw := rawFromJSON(t, payload)
	if _, err := ingestion.ParseRawEvent(raw, "BattleStake"); err == nil {
		t.Fatal("expected error for missing card_mint")
	}

	payload["card_mint"] = "card-9"
	raw = rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "BattleStake")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	bs := evt.(*event.BattleStake)
	if bs.CardMint != "card-9" {
		t.Errorf("card_mint: got %s, want card-9", bs.CardMint)
	}
}

func TestParseResolveSports(t *testing.T) {
	payload := map[string]interface{}{
		"request_id":   "770e8400-e29b-41d4-a716-446655440002",
		"market":       "mkt-2",
		"signer":       "authority",
		"team_a_score": int64(3),
		"team_b_score": int64(1),
		"sequence":     int64(9),
		"timestamp":    int64(1760001000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "ResolveSports")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	rs, ok := evt.(*event.ResolveSports)
	if !ok {
		t.Fatalf("expected *event.ResolveSports, got %T", evt)
	}
	if rs.TeamAScore != 3 || rs.TeamBScore != 1 {
		t.Errorf("scores: got %d-%d, want 3-1", rs.TeamAScore, rs.TeamBScore)
	}
	if rs.Signer != "authority" {
		t.Errorf("signer: got %s, want authority", rs.Signer)
	}
}

func TestParsePriceFeedUpdate(t *testing.T) {
	payload := map[string]interface{}{
		"feed_id":       "pyth:btc-usd",
		"price":         int64(99_500_00),
		"publish_time":  int64(1760002000),
		"feed_sequence": int64(4_211),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "PriceFeedUpdate")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	pf, ok := evt.(*event.PriceFeedUpdate)
	if !ok {
		t.Fatalf("expected *event.PriceFeedUpdate, got %T", evt)
	}
	if pf.FeedID != "pyth:btc-usd" {
		t.Errorf("feed_id: got %s, want pyth:btc-usd", pf.FeedID)
	}
	if pf.Price != 99_500_00 {
		t.Errorf("price: got %d, want 99_500_00", pf.Price)
	}
	if pf.FeedSequence != 4_211 {
		t.Errorf("feed_sequence: got %d, want 4_211", pf.FeedSequence)
	}
}

func TestParsePriceFeedUpdateMissingFeedID_Fails(t *testing.T) {
	raw := rawFromJSON(t, map[string]interface{}{"price": int64(1)})
	if _, err := ingestion.ParseRawEvent(raw, "PriceFeedUpdate"); err == nil {
		t.Fatal("expected error for missing feed_id")
	}
}

func TestParseMintCard(t *testing.T) {
	payload := map[string]interface{}{
		"request_id": "880e8400-e29b-41d4-a716-446655440003",
		"mint":       "card-1",
		"owner":      "carol",
		"power":      5,
		"rarity":     3,
		"multiplier": int64(1500),
		"sequence":   int64(11),
		"timestamp":  int64(1760003000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "MintCard")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	mc, ok := evt.(*event.MintCard)
	if !ok {
		t.Fatalf("expected *event.MintCard, got %T", evt)
	}
	if mc.Power != 5 || mc.Rarity != 3 {
		t.Errorf("traits: got power=%d rarity=%d, want 5/3", mc.Power, mc.Rarity)
	}
	if mc.Multiplier != 1500 {
		t.Errorf("multiplier: got %d, want 1500", mc.Multiplier)
	}
}

func TestParseBattleCards(t *testing.T) {
	payload := map[string]interface{}{
		"request_id": "880e8400-e29b-41d4-a716-446655440005",
		"challenger": "card-1",
		"defender":   "card-2",
		"signer":     "carol",
		"sequence":   int64(12),
		"timestamp":  int64(1760003500),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "BattleCards")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	bc, ok := evt.(*event.BattleCards)
	if !ok {
		t.Fatalf("expected *event.BattleCards, got %T", evt)
	}
	if bc.Challenger != "card-1" || bc.Defender != "card-2" {
		t.Errorf("cards: got %s vs %s, want card-1 vs card-2", bc.Challenger, bc.Defender)
	}
	if bc.EventType() != event.EventTypeBattleCards {
		t.Errorf("event type: got %v, want BattleCards", bc.EventType())
	}

	delete(payload, "defender")
	if _, err := ingestion.ParseRawEvent(rawFromJSON(t, payload), "BattleCards"); err == nil {
		t.Fatal("expected error for missing defender")
	}
}

func TestParseDeposit(t *testing.T) {
	payload := map[string]interface{}{
		"request_id": "990e8400-e29b-41d4-a716-446655440004",
		"bettor":     "dave",
		"amount":     int64(2_500_000),
		"sequence":   int64(3),
		"timestamp":  int64(1760004000),
	}

	raw := rawFromJSON(t, payload)
	evt, err := ingestion.ParseRawEvent(raw, "Deposit")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	d, ok := evt.(*event.Deposit)
	if !ok {
		t.Fatalf("expected *event.Deposit, got %T", evt)
	}
	if d.Bettor != "dave" {
		t.Errorf("bettor: got %s, want dave", d.Bettor)
	}
	if d.Amount != 2_500_000 {
		t.Errorf("amount: got %d, want 2_500_000", d.Amount)
	}
	if d.EventType() != event.EventTypeDeposit {
		t.Errorf("event type: got %v, want Deposit", d.EventType())
	}
}

func TestParseUnknownEventType_Fails(t *testing.T) {
	raw := ingestion.RawEvent{Data: []byte(`{}`)}
	_, err := ingestion.ParseRawEvent(raw, "NonExistentType")
	if err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

func TestParseInvalidJSON_Fails(t *testing.T) {
	raw := ingestion.RawEvent{Data: []byte(`{invalid json`)}
	_, err := ingestion.ParseRawEvent(raw, "PlaceBet")
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestParseInvalidUUID_Fails(t *testing.T) {
	payload := map[string]interface{}{
		"request_id": "not-a-uuid",
		"market":     "mkt-1",
		"bettor":     "bob",
		"amount":     int64(1),
		"prediction": true,
	}

	raw := rawFromJSON(t, payload)
	_, err := ingestion.ParseRawEvent(raw, "PlaceBet")
	if err == nil {
		t.Fatal("expected error for invalid UUID")
	}
}
