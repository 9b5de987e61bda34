package ingestion

import (
	"encoding/json"
	"fmt"

	"PredictionLedger/internal/event"
	"PredictionLedger/internal/state"

	"github.com/google/uuid"
)

// ParseRawEvent converts a RawEvent (JSON bytes + event type string) into a
// typed event.Event. The ingestion shell validates, parses, and converts raw
// events before sending them to the deterministic core.
func ParseRawEvent(raw RawEvent, eventType string) (event.Event, error) {
	switch eventType {
	case "InitializePlatform":
		return parseInitializePlatform(raw.Data)
	case "CreateMarket":
		return parseCreateMarket(raw.Data)
	case "PlaceBet":
		return parsePlaceBet(raw.Data)
	case "BattleStake":
		return parseBattleStake(raw.Data)
	case "ResolveManual":
		return parseResolveManual(raw.Data)
	case "ResolveWithOracle":
		return parseResolveWithOracle(raw.Data)
	case "ResolveSports":
		return parseResolveSports(raw.Data)
	case "ResolveWeather":
		return parseResolveWeather(raw.Data)
	case "ResolveSocial":
		return parseResolveSocial(raw.Data)
	case "ClaimWinnings":
		return parseClaimWinnings(raw.Data)
	case "CollectPlatformFee":
		return parseCollectPlatformFee(raw.Data)
	case "MintCard":
		return parseMintCard(raw.Data)
	case "UpdateCardStats":
		return parseUpdateCardStats(raw.Data)
	case "BattleCards":
		return parseBattleCards(raw.Data)
	case "PriceFeedUpdate":
		return parsePriceFeedUpdate(raw.Data)
	case "Deposit":
		return parseDeposit(raw.Data)
	case "Withdraw":
		return parseWithdraw(raw.Data)
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
}

// --- JSON wire formats ---
// These structs represent the JSON payloads received from NATS.
// Field names use snake_case to match upstream producers. Enum-valued
// fields travel as their string names ("crypto", "pyth_price", ...).

type initializePlatformJSON struct {
	RequestID string `json:"request_id"`
	Authority string `json:"authority"`
	Treasury  string `json:"treasury"`
	Sequence  int64  `json:"sequence"`
	Timestamp int64  `json:"timestamp"`
}

func parseInitializePlatform(data []byte) (*event.InitializePlatform, error) {
	var j initializePlatformJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse InitializePlatform: %w", err)
	}
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	if j.Authority == "" || j.Treasury == "" {
		return nil, fmt.Errorf("authority and treasury are required")
	}

	return &event.InitializePlatform{
		RequestID: requestID,
		Authority: j.Authority,
		Treasury:  j.Treasury,
		Sequence:  j.Sequence,
		Timestamp: j.Timestamp,
	}, nil
}

type createMarketJSON struct {
	RequestID      string `json:"request_id"`
	Creator        string `json:"creator"`
	Authority      string `json:"authority"`
	Question       string `json:"question"`
	Description    string `json:"description"`
	Category       string `json:"category"`
	EndTime        int64  `json:"end_time"`
	OracleSource   string `json:"oracle_source"`
	OracleDataType string `json:"oracle_data_type"`

	PriceFeed      *string `json:"price_feed,omitempty"`
	TargetPrice    *int64  `json:"target_price,omitempty"`
	GameID         *string `json:"game_id,omitempty"`
	TargetSpread   *int64  `json:"target_spread,omitempty"`
	Location       *string `json:"location,omitempty"`
	WeatherMetric  *string `json:"weather_metric,omitempty"`
	TargetValue    *int64  `json:"target_value,omitempty"`
	DataIdentifier *string `json:"data_identifier,omitempty"`
	MetricType     *string `json:"metric_type,omitempty"`
	Threshold      *int64  `json:"threshold,omitempty"`

	Sequence  int64 `json:"sequence"`
	Timestamp int64 `json:"timestamp"`
}

func parseCreateMarket(data []byte) (*event.CreateMarket, error) {
	var j createMarketJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse CreateMarket: %w", err)
	}
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}

	category, err := state.ParseMarketCategory(j.Category)
	if err != nil {
		return nil, fmt.Errorf("parse category: %w", err)
	}
	source, err := state.ParseOracleSource(j.OracleSource)
	if err != nil {
		return nil, fmt.Errorf("parse oracle_source: %w", err)
	}
	dataType, err := state.ParseOracleDataType(j.OracleDataType)
	if err != nil {
		return nil, fmt.Errorf("parse oracle_data_type: %w", err)
	}

	evt := &event.CreateMarket{
		RequestID:      requestID,
		Creator:        j.Creator,
		Authority:      j.Authority,
		Question:       j.Question,
		Description:    j.Description,
		Category:       category,
		EndTime:        j.EndTime,
		OracleSource:   source,
		OracleDataType: dataType,
		PriceFeed:      j.PriceFeed,
		TargetPrice:    j.TargetPrice,
		GameID:         j.GameID,
		TargetSpread:   j.TargetSpread,
		Location:       j.Location,
		TargetValue:    j.TargetValue,
		DataIdentifier: j.DataIdentifier,
		Threshold:      j.Threshold,
		Sequence:       j.Sequence,
		Timestamp:      j.Timestamp,
	}

	if j.WeatherMetric != nil {
		metric, err := state.ParseWeatherMetric(*j.WeatherMetric)
		if err != nil {
			return nil, fmt.Errorf("parse weather_metric: %w", err)
		}
		evt.WeatherMetric = &metric
	}
	if j.MetricType != nil {
		kind, err := state.ParseMetricType(*j.MetricType)
		if err != nil {
			return nil, fmt.Errorf("parse metric_type: %w", err)
		}
		evt.MetricType = &kind
	}

	return evt, nil
}

type placeBetJSON struct {
	RequestID  string `json:"request_id"`
	Market     string `json:"market"`
	Bettor     string `json:"bettor"`
	Amount     int64  `json:"amount"`
	Prediction bool   `json:"prediction"`
	CardMint   string `json:"card_mint,omitempty"`
	Sequence   int64  `json:"sequence"`
	Timestamp  int64  `json:"timestamp"`
}

func parsePlaceBet(data []byte) (*event.PlaceBet, error) {
	var j placeBetJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse PlaceBet: %w", err)
	}
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}

	return &event.PlaceBet{
		RequestID:  requestID,
		Market:     j.Market,
		Bettor:     j.Bettor,
		Amount:     j.Amount,
		Prediction: j.Prediction,
		Sequence:   j.Sequence,
		Timestamp:  j.Timestamp,
	}, nil
}

func parseBattleStake(data []byte) (*event.BattleStake, error) {
	var j placeBetJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse BattleStake: %w", err)
	}
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	if j.CardMint == "" {
		return nil, fmt.Errorf("card_mint is required")
	}

	return &event.BattleStake{
		RequestID:  requestID,
		Market:     j.Market,
		Bettor:     j.Bettor,
		Amount:     j.Amount,
		Prediction: j.Prediction,
		CardMint:   j.CardMint,
		Sequence:   j.Sequence,
		Timestamp:  j.Timestamp,
	}, nil
}

type resolutionJSON struct {
	RequestID     string `json:"request_id"`
	Market        string `json:"market"`
	Signer        string `json:"signer"`
	Outcome       bool   `json:"outcome"`
	FeedID        string `json:"feed_id"`
	TeamAScore    int64  `json:"team_a_score"`
	TeamBScore    int64  `json:"team_b_score"`
	RecordedValue int64  `json:"recorded_value"`
	ActualValue   int64  `json:"actual_value"`
	Sequence      int64  `json:"sequence"`
	Timestamp     int64  `json:"timestamp"`
}

func (j *resolutionJSON) requestID() (uuid.UUID, error) {
	id, err := uuid.Parse(j.RequestID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse request_id: %w", err)
	}
	return id, nil
}

func parseResolveManual(data []byte) (*event.ResolveManual, error) {
	var j resolutionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse ResolveManual: %w", err)
	}
	id, err := j.requestID()
	if err != nil {
		return nil, err
	}
	return &event.ResolveManual{
		RequestID: id, Market: j.Market, Signer: j.Signer, Outcome: j.Outcome,
		Sequence: j.Sequence, Timestamp: j.Timestamp,
	}, nil
}

func parseResolveWithOracle(data []byte) (*event.ResolveWithOracle, error) {
	var j resolutionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse ResolveWithOracle: %w", err)
	}
	id, err := j.requestID()
	if err != nil {
		return nil, err
	}
	return &event.ResolveWithOracle{
		RequestID: id, Market: j.Market, Signer: j.Signer, FeedID: j.FeedID,
		Sequence: j.Sequence, Timestamp: j.Timestamp,
	}, nil
}

func parseResolveSports(data []byte) (*event.ResolveSports, error) {
	var j resolutionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse ResolveSports: %w", err)
	}
	id, err := j.requestID()
	if err != nil {
		return nil, err
	}
	return &event.ResolveSports{
		RequestID: id, Market: j.Market, Signer: j.Signer,
		TeamAScore: j.TeamAScore, TeamBScore: j.TeamBScore,
		Sequence: j.Sequence, Timestamp: j.Timestamp,
	}, nil
}

func parseResolveWeather(data []byte) (*event.ResolveWeather, error) {
	var j resolutionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse ResolveWeather: %w", err)
	}
	id, err := j.requestID()
	if err != nil {
		return nil, err
	}
	return &event.ResolveWeather{
		RequestID: id, Market: j.Market, Signer: j.Signer,
		RecordedValue: j.RecordedValue,
		Sequence:      j.Sequence, Timestamp: j.Timestamp,
	}, nil
}

func parseResolveSocial(data []byte) (*event.ResolveSocial, error) {
	var j resolutionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse ResolveSocial: %w", err)
	}
	id, err := j.requestID()
	if err != nil {
		return nil, err
	}
	return &event.ResolveSocial{
		RequestID: id, Market: j.Market, Signer: j.Signer,
		ActualValue: j.ActualValue,
		Sequence:    j.Sequence, Timestamp: j.Timestamp,
	}, nil
}

type claimWinningsJSON struct {
	RequestID string `json:"request_id"`
	Market    string `json:"market"`
	Bettor    string `json:"bettor"`
	Sequence  int64  `json:"sequence"`
	Timestamp int64  `json:"timestamp"`
}

func parseClaimWinnings(data []byte) (*event.ClaimWinnings, error) {
	var j claimWinningsJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse ClaimWinnings: %w", err)
	}
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	return &event.ClaimWinnings{
		RequestID: requestID,
		Market:    j.Market,
		Bettor:    j.Bettor,
		Sequence:  j.Sequence,
		Timestamp: j.Timestamp,
	}, nil
}

type collectFeeJSON struct {
	RequestID string `json:"request_id"`
	Market    string `json:"market"`
	Signer    string `json:"signer"`
	Sequence  int64  `json:"sequence"`
	Timestamp int64  `json:"timestamp"`
}

func parseCollectPlatformFee(data []byte) (*event.CollectPlatformFee, error) {
	var j collectFeeJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse CollectPlatformFee: %w", err)
	}
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	return &event.CollectPlatformFee{
		RequestID: requestID,
		Market:    j.Market,
		Signer:    j.Signer,
		Sequence:  j.Sequence,
		Timestamp: j.Timestamp,
	}, nil
}

type mintCardJSON struct {
	RequestID  string `json:"request_id"`
	Mint       string `json:"mint"`
	Owner      string `json:"owner"`
	Power      uint8  `json:"power"`
	Rarity     uint8  `json:"rarity"`
	Multiplier int64  `json:"multiplier"`
	Sequence   int64  `json:"sequence"`
	Timestamp  int64  `json:"timestamp"`
}

func parseMintCard(data []byte) (*event.MintCard, error) {
	var j mintCardJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse MintCard: %w", err)
	}
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	if j.Mint == "" {
		return nil, fmt.Errorf("mint is required")
	}
	return &event.MintCard{
		RequestID:  requestID,
		Mint:       j.Mint,
		Owner:      j.Owner,
		Power:      j.Power,
		Rarity:     j.Rarity,
		Multiplier: j.Multiplier,
		Sequence:   j.Sequence,
		Timestamp:  j.Timestamp,
	}, nil
}

type battleCardsJSON struct {
	RequestID  string `json:"request_id"`
	Challenger string `json:"challenger"`
	Defender   string `json:"defender"`
	Signer     string `json:"signer"`
	Sequence   int64  `json:"sequence"`
	Timestamp  int64  `json:"timestamp"`
}

func parseBattleCards(data []byte) (*event.BattleCards, error) {
	var j battleCardsJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse BattleCards: %w", err)
	}
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	if j.Challenger == "" || j.Defender == "" {
		return nil, fmt.Errorf("challenger and defender are required")
	}
	return &event.BattleCards{
		RequestID:  requestID,
		Challenger: j.Challenger,
		Defender:   j.Defender,
		Signer:     j.Signer,
		Sequence:   j.Sequence,
		Timestamp:  j.Timestamp,
	}, nil
}

type updateCardStatsJSON struct {
	RequestID string `json:"request_id"`
	Mint      string `json:"mint"`
	Signer    string `json:"signer"`
	Won       bool   `json:"won"`
	Sequence  int64  `json:"sequence"`
	Timestamp int64  `json:"timestamp"`
}

func parseUpdateCardStats(data []byte) (*event.UpdateCardStats, error) {
	var j updateCardStatsJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse UpdateCardStats: %w", err)
	}
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	return &event.UpdateCardStats{
		RequestID: requestID,
		Mint:      j.Mint,
		Signer:    j.Signer,
		Won:       j.Won,
		Sequence:  j.Sequence,
		Timestamp: j.Timestamp,
	}, nil
}

type priceFeedUpdateJSON struct {
	FeedID       string `json:"feed_id"`
	Price        int64  `json:"price"`
	PublishTime  int64  `json:"publish_time"`
	FeedSequence int64  `json:"feed_sequence"`
}

func parsePriceFeedUpdate(data []byte) (*event.PriceFeedUpdate, error) {
	var j priceFeedUpdateJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse PriceFeedUpdate: %w", err)
	}
	if j.FeedID == "" {
		return nil, fmt.Errorf("feed_id is required")
	}
	return &event.PriceFeedUpdate{
		FeedID:       j.FeedID,
		Price:        j.Price,
		PublishTime:  j.PublishTime,
		FeedSequence: j.FeedSequence,
	}, nil
}

type fundsJSON struct {
	RequestID string `json:"request_id"`
	Bettor    string `json:"bettor"`
	Amount    int64  `json:"amount"`
	Sequence  int64  `json:"sequence"`
	Timestamp int64  `json:"timestamp"`
}

func parseDeposit(data []byte) (*event.Deposit, error) {
	var j fundsJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse Deposit: %w", err)
	}
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	return &event.Deposit{
		RequestID: requestID,
		Bettor:    j.Bettor,
		Amount:    j.Amount,
		Sequence:  j.Sequence,
		Timestamp: j.Timestamp,
	}, nil
}

func parseWithdraw(data []byte) (*event.Withdraw, error) {
	var j fundsJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse Withdraw: %w", err)
	}
	requestID, err := uuid.Parse(j.RequestID)
	if err != nil {
		return nil, fmt.Errorf("parse request_id: %w", err)
	}
	return &event.Withdraw{
		RequestID: requestID,
		Bettor:    j.Bettor,
		Amount:    j.Amount,
		Sequence:  j.Sequence,
		Timestamp: j.Timestamp,
	}, nil
}
