// Package oracle applies the per-kind resolution rules that turn recorded
// external data into a market's boolean outcome.
package oracle

import (
	"PredictionLedger/internal/state"
)

// CheckResolvable verifies the shared resolution guards: the market must be
// past its end time and not yet resolved.
func CheckResolvable(m *state.Market, now int64) error {
	if m.Resolved {
		return state.ErrMarketAlreadyResolved
	}
	if now < m.EndTime {
		return state.ErrMarketNotEnded
	}
	return nil
}

// EvaluateManual returns the authority-supplied outcome unchanged. The
// market must be configured for manual resolution.
func EvaluateManual(m *state.Market, outcome bool) (bool, error) {
	if m.Oracle.Source() != state.SourceManual {
		return false, state.ErrRequiresOracleResolution
	}
	return outcome, nil
}

// EvaluatePrice resolves a price-feed market from the latest feed snapshot:
// outcome = currentPrice >= targetPrice. The strike price is recorded on the
// oracle config. Fails closed when the feed is missing, mismatched, or older
// than the staleness bound relative to the operation timestamp. A non-empty
// feedID names the feed the caller resolved against and must match the
// market's configuration.
func EvaluatePrice(m *state.Market, cache *state.PriceFeedCache, feedID string, now int64) (bool, error) {
	cfg, ok := m.Oracle.(*state.PriceOracle)
	if !ok {
		return false, state.ErrNotOracleMarket
	}
	if cfg.FeedID == "" {
		return false, state.ErrOracleConfigRequired
	}
	if feedID != "" && feedID != cfg.FeedID {
		return false, state.ErrInvalidPriceFeed
	}

	snap, ok := cache.Get(cfg.FeedID)
	if !ok {
		return false, state.ErrPriceNotAvailable
	}
	if now-snap.PublishTime > state.PriceStalenessBound {
		return false, state.ErrStalePriceData
	}

	cfg.StrikePrice = snap.Price
	return snap.Price >= cfg.TargetPrice, nil
}

// EvaluateSports records both scores and resolves: with a configured spread,
// outcome = (teamA - teamB) >= targetSpread; otherwise simple winner
// comparison (teamA > teamB).
func EvaluateSports(m *state.Market, teamAScore, teamBScore int64) (bool, error) {
	cfg, ok := m.Oracle.(*state.SportsOracle)
	if !ok {
		return false, state.ErrRequiresOracleResolution
	}

	cfg.TeamAScore = teamAScore
	cfg.TeamBScore = teamBScore
	cfg.Recorded = true

	if cfg.Kind == state.DataTypeSportsScore {
		return (teamAScore - teamBScore) >= cfg.TargetSpread, nil
	}
	return teamAScore > teamBScore, nil
}

// EvaluateWeather records the measurement (x100 scale) and resolves:
// outcome = recordedValue >= targetValue.
func EvaluateWeather(m *state.Market, recordedValue int64) (bool, error) {
	cfg, ok := m.Oracle.(*state.WeatherOracle)
	if !ok {
		return false, state.ErrRequiresOracleResolution
	}

	cfg.RecordedValue = recordedValue
	cfg.Recorded = true
	return recordedValue >= cfg.TargetValue, nil
}

// EvaluateSocial records the metric value and resolves:
// outcome = actualValue >= threshold. Covers social, box-office and custom
// data types.
func EvaluateSocial(m *state.Market, actualValue int64) (bool, error) {
	cfg, ok := m.Oracle.(*state.SocialOracle)
	if !ok {
		return false, state.ErrRequiresOracleResolution
	}

	cfg.ActualValue = actualValue
	cfg.Recorded = true
	return actualValue >= cfg.Threshold, nil
}
