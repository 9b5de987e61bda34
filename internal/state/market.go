package state

// OracleConfig is the sum type over resolution mechanisms. Exactly one
// variant is attached to a market, so only the fields relevant to its
// oracle kind exist at all.
type OracleConfig interface {
	Source() OracleSource
	DataType() OracleDataType
	CanonicalBytes() []byte
}

// ManualOracle resolves by direct authority decision
type ManualOracle struct{}

func (ManualOracle) Source() OracleSource     { return SourceManual }
func (ManualOracle) DataType() OracleDataType { return DataTypeNone }
func (ManualOracle) CanonicalBytes() []byte {
	return []byte{byte(SourceManual)}
}

// PriceOracle resolves against an external price feed.
// TargetPrice and StrikePrice use the x10^8 price scale.
type PriceOracle struct {
	Src         OracleSource // one of the price-feed sources
	FeedID      string
	TargetPrice int64
	StrikePrice int64 // recorded at resolution, 0 until then
}

func (o *PriceOracle) Source() OracleSource     { return o.Src }
func (o *PriceOracle) DataType() OracleDataType { return DataTypePrice }
func (o *PriceOracle) CanonicalBytes() []byte {
	buf := []byte{byte(o.Src), byte(DataTypePrice)}
	buf = appendString(buf, o.FeedID)
	buf = appendInt64LE(buf, o.TargetPrice)
	buf = appendInt64LE(buf, o.StrikePrice)
	return buf
}

// SportsOracle resolves on reported team scores.
type SportsOracle struct {
	Src          OracleSource
	Kind         OracleDataType // sports_score (spread) or sports_winner
	GameID       string
	TargetSpread int64 // meaningful only for sports_score
	TeamAScore   int64 // recorded at resolution
	TeamBScore   int64
	Recorded     bool
}

func (o *SportsOracle) Source() OracleSource     { return o.Src }
func (o *SportsOracle) DataType() OracleDataType { return o.Kind }
func (o *SportsOracle) CanonicalBytes() []byte {
	buf := []byte{byte(o.Src), byte(o.Kind)}
	buf = appendString(buf, o.GameID)
	buf = appendInt64LE(buf, o.TargetSpread)
	buf = appendInt64LE(buf, o.TeamAScore)
	buf = appendInt64LE(buf, o.TeamBScore)
	buf = appendBool(buf, o.Recorded)
	return buf
}

// WeatherOracle resolves on a reported measurement.
// TargetValue and RecordedValue use the x100 weather scale.
type WeatherOracle struct {
	Src           OracleSource
	Location      string
	Metric        WeatherMetric
	TargetValue   int64
	RecordedValue int64
	Recorded      bool
}

func (o *WeatherOracle) Source() OracleSource     { return o.Src }
func (o *WeatherOracle) DataType() OracleDataType { return DataTypeWeather }
func (o *WeatherOracle) CanonicalBytes() []byte {
	buf := []byte{byte(o.Src), byte(DataTypeWeather), byte(o.Metric)}
	buf = appendString(buf, o.Location)
	buf = appendInt64LE(buf, o.TargetValue)
	buf = appendInt64LE(buf, o.RecordedValue)
	buf = appendBool(buf, o.Recorded)
	return buf
}

// SocialOracle resolves on a reported metric value (social, box office, custom).
type SocialOracle struct {
	Src            OracleSource
	Kind           OracleDataType // social, box_office or custom
	DataIdentifier string
	Metric         MetricType
	Threshold      int64
	ActualValue    int64
	Recorded       bool
}

func (o *SocialOracle) Source() OracleSource     { return o.Src }
func (o *SocialOracle) DataType() OracleDataType { return o.Kind }
func (o *SocialOracle) CanonicalBytes() []byte {
	buf := []byte{byte(o.Src), byte(o.Kind), byte(o.Metric)}
	buf = appendString(buf, o.DataIdentifier)
	buf = appendInt64LE(buf, o.Threshold)
	buf = appendInt64LE(buf, o.ActualValue)
	buf = appendBool(buf, o.Recorded)
	return buf
}

// Market is a single binary-outcome question with a betting window and a
// configured resolution method.
type Market struct {
	Address        string
	Creator        string
	Authority      string
	Question       string
	Description    string
	Category       MarketCategory
	Oracle         OracleConfig
	EndTime        int64 // epoch seconds
	CreatedAt      int64 // epoch seconds
	Resolved       bool
	Outcome        bool // meaningful only when Resolved
	TotalYesAmount int64
	TotalNoAmount  int64
	FeeCollected   bool
	Version        int64 // Optimistic concurrency control
}

// TotalPool returns the combined stakes across both sides
func (m *Market) TotalPool() int64 {
	return m.TotalYesAmount + m.TotalNoAmount
}

// WinningPool returns the pool on the resolved side
func (m *Market) WinningPool() int64 {
	if m.Outcome {
		return m.TotalYesAmount
	}
	return m.TotalNoAmount
}

// BettingOpen reports whether a bet at the given time is accepted
func (m *Market) BettingOpen(now int64) bool {
	return !m.Resolved && now < m.EndTime
}

// CanonicalBytes returns deterministic serialization for hashing
func (m *Market) CanonicalBytes() []byte {
	buf := make([]byte, 0, 256)
	buf = appendString(buf, m.Address)
	buf = appendString(buf, m.Creator)
	buf = appendString(buf, m.Authority)
	buf = appendString(buf, m.Question)
	buf = appendString(buf, m.Description)
	buf = append(buf, byte(m.Category))
	buf = append(buf, m.Oracle.CanonicalBytes()...)
	buf = appendInt64LE(buf, m.EndTime)
	buf = appendInt64LE(buf, m.CreatedAt)
	buf = appendBool(buf, m.Resolved)
	buf = appendBool(buf, m.Outcome)
	buf = appendInt64LE(buf, m.TotalYesAmount)
	buf = appendInt64LE(buf, m.TotalNoAmount)
	buf = appendBool(buf, m.FeeCollected)
	return buf
}
