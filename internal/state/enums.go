package state

import "fmt"

// MarketCategory tags a market with one of 8 fixed labels
type MarketCategory int32

const (
	CategorySports MarketCategory = iota
	CategoryCrypto
	CategoryPolitics
	CategoryEntertainment
	CategoryWeather
	CategoryTechnology
	CategoryGaming
	CategoryOther
)

func (c MarketCategory) String() string {
	switch c {
	case CategorySports:
		return "sports"
	case CategoryCrypto:
		return "crypto"
	case CategoryPolitics:
		return "politics"
	case CategoryEntertainment:
		return "entertainment"
	case CategoryWeather:
		return "weather"
	case CategoryTechnology:
		return "technology"
	case CategoryGaming:
		return "gaming"
	case CategoryOther:
		return "other"
	default:
		return "unknown"
	}
}

func ParseMarketCategory(s string) (MarketCategory, error) {
	switch s {
	case "sports":
		return CategorySports, nil
	case "crypto":
		return CategoryCrypto, nil
	case "politics":
		return CategoryPolitics, nil
	case "entertainment":
		return CategoryEntertainment, nil
	case "weather":
		return CategoryWeather, nil
	case "technology":
		return CategoryTechnology, nil
	case "gaming":
		return CategoryGaming, nil
	case "other":
		return CategoryOther, nil
	}
	return 0, fmt.Errorf("unknown market category: %q", s)
}

// OracleSource identifies which external mechanism resolves a market
type OracleSource int32

const (
	SourceManual OracleSource = iota
	SourcePythPrice
	SourceChainlinkPrice
	SourceChainlinkSports
	SourceChainlinkWeather
	SourceSwitchboardPrice
	SourceSwitchboardCustom
	SourceCustomAPI
)

func (s OracleSource) String() string {
	switch s {
	case SourceManual:
		return "manual"
	case SourcePythPrice:
		return "pyth_price"
	case SourceChainlinkPrice:
		return "chainlink_price"
	case SourceChainlinkSports:
		return "chainlink_sports"
	case SourceChainlinkWeather:
		return "chainlink_weather"
	case SourceSwitchboardPrice:
		return "switchboard_price"
	case SourceSwitchboardCustom:
		return "switchboard_custom"
	case SourceCustomAPI:
		return "custom_api"
	default:
		return "unknown"
	}
}

// IsPriceSource reports whether the source is a price feed
func (s OracleSource) IsPriceSource() bool {
	switch s {
	case SourcePythPrice, SourceChainlinkPrice, SourceSwitchboardPrice:
		return true
	}
	return false
}

func ParseOracleSource(s string) (OracleSource, error) {
	switch s {
	case "manual":
		return SourceManual, nil
	case "pyth_price":
		return SourcePythPrice, nil
	case "chainlink_price":
		return SourceChainlinkPrice, nil
	case "chainlink_sports":
		return SourceChainlinkSports, nil
	case "chainlink_weather":
		return SourceChainlinkWeather, nil
	case "switchboard_price":
		return SourceSwitchboardPrice, nil
	case "switchboard_custom":
		return SourceSwitchboardCustom, nil
	case "custom_api":
		return SourceCustomAPI, nil
	}
	return 0, fmt.Errorf("unknown oracle source: %q", s)
}

// OracleDataType identifies the shape of the data the oracle supplies
type OracleDataType int32

const (
	DataTypeNone OracleDataType = iota
	DataTypePrice
	DataTypeSportsScore
	DataTypeSportsWinner
	DataTypeWeather
	DataTypeSocial
	DataTypeBoxOffice
	DataTypeCustom
)

func (d OracleDataType) String() string {
	switch d {
	case DataTypeNone:
		return "none"
	case DataTypePrice:
		return "price"
	case DataTypeSportsScore:
		return "sports_score"
	case DataTypeSportsWinner:
		return "sports_winner"
	case DataTypeWeather:
		return "weather"
	case DataTypeSocial:
		return "social"
	case DataTypeBoxOffice:
		return "box_office"
	case DataTypeCustom:
		return "custom"
	default:
		return "unknown"
	}
}

func ParseOracleDataType(s string) (OracleDataType, error) {
	switch s {
	case "none":
		return DataTypeNone, nil
	case "price":
		return DataTypePrice, nil
	case "sports_score":
		return DataTypeSportsScore, nil
	case "sports_winner":
		return DataTypeSportsWinner, nil
	case "weather":
		return DataTypeWeather, nil
	case "social":
		return DataTypeSocial, nil
	case "box_office":
		return DataTypeBoxOffice, nil
	case "custom":
		return DataTypeCustom, nil
	}
	return 0, fmt.Errorf("unknown oracle data type: %q", s)
}

// WeatherMetric tags which measurement a weather market resolves on
type WeatherMetric int32

const (
	WeatherNone WeatherMetric = iota
	WeatherTemperature
	WeatherPrecipitation
	WeatherWindSpeed
	WeatherHumidity
)

func (m WeatherMetric) String() string {
	switch m {
	case WeatherNone:
		return "none"
	case WeatherTemperature:
		return "temperature"
	case WeatherPrecipitation:
		return "precipitation"
	case WeatherWindSpeed:
		return "wind_speed"
	case WeatherHumidity:
		return "humidity"
	default:
		return "unknown"
	}
}

func ParseWeatherMetric(s string) (WeatherMetric, error) {
	switch s {
	case "none":
		return WeatherNone, nil
	case "temperature":
		return WeatherTemperature, nil
	case "precipitation":
		return WeatherPrecipitation, nil
	case "wind_speed":
		return WeatherWindSpeed, nil
	case "humidity":
		return WeatherHumidity, nil
	}
	return 0, fmt.Errorf("unknown weather metric: %q", s)
}

// MetricType tags which measurement a social/custom market resolves on
type MetricType int32

const (
	MetricNone MetricType = iota
	MetricFollowerCount
	MetricLikeCount
	MetricViewCount
	MetricBoxOfficeGross
	MetricStreamRank
	MetricCustom
)

func (m MetricType) String() string {
	switch m {
	case MetricNone:
		return "none"
	case MetricFollowerCount:
		return "follower_count"
	case MetricLikeCount:
		return "like_count"
	case MetricViewCount:
		return "view_count"
	case MetricBoxOfficeGross:
		return "box_office_gross"
	case MetricStreamRank:
		return "stream_rank"
	case MetricCustom:
		return "custom"
	default:
		return "unknown"
	}
}

func ParseMetricType(s string) (MetricType, error) {
	switch s {
	case "none":
		return MetricNone, nil
	case "follower_count":
		return MetricFollowerCount, nil
	case "like_count":
		return MetricLikeCount, nil
	case "view_count":
		return MetricViewCount, nil
	case "box_office_gross":
		return MetricBoxOfficeGross, nil
	case "stream_rank":
		return MetricStreamRank, nil
	case "custom":
		return MetricCustom, nil
	}
	return 0, fmt.Errorf("unknown metric type: %q", s)
}
