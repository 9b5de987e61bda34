package state

// Card trait bounds. Power and rarity are fixed at mint time.
const (
	CardPowerMin  = 1
	CardPowerMax  = 10
	CardRarityMin = 0
	CardRarityMax = 4
)

// Card is a fixed-trait record with mutable win/loss counters.
type Card struct {
	Mint       string
	Owner      string
	Power      uint8
	Rarity     uint8
	Multiplier int64 // x1000 reward multiplier
	Wins       int64
	Losses     int64
	MintedAt   int64 // epoch seconds
	Version    int64 // Optimistic concurrency control
}

// ValidateTraits checks mint-time trait bounds
func ValidateTraits(power, rarity uint8, multiplier int64) error {
	if power < CardPowerMin || power > CardPowerMax {
		return ErrInvalidCardTraits
	}
	if rarity > CardRarityMax {
		return ErrInvalidCardTraits
	}
	if multiplier <= 0 {
		return ErrInvalidCardTraits
	}
	return nil
}

// BattleResult is the outcome of a head-to-head card comparison
type BattleResult int32

const (
	BattleDraw BattleResult = iota
	BattleChallengerWins
	BattleDefenderWins
)

func (r BattleResult) String() string {
	switch r {
	case BattleDraw:
		return "draw"
	case BattleChallengerWins:
		return "challenger_wins"
	case BattleDefenderWins:
		return "defender_wins"
	default:
		return "unknown"
	}
}

// ResolveBattle compares two cards: strictly greater power wins.
// Equal power is a draw and mutates neither counter.
func ResolveBattle(challenger, defender *Card) BattleResult {
	switch {
	case challenger.Power > defender.Power:
		return BattleChallengerWins
	case defender.Power > challenger.Power:
		return BattleDefenderWins
	default:
		return BattleDraw
	}
}

// CanonicalBytes returns deterministic serialization for hashing
func (c *Card) CanonicalBytes() []byte {
	buf := make([]byte, 0, 128)
	buf = appendString(buf, c.Mint)
	buf = appendString(buf, c.Owner)
	buf = append(buf, c.Power, c.Rarity)
	buf = appendInt64LE(buf, c.Multiplier)
	buf = appendInt64LE(buf, c.Wins)
	buf = appendInt64LE(buf, c.Losses)
	buf = appendInt64LE(buf, c.MintedAt)
	return buf
}
