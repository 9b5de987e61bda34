package state

import "errors"

// Settlement errors surfaced to callers. Every operation is all-or-nothing:
// a failed precondition aborts with one of these and no partial mutation.
var (
	// Input validation
	ErrQuestionTooLong    = errors.New("question exceeds 100 characters")
	ErrDescriptionTooLong = errors.New("description exceeds 200 characters")
	ErrInvalidEndTime     = errors.New("end time must be in the future")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidCardTraits  = errors.New("card traits out of range")

	// Resolution-state guards
	ErrMarketAlreadyResolved = errors.New("market already resolved")
	ErrMarketNotResolved     = errors.New("market not resolved")
	ErrMarketEnded           = errors.New("market betting window has closed")
	ErrMarketNotEnded        = errors.New("market has not reached its end time")

	// Claim guards
	ErrAlreadyClaimed = errors.New("winnings already claimed")
	ErrLosingBet      = errors.New("bet is on the losing side")
	ErrNoWinningBets  = errors.New("no bets on the winning side")

	// Authorization
	ErrUnauthorized = errors.New("signer is not the market authority")
	ErrNotCardOwner = errors.New("signer is not the card owner")

	// Battles
	ErrBattleSameCard = errors.New("a card cannot battle itself")

	// Oracle-kind mismatches
	ErrRequiresOracleResolution = errors.New("market requires its configured oracle resolution")
	ErrNotOracleMarket          = errors.New("market is not configured for oracle resolution")
	ErrOracleConfigRequired     = errors.New("oracle configuration missing required fields")

	// External feed integration
	ErrInvalidPriceFeed  = errors.New("price feed does not match market configuration")
	ErrPriceNotAvailable = errors.New("no price available for feed")
	ErrStalePriceData    = errors.New("price data exceeds staleness bound")

	// Deterministic-address collisions and lookups
	ErrPlatformExists         = errors.New("platform already initialized")
	ErrPlatformNotInitialized = errors.New("platform not initialized")
	ErrMarketExists           = errors.New("market already exists for creator and question")
	ErrMarketNotFound         = errors.New("market not found")
	ErrBetExists              = errors.New("bet already exists for market and bettor")
	ErrBetNotFound            = errors.New("bet not found")
	ErrCardExists             = errors.New("card already exists for mint")
	ErrCardNotFound           = errors.New("card not found")

	// Fee collection
	ErrFeeAlreadyCollected = errors.New("platform fee already collected for market")

	// Arithmetic
	ErrMathOverflow = errors.New("fixed-point arithmetic overflow")
)
