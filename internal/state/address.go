package state

import (
	"crypto/sha256"
	"encoding/hex"
)

// Deterministic addressing: every record's storage location is a pure
// function of its logical identity, so a second creation attempt with the
// same identity collides with the first instead of duplicating. Addresses
// are hex-encoded SHA-256 digests over a domain-separated seed tuple.

const (
	seedPlatform = "platform"
	seedMarket   = "market"
	seedBet      = "bet"
	seedVault    = "vault"
	seedCard     = "card"
)

// marketQuestionSeedLen bounds the question component of a market seed.
// Two questions sharing the same creator and first 32 bytes collide.
const marketQuestionSeedLen = 32

func deriveAddress(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		// Length-prefix each part so ("ab","c") and ("a","bc") differ.
		h.Write([]byte{byte(len(p))})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// PlatformAddress returns the singleton platform record address.
func PlatformAddress() string {
	return deriveAddress(seedPlatform)
}

// DeriveMarketAddress computes a market's address from its creator and
// question prefix.
func DeriveMarketAddress(creator, question string) string {
	prefix := question
	if len(prefix) > marketQuestionSeedLen {
		prefix = prefix[:marketQuestionSeedLen]
	}
	return deriveAddress(seedMarket, creator, prefix)
}

// DeriveBetAddress computes the unique bet address for a (market, bettor) pair.
func DeriveBetAddress(marketAddr, bettor string) string {
	return deriveAddress(seedBet, marketAddr, bettor)
}

// DeriveVaultAddress computes the escrow vault address for a market.
func DeriveVaultAddress(marketAddr string) string {
	return deriveAddress(seedVault, marketAddr)
}

// DeriveCardAddress computes a card's address from its mint identifier.
func DeriveCardAddress(mint string) string {
	return deriveAddress(seedCard, mint)
}
