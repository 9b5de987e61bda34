package escrow

import (
	"fmt"
	"strings"
)

// AccountScope represents the top-level account namespace
type AccountScope uint8

const (
	AccountScopeBettor AccountScope = iota
	AccountScopeVault
	AccountScopeSystem
	AccountScopeExternal
)

// AccountSubType represents the account purpose
type AccountSubType uint8

const (
	// Bettor sub-types
	SubTypeWallet AccountSubType = iota

	// Vault sub-types
	SubTypePool

	// System sub-types
	SubTypeTreasury

	// External sub-types
	SubTypeExternalDeposits
	SubTypeExternalWithdrawals
)

// AssetID maps asset strings to numeric IDs for performance
type AssetID uint16

var (
	assetToID = map[string]AssetID{
		"SOL":  1,
		"USDC": 2,
	}
	idToAsset = map[AssetID]string{
		1: "SOL",
		2: "USDC",
	}
)

// NativeAsset is the settlement asset for stakes, payouts and fees.
const NativeAsset AssetID = 1

func GetAssetID(asset string) (AssetID, bool) {
	id, ok := assetToID[asset]
	return id, ok
}

func GetAssetName(id AssetID) (string, bool) {
	name, ok := idToAsset[id]
	return name, ok
}

// AccountKey is the in-memory key for balance tracking.
// Entity holds the bettor principal for wallet accounts and the market
// address for vaults; it is empty for system and external accounts.
type AccountKey struct {
	Scope   AccountScope
	Entity  string
	SubType AccountSubType
	AssetID AssetID
}

// NewBettorAccountKey creates a key for a bettor's wallet account
func NewBettorAccountKey(bettor string, assetID AssetID) AccountKey {
	return AccountKey{
		Scope:   AccountScopeBettor,
		Entity:  bettor,
		SubType: SubTypeWallet,
		AssetID: assetID,
	}
}

// NewVaultAccountKey creates a key for a market's escrow vault
func NewVaultAccountKey(marketAddr string, assetID AssetID) AccountKey {
	return AccountKey{
		Scope:   AccountScopeVault,
		Entity:  marketAddr,
		SubType: SubTypePool,
		AssetID: assetID,
	}
}

// NewTreasuryAccountKey creates the key for the platform fee account
func NewTreasuryAccountKey(assetID AssetID) AccountKey {
	return AccountKey{
		Scope:   AccountScopeSystem,
		SubType: SubTypeTreasury,
		AssetID: assetID,
	}
}

// NewExternalAccountKey creates a key for external boundary accounts
func NewExternalAccountKey(subType AccountSubType, assetID AssetID) AccountKey {
	return AccountKey{
		Scope:   AccountScopeExternal,
		SubType: subType,
		AssetID: assetID,
	}
}

// AccountPath returns the string representation for storage/logging
func (k AccountKey) AccountPath() string {
	assetName, _ := GetAssetName(k.AssetID)

	switch k.Scope {
	case AccountScopeBettor:
		return fmt.Sprintf("bettor:%s:%s:%s", k.Entity, k.subTypeName(), assetName)
	case AccountScopeVault:
		return fmt.Sprintf("vault:%s:%s", k.Entity, assetName)
	case AccountScopeSystem:
		return fmt.Sprintf("system:%s:%s", k.subTypeName(), assetName)
	case AccountScopeExternal:
		return fmt.Sprintf("external:%s:%s", k.subTypeName(), assetName)
	}
	return "unknown"
}

// ParseAccountPath is the inverse of AccountPath. Used when restoring
// balance state from a snapshot.
func ParseAccountPath(path string) (AccountKey, error) {
	parts := strings.Split(path, ":")
	if len(parts) < 3 {
		return AccountKey{}, fmt.Errorf("malformed account path: %q", path)
	}

	assetID, ok := GetAssetID(parts[len(parts)-1])
	if !ok {
		return AccountKey{}, fmt.Errorf("unknown asset in account path: %q", path)
	}

	switch parts[0] {
	case "bettor":
		if len(parts) != 4 || parts[2] != "wallet" {
			return AccountKey{}, fmt.Errorf("malformed bettor account path: %q", path)
		}
		return NewBettorAccountKey(parts[1], assetID), nil
	case "vault":
		if len(parts) != 3 {
			return AccountKey{}, fmt.Errorf("malformed vault account path: %q", path)
		}
		return NewVaultAccountKey(parts[1], assetID), nil
	case "system":
		if len(parts) != 3 || parts[1] != "treasury" {
			return AccountKey{}, fmt.Errorf("malformed system account path: %q", path)
		}
		return NewTreasuryAccountKey(assetID), nil
	case "external":
		if len(parts) != 3 {
			return AccountKey{}, fmt.Errorf("malformed external account path: %q", path)
		}
		var subType AccountSubType
		switch parts[1] {
		case "deposits":
			subType = SubTypeExternalDeposits
		case "withdrawals":
			subType = SubTypeExternalWithdrawals
		default:
			return AccountKey{}, fmt.Errorf("unknown external account: %q", path)
		}
		return NewExternalAccountKey(subType, assetID), nil
	}
	return AccountKey{}, fmt.Errorf("unknown account scope: %q", path)
}

func (k AccountKey) subTypeName() string {
	switch k.SubType {
	case SubTypeWallet:
		return "wallet"
	case SubTypePool:
		return "pool"
	case SubTypeTreasury:
		return "treasury"
	case SubTypeExternalDeposits:
		return "deposits"
	case SubTypeExternalWithdrawals:
		return "withdrawals"
	default:
		return "unknown"
	}
}
