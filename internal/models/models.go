package models

import (
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// TokenAccount is a resolved on-chain token account: the address holding one
// token type for one owner, plus its balance in the token's base units.
type TokenAccount struct {
	Address solana.PublicKey
	Balance uint64
}

// MintInfo holds the on-chain metadata of a token mint that checkout needs:
// its address and declared decimal precision.
type MintInfo struct {
	Address  solana.PublicKey
	Decimals uint8
}

// Anchor is a recent chain-state reference a transaction must cite to be
// valid. The transaction expires once the chain passes LastValidBlockHeight.
type Anchor struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
}

// LoyaltyActionKind tags the two mutually exclusive loyalty instruction
// variants a checkout can produce.
type LoyaltyActionKind string

const (
	LoyaltyMint LoyaltyActionKind = "mint"
	LoyaltyBurn LoyaltyActionKind = "burn"
)

// LoyaltyAction is the loyalty instruction variant selected from the buyer's
// coupon balance: either burn the discount threshold or mint one reward coupon.
type LoyaltyAction struct {
	Kind   LoyaltyActionKind
	Amount uint64
}

// MenuItemInfo describes one purchasable line item.
type MenuItemInfo struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

// MenuLookup maps line-item IDs to their menu entries.
type MenuLookup map[string]MenuItemInfo

// GetItemInfo returns the menu entry for an item ID.
func (m MenuLookup) GetItemInfo(id string) (MenuItemInfo, bool) {
	info, exists := m[id]
	return info, exists
}
