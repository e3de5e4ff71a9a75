package interfaces

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"cookie-checkout/internal/models"
)

// LedgerService is the narrow capability boundary to the Solana network.
// Everything checkout needs from the chain goes through it, so the core can
// be exercised against an in-memory implementation without any network.
type LedgerService interface {
	// GetOrCreateTokenAccount resolves the associated token account holding
	// mint for owner, creating it on-chain at the shop's expense if absent.
	// Resolving an existing account must be a no-op, never a duplicate error.
	GetOrCreateTokenAccount(ctx context.Context, mint, owner solana.PublicKey) (*models.TokenAccount, error)

	// FetchMint reads the mint record to learn its decimal precision.
	FetchMint(ctx context.Context, mint solana.PublicKey) (*models.MintInfo, error)

	// LatestAnchor fetches a recent blockhash and its validity-height bound.
	LatestAnchor(ctx context.Context) (*models.Anchor, error)

	// SubmitTransaction sends a fully signed transaction to the network.
	// Checkout itself never submits the partially-signed payment transaction;
	// this exists for side transactions such as token account creation.
	SubmitTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// PriceCalculator turns the caller's line-item selection into an exact
// decimal charge amount.
type PriceCalculator interface {
	Price(selection map[string]int) (decimal.Decimal, error)
}

// ShopInfo contains the merchant descriptor served to wallet clients.
type ShopInfo struct {
	Label string
	Icon  string
}
