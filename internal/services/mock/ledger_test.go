package mock

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateTokenAccountIdempotent(t *testing.T) {
	ledger := NewMockLedger(false)
	mint := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()
	ctx := context.Background()

	first, err := ledger.GetOrCreateTokenAccount(ctx, mint, owner)
	require.NoError(t, err)
	assert.EqualValues(t, 0, first.Balance)

	second, err := ledger.GetOrCreateTokenAccount(ctx, mint, owner)
	require.NoError(t, err)
	assert.True(t, second.Address.Equals(first.Address))
	assert.Equal(t, 1, ledger.CreatedAccounts())
}

func TestGetOrCreateTokenAccountKeepsBalance(t *testing.T) {
	ledger := NewMockLedger(false)
	mint := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()

	require.NoError(t, ledger.SetTokenBalance(mint, owner, 7))

	account, err := ledger.GetOrCreateTokenAccount(context.Background(), mint, owner)
	require.NoError(t, err)
	assert.EqualValues(t, 7, account.Balance)
	assert.Equal(t, 0, ledger.CreatedAccounts())
}

func TestFetchMintUnknown(t *testing.T) {
	ledger := NewMockLedger(false)

	_, err := ledger.FetchMint(context.Background(), solana.NewWallet().PublicKey())
	require.Error(t, err)
}

func TestLatestAnchorAdvances(t *testing.T) {
	ledger := NewMockLedger(false)
	ctx := context.Background()

	first, err := ledger.LatestAnchor(ctx)
	require.NoError(t, err)
	second, err := ledger.LatestAnchor(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, first.Blockhash, second.Blockhash)
	assert.Greater(t, second.LastValidBlockHeight, first.LastValidBlockHeight)
}
