package real

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	"cookie-checkout/internal/models"
)

// RealLedger talks to a Solana RPC node. It holds the shop's key because
// token account creation is paid and signed by the shop.
type RealLedger struct {
	client  *rpc.Client
	shopKey solana.PrivateKey
	verbose bool
}

func NewRealLedger(endpoint string, shopKey solana.PrivateKey, verbose bool) *RealLedger {
	return &RealLedger{
		client:  rpc.New(endpoint),
		shopKey: shopKey,
		verbose: verbose,
	}
}

// GetOrCreateTokenAccount resolves owner's associated token account for mint.
// If the account does not exist yet it is created on-chain, funded by the
// shop. Resolving an existing account never re-creates it.
func (l *RealLedger) GetOrCreateTokenAccount(ctx context.Context, mint, owner solana.PublicKey) (*models.TokenAccount, error) {
	address, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive token account: %v", err)
	}

	_, err = l.client.GetAccountInfo(ctx, address)
	if err == nil {
		balance, err := l.tokenBalance(ctx, address)
		if err != nil {
			return nil, err
		}
		return &models.TokenAccount{Address: address, Balance: balance}, nil
	}
	if !errors.Is(err, rpc.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up token account %s: %v", address, err)
	}

	if l.verbose {
		log.Printf("[LEDGER] Token account %s missing, creating it (shop pays)", address)
	}

	if err := l.createTokenAccount(ctx, mint, owner); err != nil {
		return nil, err
	}

	return &models.TokenAccount{Address: address, Balance: 0}, nil
}

// FetchMint reads and decodes the mint account record.
func (l *RealLedger) FetchMint(ctx context.Context, mint solana.PublicKey) (*models.MintInfo, error) {
	result, err := l.client.GetAccountInfo(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch mint %s: %v", mint, err)
	}

	var record token.Mint
	if err := bin.NewBinDecoder(result.Value.Data.GetBinary()).Decode(&record); err != nil {
		return nil, fmt.Errorf("failed to decode mint %s: %v", mint, err)
	}

	return &models.MintInfo{Address: mint, Decimals: record.Decimals}, nil
}

// LatestAnchor fetches a finalized recent blockhash and its expiry height.
func (l *RealLedger) LatestAnchor(ctx context.Context) (*models.Anchor, error) {
	result, err := l.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest blockhash: %v", err)
	}

	return &models.Anchor{
		Blockhash:            result.Value.Blockhash,
		LastValidBlockHeight: result.Value.LastValidBlockHeight,
	}, nil
}

func (l *RealLedger) SubmitTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := l.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %v", err)
	}

	if l.verbose {
		log.Printf("[LEDGER] Submitted transaction %s", sig)
	}

	return sig, nil
}

// createTokenAccount submits the associated-token-account creation
// transaction, funded and signed by the shop.
func (l *RealLedger) createTokenAccount(ctx context.Context, mint, owner solana.PublicKey) error {
	shopPub := l.shopKey.PublicKey()

	createInst, err := associatedtokenaccount.NewCreateInstruction(
		shopPub, // payer
		owner,   // wallet the account belongs to
		mint,
	).ValidateAndBuild()
	if err != nil {
		return fmt.Errorf("failed to build create account instruction: %v", err)
	}

	anchor, err := l.LatestAnchor(ctx)
	if err != nil {
		return err
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{createInst},
		anchor.Blockhash,
		solana.TransactionPayer(shopPub),
	)
	if err != nil {
		return fmt.Errorf("failed to build create account transaction: %v", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(shopPub) {
			return &l.shopKey
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign create account transaction: %v", err)
	}

	if _, err := l.SubmitTransaction(ctx, tx); err != nil {
		return err
	}

	return nil
}

// tokenBalance reads an existing token account's balance in base units.
func (l *RealLedger) tokenBalance(ctx context.Context, address solana.PublicKey) (uint64, error) {
	result, err := l.client.GetTokenAccountBalance(ctx, address, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch balance of %s: %v", address, err)
	}

	balance, err := strconv.ParseUint(result.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed balance for %s: %v", address, err)
	}

	return balance, nil
}
