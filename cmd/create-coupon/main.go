// Command create-coupon is a one-time setup utility: it creates the
// 0-decimal coupon mint on the configured cluster, with the shop as mint
// authority. Run it once, then put the printed address into config.yaml
// under tokens.loyalty_mint.
package main

import (
	"context"
	"log"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	"cookie-checkout/internal/config"
	"cookie-checkout/internal/services"
)

// SPL mint account record size in bytes.
const mintAccountSize = 82

func main() {
	cfg := config.Load()

	shopKey, err := cfg.ShopPrivateKey()
	if err != nil {
		log.Fatalf("Shop private key not available: %v", err)
	}
	shopPub := shopKey.PublicKey()
	log.Printf("Shop public key: %s", shopPub)

	endpoint, err := services.ResolveEndpoint(cfg)
	if err != nil {
		log.Fatalf("Failed to resolve RPC endpoint: %v", err)
	}
	client := rpc.New(endpoint)
	ctx := context.Background()

	// The mint lives in a fresh account owned by the token program
	mintWallet := solana.NewWallet()
	mintPub := mintWallet.PublicKey()

	rent, err := client.GetMinimumBalanceForRentExemption(ctx, mintAccountSize, rpc.CommitmentFinalized)
	if err != nil {
		log.Fatalf("Failed to fetch rent-exempt balance: %v", err)
	}

	createInst, err := system.NewCreateAccountInstruction(
		rent,
		mintAccountSize,
		token.ProgramID,
		shopPub,
		mintPub,
	).ValidateAndBuild()
	if err != nil {
		log.Fatalf("Failed to build create account instruction: %v", err)
	}

	initInst, err := token.NewInitializeMintInstruction(
		0, // decimals: coupons are whole numbers only
		shopPub,
		shopPub,
		mintPub,
		solana.SysVarRentPubkey,
	).ValidateAndBuild()
	if err != nil {
		log.Fatalf("Failed to build initialize mint instruction: %v", err)
	}

	recent, err := client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		log.Fatalf("Failed to fetch latest blockhash: %v", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{createInst, initInst},
		recent.Value.Blockhash,
		solana.TransactionPayer(shopPub),
	)
	if err != nil {
		log.Fatalf("Failed to build transaction: %v", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		switch {
		case key.Equals(shopPub):
			return &shopKey
		case key.Equals(mintPub):
			return &mintWallet.PrivateKey
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to sign transaction: %v", err)
	}

	sig, err := client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		log.Fatalf("Failed to send transaction: %v", err)
	}

	log.Printf("Created coupon mint %s (transaction %s)", mintPub, sig)
	log.Printf("Set tokens.loyalty_mint to %s in config.yaml", mintPub)
}
