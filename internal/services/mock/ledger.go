package mock

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"sync"

	"github.com/gagliardetto/solana-go"

	"cookie-checkout/internal/models"
)

// MockLedger is an in-memory ledger for standalone mode and tests. Token
// accounts are keyed by their derived associated token address, exactly like
// the real chain, so address derivation stays honest.
type MockLedger struct {
	verbose bool

	mu        sync.Mutex
	mints     map[solana.PublicKey]uint8  // mint -> decimals
	accounts  map[solana.PublicKey]uint64 // token account address -> balance
	created   int
	slot      uint64
	submitted []*solana.Transaction
}

func NewMockLedger(verbose bool) *MockLedger {
	return &MockLedger{
		verbose:  verbose,
		mints:    make(map[solana.PublicKey]uint8),
		accounts: make(map[solana.PublicKey]uint64),
	}
}

// RegisterMint declares a mint with its decimal precision.
func (m *MockLedger) RegisterMint(mint solana.PublicKey, decimals uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mints[mint] = decimals
}

// SetTokenBalance creates owner's associated token account for mint with the
// given balance in base units.
func (m *MockLedger) SetTokenBalance(mint, owner solana.PublicKey, balance uint64) error {
	address, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[address] = balance
	return nil
}

// CreatedAccounts reports how many token accounts this ledger has created,
// for asserting that resolution is idempotent.
func (m *MockLedger) CreatedAccounts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created
}

// SubmittedTransactions returns every transaction sent through the ledger.
func (m *MockLedger) SubmittedTransactions() []*solana.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*solana.Transaction{}, m.submitted...)
}

func (m *MockLedger) GetOrCreateTokenAccount(ctx context.Context, mint, owner solana.PublicKey) (*models.TokenAccount, error) {
	address, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive token account: %v", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	balance, exists := m.accounts[address]
	if !exists {
		m.accounts[address] = 0
		m.created++
		if m.verbose {
			log.Printf("[MOCK] Ledger: created token account %s for owner %s", address, owner)
		}
	}

	return &models.TokenAccount{Address: address, Balance: balance}, nil
}

func (m *MockLedger) FetchMint(ctx context.Context, mint solana.PublicKey) (*models.MintInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	decimals, exists := m.mints[mint]
	if !exists {
		return nil, fmt.Errorf("unknown mint: %s", mint)
	}

	return &models.MintInfo{Address: mint, Decimals: decimals}, nil
}

func (m *MockLedger) LatestAnchor(ctx context.Context) (*models.Anchor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.slot++
	digest := sha256.Sum256([]byte(fmt.Sprintf("mock-anchor-%d", m.slot)))

	return &models.Anchor{
		Blockhash:            solana.Hash(digest),
		LastValidBlockHeight: m.slot + 150,
	}, nil
}

func (m *MockLedger) SubmitTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.submitted = append(m.submitted, tx)
	if m.verbose {
		log.Printf("[MOCK] Ledger: accepted transaction with %d signatures", len(tx.Signatures))
	}

	if len(tx.Signatures) > 0 {
		return tx.Signatures[0], nil
	}
	return solana.Signature{}, nil
}
