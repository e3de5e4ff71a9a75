package checkout

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cookie-checkout/internal/models"
	"cookie-checkout/internal/pricing"
	"cookie-checkout/internal/services/mock"
)

// SPL token program opcodes of the checked instruction variants.
const (
	opTransferChecked = 12
	opMintToChecked   = 14
	opBurnChecked     = 15
)

type fixture struct {
	svc         *Service
	ledger      *mock.MockLedger
	shopKey     solana.PrivateKey
	buyer       solana.PrivateKey
	reference   solana.PublicKey
	paymentMint solana.PublicKey
	loyaltyMint solana.PublicKey
}

// newFixture wires a checkout service against the in-memory ledger with the
// given payment-mint precision and buyer coupon balance.
func newFixture(t *testing.T, decimals uint8, couponBalance uint64) *fixture {
	t.Helper()

	f := &fixture{
		ledger:      mock.NewMockLedger(false),
		shopKey:     solana.NewWallet().PrivateKey,
		buyer:       solana.NewWallet().PrivateKey,
		reference:   solana.NewWallet().PublicKey(),
		paymentMint: solana.NewWallet().PublicKey(),
		loyaltyMint: solana.NewWallet().PublicKey(),
	}

	f.ledger.RegisterMint(f.paymentMint, decimals)
	f.ledger.RegisterMint(f.loyaltyMint, 0)
	if couponBalance > 0 {
		require.NoError(t, f.ledger.SetTokenBalance(f.loyaltyMint, f.buyer.PublicKey(), couponBalance))
	}

	menu := models.MenuLookup{
		"cookie":  {ID: "cookie", Name: "Cookie", Price: decimal.RequireFromString("5.00")},
		"brownie": {ID: "brownie", Name: "Brownie", Price: decimal.RequireFromString("3.75")},
	}

	f.svc = NewService(
		f.shopKey,
		f.paymentMint,
		f.loyaltyMint,
		"devnet",
		pricing.NewCalculator(menu, false),
		f.ledger,
		false,
	)

	return f
}

func (f *fixture) request() Request {
	return Request{
		Items:     map[string]int{"cookie": 2}, // charge 10.00
		Reference: f.reference.String(),
		Account:   f.buyer.PublicKey().String(),
	}
}

func decodeResult(t *testing.T, res *Result) *solana.Transaction {
	t.Helper()

	raw, err := base64.StdEncoding.DecodeString(res.Transaction)
	require.NoError(t, err)

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	require.NoError(t, err)
	return tx
}

// instructionKeys resolves a compiled instruction's account indexes back to
// public keys.
func instructionKeys(tx *solana.Transaction, ix solana.CompiledInstruction) []solana.PublicKey {
	keys := make([]solana.PublicKey, 0, len(ix.Accounts))
	for _, idx := range ix.Accounts {
		keys = append(keys, tx.Message.AccountKeys[idx])
	}
	return keys
}

func containsKey(keys []solana.PublicKey, key solana.PublicKey) bool {
	for _, k := range keys {
		if k.Equals(key) {
			return true
		}
	}
	return false
}

func TestBuildTransactionMintBranch(t *testing.T) {
	f := newFixture(t, 6, 0)

	res, err := f.svc.BuildTransaction(context.Background(), f.request())
	require.NoError(t, err)

	assert.Equal(t, "Thanks for your order! 🍪", res.Message)
	assert.Equal(t, "devnet", res.Network)

	tx := decodeResult(t, res)
	require.Len(t, tx.Message.Instructions, 2)

	// The buyer pays the network fee
	assert.True(t, tx.Message.AccountKeys[0].Equals(f.buyer.PublicKey()))

	// Transfer first: 10.00 at 6 decimals, reference appended last
	transfer := tx.Message.Instructions[0]
	assert.True(t, tx.Message.AccountKeys[transfer.ProgramIDIndex].Equals(solana.TokenProgramID))
	data := []byte(transfer.Data)
	require.GreaterOrEqual(t, len(data), 10)
	assert.EqualValues(t, opTransferChecked, data[0])
	assert.EqualValues(t, 10_000_000, binary.LittleEndian.Uint64(data[1:9]))
	assert.EqualValues(t, 6, data[9])

	transferKeys := instructionKeys(tx, transfer)
	require.NotEmpty(t, transferKeys)
	assert.True(t, transferKeys[len(transferKeys)-1].Equals(f.reference))
	assert.False(t, tx.Message.IsSigner(f.reference))

	// Loyalty second: mint 1 coupon, authorized by the shop
	loyalty := tx.Message.Instructions[1]
	assert.True(t, tx.Message.AccountKeys[loyalty.ProgramIDIndex].Equals(solana.TokenProgramID))
	data = []byte(loyalty.Data)
	require.GreaterOrEqual(t, len(data), 10)
	assert.EqualValues(t, opMintToChecked, data[0])
	assert.EqualValues(t, 1, binary.LittleEndian.Uint64(data[1:9]))
	assert.EqualValues(t, 0, data[9])
	assert.True(t, containsKey(instructionKeys(tx, loyalty), f.shopKey.PublicKey()))
	assert.True(t, tx.Message.IsSigner(f.shopKey.PublicKey()))
}

func TestBuildTransactionBurnBranch(t *testing.T) {
	f := newFixture(t, 6, 7)

	res, err := f.svc.BuildTransaction(context.Background(), f.request())
	require.NoError(t, err)

	assert.Equal(t, "50% Discount! 🍪", res.Message)

	tx := decodeResult(t, res)
	require.Len(t, tx.Message.Instructions, 2)

	// Charge halved: 5.00 at 6 decimals
	data := []byte(tx.Message.Instructions[0].Data)
	assert.EqualValues(t, opTransferChecked, data[0])
	assert.EqualValues(t, 5_000_000, binary.LittleEndian.Uint64(data[1:9]))

	// Burn exactly the threshold, buyer is the owner, shop still co-signs
	loyalty := tx.Message.Instructions[1]
	data = []byte(loyalty.Data)
	assert.EqualValues(t, opBurnChecked, data[0])
	assert.EqualValues(t, 5, binary.LittleEndian.Uint64(data[1:9]))
	assert.EqualValues(t, 0, data[9])

	keys := instructionKeys(tx, loyalty)
	assert.True(t, containsKey(keys, f.buyer.PublicKey()))
	assert.True(t, containsKey(keys, f.shopKey.PublicKey()))
	assert.True(t, tx.Message.IsSigner(f.shopKey.PublicKey()))
}

func TestBuildTransactionPartiallySigned(t *testing.T) {
	f := newFixture(t, 6, 0)

	res, err := f.svc.BuildTransaction(context.Background(), f.request())
	require.NoError(t, err)

	tx := decodeResult(t, res)

	// Buyer and shop are the only required signers; the buyer slot stays
	// empty until the wallet counter-signs.
	require.EqualValues(t, 2, tx.Message.Header.NumRequiredSignatures)
	require.Len(t, tx.Signatures, 2)

	var empty solana.Signature
	for i := 0; i < int(tx.Message.Header.NumRequiredSignatures); i++ {
		key := tx.Message.AccountKeys[i]
		switch {
		case key.Equals(f.buyer.PublicKey()):
			assert.Equal(t, empty, tx.Signatures[i], "buyer signature must be absent")
		case key.Equals(f.shopKey.PublicKey()):
			assert.NotEqual(t, empty, tx.Signatures[i], "shop signature must be present")
		default:
			t.Fatalf("unexpected required signer %s", key)
		}
	}
}

func TestBuildTransactionZeroCharge(t *testing.T) {
	f := newFixture(t, 6, 0)
	req := f.request()
	req.Items = map[string]int{}

	_, err := f.svc.BuildTransaction(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestBuildTransactionMissingReference(t *testing.T) {
	f := newFixture(t, 6, 0)
	req := f.request()
	req.Reference = ""

	_, err := f.svc.BuildTransaction(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestBuildTransactionMissingAccount(t *testing.T) {
	f := newFixture(t, 6, 0)
	req := f.request()
	req.Account = ""

	_, err := f.svc.BuildTransaction(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestBuildTransactionMalformedAccount(t *testing.T) {
	f := newFixture(t, 6, 0)
	req := f.request()
	req.Account = "not-a-public-key"

	_, err := f.svc.BuildTransaction(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestBuildTransactionMissingShopKey(t *testing.T) {
	f := newFixture(t, 6, 0)
	svc := NewService(
		nil,
		f.paymentMint,
		f.loyaltyMint,
		"devnet",
		f.svc.calculator,
		f.ledger,
		false,
	)

	_, err := svc.BuildTransaction(context.Background(), f.request())
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestBuildTransactionUnknownMint(t *testing.T) {
	f := newFixture(t, 6, 0)
	svc := NewService(
		f.shopKey,
		solana.NewWallet().PublicKey(), // never registered on the mock ledger
		f.loyaltyMint,
		"devnet",
		f.svc.calculator,
		f.ledger,
		false,
	)

	_, err := svc.BuildTransaction(context.Background(), f.request())
	require.ErrorIs(t, err, ErrNetwork)
}

func TestBuildTransactionAccountResolutionIdempotent(t *testing.T) {
	f := newFixture(t, 6, 0)

	_, err := f.svc.BuildTransaction(context.Background(), f.request())
	require.NoError(t, err)
	_, err = f.svc.BuildTransaction(context.Background(), f.request())
	require.NoError(t, err)

	assert.Equal(t, 1, f.ledger.CreatedAccounts())
}

func TestBuildTransactionHalvingRoundsHalfUp(t *testing.T) {
	// 3.75 halved is 1.875; at 2 decimals that is 187.5 base units,
	// rounded half-up to 188.
	f := newFixture(t, 2, LoyaltyThreshold)
	req := f.request()
	req.Items = map[string]int{"brownie": 1}

	res, err := f.svc.BuildTransaction(context.Background(), req)
	require.NoError(t, err)

	tx := decodeResult(t, res)
	data := []byte(tx.Message.Instructions[0].Data)
	assert.EqualValues(t, 188, binary.LittleEndian.Uint64(data[1:9]))
}

func TestAmountToUnits(t *testing.T) {
	cases := []struct {
		name     string
		amount   string
		decimals uint8
		want     uint64
	}{
		{"whole amount", "10", 6, 10_000_000},
		{"exact cents", "1.25", 2, 125},
		{"half rounds up", "1.875", 2, 188},
		{"below half rounds down", "1.874", 2, 187},
		{"zero decimals", "5", 0, 5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := amountToUnits(decimal.RequireFromString(tc.amount), tc.decimals)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := amountToUnits(decimal.RequireFromString("-1"), 2)
	require.Error(t, err)
}

func TestSelectLoyaltyAction(t *testing.T) {
	burn := selectLoyaltyAction(true)
	assert.Equal(t, models.LoyaltyBurn, burn.Kind)
	assert.EqualValues(t, LoyaltyThreshold, burn.Amount)

	mint := selectLoyaltyAction(false)
	assert.Equal(t, models.LoyaltyMint, mint.Kind)
	assert.EqualValues(t, LoyaltyReward, mint.Amount)
}

func TestTransferInstructionReferenceMeta(t *testing.T) {
	source := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	destination := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()
	reference := solana.NewWallet().PublicKey()

	inst, err := newTransferInstruction(100, 2, source, mint, destination, owner, reference)
	require.NoError(t, err)

	accounts := inst.Accounts()
	require.NotEmpty(t, accounts)

	last := accounts[len(accounts)-1]
	assert.True(t, last.PublicKey.Equals(reference))
	assert.False(t, last.IsSigner)
	assert.False(t, last.IsWritable)
}

func TestLoyaltyInstructionShopCoSignerMeta(t *testing.T) {
	loyaltyMint := solana.NewWallet().PublicKey()
	couponAccount := solana.NewWallet().PublicKey()
	buyer := solana.NewWallet().PublicKey()
	shop := solana.NewWallet().PublicKey()

	for _, action := range []models.LoyaltyAction{
		{Kind: models.LoyaltyBurn, Amount: LoyaltyThreshold},
		{Kind: models.LoyaltyMint, Amount: LoyaltyReward},
	} {
		inst, err := newLoyaltyInstruction(action, loyaltyMint, couponAccount, buyer, shop)
		require.NoError(t, err)

		accounts := inst.Accounts()
		require.NotEmpty(t, accounts)

		last := accounts[len(accounts)-1]
		assert.True(t, last.PublicKey.Equals(shop), "action %s", action.Kind)
		assert.True(t, last.IsSigner, "action %s", action.Kind)
		assert.False(t, last.IsWritable, "action %s", action.Kind)
	}
}
