package checkout

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/shopspring/decimal"

	"cookie-checkout/internal/interfaces"
	"cookie-checkout/internal/models"
)

const (
	// LoyaltyThreshold is the coupon balance at which the buyer gets the
	// discount, paid for by burning that many coupons.
	LoyaltyThreshold = 5

	// LoyaltyReward is the number of coupons minted on a non-discounted
	// checkout.
	LoyaltyReward = 1

	// Coupons are whole-unit only.
	loyaltyDecimals = 0
)

const (
	discountMessage = "50% Discount! 🍪"
	standardMessage = "Thanks for your order! 🍪"
)

// Service builds partially-signed checkout transactions. One instance serves
// all requests; it holds no per-request state.
type Service struct {
	shopKey     solana.PrivateKey
	shopPub     solana.PublicKey
	paymentMint solana.PublicKey
	loyaltyMint solana.PublicKey
	network     string

	calculator interfaces.PriceCalculator
	ledger     interfaces.LedgerService
	verbose    bool
}

func NewService(
	shopKey solana.PrivateKey,
	paymentMint solana.PublicKey,
	loyaltyMint solana.PublicKey,
	network string,
	calculator interfaces.PriceCalculator,
	ledger interfaces.LedgerService,
	verbose bool,
) *Service {
	s := &Service{
		shopKey:     shopKey,
		paymentMint: paymentMint,
		loyaltyMint: loyaltyMint,
		network:     network,
		calculator:  calculator,
		ledger:      ledger,
		verbose:     verbose,
	}
	if len(shopKey) > 0 {
		s.shopPub = shopKey.PublicKey()
	}
	return s
}

// Request is one checkout attempt: the selected line items, the caller's
// payment reference and the buyer's account public key.
type Request struct {
	Items     map[string]int
	Reference string
	Account   string
}

// Result is the terminal success state: a base64 serialized transaction
// carrying the shop's signature, waiting for the buyer's.
type Result struct {
	Transaction string
	Message     string
	Network     string
}

// BuildTransaction runs the full checkout pipeline:
// validate → resolve accounts → compose instructions → assemble and
// partially sign. Any stage failure aborts the whole request.
func (s *Service) BuildTransaction(ctx context.Context, req Request) (*Result, error) {
	// Step 1: pricing and validation. No side effects yet.
	charge, err := s.calculator.Price(req.Items)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if charge.IsZero() {
		return nil, fmt.Errorf("%w: can't checkout with charge of 0", ErrInvalidRequest)
	}
	if req.Reference == "" {
		return nil, fmt.Errorf("%w: no reference provided", ErrInvalidRequest)
	}
	if req.Account == "" {
		return nil, fmt.Errorf("%w: no account provided", ErrInvalidRequest)
	}
	if len(s.shopKey) == 0 {
		return nil, fmt.Errorf("%w: shop private key not available", ErrConfiguration)
	}

	buyer, err := solana.PublicKeyFromBase58(req.Account)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid account: %v", ErrInvalidRequest, err)
	}
	reference, err := solana.PublicKeyFromBase58(req.Reference)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid reference: %v", ErrInvalidRequest, err)
	}

	if s.verbose {
		log.Printf("[CHECKOUT] Validated request: charge=%s buyer=%s", charge.String(), buyer.String())
	}

	// Step 2: account resolution. The buyer's coupon account may not exist;
	// the shop pays to create it, since the buyer has not signed anything yet.
	buyerCoupon, err := s.ledger.GetOrCreateTokenAccount(ctx, s.loyaltyMint, buyer)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve buyer coupon account: %v", ErrNetwork, err)
	}

	paymentMint, err := s.ledger.FetchMint(ctx, s.paymentMint)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch payment mint: %v", ErrNetwork, err)
	}

	buyerPaymentAccount, _, err := solana.FindAssociatedTokenAddress(buyer, s.paymentMint)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to derive buyer payment account: %v", ErrInvalidRequest, err)
	}
	shopPaymentAccount, _, err := solana.FindAssociatedTokenAddress(s.shopPub, s.paymentMint)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to derive shop payment account: %v", ErrNetwork, err)
	}

	// Step 3: instruction composition. Eligibility decides both the payable
	// amount and which loyalty variant is produced.
	eligible := buyerCoupon.Balance >= LoyaltyThreshold

	payable := charge
	if eligible {
		payable = charge.Div(decimal.NewFromInt(2))
	}
	units, err := amountToUnits(payable, paymentMint.Decimals)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	if s.verbose {
		log.Printf("[CHECKOUT] Coupon balance=%d eligible=%t payable=%s (%d units)",
			buyerCoupon.Balance, eligible, payable.String(), units)
	}

	transferInst, err := newTransferInstruction(
		units,
		paymentMint.Decimals,
		buyerPaymentAccount,
		s.paymentMint,
		shopPaymentAccount,
		buyer,
		reference,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransactionBuild, err)
	}

	action := selectLoyaltyAction(eligible)
	loyaltyInst, err := newLoyaltyInstruction(
		action,
		s.loyaltyMint,
		buyerCoupon.Address,
		buyer,
		s.shopPub,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransactionBuild, err)
	}

	message := standardMessage
	if eligible {
		message = discountMessage
	}

	// Step 4: assembly and partial signing. The buyer pays the network fee,
	// the instructions execute in fixed order, and only the shop signs here.
	anchor, err := s.ledger.LatestAnchor(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch recent blockhash: %v", ErrTransactionBuild, err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{transferInst, loyaltyInst},
		anchor.Blockhash,
		solana.TransactionPayer(buyer),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build transaction: %v", ErrTransactionBuild, err)
	}

	_, err = tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.shopPub) {
			return &s.shopKey
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to sign transaction: %v", ErrTransactionBuild, err)
	}

	serialized, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to serialize transaction: %v", ErrTransactionBuild, err)
	}

	if s.verbose {
		log.Printf("[CHECKOUT] Built %s transaction for %s (%d bytes, valid until height %d)",
			action.Kind, buyer.String(), len(serialized), anchor.LastValidBlockHeight)
	}

	return &Result{
		Transaction: base64.StdEncoding.EncodeToString(serialized),
		Message:     message,
		Network:     s.network,
	}, nil
}

// amountToUnits converts a decimal amount into the mint's base units,
// rounding half-up to the nearest unit.
func amountToUnits(amount decimal.Decimal, decimals uint8) (uint64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("negative amount: %s", amount.String())
	}

	units := amount.Shift(int32(decimals)).Round(0).BigInt()
	if !units.IsUint64() {
		return 0, fmt.Errorf("amount out of range: %s", amount.String())
	}

	return units.Uint64(), nil
}

// selectLoyaltyAction picks the single loyalty variant for this checkout:
// eligible buyers burn the threshold, everyone else earns one coupon.
func selectLoyaltyAction(eligible bool) models.LoyaltyAction {
	if eligible {
		return models.LoyaltyAction{Kind: models.LoyaltyBurn, Amount: LoyaltyThreshold}
	}
	return models.LoyaltyAction{Kind: models.LoyaltyMint, Amount: LoyaltyReward}
}

// newTransferInstruction builds the checked payment transfer and appends the
// reference as a non-signing, non-writable key so off-chain indexers can find
// the transaction later.
func newTransferInstruction(
	units uint64,
	decimals uint8,
	source solana.PublicKey,
	mint solana.PublicKey,
	destination solana.PublicKey,
	owner solana.PublicKey,
	reference solana.PublicKey,
) (solana.Instruction, error) {
	inst, err := token.NewTransferCheckedInstruction(
		units,
		decimals,
		source,
		mint,
		destination,
		owner,
		nil,
	).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("failed to build transfer instruction: %v", err)
	}

	return appendAccountMeta(inst, solana.NewAccountMeta(reference, false, false))
}

// newLoyaltyInstruction builds the selected loyalty variant and appends the
// shop as a signing, non-writable key. In the mint branch the shop already
// signs as mint authority; in the burn branch this key is what forces the
// shop to co-authorize the checkout.
func newLoyaltyInstruction(
	action models.LoyaltyAction,
	loyaltyMint solana.PublicKey,
	buyerCouponAccount solana.PublicKey,
	buyer solana.PublicKey,
	shop solana.PublicKey,
) (solana.Instruction, error) {
	var inst solana.Instruction
	var err error

	switch action.Kind {
	case models.LoyaltyBurn:
		inst, err = token.NewBurnCheckedInstruction(
			action.Amount,
			loyaltyDecimals,
			buyerCouponAccount,
			loyaltyMint,
			buyer,
			nil,
		).ValidateAndBuild()
	case models.LoyaltyMint:
		inst, err = token.NewMintToCheckedInstruction(
			action.Amount,
			loyaltyDecimals,
			loyaltyMint,
			buyerCouponAccount,
			shop,
			nil,
		).ValidateAndBuild()
	default:
		return nil, fmt.Errorf("unknown loyalty action: %s", action.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build %s instruction: %v", action.Kind, err)
	}

	return appendAccountMeta(inst, solana.NewAccountMeta(shop, false, true))
}

// appendAccountMeta rewraps an instruction with one extra account key.
func appendAccountMeta(inst solana.Instruction, meta *solana.AccountMeta) (solana.Instruction, error) {
	data, err := inst.Data()
	if err != nil {
		return nil, fmt.Errorf("failed to read instruction data: %v", err)
	}

	accounts := append(solana.AccountMetaSlice{}, inst.Accounts()...)
	accounts = append(accounts, meta)

	return solana.NewInstruction(inst.ProgramID(), accounts, data), nil
}
