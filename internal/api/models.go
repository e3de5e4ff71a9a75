package api

// Checkout API models

// CheckoutRequest carries the buyer's account public key in the JSON body.
// The selected line items and the payment reference travel in the query string.
type CheckoutRequest struct {
	Account string `json:"account"`
}

// CheckoutResponse returns the base64 serialized transaction, a user-facing
// message and the network label wallets need to submit the transaction.
type CheckoutResponse struct {
	Transaction string `json:"transaction"`
	Message     string `json:"message"`
	Network     string `json:"network"`
}

// DiscoveryResponse is the static merchant descriptor served to wallet
// clients on GET.
type DiscoveryResponse struct {
	Label string `json:"label"`
	Icon  string `json:"icon"`
}
