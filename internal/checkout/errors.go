package checkout

import "errors"

// Failure taxonomy for a checkout attempt. Every stage-local failure wraps
// exactly one of these so the request boundary can map it to a status code
// with errors.Is.
var (
	// ErrInvalidRequest: client-supplied data insufficient or nonsensical
	// (zero charge, missing reference or account, malformed public key).
	ErrInvalidRequest = errors.New("invalid request")

	// ErrConfiguration: the server is missing required secret material.
	// Fatal per deployment, not per request.
	ErrConfiguration = errors.New("configuration error")

	// ErrNetwork: ledger RPC unreachable or returned malformed data.
	ErrNetwork = errors.New("network error")

	// ErrTransactionBuild: anchor, signing or serialization failure during
	// assembly. No partial artifact is ever returned.
	ErrTransactionBuild = errors.New("transaction build error")
)
