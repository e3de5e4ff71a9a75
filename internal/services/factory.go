package services

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"cookie-checkout/internal/config"
	"cookie-checkout/internal/interfaces"
	"cookie-checkout/internal/services/mock"
	"cookie-checkout/internal/services/real"
)

// CreateLedgerService creates the appropriate ledger implementation based on
// configuration: an in-memory mock in standalone mode, an RPC client online.
func CreateLedgerService(cfg *config.Config, shopKey solana.PrivateKey) (interfaces.LedgerService, error) {
	if cfg.StandaloneMode {
		return mock.NewMockLedger(cfg.Server.Verbose), nil
	}

	endpoint, err := ResolveEndpoint(cfg)
	if err != nil {
		return nil, err
	}

	return real.NewRealLedger(endpoint, shopKey, cfg.Server.Verbose), nil
}

// ResolveEndpoint picks the RPC endpoint: an explicit override wins,
// otherwise the cluster name maps to the public endpoint.
func ResolveEndpoint(cfg *config.Config) (string, error) {
	if cfg.Network.Endpoint != "" {
		return cfg.Network.Endpoint, nil
	}

	switch cfg.Network.Cluster {
	case "devnet", "":
		return rpc.DevNet_RPC, nil
	case "testnet":
		return rpc.TestNet_RPC, nil
	case "mainnet-beta":
		return rpc.MainNetBeta_RPC, nil
	default:
		return "", fmt.Errorf("unknown cluster: %s", cfg.Network.Cluster)
	}
}
