package config

import (
	"fmt"
	"log"
	"os"

	"github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port    int  `yaml:"port"`
		Verbose bool `yaml:"verbose"`
	} `yaml:"server"`

	StandaloneMode bool `yaml:"standalone_mode"`

	Shop struct {
		Label string `yaml:"label"`
		Icon  string `yaml:"icon"`
	} `yaml:"shop"`

	Network struct {
		Cluster  string `yaml:"cluster"`  // devnet, testnet or mainnet-beta
		Endpoint string `yaml:"endpoint"` // optional explicit RPC endpoint override
	} `yaml:"network"`

	Tokens struct {
		PaymentMint string `yaml:"payment_mint"`
		LoyaltyMint string `yaml:"loyalty_mint"`
	} `yaml:"tokens"`

	Menu []MenuItem `yaml:"menu"`
}

type MenuItem struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Price string `yaml:"price"` // decimal string, e.g. "2.50"
}

// ShopPrivateKeyEnv is the environment variable holding the shop's base58
// secret key. It is read once at startup, never mid-request.
const ShopPrivateKeyEnv = "SHOP_PRIVATE_KEY"

func Load() *Config {
	data, err := os.ReadFile("config.yaml")
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		log.Fatalf("Failed to parse config file: %v", err)
	}

	return &config
}

// ShopPrivateKey loads the shop's signing key from the environment.
// A missing or malformed key is a deployment-level configuration error.
func (c *Config) ShopPrivateKey() (solana.PrivateKey, error) {
	raw := os.Getenv(ShopPrivateKeyEnv)
	if raw == "" {
		return nil, fmt.Errorf("%s not set", ShopPrivateKeyEnv)
	}

	key, err := solana.PrivateKeyFromBase58(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %v", ShopPrivateKeyEnv, err)
	}

	return key, nil
}
