package main

import (
	"fmt"
	"log"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"cookie-checkout/internal/checkout"
	"cookie-checkout/internal/config"
	"cookie-checkout/internal/handlers"
	"cookie-checkout/internal/interfaces"
	"cookie-checkout/internal/models"
	"cookie-checkout/internal/pricing"
	"cookie-checkout/internal/services"
	"cookie-checkout/internal/services/mock"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Load the shop's signing key once at startup. Without it the server
	// cannot produce a valid transaction, so this is fatal - except in
	// standalone mode, where an ephemeral key keeps local runs easy.
	shopKey, err := cfg.ShopPrivateKey()
	if err != nil {
		if !cfg.StandaloneMode {
			log.Fatalf("Shop private key not available: %v", err)
		}
		shopKey = solana.NewWallet().PrivateKey
		log.Printf("Standalone mode: using ephemeral shop key %s", shopKey.PublicKey())
	}

	// Build the menu lookup feeding the price calculator
	menu := make(models.MenuLookup)
	for _, item := range cfg.Menu {
		price, err := decimal.NewFromString(item.Price)
		if err != nil {
			log.Fatalf("Invalid price %q for menu item %s: %v", item.Price, item.ID, err)
		}
		menu[item.ID] = models.MenuItemInfo{
			ID:    item.ID,
			Name:  item.Name,
			Price: price,
		}
	}

	paymentMint, loyaltyMint, err := resolveMints(cfg)
	if err != nil {
		log.Fatalf("Invalid token configuration: %v", err)
	}

	// Initialize services based on configuration (factory pattern)
	calculator := pricing.NewCalculator(menu, cfg.Server.Verbose)
	ledger, err := services.CreateLedgerService(cfg, shopKey)
	if err != nil {
		log.Fatalf("Failed to initialize ledger service: %v", err)
	}

	// Standalone mode has no chain to read the mint from, so declare it
	if mockLedger, ok := ledger.(*mock.MockLedger); ok {
		mockLedger.RegisterMint(paymentMint, 6)
		mockLedger.RegisterMint(loyaltyMint, 0)
	}

	network := cfg.Network.Cluster
	if network == "" {
		network = "devnet"
	}

	checkoutSvc := checkout.NewService(
		shopKey,
		paymentMint,
		loyaltyMint,
		network,
		calculator,
		ledger,
		cfg.Server.Verbose,
	)

	// Initialize handlers
	shopInfo := interfaces.ShopInfo{
		Label: cfg.Shop.Label,
		Icon:  cfg.Shop.Icon,
	}
	handler := handlers.NewCheckoutHandler(checkoutSvc, shopInfo, cfg.Server.Verbose)

	// Set up Gin router with logging based on verbose config
	var router *gin.Engine
	if cfg.Server.Verbose {
		gin.SetMode(gin.DebugMode)
		router = gin.Default()
		log.Printf("Verbose mode enabled - HTTP requests will be logged")
	} else {
		gin.SetMode(gin.ReleaseMode)
		router = gin.New()
		router.Use(gin.Recovery())
	}

	// Unsupported methods on known routes answer 405, not 404
	router.HandleMethodNotAllowed = true
	router.NoMethod(handlers.MethodNotAllowed)

	// Define routes
	api := router.Group("/api")
	{
		api.GET("/checkout", handler.Discovery)
		api.POST("/checkout", handler.BuildTransaction)
	}

	// Health check
	router.GET("/health", handler.HealthCheck)

	// Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting checkout server on port %d", cfg.Server.Port)

	if cfg.StandaloneMode {
		log.Printf("Running in STANDALONE mode - no network access required")
	} else {
		endpoint, _ := services.ResolveEndpoint(cfg)
		log.Printf("Running in ONLINE mode - cluster %s (%s)", network, endpoint)
	}

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// resolveMints parses the configured mint addresses. Standalone mode may
// leave them unset; fresh addresses are generated so the mock ledger still
// exercises real derivation.
func resolveMints(cfg *config.Config) (solana.PublicKey, solana.PublicKey, error) {
	var payment, loyalty solana.PublicKey
	var err error

	if cfg.Tokens.PaymentMint == "" && cfg.StandaloneMode {
		payment = solana.NewWallet().PublicKey()
	} else if payment, err = solana.PublicKeyFromBase58(cfg.Tokens.PaymentMint); err != nil {
		return payment, loyalty, fmt.Errorf("payment mint: %v", err)
	}

	if cfg.Tokens.LoyaltyMint == "" && cfg.StandaloneMode {
		loyalty = solana.NewWallet().PublicKey()
	} else if loyalty, err = solana.PublicKeyFromBase58(cfg.Tokens.LoyaltyMint); err != nil {
		return payment, loyalty, fmt.Errorf("loyalty mint: %v", err)
	}

	return payment, loyalty, nil
}
