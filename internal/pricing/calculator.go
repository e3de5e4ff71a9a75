package pricing

import (
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"cookie-checkout/internal/models"
)

// Calculator prices a line-item selection against the configured menu.
type Calculator struct {
	menu    models.MenuLookup
	verbose bool
}

func NewCalculator(menu models.MenuLookup, verbose bool) *Calculator {
	return &Calculator{
		menu:    menu,
		verbose: verbose,
	}
}

// Price sums unit price times quantity over the selection, exactly.
// Unknown item IDs and non-positive quantities are rejected.
func (c *Calculator) Price(selection map[string]int) (decimal.Decimal, error) {
	total := decimal.Zero

	for id, quantity := range selection {
		info, exists := c.menu.GetItemInfo(id)
		if !exists {
			return decimal.Zero, fmt.Errorf("unknown item: %s", id)
		}
		if quantity <= 0 {
			return decimal.Zero, fmt.Errorf("invalid quantity %d for item %s", quantity, id)
		}

		line := info.Price.Mul(decimal.NewFromInt(int64(quantity)))
		total = total.Add(line)

		if c.verbose {
			log.Printf("[PRICING] %s x%d = %s", info.Name, quantity, line.String())
		}
	}

	if c.verbose {
		log.Printf("[PRICING] Selection total: %s", total.String())
	}

	return total, nil
}
