package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cookie-checkout/internal/api"
	"cookie-checkout/internal/checkout"
	"cookie-checkout/internal/interfaces"
)

type CheckoutHandler struct {
	checkout *checkout.Service
	shop     interfaces.ShopInfo
	verbose  bool
}

func NewCheckoutHandler(svc *checkout.Service, shop interfaces.ShopInfo, verbose bool) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: svc,
		shop:     shop,
		verbose:  verbose,
	}
}

// GET /api/checkout - Merchant descriptor for wallet clients
func (h *CheckoutHandler) Discovery(c *gin.Context) {
	c.JSON(http.StatusOK, api.DiscoveryResponse{
		Label: h.shop.Label,
		Icon:  h.shop.Icon,
	})
}

// POST /api/checkout - Build the partially-signed checkout transaction.
// Line items and the payment reference come from the query string, the
// buyer's account from the JSON body.
func (h *CheckoutHandler) BuildTransaction(c *gin.Context) {
	items, err := parseSelection(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.APIError{
			Error: err.Error(),
			Code:  api.ErrorCodeInvalidRequest,
		})
		return
	}

	var req api.CheckoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, api.APIError{
				Error: "Invalid request format",
				Code:  api.ErrorCodeInvalidRequest,
			})
			return
		}
	}

	result, err := h.checkout.BuildTransaction(c.Request.Context(), checkout.Request{
		Items:     items,
		Reference: c.Query("reference"),
		Account:   req.Account,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.CheckoutResponse{
		Transaction: result.Transaction,
		Message:     result.Message,
		Network:     result.Network,
	})
}

// GET /health - Health check
func (h *CheckoutHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "cookie-checkout",
	})
}

// MethodNotAllowed handles requests with an unsupported HTTP method.
func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, api.APIError{
		Error: "Method not allowed",
		Code:  api.ErrorCodeMethodNotAllowed,
	})
}

// renderError maps the checkout failure taxonomy onto status codes. Client
// mistakes keep their message; server-side failures return a short generic
// message and the detail stays in the log.
func (h *CheckoutHandler) renderError(c *gin.Context, err error) {
	if errors.Is(err, checkout.ErrInvalidRequest) {
		c.JSON(http.StatusBadRequest, api.APIError{
			Error: err.Error(),
			Code:  api.ErrorCodeInvalidRequest,
		})
		return
	}

	log.Printf("[HANDLER] Checkout failed: %v", err)

	code := api.ErrorCodeInternalError
	switch {
	case errors.Is(err, checkout.ErrConfiguration):
		code = api.ErrorCodeConfiguration
	case errors.Is(err, checkout.ErrNetwork):
		code = api.ErrorCodeNetworkError
	case errors.Is(err, checkout.ErrTransactionBuild):
		code = api.ErrorCodeBuildFailed
	}

	c.JSON(http.StatusInternalServerError, api.APIError{
		Error: "error creating transaction",
		Code:  code,
	})
}

// parseSelection reads the line-item selection from the query string:
// every key except "reference" is an item ID with its quantity as value.
// Repeated keys accumulate.
func parseSelection(c *gin.Context) (map[string]int, error) {
	items := make(map[string]int)

	for key, values := range c.Request.URL.Query() {
		if key == "reference" {
			continue
		}
		for _, value := range values {
			quantity, err := strconv.Atoi(value)
			if err != nil {
				return nil, errors.New("invalid quantity for item " + key)
			}
			items[key] += quantity
		}
	}

	return items, nil
}
