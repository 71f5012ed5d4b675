package handler

import (
	"strings"

	"valutatrade-hub/internal/adapter/http/dto"
	"valutatrade-hub/internal/core/ports"
	"valutatrade-hub/pkg/response"

	"github.com/gin-gonic/gin"
)

// PortfolioHandler renders the logged-in user's wallets.
type PortfolioHandler struct {
	portfolioSvc ports.PortfolioService
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(portfolioSvc ports.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{portfolioSvc: portfolioSvc}
}

// Show handles GET /api/v1/portfolio?base=EUR.
func (h *PortfolioHandler) Show(c *gin.Context) {
	view, err := h.portfolioSvc.Show(c.Request.Context(), strings.ToUpper(strings.TrimSpace(c.Query("base"))))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToPortfolioResponse(view))
}

// CurrencyHandler exposes the currency registry.
type CurrencyHandler struct {
	registry ports.CurrencyRegistry
}

// NewCurrencyHandler creates a new CurrencyHandler.
func NewCurrencyHandler(registry ports.CurrencyRegistry) *CurrencyHandler {
	return &CurrencyHandler{registry: registry}
}

// List handles GET /api/v1/currencies.
func (h *CurrencyHandler) List(c *gin.Context) {
	currencies := h.registry.List()
	out := make([]dto.CurrencyResponse, 0, len(currencies))
	for _, cur := range currencies {
		out = append(out, dto.ToCurrencyResponse(cur))
	}
	response.OK(c, out)
}

// Get handles GET /api/v1/currencies/:code.
func (h *CurrencyHandler) Get(c *gin.Context) {
	cur, err := h.registry.Get(c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToCurrencyResponse(cur))
}
