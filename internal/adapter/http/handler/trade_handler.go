package handler

import (
	"context"
	"strings"

	"valutatrade-hub/internal/adapter/http/dto"
	"valutatrade-hub/internal/core/domain"
	"valutatrade-hub/internal/core/ports"
	"valutatrade-hub/pkg/apperror"
	"valutatrade-hub/pkg/response"

	"github.com/gin-gonic/gin"
)

// TradeHandler handles buy and sell for the logged-in user.
type TradeHandler struct {
	tradeSvc ports.TradeService
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(tradeSvc ports.TradeService) *TradeHandler {
	return &TradeHandler{tradeSvc: tradeSvc}
}

// Buy handles POST /api/v1/trades/buy.
func (h *TradeHandler) Buy(c *gin.Context) {
	h.settle(c, h.tradeSvc.Buy)
}

// Sell handles POST /api/v1/trades/sell.
func (h *TradeHandler) Sell(c *gin.Context) {
	h.settle(c, h.tradeSvc.Sell)
}

func (h *TradeHandler) settle(c *gin.Context, op func(context.Context, ports.TradeRequest) (*domain.SettlementReport, error)) {
	var req dto.TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	report, err := op(c.Request.Context(), ports.TradeRequest{
		Currency: strings.ToUpper(req.Currency),
		Amount:   req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}
