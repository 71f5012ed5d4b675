package handler

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"valutatrade-hub/internal/adapter/http/dto"
	"valutatrade-hub/internal/core/ports"
	"valutatrade-hub/pkg/apperror"
	"valutatrade-hub/pkg/response"

	"github.com/gin-gonic/gin"
)

const defaultHistoryLimit = 10

// RateHandler serves the rate cache and triggers refreshes.
type RateHandler struct {
	rateSvc ports.RateService
	updater ports.RatesUpdater
}

// NewRateHandler creates a new RateHandler.
func NewRateHandler(rateSvc ports.RateService, updater ports.RatesUpdater) *RateHandler {
	return &RateHandler{rateSvc: rateSvc, updater: updater}
}

// ListRates handles GET /api/v1/rates?currency=BTC&top=3.
func (h *RateHandler) ListRates(c *gin.Context) {
	filter := ports.RateFilter{Currency: strings.ToUpper(strings.TrimSpace(c.Query("currency")))}
	if raw := c.Query("top"); raw != "" {
		top, err := strconv.Atoi(raw)
		if err != nil || top <= 0 {
			response.Error(c, apperror.Validation("'top' must be a positive integer"))
			return
		}
		filter.Top = top
	}

	listing, err := h.rateSvc.ListRates(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToRateListResponse(listing))
}

// GetRate handles GET /api/v1/rates/:from/:to.
func (h *RateHandler) GetRate(c *gin.Context) {
	quote, err := h.rateSvc.GetRate(c.Request.Context(), c.Param("from"), c.Param("to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToRateResponse(quote))
}

// History handles GET /api/v1/rates/:from/:to/history?limit=10.
func (h *RateHandler) History(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.Error(c, apperror.Validation("'limit' must be a non-negative integer"))
			return
		}
		limit = n
	}

	records, err := h.rateSvc.History(c.Request.Context(), c.Param("from"), c.Param("to"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, records)
}

// UpdateRates handles POST /api/v1/rates/update. The body is optional.
func (h *RateHandler) UpdateRates(c *gin.Context) {
	var req dto.UpdateRatesRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	report, err := h.updater.RunUpdate(c.Request.Context(), req.Source)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToUpdateRatesResponse(report))
}
