package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide is BUY or SELL.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// BalanceChange records one wallet's balance around a settlement.
type BalanceChange struct {
	Currency string          `json:"currency"`
	Before   decimal.Decimal `json:"before"`
	After    decimal.Decimal `json:"after"`
}

// SettlementReport describes a completed and persisted trade. Rate is the
// currency->base rate used (zero when no conversion happened) and Cost the
// amount debited from the base wallet on buy.
type SettlementReport struct {
	Side         TradeSide       `json:"side"`
	Currency     string          `json:"currency"`
	Amount       decimal.Decimal `json:"amount"`
	BaseCurrency string          `json:"base_currency"`
	Rate         float64         `json:"rate"`
	Cost         decimal.Decimal `json:"cost"`
	Changes      []BalanceChange `json:"changes"`
	SettledAt    time.Time       `json:"settled_at"`
}
