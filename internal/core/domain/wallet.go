package domain

import (
	"sort"

	"valutatrade-hub/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet holds the balance of a single currency. The balance never goes negative:
// Deposit and Withdraw are the only mutation paths and both validate before mutating.
type Wallet struct {
	CurrencyCode string
	balance      decimal.Decimal
}

// NewWallet creates a wallet with an initial balance; a negative balance is rejected.
func NewWallet(code string, balance decimal.Decimal) (*Wallet, error) {
	if balance.IsNegative() {
		return nil, apperror.ErrInvalidAmount()
	}
	return &Wallet{CurrencyCode: code, balance: balance}, nil
}

func (w *Wallet) Balance() decimal.Decimal {
	return w.balance
}

// Deposit adds amount to the balance.
func (w *Wallet) Deposit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperror.ErrInvalidAmount()
	}
	w.balance = w.balance.Add(amount)
	return nil
}

// Withdraw removes amount from the balance, failing with InsufficientFunds
// and leaving the balance untouched when amount exceeds it.
func (w *Wallet) Withdraw(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperror.ErrInvalidAmount()
	}
	if amount.GreaterThan(w.balance) {
		return apperror.ErrInsufficientFunds(w.CurrencyCode, w.balance, amount)
	}
	w.balance = w.balance.Sub(amount)
	return nil
}

// Portfolio groups a user's wallets, at most one per currency code.
type Portfolio struct {
	UserID  uuid.UUID
	wallets map[string]*Wallet
}

// NewPortfolio returns an empty portfolio for userID.
func NewPortfolio(userID uuid.UUID) *Portfolio {
	return &Portfolio{UserID: userID, wallets: make(map[string]*Wallet)}
}

// AddCurrency creates an empty wallet for code. A second wallet for the same code is rejected.
func (p *Portfolio) AddCurrency(code string) (*Wallet, error) {
	if _, ok := p.wallets[code]; ok {
		return nil, apperror.Validation("wallet for '" + code + "' already exists")
	}
	w := &Wallet{CurrencyCode: code}
	p.wallets[code] = w
	return w, nil
}

// Wallet returns the wallet for code, if any.
func (p *Portfolio) Wallet(code string) (*Wallet, bool) {
	w, ok := p.wallets[code]
	return w, ok
}

// EnsureWallet returns the wallet for code, creating an empty one on demand.
func (p *Portfolio) EnsureWallet(code string) *Wallet {
	if w, ok := p.wallets[code]; ok {
		return w
	}
	w, _ := p.AddCurrency(code)
	return w
}

// PutWallet installs a wallet loaded from storage, replacing any existing one.
func (p *Portfolio) PutWallet(w *Wallet) {
	p.wallets[w.CurrencyCode] = w
}

// Codes returns the wallet currency codes in lexical order.
func (p *Portfolio) Codes() []string {
	codes := make([]string, 0, len(p.wallets))
	for code := range p.wallets {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Clone returns a deep copy. Settlement mutates the clone so a failed trade leaves the original intact.
func (p *Portfolio) Clone() *Portfolio {
	c := NewPortfolio(p.UserID)
	for code, w := range p.wallets {
		c.wallets[code] = &Wallet{CurrencyCode: w.CurrencyCode, balance: w.balance}
	}
	return c
}
