package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"valutatrade-hub/internal/core/domain"
	"valutatrade-hub/internal/core/ports"
	"valutatrade-hub/pkg/apperror"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

const timeLayout = "2006-01-02 15:04:05"

// ---- currencies ----

type currenciesCmd struct {
	env *environment
}

func (*currenciesCmd) Name() string     { return "currencies" }
func (*currenciesCmd) Synopsis() string { return "list supported currencies" }
func (*currenciesCmd) Usage() string {
	return `valutatrade currencies

  Lists every currency the registry knows, fiat and crypto.
`
}
func (*currenciesCmd) SetFlags(*flag.FlagSet) {}

func (c *currenciesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := c.env.open(ctx)
	if err != nil {
		return c.env.fail(err)
	}
	for _, cur := range a.Registry.List() {
		fmt.Fprintln(c.env.out, cur.DisplayInfo())
	}
	return subcommands.ExitSuccess
}

// ---- update-rates ----

type updateRatesCmd struct {
	env    *environment
	source string
}

func (*updateRatesCmd) Name() string     { return "update-rates" }
func (*updateRatesCmd) Synopsis() string { return "fetch fresh rates into the cache" }
func (*updateRatesCmd) Usage() string {
	return `valutatrade update-rates [-source <name>]

  Polls every configured rate source (or only -source, matched without regard
  to case) and merges the results into the cache. A failing source does not
  stop the others.
`
}

func (c *updateRatesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.source, "source", "", "Only poll this source (coingecko, exchangerate).")
}

func (c *updateRatesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := c.env.open(ctx)
	if err != nil {
		return c.env.fail(err)
	}

	fmt.Fprintln(c.env.out, "[*] Starting rates update...")
	report, err := a.Updater.RunUpdate(ctx, c.source)
	if err != nil {
		return c.env.fail(err)
	}

	for _, res := range report.Results {
		fmt.Fprintf(c.env.out, "[+] %s: %d rates (%d ms)\n", res.SourceName, res.RatesCount, res.DurationMS())
	}
	for _, msg := range report.Errors {
		fmt.Fprintf(c.env.out, "[-] %s\n", msg)
	}

	if len(report.Errors) > 0 {
		fmt.Fprintf(c.env.out, "[*] Update completed with errors. Total rates updated: %d\n", report.TotalRates)
		return subcommands.ExitSuccess
	}
	fmt.Fprintf(c.env.out, "[+] Update successful. Total rates updated: %d. Last refresh: %s\n",
		report.TotalRates, report.LastRefresh.UTC().Format(timeLayout))
	return subcommands.ExitSuccess
}

// ---- get-rate ----

type getRateCmd struct {
	env      *environment
	from, to string
}

func (*getRateCmd) Name() string     { return "get-rate" }
func (*getRateCmd) Synopsis() string { return "show the cached rate between two currencies" }
func (*getRateCmd) Usage() string {
	return `valutatrade get-rate -from <code> -to <code>

  Prints the rate and its reverse. Fails when the cache is older than
  trading.rates_ttl; run update-rates first.
`
}

func (c *getRateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "Source currency code.")
	f.StringVar(&c.to, "to", "", "Target currency code.")
}

func (c *getRateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.from == "" || c.to == "" {
		return c.env.fail(apperror.Validation("both -from and -to are required"))
	}
	a, err := c.env.open(ctx)
	if err != nil {
		return c.env.fail(err)
	}

	q, err := a.RateSvc.GetRate(ctx, c.from, c.to)
	if err != nil {
		return c.env.fail(err)
	}
	fmt.Fprintf(c.env.out, "Rate %s→%s: %s (updated at %s)\n", q.From, q.To, formatRate(q.Rate), q.UpdatedAt.UTC().Format(timeLayout))
	fmt.Fprintf(c.env.out, "Reverse rate %s→%s: %s\n", q.To, q.From, formatRate(q.ReverseRate))
	return subcommands.ExitSuccess
}

// ---- show-rates ----

type showRatesCmd struct {
	env      *environment
	currency string
	top      int
}

func (*showRatesCmd) Name() string     { return "show-rates" }
func (*showRatesCmd) Synopsis() string { return "list cached rates" }
func (*showRatesCmd) Usage() string {
	return `valutatrade show-rates [-currency <code>] [-top <n>]

  Lists the cached pairs, optionally only those involving -currency, or the
  -top highest rates.
`
}

func (c *showRatesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "currency", "", "Only pairs involving this currency.")
	f.IntVar(&c.top, "top", 0, "Only the N highest rates.")
}

func (c *showRatesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.top < 0 {
		return c.env.fail(apperror.Validation("'top' must be a positive integer"))
	}
	a, err := c.env.open(ctx)
	if err != nil {
		return c.env.fail(err)
	}

	listing, err := a.RateSvc.ListRates(ctx, ports.RateFilter{Currency: c.currency, Top: c.top})
	if err != nil {
		return c.env.fail(err)
	}
	fmt.Fprintf(c.env.out, "Rates from cache (updated at %s):\n", listing.LastRefresh.UTC().Format(timeLayout))
	for _, e := range listing.Rates {
		fmt.Fprintf(c.env.out, "- %s: %s\n", e.Pair, formatRate(e.Rate))
	}
	if listing.Stale {
		fmt.Fprintln(c.env.out, "[*] The cache is stale, run update-rates.")
	}
	return subcommands.ExitSuccess
}

// ---- register ----

type registerCmd struct {
	env                *environment
	username, password string
}

func (*registerCmd) Name() string     { return "register" }
func (*registerCmd) Synopsis() string { return "create a user with an empty portfolio" }
func (*registerCmd) Usage() string {
	return `valutatrade register -username <name> -password <password>
`
}

func (c *registerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "username", "", "New user name.")
	f.StringVar(&c.password, "password", "", "Password, at least 4 characters.")
}

func (c *registerCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := c.env.open(ctx)
	if err != nil {
		return c.env.fail(err)
	}
	user, err := a.AuthSvc.Register(ctx, ports.RegisterRequest{Username: c.username, Password: c.password})
	if err != nil {
		return c.env.fail(err)
	}
	fmt.Fprintf(c.env.out, "[+] User '%s' registered (id=%s).\n", user.Username, user.ID)
	return subcommands.ExitSuccess
}

// ---- buy / sell ----

type tradeCmd struct {
	env                *environment
	side               domain.TradeSide
	username, password string
	currency, amount   string
}

func (c *tradeCmd) Name() string { return strings.ToLower(string(c.side)) }
func (c *tradeCmd) Synopsis() string {
	if c.side == domain.TradeSideBuy {
		return "buy a currency against the base currency"
	}
	return "sell a currency from its wallet"
}
func (c *tradeCmd) Usage() string {
	return fmt.Sprintf("valutatrade %s -username <name> -password <password> -currency <code> -amount <n>\n", c.Name())
}

func (c *tradeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "username", "", "User to log in as.")
	f.StringVar(&c.password, "password", "", "Password of -username.")
	f.StringVar(&c.currency, "currency", "", "Currency code.")
	f.StringVar(&c.amount, "amount", "", "Positive amount of -currency.")
}

func (c *tradeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, err := decimal.NewFromString(c.amount)
	if err != nil {
		return c.env.fail(apperror.ErrInvalidAmount())
	}
	a, err := c.env.open(ctx)
	if err != nil {
		return c.env.fail(err)
	}
	ctx, err = c.env.login(ctx, a, c.username, c.password)
	if err != nil {
		return c.env.fail(err)
	}

	req := ports.TradeRequest{Currency: c.currency, Amount: amount}
	var report *domain.SettlementReport
	if c.side == domain.TradeSideBuy {
		report, err = a.TradeSvc.Buy(ctx, req)
	} else {
		report, err = a.TradeSvc.Sell(ctx, req)
	}
	if err != nil {
		return c.env.fail(err)
	}

	verb := "Bought"
	if report.Side == domain.TradeSideSell {
		verb = "Sold"
	}
	fmt.Fprintf(c.env.out, "[+] %s %s %s", verb, report.Amount, report.Currency)
	if report.Rate > 0 {
		fmt.Fprintf(c.env.out, " at %s %s/%s", formatRate(report.Rate), report.BaseCurrency, report.Currency)
	}
	fmt.Fprintln(c.env.out)
	for _, ch := range report.Changes {
		fmt.Fprintf(c.env.out, "- %s: was %s → now %s\n", ch.Currency, ch.Before, ch.After)
	}
	if report.Cost.IsPositive() {
		fmt.Fprintf(c.env.out, "Cost: %s %s\n", report.Cost.StringFixed(2), report.BaseCurrency)
	}
	return subcommands.ExitSuccess
}

// ---- show-portfolio ----

type showPortfolioCmd struct {
	env                *environment
	username, password string
	base               string
}

func (*showPortfolioCmd) Name() string     { return "show-portfolio" }
func (*showPortfolioCmd) Synopsis() string { return "show wallets valued in a base currency" }
func (*showPortfolioCmd) Usage() string {
	return `valutatrade show-portfolio -username <name> -password <password> [-base <code>]

  Wallets without a cached rate to -base are listed but not valued.
`
}

func (c *showPortfolioCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "username", "", "User to log in as.")
	f.StringVar(&c.password, "password", "", "Password of -username.")
	f.StringVar(&c.base, "base", "", "Valuation currency (default trading.base_currency).")
}

func (c *showPortfolioCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := c.env.open(ctx)
	if err != nil {
		return c.env.fail(err)
	}
	ctx, err = c.env.login(ctx, a, c.username, c.password)
	if err != nil {
		return c.env.fail(err)
	}

	view, err := a.PortfolioSvc.Show(ctx, c.base)
	if err != nil {
		return c.env.fail(err)
	}
	fmt.Fprintf(c.env.out, "Portfolio of '%s' (base: %s):\n", view.Username, view.BaseCurrency)
	if len(view.Rows) == 0 {
		fmt.Fprintln(c.env.out, "  (no wallets)")
	}
	for _, row := range view.Rows {
		if !row.Priced {
			fmt.Fprintf(c.env.out, "- %s: %s  → n/a\n", row.Currency, row.Balance)
			continue
		}
		fmt.Fprintf(c.env.out, "- %s: %s  → %s %s\n", row.Currency, row.Balance, row.Value.StringFixed(2), view.BaseCurrency)
	}
	fmt.Fprintln(c.env.out, strings.Repeat("-", 33))
	fmt.Fprintf(c.env.out, "TOTAL: %s %s\n", view.Total.StringFixed(2), view.BaseCurrency)
	return subcommands.ExitSuccess
}

// formatRate prints large rates with two decimals and small ones with eight.
func formatRate(r float64) string {
	if r >= 1 {
		return fmt.Sprintf("%.2f", r)
	}
	return fmt.Sprintf("%.8f", r)
}
