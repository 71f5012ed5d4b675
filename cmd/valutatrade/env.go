package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"valutatrade-hub/config"
	"valutatrade-hub/internal/app"
	"valutatrade-hub/internal/core/domain"
	"valutatrade-hub/internal/core/ports"
	"valutatrade-hub/internal/service"
	"valutatrade-hub/pkg/apperror"
	"valutatrade-hub/pkg/logger"

	"github.com/google/subcommands"
)

// environment is shared by every command: it loads the config and wires the
// application on first use.
type environment struct {
	configPath string
	verbose    bool
	out        io.Writer
	errOut     io.Writer

	cfg *config.Config // preset in tests
	app *app.App
}

func newEnvironment(out, errOut io.Writer) *environment {
	return &environment{out: out, errOut: errOut}
}

func (e *environment) register(commander *subcommands.Commander) {
	commander.Register(&currenciesCmd{env: e}, "rates")
	commander.Register(&updateRatesCmd{env: e}, "rates")
	commander.Register(&getRateCmd{env: e}, "rates")
	commander.Register(&showRatesCmd{env: e}, "rates")
	commander.Register(&registerCmd{env: e}, "account")
	commander.Register(&tradeCmd{env: e, side: domain.TradeSideBuy}, "account")
	commander.Register(&tradeCmd{env: e, side: domain.TradeSideSell}, "account")
	commander.Register(&showPortfolioCmd{env: e}, "account")
}

func (e *environment) open(ctx context.Context) (*app.App, error) {
	if e.app != nil {
		return e.app, nil
	}
	cfg := e.cfg
	if cfg == nil {
		loaded, err := config.Load(e.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	level := "warn"
	if e.verbose {
		level = "debug"
	}
	a, err := app.Build(ctx, cfg, logger.NewWithWriter(level, e.errOut))
	if err != nil {
		return nil, err
	}
	e.app = a
	return a, nil
}

func (e *environment) close() {
	if e.app != nil {
		e.app.Close()
		e.app = nil
	}
}

// login authenticates once for this invocation and returns a context carrying the session.
func (e *environment) login(ctx context.Context, a *app.App, username, password string) (context.Context, error) {
	if username == "" {
		return nil, apperror.ErrPermissionDenied()
	}
	res, err := a.AuthSvc.Login(ctx, ports.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	return service.WithSession(ctx, res.Session), nil
}

// fail prints err the way the interactive shell did and returns ExitFailure.
func (e *environment) fail(err error) subcommands.ExitStatus {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		fmt.Fprintf(e.errOut, "[-] %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Fprintf(e.errOut, "[-] %s\n", appErr.Message)
	switch appErr.Code {
	case apperror.CodeRateNotFound, apperror.CodeCurrencyNotFound:
		fmt.Fprintln(e.errOut, "    Run 'valutatrade currencies' to see supported codes, 'update-rates' to refresh the cache.")
	case apperror.CodeAPIRequest:
		fmt.Fprintln(e.errOut, "    Check your connection or run 'update-rates' later.")
	case apperror.CodePermissionDenied:
		fmt.Fprintln(e.errOut, "    Pass -username and -password.")
	}
	return subcommands.ExitFailure
}
