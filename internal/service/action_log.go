package service

import (
	"context"
	"errors"
	"time"

	"valutatrade-hub/internal/core/domain"
	"valutatrade-hub/internal/core/ports"
	"valutatrade-hub/pkg/apperror"

	"github.com/rs/zerolog"
)

// Operation is a single-request use case.
type Operation[Req, Res any] func(ctx context.Context, req Req) (Res, error)

// ActionSpec describes how an operation is logged. User and Fields are optional;
// without User the session username (or "anonymous") is used.
type ActionSpec[Req any] struct {
	Action domain.Action
	User   func(ctx context.Context, req Req) string
	Fields func(req Req) map[string]any
}

// LogAction wraps op so every call logs its attempt and its outcome.
func LogAction[Req, Res any](log zerolog.Logger, spec ActionSpec[Req], op Operation[Req, Res]) Operation[Req, Res] {
	return func(ctx context.Context, req Req) (Res, error) {
		rec := domain.ActionRecord{Action: spec.Action, Username: actionUser(ctx, spec, req), At: time.Now().UTC()}
		var fields map[string]any
		if spec.Fields != nil {
			fields = spec.Fields(req)
		}

		log.Debug().Str("action", string(rec.Action)).Str("username", rec.Username).Fields(fields).Msg("action attempt")

		start := time.Now()
		res, err := op(ctx, req)
		rec.Duration = time.Since(start)

		if err != nil {
			rec.Outcome = domain.ActionOutcomeError
			rec.Error = err.Error()
			var appErr *apperror.AppError
			if errors.As(err, &appErr) {
				rec.ErrorCode = appErr.Code
				rec.Error = appErr.Message
			}
		} else {
			rec.Outcome = domain.ActionOutcomeOK
		}
		writeActionRecord(log, rec, fields)
		return res, err
	}
}

func actionUser[Req any](ctx context.Context, spec ActionSpec[Req], req Req) string {
	if spec.User != nil {
		if u := spec.User(ctx, req); u != "" {
			return u
		}
	}
	if s, err := SessionFrom(ctx); err == nil && s.Username != "" {
		return s.Username
	}
	return "anonymous"
}

func writeActionRecord(log zerolog.Logger, rec domain.ActionRecord, fields map[string]any) {
	e := log.Info()
	if rec.Outcome == domain.ActionOutcomeError {
		e = log.Error().Str("error_code", rec.ErrorCode).Str("error", rec.Error)
	}
	e.Str("action", string(rec.Action)).
		Str("username", rec.Username).
		Str("result", string(rec.Outcome)).
		Dur("duration", rec.Duration).
		Fields(fields).
		Msg("action " + string(rec.Outcome))
}

// ---- Logged service wrappers ----

type loggedTradeService struct {
	buy  Operation[ports.TradeRequest, *domain.SettlementReport]
	sell Operation[ports.TradeRequest, *domain.SettlementReport]
}

// NewLoggedTradeService logs every Buy and Sell of inner.
func NewLoggedTradeService(inner ports.TradeService, log zerolog.Logger) ports.TradeService {
	fields := func(req ports.TradeRequest) map[string]any {
		return map[string]any{"currency": req.Currency, "amount": req.Amount.String()}
	}
	return &loggedTradeService{
		buy:  LogAction[ports.TradeRequest, *domain.SettlementReport](log, ActionSpec[ports.TradeRequest]{Action: domain.ActionBuy, Fields: fields}, inner.Buy),
		sell: LogAction[ports.TradeRequest, *domain.SettlementReport](log, ActionSpec[ports.TradeRequest]{Action: domain.ActionSell, Fields: fields}, inner.Sell),
	}
}

func (s *loggedTradeService) Buy(ctx context.Context, req ports.TradeRequest) (*domain.SettlementReport, error) {
	return s.buy(ctx, req)
}

func (s *loggedTradeService) Sell(ctx context.Context, req ports.TradeRequest) (*domain.SettlementReport, error) {
	return s.sell(ctx, req)
}

type loggedAuthService struct {
	register Operation[ports.RegisterRequest, *domain.User]
	login    Operation[ports.LoginRequest, *ports.LoginResponse]
}

// NewLoggedAuthService logs every Register and Login of inner. Passwords are never logged.
func NewLoggedAuthService(inner ports.AuthService, log zerolog.Logger) ports.AuthService {
	return &loggedAuthService{
		register: LogAction[ports.RegisterRequest, *domain.User](log, ActionSpec[ports.RegisterRequest]{
			Action: domain.ActionRegister,
			User:   func(_ context.Context, req ports.RegisterRequest) string { return req.Username },
		}, inner.Register),
		login: LogAction[ports.LoginRequest, *ports.LoginResponse](log, ActionSpec[ports.LoginRequest]{
			Action: domain.ActionLogin,
			User:   func(_ context.Context, req ports.LoginRequest) string { return req.Username },
		}, inner.Login),
	}
}

func (s *loggedAuthService) Register(ctx context.Context, req ports.RegisterRequest) (*domain.User, error) {
	return s.register(ctx, req)
}

func (s *loggedAuthService) Login(ctx context.Context, req ports.LoginRequest) (*ports.LoginResponse, error) {
	return s.login(ctx, req)
}

type loggedRatesUpdater struct {
	run Operation[string, *ports.UpdateReport]
}

// NewLoggedRatesUpdater logs every RunUpdate of inner.
func NewLoggedRatesUpdater(inner ports.RatesUpdater, log zerolog.Logger) ports.RatesUpdater {
	return &loggedRatesUpdater{
		run: LogAction[string, *ports.UpdateReport](log, ActionSpec[string]{
			Action: domain.ActionUpdateRates,
			Fields: func(source string) map[string]any {
				if source == "" {
					source = "all"
				}
				return map[string]any{"source": source}
			},
		}, inner.RunUpdate),
	}
}

func (u *loggedRatesUpdater) RunUpdate(ctx context.Context, source string) (*ports.UpdateReport, error) {
	return u.run(ctx, source)
}
