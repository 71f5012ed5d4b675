package domain

import (
	"time"
)

// Action names a logged use-case.
type Action string

const (
	ActionRegister    Action = "REGISTER"
	ActionLogin       Action = "LOGIN"
	ActionBuy         Action = "BUY"
	ActionSell        Action = "SELL"
	ActionUpdateRates Action = "UPDATE_RATES"
)

// ActionOutcome is the result of one logged action.
type ActionOutcome string

const (
	ActionOutcomeOK    ActionOutcome = "OK"
	ActionOutcomeError ActionOutcome = "ERROR"
)

// ActionRecord is the structured entry written for every attempt of an Action.
type ActionRecord struct {
	Action    Action        `json:"action"`
	Username  string        `json:"username"`
	Outcome   ActionOutcome `json:"outcome"`
	ErrorCode string        `json:"error_code,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	At        time.Time     `json:"at"`
}
