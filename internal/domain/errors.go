package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps the lookup errors to HTTP status codes.
var (
	ErrUnknownGood          = errors.New("unknown_good")
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrInsufficientHoldings = errors.New("insufficient_holdings")
	ErrInsufficientBalance  = errors.New("insufficient_balance")
	ErrSelfTrade            = errors.New("self_trade")
	ErrOrderAlreadyFilled   = errors.New("order_already_filled")
	ErrMarketClosed         = errors.New("market_closed")
	ErrAgentAlreadyExists   = errors.New("agent_already_exists")
	ErrAgentNotFound        = errors.New("agent_not_found")
	ErrDayNotFound          = errors.New("day_not_found")
	ErrInvariantViolation   = errors.New("invariant_violation")
)

// ValidationError represents an invalid configuration or request value.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
