package bidding

import (
	"errors"
	"fmt"
)

// Rejection reasons, in the order Validate checks them
var (
	ErrTeamInactive       = errors.New("team is inactive")
	ErrInvalidAmount      = errors.New("bid amount is finer than the currency allows")
	ErrBidTooLow          = errors.New("bid does not meet the minimum increment")
	ErrInsufficientBudget = errors.New("bid exceeds remaining budget")
	ErrRosterFull         = errors.New("roster is full")
	ErrOverseasQuota      = errors.New("overseas quota reached")
)

// Rules errors
var (
	ErrInvalidRules = errors.New("invalid auction rules")
)

// Rejection is returned by Validate. Reason is one of the sentinel errors
// above so callers can match it with errors.Is.
type Rejection struct {
	Reason error
	Detail string
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return fmt.Sprintf("bid rejected: %v", r.Reason)
	}
	return fmt.Sprintf("bid rejected: %v - %s", r.Reason, r.Detail)
}

func (r *Rejection) Unwrap() error { return r.Reason }

// Code is a short machine-readable reason sent back to clients
func (r *Rejection) Code() string {
	switch {
	case errors.Is(r.Reason, ErrTeamInactive):
		return "team_inactive"
	case errors.Is(r.Reason, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(r.Reason, ErrBidTooLow):
		return "bid_too_low"
	case errors.Is(r.Reason, ErrInsufficientBudget):
		return "insufficient_budget"
	case errors.Is(r.Reason, ErrRosterFull):
		return "roster_full"
	case errors.Is(r.Reason, ErrOverseasQuota):
		return "overseas_quota"
	default:
		return "rejected"
	}
}

func reject(reason error, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}
