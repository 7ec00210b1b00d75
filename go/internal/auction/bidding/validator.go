// Package bidding decides whether a proposed bid is legal. It has no side
// effects; the room applies accepted bids.
package bidding

import (
	"github.com/mcdev12/auctionroom/go/internal/models"
	"github.com/shopspring/decimal"
)

// BidContext is everything Validate looks at
type BidContext struct {
	Team         *models.Team
	Item         *models.Item
	CurrentPrice decimal.Decimal
	HasLeader    bool
	Amount       decimal.Decimal
}

// Validate returns nil when the bid is acceptable, otherwise a *Rejection
// carrying the first failing reason.
func Validate(rules Rules, bc BidContext) error {
	if bc.Team.Status == models.TeamInactive {
		return reject(ErrTeamInactive, "team %s", bc.Team.ID)
	}

	if !models.ExactMoney(bc.Amount) {
		return reject(ErrInvalidAmount, "%s has more than %d decimal places", bc.Amount.String(), models.MoneyPlaces)
	}

	minimum := rules.NextValidBid(bc.CurrentPrice, bc.HasLeader)
	if bc.Amount.LessThan(minimum) {
		return reject(ErrBidTooLow, "minimum is %s, got %s", minimum.String(), bc.Amount.String())
	}

	if bc.Amount.GreaterThan(bc.Team.RemainingBudget) {
		return reject(ErrInsufficientBudget, "remaining %s, bid %s", bc.Team.RemainingBudget.String(), bc.Amount.String())
	}

	if bc.Team.RosterSize() >= rules.MaxRoster || bc.Team.RosterFull() {
		return reject(ErrRosterFull, "%d of %d", bc.Team.RosterSize(), rules.MaxRoster)
	}

	if bc.Item.Overseas && bc.Team.OverseasCount() >= rules.MaxOverseas {
		return reject(ErrOverseasQuota, "%d of %d overseas", bc.Team.OverseasCount(), rules.MaxOverseas)
	}

	return nil
}
