package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Control says who decides a team's bids
type Control string

const (
	ControlHuman     Control = "human"
	ControlSynthetic Control = "synthetic"
)

// TeamStatus tracks whether the team can still act
type TeamStatus string

const (
	TeamActive   TeamStatus = "active"
	TeamAway     TeamStatus = "away" // controller disconnected, inside grace
	TeamInactive TeamStatus = "inactive"
)

var (
	ErrNegativeBudget  = errors.New("remaining budget is negative")
	ErrBudgetMismatch  = errors.New("remaining budget does not match purchases")
	ErrRosterOverflow  = errors.New("roster exceeds maximum size")
	ErrOverseasOverrun = errors.New("overseas players exceed quota")
)

// Purchase records one acquired item
type Purchase struct {
	ID          uuid.UUID       `json:"id"`
	ItemID      string          `json:"item_id"`
	ItemName    string          `json:"item_name"`
	Category    Category        `json:"category"`
	Overseas    bool            `json:"overseas"`
	BasePrice   decimal.Decimal `json:"base_price"`
	Price       decimal.Decimal `json:"price"`
	PurchasedAt time.Time       `json:"purchased_at"`
}

// Team represents a franchise competing in a room
type Team struct {
	ID                string          `json:"id" yaml:"id"`
	Name              string          `json:"name" yaml:"name"`
	StartingBudget    decimal.Decimal `json:"starting_budget" yaml:"-"`
	RemainingBudget   decimal.Decimal `json:"remaining_budget" yaml:"-"`
	Purchases         []Purchase      `json:"purchases" yaml:"-"`
	MaxRoster         int             `json:"max_roster" yaml:"-"`
	Control           Control         `json:"control" yaml:"-"`
	Status            TeamStatus      `json:"status" yaml:"-"`
	TimeoutsRemaining int             `json:"timeouts_remaining" yaml:"-"`
}

// NewTeam creates a synthetic-controlled team with a full budget
func NewTeam(id, name string, budget decimal.Decimal, maxRoster, timeouts int) *Team {
	return &Team{
		ID:                id,
		Name:              name,
		StartingBudget:    budget,
		RemainingBudget:   budget,
		Purchases:         []Purchase{},
		MaxRoster:         maxRoster,
		Control:           ControlSynthetic,
		Status:            TeamActive,
		TimeoutsRemaining: timeouts,
	}
}

func (t *Team) RosterSize() int { return len(t.Purchases) }

func (t *Team) RosterFull() bool { return len(t.Purchases) >= t.MaxRoster }

func (t *Team) IsSynthetic() bool { return t.Control == ControlSynthetic }

// OverseasCount returns how many overseas players the team holds
func (t *Team) OverseasCount() int {
	n := 0
	for _, p := range t.Purchases {
		if p.Overseas {
			n++
		}
	}
	return n
}

// CategoryCount returns how many players of category c the team holds
func (t *Team) CategoryCount(c Category) int {
	n := 0
	for _, p := range t.Purchases {
		if p.Category == c {
			n++
		}
	}
	return n
}

// Spent sums every purchase price
func (t *Team) Spent() decimal.Decimal {
	total := decimal.Zero
	for _, p := range t.Purchases {
		total = total.Add(p.Price)
	}
	return total
}

// Acquire transfers item to the team at price, deducting the budget and
// resolving the item. Callers validate the bid first; Acquire only guards
// the roster invariants.
func (t *Team) Acquire(item *Item, price decimal.Decimal, at time.Time) (Purchase, error) {
	if price.GreaterThan(t.RemainingBudget) {
		return Purchase{}, fmt.Errorf("acquire %s for %s: %w", item.ID, t.ID, ErrNegativeBudget)
	}
	if t.RosterFull() {
		return Purchase{}, fmt.Errorf("acquire %s for %s: %w", item.ID, t.ID, ErrRosterOverflow)
	}
	if err := item.MarkSold(t.ID, price); err != nil {
		return Purchase{}, err
	}

	purchase := Purchase{
		ID:          uuid.New(),
		ItemID:      item.ID,
		ItemName:    item.Name,
		Category:    item.Category,
		Overseas:    item.Overseas,
		BasePrice:   item.BasePrice,
		Price:       price,
		PurchasedAt: at,
	}
	t.Purchases = append(t.Purchases, purchase)
	t.RemainingBudget = t.RemainingBudget.Sub(price)
	return purchase, nil
}

// CheckInvariants verifies the budget and roster invariants. A zero
// maxOverseas allows no overseas players.
func (t *Team) CheckInvariants(maxOverseas int) error {
	if t.RemainingBudget.IsNegative() {
		return fmt.Errorf("team %s: %w", t.ID, ErrNegativeBudget)
	}
	if !t.StartingBudget.Sub(t.Spent()).Equal(t.RemainingBudget) {
		return fmt.Errorf("team %s: %w", t.ID, ErrBudgetMismatch)
	}
	if len(t.Purchases) > t.MaxRoster {
		return fmt.Errorf("team %s: %w", t.ID, ErrRosterOverflow)
	}
	if t.OverseasCount() > maxOverseas {
		return fmt.Errorf("team %s: %w", t.ID, ErrOverseasOverrun)
	}
	return nil
}

// Clone returns a deep copy safe to hand outside the room loop
func (t *Team) Clone() Team {
	c := *t
	c.Purchases = append([]Purchase(nil), t.Purchases...)
	return c
}
