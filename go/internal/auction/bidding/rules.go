package bidding

import (
	"fmt"

	"github.com/mcdev12/auctionroom/go/internal/models"
	"github.com/shopspring/decimal"
)

// IncrementBand sets the minimum raise for prices below UpTo. A zero UpTo
// marks the open-ended top band.
type IncrementBand struct {
	UpTo decimal.Decimal `yaml:"up_to" json:"up_to"`
	Step decimal.Decimal `yaml:"step" json:"step"`
}

// Rules holds the auction-wide limits every bid is checked against
type Rules struct {
	StartingBudget decimal.Decimal `yaml:"starting_budget" json:"starting_budget"`
	MaxRoster      int             `yaml:"max_roster" json:"max_roster"`
	MinRoster      int             `yaml:"min_roster" json:"min_roster"`
	MaxOverseas    int             `yaml:"max_overseas" json:"max_overseas"`
	Increments     []IncrementBand `yaml:"increments" json:"increments"`
}

// DefaultRules returns the standard franchise auction limits (amounts in crores)
func DefaultRules() Rules {
	return Rules{
		StartingBudget: decimal.NewFromInt(100),
		MaxRoster:      25,
		MinRoster:      18,
		MaxOverseas:    8,
		Increments: []IncrementBand{
			{UpTo: decimal.NewFromInt(1), Step: decimal.RequireFromString("0.05")},
			{UpTo: decimal.NewFromInt(2), Step: decimal.RequireFromString("0.10")},
			{UpTo: decimal.NewFromInt(5), Step: decimal.RequireFromString("0.20")},
			{Step: decimal.RequireFromString("0.25")},
		},
	}
}

// Validate checks the rules are internally consistent
func (r Rules) Validate() error {
	if !r.StartingBudget.IsPositive() || !models.ExactMoney(r.StartingBudget) {
		return fmt.Errorf("%w: starting budget must be positive with at most %d decimal places", ErrInvalidRules, models.MoneyPlaces)
	}
	if r.MaxRoster <= 0 || r.MinRoster < 0 || r.MinRoster > r.MaxRoster {
		return fmt.Errorf("%w: roster bounds %d..%d", ErrInvalidRules, r.MinRoster, r.MaxRoster)
	}
	// zero is a valid quota and bars overseas players entirely
	if r.MaxOverseas < 0 {
		return fmt.Errorf("%w: negative overseas quota", ErrInvalidRules)
	}
	if len(r.Increments) == 0 {
		return fmt.Errorf("%w: no increment bands", ErrInvalidRules)
	}
	prev := decimal.Zero
	for i, band := range r.Increments {
		if !band.Step.IsPositive() {
			return fmt.Errorf("%w: band %d has non-positive step", ErrInvalidRules, i)
		}
		if !models.ExactMoney(band.Step) {
			return fmt.Errorf("%w: band %d step is finer than %d decimal places", ErrInvalidRules, i, models.MoneyPlaces)
		}
		last := i == len(r.Increments)-1
		if band.UpTo.IsZero() && !last {
			return fmt.Errorf("%w: only the last band may be open-ended", ErrInvalidRules)
		}
		if !band.UpTo.IsZero() && !band.UpTo.GreaterThan(prev) {
			return fmt.Errorf("%w: bands must be ascending", ErrInvalidRules)
		}
		prev = band.UpTo
	}
	return nil
}

// Increment returns the minimum raise at the given price
func (r Rules) Increment(price decimal.Decimal) decimal.Decimal {
	for _, band := range r.Increments {
		if band.UpTo.IsZero() || price.LessThan(band.UpTo) {
			return band.Step
		}
	}
	return r.Increments[len(r.Increments)-1].Step
}

// NextValidBid is the smallest amount Validate will accept. Without a leader
// the opening bid may equal the current (base) price.
func (r Rules) NextValidBid(current decimal.Decimal, hasLeader bool) decimal.Decimal {
	if !hasLeader {
		return current
	}
	return current.Add(r.Increment(current))
}
