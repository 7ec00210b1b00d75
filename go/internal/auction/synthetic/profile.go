package synthetic

import (
	"github.com/mcdev12/auctionroom/go/internal/auction/bidding"
	"github.com/mcdev12/auctionroom/go/internal/models"
	"github.com/shopspring/decimal"
)

// Strategy is the bidding temperament derived for a synthetic team
type Strategy string

const (
	StrategyAggressive    Strategy = "aggressive"
	StrategyConservative  Strategy = "conservative"
	StrategyOpportunistic Strategy = "opportunistic"
	StrategyPatient       Strategy = "patient"
	StrategyDesperate     Strategy = "desperate"
)

type traits struct {
	aggressiveness float64
	maxMultiplier  float64 // ceiling relative to base price
	jumpChance     float64 // probability of bidding above the minimum
	risk           float64
}

var strategyTraits = map[Strategy]traits{
	StrategyAggressive:    {aggressiveness: 0.9, maxMultiplier: 4.0, jumpChance: 0.25, risk: 0.8},
	StrategyConservative:  {aggressiveness: 0.35, maxMultiplier: 1.6, jumpChance: 0.0, risk: 0.25},
	StrategyOpportunistic: {aggressiveness: 0.6, maxMultiplier: 2.4, jumpChance: 0.08, risk: 0.5},
	StrategyPatient:       {aggressiveness: 0.3, maxMultiplier: 1.4, jumpChance: 0.0, risk: 0.2},
	StrategyDesperate:     {aggressiveness: 1.0, maxMultiplier: 5.0, jumpChance: 0.35, risk: 0.95},
}

// Market describes the open item as the synthetic engine sees it
type Market struct {
	Item           *models.Item
	CurrentPrice   decimal.Decimal
	HasLeader      bool
	LeaderID       string
	ItemsRemaining int // items still to be auctioned, the open one included
}

// Profile is recomputed every tick and never leaves the room
type Profile struct {
	Strategy         Strategy
	MaxMultiplier    float64
	Aggressiveness   float64
	JumpChance       float64
	Risk             float64
	Need             map[models.Category]float64
	BudgetRatio      float64
	SpendingCapacity decimal.Decimal
}

// DeriveProfile builds a team's profile from its roster gaps, budget and the
// item on the block.
func DeriveProfile(team *models.Team, market Market, rules bidding.Rules, cfg Config) Profile {
	need := make(map[models.Category]float64, len(models.Categories))
	for _, c := range models.Categories {
		target := cfg.Composition[c]
		if target <= 0 {
			need[c] = 0
			continue
		}
		missing := target - team.CategoryCount(c)
		if missing < 0 {
			missing = 0
		}
		need[c] = float64(missing) / float64(target)
	}

	budgetRatio := 0.0
	if team.StartingBudget.IsPositive() {
		budgetRatio = team.RemainingBudget.Div(team.StartingBudget).InexactFloat64()
	}

	slotsNeeded := rules.MinRoster - team.RosterSize()
	if slotsNeeded < 0 {
		slotsNeeded = 0
	}
	remaining := market.ItemsRemaining
	if remaining < 1 {
		remaining = 1
	}
	scarcity := float64(slotsNeeded) / float64(remaining)

	marquee := market.Item != nil && market.Item.BasePrice.GreaterThanOrEqual(cfg.MarqueeBasePrice)
	itemNeed := 0.0
	if market.Item != nil {
		itemNeed = need[market.Item.Category]
	}

	var strategy Strategy
	switch {
	case slotsNeeded > 0 && scarcity >= 0.5 && budgetRatio >= 0.25:
		strategy = StrategyDesperate
	case budgetRatio < 0.3:
		strategy = StrategyConservative
	case budgetRatio >= 0.6 && (marquee || itemNeed >= 0.6):
		strategy = StrategyAggressive
	case budgetRatio >= 0.5 && itemNeed < 0.3:
		strategy = StrategyPatient
	default:
		strategy = StrategyOpportunistic
	}

	tr := strategyTraits[strategy]
	multiplier := tr.maxMultiplier
	if marquee {
		multiplier *= cfg.MarqueeBoost
	}

	return Profile{
		Strategy:         strategy,
		MaxMultiplier:    multiplier,
		Aggressiveness:   tr.aggressiveness,
		JumpChance:       tr.jumpChance,
		Risk:             tr.risk,
		Need:             need,
		BudgetRatio:      budgetRatio,
		SpendingCapacity: SpendingCapacity(team, rules, cfg),
	}
}

// SpendingCapacity is what a team may put on one item while keeping a
// minimum stake for every other slot it still has to fill.
func SpendingCapacity(team *models.Team, rules bidding.Rules, cfg Config) decimal.Decimal {
	others := rules.MinRoster - (team.RosterSize() + 1)
	if others < 0 {
		others = 0
	}
	capacity := team.RemainingBudget.Sub(cfg.MinReservePerSlot.Mul(decimal.NewFromInt(int64(others))))
	if capacity.IsNegative() {
		return decimal.Zero
	}
	return capacity
}
