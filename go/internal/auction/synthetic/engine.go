// Package synthetic makes bidding decisions for computer-controlled teams.
package synthetic

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/mcdev12/auctionroom/go/internal/auction/bidding"
	"github.com/mcdev12/auctionroom/go/internal/models"
	"github.com/shopspring/decimal"
)

// Config tunes the synthetic bidders
type Config struct {
	Composition       models.Composition `yaml:"-"`
	MinReservePerSlot decimal.Decimal    `yaml:"min_reserve_per_slot"`
	MaxBudgetFraction float64            `yaml:"max_budget_fraction"`
	MarqueeBasePrice  decimal.Decimal    `yaml:"marquee_base_price"`
	MarqueeBoost      float64            `yaml:"marquee_boost"`
	// Below this need score a team only sometimes joins the bidding
	LowNeedThreshold float64 `yaml:"low_need_threshold"`
}

// DefaultConfig returns the standard synthetic bidder tuning
func DefaultConfig() Config {
	return Config{
		Composition:       models.DefaultComposition(),
		MinReservePerSlot: decimal.RequireFromString("0.2"),
		MaxBudgetFraction: 0.2,
		MarqueeBasePrice:  decimal.RequireFromString("1.5"),
		MarqueeBoost:      1.5,
		LowNeedThreshold:  0.3,
	}
}

// Bid is a decision produced by the engine
type Bid struct {
	TeamID   string
	Amount   decimal.Decimal
	Strategy Strategy
}

// Engine decides, once per tick, whether one synthetic team raises
type Engine struct {
	rules bidding.Rules
	cfg   Config
	rng   *rand.Rand
}

// NewEngine creates an engine. A nil rng is replaced by one seeded from the clock.
func NewEngine(rules bidding.Rules, cfg Config, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Composition == nil {
		cfg.Composition = models.DefaultComposition()
	}
	return &Engine{rules: rules, cfg: cfg, rng: rng}
}

type candidate struct {
	team    *models.Team
	profile Profile
	limit   decimal.Decimal
	weight  float64
}

// Decide picks at most one synthetic bid for the open item. The returned bid
// has already passed bidding.Validate; ok is false when nobody bids.
func (e *Engine) Decide(teams []*models.Team, market Market) (Bid, bool, error) {
	if market.Item == nil || market.Item.Resolved() {
		return Bid{}, false, nil
	}

	next := e.rules.NextValidBid(market.CurrentPrice, market.HasLeader)

	var candidates []candidate
	total := 0.0
	for _, team := range teams {
		if !e.eligible(team, market) {
			continue
		}
		profile := DeriveProfile(team, market, e.rules, e.cfg)
		limit := e.limit(team, profile, market.Item)
		if next.GreaterThan(limit) {
			continue
		}

		need := profile.Need[market.Item.Category]
		if need < e.cfg.LowNeedThreshold {
			// low need suppresses participation but does not rule it out
			chance := 0.15 + profile.Risk*0.35
			if e.rng.Float64() > chance {
				continue
			}
		}

		jitter := 0.85 + e.rng.Float64()*0.3
		weight := profile.Aggressiveness * (0.25 + need) * profile.BudgetRatio * jitter
		if weight <= 0 {
			continue
		}
		candidates = append(candidates, candidate{team: team, profile: profile, limit: limit, weight: weight})
		total += weight
	}

	if len(candidates) == 0 {
		return Bid{}, false, nil
	}

	chosen := candidates[len(candidates)-1]
	pick := e.rng.Float64() * total
	for _, c := range candidates {
		pick -= c.weight
		if pick <= 0 {
			chosen = c
			break
		}
	}

	amount := e.amount(next, chosen)
	err := bidding.Validate(e.rules, bidding.BidContext{
		Team:         chosen.team,
		Item:         market.Item,
		CurrentPrice: market.CurrentPrice,
		HasLeader:    market.HasLeader,
		Amount:       amount,
	})
	if err != nil {
		return Bid{}, false, fmt.Errorf("synthetic bid for %s: %w", chosen.team.ID, err)
	}

	return Bid{TeamID: chosen.team.ID, Amount: amount, Strategy: chosen.profile.Strategy}, true, nil
}

func (e *Engine) eligible(team *models.Team, market Market) bool {
	if !team.IsSynthetic() || team.Status == models.TeamInactive {
		return false
	}
	if market.HasLeader && team.ID == market.LeaderID {
		return false
	}
	if team.RosterFull() || team.RosterSize() >= e.rules.MaxRoster {
		return false
	}
	if market.Item.Overseas && team.OverseasCount() >= e.rules.MaxOverseas {
		return false
	}
	return true
}

// limit is the most the team will pay for item
func (e *Engine) limit(team *models.Team, profile Profile, item *models.Item) decimal.Decimal {
	limit := item.BasePrice.Mul(decimal.NewFromFloat(profile.MaxMultiplier))
	if share := team.StartingBudget.Mul(decimal.NewFromFloat(e.cfg.MaxBudgetFraction)); share.LessThan(limit) {
		limit = share
	}
	// a base price above the share cap still gets an opening bid
	if item.BasePrice.GreaterThan(limit) {
		limit = item.BasePrice
	}
	if profile.SpendingCapacity.LessThan(limit) {
		limit = profile.SpendingCapacity
	}
	if team.RemainingBudget.LessThan(limit) {
		limit = team.RemainingBudget
	}
	return limit
}

func (e *Engine) amount(next decimal.Decimal, c candidate) decimal.Decimal {
	if c.profile.JumpChance <= 0 || e.rng.Float64() >= c.profile.JumpChance {
		return next
	}
	amount := next
	steps := 1 + e.rng.Intn(3)
	for i := 0; i < steps; i++ {
		raised := amount.Add(e.rules.Increment(amount))
		if raised.GreaterThan(c.limit) {
			break
		}
		amount = raised
	}
	return amount
}
