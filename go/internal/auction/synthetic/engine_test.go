package synthetic

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/mcdev12/auctionroom/go/internal/auction/bidding"
	"github.com/mcdev12/auctionroom/go/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTeams(rules bidding.Rules, n int) []*models.Team {
	teams := make([]*models.Team, 0, n)
	for i := 0; i < n; i++ {
		teams = append(teams, models.NewTeam(fmt.Sprintf("T%d", i), fmt.Sprintf("Team %d", i), rules.StartingBudget, rules.MaxRoster, 2))
	}
	return teams
}

func buy(t *testing.T, team *models.Team, category models.Category, overseas bool, price string) {
	t.Helper()
	item := &models.Item{
		ID:        fmt.Sprintf("%s-%d", team.ID, team.RosterSize()),
		Category:  category,
		Overseas:  overseas,
		BasePrice: d("0.2"),
		Status:    models.ItemPending,
	}
	_, err := team.Acquire(item, d(price), time.Now())
	require.NoError(t, err)
}

func TestSpendingCapacity(t *testing.T) {
	rules := bidding.DefaultRules()
	cfg := DefaultConfig()
	team := models.NewTeam("MI", "Mumbai", rules.StartingBudget, rules.MaxRoster, 2)

	// 17 further slots to cover at 0.2 each
	assert.True(t, SpendingCapacity(team, rules, cfg).Equal(d("96.6")))

	team.RemainingBudget = d("1")
	team.StartingBudget = d("1")
	assert.True(t, SpendingCapacity(team, rules, cfg).IsZero())
}

func TestDeriveProfile_Strategies(t *testing.T) {
	rules := bidding.DefaultRules()
	cfg := DefaultConfig()
	marquee := &models.Item{ID: "m", Category: models.CategoryBatter, BasePrice: d("2"), Status: models.ItemPending}
	plain := &models.Item{ID: "p", Category: models.CategoryBatter, BasePrice: d("0.5"), Status: models.ItemPending}

	t.Run("aggressive_on_marquee_with_full_purse", func(t *testing.T) {
		team := models.NewTeam("A", "A", rules.StartingBudget, rules.MaxRoster, 2)
		p := DeriveProfile(team, Market{Item: marquee, CurrentPrice: d("2"), ItemsRemaining: 100}, rules, cfg)
		assert.Equal(t, StrategyAggressive, p.Strategy)
		assert.InDelta(t, 6.0, p.MaxMultiplier, 1e-9)
		assert.InDelta(t, 1.0, p.Need[models.CategoryBatter], 1e-9)
	})

	t.Run("desperate_when_items_run_out", func(t *testing.T) {
		team := models.NewTeam("B", "B", rules.StartingBudget, rules.MaxRoster, 2)
		p := DeriveProfile(team, Market{Item: plain, CurrentPrice: d("0.5"), ItemsRemaining: 20}, rules, cfg)
		assert.Equal(t, StrategyDesperate, p.Strategy)
	})

	t.Run("conservative_when_broke", func(t *testing.T) {
		team := models.NewTeam("C", "C", rules.StartingBudget, rules.MaxRoster, 2)
		buy(t, team, models.CategoryBowler, false, "80")
		p := DeriveProfile(team, Market{Item: plain, CurrentPrice: d("0.5"), ItemsRemaining: 100}, rules, cfg)
		assert.Equal(t, StrategyConservative, p.Strategy)
		assert.InDelta(t, 0.2, p.BudgetRatio, 1e-9)
	})

	t.Run("patient_when_category_filled", func(t *testing.T) {
		team := models.NewTeam("D", "D", rules.StartingBudget, rules.MaxRoster, 2)
		for i := 0; i < 6; i++ {
			buy(t, team, models.CategoryBatter, false, "0.5")
		}
		p := DeriveProfile(team, Market{Item: plain, CurrentPrice: d("0.5"), ItemsRemaining: 100}, rules, cfg)
		assert.Equal(t, StrategyPatient, p.Strategy)
		assert.Zero(t, p.Need[models.CategoryBatter])
	})
}

func TestEngine_NoBidders(t *testing.T) {
	rules := bidding.DefaultRules()
	engine := NewEngine(rules, DefaultConfig(), rand.New(rand.NewSource(1)))
	item := &models.Item{ID: "p", Category: models.CategoryBatter, BasePrice: d("2"), Status: models.ItemPending}

	humans := newTeams(rules, 2)
	for _, tm := range humans {
		tm.Control = models.ControlHuman
	}
	_, ok, err := engine.Decide(humans, Market{Item: item, CurrentPrice: d("2"), ItemsRemaining: 10})
	require.NoError(t, err)
	assert.False(t, ok)

	// a lone synthetic leader never outbids itself
	solo := newTeams(rules, 1)
	for i := 0; i < 50; i++ {
		_, ok, err = engine.Decide(solo, Market{Item: item, CurrentPrice: d("3"), HasLeader: true, LeaderID: "T0", ItemsRemaining: 10})
		require.NoError(t, err)
		assert.False(t, ok)
	}

	_, ok, err = engine.Decide(newTeams(rules, 3), Market{ItemsRemaining: 10})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEngine_RespectsCaps(t *testing.T) {
	rules := bidding.DefaultRules()
	engine := NewEngine(rules, DefaultConfig(), rand.New(rand.NewSource(7)))
	item := &models.Item{ID: "p", Category: models.CategoryBatter, BasePrice: d("2"), Status: models.ItemPending}

	// 20% of a 100 purse caps any single item at 20
	for i := 0; i < 100; i++ {
		_, ok, err := engine.Decide(newTeams(rules, 8), Market{Item: item, CurrentPrice: d("20"), HasLeader: true, LeaderID: "X", ItemsRemaining: 50})
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

// Every bid the engine produces passes the validator, across random rosters,
// budgets and prices.
func TestEngine_BidsAlwaysValid(t *testing.T) {
	rules := bidding.DefaultRules()
	rng := rand.New(rand.NewSource(42))
	engine := NewEngine(rules, DefaultConfig(), rand.New(rand.NewSource(43)))

	decided := 0
	for round := 0; round < 500; round++ {
		teams := newTeams(rules, 8)
		for _, tm := range teams {
			n := rng.Intn(rules.MaxRoster + 1)
			for i := 0; i < n; i++ {
				price := decimal.NewFromFloat(0.2 + rng.Float64()*4).Round(2)
				if price.GreaterThan(tm.RemainingBudget) {
					break
				}
				overseas := rng.Intn(3) == 0 && tm.OverseasCount() < rules.MaxOverseas
				buy(t, tm, models.Categories[rng.Intn(len(models.Categories))], overseas, price.String())
			}
			switch rng.Intn(6) {
			case 0:
				tm.Control = models.ControlHuman
			case 1:
				tm.Status = models.TeamInactive
			}
		}

		item := &models.Item{
			ID:        "open",
			Category:  models.Categories[rng.Intn(len(models.Categories))],
			Overseas:  rng.Intn(2) == 0,
			BasePrice: decimal.NewFromFloat(0.2 + float64(rng.Intn(10))*0.2).Round(2),
			Status:    models.ItemPending,
		}
		market := Market{Item: item, CurrentPrice: item.BasePrice, ItemsRemaining: 1 + rng.Intn(60)}
		if rng.Intn(2) == 0 {
			market.HasLeader = true
			market.LeaderID = teams[rng.Intn(len(teams))].ID
			market.CurrentPrice = item.BasePrice.Add(decimal.NewFromInt(int64(rng.Intn(6))))
		}

		bid, ok, err := engine.Decide(teams, market)
		require.NoError(t, err)
		if !ok {
			continue
		}
		decided++

		var team *models.Team
		for _, tm := range teams {
			if tm.ID == bid.TeamID {
				team = tm
			}
		}
		require.NotNil(t, team)
		assert.True(t, team.IsSynthetic())
		assert.NotEqual(t, market.LeaderID, team.ID)
		require.NoError(t, bidding.Validate(rules, bidding.BidContext{
			Team:         team,
			Item:         item,
			CurrentPrice: market.CurrentPrice,
			HasLeader:    market.HasLeader,
			Amount:       bid.Amount,
		}))
	}
	assert.Greater(t, decided, 0)
}
