// Package scoring computes the composite rating used to rank teams once the
// auction completes.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mcdev12/auctionroom/go/internal/models"
	"github.com/shopspring/decimal"
)

// Weights of each component in the overall rating; they should sum to 1
type Weights struct {
	Balance    float64 `yaml:"balance" json:"balance"`
	StarPower  float64 `yaml:"star_power" json:"star_power"`
	Efficiency float64 `yaml:"efficiency" json:"efficiency"`
}

type Config struct {
	Composition      models.Composition
	MinRoster        int
	PremiumBasePrice decimal.Decimal
	Weights          Weights
	// Budget utilisation inside [UtilisationLow, UtilisationHigh] scores full marks
	UtilisationLow  float64
	UtilisationHigh float64
}

func DefaultConfig() Config {
	return Config{
		Composition:      models.DefaultComposition(),
		MinRoster:        18,
		PremiumBasePrice: decimal.RequireFromString("1.5"),
		Weights:          Weights{Balance: 0.40, StarPower: 0.30, Efficiency: 0.30},
		UtilisationLow:   0.75,
		UtilisationHigh:  0.97,
	}
}

// CategoryScore is the balance sub-score for one category
type CategoryScore struct {
	Category models.Category `json:"category"`
	Have     int             `json:"have"`
	Target   int             `json:"target"`
	Score    float64         `json:"score"`
}

// TeamResult is one row of the final standings
type TeamResult struct {
	Rank           int             `json:"rank"`
	TeamID         string          `json:"team_id"`
	TeamName       string          `json:"team_name"`
	Control        models.Control  `json:"control"`
	RosterSize     int             `json:"roster_size"`
	Spent          decimal.Decimal `json:"spent"`
	Remaining      decimal.Decimal `json:"remaining"`
	PremiumCount   int             `json:"premium_count"`
	PremiumSpend   decimal.Decimal `json:"premium_spend"`
	CategoryScores []CategoryScore `json:"category_scores"`
	Balance        float64         `json:"balance"`
	StarPower      float64         `json:"star_power"`
	Efficiency     float64         `json:"efficiency"`
	Overall        float64         `json:"overall"`
	Strengths      []string        `json:"strengths"`
	Weaknesses     []string        `json:"weaknesses"`
}

// Rank scores every team and orders them by descending overall rating.
// Equal ratings keep their input order.
func Rank(teams []*models.Team, cfg Config) []TeamResult {
	results := make([]TeamResult, 0, len(teams))
	for _, team := range teams {
		results = append(results, ScoreTeam(team, cfg))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Overall > results[j].Overall
	})
	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}

// ScoreTeam computes the rating of a single roster
func ScoreTeam(team *models.Team, cfg Config) TeamResult {
	res := TeamResult{
		TeamID:     team.ID,
		TeamName:   team.Name,
		Control:    team.Control,
		RosterSize: team.RosterSize(),
		Spent:      team.Spent(),
		Remaining:  team.RemainingBudget,
		Strengths:  []string{},
		Weaknesses: []string{},
	}

	res.CategoryScores, res.Balance = balance(team, cfg)
	res.PremiumCount, res.PremiumSpend, res.StarPower = starPower(team, cfg, res.Spent)
	utilisation, eff := efficiency(team, cfg, res.Spent)
	res.Efficiency = eff

	w := cfg.Weights
	res.Overall = round2(w.Balance*res.Balance + w.StarPower*res.StarPower + w.Efficiency*res.Efficiency)

	describe(&res, cfg, utilisation)
	return res
}

func balance(team *models.Team, cfg Config) ([]CategoryScore, float64) {
	scores := make([]CategoryScore, 0, len(models.Categories))
	sum := 0.0
	for _, c := range models.Categories {
		cs := CategoryScore{Category: c, Have: team.CategoryCount(c), Target: cfg.Composition[c]}
		if cs.Target <= 0 {
			cs.Score = 100
		} else {
			cs.Score = round2(math.Min(1, float64(cs.Have)/float64(cs.Target)) * 100)
		}
		sum += cs.Score
		scores = append(scores, cs)
	}
	score := sum / float64(len(scores))

	if short := cfg.MinRoster - team.RosterSize(); short > 0 && cfg.MinRoster > 0 {
		score -= float64(short) / float64(cfg.MinRoster) * 30
	}
	return scores, round2(math.Max(0, score))
}

func starPower(team *models.Team, cfg Config, spent decimal.Decimal) (int, decimal.Decimal, float64) {
	count := 0
	premiumSpend := decimal.Zero
	for _, p := range team.Purchases {
		if p.BasePrice.GreaterThanOrEqual(cfg.PremiumBasePrice) {
			count++
			premiumSpend = premiumSpend.Add(p.Price)
		}
	}

	share := 0.0
	if spent.IsPositive() {
		share = premiumSpend.Div(spent).InexactFloat64()
	}
	score := math.Min(1, float64(count)/3)*60 + share*40
	return count, premiumSpend, round2(score)
}

func efficiency(team *models.Team, cfg Config, spent decimal.Decimal) (float64, float64) {
	if !team.StartingBudget.IsPositive() {
		return 0, 0
	}
	u := spent.Div(team.StartingBudget).InexactFloat64()

	var band float64
	switch {
	case u < cfg.UtilisationLow:
		band = u / cfg.UtilisationLow * 100
	case u <= cfg.UtilisationHigh:
		band = 100
	default:
		band = math.Max(0, 100-(u-cfg.UtilisationHigh)/(1-cfg.UtilisationHigh)*50)
	}

	value := 0.0
	if spent.IsPositive() {
		base := decimal.Zero
		for _, p := range team.Purchases {
			base = base.Add(p.BasePrice)
		}
		value = math.Min(1, base.Div(spent).InexactFloat64())
	}

	return u, round2(0.7*band + 0.3*value*100)
}

func describe(res *TeamResult, cfg Config, utilisation float64) {
	if res.Balance >= 80 {
		res.Strengths = append(res.Strengths, "Well-balanced squad")
	}
	for _, cs := range res.CategoryScores {
		if cs.Target <= 0 {
			continue
		}
		switch {
		case cs.Have == 0:
			res.Weaknesses = append(res.Weaknesses, fmt.Sprintf("No %s signed", plural(cs.Category)))
		case cs.Have >= cs.Target:
			res.Strengths = append(res.Strengths, fmt.Sprintf("Full complement of %s", plural(cs.Category)))
		}
	}
	if short := cfg.MinRoster - res.RosterSize; short > 0 {
		res.Weaknesses = append(res.Weaknesses, fmt.Sprintf("Squad short by %d players", short))
	}

	if res.StarPower >= 60 {
		res.Strengths = append(res.Strengths, "Strong marquee presence")
	} else if res.PremiumCount == 0 {
		res.Weaknesses = append(res.Weaknesses, "No premium signings")
	}

	if res.Efficiency >= 80 {
		res.Strengths = append(res.Strengths, "Efficient budget use")
	}
	if utilisation < cfg.UtilisationLow {
		res.Weaknesses = append(res.Weaknesses, fmt.Sprintf("Left %s unspent", res.Remaining.StringFixed(2)))
	}
}

func plural(c models.Category) string {
	return strings.ReplaceAll(string(c), "-", " ") + "s"
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
