package room

import (
	"fmt"
	"time"

	"github.com/mcdev12/auctionroom/go/internal/auction/bidding"
	"github.com/mcdev12/auctionroom/go/internal/auction/scoring"
	"github.com/mcdev12/auctionroom/go/internal/auction/synthetic"
)

// Config holds the timings and policies shared by every room
type Config struct {
	Rules     bidding.Rules
	Synthetic synthetic.Config
	Scoring   scoring.Config

	TickInterval             time.Duration
	CountdownSeconds         int // lobby start to first item
	ItemSeconds              int // countdown for a freshly opened item
	BidFloorSeconds          int // remaining time after an accepted bid is at least this
	BreakSeconds             int // pause between sets; zero disables breaks
	StrategicTimeoutSeconds  int
	StrategicTimeoutsPerTeam int
	GracePeriod              time.Duration
	MinParticipants          int
	SnapshotEveryTicks       int

	// SyntheticTakeover hands a team to the synthetic engine when its
	// controller's grace period runs out; otherwise the team goes inactive.
	SyntheticTakeover bool
	// EndWhenAllTeamsDone closes the auction early once no team can buy
	// anything else. Off by default: an empty queue is the normal end.
	EndWhenAllTeamsDone bool

	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

// DefaultConfig returns the standard room settings
func DefaultConfig() Config {
	rules := bidding.DefaultRules()
	scoringCfg := scoring.DefaultConfig()
	scoringCfg.MinRoster = rules.MinRoster

	return Config{
		Rules:                    rules,
		Synthetic:                synthetic.DefaultConfig(),
		Scoring:                  scoringCfg,
		TickInterval:             time.Second,
		CountdownSeconds:         5,
		ItemSeconds:              15,
		BidFloorSeconds:          10,
		BreakSeconds:             10,
		StrategicTimeoutSeconds:  30,
		StrategicTimeoutsPerTeam: 2,
		GracePeriod:              2 * time.Minute,
		MinParticipants:          1,
		SnapshotEveryTicks:       10,
		SyntheticTakeover:        true,
		IdleTimeout:              2 * time.Hour,
		SweepInterval:            5 * time.Minute,
	}
}

// Validate rejects settings the room cannot run with
func (c Config) Validate() error {
	if err := c.Rules.Validate(); err != nil {
		return err
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive")
	}
	if c.ItemSeconds <= 0 || c.BidFloorSeconds <= 0 || c.CountdownSeconds < 0 || c.BreakSeconds < 0 {
		return fmt.Errorf("invalid countdown settings")
	}
	if c.GracePeriod <= 0 {
		return fmt.Errorf("grace period must be positive")
	}
	if c.MinParticipants < 1 {
		return fmt.Errorf("min participants must be at least 1")
	}
	return nil
}
