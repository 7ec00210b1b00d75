package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mcdev12/auctionroom/go/internal/auction/bidding"
	"github.com/mcdev12/auctionroom/go/internal/auction/room"
	"github.com/mcdev12/auctionroom/go/internal/auction/synthetic"
	"github.com/mcdev12/auctionroom/go/internal/dbconfig"
	"gopkg.in/yaml.v3"
)

// Config is the process configuration. Backends with an empty address are
// disabled.
type Config struct {
	Port          string
	LogLevel      string
	CataloguePath string

	Database    *dbconfig.Config
	RedisAddr   string
	RedisPrefix string
	SnapshotTTL time.Duration
	NATSURL     string

	Room room.Config
}

// fileConfig is the optional YAML override for room settings. Fields are
// decoded over the defaults, so a file only lists what it changes.
type fileConfig struct {
	CataloguePath string        `yaml:"catalogue_path"`
	Auction       auctionConfig `yaml:"auction"`
}

type auctionConfig struct {
	Rules     bidding.Rules    `yaml:"rules"`
	Synthetic synthetic.Config `yaml:"synthetic"`

	TickInterval             time.Duration `yaml:"tick_interval"`
	CountdownSeconds         int           `yaml:"countdown_seconds"`
	ItemSeconds              int           `yaml:"item_seconds"`
	BidFloorSeconds          int           `yaml:"bid_floor_seconds"`
	BreakSeconds             int           `yaml:"break_seconds"`
	StrategicTimeoutSeconds  int           `yaml:"strategic_timeout_seconds"`
	StrategicTimeoutsPerTeam int           `yaml:"strategic_timeouts_per_team"`
	GracePeriod              time.Duration `yaml:"grace_period"`
	MinParticipants          int           `yaml:"min_participants"`
	SnapshotEveryTicks       int           `yaml:"snapshot_every_ticks"`
	SyntheticTakeover        bool          `yaml:"synthetic_takeover"`
	EndWhenAllTeamsDone      bool          `yaml:"end_when_all_teams_done"`
	IdleTimeout              time.Duration `yaml:"idle_timeout"`
	SweepInterval            time.Duration `yaml:"sweep_interval"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func loadConfig() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		CataloguePath: os.Getenv("CATALOGUE_PATH"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPrefix:   getEnv("REDIS_PREFIX", "auction:"),
		SnapshotTTL:   time.Duration(getEnvAsInt("SNAPSHOT_TTL_HOURS", 24)) * time.Hour,
		NATSURL:       os.Getenv("NATS_URL"),
		Room:          room.DefaultConfig(),
	}
	if os.Getenv("DB_HOST") != "" {
		dbCfg := dbconfig.NewConfigFromEnv("auction-server")
		cfg.Database = &dbCfg
	}

	if path := os.Getenv("AUCTION_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.Room.Validate(); err != nil {
		return nil, fmt.Errorf("invalid room config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return c.applyYAML(data)
}

func (c *Config) applyYAML(data []byte) error {
	fc := fileConfig{CataloguePath: c.CataloguePath, Auction: fromRoomConfig(c.Room)}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	c.CataloguePath = fc.CataloguePath
	fc.Auction.apply(&c.Room)
	return nil
}

func fromRoomConfig(rc room.Config) auctionConfig {
	return auctionConfig{
		Rules:                    rc.Rules,
		Synthetic:                rc.Synthetic,
		TickInterval:             rc.TickInterval,
		CountdownSeconds:         rc.CountdownSeconds,
		ItemSeconds:              rc.ItemSeconds,
		BidFloorSeconds:          rc.BidFloorSeconds,
		BreakSeconds:             rc.BreakSeconds,
		StrategicTimeoutSeconds:  rc.StrategicTimeoutSeconds,
		StrategicTimeoutsPerTeam: rc.StrategicTimeoutsPerTeam,
		GracePeriod:              rc.GracePeriod,
		MinParticipants:          rc.MinParticipants,
		SnapshotEveryTicks:       rc.SnapshotEveryTicks,
		SyntheticTakeover:        rc.SyntheticTakeover,
		EndWhenAllTeamsDone:      rc.EndWhenAllTeamsDone,
		IdleTimeout:              rc.IdleTimeout,
		SweepInterval:            rc.SweepInterval,
	}
}

func (a auctionConfig) apply(rc *room.Config) {
	rc.Rules = a.Rules
	rc.Synthetic = a.Synthetic
	rc.Scoring.MinRoster = a.Rules.MinRoster
	rc.TickInterval = a.TickInterval
	rc.CountdownSeconds = a.CountdownSeconds
	rc.ItemSeconds = a.ItemSeconds
	rc.BidFloorSeconds = a.BidFloorSeconds
	rc.BreakSeconds = a.BreakSeconds
	rc.StrategicTimeoutSeconds = a.StrategicTimeoutSeconds
	rc.StrategicTimeoutsPerTeam = a.StrategicTimeoutsPerTeam
	rc.GracePeriod = a.GracePeriod
	rc.MinParticipants = a.MinParticipants
	rc.SnapshotEveryTicks = a.SnapshotEveryTicks
	rc.SyntheticTakeover = a.SyntheticTakeover
	rc.EndWhenAllTeamsDone = a.EndWhenAllTeamsDone
	rc.IdleTimeout = a.IdleTimeout
	rc.SweepInterval = a.SweepInterval
}
