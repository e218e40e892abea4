package services

import (
	"fmt"
	"os"
	"strconv"
)

// HeistConfig is the read-only snapshot of the heist economy tunables.
// Loaded once at startup from environment variables; request handling only
// ever sees this immutable struct.
type HeistConfig struct {
	Enabled                 bool    // kill switch for the whole mechanic
	TokenCost               int64   // attack tokens debited per attempt
	StealPercentage         float64 // base fraction of victim balance, (0, 0.5]
	MaxPointsPerHeist       int64   // hard cap per heist, [1, 1000]
	MinVictimPoints         int64   // victims below this can't be targeted
	AttackerCooldownHours   int     // wait between successful attacks
	VictimProtectionHours   int     // grace window after being robbed
	MaxHeistsPerDay         int     // successful attacks per calendar day
	ItemsEnabled            bool    // modifier item pipeline on/off
	MinProtectionPercentage float64 // floor fraction of victim balance that can never be taken, [0, 1)
}

// DefaultHeistConfig returns the platform defaults used when env vars are unset.
func DefaultHeistConfig() *HeistConfig {
	return &HeistConfig{
		Enabled:                 true,
		TokenCost:               1,
		StealPercentage:         0.05,
		MaxPointsPerHeist:       100,
		MinVictimPoints:         100,
		AttackerCooldownHours:   4,
		VictimProtectionHours:   8,
		MaxHeistsPerDay:         5,
		ItemsEnabled:            true,
		MinProtectionPercentage: 0.10,
	}
}

// LoadHeistConfig reads the heist tunables from the environment, falling
// back to defaults, and validates the result. Call once from main.
func LoadHeistConfig() (*HeistConfig, error) {
	cfg := DefaultHeistConfig()

	cfg.Enabled = envBool("HEIST_ENABLED", cfg.Enabled)
	cfg.TokenCost = envInt64("HEIST_TOKEN_COST", cfg.TokenCost)
	cfg.StealPercentage = envFloat("HEIST_STEAL_PERCENTAGE", cfg.StealPercentage)
	cfg.MaxPointsPerHeist = envInt64("HEIST_MAX_POINTS", cfg.MaxPointsPerHeist)
	cfg.MinVictimPoints = envInt64("HEIST_MIN_VICTIM_POINTS", cfg.MinVictimPoints)
	cfg.AttackerCooldownHours = envInt("HEIST_ATTACKER_COOLDOWN_HOURS", cfg.AttackerCooldownHours)
	cfg.VictimProtectionHours = envInt("HEIST_VICTIM_PROTECTION_HOURS", cfg.VictimProtectionHours)
	cfg.MaxHeistsPerDay = envInt("HEIST_MAX_PER_DAY", cfg.MaxHeistsPerDay)
	cfg.ItemsEnabled = envBool("HEIST_ITEMS_ENABLED", cfg.ItemsEnabled)
	cfg.MinProtectionPercentage = envFloat("HEIST_MIN_PROTECTION_PERCENTAGE", cfg.MinProtectionPercentage)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects out-of-range tunables. Startup-time guard only — request
// paths trust the snapshot.
func (c *HeistConfig) Validate() error {
	if c.StealPercentage <= 0 || c.StealPercentage > 0.5 {
		return fmt.Errorf("steal percentage must be in (0, 0.5], got %v", c.StealPercentage)
	}
	if c.MaxPointsPerHeist < 1 || c.MaxPointsPerHeist > 1000 {
		return fmt.Errorf("max points per heist must be in [1, 1000], got %d", c.MaxPointsPerHeist)
	}
	if c.MinProtectionPercentage < 0 || c.MinProtectionPercentage >= 1 {
		return fmt.Errorf("min protection percentage must be in [0, 1), got %v", c.MinProtectionPercentage)
	}
	if c.TokenCost < 1 {
		return fmt.Errorf("token cost must be >= 1, got %d", c.TokenCost)
	}
	if c.MinVictimPoints < 0 {
		return fmt.Errorf("min victim points must be >= 0, got %d", c.MinVictimPoints)
	}
	if c.AttackerCooldownHours < 0 || c.VictimProtectionHours < 0 {
		return fmt.Errorf("cooldown hours must be >= 0")
	}
	if c.MaxHeistsPerDay < 1 {
		return fmt.Errorf("max heists per day must be >= 1, got %d", c.MaxHeistsPerDay)
	}
	return nil
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
