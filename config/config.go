/*
Package config loads server configuration from an optional YAML file.

Flags override file values; file values override defaults. Threshold
overrides feed the evaluator's ThresholdSource so auto-approval limits
stay data, not constants.

EXAMPLE (config.yaml):

  port: 8080
  db_path: approvals.db
  reminder_schedule: "0 9 * * 1-5"
  stale_after_hours: 24
  thresholds:
    pto:
      standard: 3
      elevated: 10
    expense:
      standard: 100
      elevated: 1000
*/
package config

import (
	"fmt"
	"os"

	"github.com/warp/approval-engine/engine"
	"gopkg.in/yaml.v3"
)

// Config is the server configuration.
type Config struct {
	Port   int    `yaml:"port"`
	DBPath string `yaml:"db_path"`

	// ReminderSchedule is a cron expression for the pending-escalation
	// reminder sweep. Empty disables the scheduler.
	ReminderSchedule string `yaml:"reminder_schedule"`

	// StaleAfterHours is how long a request may sit in pending before the
	// sweep re-notifies its manager.
	StaleAfterHours int `yaml:"stale_after_hours"`

	// Thresholds overrides the built-in auto-approval defaults,
	// keyed by request type then employee level.
	Thresholds map[string]map[string]float64 `yaml:"thresholds"`
}

// Default returns the configuration used when no file is provided.
func Default() Config {
	return Config{
		Port:            8080,
		DBPath:          "approvals.db",
		StaleAfterHours: 24,
	}
}

// Load reads the YAML file at path over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ThresholdSource builds the evaluator threshold table from the config
// overrides. Entries missing from the file fall back to engine defaults.
func (c Config) ThresholdSource() engine.ThresholdSource {
	if len(c.Thresholds) == 0 {
		return engine.DefaultThresholds()
	}

	table := engine.StaticThresholds{}
	for reqType, byLevel := range c.Thresholds {
		t := engine.RequestType(reqType)
		unit := engine.UnitDays
		if t == engine.TypeExpense {
			unit = engine.UnitUSD
		}
		table[t] = map[engine.Level]engine.Amount{}
		for level, value := range byLevel {
			table[t][engine.Level(level)] = engine.NewAmount(value, unit)
		}
	}
	return table
}
