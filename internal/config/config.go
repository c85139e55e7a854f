// Package config loads the TOML-backed knobs of spec.md §6 (grounder
// flags, lifted-mgroup budgets, LAMA fringe options, landmark provider
// selection), the same BurntSushi/toml-driven pattern the teacher uses for
// its own settings file.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Grounder holds the knobs spec §4.3 leaves as open tuning points.
type Grounder struct {
	// MaxFacts is read from the config file, but no stage consults it: the
	// grounder runs to its fixed point however many facts it finds.
	MaxFacts int `toml:"max_facts"`
	// MaxOperators is likewise read but not consulted for the operator count.
	MaxOperators int `toml:"max_operators"`
}

// MutexGroup holds the mutex-group knobs. Only Enabled is consulted;
// MaxCandidates and MaxGroupSize are read from the config file but
// mgroup.Infer applies no candidate or group-size limit.
type MutexGroup struct {
	Enabled        bool `toml:"enabled"`
	MaxCandidates  int  `toml:"max_candidates"`
	MaxGroupSize   int  `toml:"max_group_size"`
}

// Landmark selects which provider (spec §4.9) builds the landmark graph.
type Landmark struct {
	Provider string `toml:"provider"` // "rhw", "ao1", "ao2", "lm-cut", "dof"
}

// Search holds the LAMA fringe knobs of spec §4.10.
type Search struct {
	MaxExpansions int `toml:"max_expansions"`
	BoostAmount   int `toml:"boost_amount"`
}

// Config is the whole-process configuration surface.
type Config struct {
	Grounder   Grounder   `toml:"grounder"`
	MutexGroup MutexGroup `toml:"mutex_group"`
	Landmark   Landmark   `toml:"landmark"`
	Search     Search     `toml:"search"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Grounder:   Grounder{MaxFacts: 2_000_000, MaxOperators: 2_000_000},
		MutexGroup: MutexGroup{Enabled: true, MaxCandidates: 10_000, MaxGroupSize: 64},
		Landmark:   Landmark{Provider: "rhw"},
		Search:     Search{MaxExpansions: 0, BoostAmount: 1000},
	}
}

// Load reads and decodes a TOML configuration file, starting from Default()
// so a partial file only overrides the fields it mentions.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}
