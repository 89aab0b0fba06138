// Package config holds the bot's settings. Values come from defaults, then an
// optional YAML file, then SNEKAB_* environment variables; commands apply
// their own flags last.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/brensch/snekab/eval"
	"github.com/brensch/snekab/rules"
	"github.com/brensch/snekab/search"
)

type Config struct {
	Listen string `yaml:"listen"`

	// MoveTimeout is used when a request does not carry game.timeout.
	MoveTimeout time.Duration `yaml:"move_timeout"`
	// LatencyBuffer is reserved from every tick for network and encoding.
	LatencyBuffer time.Duration `yaml:"latency_buffer"`
	// MinCompute floors the search budget when the buffer eats the timeout.
	MinCompute time.Duration `yaml:"min_compute"`

	Search     Search       `yaml:"search"`
	Rules      Rules        `yaml:"rules"`
	Weights    eval.Weights `yaml:"weights"`
	Log        Log          `yaml:"log"`
	Appearance Appearance   `yaml:"appearance"`
}

type Search struct {
	MaxDepth int  `yaml:"max_depth"`
	Parallel bool `yaml:"parallel"`
}

type Rules struct {
	MaxHealth    int32 `yaml:"max_health"`
	HazardDamage int32 `yaml:"hazard_damage"`
	Hazards      bool  `yaml:"hazards"`
}

type Log struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// Appearance is returned from GET /.
type Appearance struct {
	Author  string `yaml:"author"`
	Color   string `yaml:"color"`
	Head    string `yaml:"head"`
	Tail    string `yaml:"tail"`
	Version string `yaml:"version"`
}

func Default() Config {
	return Config{
		Listen:        ":8080",
		MoveTimeout:   500 * time.Millisecond,
		LatencyBuffer: 200 * time.Millisecond,
		MinCompute:    50 * time.Millisecond,
		Search:        Search{MaxDepth: search.DefaultMaxDepth},
		Rules: Rules{
			MaxHealth:    rules.Standard.MaxHealth,
			HazardDamage: rules.Standard.HazardDamage,
			Hazards:      rules.Standard.Hazards,
		},
		Weights: eval.DefaultWeights,
		Log:     Log{Format: "pretty", Level: "info"},
		Appearance: Appearance{
			Author:  "snekab",
			Color:   "#3e7bd6",
			Head:    "smart-caterpillar",
			Tail:    "round-bum",
			Version: "1.0.0",
		},
	}
}

// Load returns Default overlaid with the YAML file at path (if path is not
// empty) and then with the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from SNEKAB_* variables.
func (c *Config) ApplyEnv() {
	c.Listen = EnvString("SNEKAB_LISTEN", c.Listen)
	c.MoveTimeout = EnvDuration("SNEKAB_MOVE_TIMEOUT", c.MoveTimeout)
	c.LatencyBuffer = EnvDuration("SNEKAB_LATENCY_BUFFER", c.LatencyBuffer)
	c.MinCompute = EnvDuration("SNEKAB_MIN_COMPUTE", c.MinCompute)
	c.Search.MaxDepth = EnvInt("SNEKAB_MAX_DEPTH", c.Search.MaxDepth)
	c.Search.Parallel = EnvBool("SNEKAB_PARALLEL", c.Search.Parallel)
	c.Rules.HazardDamage = int32(EnvInt("SNEKAB_HAZARD_DAMAGE", int(c.Rules.HazardDamage)))
	c.Rules.Hazards = EnvBool("SNEKAB_HAZARDS", c.Rules.Hazards)
	c.Log.Format = EnvString("SNEKAB_LOG_FORMAT", c.Log.Format)
	c.Log.Level = EnvString("SNEKAB_LOG_LEVEL", c.Log.Level)
}

var ErrInvalid = errors.New("invalid config")

func (c Config) Validate() error {
	switch {
	case c.MoveTimeout <= 0:
		return fmt.Errorf("%w: move_timeout %v", ErrInvalid, c.MoveTimeout)
	case c.LatencyBuffer < 0:
		return fmt.Errorf("%w: latency_buffer %v", ErrInvalid, c.LatencyBuffer)
	case c.MinCompute <= 0:
		return fmt.Errorf("%w: min_compute %v", ErrInvalid, c.MinCompute)
	case c.Search.MaxDepth < 0:
		return fmt.Errorf("%w: search.max_depth %d", ErrInvalid, c.Search.MaxDepth)
	case c.Rules.MaxHealth <= 0:
		return fmt.Errorf("%w: rules.max_health %d", ErrInvalid, c.Rules.MaxHealth)
	case c.Rules.HazardDamage < 0:
		return fmt.Errorf("%w: rules.hazard_damage %d", ErrInvalid, c.Rules.HazardDamage)
	}
	return nil
}

func (c Config) Ruleset() rules.Ruleset {
	return rules.Ruleset{
		MaxHealth:    c.Rules.MaxHealth,
		HazardDamage: c.Rules.HazardDamage,
		Hazards:      c.Rules.Hazards,
	}
}

func (c Config) SearchConfig() search.Config {
	return search.Config{MaxDepth: c.Search.MaxDepth, Parallel: c.Search.Parallel}
}

// ComputeBudget is the search time for one tick: the game's timeout (or
// MoveTimeout when timeoutMs is not positive) minus LatencyBuffer, never less
// than MinCompute.
func (c Config) ComputeBudget(timeoutMs int) time.Duration {
	timeout := c.MoveTimeout
	if timeoutMs > 0 {
		timeout = time.Duration(timeoutMs) * time.Millisecond
	}
	return max(timeout-c.LatencyBuffer, c.MinCompute)
}

func EnvString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func EnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func EnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1" || v == "yes"
	}
	return def
}
