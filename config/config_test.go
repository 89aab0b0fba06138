package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brensch/snekab/eval"
	"github.com/brensch/snekab/rules"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Ruleset() != rules.Standard {
		t.Fatalf("default ruleset %+v, want standard", cfg.Ruleset())
	}
	if cfg.Weights != eval.DefaultWeights {
		t.Fatalf("default weights %+v", cfg.Weights)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snekab.yaml")
	yml := `
listen: ":9000"
move_timeout: 800ms
search:
  max_depth: 9
  parallel: true
rules:
  hazard_damage: 20
weights:
  hunger: 11
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SNEKAB_LISTEN", ":7000")
	t.Setenv("SNEKAB_MAX_DEPTH", "4")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":7000" || cfg.Search.MaxDepth != 4 {
		t.Fatalf("env did not win: listen=%s depth=%d", cfg.Listen, cfg.Search.MaxDepth)
	}
	if cfg.MoveTimeout != 800*time.Millisecond || !cfg.Search.Parallel || cfg.Rules.HazardDamage != 20 || cfg.Log.Level != "debug" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Weights.Hunger != 11 || cfg.Weights.Length != eval.DefaultWeights.Length {
		t.Fatalf("weights merge wrong: %+v", cfg.Weights)
	}
	if cfg.Rules.MaxHealth != 100 || !cfg.Rules.Hazards {
		t.Fatalf("untouched rules lost defaults: %+v", cfg.Rules)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("min_compute: 0s\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err=%v want ErrInvalid", err)
	}
}

func TestComputeBudget(t *testing.T) {
	cfg := Default()
	tests := []struct {
		timeoutMs int
		want      time.Duration
	}{
		{0, 300 * time.Millisecond},
		{500, 300 * time.Millisecond},
		{1000, 800 * time.Millisecond},
		{220, 50 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := cfg.ComputeBudget(tt.timeoutMs); got != tt.want {
			t.Errorf("ComputeBudget(%d)=%v want %v", tt.timeoutMs, got, tt.want)
		}
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("SNEKAB_TEST_INT", "12")
	t.Setenv("SNEKAB_TEST_BAD_INT", "twelve")
	t.Setenv("SNEKAB_TEST_DUR", "3s")
	t.Setenv("SNEKAB_TEST_BOOL", "yes")

	if EnvInt("SNEKAB_TEST_INT", 1) != 12 || EnvInt("SNEKAB_TEST_BAD_INT", 1) != 1 || EnvInt("SNEKAB_TEST_UNSET", 5) != 5 {
		t.Fatalf("EnvInt")
	}
	if EnvDuration("SNEKAB_TEST_DUR", time.Second) != 3*time.Second {
		t.Fatalf("EnvDuration")
	}
	if !EnvBool("SNEKAB_TEST_BOOL", false) || !EnvBool("SNEKAB_TEST_UNSET", true) {
		t.Fatalf("EnvBool")
	}
	if EnvString("SNEKAB_TEST_UNSET", "x") != "x" {
		t.Fatalf("EnvString")
	}
}
