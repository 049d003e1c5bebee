package main

import (
	"flag"
	"io"
	"testing"

	"clv-segments/pkg/config"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("clv-segments", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestParseFlags_UnsetFlagsKeepConfig(t *testing.T) {
	path, override, err := parseFlags(newFlagSet(), []string{"-config", "run.yaml"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "run.yaml" {
		t.Fatalf("got config path %q, want run.yaml", path)
	}
	cfg := config.Default()
	override(&cfg)
	if cfg.Seed != 42 || cfg.K != 4 || !cfg.CLVEnabled {
		t.Fatalf("unset flags changed the config: %+v", cfg)
	}
}

func TestParseFlags_ExplicitZeroSeed(t *testing.T) {
	_, override, err := parseFlags(newFlagSet(), []string{"-seed", "0", "-k", "3", "-no-clv"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := config.Default()
	override(&cfg)
	if cfg.Seed != 0 {
		t.Fatalf("got seed %d, want the explicit 0", cfg.Seed)
	}
	if cfg.K != 3 || cfg.CLVEnabled {
		t.Fatalf("flags not applied: k=%d clv=%v", cfg.K, cfg.CLVEnabled)
	}
}

func TestParseFlags_BadValue(t *testing.T) {
	if _, _, err := parseFlags(newFlagSet(), []string{"-k", "four"}); err == nil {
		t.Fatal("expected error for a non-numeric k, got nil")
	}
}
