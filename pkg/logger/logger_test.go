package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		mode    string
		verbose bool
		debug   bool
	}{
		{"prod", false, false},
		{"dev", false, false},
		{"production", true, true},
	}
	for _, tc := range tests {
		l, err := New(tc.mode, tc.verbose)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.mode, err)
		}
		if got := l.SugaredLogger.Desugar().Core().Enabled(zap.DebugLevel); got != tc.debug {
			t.Fatalf("%s verbose=%v: debug enabled %v, want %v", tc.mode, tc.verbose, got, tc.debug)
		}
	}
}

func TestWith_KeepsLogger(t *testing.T) {
	l := Nop().With("run_id", "abc")
	l.Info("still usable", "k", 1)
	if l.SugaredLogger == nil {
		t.Fatal("With returned an empty logger")
	}
}
