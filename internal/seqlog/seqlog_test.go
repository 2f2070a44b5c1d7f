package seqlog

import "testing"

func TestInitRejectsUnknownLevel(t *testing.T) {
	if err := Init("loud"); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestInitAcceptsKnownLevels(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		if err := Init(lvl); err != nil {
			t.Fatalf("level %q: unexpected error: %v", lvl, err)
		}
	}
}

func TestOrFallsBackToDefault(t *testing.T) {
	if Or(nil) == nil {
		t.Fatal("Or(nil) should never return nil")
	}
}
