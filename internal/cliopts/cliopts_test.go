package cliopts

import "testing"

func TestParseArgsRequiresScorePath(t *testing.T) {
	if _, err := ParseArgs(nil); err == nil {
		t.Fatal("expected error when no score path is given")
	}
}

func TestParseArgsBasic(t *testing.T) {
	cfg, err := ParseArgs([]string{"--loop", "-1", "--tempo", "1.5", "song.mid"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ScorePath != "song.mid" {
		t.Fatalf("got ScorePath %q, want song.mid", cfg.ScorePath)
	}
	if cfg.LoopCount != -1 {
		t.Fatalf("got LoopCount %d, want -1", cfg.LoopCount)
	}
	if cfg.TempoMult != 1.5 {
		t.Fatalf("got TempoMult %g, want 1.5", cfg.TempoMult)
	}
}

func TestParseArgsScorePathAnywhere(t *testing.T) {
	cfg, err := ParseArgs([]string{"song.mid", "--log-level", "debug"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ScorePath != "song.mid" {
		t.Fatalf("got ScorePath %q, want song.mid", cfg.ScorePath)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("got LogLevel %q, want debug", cfg.LogLevel)
	}
}

func TestParseArgsRejectsInvalidLogLevel(t *testing.T) {
	if _, err := ParseArgs([]string{"--log-level", "loud", "song.mid"}); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestParseArgsRejectsNonPositiveTempo(t *testing.T) {
	if _, err := ParseArgs([]string{"--tempo", "0", "song.mid"}); err == nil {
		t.Fatal("expected error for non-positive tempo")
	}
}

func TestParseArgsHelpDoesNotRequireScorePath(t *testing.T) {
	cfg, err := ParseArgs([]string{"--help"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.ShowHelp {
		t.Fatal("expected ShowHelp to be true")
	}
}
