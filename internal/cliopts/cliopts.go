// Package cliopts parses command-line arguments for the example player
// binary into a Config. The sequencer/voice/format core never imports
// this package; it exists only to drive cmd/oplplay, mirroring the
// flag+env-var-fallback shape of the teacher's own argument parser.
package cliopts

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the parsed command-line configuration for the example
// player.
type Config struct {
	ScorePath   string  // score file to play
	LogLevel    string  // debug, info, warn, error
	VolumeModel string  // generic, dmx, dmx_fixed, apogee, 9x, hmi, cmf
	LoopCount   int     // 0 = play once, -1 = loop forever, n = loop n times
	TempoMult   float64 // tempo multiplier applied by the scheduler
	SeekSeconds float64 // seek to this position before playing
	ShowHelp    bool
}

// ParseArgs parses args (excluding the program name) into a Config.
func ParseArgs(args []string) (*Config, error) {
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("oplplay", flag.ContinueOnError)

	config := &Config{}
	fs.StringVar(&config.LogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	fs.StringVar(&config.LogLevel, "l", "info", "log level (short form)")
	fs.StringVar(&config.VolumeModel, "volume-model", "generic", "pitch/volume tuning model")
	fs.IntVar(&config.LoopCount, "loop", 0, "loop count (0=once, -1=forever)")
	fs.Float64Var(&config.TempoMult, "tempo", 1.0, "tempo multiplier")
	fs.Float64Var(&config.SeekSeconds, "seek", 0, "seek position in seconds before playing")
	fs.BoolVar(&config.ShowHelp, "help", false, "show this help")
	fs.BoolVar(&config.ShowHelp, "h", false, "show this help (short form)")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}

	if config.LogLevel == "info" {
		if logLevelEnv := os.Getenv("OPLPLAY_LOG_LEVEL"); logLevelEnv != "" {
			config.LogLevel = strings.ToLower(logLevelEnv)
		}
	}

	if config.TempoMult == 1.0 {
		if tempoEnv := os.Getenv("OPLPLAY_TEMPO"); tempoEnv != "" {
			if t, err := strconv.ParseFloat(tempoEnv, 64); err == nil && t > 0 {
				config.TempoMult = t
			}
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[config.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}
	if config.TempoMult <= 0 {
		return nil, fmt.Errorf("tempo multiplier must be positive, got %g", config.TempoMult)
	}
	if config.SeekSeconds < 0 {
		return nil, fmt.Errorf("seek position must be non-negative, got %g", config.SeekSeconds)
	}

	if fs.NArg() > 0 {
		config.ScorePath = fs.Arg(0)
	}
	if config.ScorePath == "" && !config.ShowHelp {
		return nil, fmt.Errorf("score file path is required")
	}

	return config, nil
}

// reorderArgs moves flags ahead of positional arguments so the single
// trailing score-file path can be given anywhere on the command line.
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if len(arg) > 0 && arg[0] == '-' {
			flags = append(flags, arg)

			if i+1 < len(args) && len(args[i+1]) > 0 && args[i+1][0] != '-' {
				if arg != "-h" && arg != "--help" {
					i++
					flags = append(flags, args[i])
				}
			}
		} else {
			positional = append(positional, arg)
		}
	}

	return append(flags, positional...)
}

// PrintHelp prints usage information for the example player.
func PrintHelp() {
	fmt.Fprint(os.Stdout, `oplplay - example OPL3 MIDI sequencer driver

Usage:
  oplplay [options] <score-file>

Options:
  -l, --log-level <level>     log level: debug, info, warn, error (default: info)
      --volume-model <model>  pitch/volume tuning model: generic, dmx, dmx_fixed, apogee, 9x, hmi, cmf
      --loop <n>               loop count: 0=once, -1=forever, n=loop n times
      --tempo <mult>           tempo multiplier (default: 1.0)
      --seek <seconds>         seek to this position before playing
  -h, --help                  show this help

Environment Variables:
  OPLPLAY_LOG_LEVEL=<level>   log level
  OPLPLAY_TEMPO=<mult>        tempo multiplier

Examples:
  oplplay song.mid
  oplplay --loop -1 --tempo 1.5 song.xmi
  oplplay --volume-model dmx DOOM1.MUS
`)
}
