// Command oplplay is the example driver for the sequencer/voice core:
// it loads a score file, builds its row timeline, and runs the
// deadline-scheduled Player against a stub OPL3 synth, logging every
// dispatched event instead of producing audio. It mirrors the teacher
// repo's own cmd-line wiring convention (flag parsing via cliopts,
// structured logging via seqlog) rather than introducing a new one.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/Wohlstand/libADLMIDI-sub000/internal/cliopts"
	"github.com/Wohlstand/libADLMIDI-sub000/internal/fileutil"
	"github.com/Wohlstand/libADLMIDI-sub000/internal/format"
	"github.com/Wohlstand/libADLMIDI-sub000/internal/seqlog"
	"github.com/Wohlstand/libADLMIDI-sub000/internal/sequencer"
	"github.com/Wohlstand/libADLMIDI-sub000/internal/voice"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "oplplay:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := cliopts.ParseArgs(args)
	if err != nil {
		return err
	}
	if cfg.ShowHelp {
		cliopts.PrintHelp()
		return nil
	}

	if err := seqlog.Init(cfg.LogLevel); err != nil {
		return err
	}
	log := seqlog.Default()

	data, err := fileutil.ReadScoreFile(cfg.ScorePath)
	if err != nil {
		return fmt.Errorf("reading score: %w", err)
	}

	song, err := format.Load(data)
	if err != nil {
		return fmt.Errorf("parsing score: %w", err)
	}
	format.BuildTimeline(song)

	log.Info("loaded score",
		"path", cfg.ScorePath,
		"tracks", len(song.Tracks),
		"division", song.Division,
		"length_seconds", song.LengthSeconds,
		"loop_start_seconds", song.LoopStartSeconds,
	)

	model, err := volumeModelFromName(cfg.VolumeModel)
	if err != nil {
		return err
	}

	synth := newStubSynth(log, 18, 2, false, defaultBank())
	if err := synth.Reset(49716); err != nil {
		return err
	}

	alloc := voice.NewAllocator(synth, voice.Options{VolumeModel: model})
	voiceSynth := sequencer.NewVoiceSynth(alloc)

	player := sequencer.NewPlayer(song, voiceSynth, sequencer.Options{
		LoopCount:       cfg.LoopCount,
		TempoMultiplier: cfg.TempoMult,
	})

	if cfg.SeekSeconds > 0 {
		player.Seek(cfg.SeekSeconds, sequencer.DefaultGranularitySeconds)
	}

	playRealtime(player)

	reportMissingInstruments(log, alloc)
	return nil
}

// playRealtime drives the Player in real wall-clock time, matching the
// teacher's own UI-thread polling cadence instead of a fixed-rate PCM
// stream, since oplplay has no audio backend to pace itself against.
// Tempo scaling lives inside Player.Tick (sequencer.Options.TempoMultiplier);
// this loop only ever deals in wall-clock seconds.
func playRealtime(player *sequencer.Player) {
	last := time.Now()
	for !player.Finished() {
		now := time.Now()
		elapsed := now.Sub(last).Seconds()
		last = now

		wait := player.Tick(elapsed)
		if wait <= 0 {
			wait = sequencer.DefaultGranularitySeconds
		}
		time.Sleep(time.Duration(wait * float64(time.Second)))
	}
}

func reportMissingInstruments(log interface {
	Warn(msg string, args ...any)
}, alloc *voice.Allocator) {
	for _, k := range alloc.MissingInstruments() {
		log.Warn("missing instrument substituted with blank patch", "bank", k.Bank, "program", k.Program)
	}
}

func volumeModelFromName(name string) (voice.VolumeModel, error) {
	switch name {
	case "", "generic":
		return voice.VolumeGeneric, nil
	case "dmx":
		return voice.VolumeDMX, nil
	case "dmx_fixed":
		return voice.VolumeDMXFixed, nil
	case "apogee":
		return voice.VolumeApogee, nil
	case "9x":
		return voice.Volume9x, nil
	case "hmi":
		return voice.VolumeHMI, nil
	case "cmf":
		return voice.VolumeCMF, nil
	default:
		return 0, fmt.Errorf("unknown volume model: %s", name)
	}
}
