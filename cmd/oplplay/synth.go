package main

import (
	"log/slog"

	"github.com/Wohlstand/libADLMIDI-sub000/internal/voice"
)

// stubSynth is a minimal voice.Synth that tracks register-level state
// just well enough to exercise the allocator end to end, logging every
// write instead of feeding a real OPL3 chip emulator: the example pack
// this module was built from carries no FM-synthesis chip core, so
// oplplay demonstrates the sequencer/allocator pipeline up to the
// register-write boundary and leaves the final chip (YMF262 or a
// software equivalent) as the integration point a real deployment
// plugs in.
type stubSynth struct {
	log      *slog.Logger
	channels int
	chips    int
	rhythm   bool
	bank     map[voice.BankKey]voice.Instrument
}

func newStubSynth(log *slog.Logger, channels, chips int, rhythm bool, bank map[voice.BankKey]voice.Instrument) *stubSynth {
	return &stubSynth{log: log, channels: channels, chips: chips, rhythm: rhythm, bank: bank}
}

func (s *stubSynth) SetPatch(voiceIndex int, patch voice.OperatorPair) {
	s.log.Debug("set_patch", "voice", voiceIndex, "op1", patch.Op1, "op2", patch.Op2, "four_op", patch.FourOp)
}

func (s *stubSynth) NoteOn(voiceIndex int, pairSlaveVoice int, freqHz float64) {
	s.log.Debug("note_on", "voice", voiceIndex, "slave", pairSlaveVoice, "freq_hz", freqHz)
}

func (s *stubSynth) NoteOff(voiceIndex int) {
	s.log.Debug("note_off", "voice", voiceIndex)
}

func (s *stubSynth) TouchNote(voiceIndex int, velocity, channelVolume, expression, brightness uint8) {
}

func (s *stubSynth) SetPan(voiceIndex int, midiPan uint8) {}

func (s *stubSynth) WriteRegister(chip int, reg uint16, val uint8) {
	s.log.Debug("write_register", "chip", chip, "reg", reg, "val", val)
}

func (s *stubSynth) Reset(sampleRate int) error {
	s.log.Info("synth reset", "sample_rate", sampleRate)
	return nil
}

func (s *stubSynth) ChannelCategory(voiceIndex int) voice.Category {
	return voice.CategoryRegular
}

func (s *stubSynth) NumChannels() int { return s.channels }
func (s *stubSynth) NumChips() int    { return s.chips }
func (s *stubSynth) RhythmMode() bool { return s.rhythm }

func (s *stubSynth) Lookup(bankID uint32, program uint8) (voice.Instrument, bool) {
	ins, ok := s.bank[voice.BankKey{Bank: bankID, Program: program}]
	return ins, ok
}
