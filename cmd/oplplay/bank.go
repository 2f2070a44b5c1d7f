package main

import "github.com/Wohlstand/libADLMIDI-sub000/internal/voice"

// defaultBank synthesizes a placeholder General MIDI bank: one 2-op
// instrument per program number, addressed by its own program number as
// a stand-in operator pair. A real deployment loads this from an
// embedded GENMIDI/OP2 patch bank instead; oplplay ships none, so every
// program resolves to *something* rather than tripping the allocator's
// missing-instrument path on every note.
func defaultBank() map[voice.BankKey]voice.Instrument {
	bank := make(map[voice.BankKey]voice.Instrument, 128+47)

	for program := 0; program < 128; program++ {
		bank[voice.BankKey{Bank: 0, Program: uint8(program)}] = voice.Instrument{
			Patch: voice.OperatorPair{Op1: uint16(program)},
		}
	}

	// General MIDI percussion keys 35-81 map onto bank 0, program equal
	// to the MIDI key itself, tagged into the percussion half of the map
	// (§6 "bank-lookup map bank_id -> {ins[256]}").
	for key := 35; key <= 81; key++ {
		bank[voice.BankKey{Bank: voice.PercussionBankTag, Program: uint8(key)}] = voice.Instrument{
			Patch: voice.OperatorPair{Op1: uint16(key), Rhythm: voice.RhythmNone},
			Tone:  uint8(key),
		}
	}

	return bank
}
