package voice

// Instrument describes one OPL3 patch as the external bank resolves it:
// the operator pair(s) it occupies, its rhythm-mode role (if any), and
// the tuning/lifetime knobs that feed §4.E's pitch computation and note
// lifecycle. This mirrors the "ains" (adlinsdata) record the original
// looks up per (bank, program) pair, trimmed to the fields the allocator
// itself consumes — register-level patch data lives behind Synth.SetPatch.
type Instrument struct {
	Patch OperatorPair

	// Blank marks a placeholder instrument substituted for a missing
	// bank/program lookup (§7 CaughtMissingInstrument): the note is
	// tracked so its NoteOff is correctly swallowed, but never sounds.
	Blank bool

	// Tone, when nonzero, overrides the MIDI note number used for pitch
	// (percussion patches that fix their own key regardless of the
	// NoteOn key), following the original's `ains->tone` field.
	Tone uint8

	// Finetune is added to bend in cents-as-semitones units.
	Finetune float64

	// VelocityOffset is added to the incoming NoteOn velocity before
	// clamping to [1,127], per §4.E "apply instrument velocity offset".
	VelocityOffset int

	// FixedSustainMaxTime marks an instrument whose sustain-phase
	// on-budget (KonBudgetUs) never decays — a note held at an
	// artificially long or "infinite" envelope stage, so ageing must not
	// erode its arpeggio-candidacy.
	FixedSustainMaxTime bool

	// SoundOnMs / SoundOffMs seed a new note's kon/koff release budgets
	// in milliseconds (§4.E ageing).
	SoundOnMs  int64
	SoundOffMs int64
}

// BankKey identifies one (bank MSB*256+LSB, program) pair for the
// per-(bank,program) missing-instrument dedup set (§7).
type BankKey struct {
	Bank    uint32
	Program uint8
}

// bankIDOf folds a MIDI bank-select MSB/LSB pair into the single integer
// key Synth.Lookup expects, following the original's `bank_msb*256 +
// bank_lsb` packing.
func bankIDOf(msb, lsb uint8) uint32 {
	return uint32(msb)*256 + uint32(lsb)
}

// PercussionBankTag is ORed into a bank ID to select the percussion half
// of a bank map, mirroring the original's `Synth::PercussionTag`.
const PercussionBankTag uint32 = 1 << 20
