package voice

// ChannelState holds the per-MIDI-channel controller state the
// allocator consults on every NoteOn/NoteOff/ControllerChange, mirroring
// the original's MIDIplay::MIDIchannel record (§3 "Voice-allocator
// entities", "MIDI channel state").
type ChannelState struct {
	BankMSB uint8
	BankLSB uint8
	Patch   uint8

	Volume     uint8
	Expression uint8
	Pan        uint8
	Brightness uint8

	ChannelAftertouch uint8
	NoteAftertouch    [128]uint8

	Sustain   bool
	Sostenuto bool
	SoftPedal bool

	PitchBend          int16 // signed 14-bit, zero centered
	PitchBendSemitones float64

	VibratoDepth float64
	VibratoSpeed float64

	// VibratoDelayUs is the per-channel threshold (microseconds) a note
	// must age past, via its own LocationData.vibdelay_us, before vibrato
	// is applied to it (§4.E "activates only after the per-user vibdelay_us
	// has elapsed"). Zero (the power-on default) means vibrato applies as
	// soon as a note sounds.
	VibratoDelayUs int64

	PortamentoEnable bool
	PortamentoTime   uint8
	PortamentoSource uint8 // last note played, glide origin

	RPNMSB, RPNLSB   uint8
	NRPNMSB, NRPNLSB uint8
	RPNActive        bool

	// ActiveNotes maps a sounding MIDI key to the physical voice indices
	// it currently occupies (more than one when arpeggio shares a voice
	// among several keys, or a patch spans two voices for pseudo-4op).
	ActiveNotes map[uint8][]int
}

// NewChannelState returns a channel in its power-on-reset defaults:
// full volume/expression, centered pan, no pitch bend, default 2-semitone
// pitch bend range.
func NewChannelState() *ChannelState {
	return &ChannelState{
		Volume:             127,
		Expression:         127,
		Pan:                64,
		Brightness:         127,
		PitchBendSemitones: 2.0,
		ActiveNotes:        make(map[uint8][]int),
	}
}

// ResetAllControllers restores the channel's continuous controllers to
// their defaults without touching bank/patch selection, per the MIDI
// CC 121 ("Reset All Controllers") semantics §4.D references.
func (c *ChannelState) ResetAllControllers() {
	c.Expression = 127
	c.ChannelAftertouch = 0
	for i := range c.NoteAftertouch {
		c.NoteAftertouch[i] = 0
	}
	c.Sustain = false
	c.Sostenuto = false
	c.PitchBend = 0
	c.RPNMSB, c.RPNLSB = 0x7F, 0x7F
	c.NRPNMSB, c.NRPNLSB = 0x7F, 0x7F
	c.RPNActive = false
}

// BankID packs BankMSB/BankLSB into the Synth.Lookup key, optionally
// tagged for the percussion half of the bank map.
func (c *ChannelState) BankID(percussion bool) uint32 {
	id := bankIDOf(c.BankMSB, c.BankLSB)
	if percussion {
		id |= PercussionBankTag
	}
	return id
}

// pitchBendFraction converts the channel's 14-bit signed pitch bend
// value into semitones, scaled by the channel's configured bend range.
func (c *ChannelState) pitchBendFraction() float64 {
	return (float64(c.PitchBend) / 8192.0) * c.PitchBendSemitones
}
