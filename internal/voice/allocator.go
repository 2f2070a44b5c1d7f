package voice

import "math"

// Goodness scoring constants, taken literally from §4.E: these pick a
// voice to steal when every physical voice is already busy. A more
// negative number is a worse (less desirable) steal target, so the
// allocator always picks the candidate with the highest score.
const (
	goodnessReleasingBonus    = 40000000
	goodnessStealSoundingUser = -4000000
	goodnessStealSolo         = -500000
	goodnessSameInstrument    = 300
	goodnessArpeggioCandidate = 10
	goodnessPercussion        = 50
	goodnessNeighborArpeggio  = 4
)

// Thresholds the per-user goodness loop and neighbor-station count read
// straight off original_source/src/adlmidi_midiplay.cpp's GetGoodness:
// a user younger than arpeggioYoungVibdelayUs, or with more than
// arpeggioLongevityKonUs of on-budget left, is a good arpeggio partner;
// a neighbor voice's user older than neighborVibdelayCutoffUs no longer
// counts as an evacuation station.
const (
	arpeggioYoungVibdelayUs  = 70000
	arpeggioLongevityKonUs   = 20000000
	neighborVibdelayCutoffUs = 200000
)

// Allocator is Component E: the channel-stealing FM voice allocator
// (package doc). It owns all sixteen MIDI channels' controller state
// and the external synth's physical voice pool, and is the sequencer's
// only path to note-level OPL3 output.
type Allocator struct {
	synth Synth
	opts  Options

	channels [16]*ChannelState
	voices   []physVoice

	// missingInstruments dedups CaughtMissingInstrument reporting (§7):
	// once a (bank, program) pair has been logged as unresolved, later
	// NoteOns against it substitute silently.
	missingInstruments map[BankKey]bool

	percussionChannel uint8 // MIDI channel treated as rhythm (9, zero-based)
}

// NewAllocator builds an allocator bound to synth, sizing its voice
// pool from synth.NumChannels() and pairing 4-op masters with the
// slave voice the synth reports via ChannelCategory.
func NewAllocator(synth Synth, opts Options) *Allocator {
	opts = opts.WithDefaults()
	a := &Allocator{
		synth:              synth,
		opts:               opts,
		missingInstruments: make(map[BankKey]bool),
		percussionChannel:  9,
	}
	for i := range a.channels {
		a.channels[i] = NewChannelState()
	}

	n := synth.NumChannels()
	a.voices = make([]physVoice, n)
	for i := range a.voices {
		a.voices[i] = physVoice{index: i, slaveVoice: -1}
	}
	// 4-op masters pair with the voice three slots up (§4.E "occupy the
	// paired slot at index c+3"; confirmed by the original's literal
	// `adlchannel[0] + 3`), never crossing into the next chip's voice
	// range, which would pair two unrelated chips' channels together.
	voicesPerChip := n
	if chips := synth.NumChips(); chips > 0 {
		voicesPerChip = n / chips
	}
	for i := range a.voices {
		if synth.ChannelCategory(i) != Category4OpMaster {
			continue
		}
		slave := i + 3
		if slave >= n {
			continue
		}
		if voicesPerChip > 0 && slave/voicesPerChip != i/voicesPerChip {
			continue
		}
		a.voices[i].slaveVoice = slave
	}
	return a
}

// Channel returns the mutable controller state for a zero-based MIDI
// channel, for the sequencer to apply non-note realtime events.
func (a *Allocator) Channel(ch uint8) *ChannelState {
	return a.channels[ch&0x0F]
}

func (a *Allocator) isPercussion(ch uint8) bool {
	return ch == a.percussionChannel
}

// lookupInstrument resolves (channel, program) to an Instrument,
// substituting a blank placeholder and recording the miss in
// missingInstruments at most once per (bank, program) pair (§7).
func (a *Allocator) lookupInstrument(ch uint8) (Instrument, uint32) {
	c := a.channels[ch&0x0F]
	percussion := a.isPercussion(ch)
	bankID := c.BankID(percussion)

	// Percussion programs select the drum; the struck key selects its tone.
	program := c.Patch

	ins, ok := a.synth.Lookup(bankID, program)
	if ok && !ins.Blank {
		return ins, bankID
	}

	key := BankKey{Bank: bankID, Program: program}
	a.missingInstruments[key] = true
	return Instrument{Blank: true}, bankID
}

// NoteOn starts a note on channel at the given MIDI key and velocity,
// allocating a free physical voice or stealing the least valuable busy
// one (§4.E NoteOn).
func (a *Allocator) NoteOn(ch, note, velocity uint8) {
	if velocity == 0 {
		a.NoteOff(ch, note)
		return
	}
	c := a.channels[ch&0x0F]
	ins, bankID := a.lookupInstrument(ch)

	vel := int(velocity) + ins.VelocityOffset
	if vel < 1 {
		vel = 1
	} else if vel > 127 {
		vel = 127
	}

	vIdx := a.allocateVoice(ch, note, ins, bankID)
	v := &a.voices[vIdx]
	v.inUse = true
	v.channel = ch
	v.note = note
	v.velocity = uint8(vel)
	v.instrument = ins
	v.bankID = bankID
	v.program = c.Patch
	v.state = noteOn
	v.users = append(v.users[:0], noteUser{
		channel:      ch,
		note:         note,
		velocity:     uint8(vel),
		bankID:       bankID,
		program:      c.Patch,
		instrument:   ins,
		fixedSustain: ins.FixedSustainMaxTime,
		konBudgetUs:  ins.SoundOnMs * 1000,
	})
	v.arpeggioPhase = 0
	v.soundingSeconds = 0
	v.currentTone = float64(a.toneFor(note, ins))
	v.targetTone = v.currentTone
	v.gliding = false
	v.konBudgetUs = ins.SoundOnMs * 1000
	v.koffBudgetUs = ins.SoundOffMs * 1000

	c.ActiveNotes[note] = append(c.ActiveNotes[note], vIdx)
	c.PortamentoSource = note

	if !ins.Blank {
		a.synth.SetPatch(vIdx, ins.Patch)
		if v.slaveIndex() >= 0 {
			a.synth.SetPatch(v.slaveIndex(), ins.Patch)
		}
		a.applyPan(vIdx, c)
		a.applyTouch(vIdx, c, v)
		a.writeFrequency(v, c)
		a.synth.NoteOn(vIdx, v.slaveIndex(), a.frequencyFor(v, c))
	}
}

func (v *physVoice) slaveIndex() int { return v.slaveVoice }

// toneFor resolves the MIDI note used for pitch: percussion/fixed-tone
// instruments override it with Instrument.Tone.
func (a *Allocator) toneFor(note uint8, ins Instrument) uint8 {
	if ins.Tone != 0 {
		return ins.Tone
	}
	return note
}

// allocateVoice finds a free physical voice, or kills/evacuates the
// worst-scoring busy one (§4.E "allocation / channel stealing").
func (a *Allocator) allocateVoice(ch, note uint8, ins Instrument, bankID uint32) int {
	fits := a.categoryFits(ins)

	for i := range a.voices {
		if fits(i) && !a.voices[i].inUse {
			return i
		}
	}

	best := -1
	bestScore := math.Inf(-1)
	for i := range a.voices {
		if !fits(i) {
			continue
		}
		score := a.goodness(&a.voices[i], ch, ins, bankID)
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	if best < 0 {
		// No voice of the matching category exists at all (e.g. a synth
		// with no 4-op channels configured): fall back to the ordinary
		// free/stealable search rather than refusing the note outright.
		for i := range a.voices {
			if !a.voices[i].inUse {
				return i
			}
		}
		bestScore = math.Inf(-1)
		for i := range a.voices {
			score := a.goodness(&a.voices[i], ch, ins, bankID)
			if score > bestScore {
				bestScore = score
				best = i
			}
		}
		if best < 0 {
			best = 0
		}
	}
	a.forceOff(best)
	return best
}

// categoryFits returns a predicate selecting which physical voices are
// eligible to carry ins: 4-op instruments need a 4-op master (the paired
// slave voice is never allocated on its own, per §4.E "occupy the paired
// slot"), and plain 2-op instruments stay off master/slave voices so
// they never collide with a 4-op pairing in progress.
func (a *Allocator) categoryFits(ins Instrument) func(int) bool {
	if ins.Patch.FourOp {
		return func(i int) bool {
			return a.synth.ChannelCategory(i) == Category4OpMaster
		}
	}
	return func(i int) bool {
		return a.synth.ChannelCategory(i) == CategoryRegular
	}
}

// goodness scores how desirable it is to steal voice for a new note on
// ch with instrument ins at bankID, following
// original_source/src/adlmidi_midiplay.cpp's GetGoodness literally: an
// empty/releasing voice scores by its remaining release budget alone;
// a busy voice sums one term PER current user (§4.E "for each user j"),
// rather than one flat term for the whole voice, so a voice shared by
// several arpeggiated users is scored by all of their states at once.
func (a *Allocator) goodness(v *physVoice, ch uint8, ins Instrument, bankID uint32) float64 {
	if !v.inUse {
		return goodnessReleasingBonus
	}
	if v.releasing() {
		return goodnessReleasingBonus + float64(v.koffBudgetUs)*1e-3
	}

	c := a.channels[ch&0x0F]
	var score float64
	for i := range v.users {
		u := &v.users[i]

		// Stealing a note still inside its own on-budget is expensive;
		// pedal-held users are cheaper to steal than freely sounding ones.
		if u.sustainBits == 0 {
			score += goodnessStealSoundingUser - float64(u.konBudgetUs)*1e-3
		} else {
			score += goodnessStealSolo - float64(u.konBudgetUs)*0.5e-3
		}

		sameInstrument := !u.instrument.Blank && !ins.Blank && u.bankID == bankID && u.program == c.Patch
		if sameInstrument {
			score += goodnessSameInstrument
			// Arpeggio candidate: young enough that vibrato hasn't kicked
			// in yet, or still has a long on-budget ahead of it.
			if u.vibdelayUs < arpeggioYoungVibdelayUs || u.konBudgetUs > arpeggioLongevityKonUs {
				score += goodnessArpeggioCandidate
			}
		}

		if a.isPercussion(u.channel) {
			score += goodnessPercussion
		}

		score += float64(a.neighborEvacuationStations(v, u)) * goodnessNeighborArpeggio
	}

	return score
}

// neighborEvacuationStations counts, across every OTHER voice of v's own
// category, how many young non-pedal-held users play the same
// instrument as u — each is a voice u could be relocated to as an
// arpeggio partner instead of being killed outright, per the original's
// `n_evacuation_stations` loop.
func (a *Allocator) neighborEvacuationStations(v *physVoice, u *noteUser) int {
	cat := a.synth.ChannelCategory(v.index)
	n := 0
	for c2 := range a.voices {
		if c2 == v.index || a.synth.ChannelCategory(c2) != cat {
			continue
		}
		for j := range a.voices[c2].users {
			m := &a.voices[c2].users[j]
			if m.sustainBits != 0 || m.vibdelayUs >= neighborVibdelayCutoffUs {
				continue
			}
			if m.bankID != u.bankID || m.program != u.program {
				continue
			}
			n++
		}
	}
	return n
}

// forceOff silences a physical voice immediately, without running it
// through release/sustain bookkeeping, in order to repurpose it.
func (a *Allocator) forceOff(vIdx int) {
	v := &a.voices[vIdx]
	if v.inUse {
		a.synth.NoteOff(vIdx)
		if v.slaveIndex() >= 0 {
			a.synth.NoteOff(v.slaveIndex())
		}
		c := a.channels[v.channel&0x0F]
		a.removeActiveNote(c, v.note, vIdx)
	}
	v.reset()
}

func (a *Allocator) removeActiveNote(c *ChannelState, note uint8, vIdx int) {
	list := c.ActiveNotes[note]
	for i, idx := range list {
		if idx == vIdx {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(c.ActiveNotes, note)
	} else {
		c.ActiveNotes[note] = list
	}
}

// NoteOff releases note on channel: sustain holds the voice sounding
// (tagged onto the user reactively, here, at NoteOff time) and sostenuto
// holds it if the note was already sounding when sostenuto was pressed
// (tagged proactively by ControllerChange's CC66 handler, not here); both
// leave the voice releasing-eligible for stealing. Percussion voices
// additionally honor the configured minimum sounding time (§4.E NoteOff).
func (a *Allocator) NoteOff(ch, note uint8) {
	c := a.channels[ch&0x0F]
	indices := c.ActiveNotes[note]
	for _, vIdx := range indices {
		v := &a.voices[vIdx]
		if a.isPercussion(ch) && v.soundingSeconds < a.opts.DrumMinSoundingSeconds {
			v.state = noteReleasing
			continue
		}
		if c.Sustain {
			a.tagSustainBits(v, note, sustainBitPedal)
		}
		if c.Sustain || a.userHeld(v, note, sustainBitSostenuto) {
			v.state = noteReleasing
			continue
		}
		a.releaseVoice(vIdx)
	}
}

// tagSustainBits sets bit on every user of v matching note.
func (a *Allocator) tagSustainBits(v *physVoice, note uint8, bit uint8) {
	for i := range v.users {
		if v.users[i].note == note {
			v.users[i].sustainBits |= bit
		}
	}
}

// userHeld reports whether any user of v matching note already carries
// bit, without modifying anything.
func (a *Allocator) userHeld(v *physVoice, note uint8, bit uint8) bool {
	for i := range v.users {
		if v.users[i].note == note && v.users[i].sustainBits&bit != 0 {
			return true
		}
	}
	return false
}

func (a *Allocator) releaseVoice(vIdx int) {
	v := &a.voices[vIdx]
	if !v.inUse {
		return
	}
	a.synth.NoteOff(vIdx)
	if v.slaveIndex() >= 0 {
		a.synth.NoteOff(v.slaveIndex())
	}
	c := a.channels[v.channel&0x0F]
	a.removeActiveNote(c, v.note, vIdx)
	v.reset()
}

// SustainOff releases every voice that was held only by the sustain
// pedal on ch, per the MIDI CC64 off semantics.
func (a *Allocator) SustainOff(ch uint8) {
	c := a.channels[ch&0x0F]
	c.Sustain = false
	a.releaseHeld(ch, sustainBitPedal)
}

// SostenutoOff releases every voice held only by sostenuto on ch.
func (a *Allocator) SostenutoOff(ch uint8) {
	c := a.channels[ch&0x0F]
	c.Sostenuto = false
	a.releaseHeld(ch, sustainBitSostenuto)
}

// captureSostenuto marks every currently sounding user on ch with the
// sostenuto bit, per §4.E "Sostenuto on: mark every currently sounding
// user of that MIDI channel with the sostenuto flag" — captured at the
// moment the pedal goes down, unlike the sustain pedal's reactive tag at
// NoteOff.
func (a *Allocator) captureSostenuto(ch uint8) {
	for i := range a.voices {
		v := &a.voices[i]
		if !v.inUse || v.channel != ch || v.state == noteReleasing {
			continue
		}
		for j := range v.users {
			v.users[j].sustainBits |= sustainBitSostenuto
		}
	}
}

// releaseHeld clears bit from every releasing voice's users on ch, and
// releases any voice whose users are left with no sustain bits at all.
func (a *Allocator) releaseHeld(ch uint8, bit uint8) {
	for i := range a.voices {
		v := &a.voices[i]
		if !v.inUse || v.channel != ch || v.state != noteReleasing {
			continue
		}
		stillHeld := false
		for j := range v.users {
			v.users[j].sustainBits &^= bit
			if v.users[j].sustainBits != 0 {
				stillHeld = true
			}
		}
		if !stillHeld {
			a.releaseVoice(i)
		}
	}
}

// AllNotesOff releases every sounding voice on ch (MIDI CC123).
func (a *Allocator) AllNotesOff(ch uint8) {
	for i := range a.voices {
		if a.voices[i].inUse && a.voices[i].channel == ch {
			a.releaseVoice(i)
		}
	}
}

// AllSoundOff immediately silences every voice on every channel (used
// on Reset and panic events).
func (a *Allocator) AllSoundOff() {
	for i := range a.voices {
		if a.voices[i].inUse {
			a.forceOff(i)
		}
	}
}

// ResetAllControllers resets ch's continuous controllers without
// affecting sounding notes, per MIDI CC121.
func (a *Allocator) ResetAllControllers(ch uint8) {
	a.channels[ch&0x0F].ResetAllControllers()
}

// PatchChange applies a MIDI program-change to ch.
func (a *Allocator) PatchChange(ch, program uint8) {
	a.channels[ch&0x0F].Patch = program
}

// PitchBend applies a 14-bit signed pitch-bend value to ch and retunes
// every voice it is currently sounding (§4.E pitch computation).
func (a *Allocator) PitchBend(ch uint8, value int16) {
	c := a.channels[ch&0x0F]
	c.PitchBend = value
	for i := range a.voices {
		v := &a.voices[i]
		if v.inUse && v.channel == ch {
			a.writeFrequency(v, c)
			if !v.instrument.Blank {
				a.synth.NoteOn(i, v.slaveIndex(), a.frequencyFor(v, c))
			}
		}
	}
}

// ControllerChange dispatches the continuous controllers the allocator
// cares about directly (volume, expression, pan, sustain, sostenuto,
// soft pedal, brightness, portamento, RPN/NRPN pitch-bend-range); other
// controller numbers are the sequencer's concern.
func (a *Allocator) ControllerChange(ch, cc, value uint8) {
	c := a.channels[ch&0x0F]
	switch cc {
	case 1: // modulation wheel feeds vibrato depth
		c.VibratoDepth = float64(value) / 127.0
	case 7:
		c.Volume = value
		a.retouch(ch)
	case 10:
		c.Pan = value
		a.repan(ch)
	case 11:
		c.Expression = value
		a.retouch(ch)
	case 64:
		wasOn := c.Sustain
		c.Sustain = value >= 64
		if wasOn && !c.Sustain {
			a.SustainOff(ch)
		}
	case 65:
		c.PortamentoEnable = value >= 64
	case 66:
		wasOn := c.Sostenuto
		c.Sostenuto = value >= 64
		if !wasOn && c.Sostenuto {
			a.captureSostenuto(ch)
		} else if wasOn && !c.Sostenuto {
			a.SostenutoOff(ch)
		}
	case 67:
		c.SoftPedal = value >= 64
	case 74:
		c.Brightness = a.clampBrightness(value)
		a.retouch(ch)
	case 84:
		c.PortamentoSource = value
	case 98, 99:
		c.NRPNLSB, c.NRPNMSB = value, value
		c.RPNActive = false
	case 100:
		c.RPNLSB = value
		c.RPNActive = true
	case 101:
		c.RPNMSB = value
		c.RPNActive = true
	case 6:
		if c.RPNActive && c.RPNMSB == 0 && c.RPNLSB == 0 {
			c.PitchBendSemitones = float64(value)
		}
	case 121:
		a.ResetAllControllers(ch)
	case 123:
		a.AllNotesOff(ch)
	case 0:
		c.BankMSB = value
	case 32:
		c.BankLSB = value
	}
}

// clampBrightness applies the CC74 saturation §4.E describes unless
// FullRangeBrightnessCC74 opts out of it: values below 64 double, at or
// above 64 saturate to full.
func (a *Allocator) clampBrightness(value uint8) uint8 {
	if a.opts.FullRangeBrightnessCC74 {
		return value
	}
	if value >= 64 {
		return 127
	}
	v := int(value) * 2
	if v > 127 {
		v = 127
	}
	return uint8(v)
}

func (a *Allocator) retouch(ch uint8) {
	c := a.channels[ch&0x0F]
	for i := range a.voices {
		v := &a.voices[i]
		if v.inUse && v.channel == ch {
			a.applyTouch(i, c, v)
		}
	}
}

func (a *Allocator) repan(ch uint8) {
	c := a.channels[ch&0x0F]
	for i := range a.voices {
		v := &a.voices[i]
		if v.inUse && v.channel == ch {
			a.applyPan(i, c)
		}
	}
}

func (a *Allocator) applyTouch(vIdx int, c *ChannelState, v *physVoice) {
	a.synth.TouchNote(vIdx, v.velocity, c.Volume, c.Expression, c.Brightness)
}

func (a *Allocator) applyPan(vIdx int, c *ChannelState) {
	a.synth.SetPan(vIdx, c.Pan)
}

// ChannelAftertouch applies channel-wide pressure, retouching every
// sounding voice on ch.
func (a *Allocator) ChannelAftertouch(ch, pressure uint8) {
	c := a.channels[ch&0x0F]
	c.ChannelAftertouch = pressure
	a.retouch(ch)
}

// NoteAftertouch applies per-key pressure.
func (a *Allocator) NoteAftertouch(ch, note, pressure uint8) {
	c := a.channels[ch&0x0F]
	c.NoteAftertouch[note&0x7F] = pressure
	a.retouch(ch)
}

// writeFrequency starts a portamento glide when the channel has
// portamento enabled and the voice's current tone differs from its
// target. It computes no frequency and does not tell the synth to
// retrigger (use frequencyFor+NoteOn for that).
func (a *Allocator) writeFrequency(v *physVoice, c *ChannelState) {
	if c.PortamentoEnable && !v.gliding && v.currentTone != v.targetTone {
		v.gliding = true
	}
}

// frequencyFor computes the Hz a voice should sound at right now,
// combining its glide position, the channel's pitch bend and
// finetune, and the active volume model's tuning formula (§4.E "pitch
// computation").
func (a *Allocator) frequencyFor(v *physVoice, c *ChannelState) float64 {
	tone := v.currentTone
	bend := c.pitchBendFraction() + v.instrument.Finetune + v.instrument.Patch.Finetune
	bend += v.vibratoOffset(c)
	return frequencyFor(a.opts.VolumeModel, tone, bend)
}

// vibratoOffset returns the current sinusoidal pitch deviation in
// semitones for a voice, per §4.E "vibrato (per-channel sinusoid) ...
// activates only after the per-user vibdelay_us has elapsed": a freshly
// attacked user doesn't wobble until its own vibdelayUs ages past the
// channel's configured VibratoDelayUs.
func (v *physVoice) vibratoOffset(c *ChannelState) float64 {
	if c.VibratoDepth <= 0 {
		return 0
	}
	if v.activeVibdelayUs() < c.VibratoDelayUs {
		return 0
	}
	return c.VibratoDepth * math.Sin(v.vibratoPhase)
}

// activeVibdelayUs returns the age-since-attack of the user currently
// sounding on v (matching v.note), or 0 if v has no user bookkeeping yet
// (e.g. a voice not reached through NoteOn's normal path).
func (v *physVoice) activeVibdelayUs() int64 {
	for i := range v.users {
		if v.users[i].note == v.note {
			return v.users[i].vibdelayUs
		}
	}
	return 0
}

// Tick advances the allocator's time-dependent per-voice state —
// ageing, vibrato, portamento glide, and arpeggio rotation — by dt
// seconds, and pushes the resulting frequency to any voice whose glide or
// arpeggio changed (§4.E "per-frame update").
func (a *Allocator) Tick(dt float64) {
	dtUs := int64(dt * 1e6)
	for i := range a.voices {
		v := &a.voices[i]
		if !v.inUse {
			continue
		}
		v.soundingSeconds += dt

		if v.state == noteOn && !v.instrument.FixedSustainMaxTime {
			v.konBudgetUs -= dtUs
			if v.konBudgetUs < 0 {
				v.konBudgetUs = 0
			}
		}
		if v.state == noteReleasing {
			v.koffBudgetUs -= dtUs
			if v.koffBudgetUs <= 0 {
				a.releaseVoice(i)
				continue
			}
		}

		for ui := range v.users {
			u := &v.users[ui]
			if !u.fixedSustain {
				u.konBudgetUs -= dtUs
				if u.konBudgetUs < 0 {
					u.konBudgetUs = 0
				}
			}
			u.vibdelayUs += dtUs
		}

		c := a.channels[v.channel&0x0F]

		if c.VibratoDepth > 0 {
			speed := c.VibratoSpeed
			if speed <= 0 {
				speed = 2 * math.Pi
			}
			v.vibratoPhase += speed * dt
		}

		changed := a.updateGlide(v, c, dt)
		changed = a.updateArpeggio(v) || changed

		if changed && !v.instrument.Blank {
			a.synth.NoteOn(i, v.slaveIndex(), a.frequencyFor(v, c))
		}
	}
}

// updateGlide slides a gliding voice's currentTone toward targetTone at
// a rate derived from the channel's portamento time, never overshooting
// (§4.E "portamento/glide").
func (a *Allocator) updateGlide(v *physVoice, c *ChannelState, dt float64) bool {
	if !v.gliding {
		return false
	}
	rate := 12.0 // semitones/second at portamento time 0
	if c.PortamentoTime > 0 {
		rate = 12.0 / (float64(c.PortamentoTime) / 32.0)
	}
	step := rate * dt
	diff := v.targetTone - v.currentTone
	if math.Abs(diff) <= step {
		v.currentTone = v.targetTone
		v.gliding = false
	} else if diff > 0 {
		v.currentTone += step
	} else {
		v.currentTone -= step
	}
	return true
}

// updateArpeggio rotates which user of a multiply-shared voice is
// currently sounding, per §4.E "arpeggio rotation": the rotation rate
// divisor shrinks as more notes pile onto one voice.
func (a *Allocator) updateArpeggio(v *physVoice) bool {
	if len(v.users) <= 1 {
		return false
	}
	v.arpeggioPhase++
	reduction := arpeggioRateReduction(len(v.users))
	idx := (v.arpeggioPhase / reduction) % len(v.users)
	u := v.users[idx]
	if u.note == v.note {
		return false
	}
	v.note = u.note
	v.velocity = u.velocity
	v.currentTone = float64(a.toneFor(u.note, v.instrument))
	v.targetTone = v.currentTone
	return true
}

// MissingInstruments returns the set of (bank, program) pairs that have
// been substituted with a blank placeholder so far, for diagnostic
// reporting (§7).
func (a *Allocator) MissingInstruments() []BankKey {
	out := make([]BankKey, 0, len(a.missingInstruments))
	for k := range a.missingInstruments {
		out = append(out, k)
	}
	return out
}
