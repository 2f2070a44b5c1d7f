package voice

// noteState is the lifecycle stage of a note occupying a physical
// voice, following the original's MIDIplay::NoteInfo::Phys state
// machine (§3, §4.E).
type noteState uint8

const (
	noteOn noteState = iota
	noteSustained
	noteReleasing
)

// physVoice is one physical 2-op (or 4-op master) OPL3 slot and the
// bookkeeping the allocator needs to score, steal, and age it (§3
// "physical voice" / "chip channel").
type physVoice struct {
	index int

	// slaveVoice is the paired 4-op slave voice index, or -1 for a plain
	// 2-op voice or an unpaired slot.
	slaveVoice int

	inUse bool

	channel  uint8
	note     uint8
	velocity uint8

	instrument Instrument
	bankID     uint32
	program    uint8

	state noteState

	// age tracks how recently this voice last changed state, in a pair
	// of release/attack budgets that decay toward zero and feed the
	// goodness score's age term (§4.E "ageing").
	konBudgetUs  int64
	koffBudgetUs int64

	// users lists every MIDI (channel, note) pair currently sharing this
	// voice via arpeggio; len(users) > 1 triggers updateArpeggio
	// rotation.
	users []noteUser

	// arpeggioPhase advances once per Tick and selects the sounding user
	// via phase/rateReduction % len(users), per §4.E "arpeggio rotation".
	arpeggioPhase int

	// glide state: portamento slides currentTone toward targetTone.
	gliding     bool
	currentTone float64
	targetTone  float64

	vibratoPhase float64

	soundingSeconds float64
}

// Sustain-bit flags for noteUser.sustainBits, mirroring the original's
// AdlChannel::LocationData::Sustain_Pedal / Sustain_Sostenuto: a user
// stays sounding past its MIDI NoteOff as long as any bit remains set
// (§3 LocationData "sustain_bits").
const (
	sustainBitPedal     uint8 = 1 << 0
	sustainBitSostenuto uint8 = 1 << 1
)

// noteUser identifies one (channel, key) pair sharing a voice through
// arpeggio, and the per-user bookkeeping §3's LocationData model and
// §4.E's goodness scoring both need: which instrument/bank it holds,
// whether a pedal is keeping it alive, and its own ageing budgets
// (distinct from the voice-level budgets, which track the voice's
// primary/most-recently-attacked note).
type noteUser struct {
	channel  uint8
	note     uint8
	velocity uint8

	bankID     uint32
	program    uint8
	instrument Instrument

	// sustainBits is nonzero while a pedal (sustain and/or sostenuto) is
	// the only thing keeping this user sounding past its NoteOff.
	sustainBits uint8

	// fixedSustain mirrors Instrument.FixedSustainMaxTime: konBudgetUs
	// never decays for a fixed-sustain user.
	fixedSustain bool

	// konBudgetUs / vibdelayUs are this user's own remaining on-budget and
	// time-since-attack, aged once per Tick exactly like the original's
	// AdlChannel::addAge: konBudgetUs counts down unless fixedSustain,
	// vibdelayUs counts up unconditionally.
	konBudgetUs int64
	vibdelayUs  int64
}

func (p *physVoice) reset() {
	p.inUse = false
	p.channel = 0
	p.note = 0
	p.velocity = 0
	p.instrument = Instrument{}
	p.state = noteOn
	p.users = p.users[:0]
	p.arpeggioPhase = 0
	p.gliding = false
	p.soundingSeconds = 0
}

// releasing reports whether this voice is still sounding after its MIDI
// NoteOff: held by the sustain or sostenuto pedal, or by the drum
// minimum-sounding time. goodness scores such voices as cheap steal
// targets. A voice whose koffBudgetUs runs out is released by Tick and is
// then no longer in use.
func (p *physVoice) releasing() bool {
	return p.inUse && p.state == noteReleasing
}

// arpeggioRateReduction returns the divisor applied to arpeggioPhase
// before the modulo selects the sounding user, shrinking as the voice
// picks up more simultaneous users (§4.E "rate shrinks 3 -> 2 -> 1").
func arpeggioRateReduction(nUsers int) int {
	switch {
	case nUsers <= 2:
		return 3
	case nUsers == 3:
		return 2
	default:
		return 1
	}
}
