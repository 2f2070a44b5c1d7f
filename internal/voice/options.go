// Package voice implements Component E, the channel-stealing FM voice
// allocator: it maps 16 MIDI channels (times however many devices the
// sequencer multiplexes) onto a pool of physical 2-op/4-op OPL3 slots,
// runs the note lifecycle (attack, sustain/sostenuto/soft-pedal latching,
// portamento, vibrato, arpeggio on oversubscription), and issues
// per-frame register writes through the external Synth interface (§6).
package voice

// VolumeModel selects which pitch/volume tuning formula and allocation
// tie-break rule the allocator uses, per §4.E.
type VolumeModel uint8

const (
	VolumeGeneric VolumeModel = iota
	VolumeDMX
	VolumeDMXFixed
	VolumeApogee
	Volume9x
	VolumeHMI
	VolumeCMF
)

// Options configures an Allocator at construction, per Design Notes §9
// ("dynamic typing of config -> enumerated options struct"): the volume
// model, full-range-brightness flag and drum minimum sounding time are
// explicit fields rather than a string-keyed bag. Rhythm mode is not an
// option here; it is read from Synth.RhythmMode.
type Options struct {
	VolumeModel VolumeModel

	// FullRangeBrightnessCC74, when false (the default), saturates CC74
	// brightness the way the original clamps it to emulate a post
	// high-pass filter: values below 64 are doubled, at or above 64 are
	// forced to 127. When true, CC74 passes through unclamped.
	FullRangeBrightnessCC74 bool

	// DrumMinSoundingSeconds is the minimum lifetime a percussion note
	// is held before an early NoteOff is allowed to actually silence it
	// (§4.E NoteOff, "drum minimum-sounding time of 30 ms").
	DrumMinSoundingSeconds float64
}

// DefaultDrumMinSoundingSeconds is the 30ms floor from §4.E.
const DefaultDrumMinSoundingSeconds = 0.03

// WithDefaults fills zero-valued fields with their spec defaults.
func (o Options) WithDefaults() Options {
	if o.DrumMinSoundingSeconds == 0 {
		o.DrumMinSoundingSeconds = DefaultDrumMinSoundingSeconds
	}
	return o
}
