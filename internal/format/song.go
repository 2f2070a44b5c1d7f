package format

import "github.com/Wohlstand/libADLMIDI-sub000/internal/event"

// Marker is one metadata text event (a text, marker or lyric meta that is
// not a loop marker; track names are not recorded) with its absolute
// position, filled in by build_timeline once the owning
// row's time is known.
type Marker struct {
	TrackIndex int
	Text       string
	AbsTick    uint64
	AbsSeconds float64
}

// TempoChange is one tempo meta event location, consumed by
// build_timeline to subdivide inter-row gaps.
type TempoChange struct {
	AbsTick          uint64
	MicrosPerQuarter uint64
}

// Song is the normalised (tempo_events, rows, loop_parse_state) triple
// every format parser produces, per §4.C.
type Song struct {
	Division    uint64
	Bank        *event.Bank
	Tracks      []*event.Track
	TempoEvents []TempoChange
	SimpleLoop  event.SimpleLoop
	Markers     []Marker

	// CMFInstruments holds the raw OPL2 patch bank a CMF file embeds
	// directly in its own bytes; empty for every other format.
	CMFInstruments []CMFInstrument

	// BranchTargets maps a branch ID to the (trackIndex, rowIndex) it
	// names; trackIndex == -1 designates a global branch target. The
	// parsers and BuildTimeline leave it empty, so a MetaBranchTo event
	// finds no target and playback continues in place.
	BranchTargets map[int32]BranchTarget

	// LengthSeconds and LoopStartSeconds are filled in by BuildTimeline;
	// the full loop interval (including its end) lives in SimpleLoop.
	LengthSeconds    float64
	LoopStartSeconds float64
	GlobalLoopTrack  int // index into Tracks owning GlobalLoopBegin, or -1
	GlobalLoopBegin  int // row index of the first loop-start event found, or -1
}

// BranchTarget names where a branch_location(ID) event was recorded.
type BranchTarget struct {
	TrackIndex int
	RowIndex   int
}

// NewSong allocates an empty Song with its bank and lookup tables ready.
func NewSong(division uint64) *Song {
	return &Song{
		Division:        division,
		Bank:            event.NewBank(),
		BranchTargets:   make(map[int32]BranchTarget),
		GlobalLoopTrack: -1,
		GlobalLoopBegin: -1,
	}
}
