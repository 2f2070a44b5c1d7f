package sequencer

// LoopForever repeats the loop region indefinitely.
const LoopForever = -1

// Options configures a Player at construction.
type Options struct {
	// LoopCount selects how many times the song's loop region repeats,
	// matching cliopts.Config.LoopCount: 0 plays the loop body once (no
	// repeat), LoopForever (-1) repeats indefinitely, and a positive N
	// repeats the loop body N additional times after the first pass.
	LoopCount int

	// GranularitySeconds caps the wait Tick returns (it is returned
	// as-is once no track is live), and is Seek's step size when Seek is
	// given a non-positive granularity.
	GranularitySeconds float64

	// TempoMultiplier scales wall-clock elapsed time into song time
	// inside Tick (§4.D, §9 "one setup record passed at construction").
	// 1.0 plays at the song's own tempo; 2.0 plays twice as fast.
	TempoMultiplier float64
}

// DefaultGranularitySeconds is a 60Hz frame period, the original's
// typical UI-thread polling rate.
const DefaultGranularitySeconds = 1.0 / 60.0

func (o Options) withDefaults() Options {
	if o.GranularitySeconds <= 0 {
		o.GranularitySeconds = DefaultGranularitySeconds
	}
	if o.TempoMultiplier <= 0 {
		o.TempoMultiplier = 1.0
	}
	return o
}
