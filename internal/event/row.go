package event

// Row groups all events that share an absolute tick within one track.
type Row struct {
	AbsTick      uint64
	DelayTicks   uint64  // delay to next row, in ticks
	DelaySeconds float64 // delay to next row, in seconds (set by build_timeline)
	TimeSeconds  float64 // absolute start time in seconds (set by build_timeline)
	EventsBegin  int
	EventsEnd    int
}

// Events resolves this row's event range against the bank that owns it.
func (r Row) Events(bank *Bank) []Event {
	return bank.Events[r.EventsBegin:r.EventsEnd]
}
