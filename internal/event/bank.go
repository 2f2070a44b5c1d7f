package event

// Bank is the flat, append-only event store for one loaded song. Rows
// address it by half-open [begin,end) index ranges; indices survive row
// sorting because sorting happens in place on the contiguous slice.
type Bank struct {
	Events []Event
	Bytes  []byte
}

// NewBank creates an empty event bank.
func NewBank() *Bank {
	return &Bank{}
}

// AppendBytes copies data into the shared byte arena and returns a
// reference to it, for variable-length payloads (SysEx data, marker and
// track-name text, raw instrument banks).
func (b *Bank) AppendBytes(data []byte) ArenaRef {
	off := len(b.Bytes)
	b.Bytes = append(b.Bytes, data...)
	return ArenaRef{Offset: off, Length: len(data)}
}

// Slice resolves an ArenaRef back into its backing bytes.
func (b *Bank) Slice(ref ArenaRef) []byte {
	return b.Bytes[ref.Offset : ref.Offset+ref.Length]
}

// RowBuilder accumulates events for one row before it is flushed into a
// Track. It implements append_event(row_builder, event) from §4.B.
type RowBuilder struct {
	bank *Bank
	row  Row
}

// BeginRow starts building a row at the given absolute tick.
func (b *Bank) BeginRow(absTick uint64) *RowBuilder {
	idx := len(b.Events)
	return &RowBuilder{
		bank: b,
		row:  Row{AbsTick: absTick, EventsBegin: idx, EventsEnd: idx},
	}
}

// Append widens the row's event range by appending ev into the bank.
func (rb *RowBuilder) Append(ev Event) {
	rb.bank.Events = append(rb.bank.Events, ev)
	rb.row.EventsEnd = len(rb.bank.Events)
}

// Len reports how many events have been appended to this row so far.
func (rb *RowBuilder) Len() int {
	return rb.row.EventsEnd - rb.row.EventsBegin
}

// Finish sorts the accumulated events by the §4.B priority discipline,
// applies the zero-length-note fix-up, updates sounding with the row's
// final dispatch order, and returns the completed Row.
func (rb *RowBuilder) Finish(sounding *NoteSounding) Row {
	events := rb.bank.Events[rb.row.EventsBegin:rb.row.EventsEnd]
	insertionSortByPriority(events)
	fixZeroLengthNotes(events, sounding)
	updateSounding(events, sounding)
	return rb.row
}
