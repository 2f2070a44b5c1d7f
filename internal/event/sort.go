package event

// NoteSounding is the caller-maintained global bitset from §4.B,
// `note_sounding[channel<<7 | key]`, updated as row sorting visits each
// NoteOn/NoteOff. It must be threaded across every row of every track in
// tick order so the zero-length-note fix-up can tell whether a note was
// already sounding when a row began.
type NoteSounding struct {
	sounding map[uint32]bool
}

// NewNoteSounding creates an empty sounding-note tracker.
func NewNoteSounding() *NoteSounding {
	return &NoteSounding{sounding: make(map[uint32]bool)}
}

func soundingKey(channel, key uint8) uint32 {
	return uint32(channel)<<7 | uint32(key)
}

// IsSounding reports whether (channel, key) was sounding as of the last
// update.
func (n *NoteSounding) IsSounding(channel, key uint8) bool {
	return n.sounding[soundingKey(channel, key)]
}

func (n *NoteSounding) setOn(channel, key uint8) {
	n.sounding[soundingKey(channel, key)] = true
}

func (n *NoteSounding) setOff(channel, key uint8) {
	delete(n.sounding, soundingKey(channel, key))
}

// insertionSortByPriority sorts events by the §4.B priority table,
// preserving relative order of equal-priority events (stable, since it
// only swaps on strict inequality).
func insertionSortByPriority(events []Event) {
	for i := 1; i < len(events); i++ {
		j := i
		for j > 0 && priority(events[j-1]) > priority(events[j]) {
			events[j-1], events[j] = events[j], events[j-1]
			j--
		}
	}
}

// hasFollowingNoteOn reports whether a NoteOn/NoteOnDurated of the same
// (channel, key) appears after index i in events.
func hasFollowingNoteOn(events []Event, i int, channel, key uint8) bool {
	for k := i + 1; k < len(events); k++ {
		ev := events[k]
		if (ev.Main == NoteOn || ev.Main == NoteOnDurated) && ev.Channel == channel && ev.Key() == key {
			return true
		}
	}
	return false
}

// fixZeroLengthNotes implements the second pass from §4.B: if a NoteOff
// on key K of channel C is followed, later in the same row, by a NoteOn
// on the same key and channel, and the note was already sounding at row
// entry, that NoteOff is pushed past all events of the row.
func fixZeroLengthNotes(events []Event, sounding *NoteSounding) {
	var kept, deferred []Event

	for i, ev := range events {
		if ev.Main == NoteOff {
			channel, key := ev.Channel, ev.Key()
			if sounding.IsSounding(channel, key) && hasFollowingNoteOn(events, i, channel, key) {
				deferred = append(deferred, ev)
				continue
			}
		}
		kept = append(kept, ev)
	}

	copy(events, append(kept, deferred...))
}

// updateSounding advances the sounding-note bitset to reflect this row's
// final dispatch order, so the next row's fix-up pass sees accurate state.
func updateSounding(events []Event, sounding *NoteSounding) {
	for _, ev := range events {
		switch ev.Main {
		case NoteOn, NoteOnDurated:
			if ev.Velocity() == 0 {
				sounding.setOff(ev.Channel, ev.Key())
			} else {
				sounding.setOn(ev.Channel, ev.Key())
			}
		case NoteOff:
			sounding.setOff(ev.Channel, ev.Key())
		}
	}
}
