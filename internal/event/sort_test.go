package event

import "testing"

func TestRowSortOrdersByPriority(t *testing.T) {
	bank := NewBank()
	sounding := NewNoteSounding()

	rb := bank.BeginRow(0)
	rb.Append(Event{Main: NoteOn, Channel: 0, Payload: [5]byte{60, 100}})
	rb.Append(Event{Main: CtrlChange, Channel: 0, Payload: [5]byte{7, 100}})
	rb.Append(Event{Main: NoteOff, Channel: 0, Payload: [5]byte{61, 0}})
	rb.Append(Event{Main: SysEx, Channel: 0})
	row := rb.Finish(sounding)

	events := row.Events(bank)
	wantOrder := []MainType{SysEx, NoteOff, CtrlChange, NoteOn}
	for i, want := range wantOrder {
		if events[i].Main != want {
			t.Fatalf("position %d: got %v, want %v", i, events[i].Main, want)
		}
	}
}

func TestZeroLengthNoteFixupPushesNoteOffPastRow(t *testing.T) {
	bank := NewBank()
	sounding := NewNoteSounding()
	sounding.setOn(0, 60) // note 60 already sounding at row entry

	rb := bank.BeginRow(10)
	rb.Append(Event{Main: NoteOff, Channel: 0, Payload: [5]byte{60, 0}})
	rb.Append(Event{Main: NoteOn, Channel: 0, Payload: [5]byte{60, 100}})
	row := rb.Finish(sounding)

	events := row.Events(bank)
	if events[len(events)-1].Main != NoteOff {
		t.Fatalf("expected NoteOff to be pushed to end of row, got order %+v", events)
	}
}

func TestZeroLengthNoteFixupLeavesFreshNoteOffAlone(t *testing.T) {
	bank := NewBank()
	sounding := NewNoteSounding()
	// note 60 not sounding at row entry this time

	rb := bank.BeginRow(10)
	rb.Append(Event{Main: NoteOff, Channel: 0, Payload: [5]byte{60, 0}})
	rb.Append(Event{Main: NoteOn, Channel: 0, Payload: [5]byte{60, 100}})
	row := rb.Finish(sounding)

	events := row.Events(bank)
	if events[0].Main != NoteOff {
		t.Fatalf("expected NoteOff to stay first when note wasn't already sounding, got %+v", events)
	}
}

func TestSongBeginHookSortsBeforeSysEx(t *testing.T) {
	bank := NewBank()
	sounding := NewNoteSounding()

	rb := bank.BeginRow(0)
	rb.Append(Event{Main: SysEx})
	rb.Append(Event{Main: Meta, Sub: MetaSongBeginHook})
	row := rb.Finish(sounding)

	events := row.Events(bank)
	if events[0].Main != Meta || events[0].Sub != MetaSongBeginHook {
		t.Fatalf("expected song_begin_hook first, got %+v", events[0])
	}
}

func TestEndOfTrackSortsLast(t *testing.T) {
	bank := NewBank()
	sounding := NewNoteSounding()

	rb := bank.BeginRow(0)
	rb.Append(Event{Main: Meta, Sub: MetaEndOfTrack})
	rb.Append(Event{Main: NoteOn, Channel: 0, Payload: [5]byte{60, 100}})
	row := rb.Finish(sounding)

	events := row.Events(bank)
	if events[len(events)-1].Sub != MetaEndOfTrack {
		t.Fatalf("expected end_of_track last, got %+v", events)
	}
}
