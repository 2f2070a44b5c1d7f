package event

import "testing"

func TestAddTimedNoteRespectsBound(t *testing.T) {
	tr := NewTrack()
	for i := 0; i < MaxTimedNotes; i++ {
		if !tr.AddTimedNote(TimedNote{TTLTicks: 10, Channel: 0, Key: uint8(i % 128)}) {
			t.Fatalf("AddTimedNote failed before reaching bound at i=%d", i)
		}
	}
	if tr.AddTimedNote(TimedNote{TTLTicks: 10}) {
		t.Fatal("expected AddTimedNote to refuse once MaxTimedNotes is reached")
	}
}

func TestTickTimedNotesExpiresAtZero(t *testing.T) {
	tr := NewTrack()
	tr.AddTimedNote(TimedNote{TTLTicks: 5, Channel: 0, Key: 60, Velocity: 100})
	tr.AddTimedNote(TimedNote{TTLTicks: 100, Channel: 0, Key: 61, Velocity: 100})

	expired := tr.TickTimedNotes(5)
	if len(expired) != 1 || expired[0].Key != 60 {
		t.Fatalf("expected note 60 to expire, got %+v", expired)
	}
	if len(tr.TimedNotes) != 1 || tr.TimedNotes[0].Key != 61 {
		t.Fatalf("expected note 61 to remain, got %+v", tr.TimedNotes)
	}
}

func TestLoopStackPushPopRespectsMaxDepth(t *testing.T) {
	var s LoopStack
	for i := 0; i < MaxLoopDepth; i++ {
		if !s.Push(LoopEntry{ID: int32(i)}) {
			t.Fatalf("Push failed before reaching MaxLoopDepth at i=%d", i)
		}
	}
	if s.Push(LoopEntry{ID: 999}) {
		t.Fatal("expected Push to refuse beyond MaxLoopDepth")
	}
	top, ok := s.Top()
	if !ok || top.ID != MaxLoopDepth-1 {
		t.Fatalf("expected top ID %d, got %+v", MaxLoopDepth-1, top)
	}
}

func TestSimpleLoopValidateDisablesBadPair(t *testing.T) {
	l := SimpleLoop{StartSeen: true, EndSeen: true, StartTick: 100, EndTick: 50}
	l.Validate()
	if !l.Disabled {
		t.Fatal("expected loop with end before start to be disabled")
	}

	l2 := SimpleLoop{StartSeen: true, EndSeen: true, StartTick: 0, EndTick: 960}
	l2.Validate()
	if l2.Disabled {
		t.Fatal("expected well-formed loop to remain enabled")
	}
}

func TestTrackStateCloneDoesNotAliasMap(t *testing.T) {
	s := NewTrackState()
	s.LastController[ControllerKey{Channel: 0, Controller: 7}] = 100

	clone := s.Clone()
	clone.LastController[ControllerKey{Channel: 0, Controller: 7}] = 50

	if s.LastController[ControllerKey{Channel: 0, Controller: 7}] != 100 {
		t.Fatal("mutating clone's controller map affected the original")
	}
}
