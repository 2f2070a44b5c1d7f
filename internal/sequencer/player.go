package sequencer

import (
	"github.com/Wohlstand/libADLMIDI-sub000/internal/event"
	"github.com/Wohlstand/libADLMIDI-sub000/internal/format"
)

// maxIterationsPerTick is the anti-freeze cap (§5): a Tick call that
// would otherwise spin forever on a zero-duration cascade of
// back-to-back rows (a pathological loop with no delay between its
// start and end markers) instead breaks out and reports the overrun
// through DebugLogger, if the synth implements it.
const maxIterationsPerTick = 10000

// ticker is implemented by a RealtimeSynth that also wants to advance
// its own time-dependent state once per Tick, such as VoiceSynth's
// ageing/vibrato/portamento/arpeggio update.
type ticker interface {
	Tick(dt float64)
}

// trackCursor is one track's live playback position: which row is next
// and how long until it's due.
type trackCursor struct {
	rowIndex int
	wait     float64
	finished bool
}

// Player is Component D: the deadline-scheduled playback runtime. It
// owns no notion of wall-clock time itself — the caller supplies
// elapsed seconds to Tick, matching the original's pull-model "how long
// until you next need me" contract instead of spawning its own clock.
type Player struct {
	song  *format.Song
	synth RealtimeSynth
	opts  Options

	cursors []trackCursor

	began           bool
	absSeconds      float64
	iterationsBlown int

	globalLoop      event.LoopStack
	globalSnapshot  *event.PositionSnapshot
	simpleLoopsLeft int
	simpleLoopArmed bool

	deviceActive [16]uint32 // per-track current device mask, HMI multiplexing
}

// NewPlayer builds a Player over song, dispatching every realtime event
// to synth. Call Seek(0, ...) or simply start Tick-ing from a fresh
// Player to play from the beginning.
func NewPlayer(song *format.Song, synth RealtimeSynth, opts Options) *Player {
	opts = opts.withDefaults()
	p := &Player{
		song:            song,
		synth:           synth,
		opts:            opts,
		cursors:         make([]trackCursor, len(song.Tracks)),
		simpleLoopsLeft: opts.LoopCount,
	}
	p.resetCursors()
	return p
}

func (p *Player) resetCursors() {
	for i, tr := range p.song.Tracks {
		p.cursors[i] = trackCursor{rowIndex: 0, finished: len(tr.Rows) == 0}
	}
	p.absSeconds = 0
	p.began = false
	p.simpleLoopArmed = p.song.SimpleLoop.StartSeen && !p.song.SimpleLoop.Disabled
	p.globalSnapshot = nil
}

// AbsoluteSeconds reports the player's current playback position.
func (p *Player) AbsoluteSeconds() float64 { return p.absSeconds }

// Finished reports whether every track has exhausted its rows and no
// loop will restart playback.
func (p *Player) Finished() bool {
	for i := range p.cursors {
		if !p.cursors[i].finished {
			return false
		}
	}
	return true
}

// Tick advances playback by elapsedSeconds, dispatching every event due
// in that span, and returns the number of seconds until the next event
// becomes due (a caller sleeping that long will never miss a deadline,
// per §5's scheduler contract).
func (p *Player) Tick(elapsedSeconds float64) float64 {
	if !p.began {
		p.fireSongBeginHook()
		p.began = true
		if h, ok := lifecycleHandler(p.synth); ok {
			h.SongStart()
		}
	}

	remaining := elapsedSeconds * p.opts.TempoMultiplier
	iterations := 0

	for remaining > 0 {
		nextDue, anyLive := p.nextDue()
		if !anyLive {
			break
		}

		step := nextDue
		if step > remaining {
			step = remaining
		}
		p.advance(step)
		remaining -= step
		p.absSeconds += step
		if tk, ok := p.synth.(ticker); ok {
			tk.Tick(step)
		}

		if nextDue <= step {
			p.processEvents(false)
		}

		iterations++
		if iterations >= maxIterationsPerTick {
			p.iterationsBlown++
			if dl, ok := debugLogger(p.synth); ok {
				dl.DebugMessage("sequencer: anti-freeze cap reached, breaking tick early")
			}
			break
		}
	}

	next, anyLive := p.nextDue()
	if !anyLive {
		return p.opts.GranularitySeconds
	}
	if next < p.opts.GranularitySeconds {
		return next / p.opts.TempoMultiplier
	}
	return p.opts.GranularitySeconds / p.opts.TempoMultiplier
}

// nextDue returns the smallest wait across every unfinished track, and
// whether any track is still live.
func (p *Player) nextDue() (float64, bool) {
	min := -1.0
	any := false
	for i := range p.cursors {
		c := &p.cursors[i]
		if c.finished {
			continue
		}
		any = true
		if min < 0 || c.wait < min {
			min = c.wait
		}
	}
	return min, any
}

// advance subtracts dt from every live track's wait.
func (p *Player) advance(dt float64) {
	for i := range p.cursors {
		c := &p.cursors[i]
		if !c.finished {
			c.wait -= dt
		}
	}
}

// processEvents dispatches every track row whose wait has reached zero,
// per §4/§5 "process_events(is_seek)". When isSeek is true, note-on
// events are suppressed (only control/patch/pitch state is replayed) so
// a seek doesn't re-trigger notes that should already have ended.
func (p *Player) processEvents(isSeek bool) {
	for trackIdx := range p.cursors {
		c := &p.cursors[trackIdx]
		for !c.finished && c.wait <= 1e-9 {
			p.dispatchRow(trackIdx, isSeek)
		}
	}
}

// dispatchRow fires every event in the track's current row, then
// advances the cursor to the next row and resets its wait from the
// row's precomputed delay.
func (p *Player) dispatchRow(trackIdx int, isSeek bool) {
	tr := p.song.Tracks[trackIdx]
	startRowIndex := p.cursors[trackIdx].rowIndex
	row := tr.Rows[startRowIndex]

	for _, ev := range row.Events(p.song.Bank) {
		p.dispatchEvent(trackIdx, startRowIndex, ev, isSeek)
	}

	for _, expired := range tr.TickTimedNotes(int64(row.DelayTicks)) {
		if !isSeek {
			p.synth.NoteOff(expired.Channel, expired.Key)
		}
	}

	// A loop restart or branch jump dispatched above may already have
	// repositioned this track's cursor; only auto-advance to the next
	// row in sequence when nothing has done so.
	c := &p.cursors[trackIdx]
	if c.rowIndex != startRowIndex {
		return
	}

	c.rowIndex++
	if c.rowIndex >= len(tr.Rows) {
		c.finished = true
		return
	}
	c.wait = row.DelaySeconds
}

func (p *Player) dispatchEvent(trackIdx, rowIndex int, ev event.Event, isSeek bool) {
	tr := p.song.Tracks[trackIdx]

	switch ev.Main {
	case event.NoteOn, event.NoteOnDurated:
		if isSeek {
			return
		}
		vel := ev.Velocity()
		if ev.Main == event.NoteOnDurated {
			ttl := int64(ev.Payload[2]) | int64(ev.Payload[3])<<8 | int64(ev.Payload[4])<<16
			tr.AddTimedNote(event.TimedNote{TTLTicks: ttl, Channel: ev.Channel, Key: ev.Key(), Velocity: vel})
		}
		p.synth.NoteOn(ev.Channel, ev.Key(), vel)
		tr.State.LastChannel = ev.Channel

	case event.NoteOff:
		if isSeek {
			return
		}
		p.synth.NoteOffVelocity(ev.Channel, ev.Key(), ev.Velocity())

	case event.Aftertouch:
		p.synth.NoteAftertouch(ev.Channel, ev.Key(), ev.Velocity())
		tr.State.NoteAftertouch[ev.Key()&0x7F] = ev.Velocity()

	case event.ChannelPressure:
		p.synth.ChannelAftertouch(ev.Channel, ev.Payload[0])
		tr.State.LastChannelPressure = ev.Payload[0]

	case event.CtrlChange:
		p.synth.ControllerChange(ev.Channel, ev.Payload[0], ev.Payload[1])
		tr.State.LastController[event.ControllerKey{Channel: ev.Channel, Controller: ev.Payload[0]}] = ev.Payload[1]

	case event.PatchChange:
		p.synth.PatchChange(ev.Channel, ev.Payload[0])
		tr.State.LastPatch = ev.Payload[0]

	case event.PitchBend:
		lsb, msb := ev.Payload[0], ev.Payload[1]
		value := int16(uint16(msb)<<7|uint16(lsb)) - 8192
		p.synth.PitchBend(ev.Channel, value)
		tr.State.LastPitchBendLSB, tr.State.LastPitchBendMSB = lsb, msb

	case event.SysEx:
		p.synth.SystemExclusive(p.song.Bank.Slice(ev.Ref))

	case event.Meta:
		p.dispatchMeta(trackIdx, rowIndex, ev, isSeek)
	}
}

func (p *Player) dispatchMeta(trackIdx, rowIndex int, ev event.Event, isSeek bool) {
	tr := p.song.Tracks[trackIdx]

	if h, ok := metaHandler(p.synth); ok {
		h.MetaEvent(trackIdx, uint8(ev.Sub), p.song.Bank.Slice(ev.Ref))
	}

	switch ev.Sub {
	case event.MetaLoopStart:
		if !isSeek && p.simpleLoopArmed && p.globalSnapshot == nil {
			snap := p.snapshot()
			p.globalSnapshot = &snap
		}

	case event.MetaLoopEnd:
		if !isSeek {
			p.handleSimpleLoopEnd()
		}

	case event.MetaLoopStackBegin:
		p.handleLoopStackBegin(&p.globalLoop, ev, true, trackIdx)
	case event.MetaLoopStackBeginLocal:
		p.handleLoopStackBegin(&tr.Loop, ev, false, trackIdx)

	case event.MetaLoopStackEnd:
		p.handleLoopStackEnd(&p.globalLoop, ev, true, trackIdx, false)
	case event.MetaLoopStackEndLocal:
		p.handleLoopStackEnd(&tr.Loop, ev, false, trackIdx, false)

	case event.MetaLoopStackBreak:
		p.handleLoopStackEnd(&p.globalLoop, ev, true, trackIdx, true)
	case event.MetaLoopStackBreakLocal:
		p.handleLoopStackEnd(&tr.Loop, ev, false, trackIdx, true)

	case event.MetaBranchTo:
		p.handleBranchTo(ev)

	case event.MetaRestoreCCEnable:
		tr.State.RestoreMask |= uint64(1) << (ev.Payload[0] & 0x3F)
	case event.MetaRestoreCCDisable:
		tr.State.RestoreMask &^= uint64(1) << (ev.Payload[0] & 0x3F)

	case event.MetaDeviceSwitch:
		mask := uint32(ev.Payload[0]) | uint32(ev.Payload[1])<<8 | uint32(ev.Payload[2])<<16 | uint32(ev.Payload[3])<<24
		tr.DeviceMask = mask
		p.deviceActive[trackIdx&0xF] = mask
		if ds, ok := deviceSwitcher(p.synth); ok {
			ds.DeviceSwitch(trackIdx, mask)
		}

	case event.MetaRawOPL:
		if w, ok := rawOPLWriter(p.synth); ok {
			// IMF and KLM store {register, value}; both address one chip.
			w.RawOPL(0, uint16(ev.Payload[0]), ev.Payload[1])
		}

	case event.MetaSongBeginHook, event.MetaCallbackTrigger, event.MetaEndOfTrack,
		event.MetaTempoChange, event.MetaMarkerText, event.MetaTrackName, event.MetaBranchLocation:
		// Tempo is already baked into each row's timing by BuildTimeline;
		// markers, track names, branch targets and end-of-track carry no
		// further runtime action beyond the MetaEventHandler callback above.
	}
}

// fireSongBeginHook replays the synthetic priming event every track's
// first row carries, per the song_begin_hook supplement: it lets a
// realtime synth distinguish "about to start" from the first real row.
func (p *Player) fireSongBeginHook() {
	for trackIdx, tr := range p.song.Tracks {
		if len(tr.Rows) == 0 {
			continue
		}
		for _, ev := range tr.Rows[0].Events(p.song.Bank) {
			if ev.Main == event.Meta && ev.Sub == event.MetaSongBeginHook {
				if h, ok := metaHandler(p.synth); ok {
					h.MetaEvent(trackIdx, uint8(ev.Sub), nil)
				}
			}
		}
	}
}

// handleSimpleLoopEnd implements the classic loop_start/loop_end pair:
// if a snapshot was captured at loop_start and loops remain, restore
// every track to that snapshot instead of falling through.
func (p *Player) handleSimpleLoopEnd() {
	if !p.simpleLoopArmed || p.globalSnapshot == nil {
		return
	}
	if p.simpleLoopsLeft == 0 {
		p.simpleLoopArmed = false
		return
	}
	if p.simpleLoopsLeft > 0 {
		p.simpleLoopsLeft--
		if p.simpleLoopsLeft == 0 {
			p.simpleLoopArmed = false
		}
	}
	p.restore(*p.globalSnapshot)
}

// handleLoopStackBegin pushes a new nested loop scope, capturing a
// snapshot of either every track (global) or just trackIdx (local) so
// the matching end/break can restart or discard it.
func (p *Player) handleLoopStackBegin(stack *event.LoopStack, ev event.Event, global bool, trackIdx int) {
	count := uint32(ev.Payload[0])
	infinite := count == 0
	id := int32(ev.Payload[2])
	if ev.Payload[2] == 0 {
		id = -1
	}

	var snap event.PositionSnapshot
	if global {
		snap = p.snapshot()
	} else {
		snap = p.snapshotTrack(trackIdx)
	}

	stack.Push(event.LoopEntry{LoopsRemaining: count, Infinite: infinite, Snapshot: snap, ID: id})
}

// handleLoopStackEnd pops the innermost (or ID-targeted) loop scope: a
// plain end decrements and restarts the scope while iterations remain,
// then falls through; a break always discards the scope without
// restarting, per loopstack_break semantics.
func (p *Player) handleLoopStackEnd(stack *event.LoopStack, ev event.Event, global bool, trackIdx int, isBreak bool) {
	id := int32(ev.Payload[0])
	if ev.Payload[0] == 0 {
		id = -1
	}

	entry, idx, ok := stack.TopWithID(id)
	if !ok {
		return
	}

	if isBreak {
		stack.TruncateTo(idx - 1)
		return
	}

	if entry.Infinite || entry.LoopsRemaining > 1 {
		if !entry.Infinite {
			entry.LoopsRemaining--
		}
		snap := entry.Snapshot
		stack.TruncateTo(idx)
		if global {
			p.restore(snap)
		} else {
			p.restoreTrack(trackIdx, snap)
		}
		return
	}

	stack.TruncateTo(idx - 1)
}

// handleBranchTo jumps to a previously recorded branch_location: a
// global target (TrackIndex == -1) re-seeks every track to that row's
// absolute time; a track-local target only moves that one track's
// cursor.
func (p *Player) handleBranchTo(ev event.Event) {
	id := int32(ev.Payload[0]) | int32(ev.Payload[1])<<8

	target, ok := p.song.BranchTargets[id]
	if !ok {
		return
	}

	if target.TrackIndex == -1 {
		// A global branch target names one track's row only to locate the
		// absolute tick; every track re-seeks to that tick.
		for _, tr := range p.song.Tracks {
			if target.RowIndex < len(tr.Rows) {
				p.seekAllTracksToTick(tr.Rows[target.RowIndex].AbsTick)
				return
			}
		}
		return
	}

	if target.TrackIndex < 0 || target.TrackIndex >= len(p.cursors) {
		return
	}
	tr := p.song.Tracks[target.TrackIndex]
	if target.RowIndex < 0 || target.RowIndex >= len(tr.Rows) {
		return
	}
	wait := tr.Rows[target.RowIndex].TimeSeconds - p.absSeconds
	if wait < 0 {
		wait = 0
	}
	p.cursors[target.TrackIndex] = trackCursor{rowIndex: target.RowIndex, wait: wait}
}

// seekAllTracksToTick moves every track's cursor to the first row whose
// AbsTick is >= tick, without replaying events, used by global branch
// jumps.
func (p *Player) seekAllTracksToTick(tick uint64) {
	for i, tr := range p.song.Tracks {
		row := 0
		for row < len(tr.Rows) && tr.Rows[row].AbsTick < tick {
			row++
		}
		if row >= len(tr.Rows) {
			p.cursors[i] = trackCursor{rowIndex: len(tr.Rows), finished: true}
			continue
		}
		wait := tr.Rows[row].TimeSeconds - p.absSeconds
		if wait < 0 {
			wait = 0
		}
		p.cursors[i] = trackCursor{rowIndex: row, wait: wait}
	}
}

// snapshot captures every track's current cursor as a PositionSnapshot.
func (p *Player) snapshot() event.PositionSnapshot {
	snap := event.PositionSnapshot{
		AbsoluteTimeSeconds: p.absSeconds,
		Began:               p.began,
		Cursors:             make([]event.TrackCursor, len(p.cursors)),
	}
	for i, c := range p.cursors {
		snap.Cursors[i] = event.TrackCursor{
			RowIndex:   c.rowIndex,
			DelayTicks: 0,
			SavedState: p.song.Tracks[i].State.Clone(),
		}
	}
	return snap
}

// snapshotTrack captures just one track's cursor, for a local loop
// scope; other tracks' cursors are zero-valued and ignored on restore.
func (p *Player) snapshotTrack(trackIdx int) event.PositionSnapshot {
	snap := event.PositionSnapshot{
		AbsoluteTimeSeconds: p.absSeconds,
		Cursors:             make([]event.TrackCursor, len(p.cursors)),
	}
	snap.Cursors[trackIdx] = event.TrackCursor{
		RowIndex:   p.cursors[trackIdx].rowIndex,
		SavedState: p.song.Tracks[trackIdx].State.Clone(),
	}
	return snap
}

// restore resets every track's cursor from snap and reapplies the
// controller state the destination expects, honoring each track's
// RestoreMask (§4 restore-on-loop).
func (p *Player) restore(snap event.PositionSnapshot) {
	p.absSeconds = snap.AbsoluteTimeSeconds
	for i := range p.cursors {
		p.restoreTrackCursor(i, snap.Cursors[i])
	}
}

func (p *Player) restoreTrack(trackIdx int, snap event.PositionSnapshot) {
	p.absSeconds = snap.AbsoluteTimeSeconds
	p.restoreTrackCursor(trackIdx, snap.Cursors[trackIdx])
}

func (p *Player) restoreTrackCursor(trackIdx int, saved event.TrackCursor) {
	tr := p.song.Tracks[trackIdx]
	if saved.RowIndex >= len(tr.Rows) {
		p.cursors[trackIdx] = trackCursor{rowIndex: len(tr.Rows), finished: true}
		return
	}
	p.cursors[trackIdx] = trackCursor{rowIndex: saved.RowIndex, wait: 0}
	p.applyRestoreMask(tr, saved.SavedState)
}

// applyRestoreMask reapplies the controller classes the track's live
// RestoreMask (tr.State.RestoreMask, not saved's) marks for restoration, leaving every other class at its current live
// value instead of snapping backward (§4 "restore-on-loop defaults").
func (p *Player) applyRestoreMask(tr *event.Track, saved event.TrackState) {
	const (
		restorePatch = 1 << iota
		restorePitchBend
		restoreChannelPressure
		restoreControllers
	)
	mask := tr.State.RestoreMask

	if mask&restorePatch != 0 {
		tr.State.LastPatch = saved.LastPatch
		p.synth.PatchChange(tr.State.LastChannel, saved.LastPatch)
	}
	if mask&restorePitchBend != 0 {
		tr.State.LastPitchBendLSB = saved.LastPitchBendLSB
		tr.State.LastPitchBendMSB = saved.LastPitchBendMSB
		value := int16(uint16(saved.LastPitchBendMSB)<<7|uint16(saved.LastPitchBendLSB)) - 8192
		p.synth.PitchBend(tr.State.LastChannel, value)
	}
	if mask&restoreChannelPressure != 0 {
		tr.State.LastChannelPressure = saved.LastChannelPressure
		p.synth.ChannelAftertouch(tr.State.LastChannel, saved.LastChannelPressure)
	}
	if mask&restoreControllers != 0 {
		for k, v := range saved.LastController {
			tr.State.LastController[k] = v
			p.synth.ControllerChange(k.Channel, k.Controller, v)
		}
	}
}

// Seek moves playback to targetSeconds, replaying every control/patch/
// pitch event between the current position and the target without
// re-triggering notes, per §4/§5 "round-trip seek". granularitySeconds
// bounds how coarsely the intervening replay is chunked.
func (p *Player) Seek(targetSeconds, granularitySeconds float64) {
	if targetSeconds < p.absSeconds {
		p.resetCursors()
	}
	if granularitySeconds <= 0 {
		granularitySeconds = p.opts.GranularitySeconds
	}

	for p.absSeconds < targetSeconds {
		nextDue, anyLive := p.nextDue()
		if !anyLive {
			p.absSeconds = targetSeconds
			break
		}
		step := nextDue
		if p.absSeconds+step > targetSeconds {
			step = targetSeconds - p.absSeconds
		}
		if step > granularitySeconds {
			step = granularitySeconds
		}
		p.advance(step)
		p.absSeconds += step
		if nextDue <= step+1e-9 {
			p.processEvents(true)
		}
	}
}
