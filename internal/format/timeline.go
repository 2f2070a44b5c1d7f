package format

import (
	"sort"

	"github.com/Wohlstand/libADLMIDI-sub000/internal/event"
	"github.com/Wohlstand/libADLMIDI-sub000/internal/tempo"
)

// BuildTimeline walks every track in row order and resolves each row's
// absolute start time and inter-row delay in seconds, subdividing a gap
// at any tempo change that falls inside it so a tempo meta always takes
// effect at its own tick rather than only at the next row boundary. It
// also resolves the song's simple global loop bounds, the first
// loop-start row found (for a sequencer that restarts the whole song
// there), marker timestamps, and the overall song length as the longest
// track's end time.
func BuildTimeline(song *Song) {
	tempoEvents := append([]TempoChange(nil), song.TempoEvents...)
	sort.Slice(tempoEvents, func(i, j int) bool { return tempoEvents[i].AbsTick < tempoEvents[j].AbsTick })

	song.GlobalLoopTrack = -1
	song.GlobalLoopBegin = -1

	var length float64
	for trackIdx, tr := range song.Tracks {
		end := buildTrackTimeline(song, trackIdx, tr, tempoEvents)
		if end > length {
			length = end
		}
	}

	song.SimpleLoop.Validate()
	song.LoopStartSeconds = song.SimpleLoop.StartSeconds
	song.LengthSeconds = length
}

func buildTrackTimeline(song *Song, trackIdx int, tr *event.Track, tempoEvents []TempoChange) float64 {
	model := tempo.NewModel(song.Division)
	tempoIdx := 0
	var timeSeconds float64

	for i := range tr.Rows {
		row := &tr.Rows[i]

		for tempoIdx < len(tempoEvents) && tempoEvents[tempoIdx].AbsTick <= row.AbsTick {
			model.SetTempo(tempoEvents[tempoIdx].MicrosPerQuarter)
			tempoIdx++
		}

		row.TimeSeconds = timeSeconds

		var nextTick uint64
		if i+1 < len(tr.Rows) {
			nextTick = tr.Rows[i+1].AbsTick
		} else {
			nextTick = row.AbsTick
		}
		row.DelayTicks = nextTick - row.AbsTick
		row.DelaySeconds = subdivideDelay(model, tempoEvents, &tempoIdx, row.AbsTick, row.DelayTicks)

		recordRowMarkers(song, trackIdx, row)
		timeSeconds += row.DelaySeconds
	}

	return timeSeconds
}

// subdivideDelay converts one row's tick gap to seconds, switching the
// tempo model mid-gap at every tempo change whose tick falls strictly
// inside (startTick, startTick+delayTicks), so each sub-span uses the
// tempo actually in effect over it.
func subdivideDelay(model *tempo.Model, tempoEvents []TempoChange, tempoIdx *int, startTick, delayTicks uint64) float64 {
	if delayTicks == 0 {
		return 0
	}

	var seconds float64
	tick := startTick
	remaining := delayTicks

	for remaining > 0 {
		if *tempoIdx < len(tempoEvents) {
			at := tempoEvents[*tempoIdx].AbsTick
			if at > tick && at < tick+remaining {
				step := at - tick
				seconds += model.TicksToSeconds(step)
				tick += step
				remaining -= step
				model.SetTempo(tempoEvents[*tempoIdx].MicrosPerQuarter)
				*tempoIdx++
				continue
			}
		}
		seconds += model.TicksToSeconds(remaining)
		remaining = 0
	}
	return seconds
}

// recordRowMarkers resolves loop bounds, the first global loop-start row,
// and marker-text timestamps against the row's now-known TimeSeconds.
func recordRowMarkers(song *Song, trackIdx int, row *event.Row) {
	for _, ev := range row.Events(song.Bank) {
		if ev.Main != event.Meta {
			continue
		}
		switch ev.Sub {
		case event.MetaLoopStart:
			if !song.SimpleLoop.StartSeen {
				song.SimpleLoop.StartTick = row.AbsTick
				song.SimpleLoop.StartSeconds = row.TimeSeconds
				song.SimpleLoop.StartSeen = true
				song.GlobalLoopTrack = trackIdx
				song.GlobalLoopBegin = indexOfRow(song.Tracks[trackIdx], row)
			} else {
				song.SimpleLoop.Disabled = true
			}
		case event.MetaLoopEnd:
			if !song.SimpleLoop.EndSeen {
				song.SimpleLoop.EndTick = row.AbsTick
				song.SimpleLoop.EndSeconds = row.TimeSeconds
				song.SimpleLoop.EndSeen = true
			} else {
				song.SimpleLoop.Disabled = true
			}
		}
	}

	for idx := range song.Markers {
		m := &song.Markers[idx]
		if m.TrackIndex == trackIdx && m.AbsTick == row.AbsTick && m.AbsSeconds == 0 {
			m.AbsSeconds = row.TimeSeconds
		}
	}
}

func indexOfRow(tr *event.Track, row *event.Row) int {
	for i := range tr.Rows {
		if &tr.Rows[i] == row {
			return i
		}
	}
	return -1
}
