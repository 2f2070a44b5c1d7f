package format

import (
	"fmt"

	"github.com/Wohlstand/libADLMIDI-sub000/internal/event"
)

// hmiTrackDir is one track directory entry, unified across the HMI and
// HMP container layouts (original_source's HMITrackDir).
type hmiTrackDir struct {
	start, end, offset int
	devices             []uint16
}

// HMI/HMP-specific controller numbers (original_source's HMIController).
const (
	hmiCCRestoreEnable    = 103
	hmiCCRestoreDisable   = 104
	hmiCCLockChannel      = 106
	hmiCCSetChPriority    = 107
	hmiCCSetLocalBranch   = 108
	hmiCCJumpToLocBranch  = 109
	hmiCCGlobLoopStart    = 110
	hmiCCGlobLoopEnd      = 111
	hmiCCSetGlobalBranch  = 113
	hmiCCJumpToGlobBranch = 114
	hmiCCLocalLoopStart   = 116
	hmiCCLocalLoopEnd     = 117
	hmiCCCallbackTrigger  = 119
)

// HMI-specific 0xFE special-event subtypes (original_source's
// HMIEventSubTypes).
const (
	hmiNewBranch        = 0x10
	hmiJumpToLocBranch  = 0x11
	hmiTrackLoopStart   = 0x12
	hmiTrackLoopEnd     = 0x13
	hmiGlobLoopStart    = 0x14
	hmiGlobLoopEnd      = 0x15
	hmiJumpToGlobBranch = 0x16
)

// ParseHMI reads either an AIL "HMI-MIDISONG061595" file or an HMP
// ("HMIMIDIP") file — two related Human Machine Interfaces formats that
// share a track-directory-plus-device-mask layout and a private 0xFE
// special-event space for loop/branch control, differing in their
// variable-length delay encoding (HMI uses SMF's big-endian VLQ, HMP a
// little-endian variant, see readVarLenHMP) and whether Note On events
// carry an inline duration (HMI: yes, producing NoteOnDurated; HMP: a
// velocity of zero is instead treated as Note Off).
func ParseHMI(data []byte) (*Song, error) {
	if len(data) < 0x100 {
		return nil, fmt.Errorf("%w: HMI/HMP file too small", ErrTruncated)
	}

	switch {
	case len(data) >= 18 && string(data[:18]) == "HMI-MIDISONG061595":
		return parseHMIVariant(data)
	case len(data) >= 8 && string(data[:8]) == "HMIMIDIP":
		return parseHMPVariant(data)
	default:
		return nil, fmt.Errorf("%w: HMI/HMP signature not found", ErrUnsupportedFormat)
	}
}

func parseHMIVariant(data []byte) (*Song, error) {
	const (
		offDivision    = 0xD4
		offTracksCount = 0xE4
		offTrackDir    = 0xE8
	)
	if len(data) < offTrackDir+4 {
		return nil, fmt.Errorf("%w: HMI header truncated", ErrTruncated)
	}

	division := uint64(u16le(data[offDivision:offDivision+2])) << 2
	tracksCount := int(u16le(data[offTracksCount : offTracksCount+2]))
	trackDir := int(u32le(data[offTrackDir : offTrackDir+4]))

	dirs := make([]hmiTrackDir, 0, tracksCount)
	for tk := 0; tk < tracksCount; tk++ {
		p := trackDir + tk*4
		if p+4 > len(data) {
			break
		}
		start := int(u32le(data[p : p+4]))
		if start <= 0 || start+0x99+16 > len(data) {
			continue
		}
		if string(data[start:start+13]) != "HMI-MIDITRACK" {
			continue
		}

		var length int
		if tk == tracksCount-1 {
			length = len(data) - start
		} else {
			lp := trackDir + tk*4 + 0x04
			if lp+4 > len(data) {
				continue
			}
			length = int(u32le(data[lp:lp+4])) - start
		}
		if length <= 0 {
			continue
		}
		if start+length > len(data) {
			length = len(data) - start
		}

		offset := int(u32le(data[start+0x57 : start+0x57+4]))
		if length < offset {
			continue
		}

		devs := make([]uint16, 8)
		devOff := start + 0x99
		for j := 0; j < 8; j++ {
			devs[j] = u16le(data[devOff+j*2 : devOff+j*2+2])
		}

		dirs = append(dirs, hmiTrackDir{start: start, end: start + length, offset: offset, devices: devs})
	}

	return buildHMITracks(division, dirs, data, readVarLenSMF, true)
}

func parseHMPVariant(data []byte) (*Song, error) {
	if len(data) < 0x20+4+12+4+4+4+4*16+32*5*4+128 {
		return nil, fmt.Errorf("%w: HMP header truncated", ErrTruncated)
	}

	tracksOffset := 0x308
	if len(data) >= 14 && string(data[8:14]) == "013195" {
		tracksOffset = 0x388
	}

	pos := 0x20 + 4 + 12 // skip file length + padding
	tracksCount := int(u32le(data[pos : pos+4]))
	pos += 4
	if tracksCount > 32 {
		return nil, fmt.Errorf("%w: HMP declares more than 32 tracks", ErrMalformed)
	}
	pos += 4 // tpqn
	division := uint64(u32le(data[pos : pos+4]))
	pos += 4
	pos += 4 // time duration
	pos += 16 * 4
	trackDevice := make([][]uint16, 32)
	for i := 0; i < 32; i++ {
		devs := make([]uint16, 5)
		for j := 0; j < 5; j++ {
			devs[j] = uint16(u32le(data[pos : pos+4]))
			pos += 4
		}
		trackDevice[i] = devs
	}

	dirs := make([]hmiTrackDir, 0, tracksCount)
	offset := tracksOffset
	for tk := 0; tk < tracksCount; tk++ {
		if offset+12 > len(data) {
			break
		}
		length := int(u32le(data[offset+4 : offset+8]))
		end := offset + length
		if end > len(data) {
			end = len(data)
		}
		bodyLen := length - 12
		if bodyLen <= 0 {
			offset += length
			continue
		}
		devs := trackDevice[tk]
		dirs = append(dirs, hmiTrackDir{start: offset + 12, end: end, offset: 0, devices: devs})
		offset += length
	}

	return buildHMITracks(division, dirs, data, readVarLenHMP, false)
}

func buildHMITracks(division uint64, dirs []hmiTrackDir, data []byte, readDelta deltaReader, durated bool) (*Song, error) {
	if division == 0 {
		division = 120
	}
	song := NewSong(division)

	for _, d := range dirs {
		tr := event.NewTrack()
		tr.DeviceMask = mapHMIDevices(d.devices)
		song.Tracks = append(song.Tracks, tr)

		bodyStart := d.start + d.offset
		if bodyStart >= d.end || bodyStart >= len(data) {
			continue
		}
		end := d.end
		if end > len(data) {
			end = len(data)
		}
		if err := buildHMITrack(song, tr, len(song.Tracks) == 1, data[bodyStart:end], readDelta, durated); err != nil {
			return nil, err
		}
	}
	return song, nil
}

// mapHMIDevices folds HMI's 11-way device enum down onto this module's
// 5-flag DeviceMask, grouping OPL2/OPL3/SoundMasterII as the AdLib family,
// DIGI as SB, and everything else that isn't MT-32/GUS as the generic
// bucket.
func mapHMIDevices(devices []uint16) uint32 {
	var mask uint32
	for _, d := range devices {
		if d == 0 {
			break
		}
		switch d {
		case 1, 9, 10: // SoundMasterII, OPL3, OPL2 (original_source's HMI_DRIVER_* ordinal positions)
			mask |= event.DeviceAdLib
		case 6: // MT-32
			mask |= event.DeviceMT32
		case 11: // Gravis Ultrasound
			mask |= event.DeviceGUS
		case 5: // SoundBlaster DIGI channel
			mask |= event.DeviceSB
		default:
			mask |= event.DeviceGeneric
		}
	}
	if mask == 0 {
		return event.DeviceNone
	}
	return mask
}

func buildHMITrack(song *Song, tr *event.Track, isFirstTrack bool, body []byte, readDelta deltaReader, durated bool) error {
	sounding := event.NewNoteSounding()
	var absTick uint64
	var running uint8
	pos := 0

	rb := song.Bank.BeginRow(0)
	rowHasContent := false
	flush := func(next uint64) {
		if rowHasContent {
			tr.AppendRow(rb.Finish(sounding))
		}
		rb = song.Bank.BeginRow(next)
		rowHasContent = false
	}

	if isFirstTrack {
		rb.Append(event.Event{Main: event.Meta, Sub: event.MetaSongBeginHook})
		rb.Append(event.Event{Main: event.Meta, Sub: event.MetaTempoChange, Payload: u64payload(500000)})
		song.TempoEvents = append(song.TempoEvents, TempoChange{AbsTick: 0, MicrosPerQuarter: 500000})
		rowHasContent = true
	}

	if pos < len(body) {
		delay, next, err := readDelta(body, pos)
		if err != nil {
			return err
		}
		pos = next
		absTick += uint64(delay)
	}

	for pos < len(body) {
		ev, ok, next, endOfTrack, err := decodeHMIEvent(body, pos, len(body), &running, durated)
		if err != nil {
			return err
		}
		pos = next
		if ok {
			rb.Append(ev)
			rowHasContent = true
			if ev.Main == event.NoteOnDurated {
				dur := int64(ev.Payload[2]) | int64(ev.Payload[3])<<8 | int64(ev.Payload[4])<<16
				tr.AddTimedNote(event.TimedNote{TTLTicks: dur, Channel: ev.Channel, Key: ev.Payload[0], Velocity: ev.Payload[1]})
			}
		}

		if endOfTrack {
			flush(absTick)
			break
		}

		if pos >= len(body) {
			flush(absTick)
			break
		}

		delay, next2, err := readDelta(body, pos)
		if err != nil {
			flush(absTick)
			break
		}
		pos = next2

		if delay > 0 {
			flush(absTick)
			absTick += uint64(delay)
		}
	}

	return nil
}

// decodeHMIEvent decodes one HMI/HMP event, dispatching between plain
// channel-voice bytes, standard 0xFF meta events (tempo, end-of-track),
// and HMI's private 0xFE special-event space for loop/branch control,
// per original_source's hmi_parseEvent.
func decodeHMIEvent(data []byte, pos, limit int, running *uint8, durated bool) (ev event.Event, ok bool, next int, endOfTrack bool, err error) {
	if pos >= limit {
		return event.Event{Main: event.Meta, Sub: event.MetaEndOfTrack}, true, pos, true, nil
	}

	status := data[pos]
	pos++

	switch {
	case status == 0xF0 || status == 0xF7:
		length, p2, err := readVarLenSMF(data, pos)
		if err != nil {
			return event.Event{}, false, pos, false, err
		}
		return event.Event{Main: event.SysEx}, true, p2 + int(length), false, nil

	case status == 0xFF:
		if pos >= limit {
			return event.Event{}, false, pos, false, fmt.Errorf("%w: HMI meta event truncated", ErrTruncated)
		}
		subType := data[pos]
		pos++
		if subType == 0x2F {
			return event.Event{Main: event.Meta, Sub: event.MetaEndOfTrack}, true, pos, true, nil
		}
		length, p2, err := readVarLenSMF(data, pos)
		if err != nil {
			return event.Event{}, false, pos, false, err
		}
		if subType == 0x51 && p2+3 <= len(data) {
			micros := uint64(data[p2])<<16 | uint64(data[p2+1])<<8 | uint64(data[p2+2])
			return event.Event{Main: event.Meta, Sub: event.MetaTempoChange, Payload: u64payload(micros)}, true, p2 + int(length), false, nil
		}
		return event.Event{}, false, p2 + int(length), false, nil

	case status == 0xFE: // HMI-specific special event
		if pos >= limit {
			return event.Event{}, false, pos, false, fmt.Errorf("%w: HMI special event truncated", ErrTruncated)
		}
		subType := data[pos]
		pos++
		return decodeHMISpecial(data, pos, subType)

	case status >= 0x80:
		*running = status
		return decodeHMIChannelEvent(data, pos, status, running, durated)

	default:
		// running-status continuation: this byte is data, not a status
		pos--
		return decodeHMIChannelEvent(data, pos, *running, running, durated)
	}
}

func decodeHMISpecial(data []byte, pos int, subType uint8) (event.Event, bool, int, bool, error) {
	switch subType {
	case hmiTrackLoopStart, hmiGlobLoopStart:
		if pos+2 > len(data) {
			return event.Event{}, false, pos, false, fmt.Errorf("%w: HMI loop-start event truncated", ErrTruncated)
		}
		count := data[pos]
		pos += 2
		sub := event.MetaLoopStackBeginLocal
		if subType == hmiGlobLoopStart {
			sub = event.MetaLoopStackBegin
		}
		return event.Event{Main: event.Meta, Sub: sub, Payload: [5]byte{count}}, true, pos, false, nil

	case hmiTrackLoopEnd, hmiGlobLoopEnd:
		if pos+6 > len(data) {
			return event.Event{}, false, pos, false, fmt.Errorf("%w: HMI loop-end event truncated", ErrTruncated)
		}
		pos += 6
		sub := event.MetaLoopStackEndLocal
		if subType == hmiGlobLoopEnd {
			sub = event.MetaLoopStackEnd
		}
		return event.Event{Main: event.Meta, Sub: sub}, true, pos, false, nil

	case hmiNewBranch:
		if pos+3 > len(data) {
			return event.Event{}, false, pos, false, fmt.Errorf("%w: HMI branch-location event truncated", ErrTruncated)
		}
		id := int32(data[pos]&0x7F)<<8 | int32(data[pos+1])
		skip := int(data[pos+2])
		pos += 3 + skip + 4
		return event.Event{Main: event.Meta, Sub: event.MetaBranchLocation, Payload: u64payload(uint64(id))}, true, pos, false, nil

	case hmiJumpToLocBranch, hmiJumpToGlobBranch:
		if pos+2 > len(data) {
			return event.Event{}, false, pos, false, fmt.Errorf("%w: HMI branch-jump event truncated", ErrTruncated)
		}
		id := int32(data[pos]&0x7F)<<8 | int32(data[pos+1])
		pos += 2
		if subType == hmiJumpToLocBranch {
			pos += 4 // trailing offset hint, unused
		}
		return event.Event{Main: event.Meta, Sub: event.MetaBranchTo, Payload: u64payload(uint64(id))}, true, pos, false, nil

	default:
		return event.Event{}, false, pos, false, nil
	}
}

func decodeHMIChannelEvent(data []byte, pos int, status uint8, running *uint8, durated bool) (event.Event, bool, int, bool, error) {
	channel := status & 0x0F
	switch status & 0xF0 {
	case 0x80:
		ev, ok, next, err := takeTwo(data, pos, event.NoteOff, channel)
		return ev, ok, next, false, err

	case 0x90:
		if pos+2 > len(data) {
			return event.Event{}, false, pos, false, fmt.Errorf("%w: HMI note-on runs past end of data", ErrTruncated)
		}
		key := data[pos] & 0x7F
		vel := data[pos+1] & 0x7F
		pos += 2
		if durated {
			duration, next, err := readVarLenSMF(data, pos)
			if err != nil {
				return event.Event{}, false, pos, false, err
			}
			duration++
			if duration > 0xFFFFFF {
				duration = 0xFFFFFF
			}
			return event.Event{Main: event.NoteOnDurated, Channel: channel, Payload: [5]byte{key, vel, byte(duration), byte(duration >> 8), byte(duration >> 16)}}, true, next, false, nil
		}
		if vel == 0 {
			return event.Event{Main: event.NoteOff, Channel: channel, Payload: [5]byte{key, 0}}, true, pos, false, nil
		}
		return event.Event{Main: event.NoteOn, Channel: channel, Payload: [5]byte{key, vel}}, true, pos, false, nil

	case 0xA0:
		ev, ok, next, err := takeTwo(data, pos, event.Aftertouch, channel)
		return ev, ok, next, false, err

	case 0xB0:
		if pos+2 > len(data) {
			return event.Event{}, false, pos, false, fmt.Errorf("%w: HMI controller event runs past end of data", ErrTruncated)
		}
		ctrl := data[pos] & 0x7F
		val := data[pos+1] & 0x7F
		pos += 2
		ev, ok := convertHMIController(channel, ctrl, val)
		return ev, ok, pos, false, nil

	case 0xC0:
		ev, ok, next, err := takeOne(data, pos, event.PatchChange, channel)
		return ev, ok, next, false, err

	case 0xD0:
		ev, ok, next, err := takeOne(data, pos, event.ChannelPressure, channel)
		return ev, ok, next, false, err

	case 0xE0:
		ev, ok, next, err := takeTwo(data, pos, event.PitchBend, channel)
		return ev, ok, next, false, err

	default:
		return event.Event{}, false, pos, false, fmt.Errorf("%w: unrecognised HMI status byte 0x%02X", ErrMalformed, status)
	}
}

// convertHMIController maps the HMI/HMP controller extensions (restore-
// on-loop toggles, channel lock/priority, branch set/jump, local loop
// start/end, callback trigger) onto the corresponding synthetic meta
// events, per original_source's HMIController enum; every other
// controller passes through unchanged.
func convertHMIController(channel, ctrl, val uint8) (event.Event, bool) {
	switch ctrl {
	case hmiCCRestoreEnable:
		return event.Event{Main: event.Meta, Sub: event.MetaRestoreCCEnable, Channel: channel, Payload: [5]byte{val}}, true
	case hmiCCRestoreDisable:
		return event.Event{Main: event.Meta, Sub: event.MetaRestoreCCDisable, Channel: channel, Payload: [5]byte{val}}, true
	case hmiCCLockChannel, hmiCCSetChPriority:
		return event.Event{Main: event.Meta, Sub: event.MetaDeviceSwitch, Channel: channel, Payload: [5]byte{ctrl, val}}, true
	case hmiCCSetLocalBranch:
		return event.Event{Main: event.Meta, Sub: event.MetaBranchLocation, Channel: channel, Payload: [5]byte{val}}, true
	case hmiCCJumpToLocBranch:
		return event.Event{Main: event.Meta, Sub: event.MetaBranchTo, Channel: channel, Payload: [5]byte{val}}, true
	case hmiCCGlobLoopStart:
		count := val
		if count == 0xFF {
			count = 0
		}
		return event.Event{Main: event.Meta, Sub: event.MetaLoopStackBegin, Channel: channel, Payload: [5]byte{count}}, true
	case hmiCCGlobLoopEnd:
		return event.Event{Main: event.Meta, Sub: event.MetaLoopStackEnd, Channel: channel}, true
	case hmiCCSetGlobalBranch:
		return event.Event{Main: event.Meta, Sub: event.MetaBranchLocation, Channel: channel, Payload: [5]byte{val}}, true
	case hmiCCJumpToGlobBranch:
		return event.Event{Main: event.Meta, Sub: event.MetaBranchTo, Channel: channel, Payload: [5]byte{val}}, true
	case hmiCCLocalLoopStart:
		count := val
		if count == 0xFF {
			count = 0
		}
		return event.Event{Main: event.Meta, Sub: event.MetaLoopStackBeginLocal, Channel: channel, Payload: [5]byte{count}}, true
	case hmiCCLocalLoopEnd:
		return event.Event{Main: event.Meta, Sub: event.MetaLoopStackEndLocal, Channel: channel}, true
	case hmiCCCallbackTrigger:
		return event.Event{Main: event.Meta, Sub: event.MetaCallbackTrigger, Channel: channel, Payload: [5]byte{val}}, true
	default:
		return event.Event{Main: event.CtrlChange, Channel: channel, Payload: [5]byte{ctrl, val}}, true
	}
}
