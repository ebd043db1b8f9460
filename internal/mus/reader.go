// Package mus decodes the MUS score format: a 140-Hz MIDI-like event stream
// with variable-length delays (spec §4.2, component C2).
package mus

import (
	"encoding/binary"

	"libmusdoom/internal/muserr"
)

const magic = "MUS\x1a"

// EventType is the high nibble of a MUS status byte.
type EventType uint8

const (
	EventReleaseNote EventType = 0x00
	EventPlayNote     EventType = 0x10
	EventPitchBend    EventType = 0x20
	EventSystem       EventType = 0x30
	EventController   EventType = 0x40
	EventEndOfScore   EventType = 0x60
)

// System event codes carried by EventSystem (spec §4.2).
const (
	SysAllSoundsOff   = 10
	SysAllNotesOff    = 11
	SysResetControllers = 14
)

// Controller numbers carried by EventController (spec §4.5).
const (
	CtrlProgramChange = 0
	CtrlVolume        = 3
	CtrlPan           = 4
	CtrlAllSoundsOff  = 10
	CtrlAllNotesOff   = 11
	CtrlResetAll      = 14
)

// Event is one decoded MUS score event. Not all fields are meaningful for
// every Type; see the per-type comments below.
type Event struct {
	Type    EventType
	Channel int // remapped internal channel (0-15, with the 9/15 swap applied)

	Note         uint8 // ReleaseNote, PlayNote
	Velocity     uint8 // PlayNote; only meaningful if HasVelocity
	HasVelocity  bool  // PlayNote: whether a velocity byte followed
	PitchBend    uint8 // PitchBend: raw 0..255 value, 128 = center
	SystemCode   uint8 // System
	Controller   uint8 // Controller
	ControllerValue uint8 // Controller

	// Delay is the number of 140 Hz ticks to wait after this event before
	// the next one fires, valid only when HasDelay is true.
	Delay    uint32
	HasDelay bool
}

// Header is the parsed MUS file header (spec §4.2).
type Header struct {
	ScoreLen       uint16
	ScoreStart     uint16
	Channels       uint16
	SecChannels    uint16
	InstrCount     uint16
}

// Reader holds a cursor into a MUS score buffer. It does not own or copy the
// data; the caller must keep the backing slice alive for the Reader's
// lifetime.
type Reader struct {
	data   []byte
	Header Header
	cursor int
	scoreEnd int
}

// remapChannel applies the MUS channel 9/15 swap (spec §4.2: "MUS channel 15
// -> internal 9 (percussion); MUS channel 9 -> internal 15").
func remapChannel(muschan int) int {
	switch muschan {
	case 15:
		return 9
	case 9:
		return 15
	default:
		return muschan
	}
}

// NewReader parses a MUS header and positions the cursor at score_start.
// It returns muserr.InvalidParam for empty input, and muserr.InvalidData if
// the magic is wrong or the header/score region doesn't fit in data.
func NewReader(data []byte) (*Reader, error) {
	if len(data) == 0 {
		return nil, muserr.New(muserr.InvalidParam, "mus data is empty")
	}
	const headerSize = 4 + 2 + 2 + 2 + 2 + 2 + 2 // id + 6 u16 fields
	if len(data) < headerSize {
		return nil, muserr.New(muserr.InvalidData, "mus data shorter than header")
	}
	if string(data[:4]) != magic {
		return nil, muserr.Newf(muserr.InvalidData, "mus magic mismatch: got %q", data[:4])
	}

	h := Header{
		ScoreLen:    binary.LittleEndian.Uint16(data[4:6]),
		ScoreStart:  binary.LittleEndian.Uint16(data[6:8]),
		Channels:    binary.LittleEndian.Uint16(data[8:10]),
		SecChannels: binary.LittleEndian.Uint16(data[10:12]),
		InstrCount:  binary.LittleEndian.Uint16(data[12:14]),
		// data[14:16] is padding, ignored.
	}

	start := int(h.ScoreStart)
	end := start + int(h.ScoreLen)
	if start < 0 || end > len(data) || start > end {
		return nil, muserr.Newf(muserr.InvalidData, "mus score region [%d,%d) out of bounds for %d-byte input", start, end, len(data))
	}

	return &Reader{
		data:     data,
		Header:   h,
		cursor:   start,
		scoreEnd: end,
	}, nil
}

// AtEnd reports whether the cursor has reached the end of the score region.
// A well-formed score always terminates with an explicit EventEndOfScore
// before this happens; AtEnd is a backstop for truncated input.
func (r *Reader) AtEnd() bool {
	return r.cursor >= r.scoreEnd
}

// Next decodes and returns the next event, advancing the cursor past it and
// past any trailing delay bytes. It returns muserr.InvalidData (wrapped with
// Kind InvalidData) if the score runs out of bytes mid-event; callers should
// treat that the same as an unsignaled end_of_score, per spec §4.2.
func (r *Reader) Next() (Event, error) {
	if r.AtEnd() {
		return Event{Type: EventEndOfScore}, nil
	}

	status, err := r.readByte()
	if err != nil {
		return Event{}, muserr.Wrap(muserr.InvalidData, "truncated mus score: missing status byte", err)
	}

	lastInGroup := status&0x80 != 0
	evType := EventType(status & 0x70)
	channel := remapChannel(int(status & 0x0f))

	ev := Event{Type: evType, Channel: channel}

	switch evType {
	case EventReleaseNote:
		note, err := r.readByte()
		if err != nil {
			return Event{}, muserr.Wrap(muserr.InvalidData, "truncated release-note event", err)
		}
		ev.Note = note & 0x7f

	case EventPlayNote:
		nv, err := r.readByte()
		if err != nil {
			return Event{}, muserr.Wrap(muserr.InvalidData, "truncated play-note event", err)
		}
		ev.Note = nv & 0x7f
		if nv&0x80 != 0 {
			vel, err := r.readByte()
			if err != nil {
				return Event{}, muserr.Wrap(muserr.InvalidData, "truncated play-note velocity byte", err)
			}
			ev.Velocity = vel & 0x7f
			ev.HasVelocity = true
		}

	case EventPitchBend:
		v, err := r.readByte()
		if err != nil {
			return Event{}, muserr.Wrap(muserr.InvalidData, "truncated pitch-bend event", err)
		}
		ev.PitchBend = v

	case EventSystem:
		v, err := r.readByte()
		if err != nil {
			return Event{}, muserr.Wrap(muserr.InvalidData, "truncated system event", err)
		}
		ev.SystemCode = v & 0x7f

	case EventController:
		ctrl, err := r.readByte()
		if err != nil {
			return Event{}, muserr.Wrap(muserr.InvalidData, "truncated controller event", err)
		}
		val, err := r.readByte()
		if err != nil {
			return Event{}, muserr.Wrap(muserr.InvalidData, "truncated controller value byte", err)
		}
		ev.Controller = ctrl & 0x7f
		ev.ControllerValue = val & 0x7f

	case EventEndOfScore:
		// No payload.

	default:
		return Event{}, muserr.Newf(muserr.InvalidData, "unknown mus event type 0x%02X", status&0x70)
	}

	if evType == EventEndOfScore {
		return ev, nil
	}

	if lastInGroup {
		delay, err := r.readDelay()
		if err != nil {
			return Event{}, err
		}
		ev.Delay = delay
		ev.HasDelay = true
	}

	return ev, nil
}

func (r *Reader) readByte() (uint8, error) {
	if r.cursor >= r.scoreEnd {
		return 0, muserr.New(muserr.InvalidData, "read past end of score region")
	}
	b := r.data[r.cursor]
	r.cursor++
	return b, nil
}

// readDelay decodes a variable-length delay: 7 data bits per byte, the high
// bit marks continuation (spec §4.2).
func (r *Reader) readDelay() (uint32, error) {
	var delay uint32
	for {
		b, err := r.readByte()
		if err != nil {
			return 0, muserr.Wrap(muserr.InvalidData, "truncated variable-length delay", err)
		}
		delay = (delay << 7) | uint32(b&0x7f)
		if b&0x80 == 0 {
			break
		}
	}
	return delay, nil
}

// Rewind resets the cursor to the start of the score region, for looping
// playback.
func (r *Reader) Rewind() {
	r.cursor = int(r.Header.ScoreStart)
}
