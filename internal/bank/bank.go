// Package bank parses the GENMIDI instrument lump into the 128 melodic and
// 47 percussion instrument definitions the OPL programmer needs to voice a
// note (spec §4.1, component C1).
package bank

import (
	"encoding/binary"

	"libmusdoom/internal/muserr"
)

const (
	magic = "#OPL_II#"

	// MelodicCount is the number of melodic (program-change addressable)
	// instruments in a GENMIDI lump.
	MelodicCount = 128
	// PercussionCount is the number of fixed-note percussion instruments.
	PercussionCount = 47

	entrySize      = 36
	voiceOpBytes   = 16
	headerSize     = len(magic)
	percussionBase = 35 // MIDI percussion notes start at 35 in GM convention.
)

// Flags on Instrument.Flags.
const (
	FlagFixedNote  = 1 << 0
	FlagDoubleVoice = 1 << 2
)

// Operator holds the six OPL parameter bytes of one FM operator.
type Operator struct {
	TremoloVibratoKSRMulti uint8
	AttackDecay            uint8
	SustainRelease         uint8
	Waveform               uint8
	Scale                  uint8
	Level                  uint8
}

// VoicePatch is one of the (up to two) FM voice patches an instrument uses.
type VoicePatch struct {
	Modulator         Operator
	Carrier           Operator
	FeedbackConnection uint8
	BaseNoteOffset     int16
}

// Instrument is one GENMIDI entry: flags, fine tuning, fixed-note pitch, and
// one or two FM voice patches (the second used only for double-voice
// instruments).
type Instrument struct {
	Flags      uint16
	FineTuning uint8
	FixedNote  uint8
	Voices     [2]VoicePatch
}

// IsFixedNote reports whether this instrument plays FixedNote regardless of
// the incoming MIDI note (spec §3: flags bit 0).
func (i *Instrument) IsFixedNote() bool {
	return i.Flags&FlagFixedNote != 0
}

// IsDoubleVoice reports whether this instrument uses both voice patches
// simultaneously (spec §3: flags bit 2).
func (i *Instrument) IsDoubleVoice() bool {
	return i.Flags&FlagDoubleVoice != 0
}

// Bank holds a loaded GENMIDI instrument set. A Bank is immutable once
// built: Load never mutates an existing Bank in place, so a Player can swap
// its bank reference atomically while voices already sounding keep pointing
// at the instrument of the old Bank they were keyed on (spec §4.1).
type Bank struct {
	Melodic    [MelodicCount]Instrument
	Percussion [PercussionCount]Instrument
}

// Load parses a GENMIDI lump. It validates the 8-byte "#OPL_II#" magic and
// the minimum length before touching any instrument data, returning
// muserr.InvalidData on either failure (muserr.InvalidParam for empty
// input).
func Load(data []byte) (*Bank, error) {
	if len(data) == 0 {
		return nil, muserr.New(muserr.InvalidParam, "genmidi data is empty")
	}
	if len(data) < headerSize {
		return nil, muserr.New(muserr.InvalidData, "genmidi data shorter than magic header")
	}
	if string(data[:headerSize]) != magic {
		return nil, muserr.Newf(muserr.InvalidData, "genmidi magic mismatch: got %q", data[:headerSize])
	}

	need := headerSize + (MelodicCount+PercussionCount)*entrySize
	if len(data) < need {
		return nil, muserr.Newf(muserr.InvalidData, "genmidi data truncated: need %d bytes, got %d", need, len(data))
	}

	b := &Bank{}
	cursor := headerSize
	for i := 0; i < MelodicCount; i++ {
		b.Melodic[i] = decodeInstrument(data[cursor : cursor+entrySize])
		cursor += entrySize
	}
	for i := 0; i < PercussionCount; i++ {
		b.Percussion[i] = decodeInstrument(data[cursor : cursor+entrySize])
		cursor += entrySize
	}
	return b, nil
}

func decodeInstrument(data []byte) Instrument {
	var instr Instrument
	instr.Flags = binary.LittleEndian.Uint16(data[0:2])
	instr.FineTuning = data[2]
	instr.FixedNote = data[3]
	instr.Voices[0] = decodeVoicePatch(data[4 : 4+voiceOpBytes])
	instr.Voices[1] = decodeVoicePatch(data[4+voiceOpBytes : 4+2*voiceOpBytes])
	return instr
}

// decodeVoicePatch reads one 16-byte voice record:
// modulator(5) + modLevel(1) + carrier(5) + carLevel(1) + feedback(1) + baseNoteOffset(2 LE).
func decodeVoicePatch(data []byte) VoicePatch {
	var v VoicePatch
	v.Modulator = Operator{
		TremoloVibratoKSRMulti: data[0],
		AttackDecay:            data[1],
		SustainRelease:         data[2],
		Waveform:               data[3],
		Scale:                  data[4],
		Level:                  data[5],
	}
	v.Carrier = Operator{
		TremoloVibratoKSRMulti: data[6],
		AttackDecay:            data[7],
		SustainRelease:         data[8],
		Waveform:               data[9],
		Scale:                  data[10],
		Level:                  data[11],
	}
	v.FeedbackConnection = data[12]
	v.BaseNoteOffset = int16(binary.LittleEndian.Uint16(data[13:15]))
	return v
}

// PercussionInstrument looks up the fixed percussion instrument for a
// percussion key. percKey is the MIDI note (35-based GM percussion
// numbering); ok is false if it falls outside the loaded percussion range.
func (b *Bank) PercussionInstrument(percKey int) (*Instrument, bool) {
	idx := percKey - percussionBase
	if idx < 0 || idx >= PercussionCount {
		return nil, false
	}
	return &b.Percussion[idx], true
}

// MelodicInstrument returns the melodic instrument for a program number
// (0-127), clamped into range.
func (b *Bank) MelodicInstrument(program int) *Instrument {
	if program < 0 {
		program = 0
	}
	if program >= MelodicCount {
		program = MelodicCount - 1
	}
	return &b.Melodic[program]
}
