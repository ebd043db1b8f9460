package opl

import (
	"libmusdoom/internal/bank"
	"libmusdoom/internal/channel"
	"libmusdoom/internal/debug"
	"libmusdoom/internal/tables"
	"libmusdoom/internal/voice"
)

// operatorBelowLevelSpan is the number of operator-indexed addresses the
// constructor clears across the whole 0x00-0x1F range below the LEVEL
// register base, per spec §4.5's init sequence.
const operatorBelowLevelSpan = 0x20

// Programmer owns every OPL register write libMusDoom makes. It translates
// note-on/off, volume, pan and pitch-bend changes into the exact sequence
// of register writes spec §4.5 describes, routed through a write-shadow
// cache that suppresses redundant writes.
type Programmer struct {
	chip     Chip
	shadow   shadow
	pool     *voice.Pool
	channels *channel.Bank
	logger   *debug.Logger
}

// NewProgrammer builds a Programmer bound to a chip, voice pool and channel
// bank. Init must be called once before any note is played.
func NewProgrammer(chip Chip, pool *voice.Pool, channels *channel.Bank) *Programmer {
	return &Programmer{chip: chip, pool: pool, channels: channels}
}

// SetLogger attaches a diagnostic logger; nil disables logging (the
// default). internal/player forwards its own logger here so voice steals
// (ComponentVoice) and key-on/off (ComponentOPL) are visible when those
// components are individually enabled (spec's ambient logging stack).
func (p *Programmer) SetLogger(l *debug.Logger) {
	p.logger = l
}

// Init resets the chip and brings both OPL3 arrays to a known silent state
// (spec §4.5 constructor sequence).
func (p *Programmer) Init(sampleRate int) {
	p.chip.Reset(sampleRate)
	p.shadow.reset()

	p.initArray(0)
	p.rawWrite(0x04, 0x60)
	p.rawWrite(0x04, 0x80)
	p.rawWrite(0x01, 0x20) // enable waveform-select extension
	p.rawWrite(0x105, 0x01) // enable OPL3 mode
	p.initArray(ArrayOffsetForArray(1))
}

// Chip returns the chip collaborator this Programmer drives, so the sample
// pump (internal/player) can pull generated audio without needing its own
// reference to the chip.
func (p *Programmer) Chip() Chip {
	return p.chip
}

// ArrayOffsetForArray returns the array-select bit for array 0 or 1.
func ArrayOffsetForArray(array int) uint16 {
	if array == 1 {
		return voice.ArrayOffset
	}
	return 0
}

func (p *Programmer) initArray(arrayOffset uint16) {
	for off := uint16(0); off < operatorBelowLevelSpan; off++ {
		p.rawWrite(RegLevel|off|arrayOffset, 0x3f)
		p.rawWrite(RegTremolo|off|arrayOffset, 0)
		p.rawWrite(RegAttack|off|arrayOffset, 0)
		p.rawWrite(RegSustain|off|arrayOffset, 0)
		p.rawWrite(RegWaveform|off|arrayOffset, 0)
	}
	for off := uint16(0); off < operatorBelowLevelSpan; off++ {
		p.rawWrite(off|arrayOffset, 0)
	}
}

func (p *Programmer) rawWrite(addr uint16, value uint8) {
	p.shadow.write(p.chip, addr, value)
}

// loadOperator programs one FM operator's five parameter registers. silent
// forces the level register's attenuation bits to maximum (0x3f) regardless
// of the patch's own level, used while a voice is being (re)programmed but
// not yet sounding.
func (p *Programmer) loadOperator(opAddr uint16, data bank.Operator, silent bool) {
	level := data.Level
	if silent {
		level = 0x3f
	}
	levelReg := data.Scale | level
	p.rawWrite(RegLevel|opAddr, levelReg)
	p.rawWrite(RegTremolo|opAddr, data.TremoloVibratoKSRMulti)
	p.rawWrite(RegAttack|opAddr, data.AttackDecay)
	p.rawWrite(RegSustain|opAddr, data.SustainRelease)
	p.rawWrite(RegWaveform|opAddr, data.Waveform)
}

// setVoiceInstrument loads instrument patch voiceIdx (0 or 1) into voice v,
// unless it is already loaded (spec §4.5 Set voice instrument).
func (p *Programmer) setVoiceInstrument(v *voice.Voice, instr *bank.Instrument, voiceIdx int) {
	if v.Instr == instr && v.InstrVoiceIdx == voiceIdx {
		return
	}

	patch := instr.Voices[voiceIdx]
	modulating := patch.FeedbackConnection&1 == 0

	p.loadOperator(uint16(v.Op2)|v.ArrayOffset, patch.Carrier, true)
	p.loadOperator(uint16(v.Op1)|v.ArrayOffset, patch.Modulator, !modulating)

	feedbackAddr := RegFeedback | uint16(v.IndexInArray) | v.ArrayOffset
	p.rawWrite(feedbackAddr, patch.FeedbackConnection|v.RegPan)

	v.Instr = instr
	v.InstrVoiceIdx = voiceIdx
	modLevel := patch.Modulator.Level
	if !modulating {
		modLevel = 0x3f
	}
	v.ModLevel = patch.Modulator.Scale | modLevel
	v.CarLevel = patch.Carrier.Scale | 0x3f
}

// setVoiceVolume recomputes and writes the carrier (and, for additive
// patches, modulator) level registers for a note velocity and channel
// volume (spec §4.5 Set voice volume).
func (p *Programmer) setVoiceVolume(v *voice.Voice, noteVelocity, channelVolume int) {
	carNew := tables.CarrierAttenuation(noteVelocity, channelVolume)
	if carNew != v.CarLevel&0x3f {
		v.CarLevel = (v.CarLevel & 0xC0) | carNew
		addr := RegLevel | uint16(v.Op2) | v.ArrayOffset
		p.rawWrite(addr, v.CarLevel)
	}

	if v.Instr == nil {
		return
	}
	patch := v.Instr.Voices[v.InstrVoiceIdx]
	additive := patch.FeedbackConnection&1 == 1
	if additive && patch.Modulator.Level != 0x3f {
		modNew := patch.Modulator.Level
		if carNew > modNew {
			modNew = carNew
		}
		v.ModLevel = patch.Modulator.Scale | modNew
		addr := RegLevel | uint16(v.Op1) | v.ArrayOffset
		p.rawWrite(addr, v.ModLevel)
	}
}

// setVoicePan rewrites the feedback register's pan bits if they changed
// (spec §4.5 Set voice pan).
func (p *Programmer) setVoicePan(v *voice.Voice, panReg uint8) {
	if v.RegPan == panReg || v.Instr == nil {
		v.RegPan = panReg
		return
	}
	v.RegPan = panReg
	patch := v.Instr.Voices[v.InstrVoiceIdx]
	addr := RegFeedback | uint16(v.IndexInArray) | v.ArrayOffset
	p.rawWrite(addr, patch.FeedbackConnection|panReg)
}

// updateVoiceFrequency recomputes the note/bend frequency register and
// writes FREQ_LO/FREQ_HI, setting the key-on bit (spec §4.5 Update voice
// frequency). Suppressed if the computed value matches voice.FreqReg.
func (p *Programmer) updateVoiceFrequency(v *voice.Voice, instr *bank.Instrument, voiceIdx int, ch *channel.Channel) {
	note := int(v.Note)
	if !instr.IsFixedNote() {
		note += int(instr.Voices[voiceIdx].BaseNoteOffset)
	}
	secondTuningShift := 0
	if voiceIdx == 1 {
		secondTuningShift = int(instr.FineTuning)/2 - 64
	}
	freq := tables.Frequency(note, ch.Bend, secondTuningShift)
	if freq == v.FreqReg {
		return
	}
	v.FreqReg = freq

	loAddr := RegFreqLo | uint16(v.IndexInArray) | v.ArrayOffset
	hiAddr := RegFreqHi | uint16(v.IndexInArray) | v.ArrayOffset
	p.rawWrite(loAddr, uint8(freq&0xFF))
	p.rawWrite(hiAddr, uint8(freq>>8)|FreqHiKeyOn)
}

// keyOffRegisters writes the explicit key-off (FREQ_HI without the key-on
// bit) for a voice that is about to be released. This always reaches the
// chip even if the byte happens to match the shadow, since the key-off is a
// distinct hardware event from a level write landing on the same byte.
func (p *Programmer) keyOffRegisters(v *voice.Voice) {
	addr := RegFreqHi | uint16(v.IndexInArray) | v.ArrayOffset
	p.shadow.writeForce(p.chip, addr, uint8(v.FreqReg>>8))
}

// KeyOn voices a note-on for instr on channelIdx. It allocates (stealing if
// necessary) one voice, and for double-voice instruments a second, silently
// falling back to single-voice playback if the second allocation fails
// after one steal attempt (spec §4.4, §4.5 Key-on).
func (p *Programmer) KeyOn(channelIdx int, key uint8, velocity uint8, instr *bank.Instrument) {
	ch := p.channels.Channel(channelIdx)

	v := p.allocateOrSteal(channelIdx)
	if v == nil {
		return
	}
	p.keyOnVoice(v, channelIdx, key, velocity, instr, 0, ch)

	if instr.IsDoubleVoice() {
		v2 := p.allocateOrSteal(channelIdx)
		if v2 != nil {
			p.keyOnVoice(v2, channelIdx, key, velocity, instr, 1, ch)
		}
	}
}

func (p *Programmer) allocateOrSteal(channelIdx int) *voice.Voice {
	v := p.pool.Allocate()
	if v != nil {
		return v
	}
	v = p.pool.Steal(channelIdx, p.keyOffRegisters)
	if v != nil && p.logger != nil {
		p.logger.LogVoicef(debug.LogLevelDebug, "stole voice (array slot %d) for channel %d", v.IndexInArray, channelIdx)
	}
	return v
}

func (p *Programmer) keyOnVoice(v *voice.Voice, channelIdx int, key uint8, velocity uint8, instr *bank.Instrument, voiceIdx int, ch *channel.Channel) {
	v.Channel = channelIdx
	v.Key = key
	v.RegPan = ch.PanReg

	note := int(key)
	if instr.IsFixedNote() {
		note = int(instr.FixedNote)
	}
	v.Note = uint8(note)
	v.NoteVolume = velocity

	p.setVoiceInstrument(v, instr, voiceIdx)
	p.setVoiceVolume(v, int(velocity), ch.Volume)
	v.FreqReg = 0
	p.updateVoiceFrequency(v, instr, voiceIdx, ch)

	if p.logger != nil {
		p.logger.LogOPLf(debug.LogLevelTrace, "key-on channel=%d key=%d voice=%d voiceIdx=%d",
			channelIdx, key, v.IndexInArray, voiceIdx)
	}
}

// KeyOff releases every in-use voice matching (channelIdx, key), writing
// the key-off register for each before freeing it (spec §4.5 Key-off).
func (p *Programmer) KeyOff(channelIdx int, key uint8) {
	if p.logger != nil {
		p.logger.LogOPLf(debug.LogLevelTrace, "key-off channel=%d key=%d", channelIdx, key)
	}
	p.pool.ReleaseMatching(channelIdx, key, p.keyOffRegisters)
}

// ReleaseAllFor key-offs and frees every voice owned by a channel (used by
// the all-sounds-off/all-notes-off MUS system events and controllers).
func (p *Programmer) ReleaseAllFor(channelIdx int) {
	p.pool.ReleaseAllFor(channelIdx, p.keyOffRegisters)
}

// ReleaseAll key-offs and frees every in-use voice regardless of owner,
// used when the player (re)starts a score.
func (p *Programmer) ReleaseAll() {
	p.pool.ReleaseAll(p.keyOffRegisters)
}

// SetProgram handles MUS controller 0 (program change).
func (p *Programmer) SetProgram(channelIdx int, program int) {
	p.channels.Channel(channelIdx).Program = program
	if p.logger != nil {
		p.logger.LogChannelf(debug.LogLevelDebug, "channel %d program change %d", channelIdx, program)
	}
}

// SetChannelVolume handles MUS controller 3, refreshing every voice the
// channel owns (spec §4.5).
func (p *Programmer) SetChannelVolume(channelIdx int, value int) {
	ch := p.channels.Channel(channelIdx)
	ch.Volume = channel.ClampVolume(value)
	p.forEachOwnedVoice(channelIdx, func(v *voice.Voice) {
		p.setVoiceVolume(v, int(v.NoteVolume), ch.Volume)
	})
	if p.logger != nil {
		p.logger.LogChannelf(debug.LogLevelTrace, "channel %d volume %d", channelIdx, ch.Volume)
	}
}

// SetChannelPan handles MUS controller 4, refreshing every voice the
// channel owns (spec §4.5).
func (p *Programmer) SetChannelPan(channelIdx int, midiValue int) {
	ch := p.channels.Channel(channelIdx)
	ch.PanReg = channel.PanFromMidi(midiValue)
	p.forEachOwnedVoice(channelIdx, func(v *voice.Voice) {
		p.setVoicePan(v, ch.PanReg)
	})
	if p.logger != nil {
		p.logger.LogChannelf(debug.LogLevelTrace, "channel %d pan reg 0x%02x", channelIdx, ch.PanReg)
	}
}

// ApplyPitchBend handles a MUS pitch-bend event: it updates the channel's
// bend and invalidates (then recomputes) the frequency of every voice the
// channel owns.
func (p *Programmer) ApplyPitchBend(channelIdx int, rawValue uint8) {
	ch := p.channels.Channel(channelIdx)
	ch.Bend = (int(rawValue) - 128) / 2
	p.forEachOwnedVoice(channelIdx, func(v *voice.Voice) {
		if v.Instr == nil {
			return
		}
		v.FreqReg = 0
		p.updateVoiceFrequency(v, v.Instr, v.InstrVoiceIdx, ch)
	})
}

// ResetControllers handles MUS controller 14.
func (p *Programmer) ResetControllers(channelIdx int) {
	p.channels.ResetControllers(channelIdx)
}

func (p *Programmer) forEachOwnedVoice(channelIdx int, fn func(v *voice.Voice)) {
	voices := p.pool.Voices()
	for i := range voices {
		v := &voices[i]
		if v.InUse && v.Channel == channelIdx {
			fn(v)
		}
	}
}
