// Package opl owns OPL2/OPL3 register programming: a write-shadow cache in
// front of the chip interface, and the Programmer that turns instrument,
// channel and voice state into register writes (spec §4.5, §6, component
// C6).
package opl

// Register base addresses, valid on both OPL3 arrays (spec §4.5).
const (
	RegTremolo = 0x20
	RegLevel   = 0x40
	RegAttack  = 0x60
	RegSustain = 0x80
	RegFeedback = 0xC0
	RegWaveform = 0xE0
	RegFreqLo   = 0xA0
	RegFreqHi   = 0xB0
)

// FreqHiKeyOn is the key-on bit within the FREQ_HI register (spec §4.5:
// "the 0x20 bit IS the key-on bit").
const FreqHiKeyOn = 0x20

// Chip is the external collaborator interface: the cycle-level FM synthesis
// engine that actually turns register writes into PCM. libMusDoom treats
// its internals as out of scope (spec §6); Programmer only ever calls
// WriteReg and Reset.
type Chip interface {
	// Reset (re)initializes the chip for the given output sample rate.
	Reset(sampleRate int)
	// WriteReg performs one OPL register write. addr is a 9-bit register
	// address with bit 8 selecting the OPL3 array (0x000 or 0x100 OR'd in).
	WriteReg(addr uint16, value uint8)
	// GenerateResampledStereo advances the chip by one output sample and
	// returns it as signed 16-bit left/right PCM.
	GenerateResampledStereo() (int16, int16)
}

// shadow is a write-through cache of the last value sent to each of the
// chip's 512 addressable registers (9-bit address across both arrays),
// suppressing redundant writes (spec §4.5: "All writes pass through a
// write-shadow layer that suppresses equal-valued re-writes").
type shadow struct {
	values [0x200]uint8
	valid  [0x200]bool
}

func (s *shadow) write(chip Chip, addr uint16, value uint8) {
	if s.valid[addr] && s.values[addr] == value {
		return
	}
	s.values[addr] = value
	s.valid[addr] = true
	chip.WriteReg(addr, value)
}

// writeForce bypasses the suppression check, used for registers that carry
// state beyond their raw bits (FREQ_HI's key-on bit must always reach the
// chip even if the byte value happens to repeat).
func (s *shadow) writeForce(chip Chip, addr uint16, value uint8) {
	s.values[addr] = value
	s.valid[addr] = true
	chip.WriteReg(addr, value)
}

func (s *shadow) reset() {
	for i := range s.valid {
		s.valid[i] = false
	}
}
