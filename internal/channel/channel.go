// Package channel holds the 16 MUS-channel state blocks driven by the event
// stream (spec §4.5 references these fields; data model in spec §3,
// component C5).
package channel

// Count is the number of MUS channels, indices 0-15 (channel 9 and 15 are
// swapped by the reader's remap, not special-cased here).
const Count = 16

// Pan register values written into the OPL feedback byte's pan bits.
const (
	PanLeft   = 0x20
	PanRight  = 0x10
	PanCenter = 0x30
)

const (
	defaultVolume       = 100
	defaultLastVelocity = 127
)

// Channel is one MUS channel's persistent state (spec §3).
type Channel struct {
	Program      int
	Volume       int
	PanReg       uint8
	Bend         int
	LastVelocity int
}

// reset sets a channel back to its default state (spec §3 defaults, and the
// values spec §4.5's "reset controllers" controller restores).
func (c *Channel) reset() {
	c.Program = 0
	c.Volume = defaultVolume
	c.PanReg = PanCenter
	c.Bend = 0
	c.LastVelocity = defaultLastVelocity
}

// Bank is the fixed set of 16 channels.
type Bank struct {
	channels [Count]Channel
}

// NewBank constructs 16 channels at their documented defaults.
func NewBank() *Bank {
	b := &Bank{}
	for i := range b.channels {
		b.channels[i].reset()
	}
	return b
}

// Channel returns a pointer to channel i for in-place mutation.
func (b *Bank) Channel(i int) *Channel {
	return &b.channels[i]
}

// ResetControllers restores channel i to its default volume/pan/bend, as
// MUS controller 14 requires. Program and last_velocity are left as-is;
// only the fields spec §4.5 names for this controller are reset.
func (b *Bank) ResetControllers(i int) {
	c := &b.channels[i]
	c.Volume = defaultVolume
	c.PanReg = PanCenter
	c.Bend = 0
}

// ResetAll restores every channel to its full construction-time default,
// used by the player when (re)starting a score so a second pass of a
// looping score begins from the same state the first pass did.
func (b *Bank) ResetAll() {
	for i := range b.channels {
		b.channels[i].reset()
	}
}

// PanFromMidi converts a 0-127 MIDI pan value to the OPL pan-register
// encoding per spec §4.5: <=48 -> left, >=96 -> right, else center.
func PanFromMidi(value int) uint8 {
	switch {
	case value <= 48:
		return PanLeft
	case value >= 96:
		return PanRight
	default:
		return PanCenter
	}
}

// ClampVolume clamps a channel volume controller value to [0,127] per spec
// §4.5's set_channel_volume.
func ClampVolume(value int) int {
	if value < 0 {
		return 0
	}
	if value > 127 {
		return 127
	}
	return value
}
