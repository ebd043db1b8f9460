package channel

import "testing"

func TestNewBankDefaults(t *testing.T) {
	b := NewBank()
	for i := 0; i < Count; i++ {
		c := b.Channel(i)
		if c.Volume != defaultVolume {
			t.Fatalf("channel %d: Volume = %d, want %d", i, c.Volume, defaultVolume)
		}
		if c.PanReg != PanCenter {
			t.Fatalf("channel %d: PanReg = 0x%X, want 0x%X", i, c.PanReg, PanCenter)
		}
		if c.LastVelocity != defaultLastVelocity {
			t.Fatalf("channel %d: LastVelocity = %d, want %d", i, c.LastVelocity, defaultLastVelocity)
		}
		if c.Bend != 0 {
			t.Fatalf("channel %d: Bend = %d, want 0", i, c.Bend)
		}
	}
}

func TestResetControllersLeavesProgramAndVelocityAlone(t *testing.T) {
	b := NewBank()
	c := b.Channel(0)
	c.Program = 40
	c.LastVelocity = 80
	c.Volume = 10
	c.PanReg = PanLeft
	c.Bend = 30

	b.ResetControllers(0)

	if c.Program != 40 {
		t.Fatalf("ResetControllers must not touch Program, got %d", c.Program)
	}
	if c.LastVelocity != 80 {
		t.Fatalf("ResetControllers must not touch LastVelocity, got %d", c.LastVelocity)
	}
	if c.Volume != defaultVolume || c.PanReg != PanCenter || c.Bend != 0 {
		t.Fatalf("ResetControllers left volume/pan/bend wrong: %+v", c)
	}
}

func TestResetAllRestoresEveryChannelToConstructionDefaults(t *testing.T) {
	b := NewBank()
	for i := 0; i < Count; i++ {
		c := b.Channel(i)
		c.Program = 12
		c.Volume = 5
		c.PanReg = PanLeft
		c.Bend = 20
		c.LastVelocity = 1
	}

	b.ResetAll()

	for i := 0; i < Count; i++ {
		c := b.Channel(i)
		if c.Program != 0 {
			t.Fatalf("channel %d: Program = %d after ResetAll, want 0", i, c.Program)
		}
		if c.Volume != defaultVolume || c.PanReg != PanCenter || c.Bend != 0 || c.LastVelocity != defaultLastVelocity {
			t.Fatalf("channel %d not restored to defaults: %+v", i, c)
		}
	}
}

func TestPanFromMidi(t *testing.T) {
	cases := []struct {
		in   int
		want uint8
	}{
		{0, PanLeft},
		{48, PanLeft},
		{49, PanCenter},
		{95, PanCenter},
		{96, PanRight},
		{127, PanRight},
	}
	for _, c := range cases {
		if got := PanFromMidi(c.in); got != c.want {
			t.Fatalf("PanFromMidi(%d) = 0x%X, want 0x%X", c.in, got, c.want)
		}
	}
}

func TestClampVolume(t *testing.T) {
	if ClampVolume(-10) != 0 {
		t.Fatalf("ClampVolume(-10) should clamp to 0")
	}
	if ClampVolume(200) != 127 {
		t.Fatalf("ClampVolume(200) should clamp to 127")
	}
	if ClampVolume(64) != 64 {
		t.Fatalf("ClampVolume(64) should pass through unchanged")
	}
}
