package voice

import "testing"

func TestNewPoolAssignsArrayOffsets(t *testing.T) {
	p := NewPool()
	for i := 0; i < Count; i++ {
		v := p.Voice(i)
		wantArray := uint16(0)
		if i >= PerArray {
			wantArray = ArrayOffset
		}
		if v.ArrayOffset != wantArray {
			t.Fatalf("voice %d: ArrayOffset = 0x%X, want 0x%X", i, v.ArrayOffset, wantArray)
		}
		wantSlot := i % PerArray
		if v.IndexInArray != wantSlot {
			t.Fatalf("voice %d: IndexInArray = %d, want %d", i, v.IndexInArray, wantSlot)
		}
	}
}

func TestAllocateReturnsFirstFreeInOrder(t *testing.T) {
	p := NewPool()
	v0 := p.Allocate()
	if v0 != p.Voice(0) {
		t.Fatalf("first allocate should return voice 0")
	}
	v1 := p.Allocate()
	if v1 != p.Voice(1) {
		t.Fatalf("second allocate should return voice 1")
	}
}

func TestAllocateReturnsNilWhenFull(t *testing.T) {
	p := NewPool()
	for i := 0; i < Count; i++ {
		if p.Allocate() == nil {
			t.Fatalf("allocate %d unexpectedly failed before pool was full", i)
		}
	}
	if p.Allocate() != nil {
		t.Fatalf("allocate on a full pool should return nil")
	}
}

func TestStealPrefersDoubleVoiceSecondary(t *testing.T) {
	p := NewPool()
	for i := 0; i < Count; i++ {
		v := p.Allocate()
		v.Channel = i % 4
	}
	// Mark voice 5 as a double-voice secondary; it must be stolen first
	// regardless of channel ordering.
	p.Voice(5).InstrVoiceIdx = 1

	var released *Voice
	victim := p.Steal(0, func(v *Voice) { released = v })
	if victim != p.Voice(5) {
		t.Fatalf("expected voice 5 (double-voice secondary) to be stolen, got index %d", victim.IndexInArray)
	}
	if released != p.Voice(5) {
		t.Fatalf("release callback was not invoked on the stolen voice")
	}
	if !victim.InUse {
		t.Fatalf("stolen voice should come back freshly allocated (InUse)")
	}
}

func TestStealPrefersHighestChannelWithTieToLaterVoice(t *testing.T) {
	p := NewPool()
	for i := 0; i < Count; i++ {
		v := p.Allocate()
		v.Channel = 3 // all voices share the same channel to force a tie
	}
	victim := p.Steal(0, func(v *Voice) {})
	if victim != p.Voice(Count-1) {
		t.Fatalf("tie should resolve to the last voice in scan order, got index %d (array %d)", victim.IndexInArray, victim.ArrayOffset)
	}
}

func TestReleaseClearsOwnershipButKeepsShadowState(t *testing.T) {
	p := NewPool()
	v := p.Allocate()
	v.Channel = 2
	v.FreqReg = 0x1234
	v.CarLevel = 0x15
	p.Release(v)

	if v.InUse {
		t.Fatalf("released voice should not be InUse")
	}
	if v.Instr != nil {
		t.Fatalf("released voice should clear its instrument reference")
	}
	if v.FreqReg != 0x1234 {
		t.Fatalf("release must preserve the freq shadow register, got 0x%X", v.FreqReg)
	}
	if v.CarLevel != 0x15 {
		t.Fatalf("release must preserve the carrier level shadow, got 0x%X", v.CarLevel)
	}
}

func TestReleaseAllForOnlyTouchesOwningChannel(t *testing.T) {
	p := NewPool()
	a := p.Allocate()
	a.Channel = 1
	b := p.Allocate()
	b.Channel = 2

	var releasedCount int
	p.ReleaseAllFor(1, func(v *Voice) { releasedCount++ })

	if releasedCount != 1 {
		t.Fatalf("expected exactly 1 voice released for channel 1, got %d", releasedCount)
	}
	if a.InUse {
		t.Fatalf("channel 1's voice should have been released")
	}
	if !b.InUse {
		t.Fatalf("channel 2's voice should be untouched")
	}
}

func TestReleaseAllReleasesEveryInUseVoiceRegardlessOfOwner(t *testing.T) {
	p := NewPool()
	a := p.Allocate()
	a.Channel = 1
	b := p.Allocate()
	b.Channel = 2

	var releasedCount int
	p.ReleaseAll(func(v *Voice) { releasedCount++ })

	if releasedCount != 2 {
		t.Fatalf("expected both in-use voices released, got %d", releasedCount)
	}
	if a.InUse || b.InUse {
		t.Fatalf("ReleaseAll must free every in-use voice")
	}
}

func TestReleaseMatchingContinuesPastFirstMatch(t *testing.T) {
	p := NewPool()
	a := p.Allocate()
	a.Channel = 0
	a.Key = 60
	b := p.Allocate()
	b.Channel = 0
	b.Key = 60 // double-voice secondary sharing the same key

	var releasedCount int
	p.ReleaseMatching(0, 60, func(v *Voice) { releasedCount++ })

	if releasedCount != 2 {
		t.Fatalf("expected both matching voices released, got %d", releasedCount)
	}
}
