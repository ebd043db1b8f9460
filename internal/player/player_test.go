package player

import (
	"encoding/binary"
	"errors"

	"testing"

	"libmusdoom/internal/chip"
	"libmusdoom/internal/muserr"
)

// --- MUS fixture helpers (mirrors internal/mus's own test helpers; this
// package cannot import them since they're unexported there) ---

func musHeader(scoreLen, scoreStart uint16) []byte {
	buf := make([]byte, 16)
	copy(buf[0:4], "MUS\x1a")
	binary.LittleEndian.PutUint16(buf[4:6], scoreLen)
	binary.LittleEndian.PutUint16(buf[6:8], scoreStart)
	binary.LittleEndian.PutUint16(buf[8:10], 16)
	binary.LittleEndian.PutUint16(buf[10:12], 0)
	binary.LittleEndian.PutUint16(buf[12:14], 1)
	return buf
}

func buildScore(score []byte) []byte {
	h := musHeader(uint16(len(score)), 16)
	return append(h, score...)
}

// --- GENMIDI fixture helpers ---

const genmidiEntrySize = 36

func genmidiRecord(flags uint16, fineTuning, fixedNote uint8) []byte {
	buf := make([]byte, genmidiEntrySize)
	binary.LittleEndian.PutUint16(buf[0:2], flags)
	buf[2] = fineTuning
	buf[3] = fixedNote
	// Both voice patches left zeroed: silent but harmless operator data,
	// enough to exercise register writes without asserting on acoustic
	// output (the reference chip is non-authoritative, spec §1).
	return buf
}

func fullGenmidiLump() []byte {
	data := []byte("#OPL_II#")
	for i := 0; i < 128; i++ {
		data = append(data, genmidiRecord(0, 128, 0)...)
	}
	for i := 0; i < 47; i++ {
		data = append(data, genmidiRecord(1, 128, uint8(35+i))...) // fixed-note percussion
	}
	return data
}

func newTestPlayer(t *testing.T) *Player {
	t.Helper()
	p := New(chip.New(), Config{SampleRate: 44100})
	if err := p.LoadGENMIDI(fullGenmidiLump()); err != nil {
		t.Fatalf("LoadGENMIDI: %v", err)
	}
	return p
}

// S1: empty score.
func TestEmptyScorePlaysSilenceAndStops(t *testing.T) {
	p := newTestPlayer(t)
	if err := p.LoadMUS(buildScore(nil)); err != nil {
		t.Fatalf("LoadMUS: %v", err)
	}
	if err := p.Start(false); err != nil {
		t.Fatalf("Start: %v", err)
	}

	out := make([]int16, 1024*2)
	n, err := p.GenerateSamples(out, 1024)
	if err != nil {
		t.Fatalf("GenerateSamples: %v", err)
	}
	if n != 1024 {
		t.Fatalf("GenerateSamples returned %d frames, want 1024", n)
	}
	if p.IsPlaying() {
		t.Fatalf("player should have stopped after an immediate end-of-score")
	}
}

func playNoteEvent(channel int, note uint8, withDelay uint8) []byte {
	status := byte(0x10 | channel)
	var b []byte
	if withDelay > 0 {
		status |= 0x80
	}
	b = append(b, status, note&0x7f)
	if withDelay > 0 {
		b = append(b, withDelay)
	}
	return b
}

func endOfScore() []byte {
	return []byte{0x60}
}

// S2: a single note-on should allocate exactly one voice.
func TestSingleNoteOnAllocatesOneVoice(t *testing.T) {
	p := newTestPlayer(t)
	var score []byte
	// The note carries a delay so end-of-score (which releases every voice)
	// is still pending when the voice count is checked.
	score = append(score, playNoteEvent(0, 60, 10)...)
	score = append(score, endOfScore()...)
	if err := p.LoadMUS(buildScore(score)); err != nil {
		t.Fatalf("LoadMUS: %v", err)
	}
	if err := p.Start(false); err != nil {
		t.Fatalf("Start: %v", err)
	}

	out := make([]int16, 16*2)
	if _, err := p.GenerateSamples(out, 16); err != nil {
		t.Fatalf("GenerateSamples: %v", err)
	}
	if got := p.VoicesInUse(); got != 1 {
		t.Fatalf("VoicesInUse() = %d, want 1 after a single note-on", got)
	}
}

// S4: the 19th sequential note-on on one channel forces a steal; 18 voices
// stay occupied and the original victim's note is gone. All voices belong to
// channel 0, so the tie resolves to the last voice in the scan (key 37).
func TestNineteenthNoteOnStealsAVoice(t *testing.T) {
	p := newTestPlayer(t)

	var score []byte
	for i := 0; i < 19; i++ {
		delay := uint8(0)
		if i > 0 {
			delay = 1 // one tick after each note-on but the first
		}
		score = append(score, playNoteEvent(0, uint8(20+i), delay)...)
	}
	score = append(score, endOfScore()...)

	if err := p.LoadMUS(buildScore(score)); err != nil {
		t.Fatalf("LoadMUS: %v", err)
	}
	if err := p.Start(false); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// The 19th note-on fires at tick 17 and end-of-score (which releases
	// every voice) at tick 18; render every sample before the latter.
	frames := 18 * (44100 / 140)
	out := make([]int16, frames*2)
	if _, err := p.GenerateSamples(out, frames); err != nil {
		t.Fatalf("GenerateSamples: %v", err)
	}

	if got := p.VoicesInUse(); got != 18 {
		t.Fatalf("VoicesInUse() = %d, want 18 (pool full) after a steal", got)
	}

	voices := p.Voices()
	for i := range voices {
		if voices[i].Key == 37 {
			t.Fatalf("voice %d still holds key 37, the note that should have been stolen", i)
		}
	}
}

// S6: all-notes-off (system event 11) releases every voice on a channel.
func TestAllNotesOffReleasesChannelVoices(t *testing.T) {
	p := newTestPlayer(t)

	var score []byte
	score = append(score, playNoteEvent(2, 40, 1)...)
	score = append(score, playNoteEvent(2, 44, 1)...)
	score = append(score, playNoteEvent(2, 47, 1)...)
	// System event: type=0x30, channel=2, code=11 (all notes off), followed
	// by a long delay so end-of-score (which releases every voice on its
	// own) has not fired when the voices are counted.
	score = append(score, 0x80|0x30|2, 11, 100)
	score = append(score, endOfScore()...)

	if err := p.LoadMUS(buildScore(score)); err != nil {
		t.Fatalf("LoadMUS: %v", err)
	}
	if err := p.Start(false); err != nil {
		t.Fatalf("Start: %v", err)
	}

	out := make([]int16, 4410*2)
	if _, err := p.GenerateSamples(out, 4410); err != nil {
		t.Fatalf("GenerateSamples: %v", err)
	}

	if got := p.VoicesInUse(); got != 0 {
		t.Fatalf("VoicesInUse() = %d, want 0 after all-notes-off", got)
	}
}

// Property 5: SetVolume/GetVolume round-trip through a clamp.
func TestSetVolumeClampsToRange(t *testing.T) {
	p := newTestPlayer(t)
	cases := []struct{ in, want int }{
		{-10, 0},
		{0, 0},
		{100, 100},
		{127, 127},
		{500, 127},
	}
	for _, c := range cases {
		p.SetVolume(c.in)
		if got := p.GetVolume(); got != c.want {
			t.Fatalf("SetVolume(%d) -> GetVolume() = %d, want %d", c.in, got, c.want)
		}
	}
}

// Property 6: with looping, a second pass through a score starts from the
// same channel/voice state as the first (note-off completeness carries
// across the loop boundary).
func TestLoopingResetsStateBetweenPasses(t *testing.T) {
	p := newTestPlayer(t)

	var score []byte
	score = append(score, playNoteEvent(0, 60, 10)...) // note-on, then a short delay
	score = append(score, endOfScore()...)

	if err := p.LoadMUS(buildScore(score)); err != nil {
		t.Fatalf("LoadMUS: %v", err)
	}
	if err := p.Start(true); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Run past two full loops (10 ticks each pass at 44100Hz/140Hz).
	samplesPerTick := 44100 / 140
	out := make([]int16, (samplesPerTick*25)*2)
	if _, err := p.GenerateSamples(out, samplesPerTick*25); err != nil {
		t.Fatalf("GenerateSamples: %v", err)
	}

	if !p.IsPlaying() {
		t.Fatalf("looping player should still be playing after its score ended once")
	}
	// Each pass keys the same note without a note-off; only the reset at the
	// loop boundary keeps that to a single sounding voice.
	if got := p.VoicesInUse(); got != 1 {
		t.Fatalf("VoicesInUse() = %d after looping, want 1 (voices released between passes)", got)
	}
}

// Start without a loaded score must surface NotInitialized (spec §7).
func TestStartWithoutScoreIsNotInitialized(t *testing.T) {
	p := New(chip.New(), Config{})
	if err := p.Start(false); !errors.Is(err, muserr.KindNotInitialized) {
		t.Fatalf("Start with no loaded score: got %v, want NotInitialized", err)
	}
}

func TestGenerateSamplesRejectsUndersizedBuffer(t *testing.T) {
	p := newTestPlayer(t)
	if err := p.LoadMUS(buildScore(endOfScore())); err != nil {
		t.Fatalf("LoadMUS: %v", err)
	}
	if err := p.Start(false); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, err := p.GenerateSamples(make([]int16, 4), 100)
	if err == nil {
		t.Fatalf("GenerateSamples should reject an undersized output buffer")
	}
}
