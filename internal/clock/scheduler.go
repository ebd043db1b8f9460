// Package clock drives the sample-accurate event clock the player uses to
// interleave MUS event dispatch with PCM generation (spec §4.6, component
// C7): a 140 Hz tick stream converted to sample indices without drift.
package clock

// TickRate is the MUS score's fixed event-clock frequency in Hz.
const TickRate = 140

// Scheduler tracks the sample position of playback and the sample index at
// which the next queued event must fire, using exact rational arithmetic so
// that delay_ticks*rate/140 never accumulates rounding error (spec §8,
// property 3: "the accumulated absolute error over 10^9 ticks is 0").
//
// This replaces the teacher's cycle-oriented MasterClock (which coordinated
// CPU/PPU/APU component stepping) with the narrower sample/event-tick
// relationship this domain actually needs; the "advance by the minimum step
// needed" shape survives as Due/Advance below.
type Scheduler struct {
	sampleRate uint64

	currentSample   uint64
	nextEventSample uint64
	remainder       uint64
}

// NewScheduler builds a Scheduler for the given output sample rate. The
// clock starts at sample 0 with the first event already due.
func NewScheduler(sampleRate int) *Scheduler {
	return &Scheduler{sampleRate: uint64(sampleRate)}
}

// Reset returns the clock to sample 0 with the first event immediately due,
// as playback restart or loop-back requires (spec §4.6).
func (s *Scheduler) Reset() {
	s.currentSample = 0
	s.nextEventSample = 0
	s.remainder = 0
}

// CurrentSample is the sample index since the clock was last Reset.
func (s *Scheduler) CurrentSample() uint64 {
	return s.currentSample
}

// Due reports whether the event clock has reached or passed the sample
// index the next queued event is scheduled for.
func (s *Scheduler) Due() bool {
	return s.currentSample >= s.nextEventSample
}

// Advance schedules the next event delayTicks 140 Hz ticks from now,
// exactly as spec §4.6 describes: next_event_sample advances by
// (remainder + delay*rate)/140, and the remainder carries the division's
// fractional part forward so no error accumulates across events.
func (s *Scheduler) Advance(delayTicks uint32) {
	acc := s.remainder + uint64(delayTicks)*s.sampleRate
	s.nextEventSample += acc / TickRate
	s.remainder = acc % TickRate
}

// Tick moves the sample clock forward by one generated sample.
func (s *Scheduler) Tick() {
	s.currentSample++
}

// FastForward advances the clock as if totalTicks 140 Hz ticks had already
// elapsed, without generating any samples. Used by the player's approximate
// seek (spec §9: seek is restart-and-fast-forward, not sample-accurate).
func (s *Scheduler) FastForward(totalTicks uint32) {
	s.Advance(totalTicks)
	s.currentSample = s.nextEventSample
}
