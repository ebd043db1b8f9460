// Package player implements the public surface spec §6 describes (create,
// load, transport control, sample generation) and the Scheduler/Sample Pump
// of spec §4.6, component C7: it owns the MUS reader, channel bank, voice
// pool and OPL programmer, and drives them from a sample-accurate event
// clock.
//
// Grounded on the teacher's internal/emulator/emulator.go: Config mirrors
// NewEmulatorWithLogger's logger-injection shape, and Start/Stop/Pause/
// Resume/GenerateSamples follow the same lifecycle the teacher's
// Start/Stop/Pause/Resume/RunFrame do, narrowed from a 60 FPS video frame
// loop to a per-sample audio pump.
package player

import (
	"libmusdoom/internal/bank"
	"libmusdoom/internal/channel"
	"libmusdoom/internal/clock"
	"libmusdoom/internal/debug"
	"libmusdoom/internal/mus"
	"libmusdoom/internal/muserr"
	"libmusdoom/internal/opl"
	"libmusdoom/internal/voice"
)

// OPLType selects the emulated chip family (spec §6 Config).
type OPLType int

const (
	// OPLUnset is the zero value: New resolves it to OPL3.
	OPLUnset OPLType = iota
	OPL2
	OPL3
)

// DoomVersion selects which DMX driver revision's quirks to emulate. The
// revisions are informational only in this implementation: no behavior in
// this module currently branches on it.
type DoomVersion int

const (
	// DoomVersionUnset is the zero value: New resolves it to Doom 1.9.
	DoomVersionUnset DoomVersion = iota
	DoomV1_1_666
	DoomV2_1_666
	DoomV1_9
)

// percussionChannel is the internal channel index the MUS 15<->9 remap
// always routes percussion onto (spec §4.2, §9 open question: the swap is
// kept as a renumbering, not a reservation — channel 9 is reachable only
// via MUS channel 15, and vice versa).
const percussionChannel = 9

// placeholderLengthMS is the fixed 3-minute stub GetLengthMS returns,
// matching the original DMX driver's own unimplemented length query
// (spec §9 open question 3).
const placeholderLengthMS = 3 * 60 * 1000

const (
	defaultSampleRate    = 44100
	defaultInitialVolume = 100
	masterVolumeMax      = 127
)

// Config mirrors spec §6's configuration object. A zero-value field means
// "use the default", the same convention the teacher's emulator
// constructor uses for its defaults.
type Config struct {
	SampleRate    int
	OPLType       OPLType
	DoomVersion   DoomVersion
	InitialVolume int
}

func (c Config) resolved() Config {
	if c.SampleRate == 0 {
		c.SampleRate = defaultSampleRate
	}
	if c.OPLType == OPLUnset {
		c.OPLType = OPL3
	}
	if c.DoomVersion == DoomVersionUnset {
		c.DoomVersion = DoomV1_9
	}
	if c.InitialVolume == 0 {
		c.InitialVolume = defaultInitialVolume
	}
	return c
}

// Player is the core engine: MUS reader + channel bank + voice pool + OPL
// programmer driven by a sample-accurate clock. A Player is not safe for
// concurrent use (spec §5): confine all calls to one goroutine.
type Player struct {
	cfg    Config
	logger *debug.Logger

	bank        *bank.Bank
	bankLoaded  bool
	scoreData   []byte
	reader      *mus.Reader
	scoreLoaded bool

	channels   *channel.Bank
	voices     *voice.Pool
	programmer *opl.Programmer
	clock      *clock.Scheduler

	playing bool
	paused  bool
	looping bool

	masterVolume int
}

// New builds a Player bound to chip (the external FM synthesis collaborator,
// spec §6) and the given configuration. The OPL hardware is brought to a
// known silent state immediately (spec §4.5's constructor sequence).
func New(chip opl.Chip, cfg Config) *Player {
	cfg = cfg.resolved()

	channels := channel.NewBank()
	voices := voice.NewPool()
	programmer := opl.NewProgrammer(chip, voices, channels)
	programmer.Init(cfg.SampleRate)

	return &Player{
		cfg:          cfg,
		channels:     channels,
		voices:       voices,
		programmer:   programmer,
		clock:        clock.NewScheduler(cfg.SampleRate),
		masterVolume: channel.ClampVolume(cfg.InitialVolume),
	}
}

// SetLogger attaches a logger for diagnostic output; nil disables logging
// (the default). The logger is also handed to internal/opl's Programmer so
// ComponentVoice (steals) and ComponentOPL (key-on/off) entries are emitted
// when those components are individually enabled.
func (p *Player) SetLogger(l *debug.Logger) {
	p.logger = l
	p.programmer.SetLogger(l)
}

func (p *Player) logf(level debug.LogLevel, format string, args ...interface{}) {
	if p.logger == nil {
		return
	}
	p.logger.LogPlayerf(level, format, args...)
}

// LoadGENMIDI parses and installs a new instrument bank (spec §4.1). The
// swap is atomic: voices already sounding keep referencing the instrument
// data they were keyed on with, since Bank entries are never mutated in
// place once built. A failed load leaves the previously loaded bank (if
// any) installed, per spec §7.
func (p *Player) LoadGENMIDI(data []byte) error {
	b, err := bank.Load(data)
	if err != nil {
		return err
	}
	p.bank = b
	p.bankLoaded = true
	if p.logger != nil {
		p.logger.LogBankf(debug.LogLevelInfo, "genmidi loaded: %d bytes", len(data))
	}
	return nil
}

// LoadMUS parses a MUS score's header and positions a reader at its first
// event (spec §4.2). A failed load leaves any previously loaded score
// playable, per spec §7.
func (p *Player) LoadMUS(data []byte) error {
	r, err := mus.NewReader(data)
	if err != nil {
		return err
	}
	p.scoreData = data
	p.reader = r
	p.scoreLoaded = true
	if p.logger != nil {
		p.logger.LogMusf(debug.LogLevelInfo, "mus score loaded: %d bytes", len(data))
	}
	return nil
}

// Unload discards the currently loaded score, stopping playback first.
func (p *Player) Unload() {
	p.stopInternal()
	p.reader = nil
	p.scoreData = nil
	p.scoreLoaded = false
}

// Destroy stops playback, releases the loaded score and bank, and detaches
// the logger, rounding out the public surface spec §6 names as `destroy`.
// The player owns no goroutine and the chip/logger it holds are injected by
// the caller, so there is nothing else for Go's garbage collector to need
// help with; callers that want to reuse the Player after Destroy should
// call LoadGENMIDI/LoadMUS again first.
func (p *Player) Destroy() {
	p.Unload()
	p.bank = nil
	p.bankLoaded = false
	p.logger = nil
}

// Start begins playback from the top of the loaded score, or returns
// muserr.NotInitialized if no score is loaded (spec §7).
func (p *Player) Start(looping bool) error {
	if !p.scoreLoaded {
		return muserr.New(muserr.NotInitialized, "start called before a MUS score was loaded")
	}
	p.looping = looping
	p.restart()
	p.playing = true
	p.paused = false
	p.logf(debug.LogLevelInfo, "playback started (looping=%v)", looping)
	return nil
}

// restart rewinds the score and returns every piece of mutable state to its
// construction-time default, so that a fresh Start (or a loop back to the
// top) always begins from the same conditions (spec §8 property 6: loop
// fidelity).
func (p *Player) restart() {
	if p.reader != nil {
		p.reader.Rewind()
	}
	p.programmer.ReleaseAll()
	p.channels.ResetAll()
	p.clock.Reset()
}

// Stop halts playback; GenerateSamples produces silence afterward without
// advancing the clock (spec §4.6, §7: idempotent).
func (p *Player) Stop() {
	p.stopInternal()
}

func (p *Player) stopInternal() {
	if !p.playing {
		return
	}
	p.playing = false
	p.paused = false
	p.programmer.ReleaseAll()
}

// Pause freezes sample generation (the clock does not advance) without
// releasing voices, so Resume picks back up exactly where playback left
// off.
func (p *Player) Pause() {
	if p.playing {
		p.paused = true
	}
}

// Resume undoes Pause.
func (p *Player) Resume() {
	if p.playing {
		p.paused = false
	}
}

// IsPlaying reports whether the player is actively advancing the clock and
// producing audio (false once Stop is called, and while Paused).
func (p *Player) IsPlaying() bool {
	return p.playing && !p.paused
}

// SetVolume clamps v into [0,127] and installs it as the player's master
// volume (spec §8 property 5).
func (p *Player) SetVolume(v int) {
	p.masterVolume = channel.ClampVolume(v)
}

// GetVolume returns the current master volume.
func (p *Player) GetVolume() int {
	return p.masterVolume
}

// GetPositionMS returns the approximate playback position in milliseconds,
// derived from the sample clock.
func (p *Player) GetPositionMS() int64 {
	return int64(p.clock.CurrentSample()) * 1000 / int64(p.cfg.SampleRate)
}

// VoicesInUse reports how many of the 18 hardware voices are currently
// sounding, for the UI's status bar and for diagnostics.
func (p *Player) VoicesInUse() int {
	n := 0
	voices := p.voices.Voices()
	for i := range voices {
		if voices[i].InUse {
			n++
		}
	}
	return n
}

// Voices exposes the voice pool's array for read-only inspection by the UI
// (spec's voice panel) and tests. Callers must not mutate it.
func (p *Player) Voices() *[voice.Count]voice.Voice {
	return p.voices.Voices()
}

// GetLengthMS returns a fixed placeholder length, matching the original DMX
// driver's own stubbed behavior; it is not a real pre-scanned duration
// (spec §9 open question 3).
func (p *Player) GetLengthMS() int64 {
	return placeholderLengthMS
}

// SeekMS restarts playback and fast-forwards the event clock by the
// approximate number of 140 Hz ticks the requested offset represents, so
// GetPositionMS reports the requested position. The score reader is rewound,
// not advanced: no events are skipped, and playback continues from the
// score's first event with channel and voice state at their defaults. This
// is explicitly NOT sample-accurate seeking (spec Non-goals, §9).
func (p *Player) SeekMS(ms int64) {
	if !p.scoreLoaded {
		return
	}
	wasPlaying := p.playing
	p.restart()
	ticks := uint32(ms * clock.TickRate / 1000)
	p.clock.FastForward(ticks)
	p.playing = wasPlaying
	p.paused = false
}

// GenerateSamples renders nFrames stereo frames into out (interleaved L/R,
// 2*nFrames int16 values) and returns the number of frames written, which
// is always nFrames (spec §5: "generate_samples is bounded by the requested
// sample count"). It returns muserr.InvalidParam if out is too small.
func (p *Player) GenerateSamples(out []int16, nFrames int) (int, error) {
	if nFrames <= 0 {
		return 0, muserr.New(muserr.InvalidParam, "nFrames must be positive")
	}
	if len(out) < nFrames*2 {
		return 0, muserr.Newf(muserr.InvalidParam, "output buffer too small: need %d int16s, got %d", nFrames*2, len(out))
	}

	for i := 0; i < nFrames; i++ {
		if !p.IsPlaying() {
			out[2*i] = 0
			out[2*i+1] = 0
			continue
		}

		p.pumpEvents()
		l, r := p.chipSample()
		out[2*i] = l
		out[2*i+1] = r
		p.clock.Tick()
	}
	return nFrames, nil
}

func (p *Player) chipSample() (int16, int16) {
	l, r := p.programmer.Chip().GenerateResampledStereo()
	return scaleSample(l, p.masterVolume), scaleSample(r, p.masterVolume)
}

func scaleSample(s int16, volume int) int16 {
	if volume >= masterVolumeMax {
		return s
	}
	return int16((int32(s) * int32(volume)) / masterVolumeMax)
}

// pumpEvents processes every event due at or before the current sample, per
// spec §4.6 step 1: "While playing && current_sample >= next_event_sample:
// process one event."
func (p *Player) pumpEvents() {
	for p.playing && p.clock.Due() {
		ev, err := p.reader.Next()
		if err != nil {
			if p.logger != nil {
				p.logger.LogMusf(debug.LogLevelWarning, "malformed score: %v", err)
			}
			p.onEndOfScore()
			return
		}
		if ev.Type == mus.EventEndOfScore {
			p.onEndOfScore()
			return
		}

		p.dispatch(ev)

		if ev.HasDelay {
			p.clock.Advance(ev.Delay)
		}
	}
}

func (p *Player) onEndOfScore() {
	if p.looping {
		p.logf(debug.LogLevelDebug, "end of score, looping")
		p.restart()
		return
	}
	p.logf(debug.LogLevelInfo, "end of score, stopping")
	p.stopInternal()
}

func (p *Player) dispatch(ev mus.Event) {
	ch := p.channels.Channel(ev.Channel)

	switch ev.Type {
	case mus.EventReleaseNote:
		p.programmer.KeyOff(ev.Channel, ev.Note)

	case mus.EventPlayNote:
		if ev.HasVelocity {
			ch.LastVelocity = int(ev.Velocity)
		}
		instr, ok := p.instrumentFor(ev.Channel, ev.Note, ch)
		if !ok {
			return
		}
		p.programmer.KeyOn(ev.Channel, ev.Note, uint8(ch.LastVelocity), instr)

	case mus.EventPitchBend:
		p.programmer.ApplyPitchBend(ev.Channel, ev.PitchBend)

	case mus.EventSystem:
		if p.logger != nil {
			p.logger.LogSystemf(debug.LogLevelDebug, "system event %d on channel %d", ev.SystemCode, ev.Channel)
		}
		switch ev.SystemCode {
		case mus.SysAllSoundsOff, mus.SysAllNotesOff:
			p.programmer.ReleaseAllFor(ev.Channel)
		case mus.SysResetControllers:
			p.programmer.ResetControllers(ev.Channel)
		}

	case mus.EventController:
		p.dispatchController(ev)
	}
}

func (p *Player) dispatchController(ev mus.Event) {
	switch ev.Controller {
	case mus.CtrlProgramChange:
		p.programmer.SetProgram(ev.Channel, int(ev.ControllerValue))
	case mus.CtrlVolume:
		p.programmer.SetChannelVolume(ev.Channel, int(ev.ControllerValue))
	case mus.CtrlPan:
		p.programmer.SetChannelPan(ev.Channel, int(ev.ControllerValue))
	case mus.CtrlAllSoundsOff, mus.CtrlAllNotesOff:
		p.programmer.ReleaseAllFor(ev.Channel)
	case mus.CtrlResetAll:
		p.programmer.ResetControllers(ev.Channel)
	}
}

// instrumentFor resolves a play-note event's instrument: the fixed
// percussion bank for the percussion channel, or the melodic bank indexed
// by the channel's current program otherwise (spec §4.2, §9 open question
// on the 9/15 channel swap).
func (p *Player) instrumentFor(channelIdx int, note uint8, ch *channel.Channel) (*bank.Instrument, bool) {
	if !p.bankLoaded {
		return nil, false
	}
	if channelIdx == percussionChannel {
		return p.bank.PercussionInstrument(int(note))
	}
	return p.bank.MelodicInstrument(ch.Program), true
}
