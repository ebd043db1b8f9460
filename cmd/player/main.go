// Command player is a thin wrapper over internal/player and internal/ui: it
// reads a GENMIDI bank and a MUS score from disk, opens an SDL2 audio
// device, and drives a Fyne transport-control window (spec §6's intended
// host program).
//
// Grounded on the teacher's cmd/emulator/main.go for flag parsing and
// startup sequencing, and on internal/ui/ui.go's SDL audio-queue loop
// (OpenAudioDevice/QueueAudio/GetQueuedAudioSize) for feeding the chip's
// PCM output to the sound card.
package main

import (
	"flag"
	"fmt"
	"os"

	"libmusdoom/internal/chip"
	"libmusdoom/internal/debug"
	"libmusdoom/internal/player"
	"libmusdoom/internal/ui"

	"github.com/veandco/go-sdl2/sdl"
)

const (
	audioSampleRate = 44100
	audioBufFrames  = 1024
	maxQueuedBytes  = audioBufFrames * 4 * 4 // ~4 buffers of headroom
)

func main() {
	genmidiPath := flag.String("genmidi", "", "path to a GENMIDI instrument lump")
	musPath := flag.String("mus", "", "path to a MUS score")
	loop := flag.Bool("loop", false, "loop the score when it ends")
	volume := flag.Int("volume", 100, "initial master volume (0-127)")
	enableLogging := flag.Bool("log", false, "enable diagnostic logging")
	flag.Parse()

	if *genmidiPath == "" || *musPath == "" {
		fmt.Println("Usage: player -genmidi <path> -mus <path>")
		fmt.Println("  -genmidi <path>  Path to a GENMIDI instrument lump")
		fmt.Println("  -mus <path>      Path to a MUS score")
		fmt.Println("  -loop            Loop the score when it ends")
		fmt.Println("  -volume <0-127>  Initial master volume (default: 100)")
		fmt.Println("  -log             Enable diagnostic logging")
		os.Exit(1)
	}

	genmidiData, err := os.ReadFile(*genmidiPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading GENMIDI file: %v\n", err)
		os.Exit(1)
	}
	musData, err := os.ReadFile(*musPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading MUS file: %v\n", err)
		os.Exit(1)
	}

	var logger *debug.Logger
	if *enableLogging {
		logger = debug.NewLogger(10000)
		logger.SetComponentEnabled(debug.ComponentBank, true)
		logger.SetComponentEnabled(debug.ComponentMus, true)
		logger.SetComponentEnabled(debug.ComponentVoice, true)
		logger.SetComponentEnabled(debug.ComponentChannel, true)
		logger.SetComponentEnabled(debug.ComponentOPL, true)
		logger.SetComponentEnabled(debug.ComponentPlayer, true)
		logger.SetComponentEnabled(debug.ComponentUI, true)
		logger.SetComponentEnabled(debug.ComponentSystem, true)
	}

	p := player.New(chip.New(), player.Config{
		SampleRate:    audioSampleRate,
		InitialVolume: *volume,
	})
	defer p.Destroy()
	if logger != nil {
		p.SetLogger(logger)
	}

	if err := p.LoadGENMIDI(genmidiData); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading GENMIDI: %v\n", err)
		os.Exit(1)
	}
	if err := p.LoadMUS(musData); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading MUS score: %v\n", err)
		os.Exit(1)
	}

	if err := sdl.Init(sdl.INIT_AUDIO); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing SDL audio: %v\n", err)
		os.Exit(1)
	}
	defer sdl.Quit()

	audioSpec := sdl.AudioSpec{
		Freq:     audioSampleRate,
		Format:   sdl.AUDIO_S16LSB,
		Channels: 2,
		Samples:  audioBufFrames,
	}
	audioDev, err := sdl.OpenAudioDevice("", false, &audioSpec, nil, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening audio device: %v\n", err)
		os.Exit(1)
	}
	defer sdl.CloseAudioDevice(audioDev)
	sdl.PauseAudioDevice(audioDev, false)

	if err := p.Start(*loop); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting playback: %v\n", err)
		os.Exit(1)
	}

	go pumpAudio(p, audioDev)

	win := ui.NewWindow(p, logger)
	if err := win.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "UI error: %v\n", err)
		os.Exit(1)
	}
}

// pumpAudio runs on its own goroutine, generating samples whenever the SDL
// audio queue runs low, mirroring the teacher's UI audio-queue throttling
// (internal/ui/ui.go's queuedBytes check) to avoid either starving or
// flooding the device.
func pumpAudio(p *player.Player, dev sdl.AudioDeviceID) {
	buf := make([]int16, audioBufFrames*2)
	for {
		queued := sdl.GetQueuedAudioSize(dev)
		if queued > maxQueuedBytes {
			sdl.Delay(1)
			continue
		}

		n, err := p.GenerateSamples(buf, audioBufFrames)
		if err != nil {
			sdl.Delay(1)
			continue
		}

		bytes := int16SliceToBytes(buf[:n*2])
		if err := sdl.QueueAudio(dev, bytes); err != nil {
			sdl.Delay(1)
		}
	}
}

func int16SliceToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return out
}
