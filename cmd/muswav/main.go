// Command muswav is a thin, headless wrapper over internal/player: it
// renders a MUS score to a 16-bit stereo WAV file without opening an audio
// device or a window (spec §1: "a CLI/WAV-writer utility... thin wrappers
// over the core").
//
// The WAV header layout (RIFF/WAVE/fmt/data chunk byte offsets) is
// grounded on other_examples' entooone-simple-midi-synth wav.go, adapted
// from that package's float32-sample, seekable writer down to a single
// streamed 16-bit render pass.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"os"

	"libmusdoom/internal/chip"
	"libmusdoom/internal/player"
)

const (
	sampleRate   = 44100
	renderChunk  = 4096
	maxRenderSec = 600 // hard stop for a non-looping score that never ends cleanly
)

func main() {
	genmidiPath := flag.String("genmidi", "", "path to a GENMIDI instrument lump")
	musPath := flag.String("mus", "", "path to a MUS score")
	outPath := flag.String("out", "out.wav", "output WAV file path")
	volume := flag.Int("volume", 100, "master volume (0-127)")
	flag.Parse()

	if *genmidiPath == "" || *musPath == "" {
		fmt.Println("Usage: muswav -genmidi <path> -mus <path> -out <path>")
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

	p := player.New(chip.New(), player.Config{SampleRate: sampleRate, InitialVolume: *volume})
	defer p.Destroy()
	if err := p.LoadGENMIDI(genmidiData); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading GENMIDI: %v\n", err)
		os.Exit(1)
	}
	if err := p.LoadMUS(musData); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading MUS score: %v\n", err)
		os.Exit(1)
	}
	if err := p.Start(false); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting playback: %v\n", err)
		os.Exit(1)
	}

	samples := make([]int16, 0, sampleRate*2)
	buf := make([]int16, renderChunk*2)
	maxFrames := sampleRate * maxRenderSec
	rendered := 0
	for p.IsPlaying() && rendered < maxFrames {
		n, err := p.GenerateSamples(buf, renderChunk)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating samples: %v\n", err)
			os.Exit(1)
		}
		samples = append(samples, buf[:n*2]...)
		rendered += n
	}

	if err := writeWAV(*outPath, samples); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing WAV file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %s (%d frames, %.2fs)\n", *outPath, rendered, float64(rendered)/sampleRate)
}

// writeWAV writes samples (interleaved stereo int16) as a standard 44-byte
// header PCM WAV file.
func writeWAV(path string, samples []int16) error {
	const (
		numChannels   = 2
		bitsPerSample = 16
	)
	dataSize := len(samples) * 2
	byteRate := sampleRate * numChannels * (bitsPerSample / 8)
	blockAlign := numChannels * (bitsPerSample / 8)

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], numChannels)
	binary.LittleEndian.PutUint32(header[24:28], sampleRate)
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataSize))

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(header); err != nil {
		return err
	}
	data := make([]byte, dataSize)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[2*i:2*i+2], uint16(s))
	}
	_, err = f.Write(data)
	return err
}
