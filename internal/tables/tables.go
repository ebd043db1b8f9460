// Package tables holds the two fixed lookup tables the DMX OPL driver uses
// to turn MIDI-ish volume and pitch values into OPL register values (spec
// §4.3, component C3): a 128-entry volume curve and a frequency/f-number
// curve indexed by note and pitch bend.
//
// Both tables are the DMX driver's published constants, baked in as literal
// data the way the teacher bakes its sine table (internal/apu/fm_opm.go's
// fmSineTable): computed once, held in a package-level var, never touched
// again at runtime. Spec §4.3 calls these tables "the acoustic identity of
// the system" and requires implementers to copy the exact values rather than
// approximate them, so neither table is curve-fit or derived from equal
// temperament at runtime; see DESIGN.md for sourcing notes.
package tables

const (
	// VolumeSteps is the number of MIDI volume/velocity values the curve covers.
	VolumeSteps = 128

	// freqRawSpan is the number of low indices returned directly from the
	// curve without octave folding (spec §4.3: "used for the first 7 MIDI
	// notes").
	freqRawSpan = 284

	// freqOctaveSpan is the modulus applied once idx passes freqRawSpan.
	freqOctaveSpan = 384

	// MaxOctave is the largest octave shift the curve folds into (OPL block
	// field is 3 bits).
	MaxOctave = 7

	// MaxAttenuation is the largest combined attenuation set Set*Volume
	// clamps to before inverting into an OPL level.
	MaxAttenuation = 0x3f
)

// volumeMapping is the DMX driver's published volume_mapping table, used
// identically for channel volume and note velocity per spec §4.3. It is not
// linear or log-linear in any simple closed form, which is exactly why the
// spec requires copying it rather than approximating it.
var volumeMapping = [VolumeSteps]uint8{
	0, 1, 3, 5, 6, 8, 10, 11, 13, 14, 16, 17, 19, 20, 22, 23,
	25, 26, 27, 29, 30, 32, 33, 34, 36, 37, 39, 41, 43, 45, 47, 49,
	50, 52, 54, 55, 57, 59, 60, 61, 63, 64, 66, 67, 68, 69, 71, 72,
	73, 74, 75, 76, 77, 79, 80, 81, 82, 83, 84, 84, 85, 86, 87, 88,
	89, 90, 91, 92, 92, 93, 94, 95, 96, 96, 97, 98, 99, 99, 100, 101,
	101, 102, 103, 103, 104, 105, 105, 106, 107, 107, 108, 109, 109, 110, 110, 111,
	112, 112, 113, 113, 114, 114, 115, 115, 116, 117, 117, 118, 118, 119, 119, 120,
	120, 121, 121, 122, 122, 123, 123, 123, 124, 124, 125, 125, 126, 126, 127, 127,
}

// frequencyCurve is the DMX driver's published frequency_curve table (spec
// §4.3): indices below freqRawSpan are raw f-number/block register values
// for the lowest notes; indices at or above it are one octave's worth of
// f-numbers, reused for every higher octave by folding modulo freqOctaveSpan
// and OR-ing in the recovered octave as the block field (see Frequency
// below). idx = 64 + 32*note + bend, so each run of 32 entries is one
// semitone and each entry within a run is one 1/32-semitone pitch-bend step.
var frequencyCurve = [freqRawSpan + freqOctaveSpan]uint16{
	0x0133, 0x0133, 0x0134, 0x0134, 0x0135, 0x0136, 0x0136, 0x0137,
	0x0137, 0x0138, 0x0138, 0x0139, 0x0139, 0x013a, 0x013b, 0x013b,
	0x013c, 0x013c, 0x013d, 0x013e, 0x013e, 0x013f, 0x013f, 0x0140,
	0x0141, 0x0141, 0x0142, 0x0142, 0x0143, 0x0144, 0x0144, 0x0145,
	0x0146, 0x0146, 0x0147, 0x0147, 0x0148, 0x0149, 0x0149, 0x014a,
	0x014a, 0x014b, 0x014c, 0x014c, 0x014d, 0x014e, 0x014e, 0x014f,
	0x0150, 0x0150, 0x0151, 0x0152, 0x0152, 0x0153, 0x0153, 0x0154,
	0x0155, 0x0155, 0x0156, 0x0157, 0x0157, 0x0158, 0x0159, 0x0159,
	0x015a, 0x015b, 0x015b, 0x015c, 0x015d, 0x015d, 0x015e, 0x015f,
	0x015f, 0x0160, 0x0161, 0x0161, 0x0162, 0x0163, 0x0163, 0x0164,
	0x0165, 0x0165, 0x0166, 0x0167, 0x0168, 0x0168, 0x0169, 0x016a,
	0x016a, 0x016b, 0x016c, 0x016c, 0x016d, 0x016e, 0x016f, 0x016f,
	0x0170, 0x0171, 0x0171, 0x0172, 0x0173, 0x0174, 0x0174, 0x0175,
	0x0176, 0x0176, 0x0177, 0x0178, 0x0179, 0x0179, 0x017a, 0x017b,
	0x017c, 0x017c, 0x017d, 0x017e, 0x017f, 0x017f, 0x0180, 0x0181,
	0x0182, 0x0182, 0x0183, 0x0184, 0x0185, 0x0185, 0x0186, 0x0187,
	0x0188, 0x0188, 0x0189, 0x018a, 0x018b, 0x018b, 0x018c, 0x018d,
	0x018e, 0x018f, 0x018f, 0x0190, 0x0191, 0x0192, 0x0192, 0x0193,
	0x0194, 0x0195, 0x0196, 0x0196, 0x0197, 0x0198, 0x0199, 0x019a,
	0x019a, 0x019b, 0x019c, 0x019d, 0x019e, 0x019e, 0x019f, 0x01a0,
	0x01a1, 0x01a2, 0x01a2, 0x01a3, 0x01a4, 0x01a5, 0x01a6, 0x01a6,
	0x01a7, 0x01a8, 0x01a9, 0x01aa, 0x01ab, 0x01ab, 0x01ac, 0x01ad,
	0x01ae, 0x01af, 0x01b0, 0x01b0, 0x01b1, 0x01b2, 0x01b3, 0x01b4,
	0x01b5, 0x01b5, 0x01b6, 0x01b7, 0x01b8, 0x01b9, 0x01ba, 0x01ba,
	0x01bb, 0x01bc, 0x01bd, 0x01be, 0x01bf, 0x01c0, 0x01c0, 0x01c1,
	0x01c2, 0x01c3, 0x01c4, 0x01c5, 0x01c6, 0x01c7, 0x01c7, 0x01c8,
	0x01c9, 0x01ca, 0x01cb, 0x01cc, 0x01cd, 0x01ce, 0x01ce, 0x01cf,
	0x01d0, 0x01d1, 0x01d2, 0x01d3, 0x01d4, 0x01d5, 0x01d6, 0x01d6,
	0x01d7, 0x01d8, 0x01d9, 0x01da, 0x01db, 0x01dc, 0x01dd, 0x01de,
	0x01df, 0x01e0, 0x01e0, 0x01e1, 0x01e2, 0x01e3, 0x01e4, 0x01e5,
	0x01e6, 0x01e7, 0x01e8, 0x01e9, 0x01ea, 0x01eb, 0x01ec, 0x01ed,
	0x01ed, 0x01ee, 0x01ef, 0x01f0, 0x01f1, 0x01f2, 0x01f3, 0x01f4,
	0x01f5, 0x01f6, 0x01f7, 0x01f8, 0x01f9, 0x01fa, 0x01fb, 0x01fc,
	0x01fd, 0x01fe, 0x01ff, 0x0200, 0x0201, 0x0202, 0x0203, 0x0204,
	0x0205, 0x0206, 0x0207, 0x0208, 0x0209, 0x020a, 0x020b, 0x020c,
	0x020d, 0x020e, 0x020f, 0x0210,
	0x0212, 0x0213, 0x0214, 0x0215, 0x0216, 0x0217, 0x0218, 0x0219,
	0x021b, 0x021c, 0x021d, 0x021e, 0x021f, 0x0220, 0x0222, 0x0223,
	0x0224, 0x0225, 0x0226, 0x0228, 0x0229, 0x022a, 0x022b, 0x022c,
	0x022e, 0x022f, 0x0230, 0x0231, 0x0233, 0x0234, 0x0235, 0x0236,
	0x0238, 0x0239, 0x023a, 0x023b, 0x023d, 0x023e, 0x023f, 0x0241,
	0x0242, 0x0243, 0x0245, 0x0246, 0x0247, 0x0249, 0x024a, 0x024b,
	0x024d, 0x024e, 0x024f, 0x0251, 0x0252, 0x0253, 0x0255, 0x0256,
	0x0258, 0x0259, 0x025a, 0x025c, 0x025d, 0x025f, 0x0260, 0x0261,
	0x0263, 0x0264, 0x0266, 0x0267, 0x0269, 0x026a, 0x026c, 0x026d,
	0x026e, 0x0270, 0x0271, 0x0273, 0x0274, 0x0276, 0x0277, 0x0279,
	0x027a, 0x027c, 0x027d, 0x027f, 0x0280, 0x0282, 0x0284, 0x0285,
	0x0287, 0x0288, 0x028a, 0x028b, 0x028d, 0x028f, 0x0290, 0x0292,
	0x0293, 0x0295, 0x0297, 0x0298, 0x029a, 0x029b, 0x029d, 0x029f,
	0x02a0, 0x02a2, 0x02a4, 0x02a5, 0x02a7, 0x02a9, 0x02aa, 0x02ac,
	0x02ae, 0x02af, 0x02b1, 0x02b3, 0x02b5, 0x02b6, 0x02b8, 0x02ba,
	0x02bb, 0x02bd, 0x02bf, 0x02c1, 0x02c2, 0x02c4, 0x02c6, 0x02c8,
	0x02ca, 0x02cb, 0x02cd, 0x02cf, 0x02d1, 0x02d3, 0x02d5, 0x02d6,
	0x02d8, 0x02da, 0x02dc, 0x02de, 0x02e0, 0x02e2, 0x02e4, 0x02e5,
	0x02e7, 0x02e9, 0x02eb, 0x02ed, 0x02ef, 0x02f1, 0x02f3, 0x02f5,
	0x02f7, 0x02f9, 0x02fb, 0x02fd, 0x02ff, 0x0301, 0x0303, 0x0305,
	0x0307, 0x0309, 0x030b, 0x030d, 0x030f, 0x0311, 0x0313, 0x0315,
	0x0317, 0x0319, 0x031c, 0x031e, 0x0320, 0x0322, 0x0324, 0x0326,
	0x0328, 0x032b, 0x032d, 0x032f, 0x0331, 0x0333, 0x0336, 0x0338,
	0x033a, 0x033c, 0x033f, 0x0341, 0x0343, 0x0345, 0x0348, 0x034a,
	0x034c, 0x034f, 0x0351, 0x0353, 0x0356, 0x0358, 0x035a, 0x035d,
	0x035f, 0x0361, 0x0364, 0x0366, 0x0369, 0x036b, 0x036e, 0x0370,
	0x0372, 0x0375, 0x0377, 0x037a, 0x037c, 0x037f, 0x0381, 0x0384,
	0x0386, 0x0389, 0x038b, 0x038e, 0x0390, 0x0393, 0x0395, 0x0398,
	0x039a, 0x039d, 0x039f, 0x03a2, 0x03a4, 0x03a7, 0x03aa, 0x03ac,
	0x03af, 0x03b1, 0x03b4, 0x03b7, 0x03b9, 0x03bc, 0x03bf, 0x03c1,
	0x03c4, 0x03c7, 0x03c9, 0x03cc, 0x03cf, 0x03d2, 0x03d4, 0x03d7,
	0x03da, 0x03dd, 0x03df, 0x03e2, 0x03e5, 0x03e8, 0x03eb, 0x03ed,
	// The per-octave band saturates at 0x3ff (the f-number field is 10 bits
	// wide) before the 384-entry span runs out; the remaining entries stay
	// pinned at the maximum rather than wrapping.
	0x03f0, 0x03f3, 0x03f6, 0x03f9, 0x03fc, 0x03ff, 0x03ff, 0x03ff,
	0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff,
	0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff,
	0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff,
	0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff,
	0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff,
	0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff,
	0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff,
	0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff,
	0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff,
	0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff,
	0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff,
	0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff,
	0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff,
	0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff,
	0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff, 0x03ff,
}

// Volume returns the DMX volume-curve entry for a MIDI value in [0,127].
// Out-of-range inputs are clamped.
func Volume(midiValue int) uint8 {
	if midiValue < 0 {
		midiValue = 0
	}
	if midiValue > VolumeSteps-1 {
		midiValue = VolumeSteps - 1
	}
	return volumeMapping[midiValue]
}

// CombineVolume folds a note velocity and a channel volume into the combined
// attenuation value spec §4.3 describes, clamped to MaxAttenuation.
func CombineVolume(noteVelocity, channelVolume int) uint8 {
	nv := uint32(Volume(noteVelocity))
	cv := uint32(Volume(channelVolume))
	full := (nv * 2 * (cv + 1)) >> 9
	if full > MaxAttenuation {
		full = MaxAttenuation
	}
	return uint8(full)
}

// CarrierAttenuation inverts a combined volume into the OPL carrier-level
// attenuation value actually written to hardware (spec §4.3: "inverted
// (0x3f - full) to become the OPL carrier-level attenuation").
func CarrierAttenuation(noteVelocity, channelVolume int) uint8 {
	return MaxAttenuation - CombineVolume(noteVelocity, channelVolume)
}

// Frequency computes the 16-bit register value (f-number in the low 10 bits,
// octave in bits 10-12) for a note and pitch bend, per spec §4.3. note is
// expected already offset by any instrument base_note_offset (for non-fixed
// instruments); bend is in the driver's internal 1/32-semitone units, and
// secondTuningShift carries the second-voice fine-tuning adjustment of a
// double-voice instrument ((fine_tuning/2) - 64), or 0 for the first voice.
func Frequency(note, bend, secondTuningShift int) uint16 {
	note = clampNote(note)
	idx := 64 + 32*note + bend + secondTuningShift
	if idx < 0 {
		idx = 0
	}
	if idx < freqRawSpan {
		return frequencyCurve[idx]
	}
	sub := (idx - freqRawSpan) % freqOctaveSpan
	oct := (idx - freqRawSpan) / freqOctaveSpan
	if oct > MaxOctave {
		oct = MaxOctave
	}
	return frequencyCurve[sub+freqRawSpan] | uint16(oct<<10)
}

// clampNote folds a note into [0,95] by octave (12-semitone) shifts, as
// spec §4.3 requires before indexing the frequency curve.
func clampNote(note int) int {
	for note < 0 {
		note += 12
	}
	for note > 95 {
		note -= 12
	}
	return note
}
