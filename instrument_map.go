// instrument_map.go - translate a decoded .INS patch into OPL3 register writes

package flashback

import "math"

// opl3Channel is the legacy two-operator channel layout used by OPL3Core.
// Only the channels the original engine's music driver actually reaches
// (0-8, FM-only; OPL3Core.Reset enables OPL3 mode but never touches the
// second operator pair) are addressed.
type opl3Channel struct {
	Modulator opl3OperatorRegs
	Carrier   opl3OperatorRegs
	Feedback  uint8 // 0-7, channel C0 register bits 1-3
	FMOnly    bool  // channel C0 register bit 0; true when neither operator's connection flag is set

	NoteOffset     int   // adlib_notes[slot] from the PRF, semitones
	VelocityOffset int   // adlib_velocities[slot] from the PRF
	RhythmMode     uint8 // 0 = melodic, 1 = percussion (InsData.Mode)
}

// opl3OperatorRegs holds one operator's five OPL2/OPL3 register values,
// one for each of the 0x20, 0x40, 0x60, 0x80 and 0xE0 banks.
type opl3OperatorRegs struct {
	AttackDecay    uint8 // 0x60+op: attack<<4 | decay
	SustainRelease uint8 // 0x80+op: sustainLevel<<4 | release
	ScaleOutput    uint8 // 0x40+op: keyScaleLevel<<6 | outputLevel
	AVEKM          uint8 // 0x20+op: am<<7 | vib<<6 | sustainSound<<5 | ksr<<4 | freqMult
	Waveform       uint8 // 0xE0+op: waveSelect & 0x7
}

// translateOperator packs one InsOperator's thirteen decoded fields into
// the five OPL register bytes the chip actually consumes. output_level is
// passed through uninverted: INS already stores it in the chip's own 0-63
// attenuation sense (0=loudest).
func translateOperator(op InsOperator, wave uint8) opl3OperatorRegs {
	regs := opl3OperatorRegs{
		Waveform: wave & 0x7,
	}
	regs.AttackDecay = op.Attack<<4 | op.Decay
	regs.SustainRelease = op.SustainLevel<<4 | op.Release
	regs.ScaleOutput = op.KeyScaleLevel<<6 | (op.OutputLevel & 0x3F)

	regs.AVEKM = op.FreqMult & 0xF
	if op.AM {
		regs.AVEKM |= 1 << 7
	}
	if op.Vibrato {
		regs.AVEKM |= 1 << 6
	}
	if op.SustainSound {
		regs.AVEKM |= 1 << 5
	}
	if op.KSR {
		regs.AVEKM |= 1 << 4
	}
	return regs
}

// TranslateInstrument converts a fully decoded .INS patch into the
// register image for one OPL3 melodic channel. noteOffset and
// velocityOffset come from the PRF's adlib_notes/adlib_velocities for the
// slot this patch was loaded into; they travel with the channel rather
// than with the patch itself, since the same .INS file can be assigned to
// different slots with different tuning. Percussion-mode patches
// (InsModePercussion) use the same two-operator layout; rhythm-mode
// dispatch (bass drum, snare, tom-tom, cymbal, hi-hat share fixed
// channels 6-8 on real hardware) is the caller's responsibility since it
// depends on which of the five rhythm voices the note belongs to, not on
// anything encoded in the patch itself.
func TranslateInstrument(ins *InsData, noteOffset, velocityOffset int) opl3Channel {
	return opl3Channel{
		Modulator:      translateOperator(ins.Modulator, ins.ModWave),
		Carrier:        translateOperator(ins.Carrier, ins.CarWave),
		Feedback:       ins.Modulator.Feedback,
		FMOnly:         !ins.Modulator.Connection && !ins.Carrier.Connection,
		NoteOffset:     noteOffset,
		VelocityOffset: velocityOffset,
		RhythmMode:     uint8(ins.Mode),
	}
}

// wrapNoteOffset reduces a channel's note_offset so the note it produces
// never lands in an OPL3 block (octave) >= 8: the chip's block register is
// only 3 bits wide, and the original hardware let it silently wrap, but a
// conformant modern OPL3 emulator will not. Reduction happens in whole
// 8-octave (96-semitone) groups, per the original's wrap behaviour.
func wrapNoteOffset(note, offset int) int {
	octave := floorDiv(note+offset, 12)
	if octave < 8 {
		return offset
	}
	return offset - 8*12*floorDiv(octave, 8)
}

// floorDiv is integer division rounding toward negative infinity, unlike
// Go's built-in / which truncates toward zero.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// fNumForNote converts a MIDI-style note number to an OPL3 (block, fnum)
// pair at a fixed master clock, clamping notes outside blocks 0-7 to the
// nearest representable block rather than rejecting them: the
// original asset set never exercises notes near either extreme, but a
// defensive clamp keeps a corrupt PRF track from producing an invalid
// register write.
func fNumForNote(note int, detuneCents int) (block uint8, fnum uint16) {
	const baseFreq = 440.0
	const a4Note = 69

	semitoneOffset := note - a4Note
	freq := baseFreq * math.Exp2(float64(semitoneOffset)/12.0+float64(detuneCents)/1200.0)

	b := 0
	for freq*fnumScale(b) > 1023 && b < 7 {
		b++
	}

	f := freq * fnumScale(b)
	if f > 1023 {
		f = 1023
	}
	if f < 0 {
		f = 0
	}
	return uint8(b), uint16(f)
}

// fnumScale returns the fnum-per-Hz scale factor for OPL3 block b at a
// 49716Hz internal clock: fnum = freq * 2^(20-b) / clock.
func fnumScale(block int) float64 {
	return math.Exp2(float64(20-block)) / 49716.0
}
