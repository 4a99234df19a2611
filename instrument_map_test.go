package flashback

import "testing"

func sampleIns() *InsData {
	return &InsData{
		Mode:    InsModeMelodic,
		Channel: 0,
		ModWave: 2,
		CarWave: 5,
		Modulator: InsOperator{
			KeyScaleLevel: 1, FreqMult: 4, Feedback: 3,
			Attack: 15, SustainLevel: 8, SustainSound: true,
			Decay: 5, Release: 6, OutputLevel: 30,
			AM: true, Vibrato: false, KSR: true, Connection: false,
		},
		Carrier: InsOperator{
			KeyScaleLevel: 0, FreqMult: 1, Feedback: 0,
			Attack: 10, SustainLevel: 12, SustainSound: false,
			Decay: 8, Release: 4, OutputLevel: 55,
			AM: false, Vibrato: true, KSR: false, Connection: true,
		},
	}
}

func TestTranslateInstrumentRegisterPacking(t *testing.T) {
	ch := TranslateInstrument(sampleIns(), 5, -3)

	if ch.Modulator.Waveform != 2 {
		t.Fatalf("modulator waveform = %d, want 2", ch.Modulator.Waveform)
	}
	if ch.Carrier.Waveform != 5 {
		t.Fatalf("carrier waveform = %d, want 5", ch.Carrier.Waveform)
	}

	wantAD := uint8(15<<4 | 5)
	if ch.Modulator.AttackDecay != wantAD {
		t.Fatalf("modulator attack/decay = 0x%02x, want 0x%02x", ch.Modulator.AttackDecay, wantAD)
	}

	wantSR := uint8(8<<4 | 6)
	if ch.Modulator.SustainRelease != wantSR {
		t.Fatalf("modulator sustain/release = 0x%02x, want 0x%02x", ch.Modulator.SustainRelease, wantSR)
	}

	wantScale := uint8(1<<6 | 30)
	if ch.Modulator.ScaleOutput != wantScale {
		t.Fatalf("modulator scale/output = 0x%02x, want 0x%02x", ch.Modulator.ScaleOutput, wantScale)
	}

	if ch.Modulator.AVEKM&(1<<7) == 0 {
		t.Fatal("modulator AM flag not set in AVEKM byte")
	}
	if ch.Modulator.AVEKM&(1<<6) != 0 {
		t.Fatal("modulator vibrato flag should not be set")
	}
	if ch.Modulator.AVEKM&0xF != 4 {
		t.Fatalf("modulator freq_mult bits = %d, want 4", ch.Modulator.AVEKM&0xF)
	}

	if ch.Feedback != 3 {
		t.Fatalf("Feedback = %d, want 3", ch.Feedback)
	}
	if ch.FMOnly {
		t.Fatal("FMOnly should be false: carrier.Connection is true")
	}
	if ch.NoteOffset != 5 {
		t.Fatalf("NoteOffset = %d, want 5", ch.NoteOffset)
	}
	if ch.VelocityOffset != -3 {
		t.Fatalf("VelocityOffset = %d, want -3", ch.VelocityOffset)
	}
	if ch.RhythmMode != uint8(InsModeMelodic) {
		t.Fatalf("RhythmMode = %d, want %d", ch.RhythmMode, InsModeMelodic)
	}
}

func TestWrapNoteOffsetLeavesLowOctaveUntouched(t *testing.T) {
	if got := wrapNoteOffset(60, 4); got != 4 {
		t.Fatalf("wrapNoteOffset(60,4) = %d, want 4 (octave 5, no wrap)", got)
	}
}

func TestWrapNoteOffsetReducesAcrossOctaveEight(t *testing.T) {
	// note=100 (octave 8) + offset=24 (+2 octaves) -> octave 10, one full
	// group of 8 octaves over: offset must drop by 8*12=96.
	got := wrapNoteOffset(100, 24)
	if want := 24 - 96; got != want {
		t.Fatalf("wrapNoteOffset(100,24) = %d, want %d", got, want)
	}
}

func TestFNumForNoteMonotonicWithPitch(t *testing.T) {
	bLow, fLow := fNumForNote(40, 0)
	bHigh, fHigh := fNumForNote(80, 0)

	lowHz := blockFnumToApproxHz(bLow, fLow)
	highHz := blockFnumToApproxHz(bHigh, fHigh)
	if highHz <= lowHz {
		t.Fatalf("expected higher note to produce higher frequency: low=%v high=%v", lowHz, highHz)
	}
}

func TestFNumForNoteClampsToValidRange(t *testing.T) {
	block, fnum := fNumForNote(200, 0)
	if block > 7 {
		t.Fatalf("block = %d, want <= 7", block)
	}
	if fnum > 1023 {
		t.Fatalf("fnum = %d, want <= 1023", fnum)
	}
}

// blockFnumToApproxHz inverts the fnum scale just enough to compare two
// results for ordering; it is not a precision reconstruction.
func blockFnumToApproxHz(block uint8, fnum uint16) float64 {
	return float64(fnum) / fnumScale(int(block))
}
