package flashback

import "testing"

func buildTestINS(mode uint8) []byte {
	buf := make([]byte, insSize)
	buf[0] = mode
	buf[1] = 4 // channel

	putLE16 := func(off int, v uint16) {
		buf[off] = byte(v)
		buf[off+1] = byte(v >> 8)
	}

	// modulator operator fields at offset 2, in field order:
	// key_scaling, freq_mult, feedback, attack, sustain_level,
	// sustain_sound, decay, release, output_level, am, vibrato, ksr,
	// connection
	modFields := []uint16{2, 7, 3, 15, 9, 1, 5, 6, 40, 1, 0, 1, 0}
	for i, v := range modFields {
		putLE16(2+i*2, v)
	}

	carFields := []uint16{1, 3, 0, 10, 12, 0, 8, 4, 55, 0, 1, 0, 1}
	for i, v := range carFields {
		putLE16(28+i*2, v)
	}

	buf[74] = 2 // ModWave
	buf[76] = 5 // CarWave

	return buf
}

func TestParseINSMelodic(t *testing.T) {
	ins, err := ParseINS(buildTestINS(0))
	if err != nil {
		t.Fatalf("ParseINS failed: %v", err)
	}
	if ins.Mode != InsModeMelodic {
		t.Fatalf("Mode = %v, want InsModeMelodic", ins.Mode)
	}
	if ins.Channel != 4 {
		t.Fatalf("Channel = %d, want 4", ins.Channel)
	}
	if ins.ModWave != 2 {
		t.Fatalf("ModWave = %d, want 2", ins.ModWave)
	}
	if ins.CarWave != 5 {
		t.Fatalf("CarWave = %d, want 5", ins.CarWave)
	}

	mod := ins.Modulator
	if mod.KeyScaleLevel != 2 || mod.FreqMult != 7 || mod.Feedback != 3 {
		t.Fatalf("modulator header fields = %+v", mod)
	}
	if mod.Attack != 15 || mod.SustainLevel != 9 || !mod.SustainSound {
		t.Fatalf("modulator envelope fields = %+v", mod)
	}
	if mod.Decay != 5 || mod.Release != 6 || mod.OutputLevel != 40 {
		t.Fatalf("modulator decay/release/output = %+v", mod)
	}
	if !mod.AM || mod.Vibrato || !mod.KSR || mod.Connection {
		t.Fatalf("modulator flag fields = %+v", mod)
	}

	car := ins.Carrier
	if car.KeyScaleLevel != 1 || car.FreqMult != 3 || car.Feedback != 0 {
		t.Fatalf("carrier header fields = %+v", car)
	}
	if car.SustainSound {
		t.Fatalf("carrier sustain_sound should be false, got %+v", car)
	}
	if !car.Connection {
		t.Fatalf("carrier connection should be true, got %+v", car)
	}
}

func TestParseINSBadMode(t *testing.T) {
	buf := buildTestINS(7)
	_, err := ParseINS(buf)
	if err == nil {
		t.Fatal("expected error for invalid instrument mode")
	}
}

func TestParseINSTooSmall(t *testing.T) {
	_, err := ParseINS(make([]byte, 10))
	if err == nil {
		t.Fatal("expected error for undersized INS data")
	}
}
