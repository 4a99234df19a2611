// ins_parser.go - decode the AdLib instrument patch asset (.INS)

package flashback

const insSize = 80

// InsMode distinguishes a melodic two-operator patch from a percussion
// patch.
type InsMode uint8

const (
	InsModeMelodic    InsMode = 0
	InsModePercussion InsMode = 1
)

// InsOperator is one OPL2/OPL3 operator's thirteen small-range patch
// fields, each stored as its own 16-bit word in the .INS file.
type InsOperator struct {
	KeyScaleLevel uint8 // 0..3
	FreqMult      uint8 // 0..15
	Feedback      uint8 // 0..7
	Attack        uint8 // 0..15
	SustainLevel  uint8 // 0..15
	SustainSound  bool
	Decay         uint8 // 0..15
	Release       uint8 // 0..15
	OutputLevel   uint8 // 0..63
	AM            bool
	Vibrato       bool
	KSR           bool
	Connection    bool
}

// InsData is a fully decoded .INS patch: two operators plus their
// waveform selects and the mode/channel the patch targets.
type InsData struct {
	Mode      InsMode
	Channel   uint8
	ModWave   uint8 // 0..7
	CarWave   uint8 // 0..7
	Modulator InsOperator
	Carrier   InsOperator
}

// ParseINS decodes a fixed 80-byte .INS AdLib instrument patch.
func ParseINS(data []byte) (*InsData, error) {
	if len(data) < insSize {
		return nil, newFormatError("INS", ReasonFileTooSmall, 0, nil)
	}

	modeByte := data[0]
	if modeByte != uint8(InsModeMelodic) && modeByte != uint8(InsModePercussion) {
		return nil, newFormatError("INS", ReasonBadInsMode, 0, nil)
	}

	ins := &InsData{
		Mode:    InsMode(modeByte),
		Channel: data[1],
	}

	mod, err := parseInsOperator(data, 2)
	if err != nil {
		return nil, err
	}
	ins.Modulator = mod

	car, err := parseInsOperator(data, 28)
	if err != nil {
		return nil, err
	}
	ins.Carrier = car

	// The wave selects live at fixed bytes 74 and 76, never at the start
	// of the operator blocks (bytes 2-3/28-29 hold key_scaling there
	// instead): reading the wave from the wrong offset silently produces
	// a plausible but wrong timbre.
	ins.ModWave = data[74] & 0x07
	ins.CarWave = data[76] & 0x07

	return ins, nil
}

// parseInsOperator reads the thirteen u16 fields of one operator block,
// in the order key_scaling, freq_mult, feedback, attack, sustain_level,
// sustain_sound, decay, release, output_level, am, vibrato, ksr,
// connection.
func parseInsOperator(data []byte, offset int) (InsOperator, error) {
	fields := make([]uint16, 13)
	for i := range fields {
		v, err := leU16At(data, offset+i*2)
		if err != nil {
			return InsOperator{}, newFormatError("INS", ReasonTruncated, offset+i*2, err)
		}
		fields[i] = v
	}

	return InsOperator{
		KeyScaleLevel: uint8(fields[0] & 0x3),
		FreqMult:      uint8(fields[1] & 0xF),
		Feedback:      uint8(fields[2] & 0x7),
		Attack:        uint8(fields[3] & 0xF),
		SustainLevel:  uint8(fields[4] & 0xF),
		SustainSound:  fields[5] != 0,
		Decay:         uint8(fields[6] & 0xF),
		Release:       uint8(fields[7] & 0xF),
		OutputLevel:   uint8(fields[8] & 0x3F),
		AM:            fields[9] != 0,
		Vibrato:       fields[10] != 0,
		KSR:           fields[11] != 0,
		Connection:    fields[12] != 0,
	}, nil
}
