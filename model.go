// model.go - core data model for Flashback vector-polygon cutscenes

package flashback

// Colour is an 8-bit-per-channel RGB colour. Source palette entries are
// 12-bit 0x0RGB big-endian words; each nibble is scaled by 17 so that
// 0xF maps to 0xFF.
type Colour struct {
	R, G, B uint8
}

// colourFromAmiga expands a 12-bit 0x0RGB word into a Colour.
func colourFromAmiga(word uint16) Colour {
	return Colour{
		R: uint8((word>>8)&0xF) * 17,
		G: uint8((word>>4)&0xF) * 17,
		B: uint8(word&0xF) * 17,
	}
}

// Palette is the 32-colour runtime palette: two 16-colour halves. The
// clear-screen flag at draw time selects which half a primitive's colour
// index is resolved against.
type Palette [32]Colour

// PrimitiveKind distinguishes the tagged variants of Primitive.
type PrimitiveKind int

const (
	PrimitivePoint PrimitiveKind = iota
	PrimitiveEllipse
	PrimitivePolygon
)

// Primitive is a single drawable element of a Shape: a point, an ellipse,
// or a polygon, sharing a common colour/alpha/offset prefix.
type Primitive struct {
	Kind        PrimitiveKind
	ColourIndex uint8
	Alpha       bool
	HasOffset   bool
	OffsetX     int16
	OffsetY     int16

	// Point
	X, Y int16

	// Ellipse
	CX, CY, RX, RY int16

	// Polygon: at least one vertex (see ParsePOL for the empty-polygon
	// invariant: a zero numVertices byte decodes to a Point, never an
	// empty Polygon).
	Vertices []Point16
}

// Point16 is a vertex or (x, y) pair using the asset format's native
// 16-bit signed coordinates.
type Point16 struct {
	X, Y int16
}

// Shape is a named collection of primitives, owned by a Cutscene for its
// lifetime and referenced from bytecode by id.
type Shape struct {
	ID         uint16
	Primitives []Primitive
}

// Opcode enumerates the CMD bytecode's 15 command types.
type Opcode uint8

const (
	OpMarkCurPos Opcode = iota
	OpRefreshScreen
	OpWaitForSync
	OpDrawShape
	OpSetPalette
	opMarkCurPosAlias // raw encoding 5, normalised to OpMarkCurPos
	OpDrawCaptionText
	OpNop
	OpSkip3
	OpRefreshAll
	OpDrawShapeScale
	OpDrawShapeScaleRot
	OpCopyScreen
	OpDrawTextAtPos
	OpHandleKeys
)

// KeyHandler is one (keyMask, target) pair of the handleKeys opcode's
// variable-length argument list.
type KeyHandler struct {
	KeyMask uint8
	Target  int16
}

// Command is a single decoded bytecode instruction together with its
// opcode-specific arguments. Only the fields relevant to Op are populated;
// zero values elsewhere are not meaningful.
type Command struct {
	Op Opcode

	ClearMode uint8 // refreshScreen
	Frames    uint8 // waitForSync

	ShapeID uint16 // drawShape / drawShapeScale / drawShapeScaleRot
	HasPos  bool   // whether sw&0x8000 supplied an explicit position
	X, Y    int16  // drawShape family
	Zoom    int16  // drawShapeScale / drawShapeScaleRot (signed)
	HasZoom bool   // drawShapeScaleRot: whether 0x4000 supplied zoom
	OriginX uint8  // drawShapeScale / drawShapeScaleRot
	OriginY uint8  // drawShapeScale / drawShapeScaleRot
	RotA    uint16 // drawShapeScaleRot
	RotB    uint16 // drawShapeScaleRot (default 180)
	RotC    uint16 // drawShapeScaleRot (default 90)
	HasRotB bool   // drawShapeScaleRot: explicit rotationB encoded (0x2000)
	HasRotC bool   // drawShapeScaleRot: explicit rotationC encoded (0x1000)

	PaletteNum uint8 // setPalette
	BufferNum  uint8 // setPalette

	StringID uint16 // drawCaptionText / drawTextAtPos
	HasText  bool   // drawTextAtPos: false when stringId word was 0xFFFF
	TextColr uint8  // drawTextAtPos
	TextX    int16  // drawTextAtPos (already multiplied by 8)
	TextY    int16  // drawTextAtPos (already multiplied by 8)

	Skipped [3]uint8 // skip3

	Handlers []KeyHandler // handleKeys
}

// Frame is an ordered sequence of commands headed by a markCurPos command
// (included as the frame's first command), except for a first frame with
// no leading markCurPos; the final frame runs to the end of the subscene
// with no terminator.
type Frame struct {
	Commands []Command
}

// Subscene is a contiguous run of frames within a CMD payload.
type Subscene struct {
	ID     int
	Frames []Frame
}

// Script is the decoded bytecode of a CMD asset.
type Script struct {
	BaseOffset int
	Subscenes  []Subscene
}

// Cutscene is the immutable, fully-decoded pair of assets for one named
// cutscene. Once constructed it never mutates and may be shared by any
// number of readers (the VM, debug tooling, exporters).
type Cutscene struct {
	Name     string
	Shapes   map[uint16]Shape
	Palettes [][16]Colour
	Script   Script
}

// TotalFrames returns the number of frames across all subscenes, in
// subscene order. Frame indices handed to the VM are flattened across
// this ordering.
func (c *Cutscene) TotalFrames() int {
	n := 0
	for _, s := range c.Script.Subscenes {
		n += len(s.Frames)
	}
	return n
}

// frameAt returns the flattened frame index i, resolving which subscene
// it falls in.
func (c *Cutscene) frameAt(i int) (Frame, bool) {
	for _, s := range c.Script.Subscenes {
		if i < len(s.Frames) {
			return s.Frames[i], true
		}
		i -= len(s.Frames)
	}
	return Frame{}, false
}
