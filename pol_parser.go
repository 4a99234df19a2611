// pol_parser.go - decode the polygon + palette asset (.POL)

package flashback

// polHeader is the 20-byte offset table at the start of every POL asset.
// Only the five offset fields the format actually uses are named; the
// interleaved unknown u16s at 0x00, 0x04, 0x08, 0x0C, 0x10 are skipped.
type polHeader struct {
	shapeOffTbl  int
	paletteOff   int
	vertsOffTbl  int
	shapeDataTbl int
	vertsDataTbl int
}

func parsePOLHeader(data []byte) (polHeader, error) {
	if len(data) < 0x14 {
		return polHeader{}, newFormatError("POL", ReasonFileTooSmall, 0, nil)
	}
	var h polHeader
	var err error
	read := func(off int) int {
		if err != nil {
			return 0
		}
		var v uint16
		v, err = beU16At(data, off)
		return int(v)
	}
	h.shapeOffTbl = read(0x02)
	h.paletteOff = read(0x06)
	h.vertsOffTbl = read(0x0A)
	h.shapeDataTbl = read(0x0E)
	h.vertsDataTbl = read(0x12)
	if err != nil {
		return polHeader{}, newFormatError("POL", ReasonTruncated, 0, err)
	}
	return h, nil
}

// ParsePOL decodes a complete .POL asset into its shapes and palettes.
func ParsePOL(data []byte) (shapes map[uint16]Shape, palettes [][16]Colour, err error) {
	h, err := parsePOLHeader(data)
	if err != nil {
		return nil, nil, err
	}

	shapeCount := (h.paletteOff - h.shapeOffTbl) / 2
	if shapeCount < 0 {
		shapeCount = 0
	}
	paletteCount := (h.vertsOffTbl - h.paletteOff) / 32
	if paletteCount < 1 {
		paletteCount = 1
	}

	palettes = make([][16]Colour, 0, paletteCount)
	for i := 0; i < paletteCount; i++ {
		pal, perr := parsePOLPalette(data, h.paletteOff+i*32)
		if perr != nil {
			if i == 0 {
				return nil, nil, perr
			}
			break
		}
		palettes = append(palettes, pal)
	}
	if len(palettes) == 0 {
		return nil, nil, newFormatError("POL", ReasonEmptyPalette, h.paletteOff, nil)
	}

	shapes = make(map[uint16]Shape, shapeCount)
	for i := 0; i < shapeCount; i++ {
		shape, serr := parsePOLShape(data, h, uint16(i))
		if serr != nil {
			return nil, nil, serr
		}
		shapes[uint16(i)] = shape
	}

	return shapes, palettes, nil
}

func parsePOLPalette(data []byte, offset int) ([16]Colour, error) {
	var pal [16]Colour
	for i := 0; i < 16; i++ {
		w, err := beU16At(data, offset+i*2)
		if err != nil {
			return pal, newFormatError("POL", ReasonTruncated, offset, err)
		}
		pal[i] = colourFromAmiga(w)
	}
	return pal, nil
}

func parsePOLShape(data []byte, h polHeader, index uint16) (Shape, error) {
	rel, err := beU16At(data, h.shapeOffTbl+int(index)*2)
	if err != nil {
		return Shape{}, newFormatError("POL", ReasonTruncated, h.shapeOffTbl, err)
	}
	base := h.shapeDataTbl + int(rel)

	nPrim, err := beU16At(data, base)
	if err != nil {
		return Shape{}, newFormatError("POL", ReasonTruncated, base, err)
	}

	pos := base + 2
	prims := make([]Primitive, 0, nPrim)
	for i := 0; i < int(nPrim); i++ {
		prim, next, perr := parsePOLPrimitive(data, h, pos)
		if perr != nil {
			return Shape{}, perr
		}
		prims = append(prims, prim)
		pos = next
	}

	return Shape{ID: index, Primitives: prims}, nil
}

func parsePOLPrimitive(data []byte, h polHeader, pos int) (Primitive, int, error) {
	word, err := beU16At(data, pos)
	if err != nil {
		return Primitive{}, 0, newFormatError("POL", ReasonTruncated, pos, err)
	}
	pos += 2

	prim := Primitive{
		HasOffset: word&0x8000 != 0,
		Alpha:     word&0x4000 != 0,
	}
	vertexIndex := word & 0x3FFF

	if prim.HasOffset {
		ox, err := beI16At(data, pos)
		if err != nil {
			return Primitive{}, 0, newFormatError("POL", ReasonTruncated, pos, err)
		}
		oy, err := beI16At(data, pos+2)
		if err != nil {
			return Primitive{}, 0, newFormatError("POL", ReasonTruncated, pos+2, err)
		}
		prim.OffsetX, prim.OffsetY = ox, oy
		pos += 4
	}

	if pos >= len(data) {
		return Primitive{}, 0, newFormatError("POL", ReasonTruncated, pos, nil)
	}
	prim.ColourIndex = data[pos]
	pos++

	if err := parsePOLVertexRecord(data, h, vertexIndex, &prim); err != nil {
		return Primitive{}, 0, err
	}

	return prim, pos, nil
}

// parsePOLVertexRecord resolves a vertex-record index into a Point,
// Ellipse, or Polygon primitive. Shared between POL shape decoding and
// (conceptually) any other asset that references a vertex table — see
// spec §4.2.
func parsePOLVertexRecord(data []byte, h polHeader, vertexIndex uint16, prim *Primitive) error {
	rel, err := beU16At(data, h.vertsOffTbl+int(vertexIndex)*2)
	if err != nil {
		return newFormatError("POL", ReasonTruncated, h.vertsOffTbl, err)
	}
	q := h.vertsDataTbl + int(rel)

	if q >= len(data) {
		return newFormatError("POL", ReasonTruncated, q, nil)
	}
	num := data[q]
	pos := q + 1

	switch {
	case num == 0:
		x, err := beI16At(data, pos)
		if err != nil {
			return newFormatError("POL", ReasonTruncated, pos, err)
		}
		y, err := beI16At(data, pos+2)
		if err != nil {
			return newFormatError("POL", ReasonTruncated, pos+2, err)
		}
		prim.Kind = PrimitivePoint
		prim.X, prim.Y = x, y
		return nil

	case num&0x80 != 0:
		cx, err := beI16At(data, pos)
		if err != nil {
			return newFormatError("POL", ReasonTruncated, pos, err)
		}
		cy, err := beI16At(data, pos+2)
		if err != nil {
			return newFormatError("POL", ReasonTruncated, pos+2, err)
		}
		rx, err := beI16At(data, pos+4)
		if err != nil {
			return newFormatError("POL", ReasonTruncated, pos+4, err)
		}
		ry, err := beI16At(data, pos+6)
		if err != nil {
			return newFormatError("POL", ReasonTruncated, pos+6, err)
		}
		prim.Kind = PrimitiveEllipse
		prim.CX, prim.CY, prim.RX, prim.RY = cx, cy, rx, ry
		return nil

	default:
		ix, err := beI16At(data, pos)
		if err != nil {
			return newFormatError("POL", ReasonTruncated, pos, err)
		}
		iy, err := beI16At(data, pos+2)
		if err != nil {
			return newFormatError("POL", ReasonTruncated, pos+2, err)
		}
		pos += 4

		verts := make([]Point16, 0, int(num)+1)
		verts = append(verts, Point16{ix, iy})

		// Exactly num delta pairs follow the initial absolute point, not
		// num-1: the reference decoder loops from n=num-1 down to n=0
		// inclusive, i.e. num iterations.
		for i := 0; i < int(num); i++ {
			dx, err := i8At(data, pos)
			if err != nil {
				return newFormatError("POL", ReasonTruncated, pos, err)
			}
			dy, err := i8At(data, pos+1)
			if err != nil {
				return newFormatError("POL", ReasonTruncated, pos+1, err)
			}
			pos += 2
			ix += int16(dx)
			iy += int16(dy)
			verts = append(verts, Point16{ix, iy})
		}

		prim.Kind = PrimitivePolygon
		prim.Vertices = verts
		return nil
	}
}
