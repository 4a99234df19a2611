// renderer.go - framebuffer, palette state, and the draw-list compositor

package flashback

import "math"

const (
	screenWidth  = 256
	screenHeight = 224

	viewportX = 8
	viewportY = 50
	viewportW = 240
	viewportH = 128
)

// DrawnShape is a value object describing one queued shape draw. It is
// never mutated after being pushed onto the Renderer's draw list.
type DrawnShape struct {
	ShapeID         uint16
	X, Y            int32
	Scale           float32
	RotationRad     float32
	OriginX         int32
	OriginY         int32
	ClearFlagAtDraw uint8
}

// Renderer owns the framebuffer, the active palette, the clear-screen
// flag, the current shape set, and the draw/auxiliary lists. It has no
// knowledge of bytecode; the VM drives it.
type Renderer struct {
	fb          *Framebuffer
	palette     Palette
	clearScreen uint8
	shapes      map[uint16]Shape
	drawList    []DrawnShape
	auxList     []DrawnShape
}

// NewRenderer creates a Renderer with a black 256x224 framebuffer and the
// clear-screen flag initialised to 1, matching RuntimeState's initial
// value.
func NewRenderer() *Renderer {
	return &Renderer{
		fb:          newFramebuffer(screenWidth, screenHeight),
		clearScreen: 1,
	}
}

// LoadShapes replaces the current shape set, keyed by shape id.
func (r *Renderer) LoadShapes(shapes map[uint16]Shape) {
	r.shapes = shapes
}

// SetPalette adopts a 32-entry palette for subsequent colour lookups.
func (r *Renderer) SetPalette(p Palette) {
	r.palette = p
}

// SetClearScreen updates the clear-screen flag.
func (r *Renderer) SetClearScreen(flag uint8) {
	r.clearScreen = flag
}

func (r *Renderer) push(d DrawnShape) {
	d.ClearFlagAtDraw = r.clearScreen
	r.drawList = append(r.drawList, d)
	if r.clearScreen != 0 {
		r.auxList = append(r.auxList, d)
	}
}

// DrawShape appends an unscaled, unrotated shape draw.
func (r *Renderer) DrawShape(id uint16, x, y int32) {
	r.push(DrawnShape{ShapeID: id, X: x, Y: y, Scale: 1})
}

// DrawShapeScale appends a scaled shape draw. zoom follows the engine's
// scale formula: scale = (zoom + 512) / 512, so zoom=0 is 1x and
// zoom=-256 is 0.5x. zoom is signed: treating it as unsigned causes
// catastrophic scale glitches on negative (shrink) values.
func (r *Renderer) DrawShapeScale(id uint16, x, y int32, zoom int16, originX, originY uint8) {
	r.push(DrawnShape{
		ShapeID: id, X: x, Y: y,
		Scale:   zoomToScale(zoom),
		OriginX: int32(originX), OriginY: int32(originY),
	})
}

// DrawShapeScaleRotate appends a scaled and rotated shape draw. Only
// rotation angle A is modelled; angles B and C are reserved in the
// original engine for a 3D transform this core does not implement (see
// VM.ExecuteCommand for the reject-on-use behaviour).
func (r *Renderer) DrawShapeScaleRotate(id uint16, x, y int32, zoom int16, originX, originY uint8, rotA uint16) {
	r.push(DrawnShape{
		ShapeID: id, X: x, Y: y,
		Scale:   zoomToScale(zoom),
		OriginX: int32(originX), OriginY: int32(originY),
		RotationRad: degreesToRad(rotA),
	})
}

func zoomToScale(zoom int16) float32 {
	return (float32(zoom) + 512) / 512
}

func degreesToRad(deg uint16) float32 {
	return float32(deg) * math.Pi / 180
}

// ClearDrawnShapes implements markCurPos / refreshScreen(non-zero)
// semantics: when clear_screen==0 the draw list is rebuilt from the
// auxiliary (background) list, preserving accumulated background while
// discarding foreground-only draws; otherwise both lists are emptied.
func (r *Renderer) ClearDrawnShapes() {
	if r.clearScreen == 0 {
		r.drawList = append([]DrawnShape(nil), r.auxList...)
	} else {
		r.drawList = nil
		r.auxList = nil
	}
}

// ClearAllShapes empties both lists unconditionally, used on cutscene
// switch and on frame-scrub reset.
func (r *Renderer) ClearAllShapes() {
	r.drawList = nil
	r.auxList = nil
}

// Framebuffer returns the RGBA pixel buffer most recently produced by
// Render.
func (r *Renderer) Framebuffer() *Framebuffer {
	return r.fb
}

// Render paints black, draws every queued shape's primitives with the
// palette half selected at the time it was drawn, and finally paints the
// static letterbox border around the 240x128 cutscene viewport.
func (r *Renderer) Render() {
	black := Colour{}
	r.fb.clear(black)

	clip := ClipRect{OriginX: viewportX, OriginY: viewportY, W: viewportW, H: viewportH}
	ras := newRasterizer(r.fb, clip)

	for _, d := range r.drawList {
		shape, ok := r.shapes[d.ShapeID]
		if !ok {
			continue
		}
		for _, prim := range shape.Primitives {
			r.drawPrimitive(ras, d, prim)
		}
	}

	r.paintLetterbox(black)
}

func (r *Renderer) drawPrimitive(ras *Rasterizer, d DrawnShape, prim Primitive) {
	colour := r.resolveColour(prim.ColourIndex, d.ClearFlagAtDraw)

	switch prim.Kind {
	case PrimitivePoint:
		x, y := r.transform(d, prim, int32(prim.X), int32(prim.Y))
		ras.drawPoint(colour, int(x), int(y))

	case PrimitiveEllipse:
		cx, cy := r.transform(d, prim, int32(prim.CX), int32(prim.CY))
		rxf := float64(prim.RX) * float64(d.Scale)
		ryf := float64(prim.RY) * float64(d.Scale)
		ras.drawEllipse(colour, prim.Alpha, int(cx), int(cy), int(rxf), int(ryf))

	case PrimitivePolygon:
		verts := make([]Point16, len(prim.Vertices))
		for i, v := range prim.Vertices {
			x, y := r.transform(d, prim, int32(v.X), int32(v.Y))
			verts[i] = Point16{X: int16(x), Y: int16(y)}
		}
		ras.drawPolygon(colour, prim.Alpha, verts)
	}
}

// transform applies the primitive's own offset, then scale about the
// shape's origin, then rotation about the same origin, then translates by
// the draw position; the viewport origin is added later by the
// Rasterizer's clip rect.
func (r *Renderer) transform(d DrawnShape, prim Primitive, px, py int32) (int32, int32) {
	x := float64(px)
	y := float64(py)
	if prim.HasOffset {
		x += float64(prim.OffsetX)
		y += float64(prim.OffsetY)
	}

	ox, oy := float64(d.OriginX), float64(d.OriginY)
	x = (x-ox)*float64(d.Scale) + ox
	y = (y-oy)*float64(d.Scale) + oy

	if d.RotationRad != 0 {
		s, c := math.Sincos(float64(d.RotationRad))
		dx, dy := x-ox, y-oy
		x = ox + dx*c - dy*s
		y = oy + dx*s + dy*c
	}

	x += float64(d.X)
	y += float64(d.Y)
	return int32(math.Round(x)), int32(math.Round(y))
}

// resolveColour masks the primitive's colour index to 5 bits and selects
// the palette half according to the clear-screen flag that was active
// when the shape was queued: non-zero samples the lower half (0-15), zero
// samples the upper half (16-31).
func (r *Renderer) resolveColour(colourIndex, clearFlagAtDraw uint8) Colour {
	idx := int(colourIndex & 0x1F)
	if clearFlagAtDraw == 0 {
		idx += 16
	}
	return r.palette[idx%32]
}

// paintLetterbox blacks out the four rectangles surrounding the 240x128
// cutscene viewport within the 256x224 framebuffer.
func (r *Renderer) paintLetterbox(black Colour) {
	fb := r.fb
	fillRect := func(x0, y0, w, h int) {
		for y := y0; y < y0+h; y++ {
			for x := x0; x < x0+w; x++ {
				fb.writePixel(x, y, black, false)
			}
		}
	}
	fillRect(0, 0, screenWidth, viewportY)
	fillRect(0, viewportY+viewportH, screenWidth, screenHeight-(viewportY+viewportH))
	fillRect(0, viewportY, viewportX, viewportH)
	fillRect(viewportX+viewportW, viewportY, screenWidth-(viewportX+viewportW), viewportH)
}
