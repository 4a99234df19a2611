// rasterizer.go - scanline polygon fill, line, ellipse and point drawing

package flashback

import "image"

// Framebuffer is a packed RGBA pixel buffer, always fully opaque after any
// write (the alpha byte is forced to 0xFF).
type Framebuffer struct {
	Width, Height int
	Pix           []byte
}

func newFramebuffer(w, h int) *Framebuffer {
	return &Framebuffer{Width: w, Height: h, Pix: make([]byte, w*h*4)}
}

func (f *Framebuffer) clear(c Colour) {
	for i := 0; i < len(f.Pix); i += 4 {
		f.Pix[i+0] = c.R
		f.Pix[i+1] = c.G
		f.Pix[i+2] = c.B
		f.Pix[i+3] = 0xFF
	}
}

// AsImage wraps the framebuffer's pixel storage in a standard
// image.RGBA, for hosts that render through image/draw or ebiten rather
// than reading Pix directly. The returned image shares Pix's backing
// array; it is a view, not a copy.
func (f *Framebuffer) AsImage() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

func (f *Framebuffer) inBounds(x, y int) bool {
	return x >= 0 && x < f.Width && y >= 0 && y < f.Height
}

func (f *Framebuffer) writePixel(x, y int, c Colour, alpha bool) {
	if !f.inBounds(x, y) {
		return
	}
	i := (y*f.Width + x) * 4
	if alpha {
		f.Pix[i+0] = uint8((int(f.Pix[i+0]) + int(c.R)) / 2)
		f.Pix[i+1] = uint8((int(f.Pix[i+1]) + int(c.G)) / 2)
		f.Pix[i+2] = uint8((int(f.Pix[i+2]) + int(c.B)) / 2)
	} else {
		f.Pix[i+0] = c.R
		f.Pix[i+1] = c.G
		f.Pix[i+2] = c.B
	}
	f.Pix[i+3] = 0xFF
}

// ClipRect is the rasterizer's working rectangle. All primitive
// coordinates passed to Rasterizer methods are relative to (0,0) at
// ClipRect's own top-left; Rasterizer adds OriginX/OriginY before writing
// to the Framebuffer.
type ClipRect struct {
	OriginX, OriginY int
	W, H             int
}

// Rasterizer draws primitives into a Framebuffer within a ClipRect.
type Rasterizer struct {
	fb   *Framebuffer
	clip ClipRect
}

func newRasterizer(fb *Framebuffer, clip ClipRect) *Rasterizer {
	return &Rasterizer{fb: fb, clip: clip}
}

func (r *Rasterizer) inClip(x, y int) bool {
	return x >= 0 && x < r.clip.W && y >= 0 && y < r.clip.H
}

func (r *Rasterizer) put(x, y int, c Colour, alpha bool) {
	if !r.inClip(x, y) {
		return
	}
	r.fb.writePixel(r.clip.OriginX+x, r.clip.OriginY+y, c, alpha)
}

// drawPoint writes one pixel if it lies within the clipping rectangle and
// on-screen.
func (r *Rasterizer) drawPoint(c Colour, x, y int) {
	r.put(x, y, c, false)
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// drawLine is a Bresenham line with independent major/minor step
// variables; the first endpoint is always drawn, even for a
// zero-length line.
func (r *Rasterizer) drawLine(c Colour, x1, y1, x2, y2 int) {
	dx := absInt(x2 - x1)
	dy := absInt(y2 - y1)
	stepX := sign(x2 - x1)
	stepY := sign(y2 - y1)

	var deltaMax, deltaMin int
	majorIsX := dx >= dy
	if majorIsX {
		deltaMax, deltaMin = dx, dy
	} else {
		deltaMax, deltaMin = dy, dx
	}

	x, y := x1, y1
	oct := 2*deltaMin - deltaMax
	r.drawPoint(c, x, y)

	for i := 0; i < deltaMax; i++ {
		if oct >= 0 {
			x += stepX
			y += stepY
			oct += 2 * (deltaMin - deltaMax)
		} else {
			if majorIsX {
				x += stepX
			} else {
				y += stepY
			}
			oct += 2 * deltaMin
		}
		r.drawPoint(c, x, y)
	}
}

// hspan fills [x1, x2] (inclusive, x1<=x2 required by caller) on row y,
// clamping to the clipping rectangle.
func (r *Rasterizer) hspan(c Colour, y, x1, x2 int, alpha bool) {
	if y < 0 || y >= r.clip.H {
		return
	}
	if x1 < 0 {
		x1 = 0
	}
	if x2 > r.clip.W-1 {
		x2 = r.clip.W - 1
	}
	for x := x1; x <= x2; x++ {
		r.fb.writePixel(r.clip.OriginX+x, r.clip.OriginY+y, c, alpha)
	}
}

// drawPolygon fills a polygon using fixed-point (16.16) scanline edge
// walking. 1 or 2 vertices degrade to drawPoint/drawLine.
func (r *Rasterizer) drawPolygon(c Colour, alpha bool, verts []Point16) {
	switch len(verts) {
	case 0:
		return
	case 1:
		r.drawPoint(c, int(verts[0].X), int(verts[0].Y))
		return
	case 2:
		r.drawLine(c, int(verts[0].X), int(verts[0].Y), int(verts[1].X), int(verts[1].Y))
		return
	}

	ymin, ymax := int(verts[0].Y), int(verts[0].Y)
	xmin, xmax := int(verts[0].X), int(verts[0].X)
	top := 0
	for i, v := range verts {
		if int(v.Y) < ymin {
			ymin = int(v.Y)
			top = i
		}
		if int(v.Y) > ymax {
			ymax = int(v.Y)
		}
		if int(v.X) < xmin {
			xmin = int(v.X)
		}
		if int(v.X) > xmax {
			xmax = int(v.X)
		}
	}

	if xmax < 0 || xmin >= r.clip.W || ymax < 0 || ymin >= r.clip.H {
		return
	}

	if ymin == ymax {
		r.hspan(c, ymin, xmin, xmax, alpha)
		return
	}

	left := newEdgeCursor(verts, top, -1)
	right := newEdgeCursor(verts, top, +1)
	left.advance(-1)
	right.advance(-1)

	startY := ymin
	if startY < 0 {
		startY = 0
	}
	endY := ymax
	if endY > r.clip.H-1 {
		endY = r.clip.H - 1
	}

	if ymin < 0 {
		pre := int32(-ymin)
		left.x += left.step * pre
		right.x += right.step * pre
	}

	for y := startY; y <= endY; y++ {
		for y >= left.endY && left.from != right.from {
			left.advance(right.from)
		}
		for y >= right.endY && left.from != right.from {
			right.advance(left.from)
		}

		lx := int((left.x + 0x8000) >> 16)
		rx := int((right.x + 0x8000) >> 16)
		if lx > rx {
			lx, rx = rx, lx
		}
		r.hspan(c, y, lx, rx, alpha)

		left.x += left.step
		right.x += right.step
	}
}

// drawPolygonOutline strokes consecutive edges plus a closing segment.
func (r *Rasterizer) drawPolygonOutline(c Colour, verts []Point16) {
	if len(verts) < 2 {
		if len(verts) == 1 {
			r.drawPoint(c, int(verts[0].X), int(verts[0].Y))
		}
		return
	}
	for i := 0; i < len(verts); i++ {
		a := verts[i]
		b := verts[(i+1)%len(verts)]
		r.drawLine(c, int(a.X), int(a.Y), int(b.X), int(b.Y))
	}
}

// drawEllipse uses the midpoint ellipse algorithm across both regions and
// scanline-fills the accumulated spans.
func (r *Rasterizer) drawEllipse(c Colour, alpha bool, cx, cy, rx, ry int) {
	if rx <= 0 || ry <= 0 {
		r.drawPoint(c, cx, cy)
		return
	}

	spans := map[int][2]int{}
	record := func(y, x1, x2 int) {
		if x1 > x2 {
			x1, x2 = x2, x1
		}
		if s, ok := spans[y]; ok {
			if x1 < s[0] {
				s[0] = x1
			}
			if x2 > s[1] {
				s[1] = x2
			}
			spans[y] = s
		} else {
			spans[y] = [2]int{x1, x2}
		}
	}

	rx2 := rx * rx
	ry2 := ry * ry
	x, y := 0, ry
	px, py := 0, 2*rx2*y

	record(cy+y, cx-x, cx+x)
	record(cy-y, cx-x, cx+x)

	// Region 1: slope magnitude < 1
	p := ry2 - rx2*ry + rx2/4
	for px < py {
		x++
		px += 2 * ry2
		if p < 0 {
			p += ry2 + px
		} else {
			y--
			py -= 2 * rx2
			p += ry2 + px - py
		}
		record(cy+y, cx-x, cx+x)
		record(cy-y, cx-x, cx+x)
	}

	// Region 2: slope magnitude >= 1
	p = ry2*(x*x+x) + rx2*(y-1)*(y-1) - rx2*ry2
	for y > 0 {
		y--
		py -= 2 * rx2
		if p > 0 {
			p += rx2 - py
		} else {
			x++
			px += 2 * ry2
			p += rx2 - py + px
		}
		record(cy+y, cx-x, cx+x)
		record(cy-y, cx-x, cx+x)
	}

	for row, span := range spans {
		r.hspan(c, row, span[0], span[1], alpha)
	}
}

// edgeCursor walks one side of a polygon (left or right) vertex by vertex,
// tracking a 16.16 fixed-point x accumulator and its per-row step.
type edgeCursor struct {
	verts  []Point16
	dir    int
	from   int
	x      int32
	step   int32
	endY   int
	isLeft bool
}

func newEdgeCursor(verts []Point16, start, dir int) *edgeCursor {
	return &edgeCursor{verts: verts, dir: dir, from: start, isLeft: dir < 0}
}

// advance moves the cursor to the next vertex in its direction, skipping
// degenerate (dy==0) segments, and recomputes the fixed-point step. A
// degenerate segment that lands on stop ends the walk there with x and
// step unchanged; stop -1 never matches.
func (e *edgeCursor) advance(stop int) {
	n := len(e.verts)
	for {
		to := (e.from + e.dir + n) % n
		v0 := e.verts[e.from]
		v1 := e.verts[to]
		dy := int(v1.Y) - int(v0.Y)
		if dy == 0 {
			e.from = to
			if to == stop {
				return
			}
			continue
		}
		dx := int(v1.X) - int(v0.X)
		e.step = edgeStep(dx, dy, e.isLeft)
		e.x = int32(v0.X) << 16
		e.endY = int(v1.Y)
		e.from = to
		return
	}
}

// edgeStep computes the fixed-point (16.16) per-row x step for an edge
// moving dx over dy rows, including the 16-bit intermediate truncation
// that is load-bearing for matching the reference rasterizer's output on
// steep edges.
func edgeStep(dx, dy int, isLeft bool) int32 {
	a := int32(dx) * 256
	if absInt32(a>>16) < int32(dy) {
		q := int16(a / int32(dy))
		return int32(q) * 256
	}
	if isLeft {
		return int32(((a/256)/int32(dy))&0xFFFF) << 16
	}
	return int32((a/256)/int32(dy)) << 16
}

func absInt32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
