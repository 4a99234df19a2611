package flashback

import "testing"

func newTestRasterizer(w, h int) (*Framebuffer, *Rasterizer) {
	fb := newFramebuffer(w, h)
	ras := newRasterizer(fb, ClipRect{W: w, H: h})
	return fb, ras
}

func pixelAt(fb *Framebuffer, x, y int) Colour {
	i := (y*fb.Width + x) * 4
	return Colour{R: fb.Pix[i], G: fb.Pix[i+1], B: fb.Pix[i+2]}
}

func TestDrawPointClipping(t *testing.T) {
	fb, ras := newTestRasterizer(8, 8)
	white := Colour{R: 255, G: 255, B: 255}
	ras.drawPoint(white, 3, 3)
	ras.drawPoint(white, -1, 0) // out of bounds, must not panic or wrap
	ras.drawPoint(white, 100, 100)

	if pixelAt(fb, 3, 3) != white {
		t.Fatalf("pixel (3,3) = %+v, want white", pixelAt(fb, 3, 3))
	}
}

func TestDrawLineHorizontal(t *testing.T) {
	fb, ras := newTestRasterizer(10, 4)
	c := Colour{R: 10, G: 20, B: 30}
	ras.drawLine(c, 1, 2, 5, 2)
	for x := 1; x <= 5; x++ {
		if pixelAt(fb, x, 2) != c {
			t.Fatalf("pixel (%d,2) not drawn", x)
		}
	}
	if pixelAt(fb, 6, 2) == c {
		t.Fatal("pixel (6,2) should not be drawn")
	}
}

func TestDrawLineZeroLength(t *testing.T) {
	fb, ras := newTestRasterizer(4, 4)
	c := Colour{R: 1, G: 2, B: 3}
	ras.drawLine(c, 2, 2, 2, 2)
	if pixelAt(fb, 2, 2) != c {
		t.Fatal("zero-length line should still draw its single point")
	}
}

func TestDrawPolygonDegenerateCases(t *testing.T) {
	fb, ras := newTestRasterizer(10, 10)
	c := Colour{R: 9, G: 9, B: 9}

	ras.drawPolygon(c, false, nil)
	ras.drawPolygon(c, false, []Point16{{X: 3, Y: 3}})
	if pixelAt(fb, 3, 3) != c {
		t.Fatal("single-vertex polygon should degrade to drawPoint")
	}

	fb2, ras2 := newTestRasterizer(10, 10)
	ras2.drawPolygon(c, false, []Point16{{X: 1, Y: 1}, {X: 5, Y: 1}})
	if pixelAt(fb2, 3, 1) != c {
		t.Fatal("two-vertex polygon should degrade to drawLine")
	}
}

func TestDrawPolygonFillsHorizontalSpan(t *testing.T) {
	fb, ras := newTestRasterizer(20, 20)
	c := Colour{R: 50, G: 60, B: 70}
	verts := []Point16{
		{X: 2, Y: 2}, {X: 10, Y: 2}, {X: 10, Y: 8}, {X: 2, Y: 8},
	}
	ras.drawPolygon(c, false, verts)

	if pixelAt(fb, 6, 5) != c {
		t.Fatal("expected interior pixel of filled rectangle to be coloured")
	}
	if pixelAt(fb, 0, 0) == c {
		t.Fatal("pixel outside polygon should not be coloured")
	}
}

func TestDrawPolygonClipsToRect(t *testing.T) {
	fb := newFramebuffer(10, 10)
	ras := newRasterizer(fb, ClipRect{OriginX: 0, OriginY: 0, W: 5, H: 5})
	c := Colour{R: 1, G: 1, B: 1}
	verts := []Point16{
		{X: -5, Y: -5}, {X: 20, Y: -5}, {X: 20, Y: 20}, {X: -5, Y: 20},
	}
	ras.drawPolygon(c, false, verts)

	if pixelAt(fb, 2, 2) != c {
		t.Fatal("expected pixel within clip rect to be filled")
	}
	if pixelAt(fb, 7, 7) == c {
		t.Fatal("pixel outside the 5x5 clip rect must not be touched")
	}
}

func TestWritePixelAlphaBlendIsIdempotentOnSameColour(t *testing.T) {
	fb := newFramebuffer(2, 2)
	c := Colour{R: 200, G: 100, B: 50}
	fb.writePixel(0, 0, c, false)
	fb.writePixel(0, 0, c, true)
	first := pixelAt(fb, 0, 0)
	// blending c onto a pixel that already holds c must not drift
	fb.writePixel(0, 0, c, true)
	second := pixelAt(fb, 0, 0)
	if first != second {
		t.Fatalf("alpha blend not idempotent once converged: %+v -> %+v", first, second)
	}
}

func TestDrawEllipseSymmetric(t *testing.T) {
	fb, ras := newTestRasterizer(40, 40)
	c := Colour{R: 5, G: 5, B: 5}
	cx, cy, rx, ry := 20, 20, 10, 6
	ras.drawEllipse(c, false, cx, cy, rx, ry)

	if pixelAt(fb, cx, cy-ry) != pixelAt(fb, cx, cy+ry) {
		t.Fatal("ellipse should be vertically symmetric about its centre")
	}
	if pixelAt(fb, cx-rx, cy) != pixelAt(fb, cx+rx, cy) {
		t.Fatal("ellipse should be horizontally symmetric about its centre")
	}
}

func TestDrawEllipseDegenerateRadius(t *testing.T) {
	fb, ras := newTestRasterizer(10, 10)
	c := Colour{R: 3, G: 3, B: 3}
	ras.drawEllipse(c, false, 5, 5, 0, 0)
	if pixelAt(fb, 5, 5) != c {
		t.Fatal("zero-radius ellipse should degrade to a single point")
	}
}
