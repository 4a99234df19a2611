package flashback

import "testing"

func TestZoomToScale(t *testing.T) {
	cases := []struct {
		zoom int16
		want float32
	}{
		{0, 1.0},
		{-256, 0.5},
		{512, 2.0},
	}
	for _, c := range cases {
		if got := zoomToScale(c.zoom); got != c.want {
			t.Fatalf("zoomToScale(%d) = %v, want %v", c.zoom, got, c.want)
		}
	}
}

func TestRendererClearDrawnShapesKeepsBackground(t *testing.T) {
	r := NewRenderer()
	r.LoadShapes(map[uint16]Shape{
		1: {ID: 1, Primitives: []Primitive{{Kind: PrimitivePoint, X: 1, Y: 1}}},
	})

	r.SetClearScreen(1)
	r.DrawShape(1, 0, 0) // goes to both drawList and auxList

	r.SetClearScreen(0)
	r.DrawShape(1, 10, 10) // foreground only: drawList, not auxList

	if len(r.drawList) != 2 {
		t.Fatalf("drawList has %d entries, want 2", len(r.drawList))
	}
	if len(r.auxList) != 1 {
		t.Fatalf("auxList has %d entries, want 1", len(r.auxList))
	}

	r.ClearDrawnShapes() // clearScreen currently 0: rebuild from auxList
	if len(r.drawList) != 1 {
		t.Fatalf("after ClearDrawnShapes, drawList has %d entries, want 1", len(r.drawList))
	}
	if r.drawList[0].X != 0 {
		t.Fatalf("surviving draw should be the background one, got X=%d", r.drawList[0].X)
	}
}

func TestRendererClearDrawnShapesEmptiesWhenClearScreenSet(t *testing.T) {
	r := NewRenderer()
	r.LoadShapes(map[uint16]Shape{1: {ID: 1}})
	r.SetClearScreen(1)
	r.DrawShape(1, 0, 0)
	r.ClearDrawnShapes()
	if len(r.drawList) != 0 || len(r.auxList) != 0 {
		t.Fatalf("expected both lists empty, got draw=%d aux=%d", len(r.drawList), len(r.auxList))
	}
}

func TestRendererClearAllShapes(t *testing.T) {
	r := NewRenderer()
	r.LoadShapes(map[uint16]Shape{1: {ID: 1}})
	r.SetClearScreen(1)
	r.DrawShape(1, 0, 0)
	r.SetClearScreen(0)
	r.DrawShape(1, 5, 5)
	r.ClearAllShapes()
	if len(r.drawList) != 0 || len(r.auxList) != 0 {
		t.Fatal("ClearAllShapes must empty both lists unconditionally")
	}
}

func TestRendererResolveColourSelectsPaletteHalf(t *testing.T) {
	r := NewRenderer()
	var pal Palette
	for i := range pal {
		pal[i] = Colour{R: uint8(i)}
	}
	r.SetPalette(pal)

	low := r.resolveColour(5, 1)  // clear_screen != 0 -> lower half
	high := r.resolveColour(5, 0) // clear_screen == 0 -> upper half
	if low.R != 5 {
		t.Fatalf("low half colour = %d, want 5", low.R)
	}
	if high.R != 21 {
		t.Fatalf("high half colour = %d, want 21", high.R)
	}
}

func TestRendererRenderPaintsLetterbox(t *testing.T) {
	r := NewRenderer()
	r.LoadShapes(map[uint16]Shape{})
	r.Render()

	fb := r.Framebuffer()
	i := (0*fb.Width + 0) * 4
	if fb.Pix[i+3] != 0xFF {
		t.Fatal("framebuffer pixel should always be fully opaque")
	}
	// (0,0) lies in the top letterbox strip, well outside the viewport.
	if fb.Pix[i] != 0 || fb.Pix[i+1] != 0 || fb.Pix[i+2] != 0 {
		t.Fatalf("letterbox pixel (0,0) = (%d,%d,%d), want black", fb.Pix[i], fb.Pix[i+1], fb.Pix[i+2])
	}
}

func TestRendererDrawShapeUnknownIDIsSkipped(t *testing.T) {
	r := NewRenderer()
	r.LoadShapes(map[uint16]Shape{})
	r.DrawShape(99, 0, 0)
	r.Render() // must not panic despite the missing shape id
}
