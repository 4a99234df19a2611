package flashback

import (
	"errors"
	"testing"
)

func testCutscene() *Cutscene {
	shapes := map[uint16]Shape{
		0: {ID: 0, Primitives: []Primitive{{Kind: PrimitivePoint, X: 1, Y: 1, ColourIndex: 2}}},
	}
	palettes := [][16]Colour{
		{{R: 10}},
		{{R: 20}},
	}
	script := Script{
		Subscenes: []Subscene{
			{
				ID: 0,
				Frames: []Frame{
					{Commands: []Command{
						{Op: OpDrawShape, ShapeID: 0, HasPos: true, X: 3, Y: 4},
						{Op: OpMarkCurPos},
					}},
					{Commands: []Command{
						{Op: OpDrawShape, ShapeID: 0, HasPos: true, X: 7, Y: 8},
						{Op: OpMarkCurPos},
					}},
				},
			},
		},
	}
	return &Cutscene{Name: "test", Shapes: shapes, Palettes: palettes, Script: script}
}

func TestVMStepFrameAdvancesAndWraps(t *testing.T) {
	renderer := NewRenderer()
	vm := NewVM(renderer)
	vm.Load(testCutscene())

	ok, err := vm.StepFrame()
	if err != nil || !ok {
		t.Fatalf("StepFrame() = (%v, %v), want (true, nil)", ok, err)
	}
	sub, frame := vm.CurrentFrame()
	if sub != 0 || frame != 1 {
		t.Fatalf("cursor = (%d,%d), want (0,1)", sub, frame)
	}

	ok, err = vm.StepFrame()
	if err != nil || !ok {
		t.Fatalf("second StepFrame() = (%v, %v), want (true, nil)", ok, err)
	}
	sub, frame = vm.CurrentFrame()
	if sub != 0 || frame != 0 {
		t.Fatalf("cursor after wrap = (%d,%d), want (0,0)", sub, frame)
	}
}

func TestVMGoToFrameIsDeterministic(t *testing.T) {
	renderer := NewRenderer()
	vm := NewVM(renderer)
	vm.Load(testCutscene())

	if err := vm.GoToFrame(1); err != nil {
		t.Fatalf("GoToFrame failed: %v", err)
	}
	firstRun := renderer.drawList

	vm.Load(testCutscene())
	if err := vm.GoToFrame(1); err != nil {
		t.Fatalf("second GoToFrame failed: %v", err)
	}
	secondRun := renderer.drawList

	if len(firstRun) != len(secondRun) {
		t.Fatalf("draw list lengths differ: %d vs %d", len(firstRun), len(secondRun))
	}
	for i := range firstRun {
		if firstRun[i].X != secondRun[i].X || firstRun[i].Y != secondRun[i].Y {
			t.Fatalf("draw %d differs between runs: %+v vs %+v", i, firstRun[i], secondRun[i])
		}
	}
}

func TestVMGoToFrameClampsOutOfRange(t *testing.T) {
	renderer := NewRenderer()
	vm := NewVM(renderer)
	vm.Load(testCutscene())

	if err := vm.GoToFrame(999); err != nil {
		t.Fatalf("GoToFrame failed: %v", err)
	}
	sub, frame := vm.CurrentFrame()
	if sub != 0 || frame != 1 {
		t.Fatalf("cursor = (%d,%d), want clamped to last frame (0,1)", sub, frame)
	}
}

func TestVMSetPaletteXORSlot(t *testing.T) {
	renderer := NewRenderer()
	vm := NewVM(renderer)
	vm.Load(testCutscene())

	if err := vm.ExecuteCommand(Command{Op: OpSetPalette, PaletteNum: 0, BufferNum: 0}); err != nil {
		t.Fatalf("ExecuteCommand failed: %v", err)
	}
	// destSlot = (0^1)&1 = 1 (high half), idx = 0 -> palettes[0] (R=10)
	if vm.activePalette[16].R != 10 {
		t.Fatalf("high half = %d, want 10", vm.activePalette[16].R)
	}

	if err := vm.ExecuteCommand(Command{Op: OpSetPalette, PaletteNum: 1, BufferNum: 1}); err != nil {
		t.Fatalf("ExecuteCommand failed: %v", err)
	}
	// destSlot = (1^1)&1 = 0 (low half), idx = 1 -> palettes[1] (R=20);
	// high half must be untouched by this second call
	if vm.activePalette[0].R != 20 {
		t.Fatalf("low half = %d, want 20", vm.activePalette[0].R)
	}
	if vm.activePalette[16].R != 10 {
		t.Fatalf("high half should be unchanged, got %d", vm.activePalette[16].R)
	}
}

func TestVMRejectsRotationB(t *testing.T) {
	renderer := NewRenderer()
	vm := NewVM(renderer)
	vm.Load(testCutscene())

	err := vm.ExecuteCommand(Command{Op: OpDrawShapeScaleRot, ShapeID: 0, HasRotB: true})
	if err == nil {
		t.Fatal("expected error for drawShapeScaleRotate with rotation B")
	}
	var ie *InvariantError
	if !errors.As(err, &ie) {
		t.Fatalf("expected *InvariantError, got %T", err)
	}
}
