// vm.go - bytecode interpreter: executes one Frame's Commands against a Renderer

package flashback

import "fmt"

// FrameChangeFunc is invoked after the VM settles on a new frame index,
// whether by stepping, scrubbing, or looping.
type FrameChangeFunc func(subsceneIdx, frameIdx int)

// VM holds the interpreter's mutable state: the active cutscene, cursor
// position and palette bank; the clear-screen flag lives in the Renderer.
// It owns no framebuffer of its own; every draw opcode is forwarded to a
// Renderer.
type VM struct {
	renderer *Renderer
	cutscene *Cutscene

	subsceneIdx int
	frameIdx    int

	palettes      [][16]Colour
	activePalette Palette

	onFrameChange FrameChangeFunc

	log *logComponent
}

// NewVM constructs a VM bound to a Renderer. Load must be called before
// Step/GoToFrame.
func NewVM(r *Renderer) *VM {
	return &VM{renderer: r, log: newLogComponent("vm")}
}

// OnFrameChange registers the callback fired whenever the current frame
// changes.
func (v *VM) OnFrameChange(fn FrameChangeFunc) {
	v.onFrameChange = fn
}

// Load adopts a decoded Cutscene, resets the renderer's shape set and
// draw lists, and positions the VM at subscene 0, frame 0 without
// executing anything.
func (v *VM) Load(c *Cutscene) {
	v.cutscene = c
	v.palettes = c.Palettes
	v.activePalette = Palette{}
	v.renderer.LoadShapes(c.Shapes)
	v.renderer.SetPalette(v.activePalette)
	v.renderer.ClearAllShapes()
	v.subsceneIdx = 0
	v.frameIdx = 0
}

// CurrentFrame returns the (subscene, frame) indices of the VM's cursor.
func (v *VM) CurrentFrame() (int, int) {
	return v.subsceneIdx, v.frameIdx
}

// StepFrame executes the frame at the cursor, advances the cursor to the
// next frame (wrapping into the next subscene, then to frame 0 of
// subscene 0 at the end of the cutscene), and fires the frame-change
// callback. It returns false when there is no frame to execute.
func (v *VM) StepFrame() (bool, error) {
	frame, ok := v.currentFrameCommands()
	if !ok {
		return false, nil
	}
	if err := v.executeFrame(frame); err != nil {
		return false, err
	}
	v.advanceCursor()
	v.notifyFrameChange()
	return true, nil
}

// PrevFrame moves the cursor one frame back and replays the cutscene from
// the start up to and including that frame, since bytecode state
// (palette, draw lists) is only meaningful as the cumulative effect of
// every prior frame.
func (v *VM) PrevFrame() error {
	target := v.flattenedIndex() - 1
	if target < 0 {
		target = 0
	}
	return v.GoToFrame(target)
}

// GoToFrame resets all renderer and VM state, then replays frames 0..n
// (inclusive) in order. This mirrors the original engine's scrub
// behaviour: there is no incremental undo, only full replay.
func (v *VM) GoToFrame(target int) error {
	if v.cutscene == nil {
		return &InvariantError{Detail: "GoToFrame called before Load"}
	}
	total := v.cutscene.TotalFrames()
	if target < 0 {
		target = 0
	}
	if total > 0 && target >= total {
		target = total - 1
	}

	v.activePalette = Palette{}
	v.renderer.SetPalette(v.activePalette)
	v.renderer.ClearAllShapes()
	v.renderer.SetClearScreen(1)
	v.subsceneIdx = 0
	v.frameIdx = 0

	for i := 0; i <= target; i++ {
		frame, ok := v.currentFrameCommands()
		if !ok {
			break
		}
		if err := v.executeFrame(frame); err != nil {
			return err
		}
		if i < target {
			v.advanceCursor()
		}
	}
	v.notifyFrameChange()
	return nil
}

func (v *VM) flattenedIndex() int {
	n := 0
	for i := 0; i < v.subsceneIdx && i < len(v.cutscene.Script.Subscenes); i++ {
		n += len(v.cutscene.Script.Subscenes[i].Frames)
	}
	return n + v.frameIdx
}

func (v *VM) currentFrameCommands() (Frame, bool) {
	if v.cutscene == nil || v.subsceneIdx >= len(v.cutscene.Script.Subscenes) {
		return Frame{}, false
	}
	sub := v.cutscene.Script.Subscenes[v.subsceneIdx]
	if v.frameIdx >= len(sub.Frames) {
		return Frame{}, false
	}
	return sub.Frames[v.frameIdx], true
}

func (v *VM) advanceCursor() {
	sub := v.cutscene.Script.Subscenes[v.subsceneIdx]
	if v.frameIdx+1 < len(sub.Frames) {
		v.frameIdx++
		return
	}
	if v.subsceneIdx+1 < len(v.cutscene.Script.Subscenes) {
		v.subsceneIdx++
		v.frameIdx = 0
		return
	}
	v.subsceneIdx = 0
	v.frameIdx = 0
}

func (v *VM) notifyFrameChange() {
	if v.onFrameChange != nil {
		v.onFrameChange(v.subsceneIdx, v.frameIdx)
	}
}

func (v *VM) executeFrame(f Frame) error {
	for _, cmd := range f.Commands {
		if err := v.ExecuteCommand(cmd); err != nil {
			return err
		}
	}
	return nil
}

// ExecuteCommand applies one decoded Command's effect to the Renderer.
// handleKeys is accepted and parsed but is a no-op here: input dispatch
// belongs to the host, not this core.
func (v *VM) ExecuteCommand(cmd Command) error {
	switch cmd.Op {
	case OpMarkCurPos:
		// frame boundary: the previous frame's drawn shapes are dropped
		v.renderer.ClearDrawnShapes()

	case OpRefreshScreen:
		v.renderer.SetClearScreen(cmd.ClearMode)
		if cmd.ClearMode != 0 {
			v.renderer.ClearDrawnShapes()
		}

	case OpWaitForSync:
		// timing is a host concern; Frames is decoded onto cmd and nothing
		// in this core waits on it

	case OpDrawShape:
		x, y := v.resolveShapePos(cmd)
		v.renderer.DrawShape(cmd.ShapeID, x, y)

	case OpSetPalette:
		v.applyPalette(cmd)

	case OpDrawCaptionText:
		// caption text rendering is a host/.FNT concern; out of scope

	case OpNop, OpSkip3:
		// no renderer effect

	case OpRefreshAll:
		v.renderer.ClearAllShapes()

	case OpDrawShapeScale:
		x, y := v.resolveShapePos(cmd)
		v.renderer.DrawShapeScale(cmd.ShapeID, x, y, cmd.Zoom, cmd.OriginX, cmd.OriginY)

	case OpDrawShapeScaleRot:
		if cmd.HasRotB || cmd.HasRotC {
			return &InvariantError{Detail: fmt.Sprintf(
				"drawShapeScaleRotate: secondary rotation angle(s) exercised for shape %d (rotB=%v rotC=%v); unsupported",
				cmd.ShapeID, cmd.HasRotB, cmd.HasRotC)}
		}
		x, y := v.resolveShapePos(cmd)
		v.renderer.DrawShapeScaleRotate(cmd.ShapeID, x, y, cmd.Zoom, cmd.OriginX, cmd.OriginY, cmd.RotA)

	case OpCopyScreen:
		// double-buffer swap is a host/export concern; this core always
		// renders the live draw list

	case OpDrawTextAtPos:
		// text rendering is a host/.FNT concern; out of scope

	case OpHandleKeys:
		// input binding is a host concern; parsed data is available on cmd

	default:
		return &InvariantError{Detail: fmt.Sprintf("unhandled opcode %d", cmd.Op)}
	}
	return nil
}

func (v *VM) resolveShapePos(cmd Command) (int32, int32) {
	if cmd.HasPos {
		return int32(cmd.X), int32(cmd.Y)
	}
	return 0, 0
}

// applyPalette resolves setPalette's bufferNum trick: bit 0 of bufferNum,
// XORed with 1, selects which of the renderer's two live 16-colour
// halves (low = clear_screen!=0, high = clear_screen==0) gets replaced;
// the table index loaded into it is paletteNum unchanged. The other half
// keeps whatever it held from a prior setPalette, which is what makes a
// flash-cut (set one half, then flip clear_screen) work.
func (v *VM) applyPalette(cmd Command) {
	destSlot := (cmd.BufferNum ^ 1) & 1
	idx := int(cmd.PaletteNum)
	if idx < 0 || idx >= len(v.palettes) {
		v.log.Warnf("setPalette: index %d out of range (have %d)", idx, len(v.palettes))
		return
	}
	half := v.palettes[idx]

	full := v.activePalette
	if destSlot == 0 {
		copy(full[0:16], half[:])
	} else {
		copy(full[16:32], half[:])
	}
	v.activePalette = full
	v.renderer.SetPalette(full)
}
