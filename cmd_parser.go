// cmd_parser.go - decode the bytecode script asset (.CMD)

package flashback

// ParseCMD decodes a complete .CMD asset into a Script: an ordered list of
// Subscenes, each grouped into Frames at markCurPos boundaries.
func ParseCMD(data []byte) (Script, error) {
	if len(data) < 2 {
		return Script{}, newFormatError("CMD", ReasonFileTooSmall, 0, nil)
	}

	subCount, err := beU16At(data, 0)
	if err != nil {
		return Script{}, newFormatError("CMD", ReasonTruncated, 0, err)
	}

	var subOffsets []int
	var base int
	if subCount == 0 {
		subOffsets = []int{0}
		base = 2
	} else {
		base = (int(subCount) + 1) * 2
		subOffsets = make([]int, subCount)
		for i := 0; i < int(subCount); i++ {
			off, err := beU16At(data, 2+i*2)
			if err != nil {
				return Script{}, newFormatError("CMD", ReasonTruncated, 2+i*2, err)
			}
			subOffsets[i] = int(off)
		}
	}

	subscenes := make([]Subscene, len(subOffsets))
	for i, off := range subOffsets {
		frames, err := parseCMDSubscene(data, base+off)
		if err != nil {
			return Script{}, err
		}
		subscenes[i] = Subscene{ID: i, Frames: frames}
	}

	return Script{BaseOffset: base, Subscenes: subscenes}, nil
}

// parseCMDSubscene decodes one subscene's command stream into frames. A
// markCurPos command closes the frame accumulated so far (only if it is
// non-empty) and then opens the next frame, becoming that next frame's
// first command rather than the closed frame's last — so a markCurPos
// with nothing accumulated before it (a leading marker, or two markers
// back to back) merges into the frame that follows instead of spawning
// its own single-command frame. Any trailing commands with no closing
// terminator form a final, implicit frame.
func parseCMDSubscene(data []byte, start int) ([]Frame, error) {
	r := newByteReader(data)
	r.seek(start)

	var frames []Frame
	var current []Command

	for r.pos < len(data) {
		cmd, ended, err := parseCMDCommand(r)
		if err != nil {
			return nil, err
		}
		if ended {
			break
		}
		if cmd.Op == OpMarkCurPos && len(current) > 0 {
			frames = append(frames, Frame{Commands: current})
			current = nil
		}
		current = append(current, cmd)
	}
	if len(current) > 0 {
		frames = append(frames, Frame{Commands: current})
	}
	return frames, nil
}

// parseCMDCommand decodes a single instruction at the reader's current
// position. ended is true when the stream's terminal high-bit byte was
// consumed.
func parseCMDCommand(r *byteReader) (cmd Command, ended bool, err error) {
	startOffset := r.pos
	b, err := r.u8()
	if err != nil {
		return Command{}, false, newFormatError("CMD", ReasonTruncated, startOffset, err)
	}
	if b&0x80 != 0 {
		return Command{}, true, nil
	}

	op := b >> 2
	if op > 14 {
		return Command{}, false, newFormatError("CMD", ReasonBadOpcode, startOffset, nil)
	}

	cmd.Op = Opcode(op)
	if cmd.Op == opMarkCurPosAlias {
		cmd.Op = OpMarkCurPos
	}

	switch Opcode(op) {
	case OpMarkCurPos, opMarkCurPosAlias:
		// no arguments

	case OpRefreshScreen:
		cmd.ClearMode, err = r.u8()

	case OpWaitForSync:
		cmd.Frames, err = r.u8()

	case OpDrawShape:
		err = parseShapeWord(r, &cmd)

	case OpSetPalette:
		if cmd.PaletteNum, err = r.u8(); err == nil {
			cmd.BufferNum, err = r.u8()
		}

	case OpDrawCaptionText:
		cmd.StringID, err = r.beU16()

	case OpNop:
		// no arguments

	case OpSkip3:
		for i := 0; i < 3 && err == nil; i++ {
			cmd.Skipped[i], err = r.u8()
		}

	case OpRefreshAll:
		// no arguments

	case OpDrawShapeScale:
		if err = parseShapeWord(r, &cmd); err == nil {
			var zoom uint16
			if zoom, err = r.beU16(); err == nil {
				cmd.Zoom = int16(zoom)
				if cmd.OriginX, err = r.u8(); err == nil {
					cmd.OriginY, err = r.u8()
				}
			}
		}

	case OpDrawShapeScaleRot:
		err = parseDrawShapeScaleRot(r, &cmd)

	case OpCopyScreen:
		// no arguments

	case OpDrawTextAtPos:
		err = parseDrawTextAtPos(r, &cmd)

	case OpHandleKeys:
		err = parseHandleKeys(r, &cmd)
	}

	if err != nil {
		return Command{}, false, newFormatError("CMD", ReasonTruncated, startOffset, err)
	}
	return cmd, false, nil
}

// parseShapeWord decodes the shared drawShape-family header: a u16 whose
// low 11 bits are the shape id and whose 0x8000 bit gates an explicit
// (x, y) position.
func parseShapeWord(r *byteReader, cmd *Command) error {
	word, err := r.beU16()
	if err != nil {
		return err
	}
	cmd.ShapeID = word & 0x7FF
	if word&0x8000 != 0 {
		cmd.HasPos = true
		if cmd.X, err = r.beI16(); err != nil {
			return err
		}
		if cmd.Y, err = r.beI16(); err != nil {
			return err
		}
	}
	return nil
}

func parseDrawShapeScaleRot(r *byteReader, cmd *Command) error {
	word, err := r.beU16()
	if err != nil {
		return err
	}
	cmd.ShapeID = word & 0x7FF
	if word&0x8000 != 0 {
		cmd.HasPos = true
		if cmd.X, err = r.beI16(); err != nil {
			return err
		}
		if cmd.Y, err = r.beI16(); err != nil {
			return err
		}
	}

	if word&0x4000 != 0 {
		cmd.HasZoom = true
		var zoom uint16
		if zoom, err = r.beU16(); err != nil {
			return err
		}
		cmd.Zoom = int16(zoom)
	}

	if cmd.OriginX, err = r.u8(); err != nil {
		return err
	}
	if cmd.OriginY, err = r.u8(); err != nil {
		return err
	}

	if cmd.RotA, err = r.beU16(); err != nil {
		return err
	}

	cmd.RotB = 180
	if word&0x2000 != 0 {
		cmd.HasRotB = true
		if cmd.RotB, err = r.beU16(); err != nil {
			return err
		}
	}

	cmd.RotC = 90
	if word&0x1000 != 0 {
		cmd.HasRotC = true
		if cmd.RotC, err = r.beU16(); err != nil {
			return err
		}
	}

	return nil
}

func parseDrawTextAtPos(r *byteReader, cmd *Command) error {
	v, err := r.beU16()
	if err != nil {
		return err
	}
	if v == 0xFFFF {
		cmd.HasText = false
		return nil
	}
	cmd.HasText = true
	cmd.StringID = v & 0xFFF
	cmd.TextColr = uint8((v >> 12) & 0xF)

	xs, err := r.i8()
	if err != nil {
		return err
	}
	ys, err := r.i8()
	if err != nil {
		return err
	}
	cmd.TextX = int16(xs) * 8
	cmd.TextY = int16(ys) * 8
	return nil
}

func parseHandleKeys(r *byteReader, cmd *Command) error {
	for {
		mask, err := r.u8()
		if err != nil {
			return err
		}
		if mask == 0xFF {
			return nil
		}
		target, err := r.beI16()
		if err != nil {
			return err
		}
		cmd.Handlers = append(cmd.Handlers, KeyHandler{KeyMask: mask, Target: target})
	}
}
