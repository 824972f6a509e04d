// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package protocol

import (
	"bytes"
	"encoding/binary"
	"io"
)

// FrameWriter writes frames in the layout read by a FrameReader configured
// with the same options.
//
// FrameWriter is used to synthesize demo streams, chiefly for tests and
// tooling.
type FrameWriter struct {
	// SequenceNumbers mirrors FrameReader.SequenceNumbers.
	SequenceNumbers bool

	buf bytes.Buffer
}

// WriteFrame writes f to w.
//
// Frames with unknown types are written in the length-prefixed layout that a
// lenient FrameReader expects. Snapshot flags and local view angles are
// written as zero. A Stop frame writes only its type byte.
func (fw *FrameWriter) WriteFrame(w io.Writer, f *Frame) error {
	fw.buf.Reset()
	put := func(v interface{}) {
		// Writes to a bytes.Buffer cannot fail.
		_ = binary.Write(&fw.buf, binary.LittleEndian, v)
	}

	// [0] Type.
	fw.buf.WriteByte(byte(f.Type))
	if f.Type == Stop {
		_, err := w.Write(fw.buf.Bytes())
		return err
	}

	// [1:5] Tick.
	put(f.Tick)

	switch {
	case f.Type.IsSnapshot():
		put(int32(0))
		for slot := 0; slot < viewSlots; slot++ {
			put(f.ViewOrigin[slot])
			put(f.ViewAngles[slot])
			put(Vector{})
		}
		if fw.SequenceNumbers {
			put(f.SequenceIn)
			put(f.SequenceOut)
		}

	case f.Type == UserCmd:
		put(int32(0))

	case f.Type == SyncTick:
		_, err := w.Write(fw.buf.Bytes())
		return err
	}

	put(int32(len(f.Payload)))
	fw.buf.Write(f.Payload)

	_, err := w.Write(fw.buf.Bytes())
	return err
}

// WriteStop writes a Stop frame to w.
func (fw *FrameWriter) WriteStop(w io.Writer) error {
	return fw.WriteFrame(w, &Frame{Type: Stop})
}
