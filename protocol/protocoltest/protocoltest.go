// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package protocoltest offers helpers that synthesize demo streams and
// bit-packed payloads for tests.
package protocoltest

import (
	"bytes"
	"math"

	"github.com/gpittarelli/godemo/protocol"
)

// DefaultHeader returns a plausible demo Header.
func DefaultHeader() *protocol.Header {
	return &protocol.Header{
		Type:         protocol.HeaderMagic,
		Version:      3,
		Protocol:     24,
		Server:       "Test Server",
		Client:       "SourceTV Demo",
		Map:          "cp_badlands",
		Game:         "tf",
		PlaybackTime: 120.5,
		Ticks:        8034,
		Frames:       7995,
		SignOnLength: 351413,
	}
}

// Builder assembles a synthetic demo stream.
//
// Builder methods panic on failure, since they are intended for use in tests.
type Builder struct {
	// Frames is the FrameWriter used to write frames.
	Frames protocol.FrameWriter

	buf bytes.Buffer
}

// Header writes h.
func (b *Builder) Header(h *protocol.Header) *Builder {
	if err := protocol.WriteHeader(&b.buf, h); err != nil {
		panic(err)
	}
	return b
}

// Frame writes f.
func (b *Builder) Frame(f *protocol.Frame) *Builder {
	if err := b.Frames.WriteFrame(&b.buf, f); err != nil {
		panic(err)
	}
	return b
}

// Stop writes a Stop frame.
func (b *Builder) Stop() *Builder { return b.Frame(&protocol.Frame{Type: protocol.Stop}) }

// Raw writes data verbatim.
func (b *Builder) Raw(data ...byte) *Builder {
	b.buf.Write(data)
	return b
}

// Len returns the number of bytes written so far.
func (b *Builder) Len() int { return b.buf.Len() }

// Bytes returns a copy of the assembled stream.
func (b *Builder) Bytes() []byte { return append([]byte(nil), b.buf.Bytes()...) }

// BitWriter writes bits least-significant first, the inverse of
// bitstream.R.
type BitWriter struct {
	buf []byte
	n   int64
}

// WriteBits writes the low n bits of v.
func (w *BitWriter) WriteBits(v uint64, n int) *BitWriter {
	for i := 0; i < n; i++ {
		if w.n%8 == 0 {
			w.buf = append(w.buf, 0)
		}
		if v&(1<<uint(i)) != 0 {
			w.buf[w.n/8] |= 1 << uint(w.n%8)
		}
		w.n++
	}
	return w
}

// WriteBool writes a single bit.
func (w *BitWriter) WriteBool(v bool) *BitWriter {
	if v {
		return w.WriteBits(1, 1)
	}
	return w.WriteBits(0, 1)
}

// WriteUint8 writes an 8-bit value.
func (w *BitWriter) WriteUint8(v uint8) *BitWriter { return w.WriteBits(uint64(v), 8) }

// WriteUint16 writes a 16-bit value.
func (w *BitWriter) WriteUint16(v uint16) *BitWriter { return w.WriteBits(uint64(v), 16) }

// WriteUint32 writes a 32-bit value.
func (w *BitWriter) WriteUint32(v uint32) *BitWriter { return w.WriteBits(uint64(v), 32) }

// WriteInt32 writes a signed 32-bit value.
func (w *BitWriter) WriteInt32(v int32) *BitWriter { return w.WriteBits(uint64(uint32(v)), 32) }

// WriteFloat32 writes a single-precision float.
func (w *BitWriter) WriteFloat32(v float32) *BitWriter {
	return w.WriteBits(uint64(math.Float32bits(v)), 32)
}

// WriteString writes s followed by a NUL terminator.
func (w *BitWriter) WriteString(s string) *BitWriter {
	return w.WriteBytes([]byte(s)).WriteUint8(0)
}

// WriteBytes writes each byte of v.
func (w *BitWriter) WriteBytes(v []byte) *BitWriter {
	for _, b := range v {
		w.WriteUint8(b)
	}
	return w
}

// BitLen returns the number of bits written.
func (w *BitWriter) BitLen() int64 { return w.n }

// Bytes returns the written data, zero-padded to a whole byte.
func (w *BitWriter) Bytes() []byte { return append([]byte(nil), w.buf...) }
