// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package bitstream offers R, a slice-backed cursor that reads at bit
// granularity.
//
// Bits are consumed least-significant first within each byte, so byte-aligned
// multi-byte reads produce little-endian values. Unaligned reads continue the
// same bit order across byte boundaries, which is how demo payloads pack
// their fields.
//
// Like a byte slice reader, R offers zero-copy options: ReadBytes and Next
// return slices of R's underlying Buffer when the cursor is byte-aligned. R
// exposes an AlwaysCopy flag; if set, those operations return copies instead.
package bitstream

import (
	"io"
	"math"

	"github.com/pkg/errors"
)

// R is a bit-granularity cursor over a byte buffer.
//
// R can act like an io.Reader and io.ByteReader, allowing it to interface with
// other APIs (for example, struct unpacking) at the expense of copying.
//
// R can be copied, creating a snapshot of its current state. Restoring a
// snapshot rewinds the cursor.
type R struct {
	// Buffer is the backing buffer for this reader.
	Buffer []byte

	// AlwaysCopy, if true, causes zero-copy methods to return copies of their
	// backing data instead of direct references.
	AlwaysCopy bool

	// pos is the R's bit position within Buffer.
	pos int64
}

var _ interface {
	io.Reader
	io.ByteReader
	io.Seeker
} = (*R)(nil)

func (r *R) bitLen() int64 { return int64(len(r.Buffer)) * 8 }

// require ensures that n bits are available.
//
// It returns io.EOF if no bits remain at all, and io.ErrUnexpectedEOF if some,
// but not enough, remain.
func (r *R) require(n int64) error {
	remaining := r.bitLen() - r.pos
	switch {
	case n <= remaining:
		return nil
	case remaining <= 0:
		return io.EOF
	default:
		return io.ErrUnexpectedEOF
	}
}

// BitPos returns the current position, in bits.
func (r *R) BitPos() int64 { return r.pos }

// Pos returns the current position, in whole bytes.
func (r *R) Pos() int64 { return r.pos / 8 }

// Aligned returns true if the cursor sits on a byte boundary.
func (r *R) Aligned() bool { return r.pos%8 == 0 }

// RemainingBits returns the number of unread bits.
func (r *R) RemainingBits() int64 {
	if v := r.bitLen() - r.pos; v > 0 {
		return v
	}
	return 0
}

// Remaining returns the number of whole bytes remaining in the reader.
func (r *R) Remaining() int { return int(r.RemainingBits() / 8) }

// ReadBits reads n bits (0 <= n <= 64) as an unsigned value.
//
// If fewer than n bits remain, nothing is consumed.
func (r *R) ReadBits(n int) (uint64, error) {
	if n < 0 || n > 64 {
		return 0, errors.Errorf("invalid bit count %d", n)
	}
	if err := r.require(int64(n)); err != nil {
		return 0, err
	}

	var v uint64
	for i := 0; i < n; {
		off := uint(r.pos & 7)
		take := 8 - int(off)
		if take > n-i {
			take = n - i
		}

		chunk := (uint64(r.Buffer[r.pos>>3]) >> off) & ((1 << uint(take)) - 1)
		v |= chunk << uint(i)

		i += take
		r.pos += int64(take)
	}
	return v, nil
}

// ReadSignedBits reads n bits as a two's complement signed value.
func (r *R) ReadSignedBits(n int) (int64, error) {
	v, err := r.ReadBits(n)
	if err != nil || n == 0 {
		return 0, err
	}
	shift := uint(64 - n)
	return int64(v<<shift) >> shift, nil
}

// ReadBool reads a single bit.
func (r *R) ReadBool() (bool, error) {
	v, err := r.ReadBits(1)
	return v != 0, err
}

// ReadUint8 reads an 8-bit value.
func (r *R) ReadUint8() (uint8, error) {
	v, err := r.ReadBits(8)
	return uint8(v), err
}

// ReadUint16 reads a little-endian 16-bit value.
func (r *R) ReadUint16() (uint16, error) {
	v, err := r.ReadBits(16)
	return uint16(v), err
}

// ReadInt16 reads a little-endian signed 16-bit value.
func (r *R) ReadInt16() (int16, error) {
	v, err := r.ReadBits(16)
	return int16(uint16(v)), err
}

// ReadUint32 reads a little-endian 32-bit value.
func (r *R) ReadUint32() (uint32, error) {
	v, err := r.ReadBits(32)
	return uint32(v), err
}

// ReadInt32 reads a little-endian signed 32-bit value.
func (r *R) ReadInt32() (int32, error) {
	v, err := r.ReadBits(32)
	return int32(uint32(v)), err
}

// ReadFloat32 reads a little-endian IEEE 754 single-precision value.
func (r *R) ReadFloat32() (float32, error) {
	v, err := r.ReadBits(32)
	return math.Float32frombits(uint32(v)), err
}

// ReadBytes reads exactly n bytes.
//
// If the cursor is byte-aligned, ReadBytes is a zero-copy method and returns a
// slice of the underlying Buffer unless AlwaysCopy is true. Unaligned reads
// always return a copy.
//
// If fewer than n bytes remain, nothing is consumed.
func (r *R) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.Errorf("invalid byte count %d", n)
	}
	if err := r.require(int64(n) * 8); err != nil {
		return nil, err
	}

	if r.Aligned() {
		start := r.pos / 8
		v := r.Buffer[start : start+int64(n)]
		if r.AlwaysCopy {
			v = append([]byte(nil), v...)
		}
		r.pos += int64(n) * 8
		return v, nil
	}

	v := make([]byte, n)
	for i := range v {
		b, _ := r.ReadBits(8)
		v[i] = byte(b)
	}
	return v, nil
}

// Skip advances the cursor by n bytes.
func (r *R) Skip(n int) error {
	if n < 0 {
		return errors.Errorf("invalid byte count %d", n)
	}
	return r.SkipBits(int64(n) * 8)
}

// SkipBits advances the cursor by n bits.
func (r *R) SkipBits(n int64) error {
	if n < 0 {
		return errors.Errorf("invalid bit count %d", n)
	}
	if err := r.require(n); err != nil {
		return err
	}
	r.pos += n
	return nil
}

// ReadString reads a NUL-terminated string. The terminator is consumed but not
// returned.
//
// If the buffer ends before a terminator is found, ReadString returns
// io.ErrUnexpectedEOF and consumes nothing.
func (r *R) ReadString() (string, error) {
	start := r.pos
	var buf []byte
	for {
		b, err := r.ReadBits(8)
		if err != nil {
			r.pos = start
			return "", io.ErrUnexpectedEOF
		}
		if b == 0 {
			return string(buf), nil
		}
		buf = append(buf, byte(b))
	}
}

// ReadFixedString reads exactly n bytes and returns them up to the first NUL.
func (r *R) ReadFixedString(n int) (string, error) {
	v, err := r.ReadBytes(n)
	if err != nil {
		return "", err
	}
	return TrimNUL(v), nil
}

// TrimNUL returns the contents of v up to its first NUL byte.
func TrimNUL(v []byte) string {
	for i, b := range v {
		if b == 0 {
			return string(v[:i])
		}
	}
	return string(v)
}

// Read implements io.Reader.
//
// Read consumes whole bytes only. Note that using Read causes data to be
// copied.
func (r *R) Read(b []byte) (amt int, err error) {
	amt = len(b)
	if rem := r.Remaining(); amt > rem {
		amt = rem
	}

	if r.Aligned() {
		start := r.pos / 8
		copy(b, r.Buffer[start:start+int64(amt)])
		r.pos += int64(amt) * 8
	} else {
		for i := 0; i < amt; i++ {
			v, _ := r.ReadBits(8)
			b[i] = byte(v)
		}
	}

	if r.Remaining() == 0 {
		err = io.EOF
	}
	return
}

// ReadByte implements io.ByteReader.
func (r *R) ReadByte() (byte, error) {
	if r.Remaining() == 0 {
		return 0, io.EOF
	}
	v, _ := r.ReadBits(8)
	return byte(v), nil
}

// Seek implements io.Seeker, using byte offsets.
//
// Any bit offset within the current byte is discarded. Seeking to the end of
// the buffer is legal; seeking beyond it is not.
func (r *R) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = r.Pos() + offset
	case io.SeekEnd:
		newPos = int64(len(r.Buffer)) + offset
	default:
		return r.Pos(), errors.Errorf("invalid whence %d", whence)
	}

	if newPos < 0 || newPos > int64(len(r.Buffer)) {
		return r.Pos(), errors.New("seek outside of bounds")
	}

	r.pos = newPos * 8
	return newPos, nil
}

// SeekBit moves the cursor to an absolute bit position.
func (r *R) SeekBit(pos int64) error {
	if pos < 0 || pos > r.bitLen() {
		return errors.New("seek outside of bounds")
	}
	r.pos = pos
	return nil
}

// Peek returns the next n bytes in r without advancing it.
//
// Peek is a zero-copy method when r is byte-aligned. If there are fewer than n
// bytes in r, Peek will return as many as possible.
func (r *R) Peek(n int) []byte {
	if rem := r.Remaining(); n > rem {
		n = rem
	}
	snapshot := *r
	v, _ := snapshot.ReadBytes(n)
	return v
}

// Next returns the next n bytes in r, advancing r.
//
// If n is not less than the number of bytes remaining, Next returns all of
// them along with io.EOF.
func (r *R) Next(n int) (v []byte, err error) {
	if rem := r.Remaining(); n >= rem {
		n, err = rem, io.EOF
	}
	v, _ = r.ReadBytes(n)
	return
}
