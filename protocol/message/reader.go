// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package message

import (
	"github.com/gpittarelli/godemo/support/bitstream"

	"github.com/pkg/errors"
)

// fieldReader wraps a bitstream.R, recording the first failure.
//
// Once a read fails, all subsequent reads return zero values and Err returns
// the failure, annotated with the name of the field that failed.
type fieldReader struct {
	r   *bitstream.R
	err error
}

func (fr *fieldReader) fail(field string, err error) {
	if fr.err == nil && err != nil {
		fr.err = errors.Wrapf(err, "reading %s at bit %d", field, fr.r.BitPos())
	}
}

func (fr *fieldReader) bits(field string, n int) uint64 {
	if fr.err != nil {
		return 0
	}
	v, err := fr.r.ReadBits(n)
	fr.fail(field, err)
	return v
}

func (fr *fieldReader) bool(field string) bool { return fr.bits(field, 1) != 0 }

func (fr *fieldReader) uint8(field string) uint8 { return uint8(fr.bits(field, 8)) }

func (fr *fieldReader) uint16(field string) uint16 { return uint16(fr.bits(field, 16)) }

func (fr *fieldReader) uint32(field string) uint32 { return uint32(fr.bits(field, 32)) }

func (fr *fieldReader) float32(field string) float32 {
	if fr.err != nil {
		return 0
	}
	v, err := fr.r.ReadFloat32()
	fr.fail(field, err)
	return v
}

func (fr *fieldReader) string(field string) string {
	if fr.err != nil {
		return ""
	}
	v, err := fr.r.ReadString()
	fr.fail(field, err)
	return v
}

func (fr *fieldReader) bytes(field string, n int) []byte {
	if fr.err != nil {
		return nil
	}
	v, err := fr.r.ReadBytes(n)
	fr.fail(field, err)
	return v
}

// Err returns the first failure, if any.
func (fr *fieldReader) Err() error { return fr.err }
