// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package protocol reads and writes the framing of Source engine demo
// streams: a fixed-size header followed by a sequence of typed frames,
// terminated by a Stop frame.
package protocol

import (
	"fmt"
	"io"

	"github.com/gpittarelli/godemo/support/bitstream"

	"github.com/pkg/errors"
)

// MessageType is an enumeration of the frame type tags in a demo stream.
type MessageType uint8

const (
	// SignOn frames carry the sign-on snapshot data.
	SignOn MessageType = 1
	// Packet frames carry steady-state snapshot data.
	Packet MessageType = 2
	// SyncTick frames carry no payload.
	SyncTick MessageType = 3
	// ConsoleCmd frames carry a console command string.
	ConsoleCmd MessageType = 4
	// UserCmd frames carry a user input command.
	UserCmd MessageType = 5
	// DataTables frames carry send table and server class definitions.
	DataTables MessageType = 6
	// Stop terminates the stream.
	Stop MessageType = 7
	// StringTables frames carry string table snapshots.
	StringTables MessageType = 8
)

func (mt MessageType) String() string {
	switch mt {
	case SignOn:
		return "SIGNON"
	case Packet:
		return "PACKET"
	case SyncTick:
		return "SYNCTICK"
	case ConsoleCmd:
		return "CONSOLECMD"
	case UserCmd:
		return "USERCMD"
	case DataTables:
		return "DATATABLES"
	case Stop:
		return "STOP"
	case StringTables:
		return "STRINGTABLES"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(mt))
	}
}

// IsSnapshot returns true if frames of this type carry snapshot data and the
// view metadata block.
func (mt MessageType) IsSnapshot() bool { return mt == SignOn || mt == Packet }

// Known returns true if mt is one of the enumerated frame types.
func (mt MessageType) Known() bool { return mt >= SignOn && mt <= StringTables }

const (
	// viewSlots is the number of split-screen view slots in a snapshot frame.
	viewSlots = 2

	// snapshotInfoSize is the size of the snapshot view block: flags, then per
	// slot an origin, angles and local angles (3 int32 each).
	snapshotInfoSize = 4 + viewSlots*9*4

	// sequenceInfoSize is the size of the optional sequence-in/sequence-out
	// pair.
	sequenceInfoSize = 8

	// userCmdSkipSize is the size of the uninterpreted outgoing sequence field
	// that precedes user command payloads.
	userCmdSkipSize = 4
)

// Vector is a three-component integer vector.
type Vector [3]int32

// Frame is a single frame read from a demo stream.
//
// A Frame's Payload references the reader's buffer and should not outlive it.
type Frame struct {
	Type MessageType
	Tick int32

	// ViewOrigin and ViewAngles are populated for snapshot frames, one entry
	// per view slot.
	ViewOrigin [viewSlots]Vector
	ViewAngles [viewSlots]Vector

	// SequenceIn and SequenceOut are populated for snapshot frames when the
	// FrameReader reads sequence numbers.
	SequenceIn  int32
	SequenceOut int32

	// Length is the declared payload length.
	Length int
	// Payload is the frame's payload.
	Payload []byte

	// Size is the total number of bytes the frame occupied in the stream.
	Size int64
}

// FrameReader reads frames from a demo stream.
//
// The zero value reads the standard layout and treats unknown frame types as
// fatal.
type FrameReader struct {
	// SequenceNumbers, if true, reads a sequence-in/sequence-out int32 pair after
	// the view block of snapshot frames.
	SequenceNumbers bool

	// LenientTypes, if true, treats frames with unknown type tags as
	// length-prefixed and reads their payload instead of failing.
	LenientTypes bool
}

// ReadFrame reads the next frame from r into f.
//
// If a Stop frame is read, ReadFrame returns io.EOF. Only the Stop frame's type
// byte is consumed, and nothing after it is read.
//
// If the frame could not be read in full, ReadFrame returns an error whose
// cause is ErrTruncatedFrame (or ErrUnknownFrameType), and r is restored to the
// position it had before the call.
func (fr *FrameReader) ReadFrame(r *bitstream.R, f *Frame) error {
	start := *r
	err := fr.readFrame(r, f)
	switch err {
	case nil:
		f.Size = r.Pos() - start.Pos()
		return nil
	case io.EOF:
		return io.EOF
	default:
		*r = start
		return err
	}
}

func (fr *FrameReader) readFrame(r *bitstream.R, f *Frame) error {
	*f = Frame{}
	offset := r.Pos()

	// [0] Type tag.
	v, err := r.ReadUint8()
	if err != nil {
		return truncated(err, offset, "type")
	}
	f.Type = MessageType(v)
	if f.Type == Stop {
		return io.EOF
	}

	// [1:5] Tick.
	if f.Tick, err = r.ReadInt32(); err != nil {
		return truncated(err, offset, "tick")
	}

	// Type-specific metadata.
	switch {
	case f.Type.IsSnapshot():
		if err := fr.readSnapshotInfo(r, f); err != nil {
			return truncated(err, offset, "snapshot info")
		}

	case f.Type == UserCmd:
		if err := r.Skip(userCmdSkipSize); err != nil {
			return truncated(err, offset, "user command sequence")
		}

	case f.Type == SyncTick:
		// No length and no payload.
		return nil

	case f.Type.Known():
		// No additional metadata.

	case !fr.LenientTypes:
		return errors.Wrapf(ErrUnknownFrameType, "type %d at offset %d", uint8(f.Type), offset)
	}

	// Payload length, then payload.
	length, err := r.ReadInt32()
	if err != nil {
		return truncated(err, offset, "payload length")
	}
	if length < 0 {
		return errors.Wrapf(ErrTruncatedFrame, "negative payload length %d at offset %d", length, offset)
	}
	if int64(length) > int64(r.Remaining()) {
		return errors.Wrapf(ErrTruncatedFrame, "payload length %d exceeds %d remaining bytes at offset %d",
			length, r.Remaining(), offset)
	}

	f.Length = int(length)
	if f.Payload, err = r.ReadBytes(f.Length); err != nil {
		return truncated(err, offset, "payload")
	}
	return nil
}

func (fr *FrameReader) readSnapshotInfo(r *bitstream.R, f *Frame) error {
	need := snapshotInfoSize
	if fr.SequenceNumbers {
		need += sequenceInfoSize
	}
	if r.Remaining() < need {
		return io.ErrUnexpectedEOF
	}

	// Flags are discarded.
	if err := r.Skip(4); err != nil {
		return err
	}

	readVector := func(v *Vector) {
		for i := range v {
			v[i], _ = r.ReadInt32()
		}
	}
	for slot := 0; slot < viewSlots; slot++ {
		readVector(&f.ViewOrigin[slot])
		readVector(&f.ViewAngles[slot])

		// Local view angles are discarded.
		var local Vector
		readVector(&local)
	}

	if fr.SequenceNumbers {
		f.SequenceIn, _ = r.ReadInt32()
		f.SequenceOut, _ = r.ReadInt32()
	}
	return nil
}

func truncated(err error, offset int64, field string) error {
	return errors.Wrapf(ErrTruncatedFrame, "reading %s of frame at offset %d: %s", field, offset, err)
}
