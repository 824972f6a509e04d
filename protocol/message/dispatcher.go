// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package message

import (
	"reflect"

	"github.com/gpittarelli/godemo/protocol"
	"github.com/gpittarelli/godemo/support/bitstream"

	"github.com/pkg/errors"
)

// Dispatcher routes frames to the Decoder responsible for their payload.
//
// A Decoder left nil causes frames of its types to produce no events. Frames
// whose type has no Decoder slot (SyncTick, unknown types) likewise produce no
// events and no error.
//
// Dispatcher is not safe for concurrent use.
type Dispatcher struct {
	// Snapshot decodes SignOn and Packet frames.
	Snapshot Decoder
	// ConsoleCmd decodes ConsoleCmd frames.
	ConsoleCmd Decoder
	// UserCmd decodes UserCmd frames.
	UserCmd Decoder
	// DataTables decodes DataTables frames.
	DataTables Decoder
	// StringTables decodes StringTables frames.
	StringTables Decoder

	// State is the shared decode state. If nil, it is created on first use.
	State *State
}

// NewDispatcher returns a Dispatcher with the standard decoders installed.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		Snapshot:     PacketDecoder{},
		ConsoleCmd:   ConsoleCmdDecoder{},
		UserCmd:      UserCmdDecoder{},
		DataTables:   DataTablesDecoder{},
		StringTables: StringTablesDecoder{},
		State:        NewState(),
	}
}

// decoderFor returns the Decoder for t, or nil if there is none.
func (d *Dispatcher) decoderFor(t protocol.MessageType) Decoder {
	switch t {
	case protocol.SignOn, protocol.Packet:
		return d.Snapshot
	case protocol.ConsoleCmd:
		return d.ConsoleCmd
	case protocol.UserCmd:
		return d.UserCmd
	case protocol.DataTables:
		return d.DataTables
	case protocol.StringTables:
		return d.StringTables
	default:
		return nil
	}
}

// Dispatch decodes f's payload and returns the resulting events, in decoder
// order, with nil events removed.
//
// Returned events may reference f's payload.
func (d *Dispatcher) Dispatch(f *protocol.Frame) ([]Event, error) {
	dec := d.decoderFor(f.Type)
	if dec == nil {
		return nil, nil
	}

	if d.State == nil {
		d.State = NewState()
	}

	in := Input{
		Type:   f.Type,
		Tick:   f.Tick,
		Data:   &bitstream.R{Buffer: f.Payload},
		Length: f.Length,
	}
	if f.Type.IsSnapshot() {
		in.ViewOrigin = f.ViewOrigin
	}

	events, err := dec.Decode(&in, d.State)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s frame at tick %d", f.Type, f.Tick)
	}

	var out []Event
	for _, ev := range events {
		if !isAbsent(ev) {
			out = append(out, ev)
		}
	}
	return out, nil
}

// isAbsent returns true if ev is nil or a typed nil pointer.
func isAbsent(ev Event) bool {
	if ev == nil {
		return true
	}
	v := reflect.ValueOf(ev)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
