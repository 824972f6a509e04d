// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package message

import (
	"github.com/gpittarelli/godemo/protocol"
	"github.com/gpittarelli/godemo/support/bitstream"
)

// Input is the payload handed to a Decoder.
type Input struct {
	Type protocol.MessageType
	Tick int32

	// Data is a fresh reader positioned at the start of the payload.
	Data *bitstream.R
	// Length is the payload length, in bytes.
	Length int

	// ViewOrigin is populated for snapshot frames only.
	ViewOrigin [2]protocol.Vector
}

func (in *Input) stamp() Stamp { return Stamp{Type: in.Type, Tick: in.Tick} }

// Decoder decodes a frame payload into zero or more Events.
//
// A Decoder may read and update st, which persists across the frames of a
// single stream. Nil entries in the returned slice are ignored.
type Decoder interface {
	Decode(in *Input, st *State) ([]Event, error)
}

// DecoderFunc is a function that implements Decoder.
type DecoderFunc func(in *Input, st *State) ([]Event, error)

// Decode implements Decoder.
func (fn DecoderFunc) Decode(in *Input, st *State) ([]Event, error) { return fn(in, st) }

// State is shared decode state, carried across all frames of a stream.
//
// State is not safe for concurrent use.
type State struct {
	// SendTables are the send tables defined so far, by name.
	SendTables map[string]*SendTable
	// ServerClasses are the server classes defined so far, in order.
	ServerClasses []*ServerClass
	// StringTables are the string tables defined so far, by name.
	StringTables map[string]*StringTable
}

// NewState returns an empty State.
func NewState() *State {
	return &State{
		SendTables:   make(map[string]*SendTable),
		StringTables: make(map[string]*StringTable),
	}
}

// ensure initializes any nil maps in st.
func (st *State) ensure() {
	if st.SendTables == nil {
		st.SendTables = make(map[string]*SendTable)
	}
	if st.StringTables == nil {
		st.StringTables = make(map[string]*StringTable)
	}
}
