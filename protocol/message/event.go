// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package message decodes demo frame payloads into events.
//
// This package complements the protocol package, which peels frames off a
// demo stream. A Dispatcher routes each frame to the Decoder registered for
// its type, and Decoders turn payloads into zero or more Events.
package message

import (
	"fmt"

	"github.com/gpittarelli/godemo/protocol"
)

// Kind is the shape of a decoded Event.
type Kind int

const (
	// KindPacket is the Kind of *Packet events.
	KindPacket Kind = iota + 1
	// KindConsoleCmd is the Kind of *ConsoleCmd events.
	KindConsoleCmd
	// KindUserCmd is the Kind of *UserCmd events.
	KindUserCmd
	// KindDataTables is the Kind of *DataTables events.
	KindDataTables
	// KindStringTables is the Kind of *StringTables events.
	KindStringTables
)

func (k Kind) String() string {
	switch k {
	case KindPacket:
		return "packet"
	case KindConsoleCmd:
		return "consolecmd"
	case KindUserCmd:
		return "usercmd"
	case KindDataTables:
		return "datatables"
	case KindStringTables:
		return "stringtables"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Event is a decoded frame payload.
//
// Event is implemented by *Packet, *ConsoleCmd, *UserCmd, *DataTables and
// *StringTables.
type Event interface {
	// Origin returns the type and tick of the frame the Event was decoded from.
	Origin() Stamp
	// Kind returns the Event's Kind.
	Kind() Kind
}

// Stamp identifies the frame an Event was decoded from.
type Stamp struct {
	Type protocol.MessageType
	Tick int32
}

// Origin implements Event.
func (s Stamp) Origin() Stamp { return s }

// Packet is a snapshot payload.
//
// Snapshot payloads are not decoded further; Data holds the raw bytes.
type Packet struct {
	Stamp

	// ViewOrigin is the view origin of each view slot.
	ViewOrigin [2]protocol.Vector
	// Data is the raw snapshot payload.
	Data []byte
}

// Kind implements Event.
func (*Packet) Kind() Kind { return KindPacket }

// ConsoleCmd is a console command.
type ConsoleCmd struct {
	Stamp

	Command string
}

// Kind implements Event.
func (*ConsoleCmd) Kind() Kind { return KindConsoleCmd }

// UserCmd is a user input command.
//
// Every field is optional on the wire; absent fields are zero.
type UserCmd struct {
	Stamp

	CommandNumber uint32
	TickCount     uint32
	ViewAngles    [3]float32
	ForwardMove   float32
	SideMove      float32
	UpMove        float32
	Buttons       uint32
	Impulse       uint8
	WeaponSelect  uint16
	WeaponSubtype uint8
	MouseDX       int16
	MouseDY       int16
}

// Kind implements Event.
func (*UserCmd) Kind() Kind { return KindUserCmd }

// DataTables holds the send tables and server classes defined by a frame.
type DataTables struct {
	Stamp

	Tables        []*SendTable
	ServerClasses []*ServerClass
}

// Kind implements Event.
func (*DataTables) Kind() Kind { return KindDataTables }

// StringTables holds the string tables defined by a frame.
type StringTables struct {
	Stamp

	Tables []*StringTable
}

// Kind implements Event.
func (*StringTables) Kind() Kind { return KindStringTables }
