// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package message

import (
	"fmt"
)

// SendPropType is the type of a SendProp.
type SendPropType uint8

const (
	// SendPropInt is an integer property.
	SendPropInt SendPropType = 0
	// SendPropFloat is a float property.
	SendPropFloat SendPropType = 1
	// SendPropVector is a three-component vector property.
	SendPropVector SendPropType = 2
	// SendPropVectorXY is a two-component vector property.
	SendPropVectorXY SendPropType = 3
	// SendPropString is a string property.
	SendPropString SendPropType = 4
	// SendPropArray is an array property.
	SendPropArray SendPropType = 5
	// SendPropDataTable is a nested table property.
	SendPropDataTable SendPropType = 6
)

func (t SendPropType) String() string {
	switch t {
	case SendPropInt:
		return "INT"
	case SendPropFloat:
		return "FLOAT"
	case SendPropVector:
		return "VECTOR"
	case SendPropVectorXY:
		return "VECTORXY"
	case SendPropString:
		return "STRING"
	case SendPropArray:
		return "ARRAY"
	case SendPropDataTable:
		return "DATATABLE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
	}
}

// SPropExclude is the SendProp flag marking a property that excludes a
// property of another table.
const SPropExclude = 1 << 6

const (
	sendPropTypeBits     = 5
	sendPropFlagBits     = 16
	sendPropCountBits    = 10
	sendPropElementsBits = 10
	sendPropBitCountBits = 7
)

// SendProp is a single property of a SendTable.
type SendProp struct {
	Type  SendPropType
	Name  string
	Flags uint16

	// Table names the nested table for SendPropDataTable properties, or the
	// excluded table for excluding properties.
	Table string

	// NumElements is populated for SendPropArray properties.
	NumElements int

	// LowValue, HighValue and BitCount describe the encoding of other
	// properties.
	LowValue  float32
	HighValue float32
	BitCount  int
}

// Excludes returns true if p is an exclusion marker rather than a real
// property.
func (p *SendProp) Excludes() bool {
	return p.Type != SendPropDataTable && p.Flags&SPropExclude != 0
}

// SendTable is a class schema definition.
type SendTable struct {
	Name         string
	NeedsDecoder bool
	Props        []*SendProp
}

// ServerClass binds a class ID to its SendTable.
type ServerClass struct {
	ID        uint16
	Name      string
	DataTable string
}

// DataTablesDecoder decodes DataTables frames.
//
// The payload is a sequence of send tables, each preceded by a continuation
// bit, followed by a 16-bit count of server classes. Decoded tables and
// classes are recorded in the shared State.
type DataTablesDecoder struct{}

// Decode implements Decoder.
func (DataTablesDecoder) Decode(in *Input, st *State) ([]Event, error) {
	fr := fieldReader{r: in.Data}
	ev := DataTables{Stamp: in.stamp()}

	for fr.bool("send table continuation") {
		t := SendTable{
			NeedsDecoder: fr.bool("needs decoder"),
			Name:         fr.string("send table name"),
		}

		numProps := int(fr.bits("prop count", sendPropCountBits))
		for i := 0; i < numProps && fr.Err() == nil; i++ {
			t.Props = append(t.Props, readSendProp(&fr))
		}

		if err := fr.Err(); err != nil {
			return nil, err
		}
		ev.Tables = append(ev.Tables, &t)
	}

	numClasses := int(fr.uint16("server class count"))
	for i := 0; i < numClasses && fr.Err() == nil; i++ {
		ev.ServerClasses = append(ev.ServerClasses, &ServerClass{
			ID:        fr.uint16("server class id"),
			Name:      fr.string("server class name"),
			DataTable: fr.string("server class table"),
		})
	}
	if err := fr.Err(); err != nil {
		return nil, err
	}

	st.ensure()
	for _, t := range ev.Tables {
		st.SendTables[t.Name] = t
	}
	st.ServerClasses = ev.ServerClasses

	return []Event{&ev}, nil
}

func readSendProp(fr *fieldReader) *SendProp {
	p := SendProp{
		Type:  SendPropType(fr.bits("prop type", sendPropTypeBits)),
		Name:  fr.string("prop name"),
		Flags: uint16(fr.bits("prop flags", sendPropFlagBits)),
	}

	switch {
	case p.Type == SendPropDataTable:
		p.Table = fr.string("prop table")
	case p.Flags&SPropExclude != 0:
		p.Table = fr.string("prop exclude table")
	case p.Type == SendPropArray:
		p.NumElements = int(fr.bits("prop elements", sendPropElementsBits))
	default:
		p.LowValue = fr.float32("prop low value")
		p.HighValue = fr.float32("prop high value")
		p.BitCount = int(fr.bits("prop bit count", sendPropBitCountBits))
	}
	return &p
}

// StringTableEntry is a single string table entry.
type StringTableEntry struct {
	Text string
	// Data is the entry's user data, or nil if it has none.
	Data []byte
}

// StringTable is a named table of strings with optional user data.
type StringTable struct {
	Name          string
	Entries       []*StringTableEntry
	ClientEntries []*StringTableEntry
}

// Lookup returns the entry whose Text is text, or nil.
func (t *StringTable) Lookup(text string) *StringTableEntry {
	for _, e := range t.Entries {
		if e.Text == text {
			return e
		}
	}
	return nil
}

// StringTablesDecoder decodes StringTables frames.
//
// The payload is an 8-bit table count followed by each table: its name, a
// 16-bit entry count and the entries, then an optional block of client
// entries. Decoded tables are recorded in the shared State.
type StringTablesDecoder struct{}

// Decode implements Decoder.
func (StringTablesDecoder) Decode(in *Input, st *State) ([]Event, error) {
	fr := fieldReader{r: in.Data}
	ev := StringTables{Stamp: in.stamp()}

	numTables := int(fr.uint8("table count"))
	for i := 0; i < numTables && fr.Err() == nil; i++ {
		t := StringTable{
			Name: fr.string("table name"),
		}
		t.Entries = readStringTableEntries(&fr)
		if fr.bool("client entries flag") {
			t.ClientEntries = readStringTableEntries(&fr)
		}
		ev.Tables = append(ev.Tables, &t)
	}
	if err := fr.Err(); err != nil {
		return nil, err
	}

	st.ensure()
	for _, t := range ev.Tables {
		st.StringTables[t.Name] = t
	}
	return []Event{&ev}, nil
}

func readStringTableEntries(fr *fieldReader) []*StringTableEntry {
	count := int(fr.uint16("entry count"))
	entries := make([]*StringTableEntry, 0, count)
	for i := 0; i < count && fr.Err() == nil; i++ {
		e := StringTableEntry{
			Text: fr.string("entry text"),
		}
		if fr.bool("entry data flag") {
			e.Data = fr.bytes("entry data", int(fr.uint16("entry data length")))
		}
		entries = append(entries, &e)
	}
	return entries
}
