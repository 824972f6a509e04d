// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package match aggregates the events of a demo stream into a model of the
// recorded match.
package match

import (
	"bytes"
	"sort"

	"github.com/gpittarelli/godemo/protocol"
	"github.com/gpittarelli/godemo/protocol/message"
	"github.com/gpittarelli/godemo/support/bitstream"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

// UserInfoTable is the name of the string table that carries player
// information.
const UserInfoTable = "userinfo"

// userInfoSize is the minimum size of a userinfo entry that we decode.
const userInfoSize = 32 + 4 + 33

// Player is a player, as described by a userinfo string table entry.
type Player struct {
	// Slot is the entry's text, the player's client slot.
	Slot   string
	Name   string
	UserID int32
	GUID   string
}

// rawUserInfo is the leading portion of a userinfo entry's data.
type rawUserInfo struct {
	Name   [32]byte
	UserID int32 `struc:",little"`
	GUID   [33]byte
}

// Match is the aggregate view of a demo stream.
//
// Match implements parser.Sink. It is not safe for concurrent use.
type Match struct {
	// Header is the stream's header, if known.
	Header *protocol.Header

	// FirstTick and LastTick are the ticks of the first and last events seen.
	FirstTick int32
	LastTick  int32

	// Events is the total number of events seen.
	Events int
	// Counts is the number of events seen, by Kind.
	Counts map[message.Kind]int

	// Commands are the console commands seen, in order.
	Commands []string
	// ServerClasses are the most recently defined server classes.
	ServerClasses []*message.ServerClass
	// StringTables are the names of the string tables seen, in order of first
	// appearance.
	StringTables []string

	// Players is the player roster, keyed on client slot.
	Players map[string]*Player
}

// New returns an empty Match for a stream with the specified Header.
func New(h *protocol.Header) *Match {
	return &Match{
		Header:  h,
		Counts:  make(map[message.Kind]int),
		Players: make(map[string]*Player),
	}
}

// HandleEvent folds ev into m.
func (m *Match) HandleEvent(ev message.Event) error {
	if m.Counts == nil {
		m.Counts = make(map[message.Kind]int)
	}

	tick := ev.Origin().Tick
	if m.Events == 0 {
		m.FirstTick = tick
	}
	m.LastTick = tick
	m.Events++
	m.Counts[ev.Kind()]++

	switch e := ev.(type) {
	case *message.ConsoleCmd:
		m.Commands = append(m.Commands, e.Command)

	case *message.DataTables:
		if len(e.ServerClasses) > 0 {
			m.ServerClasses = e.ServerClasses
		}

	case *message.StringTables:
		for _, t := range e.Tables {
			m.noteStringTable(t.Name)
			if t.Name == UserInfoTable {
				if err := m.updatePlayers(t); err != nil {
					return errors.Wrapf(err, "updating roster at tick %d", tick)
				}
			}
		}
	}
	return nil
}

func (m *Match) noteStringTable(name string) {
	for _, n := range m.StringTables {
		if n == name {
			return
		}
	}
	m.StringTables = append(m.StringTables, name)
}

func (m *Match) updatePlayers(t *message.StringTable) error {
	if m.Players == nil {
		m.Players = make(map[string]*Player)
	}

	for _, e := range t.Entries {
		// Empty slots carry no data.
		if len(e.Data) < userInfoSize {
			delete(m.Players, e.Text)
			continue
		}

		var raw rawUserInfo
		if err := struc.Unpack(bytes.NewReader(e.Data), &raw); err != nil {
			return errors.Wrapf(err, "decoding userinfo entry %q", e.Text)
		}
		m.Players[e.Text] = &Player{
			Slot:   e.Text,
			Name:   bitstream.TrimNUL(raw.Name[:]),
			UserID: raw.UserID,
			GUID:   bitstream.TrimNUL(raw.GUID[:]),
		}
	}
	return nil
}

// Count returns the number of events of Kind k seen.
func (m *Match) Count(k message.Kind) int { return m.Counts[k] }

// Roster returns the players in m, ordered by user ID.
func (m *Match) Roster() []*Player {
	players := make([]*Player, 0, len(m.Players))
	for _, p := range m.Players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].UserID < players[j].UserID })
	return players
}

// Ticks returns the number of ticks spanned by the events seen.
func (m *Match) Ticks() int32 {
	if m.Events == 0 {
		return 0
	}
	return m.LastTick - m.FirstTick
}
