// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package eventfile

import (
	"github.com/gpittarelli/godemo/protocol"
	"github.com/gpittarelli/godemo/protocol/message"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/structpb"
)

// Encode renders ev as a Struct.
//
// Every record carries the event's "kind", frame "type" and "tick". The
// remaining fields depend on the event's kind. Table contents are summarized
// rather than recorded in full.
func Encode(ev message.Event) (*structpb.Struct, error) {
	origin := ev.Origin()
	fields := map[string]interface{}{
		"kind": ev.Kind().String(),
		"type": origin.Type.String(),
		"tick": int64(origin.Tick),
	}

	switch e := ev.(type) {
	case *message.Packet:
		fields["view_origin"] = []interface{}{vector(e.ViewOrigin[0]), vector(e.ViewOrigin[1])}
		fields["size"] = int64(len(e.Data))
		fields["data"] = e.Data

	case *message.ConsoleCmd:
		fields["command"] = e.Command

	case *message.UserCmd:
		fields["command_number"] = int64(e.CommandNumber)
		fields["tick_count"] = int64(e.TickCount)
		fields["view_angles"] = []interface{}{
			float64(e.ViewAngles[0]), float64(e.ViewAngles[1]), float64(e.ViewAngles[2]),
		}
		fields["forward_move"] = float64(e.ForwardMove)
		fields["side_move"] = float64(e.SideMove)
		fields["up_move"] = float64(e.UpMove)
		fields["buttons"] = int64(e.Buttons)
		fields["impulse"] = int64(e.Impulse)
		fields["weapon_select"] = int64(e.WeaponSelect)
		fields["weapon_subtype"] = int64(e.WeaponSubtype)
		fields["mouse_dx"] = int64(e.MouseDX)
		fields["mouse_dy"] = int64(e.MouseDY)

	case *message.DataTables:
		tables := make([]interface{}, len(e.Tables))
		for i, t := range e.Tables {
			tables[i] = map[string]interface{}{
				"name":          t.Name,
				"needs_decoder": t.NeedsDecoder,
				"props":         int64(len(t.Props)),
			}
		}
		classes := make([]interface{}, len(e.ServerClasses))
		for i, sc := range e.ServerClasses {
			classes[i] = map[string]interface{}{
				"id":    int64(sc.ID),
				"name":  sc.Name,
				"table": sc.DataTable,
			}
		}
		fields["tables"] = tables
		fields["server_classes"] = classes

	case *message.StringTables:
		tables := make([]interface{}, len(e.Tables))
		for i, t := range e.Tables {
			tables[i] = map[string]interface{}{
				"name":           t.Name,
				"entries":        int64(len(t.Entries)),
				"client_entries": int64(len(t.ClientEntries)),
			}
		}
		fields["tables"] = tables

	default:
		return nil, errors.Errorf("unsupported event type %T", ev)
	}

	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %s event", ev.Kind())
	}
	return st, nil
}

func vector(v protocol.Vector) []interface{} {
	return []interface{}{int64(v[0]), int64(v[1]), int64(v[2])}
}
