// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package eventfile

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/gpittarelli/godemo/protocol"
	"github.com/gpittarelli/godemo/protocol/message"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func testEvents() []message.Event {
	return []message.Event{
		&message.Packet{
			Stamp:      message.Stamp{Type: protocol.SignOn, Tick: 0},
			ViewOrigin: [2]protocol.Vector{{1, -2, 3}},
			Data:       []byte{0xDE, 0xAD, 0xBE, 0xEF},
		},
		&message.ConsoleCmd{
			Stamp:   message.Stamp{Type: protocol.ConsoleCmd, Tick: 12},
			Command: "+attack",
		},
		&message.UserCmd{
			Stamp:         message.Stamp{Type: protocol.UserCmd, Tick: 13},
			CommandNumber: 1001,
			ViewAngles:    [3]float32{12.5, -90, 0},
			MouseDX:       -2,
		},
		&message.DataTables{
			Stamp:         message.Stamp{Type: protocol.DataTables, Tick: 0},
			Tables:        []*message.SendTable{{Name: "DT_World", Props: []*message.SendProp{{Name: "m_flWaveHeight"}}}},
			ServerClasses: []*message.ServerClass{{ID: 1, Name: "CWorld", DataTable: "DT_World"}},
		},
		&message.StringTables{
			Stamp:  message.Stamp{Type: protocol.StringTables, Tick: 0},
			Tables: []*message.StringTable{{Name: "userinfo", Entries: []*message.StringTableEntry{{Text: "0"}}}},
		},
	}
}

var _ = Describe("Event files", func() {
	var dir string
	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "eventfile_test")
		Expect(err).ToNot(HaveOccurred())
	})
	AfterEach(func() {
		Expect(os.RemoveAll(dir)).To(Succeed())
	})

	for _, comp := range []Compression{CompressionNone, CompressionSnappy, CompressionGzip} {
		comp := comp

		It("round-trips events with "+comp.String()+" compression", func() {
			path := filepath.Join(dir, "events.bin")
			cfg := Config{Compression: comp, CompressionLevel: -1}

			w, err := cfg.Create(path)
			Expect(err).ToNot(HaveOccurred())
			Expect(w.Path()).To(Equal(path))

			events := testEvents()
			for _, ev := range events {
				Expect(w.HandleEvent(ev)).To(Succeed())
			}
			Expect(w.NumEvents()).To(Equal(int64(len(events))))
			Expect(w.NumBytes()).To(BeNumerically(">", 0))

			// Nothing is visible until the file is closed.
			_, err = os.Stat(path)
			Expect(os.IsNotExist(err)).To(BeTrue())
			Expect(w.Close()).To(Succeed())

			r, err := Open(path)
			Expect(err).ToNot(HaveOccurred())
			defer func() { Expect(r.Close()).To(Succeed()) }()
			Expect(r.Compression()).To(Equal(comp))

			for _, ev := range events {
				st, err := r.ReadEvent()
				Expect(err).ToNot(HaveOccurred())

				f := st.AsMap()
				Expect(f["kind"]).To(Equal(ev.Kind().String()))
				Expect(f["tick"]).To(Equal(float64(ev.Origin().Tick)))
			}
			_, err = r.ReadEvent()
			Expect(err).To(Equal(io.EOF))
		})
	}

	It("discards an aborted file", func() {
		path := filepath.Join(dir, "events.bin")
		w, err := (&Config{}).Create(path)
		Expect(err).ToNot(HaveOccurred())
		Expect(w.HandleEvent(testEvents()[0])).To(Succeed())
		Expect(w.Abort()).To(Succeed())

		entries, err := os.ReadDir(dir)
		Expect(err).ToNot(HaveOccurred())
		Expect(entries).To(BeEmpty())
	})

	It("rejects files without the magic", func() {
		_, err := NewReader(bytes.NewReader([]byte("NOTANEVENTFILE")))
		Expect(err).To(Equal(ErrInvalidFile))

		_, err = NewReader(bytes.NewReader([]byte("DEM")))
		Expect(errors.Cause(err)).To(Equal(io.ErrUnexpectedEOF))
	})
})

var _ = Describe("Encode", func() {
	It("encodes event-specific fields", func() {
		events := testEvents()

		st, err := Encode(events[0])
		Expect(err).ToNot(HaveOccurred())
		Expect(st.AsMap()).To(Equal(map[string]interface{}{
			"kind":        "packet",
			"type":        "SIGNON",
			"tick":        float64(0),
			"view_origin": []interface{}{[]interface{}{float64(1), float64(-2), float64(3)}, []interface{}{float64(0), float64(0), float64(0)}},
			"size":        float64(4),
			"data":        "3q2+7w==",
		}))

		st, err = Encode(events[2])
		Expect(err).ToNot(HaveOccurred())
		Expect(st.AsMap()).To(HaveKeyWithValue("mouse_dx", float64(-2)))
		Expect(st.AsMap()).To(HaveKeyWithValue("view_angles", []interface{}{12.5, float64(-90), float64(0)}))

		st, err = Encode(events[3])
		Expect(err).ToNot(HaveOccurred())
		Expect(st.AsMap()).To(HaveKeyWithValue("server_classes", []interface{}{
			map[string]interface{}{"id": float64(1), "name": "CWorld", "table": "DT_World"},
		}))
	})
})

var _ = Describe("CompressionFlag", func() {
	It("parses compression names", func() {
		var cf CompressionFlag
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		fs.Var(&cf, "compression", "Compression: "+CompressionFlagValues())

		Expect(fs.Parse([]string{"--compression", "gzip"})).To(Succeed())
		Expect(cf.Value()).To(Equal(CompressionGzip))
		Expect(cf.String()).To(Equal("gzip"))

		Expect(cf.Set("lzma")).ToNot(Succeed())
		Expect(CompressionFlagValues()).To(Equal("none, snappy, gzip"))
	})
})

func TestEventFile(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Testing eventfile")
}
