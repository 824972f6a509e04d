// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package eventfile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// Compression is the compression applied to an event file's records.
type Compression uint8

const (
	// CompressionNone stores records uncompressed.
	CompressionNone Compression = 0
	// CompressionSnappy compresses records with snappy.
	CompressionSnappy Compression = 1
	// CompressionGzip compresses records with gzip.
	CompressionGzip Compression = 2
)

var compressionNames = map[Compression]string{
	CompressionNone:   "none",
	CompressionSnappy: "snappy",
	CompressionGzip:   "gzip",
}

func (c Compression) String() string {
	if name, ok := compressionNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(c))
}

// ParseCompression returns the Compression named v.
func ParseCompression(v string) (Compression, error) {
	for c, name := range compressionNames {
		if name == v {
			return c, nil
		}
	}
	return 0, errors.Errorf("unknown compression type: %q", v)
}

// CompressionFlag is a pflag.Value implementation that stores a compression
// value.
type CompressionFlag Compression

var _ pflag.Value = (*CompressionFlag)(nil)

func (cf *CompressionFlag) String() string { return Compression(*cf).String() }

// Set implements pflag.Value.
func (cf *CompressionFlag) Set(v string) error {
	c, err := ParseCompression(v)
	if err != nil {
		return err
	}
	*cf = CompressionFlag(c)
	return nil
}

// Type implements pflag.Value.
func (cf *CompressionFlag) Type() string { return "compression" }

// Value returns the compression value held by this flag.
func (cf CompressionFlag) Value() Compression { return Compression(cf) }

// CompressionFlagValues returns the list of possible values for a
// CompressionFlag.
func CompressionFlagValues() string {
	values := make([]Compression, 0, len(compressionNames))
	for c := range compressionNames {
		values = append(values, c)
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	opts := make([]string, len(values))
	for i, c := range values {
		opts[i] = c.String()
	}
	return strings.Join(opts, ", ")
}
