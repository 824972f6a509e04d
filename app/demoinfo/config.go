// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package demoinfo

import (
	"strings"

	"github.com/gpittarelli/godemo/replay/eventfile"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// Config is the demoinfo configuration.
type Config struct {
	// LenientTypes reads frames with unknown types instead of failing.
	LenientTypes bool
	// SequenceNumbers reads sequence numbers after snapshot view blocks.
	SequenceNumbers bool
	// Verbose enables debug logging.
	Verbose bool
	// Strict rejects demos whose header lacks the standard magic.
	Strict bool

	// Export configures event export. Events are exported only if its Path is
	// set.
	Export ExportConfig

	// MetricsTextfile, if set, is the path that metrics are written to once
	// the demo has been read.
	MetricsTextfile string
}

// ExportConfig configures event export.
type ExportConfig struct {
	Path        string
	Compression eventfile.Compression
	Level       int
	TempDir     string
}

func (ec *ExportConfig) eventfileConfig() *eventfile.Config {
	return &eventfile.Config{
		Compression:      ec.Compression,
		CompressionLevel: ec.Level,
		TempDir:          ec.TempDir,
	}
}

// DefaultConfig returns the default Config.
func DefaultConfig() Config {
	return Config{
		Export: ExportConfig{
			Compression: eventfile.CompressionSnappy,
			Level:       -1,
		},
	}
}

// fileConfig is the TOML layout of a config file.
type fileConfig struct {
	LenientTypes    bool   `toml:"lenient_types"`
	SequenceNumbers bool   `toml:"sequence_numbers"`
	Verbose         bool   `toml:"verbose"`
	Strict          bool   `toml:"strict"`
	MetricsTextfile string `toml:"metrics_textfile"`

	Export struct {
		Path        string `toml:"path"`
		Compression string `toml:"compression"`
		Level       int    `toml:"level"`
		TempDir     string `toml:"temp_dir"`
	} `toml:"export"`
}

// LoadFile overlays the settings defined in the TOML file at path onto cfg.
func (cfg *Config) LoadFile(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return errors.Wrapf(err, "loading config %q", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return errors.Errorf("unknown config key %q in %q", undecoded[0].String(), path)
	}

	if meta.IsDefined("lenient_types") {
		cfg.LenientTypes = raw.LenientTypes
	}
	if meta.IsDefined("sequence_numbers") {
		cfg.SequenceNumbers = raw.SequenceNumbers
	}
	if meta.IsDefined("verbose") {
		cfg.Verbose = raw.Verbose
	}
	if meta.IsDefined("strict") {
		cfg.Strict = raw.Strict
	}
	if meta.IsDefined("metrics_textfile") {
		cfg.MetricsTextfile = strings.TrimSpace(raw.MetricsTextfile)
	}
	if meta.IsDefined("export", "path") {
		cfg.Export.Path = strings.TrimSpace(raw.Export.Path)
	}
	if meta.IsDefined("export", "compression") {
		comp, err := eventfile.ParseCompression(strings.TrimSpace(raw.Export.Compression))
		if err != nil {
			return errors.Wrapf(err, "loading config %q", path)
		}
		cfg.Export.Compression = comp
	}
	if meta.IsDefined("export", "level") {
		cfg.Export.Level = raw.Export.Level
	}
	if meta.IsDefined("export", "temp_dir") {
		cfg.Export.TempDir = strings.TrimSpace(raw.Export.TempDir)
	}
	return nil
}

// Flags binds command-line flags that override a Config.
type Flags struct {
	fs *pflag.FlagSet

	ConfigPath string

	lenientTypes      bool
	sequenceNumbers   bool
	verbose           bool
	strict            bool
	exportPath        string
	exportCompression eventfile.CompressionFlag
	exportLevel       int
	exportTempDir     string
	metricsTextfile   string
}

// AddFlags registers demoinfo's flags with fs.
func AddFlags(fs *pflag.FlagSet) *Flags {
	f := Flags{
		fs:                fs,
		exportCompression: eventfile.CompressionFlag(eventfile.CompressionSnappy),
	}

	fs.StringVarP(&f.ConfigPath, "config", "c", "", "Path to a TOML config file.")
	fs.BoolVar(&f.lenientTypes, "lenient-types", false,
		"Read frames with unknown types as length-prefixed instead of failing.")
	fs.BoolVar(&f.sequenceNumbers, "sequence-numbers", false,
		"Read sequence numbers after each snapshot frame's view block.")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Enable debug logging.")
	fs.BoolVar(&f.strict, "strict", false, "Reject demos without the standard header magic.")
	fs.StringVar(&f.exportPath, "export", "", "If set, export events to this file.")
	fs.Var(&f.exportCompression, "export-compression",
		"Export compression. Options are: "+eventfile.CompressionFlagValues())
	fs.IntVar(&f.exportLevel, "export-level", -1, "Export gzip compression level (-1 for default).")
	fs.StringVar(&f.exportTempDir, "export-temp-dir", "", "Directory to stage the export file in.")
	fs.StringVar(&f.metricsTextfile, "metrics-textfile", "", "If set, write metrics to this file.")
	return &f
}

// Apply overlays the flags that were explicitly set onto cfg.
func (f *Flags) Apply(cfg *Config) {
	if f.fs.Changed("lenient-types") {
		cfg.LenientTypes = f.lenientTypes
	}
	if f.fs.Changed("sequence-numbers") {
		cfg.SequenceNumbers = f.sequenceNumbers
	}
	if f.fs.Changed("verbose") {
		cfg.Verbose = f.verbose
	}
	if f.fs.Changed("strict") {
		cfg.Strict = f.strict
	}
	if f.fs.Changed("export") {
		cfg.Export.Path = f.exportPath
	}
	if f.fs.Changed("export-compression") {
		cfg.Export.Compression = f.exportCompression.Value()
	}
	if f.fs.Changed("export-level") {
		cfg.Export.Level = f.exportLevel
	}
	if f.fs.Changed("export-temp-dir") {
		cfg.Export.TempDir = f.exportTempDir
	}
	if f.fs.Changed("metrics-textfile") {
		cfg.MetricsTextfile = f.metricsTextfile
	}
}

// Resolve builds the effective Config: defaults, overlaid by the config file
// (if any), overlaid by explicitly-set flags.
func (f *Flags) Resolve() (Config, error) {
	cfg := DefaultConfig()
	if f.ConfigPath != "" {
		if err := cfg.LoadFile(f.ConfigPath); err != nil {
			return Config{}, err
		}
	}
	f.Apply(&cfg)
	return cfg, nil
}
