package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Application identity, as reported to the audio server
const (
	AppName    = "Console Meter"
	StreamName = "Console Audio Meter"
)

// Meter settings
const (
	DecayInterval = 32  // Fragments between peak-hold resets
	BarWidth      = 100 // Characters in the rendered bar
	MaxPercent    = 100
)

// Raw and file source defaults
const (
	DefaultSampleRate = 44100
	DefaultChannels   = 2
	DefaultFragmentMs = 25 // File replay and raw read granularity
	SpectrumBars      = 48 // Bars in the TUI spectrum line
	DefaultLogLevel   = "warn"
	MaxChannels       = 32
	MaxSampleRate     = 384000
)

// Source selects the transport feeding the meter
type Source string

const (
	SourcePulse Source = "pulse"
	SourceFile  Source = "file"
	SourceRaw   Source = "raw"

	DefaultSource = SourcePulse
)

// Options is the resolved runtime configuration.
// Zero values mean "unset" until merged with Defaults. Switches are
// pointers so an explicit false still overrides a lower layer.
type Options struct {
	Source        Source `yaml:"source"`
	Device        string `yaml:"device"`
	Server        string `yaml:"server"`
	File          string `yaml:"file"`
	SampleRate    int    `yaml:"sample_rate"`
	Channels      int    `yaml:"channels"`
	FragmentMs    int    `yaml:"fragment_ms"`
	DecayInterval int    `yaml:"decay_interval"`
	BarWidth      int    `yaml:"bar_width"`
	Color         *bool  `yaml:"color"`
	TUI           *bool  `yaml:"tui"`
	Summary       *bool  `yaml:"summary"`
	LogLevel      string `yaml:"log_level"`
}

// Defaults returns Options with every field at its default
func Defaults() Options {
	return Options{
		Source:        DefaultSource,
		SampleRate:    DefaultSampleRate,
		Channels:      DefaultChannels,
		FragmentMs:    DefaultFragmentMs,
		DecayInterval: DecayInterval,
		BarWidth:      BarWidth,
		LogLevel:      DefaultLogLevel,
		Color:         Bool(false),
		TUI:           Bool(false),
		Summary:       Bool(false),
	}
}

// Bool returns a pointer to v, for setting switches
func Bool(v bool) *bool {
	return &v
}

// ColorEnabled reports whether the bar is coloured by level zone
func (o Options) ColorEnabled() bool { return enabled(o.Color) }

// TUIEnabled reports whether the full-screen view is used
func (o Options) TUIEnabled() bool { return enabled(o.TUI) }

// SummaryEnabled reports whether a summary is printed on exit
func (o Options) SummaryEnabled() bool { return enabled(o.Summary) }

func enabled(b *bool) bool {
	return b != nil && *b
}

// Merge returns o with every unset field taken from fallback
func (o Options) Merge(fallback Options) Options {
	if o.Source == "" {
		o.Source = fallback.Source
	}
	if o.Device == "" {
		o.Device = fallback.Device
	}
	if o.Server == "" {
		o.Server = fallback.Server
	}
	if o.File == "" {
		o.File = fallback.File
	}
	if o.SampleRate == 0 {
		o.SampleRate = fallback.SampleRate
	}
	if o.Channels == 0 {
		o.Channels = fallback.Channels
	}
	if o.FragmentMs == 0 {
		o.FragmentMs = fallback.FragmentMs
	}
	if o.DecayInterval == 0 {
		o.DecayInterval = fallback.DecayInterval
	}
	if o.BarWidth == 0 {
		o.BarWidth = fallback.BarWidth
	}
	if o.LogLevel == "" {
		o.LogLevel = fallback.LogLevel
	}
	if o.Color == nil {
		o.Color = fallback.Color
	}
	if o.TUI == nil {
		o.TUI = fallback.TUI
	}
	if o.Summary == nil {
		o.Summary = fallback.Summary
	}
	return o
}

// Load reads a YAML config file
func Load(path string) (Options, error) {
	f, err := os.Open(path)
	if err != nil {
		return Options{}, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	opts, err := LoadFromReader(f)
	if err != nil {
		return Options{}, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return opts, nil
}

// LoadFromReader decodes YAML options from r. Unknown keys are rejected.
// An empty document yields zero Options.
func LoadFromReader(r io.Reader) (Options, error) {
	var opts Options
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		return Options{}, fmt.Errorf("config: decode yaml: %w", err)
	}
	return opts, nil
}

// Validate checks that opts is coherent and returns all problems joined
func Validate(opts Options) error {
	var errs []error

	switch opts.Source {
	case SourcePulse, SourceRaw:
	case SourceFile:
		if opts.File == "" {
			errs = append(errs, errors.New("source \"file\" requires a file path"))
		}
	default:
		errs = append(errs, fmt.Errorf("source %q is invalid; valid values: pulse, file, raw", opts.Source))
	}

	if opts.Channels < 1 || opts.Channels > MaxChannels {
		errs = append(errs, fmt.Errorf("channels %d out of range 1-%d", opts.Channels, MaxChannels))
	}
	if opts.SampleRate < 1 || opts.SampleRate > MaxSampleRate {
		errs = append(errs, fmt.Errorf("sample_rate %d out of range 1-%d", opts.SampleRate, MaxSampleRate))
	}
	if opts.FragmentMs < 1 || opts.FragmentMs > 1000 {
		errs = append(errs, fmt.Errorf("fragment_ms %d out of range 1-1000", opts.FragmentMs))
	}
	if opts.DecayInterval < 1 {
		errs = append(errs, fmt.Errorf("decay_interval must be positive, got %d", opts.DecayInterval))
	}
	if opts.BarWidth < 1 || opts.BarWidth > 1000 {
		errs = append(errs, fmt.Errorf("bar_width %d out of range 1-1000", opts.BarWidth))
	}
	if _, err := ParseLogLevel(opts.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ParseLogLevel maps a level name to a slog.Level
func ParseLogLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", name)
	}
}
