package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestDefaults_AreValid verifies the built-in defaults pass validation, so a
// bare invocation never fails on configuration.
func TestDefaults_AreValid(t *testing.T) {
	if err := Validate(Defaults()); err != nil {
		t.Fatalf("Defaults() failed validation: %v", err)
	}

	d := Defaults()
	if d.DecayInterval != 32 {
		t.Errorf("DecayInterval = %d, want 32", d.DecayInterval)
	}
	if d.BarWidth != 100 {
		t.Errorf("BarWidth = %d, want 100", d.BarWidth)
	}
	if d.Source != SourcePulse {
		t.Errorf("Source = %q, want %q", d.Source, SourcePulse)
	}
}

// TestMerge_Precedence verifies set fields win over the fallback and unset
// fields are filled, which is how flags override the config file.
func TestMerge_Precedence(t *testing.T) {
	flags := Options{Device: "alsa_output.usb", BarWidth: 60}
	file := Options{Device: "ignored", Server: "tcp:host", Color: Bool(true), DecayInterval: 8}

	got := flags.Merge(file).Merge(Defaults())

	if got.Device != "alsa_output.usb" {
		t.Errorf("Device = %q, flag value should win", got.Device)
	}
	if got.Server != "tcp:host" {
		t.Errorf("Server = %q, want file value", got.Server)
	}
	if got.BarWidth != 60 {
		t.Errorf("BarWidth = %d, want 60", got.BarWidth)
	}
	if got.DecayInterval != 8 {
		t.Errorf("DecayInterval = %d, want 8 from file", got.DecayInterval)
	}
	if !got.ColorEnabled() {
		t.Error("Color should be enabled by file")
	}
	if got.TUIEnabled() || got.SummaryEnabled() {
		t.Error("unset switches should default to off")
	}
	if got.Channels != DefaultChannels || got.LogLevel != DefaultLogLevel {
		t.Errorf("defaults not applied: channels %d, log level %q", got.Channels, got.LogLevel)
	}
}

func TestLoadFromReader(t *testing.T) {
	doc := `
source: file
file: /tmp/podcast.wav
bar_width: 50
decay_interval: 16
tui: true
log_level: debug
`
	opts, err := LoadFromReader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadFromReader failed: %v", err)
	}

	if opts.Source != SourceFile || opts.File != "/tmp/podcast.wav" {
		t.Errorf("source/file = %q/%q", opts.Source, opts.File)
	}
	if opts.BarWidth != 50 || opts.DecayInterval != 16 {
		t.Errorf("bar_width/decay_interval = %d/%d", opts.BarWidth, opts.DecayInterval)
	}
	if !opts.TUIEnabled() || opts.LogLevel != "debug" {
		t.Errorf("tui/log_level = %v/%q", opts.TUIEnabled(), opts.LogLevel)
	}
	if opts.Color != nil {
		t.Errorf("color = %v, want unset", *opts.Color)
	}
}

// TestMerge_FlagDisablesFileSwitch verifies an explicit false on the
// command line turns off a switch the config file enables.
func TestMerge_FlagDisablesFileSwitch(t *testing.T) {
	file, err := LoadFromReader(strings.NewReader("color: true\ntui: true\nsummary: true\n"))
	if err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		name  string
		flags Options
		color bool
		tui   bool
	}{
		{"no flags keeps file", Options{}, true, true},
		{"no-color", Options{Color: Bool(false)}, false, true},
		{"no-tui", Options{TUI: Bool(false)}, true, false},
		{"both off", Options{Color: Bool(false), TUI: Bool(false)}, false, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.flags.Merge(file).Merge(Defaults())
			if got.ColorEnabled() != tc.color || got.TUIEnabled() != tc.tui {
				t.Errorf("color/tui = %v/%v, want %v/%v",
					got.ColorEnabled(), got.TUIEnabled(), tc.color, tc.tui)
			}
			if !got.SummaryEnabled() {
				t.Error("summary from file should survive")
			}
		})
	}
}

func TestLoadFromReader_EmptyDocument(t *testing.T) {
	opts, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("empty document should not fail: %v", err)
	}
	if opts != (Options{}) {
		t.Errorf("empty document produced %+v", opts)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("colour: true\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jivemeter.yaml")
	if err := os.WriteFile(path, []byte("device: alsa_output.pci\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	opts, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if opts.Device != "alsa_output.pci" {
		t.Errorf("Device = %q", opts.Device)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

// TestValidate_Invalid checks that each bad field is reported, and that all
// problems are reported together rather than one at a time.
func TestValidate_Invalid(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Options)
		wantErr string
	}{
		{"bad source", func(o *Options) { o.Source = "jack" }, "source \"jack\" is invalid"},
		{"file without path", func(o *Options) { o.Source = SourceFile }, "requires a file path"},
		{"zero channels", func(o *Options) { o.Channels = 0 }, "channels 0 out of range"},
		{"too many channels", func(o *Options) { o.Channels = 33 }, "channels 33 out of range"},
		{"bad rate", func(o *Options) { o.SampleRate = -1 }, "sample_rate -1"},
		{"bad fragment", func(o *Options) { o.FragmentMs = 5000 }, "fragment_ms 5000"},
		{"bad decay", func(o *Options) { o.DecayInterval = -3 }, "decay_interval must be positive"},
		{"bad width", func(o *Options) { o.BarWidth = 0 }, "bar_width 0"},
		{"bad log level", func(o *Options) { o.LogLevel = "loud" }, "log_level \"loud\""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts := Defaults()
			tc.mutate(&opts)

			err := Validate(opts)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}

	opts := Defaults()
	opts.Channels = 0
	opts.BarWidth = 0
	err := Validate(opts)
	if err == nil || !strings.Contains(err.Error(), "channels") || !strings.Contains(err.Error(), "bar_width") {
		t.Errorf("expected both problems reported, got %v", err)
	}
}

func TestParseLogLevel(t *testing.T) {
	for _, name := range []string{"debug", "INFO", "warn", "warning", "error"} {
		if _, err := ParseLogLevel(name); err != nil {
			t.Errorf("ParseLogLevel(%q) failed: %v", name, err)
		}
	}
	if _, err := ParseLogLevel(""); err == nil {
		t.Error("expected error for empty level")
	}
}
