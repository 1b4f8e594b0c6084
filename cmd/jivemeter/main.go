package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/jivemeter/internal/cli"
	"github.com/linuxmatters/jivemeter/internal/config"
	"github.com/linuxmatters/jivemeter/internal/meter"
	"github.com/linuxmatters/jivemeter/internal/pipeline"
	"github.com/linuxmatters/jivemeter/internal/transport/file"
	"github.com/linuxmatters/jivemeter/internal/transport/pulse"
	"github.com/linuxmatters/jivemeter/internal/transport/raw"
	"github.com/linuxmatters/jivemeter/internal/ui"
	"golang.org/x/sync/errgroup"
)

// version is set via ldflags at build time
// Local dev builds: "dev"
// Release builds: git tag (e.g. "v0.1.0")
var version = "dev"

// Flags are left without kong defaults so that unset flags fall through
// to the config file and then to config.Defaults
var CLI struct {
	Config string `help:"YAML config file" type:"existingfile" group:"General"`

	Source string `help:"Audio source: pulse, file or raw (default: pulse)" group:"Source"`
	Device string `short:"d" help:"Sink whose monitor is metered (default: the server's default sink)" group:"Source"`
	Server string `short:"s" help:"PulseAudio server string" group:"Source"`
	File   string `short:"f" help:"Audio file to replay (.wav, .mp3, .flac); implies --source=file" type:"path" group:"Source"`

	Rate       int `help:"Sample rate of raw input (default: 44100)" group:"Format"`
	Channels   int `help:"Channel count of raw input (default: 2)" group:"Format"`
	FragmentMs int `name:"fragment-ms" help:"Fragment length in milliseconds (default: 25)" group:"Format"`

	DecayInterval int    `name:"decay-interval" help:"Fragments between peak resets (default: 32)" group:"Display"`
	BarWidth      int    `name:"bar-width" help:"Width of the level bar (default: 100)" group:"Display"`
	Color         bool   `negatable:"" help:"Colour the level bar by zone" group:"Display"`
	TUI           bool   `name:"tui" negatable:"" help:"Full-screen view with channel peaks and spectrum" group:"Display"`
	Summary       bool   `negatable:"" help:"Print a summary when metering stops" group:"Display"`
	LogLevel      string `name:"log-level" help:"Diagnostics level: debug, info, warn, error (default: warn)" group:"General"`
	Version       bool   `help:"Show version information" group:"General"`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("jivemeter"),
		kong.Description("Live peak-hold level meter for a PulseAudio output."),
		kong.Vars{"version": version},
		kong.UsageOnError(),
		kong.Help(cli.StyledHelpPrinter(kong.HelpOptions{Compact: true})),
	)

	// Handle version flag
	if CLI.Version {
		cli.PrintVersion(version)
		os.Exit(0)
	}

	opts, err := resolveOptions(explicitFlags(kctx))
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}

	level, _ := config.ParseLogLevel(opts.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// A closed stdout must not kill the process mid-write
	signal.Ignore(syscall.SIGPIPE)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err = run(ctx, opts, logger)
	stop()
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}

// explicitFlags returns the names of flags given on the command line,
// including their --no- forms
func explicitFlags(kctx *kong.Context) map[string]bool {
	set := map[string]bool{}
	for _, f := range kctx.Flags() {
		if f.Set {
			set[f.Name] = true
		}
	}
	return set
}

// switchFlag returns v only when the flag was given, so an unset switch
// falls through to the config file
func switchFlag(set map[string]bool, name string, v bool) *bool {
	if !set[name] {
		return nil
	}
	return config.Bool(v)
}

// resolveOptions merges flags over the config file over defaults
func resolveOptions(set map[string]bool) (config.Options, error) {
	flags := config.Options{
		Source:        config.Source(CLI.Source),
		Device:        CLI.Device,
		Server:        CLI.Server,
		File:          CLI.File,
		SampleRate:    CLI.Rate,
		Channels:      CLI.Channels,
		FragmentMs:    CLI.FragmentMs,
		DecayInterval: CLI.DecayInterval,
		BarWidth:      CLI.BarWidth,
		Color:         switchFlag(set, "color", CLI.Color),
		TUI:           switchFlag(set, "tui", CLI.TUI),
		Summary:       switchFlag(set, "summary", CLI.Summary),
		LogLevel:      CLI.LogLevel,
	}

	var fromFile config.Options
	if CLI.Config != "" {
		var err error
		if fromFile, err = config.Load(CLI.Config); err != nil {
			return config.Options{}, err
		}
	}

	opts := flags.Merge(fromFile)
	if opts.Source == "" && opts.File != "" {
		opts.Source = config.SourceFile
	}
	opts = opts.Merge(config.Defaults())

	if err := config.Validate(opts); err != nil {
		return config.Options{}, err
	}
	return opts, nil
}

// display is what the meter renders through: the plain bar or the TUI
type display interface {
	meter.Renderer
	pipeline.Notifier
}

func run(ctx context.Context, opts config.Options, logger *slog.Logger) error {
	transport, source := newTransport(opts, logger)
	defer transport.Close()

	var (
		out  display
		bar  *ui.Bar
		prog *ui.Program
	)
	if opts.TUIEnabled() {
		var err error
		if prog, err = ui.NewProgram(source, tea.WithAltScreen()); err != nil {
			return err
		}
		out = prog
	} else {
		bar = ui.NewBar(os.Stdout, ui.WithWidth(opts.BarWidth), ui.WithColor(opts.ColorEnabled()))
		out = bar
	}

	monitor := meter.NewMonitor(out, out,
		[]meter.Option{meter.WithDecayInterval(opts.DecayInterval)},
		meter.WithLogger(logger))

	machine := pipeline.NewMachine(transport, monitor,
		pipeline.WithDevice(opts.Device),
		pipeline.WithNotifier(monitor),
		pipeline.WithLogger(logger))

	var err error
	if prog != nil {
		err = runWithTUI(ctx, prog, transport, machine)
	} else {
		err = pipeline.Run(ctx, transport, machine)
		if monitor.Stats().Fragments > 0 {
			// Leave the last bar on screen
			fmt.Println()
		}
		if werr := bar.Err(); werr != nil {
			logger.Warn("meter output failed", "error", werr)
		}
	}

	if opts.SummaryEnabled() {
		printSummary(source, machine, monitor.Stats())
	}
	return err
}

// runWithTUI runs the event loop alongside the Bubbletea program. Quitting
// the TUI stops the loop; the loop ending shows the result and closes the TUI.
func runWithTUI(ctx context.Context, prog *ui.Program, t pipeline.Transport, m *pipeline.Machine) error {
	g, gctx := errgroup.WithContext(ctx)
	loopCtx, cancelLoop := context.WithCancel(gctx)
	defer cancelLoop()

	g.Go(func() error {
		defer cancelLoop()
		if err := prog.Run(); err != nil {
			return fmt.Errorf("running UI: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := pipeline.Run(loopCtx, t, m)
		prog.Stop(err)
		return err
	})

	return g.Wait()
}

func newTransport(opts config.Options, logger *slog.Logger) (pipeline.Transport, string) {
	switch opts.Source {
	case config.SourceFile:
		return file.New(file.Options{
			Path:       opts.File,
			FragmentMs: opts.FragmentMs,
			Realtime:   true,
			Logger:     logger,
		}), opts.File

	case config.SourceRaw:
		return raw.New(raw.Options{
			Reader:     os.Stdin,
			Name:       "stdin",
			SampleRate: opts.SampleRate,
			Channels:   opts.Channels,
			FragmentMs: opts.FragmentMs,
			Logger:     logger,
		}), "stdin"

	default:
		source := opts.Device
		if source == "" {
			source = pulse.DefaultSink
		}
		return pulse.New(pulse.Options{
			Server:     opts.Server,
			AppName:    config.AppName,
			StreamName: config.StreamName,
			FragmentMs: opts.FragmentMs,
			Logger:     logger,
		}), source
	}
}

func printSummary(source string, m *pipeline.Machine, stats meter.Stats) {
	s := cli.Summary{
		Source:      source,
		Fragments:   stats.Fragments,
		Skipped:     stats.Skipped,
		Peak:        stats.Peak,
		PeakLevel:   stats.PeakLevel,
		OverRange:   stats.OverRange,
		SampleCount: stats.SampleCount,
	}
	if spec := m.StreamSpec(); spec.Valid() {
		s.Format = spec.String()
	}
	cli.PrintSummary(s)
}
