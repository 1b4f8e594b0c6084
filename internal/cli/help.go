package cli

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
)

// Help styles follow the meter zones: green groups, amber sections
var (
	helpTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(AccentCyan).
			MarginBottom(1)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(DimGray).
			Italic(true).
			MarginBottom(1)

	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(LevelAmber)

	helpGroupStyle = lipgloss.NewStyle().
			Foreground(LevelGreen).
			Bold(true)

	helpFlagStyle = lipgloss.NewStyle().
			Foreground(AccentCyan).
			Bold(true)

	helpNoteStyle = lipgloss.NewStyle().
			Foreground(DimGray)
)

// helpExamples are shown under Usage, one per source
var helpExamples = []struct{ cmd, note string }{
	{"%s", "meter the default output"},
	{"%s -d alsa_output.usb-headset --color", "meter one sink, coloured by zone"},
	{"%s -f episode.flac --tui", "replay a file in the full-screen view"},
	{"parec --format=float32le | %s --source=raw", "meter raw samples from stdin"},
}

// helpRow is one flag line of the help screen
type helpRow struct {
	label string
	help  string
	group string
}

// StyledHelpPrinter renders kong help as the meter's styled help screen
func StyledHelpPrinter(options kong.HelpOptions) kong.HelpPrinter {
	return func(options kong.HelpOptions, ctx *kong.Context) error {
		fmt.Fprint(ctx.Stdout, renderHelp(ctx.Model.Name, helpRows(ctx.Model.Node.Flags)))
		return nil
	}
}

func renderHelp(name string, rows []helpRow) string {
	var sb strings.Builder

	sb.WriteString(helpTitleStyle.Render(DisplayName))
	sb.WriteString("\n")
	sb.WriteString(helpDescStyle.Render(Tagline))
	sb.WriteString("\n")

	sb.WriteString(helpSectionStyle.Render("Usage:"))
	sb.WriteString("\n")
	cmdWidth := 0
	cmds := make([]string, len(helpExamples))
	for i, ex := range helpExamples {
		cmds[i] = fmt.Sprintf(ex.cmd, name)
		cmdWidth = max(cmdWidth, len(cmds[i]))
	}
	for i, ex := range helpExamples {
		fmt.Fprintf(&sb, "  %-*s  %s\n", cmdWidth, cmds[i], helpNoteStyle.Render("# "+ex.note))
	}

	// Each group is aligned on its own widest label, so the wide format
	// flags do not push the short source flags across the screen
	for _, g := range groupRows(rows) {
		sb.WriteString("\n")
		if g.title == "" {
			sb.WriteString(helpSectionStyle.Render("Flags:"))
		} else {
			sb.WriteString(helpGroupStyle.Render(g.title + ":"))
		}
		sb.WriteString("\n")

		width := 0
		for _, r := range g.rows {
			width = max(width, len(r.label))
		}
		for _, r := range g.rows {
			pad := strings.Repeat(" ", width-len(r.label))
			sb.WriteString("  ")
			sb.WriteString(helpFlagStyle.Render(r.label))
			if r.help != "" {
				sb.WriteString(pad)
				sb.WriteString("  ")
				sb.WriteString(r.help)
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n")
	return sb.String()
}

type rowGroup struct {
	title string
	rows  []helpRow
}

// groupRows collects rows by group in first-seen order
func groupRows(rows []helpRow) []rowGroup {
	var groups []rowGroup
	index := map[string]int{}
	for _, r := range rows {
		i, ok := index[r.group]
		if !ok {
			i = len(groups)
			index[r.group] = i
			groups = append(groups, rowGroup{title: r.group})
		}
		groups[i].rows = append(groups[i].rows, r)
	}
	return groups
}

func helpRows(flags []*kong.Flag) []helpRow {
	var rows []helpRow
	for _, f := range flags {
		if f.Hidden {
			continue
		}
		row := helpRow{label: flagLabel(f), help: f.Help}
		if f.Group != nil {
			row.group = f.Group.Title
		}
		rows = append(rows, row)
	}
	return rows
}

// flagLabel renders "-d, --device=DEVICE" or "    --[no-]color". Long
// names line up whether or not a short form exists.
func flagLabel(f *kong.Flag) string {
	label := "    "
	if f.Short != 0 {
		label = fmt.Sprintf("-%c, ", f.Short)
	}
	if f.Tag != nil && f.Tag.Negatable != "" {
		label += "--[no-]" + f.Name
	} else {
		label += "--" + f.Name
	}
	if !f.IsBool() && !f.IsCounter() {
		label += "=" + placeholder(f)
	}
	return label
}

// placeholder names the value after the flag, not its Go type
func placeholder(f *kong.Flag) string {
	switch {
	case f.PlaceHolder != "":
		return f.PlaceHolder
	case f.Tag != nil && (f.Tag.Type == "path" || f.Tag.Type == "existingfile"):
		return "PATH"
	}
	return strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
}
