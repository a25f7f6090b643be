package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bamsammich/ferry/internal/config"
	"github.com/bamsammich/ferry/internal/ledger"
	"github.com/bamsammich/ferry/internal/meta"
)

// Report palette. Mutable so the config file can override it.
var (
	ColorGreen  = lipgloss.Color("#a6e3a1")
	ColorYellow = lipgloss.Color("#f9e2af")
	ColorRed    = lipgloss.Color("#f38ba8")
	ColorMuted  = lipgloss.Color("#5a6278")
	ColorBright = lipgloss.Color("#cdd6f4")
)

// ApplyTheme overrides palette colors with any set in the config file.
func ApplyTheme(t config.ThemeConfig) {
	set := func(dst *lipgloss.Color, v *string) {
		if v != nil && *v != "" {
			*dst = lipgloss.Color(*v)
		}
	}
	set(&ColorGreen, t.Green)
	set(&ColorYellow, t.Yellow)
	set(&ColorRed, t.Red)
	set(&ColorMuted, t.Muted)
	set(&ColorBright, t.Bright)
}

// FinalReport is what WriteReport prints after a transfer.
type FinalReport struct {
	Unresolved []ledger.Record
	Meta       meta.Report
	Attempts   int    // attempt cap, for "n/cap" display
	SrcRoot    string // stripped from displayed paths
}

// WriteReport writes the unresolved entries and the metadata pass results
// to w. Colors are used only when w is a color-capable terminal.
func WriteReport(w io.Writer, r FinalReport) {
	re := lipgloss.NewRenderer(w)
	header := re.NewStyle().Bold(true).Foreground(ColorBright)
	bad := re.NewStyle().Foreground(ColorRed)
	warn := re.NewStyle().Foreground(ColorYellow)
	good := re.NewStyle().Foreground(ColorGreen)
	muted := re.NewStyle().Foreground(ColorMuted)

	var b strings.Builder

	if len(r.Unresolved) == 0 {
		b.WriteString(good.Render("all entries copied") + "\n")
	} else {
		b.WriteString(header.Render(fmt.Sprintf("unresolved: %s entries", FormatCount(int64(len(r.Unresolved))))) + "\n")
		for _, rec := range r.Unresolved {
			icon := warn.Render("!")
			if r.Attempts > 0 && rec.Attempts >= r.Attempts {
				icon = bad.Render("✗")
			}
			attempts := fmt.Sprintf("attempts %d", rec.Attempts)
			if r.Attempts > 0 {
				attempts = fmt.Sprintf("attempts %d/%d", rec.Attempts, r.Attempts)
			}
			fmt.Fprintf(&b, "  %s %s  %s\n", icon, StripRoot(r.SrcRoot, rec.Source), muted.Render(attempts))
			if rec.LastError != "" {
				fmt.Fprintf(&b, "      %s\n", muted.Render(firstLine(rec.LastError)))
			}
		}
	}

	m := r.Meta
	if m.Checked > 0 || m.Skipped > 0 {
		line := fmt.Sprintf("metadata: checked %s  restored %s  skipped %s",
			FormatCount(int64(m.Checked)), FormatCount(int64(m.Restored)), FormatCount(int64(m.Skipped)))
		b.WriteString(line)
		if m.Denied > 0 {
			b.WriteString("  " + warn.Render(fmt.Sprintf("denied %d", m.Denied)))
		}
		if m.Unsupported > 0 {
			b.WriteString("  " + muted.Render(fmt.Sprintf("unsupported %d", m.Unsupported)))
		}
		if m.Failed > 0 {
			b.WriteString("  " + bad.Render(fmt.Sprintf("failed %d", m.Failed)))
		}
		b.WriteString("\n")
	}

	fmt.Fprint(w, b.String())
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
