// Package printer formats CLI output.
package printer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/Netonia/POIMapper/internal/models"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)
)

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		msg = "✓ " + msg
	}
	green.Print(msg)
}

// Warning prints a warning message in yellow
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		msg = "⚠️  " + msg
	}
	yellow.Print(msg)
}

// Step prints a step message with emphasis
func Step(format string, a ...any) {
	cyan.Printf("→ %s", fmt.Sprintf(format, a...))
}

// Error prints a formatted error with an explanation and suggestions to
// stderr, and returns an error carrying only the title for cobra.
func Error(title string, explanation string, suggestions []string) error {
	red.Fprintf(os.Stderr, "%s\n\n", title)
	if explanation != "" {
		fmt.Fprintf(os.Stderr, "%s\n", explanation)
	}

	if len(suggestions) > 0 {
		fmt.Fprintf(os.Stderr, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(os.Stderr, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(os.Stderr, "Either:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(os.Stderr, "  %d. %s\n", i+1, suggestion)
			}
		}
	}

	return fmt.Errorf("%s", title)
}

// POITable writes pois as an aligned table.
func POITable(w io.Writer, pois []models.POI) {
	header := fmt.Sprintf("%-36s %-24s %-12s %11s %11s  %s", "ID", "NAME", "CATEGORY", "LATITUDE", "LONGITUDE", "CREATED")
	fmt.Fprintln(w, styled(w, bold, header))
	for _, p := range pois {
		fmt.Fprintf(w, "%-36s %-24s %-12s %11.6f %11.6f  %s\n",
			p.ID, truncate(p.Name, 24), truncate(p.Category, 12), p.Latitude, p.Longitude, p.CreatedText())
	}
}

// POIDetail writes every field of p, one per line.
func POIDetail(w io.Writer, p models.POI) {
	rows := [][2]string{
		{"ID", p.ID},
		{"Name", p.Name},
		{"Description", p.Description},
		{"Category", p.Category},
		{"Latitude", fmt.Sprintf("%g", p.Latitude)},
		{"Longitude", fmt.Sprintf("%g", p.Longitude)},
		{"Created", p.CreatedText()},
	}
	for _, row := range rows {
		label := row[0] + ":"
		pad := strings.Repeat(" ", max(12-len(label), 0))
		fmt.Fprintf(w, "%s%s %s\n", styled(w, bold, label), pad, row[1])
	}
}

// styled applies c only when w is a terminal and colour is not disabled.
func styled(w io.Writer, c *color.Color, s string) string {
	if color.NoColor || !isTerminal(w) {
		return s
	}
	return c.Sprint(s)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
