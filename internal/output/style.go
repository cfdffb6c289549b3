package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Palette used for console output, as RGB triples.
var (
	colorYellow = []int{245, 200, 0}
	colorRed    = []int{244, 98, 81}
	colorGreen  = []int{77, 202, 125}
)

func hex(rgb []int) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2]))
}

var (
	baseStyle    = lipgloss.NewStyle().TabWidth(lipgloss.NoTabConversion)
	warnStyle    = baseStyle.Foreground(hex(colorYellow))
	errorStyle   = baseStyle.Foreground(hex(colorRed)).Bold(true)
	successStyle = baseStyle.Foreground(hex(colorGreen))
	debugStyle   = baseStyle.Faint(true)
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ConfigureColor disables colors unless w is a terminal and NO_COLOR is unset.
func ConfigureColor(w io.Writer) {
	if !IsTerminal(w) || os.Getenv("NO_COLOR") != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// renderLines styles each line on its own so lipgloss does not pad
// multi-line messages to a common width.
func renderLines(style lipgloss.Style, text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = style.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

// ColorSuccess renders text in the success color
func ColorSuccess(text string) string {
	return renderLines(successStyle, text)
}

// ColorWarn renders text in the warning color
func ColorWarn(text string) string {
	return renderLines(warnStyle, text)
}

// ColorError renders text in the error color
func ColorError(text string) string {
	return renderLines(errorStyle, text)
}

// ColorDim renders text faintly
func ColorDim(text string) string {
	return renderLines(debugStyle, text)
}
