package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/recipelint/pkg/schema"
)

// Output formats.
const (
	formatText = "text"
	formatJSON = "json"
)

var (
	styleOK    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))  // green
	styleWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // orange
	styleError = lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // red
	styleMuted = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray
	styleBold  = lipgloss.NewStyle().Bold(true)
)

const (
	symbolOK    = "✓"
	symbolWarn  = "⚠"
	symbolError = "✗"
)

func renderOK(msg string) string    { return styleOK.Render(symbolOK) + " " + msg }
func renderWarn(msg string) string  { return styleWarn.Render(symbolWarn) + " " + msg }
func renderError(msg string) string { return styleError.Render(symbolError) + " " + msg }

// fileReport is the outcome of validating one input file. Err is set when
// the file could not be read or decoded; Result is nil then.
type fileReport struct {
	File   string                   `json:"file"`
	SHA256 string                   `json:"sha256,omitempty"`
	Result *schema.ValidationResult `json:"result,omitempty"`
	Error  string                   `json:"error,omitempty"`
}

func (r fileReport) failed() bool { return r.Error != "" }

// passed applies the strict policy: warnings fail the file too.
func (r fileReport) passed(strict bool) bool {
	if r.failed() || !r.Result.IsValid() {
		return false
	}
	return !strict || len(r.Result.Warnings) == 0
}

// renderReports writes the reports in the requested format.
func renderReports(w io.Writer, format string, reports []fileReport, strict bool) error {
	if strings.ToLower(format) == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"files": reports})
	}
	renderText(w, reports, strict)
	return nil
}

func renderText(w io.Writer, reports []fileReport, strict bool) {
	passed := 0
	for _, r := range reports {
		switch {
		case r.failed():
			fmt.Fprintln(w, renderError(styleBold.Render(r.File)+" "+r.Error))
			continue
		case r.passed(strict) && len(r.Result.Warnings) == 0:
			fmt.Fprintln(w, renderOK(styleBold.Render(r.File)))
		case r.passed(strict):
			fmt.Fprintln(w, renderWarn(styleBold.Render(r.File)+" "+styleMuted.Render(counts(r.Result))))
		default:
			fmt.Fprintln(w, renderError(styleBold.Render(r.File)+" "+styleMuted.Render(counts(r.Result))))
		}
		if r.passed(strict) {
			passed++
		}
		for _, e := range r.Result.Errors {
			fmt.Fprintln(w, "    "+styleError.Render("error")+"   "+e.String())
		}
		for _, e := range r.Result.Warnings {
			fmt.Fprintln(w, "    "+styleWarn.Render("warning")+" "+e.String())
		}
	}
	fmt.Fprintln(w, styleMuted.Render(fmt.Sprintf("%d of %d files passed", passed, len(reports))))
}

func counts(r *schema.ValidationResult) string {
	return fmt.Sprintf("(%s, %s)", plural(len(r.Errors), "error"), plural(len(r.Warnings), "warning"))
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
