// Package tui renders engine output for terminals.
package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"

	"github.com/aretw0/orichalcum/pkg/schema"
)

const (
	colorOK    = "#22c55e"
	colorWarn  = "#eab308"
	colorError = "#ef4444"
	colorMuted = "#94a3b8"
)

// PrintSummary writes a validation result, one issue per line, colored
// with profile p. Use termenv.Ascii for plain output.
func PrintSummary(w io.Writer, p termenv.Profile, title string, res schema.ValidationResult, unreachable []string) {
	errs, warns := res.Errors(), res.Warnings()

	head := p.String("✔ " + title + ": no issues found").Foreground(p.Color(colorOK))
	switch {
	case len(errs) > 0:
		head = p.String(fmt.Sprintf("✘ %s: %d error(s), %d warning(s)", title, len(errs), len(warns))).
			Foreground(p.Color(colorError)).Bold()
	case len(warns) > 0 || len(unreachable) > 0:
		head = p.String(fmt.Sprintf("! %s: %d warning(s)", title, len(warns)+len(unreachable))).
			Foreground(p.Color(colorWarn))
	}
	fmt.Fprintln(w, head)

	for _, issue := range res.Issues {
		color := colorWarn
		if issue.Severity == schema.SeverityError {
			color = colorError
		}
		tag := p.String(fmt.Sprintf("%-7s", issue.Severity)).Foreground(p.Color(color))
		code := p.String(string(issue.Code)).Foreground(p.Color(colorMuted))
		fmt.Fprintf(w, "  %s %s %s\n", tag, issue.Message, code)
	}
	for _, id := range unreachable {
		tag := p.String(fmt.Sprintf("%-7s", schema.SeverityWarning)).Foreground(p.Color(colorWarn))
		fmt.Fprintf(w, "  %s node %q is unreachable from start\n", tag, id)
	}
}
