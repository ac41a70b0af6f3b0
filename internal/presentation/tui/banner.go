package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the ASCII art banner to w using profile p.
func PrintBanner(w io.Writer, p termenv.Profile) {
	lines := []struct {
		text  string
		color string
	}{
		{"   ___       _      _           _", "#818cf8"},
		{"  / _ \\ _ __(_) ___| |__   __ _| | ___ _   _ _ __ ___", "#a78bfa"},
		{" | | | | '__| |/ __| '_ \\ / _` | |/ __| | | | '_ ` _ \\", "#c084fc"},
		{" | |_| | |  | | (__| | | | (_| | | (__| |_| | | | | | |", "#e879f9"},
		{"  \\___/|_|  |_|\\___|_| |_|\\__,_|_|\\___|\\__,_|_| |_| |_|", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, p.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
