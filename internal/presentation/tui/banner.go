package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{" _ _                          _ ", "#818cf8"},
	{"| (_)_   _____   _ __ ___   __| |", "#a78bfa"},
	{"| | \\ \\ / / _ \\ | '_ ` _ \\ / _` |", "#c084fc"},
	{"| | |\\ V /  __/ | | | | | | (_| |", "#e879f9"},
	{"|_|_| \\_/ \\___| |_| |_| |_|\\__,_|", "#f472b6"},
}

// PrintBanner writes the livemd banner and version to w.
func PrintBanner(w io.Writer, version string) {
	p := termenv.EnvColorProfile()
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, termenv.String("  v"+v).Faint())
	}
	fmt.Fprintln(w)
}
