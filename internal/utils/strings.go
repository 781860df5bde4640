package utils

import (
	"fmt"
	"strings"

	"github.com/PolarWolf314/knox/internal/ui"

	"github.com/alecthomas/units"
)

// FormatPaths formats a slice of paths into a readable string.
func FormatPaths(paths []string) string {
	var b strings.Builder
	b.WriteString("\n")
	for _, path := range paths {
		b.WriteString("    - ")
		b.WriteString(ui.Path.Sprint(path))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatSize renders n bytes with one decimal and a binary unit, e.g. "1.5MiB".
func FormatSize(n int64) string {
	b := units.Base2Bytes(n)
	for _, u := range []struct {
		size   units.Base2Bytes
		suffix string
	}{{units.TiB, "TiB"}, {units.GiB, "GiB"}, {units.MiB, "MiB"}, {units.KiB, "KiB"}} {
		if b >= u.size {
			return fmt.Sprintf("%.1f%s", float64(b)/float64(u.size), u.suffix)
		}
	}
	return fmt.Sprintf("%dB", n)
}
