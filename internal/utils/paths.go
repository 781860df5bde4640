package utils

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// maxUniqueAttempts bounds the suffix search in CreateStagedUnique.
const maxUniqueAttempts = 10000

// numberedPath inserts " (n)" before the extension of path. n == 0 returns
// path unchanged.
func numberedPath(path string, n int) string {
	if n == 0 {
		return path
	}
	dir, base := filepath.Split(path)
	ext := filepath.Ext(base)
	return filepath.Join(dir, fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(base, ext), n, ext))
}

// IsPlainName reports whether name is a single, non-special path element.
// Backslashes are separators on Windows only.
func IsPlainName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, "/\x00") {
		return false
	}
	if runtime.GOOS == "windows" && strings.ContainsRune(name, '\\') {
		return false
	}
	return filepath.Base(name) == name
}
