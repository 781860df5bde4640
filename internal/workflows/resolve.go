package workflows

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PolarWolf314/knox/internal/container"
	kerrors "github.com/PolarWolf314/knox/internal/errors"

	"github.com/bmatcuk/doublestar/v4"
)

// reservedNames are vault bookkeeping files that are never encrypted or
// decrypted as ordinary inputs.
var reservedNames = map[string]bool{
	"vault.knxmeta": true,
	".vault.lock":   true,
}

// ResolveFiles expands user-provided paths, directories and globs into files.
// forEncryption=true selects plaintext files, forEncryption=false selects
// containers. Relative patterns are resolved against baseDir.
// Returns ErrNoFilesFound if nothing matched.
func ResolveFiles(patterns []string, baseDir string, forEncryption bool) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		resolved, err := resolvePattern(pattern, baseDir, forEncryption)
		if err != nil {
			return nil, err
		}

		for _, f := range resolved {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}

	if len(files) == 0 {
		return nil, kerrors.ErrNoFilesFound
	}
	return files, nil
}

func resolvePattern(pattern, baseDir string, forEncryption bool) ([]string, error) {
	absPattern := pattern
	if !filepath.IsAbs(pattern) {
		absPattern = filepath.Join(baseDir, pattern)
	}

	info, err := os.Stat(absPattern)
	if err == nil && info.IsDir() {
		return findFilesInDir(absPattern, forEncryption)
	}

	if strings.ContainsAny(pattern, "*?[{") {
		return expandGlob(absPattern, forEncryption)
	}

	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrFileNotFound, pattern)
	}
	if !wanted(absPattern, forEncryption) {
		if forEncryption {
			return nil, kerrors.Invalid("input path", "%s is already encrypted", pattern)
		}
		return nil, kerrors.Invalid("input path", "%s is not a %s file", pattern, container.Extension)
	}

	return []string{absPattern}, nil
}

func expandGlob(absPattern string, forEncryption bool) ([]string, error) {
	matches, err := doublestar.FilepathGlob(absPattern)
	if err != nil {
		return nil, kerrors.Invalid("pattern", "invalid glob %q: %v", absPattern, err)
	}

	var filtered []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if wanted(m, forEncryption) {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

func findFilesInDir(dir string, forEncryption bool) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if wanted(path, forEncryption) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, kerrors.NewIOError("walk", dir, err)
	}
	return files, nil
}

func wanted(path string, forEncryption bool) bool {
	base := filepath.Base(path)
	if reservedNames[base] {
		return false
	}
	isContainer := strings.HasSuffix(base, container.Extension)
	return isContainer != forEncryption
}
