package configs

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/PolarWolf314/knox/internal/utils"

	"github.com/BurntSushi/toml"
)

// SaveTOML atomically writes a struct to a TOML file, creating its directory.
func SaveTOML(filePath string, data any) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(data); err != nil {
		return fmt.Errorf("encoding %s: %w", filePath, err)
	}
	return utils.WriteFileAtomic(filePath, buf.Bytes(), 0600)
}

// LoadTOML loads a TOML file into a struct.
func LoadTOML(filePath string, data any) error {
	_, err := toml.DecodeFile(filePath, data)
	return err
}

// tomlFile is a koanf provider for an optional TOML file. A missing file
// contributes nothing.
type tomlFile struct {
	path string
}

// ReadBytes is not supported; koanf uses Read when no parser is given.
func (f tomlFile) ReadBytes() ([]byte, error) {
	return nil, errors.New("tomlFile provider does not support ReadBytes")
}

// Read decodes the file into a nested map.
func (f tomlFile) Read() (map[string]any, error) {
	out := map[string]any{}
	if _, err := toml.DecodeFile(f.path, &out); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", f.path, err)
	}
	return out, nil
}
