package workflow

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	maestroerrors "github.com/mrz1836/maestro/internal/errors"
)

// ParseDefinition decodes a YAML workflow definition and validates it.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, maestroerrors.Wrap(err, "failed to parse workflow definition")
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadDefinition reads and parses a definition file.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is operator-supplied
	if err != nil {
		return nil, maestroerrors.Wrapf(err, "failed to read workflow definition %s", path)
	}

	def, err := ParseDefinition(data)
	if err != nil {
		return nil, maestroerrors.Wrapf(err, "definition %s", path)
	}
	return def, nil
}

// LoadDir loads every *.yaml and *.yml definition in dir, sorted by
// file name for deterministic registration order. A missing directory
// yields an empty list.
func LoadDir(dir string) ([]*Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, maestroerrors.Wrapf(err, "failed to read definitions directory %s", dir)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	defs := make([]*Definition, 0, len(names))
	for _, name := range names {
		def, err := LoadDefinition(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}
