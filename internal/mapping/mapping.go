// Package mapping loads the optional location-alias table from a local YAML
// file. Absence of the file is fully supported; the pipeline falls back to
// its built-in generic tables.
package mapping

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/calebrow/fleetsift/pkg/models"
)

// Load reads a LocationMapping from path. A missing file returns (nil, nil);
// a present but unreadable or invalid file returns an error.
func Load(path string) (*models.LocationMapping, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read location mapping %q: %w", path, err)
	}

	var m models.LocationMapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse location mapping %q: %w", path, err)
	}
	if m.GenericToReal == nil {
		m.GenericToReal = map[string]string{}
	}
	if m.IPRangeMapping == nil {
		m.IPRangeMapping = map[string]string{}
	}
	return &m, nil
}
