// Package catalog loads the immutable list of harbour pools the passport
// tracks. The catalog is read once at startup from a YAML file and never
// mutated afterwards.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when the catalog file does not exist.
var ErrNotFound = errors.New("catalog: not found")

// PoolRecord is one harbour pool. Records are immutable after load.
type PoolRecord struct {
	ID     string  `yaml:"id"`
	Name   string  `yaml:"name"`
	Lat    float64 `yaml:"lat"`
	Lng    float64 `yaml:"lng"`
	Suburb string  `yaml:"suburb"`
	Stamp  string  `yaml:"stamp"`
}

// StampImage resolves the stamp artwork for the pool: the record's own
// path when set, otherwise the conventional asset keyed by id.
func (p PoolRecord) StampImage() string {
	if strings.TrimSpace(p.Stamp) != "" {
		return p.Stamp
	}
	return "/assets/stamps/" + p.ID + ".svg"
}

type catalogFile struct {
	Pools []PoolRecord `yaml:"pools"`
}

// Load reads and validates the ordered pool list from path.
func Load(path string) ([]PoolRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	seen := map[string]bool{}
	for i := range f.Pools {
		p := &f.Pools[i]
		p.ID = strings.TrimSpace(p.ID)
		p.Name = strings.TrimSpace(p.Name)
		p.Suburb = strings.TrimSpace(p.Suburb)
		p.Stamp = strings.TrimSpace(p.Stamp)
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("catalog: pool %d missing id or name", i)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("catalog: duplicate pool id %q", p.ID)
		}
		seen[p.ID] = true
		if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
			return nil, fmt.Errorf("catalog: pool %q has out-of-range coordinates", p.ID)
		}
	}
	return f.Pools, nil
}

// ClampIndex confines a selection index to the catalog range. Anything
// out of range, including indexes left over from a larger catalog, maps
// to the first pool.
func ClampIndex(idx, total int) int {
	if total <= 0 {
		return 0
	}
	if idx < 0 || idx >= total {
		return 0
	}
	return idx
}

// ByID returns the pool with the given id, if present.
func ByID(pools []PoolRecord, id string) (PoolRecord, bool) {
	for _, p := range pools {
		if p.ID == id {
			return p, true
		}
	}
	return PoolRecord{}, false
}
