// Package catalog reads song catalogs from YAML files.
package catalog

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/isaac-evs/side-b/internal/model"
)

// File is the on-disk catalog layout.
type File struct {
	Songs []*model.Song `yaml:"songs"`
}

// Load parses a catalog and rejects songs without id or title, with an unknown mood,
// or with an id used twice.
func Load(r io.Reader) ([]*model.Song, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	seen := make(map[string]bool, len(f.Songs))
	for i, s := range f.Songs {
		switch {
		case s == nil:
			return nil, model.NewValidationError(fmt.Sprintf("songs[%d]", i), "is empty")
		case s.SongID == "":
			return nil, model.NewValidationError(fmt.Sprintf("songs[%d].id", i), "is required")
		case s.Title == "":
			return nil, model.NewValidationError(fmt.Sprintf("songs[%d].title", i), "is required")
		case !model.IsMood(s.Mood):
			return nil, model.NewValidationError(fmt.Sprintf("songs[%d].mood", i), fmt.Sprintf("unsupported mood %q", s.Mood))
		case seen[s.SongID]:
			return nil, model.NewValidationError(fmt.Sprintf("songs[%d].id", i), fmt.Sprintf("duplicate id %q", s.SongID))
		}
		seen[s.SongID] = true
	}
	return f.Songs, nil
}

// LoadFile opens path and calls Load.
func LoadFile(path string) ([]*model.Song, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}
