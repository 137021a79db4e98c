package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/tag-bot/internal/models"
)

// FilePersister stores the namespace map as a single JSON document whose
// root maps namespace keys to tag-name → tag objects. Every save rewrites
// the whole document through an atomic rename.
type FilePersister struct {
	path string
}

func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Load reads the persisted namespace map. A missing file means a fresh
// store. A file that exists but cannot be parsed is returned as an error:
// the caller must treat it as fatal rather than start with an empty store
// over unreadable data.
func (p *FilePersister) Load() (map[string]map[string]models.Tag, error) {
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return make(map[string]map[string]models.Tag), nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading tag file %s: %w", p.path, err)
	}

	var tags map[string]map[string]models.Tag
	if err := json.Unmarshal(data, &tags); err != nil {
		return nil, fmt.Errorf("error parsing tag file %s: %w", p.path, err)
	}
	if tags == nil {
		tags = make(map[string]map[string]models.Tag)
	}

	// Records written by hand or by older versions may omit fields.
	for _, bucket := range tags {
		for name, tag := range bucket {
			if tag.Name == "" {
				tag.Name = name
			}
			if tag.CreatedAt.IsZero() {
				tag.CreatedAt = time.Now().UTC()
			}
			bucket[name] = tag
		}
	}

	return tags, nil
}

// Save serializes the complete map, writes it to a uniquely named temporary
// file in the same directory, then renames it over the target. A crash or
// write failure before the rename leaves the previous document untouched.
func (p *FilePersister) Save(tags map[string]map[string]models.Tag) error {
	data, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("error serializing tags: %w", err)
	}

	dir := filepath.Dir(p.path)
	temp := filepath.Join(dir, fmt.Sprintf("%s-%s.tmp", filepath.Base(p.path), uuid.New()))

	if err := os.WriteFile(temp, data, 0o644); err != nil {
		os.Remove(temp)
		return fmt.Errorf("error writing temporary tag file %s: %w", temp, err)
	}
	if err := os.Rename(temp, p.path); err != nil {
		os.Remove(temp)
		return fmt.Errorf("error replacing tag file %s: %w", p.path, err)
	}

	return nil
}

func (p *FilePersister) Close() error {
	// Nothing held open between operations.
	return nil
}
