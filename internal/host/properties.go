package host

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	ErrPropertyNotFound = errors.New("property not found")
	ErrInvalidSnapshot  = errors.New("property snapshot is not valid JSON")
)

// MapProperties is an in-memory property store.
type MapProperties map[string]string

// GetProperty returns the value of name.
func (m MapProperties) GetProperty(name string) (string, error) {
	v, ok := m[name]
	if !ok {
		return "", fmt.Errorf("%s: %w", name, ErrPropertyNotFound)
	}
	return v, nil
}

// FileProperties reads properties from a flat JSON snapshot such as
// {"vold.decrypt": "1", "ro.build.type": "user"}. The file is re-read on
// every lookup so a refreshed snapshot is picked up without a restart.
type FileProperties struct {
	path string
}

// NewFileProperties creates a property store backed by the snapshot at path.
func NewFileProperties(path string) *FileProperties {
	return &FileProperties{path: filepath.Clean(path)}
}

// GetProperty returns the value of name from the snapshot.
func (p *FileProperties) GetProperty(name string) (string, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return "", fmt.Errorf("read property snapshot: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return "", fmt.Errorf("%s: %w", p.path, ErrInvalidSnapshot)
	}

	result := gjson.GetBytes(data, escapePath(name))
	if !result.Exists() {
		return "", fmt.Errorf("%s: %w", name, ErrPropertyNotFound)
	}
	return result.String(), nil
}

// escapePath makes a property name usable as a single gjson key. Property
// names routinely contain dots, which gjson would otherwise treat as
// nesting.
func escapePath(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	for _, r := range name {
		switch r {
		case '\\', '.', '*', '?', '|', '#', '@', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
