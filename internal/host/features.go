// Package host provides concrete adapters for the host capabilities the
// boot engine consumes: device features, system properties, backup
// activation, the power-save allow list and the system configuration.
package host

import (
	"sort"
	"strings"
	"sync"
)

// FeatureSet is the set of features declared by the device.
type FeatureSet struct {
	mu       sync.RWMutex
	features map[string]struct{}
}

// NewFeatureSet creates a feature set from declared feature names. Blank
// names are ignored.
func NewFeatureSet(names ...string) *FeatureSet {
	fs := &FeatureSet{features: make(map[string]struct{}, len(names))}
	for _, name := range names {
		fs.Add(name)
	}
	return fs
}

// Add declares a feature.
func (fs *FeatureSet) Add(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.features[name] = struct{}{}
}

// HasFeature reports whether name is declared.
func (fs *FeatureSet) HasFeature(name string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	_, ok := fs.features[name]
	return ok
}

// List returns the declared features in sorted order.
func (fs *FeatureSet) List() []string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	out := make([]string, 0, len(fs.features))
	for name := range fs.features {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
