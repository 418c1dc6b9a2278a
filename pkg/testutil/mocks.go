// Package testutil provides common testing utilities and mock implementations
// of the host capabilities consumed by the boot engine.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/R3E-Network/extension_server/internal/logging"
	"github.com/R3E-Network/extension_server/services/base"
)

// NewLogger returns a logger whose entries are captured by the returned hook.
func NewLogger() (*logging.Logger, *test.Hook) {
	l, hook := test.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	return logging.FromLogrus(l, "test"), hook
}

// MockHostRegistry records StartService calls and can be told to fail or
// panic for specific service IDs.
type MockHostRegistry struct {
	mu      sync.Mutex
	started []string
	calls   []string
	errs    map[string]error
	panics  map[string]any
}

// NewMockHostRegistry creates an empty mock registry.
func NewMockHostRegistry() *MockHostRegistry {
	return &MockHostRegistry{
		errs:   make(map[string]error),
		panics: make(map[string]any),
	}
}

// FailOn makes StartService return err for id.
func (m *MockHostRegistry) FailOn(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[id] = err
}

// PanicOn makes StartService panic with v for id.
func (m *MockHostRegistry) PanicOn(id string, v any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panics[id] = v
}

// StartService records the call and applies any configured failure.
func (m *MockHostRegistry) StartService(_ context.Context, h base.Handle) error {
	m.mu.Lock()
	m.calls = append(m.calls, h.ID)
	p, shouldPanic := m.panics[h.ID]
	err := m.errs[h.ID]
	m.mu.Unlock()

	if shouldPanic {
		panic(p)
	}
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.started = append(m.started, h.ID)
	m.mu.Unlock()
	return nil
}

// Calls returns every ID StartService was called with, in order.
func (m *MockHostRegistry) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Started returns the IDs that started successfully, in order.
func (m *MockHostRegistry) Started() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.started...)
}

// MockFeatures is a fixed feature set that counts queries.
type MockFeatures struct {
	mu       sync.Mutex
	features map[string]bool
	queries  int
}

// NewMockFeatures creates a feature set declaring names.
func NewMockFeatures(names ...string) *MockFeatures {
	m := &MockFeatures{features: make(map[string]bool)}
	for _, name := range names {
		m.features[name] = true
	}
	return m
}

// HasFeature reports whether name is declared.
func (m *MockFeatures) HasFeature(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++
	return m.features[name]
}

// Queries returns how many times HasFeature was called.
func (m *MockFeatures) Queries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries
}

// MockProperties is a property store that counts reads.
type MockProperties struct {
	mu     sync.Mutex
	values map[string]string
	err    error
	reads  int
}

// NewMockProperties creates a property store holding values.
func NewMockProperties(values map[string]string) *MockProperties {
	if values == nil {
		values = make(map[string]string)
	}
	return &MockProperties{values: values}
}

// SetError makes every read fail with err.
func (m *MockProperties) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// GetProperty returns the value of name.
func (m *MockProperties) GetProperty(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.values[name]
	if !ok {
		return "", fmt.Errorf("property not found: %s", name)
	}
	return v, nil
}

// Reads returns how many times GetProperty was called.
func (m *MockProperties) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// MockBackup records backup activation requests.
type MockBackup struct {
	mu    sync.Mutex
	err   error
	calls []BackupCall
}

// BackupCall is one recorded SetBackupServiceActive call.
type BackupCall struct {
	UserID int
	Active bool
}

// NewMockBackup creates a backup manager that fails with err when non-nil.
func NewMockBackup(err error) *MockBackup {
	return &MockBackup{err: err}
}

// SetBackupServiceActive records the call.
func (m *MockBackup) SetBackupServiceActive(_ context.Context, userID int, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, BackupCall{UserID: userID, Active: active})
	return m.err
}

// Calls returns the recorded calls.
func (m *MockBackup) Calls() []BackupCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]BackupCall(nil), m.calls...)
}

// MockAllowList is a power-save allow list with injectable failures.
type MockAllowList struct {
	mu       sync.Mutex
	exempt   map[string]bool
	queryErr error
	addErr   error
	adds     []string
}

// NewMockAllowList creates an allow list where packages are already exempt.
func NewMockAllowList(packages ...string) *MockAllowList {
	m := &MockAllowList{exempt: make(map[string]bool)}
	for _, pkg := range packages {
		m.exempt[pkg] = true
	}
	return m
}

// SetQueryError makes IsExempt fail with err.
func (m *MockAllowList) SetQueryError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryErr = err
}

// SetAddError makes AddExemption fail with err.
func (m *MockAllowList) SetAddError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addErr = err
}

// IsExempt reports whether pkg is exempt.
func (m *MockAllowList) IsExempt(_ context.Context, pkg string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return false, m.queryErr
	}
	return m.exempt[pkg], nil
}

// AddExemption records the request and exempts pkg unless configured to fail.
func (m *MockAllowList) AddExemption(_ context.Context, pkg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adds = append(m.adds, pkg)
	if m.addErr != nil {
		return m.addErr
	}
	m.exempt[pkg] = true
	return nil
}

// Adds returns every package AddExemption was called with.
func (m *MockAllowList) Adds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.adds...)
}

// MockSystemConfig returns a fixed power-save allow list.
type MockSystemConfig struct {
	Packages []string
}

// AllowInPowerSave returns the configured packages.
func (m MockSystemConfig) AllowInPowerSave() []string {
	return m.Packages
}
