package host

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisAllowListKey is the set holding power-save exempt packages.
const DefaultRedisAllowListKey = "extension_server:power_save:allowlist"

var ErrEmptyPackage = errors.New("package name is required")

// MemoryAllowList is an in-process power-save allow list.
type MemoryAllowList struct {
	mu       sync.RWMutex
	packages map[string]struct{}
}

// NewMemoryAllowList creates an allow list seeded with packages.
func NewMemoryAllowList(packages ...string) *MemoryAllowList {
	m := &MemoryAllowList{packages: make(map[string]struct{}, len(packages))}
	for _, pkg := range packages {
		if pkg = strings.TrimSpace(pkg); pkg != "" {
			m.packages[pkg] = struct{}{}
		}
	}
	return m
}

// IsExempt reports whether pkg ignores battery optimizations.
func (m *MemoryAllowList) IsExempt(_ context.Context, pkg string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.packages[pkg]
	return ok, nil
}

// AddExemption exempts pkg from battery optimizations.
func (m *MemoryAllowList) AddExemption(_ context.Context, pkg string) error {
	if strings.TrimSpace(pkg) == "" {
		return ErrEmptyPackage
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packages[pkg] = struct{}{}
	return nil
}

// Packages returns the exempt packages in sorted order.
func (m *MemoryAllowList) Packages() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.packages))
	for pkg := range m.packages {
		out = append(out, pkg)
	}
	sort.Strings(out)
	return out
}

// RedisAllowList keeps the power-save allow list in a Redis set so the
// exemption survives restarts of the host process.
type RedisAllowList struct {
	client redis.Cmdable
	key    string
}

// NewRedisAllowList creates an allow list stored under key. An empty key
// uses DefaultRedisAllowListKey.
func NewRedisAllowList(client redis.Cmdable, key string) *RedisAllowList {
	if key == "" {
		key = DefaultRedisAllowListKey
	}
	return &RedisAllowList{client: client, key: key}
}

// IsExempt reports whether pkg is a member of the allow-list set.
func (r *RedisAllowList) IsExempt(ctx context.Context, pkg string) (bool, error) {
	ok, err := r.client.SIsMember(ctx, r.key, pkg).Result()
	if err != nil {
		return false, fmt.Errorf("query power-save allow list: %w", err)
	}
	return ok, nil
}

// AddExemption adds pkg to the allow-list set.
func (r *RedisAllowList) AddExemption(ctx context.Context, pkg string) error {
	if strings.TrimSpace(pkg) == "" {
		return ErrEmptyPackage
	}
	if err := r.client.SAdd(ctx, r.key, pkg).Err(); err != nil {
		return fmt.Errorf("add power-save exemption: %w", err)
	}
	return nil
}
