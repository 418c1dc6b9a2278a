// Package devicepolicy provides the device policy extension service. It is a
// core service and starts even while the device is still encrypted.
package devicepolicy

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/R3E-Network/extension_server/internal/logging"
	"github.com/R3E-Network/extension_server/internal/plugin"
	"github.com/R3E-Network/extension_server/services/base"
)

const (
	ServiceID   = "devicepolicy"
	ServiceName = "Device Policy Service"
	Feature     = "ariel.software.devicepolicy"
)

// Default policies applied on start.
var defaultPolicies = map[string]bool{
	"camera.disabled":        false,
	"usb.debugging.disabled": true,
	"factory_reset.allowed":  false,
}

func init() {
	plugin.Register(ServiceID, plugin.ServiceInfo{
		Name:        ServiceName,
		Description: "Enforces device restrictions set by the device owner",
		Feature:     Feature,
		Core:        true,
	}, func() (base.Service, error) {
		return New(nil), nil
	})
}

// Service holds the active device policies.
type Service struct {
	*base.BaseService

	mu       sync.RWMutex
	policies map[string]bool
}

// New creates a device policy service.
func New(log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault(ServiceID)
	}
	s := &Service{
		BaseService: base.NewBaseService(ServiceID, ServiceName, log),
		policies:    make(map[string]bool),
	}
	s.SetHooks(base.LifecycleHooks{OnStart: s.onStart})
	return s
}

func (s *Service) onStart(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	for name, enabled := range defaultPolicies {
		if _, set := s.policies[name]; !set {
			s.policies[name] = enabled
		}
	}
	n := len(s.policies)
	s.mu.Unlock()

	s.Logger().WithField("policies", n).Info("device policies applied")
	return nil
}

// SetPolicy sets a named policy.
func (s *Service) SetPolicy(name string, enabled bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("policy name required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[name] = enabled
	return nil
}

// Policy reports whether a named policy is enabled and whether it is known.
func (s *Service) Policy(name string) (enabled, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	enabled, ok = s.policies[name]
	return enabled, ok
}

// Policies returns the known policy names in sorted order.
func (s *Service) Policies() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.policies))
	for name := range s.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
