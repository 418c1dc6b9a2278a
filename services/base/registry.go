package base

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/R3E-Network/extension_server/internal/logging"
)

var (
	ErrAlreadyRegistered = errors.New("service already registered")
	ErrNilFactory        = errors.New("service handle has no factory")
)

// Registry is the host lifecycle manager: it instantiates services from
// handles, starts them and keeps them in start order.
type Registry struct {
	mu       sync.RWMutex
	services map[string]Service
	order    []string
	logger   *logging.Logger
}

// NewRegistry creates a new service registry.
func NewRegistry(logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registry{
		services: make(map[string]Service),
		logger:   logger.Named("service_registry"),
	}
}

// StartService instantiates the service behind h, starts it and registers
// it. A service that fails to start is not registered.
func (r *Registry) StartService(ctx context.Context, h Handle) error {
	if h.Factory == nil {
		return fmt.Errorf("%s: %w", h.ID, ErrNilFactory)
	}

	r.mu.RLock()
	_, exists := r.services[h.ID]
	r.mu.RUnlock()
	if exists {
		return fmt.Errorf("%s: %w", h.ID, ErrAlreadyRegistered)
	}

	svc, err := h.Factory()
	if err != nil {
		return fmt.Errorf("create service %s: %w", h.ID, err)
	}
	if svc == nil {
		return fmt.Errorf("create service %s: factory returned nil", h.ID)
	}

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service %s: %w", h.ID, err)
	}

	if err := r.register(h.ID, svc); err != nil {
		return multierr.Append(err, svc.Stop(ctx))
	}
	return nil
}

// Register registers an already running service under its own ID.
func (r *Registry) Register(svc Service) error {
	return r.register(svc.ID(), svc)
}

func (r *Registry) register(id string, svc Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[id]; exists {
		return fmt.Errorf("%s: %w", id, ErrAlreadyRegistered)
	}

	r.services[id] = svc
	r.order = append(r.order, id)
	r.logger.WithField("service", id).Debug("service registered")
	return nil
}

// Get returns a service by ID.
func (r *Registry) Get(id string) (Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	svc, ok := r.services[id]
	return svc, ok
}

// List returns all registered services in start order.
func (r *Registry) List() []Service {
	r.mu.RLock()
	defer r.mu.RUnlock()

	services := make([]Service, 0, len(r.order))
	for _, id := range r.order {
		services = append(services, r.services[id])
	}
	return services
}

// StopAll stops all registered services in reverse start order. Every
// service is asked to stop even if an earlier one fails.
func (r *Registry) StopAll(ctx context.Context) error {
	services := r.List()

	var err error
	for i := len(services) - 1; i >= 0; i-- {
		if stopErr := services[i].Stop(ctx); stopErr != nil {
			err = multierr.Append(err, fmt.Errorf("stop service %s: %w", services[i].ID(), stopErr))
		}
	}
	return err
}
