// Package base provides base components for all extension services.
// Services embed BaseService and are started by the host Registry from a
// Handle produced by the plugin table.
package base

import (
	"context"
	"fmt"
	"sync"

	"github.com/R3E-Network/extension_server/internal/logging"
)

// ServiceState represents the state of a service.
type ServiceState string

const (
	StateCreated  ServiceState = "created"
	StateStarting ServiceState = "starting"
	StateRunning  ServiceState = "running"
	StateStopping ServiceState = "stopping"
	StateStopped  ServiceState = "stopped"
	StateFailed   ServiceState = "failed"
)

// Service is the base interface for all extension services.
type Service interface {
	ID() string
	Name() string

	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	State() ServiceState
}

// Factory creates a fresh service instance.
type Factory func() (Service, error)

// Handle is the opaque reference the host registry uses to instantiate and
// start a service.
type Handle struct {
	ID      string
	Factory Factory
}

// LifecycleHooks allows services to customize lifecycle behavior.
type LifecycleHooks struct {
	// OnStart runs before the service is marked running. An error fails the start.
	OnStart func(ctx context.Context) error
	// OnStop runs before the service is marked stopped. Errors are logged only.
	OnStop func(ctx context.Context) error
}

// BaseService provides common functionality for all services.
type BaseService struct {
	mu sync.RWMutex

	id    string
	name  string
	state ServiceState

	logger *logging.Logger
	hooks  LifecycleHooks
}

// NewBaseService creates a new BaseService. A nil logger is replaced with
// the default one.
func NewBaseService(id, name string, logger *logging.Logger) *BaseService {
	if logger == nil {
		logger = logging.NewDefault(id)
	}
	return &BaseService{
		id:     id,
		name:   name,
		state:  StateCreated,
		logger: logger,
	}
}

// SetHooks sets lifecycle hooks.
func (s *BaseService) SetHooks(hooks LifecycleHooks) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = hooks
}

func (s *BaseService) ID() string   { return s.id }
func (s *BaseService) Name() string { return s.name }

// Logger returns the service logger.
func (s *BaseService) Logger() *logging.Logger { return s.logger }

// State returns the current state.
func (s *BaseService) State() ServiceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetState updates the current state.
func (s *BaseService) SetState(state ServiceState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// Start runs the OnStart hook and marks the service running.
func (s *BaseService) Start(ctx context.Context) error {
	s.SetState(StateStarting)
	s.logger.WithField("id", s.id).Info("service starting")

	s.mu.RLock()
	hooks := s.hooks
	s.mu.RUnlock()

	if hooks.OnStart != nil {
		if err := hooks.OnStart(ctx); err != nil {
			s.SetState(StateFailed)
			return fmt.Errorf("start hook: %w", err)
		}
	}

	s.SetState(StateRunning)
	s.logger.WithField("id", s.id).Info("service started")
	return nil
}

// Stop runs the OnStop hook and marks the service stopped.
func (s *BaseService) Stop(ctx context.Context) error {
	s.SetState(StateStopping)

	s.mu.RLock()
	hooks := s.hooks
	s.mu.RUnlock()

	if hooks.OnStop != nil {
		if err := hooks.OnStop(ctx); err != nil {
			s.logger.WithError(err).Error("stop hook failed")
		}
	}

	s.SetState(StateStopped)
	s.logger.WithField("id", s.id).Info("service stopped")
	return nil
}

// Health reports an error unless the service is running.
func (s *BaseService) Health(context.Context) error {
	if state := s.State(); state != StateRunning {
		return fmt.Errorf("service %s not running: %s", s.id, state)
	}
	return nil
}
