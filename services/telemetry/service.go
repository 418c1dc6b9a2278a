// Package telemetry provides the device telemetry extension service. It is
// not a core service, so it is skipped while the device is encrypted.
package telemetry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/R3E-Network/extension_server/internal/logging"
	"github.com/R3E-Network/extension_server/internal/plugin"
	"github.com/R3E-Network/extension_server/services/base"
)

const (
	ServiceID   = "telemetry"
	ServiceName = "Telemetry Service"
	Feature     = "ariel.software.telemetry"

	// DefaultInterval is the heartbeat period. The scheduler does not go
	// below one second.
	DefaultInterval = time.Minute
)

func init() {
	plugin.Register(ServiceID, plugin.ServiceInfo{
		Name:        ServiceName,
		Description: "Reports periodic device heartbeats",
		Feature:     Feature,
		Core:        false,
	}, func() (base.Service, error) {
		return New(nil, DefaultInterval), nil
	})
}

// Service emits a heartbeat every interval while running.
type Service struct {
	*base.BaseService

	interval time.Duration
	beats    atomic.Int64

	mu        sync.Mutex
	scheduler *cron.Cron
}

// New creates a telemetry service.
func New(log *logging.Logger, interval time.Duration) *Service {
	if log == nil {
		log = logging.NewDefault(ServiceID)
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Service{
		BaseService: base.NewBaseService(ServiceID, ServiceName, log),
		interval:    interval,
	}
	s.SetHooks(base.LifecycleHooks{
		OnStart: s.onStart,
		OnStop:  s.onStop,
	})
	return s
}

// Beats returns how many heartbeats were emitted.
func (s *Service) Beats() int64 {
	return s.beats.Load()
}

func (s *Service) onStart(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), s.beat); err != nil {
		return fmt.Errorf("schedule heartbeat: %w", err)
	}
	c.Start()
	s.scheduler = c
	return nil
}

func (s *Service) onStop(context.Context) error {
	s.mu.Lock()
	c := s.scheduler
	s.scheduler = nil
	s.mu.Unlock()

	if c == nil {
		return nil
	}
	<-c.Stop().Done()
	return nil
}

func (s *Service) beat() {
	n := s.beats.Add(1)
	s.Logger().WithField("beat", n).Debug("heartbeat")
}
