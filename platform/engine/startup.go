package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/R3E-Network/extension_server/internal/logging"
)

// Status is the startup result of one configured service.
type Status string

const (
	StatusStarted             Status = "started"
	StatusSkippedNoFeature    Status = "skipped_no_feature"
	StatusSkippedCoreOnlyMode Status = "skipped_core_only"
	StatusFailed              Status = "failed"

	// StatusEligible is only returned by Evaluate; it never appears in an Outcome.
	StatusEligible Status = "eligible"
)

// Outcome is the result for one configured service identifier.
type Outcome struct {
	ServiceID string        `json:"service_id"`
	Status    Status        `json:"status"`
	Err       error         `json:"-"`
	Duration  time.Duration `json:"duration"`
}

// Report summarizes one boot run.
type Report struct {
	BootID    string        `json:"boot_id"`
	Mode      BootMode      `json:"mode"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Outcomes  []Outcome     `json:"outcomes"`
}

// Count returns how many outcomes have status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Failed returns the failed outcomes in boot order.
func (r *Report) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

// Err combines every per-service failure, or returns nil.
func (r *Report) Err() error {
	var err error
	for _, o := range r.Failed() {
		err = multierr.Append(err, o.Err)
	}
	return err
}

// StartServices resolves, evaluates and starts each identifier in order.
// It always returns exactly one outcome per identifier; a failure for one
// identifier never stops the loop.
func (e *Engine) StartServices(ctx context.Context, ids []string, mode BootMode) []Outcome {
	return e.startServices(ctx, e.log, ids, mode)
}

func (e *Engine) startServices(ctx context.Context, log *logging.Logger, ids []string, mode BootMode) []Outcome {
	outcomes := make([]Outcome, 0, len(ids))
	for _, id := range ids {
		outcome := e.startOne(ctx, log.With(logrus.Fields{"service": id}), id, mode)
		e.metrics.RecordServiceOutcome(id, string(outcome.Status), outcome.Duration)
		outcomes = append(outcomes, outcome)
	}

	log.With(logrus.Fields{
		"event":    EventServicesCompleted,
		"services": len(ids),
	}).Info("extension services started")
	return outcomes
}

// startOne is the per-service fault boundary: errors and panics from any
// step are turned into a Failed outcome.
func (e *Engine) startOne(ctx context.Context, log *logging.Logger, id string, mode BootMode) (outcome Outcome) {
	start := time.Now()
	outcome = Outcome{ServiceID: id}

	defer func() {
		if r := recover(); r != nil {
			outcome.Status = StatusFailed
			outcome.Err = &StartupError{ServiceID: id, Err: fmt.Errorf("%v", r), Panicked: true}
		}
		outcome.Duration = time.Since(start)
		if outcome.Status == StatusFailed {
			log.With(logrus.Fields{"event": EventServiceFailed, "outcome": StatusFailed}).Alert("BOOT FAILURE starting "+id, outcome.Err)
		}
	}()

	log.WithField("event", EventServiceAttempt).Info("attempting to start service")

	desc, err := e.deps.Resolver.Resolve(id)
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Err = err
		return outcome
	}

	switch status := Evaluate(desc, mode, e.deps.Features.HasFeature); status {
	case StatusSkippedNoFeature:
		outcome.Status = status
		log.WithFields(logrus.Fields{"event": EventServiceSkipped, "outcome": status, "feature": desc.RequiredFeature}).
			Info("not starting service due to feature not declared on device")
		return outcome
	case StatusSkippedCoreOnlyMode:
		outcome.Status = status
		log.WithFields(logrus.Fields{"event": EventServiceSkipped, "outcome": status}).Debug("not starting service - only parsing core apps")
		return outcome
	}

	log.Info("starting service")
	if err := e.deps.Registry.StartService(ctx, desc.Handle); err != nil {
		outcome.Status = StatusFailed
		outcome.Err = &StartupError{ServiceID: id, Err: err}
		return outcome
	}

	outcome.Status = StatusStarted
	log.WithFields(logrus.Fields{"event": EventServiceStarted, "outcome": StatusStarted}).Info("service started")
	return outcome
}
