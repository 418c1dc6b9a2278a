package engine

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/R3E-Network/extension_server/internal/engine/metrics"
	"github.com/R3E-Network/extension_server/internal/logging"
)

// DefaultCompanionApp is the package kept out of battery optimizations.
const DefaultCompanionApp = "com.ariel.guardian"

// Companion step results, also used as metric labels.
const (
	CompanionAlreadyExempt = "already_exempt"
	CompanionExempted      = "exempted"
	CompanionFailed        = "failed"
	CompanionUnavailable   = "unavailable"
)

// CompanionConfigurator makes sure the companion app ignores battery
// optimizations. Configure never fails: every problem is logged as a
// warning.
type CompanionConfigurator struct {
	allow   AllowList
	log     *logging.Logger
	metrics *metrics.Collector
}

// NewCompanionConfigurator creates a configurator. allow may be nil when
// the power-management allow list is not available on this host.
func NewCompanionConfigurator(allow AllowList, log *logging.Logger, m *metrics.Collector) *CompanionConfigurator {
	if log == nil {
		log = logging.NewNop()
	}
	return &CompanionConfigurator{allow: allow, log: log, metrics: m}
}

// Configure exempts appID from power-save restrictions unless it already is.
// It returns the step result.
func (c *CompanionConfigurator) Configure(ctx context.Context, appID string) (result string) {
	log := c.log.With(logrus.Fields{"app": appID})

	defer func() {
		if r := recover(); r != nil {
			result = c.warn(log, &CompanionError{AppID: appID, Op: "configure", Err: fmt.Errorf("panic: %v", r)})
		}
		c.metrics.RecordCompanion(result)
	}()

	if c.allow == nil {
		log.WithField("event", EventCompanionFailed).Warn("power allow list unavailable")
		return CompanionUnavailable
	}

	exempt, err := c.allow.IsExempt(ctx, appID)
	if err != nil {
		return c.warn(log, &CompanionError{AppID: appID, Op: "query", Err: err})
	}
	if exempt {
		log.WithField("event", EventCompanionExempt).Info("companion app is already ignoring battery optimizations")
		return CompanionAlreadyExempt
	}

	if err := c.allow.AddExemption(ctx, appID); err != nil {
		return c.warn(log, &CompanionError{AppID: appID, Op: "add", Err: err})
	}

	log.WithField("event", EventCompanionExempted).Info("companion app is now ignoring battery optimizations")
	return CompanionExempted
}

func (c *CompanionConfigurator) warn(log *logging.Logger, err *CompanionError) string {
	log.WithError(err).WithField("event", EventCompanionFailed).Warn("unable to reach power allow list")
	return CompanionFailed
}
