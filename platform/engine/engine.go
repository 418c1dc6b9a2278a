package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/R3E-Network/extension_server/internal/engine/metrics"
	"github.com/R3E-Network/extension_server/internal/logging"
)

// State represents the engine state.
type State string

const (
	StateCreated  State = "created"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateFailed   State = "failed"
)

// Config holds engine configuration.
type Config struct {
	// Services is the ordered list of extension service identifiers.
	Services []string

	// CompanionApp is exempted from power-save restrictions after boot.
	CompanionApp string

	// BackupUserID is the user whose backup service is activated before boot.
	BackupUserID int
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		CompanionApp: DefaultCompanionApp,
		BackupUserID: 0,
	}
}

// Dependencies are the host capabilities the engine consumes.
type Dependencies struct {
	Resolver     Resolver
	Registry     HostRegistry
	Features     FeatureQuery
	Properties   PropertyStore
	Backup       BackupManager
	AllowList    AllowList    // optional
	SystemConfig SystemConfig // optional

	Logger  *logging.Logger    // optional
	Metrics *metrics.Collector // optional
}

// Engine is the boot orchestrator.
type Engine struct {
	mu sync.RWMutex

	config  Config
	deps    Dependencies
	log     *logging.Logger
	metrics *metrics.Collector

	state  State
	report *Report

	onStateChange func(State)
}

// New creates a new Engine. Resolver, Registry, Features and Backup are
// required.
func New(cfg Config, deps Dependencies) (*Engine, error) {
	var missing []string
	if deps.Resolver == nil {
		missing = append(missing, "resolver")
	}
	if deps.Registry == nil {
		missing = append(missing, "registry")
	}
	if deps.Features == nil {
		missing = append(missing, "features")
	}
	if deps.Backup == nil {
		missing = append(missing, "backup")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingDependency, strings.Join(missing, ", "))
	}

	if cfg.CompanionApp == "" {
		cfg.CompanionApp = DefaultCompanionApp
	}
	cfg.Services = append([]string(nil), cfg.Services...)

	log := deps.Logger
	if log == nil {
		log = logging.NewDefault("engine")
	}

	e := &Engine{
		config:  cfg,
		deps:    deps,
		log:     log,
		metrics: deps.Metrics,
		state:   StateCreated,
	}
	e.log.WithField("event", EventEngineInit).Info("extension server initialized")
	return e, nil
}

// State returns the current engine state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// LastReport returns the report of the completed boot run, or nil.
func (e *Engine) LastReport() *Report {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.report
}

// OnStateChange sets a callback for state changes.
func (e *Engine) OnStateChange(fn func(State)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onStateChange = fn
}

// setState updates the engine state and notifies listeners.
func (e *Engine) setState(state State) {
	e.mu.Lock()
	e.state = state
	callback := e.onStateChange
	e.mu.Unlock()

	if callback != nil {
		callback(state)
	}
}

// Run performs the boot sequence once, synchronously. Per-service failures
// are contained in the report; only a failed backup activation aborts the
// run and is returned.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	e.mu.Lock()
	if e.state != StateCreated {
		e.mu.Unlock()
		return nil, ErrAlreadyRun
	}
	e.mu.Unlock()

	e.setState(StateStarting)

	report := &Report{
		BootID:    logging.NewBootID(),
		StartedAt: time.Now(),
	}
	log := e.log.WithBootID(report.BootID)

	err := e.run(ctx, log, report)
	report.Duration = time.Since(report.StartedAt)
	e.metrics.RecordBootRun(report.Duration, err)

	if err != nil {
		log.Error("******************************************")
		log.WithError(err).WithField("event", EventBootFailed).Error("failure starting extension services")
		e.setState(StateFailed)
		return nil, err
	}

	e.mu.Lock()
	e.report = report
	e.mu.Unlock()

	log.With(logrus.Fields{
		"event":    EventBootCompleted,
		"started":  report.Count(StatusStarted),
		"skipped":  report.Count(StatusSkippedNoFeature) + report.Count(StatusSkippedCoreOnlyMode),
		"failed":   report.Count(StatusFailed),
		"duration": report.Duration,
	}).Info("extension server boot completed")

	e.setState(StateRunning)
	return report, nil
}

func (e *Engine) run(ctx context.Context, log *logging.Logger, report *Report) error {
	log.WithField("event", EventBootStarting).Info("extension server starting services...")

	if err := e.deps.Backup.SetBackupServiceActive(ctx, e.config.BackupUserID, true); err != nil {
		return fmt.Errorf("%w: %w", ErrBackupActivation, err)
	}
	log.With(logrus.Fields{"event": EventBackupActivated, "user": e.config.BackupUserID}).Debug("backup service active")

	report.Mode = DetectBootMode(e.deps.Properties)
	e.metrics.RecordBootMode(report.Mode == BootModeCoreOnly)
	log.With(logrus.Fields{"event": EventBootMode, "boot_mode": report.Mode}).Info("boot mode detected")

	report.Outcomes = e.startServices(ctx, log, e.config.Services, report.Mode)

	e.logPowerSaveAllowList(log)

	NewCompanionConfigurator(e.deps.AllowList, log.Named("companion"), e.metrics).
		Configure(ctx, e.config.CompanionApp)
	return nil
}

func (e *Engine) logPowerSaveAllowList(log *logging.Logger) {
	var packages []string
	if e.deps.SystemConfig != nil {
		packages = e.deps.SystemConfig.AllowInPowerSave()
	}

	log = log.With(logrus.Fields{"event": EventPowerSaveAllowList})
	if len(packages) == 0 {
		log.Info("no power save enabled apps")
		return
	}
	log.Info("power save enabled apps:")
	for _, pkg := range packages {
		log.WithField("package", pkg).Info("power save enabled package")
	}
}
