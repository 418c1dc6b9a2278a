package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/extension_server/internal/engine/metrics"
	"github.com/R3E-Network/extension_server/pkg/testutil"
	"github.com/R3E-Network/extension_server/services/base"
)

func TestNew_MissingDependencies(t *testing.T) {
	_, err := New(DefaultConfig(), Dependencies{})

	require.ErrorIs(t, err, ErrMissingDependency)
	for _, name := range []string{"resolver", "registry", "features", "backup"} {
		assert.Contains(t, err.Error(), name)
	}
}

func TestNew_DefaultsCompanionApp(t *testing.T) {
	f := newFixture()
	e, _ := f.engine(t, Config{})

	assert.Equal(t, DefaultCompanionApp, e.config.CompanionApp)
	assert.Equal(t, StateCreated, e.State())
	assert.Nil(t, e.LastReport())
}

func TestNew_CopiesServiceList(t *testing.T) {
	f := newFixture()
	services := []string{"a", "b"}
	e, _ := f.engine(t, Config{Services: services})

	services[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, e.config.Services)
}

func TestRun_FullBoot(t *testing.T) {
	f := newFixture(
		testService{"A", "feature.a", true},
		testService{"B", "feature.b", false},
		testService{"C", "feature.c", false},
	).withFeatures("feature.a", "feature.c")
	f.sysCfg = testutil.MockSystemConfig{Packages: []string{"com.example.one", "com.example.two"}}
	e, hook := f.engine(t, Config{Services: []string{"A", "B", "C"}, CompanionApp: companion, BackupUserID: 0})

	report, err := e.Run(context.Background())

	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, BootModeNormal, report.Mode)
	assert.NotEmpty(t, report.BootID)
	assert.Equal(t, []Status{StatusStarted, StatusSkippedNoFeature, StatusStarted}, statuses(report.Outcomes))
	assert.NoError(t, report.Err())
	assert.Same(t, report, e.LastReport())
	assert.Equal(t, StateRunning, e.State())

	assert.Equal(t, []testutil.BackupCall{{UserID: 0, Active: true}}, f.backup.Calls())
	assert.Equal(t, []string{companion}, f.allow.Adds())

	// one header line plus one line per package
	assert.Len(t, entriesFor(hook, EventPowerSaveAllowList), 3)
	for _, entry := range hook.AllEntries() {
		if entry.Data["event"] == EventEngineInit {
			continue
		}
		assert.Equal(t, report.BootID, entry.Data["boot_id"], entry.Message)
	}
}

func TestRun_BootModeReadOnce(t *testing.T) {
	f := newFixture(
		testService{"A", "f", true},
		testService{"B", "f", false},
		testService{"C", "f", true},
	).withFeatures("f")
	f.props = testutil.NewMockProperties(map[string]string{DecryptStateProperty: "trigger_restart_min_framework"})
	e, _ := f.engine(t, Config{Services: []string{"A", "B", "C"}})

	report, err := e.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, f.props.Reads())
	assert.Equal(t, BootModeCoreOnly, report.Mode)
	assert.Equal(t, []Status{StatusStarted, StatusSkippedCoreOnlyMode, StatusStarted}, statuses(report.Outcomes))
}

func TestRun_BackupFailureIsFatal(t *testing.T) {
	f := newFixture(testService{"A", "f", true}).withFeatures("f")
	f.backup = testutil.NewMockBackup(errors.New("backup manager not running"))
	e, hook := f.engine(t, Config{Services: []string{"A"}})

	report, err := e.Run(context.Background())

	assert.Nil(t, report)
	require.ErrorIs(t, err, ErrBackupActivation)
	assert.Contains(t, err.Error(), "backup manager not running")
	assert.Equal(t, StateFailed, e.State())
	assert.Nil(t, e.LastReport())

	assert.Empty(t, f.registry.Calls())
	assert.Empty(t, f.allow.Adds())
	assert.Equal(t, 0, f.props.Reads())
	assert.Len(t, entriesFor(hook, EventBootFailed), 1)
}

func TestRun_OnlyOnce(t *testing.T) {
	f := newFixture()
	e, _ := f.engine(t, DefaultConfig())

	_, err := e.Run(context.Background())
	require.NoError(t, err)

	_, err = e.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRun)
	assert.Len(t, f.backup.Calls(), 1)
}

func TestRun_StateCallback(t *testing.T) {
	f := newFixture()
	e, _ := f.engine(t, DefaultConfig())

	var mu sync.Mutex
	var states []State
	e.OnStateChange(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	})

	_, err := e.Run(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateStarting, StateRunning}, states)
}

func TestRun_FailuresCollectedInReport(t *testing.T) {
	f := newFixture(
		testService{"A", "f", false},
		testService{"B", "f", false},
	).withFeatures("f")
	f.registry.FailOn("A", errors.New("A exploded"))
	e, _ := f.engine(t, Config{Services: []string{"A", "B"}})

	report, err := e.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateRunning, e.State())
	require.Len(t, report.Failed(), 1)
	assert.ErrorContains(t, report.Err(), "A exploded")
}

func TestRun_EmptyPowerSaveList(t *testing.T) {
	f := newFixture()
	e, hook := f.engine(t, DefaultConfig())

	_, err := e.Run(context.Background())
	require.NoError(t, err)

	entries := entriesFor(hook, EventPowerSaveAllowList)
	require.Len(t, entries, 1)
	assert.Equal(t, "no power save enabled apps", entries[0].Message)
}

func TestRun_CompanionProblemsNeverFailBoot(t *testing.T) {
	f := newFixture()
	f.allow.SetQueryError(errors.New("device idle controller missing"))
	e, _ := f.engine(t, DefaultConfig())

	report, err := e.Run(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, report)
	assert.Equal(t, StateRunning, e.State())
}

func TestRun_WithHostRegistryAndMetrics(t *testing.T) {
	f := newFixture(
		testService{"A", "f", true},
		testService{"B", "f", false},
	).withFeatures("f")
	log, _ := testutil.NewLogger()
	host := base.NewRegistry(log)
	m := metrics.NewCollector("")

	e, err := New(Config{Services: []string{"A", "B", "A"}}, Dependencies{
		Resolver:   f.resolver,
		Registry:   host,
		Features:   f.features,
		Properties: f.props,
		Backup:     f.backup,
		AllowList:  f.allow,
		Logger:     log,
		Metrics:    m,
	})
	require.NoError(t, err)

	report, err := e.Run(context.Background())
	require.NoError(t, err)

	// the duplicate is rejected by the host registry
	assert.Equal(t, []Status{StatusStarted, StatusStarted, StatusFailed}, statuses(report.Outcomes))
	assert.ErrorIs(t, report.Outcomes[2].Err, base.ErrAlreadyRegistered)
	require.Len(t, host.List(), 2)
	assert.Equal(t, "A", host.List()[0].ID())

	count, err := promtestutil.GatherAndCount(m.Registry(), "extension_server_service_outcomes_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	runs, err := promtestutil.GatherAndCount(m.Registry(), "extension_server_boot_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, runs)

	require.NoError(t, host.StopAll(context.Background()))
}
