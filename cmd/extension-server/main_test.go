package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/extension_server/internal/config"
	"github.com/R3E-Network/extension_server/internal/host"
	"github.com/R3E-Network/extension_server/internal/logging"
	"github.com/R3E-Network/extension_server/platform/engine"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"EXT_SERVER_CONFIG", "EXT_SERVER_LOG_LEVEL", "EXT_SERVER_LOG_FORMAT",
		"EXT_SERVER_METRICS_ADDR", "EXT_SERVER_REDIS_ADDR",
	} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, backupDir string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "extension_server.yaml")
	content := fmt.Sprintf(`
services: [devicepolicy, telemetry]
companion_app: com.example.companion
backup_dir: %q
features: [ariel.software.devicepolicy]
allow_in_power_save: [com.example.dialer]
log:
  level: debug
  format: json
`, backupDir)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"--config", "/etc/x.yaml", "--log-level", "debug", "--metrics-addr", ":1", "--once"})
	require.NoError(t, err)
	assert.Equal(t, options{
		configPath:  "/etc/x.yaml",
		envFile:     ".env",
		logLevel:    "debug",
		metricsAddr: ":1",
		once:        true,
	}, opts)

	_, err = parseFlags([]string{"extra"})
	assert.Error(t, err)

	_, err = parseFlags([]string{"--no-such-flag"})
	assert.Error(t, err)
}

func TestLoadConfig_DotenvAndOverrides(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("EXT_SERVER_METRICS_ADDR")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("EXT_SERVER_METRICS_ADDR=:7000\n"), 0o600))

	cfg, err := loadConfig(options{
		configPath: writeConfig(t, t.TempDir()),
		envFile:    envFile,
		logLevel:   "warn",
	})
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.MetricsAddr)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "com.example.companion", cfg.CompanionApp)
}

func TestLoadConfig_MissingEnvFileIgnored(t *testing.T) {
	clearEnv(t)

	cfg, err := loadConfig(options{
		configPath: filepath.Join(t.TempDir(), "missing.yaml"),
		envFile:    filepath.Join(t.TempDir(), "missing.env"),
	})
	require.NoError(t, err)
	assert.Equal(t, config.Default().Services, cfg.Services)
}

func TestRun_Once(t *testing.T) {
	clearEnv(t)
	backupDir := t.TempDir()
	var out bytes.Buffer

	err := run([]string{"--config", writeConfig(t, backupDir), "--env", "", "--once"}, &out)
	require.NoError(t, err)

	active, err := host.NewFileBackup(backupDir).IsBackupServiceActive(0)
	require.NoError(t, err)
	assert.True(t, active)

	logs := out.String()
	assert.Contains(t, logs, "extension server boot completed")
	assert.Contains(t, logs, `"service":"telemetry"`)
	assert.Contains(t, logs, string(engine.StatusSkippedNoFeature))
	assert.Contains(t, logs, "com.example.dialer")
}

func TestRun_BlankServiceContained(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "extension_server.yaml")
	content := fmt.Sprintf(`
services: [devicepolicy, "", telemetry]
companion_app: com.example.companion
backup_dir: %q
features: [ariel.software.devicepolicy, ariel.software.telemetry]
log:
  level: debug
  format: json
`, t.TempDir())
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	var out bytes.Buffer

	err := run([]string{"--config", path, "--env", "", "--once"}, &out)
	require.NoError(t, err)

	logs := out.String()
	assert.Equal(t, 3, strings.Count(logs, "attempting to start service"))
	assert.Equal(t, 1, strings.Count(logs, "BOOT FAILURE starting"))
	assert.Equal(t, 2, strings.Count(logs, `"event":"service.started"`))
	assert.Contains(t, logs, "extension server boot completed")
}

func TestRun_BackupFailure(t *testing.T) {
	clearEnv(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	var out bytes.Buffer

	err := run([]string{"--config", writeConfig(t, filepath.Join(blocker, "backup")), "--env", "", "--once"}, &out)
	assert.ErrorIs(t, err, engine.ErrBackupActivation)
}

func TestBuildDependencies(t *testing.T) {
	cfg := config.Default()
	cfg.BackupDir = t.TempDir()
	cfg.AllowInPowerSave = []string{"com.example.dialer"}

	deps, closeDeps, err := buildDependencies(cfg, logging.NewNop(), nil)
	require.NoError(t, err)
	defer closeDeps()

	exempt, err := deps.engine.AllowList.IsExempt(context.Background(), "com.example.dialer")
	require.NoError(t, err)
	assert.True(t, exempt)
	assert.True(t, deps.engine.Features.HasFeature("ariel.software.devicepolicy"))
	assert.Equal(t, []string{"com.example.dialer"}, deps.engine.SystemConfig.AllowInPowerSave())

	cfg.PowerAllowList = config.PowerAllowList{Backend: config.AllowListRedis, RedisAddr: "127.0.0.1:1"}
	deps, closeRedis, err := buildDependencies(cfg, logging.NewNop(), nil)
	require.NoError(t, err)
	closeRedis()
	assert.IsType(t, &host.RedisAllowList{}, deps.engine.AllowList)

	cfg.PowerAllowList.Backend = "etcd"
	_, _, err = buildDependencies(cfg, logging.NewNop(), nil)
	assert.Error(t, err)
}
