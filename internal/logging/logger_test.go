package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("test", Config{Level: "loud"})
	require.Error(t, err)
}

func TestNew_InvalidFormat(t *testing.T) {
	_, err := New("test", Config{Level: "info", Format: "xml"})
	require.Error(t, err)
}

func TestNew_JSONCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("engine", Config{Level: "debug", Format: "json", Output: &buf})
	require.NoError(t, err)

	logger.WithBootID("boot-1").Info("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "engine", line["component"])
	assert.Equal(t, "boot-1", line["boot_id"])
	assert.Equal(t, "hello", line["msg"])
}

func TestLogger_Alert(t *testing.T) {
	base, hook := test.NewNullLogger()
	logger := FromLogrus(base, "engine")

	logger.Alert("BOOT FAILURE starting x", errors.New("boom"))

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, logrus.WarnLevel, entries[0].Level)
	assert.Equal(t, logrus.ErrorLevel, entries[1].Level)
	assert.Equal(t, true, entries[1].Data["alert"])
	assert.EqualError(t, entries[1].Data[logrus.ErrorKey].(error), "boom")
}

func TestLogger_AlertSeparatorHasNoEvent(t *testing.T) {
	base, hook := test.NewNullLogger()
	logger := FromLogrus(base, "engine").With(logrus.Fields{"event": "service.failed", "service": "C"})

	logger.Alert("BOOT FAILURE starting C", errors.New("boom"))

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.NotContains(t, entries[0].Data, "event")
	assert.Equal(t, "C", entries[0].Data["service"])
	assert.Equal(t, "engine", entries[0].Data["component"])
	assert.Equal(t, "service.failed", entries[1].Data["event"])
}

func TestLogger_AlertFollowsLevel(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.ErrorLevel)

	FromLogrus(base, "engine").Alert("BOOT FAILURE starting x", errors.New("boom"))

	entries := hook.AllEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, logrus.ErrorLevel, entries[0].Level)
}

func TestLogger_Named(t *testing.T) {
	base, hook := test.NewNullLogger()
	FromLogrus(base, "engine").Named("companion").Info("x")

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "companion", hook.LastEntry().Data["component"])
}

func TestNewBootID_Unique(t *testing.T) {
	assert.NotEqual(t, NewBootID(), NewBootID())
}
