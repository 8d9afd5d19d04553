package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestFromEnvDefaults(t *testing.T) {
	s, err := FromEnv(env(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
	assert.Equal(t, 2025, s.ReferenceYear)
	assert.Equal(t, time.UTC, s.Location())
}

func TestFromEnvOverrides(t *testing.T) {
	s, err := FromEnv(env(map[string]string{
		"RM_PORT":           "9090",
		"RM_REFERENCE_YEAR": "2030",
		"RM_SESSION_TTL":    "45m",
		"RM_SWEEP_SCHEDULE": "*/5 * * * *",
		"RM_TIMEZONE":       "Asia/Kolkata",
		"RM_LOG_DIR":        "/var/log/periodmap",
		"RM_DEV":            "true",
	}))
	require.NoError(t, err)
	assert.Equal(t, 9090, s.Port)
	assert.Equal(t, 2030, s.ReferenceYear)
	assert.Equal(t, 45*time.Minute, s.SessionTTL)
	assert.Equal(t, "*/5 * * * *", s.SweepSchedule)
	assert.Equal(t, "/var/log/periodmap", s.LogFolder)
	assert.True(t, s.DevMode)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	for key, value := range map[string]string{
		"RM_PORT":           "eighty",
		"RM_REFERENCE_YEAR": "2k25",
		"RM_SESSION_TTL":    "forever",
		"RM_DEV":            "maybe",
	} {
		_, err := FromEnv(env(map[string]string{key: value}))
		assert.ErrorContains(t, err, key)
	}

	_, err := FromEnv(env(map[string]string{"RM_PORT": "70000"}))
	assert.Error(t, err)
	_, err = FromEnv(env(map[string]string{"RM_SESSION_TTL": "-1m"}))
	assert.Error(t, err)
}

func TestLoadReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("RM_REFERENCE_YEAR=2031\n"), 0o644))
	t.Setenv("RM_REFERENCE_YEAR", "")
	os.Unsetenv("RM_REFERENCE_YEAR")

	s, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 2031, s.ReferenceYear)
}
