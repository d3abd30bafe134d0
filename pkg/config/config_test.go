package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 3, cfg.Loans.MaxActivePerStudent)
	assert.Equal(t, 14, cfg.Loans.PeriodDays)
	assert.Equal(t, 2, cfg.Sanctions.GraceDays)
	assert.Equal(t, "overdue loan", cfg.Sanctions.OverdueReason)
	assert.Equal(t, time.Hour, cfg.Sanctions.SweepInterval)
	assert.Equal(t, 9, cfg.Students.SemesterCap)
	assert.Equal(t, 5*time.Minute, cfg.Reports.CacheTTL)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("MAX_ACTIVE_LOANS", "5")
	t.Setenv("SANCTION_GRACE_DAYS", "-4")
	t.Setenv("SANCTION_SWEEP_INTERVAL", "15m")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Loans.MaxActivePerStudent)
	assert.Equal(t, 0, cfg.Sanctions.GraceDays)
	assert.Equal(t, 15*time.Minute, cfg.Sanctions.SweepInterval)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}
