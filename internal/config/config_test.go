package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusreserve/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, 48*time.Hour, cfg.Rules.MinimumLeadTime)
	assert.Equal(t, domain.Clock("08:30"), cfg.Rules.OpeningTime)
	assert.Equal(t, domain.Clock("21:00"), cfg.Rules.ClosingTime)
	assert.Equal(t, time.Hour, cfg.Rules.MinDuration)
	assert.Zero(t, cfg.Rules.MaxDuration)
	assert.True(t, cfg.Rules.BufferEnabled)
	assert.Equal(t, []domain.ReservationState{domain.StateApproved}, cfg.Rules.OkStatesForReporting)
	assert.Equal(t, 15*time.Minute, cfg.PresignExpiry())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CAMPUS_RULES_MINIMUMLEADTIME", "24h")
	t.Setenv("CAMPUS_RULES_MAXDURATION", "4h")
	t.Setenv("CAMPUS_RULES_OPENINGTIME", "07:00")
	t.Setenv("CAMPUS_APP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, cfg.Rules.MinimumLeadTime)
	assert.Equal(t, 4*time.Hour, cfg.Rules.MaxDuration)
	assert.Equal(t, domain.Clock("07:00"), cfg.Rules.OpeningTime)
	assert.Equal(t, 9090, cfg.App.Port)
}

func TestLoad_RejectsDefaultSecretInProd(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CAMPUS_APP_ENV", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt.secret")
}

func TestRulesValidate(t *testing.T) {
	r := DefaultRules()
	require.NoError(t, r.Validate())

	bad := r
	bad.OpeningTime, bad.ClosingTime = "21:00", "08:30"
	assert.Error(t, bad.Validate())

	bad = r
	bad.MaxDuration = 30 * time.Minute
	assert.Error(t, bad.Validate())

	bad = r
	bad.OkStatesForReporting = []domain.ReservationState{"DONE"}
	assert.Error(t, bad.Validate())

	bad = r
	bad.ClosingTime = "9pm"
	assert.Error(t, bad.Validate())
}
