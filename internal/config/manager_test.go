package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewManager_NilSeed tests that a nil seed falls back to the balanced preset
func TestNewManager_NilSeed(t *testing.T) {
	manager, err := NewManager(nil)
	require.NoError(t, err)

	assert.Equal(t, PresetBalanced, manager.Current().Preset)
	assert.Equal(t, 1, manager.Version())
}

// TestNewManager_InvalidSeed tests that a broken seed configuration fails fast
func TestNewManager_InvalidSeed(t *testing.T) {
	cfg := BalancedConfig()
	cfg.Risk.MaxPortfolioValue = -1

	manager, err := NewManager(cfg)
	assert.Error(t, err)
	assert.Nil(t, manager)
}

// TestManagerApply_ValidUpdate tests that an accepted update swaps the config and bumps the version
func TestManagerApply_ValidUpdate(t *testing.T) {
	manager, err := NewManager(BalancedConfig())
	require.NoError(t, err)

	next := BalancedConfig()
	next.Thresholds.MaxDrawdownPercent = 10
	next.Risk.MaxSinglePositionSize = 8000

	require.NoError(t, manager.Apply(next))

	current := manager.Current()
	assert.Equal(t, 10.0, current.Thresholds.MaxDrawdownPercent)
	assert.Equal(t, 8000.0, current.Risk.MaxSinglePositionSize)
	assert.Equal(t, 2, manager.Version())
}

// TestManagerApply_RejectedUpdateKeepsCurrent tests that a rejected update leaves the config untouched
func TestManagerApply_RejectedUpdateKeepsCurrent(t *testing.T) {
	manager, err := NewManager(BalancedConfig())
	require.NoError(t, err)

	next := BalancedConfig()
	next.Risk.MaxRiskScore = 150

	assert.Error(t, manager.Apply(next))
	assert.Equal(t, 75.0, manager.Current().Risk.MaxRiskScore)
	assert.Equal(t, 1, manager.Version())
	assert.Empty(t, manager.History())
}

// TestManagerApply_HistoryRecordsFieldDiffs tests that each changed field lands in the audit log
func TestManagerApply_HistoryRecordsFieldDiffs(t *testing.T) {
	manager, err := NewManager(BalancedConfig())
	require.NoError(t, err)

	next := BalancedConfig()
	next.Thresholds.MinSuccessRate = 60
	next.MonitoringInterval = 45 * time.Second

	require.NoError(t, manager.Apply(next))

	history := manager.History()
	require.Len(t, history, 2)

	fields := []string{history[0].Field, history[1].Field}
	assert.Contains(t, fields, "thresholds.min_success_rate")
	assert.Contains(t, fields, "monitoring_interval")
	for _, change := range history {
		assert.False(t, change.Timestamp.IsZero())
	}
}

// TestManagerApplyPreset_PreservesDeploymentSettings tests that presets do not clobber
// exchange credentials, notification settings or collaborator URLs
func TestManagerApplyPreset_PreservesDeploymentSettings(t *testing.T) {
	seed := BalancedConfig()
	seed.Exchange.APIKey = "key"
	seed.Exchange.APISecret = "secret"
	seed.Notifications.TelegramToken = "token"
	seed.Services.ExecutionURL = "http://exec:9101"

	manager, err := NewManager(seed)
	require.NoError(t, err)

	require.NoError(t, manager.ApplyPreset(PresetConservative))

	current := manager.Current()
	assert.Equal(t, PresetConservative, current.Preset)
	assert.Equal(t, 5000.0, current.Risk.MaxSinglePositionSize)
	assert.Equal(t, "key", current.Exchange.APIKey)
	assert.Equal(t, "token", current.Notifications.TelegramToken)
	assert.Equal(t, "http://exec:9101", current.Services.ExecutionURL)
}

// TestManagerApplyPreset_UnknownName tests that an unknown preset name is rejected
func TestManagerApplyPreset_UnknownName(t *testing.T) {
	manager, err := NewManager(BalancedConfig())
	require.NoError(t, err)

	assert.Error(t, manager.ApplyPreset("yolo"))
	assert.Equal(t, PresetBalanced, manager.Current().Preset)
}

// TestPresetByName_AllPresetsValidate tests that every shipped preset passes validation
func TestPresetByName_AllPresetsValidate(t *testing.T) {
	for _, name := range []string{PresetConservative, PresetBalanced, PresetAggressive, PresetEmergency} {
		preset := PresetByName(name)
		require.NotNil(t, preset, name)
		assert.NoError(t, preset.Validate(), name)
		assert.Equal(t, name, preset.Preset)
	}
	assert.Nil(t, PresetByName("unknown"))
}

// TestValidate_RejectsInvertedLimits tests the single-position vs portfolio cross check
func TestValidate_RejectsInvertedLimits(t *testing.T) {
	cfg := BalancedConfig()
	cfg.Risk.MaxSinglePositionSize = 200000

	assert.Error(t, cfg.Validate())
}

// TestValidate_RejectsShortIntervals tests the lower bounds on the loop intervals
func TestValidate_RejectsShortIntervals(t *testing.T) {
	cfg := BalancedConfig()
	cfg.MonitoringInterval = 500 * time.Millisecond
	assert.Error(t, cfg.Validate())

	cfg = BalancedConfig()
	cfg.CoordinationTick = 50 * time.Millisecond
	assert.Error(t, cfg.Validate())
}
