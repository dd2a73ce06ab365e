package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/form-coach/internal/engine"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "form-coach.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":7878", cfg.Source.Listen)
	assert.Equal(t, 30, cfg.Source.ReplayFPS)
	assert.False(t, cfg.Source.Scripted)
	assert.InDelta(t, engine.DefaultVisibilityThreshold, cfg.Engine.VisibilityThreshold, 1e-9)
	assert.Equal(t, "form-coach.log", cfg.Log.File)
	assert.Equal(t, "workout_log.csv", cfg.Workout.CSVPath)
	assert.Equal(t, "form-coach.db", cfg.Workout.HistoryPath)

	thresholds := cfg.Thresholds()
	require.Len(t, thresholds, 3)
	assert.Equal(t, engine.DefaultThresholds(), thresholds)
}

func TestLoad_FileOverrides(t *testing.T) {
	path := writeConfig(t, `
source:
  listen: ":9000"
  scripted: true
engine:
  visibility_threshold: 0.6
  exercises:
    squat:
      down_enter_deg: 95
      up_enter_deg: 155
      debounce_frames: 2
log:
  file: /tmp/coach.log
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Source.Listen)
	assert.True(t, cfg.Source.Scripted)
	assert.InDelta(t, 0.6, cfg.Engine.VisibilityThreshold, 1e-9)
	assert.Equal(t, "/tmp/coach.log", cfg.Log.File)

	thresholds := cfg.Thresholds()
	assert.Equal(t, engine.Thresholds{
		DownEnterDeg:   95,
		UpEnterDeg:     155,
		DebounceFrames: 2,
	}, thresholds[engine.ModeSquat])
	// Exercises not mentioned keep their defaults.
	assert.Equal(t, engine.DefaultThresholds()[engine.ModePushUp], thresholds[engine.ModePushUp])
}

func TestLoad_RejectsInvertedThresholds(t *testing.T) {
	path := writeConfig(t, `
engine:
  exercises:
    squat:
      down_enter_deg: 170
      up_enter_deg: 90
      debounce_frames: 3
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownExercise(t *testing.T) {
	path := writeConfig(t, `
engine:
  exercises:
    burpee:
      down_enter_deg: 70
      up_enter_deg: 160
      debounce_frames: 3
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsBadVisibility(t *testing.T) {
	path := writeConfig(t, "engine:\n  visibility_threshold: 1.5\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
