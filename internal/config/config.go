package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/lowaak/form-coach/internal/engine"
)

// Config is the full application configuration, loadable from a YAML file
// with every field defaulted so the app runs with no file at all.
type Config struct {
	Source  SourceConfig  `mapstructure:"source"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Log     LogConfig     `mapstructure:"log"`
	Workout WorkoutConfig `mapstructure:"workout"`
}

// SourceConfig selects where pose frames come from. Exactly one of the
// three inputs is active: a scripted body, a replay file, or the UDP
// listener (the default).
type SourceConfig struct {
	Listen     string `mapstructure:"listen"`
	ReplayPath string `mapstructure:"replay_path"`
	ReplayFPS  int    `mapstructure:"replay_fps"`
	Scripted   bool   `mapstructure:"scripted"`
}

// EngineConfig tunes angle computation and per-exercise rep detection.
type EngineConfig struct {
	VisibilityThreshold float64                   `mapstructure:"visibility_threshold"`
	Exercises           map[string]ExerciseConfig `mapstructure:"exercises"`
}

// ExerciseConfig holds one exercise's phase thresholds.
type ExerciseConfig struct {
	DownEnterDeg   float64 `mapstructure:"down_enter_deg"`
	UpEnterDeg     float64 `mapstructure:"up_enter_deg"`
	DebounceFrames int     `mapstructure:"debounce_frames"`
}

// LogConfig controls the rotating application log.
type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// WorkoutConfig controls session output locations.
type WorkoutConfig struct {
	CSVPath     string `mapstructure:"csv_path"`
	HistoryPath string `mapstructure:"history_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.listen", ":7878")
	v.SetDefault("source.replay_fps", 30)
	v.SetDefault("source.scripted", false)

	v.SetDefault("engine.visibility_threshold", engine.DefaultVisibilityThreshold)
	for mode, th := range engine.DefaultThresholds() {
		info, _ := engine.GetExerciseInfo(mode)
		prefix := "engine.exercises." + info.ConfigKey
		v.SetDefault(prefix+".down_enter_deg", th.DownEnterDeg)
		v.SetDefault(prefix+".up_enter_deg", th.UpEnterDeg)
		v.SetDefault(prefix+".debounce_frames", th.DebounceFrames)
	}

	v.SetDefault("log.file", "form-coach.log")
	v.SetDefault("log.max_size_mb", 5)
	v.SetDefault("log.max_backups", 3)

	v.SetDefault("workout.csv_path", "workout_log.csv")
	v.SetDefault("workout.history_path", "form-coach.db")
}

// Load reads the configuration from path, or returns pure defaults when
// path is empty. Environment variables prefixed FORM_COACH_ override file
// values (FORM_COACH_SOURCE_LISTEN and so on).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FORM_COACH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Engine.VisibilityThreshold < 0 || c.Engine.VisibilityThreshold > 1 {
		return fmt.Errorf("engine.visibility_threshold must be in [0,1], got %v",
			c.Engine.VisibilityThreshold)
	}
	for key, ex := range c.Engine.Exercises {
		if _, ok := engine.GetExerciseByConfigKey(key); !ok {
			return fmt.Errorf("engine.exercises.%s: unknown exercise", key)
		}
		th := engine.Thresholds{
			DownEnterDeg:   ex.DownEnterDeg,
			UpEnterDeg:     ex.UpEnterDeg,
			DebounceFrames: ex.DebounceFrames,
		}
		if err := th.Validate(); err != nil {
			return fmt.Errorf("engine.exercises.%s: %w", key, err)
		}
	}
	if c.Source.ReplayFPS <= 0 {
		return fmt.Errorf("source.replay_fps must be positive, got %d", c.Source.ReplayFPS)
	}
	return nil
}

// Thresholds converts the per-exercise configuration into the detector's
// threshold map. Exercises missing from the config fall back to defaults.
func (c *Config) Thresholds() map[engine.Mode]engine.Thresholds {
	thresholds := engine.DefaultThresholds()
	for key, ex := range c.Engine.Exercises {
		mode, ok := engine.GetExerciseByConfigKey(key)
		if !ok {
			continue
		}
		thresholds[mode] = engine.Thresholds{
			DownEnterDeg:   ex.DownEnterDeg,
			UpEnterDeg:     ex.UpEnterDeg,
			DebounceFrames: ex.DebounceFrames,
		}
	}
	return thresholds
}
