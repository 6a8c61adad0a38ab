// Package config loads PoseBeat settings from a config file and the
// environment using viper. Every key has a default, so running without a
// file is valid.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ayusman/posebeat/internal/game"
	"github.com/ayusman/posebeat/internal/gesture"
)

// EnvPrefix prefixes environment overrides, e.g. POSEBEAT_SERVER_ADDR.
const EnvPrefix = "POSEBEAT"

// Config is the full application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Data    DataConfig    `mapstructure:"data"`
	Camera  CameraConfig  `mapstructure:"camera"`
	Pose    PoseConfig    `mapstructure:"pose"`
	Gesture GestureConfig `mapstructure:"gesture"`
	Game    GameConfig    `mapstructure:"game"`
	Audio   AudioConfig   `mapstructure:"audio"`
	UI      UIConfig      `mapstructure:"ui"`
}

// ServerConfig configures the HTTP and websocket server.
type ServerConfig struct {
	Addr             string        `mapstructure:"addr"`
	StaticDir        string        `mapstructure:"static_dir"`
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`
	StreamInterval   time.Duration `mapstructure:"stream_interval"`
}

// DataConfig locates persistent state.
type DataConfig struct {
	// Dir holds the database. Empty means ~/.posebeat.
	Dir      string `mapstructure:"dir"`
	Database string `mapstructure:"database"`
}

// CameraConfig configures the native capture pipeline.
type CameraConfig struct {
	// Native enables the camera; otherwise poses arrive over the websocket.
	Native   bool `mapstructure:"native"`
	DeviceID int  `mapstructure:"device_id"`
	Width    int  `mapstructure:"width"`
	Height   int  `mapstructure:"height"`
	FPS      int  `mapstructure:"fps"`
	Mirror   bool `mapstructure:"mirror"`
}

// PoseConfig tunes the pose estimation subprocess.
type PoseConfig struct {
	MinDetectionConf float64 `mapstructure:"min_detection_conf"`
	MinTrackingConf  float64 `mapstructure:"min_tracking_conf"`
	ModelComplexity  int     `mapstructure:"model_complexity"`
}

// GestureConfig tunes calibration and the classifier. Times are in
// milliseconds to match pose frame timestamps.
type GestureConfig struct {
	CalibrationFrames int     `mapstructure:"calibration_frames"`
	WaveThreshold     float64 `mapstructure:"wave_threshold"`
	WaveTimeWindow    float64 `mapstructure:"wave_time_window"`
	JumpThreshold     float64 `mapstructure:"jump_threshold"`
	DebounceTime      float64 `mapstructure:"debounce_time"`
}

// GameConfig configures the engine and its loop.
type GameConfig struct {
	Difficulty      string        `mapstructure:"difficulty"`
	Countdown       int           `mapstructure:"countdown"`
	CountdownStep   time.Duration `mapstructure:"countdown_step"`
	HitCleanupDelay time.Duration `mapstructure:"hit_cleanup_delay"`
	TickInterval    time.Duration `mapstructure:"tick_interval"`
	// AutoStart begins a game as soon as the app is up.
	AutoStart bool `mapstructure:"auto_start"`
}

// AudioConfig configures feedback tones.
type AudioConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	Volume     float64 `mapstructure:"volume"`
	SampleRate int     `mapstructure:"sample_rate"`
}

// UIConfig selects the local front ends.
type UIConfig struct {
	Terminal bool `mapstructure:"terminal"`
	Tray     bool `mapstructure:"tray"`
}

// Default returns the built-in configuration.
func Default() Config {
	opts := gesture.DefaultOptions()
	return Config{
		Server: ServerConfig{
			Addr:             ":8080",
			SnapshotInterval: 33 * time.Millisecond,
			StreamInterval:   66 * time.Millisecond,
		},
		Data: DataConfig{
			Database: "posebeat.db",
		},
		Camera: CameraConfig{
			Width:  640,
			Height: 480,
			FPS:    30,
			Mirror: true,
		},
		Pose: PoseConfig{
			MinDetectionConf: 0.5,
			MinTrackingConf:  0.5,
			ModelComplexity:  1,
		},
		Gesture: GestureConfig{
			CalibrationFrames: 15,
			WaveThreshold:     opts.WaveThreshold,
			WaveTimeWindow:    opts.WaveTimeWindow,
			JumpThreshold:     opts.JumpThreshold,
			DebounceTime:      opts.DebounceTime,
		},
		Game: GameConfig{
			Difficulty:      string(game.Medium),
			Countdown:       3,
			CountdownStep:   time.Second,
			HitCleanupDelay: 300 * time.Millisecond,
			TickInterval:    16 * time.Millisecond,
		},
		Audio: AudioConfig{
			Enabled:    true,
			Volume:     0.3,
			SampleRate: 44100,
		},
	}
}

// setDefaults registers every key so environment overrides and partial
// files resolve against the built-in values.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.static_dir", d.Server.StaticDir)
	v.SetDefault("server.snapshot_interval", d.Server.SnapshotInterval)
	v.SetDefault("server.stream_interval", d.Server.StreamInterval)

	v.SetDefault("data.dir", d.Data.Dir)
	v.SetDefault("data.database", d.Data.Database)

	v.SetDefault("camera.native", d.Camera.Native)
	v.SetDefault("camera.device_id", d.Camera.DeviceID)
	v.SetDefault("camera.width", d.Camera.Width)
	v.SetDefault("camera.height", d.Camera.Height)
	v.SetDefault("camera.fps", d.Camera.FPS)
	v.SetDefault("camera.mirror", d.Camera.Mirror)

	v.SetDefault("pose.min_detection_conf", d.Pose.MinDetectionConf)
	v.SetDefault("pose.min_tracking_conf", d.Pose.MinTrackingConf)
	v.SetDefault("pose.model_complexity", d.Pose.ModelComplexity)

	v.SetDefault("gesture.calibration_frames", d.Gesture.CalibrationFrames)
	v.SetDefault("gesture.wave_threshold", d.Gesture.WaveThreshold)
	v.SetDefault("gesture.wave_time_window", d.Gesture.WaveTimeWindow)
	v.SetDefault("gesture.jump_threshold", d.Gesture.JumpThreshold)
	v.SetDefault("gesture.debounce_time", d.Gesture.DebounceTime)

	v.SetDefault("game.difficulty", d.Game.Difficulty)
	v.SetDefault("game.countdown", d.Game.Countdown)
	v.SetDefault("game.countdown_step", d.Game.CountdownStep)
	v.SetDefault("game.hit_cleanup_delay", d.Game.HitCleanupDelay)
	v.SetDefault("game.tick_interval", d.Game.TickInterval)
	v.SetDefault("game.auto_start", d.Game.AutoStart)

	v.SetDefault("audio.enabled", d.Audio.Enabled)
	v.SetDefault("audio.volume", d.Audio.Volume)
	v.SetDefault("audio.sample_rate", d.Audio.SampleRate)

	v.SetDefault("ui.terminal", d.UI.Terminal)
	v.SetDefault("ui.tray", d.UI.Tray)
}

// Load reads the configuration. An empty path reads only defaults and the
// environment. The file format follows the extension (yaml, json, toml).
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges that would otherwise fail deep inside a component.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Data.Database == "" {
		return errors.New("data.database is required")
	}
	if c.Camera.FPS <= 0 {
		return errors.New("camera.fps must be positive")
	}
	if c.Gesture.CalibrationFrames <= 0 {
		return errors.New("gesture.calibration_frames must be positive")
	}
	if err := c.GestureOptions().Validate(); err != nil {
		return fmt.Errorf("gesture: %w", err)
	}
	if _, err := game.ParseDifficulty(c.Game.Difficulty); err != nil {
		return fmt.Errorf("game.difficulty: %w", err)
	}
	if c.Game.Countdown < 0 {
		return errors.New("game.countdown must not be negative")
	}
	if c.Game.TickInterval <= 0 {
		return errors.New("game.tick_interval must be positive")
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		return errors.New("audio.volume must be between 0 and 1")
	}
	if c.Audio.SampleRate <= 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	return nil
}

// GestureOptions returns the classifier tuning.
func (c Config) GestureOptions() gesture.Options {
	return gesture.Options{
		WaveThreshold:  c.Gesture.WaveThreshold,
		WaveTimeWindow: c.Gesture.WaveTimeWindow,
		JumpThreshold:  c.Gesture.JumpThreshold,
		DebounceTime:   c.Gesture.DebounceTime,
	}
}

// Difficulty returns the configured starting difficulty. Validate has
// already rejected unknown names.
func (c Config) Difficulty() game.Difficulty {
	d, err := game.ParseDifficulty(c.Game.Difficulty)
	if err != nil {
		return game.Medium
	}
	return d
}

// DataDir returns the data directory, creating it if needed.
func (c Config) DataDir() (string, error) {
	dir := c.Data.Dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".posebeat")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dir, nil
}

// DatabasePath returns the sqlite file location.
func (c Config) DatabasePath() (string, error) {
	if filepath.IsAbs(c.Data.Database) {
		return c.Data.Database, nil
	}
	dir, err := c.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Data.Database), nil
}
