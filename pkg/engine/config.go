package engine

import (
	"time"

	"github.com/teslashibe/go-gaze/pkg/blink"
	"github.com/teslashibe/go-gaze/pkg/gaze"
	"github.com/teslashibe/go-gaze/pkg/landmark"
	"github.com/teslashibe/go-gaze/pkg/reactive"
)

// DirectionColors are the ball colors for each non-center direction.
type DirectionColors struct {
	Left  reactive.RGB `json:"left" yaml:"left"`
	Right reactive.RGB `json:"right" yaml:"right"`
	Up    reactive.RGB `json:"up" yaml:"up"`
	Down  reactive.RGB `json:"down" yaml:"down"`
}

// Config holds every tunable of the gaze pipeline. It is a value: copies are
// independent and a session reads it once per tick.
type Config struct {
	// Normalizer
	Mode    string  `json:"mode" yaml:"mode"`       // "eye" or "frame"
	Gain    float64 `json:"gain" yaml:"gain"`       // offset multiplier (1.3-4.0 typical)
	Amplify float64 `json:"amplify" yaml:"amplify"` // extra multiplier in frame mode

	// Calibration
	CalibrationSeconds float64 `json:"calibration_seconds" yaml:"calibration_seconds"`

	// Smoothing
	SmoothingWindow int     `json:"smoothing_window" yaml:"smoothing_window"` // frames, >= 1
	DepthFalloff    float64 `json:"depth_falloff" yaml:"depth_falloff"`       // k in max(0, 1-k*|gaze|)

	// Blink
	BlinkThreshold      float64 `json:"blink_threshold" yaml:"blink_threshold"`
	BlinkCooldownFrames int     `json:"blink_cooldown_frames" yaml:"blink_cooldown_frames"`
	BlinkBoost          float64 `json:"blink_boost" yaml:"blink_boost"`

	// Trail and shockwaves
	SpeedThreshold    float64 `json:"speed_threshold" yaml:"speed_threshold"` // px per frame
	TrailMaxLength    int     `json:"trail_max_length" yaml:"trail_max_length"`
	ShockwavesEnabled bool    `json:"shockwaves_enabled" yaml:"shockwaves_enabled"`
	ShockwaveScale    float64 `json:"shockwave_scale" yaml:"shockwave_scale"`

	// Depth pop
	PopStrength float64 `json:"pop_strength" yaml:"pop_strength"`
	BlurBase    float64 `json:"blur_base" yaml:"blur_base"`

	// Color
	BallBaseColor   reactive.RGB    `json:"ball_base_color" yaml:"ball_base_color"`
	DirectionColors DirectionColors `json:"direction_colors" yaml:"direction_colors"`
	ColorLerpRate   float64         `json:"color_lerp_rate" yaml:"color_lerp_rate"`

	// Landmark index sets of the detector in use
	Regions landmark.Regions `json:"regions" yaml:"regions"`
}

// DefaultConfig returns the recommended configuration.
func DefaultConfig() Config {
	palette := reactive.DefaultPalette()
	return Config{
		Mode:    string(gaze.ModeEye),
		Gain:    3.5,
		Amplify: 1.0,

		CalibrationSeconds: gaze.DefaultWindow.Seconds(),

		SmoothingWindow: 4,
		DepthFalloff:    0.6,

		BlinkThreshold:      blink.DefaultThreshold,
		BlinkCooldownFrames: blink.DefaultCooldownFrames,
		BlinkBoost:          reactive.DefaultBoost,

		SpeedThreshold:    reactive.DefaultSpeedThreshold,
		TrailMaxLength:    reactive.DefaultTrailLength,
		ShockwavesEnabled: true,
		ShockwaveScale:    reactive.DefaultShockwaveScale,

		PopStrength: 35,
		BlurBase:    12,

		BallBaseColor: palette.Base,
		DirectionColors: DirectionColors{
			Left:  palette.Left,
			Right: palette.Right,
			Up:    palette.Up,
			Down:  palette.Down,
		},
		ColorLerpRate: reactive.DefaultLerpRate,

		Regions: landmark.DefaultRegions(),
	}
}

// CalmConfig returns a slower, smoother configuration.
func CalmConfig() Config {
	cfg := DefaultConfig()
	cfg.Gain = 2.0
	cfg.SmoothingWindow = 8
	cfg.BlinkBoost = 0.3
	cfg.TrailMaxLength = 10
	cfg.ShockwavesEnabled = false
	cfg.ColorLerpRate = 0.04
	return cfg
}

// LivelyConfig returns a fast, high-gain configuration.
func LivelyConfig() Config {
	cfg := DefaultConfig()
	cfg.Gain = 4.0
	cfg.SmoothingWindow = 2
	cfg.BlinkBoost = 0.9
	cfg.SpeedThreshold = 1.0
	cfg.PopStrength = 60
	cfg.ColorLerpRate = 0.15
	return cfg
}

// Preset returns a named configuration, or false.
func Preset(name string) (Config, bool) {
	switch name {
	case "default":
		return DefaultConfig(), true
	case "calm":
		return CalmConfig(), true
	case "lively":
		return LivelyConfig(), true
	}
	return Config{}, false
}

// PresetNames lists the names Preset accepts.
func PresetNames() []string { return []string{"calm", "default", "lively"} }

// Validate checks every field. Returns a list of problems, or nil if valid.
func (c *Config) Validate() []string {
	var problems []string

	if _, err := gaze.ParseMode(c.Mode); err != nil {
		problems = append(problems, "mode must be eye or frame")
	}
	if c.Gain <= 0 {
		problems = append(problems, "gain must be positive")
	}
	if c.Amplify <= 0 {
		problems = append(problems, "amplify must be positive")
	}
	if c.CalibrationSeconds <= 0 {
		problems = append(problems, "calibration_seconds must be positive")
	}
	if c.SmoothingWindow < 1 {
		problems = append(problems, "smoothing_window must be >= 1")
	}
	if c.DepthFalloff < 0 {
		problems = append(problems, "depth_falloff must be >= 0")
	}
	if c.BlinkThreshold <= 0 || c.BlinkThreshold >= 1 {
		problems = append(problems, "blink_threshold must be between 0 and 1 (exclusive)")
	}
	if c.BlinkCooldownFrames < 0 {
		problems = append(problems, "blink_cooldown_frames must be >= 0")
	}
	if c.BlinkBoost < 0 || c.BlinkBoost > 1 {
		problems = append(problems, "blink_boost must be between 0 and 1")
	}
	if c.SpeedThreshold < 0 {
		problems = append(problems, "speed_threshold must be >= 0")
	}
	if c.TrailMaxLength < 0 {
		problems = append(problems, "trail_max_length must be >= 0")
	}
	if c.ShockwaveScale <= 0 {
		problems = append(problems, "shockwave_scale must be positive")
	}
	if c.PopStrength < 0 {
		problems = append(problems, "pop_strength must be >= 0")
	}
	if c.BlurBase < 0 {
		problems = append(problems, "blur_base must be >= 0")
	}
	if c.ColorLerpRate <= 0 || c.ColorLerpRate > 1 {
		problems = append(problems, "color_lerp_rate must be in (0, 1]")
	}
	problems = append(problems, c.Regions.Validate()...)

	return problems
}

// Check wraps Validate into an error.
func (c *Config) Check() error {
	if problems := c.Validate(); len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}

// CalibrationWindow returns the calibration duration.
func (c Config) CalibrationWindow() time.Duration {
	return time.Duration(c.CalibrationSeconds * float64(time.Second))
}

// GazeMode returns the parsed normalizer mode.
func (c Config) GazeMode() gaze.Mode {
	m, _ := gaze.ParseMode(c.Mode)
	return m
}

// Palette returns the reactive palette.
func (c Config) Palette() reactive.Palette {
	return reactive.Palette{
		Base:  c.BallBaseColor,
		Left:  c.DirectionColors.Left,
		Right: c.DirectionColors.Right,
		Up:    c.DirectionColors.Up,
		Down:  c.DirectionColors.Down,
	}
}

// ReactiveParams returns the reactive machine tuning.
func (c Config) ReactiveParams() reactive.Params {
	return reactive.Params{
		Palette:           c.Palette(),
		LerpRate:          c.ColorLerpRate,
		BlinkBoost:        c.BlinkBoost,
		SpeedThreshold:    c.SpeedThreshold,
		TrailMaxLength:    c.TrailMaxLength,
		ShockwavesEnabled: c.ShockwavesEnabled,
		ShockwaveScale:    c.ShockwaveScale,
		PopStrength:       c.PopStrength,
		BlurBase:          c.BlurBase,
	}
}

// Clone returns a copy that shares no slices with c.
func (c Config) Clone() Config {
	out := c
	out.Regions = c.Regions.Clone()
	return out
}
