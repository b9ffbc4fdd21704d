// Package config loads podium settings from PODIUM_* environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every setting the presentation controller reads at startup.
type Config struct {
	// ImagesDir holds the slide images 1.jpg..N.jpg.
	ImagesDir string `env:"PODIUM_IMAGES_DIR" envDefault:"images"`
	// Reference is the presenter's reference photo.
	Reference string `env:"PODIUM_REFERENCE" envDefault:"reference.jpg"`
	Presenter string `env:"PODIUM_PRESENTER" envDefault:"Presenter"`

	Slides       int   `env:"PODIUM_SLIDES" envDefault:"9"`
	AuthAttempts int   `env:"PODIUM_AUTH_ATTEMPTS" envDefault:"10"`
	Cameras      []int `env:"PODIUM_CAMERAS" envDefault:"0,1,2" envSeparator:","`
	FPS          int   `env:"PODIUM_FPS" envDefault:"15"`

	VoiceRate  int  `env:"PODIUM_VOICE_RATE" envDefault:"120"`
	VoiceQueue int  `env:"PODIUM_VOICE_QUEUE" envDefault:"4"`
	Mute       bool `env:"PODIUM_MUTE"`

	HandScript    string        `env:"PODIUM_HAND_SCRIPT"`
	FaceScript    string        `env:"PODIUM_FACE_SCRIPT"`
	EmotionScript string        `env:"PODIUM_EMOTION_SCRIPT"`
	HandTimeout   time.Duration `env:"PODIUM_HAND_TIMEOUT" envDefault:"5s"`

	// PluginDir enables gesture key forwarding when it holds a keyboard plugin.
	PluginDir     string `env:"PODIUM_PLUGIN_DIR" envDefault:"plugins"`
	PluginTimeout int    `env:"PODIUM_PLUGIN_TIMEOUT_MS" envDefault:"5000"`

	// StatusAddr starts the status server when set, e.g. "127.0.0.1:8420".
	StatusAddr string `env:"PODIUM_STATUS_ADDR"`
	Tray       bool   `env:"PODIUM_TRAY"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the session cannot run with.
func (c Config) Validate() error {
	if c.ImagesDir == "" {
		return fmt.Errorf("PODIUM_IMAGES_DIR must not be empty")
	}
	if c.Reference == "" {
		return fmt.Errorf("PODIUM_REFERENCE must not be empty")
	}
	if c.Slides < 1 {
		return fmt.Errorf("PODIUM_SLIDES must be at least 1, got %d", c.Slides)
	}
	if c.AuthAttempts < 1 {
		return fmt.Errorf("PODIUM_AUTH_ATTEMPTS must be at least 1, got %d", c.AuthAttempts)
	}
	if len(c.Cameras) == 0 {
		return fmt.Errorf("PODIUM_CAMERAS must list at least one device")
	}
	if c.FPS < 1 {
		return fmt.Errorf("PODIUM_FPS must be at least 1, got %d", c.FPS)
	}
	return nil
}
