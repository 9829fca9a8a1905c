// Package config provides configuration for the camera-sampler daemon.
// Settings come from built-in defaults, an optional YAML file, and
// command line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Built-in defaults.
const (
	DefaultStream  = "camera"
	DefaultMode    = "buffered"
	DefaultCronjob = "* * * * *"
	DefaultWorkDir = "."
)

// Settings aggregates all daemon configuration.
type Settings struct {
	// Stream is the ID, name, or URL of the video stream to sample.
	Stream string `yaml:"stream"`

	// Mode selects the capture strategy: "buffered", "drained", or "new".
	Mode string `yaml:"mode"`

	// Cronjob is the capture schedule as a standard 5-field cron expression.
	Cronjob string `yaml:"cronjob"`

	// UploadURL is the ingest endpoint samples are published to.
	// Empty disables uploading (samples are only saved locally).
	UploadURL string `yaml:"upload_url"`

	// HTTPAddr is the listen address for the status server, e.g. ":8080".
	// Empty disables the server.
	HTTPAddr string `yaml:"http_addr"`

	// WorkDir is where the current sample file is written before upload.
	WorkDir string `yaml:"work_dir"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level"`
}

// Default returns settings populated with built-in defaults and
// environment overrides.
func Default() Settings {
	return Settings{
		Stream:    Getenv("CAMERA_STREAM", DefaultStream),
		Mode:      Getenv("CAMERA_MODE", DefaultMode),
		Cronjob:   Getenv("CAMERA_CRONJOB", DefaultCronjob),
		UploadURL: Getenv("CAMERA_UPLOAD_URL", ""),
		HTTPAddr:  Getenv("CAMERA_HTTP_ADDR", ""),
		WorkDir:   Getenv("CAMERA_WORK_DIR", DefaultWorkDir),
		LogLevel:  Getenv("CAMERA_LOG_LEVEL", "info"),
	}
}

// Load reads a YAML file and overlays it on the default settings.
func Load(path string) (Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("unmarshal yaml: %w", err)
	}
	return s, nil
}

// Getenv returns the value of the environment variable key,
// or fallback if it is unset or empty.
func Getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
