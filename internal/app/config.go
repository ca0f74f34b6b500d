package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ScenarioPath string // hcl scenario file
	// OutPath is where the YAML result goes: a file path, "-" for the app's
	// output writer, or empty to skip writing it.
	OutPath   string
	StreamURL string // socket.io server, empty disables streaming

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ScenarioPath == "" {
		return nil, errors.New("ScenarioPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
