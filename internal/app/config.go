package app

import (
	"errors"
	"fmt"
	"net/url"
	"slices"

	"github.com/vk/valuegraph/internal/resolver"
)

// Output formats understood by Run.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputDOT  = "dot"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPaths []string // hcl files or directories

	// View selects one view; empty builds every view.
	View string
	// CalcConfigs restricts the build to the named calculation configurations.
	CalcConfigs []string
	// DefaultProperties take precedence over the defaults of each calc config.
	DefaultProperties string
	// Strict makes Run fail when a requirement is left unsatisfied.
	Strict bool
	Output string
	// PublishURL, when set, is a socket.io endpoint receiving every build.
	PublishURL       string
	PublishNamespace string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int
}

func NewConfig(cfg Config) (*Config, error) {
	var errs []error
	if len(cfg.ConfigPaths) == 0 {
		errs = append(errs, errors.New("at least one configuration path is required"))
	}
	if cfg.Output == "" {
		cfg.Output = OutputText
	}
	if !slices.Contains([]string{OutputText, OutputJSON, OutputDOT}, cfg.Output) {
		errs = append(errs, fmt.Errorf("unknown output format %q, expected text, json or dot", cfg.Output))
	}
	if cfg.WorkerCount < 0 {
		errs = append(errs, fmt.Errorf("worker count must not be negative, got %d", cfg.WorkerCount))
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort))
	}
	if cfg.PublishURL != "" {
		if u, err := url.Parse(cfg.PublishURL); err != nil || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid publish URL %q", cfg.PublishURL))
		}
	}
	if _, err := resolver.ParsePropertyDefaults(cfg.DefaultProperties); err != nil {
		errs = append(errs, fmt.Errorf("invalid default properties: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &cfg, nil
}
