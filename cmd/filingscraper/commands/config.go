package commands

import (
	"filingscraper/internal/filing"
	"filingscraper/internal/scrapers/portal"
	"filingscraper/lib/configutil"
	"fmt"
	"log/slog"
)

type BrowserConfig struct {
	// Headless defaults to true unless --debug is given.
	Headless  *bool  `json:"headless"`
	ExecPath  string `json:"exec_path"`
	UserAgent string `json:"user_agent"`
}

// Config is read from filingscraper.json5, every field is optional. Since
// zero values do not override the defaults, a grid column is dropped by
// setting it to -1.
type Config struct {
	PortalURL      string                `json:"portal_url"`
	Preflight      *bool                 `json:"preflight"`
	FormTypePolicy filing.FormTypePolicy `json:"form_type_policy"`
	MaxPages       int                   `json:"max_pages"`
	Browser        BrowserConfig         `json:"browser"`
	Layout         portal.Layout         `json:"layout"`
	Timing         portal.Timing         `json:"timing"`
}

func defaultConfig() Config {
	return Config{
		FormTypePolicy: filing.FormTypeVerbatim,
		Browser: BrowserConfig{
			UserAgent: portal.UserAgent,
		},
		Layout: portal.DefaultLayout(),
		Timing: portal.DefaultTiming(),
	}
}

func loadConfig(path string) (Config, error) {
	cfg, found, err := configutil.Load(path, defaultConfig())
	if err != nil {
		return Config{}, err
	}
	if !found {
		slog.Debug("no config file found, using defaults", "path", path)
	}

	switch cfg.FormTypePolicy {
	case filing.FormTypeVerbatim, filing.FormTypeCode:
	default:
		return Config{}, fmt.Errorf(
			"unknown form_type_policy '%s', expected '%s' or '%s'",
			cfg.FormTypePolicy, filing.FormTypeVerbatim, filing.FormTypeCode,
		)
	}
	if cfg.Timing.CredentialAttempts < 1 {
		return Config{}, fmt.Errorf("timing.credential_attempts must be at least 1")
	}
	return cfg, nil
}

func (c Config) preflightEnabled() bool {
	return c.Preflight == nil || *c.Preflight
}

func (c Config) headless(debug bool) bool {
	if c.Browser.Headless != nil {
		return *c.Browser.Headless
	}
	return !debug
}
