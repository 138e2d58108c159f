package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML config file shape. Everything is optional;
// unset fields keep whatever the environment produced. The file mainly
// exists for the feed source list, which is awkward as an env var once
// departments start adding monthly templates.
//
//	feed:
//	  csv_dir: /srv/exports/sheets
//	  sources:
//	    - journal-club-{month}
//	    - grand-rounds-{month}
//	scheduler:
//	  reconcile_cron: "0 2 * * *"
//	  operator_id: 7f3e...
type fileConfig struct {
	Feed struct {
		BaseURL string   `yaml:"base_url"`
		APIKey  string   `yaml:"api_key"`
		CSVDir  string   `yaml:"csv_dir"`
		Sources []string `yaml:"sources"`
	} `yaml:"feed"`

	Scheduler struct {
		ReconcileCron    string `yaml:"reconcile_cron"`
		SweepInterval    string `yaml:"sweep_interval"`
		SweepGracePeriod string `yaml:"sweep_grace_period"`
		RefreshInterval  string `yaml:"refresh_interval"`
		OperatorID       string `yaml:"operator_id"`
	} `yaml:"scheduler"`
}

// applyFile overlays values from a YAML file onto the config. Env vars
// already loaded take precedence, so only fields still at their zero
// or default values are considered per-field here: the file fills in,
// it never overrides an explicit env setting.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	if c.Feed.BaseURL == "" {
		c.Feed.BaseURL = fc.Feed.BaseURL
	}
	if c.Feed.APIKey == "" {
		c.Feed.APIKey = fc.Feed.APIKey
	}
	if c.Feed.CSVDir == "" {
		c.Feed.CSVDir = fc.Feed.CSVDir
	}
	if len(c.Feed.Sources) == 0 {
		c.Feed.Sources = fc.Feed.Sources
	}

	if os.Getenv("SCHEDULER_RECONCILE_CRON") == "" && fc.Scheduler.ReconcileCron != "" {
		c.Scheduler.ReconcileCron = fc.Scheduler.ReconcileCron
	}
	if c.Scheduler.OperatorID == "" {
		c.Scheduler.OperatorID = fc.Scheduler.OperatorID
	}
	if d, ok := parseFileDuration(fc.Scheduler.SweepInterval); ok && os.Getenv("SCHEDULER_SWEEP_INTERVAL") == "" {
		c.Scheduler.SweepInterval = d
	}
	if d, ok := parseFileDuration(fc.Scheduler.SweepGracePeriod); ok && os.Getenv("SCHEDULER_SWEEP_GRACE") == "" {
		c.Scheduler.SweepGracePeriod = d
	}
	if d, ok := parseFileDuration(fc.Scheduler.RefreshInterval); ok && os.Getenv("SCHEDULER_REFRESH_INTERVAL") == "" {
		c.Scheduler.RefreshInterval = d
	}

	return nil
}

func parseFileDuration(s string) (time.Duration, bool) {
	if s == "" {
		return 0, false
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, false
	}
	return d, true
}
