// Package config loads process settings from PMSAP_* environment variables.
package config

import (
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Prefix of every environment variable read by Load.
const Prefix = "PMSAP"

type Config struct {
	Addr      string `default:":8080"`
	DBPath    string `default:"data/pmsap.db" envconfig:"DB_PATH"`
	LogLevel  string `default:"info" split_words:"true"`
	LogFormat string `default:"json" split_words:"true"`

	SAPBaseURL  string        `required:"true" envconfig:"SAP_BASE_URL"`
	SAPAPIKey   string        `envconfig:"SAP_API_KEY"`
	SAPUsername string        `envconfig:"SAP_USERNAME"`
	SAPPassword string        `envconfig:"SAP_PASSWORD"`
	SAPTimeout  time.Duration `default:"20s" envconfig:"SAP_TIMEOUT"`

	CronSecret      string        `split_words:"true"`
	FetchCooldown   time.Duration `default:"5m" split_words:"true"`
	SyncConcurrency int           `default:"4" split_words:"true"`
	StaleAfter      time.Duration `default:"24h" split_words:"true"`
}

// Load reads the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return cfg, errors.Wrap(err, "load config")
	}
	return cfg, cfg.Validate()
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var err error
	if u, perr := url.Parse(c.SAPBaseURL); perr != nil || u.Scheme == "" || u.Host == "" {
		err = multierr.Append(err, errors.Errorf("SAP_BASE_URL %q is not an absolute URL", c.SAPBaseURL))
	}
	if c.SAPTimeout <= 0 {
		err = multierr.Append(err, errors.New("SAP_TIMEOUT must be positive"))
	}
	if c.FetchCooldown <= 0 {
		err = multierr.Append(err, errors.New("FETCH_COOLDOWN must be positive"))
	}
	if c.SyncConcurrency <= 0 {
		err = multierr.Append(err, errors.New("SYNC_CONCURRENCY must be positive"))
	}
	if c.StaleAfter <= 0 {
		err = multierr.Append(err, errors.New("STALE_AFTER must be positive"))
	}
	if c.SAPUsername != "" && c.SAPPassword == "" {
		err = multierr.Append(err, errors.New("SAP_PASSWORD is required with SAP_USERNAME"))
	}
	return err
}
