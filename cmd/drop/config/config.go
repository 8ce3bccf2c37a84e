// Package config loads and validates the yaml configuration for the drop
// daemon and the dropctl cli.
package config

import (
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/drophost/drop"
)

type configValidator interface {
	validate() error
}

// Config holds the full configuration
type Config struct {
	Server  drop.ServerConf `yaml:"server"`
	Storage storageConf     `yaml:"storage"`
	Caching cachingConf     `yaml:"caching"`
	Logging loggingConf     `yaml:"logging"`
	IDs     idConf          `yaml:"ids"`
	Views   viewsConf       `yaml:"views"`
}

// idConf configures generated entry identifiers.
type idConf struct {
	// Length is the default length of generated ids; a value set through
	// the admin settings API takes precedence at runtime.
	Length int `yaml:"length"`
}

func (c *idConf) validate() error {
	if c.Length < 0 || c.Length > 32 {
		return errors.New("error in ids conf: length must be between 1 and 32")
	}
	return nil
}

// viewsConf configures the per-entry view counter.
type viewsConf struct {
	Disabled bool `yaml:"disabled"`
}

var conf *Config

// Get returns the loaded Config
func Get() *Config {
	return conf
}

var possibleConfigLocations = []string{
	"config.yaml",
	"/etc/drop/config.yaml",
}

// Load loads the configuration from the passed file, or from one of the
// default locations when file is empty. Errors are fatal.
func Load(file string) {
	conf = &Config{
		Server: drop.ServerConf{
			Port: 8000,
		},
		Storage: defaultStorageConf,
		Caching: defaultCachingConf,
		Logging: defaultLoggingConf,
		IDs:     idConf{Length: 6},
	}
	candidates := possibleConfigLocations
	if file != "" {
		candidates = []string{file}
	}
	var data []byte
	var err error
	for _, f := range candidates {
		data, err = os.ReadFile(f)
		if err == nil {
			break
		}
	}
	if data == nil {
		log.WithField("locations", candidates).Fatal("could not read any config file")
	}
	if err = yaml.Unmarshal(data, conf); err != nil {
		log.WithError(err).Fatal("could not parse config file")
	}
	if err = validate(conf); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
}

func validate(c *Config) error {
	for _, section := range []configValidator{
		&c.Storage,
		&c.Caching,
		&c.Logging,
		&c.IDs,
	} {
		if err := section.validate(); err != nil {
			return err
		}
	}
	return nil
}
