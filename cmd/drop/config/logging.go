package config

import (
	"os"

	"github.com/pkg/errors"

	"github.com/drophost/drop/internal/logger"
)

// loggingConf holds all logging-related configuration under the `logging` key.
type loggingConf struct {
	logger.Conf `yaml:",inline"`
}

func (c *loggingConf) validate() error {
	if c.Dir != "" {
		if info, err := os.Stat(c.Dir); err != nil || !info.IsDir() {
			return errors.Errorf("logging directory '%s' does not exist", c.Dir)
		}
	}
	return nil
}

var defaultLoggingConf = loggingConf{
	Conf: logger.Conf{
		Level:  "INFO",
		StdErr: true,
	},
}
