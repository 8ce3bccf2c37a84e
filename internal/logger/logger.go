// Package logger configures the process-wide logrus logger.
package logger

import (
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// Conf holds logging configuration.
type Conf struct {
	// Level sets the verbosity (e.g. DEBUG, INFO, WARN, ERROR).
	Level string `yaml:"level"`
	// Dir, when set, appends logs to drop.log in that directory.
	Dir string `yaml:"dir"`
	// StdErr additionally (or, without Dir, exclusively) logs to stderr.
	StdErr bool `yaml:"stderr"`
}

// Init applies c to the global logrus logger. An unknown level falls back to
// INFO, a missing output falls back to stderr.
func Init(c Conf) error {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(
		&log.TextFormatter{
			FullTimestamp: true,
		},
	)

	var outputs []io.Writer
	if c.Dir != "" {
		f, err := os.OpenFile(
			filepath.Join(c.Dir, "drop.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640,
		)
		if err != nil {
			return err
		}
		outputs = append(outputs, f)
	}
	if c.StdErr || len(outputs) == 0 {
		outputs = append(outputs, os.Stderr)
	}
	log.SetOutput(io.MultiWriter(outputs...))
	return nil
}
