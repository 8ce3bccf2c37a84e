package config

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/drophost/drop/internal/passwd"
	"github.com/drophost/drop/storage"
	"github.com/drophost/drop/storage/model"
)

type storageConf struct {
	Driver  storage.DriverType `yaml:"driver"`
	DataDir string             `yaml:"data_dir"`
	DSN     string             `yaml:"dsn"`
	storage.DSNConf
	Debug       bool          `yaml:"debug"`
	UsersHash   passwd.Params `yaml:"password_hashing"`
	HashWorkers int           `yaml:"hash_workers"`
}

func (c *storageConf) validate() error {
	switch c.Driver {
	case "", storage.DriverBadger, storage.DriverSQLite:
		if c.DataDir == "" {
			return errors.New("error in storage conf: data_dir must be specified")
		}
		return nil
	case storage.DriverMySQL, storage.DriverPostgres:
		var err error
		if c.DSN == "" {
			c.DSN, err = storage.DSN(c.Driver, c.DSNConf)
		}
		return err
	default:
		return errors.Errorf("error in storage conf: unsupported driver '%s'", c.Driver)
	}
}

var defaultStorageConf = storageConf{
	Driver: storage.DriverBadger,
	DSNConf: storage.DSNConf{
		User: "drop",
		Host: "localhost",
		DB:   "drop",
	},
	UsersHash: passwd.DefaultParams(),
	Debug:     false,
}

// LoadStorageBackends loads and returns the storage backends for the passed config
func LoadStorageBackends(c storageConf) (model.Backends, error) {
	cfg := storage.Config{
		Driver:      c.Driver,
		DSN:         c.DSN,
		DataDir:     c.DataDir,
		Debug:       c.Debug,
		UsersHash:   c.UsersHash,
		HashWorkers: c.HashWorkers,
	}
	backs, err := storage.LoadBackends(cfg)
	if err != nil {
		return model.Backends{}, err
	}
	log.Info("Loaded storage backend")
	return backs, nil
}
