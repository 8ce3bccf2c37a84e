package storage

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/drophost/drop/internal/passwd"
	"github.com/drophost/drop/storage/model"
)

// DriverType represents the type of storage driver
type DriverType string

const (
	// DriverBadger is the embedded Badger key-value store, the default
	DriverBadger DriverType = "badger"
	// DriverSQLite is the SQLite driver
	DriverSQLite DriverType = "sqlite"
	// DriverMySQL is the MySQL driver
	DriverMySQL DriverType = "mysql"
	// DriverPostgres is the PostgreSQL driver
	DriverPostgres DriverType = "postgres"
)

var SupportedDrivers = []DriverType{
	DriverBadger,
	DriverSQLite,
	DriverMySQL,
	DriverPostgres,
}

// DSN creates and returns a dsn connection string for the passed DriverType and DSNConf
func DSN(driver DriverType, conf DSNConf) (string, error) {
	switch driver {
	case DriverBadger, DriverSQLite:
		return "", errors.Errorf("driver %s does not use dsn", driver)
	case DriverMySQL:
		if conf.Port == 0 {
			conf.Port = 3306
		}
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True", conf.User, conf.Password, conf.Host, conf.Port,
			conf.DB,
		), nil
	case DriverPostgres:
		if conf.Port == 0 {
			conf.Port = 5432
		}
		return fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%d",
			conf.Host, conf.User, conf.Password, conf.DB, conf.Port,
		), nil
	default:
		return "", errors.Errorf("unsupported driver '%s'", driver)
	}
}

// DSNConf provides configuration options for database connection strings.
// It contains common connection parameters used across the relational
// drivers. When used with the DSN function, this struct helps generate a
// proper connection string for the selected driver type.
type DSNConf struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       string `yaml:"db"`
}

// Config represents the storage configuration
type Config struct {
	// Driver is the storage driver type
	Driver DriverType `yaml:"driver"`
	// DSN is the data source name (connection string) for the mysql and
	// postgres drivers
	DSN string `yaml:"dsn"`
	// DataDir is the directory where database files are stored (for the
	// badger and sqlite drivers)
	DataDir string `yaml:"data_dir"`
	// Debug enables debug logging of the relational drivers
	Debug bool `yaml:"debug"`
	// UsersHash defines parameters for hashing user passwords
	UsersHash passwd.Params `yaml:"password_hashing"`
	// HashWorkers bounds the number of concurrent password hash
	// computations; 0 uses GOMAXPROCS
	HashWorkers int `yaml:"hash_workers"`
}

// Connect establishes a connection to a relational database based on the
// configuration
func Connect(cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case DriverSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			// WAL plus a busy timeout so concurrent writers queue instead
			// of failing with SQLITE_BUSY
			dsn = "file:" + filepath.Join(cfg.DataDir, "drop.db") + "?_journal_mode=WAL&_busy_timeout=5000"
		}
		dialector = sqlite.Open(dsn)
	case DriverMySQL:
		dialector = mysql.Open(cfg.DSN)
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	logMode := logger.Silent
	if cfg.Debug {
		logMode = logger.Info
	}

	return gorm.Open(
		dialector, &gorm.Config{
			Logger: logger.Default.LogMode(logMode),
		},
	)
}

// LoadBackends initializes the configured storage driver and returns grouped
// backends. The password hasher (and its worker pool) is created here so
// both drivers share one pool.
func LoadBackends(cfg Config) (model.Backends, error) {
	hasher := passwd.NewHasher(cfg.UsersHash, cfg.HashWorkers)

	if cfg.Driver == "" {
		cfg.Driver = DriverBadger
	}
	if cfg.Driver == DriverBadger {
		store, err := NewBadgerStorage(filepath.Join(cfg.DataDir, "badger"))
		if err != nil {
			return model.Backends{}, err
		}
		return model.Backends{
			Entries: store.EntryStorage(),
			Users:   store.UsersStorage(hasher),
			KV:      store.KeyValue(),
		}, nil
	}

	store, err := NewStorage(cfg, hasher)
	if err != nil {
		return model.Backends{}, err
	}
	return model.Backends{
		Entries: store.EntryStorage(),
		Users:   store.UsersStorage(),
		KV:      store.KeyValue(),
	}, nil
}
