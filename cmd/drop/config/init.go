package config

import (
	"os"

	"github.com/pkg/errors"
)

const defaultConfigYAML = `server:
  port: 8000
  tls:
    enabled: false
    # cert: /etc/drop/cert.pem
    # key: /etc/drop/key.pem

storage:
  # badger (default, embedded), sqlite, mysql, postgres
  driver: badger
  data_dir: /var/lib/drop
  password_hashing:
    time: 1
    memory_kib: 65536
    parallelism: 4

caching:
  disabled: false
  # redis_addr: localhost:6379
  memory_size: 1024
  max_lifetime: 300

logging:
  level: INFO
  stderr: true
  # dir: /var/log/drop

ids:
  length: 6

views:
  disabled: false
`

// WriteDefault writes a commented default configuration to path. It refuses
// to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.Errorf("'%s' already exists", path)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o640)
}
