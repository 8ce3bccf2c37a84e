package config

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefaultConfigTemplateParses(t *testing.T) {
	var c Config
	if err := yaml.Unmarshal([]byte(defaultConfigYAML), &c); err != nil {
		t.Fatalf("default config template does not parse: %v", err)
	}
	if c.Server.Port != 8000 {
		t.Errorf("expected server port 8000, got %d", c.Server.Port)
	}
	if c.Storage.UsersHash.MemoryKiB != 65536 {
		t.Errorf("expected hashing memory 65536 KiB, got %d", c.Storage.UsersHash.MemoryKiB)
	}
	if c.Storage.UsersHash.Time != 1 || c.Storage.UsersHash.Parallelism != 4 {
		t.Errorf("unexpected hashing params: %+v", c.Storage.UsersHash)
	}
	if c.IDs.Length != 6 {
		t.Errorf("expected id length 6, got %d", c.IDs.Length)
	}
	if err := validate(&c); err != nil {
		t.Errorf("default config template does not validate: %v", err)
	}
}

func TestWriteDefaultRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file was not written: %v", err)
	}
	if err := WriteDefault(path); err == nil {
		t.Fatal("WriteDefault overwrote an existing file")
	}
}
