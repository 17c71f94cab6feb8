package config

import (
	"fmt"
	"strings"
)

const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

// StorageConfig selects the key-value backend.
type StorageConfig struct {
	Driver   string         `koanf:"driver"`
	Dir      string         `koanf:"dir"`
	Database DatabaseConfig `koanf:"database"`
}

// String returns a string representation of the StorageConfig.
func (c *StorageConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Storage ---\n")
	b.WriteString(fmt.Sprintf("  driver: %s\n", c.Driver))
	switch c.Driver {
	case StorageFile:
		b.WriteString(fmt.Sprintf("  dir: %s\n", c.Dir))
	case StoragePostgres:
		b.WriteString(fmt.Sprintf("  database.url: %s\n", MaskURL(c.Database.URL)))
		b.WriteString(fmt.Sprintf("  database.timeout: %s\n", c.Database.Timeout))
	}
	return b.String()
}

func (c *StorageConfig) Validate() error {
	switch c.Driver {
	case StorageMemory:
		return nil
	case StorageFile:
		if c.Dir == "" {
			return fmt.Errorf("storage dir is required for the file driver")
		}
		return nil
	case StoragePostgres:
		return c.Database.Validate()
	default:
		return fmt.Errorf("unknown storage driver: %q", c.Driver)
	}
}

// MaskURL hides the credentials part of a connection URL.
func MaskURL(url string) string {
	if url == "" {
		return "<not configured>"
	}
	parts := strings.Split(url, "@")
	if len(parts) == 2 {
		return "****@" + parts[1]
	}
	return "****"
}
