package config

import (
	"fmt"
	"strings"
	"time"
)

// TokenConfig configures the HMAC-signed session tokens.
type TokenConfig struct {
	Secret string        `koanf:"secret"`
	Issuer string        `koanf:"issuer"`
	TTL    time.Duration `koanf:"ttl"`
}

// String returns a string representation of the TokenConfig. The secret is never printed.
func (c *TokenConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Token ---\n")
	b.WriteString(fmt.Sprintf("  issuer: %s\n", c.Issuer))
	b.WriteString(fmt.Sprintf("  ttl: %s\n", c.TTL))
	b.WriteString(fmt.Sprintf("  secret: %d bytes\n", len(c.Secret)))
	return b.String()
}

func (c *TokenConfig) Validate() error {
	if len(c.Secret) < 32 {
		return fmt.Errorf("token secret must be at least 32 bytes")
	}
	if c.Issuer == "" {
		return fmt.Errorf("token issuer cannot be empty")
	}
	if c.TTL <= 0 {
		return fmt.Errorf("token ttl must be greater than zero")
	}
	return nil
}
