package config

import (
	"fmt"
	"strings"
)

// AdminConfig is the configured admin account. It is never stored in the user table.
type AdminConfig struct {
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

type AuthConfig struct {
	Admin AdminConfig `koanf:"admin"`
	Token TokenConfig `koanf:"token"`
}

// String returns a string representation of the AuthConfig. Secrets are never printed.
func (c *AuthConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Auth ---\n")
	b.WriteString(fmt.Sprintf("  admin.username: %s\n", c.Admin.Username))
	b.WriteString(c.Token.String())
	return b.String()
}

func (c *AuthConfig) Validate() error {
	if c.Admin.Username == "" {
		return fmt.Errorf("admin username cannot be empty")
	}
	if c.Admin.Password == "" {
		return fmt.Errorf("admin password cannot be empty")
	}
	return c.Token.Validate()
}
