// Package config holds the storesim configuration tree.
package config

import (
	"fmt"
	"strings"

	"github.com/abgdnv/storesim/pkg/config"
	"github.com/abgdnv/storesim/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

type Config struct {
	HTTPServer config.HTTPConfig       `koanf:"server"`
	Storage    config.StorageConfig    `koanf:"storage"`
	Checkout   config.CheckoutConfig   `koanf:"checkout"`
	Auth       config.AuthConfig       `koanf:"auth"`
	Resilience config.ResilienceConfig `koanf:"resilience"`
	Nats       config.NATSConfig       `koanf:"nats"`
	Subscriber config.SubscriberConfig `koanf:"subscriber"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	Probes     config.ProbesConfig     `koanf:"probes"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Storage.String())
	b.WriteString(c.Checkout.String())
	b.WriteString(c.Auth.String())
	b.WriteString(c.Resilience.String())
	b.WriteString(c.Nats.String())
	b.WriteString(c.Subscriber.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Probes.String())
	b.WriteString(c.Shutdown.String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	validators := []configloader.Validator{
		&c.HTTPServer,
		&c.Storage,
		&c.Checkout,
		&c.Auth,
		&c.Resilience,
		&c.Nats,
		&c.Subscriber,
		&c.Telemetry,
		&c.Log,
		&c.PProf,
		&c.Probes,
		&c.Shutdown,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	if c.Subscriber.Enabled && !c.Nats.Enabled {
		return fmt.Errorf("subscriber is enabled but NATS is disabled")
	}
	return nil
}
