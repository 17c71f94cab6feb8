package config

import (
	"fmt"
	"strings"
	"time"
)

type CheckoutConfig struct {
	PaymentLatency time.Duration `koanf:"paymentlatency"`
	PaymentTimeout time.Duration `koanf:"paymenttimeout"`
}

// String returns a string representation of the CheckoutConfig.
func (c *CheckoutConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Checkout ---\n")
	b.WriteString(fmt.Sprintf("  paymentlatency: %s\n", c.PaymentLatency))
	b.WriteString(fmt.Sprintf("  paymenttimeout: %s\n", c.PaymentTimeout))
	return b.String()
}

func (c *CheckoutConfig) Validate() error {
	if c.PaymentLatency < 0 {
		return fmt.Errorf("checkout payment latency cannot be negative")
	}
	if c.PaymentTimeout <= 0 {
		return fmt.Errorf("checkout payment timeout must be greater than 0")
	}
	return nil
}
