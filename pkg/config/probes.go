package config

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// ProbesConfig names the files container probes check. The readiness file appears once the catalog is
// loaded and the HTTP server is up; the liveness file is touched every LivenessInterval.
type ProbesConfig struct {
	ReadinessFileName string        `koanf:"readinessfilename"`
	LivenessFileName  string        `koanf:"livenessfilename"`
	LivenessInterval  time.Duration `koanf:"livenessinterval"`
}

const (
	defaultReadinessFileName = "/tmp/storesim-ready"
	defaultLivenessFileName  = "/tmp/storesim-live"
	defaultLivenessInterval  = 20 * time.Second
)

// String returns a string representation of the ProbesConfig.
func (c *ProbesConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Probes ---\n")
	b.WriteString(fmt.Sprintf("  readinessfilename: %s\n", c.ReadinessFileName))
	b.WriteString(fmt.Sprintf("  livenessfilename: %s\n", c.LivenessFileName))
	b.WriteString(fmt.Sprintf("  livenessinterval: %s\n", c.LivenessInterval))
	return b.String()
}

// Validate fills in defaults for unset fields. Both probes sharing one file is an error.
func (c *ProbesConfig) Validate() error {
	if c.ReadinessFileName == "" {
		log.Println("Using default value for readinessfilename")
		c.ReadinessFileName = defaultReadinessFileName
	}
	if c.LivenessFileName == "" {
		log.Println("Using default value for livenessfilename")
		c.LivenessFileName = defaultLivenessFileName
	}
	if c.LivenessInterval <= 0 {
		log.Println("Using default value for livenessinterval")
		c.LivenessInterval = defaultLivenessInterval
	}
	if c.ReadinessFileName == c.LivenessFileName {
		return fmt.Errorf("readiness and liveness probes use the same file %s", c.ReadinessFileName)
	}
	return nil
}
