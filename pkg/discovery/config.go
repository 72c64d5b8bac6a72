package discovery

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultTimeout = 5 * time.Second

	// ExtraHostsSeparator separates the hosts of an extra hosts list.
	ExtraHostsSeparator = ","
)

// Config represents the configuration of a single discovery run.
type Config struct {
	Timeout             time.Duration
	ExtraHosts          []string
	IncludeLocalSources bool
}

// NewConfig returns a Config with the default values.
func NewConfig() *Config {
	return &Config{
		Timeout:             DefaultTimeout,
		IncludeLocalSources: true,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return &UsageError{Err: errors.Errorf("timeout must be positive, got %s", c.Timeout)}
	}

	return nil
}

func (c *Config) sessionOptions() SessionOptions {
	hosts := make([]string, len(c.ExtraHosts))
	copy(hosts, c.ExtraHosts)

	return SessionOptions{
		ShowLocal:  c.IncludeLocalSources,
		ExtraHosts: hosts,
	}
}

// ParseExtraHosts splits a comma-separated host list, as found in the
// environment, keeping the order. Blank entries are dropped.
func ParseExtraHosts(list string) []string {
	hosts := []string{}
	for _, v := range strings.Split(list, ExtraHostsSeparator) {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		hosts = append(hosts, v)
	}

	return hosts
}
