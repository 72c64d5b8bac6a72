package discovery

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	ProviderMDNS   = "mdns"
	ProviderDocker = "docker"
)

// ProviderNames lists the supported provider names.
var ProviderNames = []string{ProviderMDNS, ProviderDocker}

// ProviderConfig holds the settings needed to build a provider by name.
type ProviderConfig struct {
	Name   string
	Logger *log.Logger

	DockerLabel   string
	DockerNetwork string
}

// NewProvider builds the provider named in the config.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch cfg.Name {
	case ProviderMDNS, "":
		return NewMDNSProvider(WithMDNSLogger(cfg.Logger)), nil
	case ProviderDocker:
		opts := []DockerOption{WithDockerLogger(cfg.Logger), WithNetwork(cfg.DockerNetwork)}
		if cfg.DockerLabel != "" {
			opts = append(opts, WithLabel(cfg.DockerLabel))
		}
		return NewDockerProvider(opts...), nil
	}

	return nil, &UsageError{Err: errors.Errorf("unknown provider %q, expected one of %v", cfg.Name, ProviderNames)}
}
