package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/filters"
	docker "github.com/docker/docker/client"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	containerStatusRunning = "running"

	// DefaultDockerSourceLabel selects the containers running NDI senders.
	DefaultDockerSourceLabel = "ndi.source"

	// Optional labels of a selected container.
	dockerNameLabel = "ndi.source.name"
	dockerPortLabel = "ndi.source.port"

	dockerDaemonPort   = 2375
	dockerPingTimeout  = 5 * time.Second
	dockerPollInterval = 500 * time.Millisecond
)

// DockerProvider discovers NDI senders running as labelled Docker containers.
// The local daemon is queried when local sources are shown, and every extra
// host is queried as a daemon address, e.g. 10.0.0.5 or tcp://10.0.0.5:2375.
type DockerProvider struct {
	logger  *log.Logger
	label   string
	network string

	local *docker.Client
}

// ensure DockerProvider implements Provider at compile-time.
var _ Provider = (*DockerProvider)(nil)

type DockerOption func(d *DockerProvider)

func WithDockerLogger(logger *log.Logger) DockerOption {
	return func(d *DockerProvider) {
		d.logger = logger
	}
}

// WithLabel sets the label selecting the source containers.
func WithLabel(label string) DockerOption {
	return func(d *DockerProvider) {
		d.label = label
	}
}

// WithNetwork sets the Docker network the source addresses are taken from.
func WithNetwork(network string) DockerOption {
	return func(d *DockerProvider) {
		d.network = network
	}
}

func NewDockerProvider(options ...DockerOption) *DockerProvider {
	provider := &DockerProvider{label: DefaultDockerSourceLabel}

	for _, f := range options {
		f(provider)
	}

	if provider.logger == nil {
		provider.logger = log.StandardLogger()
	}

	return provider
}

func (d *DockerProvider) Initialize() error {
	cli, err := docker.NewClientWithOpts(docker.FromEnv, docker.WithAPIVersionNegotiation())
	if err != nil {
		return errors.Wrap(err, "error building docker client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), dockerPingTimeout)
	defer cancel()

	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return errors.Wrap(err, "error reaching docker daemon")
	}
	d.local = cli

	return nil
}

func (d *DockerProvider) CreateSession(opts SessionOptions) (Session, error) {
	if d.local == nil {
		return nil, ErrNotInitialized
	}

	s := &dockerSession{provider: d, store: newSourceStore(nil)}

	if opts.ShowLocal {
		s.clients = append(s.clients, d.local)
	}
	for _, host := range opts.ExtraHosts {
		daemonHost := dockerHost(host)
		cli, err := docker.NewClientWithOpts(
			docker.FromEnv,
			docker.WithHost(daemonHost),
			docker.WithAPIVersionNegotiation(),
		)
		if err != nil {
			d.logger.WithError(err).WithField("host", host).Debug("skipping extra host")
			continue
		}
		s.clients = append(s.clients, cli)
		s.owned = append(s.owned, cli)
	}

	return s, nil
}

func (d *DockerProvider) Shutdown() {
	if d.local != nil {
		d.local.Close()
		d.local = nil
	}
}

// dockerHost returns the daemon address of an extra host.
// A bare IP or host name is addressed with TCP on the daemon's plain port.
func dockerHost(host string) string {
	if strings.Contains(host, "://") {
		return host
	}

	addr := host
	if _, _, err := net.SplitHostPort(host); err != nil {
		addr = net.JoinHostPort(strings.Trim(host, "[]"), strconv.Itoa(dockerDaemonPort))
	}

	return "tcp://" + addr
}

// listSources returns the running source containers of a daemon.
func (d *DockerProvider) listSources(ctx context.Context, cli *docker.Client) ([]Source, error) {
	// Supported filters: https://docs.docker.com/engine/api/v1.24/.
	args := []filters.KeyValuePair{
		filters.Arg("label", d.label),
		filters.Arg("status", containerStatusRunning),
	}
	if d.network != "" {
		args = append(args, filters.Arg("network", d.network))
	}

	containers, err := cli.ContainerList(ctx, types.ContainerListOptions{
		Filters: filters.NewArgs(args...),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error listing containers on %s", cli.DaemonHost())
	}

	sources := []Source{}
	for _, container := range containers {
		sources = append(sources, containerToSource(container, d.network))
	}

	return sources, nil
}

// containerToSource maps a source container to a Source.
// The name is taken from the name label, falling back to the container name,
// and the port from the port label, falling back to the first private port.
func containerToSource(container types.Container, network string) Source {
	src := Source{Name: container.Labels[dockerNameLabel]}
	if src.Name == "" && len(container.Names) > 0 {
		src.Name = strings.TrimPrefix(container.Names[0], "/")
	}
	if src.Name == "" {
		src.Name = container.ID
	}

	var port uint16
	if v, err := strconv.ParseUint(container.Labels[dockerPortLabel], 10, 16); err == nil {
		port = uint16(v)
	} else if len(container.Ports) > 0 {
		port = container.Ports[0].PrivatePort
	}

	ip := ""
	if container.NetworkSettings != nil {
		if endpoint, ok := container.NetworkSettings.Networks[network]; ok && endpoint != nil {
			ip = endpoint.IPAddress
		} else if network == "" {
			for _, endpoint := range container.NetworkSettings.Networks {
				if endpoint != nil && endpoint.IPAddress != "" {
					ip = endpoint.IPAddress
					break
				}
			}
		}
	}

	switch {
	case ip != "" && port > 0:
		src.Address = fmt.Sprintf("%s:%d", ip, port)
	case ip != "":
		src.Address = ip
	}

	return src
}

type dockerSession struct {
	provider *DockerProvider
	store    *sourceStore

	clients []*docker.Client
	// owned are the clients built for extra hosts.
	owned []*docker.Client

	once sync.Once
}

// ensure dockerSession implements Session at compile-time.
var _ Session = (*dockerSession)(nil)

// WaitForSources polls the daemons until a source container is found or
// the timeout elapses.
func (s *dockerSession) WaitForSources(timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		for _, cli := range s.clients {
			sources, err := s.provider.listSources(ctx, cli)
			if err != nil {
				s.provider.logger.WithError(err).Debug("docker listing failed")
				continue
			}
			for _, src := range sources {
				s.store.add(src)
			}
		}

		if len(s.store.snapshot()) > 0 {
			return true
		}
		if !sleepContext(ctx, dockerPollInterval) {
			return false
		}
	}
}

func (s *dockerSession) CurrentSources() []Source {
	return s.store.snapshot()
}

func (s *dockerSession) Destroy() {
	s.once.Do(func() {
		for _, cli := range s.owned {
			cli.Close()
		}
	})
}
