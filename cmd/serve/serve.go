package serve

import (
	"context"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/maxgio92/ndi-discover/internal/output"
	"github.com/maxgio92/ndi-discover/pkg/discovery"
	"github.com/maxgio92/ndi-discover/pkg/gateway"
)

// Command represents the serve command.
type Command struct {
	logger   *log.Logger
	logLevel string

	// Gateway's server parameters.
	serverListenAddress string
	serverReadTimeout   time.Duration
	serverWriteTimeout  time.Duration
	serverIdleTimeout   time.Duration

	// Gateway's discovery parameters.
	discoveryTimeout time.Duration
	showLocal        bool
	extraIPsEnvVar   string
	provider         string
	dockerLabel      string
	dockerNetwork    string
}

// NewCmd returns a new serve command.
func NewCmd() *cobra.Command {
	c := new(Command)

	cmd := &cobra.Command{
		Use:               "serve",
		Short:             fmt.Sprintf("Serve the %s", programDescription),
		Long:              programLongDescription,
		DisableAutoGenTag: true,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		RunE:              c.Run,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			c.initLogs(cmd)
		},
	}

	cmd.SetUsageTemplate(usageTemplate)

	cmd.PersistentFlags().StringVarP(&c.logLevel, "verbosity", "v", log.InfoLevel.String(),
		"The log verbosity level.")

	cmd.Flags().StringVarP(&c.serverListenAddress, "listen-address", "l", serverListenAddress,
		"The address to listen on.")
	cmd.Flags().DurationVar(&c.serverReadTimeout, "read-timeout", serverReadTimeout,
		"Server read timeout")
	cmd.Flags().DurationVar(&c.serverWriteTimeout, "write-timeout", serverWriteTimeout,
		"Server write timeout")
	cmd.Flags().DurationVar(&c.serverIdleTimeout, "idle-timeout", serverIdleTimeout,
		"Server idle timeout")
	cmd.Flags().DurationVarP(&c.discoveryTimeout, "timeout", "t", discoveryTimeout,
		"The default discovery timeout")
	cmd.Flags().BoolVar(&c.showLocal, "show-local", true,
		"Include the sources running on this host")
	cmd.Flags().StringVar(&c.extraIPsEnvVar, "extra-ips-env-var", extraIPsEnvVar,
		"The environment variable name of the initial extra IPs list")
	cmd.Flags().StringVar(&c.provider, "provider", discovery.ProviderMDNS,
		fmt.Sprintf("The discovery provider, one of %v", discovery.ProviderNames))
	cmd.Flags().StringVar(&c.dockerLabel, "docker-label", discovery.DefaultDockerSourceLabel,
		"The label selecting NDI source containers (docker provider)")
	cmd.Flags().StringVar(&c.dockerNetwork, "docker-network", "",
		"The Docker network the source addresses are taken from (docker provider)")

	return cmd
}

func (c *Command) initLogs(cmd *cobra.Command) {
	logger := output.NewJSONLogger(
		output.WithLevel(c.logLevel),
		output.WithOutput(cmd.ErrOrStderr()),
	)
	c.logger = logger

	stdlog.SetFlags(0)
	stdlog.SetOutput(logger.WriterLevel(log.DebugLevel))
}

func (c *Command) Run(_ *cobra.Command, _ []string) error {
	if c.discoveryTimeout <= 0 {
		return &discovery.UsageError{Err: errors.Errorf("timeout must be positive, got %s", c.discoveryTimeout)}
	}

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	c.logger.Debugf("building %s discovery provider", c.provider)

	provider, err := discovery.NewProvider(discovery.ProviderConfig{
		Name:          c.provider,
		Logger:        c.logger,
		DockerLabel:   c.dockerLabel,
		DockerNetwork: c.dockerNetwork,
	})
	if err != nil {
		return errors.Wrap(err, "error building discovery provider")
	}

	runner := discovery.NewRunner(
		discovery.WithProvider(provider),
		discovery.WithLogger(c.logger),
	)

	c.logger.Debug("building discovery gateway")

	srv := &http.Server{
		Addr:         c.serverListenAddress,
		WriteTimeout: c.serverWriteTimeout,
		ReadTimeout:  c.serverReadTimeout,
		IdleTimeout:  c.serverIdleTimeout,
	}

	gtw := gateway.NewGateway(
		gateway.WithLogger(c.logger),
		gateway.WithHTTPServer(srv),
		gateway.WithRunner(runner),
		gateway.WithTimeout(c.discoveryTimeout),
		gateway.WithShowLocal(c.showLocal),
		gateway.WithExtraHosts(discovery.ParseExtraHosts(os.Getenv(c.extraIPsEnvVar))...),
	)

	// Run the discovery gateway.
	go func() {
		c.logger.Infof("Gateway listening at: %s", c.serverListenAddress)

		if err := gtw.Run(); err != nil {
			c.logger.Fatal(errors.Wrap(err, "error running the gateway"))
		}
	}()

	// Wait for termination.
	<-signalCh
	c.logger.Println("Terminating the gateway...")

	// Gracefully shut down the gateway.
	ctx, cancel := context.WithTimeout(context.Background(), serverGracefulShutdownTimeout)
	defer cancel()

	if err := gtw.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "error shutting down the gateway")
	}

	return nil
}
