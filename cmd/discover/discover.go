package discover

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/maxgio92/ndi-discover/internal/output"
	"github.com/maxgio92/ndi-discover/pkg/discovery"
)

// ErrHelp is returned by ParseArguments when help is requested.
var ErrHelp = errors.New("help requested")

// ExitError carries the exit code of a run whose diagnostic is already printed.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Command represents the discover command.
type Command struct {
	logger   *log.Logger
	logLevel string

	// Discovery run parameters.
	timeoutSeconds int
	showLocal      bool
	extraIPsEnvVar string

	// Provider parameters.
	provider      string
	dockerLabel   string
	dockerNetwork string

	newProvider func(discovery.ProviderConfig) (discovery.Provider, error)
}

// NewCmd returns a new discover command.
func NewCmd() *cobra.Command {
	_, cmd := newCommand()

	return cmd
}

func newCommand() (*Command, *cobra.Command) {
	c := &Command{newProvider: discovery.NewProvider}

	cmd := &cobra.Command{
		Use:               fmt.Sprintf("%s [-t <seconds>] [-h|--help]", programName),
		Short:             programDescription,
		Long:              fmt.Sprintf("%s.", programDescription),
		DisableAutoGenTag: true,
		// Arguments are parsed permissively by ParseArguments.
		DisableFlagParsing: true,
		Args:               cobra.ArbitraryArgs,
		SilenceErrors:      true,
		SilenceUsage:       true,
		RunE:               c.Run,
	}
	cmd.SetUsageTemplate(fmt.Sprintf(usageTemplate, extraIPsEnvVar))

	flags := cmd.Flags()
	flags.IntVarP(&c.timeoutSeconds, timeoutFlag, timeoutShorthand, defaultTimeoutSeconds,
		"Discovery timeout in seconds")
	flags.BoolVar(&c.showLocal, "show-local", true,
		"Include the sources running on this host")
	flags.StringVar(&c.extraIPsEnvVar, "extra-ips-env-var", extraIPsEnvVar,
		"The environment variable name of the extra IPs list")
	flags.StringVar(&c.provider, "provider", discovery.ProviderMDNS,
		fmt.Sprintf("The discovery provider, one of %v", discovery.ProviderNames))
	flags.StringVar(&c.dockerLabel, "docker-label", discovery.DefaultDockerSourceLabel,
		"The label selecting NDI source containers (docker provider)")
	flags.StringVar(&c.dockerNetwork, "docker-network", "",
		"The Docker network the source addresses are taken from (docker provider)")
	flags.StringVarP(&c.logLevel, "verbosity", "v", log.WarnLevel.String(),
		"The log verbosity level.")
	flags.ParseErrorsWhitelist.UnknownFlags = true

	return c, cmd
}

// ParseArguments parses the discover command line into a discovery config.
// It returns ErrHelp when -h or --help is present, whatever the other
// arguments are.
func ParseArguments(args []string) (*discovery.Config, error) {
	c, cmd := newCommand()
	if err := c.parseArguments(cmd, args); err != nil {
		return nil, err
	}

	return c.config(), nil
}

// parseArguments ignores unknown flags and a trailing timeout flag without
// a value, which keeps the default timeout.
func (c *Command) parseArguments(cmd *cobra.Command, args []string) error {
	help := false
	rest := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == "-h" || arg == "--help" {
			help = true
			continue
		}
		rest = append(rest, arg)
	}
	if help {
		// The help still names the configured extra IPs variable.
		_ = cmd.Flags().Parse(rest)
		return ErrHelp
	}

	if n := len(args); n > 0 && (args[n-1] == "-"+timeoutShorthand || args[n-1] == "--"+timeoutFlag) {
		args = args[:n-1]
	}

	if err := cmd.Flags().Parse(args); err != nil {
		return &discovery.UsageError{Err: err}
	}
	if c.timeoutSeconds <= 0 {
		return &discovery.UsageError{
			Err: errors.Errorf("timeout must be a positive number of seconds, got %d", c.timeoutSeconds),
		}
	}

	return nil
}

func (c *Command) config() *discovery.Config {
	cfg := discovery.NewConfig()
	cfg.Timeout = time.Duration(c.timeoutSeconds) * time.Second
	cfg.IncludeLocalSources = c.showLocal
	cfg.ExtraHosts = discovery.ParseExtraHosts(os.Getenv(c.extraIPsEnvVar))

	return cfg
}

func (c *Command) initLogs(w io.Writer) {
	c.logger = output.NewJSONLogger(
		output.WithLevel(c.logLevel),
		output.WithOutput(w),
	)

	// The multicast DNS client logs through the standard logger.
	stdlog.SetFlags(0)
	stdlog.SetOutput(c.logger.WriterLevel(log.DebugLevel))
}

func (c *Command) Run(cmd *cobra.Command, args []string) error {
	if err := c.parseArguments(cmd, args); err != nil {
		if errors.Is(err, ErrHelp) {
			cmd.SetUsageTemplate(fmt.Sprintf(usageTemplate, c.extraIPsEnvVar))
			fmt.Fprint(cmd.OutOrStdout(), cmd.UsageString())
			return nil
		}
		return err
	}

	c.initLogs(cmd.ErrOrStderr())

	provider, err := c.newProvider(discovery.ProviderConfig{
		Name:          c.provider,
		Logger:        c.logger,
		DockerLabel:   c.dockerLabel,
		DockerNetwork: c.dockerNetwork,
	})
	if err != nil {
		return err
	}

	cfg := c.config()
	c.logger.
		WithField("provider", c.provider).
		WithField("timeout", cfg.Timeout.String()).
		Debug("starting discovery")

	runner := discovery.NewRunner(
		discovery.WithProvider(provider),
		discovery.WithStdout(cmd.OutOrStdout()),
		discovery.WithStderr(cmd.ErrOrStderr()),
		discovery.WithLogger(c.logger),
	)

	if code := runner.Run(cfg); code != discovery.ExitCodeSuccess {
		return &ExitError{Code: code}
	}

	return nil
}
