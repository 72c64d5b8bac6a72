package discovery

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/maxgio92/ndi-discover/internal/output"
)

const (
	ExitCodeSuccess = 0
	ExitCodeFailure = 1
)

// Runner owns the lifecycle of one discovery session per run:
// initialize, create the session, wait, enumerate, print and release.
type Runner struct {
	provider Provider

	stdout io.Writer
	stderr io.Writer

	logger *log.Logger
}

type Option func(r *Runner)

func WithProvider(provider Provider) Option {
	return func(r *Runner) {
		r.provider = provider
	}
}

func WithStdout(w io.Writer) Option {
	return func(r *Runner) {
		r.stdout = w
	}
}

func WithStderr(w io.Writer) Option {
	return func(r *Runner) {
		r.stderr = w
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner returns a new Runner.
func NewRunner(opts ...Option) *Runner {
	r := new(Runner)

	for _, f := range opts {
		f(r)
	}

	r.init()

	return r
}

func (r *Runner) init() {
	if r.stdout == nil {
		r.stdout = os.Stdout
	}
	if r.stderr == nil {
		r.stderr = os.Stderr
	}
	if r.logger == nil {
		r.logger = output.NewJSONLogger(
			output.WithOutput(r.stderr),
			output.WithLevel(log.WarnLevel.String()),
		)
	}
}

// Run runs a discovery session and prints its report to the standard output.
// On failure a single diagnostic line is printed to the standard error and
// nothing is printed to the standard output.
func (r *Runner) Run(cfg *Config) int {
	sources, err := r.Discover(cfg)
	if err != nil {
		r.diagnose(err)
		return ExitCodeFailure
	}

	if err := WriteReport(r.stdout, sources); err != nil {
		r.diagnose(err)
		return ExitCodeFailure
	}

	return ExitCodeSuccess
}

// Discover runs a discovery session and returns the snapshot of the sources
// found within the configured timeout.
// The session and the provider are released on every path.
func (r *Runner) Discover(cfg *Config) ([]Source, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if r.provider == nil {
		return nil, &InitializationError{Err: errors.New("no discovery provider configured")}
	}

	r.logger.Debug("initializing discovery provider")

	if err := r.provider.Initialize(); err != nil {
		return nil, &InitializationError{Err: err}
	}
	defer func() {
		r.provider.Shutdown()
		r.logger.Debug("discovery provider shut down")
	}()

	opts := cfg.sessionOptions()
	r.logger.
		WithField("show local", opts.ShowLocal).
		WithField("extra hosts", opts.ExtraHosts).
		Debug("creating discovery session")

	session, err := r.provider.CreateSession(opts)
	if err != nil {
		return nil, &SessionCreateError{Err: err}
	}
	if session == nil {
		return nil, &SessionCreateError{}
	}
	defer func() {
		session.Destroy()
		r.logger.Debug("discovery session destroyed")
	}()

	r.logger.WithField("timeout", cfg.Timeout.String()).Debug("waiting for sources")

	found := session.WaitForSources(cfg.Timeout)

	snapshot := session.CurrentSources()
	sources := make([]Source, len(snapshot))
	copy(sources, snapshot)

	r.logger.
		WithField("signalled", found).
		WithField("count", len(sources)).
		Debug("sources enumerated")

	return sources, nil
}

func (r *Runner) diagnose(err error) {
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	fmt.Fprintf(r.stderr, "ERROR: %s\n", msg)
}
