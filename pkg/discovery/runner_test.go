package discovery

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/go-test/deep"
	"github.com/pkg/errors"
)

type stubProvider struct {
	initErr    error
	sessionErr error
	nilSession bool
	sources    []Source

	initCalls     int
	createCalls   int
	shutdownCalls int
	destroyCalls  int
	waitTimeout   time.Duration
	opts          SessionOptions
}

func (p *stubProvider) Initialize() error {
	p.initCalls++
	return p.initErr
}

func (p *stubProvider) CreateSession(opts SessionOptions) (Session, error) {
	p.createCalls++
	p.opts = opts
	if p.sessionErr != nil {
		return nil, p.sessionErr
	}
	if p.nilSession {
		return nil, nil
	}

	return &stubSession{provider: p}, nil
}

func (p *stubProvider) Shutdown() {
	p.shutdownCalls++
}

type stubSession struct {
	provider *stubProvider
}

func (s *stubSession) WaitForSources(timeout time.Duration) bool {
	s.provider.waitTimeout = timeout
	return len(s.provider.sources) > 0
}

func (s *stubSession) CurrentSources() []Source {
	return s.provider.sources
}

func (s *stubSession) Destroy() {
	s.provider.destroyCalls++
}

func runStub(p *stubProvider, cfg *Config) (int, string, string) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	code := NewRunner(
		WithProvider(p),
		WithStdout(stdout),
		WithStderr(stderr),
	).Run(cfg)

	return code, stdout.String(), stderr.String()
}

func TestRunnerRun(t *testing.T) {
	testCases := []struct {
		name       string
		given      *stubProvider
		wantCode   int
		wantStdout string
	}{
		{
			name:       "with no sources",
			given:      &stubProvider{},
			wantCode:   ExitCodeSuccess,
			wantStdout: "Found 0 devices\n",
		},
		{
			name: "with two sources",
			given: &stubProvider{sources: []Source{
				{Name: "CAM1", Address: "10.0.0.5"},
				{Name: "CAM2"},
			}},
			wantCode: ExitCodeSuccess,
			wantStdout: "Found 2 devices\n" +
				"Device CAM1 with 1 configurations\n" +
				"  address: 10.0.0.5\n" +
				"Device CAM2 with 1 configurations\n" +
				"  address: unknown\n",
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runStub(tt.given, NewConfig())
			if code != tt.wantCode {
				t.Errorf("got exit code %d, want %d", code, tt.wantCode)
			}
			if stdout != tt.wantStdout {
				t.Errorf("got stdout %q, want %q", stdout, tt.wantStdout)
			}
			if stderr != "" {
				t.Errorf("got stderr %q, want none", stderr)
			}
			if tt.given.destroyCalls != 1 || tt.given.shutdownCalls != 1 {
				t.Errorf("got %d destroy and %d shutdown calls, want 1 each",
					tt.given.destroyCalls, tt.given.shutdownCalls)
			}
		})
	}
}

func TestRunnerRunFailures(t *testing.T) {
	testCases := []struct {
		name         string
		given        *stubProvider
		wantShutdown int
	}{
		{name: "with initialization failure", given: &stubProvider{initErr: errors.New("license missing")}, wantShutdown: 0},
		{name: "with nil session", given: &stubProvider{nilSession: true}, wantShutdown: 1},
		{name: "with session error", given: &stubProvider{sessionErr: errors.New("no socket")}, wantShutdown: 1},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runStub(tt.given, NewConfig())
			if code != ExitCodeFailure {
				t.Errorf("got exit code %d, want %d", code, ExitCodeFailure)
			}
			if stdout != "" {
				t.Errorf("got stdout %q, want none", stdout)
			}
			lines := strings.Split(strings.TrimSuffix(stderr, "\n"), "\n")
			if len(lines) != 1 || !strings.HasPrefix(lines[0], "ERROR: ") {
				t.Errorf("got stderr %q, want a single ERROR line", stderr)
			}
			if tt.given.shutdownCalls != tt.wantShutdown {
				t.Errorf("got %d shutdown calls, want %d", tt.given.shutdownCalls, tt.wantShutdown)
			}
			if tt.given.destroyCalls != 0 {
				t.Errorf("got %d destroy calls, want 0", tt.given.destroyCalls)
			}
		})
	}
}

func TestRunnerDiscoverErrors(t *testing.T) {
	_, err := NewRunner(WithProvider(&stubProvider{initErr: errors.New("driver missing")})).Discover(NewConfig())
	var initErr *InitializationError
	if !errors.As(err, &initErr) {
		t.Errorf("got error %v, want an InitializationError", err)
	}

	_, err = NewRunner(WithProvider(&stubProvider{nilSession: true})).Discover(NewConfig())
	var sessionErr *SessionCreateError
	if !errors.As(err, &sessionErr) {
		t.Errorf("got error %v, want a SessionCreateError", err)
	}

	p := &stubProvider{}
	_, err = NewRunner(WithProvider(p)).Discover(&Config{Timeout: 0})
	var usageErr *UsageError
	if !errors.As(err, &usageErr) {
		t.Errorf("got error %v, want a UsageError", err)
	}
	if p.initCalls != 0 {
		t.Errorf("provider initialized %d times on invalid config, want 0", p.initCalls)
	}
}

func TestRunnerDiscoverOptions(t *testing.T) {
	p := &stubProvider{sources: []Source{{Name: "CAM1"}}}
	cfg := &Config{
		Timeout:             3 * time.Second,
		ExtraHosts:          []string{"10.0.0.7", "10.0.0.8"},
		IncludeLocalSources: false,
	}

	got, err := NewRunner(WithProvider(p)).Discover(cfg)
	if err != nil {
		t.Fatalf("got error %v", err)
	}
	if diff := deep.Equal(got, []Source{{Name: "CAM1"}}); diff != nil {
		t.Error(diff)
	}
	if p.waitTimeout != 3*time.Second {
		t.Errorf("got wait timeout %s, want 3s", p.waitTimeout)
	}
	want := SessionOptions{ShowLocal: false, ExtraHosts: []string{"10.0.0.7", "10.0.0.8"}}
	if diff := deep.Equal(p.opts, want); diff != nil {
		t.Error(diff)
	}
}

func TestRunnerRunIdempotent(t *testing.T) {
	p := &stubProvider{sources: []Source{{Name: "CAM1", Address: "10.0.0.5"}}}

	_, first, _ := runStub(p, NewConfig())
	_, second, _ := runStub(p, NewConfig())
	if first != second {
		t.Errorf("got different outputs %q and %q", first, second)
	}
}
