package gateway

import (
	"net/http"
	"testing"
	"time"

	"github.com/go-test/deep"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/maxgio92/ndi-discover/pkg/discovery"
)

type stubProvider struct {
	initErr error
	sources []discovery.Source

	opts    discovery.SessionOptions
	timeout time.Duration
}

func (p *stubProvider) Initialize() error { return p.initErr }

func (p *stubProvider) CreateSession(opts discovery.SessionOptions) (discovery.Session, error) {
	p.opts = opts
	return &stubSession{provider: p}, nil
}

func (p *stubProvider) Shutdown() {}

type stubSession struct {
	provider *stubProvider
}

func (s *stubSession) WaitForSources(timeout time.Duration) bool {
	s.provider.timeout = timeout
	return len(s.provider.sources) > 0
}

func (s *stubSession) CurrentSources() []discovery.Source { return s.provider.sources }

func (s *stubSession) Destroy() {}

func TestNewGateway(t *testing.T) {
	logger := logrus.StandardLogger()

	srv := &http.Server{Addr: "127.0.0.1:5000"}
	router := mux.NewRouter()
	runner := discovery.NewRunner(discovery.WithProvider(&stubProvider{}))

	testCases := []struct {
		name  string
		given []Option
		want  *Gateway
	}{
		{
			name:  "with logger, http server, router and runner",
			given: []Option{WithLogger(logger), WithHTTPServer(srv), WithRouter(router), WithRunner(runner)},
			want: &Gateway{
				logger: logger, r: router, srv: srv, runner: runner,
				timeout: discovery.DefaultTimeout, showLocal: true, hosts: NewHostList(),
			},
		},
		{
			name: "with discovery settings",
			given: []Option{WithLogger(logger), WithHTTPServer(srv), WithRouter(router), WithRunner(runner),
				WithTimeout(2 * time.Second), WithShowLocal(false), WithExtraHosts("10.0.0.5")},
			want: &Gateway{
				logger: logger, r: router, srv: srv, runner: runner,
				timeout: 2 * time.Second, showLocal: false, hosts: NewHostList("10.0.0.5"),
			},
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			got := NewGateway(tt.given...)
			if got == nil {
				t.Fatal("gateway is nil")
			}
			if got.srv.Handler != router {
				t.Error("server handler is not the router")
			}
			if got.logger != tt.want.logger || got.r != tt.want.r || got.runner != tt.want.runner {
				t.Error("got different logger, router or runner")
			}
			if got.timeout != tt.want.timeout || got.showLocal != tt.want.showLocal {
				t.Errorf("got timeout %s and show local %v, want %s and %v",
					got.timeout, got.showLocal, tt.want.timeout, tt.want.showLocal)
			}
			if diff := deep.Equal(got.hosts.List(), tt.want.hosts.List()); diff != nil {
				t.Error(diff)
			}
		})
	}
}

func TestNewGatewayDefaults(t *testing.T) {
	got := NewGateway()
	if got.logger == nil || got.r == nil || got.srv == nil || got.hosts == nil {
		t.Errorf("got gateway with missing defaults: %+v", got)
	}
	if got.srv.Addr != "127.0.0.1:5000" {
		t.Errorf("got address %s", got.srv.Addr)
	}
}
