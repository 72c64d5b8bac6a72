package gateway

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/maxgio92/ndi-discover/internal/output"
	"github.com/maxgio92/ndi-discover/pkg/discovery"
)

const (
	bindIP   = "127.0.0.1"
	bindPort = 5000
)

// Gateway is an HTTP API over NDI source discovery.
// Discovery runs are serialized: at most one session exists at a time.
type Gateway struct {
	logger *log.Logger

	r   *mux.Router
	srv *http.Server

	runner    *discovery.Runner
	timeout   time.Duration
	showLocal bool
	hosts     *HostList

	// runMu serializes discovery runs.
	runMu sync.Mutex
}

type Option func(gw *Gateway)

func WithLogger(logger *log.Logger) Option {
	return func(gw *Gateway) {
		gw.logger = logger
	}
}

func WithHTTPServer(srv *http.Server) Option {
	return func(gw *Gateway) {
		gw.srv = srv
	}
}

func WithRouter(router *mux.Router) Option {
	return func(gw *Gateway) {
		gw.r = router
	}
}

func WithRunner(runner *discovery.Runner) Option {
	return func(gw *Gateway) {
		gw.runner = runner
	}
}

// WithTimeout sets the discovery timeout used when a request sets none.
func WithTimeout(timeout time.Duration) Option {
	return func(gw *Gateway) {
		gw.timeout = timeout
	}
}

func WithShowLocal(showLocal bool) Option {
	return func(gw *Gateway) {
		gw.showLocal = showLocal
	}
}

// WithExtraHosts seeds the extra hosts list.
func WithExtraHosts(hosts ...string) Option {
	return func(gw *Gateway) {
		gw.hosts = NewHostList(hosts...)
	}
}

// NewGateway returns a new Gateway.
func NewGateway(opts ...Option) *Gateway {
	gw := &Gateway{
		timeout:   discovery.DefaultTimeout,
		showLocal: true,
	}

	for _, f := range opts {
		f(gw)
	}

	gw.init()

	gw.r.HandleFunc("/", gw.HomeHandler)
	gw.r.Methods(http.MethodGet).Path("/api/health").HandlerFunc(gw.HealthHandler)
	gw.AddSourceRoutes(gw.r)

	gw.srv.Handler = gw.r

	return gw
}

func (g *Gateway) init() {
	if g.logger == nil {
		g.logger = output.NewJSONLogger(
			output.WithOutput(os.Stderr),
		)
	}
	if g.r == nil {
		g.r = mux.NewRouter()
	}
	if g.srv == nil {
		g.srv = &http.Server{
			Addr:         fmt.Sprintf("%s:%d", bindIP, bindPort),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  15 * time.Second,
		}
	}
	if g.hosts == nil {
		g.hosts = NewHostList()
	}
}

func (g *Gateway) Run() error {
	if err := g.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	return g.srv.Shutdown(ctx)
}

// discover runs a single discovery session with the current extra hosts.
func (g *Gateway) discover(timeout time.Duration) ([]discovery.Source, error) {
	g.runMu.Lock()
	defer g.runMu.Unlock()

	cfg := discovery.NewConfig()
	cfg.Timeout = timeout
	cfg.IncludeLocalSources = g.showLocal
	cfg.ExtraHosts = g.hosts.List()

	return g.runner.Discover(cfg)
}
