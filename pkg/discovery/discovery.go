package discovery

import (
	"time"
)

// Provider is a discovery subsystem the Runner delegates all protocol work to.
type Provider interface {
	// Initialize prepares the provider. It must be called before CreateSession.
	Initialize() error

	// CreateSession starts a discovery session. A nil Session without error
	// is treated as a failure by the Runner.
	CreateSession(opts SessionOptions) (Session, error)

	// Shutdown releases the provider.
	Shutdown()
}

// Session is a time-bounded query context that accumulates found sources.
type Session interface {
	// WaitForSources blocks until sources are available or the timeout elapses.
	// It reports whether any source was found.
	WaitForSources(timeout time.Duration) bool

	// CurrentSources returns a point-in-time snapshot of the found sources.
	CurrentSources() []Source

	// Destroy releases the session.
	Destroy()
}

// SessionOptions are the options a Session is created with.
type SessionOptions struct {
	// ShowLocal includes sources running on this host.
	ShowLocal bool

	// ExtraHosts are queried directly, in order, beyond local network multicast.
	ExtraHosts []string
}

// Source is a discovered NDI source.
type Source struct {
	Name string `json:"name"`

	// Address is empty when the source address is not known.
	Address string `json:"address"`
}
