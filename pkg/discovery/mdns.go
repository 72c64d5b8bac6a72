package discovery

import (
	"context"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	ndiServiceType = "_ndi._tcp"
	ndiDomain      = "local"

	mdnsPort                 = 5353
	mdnsEntriesBuffer        = 32
	defaultMDNSQueryInterval = 1 * time.Second
	defaultUnicastTimeout    = 2 * time.Second
)

var (
	ErrNoMulticastInterface = errors.New("no multicast capable network interface is up")
	ErrNotInitialized       = errors.New("discovery provider is not initialized")
)

// MDNSProvider discovers NDI sources advertised with DNS-SD over multicast DNS.
// Extra hosts are queried with unicast DNS-SD queries on the mDNS port.
type MDNSProvider struct {
	logger *log.Logger

	service string
	domain  string

	queryInterval  time.Duration
	unicastTimeout time.Duration

	interfaces func() ([]net.Interface, error)
	addrs      func() ([]net.Addr, error)
	query      func(*mdns.QueryParam) error

	localIPs    map[string]struct{}
	initialized bool
}

// ensure MDNSProvider implements Provider at compile-time.
var _ Provider = (*MDNSProvider)(nil)

type MDNSOption func(p *MDNSProvider)

func WithMDNSLogger(logger *log.Logger) MDNSOption {
	return func(p *MDNSProvider) {
		p.logger = logger
	}
}

// WithMDNSService overrides the DNS-SD service type and domain to browse.
func WithMDNSService(service, domain string) MDNSOption {
	return func(p *MDNSProvider) {
		p.service = service
		p.domain = domain
	}
}

func WithMDNSQueryInterval(interval time.Duration) MDNSOption {
	return func(p *MDNSProvider) {
		p.queryInterval = interval
	}
}

func WithUnicastTimeout(timeout time.Duration) MDNSOption {
	return func(p *MDNSProvider) {
		p.unicastTimeout = timeout
	}
}

// WithInterfaceLister overrides how network interfaces and their addresses
// are listed.
func WithInterfaceLister(interfaces func() ([]net.Interface, error), addrs func() ([]net.Addr, error)) MDNSOption {
	return func(p *MDNSProvider) {
		p.interfaces = interfaces
		p.addrs = addrs
	}
}

// WithMDNSQuery overrides the multicast query function.
func WithMDNSQuery(query func(*mdns.QueryParam) error) MDNSOption {
	return func(p *MDNSProvider) {
		p.query = query
	}
}

// NewMDNSProvider returns a new MDNSProvider browsing for NDI sources.
func NewMDNSProvider(opts ...MDNSOption) *MDNSProvider {
	p := &MDNSProvider{
		service:        ndiServiceType,
		domain:         ndiDomain,
		queryInterval:  defaultMDNSQueryInterval,
		unicastTimeout: defaultUnicastTimeout,
		interfaces:     net.Interfaces,
		addrs:          net.InterfaceAddrs,
		query:          mdns.Query,
	}

	for _, f := range opts {
		f(p)
	}

	if p.logger == nil {
		p.logger = log.StandardLogger()
	}

	return p
}

func (p *MDNSProvider) Initialize() error {
	ifaces, err := p.interfaces()
	if err != nil {
		return errors.Wrap(err, "error listing network interfaces")
	}

	multicast := false
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if iface.Flags&net.FlagMulticast != 0 {
			multicast = true
			p.logger.Debugf("multicast interface %s is up", iface.Name)
		}
	}
	if !multicast {
		return ErrNoMulticastInterface
	}

	addrs, err := p.addrs()
	if err != nil {
		return errors.Wrap(err, "error listing interface addresses")
	}

	p.localIPs = make(map[string]struct{}, len(addrs))
	for _, addr := range addrs {
		if ip := addrIP(addr); ip != nil {
			p.localIPs[ip.String()] = struct{}{}
		}
	}

	p.initialized = true

	return nil
}

func (p *MDNSProvider) CreateSession(opts SessionOptions) (Session, error) {
	if !p.initialized {
		return nil, ErrNotInitialized
	}

	var accept func(Source) bool
	if !opts.ShowLocal {
		accept = func(src Source) bool {
			return !p.isLocal(src)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &mdnsSession{
		store:  newSourceStore(accept),
		cancel: cancel,
	}

	s.wg.Add(1)
	go p.browse(ctx, s)

	for _, host := range opts.ExtraHosts {
		s.wg.Add(1)
		go p.browseHost(ctx, s, host)
	}

	return s, nil
}

func (p *MDNSProvider) Shutdown() {
	p.initialized = false
	p.localIPs = nil
}

// browse runs multicast query rounds until the session is destroyed.
func (p *MDNSProvider) browse(ctx context.Context, s *mdnsSession) {
	defer s.wg.Done()

	entries := make(chan *mdns.ServiceEntry, mdnsEntriesBuffer)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for entry := range entries {
			if src, ok := p.entryToSource(entry); ok {
				s.store.add(src)
			}
		}
	}()
	defer func() {
		close(entries)
		<-drained
	}()

	for {
		params := &mdns.QueryParam{
			Service:     p.service,
			Domain:      p.domain,
			Timeout:     p.queryInterval,
			Entries:     entries,
			DisableIPv6: true,
		}
		if err := p.query(params); err != nil {
			p.logger.WithError(err).Debug("mdns query failed")

			if !sleepContext(ctx, p.queryInterval) {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// browseHost runs unicast query rounds against host until the session is destroyed.
func (p *MDNSProvider) browseHost(ctx context.Context, s *mdnsSession, host string) {
	defer s.wg.Done()

	for {
		sources, err := p.queryHost(ctx, host)
		if err != nil {
			p.logger.WithError(err).WithField("host", host).Debug("unicast query failed")
		}
		for _, src := range sources {
			s.store.add(src)
		}

		if !sleepContext(ctx, p.queryInterval) {
			return
		}
	}
}

func (p *MDNSProvider) entryToSource(entry *mdns.ServiceEntry) (Source, bool) {
	if entry == nil {
		return Source{}, false
	}

	name := instanceName(entry.Name, p.service, p.domain)
	if name == "" {
		return Source{}, false
	}

	ip := entry.AddrV4
	if ip == nil {
		ip = entry.AddrV6
	}
	if ip == nil {
		ip = entry.Addr
	}

	return Source{Name: name, Address: joinAddress(ip, entry.Port)}, true
}

func (p *MDNSProvider) isLocal(src Source) bool {
	if src.Address == "" {
		return false
	}

	host := src.Address
	if h, _, err := net.SplitHostPort(src.Address); err == nil {
		host = h
	}
	_, ok := p.localIPs[host]

	return ok
}

type mdnsSession struct {
	store  *sourceStore
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// ensure mdnsSession implements Session at compile-time.
var _ Session = (*mdnsSession)(nil)

func (s *mdnsSession) WaitForSources(timeout time.Duration) bool {
	return s.store.wait(timeout)
}

func (s *mdnsSession) CurrentSources() []Source {
	return s.store.snapshot()
}

func (s *mdnsSession) Destroy() {
	s.once.Do(func() {
		s.cancel()
		s.wg.Wait()
	})
}

// instanceName returns the unescaped DNS-SD instance name of a service
// instance domain name, e.g. `HOST\ \(Camera\ 1\)._ndi._tcp.local.`.
// It returns an empty name for instances of any other service.
func instanceName(fqdn, service, domain string) string {
	name := strings.TrimSuffix(fqdn, ".")
	suffix := "." + serviceName(service, domain)
	if len(name) <= len(suffix) || !strings.EqualFold(name[len(name)-len(suffix):], suffix) {
		return ""
	}

	return unescapeLabel(name[:len(name)-len(suffix)])
}

// serviceName returns the browsed service domain name without the root dot,
// e.g. `_ndi._tcp.local`.
func serviceName(service, domain string) string {
	return strings.Trim(service, ".") + "." + strings.Trim(domain, ".")
}

// unescapeLabel decodes the `\c` and `\DDD` escapes of a presentation-format label.
func unescapeLabel(label string) string {
	if !strings.Contains(label, `\`) {
		return label
	}

	var b strings.Builder
	for i := 0; i < len(label); i++ {
		c := label[i]
		if c != '\\' || i+1 >= len(label) {
			b.WriteByte(c)
			continue
		}
		if i+3 < len(label) && isDigit(label[i+1]) && isDigit(label[i+2]) && isDigit(label[i+3]) {
			n, err := strconv.Atoi(label[i+1 : i+4])
			if err == nil && n <= 255 {
				b.WriteByte(byte(n))
				i += 3
				continue
			}
		}
		b.WriteByte(label[i+1])
		i++
	}

	return b.String()
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func joinAddress(ip net.IP, port int) string {
	if ip == nil {
		return ""
	}
	if port <= 0 {
		return ip.String()
	}

	return net.JoinHostPort(ip.String(), strconv.Itoa(port))
}

func addrIP(addr net.Addr) net.IP {
	switch v := addr.(type) {
	case *net.IPNet:
		return v.IP
	case *net.IPAddr:
		return v.IP
	}

	return nil
}

// sleepContext waits for d and reports whether ctx is still alive.
func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
