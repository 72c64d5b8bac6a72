package discovery

import (
	"context"
	"net"
	"strconv"
	"strings"

	"github.com/miekg/dns"
	"github.com/pkg/errors"
)

// queryHost sends a unicast DNS-SD query for the browsed service to host.
// The host defaults to the mDNS port when it carries none.
func (p *MDNSProvider) queryHost(ctx context.Context, host string) ([]Source, error) {
	addr := host
	if _, _, err := net.SplitHostPort(host); err != nil {
		addr = net.JoinHostPort(strings.Trim(host, "[]"), strconv.Itoa(mdnsPort))
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(serviceName(p.service, p.domain)), dns.TypePTR)
	msg.RecursionDesired = false

	client := &dns.Client{
		Net:     "udp",
		Timeout: p.unicastTimeout,
	}

	in, _, err := client.ExchangeContext(ctx, msg, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "error querying %s", addr)
	}

	fallback, _, _ := net.SplitHostPort(addr)

	return sourcesFromMsg(in, p.service, p.domain, fallback), nil
}

type srvTarget struct {
	target string
	port   int
}

// sourcesFromMsg builds the sources announced by a DNS-SD response.
// Instances without an address record are addressed at fallbackHost.
func sourcesFromMsg(msg *dns.Msg, service, domain, fallbackHost string) []Source {
	if msg == nil {
		return nil
	}

	var instances []string
	srvs := map[string]srvTarget{}
	ips := map[string]net.IP{}

	records := make([]dns.RR, 0, len(msg.Answer)+len(msg.Ns)+len(msg.Extra))
	records = append(records, msg.Answer...)
	records = append(records, msg.Ns...)
	records = append(records, msg.Extra...)

	browsed := strings.ToLower(dns.Fqdn(serviceName(service, domain)))
	for _, rr := range records {
		key := strings.ToLower(rr.Header().Name)
		switch v := rr.(type) {
		case *dns.PTR:
			if key == browsed {
				instances = append(instances, v.Ptr)
			}
		case *dns.SRV:
			srvs[key] = srvTarget{target: strings.ToLower(v.Target), port: int(v.Port)}
		case *dns.A:
			ips[key] = v.A
		case *dns.AAAA:
			if _, ok := ips[key]; !ok {
				ips[key] = v.AAAA
			}
		}
	}

	seen := map[string]struct{}{}
	sources := []Source{}
	for _, instance := range instances {
		name := instanceName(instance, service, domain)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		src := Source{Name: name}
		srv, ok := srvs[strings.ToLower(instance)]
		switch {
		case ok && ips[srv.target] != nil:
			src.Address = joinAddress(ips[srv.target], srv.port)
		case ok && fallbackHost != "":
			src.Address = net.JoinHostPort(fallbackHost, strconv.Itoa(srv.port))
		default:
			src.Address = fallbackHost
		}

		sources = append(sources, src)
	}

	return sources
}
