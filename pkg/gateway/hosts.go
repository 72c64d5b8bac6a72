package gateway

import (
	"sync"
)

// HostList is an in-memory ordered list of extra discovery hosts.
type HostList struct {
	hosts []string

	sync.RWMutex
}

func NewHostList(hosts ...string) *HostList {
	l := new(HostList)
	l.Set(hosts)

	return l
}

// List returns a copy of the hosts.
func (l *HostList) List() []string {
	l.RLock()
	defer l.RUnlock()

	hosts := make([]string, len(l.hosts))
	copy(hosts, l.hosts)

	return hosts
}

// Set replaces the hosts, dropping blanks and duplicates.
func (l *HostList) Set(hosts []string) []string {
	l.Lock()
	l.hosts = []string{}
	for _, h := range hosts {
		if h != "" && !contains(l.hosts, h) {
			l.hosts = append(l.hosts, h)
		}
	}
	l.Unlock()

	return l.List()
}

// Add appends host unless already present.
func (l *HostList) Add(host string) []string {
	l.Lock()
	if !contains(l.hosts, host) {
		l.hosts = append(l.hosts, host)
	}
	l.Unlock()

	return l.List()
}

// Remove removes host if present.
func (l *HostList) Remove(host string) []string {
	l.Lock()
	for i, h := range l.hosts {
		if h == host {
			l.hosts = append(l.hosts[:i], l.hosts[i+1:]...)
			break
		}
	}
	l.Unlock()

	return l.List()
}

func contains(hosts []string, host string) bool {
	for _, h := range hosts {
		if h == host {
			return true
		}
	}

	return false
}
