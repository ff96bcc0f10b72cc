// Package discovery advertises the prediction dashboard over mDNS and finds
// dashboards advertised by other hosts.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/grandcat/zeroconf"
	"github.com/teslashibe/go-roulette/internal/log"
	"github.com/teslashibe/go-roulette/internal/version"
)

const (
	// ServiceType is the DNS-SD service type of the dashboard.
	ServiceType = "_roulette._tcp"
	// Domain is the mDNS domain.
	Domain = "local."
)

// Advertiser registers the dashboard as an mDNS service.
type Advertiser struct {
	instance string
	port     int
	txt      []string
	logger   *slog.Logger

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAdvertiser prepares an advert for a dashboard on port. The instance
// name defaults to "<hostname>-roulette".
func NewAdvertiser(instance string, port int, sessionID string) *Advertiser {
	if instance == "" {
		host, _ := os.Hostname()
		instance = fmt.Sprintf("%s-roulette", host)
	}
	return &Advertiser{
		instance: instance,
		port:     port,
		txt:      TXTRecords(sessionID),
		logger:   log.Component("discovery"),
	}
}

// TXTRecords returns the metadata published with the service.
func TXTRecords(sessionID string) []string {
	txt := []string{
		"version=" + version.Version,
		"api=/api",
		"stream=/ws/predictions",
	}
	if sessionID != "" {
		txt = append(txt, "session="+sessionID)
	}
	return txt
}

// Instance returns the advertised instance name.
func (a *Advertiser) Instance() string {
	return a.instance
}

// Start registers the service on all interfaces. Calling it twice is a no-op.
func (a *Advertiser) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server != nil {
		return nil
	}

	server, err := zeroconf.Register(a.instance, ServiceType, Domain, a.port, a.txt, nil)
	if err != nil {
		return fmt.Errorf("discovery: register %s: %w", a.instance, err)
	}
	a.server = server
	a.logger.Info("advertising dashboard", "instance", a.instance, "type", ServiceType, "port", a.port)
	return nil
}

// Stop withdraws the advert.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
	a.logger.Info("advert withdrawn", "instance", a.instance)
}

// Dashboard is a dashboard found on the network.
type Dashboard struct {
	Instance string            `json:"instance"`
	Host     string            `json:"host"`
	Addrs    []string          `json:"addrs"`
	Port     int               `json:"port"`
	Meta     map[string]string `json:"meta"`
}

// URL returns the base HTTP URL of the dashboard.
func (d Dashboard) URL() string {
	host := d.Host
	if len(d.Addrs) > 0 {
		host = d.Addrs[0]
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(d.Port))
}

// Browse lists dashboards until ctx is done. Use a timeout context.
func Browse(ctx context.Context) ([]Dashboard, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("discovery: resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var found []Dashboard
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case e, ok := <-entries:
				if !ok {
					return
				}
				found = append(found, fromEntry(e))
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, Domain, entries); err != nil {
		return nil, fmt.Errorf("discovery: browse: %w", err)
	}
	<-ctx.Done()
	<-done

	sort.Slice(found, func(i, j int) bool { return found[i].Instance < found[j].Instance })
	return found, nil
}

func fromEntry(e *zeroconf.ServiceEntry) Dashboard {
	d := Dashboard{
		Instance: e.Instance,
		Host:     e.HostName,
		Port:     e.Port,
		Meta:     ParseTXT(e.Text),
	}
	for _, ip := range e.AddrIPv4 {
		d.Addrs = append(d.Addrs, ip.String())
	}
	for _, ip := range e.AddrIPv6 {
		d.Addrs = append(d.Addrs, ip.String())
	}
	return d
}

// ParseTXT turns key=value records into a map. Records without '=' map to "".
func ParseTXT(records []string) map[string]string {
	out := make(map[string]string, len(records))
	for _, r := range records {
		k, v, _ := strings.Cut(r, "=")
		if k != "" {
			out[k] = v
		}
	}
	return out
}

// PortFromAddr extracts the port of a listen address such as ":8080".
func PortFromAddr(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("discovery: parse addr %q: %w", addr, err)
	}
	port, err := strconv.Atoi(p)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("discovery: invalid port in %q", addr)
	}
	return port, nil
}
