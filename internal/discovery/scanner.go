// Package discovery scans the local network for hosts that accept RTSP
// connections. Results are suggestions only and are never imported
// automatically.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/smazurov/streamctl/internal/logging"
	"github.com/smazurov/streamctl/internal/streams"
)

// Defaults match a typical home network camera setup.
const (
	DefaultPort        = 554
	DefaultConcurrency = 50
	DefaultPath        = "/stream"

	// maxHosts bounds the size of a scanned subnet (a /22).
	maxHosts = 1024
)

// DialFunc opens a connection. net.Dialer.DialContext satisfies it.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Options configures a Scanner.
type Options struct {
	// Subnet is a CIDR to scan. Empty means the /24 of the first
	// non-loopback IPv4 interface address.
	Subnet      string
	Port        int
	Concurrency int
	Dial        DialFunc
}

// Scanner implements streams.Scanner with TCP connect probes.
type Scanner struct {
	subnet      string
	port        int
	concurrency int
	dial        DialFunc
	logger      *slog.Logger
}

// New creates a scanner.
func New(opts Options) *Scanner {
	if opts.Port <= 0 {
		opts.Port = DefaultPort
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Dial == nil {
		var d net.Dialer
		opts.Dial = d.DialContext
	}
	return &Scanner{
		subnet:      opts.Subnet,
		port:        opts.Port,
		concurrency: opts.Concurrency,
		dial:        opts.Dial,
		logger:      logging.GetLogger("discovery"),
	}
}

// Scan dials every host of the subnet with a per-host timeout and returns
// those that accepted, ordered by address. The local address is skipped.
func (s *Scanner) Scan(ctx context.Context, timeout time.Duration) ([]streams.DiscoveredSource, error) {
	if timeout <= 0 {
		timeout = streams.DefaultDiscoveryTimeout
	}

	prefix, self, err := s.target()
	if err != nil {
		return nil, err
	}
	hosts, err := Hosts(prefix)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Scanning for RTSP sources", "subnet", prefix.String(), "port", s.port, "hosts", len(hosts))

	var (
		mu    sync.Mutex
		found []netip.Addr
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, host := range hosts {
		if host == self {
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			dialCtx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()

			conn, dialErr := s.dial(dialCtx, "tcp", net.JoinHostPort(host.String(), strconv.Itoa(s.port)))
			if dialErr != nil {
				return nil
			}
			conn.Close()

			mu.Lock()
			found = append(found, host)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(found, func(a, b netip.Addr) int { return a.Compare(b) })
	out := make([]streams.DiscoveredSource, 0, len(found))
	for _, host := range found {
		out = append(out, streams.DiscoveredSource{
			Address: host.String(),
			URL:     SuggestURL(host.String(), s.port),
		})
	}

	s.logger.Info("Scan finished", "found", len(out))
	return out, nil
}

// SuggestURL guesses a connection URL for a host that answered.
func SuggestURL(host string, port int) string {
	return "rtsp://" + net.JoinHostPort(host, strconv.Itoa(port)) + DefaultPath
}

// target resolves the prefix to scan and the local address to skip.
func (s *Scanner) target() (netip.Prefix, netip.Addr, error) {
	if s.subnet != "" {
		prefix, err := netip.ParsePrefix(s.subnet)
		if err != nil {
			return netip.Prefix{}, netip.Addr{}, fmt.Errorf("invalid discovery subnet %q: %w", s.subnet, err)
		}
		return prefix.Masked(), netip.Addr{}, nil
	}

	self, err := localIPv4()
	if err != nil {
		return netip.Prefix{}, netip.Addr{}, err
	}
	prefix, err := self.Prefix(24)
	if err != nil {
		return netip.Prefix{}, netip.Addr{}, err
	}
	return prefix, self, nil
}

// Hosts lists the usable IPv4 host addresses of prefix.
func Hosts(prefix netip.Prefix) ([]netip.Addr, error) {
	if !prefix.Addr().Is4() {
		return nil, errors.New("only IPv4 subnets can be scanned")
	}
	bits := 32 - prefix.Bits()
	if bits > 10 {
		return nil, fmt.Errorf("subnet %s is larger than %d hosts", prefix, maxHosts)
	}
	if bits < 2 {
		return []netip.Addr{prefix.Addr()}, nil
	}

	size := 1 << bits
	hosts := make([]netip.Addr, 0, size-2)
	addr := prefix.Masked().Addr().Next()
	for range size - 2 {
		hosts = append(hosts, addr)
		addr = addr.Next()
	}
	return hosts, nil
}

func localIPv4() (netip.Addr, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return netip.Addr{}, err
	}
	for _, address := range addrs {
		ipNet, ok := address.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			addr, _ := netip.AddrFromSlice(ip4)
			return addr, nil
		}
	}
	return netip.Addr{}, errors.New("no valid local IPv4 address found")
}
