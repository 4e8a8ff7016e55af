package policy

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// Resolver looks up the addresses of a host. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// extraBlockedNets are non-public ranges that net.IP has no predicate for.
var extraBlockedNets = mustParseCIDRs(
	"0.0.0.0/8",     // "this" network
	"100.64.0.0/10", // carrier-grade NAT
	"192.0.0.0/24",  // IETF protocol assignments
	"198.18.0.0/15", // benchmarking
	"240.0.0.0/4",   // reserved, includes broadcast
)

// Guard rejects URLs that could reach internal infrastructure.
//
// It is applied three times per request: CheckURL on the literal URL,
// CheckHost on the DNS answer, and Control on the address actually dialed.
// The last check closes the gap between resolution and connection, and it
// also covers every redirect hop because each hop dials again.
type Guard struct {
	allowPrivate bool
	resolver     Resolver
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithAllowPrivate disables the address checks. Scheme checks still apply.
func WithAllowPrivate(allow bool) GuardOption {
	return func(g *Guard) {
		g.allowPrivate = allow
	}
}

// WithResolver replaces the DNS resolver used by CheckHost.
func WithResolver(r Resolver) GuardOption {
	return func(g *Guard) {
		g.resolver = r
	}
}

// NewGuard creates a Guard that blocks private networks.
func NewGuard(opts ...GuardOption) *Guard {
	g := &Guard{resolver: net.DefaultResolver}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AllowsPrivate reports whether address checks are disabled.
func (g *Guard) AllowsPrivate() bool {
	return g.allowPrivate
}

// Check runs CheckURL and then CheckHost.
func (g *Guard) Check(ctx context.Context, u *url.URL) error {
	if err := g.CheckURL(u); err != nil {
		return err
	}
	return g.CheckHost(ctx, u.Hostname())
}

// CheckURL validates the literal URL without touching the network.
func (g *Guard) CheckURL(u *url.URL) error {
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("%w: %w: %q", ErrBlocked, ErrDisallowedScheme, u.Scheme)
	}
	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if host == "" {
		return fmt.Errorf("%w: %w: empty host", ErrBlocked, ErrDisallowedHost)
	}
	if g.allowPrivate {
		return nil
	}
	if isLocalName(host) {
		return fmt.Errorf("%w: %w: %s", ErrBlocked, ErrDisallowedHost, host)
	}
	if ip := net.ParseIP(host); ip != nil && IsBlockedIP(ip) {
		return fmt.Errorf("%w: %w: %s", ErrBlocked, ErrDisallowedAddress, ip)
	}
	return nil
}

// CheckHost resolves host and fails if any returned address is blocked.
// Resolution failures are returned unwrapped so callers can record them as
// network errors.
func (g *Guard) CheckHost(ctx context.Context, host string) error {
	if g.allowPrivate {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil {
		if IsBlockedIP(ip) {
			return fmt.Errorf("%w: %w: %s", ErrBlocked, ErrDisallowedAddress, ip)
		}
		return nil
	}

	addrs, err := g.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", host, err)
	}
	for _, addr := range addrs {
		if IsBlockedIP(addr.IP) {
			return fmt.Errorf("%w: %w: %s resolves to %s", ErrBlocked, ErrDisallowedAddress, host, addr.IP)
		}
	}
	return nil
}

// Control is a net.Dialer Control hook. It sees the resolved address of every
// connection, including connections made for redirects.
func (g *Guard) Control(_, address string, _ syscall.RawConn) error {
	if g.allowPrivate {
		return nil
	}
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %w: %s", ErrBlocked, ErrDisallowedAddress, address)
	}
	ip := net.ParseIP(host)
	if ip == nil || IsBlockedIP(ip) {
		return fmt.Errorf("%w: %w: %s", ErrBlocked, ErrDisallowedAddress, address)
	}
	return nil
}

// IsBlockedIP reports whether ip is loopback, private, link-local,
// unspecified, multicast or otherwise not publicly routable.
func IsBlockedIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() {
		return true
	}
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	for _, n := range extraBlockedNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func isLocalName(host string) bool {
	return host == "localhost" ||
		strings.HasSuffix(host, ".localhost") ||
		strings.HasSuffix(host, ".local") ||
		strings.HasSuffix(host, ".internal")
}

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}
