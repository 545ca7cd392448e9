// Package acl implements ordered permit/deny address rules and the
// permit-host fallback used to gate station registration.
package acl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"strconv"
	"strings"
)

// ErrInvalidRule is returned for rules that cannot be parsed.
var ErrInvalidRule = errors.New("invalid acl rule")

// Rule is one permit or deny entry.
type Rule struct {
	Permit bool
	Prefix netip.Prefix
}

// String formats the rule as "permit 10.0.0.0/8".
func (r Rule) String() string {
	sense := "deny"
	if r.Permit {
		sense = "permit"
	}
	return sense + " " + r.Prefix.String()
}

// List is an ordered rule list. The last matching rule decides; an address
// no rule matches is denied. A nil or empty List allows everything.
type List struct {
	rules []Rule
}

// Parse builds a List from "permit"/"deny" entries in order.
func Parse(entries []Entry) (*List, error) {
	l := &List{}
	for _, e := range entries {
		if err := l.Append(e.Sense, e.Network); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Entry is the configuration form of a Rule.
type Entry struct {
	Sense   string `yaml:"sense"`
	Network string `yaml:"network"`
}

// Append adds a rule. network is an address, an address/bits prefix or an
// address/dotted-mask pair. Any sense starting with "p" permits.
func (l *List) Append(sense, network string) error {
	prefix, err := parseNetwork(network)
	if err != nil {
		return err
	}
	l.rules = append(l.rules, Rule{
		Permit: strings.HasPrefix(strings.ToLower(strings.TrimSpace(sense)), "p"),
		Prefix: prefix,
	})
	return nil
}

// Rules returns a copy of the rules.
func (l *List) Rules() []Rule {
	if l == nil {
		return nil
	}
	return append([]Rule(nil), l.rules...)
}

// Empty reports whether the list has no rules.
func (l *List) Empty() bool { return l == nil || len(l.rules) == 0 }

// Allow applies the rules to ip.
func (l *List) Allow(ip netip.Addr) bool {
	if l.Empty() {
		return true
	}
	ip = ip.Unmap()
	allowed := false
	for _, r := range l.rules {
		if r.Prefix.Contains(ip) {
			allowed = r.Permit
		}
	}
	return allowed
}

// String lists the rules separated by commas.
func (l *List) String() string {
	parts := make([]string, 0, len(l.Rules()))
	for _, r := range l.Rules() {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, ", ")
}

func parseNetwork(network string) (netip.Prefix, error) {
	network = strings.TrimSpace(network)
	addrPart, maskPart, hasMask := strings.Cut(network, "/")

	addr, err := netip.ParseAddr(addrPart)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("%w: %q: %v", ErrInvalidRule, network, err)
	}
	addr = addr.Unmap()
	bits := addr.BitLen()

	if hasMask {
		if strings.Contains(maskPart, ".") {
			bits, err = maskBits(maskPart)
		} else {
			bits, err = strconv.Atoi(maskPart)
			if err == nil && (bits < 0 || bits > addr.BitLen()) {
				err = fmt.Errorf("prefix length %d out of range", bits)
			}
		}
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("%w: %q: %v", ErrInvalidRule, network, err)
		}
	}
	return addr.Prefix(bits)
}

func maskBits(mask string) (int, error) {
	m, err := netip.ParseAddr(mask)
	if err != nil || !m.Is4() {
		return 0, fmt.Errorf("bad mask %q", mask)
	}
	b := m.As4()
	v := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	ones := 0
	for v&0x80000000 != 0 {
		ones++
		v <<= 1
	}
	if v != 0 {
		return 0, fmt.Errorf("non-contiguous mask %q", mask)
	}
	return ones, nil
}

// Resolver looks up host names. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Decision is the outcome of a device check.
type Decision struct {
	Allowed bool

	// MatchedHost is the permit host that admitted the address, if any.
	MatchedHost string

	// Skipped lists permit hosts that did not resolve.
	Skipped []string
}

// CheckDevice applies a device rule list with permit-host fallback: if
// rules deny ip, each permit host is resolved in order and ip is allowed
// when it matches one. Hosts that fail to resolve are skipped with a
// warning. A device without rules allows every address.
func CheckDevice(ctx context.Context, rules *List, permitHosts []string, ip netip.Addr, r Resolver, logger *slog.Logger) Decision {
	if rules.Empty() || rules.Allow(ip) {
		return Decision{Allowed: true}
	}
	ip = ip.Unmap()

	var d Decision
	for _, host := range permitHosts {
		addrs, err := r.LookupHost(ctx, host)
		if err != nil || len(addrs) == 0 {
			if logger != nil {
				logger.Warn("permit host did not resolve, skipping", "host", host, "err", err)
			}
			d.Skipped = append(d.Skipped, host)
			continue
		}
		for _, a := range addrs {
			if resolved, perr := netip.ParseAddr(a); perr == nil && resolved.Unmap() == ip {
				d.Allowed = true
				d.MatchedHost = host
				return d
			}
		}
	}
	return d
}
