package access

import (
	"net"
	"strings"
)

const RuleSubnet = "subnet"

// subnetRule denies access to clients outside the quiz's allowed networks.
// The allowed-subnet setting is a comma-separated list of CIDR blocks, exact
// addresses, or address prefixes ("192.168.").
type subnetRule struct {
	baseRule
	allowed  []string
	clientIP string
}

func newSubnetRule(env Env) Rule {
	raw := strings.TrimSpace(env.Effective.AllowedSubnet)
	if raw == "" {
		return nil
	}
	var allowed []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			allowed = append(allowed, part)
		}
	}
	return &subnetRule{allowed: allowed, clientIP: env.Principal.ClientIP}
}

func (r *subnetRule) Name() string { return RuleSubnet }

func (r *subnetRule) Description() string {
	return "This quiz is only available from certain locations on the network"
}

func (r *subnetRule) PreventAccess() []string {
	if ipMatchesAny(r.clientIP, r.allowed) {
		return nil
	}
	return []string{"This quiz is not available from your current network address"}
}

func ipMatchesAny(addr string, allowed []string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, entry := range allowed {
		if strings.Contains(entry, "/") {
			if _, cidr, err := net.ParseCIDR(entry); err == nil && cidr.Contains(ip) {
				return true
			}
			continue
		}
		if other := net.ParseIP(entry); other != nil {
			if other.Equal(ip) {
				return true
			}
			continue
		}
		// Bare prefix, e.g. "10.0." matches 10.0.x.x.
		if strings.HasPrefix(addr, entry) {
			return true
		}
	}
	return false
}
