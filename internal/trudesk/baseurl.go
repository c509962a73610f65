package trudesk

import (
	"net"
	"net/url"
	"strings"
)

// BlockedCIDRs contains private/internal IP ranges a helpdesk host may not
// resolve to unless private hosts are explicitly allowed.
var BlockedCIDRs = []string{
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"169.254.0.0/16", // Link-local
	"0.0.0.0/8",      // This network
	"::1/128",        // IPv6 loopback
	"fc00::/7",       // IPv6 private
	"fe80::/10",      // IPv6 link-local
}

var blockedNetworks []*net.IPNet

func init() {
	for _, cidr := range BlockedCIDRs {
		_, network, err := net.ParseCIDR(cidr)
		if err == nil {
			blockedNetworks = append(blockedNetworks, network)
		}
	}
}

// ValidateBaseURL checks a helpdesk base URL before it is stored or called.
// Self-hosted instances commonly listen on custom ports so any port is
// accepted. With allowPrivate unset, loopback and private addresses are
// rejected.
func ValidateBaseURL(baseURL string, allowPrivate bool) error {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return ErrInvalidURL
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ErrInvalidScheme
	}

	host := parsed.Hostname()
	if host == "" {
		return ErrEmptyHost
	}

	if parsed.User != nil {
		return ErrUserInfo
	}

	if allowPrivate {
		return nil
	}

	if isLocalhostHostname(host) {
		return ErrLocalhostBlocked
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return ErrPrivateIP
		}
		return nil
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		// Unresolvable hosts fail later at call time.
		return nil
	}
	for _, ip := range ips {
		if isBlockedIP(ip) {
			return ErrPrivateIP
		}
	}

	return nil
}

func isLocalhostHostname(host string) bool {
	host = strings.ToLower(host)
	return host == "localhost" ||
		strings.HasSuffix(host, ".localhost") ||
		strings.HasSuffix(host, ".local")
}

func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// ExtractHost extracts host from URL for safe logging.
func ExtractHost(baseURL string) string {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "(invalid)"
	}
	return parsed.Host
}
