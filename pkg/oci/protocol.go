package oci

import "strings"

// Protocol is the transport used to reach a registry
type Protocol int

const (
	// ProtocolHTTPS talks to the registry over TLS. It is the zero value.
	ProtocolHTTPS Protocol = iota
	// ProtocolHTTP talks to the registry in plaintext
	ProtocolHTTP
)

// String returns the scheme name of the protocol
func (p Protocol) String() string {
	if p == ProtocolHTTP {
		return "http"
	}
	return "https"
}

// ParseProtocol maps a configured protocol string to a Protocol.
// Only the exact string "http" selects plaintext; everything else, including
// the empty string and typos, resolves to HTTPS.
func ParseProtocol(s string) Protocol {
	if s == "http" {
		return ProtocolHTTP
	}
	return ProtocolHTTPS
}

// IsKnownProtocol reports whether s is empty, "http" or "https"
func IsKnownProtocol(s string) bool {
	switch s {
	case "", "http", "https":
		return true
	}
	return false
}

// normalizeHost lowercases a registry host and strips any scheme or path
func normalizeHost(host string) string {
	host = strings.TrimSpace(strings.ToLower(host))
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	if idx := strings.Index(host, "/"); idx > 0 {
		host = host[:idx]
	}
	return host
}
