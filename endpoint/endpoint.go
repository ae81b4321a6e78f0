// Package endpoint defines the immutable address value type shared by
// every endpoint group and selection strategy in endpointkit.
package endpoint

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ErrInvalidAddress is returned by Parse and the With* constructors
// when an endpoint text form or field value cannot be represented.
var ErrInvalidAddress = errors.New("endpointkit/endpoint: invalid address")

// Attributes is opaque typed metadata attached to an Endpoint, such as
// a health classification ("healthy"/"degraded"). It participates in
// neither structural equality nor hashing.
type Attributes map[string]any

// Endpoint is an immutable host/port value, optionally carrying a
// resolved IP literal, a selection weight, and opaque attributes.
//
// Equality (Equal) is structural over host/ipAddr/port only; weight
// and attributes are excluded, though selectors treat a weight change
// as an observable update at the EndpointGroup layer (see
// endpointgroup.EqualMultiset).
type Endpoint struct {
	host       string
	ipAddr     string
	port       int
	weight     int
	attributes Attributes
}

// Of builds an Endpoint from a bare host and optional port. A port of
// 0 means "unspecified", falling back to the caller's scheme default.
func Of(host string, port int) (Endpoint, error) {
	if host == "" {
		return Endpoint{}, fmt.Errorf("%w: empty host", ErrInvalidAddress)
	}
	if strings.ContainsAny(host, " \t\r\n") {
		return Endpoint{}, fmt.Errorf("%w: host %q contains whitespace", ErrInvalidAddress, host)
	}
	if port < 0 || port > 65535 {
		return Endpoint{}, fmt.Errorf("%w: port %d out of range", ErrInvalidAddress, port)
	}
	e := Endpoint{host: host, port: port, weight: 1}
	if ip := net.ParseIP(stripBrackets(host)); ip != nil {
		e.ipAddr = ip.String()
	}
	return e, nil
}

// MustOf is Of, panicking on error. Intended for static tables and
// tests, not for parsing untrusted input.
func MustOf(host string, port int) Endpoint {
	e, err := Of(host, port)
	if err != nil {
		panic(err)
	}
	return e
}

// Parse accepts "host", "host:port", "[ipv6]:port", an IPv4 literal
// with or without a port, or a bare hostname, case-insensitive on the
// hostname. Ports outside [1, 65535] fail with ErrInvalidAddress.
func Parse(text string) (Endpoint, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Endpoint{}, fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}
	if strings.ContainsAny(text, " \t\r\n") {
		return Endpoint{}, fmt.Errorf("%w: address %q contains whitespace", ErrInvalidAddress, text)
	}

	host, portStr, err := splitHostPort(text)
	if err != nil {
		return Endpoint{}, err
	}

	port := 0
	if portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil || p < 1 || p > 65535 {
			return Endpoint{}, fmt.Errorf("%w: port %q out of range in %q", ErrInvalidAddress, portStr, text)
		}
		port = p
	}

	if host == "" {
		return Endpoint{}, fmt.Errorf("%w: empty host in %q", ErrInvalidAddress, text)
	}

	e := Endpoint{host: host, port: port, weight: 1}
	if ip := net.ParseIP(host); ip != nil {
		e.ipAddr = ip.String()
		e.host = strings.ToLower(host)
	} else {
		e.host = strings.ToLower(host)
	}
	return e, nil
}

// splitHostPort understands bracketed IPv6, IPv4-with-port, bare IPv4,
// hostname-with-port, and bare hostname forms.
func splitHostPort(text string) (host, port string, err error) {
	if strings.HasPrefix(text, "[") {
		idx := strings.Index(text, "]")
		if idx < 0 {
			return "", "", fmt.Errorf("%w: unterminated IPv6 literal in %q", ErrInvalidAddress, text)
		}
		host = text[1:idx]
		rest := text[idx+1:]
		if rest == "" {
			return host, "", nil
		}
		if !strings.HasPrefix(rest, ":") {
			return "", "", fmt.Errorf("%w: malformed address %q", ErrInvalidAddress, text)
		}
		return host, rest[1:], nil
	}

	// Bare IPv6 (no port possible to disambiguate) has >1 colon.
	if strings.Count(text, ":") > 1 {
		if net.ParseIP(text) == nil {
			return "", "", fmt.Errorf("%w: ambiguous address %q", ErrInvalidAddress, text)
		}
		return text, "", nil
	}

	if idx := strings.LastIndex(text, ":"); idx >= 0 {
		return text[:idx], text[idx+1:], nil
	}
	return text, "", nil
}

func stripBrackets(host string) string {
	return strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
}

// Host returns the configured hostname or IP literal text: as given to
// Of, or lower-cased by Parse.
func (e Endpoint) Host() string { return e.host }

// IPAddr returns the resolved IP literal, if Host was itself an IP
// literal, or the empty string otherwise.
func (e Endpoint) IPAddr() string { return e.ipAddr }

// HasIPAddr reports whether Host is a literal IP address.
func (e Endpoint) HasIPAddr() bool { return e.ipAddr != "" }

// Port returns the configured port, or 0 if unspecified.
func (e Endpoint) Port() int { return e.port }

// Weight returns the selection weight. 0 means the endpoint exists
// but is never selected by a weighted strategy.
func (e Endpoint) Weight() int { return e.weight }

// Attributes returns the opaque attribute map, which may be nil.
func (e Endpoint) Attributes() Attributes { return e.attributes }

// IsValid reports whether the endpoint has a usable host.
func (e Endpoint) IsValid() bool { return e.host != "" }

// WithWeight returns a copy with a new weight. Negative weights are
// rejected.
func (e Endpoint) WithWeight(w int) (Endpoint, error) {
	if w < 0 {
		return Endpoint{}, fmt.Errorf("%w: negative weight %d", ErrInvalidAddress, w)
	}
	c := e
	c.weight = w
	return c, nil
}

// WithIPAddr returns a copy with the ipAddr field replaced. This is an
// identity-affecting field: the returned endpoint compares unequal to
// e under Equal.
func (e Endpoint) WithIPAddr(ip string) (Endpoint, error) {
	if ip != "" && net.ParseIP(ip) == nil {
		return Endpoint{}, fmt.Errorf("%w: invalid IP %q", ErrInvalidAddress, ip)
	}
	c := e
	c.ipAddr = ip
	return c, nil
}

// WithAttributes returns a copy carrying the given attributes.
// Attributes do not affect Equal.
func (e Endpoint) WithAttributes(attrs Attributes) Endpoint {
	c := e
	c.attributes = attrs
	return c
}

// Authority renders "host[:port]", bracket-escaping IPv6 literals.
func (e Endpoint) Authority() string {
	if e.port == 0 {
		if strings.Contains(e.host, ":") {
			return "[" + e.host + "]"
		}
		return e.host
	}
	// JoinHostPort brackets a colon-containing host itself; pass the
	// raw host rather than pre-bracketing it.
	return net.JoinHostPort(e.host, strconv.Itoa(e.port))
}

// String implements fmt.Stringer as Authority with the weight
// appended when non-default, matching the file-watched text form.
func (e Endpoint) String() string {
	if e.weight != 1 {
		return fmt.Sprintf("%s#%d", e.Authority(), e.weight)
	}
	return e.Authority()
}

// Equal reports structural equality over host/ipAddr/port only;
// weight and attributes are excluded per the data model.
func (e Endpoint) Equal(o Endpoint) bool {
	return e.host == o.host && e.ipAddr == o.ipAddr && e.port == o.port
}

// EqualWithWeight additionally compares weight, used by
// EndpointGroup.setEndpoints to decide whether a republished snapshot
// is an observable change.
func (e Endpoint) EqualWithWeight(o Endpoint) bool {
	return e.Equal(o) && e.weight == o.weight
}
