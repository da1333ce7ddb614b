package ratefence

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// ClientID identifies a requester by its IPv4 address packed into a
// 32-bit integer, big-endian: "127.0.0.1" becomes 0x7F000001.
// The zero value is reserved as "no valid client identity" and is
// never entered into tracker state.
type ClientID uint32

var ipv4Pattern = regexp.MustCompile(`\b([0-9]{1,3})\.([0-9]{1,3})\.([0-9]{1,3})\.([0-9]{1,3})\b`)

// ParseClientID scans addr for the first IPv4 dotted quad and packs
// its octets into a ClientID. It accepts any "host:port" or free-form
// text containing a dotted quad; everything without one (IPv6
// literals, hostnames, empty strings) yields the sentinel 0.
//
// Octets are matched by digit count only, not range: a value like
// "999" is masked to its low byte rather than rejected. IPv6 is not
// supported.
//
// ParseClientID is pure and safe to call from any number of
// goroutines without synchronization.
func ParseClientID(addr string) ClientID {
	m := ipv4Pattern.FindStringSubmatch(addr)
	if m == nil {
		return 0
	}

	var id ClientID
	for _, octet := range m[1:] {
		n, err := strconv.Atoi(octet)
		if err != nil {
			return 0
		}
		id = id<<8 | ClientID(n&0xFF)
	}
	return id
}

// String renders the id as a dotted quad. The sentinel renders as
// "unidentified".
func (id ClientID) String() string {
	if id == 0 {
		return "unidentified"
	}
	return fmt.Sprintf("%d.%d.%d.%d", byte(id>>24), byte(id>>16), byte(id>>8), byte(id))
}

// Extractor derives a ClientID from an HTTP request. Implementations
// return the sentinel 0 when no identity can be derived.
type Extractor func(*http.Request) ClientID

// FromRemoteAddr returns an Extractor that identifies clients by the
// connection's remote address. This is the right choice when clients
// connect directly, without a reverse proxy in between.
func FromRemoteAddr() Extractor {
	return func(r *http.Request) ClientID {
		return ParseClientID(r.RemoteAddr)
	}
}

// FromProxyHeaders returns an Extractor that considers proxy headers.
// It checks X-Forwarded-For (first hop) and X-Real-IP before falling
// back to RemoteAddr. Use this when the service sits behind a reverse
// proxy or load balancer, and only when those headers are trustworthy.
func FromProxyHeaders() Extractor {
	return func(r *http.Request) ClientID {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// X-Forwarded-For can be a comma-separated chain; the
			// first entry is the original client.
			first := strings.TrimSpace(strings.Split(xff, ",")[0])
			if id := ParseClientID(first); id != 0 {
				return id
			}
		}

		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			if id := ParseClientID(xri); id != 0 {
				return id
			}
		}

		return ParseClientID(r.RemoteAddr)
	}
}

// ParseExtractorConfig creates an Extractor from a configuration
// string. Supported values:
//   - "remote-addr" (also the empty string) -> FromRemoteAddr()
//   - "proxy" -> FromProxyHeaders()
func ParseExtractorConfig(config string) (Extractor, error) {
	switch config {
	case "", "remote-addr":
		return FromRemoteAddr(), nil

	case "proxy":
		return FromProxyHeaders(), nil

	default:
		return nil, fmt.Errorf("%w: unknown extractor type: %s", ErrInvalidConfig, config)
	}
}
