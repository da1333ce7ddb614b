// Package ratefence provides per-client request rate limiting for Go services.
//
// The core is a fixed-window tracker: time is divided into consecutive
// windows of a configured length, each client gets a request budget per
// window, and all counters are discarded when a window rolls over. A
// denied request comes back with the exact number of seconds until the
// window resets, so callers can return a precise Retry-After.
//
// Clients are identified by their IPv4 address packed into a 32-bit
// ClientID. The zero id is reserved as "unidentifiable": the tracker
// never counts it, and the middleware rejects such requests with 503
// rather than letting them bypass the limit silently.
//
// # Quick start
//
//	limiter, err := ratefence.NewLimiter(
//	    ratefence.WithPolicy(ratefence.Policy{Requests: 100, Period: 3600}),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	wait := limiter.Admit(ratefence.ParseClientID("203.0.113.7"))
//	if wait > 0 {
//	    fmt.Printf("denied, retry in %d seconds\n", wait)
//	}
//
// # HTTP middleware
//
//	http.Handle("/", limiter.Middleware(yourHandler))
//
// The middleware sets X-RateLimit-Limit on every response and
// Retry-After on 429s.
//
// # Selective tracking
//
// By default every client is limited. Once one or more clients are
// registered with AddTrackedClient (or the tracked_clients config
// list), only those clients are limited; everyone else passes through
// uncounted. This is deliberate: it lets an operator fence off a known
// noisy client without touching the rest of the traffic.
//
// # Configuration
//
// Example YAML configuration:
//
//	listen: ":9980"
//	limit:
//	  requests: 100
//	  period_seconds: 3600
//	extractor: remote-addr
//	tracked_clients:
//	  - 203.0.113.7
//
// # Algorithm notes
//
// Fixed windows admit up to twice the configured budget across a
// window boundary (a burst at the end of one window plus a burst at
// the start of the next). A sliding-window correction that weighs the
// previous window's count is a known refinement, but it is not what
// this package implements; the fixed-window behavior documented here
// is the contract.
package ratefence
