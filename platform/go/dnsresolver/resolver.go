package dnsresolver

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

// DefaultTimeout bounds a single lookup when Config.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// Record types reported to observers.
const (
	RecordTXT   = "TXT"
	RecordCNAME = "CNAME"
)

// Config selects the upstream server and the per-lookup timeout.
type Config struct {
	Timeout time.Duration `env:"DNS_LOOKUP_TIMEOUT" envDefault:"5s"`
	// Server is an optional host:port; empty uses the system resolver.
	Server string `env:"DNS_SERVER"`
}

// Observer is notified after every lookup.
type Observer interface {
	ObserveLookup(recordType string, duration time.Duration, err error)
}

type lookuper interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
	LookupCNAME(ctx context.Context, host string) (string, error)
}

// Resolver performs single best-effort TXT and CNAME lookups. It never retries.
type Resolver struct {
	lookup   lookuper
	timeout  time.Duration
	observer Observer
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithObserver reports lookup latency and outcome.
func WithObserver(o Observer) Option {
	return func(r *Resolver) { r.observer = o }
}

// New builds a Resolver on top of net.Resolver.
func New(cfg Config, opts ...Option) *Resolver {
	nr := &net.Resolver{}
	if cfg.Server != "" {
		server := cfg.Server
		nr = &net.Resolver{
			PreferGo: true,
			Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, server)
			},
		}
	}
	return newResolver(nr, cfg.Timeout, opts...)
}

func newResolver(l lookuper, timeout time.Duration, opts ...Option) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	r := &Resolver{lookup: l, timeout: timeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LookupTXT returns one chunk group per TXT record. net.Resolver already joins the
// character-strings of a record, so every group holds a single value.
func (r *Resolver) LookupTXT(ctx context.Context, name string) ([][]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	records, err := r.lookup.LookupTXT(ctx, name)
	r.observe(RecordTXT, start, err)
	if err != nil {
		return nil, err
	}

	out := make([][]string, 0, len(records))
	for _, record := range records {
		out = append(out, []string{record})
	}
	return out, nil
}

// LookupCNAME returns the canonical name of host without the trailing root dot.
// A host without a CNAME record yields an empty list.
func (r *Resolver) LookupCNAME(ctx context.Context, host string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	canonical, err := r.lookup.LookupCNAME(ctx, host)
	r.observe(RecordCNAME, start, err)
	if err != nil {
		return nil, err
	}

	canonical = strings.TrimSuffix(canonical, ".")
	if canonical == "" || strings.EqualFold(canonical, strings.TrimSuffix(host, ".")) {
		return []string{}, nil
	}
	return []string{canonical}, nil
}

func (r *Resolver) observe(recordType string, start time.Time, err error) {
	if r.observer != nil {
		r.observer.ObserveLookup(recordType, time.Since(start), err)
	}
}

// IsNotFound reports whether err means the name or record does not exist.
func IsNotFound(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr) && dnsErr.IsNotFound
}
