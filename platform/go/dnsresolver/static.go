package dnsresolver

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// StaticRecords are the answers served for one name.
type StaticRecords struct {
	TXT   []string `yaml:"txt"`
	CNAME []string `yaml:"cname"`
}

// Static answers lookups from an in-memory table. It backs local runs and demos where
// publishing real DNS records is impractical.
type Static struct {
	mu      sync.RWMutex
	records map[string]StaticRecords
}

// NewStatic builds a Static resolver; names are matched case-insensitively.
func NewStatic(records map[string]StaticRecords) *Static {
	s := &Static{records: make(map[string]StaticRecords, len(records))}
	for name, rec := range records {
		s.records[normalizeName(name)] = rec
	}
	return s
}

// LoadStaticFile reads a YAML document mapping names to records:
//
//	acme.io:
//	  txt: ["key123=<token>"]
//	  cname: ["svc.example.com"]
func LoadStaticFile(path string) (*Static, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dns fixtures: %w", err)
	}

	var records map[string]StaticRecords
	if err := yaml.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parse dns fixtures: %w", err)
	}
	return NewStatic(records), nil
}

// Set replaces the records served for name.
func (s *Static) Set(name string, rec StaticRecords) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[normalizeName(name)] = rec
}

func (s *Static) LookupTXT(_ context.Context, name string) ([][]string, error) {
	rec, ok := s.get(name)
	if !ok || len(rec.TXT) == 0 {
		return nil, notFound(name)
	}

	out := make([][]string, 0, len(rec.TXT))
	for _, value := range rec.TXT {
		out = append(out, []string{value})
	}
	return out, nil
}

func (s *Static) LookupCNAME(_ context.Context, name string) ([]string, error) {
	rec, ok := s.get(name)
	if !ok || len(rec.CNAME) == 0 {
		return nil, notFound(name)
	}
	return append([]string(nil), rec.CNAME...), nil
}

func (s *Static) get(name string) (StaticRecords, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[normalizeName(name)]
	return rec, ok
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, "."))
}

func notFound(name string) error {
	return &net.DNSError{Err: "no such host", Name: name, IsNotFound: true}
}
