package dnsresolver

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeLookuper struct {
	txt         []string
	txtErr      error
	cname       string
	cnameErr    error
	sawDeadline bool
}

func (f *fakeLookuper) LookupTXT(ctx context.Context, _ string) ([]string, error) {
	_, f.sawDeadline = ctx.Deadline()
	return f.txt, f.txtErr
}

func (f *fakeLookuper) LookupCNAME(ctx context.Context, _ string) (string, error) {
	_, f.sawDeadline = ctx.Deadline()
	return f.cname, f.cnameErr
}

type lookupRecord struct {
	recordType string
	err        error
}

type recordingObserver struct {
	lookups []lookupRecord
}

func (o *recordingObserver) ObserveLookup(recordType string, _ time.Duration, err error) {
	o.lookups = append(o.lookups, lookupRecord{recordType: recordType, err: err})
}

func TestResolverLookupTXTWrapsRecords(t *testing.T) {
	t.Parallel()
	fake := &fakeLookuper{txt: []string{"v=spf1 -all", "key=abc"}}
	observer := &recordingObserver{}
	r := newResolver(fake, time.Second, WithObserver(observer))

	got, err := r.LookupTXT(context.Background(), "acme.io")
	require.NoError(t, err)
	require.Equal(t, [][]string{{"v=spf1 -all"}, {"key=abc"}}, got)
	require.True(t, fake.sawDeadline)
	require.Equal(t, []lookupRecord{{recordType: RecordTXT}}, observer.lookups)
}

func TestResolverLookupTXTPropagatesErrors(t *testing.T) {
	t.Parallel()
	lookupErr := &net.DNSError{Err: "no such host", Name: "acme.io", IsNotFound: true}
	observer := &recordingObserver{}
	r := newResolver(&fakeLookuper{txtErr: lookupErr}, 0, WithObserver(observer))
	require.Equal(t, DefaultTimeout, r.timeout)

	_, err := r.LookupTXT(context.Background(), "acme.io")
	require.Error(t, err)
	require.True(t, IsNotFound(err))
	require.Len(t, observer.lookups, 1)
	require.ErrorIs(t, observer.lookups[0].err, lookupErr)
}

func TestResolverLookupCNAME(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		host  string
		cname string
		want  []string
	}{
		{name: "strips root dot", host: "acme.io", cname: "svc.example.com.", want: []string{"svc.example.com"}},
		{name: "no cname returns host itself", host: "acme.io", cname: "acme.io.", want: []string{}},
		{name: "host given as fqdn", host: "acme.io.", cname: "ACME.io.", want: []string{}},
		{name: "empty answer", host: "acme.io", cname: "", want: []string{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := newResolver(&fakeLookuper{cname: tc.cname}, time.Second)
			got, err := r.LookupCNAME(context.Background(), tc.host)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestResolverLookupCNAMEError(t *testing.T) {
	t.Parallel()
	r := newResolver(&fakeLookuper{cnameErr: errors.New("i/o timeout")}, time.Second)

	_, err := r.LookupCNAME(context.Background(), "acme.io")
	require.EqualError(t, err, "i/o timeout")
	require.False(t, IsNotFound(err))
}

func TestStaticResolver(t *testing.T) {
	t.Parallel()
	s := NewStatic(map[string]StaticRecords{
		"Acme.io.": {TXT: []string{"key123=abc"}, CNAME: []string{"svc.example.com"}},
	})
	ctx := context.Background()

	txt, err := s.LookupTXT(ctx, "acme.io")
	require.NoError(t, err)
	require.Equal(t, [][]string{{"key123=abc"}}, txt)

	cname, err := s.LookupCNAME(ctx, "ACME.IO")
	require.NoError(t, err)
	require.Equal(t, []string{"svc.example.com"}, cname)

	_, err = s.LookupTXT(ctx, "missing.io")
	require.True(t, IsNotFound(err))

	s.Set("missing.io", StaticRecords{CNAME: []string{"x.example.com"}})
	_, err = s.LookupTXT(ctx, "missing.io")
	require.True(t, IsNotFound(err))
	cname, err = s.LookupCNAME(ctx, "missing.io")
	require.NoError(t, err)
	require.Equal(t, []string{"x.example.com"}, cname)
}

func TestLoadStaticFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "dns.yaml")
	doc := "acme.io:\n  txt:\n    - \"v=verify key123=abc\"\n  cname:\n    - svc.example.com\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	s, err := LoadStaticFile(path)
	require.NoError(t, err)

	txt, err := s.LookupTXT(context.Background(), "acme.io")
	require.NoError(t, err)
	require.Equal(t, [][]string{{"v=verify key123=abc"}}, txt)

	_, err = LoadStaticFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
