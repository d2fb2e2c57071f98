package spec

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestLoad_BlocksFileURL(t *testing.T) {
	t.Parallel()
	_, err := Load(context.Background(), "file:///etc/hosts")
	var se *SpecError
	if !errors.As(err, &se) || se.Code != InputError {
		t.Fatalf("expected InputError, got %v (%T)", err, err)
	}
}

func TestLoad_UnsupportedScheme(t *testing.T) {
	t.Parallel()
	_, err := Load(context.Background(), "ftp://example.com/spec.yaml")
	var se *SpecError
	if !errors.As(err, &se) || se.Code != InputError {
		t.Fatalf("expected InputError, got %v (%T)", err, err)
	}
}

func TestLoad_EmptyInput(t *testing.T) {
	t.Parallel()
	_, err := Load(context.Background(), "  ")
	var se *SpecError
	if !errors.As(err, &se) || se.Code != InputError {
		t.Fatalf("expected InputError, got %v", err)
	}
}

func TestLoad_NetworkError(t *testing.T) {
	t.Parallel()
	// Unused port to provoke a quick network failure.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Load(ctx, "http://127.0.0.1:1/spec.yaml", WithHTTPTimeout(200*time.Millisecond), WithMaxRetries(2), WithBackoffBase(time.Millisecond))
	var se *SpecError
	if !errors.As(err, &se) || se.Code != NetworkError {
		t.Fatalf("expected NetworkError, got %v (%T)", err, err)
	}
}

func TestLoad_LocalFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "swagger.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(petsYAML)+"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	doc, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Version != 2 || doc.URL != "" {
		t.Fatalf("doc: version=%d url=%q", doc.Version, doc.URL)
	}
	if got := doc.Root.Get("paths").Keys(); len(got) != 1 || got[0] != "/pets" {
		t.Fatalf("paths: %v", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	var se *SpecError
	if !errors.As(err, &se) || se.Code != InputError || se.Location == "" {
		t.Fatalf("expected InputError with location, got %v", err)
	}
}

func TestLoad_FetchRetriesTransientErrors(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"swagger": "2.0", "info": {"title": "Remote", "version": "1"}, "paths": {}}`))
	}))
	defer srv.Close()

	url := srv.URL + "/swagger.json"
	doc, err := Load(context.Background(), url, WithBackoffBase(time.Millisecond))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected one retry, got %d calls", calls.Load())
	}
	if doc.URL != url || doc.Version != 2 {
		t.Fatalf("doc: url=%q version=%d", doc.URL, doc.Version)
	}
}

func TestLoad_FetchDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Load(context.Background(), srv.URL+"/swagger.json", WithBackoffBase(time.Millisecond))
	var se *SpecError
	if !errors.As(err, &se) || se.Code != NetworkError {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
	if !strings.Contains(se.Message, "404") {
		t.Fatalf("message should carry the status: %q", se.Message)
	}
}

func TestLoad_MaxBytes(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "big.json")
	if err := os.WriteFile(path, []byte(`{"swagger": "2.0", "padding": "`+strings.Repeat("x", 256)+`"}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(context.Background(), path, WithMaxBytes(64)); err == nil {
		t.Fatalf("expected size limit error")
	}
}

func TestLoadBytes(t *testing.T) {
	t.Parallel()
	cases := []struct {
		src     string
		version int
		code    ErrorCode
	}{
		{`{"swagger": "2.0"}`, 2, ""},
		{`openapi: 3.0.3`, 3, ""},
		{`{"swaggerVersion": "1.2"}`, 0, ""},
		{`[1, 2]`, 0, ParseError},
		{`just a string`, 0, ParseError},
		{`{"broken": `, 0, ParseError},
	}
	for _, tc := range cases {
		doc, err := LoadBytes([]byte(tc.src), "")
		if tc.code != "" {
			var se *SpecError
			if !errors.As(err, &se) || se.Code != tc.code {
				t.Errorf("LoadBytes(%q): expected %s, got %v", tc.src, tc.code, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("LoadBytes(%q): %v", tc.src, err)
			continue
		}
		if doc.Version != tc.version {
			t.Errorf("LoadBytes(%q): version %d, want %d", tc.src, doc.Version, tc.version)
		}
	}
}
