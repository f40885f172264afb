package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestGet_Success(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	c := NewHTTPClient("test", "wikisync-test/1.0", 0)
	body, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if string(body) != "hello" {
		t.Errorf("body = %q, want %q", body, "hello")
	}
	if gotUA != "wikisync-test/1.0" {
		t.Errorf("User-Agent = %q, want %q", gotUA, "wikisync-test/1.0")
	}
}

func TestGet_RetriesTransientThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	c := NewHTTPClient("test", "", 0)
	body, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get() failed after retries: %v", err)
	}
	if string(body) != "recovered" {
		t.Errorf("body = %q, want %q", body, "recovered")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("server calls = %d, want 3", got)
	}
}

func TestGet_TransientExhaustsRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHTTPClient("test", "", 0)
	_, err := c.Get(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("Get() error = nil, want transient failure")
	}
	if KindOf(err) != KindTransient {
		t.Errorf("error kind = %v, want %v", KindOf(err), KindTransient)
	}
	if got := atomic.LoadInt32(&calls); got != maxAttempts {
		t.Errorf("server calls = %d, want %d", got, maxAttempts)
	}
}

func TestGet_NoRetryOnNotFound(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewHTTPClient("test", "", 0)
	_, err := c.Get(context.Background(), srv.URL)
	if !IsNotFound(err) {
		t.Fatalf("error = %v, want not_found", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server calls = %d, want 1 (no retry)", got)
	}
}

func TestGet_StatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorKind
	}{
		{404, KindNotFound},
		{429, KindRateLimited},
		{401, KindUnauthorized},
		{403, KindUnauthorized},
		{400, KindRequest},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		c := NewHTTPClient("test", "", 0)
		_, err := c.Get(context.Background(), srv.URL)
		srv.Close()
		if KindOf(err) != tt.want {
			t.Errorf("status %d: kind = %v, want %v", tt.status, KindOf(err), tt.want)
		}
	}
}

func TestGet_PolitenessDelay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewHTTPClient("test", "", 50*time.Millisecond)
	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := c.Get(context.Background(), srv.URL); err != nil {
			t.Fatalf("Get() %d failed: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("3 requests took %v, want at least 100ms of politeness delay", elapsed)
	}
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"ok","count":2}`))
	}))
	defer srv.Close()

	c := NewHTTPClient("test", "", 0)
	var out struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	if err := c.GetJSON(context.Background(), srv.URL, &out); err != nil {
		t.Fatalf("GetJSON() failed: %v", err)
	}
	if out.Name != "ok" || out.Count != 2 {
		t.Errorf("decoded = %+v", out)
	}
}

func TestGetJSON_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := NewHTTPClient("test", "", 0)
	var out map[string]any
	err := c.GetJSON(context.Background(), srv.URL, &out)
	if err == nil {
		t.Fatal("GetJSON() error = nil, want decode failure")
	}
	if KindOf(err) != KindRequest {
		t.Errorf("error kind = %v, want %v", KindOf(err), KindRequest)
	}
}
