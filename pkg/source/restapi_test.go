package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"wikisync/models"
)

func newTestREST(t *testing.T, handler http.Handler) *REST {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewREST("encyclopedia", models.SourceConfig{
		Type:    "rest",
		BaseURL: srv.URL,
		APIURL:  srv.URL + "/v1",
		License: "CC BY-SA 4.0",
		DelayMS: 1,
	})
}

func TestREST_FetchPage(t *testing.T) {
	r := newTestREST(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/page/summary/Euler":
			fmt.Fprint(w, `{"title":"Leonhard Euler","description":"Swiss mathematician",
				"timestamp":"2026-08-20T10:00:00Z",
				"content_urls":{"desktop":{"page":"https://example.org/wiki/Leonhard_Euler"}}}`)
		case "/page/html/Euler":
			fmt.Fprint(w, `<p>Leonhard Euler was a Swiss mathematician.</p>`)
		default:
			http.NotFound(w, req)
		}
	}))

	page, err := r.FetchPage(context.Background(), "Euler")
	if err != nil {
		t.Fatalf("FetchPage() failed: %v", err)
	}
	if page.Title != "Leonhard Euler" {
		t.Errorf("Title = %q", page.Title)
	}
	if page.PreRenderedHTML == "" {
		t.Error("PreRenderedHTML empty, want rendered body")
	}
	if page.UpstreamURL != "https://example.org/wiki/Leonhard_Euler" {
		t.Errorf("UpstreamURL = %q", page.UpstreamURL)
	}
	if page.LastModified == nil {
		t.Error("LastModified = nil, want parsed timestamp")
	}
	if page.Metadata["description"] != "Swiss mathematician" {
		t.Errorf("description = %q", page.Metadata["description"])
	}
}

func TestREST_FetchPage_Missing(t *testing.T) {
	r := newTestREST(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.NotFound(w, req)
	}))

	_, err := r.FetchPage(context.Background(), "No_such_page")
	if !IsNotFound(err) {
		t.Fatalf("error = %v, want not_found", err)
	}
}

func TestREST_Search(t *testing.T) {
	r := newTestREST(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/v1/search/page" {
			http.NotFound(w, req)
			return
		}
		if got := req.URL.Query().Get("q"); got != "euler" {
			t.Errorf("q = %q, want euler", got)
		}
		fmt.Fprint(w, `{"pages":[{"key":"Leonhard_Euler","title":"Leonhard Euler"},
			{"key":"Euler's_identity","title":"Euler's identity"}]}`)
	}))

	slugs, err := r.Search(context.Background(), "euler", 10)
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(slugs) != 2 || slugs[0] != "Leonhard_Euler" {
		t.Errorf("slugs = %v", slugs)
	}
}

func TestREST_HasNoFullSyncCapability(t *testing.T) {
	r := newTestREST(t, http.NotFoundHandler())

	var client Client = r
	if _, ok := client.(Lister); ok {
		t.Error("REST client advertises ListAllSlugs; full sync must be unsupported")
	}
}
