package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"wikisync/models"
)

func newTestMediaWiki(t *testing.T, handler http.Handler) (*MediaWiki, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	m := NewMediaWiki("osrs", models.SourceConfig{
		Type:      "mediawiki",
		BaseURL:   srv.URL,
		APIURL:    srv.URL + "/api.php",
		FeedURL:   srv.URL + "/feed",
		UserAgent: "wikisync-test/1.0",
		License:   "CC BY-NC-SA 3.0",
		DelayMS:   1,
	})
	return m, srv
}

func TestMediaWiki_FetchPage(t *testing.T) {
	m, _ := newTestMediaWiki(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("page"); got != "Dragon scimitar" {
			t.Errorf("page param = %q, want spaced title", got)
		}
		if got := r.URL.Query().Get("prop"); got != "text|wikitext|revid" {
			t.Errorf("prop param = %q", got)
		}
		fmt.Fprint(w, `{"parse":{"title":"Dragon scimitar","pageid":12,"revid":345,
			"text":"<p>A vicious, curved sword.</p>",
			"wikitext":"{{Infobox Item|id = 4587}}"}}`)
	}))

	page, err := m.FetchPage(context.Background(), "Dragon_scimitar")
	if err != nil {
		t.Fatalf("FetchPage() failed: %v", err)
	}
	if page.Slug != "Dragon_scimitar" {
		t.Errorf("Slug = %q", page.Slug)
	}
	if page.Title != "Dragon scimitar" {
		t.Errorf("Title = %q", page.Title)
	}
	if page.PreRenderedHTML == "" || page.RawContent == "" {
		t.Error("expected both HTML and wikitext payloads")
	}
	if page.Metadata["revid"] != "345" {
		t.Errorf("revid = %q, want 345", page.Metadata["revid"])
	}
	if page.Metadata["license"] != "CC BY-NC-SA 3.0" {
		t.Errorf("license = %q", page.Metadata["license"])
	}
}

func TestMediaWiki_FetchPage_Missing(t *testing.T) {
	m, _ := newTestMediaWiki(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":{"code":"missingtitle","info":"The page you specified doesn't exist."}}`)
	}))

	_, err := m.FetchPage(context.Background(), "No_such_page")
	if !IsNotFound(err) {
		t.Fatalf("error = %v, want not_found", err)
	}
}

func TestMediaWiki_ListAllSlugs_Paginates(t *testing.T) {
	m, _ := newTestMediaWiki(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apcontinue") == "" {
			fmt.Fprint(w, `{"continue":{"apcontinue":"Next_page"},
				"query":{"allpages":[{"title":"Abyssal whip"},{"title":"Bronze dagger"}]}}`)
			return
		}
		fmt.Fprint(w, `{"query":{"allpages":[{"title":"Dragon scimitar"}]}}`)
	}))

	slugs, err := m.ListAllSlugs(context.Background())
	if err != nil {
		t.Fatalf("ListAllSlugs() failed: %v", err)
	}
	want := []string{"Abyssal_whip", "Bronze_dagger", "Dragon_scimitar"}
	if len(slugs) != len(want) {
		t.Fatalf("slugs = %v, want %v", slugs, want)
	}
	for i := range want {
		if slugs[i] != want[i] {
			t.Errorf("slugs[%d] = %q, want %q", i, slugs[i], want[i])
		}
	}
}

func TestMediaWiki_ListCategory_SkipsNonArticles(t *testing.T) {
	m, _ := newTestMediaWiki(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("cmtitle"); got != "Category:Weapons" {
			t.Errorf("cmtitle = %q, want Category:Weapons", got)
		}
		fmt.Fprint(w, `{"query":{"categorymembers":[
			{"title":"Dragon scimitar"},
			{"title":"Category:Slash weapons"},
			{"title":"File:Scimitar.png"},
			{"title":"Abyssal whip"}]}}`)
	}))

	slugs, err := m.ListCategory(context.Background(), "Weapons")
	if err != nil {
		t.Fatalf("ListCategory() failed: %v", err)
	}
	if len(slugs) != 2 || slugs[0] != "Dragon_scimitar" || slugs[1] != "Abyssal_whip" {
		t.Errorf("slugs = %v, want articles only", slugs)
	}
}

func TestMediaWiki_Search(t *testing.T) {
	m, _ := newTestMediaWiki(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("srsearch"); got != "dragon" {
			t.Errorf("srsearch = %q, want dragon", got)
		}
		if got := r.URL.Query().Get("srlimit"); got != "10" {
			t.Errorf("srlimit = %q, want 10", got)
		}
		fmt.Fprint(w, `{"query":{"search":[{"title":"Dragon scimitar"},{"title":"Dragon dagger"}]}}`)
	}))

	slugs, err := m.Search(context.Background(), "dragon", 10)
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(slugs) != 2 || slugs[0] != "Dragon_scimitar" {
		t.Errorf("slugs = %v", slugs)
	}
}

func TestMediaWiki_ListChangedSince(t *testing.T) {
	now := time.Now().UTC()
	recent := now.Add(-time.Hour).Format(time.RFC3339)
	old := now.Add(-72 * time.Hour).Format(time.RFC3339)

	m, _ := newTestMediaWiki(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feed" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprintf(w, `<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Wiki - Recent changes</title>
  <id>urn:test</id>
  <updated>%s</updated>
  <entry><title>Dragon scimitar</title><id>1</id><updated>%s</updated></entry>
  <entry><title>Dragon scimitar</title><id>2</id><updated>%s</updated></entry>
  <entry><title>Bronze dagger</title><id>3</id><updated>%s</updated></entry>
</feed>`, recent, recent, recent, old)
	}))

	slugs, err := m.ListChangedSince(context.Background(), now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("ListChangedSince() failed: %v", err)
	}
	// Duplicate entries collapse; stale entries drop.
	if len(slugs) != 1 || slugs[0] != "Dragon_scimitar" {
		t.Errorf("slugs = %v, want [Dragon_scimitar]", slugs)
	}
}

func TestMediaWiki_ListChangedSince_UsesSharedClient(t *testing.T) {
	// The feed goes through the same HTTP client as the action API, so it
	// carries the configured user agent and retries transient failures.
	var calls int32
	var gotUA string
	recent := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)

	m, _ := newTestMediaWiki(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, `<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Wiki - Recent changes</title>
  <id>urn:test</id>
  <updated>%s</updated>
  <entry><title>Dragon scimitar</title><id>1</id><updated>%s</updated></entry>
</feed>`, recent, recent)
	}))

	slugs, err := m.ListChangedSince(context.Background(), time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("ListChangedSince() failed after transient error: %v", err)
	}
	if len(slugs) != 1 || slugs[0] != "Dragon_scimitar" {
		t.Errorf("slugs = %v, want [Dragon_scimitar]", slugs)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("feed requests = %d, want 2 (one retry)", got)
	}
	if gotUA != "wikisync-test/1.0" {
		t.Errorf("feed User-Agent = %q, want configured agent", gotUA)
	}
}
