package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"wikisync/models"
)

// MediaWiki talks to a MediaWiki action API (e.g. a game wiki). Pages come
// back with both the parsed HTML and the raw wikitext, so the transformer
// can use the pre-rendered HTML while the structured extractor works on the
// wikitext templates. Incremental listing uses the wiki's RecentChanges
// Atom feed.
type MediaWiki struct {
	source  string
	apiURL  string
	feedURL string
	baseURL string
	license string
	http    *HTTPClient
	feed    *gofeed.Parser
}

// NewMediaWiki builds a client from a source config.
func NewMediaWiki(source string, cfg models.SourceConfig) *MediaWiki {
	feedURL := cfg.FeedURL
	if feedURL == "" {
		feedURL = strings.TrimRight(cfg.BaseURL, "/") + "/Special:RecentChanges?feed=atom"
	}
	return &MediaWiki{
		source:  source,
		apiURL:  cfg.APIURL,
		feedURL: feedURL,
		baseURL: cfg.BaseURL,
		license: cfg.License,
		http:    NewHTTPClient(source, cfg.UserAgent, cfg.Delay()),
		feed:    gofeed.NewParser(),
	}
}

func (m *MediaWiki) Source() string { return m.source }

// titleOf converts a slug (underscored) to a wiki title (spaced).
func titleOf(slug string) string { return strings.ReplaceAll(slug, "_", " ") }

// slugOf converts a wiki title to its slug form.
func slugOf(title string) string { return strings.ReplaceAll(title, " ", "_") }

type mwParseResponse struct {
	Parse struct {
		Title    string `json:"title"`
		PageID   int64  `json:"pageid"`
		RevID    int64  `json:"revid"`
		Text     string `json:"text"`
		Wikitext string `json:"wikitext"`
	} `json:"parse"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// FetchPage fetches the parsed HTML and wikitext of one page.
func (m *MediaWiki) FetchPage(ctx context.Context, slug string) (*models.Page, error) {
	params := url.Values{}
	params.Set("action", "parse")
	params.Set("page", titleOf(slug))
	params.Set("prop", "text|wikitext|revid")
	params.Set("format", "json")
	params.Set("formatversion", "2")

	var resp mwParseResponse
	if err := m.http.GetJSON(ctx, m.apiURL+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		if resp.Error.Code == "missingtitle" || resp.Error.Code == "invalidtitle" {
			return nil, &Error{Kind: KindNotFound, Source: m.source, Msg: fmt.Sprintf("page %s not found", slug)}
		}
		return nil, &Error{Kind: KindRequest, Source: m.source, Msg: fmt.Sprintf("api error %s: %s", resp.Error.Code, resp.Error.Info)}
	}

	return &models.Page{
		Slug:            slug,
		Title:           resp.Parse.Title,
		RawContent:      resp.Parse.Wikitext,
		PreRenderedHTML: resp.Parse.Text,
		UpstreamURL:     strings.TrimRight(m.baseURL, "/") + "/" + url.PathEscape(slugOf(resp.Parse.Title)),
		Metadata: map[string]string{
			"revid":   fmt.Sprintf("%d", resp.Parse.RevID),
			"license": m.license,
		},
	}, nil
}

type mwQueryResponse struct {
	Continue map[string]string `json:"continue"`
	Query    struct {
		AllPages []struct {
			Title string `json:"title"`
		} `json:"allpages"`
		CategoryMembers []struct {
			Title string `json:"title"`
		} `json:"categorymembers"`
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

// ListAllSlugs pages through list=allpages.
func (m *MediaWiki) ListAllSlugs(ctx context.Context) ([]string, error) {
	var slugs []string
	cont := ""
	for {
		params := url.Values{}
		params.Set("action", "query")
		params.Set("list", "allpages")
		params.Set("aplimit", "500")
		params.Set("format", "json")
		params.Set("formatversion", "2")
		if cont != "" {
			params.Set("apcontinue", cont)
		}

		var resp mwQueryResponse
		if err := m.http.GetJSON(ctx, m.apiURL+"?"+params.Encode(), &resp); err != nil {
			return nil, err
		}
		for _, p := range resp.Query.AllPages {
			slugs = append(slugs, slugOf(p.Title))
		}
		cont = resp.Continue["apcontinue"]
		if cont == "" {
			return slugs, nil
		}
	}
}

// ListCategory pages through list=categorymembers for one category.
func (m *MediaWiki) ListCategory(ctx context.Context, category string) ([]string, error) {
	var slugs []string
	cont := ""
	for {
		params := url.Values{}
		params.Set("action", "query")
		params.Set("list", "categorymembers")
		params.Set("cmtitle", "Category:"+titleOf(category))
		params.Set("cmlimit", "500")
		params.Set("format", "json")
		params.Set("formatversion", "2")
		if cont != "" {
			params.Set("cmcontinue", cont)
		}

		var resp mwQueryResponse
		if err := m.http.GetJSON(ctx, m.apiURL+"?"+params.Encode(), &resp); err != nil {
			return nil, err
		}
		for _, p := range resp.Query.CategoryMembers {
			// Skip sub-categories and files; only plain articles sync.
			if strings.HasPrefix(p.Title, "Category:") || strings.HasPrefix(p.Title, "File:") {
				continue
			}
			slugs = append(slugs, slugOf(p.Title))
		}
		cont = resp.Continue["cmcontinue"]
		if cont == "" {
			return slugs, nil
		}
	}
}

// Search runs a full-text query via list=search.
func (m *MediaWiki) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", fmt.Sprintf("%d", limit))
	params.Set("format", "json")
	params.Set("formatversion", "2")

	var resp mwQueryResponse
	if err := m.http.GetJSON(ctx, m.apiURL+"?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(resp.Query.Search))
	for _, p := range resp.Query.Search {
		slugs = append(slugs, slugOf(p.Title))
	}
	return slugs, nil
}

// ListChangedSince parses the RecentChanges Atom feed and returns the slugs
// of entries updated after the watermark, deduplicated. The feed is fetched
// through the shared HTTP client so it gets the same user agent, politeness
// delay and retry policy as the action-API calls to the same host.
func (m *MediaWiki) ListChangedSince(ctx context.Context, since time.Time) ([]string, error) {
	body, err := m.http.Get(ctx, m.feedURL)
	if err != nil {
		return nil, err
	}
	feed, err := m.feed.ParseString(string(body))
	if err != nil {
		return nil, &Error{Kind: KindRequest, Source: m.source, Msg: "parsing recent changes feed", Err: err}
	}

	seen := make(map[string]bool)
	var slugs []string
	for _, item := range feed.Items {
		ts := item.UpdatedParsed
		if ts == nil {
			ts = item.PublishedParsed
		}
		if ts == nil || !ts.After(since) {
			continue
		}
		slug := slugOf(item.Title)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		slugs = append(slugs, slug)
	}
	return slugs, nil
}
