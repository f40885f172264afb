package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"wikisync/models"
)

// REST talks to an encyclopedia exposing a REST content API: a JSON summary
// endpoint paired with a rendered-HTML endpoint per page, plus a search
// endpoint. It has no way to enumerate every page, so full syncs are not
// supported for this source.
type REST struct {
	source  string
	baseURL string // e.g. https://en.wikipedia.org/api/rest_v1
	apiURL  string // search endpoint base, e.g. https://en.wikipedia.org/w/rest.php/v1
	license string
	http    *HTTPClient
}

// NewREST builds a client from a source config.
func NewREST(source string, cfg models.SourceConfig) *REST {
	return &REST{
		source:  source,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiURL:  strings.TrimRight(cfg.APIURL, "/"),
		license: cfg.License,
		http:    NewHTTPClient(source, cfg.UserAgent, cfg.Delay()),
	}
}

func (r *REST) Source() string { return r.source }

type restSummary struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Extract     string `json:"extract"`
	Timestamp   string `json:"timestamp"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// FetchPage performs the summary+HTML fetch pair. The rendered HTML body is
// used as the pre-rendered content; the summary supplies title, upstream URL
// and last-modified.
func (r *REST) FetchPage(ctx context.Context, slug string) (*models.Page, error) {
	var summary restSummary
	if err := r.http.GetJSON(ctx, r.baseURL+"/page/summary/"+url.PathEscape(slug), &summary); err != nil {
		return nil, err
	}

	html, err := r.http.Get(ctx, r.baseURL+"/page/html/"+url.PathEscape(slug))
	if err != nil {
		return nil, err
	}

	page := &models.Page{
		Slug:            slug,
		Title:           summary.Title,
		PreRenderedHTML: string(html),
		UpstreamURL:     summary.ContentURLs.Desktop.Page,
		Metadata: map[string]string{
			"description": summary.Description,
			"license":     r.license,
		},
	}
	if ts, err := time.Parse(time.RFC3339, summary.Timestamp); err == nil {
		page.LastModified = &ts
	}
	return page, nil
}

type restSearchResponse struct {
	Pages []struct {
		Key   string `json:"key"`
		Title string `json:"title"`
	} `json:"pages"`
}

// Search queries the REST search endpoint; result keys are already slugs.
func (r *REST) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 || limit > 50 {
		limit = 25
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", fmt.Sprintf("%d", limit))

	var resp restSearchResponse
	if err := r.http.GetJSON(ctx, r.apiURL+"/search/page?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(resp.Pages))
	for _, p := range resp.Pages {
		slugs = append(slugs, p.Key)
	}
	return slugs, nil
}
