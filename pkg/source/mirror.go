package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	readability "github.com/go-shiori/go-readability"
	"github.com/gocolly/colly"

	"wikisync/models"
)

// Mirror handles the static-HTML site that can only be ingested by mirroring
// it whole. SyncMirror crawls the site recursively into a local directory;
// fetches and listings then walk the mirrored files. Readability strips the
// site chrome and html-to-markdown derives a raw markdown form, since the
// site exposes no source markup of its own.
type Mirror struct {
	source        string
	startURL      string
	baseURL       string
	allowedDomain string
	dir           string
	userAgent     string
	delay         time.Duration
	license       string
}

// NewMirror builds a client from a source config.
func NewMirror(source string, cfg models.SourceConfig) *Mirror {
	dir := cfg.MirrorDir
	if dir == "" {
		dir = filepath.Join("wikisync-mirrors", source)
	}
	return &Mirror{
		source:        source,
		startURL:      cfg.StartURL,
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		allowedDomain: cfg.AllowedDomain,
		dir:           dir,
		userAgent:     cfg.UserAgent,
		delay:         cfg.Delay(),
		license:       cfg.License,
	}
}

func (m *Mirror) Source() string { return m.source }

// localPath maps a URL path to a file under the mirror directory.
func (m *Mirror) localPath(urlPath string) string {
	p := strings.Trim(urlPath, "/")
	if p == "" {
		p = "index"
	}
	p = strings.TrimSuffix(p, ".html")
	return filepath.Join(m.dir, filepath.FromSlash(p)+".html")
}

// SyncMirror recursively crawls the site into the mirror directory and
// returns the directory path as the mirror version.
func (m *Mirror) SyncMirror(ctx context.Context) (string, error) {
	c := colly.NewCollector(
		colly.AllowedDomains(m.allowedDomain),
		colly.UserAgent(m.userAgent),
		colly.Async(true),
	)
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 2,
		Delay:       m.delay,
	}); err != nil {
		return "", &Error{Kind: KindRequest, Source: m.source, Msg: "configuring crawl limits", Err: err}
	}

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	// OnResponse callbacks run concurrently under Async + Parallelism > 1.
	var (
		saveMu  sync.Mutex
		saveErr error
	)
	c.OnResponse(func(r *colly.Response) {
		ct := r.Headers.Get("Content-Type")
		if !strings.Contains(ct, "text/html") {
			return
		}
		path := m.localPath(r.Request.URL.Path)
		err := os.MkdirAll(filepath.Dir(path), 0750)
		if err == nil {
			err = os.WriteFile(path, r.Body, 0644)
		}
		if err != nil {
			saveMu.Lock()
			if saveErr == nil {
				saveErr = err
			}
			saveMu.Unlock()
		}
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		link := e.Request.AbsoluteURL(e.Attr("href"))
		if link == "" {
			return
		}
		// Fragment-only variants point at the same document; visit it once
		// without the fragment.
		if u, err := url.Parse(link); err == nil && u.Fragment != "" {
			u.Fragment = ""
			link = u.String()
		}
		_ = e.Request.Visit(link)
	})

	if err := os.MkdirAll(m.dir, 0750); err != nil {
		return "", &Error{Kind: KindRequest, Source: m.source, Msg: "creating mirror directory", Err: err}
	}
	if err := c.Visit(m.startURL); err != nil {
		return "", &Error{Kind: KindRequest, Source: m.source, Msg: "starting crawl", Err: err}
	}
	c.Wait()

	saveMu.Lock()
	defer saveMu.Unlock()
	if saveErr != nil {
		return "", &Error{Kind: KindRequest, Source: m.source, Msg: "saving mirrored page", Err: saveErr}
	}
	return m.dir, nil
}

// FetchPage reads one mirrored HTML file, extracts the readable content and
// derives a markdown raw form.
func (m *Mirror) FetchPage(ctx context.Context, slug string) (*models.Page, error) {
	path := filepath.Join(m.dir, filepath.FromSlash(slug)+".html")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &Error{Kind: KindNotFound, Source: m.source, Msg: fmt.Sprintf("page %s not in mirror", slug)}
	}
	if err != nil {
		return nil, &Error{Kind: KindRequest, Source: m.source, Msg: fmt.Sprintf("reading mirrored page %s", slug), Err: err}
	}

	upstream := m.baseURL + "/" + slug + ".html"
	pageURL, err := url.Parse(upstream)
	if err != nil {
		return nil, &Error{Kind: KindRequest, Source: m.source, Msg: fmt.Sprintf("bad upstream url for %s", slug), Err: err}
	}

	article, err := readability.FromReader(strings.NewReader(string(data)), pageURL)
	if err != nil {
		return nil, &Error{Kind: KindRequest, Source: m.source, Msg: fmt.Sprintf("extracting content of %s", slug), Err: err}
	}

	raw, err := htmltomarkdown.ConvertString(article.Content)
	if err != nil {
		// Markdown derivation is best-effort; the HTML form still syncs.
		raw = ""
	}

	var mod *time.Time
	if info, err := os.Stat(path); err == nil {
		t := info.ModTime()
		mod = &t
	}

	return &models.Page{
		Slug:            slug,
		Title:           article.Title,
		RawContent:      raw,
		PreRenderedHTML: article.Content,
		UpstreamURL:     upstream,
		LastModified:    mod,
		Mirrored:        true,
		Metadata:        map[string]string{"license": m.license},
	}, nil
}

// ListAllSlugs walks the mirror directory for HTML files.
func (m *Mirror) ListAllSlugs(ctx context.Context) ([]string, error) {
	var slugs []string
	err := filepath.WalkDir(m.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !strings.HasSuffix(d.Name(), ".html") {
			return nil
		}
		rel, err := filepath.Rel(m.dir, path)
		if err != nil {
			return err
		}
		slugs = append(slugs, filepath.ToSlash(strings.TrimSuffix(rel, ".html")))
		return nil
	})
	if err != nil {
		return nil, &Error{Kind: KindRequest, Source: m.source, Msg: "walking mirror", Err: err}
	}
	return slugs, nil
}
