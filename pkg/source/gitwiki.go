package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"wikisync/models"
)

// GitWiki reads a wiki whose pages live as markdown files in a git
// repository (the math wiki). SyncMirror clones or pulls the repository;
// page fetches and listings then walk the local checkout. Changed-since
// queries walk the commit log instead of hitting any network API.
type GitWiki struct {
	source  string
	repoURL string
	dir     string
	license string
	math    bool
}

// NewGitWiki builds a client from a source config.
func NewGitWiki(source string, cfg models.SourceConfig) *GitWiki {
	dir := cfg.CloneDir
	if dir == "" {
		dir = filepath.Join("wikisync-mirrors", source)
	}
	return &GitWiki{
		source:  source,
		repoURL: cfg.RepoURL,
		dir:     dir,
		license: cfg.License,
		math:    cfg.Math,
	}
}

func (g *GitWiki) Source() string { return g.source }

// SyncMirror clones the repository on first use and pulls afterwards.
// Returns the HEAD commit hash as the mirror version.
func (g *GitWiki) SyncMirror(ctx context.Context) (string, error) {
	repo, err := git.PlainOpen(g.dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = git.PlainCloneContext(ctx, g.dir, false, &git.CloneOptions{URL: g.repoURL})
		if err != nil {
			return "", &Error{Kind: KindRequest, Source: g.source, Msg: "cloning wiki repository", Err: err}
		}
	} else if err != nil {
		return "", &Error{Kind: KindRequest, Source: g.source, Msg: "opening wiki repository", Err: err}
	} else {
		wt, err := repo.Worktree()
		if err != nil {
			return "", &Error{Kind: KindRequest, Source: g.source, Msg: "opening worktree", Err: err}
		}
		err = wt.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return "", &Error{Kind: KindTransient, Source: g.source, Msg: "pulling wiki repository", Err: err}
		}
	}

	head, err := repo.Head()
	if err != nil {
		return "", &Error{Kind: KindRequest, Source: g.source, Msg: "resolving HEAD", Err: err}
	}
	return head.Hash().String(), nil
}

func (g *GitWiki) pagePath(slug string) string {
	return filepath.Join(g.dir, filepath.FromSlash(slug)+".md")
}

// FetchPage reads one markdown file from the checkout.
func (g *GitWiki) FetchPage(ctx context.Context, slug string) (*models.Page, error) {
	data, err := os.ReadFile(g.pagePath(slug))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &Error{Kind: KindNotFound, Source: g.source, Msg: fmt.Sprintf("page %s not in checkout", slug)}
	}
	if err != nil {
		return nil, &Error{Kind: KindRequest, Source: g.source, Msg: fmt.Sprintf("reading page %s", slug), Err: err}
	}

	page := &models.Page{
		Slug:        slug,
		Title:       markdownTitle(string(data), slug),
		RawContent:  string(data),
		UpstreamURL: strings.TrimSuffix(g.repoURL, ".git") + "/" + slug,
		Math:        g.math,
		Metadata:    map[string]string{"license": g.license},
	}
	if info, err := os.Stat(g.pagePath(slug)); err == nil {
		mod := info.ModTime()
		page.LastModified = &mod
	}
	return page, nil
}

// markdownTitle extracts the first level-1 heading, falling back to the
// slug's base name.
func markdownTitle(content, slug string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return strings.ReplaceAll(filepath.Base(slug), "_", " ")
}

// ListAllSlugs walks the checkout for markdown files.
func (g *GitWiki) ListAllSlugs(ctx context.Context) ([]string, error) {
	var slugs []string
	err := filepath.WalkDir(g.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		rel, err := filepath.Rel(g.dir, path)
		if err != nil {
			return err
		}
		slugs = append(slugs, filepath.ToSlash(strings.TrimSuffix(rel, ".md")))
		return nil
	})
	if err != nil {
		return nil, &Error{Kind: KindRequest, Source: g.source, Msg: "walking checkout", Err: err}
	}
	return slugs, nil
}

// ListChangedSince walks the commit log and collects markdown files touched
// after the watermark.
func (g *GitWiki) ListChangedSince(ctx context.Context, since time.Time) ([]string, error) {
	repo, err := git.PlainOpen(g.dir)
	if err != nil {
		return nil, &Error{Kind: KindRequest, Source: g.source, Msg: "opening wiki repository", Err: err}
	}

	iter, err := repo.Log(&git.LogOptions{Since: &since})
	if err != nil {
		return nil, &Error{Kind: KindRequest, Source: g.source, Msg: "reading commit log", Err: err}
	}
	defer iter.Close()

	seen := make(map[string]bool)
	var slugs []string
	err = iter.ForEach(func(c *object.Commit) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		stats, err := c.Stats()
		if err != nil {
			// Root commits have no parent to diff against; skip them.
			return nil
		}
		for _, st := range stats {
			if !strings.HasSuffix(st.Name, ".md") {
				continue
			}
			slug := strings.TrimSuffix(st.Name, ".md")
			if !seen[slug] {
				seen[slug] = true
				slugs = append(slugs, slug)
			}
		}
		return nil
	})
	if err != nil {
		return nil, &Error{Kind: KindRequest, Source: g.source, Msg: "walking commit log", Err: err}
	}
	return slugs, nil
}
