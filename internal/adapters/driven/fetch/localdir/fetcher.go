// Package localdir fetches candidate articles from a directory of plain
// text or markdown files. It is the reference Fetcher implementation;
// network source connectors live behind the same port.
package localdir

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/lectern-labs/lectern-cli/internal/core/domain"
	"github.com/lectern-labs/lectern-cli/internal/core/ports/driven"
	"github.com/lectern-labs/lectern-cli/internal/logger"
)

// Ensure Fetcher implements the interface.
var _ driven.Fetcher = (*Fetcher)(nil)

// Fetcher reads every .txt and .md file under a root directory as one
// candidate article. The relative path is the article ID, so the same
// file is never reprocessed across runs.
type Fetcher struct {
	root string
}

// NewFetcher creates a fetcher rooted at dir.
func NewFetcher(dir string) (*Fetcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("article directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, dir)
	}
	return &Fetcher{root: dir}, nil
}

// Fetch walks the root directory and returns one article per readable
// text file, in walk order. Unreadable files are skipped with a warning.
func (f *Fetcher) Fetch(ctx context.Context) ([]domain.Article, error) {
	var articles []domain.Article

	err := filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !isArticleFile(path) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("Skipping unreadable file %s: %v", path, err)
			return nil
		}
		content := strings.TrimSpace(string(data))
		if content == "" {
			return nil
		}

		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			rel = path
		}

		articles = append(articles, domain.Article{
			ID:      rel,
			Title:   titleFrom(rel, content),
			URL:     path,
			Content: content,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking article directory: %w", err)
	}

	return articles, nil
}

func isArticleFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return true
	default:
		return false
	}
}

// titleFrom takes a markdown heading on the first line when present,
// otherwise the filename without extension.
func titleFrom(rel, content string) string {
	first, _, _ := strings.Cut(content, "\n")
	if t := strings.TrimSpace(strings.TrimLeft(first, "# ")); t != "" && strings.HasPrefix(first, "#") {
		return t
	}
	base := filepath.Base(rel)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
