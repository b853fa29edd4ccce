// Package markdown renders finished digests as a single markdown file,
// one dated file per run. Richer renderers (HTML, e-book, email) live
// behind the same port.
package markdown

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lectern-labs/lectern-cli/internal/core/domain"
	"github.com/lectern-labs/lectern-cli/internal/core/ports/driven"
)

// Ensure Deliverer implements the interface.
var _ driven.Deliverer = (*Deliverer)(nil)

// Deliverer writes digests to dated markdown files in an output directory.
type Deliverer struct {
	dir string

	// now is replaceable for tests.
	now func() time.Time
}

// NewDeliverer creates a deliverer writing into dir, creating it if needed.
func NewDeliverer(dir string) (*Deliverer, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating digest directory: %w", err)
	}
	return &Deliverer{dir: dir, now: time.Now}, nil
}

// Deliver writes all digests to digest-YYYY-MM-DD.md, overwriting any
// earlier file from the same day.
func (d *Deliverer) Deliver(ctx context.Context, digests []domain.Digest) error {
	if len(digests) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	day := d.now().Format("2006-01-02")
	path := filepath.Join(d.dir, "digest-"+day+".md")

	var b strings.Builder
	fmt.Fprintf(&b, "# Research Digest for %s\n\n", day)
	for i, digest := range digests {
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, digest.Article.Title)
		if digest.Article.URL != "" {
			fmt.Fprintf(&b, "Source: %s\n\n", digest.Article.URL)
		}
		b.WriteString(digest.Summary)
		b.WriteString("\n\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("writing digest %s: %w", path, err)
	}
	return nil
}
