// Package artifacts provides a disk cache for bulk binary artifacts
// (downloaded source documents), stored alongside the score database and
// keyed by a hash of their origin reference.
package artifacts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/lectern-labs/lectern-cli/internal/core/domain"
	"github.com/lectern-labs/lectern-cli/internal/core/ports/driven"
	"github.com/lectern-labs/lectern-cli/internal/logger"
)

// Ensure Cache implements the interface.
var _ driven.ArtifactCache = (*Cache)(nil)

// evictMarginBytes is the fixed headroom subtracted from the budget when
// computing the eviction target: the target is the larger of 80% of budget
// and budget minus this margin.
const evictMarginBytes = 128 << 20 // 128MiB

// Cache stores artifacts as files named by the SHA-256 of their origin.
type Cache struct {
	dir string
}

// NewCache creates an artifact cache rooted at dir, creating it if needed.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating artifact directory: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Key returns the cache filename for an origin reference.
func Key(origin string) string {
	sum := sha256.Sum256([]byte(origin))
	return hex.EncodeToString(sum[:])
}

// Put stores an artifact for the given origin reference.
func (c *Cache) Put(origin string, data []byte) error {
	path := filepath.Join(c.dir, Key(origin))
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing artifact for %s: %w", origin, err)
	}
	return nil
}

// Get returns the cached artifact, or domain.ErrNotFound. A hit refreshes
// the file's modification time so eviction stays least-recently-used.
func (c *Cache) Get(origin string) ([]byte, error) {
	path := filepath.Join(c.dir, Key(origin))
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("artifact for %s: %w", origin, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading artifact for %s: %w", origin, err)
	}

	now := time.Now()
	if err := os.Chtimes(path, now, now); err != nil {
		logger.Debug("Failed to touch artifact %s: %v", path, err)
	}
	return data, nil
}

// entry is one on-disk artifact considered for eviction.
type entry struct {
	path  string
	key   string
	size  int64
	mtime time.Time
}

// Evict removes least-recently-used artifacts not named in keep until total
// size reaches the target: max(80% of budget, budget - 128MiB). A cache
// already within budget is untouched.
func (c *Cache) Evict(keep []string, budgetBytes int64) (int, error) {
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("reading artifact directory: %w", err)
	}

	var total int64
	var files []entry
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		total += info.Size()
		files = append(files, entry{
			path:  filepath.Join(c.dir, de.Name()),
			key:   de.Name(),
			size:  info.Size(),
			mtime: info.ModTime(),
		})
	}

	if total <= budgetBytes {
		logger.Debug("Artifact cache size %d within budget %d", total, budgetBytes)
		return 0, nil
	}

	kept := make(map[string]struct{}, len(keep))
	for _, origin := range keep {
		kept[Key(origin)] = struct{}{}
	}

	var evictable []entry
	for _, f := range files {
		if _, ok := kept[f.key]; !ok {
			evictable = append(evictable, f)
		}
	}
	if len(evictable) == 0 {
		logger.Info("Artifact cache over budget but contains only kept files")
		return 0, nil
	}

	// Oldest first.
	sort.Slice(evictable, func(i, j int) bool {
		return evictable[i].mtime.Before(evictable[j].mtime)
	})

	target := budgetBytes - evictMarginBytes
	if pct := budgetBytes * 8 / 10; pct > target {
		target = pct
	}

	removed := 0
	for _, f := range evictable {
		if total <= target {
			break
		}
		if err := os.Remove(f.path); err != nil {
			logger.Warn("Failed to remove artifact %s: %v", f.path, err)
			continue
		}
		total -= f.size
		removed++
	}

	logger.Info("Evicted %d artifacts, cache size now %d bytes", removed, total)
	return removed, nil
}
