// Package audiocache keeps references to externally synthesized audio on
// disk so repeated occurrences of the same script skip re-synthesis. The
// daily cleanup job evicts references older than the retention threshold;
// the provider re-synthesizes on the next miss.
package audiocache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Cache is a flat directory of <key>.ref files, each holding one provider
// artifact reference.
type Cache struct {
	dir string
}

// Open creates the cache directory if needed.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("audiocache: %w", err)
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".ref")
}

// Lookup returns the cached artifact reference for key, if present.
func (c *Cache) Lookup(key string) (string, bool) {
	raw, err := os.ReadFile(c.path(key))
	if err != nil {
		return "", false
	}
	ref := strings.TrimSpace(string(raw))
	return ref, ref != ""
}

// Remember stores the artifact reference for key.
func (c *Cache) Remember(key, ref string) error {
	return os.WriteFile(c.path(key), []byte(ref+"\n"), 0o644)
}

// EvictOlderThan removes reference files last written before cutoff and
// returns how many were evicted.
func (c *Cache) EvictOlderThan(cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("audiocache: %w", err)
	}
	evicted := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".ref") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(c.dir, e.Name())); err == nil {
				evicted++
			}
		}
	}
	return evicted, nil
}
