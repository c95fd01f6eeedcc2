package narrate

import (
	"fmt"
	"os"
	"path/filepath"
)

// ClipCache stores synthesized clips content-addressed by key, so
// re-recording the same scenario never re-synthesizes unchanged lines.
type ClipCache struct {
	dir string
}

// NewClipCache opens (creating if needed) a cache directory.
func NewClipCache(dir string) (*ClipCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("clip cache: %w", err)
	}
	return &ClipCache{dir: dir}, nil
}

// PathFor returns where a clip with this key lives, existing or not.
func (c *ClipCache) PathFor(key, ext string) string {
	return filepath.Join(c.dir, key+"."+ext)
}

// Lookup returns the cached clip path if present.
func (c *ClipCache) Lookup(key, ext string) (string, bool) {
	path := c.PathFor(key, ext)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// Store writes clip bytes under the key. Write-then-rename keeps a crashed
// run from leaving a truncated clip that later lookups would trust.
func (c *ClipCache) Store(key, ext string, data []byte) (string, error) {
	final := c.PathFor(key, ext)
	tmp := c.PathFor(key, "tmp."+ext)
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("clip cache: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return "", fmt.Errorf("clip cache: %w", err)
	}
	return final, nil
}

// StoreVia has build produce the clip file, then moves it into place. Used
// when an external encoder writes the file itself. The temp name keeps the
// real extension last so the encoder still recognizes the format.
func (c *ClipCache) StoreVia(key, ext string, build func(tmp string) error) (string, error) {
	final := c.PathFor(key, ext)
	tmp := c.PathFor(key, "tmp."+ext)
	if err := build(tmp); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, final); err != nil {
		return "", fmt.Errorf("clip cache: %w", err)
	}
	return final, nil
}
