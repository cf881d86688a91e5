package assetcache

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"showreel/internal/fileutil"
	"showreel/internal/logging"
)

// Cache persists generated blobs under a root directory.
type Cache struct {
	root   string
	logger *slog.Logger
}

// New returns a cache rooted at root. The directory is created lazily on the
// first Store; a missing root simply yields misses.
func New(root string, logger *slog.Logger) (*Cache, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("assetcache: cache directory is empty")
	}
	return &Cache{root: root, logger: logging.NewComponentLogger(logger, "assetcache")}, nil
}

// Root exposes the backing directory for inspection.
func (c *Cache) Root() string {
	if c == nil {
		return ""
	}
	return c.root
}

// Path returns the blob location for key whether or not it exists.
func (c *Cache) Path(key Key) string {
	return filepath.Join(c.root, key.Service, key.Digest+key.Ext)
}

// Lookup reports whether key is present. Missing directories, unreadable
// entries, and zero-length blobs are all misses.
func (c *Cache) Lookup(key Key) (string, bool) {
	if c == nil || key.validate() != nil {
		return "", false
	}
	path := c.Path(key)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
		return "", false
	}
	return path, true
}

// Store writes data for key, replacing any existing blob atomically, and
// returns the blob path.
func (c *Cache) Store(key Key, data []byte) (string, error) {
	if c == nil {
		return "", errors.New("assetcache: cache unavailable")
	}
	if err := key.validate(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("assetcache: refusing to store empty blob for %s", key)
	}
	path := c.Path(key)
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("assetcache: store %s: %w", key, err)
	}
	c.logger.Debug("asset cache stored",
		logging.String("key", key.String()),
		logging.Int("bytes", len(data)),
	)
	return path, nil
}

// Materialize copies a cached blob to a working path. The cache entry is
// only read.
func Materialize(cachePath, destPath string) error {
	if strings.TrimSpace(destPath) == "" {
		return errors.New("assetcache: destination path is empty")
	}
	if err := fileutil.CopyFileAtomic(cachePath, destPath); err != nil {
		return fmt.Errorf("assetcache: materialize %s: %w", filepath.Base(destPath), err)
	}
	return nil
}

// ServiceStats summarizes the entries one service has written.
type ServiceStats struct {
	Service    string `json:"service"`
	Entries    int    `json:"entries"`
	TotalBytes int64  `json:"total_bytes"`
}

// Stats describes current cache usage.
type Stats struct {
	Root       string         `json:"root"`
	Entries    int            `json:"entries"`
	TotalBytes int64          `json:"total_bytes"`
	Services   []ServiceStats `json:"services"`
}

// Stats walks the cache directory and totals entries per service. Temp files
// left by interrupted writes are not counted.
func (c *Cache) Stats() (Stats, error) {
	stats := Stats{Root: c.root}
	dirs, err := os.ReadDir(c.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return stats, nil
		}
		return stats, fmt.Errorf("assetcache: read root: %w", err)
	}
	for _, dir := range dirs {
		if !dir.IsDir() {
			continue
		}
		svc := ServiceStats{Service: dir.Name()}
		entries, err := os.ReadDir(filepath.Join(c.root, dir.Name()))
		if err != nil {
			return stats, fmt.Errorf("assetcache: read %s: %w", dir.Name(), err)
		}
		for _, entry := range entries {
			if entry.IsDir() || strings.HasPrefix(entry.Name(), ".tmp-") {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			svc.Entries++
			svc.TotalBytes += info.Size()
		}
		stats.Entries += svc.Entries
		stats.TotalBytes += svc.TotalBytes
		stats.Services = append(stats.Services, svc)
	}
	sort.Slice(stats.Services, func(i, j int) bool {
		return stats.Services[i].Service < stats.Services[j].Service
	})
	return stats, nil
}
