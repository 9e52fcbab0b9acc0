package verify

import (
	"crypto/md5"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const cacheFile = "results.gob"

// DefaultCacheMaxAge bounds how long a cached result is trusted.
const DefaultCacheMaxAge = 24 * time.Hour

type cacheEntry struct {
	Key       string
	Results   *CheckResults
	CreatedAt time.Time
}

// Cache keeps the results of packages whose sources and options did not
// change since they were last checked. It is persisted in a directory
// and is safe for concurrent use.
type Cache struct {
	dir     string
	mutex   sync.Mutex
	entries map[string]cacheEntry
	maxAge  time.Duration
}

// OpenCache loads the cache stored in dir, creating dir if needed.
func OpenCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	c := &Cache{
		dir:     dir,
		entries: make(map[string]cacheEntry),
		maxAge:  DefaultCacheMaxAge,
	}
	if err := c.load(); err != nil {
		return nil, fmt.Errorf("failed to load cache: %w", err)
	}
	return c, nil
}

func (c *Cache) load() error {
	file, err := os.Open(filepath.Join(c.dir, cacheFile))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()
	return gob.NewDecoder(file).Decode(&c.entries)
}

func (c *Cache) save() error {
	file, err := os.Create(filepath.Join(c.dir, cacheFile))
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer file.Close()
	if err := gob.NewEncoder(file).Encode(c.entries); err != nil {
		return fmt.Errorf("failed to encode cache file: %w", err)
	}
	return nil
}

func (c *Cache) SetMaxAge(d time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.maxAge = d
}

// Get returns the cached results of checking opts.Assembly with opts.
func (c *Cache) Get(opts CheckOptions) (*CheckResults, bool) {
	key, err := cacheKey(opts)
	if err != nil {
		return nil, false
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.entries[opts.Assembly]
	if !ok || entry.Key != key || time.Since(entry.CreatedAt) > c.maxAge {
		return nil, false
	}
	return entry.Results, true
}

// Set stores res as the results of opts. Results with exceptions or
// warnings are not cached, as they may come from a timeout or a broken
// build.
func (c *Cache) Set(opts CheckOptions, res *CheckResults) error {
	if res.AnyWarnings() || res.AnyErrors() || res.Exceptions() > 0 {
		return nil
	}
	key, err := cacheKey(opts)
	if err != nil {
		return err
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[opts.Assembly] = cacheEntry{Key: key, Results: res, CreatedAt: time.Now()}
	return c.save()
}

func (c *Cache) InvalidateAll() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries = make(map[string]cacheEntry)
	return c.save()
}

// cacheKey hashes the tool version, the options and the Go sources of
// the package.
func cacheKey(opts CheckOptions) (string, error) {
	hash := md5.New()
	fmt.Fprintf(hash, "tverify %s\n", Version)
	if err := json.NewEncoder(hash).Encode(opts); err != nil {
		return "", err
	}

	names, err := filepath.Glob(filepath.Join(opts.Assembly, "*.go"))
	if err != nil {
		return "", err
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.HasSuffix(name, "_test.go") {
			continue
		}
		if err := hashFile(hash, name); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}

func hashFile(w io.Writer, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()
	fmt.Fprintf(w, "%s\n", filepath.Base(filename))
	_, err = io.Copy(w, file)
	return err
}
