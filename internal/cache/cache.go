// Package cache persists threads to a single local JSON file: one
// array-of-Thread blob, read fully and rewritten fully on each mutation.
// It is the durability floor — every mutation lands here even when the
// remote store is down.
//
// Concurrent mutations from the same process serialize through an
// in-process mutex; without it the whole-file read-modify-write would
// lose updates (last writer wins).
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"tendril/internal/thread"
)

// Cache is a whole-file JSON store of threads.
type Cache struct {
	path string
	mu   sync.Mutex
}

// New creates a cache backed by the given file path. The file is created
// lazily on first write.
func New(path string) *Cache {
	return &Cache{path: path}
}

// Load reads the full thread list. A missing file is an empty cache, not
// an error; a corrupt file is an error (the reconciler treats it as the
// source being unavailable).
func (c *Cache) Load() ([]thread.Thread, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load()
}

func (c *Cache) load() ([]thread.Thread, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: read %s: %w", c.path, err)
	}
	var threads []thread.Thread
	if err := json.Unmarshal(data, &threads); err != nil {
		return nil, fmt.Errorf("cache: parse %s: %w", c.path, err)
	}
	return threads, nil
}

// Save replaces the full thread list.
func (c *Cache) Save(threads []thread.Thread) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.save(threads)
}

func (c *Cache) save(threads []thread.Thread) error {
	if threads == nil {
		threads = []thread.Thread{}
	}
	data, err := json.MarshalIndent(threads, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return fmt.Errorf("cache: create dir: %w", err)
	}

	// Write-then-rename so a crash mid-write never leaves a truncated
	// blob behind.
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("cache: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("cache: rename: %w", err)
	}
	return nil
}

// Update applies fn to the current list and persists the result, all
// under the write gate. fn receives the stored snapshot and returns the
// replacement list.
func (c *Cache) Update(fn func([]thread.Thread) []thread.Thread) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	threads, err := c.load()
	if err != nil {
		// A corrupt cache should not brick every future write: start
		// over from empty rather than failing the mutation.
		threads = nil
	}
	return c.save(fn(threads))
}

// Upsert replaces the thread with the same id, or appends it.
func (c *Cache) Upsert(t thread.Thread) error {
	return c.Update(func(threads []thread.Thread) []thread.Thread {
		for i := range threads {
			if threads[i].ID == t.ID {
				threads[i] = t
				return threads
			}
		}
		return append(threads, t)
	})
}
