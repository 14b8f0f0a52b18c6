package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/ironsheep/network-image-mcp/internal/locator"
)

// DirName is the cache subdirectory created under the configured root.
const DirName = "ImageCache"

var (
	// ErrMiss is returned by Read when no entry exists for the key.
	ErrMiss = errors.New("cache miss")

	// ErrInvalidKey is returned for keys that cannot be used as a file name.
	ErrInvalidKey = errors.New("invalid cache key")
)

// Disk is the on-disk payload tier.
//
// Entries hold the raw bytes exactly as fetched, raster or vector; the key's
// ".svg" marker tells readers which is which.
type Disk struct {
	dir    string
	writes singleflight.Group
}

// NewDisk returns a disk tier rooted at root/ImageCache. The directory is
// created on the first write.
func NewDisk(root string) *Disk {
	return &Disk{dir: filepath.Join(root, DirName)}
}

// Dir returns the cache directory.
func (d *Disk) Dir() string {
	return d.dir
}

// Path returns the file path that holds the entry for key, whether or not it
// exists.
func (d *Disk) Path(key locator.Key) string {
	return filepath.Join(d.dir, string(key))
}

func validKey(key locator.Key) error {
	s := string(key)
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) || strings.HasPrefix(s, ".tmp-") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	return nil
}

// Lookup returns the path of the entry for key if it exists. It does not
// read the file.
func (d *Disk) Lookup(key locator.Key) (string, bool) {
	if validKey(key) != nil {
		return "", false
	}
	path := d.Path(key)
	info, err := os.Stat(path)
	hit := err == nil && info.Mode().IsRegular()
	recordLookup("disk", hit)
	if !hit {
		return "", false
	}
	return path, true
}

// Read returns the payload stored under key, or an error wrapping ErrMiss.
func (d *Disk) Read(key locator.Key) ([]byte, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(d.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMiss, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return data, nil
}

// Write stores data under key. An existing entry is left untouched.
//
// Concurrent writes for the same key are collapsed into a single writer and
// all callers receive its result. The entry becomes visible atomically.
func (d *Disk) Write(key locator.Key, data []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	_, err, _ := d.writes.Do(string(key), func() (interface{}, error) {
		return nil, d.write(key, data)
	})
	return err
}

func (d *Disk) write(key locator.Key, data []byte) error {
	path := d.Path(key)
	if _, err := os.Stat(path); err == nil {
		recordWrite("disk", "exists")
		return nil
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		recordWrite("disk", "error")
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(d.dir, ".tmp-*")
	if err != nil {
		recordWrite("disk", "error")
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		recordWrite("disk", "error")
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		recordWrite("disk", "error")
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		recordWrite("disk", "error")
		return fmt.Errorf("failed to commit cache file: %w", err)
	}

	recordWrite("disk", "stored")
	return nil
}

// Delete removes the entry stored under key and reports whether one
// existed.
func (d *Disk) Delete(key locator.Key) (bool, error) {
	if err := validKey(key); err != nil {
		return false, err
	}
	err := os.Remove(d.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return true, nil
}

// Remove deletes every entry for a locator: the entry under key and the
// entry under key.Vector(). It returns the keys that were deleted.
func (d *Disk) Remove(key locator.Key) ([]locator.Key, error) {
	keys := []locator.Key{key}
	if v := key.Vector(); v != key {
		keys = append(keys, v)
	}

	var removed []locator.Key
	for _, k := range keys {
		ok, err := d.Delete(k)
		if err != nil {
			return removed, err
		}
		if ok {
			removed = append(removed, k)
		}
	}
	return removed, nil
}

// Clear removes the cache directory and everything in it. A missing
// directory is not an error.
func (d *Disk) Clear() error {
	if err := os.RemoveAll(d.dir); err != nil {
		return fmt.Errorf("failed to clear disk cache: %w", err)
	}
	return nil
}
