package cache

import (
	"os"

	"github.com/ironsheep/network-image-mcp/internal/locator"
)

// Options configures a Store.
type Options struct {
	// Root is the directory under which DirName is created. Defaults to
	// os.UserCacheDir, falling back to os.TempDir.
	Root string

	// MemoryCapacity bounds the memory tier. Defaults to
	// DefaultMemoryCapacity.
	MemoryCapacity int
}

// Store bundles the memory and disk tiers shared by all loads of a process.
type Store struct {
	Memory *Memory
	Disk   *Disk
}

// NewStore builds both tiers from opts.
func NewStore(opts Options) *Store {
	root := opts.Root
	if root == "" {
		root = DefaultRoot()
	}
	return &Store{
		Memory: NewMemory(opts.MemoryCapacity),
		Disk:   NewDisk(root),
	}
}

// DefaultRoot returns the host cache area: the user cache directory when the
// platform defines one, the temp directory otherwise.
func DefaultRoot() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return dir
	}
	return os.TempDir()
}

// ClearMemory empties the memory tier.
func (s *Store) ClearMemory() {
	s.Memory.Clear()
}

// ClearDisk deletes the disk tier directory.
func (s *Store) ClearDisk() error {
	return s.Disk.Clear()
}

// Removed lists what Store.Remove deleted.
type Removed struct {
	Memory bool
	Disk   []locator.Key
}

// Remove drops the entries for key from both tiers. Missing entries are not
// an error.
func (s *Store) Remove(key locator.Key) (Removed, error) {
	var r Removed
	r.Memory = s.Memory.Remove(key)
	disk, err := s.Disk.Remove(key)
	r.Disk = disk
	return r, err
}
