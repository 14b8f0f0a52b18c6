package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ironsheep/network-image-mcp/internal/imaging"
	"github.com/ironsheep/network-image-mcp/internal/locator"
)

// DefaultMemoryCapacity is the number of images the memory tier holds when no
// capacity is configured.
const DefaultMemoryCapacity = 256

// Memory is the in-process image tier.
//
// Entries are evicted least-recently-used once the capacity is reached.
// Get counts as a use.
type Memory struct {
	images *lru.Cache[locator.Key, *imaging.DecodedImage]
}

// NewMemory creates a memory tier holding at most capacity images.
// A capacity below 1 selects DefaultMemoryCapacity.
func NewMemory(capacity int) *Memory {
	if capacity < 1 {
		capacity = DefaultMemoryCapacity
	}
	images, err := lru.NewWithEvict(capacity, func(locator.Key, *imaging.DecodedImage) {
		metricEvictions.Inc()
	})
	if err != nil {
		// Only a non-positive size fails, which is ruled out above.
		panic(err)
	}
	return &Memory{images: images}
}

// Get returns the image cached under key.
func (m *Memory) Get(key locator.Key) (*imaging.DecodedImage, bool) {
	img, ok := m.images.Get(key)
	recordLookup("memory", ok)
	return img, ok
}

// Put stores img under key unless the key is already present.
//
// It returns the image that is cached under key after the call, which is the
// earlier image when one existed, and whether img was the one stored.
func (m *Memory) Put(key locator.Key, img *imaging.DecodedImage) (*imaging.DecodedImage, bool) {
	prev, exists, _ := m.images.PeekOrAdd(key, img)
	if exists {
		recordWrite("memory", "exists")
		return prev, false
	}
	recordWrite("memory", "stored")
	return img, true
}

// Contains reports whether key is cached without touching its recency.
func (m *Memory) Contains(key locator.Key) bool {
	return m.images.Contains(key)
}

// Remove drops the image cached under key and reports whether there was one.
func (m *Memory) Remove(key locator.Key) bool {
	return m.images.Remove(key)
}

// Len returns the number of cached images.
func (m *Memory) Len() int {
	return m.images.Len()
}

// Clear drops every cached image.
func (m *Memory) Clear() {
	m.images.Purge()
}
