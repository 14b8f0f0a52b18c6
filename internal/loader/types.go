package loader

import (
	"fmt"
	"strings"

	"github.com/ironsheep/network-image-mcp/internal/imaging"
)

// Strategy selects the cache tier used for remote locators.
type Strategy int

const (
	// StrategyNone always goes to the network.
	StrategyNone Strategy = iota
	// StrategyMemory caches decoded images in process.
	StrategyMemory
	// StrategyDisk caches raw payloads on disk.
	StrategyDisk
)

func (s Strategy) String() string {
	switch s {
	case StrategyMemory:
		return "memory"
	case StrategyDisk:
		return "disk"
	default:
		return "none"
	}
}

// ParseStrategy parses "none", "memory" or "disk", ignoring case. The empty
// string is StrategyNone.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return StrategyNone, nil
	case "memory":
		return StrategyMemory, nil
	case "disk":
		return StrategyDisk, nil
	default:
		return StrategyNone, fmt.Errorf("unknown cache strategy: %q", s)
	}
}

// Source tells where an emitted image came from.
type Source int

const (
	SourceNone Source = iota
	SourceMemory
	SourceDisk
	SourceNetwork
	SourcePlaceholder
	SourceVectorRendered
	SourceFile
	SourceResource
)

func (s Source) String() string {
	switch s {
	case SourceMemory:
		return "memory"
	case SourceDisk:
		return "disk"
	case SourceNetwork:
		return "network"
	case SourcePlaceholder:
		return "placeholder"
	case SourceVectorRendered:
		return "vector"
	case SourceFile:
		return "file"
	case SourceResource:
		return "resource"
	default:
		return "none"
	}
}

// Outcome is the result of a finished load.
type Outcome int

const (
	// Loaded means the final event carries the requested image.
	Loaded Outcome = iota
	// Placeholder means the load failed and the placeholder was emitted.
	Placeholder
	// Failed means the load failed and no image was emitted.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Loaded:
		return "loaded"
	case Placeholder:
		return "placeholder"
	default:
		return "failed"
	}
}

// Request is one load: the locator plus the load parameters.
type Request struct {
	// Locator is a URL, a local path or a "resource://" reference.
	Locator string

	// Strategy is the cache tier for remote locators.
	Strategy Strategy

	// LoadThumbnail requests a 200px preview before the full image.
	LoadThumbnail bool

	// RequestWidth is sent as "w" on the full fetch. Zero leaves it out.
	RequestWidth int

	// Token is sent as the "token" query parameter when non-empty.
	Token string

	// Placeholder is a locator for the image shown when the load fails.
	Placeholder string
}

// Event is one emission of a load. Every load ends with exactly one Final
// event and may emit one non-final thumbnail event before it.
type Event struct {
	// LoadID identifies the load that produced the event.
	LoadID string

	// Generation is set by Binding; Load leaves it zero.
	Generation uint64

	// Image is the image to display. It is nil on a Failed final event.
	Image *imaging.DecodedImage

	// Source tells where Image came from.
	Source Source

	// Final marks the authoritative last event of a load.
	Final bool

	// Outcome is meaningful on the final event only.
	Outcome Outcome

	// Err is the reason a load did not produce its image, as *LoadError.
	Err error
}
