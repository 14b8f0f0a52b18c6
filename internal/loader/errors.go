package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/ironsheep/network-image-mcp/internal/fetch"
)

var (
	// ErrEmptyLocator is the reason for loads started with an empty locator.
	ErrEmptyLocator = errors.New("empty locator")

	// ErrNoResources is returned for resource locators when no resource
	// tree is configured.
	ErrNoResources = errors.New("no resource tree configured")
)

// Stage is a step of the load state machine.
type Stage int

const (
	StageClassifying Stage = iota
	StageCacheCheck
	StageThumbnailFetch
	StageFullFetch
	StageDecoding
)

func (s Stage) String() string {
	switch s {
	case StageClassifying:
		return "classifying"
	case StageCacheCheck:
		return "cache_check"
	case StageThumbnailFetch:
		return "thumbnail_fetch"
	case StageFullFetch:
		return "full_fetch"
	case StageDecoding:
		return "decoding"
	default:
		return "unknown"
	}
}

// ErrorKind classifies load failures.
type ErrorKind int

const (
	KindClassificationAmbiguous ErrorKind = iota
	KindNetworkTransport
	KindNetworkStatus
	KindDecode
	KindVectorParse
	KindDiskIO
	KindResourceNotFound
	KindCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case KindClassificationAmbiguous:
		return "classification_ambiguous"
	case KindNetworkTransport:
		return "network_transport"
	case KindNetworkStatus:
		return "network_status"
	case KindDecode:
		return "decode"
	case KindVectorParse:
		return "vector_parse"
	case KindDiskIO:
		return "disk_io"
	case KindResourceNotFound:
		return "resource_not_found"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// LoadError describes why a load did not produce its image.
type LoadError struct {
	Stage Stage
	Kind  ErrorKind
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status of a NetworkStatus failure, zero
// otherwise.
func (e *LoadError) StatusCode() int {
	var ferr *fetch.Error
	if errors.As(e.Err, &ferr) {
		return ferr.StatusCode
	}
	return 0
}

// fetchError maps a fetch failure to a LoadError. A failure after the
// caller's context ended is reported as canceled whatever its cause.
func fetchError(ctx context.Context, stage Stage, err error) *LoadError {
	if ctx.Err() != nil {
		return &LoadError{Stage: stage, Kind: KindCanceled, Err: err}
	}
	var ferr *fetch.Error
	if errors.As(err, &ferr) && !ferr.Transport() {
		return &LoadError{Stage: stage, Kind: KindNetworkStatus, Err: err}
	}
	return &LoadError{Stage: stage, Kind: KindNetworkTransport, Err: err}
}

func readError(stage Stage, err error) *LoadError {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, ErrNoResources) || errors.Is(err, fs.ErrInvalid) {
		return &LoadError{Stage: stage, Kind: KindResourceNotFound, Err: err}
	}
	return &LoadError{Stage: stage, Kind: KindDiskIO, Err: err}
}
