package loader

import (
	"context"
	"sync"

	"github.com/ironsheep/network-image-mcp/internal/imaging"
)

// Binding tracks the loads for one display target, such as a single image
// view, and makes sure only the newest load reaches it.
//
// Every Set starts a new generation and cancels the load of the previous
// one. Events from superseded generations are dropped, so a slow old load
// can never overwrite the result of a newer one.
type Binding struct {
	loader  *Loader
	onEvent func(Event)

	mu        sync.Mutex
	gen       uint64
	cancel    context.CancelFunc
	last      Event
	hasLast   bool
	displayed *imaging.DecodedImage

	// deliver serializes callbacks so they observe generations in order.
	deliver sync.Mutex
}

// Bind creates a Binding that reports accepted events to onEvent. onEvent
// may be nil. It is called from the load goroutine and may call Set.
func (l *Loader) Bind(onEvent func(Event)) *Binding {
	return &Binding{loader: l, onEvent: onEvent}
}

// Set starts loading req as the new generation and returns immediately with
// that generation and a channel closed once its load has finished.
func (b *Binding) Set(ctx context.Context, req Request) (uint64, <-chan struct{}) {
	ctx, cancel := context.WithCancel(ctx)

	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	b.gen++
	gen := b.gen
	b.cancel = cancel
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		for ev := range b.loader.Load(ctx, req) {
			ev.Generation = gen
			b.accept(ev)
		}
	}()
	return gen, done
}

func (b *Binding) accept(ev Event) {
	b.deliver.Lock()
	defer b.deliver.Unlock()

	b.mu.Lock()
	if ev.Generation != b.gen {
		b.mu.Unlock()
		recordStaleDiscard()
		b.loader.logger.Debug("discarding superseded event",
			"load_id", ev.LoadID, "generation", ev.Generation, "final", ev.Final)
		return
	}
	b.last = ev
	b.hasLast = true
	if ev.Image != nil {
		b.displayed = ev.Image
	}
	cb := b.onEvent
	b.mu.Unlock()

	if cb != nil {
		cb(ev)
	}
}

// Generation returns the current generation. It is zero before the first Set.
func (b *Binding) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen
}

// Last returns the most recent event accepted for the current or an earlier
// generation.
func (b *Binding) Last() (Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last, b.hasLast
}

// Displayed returns the image currently shown by the target: the image of
// the latest accepted event that carried one. A failed load with no
// placeholder leaves the previous image in place.
func (b *Binding) Displayed() *imaging.DecodedImage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.displayed
}

// Close cancels the in-flight load, if any. Its events are still delivered
// when they arrive unless a later Set supersedes it.
func (b *Binding) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}
