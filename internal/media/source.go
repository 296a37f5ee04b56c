package media

import (
	"context"
	"sync"
)

// Source delivers encoded video frames from an open capture device.
type Source interface {
	// Next blocks until the next frame is available or ctx is cancelled.
	Next(ctx context.Context) (Sample, error)

	// Close releases the device. Safe to call concurrently with Next.
	Close() error
}

// Provider opens capture devices. Platform capture backends register
// themselves here; the synthetic pattern provider is the built-in default so
// the full stack runs on machines without a camera.
type Provider interface {
	Open(Constraints) (Source, error)
}

var (
	providerMu     sync.RWMutex
	activeProvider Provider = PatternProvider{}
)

// SetProvider replaces the active capture provider. Pass nil to restore the
// built-in pattern provider.
func SetProvider(p Provider) {
	providerMu.Lock()
	if p == nil {
		p = PatternProvider{}
	}
	activeProvider = p
	providerMu.Unlock()
}

// currentProvider returns the active capture provider.
func currentProvider() Provider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return activeProvider
}
