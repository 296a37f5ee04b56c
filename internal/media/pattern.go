package media

import (
	"context"
	"fmt"
	"time"
)

// PatternDeviceID is the device identifier of the built-in synthetic source.
const PatternDeviceID = "pattern"

// PatternProvider serves a single synthetic device that generates a moving
// byte pattern at the requested rate. It stands in for real capture backends
// in development and tests.
type PatternProvider struct{}

var _ Provider = PatternProvider{}

// Open returns a pattern source for the default device. Any other device ID
// fails: this provider has exactly one device to offer.
func (PatternProvider) Open(c Constraints) (Source, error) {
	if c.DeviceID != "" && c.DeviceID != PatternDeviceID {
		return nil, fmt.Errorf("%w: %q", ErrNoDeviceFound, c.DeviceID)
	}

	// One "encoded frame" per tick. The payload is not a real VP8 bitstream;
	// it only has to be stable, non-empty, and cheap, which is all the
	// packetizer and tests need.
	return &patternSource{
		interval: time.Second / time.Duration(c.FPS),
		size:     c.Width * c.Height / 64,
	}, nil
}

type patternSource struct {
	interval time.Duration
	size     int
	frame    uint64
}

func (p *patternSource) Next(ctx context.Context) (Sample, error) {
	select {
	case <-time.After(p.interval):
	case <-ctx.Done():
		return Sample{}, ctx.Err()
	}

	p.frame++
	data := make([]byte, p.size)
	for i := range data {
		data[i] = byte(uint64(i) + p.frame)
	}

	return Sample{Data: data, Duration: p.interval}, nil
}

func (p *patternSource) Close() error { return nil }
