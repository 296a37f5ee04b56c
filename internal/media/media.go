// Package media acquires local video capture streams and exposes them as
// WebRTC-attachable tracks. Audio is never captured: the preview plays next
// to the live microphone-free capture, so there is no feedback loop to mute.
package media

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"

	"github.com/seekr-live/seekr/internal/util"
)

var (
	// ErrAcquisitionDenied is returned when the host refuses device access.
	ErrAcquisitionDenied = errors.New("media: device access denied")
	// ErrNoDeviceFound is returned when no device matches the constraints.
	ErrNoDeviceFound = errors.New("media: no matching capture device")
)

// Constraints fix the capture intent. Video is mandatory; there is no audio
// knob because this stack never acquires audio.
type Constraints struct {
	DeviceID string // empty selects the provider's default device
	Width    int
	Height   int
	FPS      int
}

// withDefaults fills unset dimensions with a conservative capture profile.
func (c Constraints) withDefaults() Constraints {
	if c.Width == 0 {
		c.Width = 640
	}
	if c.Height == 0 {
		c.Height = 480
	}
	if c.FPS == 0 {
		c.FPS = 15
	}
	return c
}

// Sample is one encoded video frame with its display duration.
type Sample struct {
	Data     []byte
	Duration time.Duration
}

// Stream is a live local capture stream. It owns the underlying source and a
// frame pump that feeds both the outbound track and the local preview.
type Stream struct {
	track *webrtc.TrackLocalStaticSample

	mu      sync.Mutex
	preview func(Sample)

	cancel  context.CancelFunc
	done    chan struct{}
	closeOnce sync.Once
}

// Acquire opens a capture device matching the constraints and starts pumping
// frames. Frames flow to the preview immediately; they reach the network once
// the track is bound to a peer connection. Acquisition failure is final; the
// caller aborts setup rather than retrying.
func Acquire(ctx context.Context, c Constraints) (*Stream, error) {
	c = c.withDefaults()

	src, err := currentProvider().Open(c)
	if err != nil {
		return nil, fmt.Errorf("open capture device: %w", err)
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"video", "seekr-cam",
	)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("create local track: %w", err)
	}

	pumpCtx, cancel := context.WithCancel(ctx)
	s := &Stream{
		track:  track,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go s.pump(pumpCtx, src)

	return s, nil
}

// pump is the single frame loop: read from the source, tee to the preview,
// write to the track. Exits on ctx cancel or a terminal source error.
func (s *Stream) pump(ctx context.Context, src Source) {
	defer close(s.done)
	defer src.Close()

	for {
		sample, err := src.Next(ctx)
		if err != nil {
			if ctx.Err() == nil {
				util.LogWarning("capture source stopped: %v", err)
			}
			return
		}

		s.mu.Lock()
		preview := s.preview
		s.mu.Unlock()
		if preview != nil {
			preview(sample)
		}

		if err := s.track.WriteSample(pionmedia.Sample{
			Data:     sample.Data,
			Duration: sample.Duration,
		}); err != nil {
			util.LogWarning("write sample: %v", err)
			continue
		}
		util.Stats.AddFrame()
	}
}

// SetPreview registers the local preview sink. The sink is invoked from the
// frame pump for every captured sample, before network transmission.
func (s *Stream) SetPreview(sink func(Sample)) {
	s.mu.Lock()
	s.preview = sink
	s.mu.Unlock()
}

// Tracks returns the stream's local tracks for attachment to a peer connection.
func (s *Stream) Tracks() []webrtc.TrackLocal {
	return []webrtc.TrackLocal{s.track}
}

// Close stops the frame pump and releases the capture device. Idempotent.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
	})
	return nil
}
