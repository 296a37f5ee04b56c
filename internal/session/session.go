// Package session ties acquisition, negotiation, and teardown to the
// consumer's lifetime: one connection per session, setup at most once,
// teardown exactly as often as asked and safe at any point of progress.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/seekr-live/seekr/internal/config"
	"github.com/seekr-live/seekr/internal/media"
	"github.com/seekr-live/seekr/internal/results"
	"github.com/seekr-live/seekr/internal/rtc"
	"github.com/seekr-live/seekr/internal/signaling"
	"github.com/seekr-live/seekr/internal/util"
)

// ErrAlreadyStarted is returned by a second Start on the same session.
var ErrAlreadyStarted = errors.New("session: already started")

// Config assembles everything a session needs. OnResult receives each decoded
// detection record in arrival order; Preview receives every captured sample.
type Config struct {
	ServerURL     string
	RoomCode      string // optional game association, forwarded to the endpoint
	PlayerID      string
	Media         media.Constraints
	RTC           rtc.Config
	GatherTimeout time.Duration
	OnResult      func(results.Result)
	Preview       func(media.Sample)
}

// Session owns one connection attempt from capture to teardown.
type Session struct {
	cfg Config

	mu      sync.Mutex
	started bool
	stream  *media.Stream
	handle  *rtc.Handle
	handler *results.Handler

	closeOnce sync.Once
	closeErr  error
}

// New returns an unstarted session.
func New(cfg Config) *Session {
	if cfg.GatherTimeout <= 0 {
		cfg.GatherTimeout = config.DefaultGatherTimeout
	}
	return &Session{cfg: cfg}
}

// Start runs the full setup sequence once: acquire media, create the handle,
// register the result-channel handler (before the offer, the ordering the
// whole design hangs on), attach tracks, generate and commit the offer, wait
// out candidate gathering, exchange descriptions, apply the answer.
//
// A failure at any step returns that error and leaves the session in a state
// where Close still releases everything created so far.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	// 1. Capture. No retry: a denied or missing device fails the session.
	stream, err := media.Acquire(ctx, s.cfg.Media)
	if err != nil {
		return fmt.Errorf("acquire media: %w", err)
	}
	s.mu.Lock()
	s.stream = stream
	s.mu.Unlock()
	if s.cfg.Preview != nil {
		stream.SetPreview(s.cfg.Preview)
	}

	// 2. Peer handle.
	handle, err := rtc.NewHandle(s.cfg.RTC)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.handle = handle
	s.mu.Unlock()

	// 3. Result-channel handler, before any offer exists.
	handler := &results.Handler{}
	handler.OnResult(s.cfg.OnResult)
	s.mu.Lock()
	s.handler = handler
	s.mu.Unlock()
	if err := handle.OnResultChannel(handler.Bind); err != nil {
		return err
	}

	// 4. Outbound tracks.
	if err := handle.AttachTracks(stream); err != nil {
		return err
	}

	// 5–6. Offer, committed locally; gathering starts in the background.
	offer, err := handle.CreateOffer()
	if err != nil {
		return err
	}
	if err := handle.CommitLocal(offer); err != nil {
		return err
	}

	// 7. Bounded gathering wait. On timeout the description goes out with
	// whatever candidates exist; worse odds of a direct path beat hanging.
	gatherCtx, cancel := context.WithTimeout(ctx, s.cfg.GatherTimeout)
	err = handle.AwaitGatherComplete(gatherCtx)
	cancel()
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		util.LogWarning("candidate gathering still incomplete after %s, sending partial description", s.cfg.GatherTimeout)
	default:
		return fmt.Errorf("await gathering: %w", err)
	}

	// 8. One-shot exchange with the endpoint.
	client := signaling.NewClient(s.cfg.ServerURL)
	if s.cfg.RoomCode != "" {
		client.Query = url.Values{"room": {s.cfg.RoomCode}, "player": {s.cfg.PlayerID}}
	}
	answer, err := client.Exchange(ctx, signaling.FromSession(*handle.LocalDescription()))
	if err != nil {
		return err
	}

	// 9. Apply the answer; the remote peer opens the result channel from here.
	if err := handle.ApplyRemote(answer.ToSession()); err != nil {
		return err
	}

	util.LogSuccess("negotiation complete, awaiting results from %s", s.cfg.ServerURL)
	return nil
}

// Close releases the capture stream and the peer handle. Idempotent; safe to
// call whether Start succeeded, failed partway, or never ran. No consumer
// callback fires after Close returns.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		stream, handle, handler := s.stream, s.handle, s.handler
		s.mu.Unlock()

		if handler != nil {
			handler.Close()
		}
		var errs []error
		if handle != nil {
			errs = append(errs, handle.Close())
		}
		if stream != nil {
			errs = append(errs, stream.Close())
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// State reports the negotiation state of the underlying handle, or
// rtc.StateNew when setup has not created one yet.
func (s *Session) State() rtc.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return rtc.StateNew
	}
	return s.handle.State()
}
