// Package rtc owns the peer-connection negotiation sequence: handle creation,
// result-channel registration, offer generation, candidate-gathering wait,
// and remote-answer application.
//
// The sequence is order-sensitive and the Handle enforces it. The one
// ordering rule that cannot be recovered from at runtime: the result-channel
// handler must be registered before the offer exists, because a channel-open
// event arriving with no handler installed is dropped, not replayed.
package rtc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/seekr-live/seekr/internal/media"
	"github.com/seekr-live/seekr/internal/util"
)

var (
	// ErrNegotiationState marks a call that violates the negotiation order.
	// This is a programming error in the caller, never a transient condition.
	ErrNegotiationState = errors.New("rtc: call violates negotiation order")

	// ErrNegotiationRejected marks a remote description that is incompatible
	// with the current local state (applied twice, wrong kind, no local
	// description yet).
	ErrNegotiationRejected = errors.New("rtc: remote description rejected")

	// ErrClosed is returned by waits that were cut short by Close.
	ErrClosed = errors.New("rtc: handle closed")
)

// State tracks a Handle through its negotiation sequence.
type State int

const (
	StateNew State = iota
	StateLocalCommitted
	StateGatherComplete
	StateRemoteApplied
	StateChannelOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateLocalCommitted:
		return "local-committed"
	case StateGatherComplete:
		return "gather-complete"
	case StateRemoteApplied:
		return "remote-applied"
	case StateChannelOpen:
		return "channel-open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Handle is the single live peer-connection resource of a session.
type Handle struct {
	pc *webrtc.PeerConnection

	mu         sync.Mutex
	state      State
	handlerSet bool

	gatherDone chan struct{}
	gatherOnce sync.Once

	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewHandle creates a peer connection configured with at least one STUN
// server and wires the gathering-state gate. No offer exists yet; the caller
// must register the result-channel handler before creating one.
func NewHandle(cfg Config) (*Handle, error) {
	pc, err := NewPeerConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	h := &Handle{
		pc:         pc,
		state:      StateNew,
		gatherDone: make(chan struct{}),
		closed:     make(chan struct{}),
	}

	// Gathering is monotonic: once complete it never reverses, so a closed
	// channel is a faithful representation. The once guards pion replays.
	pc.OnICEGatheringStateChange(func(s webrtc.ICEGatheringState) {
		util.LogDebug("ICE gathering state: %s", s.String())
		if s == webrtc.ICEGatheringStateComplete {
			h.gatherOnce.Do(func() { close(h.gatherDone) })
		}
	})

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		util.LogDebug("peer connection state: %s", s.String())
	})

	return h, nil
}

// OnResultChannel registers the handler for the inbound channel the remote
// peer opens after the answer is applied. Must be called while no offer
// exists; a channel-open event with no handler installed is lost for good.
// The handler is never invoked after Close.
func (h *Handle) OnResultChannel(fn func(*webrtc.DataChannel)) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StateNew {
		return fmt.Errorf("%w: result-channel handler registered in state %s", ErrNegotiationState, h.state)
	}
	h.handlerSet = true

	h.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		select {
		case <-h.closed:
			return
		default:
		}

		util.LogInfo("inbound channel announced: %s", dc.Label())
		dc.OnOpen(func() {
			h.mu.Lock()
			if h.state == StateRemoteApplied {
				h.state = StateChannelOpen
			}
			h.mu.Unlock()
			util.LogSuccess("inbound channel open: %s", dc.Label())
		})

		fn(dc)
	})

	return nil
}

// AttachTracks binds each track of the acquired stream for outbound
// transmission. Must precede offer generation so the offer describes them.
func (h *Handle) AttachTracks(stream *media.Stream) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StateNew {
		return fmt.Errorf("%w: tracks attached in state %s", ErrNegotiationState, h.state)
	}

	for _, track := range stream.Tracks() {
		if _, err := h.pc.AddTrack(track); err != nil {
			return fmt.Errorf("attach track %s: %w", track.ID(), err)
		}
	}
	return nil
}

// CreateOffer generates the local session description proposal. It refuses to
// run before a result-channel handler is registered; that ordering mistake
// would otherwise surface as silently missing results.
func (h *Handle) CreateOffer() (webrtc.SessionDescription, error) {
	h.mu.Lock()
	if h.state != StateNew {
		h.mu.Unlock()
		return webrtc.SessionDescription{}, fmt.Errorf("%w: offer created in state %s", ErrNegotiationState, h.state)
	}
	if !h.handlerSet {
		h.mu.Unlock()
		return webrtc.SessionDescription{}, fmt.Errorf("%w: no result-channel handler registered before offer", ErrNegotiationState)
	}
	h.mu.Unlock()

	return h.pc.CreateOffer(nil)
}

// CommitLocal applies the offer as the local description. This is the point
// where the underlying transport starts gathering candidates in the
// background.
func (h *Handle) CommitLocal(offer webrtc.SessionDescription) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StateNew {
		return fmt.Errorf("%w: local description committed in state %s", ErrNegotiationState, h.state)
	}
	if err := h.pc.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("commit local description: %w", err)
	}
	h.state = StateLocalCommitted
	return nil
}

// AwaitGatherComplete blocks until candidate gathering finishes. If gathering
// already completed it returns immediately; otherwise it waits on the gate
// closed exactly once by the state callback, so a completion that fired
// between the check and the wait cannot be missed. The caller bounds the wait
// through ctx; on expiry the local description is still usable with whatever
// candidates were gathered.
func (h *Handle) AwaitGatherComplete(ctx context.Context) error {
	h.mu.Lock()
	if h.state == StateClosed {
		h.mu.Unlock()
		return ErrClosed
	}
	if h.state != StateLocalCommitted && h.state != StateGatherComplete {
		h.mu.Unlock()
		return fmt.Errorf("%w: gathering awaited in state %s", ErrNegotiationState, h.state)
	}
	if h.pc.ICEGatheringState() == webrtc.ICEGatheringStateComplete {
		h.state = StateGatherComplete
		h.mu.Unlock()
		return nil
	}
	h.mu.Unlock()

	select {
	case <-h.gatherDone:
		h.mu.Lock()
		if h.state == StateLocalCommitted {
			h.state = StateGatherComplete
		}
		h.mu.Unlock()
		return nil
	case <-h.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LocalDescription returns the committed local description, including every
// candidate gathered so far.
func (h *Handle) LocalDescription() *webrtc.SessionDescription {
	return h.pc.LocalDescription()
}

// ApplyRemote applies the answer received through signaling. Anything other
// than a well-formed answer on top of a committed local description is a
// sequencing bug and is rejected.
func (h *Handle) ApplyRemote(answer webrtc.SessionDescription) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StateLocalCommitted && h.state != StateGatherComplete {
		return fmt.Errorf("%w: remote applied in state %s", ErrNegotiationRejected, h.state)
	}
	if answer.Type != webrtc.SDPTypeAnswer {
		return fmt.Errorf("%w: got %q, want an answer", ErrNegotiationRejected, answer.Type)
	}
	if err := h.pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("%w: %v", ErrNegotiationRejected, err)
	}
	h.state = StateRemoteApplied
	return nil
}

// State reports where the handle is in its negotiation sequence.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Close releases the peer connection and everything attached to it. It is
// idempotent, reachable from every state, and unblocks any pending waits.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		close(h.closed)
		h.mu.Lock()
		h.state = StateClosed
		h.mu.Unlock()
		h.closeErr = h.pc.Close()
	})
	return h.closeErr
}
