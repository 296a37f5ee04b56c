// Package results receives and decodes the inbound result channel. Each
// message is a self-contained JSON document; messages never span deliveries.
package results

import (
	"encoding/json"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/seekr-live/seekr/internal/util"
)

// Result is one decoded detection record. Label is the only required field;
// score and confidence follow the endpoint's result shape.
type Result struct {
	Label      string  `json:"label"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// Handler decodes inbound channel messages and forwards them, in arrival
// order, to a single consumer callback. A payload that fails to decode is
// logged and dropped; the channel stays open and later messages still flow.
type Handler struct {
	mu       sync.Mutex
	onResult func(Result)
	closed   bool
}

// OnResult registers the consumer callback. Register before Bind so the first
// message cannot race the registration.
func (h *Handler) OnResult(fn func(Result)) {
	h.mu.Lock()
	h.onResult = fn
	h.mu.Unlock()
}

// Bind attaches the handler to an open (or opening) channel. The transport
// guarantees ordered delivery, and pion runs the message callback serially,
// so forwarding inline preserves arrival order.
func (h *Handler) Bind(dc *webrtc.DataChannel) {
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		h.handle(msg.Data)
	})
}

// handle decodes one delivery. Split from Bind so the decode path is
// exercisable without a live channel.
func (h *Handler) handle(data []byte) {
	util.Stats.AddRecv(len(data))

	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		util.Stats.AddBadResult()
		util.LogWarning("malformed result payload (%d bytes): %v", len(data), err)
		return
	}
	util.Stats.AddResult()

	h.mu.Lock()
	fn := h.onResult
	closed := h.closed
	h.mu.Unlock()

	if closed || fn == nil {
		return
	}
	fn(res)
}

// Close stops forwarding. Messages still in flight are decoded and counted
// but no longer reach the consumer.
func (h *Handler) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
}
