// Package signaling transports the committed local description to the
// inference endpoint and returns the remote answer. One POST, one response,
// per connection setup; renegotiation and retries live with the caller.
package signaling

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
)

var (
	// ErrUnreachable is returned when the exchange request never produced a
	// response (DNS, dial, or transport failure).
	ErrUnreachable = errors.New("signaling: endpoint unreachable")

	// ErrRejected is returned when the endpoint answered with a non-success
	// status or a body that is not a usable answer.
	ErrRejected = errors.New("signaling: exchange rejected")
)

// Description is the wire form of a session description. Field names are the
// endpoint's contract; both sides of the exchange use the same shape.
type Description struct {
	SDP  string `json:"sdp"`
	Type string `json:"type"`
}

// FromSession converts a pion description to its wire form.
func FromSession(sd webrtc.SessionDescription) Description {
	return Description{SDP: sd.SDP, Type: sd.Type.String()}
}

// ToSession converts a wire description back into pion's type.
func (d Description) ToSession() webrtc.SessionDescription {
	return webrtc.SessionDescription{
		SDP:  d.SDP,
		Type: webrtc.NewSDPType(d.Type),
	}
}

// Client performs the one-shot offer/answer exchange against a base URL.
// Query entries (e.g. room and player for a game session) are appended to the
// exchange request.
type Client struct {
	BaseURL string
	Query   url.Values
	HTTP    *http.Client
}

// NewClient returns a Client for the given base URL (scheme://host[:port]).
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Exchange POSTs the complete local description to /offer and returns the
// endpoint's answer. The local description must already carry all gathered
// candidates; sending it earlier can leave the remote side without a direct
// path.
func (c *Client) Exchange(ctx context.Context, local Description) (Description, error) {
	body, err := json.Marshal(local)
	if err != nil {
		return Description{}, fmt.Errorf("encode offer: %w", err)
	}

	endpoint := c.BaseURL + "/offer"
	if len(c.Query) > 0 {
		endpoint += "?" + c.Query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Description{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Description{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return Description{}, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var remote Description
	if err := json.NewDecoder(resp.Body).Decode(&remote); err != nil {
		return Description{}, fmt.Errorf("%w: malformed response body: %v", ErrRejected, err)
	}
	if remote.Type != "answer" || remote.SDP == "" {
		return Description{}, fmt.Errorf("%w: response is not an answer", ErrRejected)
	}

	return remote, nil
}
