package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/seekr-live/seekr/internal/rtc"
	"github.com/seekr-live/seekr/internal/signaling"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	s := New(Config{RTC: rtc.Config{STUNServers: []string{}}}, nil)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		srv.Close()
		s.Close()
	})
	return srv
}

func TestOfferRejectsWrongMethod(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/offer")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}

func TestOfferRejectsBadBodies(t *testing.T) {
	srv := newTestServer(t)

	testCases := []struct {
		name string
		body string
	}{
		{"not json", "{{{"},
		{"wrong kind", `{"sdp":"v=0","type":"answer"}`},
		{"empty sdp", `{"sdp":"","type":"offer"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/offer", "application/json", strings.NewReader(tc.body))
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestOfferProducesAnswer(t *testing.T) {
	srv := newTestServer(t)

	pc, err := rtc.NewPeerConnection(rtc.Config{STUNServers: []string{}})
	if err != nil {
		t.Fatal(err)
	}
	defer pc.Close()

	// A channel gives the offer a media section to negotiate over.
	if _, err := pc.CreateDataChannel("probe", nil); err != nil {
		t.Fatal(err)
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		t.Fatal(err)
	}
	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		t.Fatal(err)
	}
	select {
	case <-gathered:
	case <-time.After(10 * time.Second):
		t.Fatal("offer gathering did not complete")
	}

	body, err := json.Marshal(signaling.FromSession(*pc.LocalDescription()))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(srv.URL+"/offer", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, body = %s", resp.StatusCode, raw)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var answer signaling.Description
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		t.Fatalf("decode answer: %v", err)
	}
	if answer.Type != "answer" {
		t.Errorf("type = %q, want answer", answer.Type)
	}
	if answer.SDP == "" {
		t.Error("answer has an empty SDP")
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
