// Package server is the answering side of the negotiation: it accepts a
// posted offer, opens the "results" channel back to the client, consumes the
// inbound video track, and streams detection results. In production the CLIP
// model sits behind the Detector interface; in development the scripted or
// null detectors stand in.
package server

import (
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/seekr-live/seekr/internal/detect"
	"github.com/seekr-live/seekr/internal/game"
	"github.com/seekr-live/seekr/internal/rtc"
	"github.com/seekr-live/seekr/internal/util"
)

// Config assembles the server's collaborators.
type Config struct {
	Detector detect.Detector // nil falls back to detect.Null
	RTC      rtc.Config
}

// Server serves /offer, /ws (when a hub is attached), and /healthz.
type Server struct {
	cfg Config
	hub *game.Hub

	listener net.Listener

	mu  sync.Mutex
	pcs map[*webrtc.PeerConnection]struct{}
}

// New builds a server. hub may be nil for a pure streaming endpoint without
// the game surface.
func New(cfg Config, hub *game.Hub) *Server {
	if cfg.Detector == nil {
		cfg.Detector = detect.Null{}
	}
	return &Server{
		cfg: cfg,
		hub: hub,
		pcs: make(map[*webrtc.PeerConnection]struct{}),
	}
}

// Handler returns the server's HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/offer", s.HandleOffer)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, "ok")
	})
	if s.hub != nil {
		mux.HandleFunc("/ws", s.hub.HandleWS)
	}
	return mux
}

// Start begins serving on addr (":0" picks a free port). Returns the bound
// port number.
func (s *Server) Start(addr string) (int, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.listener = listener
	port := listener.Addr().(*net.TCPAddr).Port

	go func() {
		_ = http.Serve(listener, s.Handler())
	}()

	return port, nil
}

// Close stops the listener, the hub, and every live peer connection.
func (s *Server) Close() {
	if s.listener != nil {
		s.listener.Close()
	}
	if s.hub != nil {
		s.hub.Close()
	}

	s.mu.Lock()
	pcs := make([]*webrtc.PeerConnection, 0, len(s.pcs))
	for pc := range s.pcs {
		pcs = append(pcs, pc)
	}
	s.pcs = make(map[*webrtc.PeerConnection]struct{})
	s.mu.Unlock()

	for _, pc := range pcs {
		pc.Close()
	}
}

func (s *Server) track(pc *webrtc.PeerConnection) {
	s.mu.Lock()
	s.pcs[pc] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(pc *webrtc.PeerConnection) {
	s.mu.Lock()
	delete(s.pcs, pc)
	s.mu.Unlock()
}

func logAndClose(pc *webrtc.PeerConnection, s *Server) func(webrtc.PeerConnectionState) {
	return func(state webrtc.PeerConnectionState) {
		util.LogDebug("answer peer state: %s", state.String())
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			s.untrack(pc)
			pc.Close()
		}
	}
}
