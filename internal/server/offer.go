package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"

	"github.com/seekr-live/seekr/internal/detect"
	"github.com/seekr-live/seekr/internal/rtc"
	"github.com/seekr-live/seekr/internal/signaling"
	"github.com/seekr-live/seekr/internal/util"
)

// detectInterval rate-limits inference: scoring every packet would melt any
// real backend for no gain in responsiveness.
const detectInterval = 250 * time.Millisecond

// answerGatherTimeout bounds the wait for the answer's own candidates. The
// response is non-trickle: everything gathered so far goes into the body.
const answerGatherTimeout = 10 * time.Second

// HandleOffer negotiates one streaming session: offer in, answer out, with a
// "results" channel opened back to the client before the answer is created so
// the client's side-channel handler sees it announced.
func (s *Server) HandleOffer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	var offer signaling.Description
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil {
		http.Error(w, "malformed offer body", http.StatusBadRequest)
		return
	}
	if offer.Type != "offer" || offer.SDP == "" {
		http.Error(w, "body is not an offer", http.StatusBadRequest)
		return
	}

	// Optional game association: a client playing a round identifies itself
	// so its detections can claim the round win.
	roomCode := r.URL.Query().Get("room")
	playerID := r.URL.Query().Get("player")

	pc, err := rtc.NewPeerConnection(s.cfg.RTC)
	if err != nil {
		util.LogError("create answer peer: %v", err)
		http.Error(w, "peer connection failed", http.StatusInternalServerError)
		return
	}
	s.track(pc)
	pc.OnConnectionStateChange(logAndClose(pc, s))

	dc, err := pc.CreateDataChannel("results", nil)
	if err != nil {
		s.untrack(pc)
		pc.Close()
		util.LogError("create results channel: %v", err)
		http.Error(w, "data channel failed", http.StatusInternalServerError)
		return
	}
	dc.OnOpen(func() { util.LogInfo("results channel open") })
	dc.OnClose(func() { util.LogInfo("results channel closed") })

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if track.Kind() != webrtc.RTPCodecTypeVideo {
			return
		}
		util.LogInfo("video track inbound: %s", track.ID())
		go s.consumeTrack(track, dc, roomCode, playerID)
	})

	if err := pc.SetRemoteDescription(offer.ToSession()); err != nil {
		s.untrack(pc)
		pc.Close()
		http.Error(w, "offer rejected", http.StatusBadRequest)
		return
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		s.untrack(pc)
		pc.Close()
		util.LogError("create answer: %v", err)
		http.Error(w, "answer failed", http.StatusInternalServerError)
		return
	}

	gathered := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		s.untrack(pc)
		pc.Close()
		util.LogError("commit answer: %v", err)
		http.Error(w, "answer failed", http.StatusInternalServerError)
		return
	}

	select {
	case <-gathered:
	case <-time.After(answerGatherTimeout):
		util.LogWarning("answer gathering incomplete after %s, responding anyway", answerGatherTimeout)
	case <-r.Context().Done():
		s.untrack(pc)
		pc.Close()
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(signaling.FromSession(*pc.LocalDescription())); err != nil {
		util.LogWarning("write answer: %v", err)
	}
}

// consumeTrack reads the inbound RTP stream and periodically runs detection
// on the freshest payload, pushing each result onto the results channel while
// it is open. One self-contained JSON document per message.
func (s *Server) consumeTrack(track *webrtc.TrackRemote, dc *webrtc.DataChannel, roomCode, playerID string) {
	var (
		latest   *rtp.Packet
		lastScan time.Time
	)

	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			util.LogDebug("track %s ended: %v", track.ID(), err)
			return
		}
		latest = pkt

		if time.Since(lastScan) < detectInterval {
			continue
		}
		lastScan = time.Now()

		res := s.cfg.Detector.Detect(latest.Payload)
		s.pushResult(dc, res)

		if s.hub != nil && roomCode != "" && playerID != "" && res.Label != detect.NoneLabel {
			s.hub.HandleDetection(context.Background(), roomCode, playerID, res)
		}
	}
}

func (s *Server) pushResult(dc *webrtc.DataChannel, res detect.Result) {
	if dc.ReadyState() != webrtc.DataChannelStateOpen {
		return
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := dc.Send(raw); err != nil {
		util.LogDebug("send result: %v", err)
	}
}
