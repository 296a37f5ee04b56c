package rtc

import (
	"github.com/pion/logging"
	"github.com/pion/webrtc/v4"

	"github.com/seekr-live/seekr/internal/util"
)

// STUN servers for ICE candidate gathering. No TURN — the client is designed
// for direct paths to the inference endpoint with zero relay cost.
var defaultSTUNServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

// Config tunes peer connection creation. The zero value is usable. A nil
// STUNServers slice selects the defaults; an empty non-nil slice disables
// STUN entirely and gathers host candidates only (loopback and tests).
type Config struct {
	STUNServers   []string
	LoggerFactory logging.LoggerFactory
}

// NewPeerConnection creates a PeerConnection with STUN-assisted gathering and
// pion's internals logging through the shared logger. The answerer side uses
// it directly; the offerer side gets one wrapped in a Handle.
func NewPeerConnection(cfg Config) (*webrtc.PeerConnection, error) {
	stun := cfg.STUNServers
	if stun == nil {
		stun = defaultSTUNServers
	}

	lf := cfg.LoggerFactory
	if lf == nil {
		lf = &util.PionLoggerFactory{}
	}

	se := webrtc.SettingEngine{LoggerFactory: lf}
	api := webrtc.NewAPI(webrtc.WithSettingEngine(se))

	var servers []webrtc.ICEServer
	if len(stun) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: stun})
	}

	return api.NewPeerConnection(webrtc.Configuration{ICEServers: servers})
}
