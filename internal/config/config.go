// Package config holds the CLI configuration types.
package config

import "time"

// DefaultGatherTimeout bounds the wait for ICE candidate gathering before the
// offer is sent with whatever candidates are known. An unresponsive STUN
// server must not stall connection setup forever.
const DefaultGatherTimeout = 10 * time.Second

// Client stores all parameters for the seekr client binary.
type Client struct {
	ServerURL     string        // Base URL of the inference endpoint, e.g. http://localhost:3001
	DeviceID      string        // Capture device to open; empty selects the default
	Width         int           // Requested capture width
	Height        int           // Requested capture height
	FPS           int           // Requested capture frame rate
	GatherTimeout time.Duration // Upper bound on the candidate-gathering wait
}

// Server stores all parameters for the seekrd binary.
type Server struct {
	Addr     string // Listen address, e.g. :3001
	RedisURL string // Optional; empty keeps room state in memory
}
