package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide frame/result counter.
var Stats = &stats{}

type stats struct {
	FramesSent  atomic.Int64 // cumulative video samples written to local tracks
	ResultsRecv atomic.Int64 // cumulative results decoded from the result channel
	BadResults  atomic.Int64 // cumulative malformed result payloads
	BytesRecv   atomic.Int64 // cumulative bytes read from the result channel
}

func (s *stats) AddFrame()     { s.FramesSent.Add(1) }
func (s *stats) AddResult()    { s.ResultsRecv.Add(1) }
func (s *stats) AddBadResult() { s.BadResults.Add(1) }
func (s *stats) AddRecv(n int) { s.BytesRecv.Add(int64(n)) }

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// StartStatsReporter launches a goroutine that logs session statistics
// every 10 seconds. It stops when ctx is cancelled. Quiet periods (no new
// frames and no new results) produce no output.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		var prevFrames, prevResults, prevBad int64
		for {
			select {
			case <-ticker.C:
				frames := Stats.FramesSent.Load()
				results := Stats.ResultsRecv.Load()
				bad := Stats.BadResults.Load()

				dF := frames - prevFrames
				dR := results - prevResults
				dB := bad - prevBad

				if dF > 0 || dR > 0 || dB > 0 {
					LogInfo("%s", formatStats(dF, dR, dB))
				}

				prevFrames = frames
				prevResults = results
				prevBad = bad

			case <-ctx.Done():
				return
			}
		}
	}()
}

// formatStats returns a fixed-layout summary of the last reporting interval.
func formatStats(frames, results, bad int64) string {
	return fmt.Sprintf("Frames: %4d/10s | Results: %3d↓ | Malformed: %2d", frames, results, bad)
}
