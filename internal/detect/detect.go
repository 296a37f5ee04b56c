// Package detect defines the detection contract the inference endpoint
// fulfills, plus the object bank rounds draw from. The real CLIP model lives
// outside this repo; implementations here cover development and tests.
package detect

import "sync"

// NoneLabel is reported when the active object was not detected in a frame.
const NoneLabel = "none"

// Default detection thresholds, overridden per object by the bank.
const (
	DefaultThreshold = 0.22
	DefaultMargin    = 0.04
)

// Result is the per-frame detection outcome sent back to the player.
type Result struct {
	Label      string  `json:"label"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// Detector scores frames against the active object. SetActiveObject is called
// once per round, not per frame; pre-computing per-object state belongs there.
type Detector interface {
	SetActiveObject(obj Object)
	Detect(frame []byte) Result
}

// Null always reports no detection. It keeps the server runnable without an
// inference backend.
type Null struct{}

func (Null) SetActiveObject(Object) {}

func (Null) Detect([]byte) Result { return Result{Label: NoneLabel} }

// Scripted fires a detection of the active object after a fixed number of
// frames, with rising confidence on the way there. It is deterministic, so
// round flows can be exercised end to end without a model.
type Scripted struct {
	FramesToDetect int

	mu     sync.Mutex
	active Object
	seen   int
}

func (s *Scripted) SetActiveObject(obj Object) {
	s.mu.Lock()
	s.active = obj
	s.seen = 0
	s.mu.Unlock()
}

func (s *Scripted) Detect(frame []byte) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active.ID == "" || len(frame) == 0 {
		return Result{Label: NoneLabel}
	}

	s.seen++
	progress := float64(s.seen) / float64(s.FramesToDetect)
	if progress >= 1 {
		return Result{
			Label:      s.active.ID,
			Score:      s.active.Threshold + 0.1,
			Confidence: 1,
		}
	}

	return Result{
		Label:      NoneLabel,
		Score:      s.active.Threshold * progress,
		Confidence: progress,
	}
}
