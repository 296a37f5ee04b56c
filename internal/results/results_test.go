package results

import (
	"testing"
)

// TestDeliveryOrderAndMalformedIsolation feeds the handler a valid, a valid,
// and a malformed payload and verifies the consumer sees exactly the two
// valid records, in arrival order, with the malformed one isolated.
func TestDeliveryOrderAndMalformedIsolation(t *testing.T) {
	var got []Result

	h := &Handler{}
	h.OnResult(func(r Result) { got = append(got, r) })

	h.handle([]byte(`{"label":"cat"}`))
	h.handle([]byte(`{"label":"dog"}`))
	h.handle([]byte(`not-json`))

	if len(got) != 2 {
		t.Fatalf("callback invoked %d times, want 2", len(got))
	}
	if got[0].Label != "cat" || got[1].Label != "dog" {
		t.Errorf("labels = %q, %q, want cat, dog", got[0].Label, got[1].Label)
	}

	// The channel survives the malformed payload: later messages still flow.
	h.handle([]byte(`{"label":"spoon","score":0.31,"confidence":0.9}`))
	if len(got) != 3 {
		t.Fatalf("callback invoked %d times after recovery, want 3", len(got))
	}
	if got[2].Score != 0.31 || got[2].Confidence != 0.9 {
		t.Errorf("score/confidence = %v/%v, want 0.31/0.9", got[2].Score, got[2].Confidence)
	}
}

// TestNoDeliveryAfterClose verifies the consumer callback never fires once
// the handler is closed, even for well-formed payloads.
func TestNoDeliveryAfterClose(t *testing.T) {
	var calls int

	h := &Handler{}
	h.OnResult(func(Result) { calls++ })

	h.handle([]byte(`{"label":"phone"}`))
	h.Close()
	h.handle([]byte(`{"label":"phone"}`))

	if calls != 1 {
		t.Fatalf("callback invoked %d times, want 1 (none after close)", calls)
	}
}

// TestNoHandlerRegistered verifies a decode without a registered consumer is
// dropped without panicking.
func TestNoHandlerRegistered(t *testing.T) {
	h := &Handler{}
	h.handle([]byte(`{"label":"keyboard"}`))
}
