package detect

import "testing"

func TestBankIntegrity(t *testing.T) {
	ids := IDs()
	if len(ids) != 6 {
		t.Fatalf("bank has %d objects, want 6", len(ids))
	}

	for _, id := range ids {
		obj, ok := Get(id)
		if !ok {
			t.Fatalf("Get(%q) missing", id)
		}
		if obj.ID != id {
			t.Errorf("object %q carries ID %q", id, obj.ID)
		}
		if obj.DisplayName == "" {
			t.Errorf("object %q has no display name", id)
		}
		if len(obj.Prompts) == 0 {
			t.Errorf("object %q has no prompts", id)
		}
		if obj.Threshold <= 0 || obj.Margin <= 0 {
			t.Errorf("object %q has unusable threshold/margin: %v/%v", id, obj.Threshold, obj.Margin)
		}
	}
}

func TestRandomExcludes(t *testing.T) {
	exclude := make(map[string]bool)
	for _, id := range IDs() {
		exclude[id] = true
	}
	// All but one excluded: the remaining object must always be picked.
	delete(exclude, "spoon")

	for i := 0; i < 20; i++ {
		if obj := Random(exclude); obj.ID != "spoon" {
			t.Fatalf("Random picked excluded object %q", obj.ID)
		}
	}
}

func TestRandomResetsWhenExhausted(t *testing.T) {
	exclude := make(map[string]bool)
	for _, id := range IDs() {
		exclude[id] = true
	}

	obj := Random(exclude)
	if _, ok := Get(obj.ID); !ok {
		t.Fatalf("Random returned unknown object %q after exhaustion", obj.ID)
	}
}

func TestScriptedDetector(t *testing.T) {
	obj, _ := Get("phone")
	d := &Scripted{FramesToDetect: 3}
	d.SetActiveObject(obj)

	frame := []byte{1, 2, 3}
	for i := 0; i < 2; i++ {
		if res := d.Detect(frame); res.Label != NoneLabel {
			t.Fatalf("frame %d detected %q, want none", i+1, res.Label)
		}
	}

	res := d.Detect(frame)
	if res.Label != "phone" {
		t.Fatalf("third frame detected %q, want phone", res.Label)
	}
	if res.Confidence != 1 {
		t.Errorf("confidence = %v, want 1", res.Confidence)
	}

	// A new round resets the counter.
	d.SetActiveObject(obj)
	if res := d.Detect(frame); res.Label != NoneLabel {
		t.Errorf("first frame of new round detected %q, want none", res.Label)
	}
}

func TestScriptedWithoutActiveObject(t *testing.T) {
	d := &Scripted{FramesToDetect: 1}
	if res := d.Detect([]byte{1}); res.Label != NoneLabel {
		t.Errorf("detector without active object detected %q", res.Label)
	}
}

func TestNullDetector(t *testing.T) {
	var d Detector = Null{}
	obj, _ := Get("spoon")
	d.SetActiveObject(obj)
	if res := d.Detect([]byte{1, 2}); res.Label != NoneLabel {
		t.Errorf("null detector detected %q", res.Label)
	}
}
