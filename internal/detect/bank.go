package detect

import "math/rand/v2"

// Object is one entry in the detectable-object bank. Prompts describe the
// object positively; negatives are look-alikes the scorer must separate it
// from. Threshold and margin gate the positive score and the gap to the best
// negative before a frame counts as detected.
type Object struct {
	ID          string
	DisplayName string
	Prompts     []string
	Negatives   []string
	Threshold   float64
	Margin      float64
}

// GlobalNulls are appended to every object's negatives: things a camera
// pointed at nothing in particular tends to see.
var GlobalNulls = []string{
	"background clutter",
	"a table surface",
	"an empty room",
	"a wall",
	"the floor",
}

var bank = map[string]Object{
	"water_bottle": {
		ID:          "water_bottle",
		DisplayName: "WATER BOTTLE",
		Prompts: []string{
			"a water bottle",
			"a plastic water bottle",
			"a reusable water bottle",
			"someone holding a water bottle",
		},
		Negatives: []string{"a coffee mug", "a glass", "a vase", "a phone", "a spoon"},
		Threshold: DefaultThreshold,
		Margin:    DefaultMargin,
	},
	"phone": {
		ID:          "phone",
		DisplayName: "SMARTPHONE",
		Prompts: []string{
			"a smartphone",
			"a mobile phone",
			"someone holding a phone",
			"a phone with a screen",
		},
		Negatives: []string{"a tablet", "a remote control", "a calculator", "a water bottle", "a keyboard"},
		Threshold: DefaultThreshold,
		Margin:    DefaultMargin,
	},
	"notebook": {
		ID:          "notebook",
		DisplayName: "NOTEBOOK",
		Prompts: []string{
			"a spiral notebook",
			"someone holding a notebook",
			"a lined writing notebook",
			"a notebook on a desk",
		},
		Negatives: []string{"a book", "a tablet", "a sketchbook", "a magazine", "a keyboard"},
		Threshold: DefaultThreshold,
		Margin:    DefaultMargin,
	},
	"keyboard": {
		ID:          "keyboard",
		DisplayName: "KEYBOARD",
		Prompts: []string{
			"a computer keyboard",
			"a mechanical keyboard",
			"a USB keyboard",
			"someone holding a keyboard",
			"a keyboard on a desk",
		},
		Negatives: []string{"a remote control", "a piano", "a calculator", "a phone", "a laptop"},
		Threshold: DefaultThreshold,
		Margin:    DefaultMargin,
	},
	"charger": {
		ID:          "charger",
		DisplayName: "PHONE CHARGER",
		Prompts: []string{
			"a phone charger cable",
			"a USB charging cable",
			"someone holding a charger",
			"a power cable",
		},
		Negatives: []string{"earphones", "a wire", "a rope", "a belt"},
		Threshold: DefaultThreshold,
		Margin:    DefaultMargin,
	},
	"spoon": {
		ID:          "spoon",
		DisplayName: "SPOON",
		Prompts: []string{
			"a spoon",
			"a metal spoon",
			"someone holding a spoon",
			"a spoon on a table",
		},
		Negatives: []string{"a fork", "a knife", "chopsticks", "a ladle", "a water bottle"},
		Threshold: DefaultThreshold,
		Margin:    DefaultMargin,
	},
}

// Get returns the object with the given ID.
func Get(id string) (Object, bool) {
	obj, ok := bank[id]
	return obj, ok
}

// IDs returns every object ID in the bank.
func IDs() []string {
	ids := make([]string, 0, len(bank))
	for id := range bank {
		ids = append(ids, id)
	}
	return ids
}

// Random picks a random object not present in exclude. When every object has
// been used, the exclusion resets and the full bank is available again.
func Random(exclude map[string]bool) Object {
	var available []string
	for id := range bank {
		if !exclude[id] {
			available = append(available, id)
		}
	}
	if len(available) == 0 {
		available = IDs()
	}
	return bank[available[rand.IntN(len(available))]]
}
