// Package naming derives short, stable identifiers from free-form device
// descriptions. The smart name is the join key across generated artifacts,
// build outputs and registry entries, so it must be recomputed identically
// wherever it is needed.
package naming

import "strings"

// MaxLength is the maximum length of a smart name.
const MaxLength = 8

// keyword maps a substring of the user input to a canonical short name.
// Order matters: the first match wins, so more specific concepts come first.
type keyword struct {
	match string
	name  string
}

var keywordTable = []keyword{
	// Music
	{"guitar", "tuner"},
	{"piano", "piano"},
	{"tuner", "tuner"},
	{"music", "music"},

	// Fitness
	{"running", "runner"},
	{"run", "runner"},
	{"cycling", "cyclist"},
	{"bike", "cyclist"},
	{"bicycle", "cyclist"},
	{"fitness", "fitness"},
	{"workout", "fitness"},
	{"gym", "gym"},
	{"dumbbell", "lifter"},
	{"weight", "lifter"},
	{"sleep", "sleep"},

	// Tracking
	{"gps", "tracker"},
	{"asset", "tracker"},
	{"tracker", "tracker"},
	{"location", "tracker"},
	{"parking", "parking"},

	// Vehicles
	{"car", "vehicle"},
	{"vehicle", "vehicle"},

	// Safety
	{"helmet", "helmet"},
	{"safety", "safety"},

	// Home
	{"door", "door"},
	{"window", "window"},
	{"bathroom", "bath"},
	{"kitchen", "kitchen"},
	{"room", "room"},

	// Nature
	{"plant", "plant"},
	{"garden", "garden"},
	{"water", "hydration"},
	{"weather", "weather"},
	{"temperature", "weather"},
	{"climate", "weather"},

	// Pets
	{"dog", "pet"},
	{"pet", "pet"},
	{"cat", "pet"},
	{"animal", "animal"},
}

// fillerWords are generic tokens that carry no naming information.
var fillerWords = map[string]bool{
	"the": true, "a": true, "an": true, "my": true, "your": true,
	"buddy": true, "helper": true, "assistant": true, "tracker": true,
	"monitor": true, "sensor": true, "detector": true, "indicator": true,
	"device": true,
}

// SmartName converts a free-form device description into a short identifier.
//
//	"guitar helper"     -> "tuner"
//	"running buddy"     -> "runner"
//	"bathroom door"     -> "door" (keyword), "weird gadget" -> "gadget" (last token)
func SmartName(userInput string) string {
	input := strings.ToLower(strings.TrimSpace(userInput))

	for _, kw := range keywordTable {
		if strings.Contains(input, kw.match) {
			return kw.name
		}
	}

	// No keyword hit: keep meaningful tokens and prefer the last one,
	// so "smart mailbox flap" names after "flap" rather than "smart".
	var words []string
	for _, w := range strings.Fields(input) {
		if len(w) > 2 && !fillerWords[w] {
			words = append(words, w)
		}
	}
	if len(words) > 0 {
		return truncate(words[len(words)-1])
	}

	// Last resort: strip everything that is not alphanumeric.
	var sb strings.Builder
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return truncate(sb.String())
}

// Capitalize upper-cases the first character, for class and component names
// derived from smart names ("tuner" -> "Tuner").
func Capitalize(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func truncate(s string) string {
	if len(s) > MaxLength {
		return s[:MaxLength]
	}
	return s
}
