package tick

import "strings"

// EasingFunc maps normalised progress in [0,1] to eased progress.
type EasingFunc func(t float64) float64

var easings = map[string]EasingFunc{
	"linear":  func(t float64) float64 { return t },
	"quadin":  func(t float64) float64 { return t * t },
	"quadout": func(t float64) float64 { return t * (2 - t) },
	"smooth":  func(t float64) float64 { return t * t * (3 - 2*t) },
}

// Easing returns the easing registered under name (case-insensitive).
// Unknown names fall back to linear and report false.
func Easing(name string) (EasingFunc, bool) {
	if f, ok := easings[strings.ToLower(name)]; ok {
		return f, true
	}
	return easings["linear"], false
}
