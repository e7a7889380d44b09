package shadow

import "fmt"

// speedSteps are the discrete speeds the UI cycles through. They span the
// playable rate range exactly.
var speedSteps = []float64{0.7, 0.8, 0.9, 1.0, 1.1, 1.25, 1.5, 1.75, 2.0}

// NextSpeed returns the next step above speed, or speed if already at the
// maximum.
func NextSpeed(speed float64) float64 {
	for _, s := range speedSteps {
		if s > speed+1e-9 {
			return s
		}
	}
	return speed
}

// PrevSpeed returns the next step below speed, or speed if already at the
// minimum.
func PrevSpeed(speed float64) float64 {
	for i := len(speedSteps) - 1; i >= 0; i-- {
		if speedSteps[i] < speed-1e-9 {
			return speedSteps[i]
		}
	}
	return speed
}

// FormatSpeed renders a speed multiplier for display.
func FormatSpeed(speed float64) string {
	return fmt.Sprintf("%.2fx", speed)
}
