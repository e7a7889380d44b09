package cache

import "fmt"

// AudioKey builds the audio-cache key for a (sentence text, speed) pair.
// Speed is rounded to two decimal places so visually identical adjustments
// (1.004 vs 1.001) hit the same entry.
func AudioKey(text string, speed float64) string {
	return fmt.Sprintf("%s|%.2f", text, speed)
}

// ScriptKey builds the script-cache key for a theme.
func ScriptKey(theme string) string {
	return theme
}
