package session

import (
	"context"
	"math"
)

// Player positions and starts playback of a recording.
type Player interface {
	Play(ctx context.Context, url string, position float64) error
}

// PlayerFunc adapts a function to a Player.
type PlayerFunc func(ctx context.Context, url string, position float64) error

// Play calls f.
func (f PlayerFunc) Play(ctx context.Context, url string, position float64) error {
	return f(ctx, url, position)
}

// SeekPosition returns where playback starts for a violation at target
// seconds, using the default pre-roll.
func SeekPosition(target float64) float64 {
	return SeekPositionWithPreRoll(target, DefaultPreRoll)
}

// SeekPositionWithPreRoll returns max(0, target-preRoll). A NaN target
// seeks to the start.
func SeekPositionWithPreRoll(target, preRoll float64) float64 {
	if math.IsNaN(target) || math.IsNaN(preRoll) {
		return 0
	}
	return math.Max(0, target-preRoll)
}
