package app

import (
	"math"
	"time"
)

// DefaultBasePoints is the full-speed award for a correct answer.
const DefaultBasePoints = 1000

// Score computes the points for a single answer. Incorrect answers score
// zero. Correct answers scale linearly with response speed down to a floor
// of half the base points, so any correct answer inside the limit earns at
// least 50% credit. Pure function; the session supplies authoritative
// elapsed time.
func Score(correct bool, basePoints int, timeLimit, elapsed time.Duration) int {
	if !correct || timeLimit <= 0 {
		return 0
	}
	if elapsed < 0 {
		elapsed = 0
	}
	fraction := 1 - elapsed.Seconds()/timeLimit.Seconds()
	if fraction < 0.5 {
		fraction = 0.5
	}
	return int(math.Round(float64(basePoints) * fraction))
}
