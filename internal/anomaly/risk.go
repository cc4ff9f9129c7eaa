// internal/anomaly/risk.go
package anomaly

import (
	"math"

	"meditrack-dashboard/internal/data"
)

// Thresholds of the display heuristic. The score is a visual signal only and
// carries no diagnostic meaning.
const (
	heartRateCeiling     = 120.0
	heartRateSaturated   = 80.0
	temperatureCeiling   = 39.0
	temperatureSaturated = 70.0

	minScore = 0.0
	maxScore = 100.0
)

// Components returns the heart-rate and temperature parts of the risk score.
// Inputs are not validated; negative readings yield negative components.
func Components(r data.Reading) (hr, temp float64) {
	if r.HeartRate > heartRateCeiling {
		hr = heartRateSaturated
	} else {
		hr = r.HeartRate / 2
	}
	if r.Temperature > temperatureCeiling {
		temp = temperatureSaturated
	} else {
		temp = r.Temperature * 2
	}
	return hr, temp
}

// RiskScore blends the components and clamps the result to [0,100].
func RiskScore(r data.Reading) float64 {
	hr, temp := Components(r)
	return clamp((hr+temp)/2, minScore, maxScore)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// Level groups scores for coloring in the renderers.
type Level string

const (
	LevelLow      Level = "low"
	LevelElevated Level = "elevated"
	LevelHigh     Level = "high"
)

// Band maps a score to its display level.
func Band(score float64) Level {
	switch {
	case score >= 70:
		return LevelHigh
	case score >= 40:
		return LevelElevated
	default:
		return LevelLow
	}
}
