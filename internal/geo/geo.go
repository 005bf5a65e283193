// Package geo computes great-circle distances between guesses and landmarks
// and converts them into round scores.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean Earth radius used by Distance.
const EarthRadiusMeters = 6371008.8

// MaxScore is awarded for a guess exactly on the target.
const MaxScore = 1000

// ScoreDecayMeters is the distance at which the score has decayed to 1/e of MaxScore.
const ScoreDecayMeters = 1000.0

var ErrInvalidCoordinate = errors.New("invalid coordinate")

type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%.5f, %.5f)", p.Lat, p.Lon)
}

// Validate rejects non-finite values and points outside the WGS84 ranges.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidCoordinate, p.Lat)
	}
	if math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) || p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidCoordinate, p.Lon)
	}
	return nil
}

// Distance returns the haversine distance in meters between a and b.
func Distance(a, b Point) float64 {
	if a == b {
		return 0
	}
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := lat2 - lat1
	dLon := radians(b.Lon - a.Lon)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	// Rounding can push h a hair past 1 for antipodal points.
	h = math.Min(1, math.Max(0, h))
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Score maps a distance in meters to points in [0, MaxScore].
func Score(distanceMeters float64) int {
	if math.IsNaN(distanceMeters) {
		return 0
	}
	if distanceMeters <= 0 {
		return MaxScore
	}
	score := math.Floor(MaxScore * math.Exp(-distanceMeters/ScoreDecayMeters))
	if score < 0 {
		return 0
	}
	if score > MaxScore {
		return MaxScore
	}
	return int(score)
}

// Evaluate is Distance followed by Score.
func Evaluate(guess, truth Point) (float64, int) {
	d := Distance(guess, truth)
	return d, Score(d)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
