package models

import (
	"math"
)

// Coordinate is an integer MNI coordinate in millimeter scanner space.
// Atlas grids are integer-indexed, so real-valued input is rounded to a
// Coordinate before any lookup takes place.
type Coordinate struct {
	// X is the left-right axis position in mm (positive = right)
	X int

	// Y is the posterior-anterior axis position in mm (positive = anterior)
	Y int

	// Z is the inferior-superior axis position in mm (positive = superior)
	Z int
}

// RoundCoordinate converts a real-valued MNI coordinate to the integer
// grid coordinate used for atlas lookups. Rounding is half-away-from-zero
// (math.Round): 26.5 becomes 27 and -0.5 becomes -1.
func RoundCoordinate(x, y, z float64) Coordinate {
	return Coordinate{
		X: int(math.Round(x)),
		Y: int(math.Round(y)),
		Z: int(math.Round(z)),
	}
}

// DistanceTo returns the Euclidean distance in mm from c to the point
// (x, y, z) in world space.
func (c Coordinate) DistanceTo(x, y, z float64) float64 {
	dx := float64(c.X) - x
	dy := float64(c.Y) - y
	dz := float64(c.Z) - z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
