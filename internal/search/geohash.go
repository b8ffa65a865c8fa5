package search

import (
	"math"
	"slices"

	"github.com/mmcloughlin/geohash"
)

// GeohashPrecision gives cells of roughly 150 m.
const GeohashPrecision = 7

const earthRadiusKm = 6371.0

// Geohash encodes a coordinate with the given number of characters.
func Geohash(lat, lng float64, precision int) string {
	return geohash.EncodeWithPrecision(lat, lng, uint(precision))
}

// cellKm is the shorter side of a geohash cell, indexed by length.
var cellKm = [...]float64{1: 5000, 2: 625, 3: 156, 4: 19.5, 5: 4.89, 6: 0.61, 7: 0.153}

// Area is the block of nine geohash cells around a point, sized so that
// everything within its radius falls inside.
type Area struct {
	precision int
	cells     []string
}

// NewArea covers radiusKm around lat, lng.
func NewArea(lat, lng, radiusKm float64) Area {
	// Cells narrow east-west away from the equator.
	shrink := math.Cos(lat * math.Pi / 180)
	precision := 1
	for p := len(cellKm) - 1; p >= 1; p-- {
		if cellKm[p]*shrink >= radiusKm {
			precision = p
			break
		}
	}
	center := geohash.EncodeWithPrecision(lat, lng, uint(precision))
	return Area{
		precision: precision,
		cells:     append([]string{center}, geohash.Neighbors(center)...),
	}
}

// Contains reports whether a geohash of at least the area's precision lies
// in one of its cells.
func (a Area) Contains(hash string) bool {
	if len(hash) < a.precision {
		return false
	}
	return slices.Contains(a.cells, hash[:a.precision])
}

// Haversine returns the great-circle distance in kilometres.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
