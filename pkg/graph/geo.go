package graph

import "math"

const earthRadiusKM = 6371.0

// Haversine returns the great-circle distance in kilometres between a and b.
func Haversine(a, b Coordinates) float64 {
	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	dPhi := (b.Lat - a.Lat) * math.Pi / 180
	dLambda := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	// rounding can push h just outside [0,1] for antipodal points
	h = min(max(h, 0), 1)
	return earthRadiusKM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Distance returns the haversine distance between two nodes and false when
// either of them has no coordinates.
func Distance(a, b Node) (float64, bool) {
	ca, ok := a.Coordinates()
	if !ok {
		return 0, false
	}
	cb, ok := b.Coordinates()
	if !ok {
		return 0, false
	}
	return Haversine(ca, cb), true
}

func roundKM(d float64) float64 {
	return math.Round(d*1000) / 1000
}
