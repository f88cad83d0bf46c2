// Package geo computes distances between WGS84 coordinates.
package geo

import "math"

const (
	// WGS84 ellipsoid
	semiMajorAxis = 6378137.0
	flattening    = 1 / 298.257223563
	semiMinorAxis = (1 - flattening) * semiMajorAxis

	earthRadiusMeters = 6371000

	maxIterations = 200
	tolerance     = 1e-12
)

// Distance returns the geodesic distance in meters between two points given
// in decimal degrees, using Vincenty's inverse formula on the WGS84 ellipsoid.
// Nearly antipodal points where the iteration does not converge fall back to
// the spherical haversine distance.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	if d, ok := vincenty(lat1, lon1, lat2, lon2); ok {
		return d
	}
	return haversine(lat1, lon1, lat2, lon2)
}

func vincenty(lat1, lon1, lat2, lon2 float64) (float64, bool) {
	l := toRad(lon2 - lon1)
	u1 := math.Atan((1 - flattening) * math.Tan(toRad(lat1)))
	u2 := math.Atan((1 - flattening) * math.Tan(toRad(lat2)))
	sinU1, cosU1 := math.Sincos(u1)
	sinU2, cosU2 := math.Sincos(u2)

	lambda := l
	var sinSigma, cosSigma, sigma, cosSqAlpha, cos2SigmaM float64
	converged := false
	for i := 0; i < maxIterations; i++ {
		sinLambda, cosLambda := math.Sincos(lambda)
		a := cosU2 * sinLambda
		b := cosU1*sinU2 - sinU1*cosU2*cosLambda
		sinSigma = math.Sqrt(a*a + b*b)
		if sinSigma == 0 {
			// coincident points
			return 0, true
		}
		cosSigma = sinU1*sinU2 + cosU1*cosU2*cosLambda
		sigma = math.Atan2(sinSigma, cosSigma)
		sinAlpha := cosU1 * cosU2 * sinLambda / sinSigma
		cosSqAlpha = 1 - sinAlpha*sinAlpha
		if cosSqAlpha != 0 {
			cos2SigmaM = cosSigma - 2*sinU1*sinU2/cosSqAlpha
		} else {
			// equatorial line
			cos2SigmaM = 0
		}
		c := flattening / 16 * cosSqAlpha * (4 + flattening*(4-3*cosSqAlpha))
		prev := lambda
		lambda = l + (1-c)*flattening*sinAlpha*
			(sigma+c*sinSigma*(cos2SigmaM+c*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))
		if math.Abs(lambda-prev) < tolerance {
			converged = true
			break
		}
	}
	if !converged {
		return 0, false
	}

	uSq := cosSqAlpha * (semiMajorAxis*semiMajorAxis - semiMinorAxis*semiMinorAxis) / (semiMinorAxis * semiMinorAxis)
	bigA := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
	bigB := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))
	deltaSigma := bigB * sinSigma * (cos2SigmaM + bigB/4*(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
		bigB/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))

	d := semiMinorAxis * bigA * (sigma - deltaSigma)
	if math.IsNaN(d) {
		return 0, false
	}
	return d, true
}

func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
