package egnosgo

import "math"

// WGS-84 geodetic/ECEF/ENU conversions (spec.md 4.3), grounded on
// FengXuebin-gnssgo/src/common.go's Ecef2Pos/Pos2Ecef/Ecef2Enu for the
// iterative-geodetic structure, and on original_source/jni/Satellite.c's
// cconv_to_ENU/get_azimuth/get_elevation for the az/el conventions.

// Pos2Ecef converts geodetic (lat,lon,h in rad,rad,m) to ECEF (m).
func Pos2Ecef(pos [3]float64) [3]float64 {
	sinp, cosp := math.Sin(pos[0]), math.Cos(pos[0])
	sinl, cosl := math.Sin(pos[1]), math.Cos(pos[1])
	e2 := WGS84E2
	v := WGS84A / math.Sqrt(1-e2*sinp*sinp)
	return [3]float64{
		(v + pos[2]) * cosp * cosl,
		(v + pos[2]) * cosp * sinl,
		(v*(1-e2) + pos[2]) * sinp,
	}
}

// Ecef2Pos converts ECEF (m) to geodetic (lat,lon,h in rad,rad,m) by
// Bowring-style iteration, converging in <=5 steps per spec.md 4.3.
func Ecef2Pos(r [3]float64) [3]float64 {
	e2 := WGS84E2
	p := math.Hypot(r[0], r[1])
	lat := math.Atan2(r[2], p*(1-e2))
	var h, v float64
	for i := 0; i < 8; i++ {
		v = WGS84A / math.Sqrt(1-e2*math.Sin(lat)*math.Sin(lat))
		prevLat := lat
		h = p/math.Cos(lat) - v
		lat = math.Atan2(r[2], p*(1-e2*v/(v+h)))
		if math.Abs(lat-prevLat) < 1e-12 {
			break
		}
	}
	lon := 0.0
	if p > 1e-12 || r[0] != 0 || r[1] != 0 {
		lon = math.Atan2(r[1], r[0])
	}
	return [3]float64{lat, lon, h}
}

// enuBasis returns the 3x3 rotation matrix from ECEF-difference to local
// ENU at geodetic position pos.
func enuBasis(pos [3]float64) [3][3]float64 {
	sinp, cosp := math.Sin(pos[0]), math.Cos(pos[0])
	sinl, cosl := math.Sin(pos[1]), math.Cos(pos[1])
	return [3][3]float64{
		{-sinl, cosl, 0},
		{-sinp * cosl, -sinp * sinl, cosp},
		{cosp * cosl, cosp * sinl, sinp},
	}
}

// Ecef2Enu converts an ECEF vector r (e.g. a satellite-minus-user
// difference) to local ENU at geodetic position pos.
func Ecef2Enu(pos [3]float64, r [3]float64) [3]float64 {
	e := enuBasis(pos)
	var enu [3]float64
	for i := 0; i < 3; i++ {
		enu[i] = e[i][0]*r[0] + e[i][1]*r[1] + e[i][2]*r[2]
	}
	return enu
}

// Enu2Ecef is the inverse of Ecef2Enu.
func Enu2Ecef(pos [3]float64, enu [3]float64) [3]float64 {
	e := enuBasis(pos)
	var r [3]float64
	for i := 0; i < 3; i++ {
		r[i] = e[0][i]*enu[0] + e[1][i]*enu[1] + e[2][i]*enu[2]
	}
	return r
}

// AzEl computes azimuth/elevation (radians) of enu as seen from the user,
// per spec.md 4.3: el = atan2(U, sqrt(E^2+N^2)); az = atan2(E,N) normalized
// to [0, 2*pi).
func AzEl(enu [3]float64) (az, el float64) {
	el = math.Atan2(enu[2], math.Hypot(enu[0], enu[1]))
	az = math.Atan2(enu[0], enu[1])
	if az < 0 {
		az += 2 * math.Pi
	}
	return az, el
}

// ObliquityFactor is F_pp = 1/sqrt(1-((Re*cos(el))/(Re+hI))^2), spec.md 4.3,
// with Re approximated by WGS84A as the original source does.
func ObliquityFactor(el float64) float64 {
	ratio := (WGS84A * math.Cos(el)) / (WGS84A + IonoHeight)
	return 1.0 / math.Sqrt(1-ratio*ratio)
}
