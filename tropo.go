package egnosgo

import "math"

// Tropospheric corrector (spec.md 4.8), grounded on
// FengXuebin-gnssgo/src/sbas.go's getmet/SbsTropCorr, which already
// implements the DO-229 seasonal meteorological model faithfully; this
// port adds the low-elevation (2 deg <= el < 4 deg) branch spec.md 4.8
// calls for and the teacher omits.

type metRow struct {
	lat                              float64
	p, t, e, beta, lambda            float64
	dp, dt, de, dbeta, dlambda       float64
}

// metTable is the DO-229 Table A-2 average/seasonal-variation values at
// latitudes 15/30/45/60/75 degrees.
var metTable = [5]metRow{
	{15, 1013.25, 299.65, 26.31, 6.30e-3, 2.77, 0.00, 0.00, 0.00, 0.00e-3, 0.00},
	{30, 1017.25, 294.15, 21.79, 6.05e-3, 3.15, -3.75, 7.00, 8.85, 0.25e-3, 0.33},
	{45, 1015.75, 283.15, 11.66, 5.58e-3, 2.57, -2.25, 11.00, 7.24, 0.32e-3, 0.46},
	{60, 1011.75, 272.15, 6.78, 5.39e-3, 1.81, -1.75, 15.00, 5.36, 0.81e-3, 0.74},
	{75, 1013.00, 263.65, 4.11, 4.53e-3, 1.55, -0.50, 14.50, 3.39, 0.62e-3, 0.30},
}

// getmet interpolates the meteorological table linearly in |latitude|,
// clamping outside [15,75] degrees.
func getmet(latDeg float64) metRow {
	a := math.Abs(latDeg)
	if a <= 15 {
		return metTable[0]
	}
	if a >= 75 {
		return metTable[4]
	}
	for i := 0; i < 4; i++ {
		if a >= metTable[i].lat && a <= metTable[i+1].lat {
			f := (a - metTable[i].lat) / (metTable[i+1].lat - metTable[i].lat)
			lerp := func(x, y float64) float64 { return x + f*(y-x) }
			r := metTable[i]
			s := metTable[i+1]
			return metRow{
				lat: a,
				p: lerp(r.p, s.p), t: lerp(r.t, s.t), e: lerp(r.e, s.e),
				beta: lerp(r.beta, s.beta), lambda: lerp(r.lambda, s.lambda),
				dp: lerp(r.dp, s.dp), dt: lerp(r.dt, s.dt), de: lerp(r.de, s.de),
				dbeta: lerp(r.dbeta, s.dbeta), dlambda: lerp(r.dlambda, s.dlambda),
			}
		}
	}
	return metTable[4]
}

const (
	troK1 = 77.604
	troK2 = 382000.0
	troRd = 287.054
	troGm = 9.784
	troG  = 9.80665
)

// SbsTropCorr computes the slant tropospheric delay and variance
// (spec.md 4.8). Below 2 deg elevation the correction is not computed.
// delay is returned negated, matching SbsIonCorr's sign convention, so a
// caller can subtract range delay from a pseudorange by adding delay.
func SbsTropCorr(t Gtime, userPos [3]float64, el float64) (delay, variance float64, ok bool) {
	if el < 2*Pi/180 {
		return 0, 0, false
	}
	latDeg := userPos[0] * 180 / Pi
	h := userPos[2]
	if h < 0 {
		h = 0
	}

	refDay := 28.0
	if latDeg < 0 {
		refDay = 211.0
	}
	doy := dayOfYearFromGtime(t)
	phase := math.Cos(2 * Pi * (doy - refDay) / 365.25)

	row := getmet(latDeg)
	p := row.p - row.dp*phase
	temp := row.t - row.dt*phase
	e := row.e - row.de*phase
	beta := row.beta - row.dbeta*phase
	lambda := row.lambda - row.dlambda*phase

	zh := 1e-6 * troK1 * troRd * p / troGm
	zw := 1e-6 * troK2 * troRd / (troGm*(lambda+1) - beta*troRd) * (e / temp)

	hFactor := math.Pow(1-beta*h/temp, troG/(troRd*beta))
	zh *= hFactor
	zwExp := (lambda+1)*troG/(troRd*beta) - 1
	zw *= math.Pow(1-beta*h/temp, zwExp)

	m := 1.001 / math.Sqrt(0.002001+math.Sin(el)*math.Sin(el))
	if el < 4*Pi/180 {
		// low-elevation augmentation, spec.md 4.8.
		m += (1.0 - (el - 2*Pi/180) / (2 * Pi / 180)) * 0.5
	}

	delay = -(zh + zw) * m
	variance = (0.12 * m) * (0.12 * m)
	return delay, variance, true
}

// dayOfYearFromGtime returns a day index in [1,365] from a GPS Gtime
// epoch count (whole days since the epoch, modulo 365), grounded on original_source/jni/Time.c's day-of-year
// bookkeeping used by the same seasonal tropospheric model.
func dayOfYearFromGtime(t Gtime) float64 {
	const secPerDay = 86400
	days := t.Time / secPerDay
	return float64(days%365) + 1
}
