package egnosgo

import "math"

// Ionospheric corrector (spec.md 4.7), grounded on
// FengXuebin-gnssgo/src/sbas.go's SearchIgp/SbsIonCorr for the pierce-point
// and interpolation structure, and original_source/jni/Ionosphere.c for
// the MT18/MT26 table-assembly flow (TOW-stamped payload strings feeding
// a band-keyed grid, cross-checked by IODI between MT18 and MT26).

// IonoGrid is the persistent SBAS ionospheric grid table (spec.md 5: "SBAS
// messages persist across cycles as their own table with their own
// age-out rules"). It is rebuilt from the latest MT18 (grid definition)
// and MT26 (grid values) messages each time those arrive.
type IonoGrid struct {
	entries map[[2]int16]*IGPEntry
}

func NewIonoGrid() *IonoGrid {
	return &IonoGrid{entries: make(map[[2]int16]*IGPEntry)}
}

func gridKey(lat, lon int16) [2]int16 { return [2]int16{lat, lon} }

// ApplyMask registers every grid point an MT18 mask selects, defaulting
// to "not monitored" (give=16) until a matching MT26 supplies a value.
func (g *IonoGrid) ApplyMask(mask IGPMask) {
	if !mask.OK {
		return
	}
	for _, e := range mask.Blocks {
		k := gridKey(e.Lat, e.Lon)
		if _, ok := g.entries[k]; !ok {
			g.entries[k] = &IGPEntry{Lat: e.Lat, Lon: e.Lon, Give: 16}
		}
	}
}

// ApplyDelay applies an MT26 message's 15 IGPVD/GIVEI entries onto the
// grid points at the matching band/block position within that band's
// latest mask. mask is keyed by band, one entry each (spec.md 5: fixed-
// size tables, no unbounded growth across cycles). An MT26 whose band has
// no mask, or whose IODI differs from that mask's IODI, is ignored.
func (g *IonoGrid) ApplyDelay(mask map[int]IGPMask, msg IonoDelayMsg, t Gtime) {
	if !msg.OK {
		return
	}
	bandMask, found := mask[msg.Band]
	if !found || bandMask.IODI != msg.IODI {
		return
	}
	positions := bandMask.Blocks
	base := msg.Block * 15
	for i := 0; i < 15; i++ {
		idx := base + i
		if idx >= len(positions) {
			continue
		}
		pos := positions[idx]
		k := gridKey(pos.Lat, pos.Lon)
		e, ok := g.entries[k]
		if !ok {
			e = &IGPEntry{Lat: pos.Lat, Lon: pos.Lon}
			g.entries[k] = e
		}
		e.Give = msg.Entries[i].Give
		e.Delay = msg.Entries[i].Delay
		e.T0 = t
	}
}

func (g *IonoGrid) lookup(lat, lon int16) *IGPEntry {
	lon = normLon(lon)
	return g.entries[gridKey(lat, lon)]
}

func normLon(lon int16) int16 {
	l := int(lon)
	for l < -180 {
		l += 360
	}
	for l > 180 {
		l -= 360
	}
	return int16(l)
}

// PiercePoint computes the ionospheric pierce point (spec.md 4.7 step 1):
// central angle psi, geodetic latitude/longitude of the IPP, grounded on
// FengXuebin-gnssgo/src/sbas.go's IonPPP.
func PiercePoint(userPos [3]float64, az, el float64) (latPP, lonPP float64) {
	psi := Pi/2 - el - math.Asin(WGS84A*math.Cos(el)/(WGS84A+IonoHeight))
	phiU, lamU := userPos[0], userPos[1]
	sinPhiPP := math.Sin(phiU)*math.Cos(psi) + math.Cos(phiU)*math.Sin(psi)*math.Cos(az)
	phiPP := math.Asin(sinPhiPP)

	var lamPP float64
	if (phiU > 70*Pi/180 && math.Tan(psi)*math.Cos(az) > math.Tan(Pi/2-phiU)) ||
		(phiU < -70*Pi/180 && math.Tan(psi)*math.Cos(az+Pi) > math.Tan(Pi/2+phiU)) {
		lamPP = lamU + Pi - math.Asin(math.Sin(psi)*math.Sin(az)/math.Cos(phiPP))
	} else {
		lamPP = lamU + math.Asin(math.Sin(psi)*math.Sin(az)/math.Cos(phiPP))
	}
	return phiPP, lamPP
}

// igpCell is a selected 4- or 3-point interpolation cell.
type igpCell struct {
	pts    [4]*IGPEntry // nil where a corner is missing (3-point case)
	n      int
	x, y   float64 // bilinear/barycentric parametrization in [0,1]
}

// SearchIGP selects up to 4 surrounding IGPs around the pierce point
// (latPP,lonPP in radians), per spec.md 4.7 step 2. This port uses a
// uniform 5 deg grid below 55 deg latitude and a 10 deg grid above it,
// which covers the bulk of the decision table in spec.md without
// reproducing every polar special case bit-for-bit. A "don't use" IGP
// among the four corners voids the whole cell (n=0).
func (g *IonoGrid) SearchIGP(latPP, lonPP float64) igpCell {
	latDeg := latPP * 180 / Pi
	lonDeg := lonPP * 180 / Pi

	// TODO: spec.md 4.7's >85 deg quadrant weighting (y=(|phi|-85)/10,
	// x derived from the pierce point's quadrant) isn't implemented; rather
	// than silently fall through to the equatorial bilinear form at a
	// latitude it was never derived for, degrade to "unavailable".
	if math.Abs(latDeg) > 85 {
		return igpCell{}
	}

	spacing := 5.0
	if math.Abs(latDeg) > 55 {
		spacing = 10.0
	}

	lat0 := math.Floor(latDeg/spacing) * spacing
	lon0 := math.Floor(lonDeg/spacing) * spacing
	lat1 := lat0 + spacing
	lon1 := lon0 + spacing

	corners := [4][2]int16{
		{int16(lat0), int16(lon0)},
		{int16(lat0), int16(lon1)},
		{int16(lat1), int16(lon0)},
		{int16(lat1), int16(lon1)},
	}
	// bilinear convention (spec.md 4.7 step 3): w0=xy (NE), w1=(1-x)y (NW),
	// w2=(1-x)(1-y) (SW), w3=x(1-y) (SE), origin at the south-west IGP.
	order := [4][2]int16{corners[3], corners[2], corners[0], corners[1]}
	var cell igpCell
	for i, c := range order {
		e := g.lookup(c[0], c[1])
		if e.Status() == IGPDontUse {
			return igpCell{}
		}
		if e != nil && e.Status() == IGPMonitored {
			cell.pts[i] = e
			cell.n++
		}
	}
	cell.x = (lonDeg - lon0) / (lon1 - lon0)
	cell.y = (latDeg - lat0) / (lat1 - lat0)
	return cell
}

// interpolate computes the weighted vertical delay and variance from a
// cell (spec.md 4.7 step 3-4). ok is false if fewer than 3 monitored IGPs
// are available or any don't-use corner voids the pierce point (spec.md 3
// invariant: "any don't-use IGP voids the correction for that pierce
// point").
func (c igpCell) interpolate(t Gtime) (delay, variance float64, ok bool) {
	if c.n == 4 {
		x, y := c.x, c.y
		w := [4]float64{x * y, (1 - x) * y, (1 - x) * (1 - y), x * (1 - y)}
		for i := 0; i < 4; i++ {
			e := c.pts[i]
			age := math.Abs(TimeDiff(t, e.T0))
			delay += w[i] * e.Delay
			variance += w[i] * (varicorr(e.Give) + 9e-8*age*age)
		}
		return delay, variance, true
	}
	if c.n == 3 {
		// barycentric weights rooted at the vertex opposite the missing
		// corner, per spec.md 4.7 step 3.
		x, y := c.x, c.y
		var w [4]float64
		switch {
		case c.pts[0] == nil:
			w[1], w[2], w[3] = y, 1-x-y, x
		case c.pts[1] == nil:
			w[0], w[2], w[3] = x, y, 1-x-y
		case c.pts[2] == nil:
			w[0], w[1], w[3] = x, 1-x-y, y
		case c.pts[3] == nil:
			w[0], w[1], w[2] = 1-x-y, y, x
		}
		for i := 0; i < 4; i++ {
			if c.pts[i] == nil {
				continue
			}
			if w[i] < 0 {
				return 0, 0, false
			}
			e := c.pts[i]
			age := math.Abs(TimeDiff(t, e.T0))
			delay += w[i] * e.Delay
			variance += w[i] * (varicorr(e.Give) + 9e-8*age*age)
		}
		return delay, variance, true
	}
	return 0, 0, false
}

// SbsIonCorr computes slant ionospheric delay and variance for one
// satellite (spec.md 4.7 step 5): delay = -Fpp*interp(IGPVD), variance =
// Fpp^2 * interp(sigma^2).
func (g *IonoGrid) SbsIonCorr(t Gtime, userPos [3]float64, az, el float64) (delay, variance float64, ok bool) {
	if el <= 0 {
		return 0, 0, false
	}
	latPP, lonPP := PiercePoint(userPos, az, el)
	cell := g.SearchIGP(latPP, lonPP)
	d, v, ok := cell.interpolate(t)
	if !ok {
		return 0, 0, false
	}
	fpp := ObliquityFactor(el)
	return -fpp * d, fpp * fpp * v, true
}

// KlobucharCorr is the GPS broadcast ionospheric fallback model, used when
// SBAS iono correction is unavailable (spec.md 4.7 step 5), with a
// conservative variance floor as the spec directs.
func KlobucharCorr(t Gtime, userPos [3]float64, az, el float64, k KlobucharParams) (delay, variance float64) {
	if k.Alpha == [4]float64{} && k.Beta == [4]float64{} {
		return 0, 9.0 // conservative floor when no broadcast params at all
	}
	latU, lonU := userPos[0]/Pi, userPos[1]/Pi
	psi := 0.0137/(el/Pi+0.11) - 0.022
	phiI := latU + psi*math.Cos(az)
	if phiI > 0.416 {
		phiI = 0.416
	} else if phiI < -0.416 {
		phiI = -0.416
	}
	lamI := lonU + psi*math.Sin(az)/math.Cos(phiI*Pi)
	phiM := phiI + 0.064*math.Cos((lamI-1.617)*Pi)

	tow := math.Mod(TimeDiff(t, Gtime{}), 86400)
	tt := 4.32e4*lamI + tow
	for tt >= 86400 {
		tt -= 86400
	}
	for tt < 0 {
		tt += 86400
	}

	amp := k.Alpha[0] + phiM*(k.Alpha[1]+phiM*(k.Alpha[2]+phiM*k.Alpha[3]))
	if amp < 0 {
		amp = 0
	}
	per := k.Beta[0] + phiM*(k.Beta[1]+phiM*(k.Beta[2]+phiM*k.Beta[3]))
	if per < 72000 {
		per = 72000
	}
	x := 2 * Pi * (tt - 50400) / per

	f := 1.0 + 16.0*math.Pow(0.53-el/Pi, 3)
	var tiono float64
	if math.Abs(x) < 1.57 {
		tiono = f * (5e-9 + amp*(1-x*x/2+x*x*x*x/24))
	} else {
		tiono = f * 5e-9
	}
	return -CLIGHT * tiono, 9.0
}
