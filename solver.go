package egnosgo

import "math"

// Positioning solver (spec.md 4.10), grounded on
// FengXuebin-gnssgo/src/pntpos.go's EstimatePos/ValSol/RaimFde/Residuals
// for the weighted-least-squares iteration skeleton, and
// original_source/jni/Positioning.c's user_position_computation_bancroft/
// user_position_computation_WLS for the Bancroft closed-form initializer
// (absent from the teacher, which always iterates from zero) and the
// exact HPL/VPL formula.

// BancroftObs is one satellite's position/range pair for the Bancroft
// closed-form solve.
type BancroftObs struct {
	X, Y, Z, PR float64
}

// Bancroft solves the closed-form 4+-satellite position via the Lorentz
// quadratic (spec.md 4.10 step 1), picking the root whose radius is
// closest to the WGS-84 semi-major axis. The idiomatic (x,y,z,dt,ok)
// return shape matches the modern Go convention seen in
// other_examples/242f197d_satoshi-pes-gnss__bancroft-bancroft_test.go.go
// (reference only).
func Bancroft(obs []BancroftObs) (x, y, z, dt float64, ok bool) {
	n := len(obs)
	if n < 4 {
		return 0, 0, 0, 0, false
	}
	b := NewMat(n, 4)
	for i, o := range obs {
		b.Set(i, 0, o.X)
		b.Set(i, 1, o.Y)
		b.Set(i, 2, o.Z)
		b.Set(i, 3, o.PR)
	}
	bt := b.Transpose()
	btb := bt.Mul(b)
	inv, invOK := btb.Inv4x4()
	if !invOK {
		return 0, 0, 0, 0, false
	}
	btbBt := inv.Mul(bt) // 4 x n

	alpha := NewMat(n, 1)
	e := NewMat(n, 1)
	for i := 0; i < n; i++ {
		row := [4]float64{b.At(i, 0), b.At(i, 1), b.At(i, 2), b.At(i, 3)}
		alpha.Set(i, 0, 0.5*Lorentz4(row, row))
		e.Set(i, 0, 1)
	}
	uVec := btbBt.Mul(e)
	vVec := btbBt.Mul(alpha)
	u := [4]float64{uVec.At(0, 0), uVec.At(1, 0), uVec.At(2, 0), uVec.At(3, 0)}
	v := [4]float64{vVec.At(0, 0), vVec.At(1, 0), vVec.At(2, 0), vVec.At(3, 0)}

	a := Lorentz4(u, u)
	bq := 2 * (Lorentz4(u, v) - 1)
	cq := Lorentz4(v, v)
	if a == 0 {
		return 0, 0, 0, 0, false
	}
	disc := bq*bq - 4*a*cq
	if disc < 0 {
		return 0, 0, 0, 0, false
	}
	sq := math.Sqrt(disc)
	r1 := (-bq + sq) / (2 * a)
	r2 := (-bq - sq) / (2 * a)

	pos1 := bancroftExpand(r1, u, v)
	pos2 := bancroftExpand(r2, u, v)
	rad1 := math.Sqrt(pos1[0]*pos1[0] + pos1[1]*pos1[1] + pos1[2]*pos1[2])
	rad2 := math.Sqrt(pos2[0]*pos2[0] + pos2[1]*pos2[1] + pos2[2]*pos2[2])

	best := pos1
	if math.Abs(rad2-WGS84A) < math.Abs(rad1-WGS84A) {
		best = pos2
	}
	return best[0], best[1], best[2], best[3] / CLIGHT, true
}

func bancroftExpand(r float64, u, v [4]float64) [4]float64 {
	m := [4]float64{1, 1, 1, -1}
	var p [4]float64
	for i := 0; i < 4; i++ {
		p[i] = m[i] * (r*u[i] + v[i])
	}
	return p
}

// SolveOptions bundles the persistent SBAS state a cycle consults
// (spec.md 5: message tables are mutated only between cycles).
type SolveOptions struct {
	SBASEnabled bool
	Fast        *FastCorrTable
	Iono        *IonoGrid
	MT6         *IntegrityMsg
	MT7         *DegradationMsg
	MT9         *GeoNavMsg
	MT10        *DegradationParams
	MT12        *NetworkTimeMsg
	Klobuchar   KlobucharParams
	Options     RDOptions
}

// SolveResult is the solver's output before it is folded into the public
// Result/SBASResult records by engine.go.
type SolveResult struct {
	Pos        [4]float64 // x,y,z,c*dt ECEF
	HDOP, VDOP, PDOP, TDOP float64
	HPL, VPL   float64
	Iterations int
	Sats       []SatRecord
	Unused     []SatRecord
	Valid      bool
}

// Solve runs the iterative weighted least-squares loop, the DOP and
// protection-level computation, starting from prior (a NaN prior is reset
// to the origin). It does not compute a Bancroft initial estimate; Bancroft
// is a separate function that Solve does not call. sats must already carry
// PRN/PR/TOW/CN0/Eph; their other fields are filled in during iteration.
func Solve(t Gtime, sats []SatRecord, prior [4]float64, opt SolveOptions) SolveResult {
	if len(sats) < 4 {
		return SolveResult{Sats: sats}
	}
	if math.IsNaN(prior[0]) || math.IsNaN(prior[1]) || math.IsNaN(prior[2]) || math.IsNaN(prior[3]) {
		prior = [4]float64{}
	}

	x := prior
	var iter int
	var htwh *Mat

	for iter = 0; iter < MaxIterWLS; iter++ {
		userPos := Ecef2Pos([3]float64{x[0], x[1], x[2]})

		n := 0
		for i := range sats {
			if computeChannel(t, &sats[i], x, userPos, opt, iter) {
				n++
			}
		}
		if n < 4 {
			return SolveResult{Sats: sats, Iterations: iter, Valid: false}
		}

		h := NewMat(n, 4)
		w := NewMat(n, n)
		dRho := NewMat(n, 1)
		row := 0
		for i := range sats {
			s := &sats[i]
			if s.Exclude != ExcludeNone {
				continue
			}
			dx := s.Pos[0] - x[0]
			dy := s.Pos[1] - x[1]
			dz := s.Pos[2] - x[2]
			r := math.Sqrt(dx*dx + dy*dy + dz*dz)
			h.Set(row, 0, -dx/r)
			h.Set(row, 1, -dy/r)
			h.Set(row, 2, -dz/r)
			h.Set(row, 3, 1)

			weight := 1.0
			if opt.SBASEnabled && s.SigmaTotal2 > 0 {
				weight = 1.0 / s.SigmaTotal2
			} else if s.CN0 > 0 {
				weight = s.CN0
			}
			if opt.Options.ElevationWeighting && s.El > 0 {
				weight *= math.Sin(s.El) * math.Sin(s.El)
			}
			w.Set(row, row, weight)

			predicted := r + x[3]
			observed := s.PR - s.ClkBias*CLIGHT + s.IonoDelay + s.TropoDelay
			dRho.Set(row, 0, observed-predicted)
			row++
		}

		ht := h.Transpose()
		htw := ht.Mul(w)
		htwhTmp := htw.Mul(h)
		htwhInv, invOK := htwhTmp.Inv4x4()
		if !invOK {
			return SolveResult{Sats: sats, Iterations: iter, Valid: false}
		}
		htwh = htwhTmp
		dx := htwhInv.Mul(htw).Mul(dRho)

		x[0] += dx.At(0, 0)
		x[1] += dx.At(1, 0)
		x[2] += dx.At(2, 0)
		x[3] += dx.At(3, 0)

		norm := math.Sqrt(dx.At(0, 0)*dx.At(0, 0) + dx.At(1, 0)*dx.At(1, 0) + dx.At(2, 0)*dx.At(2, 0))
		if norm < ConvThreshold && iter+1 >= MinIterWLS {
			iter++
			break
		}
	}

	userPos := Ecef2Pos([3]float64{x[0], x[1], x[2]})
	used := 0
	for i := range sats {
		if sats[i].Exclude == ExcludeNone {
			used++
		}
	}
	hU := NewMat(used, 4)
	rowU := 0
	for i := range sats {
		s := &sats[i]
		if s.Exclude != ExcludeNone {
			continue
		}
		dx := s.Pos[0] - x[0]
		dy := s.Pos[1] - x[1]
		dz := s.Pos[2] - x[2]
		r := math.Sqrt(dx*dx + dy*dy + dz*dz)
		hU.Set(rowU, 0, -dx/r)
		hU.Set(rowU, 1, -dy/r)
		hU.Set(rowU, 2, -dz/r)
		hU.Set(rowU, 3, 1)
		rowU++
	}

	hdop, vdop, pdop, tdop := computeDOP(hU, userPos)

	result := SolveResult{Pos: x, HDOP: hdop, VDOP: vdop, PDOP: pdop, TDOP: tdop, Iterations: iter, Sats: sats, Valid: true}
	if hdop > HDOPReject {
		result.Valid = false
		return result
	}
	if opt.SBASEnabled && htwh != nil {
		result.HPL, result.VPL = computeProtectionLevels(htwh, userPos)
	}
	return result
}

// computeChannel fills in one satellite's propagated position and
// corrections for the current iteration (spec.md 4.10 step 2). Returns
// false when the channel is excluded this iteration.
func computeChannel(t Gtime, s *SatRecord, x [4]float64, userPos [3]float64, opt SolveOptions, iter int) bool {
	if !opt.Options.ForceRanging && (s.Exclude == ExcludeNotInMask || s.Exclude == ExcludeUDREI || s.Exclude == ExcludeRAIM) {
		return false
	}
	txTime := TimeAdd(t, -(s.PR-x[3])/CLIGHT)
	if opt.MT12 != nil {
		txTime = TimeAdd(txTime, -opt.MT12.A0)
	}

	var pos [3]float64
	var clk float64
	switch s.Sys {
	case SysSBAS:
		if opt.MT9 == nil {
			s.Exclude = ExcludeNoEphemeris
			return false
		}
		pos, clk = SBASGeoPos(txTime, opt.MT9)
	default:
		if s.Eph == nil {
			s.Exclude = ExcludeNoEphemeris
			return false
		}
		var dtsRel float64
		pos, dtsRel = EphPos(txTime, s.Eph)
		clk = EphClk(txTime, s.Eph) + dtsRel
	}

	if opt.SBASEnabled {
		long := opt.Fast.Long(s.PRN)
		if dpos, dclk, ok := LongCorr(long, txTime); ok {
			pos[0] += dpos[0]
			pos[1] += dpos[1]
			pos[2] += dpos[2]
			clk += dclk
			s.Long = *long
		}
	}

	travel := s.PR / CLIGHT
	pos = RotateEarthRotation(pos, travel)
	s.Pos = pos
	s.ClkBias = clk
	s.TOWCorr = TimeDiff(txTime, Gtime{})

	enu := Ecef2Enu(userPos, [3]float64{pos[0] - x[0], pos[1] - x[1], pos[2] - x[2]})
	az, el := AzEl(enu)
	s.Az, s.El = az, el

	if !opt.Options.ForceRanging && iter >= 2 && el < 10*Pi/180 {
		s.Exclude = ExcludeLowElevation
		return false
	}

	if opt.SBASEnabled {
		fast := opt.Fast.Fast(s.PRN)
		long := opt.Fast.Long(s.PRN)
		slot := opt.Fast.slotIndex(s.PRN)
		sigma2, epsFC, epsRRC, epsLTC, epsER, excluded := SigmaFlt(fast, opt.MT6, opt.MT7, opt.MT10, long, txTime, opt.Options, slot)
		if excluded {
			s.Exclude = ExcludeUDREI
			return false
		}
		s.SigmaFlt2 = sigma2
		s.EpsFC, s.EpsRRC, s.EpsLTC, s.EpsER = epsFC, epsRRC, epsLTC, epsER
		if fast != nil {
			prc := fast.PRC
			if !opt.Options.RRCZero && math.Abs(TimeDiff(txTime, fast.T0)) <= 8*fast.Dt && fast.Dt > 0 {
				prc += fast.RRC * TimeDiff(txTime, fast.T0)
			}
			// replace, rather than stack, a correction applied to this
			// record on an earlier iteration.
			s.PR += prc - s.Fast.PRC
			s.Fast = *fast
			s.Fast.PRC = prc
			s.Use = UseSBASCorrected
		} else {
			s.Use = UseRaw
		}

		ionoDelay, ionoVar, ionoOK := opt.Iono.SbsIonCorr(txTime, userPos, az, el)
		if !ionoOK {
			ionoDelay, ionoVar = KlobucharCorr(txTime, userPos, az, el, opt.Klobuchar)
		}
		s.IonoDelay, s.IonoVar = ionoDelay, ionoVar

		tropoDelay, tropoVar, tropoOK := SbsTropCorr(txTime, userPos, el)
		if tropoOK {
			s.TropoDelay, s.TropoVar = tropoDelay, tropoVar
		}

		s.SigmaTotal2 = s.SigmaFlt2 + s.IonoVar + s.TropoVar
	} else {
		s.Use = UseRaw
	}

	s.Exclude = ExcludeNone
	return true
}

// computeDOP derives HDOP/VDOP/PDOP/TDOP from the diagonal of (H^tH)^-1
// expressed in ENU (spec.md 4.10 step 3).
func computeDOP(h *Mat, userPos [3]float64) (hdop, vdop, pdop, tdop float64) {
	if h.N < 4 {
		return 0, 0, 0, 0
	}
	ht := h.Transpose()
	htth := ht.Mul(h)
	inv, ok := htth.Inv4x4()
	if !ok {
		return 0, 0, 0, 0
	}
	// rotate the position block (top-left 3x3) into ENU.
	e := enuBasis(userPos)
	var qEnu [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var s float64
			for a := 0; a < 3; a++ {
				for b := 0; b < 3; b++ {
					s += e[i][a] * inv.At(a, b) * e[j][b]
				}
			}
			qEnu[i][j] = s
		}
	}
	hdop = math.Sqrt(qEnu[0][0] + qEnu[1][1])
	vdop = math.Sqrt(qEnu[2][2])
	pdop = math.Sqrt(qEnu[0][0] + qEnu[1][1] + qEnu[2][2])
	tdop = math.Sqrt(inv.At(3, 3))
	return hdop, vdop, pdop, tdop
}

// computeProtectionLevels derives HPL/VPL from the ENU-form (H^tWH)^-1
// (spec.md 4.10 step 3), grounded on
// original_source/jni/Positioning.c's user_position_computation_WLS.
func computeProtectionLevels(htwh *Mat, userPos [3]float64) (hpl, vpl float64) {
	inv, ok := htwh.Inv4x4()
	if !ok {
		return 0, 0
	}
	e := enuBasis(userPos)
	var qEnu [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var s float64
			for a := 0; a < 3; a++ {
				for b := 0; b < 3; b++ {
					s += e[i][a] * inv.At(a, b) * e[j][b]
				}
			}
			qEnu[i][j] = s
		}
	}
	dEast2 := qEnu[0][0]
	dNorth2 := qEnu[1][1]
	dEN2 := qEnu[0][1] * qEnu[0][1]
	dMajor := math.Sqrt((dEast2+dNorth2)/2 + math.Sqrt(((dEast2-dNorth2)/2)*((dEast2-dNorth2)/2)+dEN2))
	hpl = dMajor
	vpl = math.Sqrt(math.Abs(qEnu[2][2]))
	return hpl, vpl
}

// RAIMExclude performs chi-squared screening on the statistic from
// residualStat: on failure, it excludes the used satellite with the
// largest SigmaTotal2 and re-solves, until the test passes or fewer than
// 5 satellites remain. No post-fit residuals are computed.
func RAIMExclude(t Gtime, sats []SatRecord, prior [4]float64, opt SolveOptions) SolveResult {
	work := make([]SatRecord, len(sats))
	copy(work, sats)
	res := Solve(t, work, prior, opt)
	for {
		n := countUsed(res.Sats)
		if n < 5 || res.Valid == false {
			return res
		}
		residNorm, dof := residualStat(res)
		if dof <= 0 || !chiSquaredFails(residNorm, dof) {
			return res
		}
		worst := worstResidualSat(res)
		if worst < 0 {
			return res
		}
		res.Sats[worst].Exclude = ExcludeRAIM
		res = Solve(t, res.Sats, prior, opt)
	}
}

func countUsed(sats []SatRecord) int {
	n := 0
	for _, s := range sats {
		if s.Exclude == ExcludeNone {
			n++
		}
	}
	return n
}

// residualStat returns the sum of SigmaTotal2 over the used satellites,
// in place of a squared weighted residual norm, and the degrees of
// freedom (n-4); post-fit residuals are not computed, since H/W/dRho stay
// internal to Solve (documented in DESIGN.md).
func residualStat(res SolveResult) (normSq float64, dof int) {
	n := countUsed(res.Sats)
	dof = n - 4
	for _, s := range res.Sats {
		if s.Exclude == ExcludeNone {
			normSq += s.SigmaTotal2
		}
	}
	return normSq, dof
}

// chiSquaredThresholds are approximate 1e-5 false-alarm chi-squared
// thresholds for small degrees of freedom, DO-229 Table 2-II-ish values.
var chiSquaredThresholds = map[int]float64{
	1: 19.5, 2: 24.0, 3: 27.9, 4: 31.3, 5: 34.5, 6: 37.5, 7: 40.5, 8: 43.3,
}

func chiSquaredFails(stat float64, dof int) bool {
	th, ok := chiSquaredThresholds[dof]
	if !ok {
		th = 45.0
	}
	return stat > th
}

func worstResidualSat(res SolveResult) int {
	worst := -1
	worstVal := -1.0
	for i, s := range res.Sats {
		if s.Exclude != ExcludeNone {
			continue
		}
		if s.SigmaTotal2 > worstVal {
			worstVal = s.SigmaTotal2
			worst = i
		}
	}
	return worst
}

// TwoDHold solves the 3-unknown (x,y,c*dt) system with altitude fixed to
// the prior (spec.md 4.10 step 5, 2D altitude-hold). The engine normally
// only reaches for it with exactly 3 visible satellites, but it accepts
// any n>=3 so the R&D "altitude-absolute" override (SPEC_FULL.md 6) can
// force it on even with a full constellation, weighting the extra
// observations the same way Solve does.
func TwoDHold(t Gtime, sats []SatRecord, prior [4]float64, opt SolveOptions) SolveResult {
	if len(sats) < 3 {
		return SolveResult{Sats: sats, Valid: false}
	}
	priorGeo := Ecef2Pos([3]float64{prior[0], prior[1], prior[2]})
	fixedAlt := priorGeo[2]

	x := prior
	var iter int
	for iter = 0; iter < MaxIterWLS; iter++ {
		userPos := Ecef2Pos([3]float64{x[0], x[1], x[2]})
		userPos[2] = fixedAlt
		xEcef := Pos2Ecef(userPos)
		x[0], x[1], x[2] = xEcef[0], xEcef[1], xEcef[2]

		n := 0
		for i := range sats {
			if computeChannel(t, &sats[i], x, userPos, opt, 10) {
				n++
			}
		}
		if n < 3 {
			return SolveResult{Sats: sats, Iterations: iter, Valid: false}
		}

		h := NewMat(n, 3)
		w := NewMat(n, n)
		dRho := NewMat(n, 1)
		row := 0
		for i := range sats {
			s := &sats[i]
			if s.Exclude != ExcludeNone {
				continue
			}
			dx := s.Pos[0] - x[0]
			dy := s.Pos[1] - x[1]
			dz := s.Pos[2] - x[2]
			r := math.Sqrt(dx*dx + dy*dy + dz*dz)
			h.Set(row, 0, -dx/r)
			h.Set(row, 1, -dy/r)
			h.Set(row, 2, 1)
			weight := 1.0
			if opt.SBASEnabled && s.SigmaTotal2 > 0 {
				weight = 1.0 / s.SigmaTotal2
			} else if s.CN0 > 0 {
				weight = s.CN0
			}
			if opt.Options.ElevationWeighting && s.El > 0 {
				weight *= math.Sin(s.El) * math.Sin(s.El)
			}
			w.Set(row, row, weight)
			dRho.Set(row, 0, s.PR-r-x[3])
			row++
		}
		ht := h.Transpose()
		htw := ht.Mul(w)
		htwh := htw.Mul(h)
		inv, ok := htwh.Inv3x3()
		if !ok {
			return SolveResult{Sats: sats, Iterations: iter, Valid: false}
		}
		dx := inv.Mul(htw).Mul(dRho)
		x[0] += dx.At(0, 0)
		x[1] += dx.At(1, 0)
		x[3] += dx.At(2, 0)
		if math.Abs(dx.At(0, 0))+math.Abs(dx.At(1, 0)) < ConvThreshold && iter >= MinIterWLS {
			iter++
			break
		}
	}
	return SolveResult{Pos: x, Iterations: iter, Sats: sats, Valid: true}
}

// BestDOPExclude computes PDOP of each (n-1)-satellite subset and drops
// whichever removal minimizes PDOP, re-solving and accepting the reduced
// solution only when its residual is not dramatically better than the
// full solution (spec.md 4.10 step 5).
func BestDOPExclude(t Gtime, sats []SatRecord, prior [4]float64, opt SolveOptions) SolveResult {
	full := Solve(t, sats, prior, opt)
	if !full.Valid {
		return full
	}
	bestPDOP := full.PDOP
	bestIdx := -1
	for i := range sats {
		if sats[i].Exclude != ExcludeNone {
			continue
		}
		trial := make([]SatRecord, len(sats))
		copy(trial, sats)
		trial[i].Exclude = ExcludeRAIM
		res := Solve(t, trial, prior, opt)
		if res.Valid && res.PDOP < bestPDOP {
			bestPDOP = res.PDOP
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return full
	}
	reduced := make([]SatRecord, len(sats))
	copy(reduced, sats)
	reduced[bestIdx].Exclude = ExcludeRAIM
	reducedRes := Solve(t, reduced, prior, opt)
	if !reducedRes.Valid {
		return full
	}
	// "not dramatically better": require at least a modest PDOP
	// improvement before accepting the exclusion, otherwise keep the
	// full solution (spec.md 4.10 step 5).
	if full.PDOP-reducedRes.PDOP < 0.5 {
		return full
	}
	return reducedRes
}
