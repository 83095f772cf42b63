package egnosgo

import (
	"math"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Engine is the positioning engine instance (spec.md 4.11/5): it owns the
// persistent SBAS message tables and is not safe for concurrent
// invocation on the same instance, though independent Engine values never
// share state (SPEC_FULL.md 5), grounded on
// FengXuebin-gnssgo/src/pntpos.go's PntPos entry point, restructured into
// the two explicit entry points spec.md 6 names.
type Engine struct {
	log logrus.FieldLogger

	fast *FastCorrTable
	iono *IonoGrid

	mt1  *PRNMask
	mt6  *IntegrityMsg
	mt7  *DegradationMsg
	mt9  *GeoNavMsg
	mt10 *DegradationParams
	mt12 *NetworkTimeMsg
	mt18 map[int]IGPMask // latest mask per band, spec.md 5 age-out

	pendingLong []SBASLongTerm
}

// NewEngine constructs an Engine. A nil logger defaults to a discarding
// logger (SPEC_FULL.md 2.1).
func NewEngine(log logrus.FieldLogger) *Engine {
	if log == nil {
		log = nopLogger()
	}
	return &Engine{log: log, fast: NewFastCorrTable(), iono: NewIonoGrid(), mt18: make(map[int]IGPMask)}
}

// findEph returns the best-matching ephemeris for prn/tow, preferring the
// alternative IODE set whose Toe is closest to the observation time
// (spec.md 3: "up to 5 alternative sets keyed by IODE").
func findEph(ephs []Ephemeris, prn int, tow float64) *Ephemeris {
	var best *Ephemeris
	bestDiff := math.Inf(1)
	for i := range ephs {
		if ephs[i].Sat != prn {
			continue
		}
		diff := math.Abs(tow - ephs[i].Toes)
		if diff < bestDiff {
			bestDiff = diff
			best = &ephs[i]
		}
	}
	return best
}

func buildSatRecords(ephs []Ephemeris, meas []Measurement) []SatRecord {
	sats := make([]SatRecord, 0, len(meas))
	for _, m := range meas {
		sys := SysGPS
		if m.PRN >= 120 && m.PRN <= 158 {
			sys = SysSBAS
		}
		rec := SatRecord{PRN: m.PRN, Sys: sys, PR: m.PR, TOW: m.TOW, CN0: m.CN0, Use: UseUnused}
		if sys == SysGPS {
			rec.Eph = findEph(ephs, m.PRN, m.TOW)
			if rec.Eph == nil {
				rec.Exclude = ExcludeNoEphemeris
			}
		}
		sats = append(sats, rec)
	}
	return sats
}

func diagFromSat(s SatRecord) SatDiag {
	return SatDiag{
		PRN: s.PRN, Az: s.Az, El: s.El, Use: s.Use, Exclude: s.Exclude,
		IonoDelay: s.IonoDelay, TropoDelay: s.TropoDelay, SigmaFlt2: s.SigmaFlt2,
		EpsFC: s.EpsFC, EpsRRC: s.EpsRRC, EpsLTC: s.EpsLTC, EpsER: s.EpsER,
		UDREI: s.Fast.UDREI, LongDpos: s.Long.Dpos,
	}
}

func diagsFromMeas(meas []Measurement) []SatDiag {
	out := make([]SatDiag, 0, len(meas))
	for _, m := range meas {
		out = append(out, SatDiag{PRN: m.PRN, Use: UseUnused})
	}
	return out
}

// SolveGPS is the GPS-only entry point (spec.md 6): no SBAS corrections,
// HPL/VPL are not produced.
func (e *Engine) SolveGPS(in GPSInput) Result {
	cycle := uuid.New().String()
	t := Gtime{Time: int64(tow2time(in))}
	sats := buildSatRecords(in.Ephemerides, in.Meas)

	opt := SolveOptions{SBASEnabled: false}
	res := Solve(t, sats, in.PriorPos, opt)
	e.logDegraded(cycle, res.Sats)
	if !res.Valid {
		e.log.WithField("cycle", cycle).Warn("gps solve did not converge")
	}

	return resultFromSolve(res, in.Unused)
}

// logDegraded emits one structured line per excluded channel (SPEC_FULL.md
// 2.1: "{cycle, sat, reason} at Debug or Warn level — never more").
func (e *Engine) logDegraded(cycle string, sats []SatRecord) {
	for _, s := range sats {
		if s.Exclude == ExcludeNone {
			continue
		}
		level := e.log.WithFields(logrus.Fields{"cycle": cycle, "sat": s.PRN, "reason": s.Exclude.String()})
		if s.Exclude == ExcludeRAIM || s.Exclude == ExcludeUDREI {
			level.Warn("satellite excluded")
		} else {
			level.Debug("satellite excluded")
		}
	}
}

// tow2time is a convenience seam turning the first measurement's TOW into
// a Gtime for the cycle; week rollover is the caller's responsibility
// since spec.md's inputs are TOW-scoped, not week-scoped (spec.md 6).
func tow2time(in GPSInput) float64 {
	if len(in.Meas) == 0 {
		return 0
	}
	return in.Meas[0].TOW
}

func resultFromSolve(res SolveResult, unused []Measurement) Result {
	geo := Ecef2Pos([3]float64{res.Pos[0], res.Pos[1], res.Pos[2]})
	out := Result{
		Pos:     geo,
		ECEF:    [3]float64{res.Pos[0], res.Pos[1], res.Pos[2]},
		ClkBias: res.Pos[3] / CLIGHT,
		HDOP:    res.HDOP, VDOP: res.VDOP, PDOP: res.PDOP, TDOP: res.TDOP,
		Iterations: res.Iterations,
		Valid:      res.Valid,
	}
	for _, s := range res.Sats {
		out.NSat++
		if s.Exclude == ExcludeLowElevation {
			out.NLowElev++
		}
		if s.Exclude == ExcludeNone {
			out.NUsed++
		}
		out.Sats = append(out.Sats, diagFromSat(s))
	}
	out.Unused = diagsFromMeas(unused)
	return out
}

// SolveSBAS is the SBAS-augmented entry point (spec.md 6). It ingests the
// latest single-payload messages, ingests the bounded table messages,
// then runs the same weighted-LS loop with SBAS corrections enabled plus
// the optional integrity modes (spec.md 4.10 step 5).
func (e *Engine) SolveSBAS(in SBASInput) SBASResult {
	cycle := uuid.New().String()
	t := Gtime{Time: int64(tow2time(in.GPSInput))}

	if in.MT1 != nil {
		e.mt1 = in.MT1
		e.fast.ApplyMask(*in.MT1)
	}
	if in.MT6 != nil {
		e.mt6 = in.MT6
	}
	if in.MT7 != nil {
		e.mt7 = in.MT7
	}
	if in.MT9 != nil {
		e.mt9 = in.MT9
	}
	if in.MT10 != nil {
		e.mt10 = in.MT10
	}
	if in.MT12 != nil {
		e.mt12 = in.MT12
	}
	for _, m := range in.MT18 {
		e.iono.ApplyMask(m)
		e.mt18[m.Band] = m
	}
	for b := 0; b < 2; b++ {
		for p := 0; p < 2; p++ {
			blk := in.MT2to5[b][p]
			if blk.OK {
				e.fast.ApplyFastBlock(blk, t)
			}
		}
	}
	for _, m := range in.MT24 {
		if !m.OK {
			continue
		}
		e.fast.ApplyFastBlock(m.Block, t)
		if m.Long[0].Valid {
			e.pendingLong = append(e.pendingLong, m.Long[0])
		}
	}
	for _, m := range in.MT25 {
		if !m.OK {
			continue
		}
		for _, l := range m.Long {
			if l.Valid {
				e.pendingLong = append(e.pendingLong, l)
			}
		}
	}
	for _, m := range in.MT26 {
		e.iono.ApplyDelay(e.mt18, m, t)
	}

	// bind pending long-term records to the PRN whose ephemeris IODE
	// matches (spec.md 3 invariant: "bound to a specific ephemeris IODE
	// and must select the matching GPS ephemeris set").
	for _, rec := range e.pendingLong {
		for _, eph := range in.Ephemerides {
			if eph.Iode == rec.IODE {
				e.fast.ApplyLongTerm(rec, eph.Sat)
			}
		}
	}
	e.pendingLong = e.pendingLong[:0]

	sats := buildSatRecords(in.Ephemerides, in.Meas)
	for i := range sats {
		if e.fast.slotIndex(sats[i].PRN) < 0 && sats[i].Sys == SysGPS {
			sats[i].Exclude = ExcludeNotInMask
		}
	}

	opt := SolveOptions{
		SBASEnabled: true,
		Fast:        e.fast,
		Iono:        e.iono,
		MT6:         e.mt6, MT7: e.mt7, MT9: e.mt9, MT10: e.mt10, MT12: e.mt12,
		Klobuchar: in.Klobuchar,
		Options:   in.Options,
	}

	var res SolveResult
	switch {
	case in.Options.RAIM:
		res = RAIMExclude(t, sats, in.PriorPos, opt)
	case in.Options.DOPExclude:
		res = BestDOPExclude(t, sats, in.PriorPos, opt)
	case in.Options.AltitudeAbsolute && countUsable(sats) >= 3:
		// the operator trusts the prior altitude (e.g. a barometric or
		// surveyed fix) over the constellation's own vertical solve, so
		// 2D-hold engages even with a full satellite set.
		res = TwoDHold(t, sats, in.PriorPos, opt)
	case in.Options.TwoDHold && countUsable(sats) == 3:
		res = TwoDHold(t, sats, in.PriorPos, opt)
	default:
		res = Solve(t, sats, in.PriorPos, opt)
	}

	e.logDegraded(cycle, res.Sats)
	if !res.Valid {
		e.log.WithField("cycle", cycle).Warn("sbas solve did not converge")
	}

	out := SBASResult{Result: resultFromSolve(res, in.Unused), HPL: res.HPL, VPL: res.VPL}
	out.EGNOSQuality = egnosQuality(e, res)
	out.WithinEGNOSCoverage = withinEGNOSCoverage(out.Pos)
	if out.EGNOSQuality == 0 {
		e.log.WithField("cycle", cycle).Debug("preliminary egnos quality: MT1/MT9 missing or a used satellite not SBAS-corrected")
	}
	return out
}

func countUsable(sats []SatRecord) int {
	n := 0
	for _, s := range sats {
		if s.Exclude == ExcludeNone || s.Exclude == ExcludeLowElevation {
			n++
		}
	}
	return n
}

// egnosQuality is the "EGNOS position quality" flag: 1 when MT1 and MT9
// have been received and every used satellite is SBAS-corrected, 0
// otherwise (preliminary). The age of MT1 and MT9 is not checked.
func egnosQuality(e *Engine, res SolveResult) int {
	if e.mt1 == nil || e.mt9 == nil {
		return 0
	}
	for _, s := range res.Sats {
		if s.Exclude == ExcludeNone && s.Use != UseSBASCorrected {
			return 0
		}
	}
	return 1
}

// withinEGNOSCoverage is a simple bounding-box check, grounded on
// original_source/jni/Positioning.c's EUcoverage (SPEC_FULL.md
// "Supplemented features"). The box approximates the published EGNOS
// service area over Europe/North Africa.
func withinEGNOSCoverage(pos [3]float64) bool {
	latDeg := pos[0] * 180 / Pi
	lonDeg := pos[1] * 180 / Pi
	return latDeg >= 25 && latDeg <= 72 && lonDeg >= -30 && lonDeg <= 45
}
