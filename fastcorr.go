package egnosgo

import "math"

// Fast-correction and long-term corrector (spec.md 4.9, and the
// long-term-corrector row of spec.md 2), grounded on
// FengXuebin-gnssgo/src/sbas.go's SbsFastCorr/SbsLongCorr and
// original_source/jni/Fast_correction.c's get_fastCorrection for the
// sigma-combination formula (RSS vs. linear sum-then-square) and the
// epsilon_rrc range-rate-degradation formula.

// FastCorrTable is the persistent per-PRN fast-correction state, rebuilt
// from the PRN mask (spec.md 3 invariant: "PRN mask ... defines the slot
// index for every subsequent correction").
type FastCorrTable struct {
	mask    []int // PRN at each mask index, IODP-bound
	iodp    int
	blocks  [2]FastCorrBlock // previous pair per PRN-mask block, index by block
	current [2]FastCorrBlock

	slots map[int]*SBASFastCorr // PRN -> current correction state
	longs map[int]*SBASLongTerm
}

func NewFastCorrTable() *FastCorrTable {
	return &FastCorrTable{slots: make(map[int]*SBASFastCorr), longs: make(map[int]*SBASLongTerm)}
}

// ApplyMask installs a new MT1 PRN mask (spec.md 3 invariant).
func (f *FastCorrTable) ApplyMask(m PRNMask) {
	if !m.OK {
		return
	}
	f.mask = m.PRNs
	f.iodp = m.IODP
}

// slotIndex returns the mask position of prn, or -1 if absent (spec.md 8:
// "PRN-mask binding ... For all PRNs not present in MT1, no fast
// correction is applied").
func (f *FastCorrTable) slotIndex(prn int) int {
	for i, p := range f.mask {
		if p == prn {
			return i
		}
	}
	return -1
}

// ApplyFastBlock ingests a decoded MT2-5 (or MT24 fast half) block,
// rotating the previous/current pair and deriving RRC per spec.md 4.9.
func (f *FastCorrTable) ApplyFastBlock(blk FastCorrBlock, t Gtime) {
	if !blk.OK || blk.Block < 0 || blk.Block > 1 {
		return
	}
	f.blocks[blk.Block] = f.current[blk.Block]
	f.current[blk.Block] = blk

	for i := 0; i < 13; i++ {
		slotPos := blk.Block*13 + i
		if slotPos >= len(f.mask) {
			continue
		}
		prn := f.mask[slotPos]
		sc, ok := f.slots[prn]
		if !ok {
			sc = &SBASFastCorr{}
			f.slots[prn] = sc
		}
		prev := f.blocks[blk.Block]
		var rrc float64
		dt := 0.0
		if prev.OK {
			dt = TimeDiff(t, Gtime{Time: int64(prev.TOW)})
		}
		if dt > 0 && dt <= 18 {
			rrc = (blk.PRC[i] - prev.PRC[i]) / dt
		}
		sc.PRCPrev = sc.PRC
		sc.PRC = blk.PRC[i]
		sc.RRC = rrc
		sc.Dt = dt
		sc.T0 = t
		sc.IODF = blk.IODF
		sc.UDREI = blk.UDREI[i]
	}
}

// ApplyLongTerm stores a valid long-term record under prn. The caller
// chooses prn (SolveSBAS uses every ephemeris whose IODE matches the
// record's); the PRN mask is not consulted.
func (f *FastCorrTable) ApplyLongTerm(rec SBASLongTerm, prn int) {
	if !rec.Valid {
		return
	}
	r := rec
	f.longs[prn] = &r
}

// Fast returns the satellite's current fast-correction state, or nil if
// the PRN is not in the mask (no correction applies).
func (f *FastCorrTable) Fast(prn int) *SBASFastCorr {
	if f.slotIndex(prn) < 0 {
		return nil
	}
	return f.slots[prn]
}

func (f *FastCorrTable) Long(prn int) *SBASLongTerm {
	return f.longs[prn]
}

// SigmaFlt computes sigma^2_flt per spec.md 4.9: UDRE variance from MT6
// when fresh and IODF-matching, else from the MT2-5/MT24 UDREI; combined
// with degradations by RSS (MT10 RSS_udre=1) or linear sum-then-square;
// falls back to (sigma_UDRE+8)^2 when MT7/MT10 are unavailable. Returns
// excluded=true for UDREI 14 (unless overridden) or 15. long, when
// non-nil, supplies the age/velocity-code bookkeeping epsLTC needs; nil
// leaves epsLTC at zero (no long-term correction applied to this PRN).
// slot is the satellite's PRN-mask position (spec.md 8: "block =
// floor(mask-pos/13)"), selecting both the MT6 UDREI entry and the MT6
// fast-correction block whose IODF must align with sc.IODF; pass a
// negative slot (no mask binding) to skip the MT6 override entirely.
func SigmaFlt(sc *SBASFastCorr, mt6 *IntegrityMsg, mt7 *DegradationMsg, mt10 *DegradationParams, long *SBASLongTerm, t Gtime, opts RDOptions, slot int) (sigma2, epsFC, epsRRC, epsLTC, epsER float64, excluded bool) {
	if sc == nil {
		return 0, 0, 0, 0, 0, true
	}
	if sc.UDREI == 15 {
		return 0, 0, 0, 0, 0, true
	}
	if sc.UDREI == 14 && !opts.UDREI14Usable {
		return 0, 0, 0, 0, 0, true
	}

	sigmaUDRE2 := varfcorr(sc.UDREI)
	if mt6 != nil && slot >= 0 && slot < len(mt6.UDREI) {
		block := slot / 13
		age := math.Abs(TimeDiff(t, mt6.SBASHeader.t0Gtime()))
		iodfMatch := mt6.IODF[block] == sc.IODF || mt6.IODF[block] == 3
		if age < MaxSBSAgeF && iodfMatch {
			sigmaUDRE2 = varfcorr(mt6.UDREI[slot])
		}
	}

	if mt7 == nil || mt10 == nil {
		sigma2 = (math.Sqrt(sigmaUDRE2) + 8) * (math.Sqrt(sigmaUDRE2) + 8)
		return sigma2, 0, 0, 0, 0, false
	}

	ai := sc.AI
	epsFC = degfcorr(ai)
	if opts.RRCZero {
		epsRRC = 0
	} else if ai != 0 {
		epsRRC = mt10.Brrc * float64(sc.IODF) / 4
	}

	if long != nil && long.Valid {
		age := math.Abs(TimeDiff(t, long.T0))
		if long.VelCode == 0 {
			interval := mt10.IltcV0
			if interval <= 0 {
				interval = MaxSBSAgeL
			}
			epsLTC = mt10.CltcLSB * math.Floor(age/interval)
		} else {
			interval := mt10.IltcV1
			if interval <= 0 {
				interval = MaxSBSAgeL
			}
			if age <= interval {
				epsLTC = mt10.CltcV1*age + mt10.CltcLSB
			} else {
				epsLTC = mt10.CltcV1*interval + mt10.CltcLSB
			}
		}
	}
	if opts.RRCZero {
		// fast corrections aren't being applied via RRC; the en-route
		// degradation term takes over for the range-rate contribution.
		epsER = mt10.Cer
	}

	if mt10.RSSudre {
		sigma2 = sigmaUDRE2 + epsFC*epsFC + epsRRC*epsRRC + epsLTC*epsLTC + epsER*epsER
	} else {
		root := math.Sqrt(sigmaUDRE2) + epsFC + epsRRC + epsLTC + epsER
		sigma2 = root * root
	}
	return sigma2, epsFC, epsRRC, epsLTC, epsER, false
}

// t0Gtime exposes SBASHeader.TOW as a Gtime for staleness arithmetic.
func (h SBASHeader) t0Gtime() Gtime {
	return Gtime{Time: int64(h.TOW)}
}

// LongCorr returns the position/clock delta of a long-term record at time
// t (spec.md 2 "Long-term corrector: ... position/clock deltas"),
// checking the MaxSBSAgeL staleness bound.
func LongCorr(rec *SBASLongTerm, t Gtime) (dpos [3]float64, dclk float64, ok bool) {
	if rec == nil || !rec.Valid {
		return dpos, 0, false
	}
	age := TimeDiff(t, rec.T0)
	if math.Abs(age) > MaxSBSAgeL {
		return dpos, 0, false
	}
	for i := 0; i < 3; i++ {
		dpos[i] = rec.Dpos[i] + rec.Dvel[i]*age
	}
	dclk = rec.Daf0 + rec.Daf1*age
	return dpos, dclk, true
}
