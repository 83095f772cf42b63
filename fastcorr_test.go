package egnosgo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_ApplyFastBlock_DerivesRRCFromConsecutiveBlocks(t *testing.T) {
	assert := assert.New(t)
	ft := NewFastCorrTable()
	mask := PRNMask{SBASHeader: SBASHeader{OK: true}}
	mask.PRNs = append(mask.PRNs, 1)
	ft.ApplyMask(mask)

	blk1 := FastCorrBlock{SBASHeader: SBASHeader{OK: true, TOW: 0}, Block: 0}
	blk1.PRC[0] = 1.0
	ft.ApplyFastBlock(blk1, Gtime{Time: 0})

	blk2 := FastCorrBlock{SBASHeader: SBASHeader{OK: true, TOW: 0}, Block: 0}
	blk2.PRC[0] = 5.0
	ft.ApplyFastBlock(blk2, Gtime{Time: 6})

	fc := ft.Fast(1)
	assert.NotNil(fc)
	assert.Equal(5.0, fc.PRC)
	assert.Equal(1.0, fc.PRCPrev)
	assert.InDelta((5.0-1.0)/6.0, fc.RRC, 1e-9)
}

func Test_ApplyFastBlock_StaleIntervalYieldsZeroRRC(t *testing.T) {
	assert := assert.New(t)
	ft := NewFastCorrTable()
	mask := PRNMask{SBASHeader: SBASHeader{OK: true}}
	mask.PRNs = append(mask.PRNs, 1)
	ft.ApplyMask(mask)

	ft.ApplyFastBlock(FastCorrBlock{SBASHeader: SBASHeader{OK: true, TOW: 0}, Block: 0}, Gtime{Time: 0})
	blk2 := FastCorrBlock{SBASHeader: SBASHeader{OK: true, TOW: 0}, Block: 0}
	blk2.PRC[0] = 100.0
	ft.ApplyFastBlock(blk2, Gtime{Time: 19}) // exceeds the 18s bound

	fc := ft.Fast(1)
	assert.NotNil(fc)
	assert.Equal(0.0, fc.RRC)
}

// Scenario 5 (spec.md 8): UDREI 15 always excludes; UDREI 14 excludes
// unless the R&D option overrides it.
func Test_SigmaFlt_UDREI15AlwaysExcluded(t *testing.T) {
	assert := assert.New(t)
	sc := &SBASFastCorr{UDREI: 15}
	_, _, _, _, _, excluded := SigmaFlt(sc, nil, nil, nil, nil, Gtime{}, RDOptions{UDREI14Usable: true}, -1)
	assert.True(excluded)
}

func Test_SigmaFlt_UDREI14ExcludedByDefault(t *testing.T) {
	assert := assert.New(t)
	sc := &SBASFastCorr{UDREI: 14}
	_, _, _, _, _, excluded := SigmaFlt(sc, nil, nil, nil, nil, Gtime{}, RDOptions{}, -1)
	assert.True(excluded)
}

func Test_SigmaFlt_UDREI14UsableOverride(t *testing.T) {
	assert := assert.New(t)
	sc := &SBASFastCorr{UDREI: 14}
	sigma2, _, _, _, _, excluded := SigmaFlt(sc, nil, nil, nil, nil, Gtime{}, RDOptions{UDREI14Usable: true}, -1)
	assert.False(excluded)
	assert.Greater(sigma2, 0.0)
}

func Test_SigmaFlt_NilFastCorrExcluded(t *testing.T) {
	assert := assert.New(t)
	_, _, _, _, _, excluded := SigmaFlt(nil, nil, nil, nil, nil, Gtime{}, RDOptions{}, -1)
	assert.True(excluded)
}

func Test_SigmaFlt_FallsBackWithoutMT7MT10(t *testing.T) {
	assert := assert.New(t)
	sc := &SBASFastCorr{UDREI: 3}
	sigma2, epsFC, epsRRC, epsLTC, epsER, excluded := SigmaFlt(sc, nil, nil, nil, nil, Gtime{}, RDOptions{}, -1)
	assert.False(excluded)
	want := varfcorr(3)
	wantSigma := math.Sqrt(want) + 8
	assert.InDelta(0, epsFC, 1e-12)
	assert.InDelta(0, epsRRC, 1e-12)
	assert.InDelta(0, epsLTC, 1e-12)
	assert.InDelta(0, epsER, 1e-12)
	assert.InDelta(wantSigma*wantSigma, sigma2, 1e-9)
}

func Test_SigmaFlt_RSSCombination(t *testing.T) {
	assert := assert.New(t)
	sc := &SBASFastCorr{UDREI: 3, IODF: 1, AI: 2}
	mt10 := &DegradationParams{Brrc: 0.002, RSSudre: true}
	sigma2, epsFC, epsRRC, _, _, excluded := SigmaFlt(sc, nil, &DegradationMsg{}, mt10, nil, Gtime{}, RDOptions{}, -1)
	assert.False(excluded)
	want := varfcorr(3) + epsFC*epsFC + epsRRC*epsRRC
	assert.InDelta(want, sigma2, 1e-9)
}

func Test_SigmaFlt_LinearCombinationWhenRSSOff(t *testing.T) {
	assert := assert.New(t)
	sc := &SBASFastCorr{UDREI: 3, IODF: 1, AI: 2}
	mt10 := &DegradationParams{Brrc: 0.002, RSSudre: false}
	sigma2, epsFC, epsRRC, _, _, excluded := SigmaFlt(sc, nil, &DegradationMsg{}, mt10, nil, Gtime{}, RDOptions{}, -1)
	assert.False(excluded)
	root := (math.Sqrt(varfcorr(3)) + epsFC + epsRRC)
	assert.InDelta(root*root, sigma2, 1e-9)
}

func Test_SigmaFlt_RRCZeroSuppressesRRCAndSetsEpsER(t *testing.T) {
	assert := assert.New(t)
	sc := &SBASFastCorr{UDREI: 3, IODF: 1, AI: 2}
	mt10 := &DegradationParams{Brrc: 0.002, Cer: 0.5}
	_, _, epsRRC, _, epsER, excluded := SigmaFlt(sc, nil, &DegradationMsg{}, mt10, nil, Gtime{}, RDOptions{RRCZero: true}, -1)
	assert.False(excluded)
	assert.Equal(0.0, epsRRC)
	assert.Equal(0.5, epsER)
}

func Test_SigmaFlt_EpsLTCVelCodeZeroStaircase(t *testing.T) {
	assert := assert.New(t)
	sc := &SBASFastCorr{UDREI: 3, AI: 0}
	mt10 := &DegradationParams{CltcLSB: 1.0, IltcV0: 30}
	long := &SBASLongTerm{Valid: true, VelCode: 0, T0: Gtime{Time: 0}}
	_, _, _, epsLTC, _, _ := SigmaFlt(sc, nil, &DegradationMsg{}, mt10, long, Gtime{Time: 65}, RDOptions{}, -1)
	// floor(65/30) = 2
	assert.InDelta(2.0, epsLTC, 1e-9)
}

func Test_SigmaFlt_EpsLTCVelCodeOneLinearRamp(t *testing.T) {
	assert := assert.New(t)
	sc := &SBASFastCorr{UDREI: 3, AI: 0}
	mt10 := &DegradationParams{CltcLSB: 1.0, CltcV1: 0.1, IltcV1: 100}
	long := &SBASLongTerm{Valid: true, VelCode: 1, T0: Gtime{Time: 0}}

	_, _, _, epsLTC, _, _ := SigmaFlt(sc, nil, &DegradationMsg{}, mt10, long, Gtime{Time: 50}, RDOptions{}, -1)
	assert.InDelta(0.1*50+1.0, epsLTC, 1e-9)

	// beyond the interval it saturates at the interval's own value.
	_, _, _, epsLTCSat, _, _ := SigmaFlt(sc, nil, &DegradationMsg{}, mt10, long, Gtime{Time: 500}, RDOptions{}, -1)
	assert.InDelta(0.1*100+1.0, epsLTCSat, 1e-9)
}

func Test_SigmaFlt_FreshMT6OverridesUDREI(t *testing.T) {
	assert := assert.New(t)
	sc := &SBASFastCorr{UDREI: 3, IODF: 1}
	mt6 := &IntegrityMsg{SBASHeader: SBASHeader{TOW: 0}}
	mt6.IODF[0] = 1
	mt6.UDREI[0] = 7
	mt10 := &DegradationParams{}
	sigma2, _, _, _, _, excluded := SigmaFlt(sc, mt6, &DegradationMsg{}, mt10, nil, Gtime{Time: 5}, RDOptions{}, 0)
	assert.False(excluded)
	assert.InDelta(varfcorr(7), sigma2, 1e-9)
}

// spec.md 8 PRN-mask binding: block = floor(mask-pos/13). A satellite in
// mask slot 20 (block 1) must be checked against mt6.IODF[1] and read
// mt6.UDREI[20], not slot/block 0's.
func Test_SigmaFlt_NonZeroSlotUsesItsOwnBlockAndUDREI(t *testing.T) {
	assert := assert.New(t)
	sc := &SBASFastCorr{UDREI: 3, IODF: 2}
	mt6 := &IntegrityMsg{SBASHeader: SBASHeader{TOW: 0}}
	mt6.IODF[0] = 1 // block 0: deliberately mismatched, must not be consulted
	mt6.IODF[1] = 2 // block 1: matches sc.IODF
	mt6.UDREI[20] = 9
	mt10 := &DegradationParams{}

	sigma2, _, _, _, _, excluded := SigmaFlt(sc, mt6, &DegradationMsg{}, mt10, nil, Gtime{Time: 5}, RDOptions{}, 20)
	assert.False(excluded)
	assert.InDelta(varfcorr(9), sigma2, 1e-9)
}

// A satellite with no mask slot (e.g. not yet bound to a PRN mask) must
// not consult MT6 at all rather than panic or read slot 0's entry.
func Test_SigmaFlt_NegativeSlotSkipsMT6(t *testing.T) {
	assert := assert.New(t)
	sc := &SBASFastCorr{UDREI: 3, IODF: 1}
	mt6 := &IntegrityMsg{SBASHeader: SBASHeader{TOW: 0}}
	mt6.IODF[0] = 1
	mt6.UDREI[0] = 7
	mt10 := &DegradationParams{}
	sigma2, _, _, _, _, excluded := SigmaFlt(sc, mt6, &DegradationMsg{}, mt10, nil, Gtime{Time: 5}, RDOptions{}, -1)
	assert.False(excluded)
	assert.InDelta(varfcorr(3), sigma2, 1e-9)
}

func Test_LongCorr_AppliesRateAndStaleness(t *testing.T) {
	assert := assert.New(t)
	rec := &SBASLongTerm{
		Valid: true,
		T0:    Gtime{Time: 0},
		Dpos:  [3]float64{1, 2, 3},
		Dvel:  [3]float64{0.1, 0.2, 0.3},
		Daf0:  0.5,
		Daf1:  0.01,
	}
	dpos, dclk, ok := LongCorr(rec, Gtime{Time: 10})
	assert.True(ok)
	assert.InDelta(2.0, dpos[0], 1e-9)
	assert.InDelta(0.6, dclk, 1e-9)

	_, _, ok = LongCorr(rec, Gtime{Time: 1000})
	assert.False(ok)

	_, _, ok = LongCorr(nil, Gtime{Time: 0})
	assert.False(ok)
}

func Test_FastCorrTable_LongBinding(t *testing.T) {
	assert := assert.New(t)
	ft := NewFastCorrTable()
	ft.ApplyLongTerm(SBASLongTerm{Valid: true, IODE: 9}, 5)
	rec := ft.Long(5)
	assert.NotNil(rec)
	assert.Equal(9, rec.IODE)
	assert.Nil(ft.Long(6))

	ft.ApplyLongTerm(SBASLongTerm{Valid: false}, 7)
	assert.Nil(ft.Long(7))
}
