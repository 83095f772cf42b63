package egnosgo

import "time"

// Gtime is a GPS-epoch time value, split into integer seconds since the
// GPS epoch (1980-01-06) plus a sub-second fraction, matching the
// FengXuebin-gnssgo/src/common.go Gtime convention so the rest of the
// time arithmetic (TimeAdd/TimeDiff) carries over unchanged.
type Gtime struct {
	Time int64   // integer seconds since GPS epoch
	Sec  float64 // fractional second [0,1)
}

// TimeAdd returns t shifted by sec seconds.
func TimeAdd(t Gtime, sec float64) Gtime {
	tt := t.Sec + sec
	ival := int64(tt)
	if tt < 0 && tt != float64(ival) {
		ival--
	}
	t.Time += ival
	t.Sec = tt - float64(ival)
	return t
}

// TimeDiff returns t1-t2 in seconds.
func TimeDiff(t1, t2 Gtime) float64 {
	return float64(t1.Time-t2.Time) + (t1.Sec - t2.Sec)
}

// ConstSys identifies the constellation a channel belongs to. Only GPS and
// SBAS ranging are in scope (spec.md Non-goals exclude the rest); the
// "other" tag exists so upstream callers that still hand us other GNSS
// identifiers fail soft instead of panicking.
type ConstSys int

const (
	SysNone ConstSys = iota
	SysGPS
	SysSBAS
	SysOther
)

// SatUseState normalizes the inverted/ambiguous "use" convention flagged in
// spec.md 9(d): a single enumeration, one polarity, used everywhere.
type SatUseState int

const (
	UseUnused SatUseState = iota
	UseRaw                // raw pseudorange, no SBAS correction applied
	UseSBASCorrected
)

// SatExcludeReason records why a channel did not contribute to the final
// weighted least squares solve. Zero value means "not excluded".
type SatExcludeReason int

const (
	ExcludeNone SatExcludeReason = iota
	ExcludeLowElevation
	ExcludeNotInMask
	ExcludeRAIM
	ExcludeUDREI
	ExcludeNoEphemeris
	ExcludeStaleCorrection
)

func (r SatExcludeReason) String() string {
	switch r {
	case ExcludeNone:
		return "none"
	case ExcludeLowElevation:
		return "low_elevation"
	case ExcludeNotInMask:
		return "not_in_mask"
	case ExcludeRAIM:
		return "raim"
	case ExcludeUDREI:
		return "udrei"
	case ExcludeNoEphemeris:
		return "no_ephemeris"
	case ExcludeStaleCorrection:
		return "stale_correction"
	default:
		return "unknown"
	}
}

// Ephemeris holds a single GPS Legacy Navigation ephemeris/clock set, one
// per IODE alternative. Grounded on FengXuebin-gnssgo/src/types.go's Eph
// struct, trimmed to the GPS-only, single-frequency fields spec.md 3 names;
// the multi-GNSS Tgd array and CNAV Adot/Ndot fields are dropped (Non-goal).
type Ephemeris struct {
	Sat  int // PRN
	Iode int
	Iodc int
	Sva  int // URA index
	Svh  int // health
	Week int // full GPS week (module-1024 resolved)

	Toe, Toc, Ttr Gtime

	A, E, I0, OMG0, Omg, M0, Deln, OMGd, Idot float64
	Crc, Crs, Cuc, Cus, Cic, Cis              float64
	Toes                                      float64 // t_oe, seconds of week
	F0, F1, F2                                float64 // a_f0, a_f1, a_f2
	Tgd                                       float64
}

// SBASLongTerm is the velocity-0/velocity-1 long-term orbit/clock delta
// bound to a specific ephemeris IODE (spec.md 3, MT24/MT25).
type SBASLongTerm struct {
	Valid             bool
	IODE              int
	VelCode           int // 0 = position-only record, 1 = carries rates
	T0                Gtime
	Dpos, Dvel        [3]float64
	Daf0, Daf1        float64
}

// SBASFastCorr is the current PRC/RRC/UDREI state for one PRN-mask slot
// (spec.md 3, MT2-5/MT24).
type SBASFastCorr struct {
	Valid      bool
	T0         Gtime
	PRCPrev    float64
	PRC        float64
	RRC        float64
	Dt         float64
	IODF       int
	UDREI      int
	AI         int // MT7 degradation factor index for this PRN
}

// SatRecord is the per-channel working state for one positioning cycle,
// spec.md 3's "Satellite record". Populated from the measurement snapshot,
// mutated by the corrector stages and the solver, discarded at cycle end.
type SatRecord struct {
	PRN  int
	Sys  ConstSys

	PR    float64 // pseudorange, m: raw, plus Fast.PRC once SBAS-corrected
	TOW   float64 // receiver time-of-week, s
	CN0   float64 // dBHz

	Eph *Ephemeris

	Pos     [3]float64 // ECEF, m
	ClkBias float64    // seconds
	TOWCorr float64    // corrected transmit time

	Az, El float64 // radians

	Long  SBASLongTerm
	Fast  SBASFastCorr

	IonoDelay float64
	IonoVar   float64
	TropoDelay float64
	TropoVar   float64

	EpsFC, EpsRRC, EpsLTC, EpsER float64

	SigmaFlt2   float64
	SigmaTotal2 float64

	Use      SatUseState
	Exclude  SatExcludeReason
}

// DiagFields renders a SatRecord as structured logging fields, grounded on
// the logrus.Fields idiom used across bramburn-gnssgo/pkg/*.
func (s *SatRecord) DiagFields() map[string]any {
	return map[string]any{
		"prn":     s.PRN,
		"use":     s.Use,
		"exclude": s.Exclude,
		"el_deg":  s.El * 180 / Pi,
	}
}

// IGPEntry is a single Ionospheric Grid Point, spec.md 3.
type IGPEntry struct {
	Lat, Lon int16   // degrees
	Give     int     // 0-15, 15 = don't use, 14->mapped variance, see iono.go
	Delay    float64 // IGPVD, m
	T0       Gtime
}

// IGPStatus classifies an IGP for the interpolation decision (spec.md 3).
type IGPStatus int

const (
	IGPNotMonitored IGPStatus = iota
	IGPMonitored
	IGPDontUse
)

func (e *IGPEntry) Status() IGPStatus {
	if e == nil {
		return IGPNotMonitored
	}
	switch {
	case e.Give >= 16 || e.Give < 0:
		return IGPNotMonitored
	case e.Give == 15:
		return IGPDontUse
	default:
		return IGPMonitored
	}
}

// --- SBAS message tagged variant (spec.md 9: tagged variant, common
// header {type, TOW, payload}, type-specific tail). ---

type SBASMsgType int

const (
	MT0  SBASMsgType = 0
	MT1  SBASMsgType = 1
	MT2  SBASMsgType = 2
	MT3  SBASMsgType = 3
	MT4  SBASMsgType = 4
	MT5  SBASMsgType = 5
	MT6  SBASMsgType = 6
	MT7  SBASMsgType = 7
	MT9  SBASMsgType = 9
	MT10 SBASMsgType = 10
	MT12 SBASMsgType = 12
	MT17 SBASMsgType = 17
	MT18 SBASMsgType = 18
	MT24 SBASMsgType = 24
	MT25 SBASMsgType = 25
	MT26 SBASMsgType = 26
	MT63 SBASMsgType = 63
)

// SBASHeader is the common header every decoded SBAS message carries.
type SBASHeader struct {
	Type    SBASMsgType
	TOW     float64
	Payload []byte // raw 250-bit (32-byte, MSB-first) payload as received
	OK      bool   // false when payload absent or type field mismatched
}

// PRNMask is the decoded MT1 record.
type PRNMask struct {
	SBASHeader
	PRNs []int // ordered list of PRNs present in the mask, up to 51
	IODP int
}

// FastCorrBlock is the decoded MT2-5 (or the fast half of MT24) record: one
// block of up to 13 PRC/UDREI slots.
type FastCorrBlock struct {
	SBASHeader
	Block int
	IODF  int
	PRC   [13]float64
	UDREI [13]int
}

// IntegrityMsg is the decoded MT6 record: 4 IODFs + 51 UDREIs.
type IntegrityMsg struct {
	SBASHeader
	IODF  [4]int
	UDREI [51]int
}

// DegradationMsg is the decoded MT7 record.
type DegradationMsg struct {
	SBASHeader
	TLat int
	AI   [51]int
}

// GeoNavMsg is the decoded MT9 GEO navigation record.
type GeoNavMsg struct {
	SBASHeader
	T0           float64
	URA          int
	Pos, Vel, Acc [3]float64
	Af0, Af1     float64
}

// DegradationParams is the decoded MT10 record.
type DegradationParams struct {
	SBASHeader
	Brrc                         float64
	CltcLSB, CltcV0, CltcV1      float64
	IltcV0, IltcV1               float64
	Cgeolsb, CgeoV, Igeo         float64
	Cer                          float64
	CionoStep, CionoRamp, Iiono  float64
	RSSudre, RSSiono             bool
}

// NetworkTimeMsg is the decoded MT12 record.
type NetworkTimeMsg struct {
	SBASHeader
	A0, A1      float64
	T0t         float64
	WNt         int
	LeapSec     int
	UTCID       int
	GPSTOW      float64
	GPSWeek     int
}

// IGPMask is the decoded MT18 record.
type IGPMask struct {
	SBASHeader
	Band   int
	IODI   int
	NIGP   int
	Blocks []IGPMaskEntry
}

// IGPMaskEntry is one selected grid point from an MT18 mask.
type IGPMaskEntry struct {
	BlockID, BlockLine int
	Lat, Lon           int16
}

// LongTermRec is a single decoded long-term correction record (MT24/MT25).
type LongTermRec = SBASLongTerm

// MixedMsg is the decoded MT24 record: a fast block of 6 plus room for 2
// long-term records; DecodeMT24 fills Long[0] only.
type MixedMsg struct {
	SBASHeader
	Block  FastCorrBlock
	Long   [2]LongTermRec
}

// LongTermMsg is the decoded MT25 record: room for 4 long-term records;
// DecodeMT25 fills Long[0] and Long[1] only.
type LongTermMsg struct {
	SBASHeader
	Long [4]LongTermRec
}

// IonoDelayMsg is the decoded MT26 record.
type IonoDelayMsg struct {
	SBASHeader
	Band, Block int
	IODI        int
	Entries     [15]IGPEntry
}

// KlobucharParams is the GPS broadcast ionospheric fallback model.
type KlobucharParams struct {
	Alpha, Beta [4]float64
}

// RDOptions is the bit-vector of R&D option flags from spec.md 6, modeled
// as named booleans per SPEC_FULL.md 2.3 rather than a raw bitmask. It is
// JSON (de)serializable via stdlib encoding/json struct tags, matching the
// pack's plain-struct config convention (goblimey-go-ntrip/jsonconfig.go).
type RDOptions struct {
	UDREI14Usable     bool `json:"udrei14_usable"`
	DOPExclude        bool `json:"dop_exclude"`
	TwoDHold          bool `json:"two_d_hold"`
	RAIM              bool `json:"raim"`
	RRCZero           bool `json:"rrc_zero"`
	ElevationWeighting bool `json:"elevation_weighting"`
	AltitudeAbsolute  bool `json:"altitude_absolute"`
	ForceRanging      bool `json:"force_ranging"`
}

// SatDiag is a per-satellite diagnostic record surfaced in the result.
type SatDiag struct {
	PRN       int
	Az, El    float64
	Use       SatUseState
	Exclude   SatExcludeReason
	IonoDelay float64
	TropoDelay float64
	SigmaFlt2 float64
	EpsFC, EpsRRC, EpsLTC, EpsER float64
	UDREI     int
	LongDpos  [3]float64
}

// GPSInput is the GPS-only entry point's input (spec.md 6).
type GPSInput struct {
	Ephemerides []Ephemeris // up to 32*5 alternative sets, keyed by Sat+Iode
	Meas        []Measurement
	PriorPos    [4]float64 // x,y,z,c*dt
	UTC         [8]float64
	Unused      []Measurement // diagnostics-only channels
}

// Measurement is a raw channel reading (PRN, TOW, PR, C/N0).
type Measurement struct {
	PRN int
	TOW float64
	PR  float64
	CN0 float64
}

// SBASInput is the SBAS entry point's input (spec.md 6), GPSInput plus the
// SBAS message set and option flags.
type SBASInput struct {
	GPSInput

	MT1  *PRNMask
	MT10 *DegradationParams
	MT12 *NetworkTimeMsg
	MT7  *DegradationMsg
	MT6  *IntegrityMsg
	MT9  *GeoNavMsg
	MT17 []byte // almanac payloads, intentionally carried undecoded; see DESIGN.md

	MT18 []IGPMask
	MT26 []IonoDelayMsg
	MT2to5 [2][2]FastCorrBlock // [block][prev=0,cur=1]
	MT24   []MixedMsg
	MT25   []LongTermMsg

	Klobuchar KlobucharParams
	Options   RDOptions

	// Clock is a log-timestamp seam only; positioning math is driven
	// entirely by TOW/week, never by wall-clock time.
	Clock func() time.Time
}

// Result is the GPS-only entry point's output (spec.md 6).
type Result struct {
	Pos   [3]float64 // geodetic lat,lon,h (rad,rad,m)
	ECEF  [3]float64
	ClkBias float64

	HDOP, VDOP, PDOP, TDOP float64

	NSat, NLowElev, NUsed, Iterations int

	Sats []SatDiag
	Unused []SatDiag

	PositionJump    bool
	PositionJumpENU [2]float64

	Valid bool
}

// SBASResult extends Result with integrity metrics (spec.md 6).
type SBASResult struct {
	Result

	HPL, VPL float64

	EGNOSQuality int // 1 = MT1 and MT9 received (age not checked) and every used satellite SBAS-corrected, 0 = preliminary
	WithinEGNOSCoverage bool
}
