package egnosgo

import "math"

// GPS Legacy Navigation subframe decoding (spec.md 4.4), grounded on
// original_source/jni/Ephemeris.c's ReadSubfr1/2/3 and get_* field
// extractors, which implement the same IS-GPS-200E Figure 20-1/20-2 bit
// layout this file targets; the Go bit-field reader of bitfield.go
// replaces the C bit-shift macros.

const (
	p2_5  = 1.0 / 32
	p2_11 = 1.0 / 2048
	p2_19 = 1.0 / 524288
	p2_29 = 1.0 / 536870912
	p2_31 = p2_29 / 4
	p2_33 = p2_31 / 4
	p2_43 = p2_33 / 1024
	p2_55 = p2_43 / 4096
)

// DecodeSubframes parses three concatenated 300-bit subframes (900 bits,
// 113 bytes, MSB-first, parity included but unverified by this layer per
// spec.md 6) into an Ephemeris record. Subframes may arrive in any order;
// each carries its own subframe-ID field (bits 43-45 of its 300-bit
// window). A week number is not present in subframes 2/3, so callers must
// have already set eph.Week from subframe 1, or call this repeatedly
// across a 3-subframe group as this function does internally.
func DecodeSubframes(buff []byte) (Ephemeris, bool) {
	if len(buff) < 113 {
		return Ephemeris{}, false
	}
	var eph Ephemeris
	var got1, got2, got3 bool
	for k := 0; k < 3; k++ {
		base := k * 300
		if !bitsAvailable(buff, base, 300) {
			continue
		}
		id := int(GetBitU(buff, base+43, 3))
		switch id {
		case 1:
			decodeSubframe1(buff, base, &eph)
			got1 = true
		case 2:
			decodeSubframe2(buff, base, &eph)
			got2 = true
		case 3:
			decodeSubframe3(buff, base, &eph)
			got3 = true
		}
	}
	if !got1 || !got2 || !got3 {
		return Ephemeris{}, false
	}
	return eph, true
}

func decodeSubframe1(buff []byte, base int, eph *Ephemeris) {
	week := int(GetBitU(buff, base+60, 10))
	eph.Week = week%1024 + 1024 // spec.md 4.4: returned modulo-1024 plus 1024
	eph.Sva = int(GetBitU(buff, base+72, 4))
	eph.Svh = int(GetBitU(buff, base+76, 6))
	iodcHi := GetBitU(buff, base+82, 2)
	iodcLo := GetBitU(buff, base+210, 8)
	eph.Iodc = int(iodcHi<<8 | iodcLo)
	eph.Tgd = float64(GetBits(buff, base+196, 8)) * p2_31
	toc := float64(GetBitU(buff, base+218, 16)) * 16.0
	eph.Toc = Gtime{Time: int64(toc)}
	eph.F2 = float64(GetBits(buff, base+240, 8)) * p2_55
	eph.F1 = float64(GetBits(buff, base+248, 16)) * p2_43
	eph.F0 = float64(GetBits(buff, base+270, 22)) * p2_31
}

func decodeSubframe2(buff []byte, base int, eph *Ephemeris) {
	eph.Iode = int(GetBitU(buff, base+60, 8))
	eph.Crs = float64(GetBits(buff, base+68, 16)) * p2_5
	eph.Deln = float64(GetBits(buff, base+90, 16)) * p2_43 * semiCircleToRad
	eph.M0 = float64(GetBits(buff, base+106, 32)) * p2_31 * semiCircleToRad
	eph.Cuc = float64(GetBits(buff, base+150, 16)) * p2_29
	eph.E = float64(GetBitU(buff, base+166, 32)) * p2_33
	eph.Cus = float64(GetBits(buff, base+210, 16)) * p2_29
	sqrtA := float64(GetBitU(buff, base+226, 32)) * p2_19
	toes := float64(GetBitU(buff, base+270, 16)) * 16.0
	eph.Toes = toes
	eph.Toe = Gtime{Time: int64(toes)}
	eph.A = sqrtA * sqrtA
}

func decodeSubframe3(buff []byte, base int, eph *Ephemeris) {
	eph.Cic = float64(GetBits(buff, base+60, 16)) * p2_29
	eph.OMG0 = float64(GetBits(buff, base+76, 32)) * p2_31 * semiCircleToRad
	eph.Cis = float64(GetBits(buff, base+108, 16)) * p2_29
	eph.I0 = float64(GetBits(buff, base+124, 32)) * p2_31 * semiCircleToRad
	eph.Crc = float64(GetBits(buff, base+156, 16)) * p2_5
	eph.Omg = float64(GetBits(buff, base+172, 32)) * p2_31 * semiCircleToRad
	eph.OMGd = float64(GetBits(buff, base+204, 24)) * p2_43 * semiCircleToRad
	// iode2 at bits 228..235 is redundant with subframe 2's IODE; spec.md
	// 4.4 says a mismatch is not fatal here, so it is not read/compared.
	eph.Idot = float64(GetBits(buff, base+236, 14)) * p2_43 * semiCircleToRad
}

// EphClk returns the SV clock bias at transmit time t (spec.md 4.6 step 1),
// without the SBAS long-term delta (applied separately by the caller when
// SBAS is enabled) or the relativistic term (added during position
// computation, spec.md 4.6 step 5).
func EphClk(t Gtime, eph *Ephemeris) float64 {
	ts := TimeDiff(t, eph.Toc)
	for i := 0; i < 2; i++ {
		ts -= eph.F0 + eph.F1*ts + eph.F2*ts*ts
	}
	return eph.F0 + eph.F1*ts + eph.F2*ts*ts - eph.Tgd
}

// EphPos computes the GPS satellite ECEF position and relativistic clock
// correction at transmit time t, per spec.md 4.6 steps 1-5 (long-term
// delta and Earth-rotation compensation, steps 6-7, are applied by the
// caller in solver.go since they depend on SBAS state and signal travel
// time respectively). Grounded on FengXuebin-gnssgo/src/ephemeris.go's
// Eph2Pos for the Kepler/harmonic-correction structure and
// original_source/jni/Positioning.c's SV_position_computation for the
// exact ordering of corrections.
func EphPos(t Gtime, eph *Ephemeris) (pos [3]float64, dtsRel float64) {
	tk := TimeDiff(t, eph.Toe)
	// half-week wrap-around (spec.md 4.6 step 2)
	const halfWeek = 302400.0
	if tk > halfWeek {
		tk -= 2 * halfWeek
	} else if tk < -halfWeek {
		tk += 2 * halfWeek
	}

	n0 := math.Sqrt(Mu / (eph.A * eph.A * eph.A))
	n := n0 + eph.Deln
	m := eph.M0 + n*tk

	ek := solveKepler(m, eph.E)
	sinE, cosE := math.Sin(ek), math.Cos(ek)

	nu := math.Atan2(math.Sqrt(1-eph.E*eph.E)*sinE, cosE-eph.E)
	phi := nu + eph.Omg

	sin2phi, cos2phi := math.Sin(2*phi), math.Cos(2*phi)
	du := eph.Cus*sin2phi + eph.Cuc*cos2phi
	dr := eph.Crs*sin2phi + eph.Crc*cos2phi
	di := eph.Cis*sin2phi + eph.Cic*cos2phi

	u := phi + du
	r := eph.A*(1-eph.E*cosE) + dr
	i := eph.I0 + di + eph.Idot*tk

	xp := r * math.Cos(u)
	yp := r * math.Sin(u)

	omega := eph.OMG0 + (eph.OMGd-OmegaE)*tk - OmegaE*eph.Toes

	sinO, cosO := math.Sin(omega), math.Cos(omega)
	sinI, cosI := math.Sin(i), math.Cos(i)

	pos[0] = xp*cosO - yp*cosI*sinO
	pos[1] = xp*sinO + yp*cosI*cosO
	pos[2] = yp * sinI

	dtsRel = FRelCor * eph.E * math.Sqrt(eph.A) * sinE
	return pos, dtsRel
}

// SBASGeoPos computes a geostationary SBAS satellite's ECEF position from
// the MT9 position/velocity/acceleration polynomial (spec.md 4.6,
// "Geostationary SBAS satellites use the MT9 ... polynomial in t").
// Resolves spec.md 9(a): the expansion uses 0.5, not integer 1/2 division
// (the source's latent bug, per the flagged Open Question).
func SBASGeoPos(t Gtime, msg *GeoNavMsg) (pos [3]float64, clk float64) {
	dt := TimeDiff(t, Gtime{Time: int64(msg.T0)})
	for i := 0; i < 3; i++ {
		pos[i] = msg.Pos[i] + msg.Vel[i]*dt + 0.5*msg.Acc[i]*dt*dt
	}
	clk = msg.Af0 + msg.Af1*dt
	return pos, clk
}

// RotateEarthRotation rotates an ECEF position by the Earth-rotation angle
// accumulated during signal travel time dt (spec.md 4.6 step 7), grounded
// on original_source/jni/Positioning.c's SV_position_correction.
func RotateEarthRotation(pos [3]float64, dt float64) [3]float64 {
	ang := OmegaE * dt
	s, c := math.Sin(ang), math.Cos(ang)
	return [3]float64{
		c*pos[0] + s*pos[1],
		-s*pos[0] + c*pos[1],
		pos[2],
	}
}
