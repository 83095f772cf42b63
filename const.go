package egnosgo

// Physical and WGS-84 constants, grounded on FengXuebin-gnssgo/src/common.go's
// constant block and cross-checked against original_source/jni/Constants.h.
const (
	CLIGHT  = 299792458.0  // speed of light (m/s)
	OmegaE  = 7.2921151467e-5 // WGS-84 earth rotation rate (rad/s)
	Mu      = 3.986005e14  // WGS-84 earth gravitational constant (m^3/s^2)
	FRelCor = -4.442807633e-10 // relativistic correction coefficient F = -2*sqrt(mu)/c^2

	WGS84A  = 6378137.0         // semi-major axis (m)
	WGS84F  = 1.0 / 298.257223563 // flattening
	WGS84B  = WGS84A * (1 - WGS84F)
	WGS84E2 = WGS84F * (2 - WGS84F) // first eccentricity squared

	Pi = 3.141592653589793

	IonoHeight = 350000.0 // ionospheric shell height h_I (m)

	MaxSat    = 19  // maximum satellite channels per cycle
	MaxPRN    = 51  // maximum PRN-mask slots (MT1)
	MaxIGPPerBand = 201
	MaxIGPBlocks  = 15

	HDOPReject = 20.0 // solution rejected above this HDOP

	MaxIterWLS    = 20
	MinIterWLS    = 6
	ConvThreshold = 1e-8 // m, convergence norm on position update

	MaxSBSAgeF = 18.0 // s, MT6/fast-correction staleness bound
	MaxSBSAgeL = 240.0 // s, long-term correction staleness bound
)

// semicircle-to-radian conversion used throughout GPS subframe decoding.
const semiCircleToRad = Pi
