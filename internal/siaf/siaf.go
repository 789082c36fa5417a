// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package siaf resolves telescope apertures and converts pointing
// information to sky coordinates. It carries a small embedded registry
// of aperture reference points in the telescope-fixed V2/V3 frame and
// the attitude-matrix math to project them to RA/Dec for a given
// pointing and roll.
package siaf

import (
	"fmt"
	"math"
	"strings"
)

// Aperture is a focal-plane aperture with its reference point in the
// V2/V3 frame, in arcseconds.
type Aperture struct {
	Name  string
	V2Ref float64
	V3Ref float64
}

// apertures is the embedded reference-point registry for the apertures
// that appear in pointing files.
var apertures = map[string]Aperture{
	"NRCA1_FULL":   {Name: "NRCA1_FULL", V2Ref: 120.7, V3Ref: -527.4},
	"NRCA2_FULL":   {Name: "NRCA2_FULL", V2Ref: 120.1, V3Ref: -459.7},
	"NRCA3_FULL":   {Name: "NRCA3_FULL", V2Ref: 51.9, V3Ref: -527.8},
	"NRCA4_FULL":   {Name: "NRCA4_FULL", V2Ref: 52.3, V3Ref: -459.9},
	"NRCA5_FULL":   {Name: "NRCA5_FULL", V2Ref: 86.1, V3Ref: -493.2},
	"NRCB1_FULL":   {Name: "NRCB1_FULL", V2Ref: -121.0, V3Ref: -457.7},
	"NRCB2_FULL":   {Name: "NRCB2_FULL", V2Ref: -121.4, V3Ref: -525.4},
	"NRCB3_FULL":   {Name: "NRCB3_FULL", V2Ref: -52.2, V3Ref: -457.9},
	"NRCB4_FULL":   {Name: "NRCB4_FULL", V2Ref: -52.6, V3Ref: -525.7},
	"NRCB5_FULL":   {Name: "NRCB5_FULL", V2Ref: -89.4, V3Ref: -491.8},
	"NRCALL_FULL":  {Name: "NRCALL_FULL", V2Ref: -0.3, V3Ref: -492.6},
	"NRCAS_FULL":   {Name: "NRCAS_FULL", V2Ref: 86.3, V3Ref: -493.5},
	"NRCBS_FULL":   {Name: "NRCBS_FULL", V2Ref: -89.6, V3Ref: -491.9},
	"NIS_CEN":      {Name: "NIS_CEN", V2Ref: -290.1, V3Ref: -697.5},
	"FGS1_FULL":    {Name: "FGS1_FULL", V2Ref: 207.2, V3Ref: -697.5},
	"FGS2_FULL":    {Name: "FGS2_FULL", V2Ref: 24.4, V3Ref: -699.5},
	"NRS_FULL_MSA": {Name: "NRS_FULL_MSA", V2Ref: 378.5, V3Ref: -428.2},
	"MIRIM_FULL":   {Name: "MIRIM_FULL", V2Ref: -453.4, V3Ref: -373.8},
}

// LookupAperture resolves an aperture name from the pointing file to
// its registry entry. Unknown apertures are a configuration error the
// pipeline must not paper over.
func LookupAperture(name string) (Aperture, error) {
	if ap, ok := apertures[name]; ok {
		return ap, nil
	}
	// Some exports separate the instrument prefix with an underscore
	// (NRC_A1_FULL); the registry uses the fused form.
	if ap, ok := apertures[strings.Replace(name, "_", "", 1)]; ok {
		return ap, nil
	}
	return Aperture{}, fmt.Errorf("unknown aperture %q", name)
}

// matrix is a 3x3 direction-cosine matrix, rows by columns.
type matrix [3][3]float64

// mul returns m*o.
func (m matrix) mul(o matrix) matrix {
	var out matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				out[i][j] += m[i][k] * o[k][j]
			}
		}
	}
	return out
}

// apply returns m*v.
func (m matrix) apply(v [3]float64) [3]float64 {
	var out [3]float64
	for i := 0; i < 3; i++ {
		out[i] = m[i][0]*v[0] + m[i][1]*v[1] + m[i][2]*v[2]
	}
	return out
}

// rotate builds the elementary rotation matrix about the given axis
// (1, 2, or 3) by an angle in degrees.
func rotate(axis int, deg float64) matrix {
	c := math.Cos(deg * math.Pi / 180)
	s := math.Sin(deg * math.Pi / 180)
	switch axis {
	case 1:
		return matrix{{1, 0, 0}, {0, c, -s}, {0, s, c}}
	case 2:
		return matrix{{c, 0, s}, {0, 1, 0}, {-s, 0, c}}
	default:
		return matrix{{c, -s, 0}, {s, c, 0}, {0, 0, 1}}
	}
}

// unitVector converts V2/V3 angles in degrees to a unit 3-vector.
func unitVector(v2Deg, v3Deg float64) [3]float64 {
	v2 := v2Deg * math.Pi / 180
	v3 := v3Deg * math.Pi / 180
	return [3]float64{
		math.Cos(v3) * math.Cos(v2),
		math.Cos(v3) * math.Sin(v2),
		math.Sin(v3),
	}
}

// Attitude builds the telescope attitude matrix for a pointing: the
// aperture at (v2, v3) arcsec looks at (ra, dec) degrees with the given
// roll angle in degrees.
func Attitude(v2, v3, ra, dec, roll float64) matrix {
	m := rotate(2, v3/3600).mul(rotate(3, -v2/3600))
	m = rotate(1, -roll).mul(m)
	m = rotate(2, -dec).mul(m)
	return rotate(3, ra).mul(m)
}

// Pointing projects the V2/V3 reference point (arcsec) through the
// attitude matrix and returns RA and Dec in degrees, with RA normalized
// to [0, 360).
func Pointing(att matrix, v2, v3 float64) (ra, dec float64) {
	w := att.apply(unitVector(v2/3600, v3/3600))
	ra = math.Atan2(w[1], w[0]) * 180 / math.Pi
	dec = math.Asin(w[2]) * 180 / math.Pi
	if ra < 0 {
		ra += 360
	}
	return ra, dec
}

// LocalRoll computes the roll angle about the V3 axis at the aperture
// (v2, v3) arcsec implied by the telescope-level roll pav3 at the sky
// position (ra, dec) degrees.
func LocalRoll(pav3, ra, dec, v2, v3 float64) float64 {
	v2r := v2 / 3600 * math.Pi / 180
	v3r := v3 / 3600 * math.Pi / 180
	rar := ra * math.Pi / 180
	decr := dec * math.Pi / 180
	par := pav3 * math.Pi / 180

	m := matrix{
		{
			math.Cos(rar) * math.Cos(decr),
			-math.Sin(rar)*math.Cos(par) + math.Cos(rar)*math.Sin(decr)*math.Sin(par),
			-math.Sin(rar)*math.Sin(par) - math.Cos(rar)*math.Sin(decr)*math.Cos(par),
		},
		{
			math.Sin(rar) * math.Cos(decr),
			math.Cos(rar)*math.Cos(par) + math.Sin(rar)*math.Sin(decr)*math.Sin(par),
			math.Cos(rar)*math.Sin(par) - math.Sin(rar)*math.Sin(decr)*math.Cos(par),
		},
		{
			math.Sin(decr),
			-math.Cos(decr) * math.Sin(par),
			math.Cos(decr) * math.Cos(par),
		},
	}

	x := -(m[2][0]*math.Cos(v2r)+m[2][1]*math.Sin(v2r))*math.Sin(v3r) + m[2][2]*math.Cos(v3r)
	y := (m[0][0]*m[1][2]-m[1][0]*m[0][2])*math.Cos(v2r) +
		(m[0][1]*m[1][2]-m[1][1]*m[0][2])*math.Sin(v2r)

	local := math.Atan2(y, x) * 180 / math.Pi
	if local < 0 {
		local += 360
	}
	return local
}

// Resolve computes the sky position of an aperture's reference point
// for one exposure: the pointing (ra, dec, v2, v3) from the pointing
// file, the telescope roll pav3, and the aperture named in the
// exposure row.
func Resolve(apertureName string, ra, dec, v2, v3, pav3 float64) (refRA, refDec float64, err error) {
	ap, err := LookupAperture(apertureName)
	if err != nil {
		return 0, 0, err
	}
	localRoll := LocalRoll(pav3, ra, dec, v2, v3)
	att := Attitude(v2, v3, ra, dec, localRoll)
	refRA, refDec = Pointing(att, ap.V2Ref, ap.V3Ref)
	return refRA, refDec, nil
}
