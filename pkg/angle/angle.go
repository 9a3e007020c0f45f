// Package angle holds wrapped headings. Trackers report raw, unwrapped
// angles; anything that compares two headings wraps them first.
package angle

import "math"

// PlusMinus180 is a heading in degrees in the range (-180, 180]. Build one
// with FromFloat; a plain conversion skips the wrap.
type PlusMinus180 float64

func FromFloat(degrees float64) PlusMinus180 {
	r := math.Remainder(degrees, 360)
	if r <= -180 {
		r += 360
	}
	return PlusMinus180(r)
}

func FromRadians(rad float64) PlusMinus180 {
	return FromFloat(rad * 180 / math.Pi)
}

func (a PlusMinus180) Add(b PlusMinus180) PlusMinus180 {
	return a.AddFloat(float64(b))
}

// Sub is the signed rotation that takes b onto a, the short way round.
func (a PlusMinus180) Sub(b PlusMinus180) PlusMinus180 {
	return a.AddFloat(-float64(b))
}

func (a PlusMinus180) AddFloat(degrees float64) PlusMinus180 {
	return FromFloat(float64(a) + degrees)
}

func (a PlusMinus180) SubFloat(degrees float64) PlusMinus180 {
	return a.AddFloat(-degrees)
}

func (a PlusMinus180) Opposite() PlusMinus180 {
	return a.AddFloat(180)
}

func (a PlusMinus180) Float() float64 {
	return float64(a)
}

func (a PlusMinus180) Radians() float64 {
	return float64(a) * math.Pi / 180
}
