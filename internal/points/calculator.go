// Package points holds the pure calorie and reward-point formulas. No I/O.
package points

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// CalcKcal estimates calories burned for one movement sample. MET is a
// piecewise function of velocity (km/h): linear below 7.0, quadratic at and
// above it. The result is rounded up to 2 decimals.
func CalcKcal(velocity, weight, movetimeSeconds float64) float64 {
	var met float64
	if velocity < 7.0 {
		met = 1.2 + 0.9*velocity
	} else {
		met = 0.6*velocity*velocity - 1.5*velocity + 8.0
	}
	return ceil2(met * weight * (movetimeSeconds / 3600))
}

// CalcPoints awards reward points for one sample based on the caller's age
// band and sex. At or below the band's minimum velocity the sample earns 1
// point, at or above the maximum 2, and in between velocity/min, rounded up
// to 2 decimals. Unknown band/sex pairs earn 0.
func CalcPoints(velocity float64, policy Policy, birth, sex string, now time.Time) float64 {
	th, ok := policy.Lookup(BandFor(birth, now), sex)
	if !ok {
		return 0
	}
	var raw float64
	switch {
	case velocity >= th.Max:
		raw = 2
	case velocity <= th.Min:
		raw = 1
	default:
		raw = velocity / th.Min
	}
	return ceil2(raw)
}

// BandFor maps a birth date string (first 4 characters are the birth year)
// to a policy age band: age floored to the decade, clamped to [20, 70].
func BandFor(birth string, now time.Time) int {
	band := (now.Year() - birthYear(birth, now)) / 10 * 10
	if band >= 70 {
		return 70
	}
	if band <= 20 {
		return 20
	}
	return band
}

func birthYear(birth string, now time.Time) int {
	if len(birth) < 4 {
		return now.Year()
	}
	year, err := strconv.Atoi(birth[:4])
	if err != nil {
		return now.Year()
	}
	return year
}

func ceil2(value float64) float64 {
	return decimal.NewFromFloat(value).RoundCeil(2).InexactFloat64()
}
