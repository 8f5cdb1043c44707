package trend

import "math"

// ViralScore blends volume, growth and sentiment into a 0..100 score:
// 55% mentions over 0..12000, 35% growth over -10..180 and 10% the sentiment
// midpoint.
func ViralScore(mentions int64, growth24h, sentiment float64) int {
	raw := 0.55*Normalize(float64(mentions), 0, 12000)*100 +
		0.35*Normalize(growth24h, -10, 180)*100 +
		0.10*Normalize((sentiment+1)/2, 0, 1)*100
	return int(math.Round(Clamp(raw, 0, 100)))
}

// Normalize maps v linearly from [min, max] onto [0, 1] without clamping.
func Normalize(v, min, max float64) float64 {
	if max == min {
		return 0
	}
	return (v - min) / (max - min)
}

// Clamp bounds v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// ClampInt bounds v to [lo, hi]
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Round2 rounds to two decimal places
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
