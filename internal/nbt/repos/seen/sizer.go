package seen

import "math"

// size returns the bit count m and hash count k for n expected keys at
// false-positive rate p:
//
//	m = - (n * ln p) / (ln 2)^2
//	k = (m / n) * ln 2
//
// n of 0 is treated as 1 and p outside (0,1) as 1%.
func size(n uint64, p float64) (uint, uint) {
	if n == 0 {
		n = 1
	}
	if !(p > 0 && p < 1) {
		p = 0.01
	}
	m := math.Ceil(-float64(n) * math.Log(p) / (math.Ln2 * math.Ln2))
	if m < 1 {
		m = 1
	}
	k := math.Max(1, math.Round((m/float64(n))*math.Ln2))
	return uint(m), uint(k)
}
