package matching

import "strconv"

// round rounds x to n decimal places using the correctly rounded decimal
// expansion of the float, so 2.675 stays 2.67 the way the stored value
// actually reads.
func round(x float64, n int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', n, 64), 64)
	if err != nil {
		return x
	}
	return r
}
