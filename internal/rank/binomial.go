package rank

import "math"

// ClopperPearson returns the exact confidence interval for a binomial
// proportion, as percentages rounded to one decimal. Used to bound the
// accuracy figure when an influencer has few resolved calls.
func ClopperPearson(successes, trials int, alpha float64) (lower, upper float64) {
	if trials <= 0 || successes < 0 || successes > trials {
		return 0, 0
	}
	if successes == 0 {
		return 0, round1((1 - math.Pow(alpha/2, 1/float64(trials))) * 100)
	}
	if successes == trials {
		return round1(math.Pow(alpha/2, 1/float64(trials)) * 100), 100
	}
	return round1(solveLower(successes, trials, alpha) * 100),
		round1(solveUpper(successes, trials, alpha) * 100)
}

func binomCDF(k, n int, p float64) float64 {
	if k < 0 {
		return 0
	}
	if k >= n {
		return 1
	}
	if p <= 0 {
		return 1
	}
	if p >= 1 {
		return 0
	}
	prob := math.Pow(1-p, float64(n))
	cdf := prob
	for i := 1; i <= k; i++ {
		prob *= (p / (1 - p)) * float64(n-i+1) / float64(i)
		cdf += prob
	}
	return math.Min(math.Max(cdf, 0), 1)
}

// Bisection on the binomial tail: 60 iterations is far past float64
// precision.
func solveLower(successes, trials int, alpha float64) float64 {
	lo, hi := 0.0, 1.0
	for i := 0; i < 60; i++ {
		mid := (lo + hi) / 2
		if 1-binomCDF(successes-1, trials, mid) > alpha/2 {
			hi = mid
		} else {
			lo = mid
		}
	}
	return hi
}

// The upper bound is the p where P(X <= successes) drops to alpha/2.
// The CDF is decreasing in p, so the bisection walks up while the tail
// is still too heavy.
func solveUpper(successes, trials int, alpha float64) float64 {
	lo, hi := 0.0, 1.0
	for i := 0; i < 60; i++ {
		mid := (lo + hi) / 2
		if binomCDF(successes, trials, mid) > alpha/2 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}
