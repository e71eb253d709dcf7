package services

import "math"

// shareRange is an inclusive [lo, hi] slice of the prime-counting range
type shareRange struct {
	lo, hi int
}

// countPrimes counts primes in [lo, hi] by trial division up to √n
func countPrimes(lo, hi int) int {
	if lo < 2 {
		lo = 2
	}
	count := 0
	for num := lo; num <= hi; num++ {
		isPrime := true
		limit := int(math.Sqrt(float64(num)))
		for i := 2; i <= limit; i++ {
			if num%i == 0 {
				isPrime = false
				break
			}
		}
		if isPrime {
			count++
		}
	}
	return count
}

// partition splits [lo, hi] into n contiguous shares of equal size, the last
// one absorbing the remainder. n is reduced when the range is shorter than n.
func partition(lo, hi, n int) []shareRange {
	span := hi - lo + 1
	if span <= 0 {
		return nil
	}
	if n < 1 {
		n = 1
	}
	if n > span {
		n = span
	}

	per := span / n
	shares := make([]shareRange, n)
	for t := 0; t < n; t++ {
		start := lo + t*per
		end := start + per - 1
		if t == n-1 {
			end = hi
		}
		shares[t] = shareRange{lo: start, hi: end}
	}
	return shares
}

// warmup spins on sqrt/sin to let dynamic frequency scaling settle
func warmup(iterations int) int {
	acc := 0
	for i := 0; i < iterations; i++ {
		acc += int(math.Sqrt(float64(i) * 2.5))
		if i%10000 == 0 {
			acc += int(math.Sin(float64(i) * 0.001))
		}
	}
	return acc
}
