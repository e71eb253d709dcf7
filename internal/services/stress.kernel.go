package services

import "math"

// branchSteps is the length of the unpredictable-branch pass per round
const branchSteps = 10000

// stressKernel is the private working set of one stress worker
type stressKernel struct {
	a      []float64
	b      []float64
	result []float64
}

func newStressKernel(n int) *stressKernel {
	if n < 2 {
		n = 2
	}
	k := &stressKernel{
		a:      make([]float64, n),
		b:      make([]float64, n),
		result: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		k.a[i] = float64(i) * 1.1
		k.b[i] = float64(i) * 0.9
	}
	return k
}

// round runs one pass of FPU, memory and branch work over the buffers
func (k *stressKernel) round() {
	n := len(k.a)

	// transcendental math followed by an integer LCG step
	for i := 0; i < n; i++ {
		a := k.a[i]
		b := k.b[i]

		r := math.Sqrt(a*a + b*b)
		r += math.Sin(a) * math.Cos(b)
		r *= math.Exp(math.Log(a + 1.0))

		v := uint64(r * 1000.0)
		v = (v*0x5DEECE66D + 0xB) & (1<<48 - 1)
		k.result[i] = float64(v)
	}

	// mirrored swap across the two buffers
	for i := 0; i < n/2; i++ {
		k.a[i], k.b[n-i-1] = k.b[n-i-1], k.a[i]
	}

	for i := 0; i < branchSteps; i++ {
		j := i % n
		val := k.result[j]
		if val > 0.5 {
			k.a[j] += val * 0.1
		} else {
			k.b[j] -= val * 0.1
		}
	}
}

func (k *stressKernel) observe(rounds uint64) float64 {
	return k.result[rounds%uint64(len(k.result))]
}
