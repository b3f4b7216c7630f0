package series

import "sort"

// MedFilt applies median filter with zero-padding (scipy.signal.medfilt compatible)
// kernelSize must be a positive odd integer
func MedFilt(data []float64, kernelSize int) []float64 {
	if kernelSize < 1 || kernelSize%2 == 0 {
		panic("kernelSize must be positive odd integer")
	}
	n := len(data)
	if n == 0 {
		return nil
	}

	half := kernelSize / 2
	result := make([]float64, n)
	window := make([]float64, kernelSize)

	for i := 0; i < n; i++ {
		for j := -half; j <= half; j++ {
			idx := i + j
			if idx < 0 || idx >= n {
				window[j+half] = 0.0 // zero-padding
			} else {
				window[j+half] = data[idx]
			}
		}

		sort.Float64s(window)
		result[i] = window[half]
	}
	return result
}

// KernelSize picks the median kernel for a series of n samples: short series
// get a narrow kernel, long ones up to 101 samples. The result is odd and
// never exceeds n.
func KernelSize(n int) int {
	var k int
	switch {
	case n < 50:
		k = 3
	case n < 200:
		k = 21
	case n < 1000:
		k = min(51, int(float64(n)*0.1)/2*2+1)
	default:
		k = 101
	}

	k = min(k, n)
	if k%2 == 0 {
		k--
	}
	return k
}

// Smooth median-filters temps with the kernel chosen by KernelSize.
func Smooth(temps []float64) []float64 {
	k := KernelSize(len(temps))
	if k < 1 {
		return append([]float64(nil), temps...)
	}
	return MedFilt(temps, k)
}
