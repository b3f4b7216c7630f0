package detect

// Interval is an inclusive index range [Start, End] of a sample series.
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Default thresholds in normalised depth units.
const (
	DefaultMergeGap  = 0.04
	DetectMergeGap   = 0.01
	DefaultMinLength = 0.01
)

// ExtractIntervals turns a growth mask into index intervals. A rising edge at
// i opens an interval at i-1 and a falling edge at i closes it at i-1. An
// interval still open at the end of the mask closes at the last index.
func ExtractIntervals(mask []bool) []Interval {
	var out []Interval
	open := false
	start := 0

	for i := 1; i < len(mask); i++ {
		switch {
		case mask[i] && !open:
			start = i - 1
			open = true
		case !mask[i] && open:
			out = append(out, Interval{Start: start, End: i - 1})
			open = false
		}
	}
	if open {
		out = append(out, Interval{Start: start, End: len(mask) - 1})
	}
	return out
}

// ExtendLast moves the end of the last interval to lastIndex. The
// zero-padded median filter flattens the bottom of a profile, which would
// otherwise cut the deepest open segment short.
func ExtendLast(iv []Interval, lastIndex int) []Interval {
	out := append([]Interval(nil), iv...)
	if len(out) > 0 && out[len(out)-1].End < lastIndex {
		out[len(out)-1].End = lastIndex
	}
	return out
}

// MergeByGap joins consecutive intervals whose gap in z is at most maxGap.
// Merging runs left to right and only ever extends the last kept interval.
func MergeByGap(z []float64, iv []Interval, maxGap float64) []Interval {
	if len(iv) == 0 {
		return nil
	}

	out := []Interval{iv[0]}
	for _, cur := range iv[1:] {
		last := &out[len(out)-1]
		if z[cur.Start]-z[last.End] <= maxGap {
			last.End = cur.End
			continue
		}
		out = append(out, cur)
	}
	return out
}

// RemoveShort drops intervals spanning less than minLength in z.
func RemoveShort(z []float64, iv []Interval, minLength float64) []Interval {
	var out []Interval
	for _, cur := range iv {
		if z[cur.End]-z[cur.Start] >= minLength {
			out = append(out, cur)
		}
	}
	return out
}

// Restore maps normalised values back onto [lo, hi].
func Restore(v []float64, lo, hi float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x*(hi-lo) + lo
	}
	return out
}

// Postprocessor cleans raw growth intervals into open segments.
type Postprocessor struct {
	MergeGap   float64 // largest gap bridged between two intervals
	MinLength  float64 // shortest interval kept
	ExtendLast bool    // snap the deepest interval to the end of the series
}

// DefaultPostprocessor returns the settings used by the boundary finder.
func DefaultPostprocessor() Postprocessor {
	return Postprocessor{
		MergeGap:   DetectMergeGap,
		MinLength:  DefaultMinLength,
		ExtendLast: true,
	}
}

// Intervals extracts, merges and filters the intervals of mask over the
// normalised depths z.
func (p Postprocessor) Intervals(z []float64, mask []bool) []Interval {
	iv := ExtractIntervals(mask)
	if p.ExtendLast {
		iv = ExtendLast(iv, len(mask)-1)
	}
	return p.Clean(z, iv)
}

// Clean merges and filters already extracted intervals. Cleaning its own
// output returns it unchanged.
func (p Postprocessor) Clean(z []float64, iv []Interval) []Interval {
	iv = MergeByGap(z, iv, p.MergeGap)
	return RemoveShort(z, iv, p.MinLength)
}

// Edges returns the z values at the interval starts and ends.
func Edges(z []float64, iv []Interval) (left, right []float64) {
	left = make([]float64, len(iv))
	right = make([]float64, len(iv))
	for i, cur := range iv {
		left[i] = z[cur.Start]
		right[i] = z[cur.End]
	}
	return left, right
}
