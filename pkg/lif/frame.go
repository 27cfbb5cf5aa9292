package lif

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Frame is one decoded intensity plane - a single (image, z, t, channel)
// triple. Samples are row-major, widened to uint16 regardless of the
// on-disk bit depth.
type Frame struct {
	W, H     int
	BitDepth int
	Pix      []uint16
}

func (f *Frame) At(x, y int) uint16 { return f.Pix[y*f.W+x] }

// FrameStats summarises the intensity distribution of a frame. Handy for
// picking -low-threshold / -high-threshold values.
type FrameStats struct {
	Min, Max, Mean, StdDev float64
	P01, P99               float64
}

func (f *Frame) Stats() FrameStats {
	if len(f.Pix) == 0 {
		return FrameStats{}
	}

	vals := make([]float64, len(f.Pix))
	for i, v := range f.Pix {
		vals[i] = float64(v)
	}
	sort.Float64s(vals)

	return FrameStats{
		Min:    vals[0],
		Max:    vals[len(vals)-1],
		Mean:   stat.Mean(vals, nil),
		StdDev: stat.StdDev(vals, nil),
		P01:    stat.Quantile(0.01, stat.Empirical, vals, nil),
		P99:    stat.Quantile(0.99, stat.Empirical, vals, nil),
	}
}

func (s FrameStats) String() string {
	return fmt.Sprintf("min %.0f, max %.0f, mean %.1f, sd %.1f, p01 %.0f, p99 %.0f",
		s.Min, s.Max, s.Mean, s.StdDev, s.P01, s.P99)
}
