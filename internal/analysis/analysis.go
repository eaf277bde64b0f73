// Package analysis derives conductance series and summary statistics from
// stored signals.
package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/eim/internal/db"
	"github.com/banshee-data/eim/internal/units"
)

// Point is one sample of a series: T seconds after the signal started.
type Point struct {
	T float64 `json:"t"`
	V float64 `json:"v"`
}

// Summary holds descriptive statistics for a series.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Conductance converts the signal's raw readings to siemens rescaled to p.
func Conductance(sig *db.Signal, p units.Prefix) []float64 {
	return units.Conversion(units.BioEmoReadingsToSiemens).Then(p.Conversion()).Slice(sig.Readings)
}

// Summarise computes descriptive statistics for values. An empty input yields
// a zero Summary; StdDev is the sample standard deviation and is zero for a
// single value. The median of an even count averages the two middle values.
// NaN inputs propagate.
func Summarise(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	mean, std := stat.MeanStdDev(values, nil)
	if len(values) < 2 {
		std = 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	return Summary{
		Count:  len(values),
		Mean:   mean,
		StdDev: std,
		Median: median,
		Min:    floats.Min(values),
		Max:    floats.Max(values),
	}
}

// Series pairs each converted value with its offset from the start of the
// recording. A zero sample rate falls back to the sample index.
func Series(sig *db.Signal, p units.Prefix) []Point {
	values := Conductance(sig, p)
	step := 1.0
	if sig.SampleRateHz > 0 {
		step = 1 / sig.SampleRateHz
	}

	pts := make([]Point, len(values))
	for i, v := range values {
		pts[i] = Point{T: float64(i) * step, V: v}
	}
	return pts
}

// Finite drops points whose value is NaN or infinite, which JSON and the
// chart renderers cannot represent.
func Finite(pts []Point) []Point {
	out := make([]Point, 0, len(pts))
	for _, p := range pts {
		if math.IsNaN(p.V) || math.IsInf(p.V, 0) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Values returns the V component of pts.
func Values(pts []Point) []float64 {
	vs := make([]float64, len(pts))
	for i, p := range pts {
		vs[i] = p.V
	}
	return vs
}
