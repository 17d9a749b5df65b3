package view

import (
	"math"

	"github.com/montanaflynn/stats"
)

// FeatureProfile summarizes one feature column of a view. Sentinel (NaN)
// rows from isolated cells are counted as missing and excluded from the
// summary statistics.
type FeatureProfile struct {
	Feature     string  `json:"feature"`
	Mean        float64 `json:"mean"`
	StdDev      float64 `json:"std_dev"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Median      float64 `json:"median"`
	MissingRate float64 `json:"missing_rate"`
	SampleSize  int     `json:"sample_size"`
}

// Profile computes per-feature summary statistics for the view.
func (v View) Profile() []FeatureProfile {
	m := v.Data
	profiles := make([]FeatureProfile, 0, m.Cols())
	for j, feature := range m.Features() {
		valid := make([]float64, 0, m.Rows())
		for i := 0; i < m.Rows(); i++ {
			val := m.At(i, j)
			if !math.IsNaN(val) && !math.IsInf(val, 0) {
				valid = append(valid, val)
			}
		}
		p := FeatureProfile{
			Feature:     feature,
			SampleSize:  len(valid),
			MissingRate: 1 - float64(len(valid))/float64(m.Rows()),
		}
		if len(valid) > 0 {
			p.Mean, _ = stats.Mean(valid)
			p.StdDev, _ = stats.StandardDeviationSample(valid)
			p.Min, _ = stats.Min(valid)
			p.Max, _ = stats.Max(valid)
			p.Median, _ = stats.Median(valid)
		}
		profiles = append(profiles, p)
	}
	return profiles
}
