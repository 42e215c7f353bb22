package stats

import "math"

// Report is the serializable view of a Result. Undefined statistics (NaN)
// become nil, since JSON has no NaN.
type Report struct {
	N            int      `json:"n" yaml:"n"`
	Trials       int      `json:"trials" yaml:"trials"`
	Workers      int      `json:"workers" yaml:"workers"`
	Seed         uint64   `json:"seed" yaml:"seed"`
	Mean         *float64 `json:"mean" yaml:"mean"`
	Stddev       *float64 `json:"stddev" yaml:"stddev"`
	ConfidenceLo *float64 `json:"confidence_lo" yaml:"confidence_lo"`
	ConfidenceHi *float64 `json:"confidence_hi" yaml:"confidence_hi"`
	ElapsedMs    int64    `json:"elapsed_ms" yaml:"elapsed_ms"`
}

func finite(x float64) *float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return &x
}

func (r Result) Report() Report {
	return Report{
		N:            r.N,
		Trials:       r.Trials,
		Workers:      r.Workers,
		Seed:         r.Seed,
		Mean:         finite(r.Mean),
		Stddev:       finite(r.Stddev),
		ConfidenceLo: finite(r.ConfidenceLo),
		ConfidenceHi: finite(r.ConfidenceHi),
		ElapsedMs:    r.Elapsed.Milliseconds(),
	}
}
