// Package stats estimates the percolation threshold by Monte Carlo
// simulation: it runs independent trials on fresh grids and summarizes the
// fraction of open sites at which each grid first percolated.
package stats

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vancomm/percolation/internal/percolation"
)

var Log = logrus.New()

// z-score of the 95% confidence interval
const confidence95 = 1.96

var ErrInvalidTrials = errors.New("stats: number of trials must be positive")

// Sampler is the source of uniform site coordinates. *rand.Rand satisfies it.
type Sampler interface {
	IntN(n int) int
}

type Params struct {
	N       int    `json:"n" yaml:"n"`
	Trials  int    `json:"trials" yaml:"trials"`
	Workers int    `json:"workers" yaml:"workers"`
	Seed    uint64 `json:"seed" yaml:"seed"`
}

func (p Params) Validate() error {
	if p.N <= 0 || p.N > percolation.MaxDimension {
		return fmt.Errorf(
			"%w: got %d, want [1, %d]",
			percolation.ErrInvalidArgument, p.N, percolation.MaxDimension,
		)
	}
	if p.Trials <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidTrials, p.Trials)
	}
	return nil
}

func (p Params) workers() int {
	w := p.Workers
	if w <= 0 {
		w = runtime.GOMAXPROCS(0)
	}
	return min(w, p.Trials)
}

type Result struct {
	Params
	Thresholds   []float64     `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
	Mean         float64       `json:"mean" yaml:"mean"`
	Stddev       float64       `json:"stddev" yaml:"stddev"`
	ConfidenceLo float64       `json:"confidence_lo" yaml:"confidence_lo"`
	ConfidenceHi float64       `json:"confidence_hi" yaml:"confidence_hi"`
	Elapsed      time.Duration `json:"elapsed" yaml:"elapsed"`
}

// RunTrial opens uniformly random sites of a fresh n-by-n grid until it
// percolates and returns the fraction of sites that ended up open.
// Already-open sites may be drawn again; they do not count twice.
func RunTrial(n int, s Sampler) (float64, error) {
	g, err := percolation.New(n)
	if err != nil {
		return 0, err
	}
	for !g.Percolates() {
		if err := g.Open(s.IntN(n)+1, s.IntN(n)+1); err != nil {
			return 0, err
		}
	}
	return g.Fraction(), nil
}

func trialRand(seed uint64, trial int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(trial)))
}

// Run performs p.Trials independent trials spread over p.Workers
// goroutines. Every trial draws from its own generator derived from
// (p.Seed, trial), so the result for a seed does not depend on the number
// of workers.
func Run(ctx context.Context, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	workers := p.workers()
	log := Log.WithFields(logrus.Fields{
		"n":       p.N,
		"trials":  p.Trials,
		"workers": workers,
		"seed":    p.Seed,
	})
	log.Debug("starting experiment")

	start := time.Now()
	thresholds := make([]float64, p.Trials)

	g, gCtx := errgroup.WithContext(ctx)
	for w := range workers {
		g.Go(func() error {
			for trial := w; trial < p.Trials; trial += workers {
				if err := gCtx.Err(); err != nil {
					return err
				}
				threshold, err := RunTrial(p.N, trialRand(p.Seed, trial))
				if err != nil {
					return fmt.Errorf("trial %d: %w", trial, err)
				}
				thresholds[trial] = threshold
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := Summarize(thresholds)
	result.Params = p
	result.Workers = workers
	result.Elapsed = time.Since(start)

	log.WithFields(logrus.Fields{
		"mean":    result.Mean,
		"stddev":  result.Stddev,
		"elapsed": result.Elapsed.String(),
	}).Debug("experiment finished")

	return result, nil
}

// Summarize computes the sample statistics of thresholds. Stddev and the
// confidence bounds are NaN when fewer than two samples are given.
func Summarize(thresholds []float64) *Result {
	r := &Result{
		Thresholds: thresholds,
		Mean:       Mean(thresholds),
		Stddev:     Stddev(thresholds),
	}
	r.Trials = len(thresholds)
	margin := confidence95 * r.Stddev / math.Sqrt(float64(len(thresholds)))
	r.ConfidenceLo = r.Mean - margin
	r.ConfidenceHi = r.Mean + margin
	return r
}

func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Stddev is the sample standard deviation (n-1 denominator).
func Stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return math.NaN()
	}
	mean := Mean(xs)
	sum := 0.0
	for _, x := range xs {
		sum += (x - mean) * (x - mean)
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}
