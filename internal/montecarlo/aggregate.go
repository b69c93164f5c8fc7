// Package montecarlo runs many stochastic simulation paths in parallel
// and aggregates them into percentile bands, outcome rates and a
// sequence-of-returns-risk score.
package montecarlo

import (
	"fmt"

	"github.com/your-org/wealthpath/internal/engine"
	"github.com/your-org/wealthpath/internal/metrics"
	"github.com/your-org/wealthpath/pkg/quant"
)

// ChunkResult carries the raw samples of one worker chunk. Chunks are
// merged by concatenating samples; percentiles are computed only once
// all chunks are in. Averaging per-chunk percentiles would be wrong and
// is deliberately impossible with this representation.
type ChunkResult struct {
	Months int
	Paths  int

	// Nominal[m] and Real[m] hold one wealth sample per path for month m.
	Nominal [][]float64
	Real    [][]float64

	EndWealth          []float64
	RealEndWealth      []float64
	WealthAtRetirement []float64
	EarlyReturns       []float64
	FillMonths         []int

	Successes int
	Ruins     int
	Preserved int
	Filled    int

	// SamplePaths optionally retains full histories for consumers that
	// want to chart individual paths.
	SamplePaths []engine.History
}

// NewChunkResult prepares an empty result for histories of the given
// month count.
func NewChunkResult(months int) *ChunkResult {
	return &ChunkResult{
		Months:  months,
		Nominal: make([][]float64, months),
		Real:    make([][]float64, months),
	}
}

// Add folds one path into the chunk.
func (c *ChunkResult) Add(hist engine.History, pm metrics.PathMetrics) {
	for m, rec := range hist {
		c.Nominal[m] = append(c.Nominal[m], rec.Wealth())
		c.Real[m] = append(c.Real[m], rec.RealWealth())
	}
	c.EndWealth = append(c.EndWealth, pm.EndWealth)
	c.RealEndWealth = append(c.RealEndWealth, pm.RealEndWealth)
	c.WealthAtRetirement = append(c.WealthAtRetirement, pm.WealthAtRetirement)
	c.EarlyReturns = append(c.EarlyReturns, pm.EarlyReturn)
	c.FillMonths = append(c.FillMonths, pm.EmergencyFillMonth)
	if pm.Success {
		c.Successes++
	}
	if pm.Ruin {
		c.Ruins++
	}
	if pm.CapitalPreserved {
		c.Preserved++
	}
	if pm.EmergencyFillMonth > 0 {
		c.Filled++
	}
	c.Paths++
}

// Merge appends the other chunk's raw samples. The operation is
// associative and commutative, so chunk arrival order never matters.
func (c *ChunkResult) Merge(o *ChunkResult) error {
	if o == nil || o.Paths == 0 {
		return nil
	}
	if c.Months != o.Months {
		return fmt.Errorf("cannot merge chunks of %d and %d months", c.Months, o.Months)
	}
	for m := 0; m < c.Months; m++ {
		c.Nominal[m] = append(c.Nominal[m], o.Nominal[m]...)
		c.Real[m] = append(c.Real[m], o.Real[m]...)
	}
	c.EndWealth = append(c.EndWealth, o.EndWealth...)
	c.RealEndWealth = append(c.RealEndWealth, o.RealEndWealth...)
	c.WealthAtRetirement = append(c.WealthAtRetirement, o.WealthAtRetirement...)
	c.EarlyReturns = append(c.EarlyReturns, o.EarlyReturns...)
	c.FillMonths = append(c.FillMonths, o.FillMonths...)
	c.Successes += o.Successes
	c.Ruins += o.Ruins
	c.Preserved += o.Preserved
	c.Filled += o.Filled
	c.Paths += o.Paths
	c.SamplePaths = append(c.SamplePaths, o.SamplePaths...)
	return nil
}

// BandSeries holds one percentile band per month index.
type BandSeries struct {
	P5  []float64 `json:"p5"`
	P10 []float64 `json:"p10"`
	P25 []float64 `json:"p25"`
	P50 []float64 `json:"p50"`
	P75 []float64 `json:"p75"`
	P90 []float64 `json:"p90"`
	P95 []float64 `json:"p95"`
}

// Percentiles is a scalar percentile summary.
type Percentiles struct {
	P5  float64 `json:"p5"`
	P10 float64 `json:"p10"`
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P90 float64 `json:"p90"`
	P95 float64 `json:"p95"`
}

// SoRRScore quantifies sequence-of-returns risk: how strongly early
// withdrawal-phase returns decide the final outcome.
type SoRRScore struct {
	Correlation      float64 `json:"correlation"`
	WorstEarlyReturn float64 `json:"worst_early_return"`
	BestEarlyReturn  float64 `json:"best_early_return"`
}

// Summary holds the scalar cross-path statistics.
type Summary struct {
	Iterations int `json:"iterations"`

	SuccessRate             float64 `json:"success_rate"`
	RuinProbability         float64 `json:"ruin_probability"`
	CapitalPreservationRate float64 `json:"capital_preservation_rate"`

	EndWealth                Percentiles `json:"end_wealth"`
	MedianRealEndWealth      float64     `json:"median_real_end_wealth"`
	MedianWealthAtRetirement float64     `json:"median_wealth_at_retirement"`

	SoRR SoRRScore `json:"sorr"`

	EmergencyFillProbability float64 `json:"emergency_fill_probability"`
	MeanFillMonth            float64 `json:"mean_fill_month"`
}

// AggregateResult is the final cross-path product, valid only after all
// chunks merged.
type AggregateResult struct {
	Months  int        `json:"months"`
	Nominal BandSeries `json:"nominal"`
	Real    BandSeries `json:"real"`
	Summary Summary    `json:"summary"`

	SamplePaths []engine.History `json:"sample_paths,omitempty"`
}

var bandProbs = []float64{0.05, 0.10, 0.25, 0.50, 0.75, 0.90, 0.95}

// Finalize computes percentile bands and summary statistics over the
// accumulated raw samples.
func Finalize(c *ChunkResult) *AggregateResult {
	res := &AggregateResult{
		Months:      c.Months,
		Nominal:     newBandSeries(c.Months),
		Real:        newBandSeries(c.Months),
		SamplePaths: c.SamplePaths,
	}
	if c.Paths == 0 {
		return res
	}

	for m := 0; m < c.Months; m++ {
		fillBands(&res.Nominal, m, c.Nominal[m])
		fillBands(&res.Real, m, c.Real[m])
	}

	n := float64(c.Paths)
	s := &res.Summary
	s.Iterations = c.Paths
	s.SuccessRate = float64(c.Successes) / n
	s.RuinProbability = float64(c.Ruins) / n
	s.CapitalPreservationRate = float64(c.Preserved) / n

	end := append([]float64(nil), c.EndWealth...)
	s.EndWealth = scalarPercentiles(end)
	realEnd := append([]float64(nil), c.RealEndWealth...)
	s.MedianRealEndWealth = quant.Quantile(realEnd, 0.5)
	atRet := append([]float64(nil), c.WealthAtRetirement...)
	s.MedianWealthAtRetirement = quant.Quantile(atRet, 0.5)

	s.SoRR = sorrScore(c.EarlyReturns, c.EndWealth)

	s.EmergencyFillProbability = float64(c.Filled) / n
	if c.Filled > 0 {
		total := 0
		for _, m := range c.FillMonths {
			total += m
		}
		s.MeanFillMonth = float64(total) / float64(c.Filled)
	}

	return res
}

func newBandSeries(months int) BandSeries {
	return BandSeries{
		P5:  make([]float64, months),
		P10: make([]float64, months),
		P25: make([]float64, months),
		P50: make([]float64, months),
		P75: make([]float64, months),
		P90: make([]float64, months),
		P95: make([]float64, months),
	}
}

func fillBands(b *BandSeries, m int, samples []float64) {
	sorted := append([]float64(nil), samples...)
	p := scalarPercentiles(sorted)
	b.P5[m] = p.P5
	b.P10[m] = p.P10
	b.P25[m] = p.P25
	b.P50[m] = p.P50
	b.P75[m] = p.P75
	b.P90[m] = p.P90
	b.P95[m] = p.P95
}

// scalarPercentiles sorts data in place and reads the seven band
// quantiles from it.
func scalarPercentiles(data []float64) Percentiles {
	if len(data) == 0 {
		return Percentiles{}
	}
	quant.Quantile(data, 0.5) // sorts
	return Percentiles{
		P5:  quant.QuantileSorted(data, bandProbs[0]),
		P10: quant.QuantileSorted(data, bandProbs[1]),
		P25: quant.QuantileSorted(data, bandProbs[2]),
		P50: quant.QuantileSorted(data, bandProbs[3]),
		P75: quant.QuantileSorted(data, bandProbs[4]),
		P90: quant.QuantileSorted(data, bandProbs[5]),
		P95: quant.QuantileSorted(data, bandProbs[6]),
	}
}

func sorrScore(earlyReturns, endWealth []float64) SoRRScore {
	score := SoRRScore{}
	if len(earlyReturns) == 0 {
		return score
	}
	score.Correlation = quant.Correlation(earlyReturns, endWealth)
	score.WorstEarlyReturn = earlyReturns[0]
	score.BestEarlyReturn = earlyReturns[0]
	for _, r := range earlyReturns[1:] {
		if r < score.WorstEarlyReturn {
			score.WorstEarlyReturn = r
		}
		if r > score.BestEarlyReturn {
			score.BestEarlyReturn = r
		}
	}
	return score
}
