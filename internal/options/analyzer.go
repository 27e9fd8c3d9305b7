// Package options aggregates an options-chain snapshot into sentiment and
// exposure metrics.
package options

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"marketfeatures/internal/logger"
	"marketfeatures/internal/metrics"
	"marketfeatures/internal/model"
)

// ATMContracts is the size of the at-the-money subset used for atm_iv.
const ATMContracts = 4

// Analyze computes the AnalysisResult of snap around lastClose. It never
// fails: a snapshot with no contracts yields NoData, and a metric whose
// denominator is zero or whose contract subset is empty stays undefined.
// When snap lists no expirations they are taken from its contracts. snap is
// not modified.
func Analyze(snap model.OptionsSnapshot, lastClose float64) model.AnalysisResult {
	res := model.AnalysisResult{
		Underlying:  snap.Underlying,
		LastClose:   lastClose,
		Expirations: snap.Expirations,
	}
	if snap.Empty() {
		res.NoData = true
		return res
	}
	if len(res.Expirations) == 0 {
		res.Expirations = NearestExpirations(snap.Contracts, -1)
	}

	contracts := append([]model.OptionContract(nil), snap.Contracts...)
	sortByExpiration(contracts)
	res.Contracts = len(contracts)

	var (
		deltaSum, gammaSum        float64
		otmPutIV, otmCallIV       float64
		otmPutCount, otmCallCount int
	)
	for i := range contracts {
		c := &contracts[i]
		switch c.Type {
		case model.Put:
			res.PutVolume += c.Volume
			res.PutOI += c.OpenInterest
		case model.Call:
			res.CallVolume += c.Volume
			res.CallOI += c.OpenInterest
		}

		notional := c.Notional()
		res.TotalNotional += notional
		if d, ok := c.Delta.Get(); ok {
			deltaSum += d * notional
		}
		if g, ok := c.Gamma.Get(); ok {
			gammaSum += g * notional
		}

		if c.InTheMoney {
			continue
		}
		iv, ok := c.ImpliedVolatility.Get()
		if !ok {
			continue
		}
		switch c.Type {
		case model.Put:
			otmPutIV += iv
			otmPutCount++
		case model.Call:
			otmCallIV += iv
			otmCallCount++
		}
	}

	res.PutCallVolumeRatio = model.Ratio(res.PutVolume, res.CallVolume)
	res.PutCallOIRatio = model.Ratio(res.PutOI, res.CallOI)
	res.ATMIV = meanIV(nearestStrikes(contracts, lastClose, ATMContracts))
	if otmPutCount > 0 && otmCallCount > 0 {
		res.VolatilitySkew = model.Some(otmPutIV/float64(otmPutCount) - otmCallIV/float64(otmCallCount))
	}
	res.NetDelta = model.Ratio(deltaSum, res.TotalNotional)
	res.NetGamma = model.Ratio(gammaSum, res.TotalNotional)
	return res
}

// nearestStrikes returns the n contracts with the smallest |strike-price|.
// Equal distances keep the order of cs.
func nearestStrikes(cs []model.OptionContract, price float64, n int) []model.OptionContract {
	ranked := append([]model.OptionContract(nil), cs...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return math.Abs(ranked[i].Strike-price) < math.Abs(ranked[j].Strike-price)
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// meanIV averages the quoted implied volatilities of cs, skipping contracts
// without one. Undefined when none is quoted.
func meanIV(cs []model.OptionContract) model.Value {
	var sum float64
	var count int
	for i := range cs {
		if iv, ok := cs[i].ImpliedVolatility.Get(); ok {
			sum += iv
			count++
		}
	}
	return model.Ratio(sum, float64(count))
}

// AnalyzerConfig wires the optional collaborators of an Analyzer.
type AnalyzerConfig struct {
	Logger  *slog.Logger     // nil = slog.Default()
	Metrics *metrics.Metrics // nil = not recorded
	Now     func() time.Time // nil = time.Now
}

// Analyzer wraps Analyze with logging, metrics and the AsOf timestamp.
type Analyzer struct {
	log  *slog.Logger
	prom *metrics.Metrics
	now  func() time.Time
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(cfg AnalyzerConfig) *Analyzer {
	a := &Analyzer{log: cfg.Logger, prom: cfg.Metrics, now: cfg.Now}
	if a.log == nil {
		a.log = slog.Default()
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

// Analyze runs the chain analysis and reports the outcome.
func (a *Analyzer) Analyze(ctx context.Context, snap model.OptionsSnapshot, lastClose float64) model.AnalysisResult {
	res := Analyze(snap, lastClose)
	res.AsOf = a.now().UTC()

	attrs := append(logger.LogWithRun(ctx), slog.String("underlying", snap.Underlying))
	if a.prom != nil {
		a.prom.OptionsAnalyses.Inc()
	}
	if res.NoData {
		if a.prom != nil {
			a.prom.OptionsNoData.Inc()
		}
		a.log.Warn("options snapshot has no data", attrs...)
		return res
	}

	a.log.Info("options chain analyzed", append(attrs,
		slog.Int("contracts", res.Contracts),
		slog.Float64("last_close", lastClose),
		slog.String("put_call_volume_ratio", res.PutCallVolumeRatio.String()),
		slog.String("atm_iv", res.ATMIV.String()),
		slog.String("net_delta", res.NetDelta.String()),
	)...)
	return res
}
