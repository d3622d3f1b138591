package arbitrage

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/pulkyeet/amm-arb/internal/metrics"
)

// EngineConfig holds the knobs an orchestrator tunes per deployment
type EngineConfig struct {
	Search SearchParams `yaml:"search"`
	// share of the source balance the first leg may spend
	MaxInputBps uint64 `yaml:"max_input_bps"`
	// tolerance applied to the first leg's expected output
	SlippageBps uint64 `yaml:"slippage_bps"`
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Search:      DefaultSearchParams(),
		MaxInputBps: 9900,
		SlippageBps: 50,
	}
}

func (c EngineConfig) Validate() error {
	if c.MaxInputBps == 0 || c.MaxInputBps > 10000 {
		return fmt.Errorf("max_input_bps must be in (0, 10000], got %d", c.MaxInputBps)
	}
	if c.SlippageBps >= 10000 {
		return fmt.Errorf("slippage_bps must be below 10000, got %d", c.SlippageBps)
	}
	if c.Search.MaxIterations == 0 {
		return fmt.Errorf("search.max_iterations must be positive")
	}
	return nil
}

// Opportunity is a successful search tied to the pools it was found between
type Opportunity struct {
	PoolIn           Pool
	PoolOut          Pool
	Result           OptimalAmountResult
	PriceDeltaBps    float64
	MinProfitableBps float64
}

// Engine evaluates and executes two-pool arbitrage attempts.
// it keeps no per-attempt state so one engine can serve concurrent attempts
type Engine struct {
	cfg EngineConfig
	log *zap.Logger
}

func NewEngine(cfg EngineConfig, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{cfg: cfg, log: log}
}

func (e *Engine) Config() EngineConfig {
	return e.cfg
}

// Bounds caps the first leg at MaxInputBps of the available source balance
func (e *Engine) Bounds(sourceBalance uint64) ComputedBounds {
	capped := new(uint256.Int).Mul(uint256.NewInt(sourceBalance), uint256.NewInt(e.cfg.MaxInputBps))
	capped.Div(capped, uint256.NewInt(10000))
	return ComputedBounds{MaxAmountIn: capped.Uint64()}
}

// Evaluate searches for the best input between a and b without touching either venue
func (e *Engine) Evaluate(a, b Pool, sourceBalance uint64) (*Opportunity, error) {
	priceA, priceB := a.Price(), b.Price()
	deltaBps, aToB := PriceDelta(priceA, priceB)
	minBps := MinProfitableDeltaBps(a.FeeRate(), b.FeeRate())

	log := e.log.With(
		zap.Stringer("pool_a", a.Address()),
		zap.Stringer("pool_b", b.Address()),
		zap.Stringer("kind_a", a.Kind()),
		zap.Stringer("kind_b", b.Kind()),
	)
	log.Debug("evaluating",
		zap.Float64("price_a", priceA),
		zap.Float64("price_b", priceB),
		zap.Float64("delta_bps", deltaBps),
		zap.Float64("breakeven_bps", minBps),
		zap.Bool("a_to_b", aToB),
	)

	trace := func(it IterationTrace) {
		log.Debug("search iteration",
			zap.Uint32("i", it.Iteration),
			zap.Uint64("amount", it.Amount),
			zap.Int64("profit", it.Profit),
			zap.Int64("best", it.BestProfit),
			zap.Uint64("step", it.Step),
			zap.Int64("delta_pct", it.DeltaPercent),
			zap.Float64("price_delta_bps", it.PriceDeltaBps),
		)
	}

	res, err := FindOptimalAmount(a, b, e.cfg.Search, e.Bounds(sourceBalance), trace)
	metrics.SearchIterations.Observe(float64(res.Iterations))
	switch {
	case errors.Is(err, ErrNoArbitrageOpportunity):
		metrics.Searches.WithLabelValues("no_opportunity").Inc()
		log.Debug("no opportunity", zap.Int64("best_profit", res.Profit), zap.String("exit", string(res.ExitReason)))
		return nil, err
	case err != nil:
		metrics.Searches.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("find optimal amount: %w", err)
	}

	metrics.Searches.WithLabelValues("success").Inc()
	metrics.BestProfit.Set(float64(res.Profit))
	log.Info("opportunity",
		zap.Uint64("amount_in", res.AmountIn),
		zap.Uint64("intermediate", res.IntermediateAmount),
		zap.Int64("profit", res.Profit),
		zap.Uint32("iterations", res.Iterations),
		zap.String("exit", string(res.ExitReason)),
	)

	poolIn, poolOut := b, a
	if res.AToB {
		poolIn, poolOut = a, b
	}
	return &Opportunity{
		PoolIn:           poolIn,
		PoolOut:          poolOut,
		Result:           res,
		PriceDeltaBps:    deltaBps,
		MinProfitableBps: minBps,
	}, nil
}
