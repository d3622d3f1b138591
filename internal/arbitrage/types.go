package arbitrage

// LiquidityKind describes how a venue distributes its liquidity
type LiquidityKind int

const (
	Constant LiquidityKind = iota
)

func (k LiquidityKind) String() string {
	if k == Constant {
		return "constant"
	}
	return "unknown"
}

// Leg is one of the two swaps making up an arbitrage
type Leg int

const (
	SourceToIntermediate Leg = iota
	IntermediateToSource
)

func (l Leg) String() string {
	if l == SourceToIntermediate {
		return "source->intermediate"
	}
	return "intermediate->source"
}

// SwapQuote is the result of quoting one leg against a pool snapshot.
// NewPrice is always source per intermediate.
type SwapQuote struct {
	AmountOut   uint64
	ConsumedIn  uint64
	FullyFilled bool
	NewPrice    float64
}

// ProfitResult is what one candidate amount yields across both legs
type ProfitResult struct {
	Profit             int64
	IntermediateOutput uint64
	ConsumedIn         uint64
	PriceDeltaBps      float64
	AToB               bool
}

// SearchParams bounds a single optimal-amount search
type SearchParams struct {
	MaxIterations   uint32 `yaml:"max_iterations"`
	MinDeltaPercent uint32 `yaml:"min_delta_percent"`
	MinStepSize     uint64 `yaml:"min_step_size"`
	MinAmount       uint64 `yaml:"min_amount"`
}

// DefaultSearchParams mirrors what the on-chain program was tuned with
func DefaultSearchParams() SearchParams {
	return SearchParams{
		MaxIterations:   50,
		MinDeltaPercent: 1,
		MinStepSize:     1000,
		MinAmount:       1000,
	}
}

// ComputedBounds is the caller imposed ceiling on the first leg's input
type ComputedBounds struct {
	MaxAmountIn uint64
}

// ExitReason records why the search loop stopped
type ExitReason string

const (
	ExitMaxIterations ExitReason = "max_iterations"
	ExitConverged     ExitReason = "converged"
	ExitStepTooSmall  ExitReason = "step_too_small"
	ExitOutOfRange    ExitReason = "out_of_range"
)

// OptimalAmountResult is the best candidate a search found
type OptimalAmountResult struct {
	AmountIn           uint64
	IntermediateAmount uint64
	AToB               bool
	Profit             int64
	Iterations         uint32
	ExitReason         ExitReason
}
