package backtest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/pulkyeet/amm-arb/internal/arbitrage"
	"github.com/pulkyeet/amm-arb/internal/storage"
)

// Pair is the token pair a backtest trades and the balance it may spend
type Pair struct {
	Source        common.Address
	Intermediate  common.Address
	SourceBalance uint64
}

type Runner struct {
	engine *arbitrage.Engine
	store  *storage.Store
	pair   Pair
	log    *zap.Logger
}

// NewRunner replays snapshots through engine. store may be nil to skip recording
func NewRunner(engine *arbitrage.Engine, store *storage.Store, pair Pair, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{engine: engine, store: store, pair: pair, log: log}
}

// RunBacktest groups rows by block and evaluates every pool pair of each block in order
func (r *Runner) RunBacktest(ctx context.Context, rows []PoolRow) (*BacktestReport, error) {
	byBlock := make(map[uint64][]PoolRow)
	for _, row := range rows {
		if row.BlockNumber < 0 {
			return nil, fmt.Errorf("row %s has negative block %d", row.Address, row.BlockNumber)
		}
		block := uint64(row.BlockNumber)
		byBlock[block] = append(byBlock[block], row)
	}
	blocks := make([]uint64, 0, len(byBlock))
	for b := range byBlock {
		blocks = append(blocks, b)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i] < blocks[j] })

	report := &BacktestReport{Results: make([]*BlockResult, 0, len(blocks))}
	if len(blocks) > 0 {
		report.StartBlock, report.EndBlock = blocks[0], blocks[len(blocks)-1]
	}

	r.log.Info("starting backtest",
		zap.Int("rows", len(rows)),
		zap.Int("blocks", len(blocks)),
		zap.Stringer("source", r.pair.Source),
		zap.Stringer("intermediate", r.pair.Intermediate),
	)
	startTime := time.Now()

	for i, block := range blocks {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		result := r.ProcessBlock(block, byBlock[block])
		if r.store != nil && len(result.Attempts) > 0 {
			if err := r.store.RecordAttempts(result.Attempts); err != nil {
				return report, fmt.Errorf("record block %d: %w", block, err)
			}
		}
		report.Results = append(report.Results, result)

		if (i+1)%100 == 0 {
			r.log.Info("progress",
				zap.Int("done", i+1),
				zap.Int("total", len(blocks)),
				zap.Duration("elapsed", time.Since(startTime).Round(time.Second)),
			)
		}
	}

	report.CalculateMetrics()
	return report, nil
}

// ProcessBlock builds the block's pools for the configured pair and evaluates each unordered pair once
func (r *Runner) ProcessBlock(block uint64, rows []PoolRow) *BlockResult {
	result := &BlockResult{BlockNumber: block}
	log := r.log.With(zap.Uint64("block", block))

	sorted := append([]PoolRow(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(common.HexToAddress(sorted[i].Address).Bytes(), common.HexToAddress(sorted[j].Address).Bytes()) < 0
	})

	var pools []arbitrage.Pool
	for _, row := range sorted {
		if !r.trades(row) {
			continue
		}
		p, err := BuildPool(row, r.pair.Source, r.pair.Intermediate, nil)
		if err != nil {
			result.Invalid++
			log.Warn("skipping pool", zap.String("pool", row.Address), zap.Error(err))
			continue
		}
		pools = append(pools, p)
	}

	now := time.Now()
	for i := 0; i < len(pools); i++ {
		for j := i + 1; j < len(pools); j++ {
			result.Attempts = append(result.Attempts, r.evaluate(block, pools[i], pools[j], now))
		}
	}
	return result
}

func (r *Runner) trades(row PoolRow) bool {
	base, quote := row.Tokens()
	return (base == r.pair.Source && quote == r.pair.Intermediate) ||
		(base == r.pair.Intermediate && quote == r.pair.Source)
}

func (r *Runner) evaluate(block uint64, a, b arbitrage.Pool, at time.Time) storage.AttemptRecord {
	rec := storage.AttemptRecord{
		BlockNumber: block,
		PoolA:       a.Address(),
		PoolB:       b.Address(),
		RecordedAt:  at,
	}

	opp, err := r.engine.Evaluate(a, b, r.pair.SourceBalance)
	switch {
	case errors.Is(err, arbitrage.ErrNoArbitrageOpportunity):
		rec.Outcome = storage.OutcomeNoOpportunity
	case err != nil:
		rec.Outcome = storage.OutcomeError
		rec.Error = err.Error()
	default:
		rec.Outcome = storage.OutcomeOpportunity
		rec.AToB = opp.Result.AToB
		rec.AmountIn = opp.Result.AmountIn
		rec.Intermediate = opp.Result.IntermediateAmount
		rec.Profit = opp.Result.Profit
		rec.Iterations = opp.Result.Iterations
		rec.ExitReason = string(opp.Result.ExitReason)
	}
	return rec
}
