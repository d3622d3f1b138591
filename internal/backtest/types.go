package backtest

import (
	"fmt"
	"io"

	"github.com/pulkyeet/amm-arb/internal/eth"
	"github.com/pulkyeet/amm-arb/internal/storage"
)

const (
	KindTiered = "tiered"
	KindPnl    = "pnl"
)

// PoolRow is one venue snapshot at one block as stored in parquet.
// 64-bit amounts are kept as decimal strings, fee tiers as json
type PoolRow struct {
	BlockNumber      int64  `parquet:"name=block_number, type=INT64"`
	Kind             string `parquet:"name=kind, type=BYTE_ARRAY, convertedtype=UTF8"`
	Address          string `parquet:"name=address, type=BYTE_ARRAY, convertedtype=UTF8"`
	BaseToken        string `parquet:"name=base_token, type=BYTE_ARRAY, convertedtype=UTF8"`
	QuoteToken       string `parquet:"name=quote_token, type=BYTE_ARRAY, convertedtype=UTF8"`
	BaseReserve      string `parquet:"name=base_reserve, type=BYTE_ARRAY, convertedtype=UTF8"`
	QuoteReserve     string `parquet:"name=quote_reserve, type=BYTE_ARRAY, convertedtype=UTF8"`
	BaseSupply       string `parquet:"name=base_supply, type=BYTE_ARRAY, convertedtype=UTF8"`
	NeedTakePnlBase  string `parquet:"name=need_take_pnl_base, type=BYTE_ARRAY, convertedtype=UTF8"`
	NeedTakePnlQuote string `parquet:"name=need_take_pnl_quote, type=BYTE_ARRAY, convertedtype=UTF8"`
	SwapFeeBps       int64  `parquet:"name=swap_fee_bps, type=INT64"`
	FeeTiers         string `parquet:"name=fee_tiers, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// BlockResult holds every pair evaluated at one block
type BlockResult struct {
	BlockNumber uint64
	Attempts    []storage.AttemptRecord
	// rows that matched the pair but could not be turned into pools
	Invalid int
}

type BacktestReport struct {
	StartBlock uint64
	EndBlock   uint64
	Results    []*BlockResult

	BlocksAnalyzed int
	Attempts       int
	Opportunities  int
	Errors         int
	InvalidRows    int
	TotalProfit    int64
	HitRate        float64
	BestProfit     int64
	BestBlock      uint64
}

func (r *BacktestReport) CalculateMetrics() {
	r.BlocksAnalyzed = len(r.Results)
	r.Attempts, r.Opportunities, r.Errors, r.InvalidRows = 0, 0, 0, 0
	r.TotalProfit, r.BestProfit, r.BestBlock = 0, 0, 0

	for _, res := range r.Results {
		r.InvalidRows += res.Invalid
		for _, a := range res.Attempts {
			r.Attempts++
			switch a.Outcome {
			case storage.OutcomeOpportunity:
				r.Opportunities++
				r.TotalProfit += a.Profit
				if a.Profit > r.BestProfit {
					r.BestProfit, r.BestBlock = a.Profit, a.BlockNumber
				}
			case storage.OutcomeError:
				r.Errors++
			}
		}
	}

	if r.Attempts > 0 {
		r.HitRate = float64(r.Opportunities) / float64(r.Attempts)
	}
}

// Print writes a summary, profits rendered with the source token's decimals
func (r *BacktestReport) Print(w io.Writer, decimals int32) {
	fmt.Fprintf(w, "\nbacktest blocks %d-%d\n", r.StartBlock, r.EndBlock)
	fmt.Fprintf(w, "  blocks analyzed: %d\n", r.BlocksAnalyzed)
	fmt.Fprintf(w, "  pairs evaluated: %d\n", r.Attempts)
	fmt.Fprintf(w, "  opportunities:   %d (hit rate %.2f%%)\n", r.Opportunities, r.HitRate*100)
	fmt.Fprintf(w, "  errors:          %d\n", r.Errors)
	fmt.Fprintf(w, "  invalid rows:    %d\n", r.InvalidRows)
	fmt.Fprintf(w, "  total profit:    %s\n", eth.FormatSigned(r.TotalProfit, decimals))
	if r.Opportunities > 0 {
		fmt.Fprintf(w, "  best:            %s at block %d\n", eth.FormatSigned(r.BestProfit, decimals), r.BestBlock)
	}
}
