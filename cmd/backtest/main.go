package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/pulkyeet/amm-arb/internal/arbitrage"
	"github.com/pulkyeet/amm-arb/internal/backtest"
	"github.com/pulkyeet/amm-arb/internal/config"
	"github.com/pulkyeet/amm-arb/internal/eth"
	"github.com/pulkyeet/amm-arb/internal/metrics"
	"github.com/pulkyeet/amm-arb/internal/storage"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config")
		file       = flag.String("file", "", "Parquet file of pool snapshots")
		sourceFlag = flag.String("source", "USDC", "Source token symbol or address")
		interFlag  = flag.String("intermediate", "WETH", "Intermediate token symbol or address")
		balance    = flag.String("balance", "", "Source balance in base units available at every block")
		noRecord   = flag.Bool("no-record", false, "Do not write attempts to the database")
		debug      = flag.Bool("debug", false, "Debug logging")
	)
	flag.Parse()

	if *file == "" || *balance == "" {
		log.Fatal("Usage: -file <parquet_file> -balance <units>")
	}
	sourceBalance, err := strconv.ParseUint(*balance, 10, 64)
	if err != nil {
		log.Fatalf("balance: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var logger *zap.Logger
	if *debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	source, ok := eth.LookupToken(*sourceFlag)
	if !ok && common.IsHexAddress(*sourceFlag) {
		source, ok = eth.TokenInfo{Address: common.HexToAddress(*sourceFlag)}, true
	}
	intermediate, ok2 := eth.LookupToken(*interFlag)
	if !ok2 && common.IsHexAddress(*interFlag) {
		intermediate, ok2 = eth.TokenInfo{Address: common.HexToAddress(*interFlag)}, true
	}
	if !ok || !ok2 {
		log.Fatalf("unknown token in %s/%s", *sourceFlag, *interFlag)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	metrics.Serve(ctx, cfg.MetricsAddr, nil, logger)

	rows, err := backtest.ReadRows(*file)
	if err != nil {
		log.Fatalf("read %s: %v", *file, err)
	}
	fmt.Printf("loaded %d snapshots from %s\n", len(rows), *file)

	var store *storage.Store
	if !*noRecord {
		store, err = storage.Open(cfg.DBPath)
		if err != nil {
			log.Fatalf("open attempts db: %v", err)
		}
		defer store.Close()
	}

	runner := backtest.NewRunner(arbitrage.NewEngine(cfg.Engine, logger), store, backtest.Pair{
		Source:        source.Address,
		Intermediate:  intermediate.Address,
		SourceBalance: sourceBalance,
	}, logger)

	report, err := runner.RunBacktest(ctx, rows)
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}
	report.Print(os.Stdout, source.Decimals)

	if store != nil {
		stats, err := store.GetStats()
		if err != nil {
			log.Printf("failed to get stats: %v", err)
			return
		}
		fmt.Printf("\ndatabase totals:\n")
		fmt.Printf("  attempts:      %d\n", stats.Attempts)
		fmt.Printf("  opportunities: %d (%.2f%%)\n", stats.Opportunities, stats.HitRate()*100)
		fmt.Printf("  total profit:  %s\n", eth.FormatSigned(stats.TotalProfit, source.Decimals))
	}
}
