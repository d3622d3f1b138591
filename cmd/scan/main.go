package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/pulkyeet/amm-arb/internal/arbitrage"
	"github.com/pulkyeet/amm-arb/internal/backtest"
	"github.com/pulkyeet/amm-arb/internal/config"
	"github.com/pulkyeet/amm-arb/internal/eth"
	"github.com/pulkyeet/amm-arb/internal/execution"
	"github.com/pulkyeet/amm-arb/internal/snapshot"
	"github.com/pulkyeet/amm-arb/internal/storage"
)

func main() {
	var (
		configPath   = flag.String("config", "", "Path to YAML config")
		blockNum     = flag.Uint64("block", 0, "Block to scan, 0 for latest")
		poolAFlag    = flag.String("pool-a", "", "First pool as kind:address (kind is tiered or pnl)")
		poolBFlag    = flag.String("pool-b", "", "Second pool as kind:address")
		sourceFlag   = flag.String("source", "USDC", "Source token symbol or address")
		interFlag    = flag.String("intermediate", "WETH", "Intermediate token symbol or address")
		balanceFlag  = flag.String("balance", "", "Source balance in base units, empty reads the executor account")
		decimalsFlag = flag.Int("decimals", -1, "Source token decimals for display, -1 to look up")
		execute      = flag.Bool("execute", false, "Build the two-leg bundle")
		send         = flag.Bool("send", false, "Broadcast the bundle, implies -execute")
		recordPath   = flag.String("record", "", "Write both pool snapshots to this parquet file")
		debug        = flag.Bool("debug", false, "Debug logging")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := newLogger(*debug)
	defer logger.Sync()

	if *poolAFlag == "" || *poolBFlag == "" {
		log.Fatal("Usage: -pool-a kind:address -pool-b kind:address")
	}
	refA, err := backtest.ParsePoolRef(*poolAFlag)
	if err != nil {
		log.Fatalf("pool-a: %v", err)
	}
	refB, err := backtest.ParsePoolRef(*poolBFlag)
	if err != nil {
		log.Fatalf("pool-b: %v", err)
	}
	sourceTok, ok := eth.LookupToken(*sourceFlag)
	if !ok {
		sourceTok = resolveUnknown(*sourceFlag)
	}
	interTok, ok := eth.LookupToken(*interFlag)
	if !ok {
		interTok = resolveUnknown(*interFlag)
	}
	decimals := sourceTok.Decimals
	if *decimalsFlag >= 0 {
		decimals = int32(*decimalsFlag)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	client, err := eth.NewClient(cfg.RPCURL)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	block := *blockNum
	if block == 0 {
		if block, err = client.BlockNumber(ctx); err != nil {
			log.Fatalf("latest block: %v", err)
		}
	}

	reader, err := snapshot.NewReader(client, cfg.Cache.Snapshots, logger)
	if err != nil {
		log.Fatalf("snapshot reader: %v", err)
	}
	rows, err := backtest.RecordBlock(ctx, reader, []backtest.PoolRef{refA, refB}, block)
	if err != nil {
		log.Fatalf("failed to load pools: %v", err)
	}
	if *recordPath != "" {
		if err := backtest.WriteRows(*recordPath, rows); err != nil {
			log.Fatalf("record: %v", err)
		}
		logger.Info("recorded snapshots", zap.String("file", *recordPath), zap.Uint64("block", block))
	}

	var bundle *execution.Bundle
	if *execute || *send {
		bundle, err = newBundle(ctx, cfg, client)
		if err != nil {
			log.Fatalf("bundle: %v", err)
		}
	}
	var exec arbitrage.Executor
	if bundle != nil {
		exec = bundle
	}

	poolA, err := backtest.BuildPool(rows[0], sourceTok.Address, interTok.Address, exec)
	if err != nil {
		log.Fatalf("pool-a: %v", err)
	}
	poolB, err := backtest.BuildPool(rows[1], sourceTok.Address, interTok.Address, exec)
	if err != nil {
		log.Fatalf("pool-b: %v", err)
	}

	var balances *eth.AccountBalances
	if bundle != nil && bundle.From() != (common.Address{}) {
		balances = &eth.AccountBalances{Client: client, Account: bundle.From(), SourceToken: sourceTok.Address}
	}
	balance, err := sourceBalance(ctx, *balanceFlag, balances)
	if err != nil {
		log.Fatalf("balance: %v", err)
	}

	fmt.Printf("scanning block %d: %s vs %s\n\n", block, refA, refB)
	fmt.Printf("  %s price: %.6f\n", refA.Address.Hex(), poolA.Price())
	fmt.Printf("  %s price: %.6f\n", refB.Address.Hex(), poolB.Price())
	fmt.Printf("  source balance: %s %s\n", eth.FormatUnits(new(big.Int).SetUint64(balance), decimals), sourceTok.Symbol)

	engine := arbitrage.NewEngine(cfg.Engine, logger)
	rec := storage.AttemptRecord{BlockNumber: block, PoolA: poolA.Address(), PoolB: poolB.Address()}

	opp, err := engine.Evaluate(poolA, poolB, balance)
	switch {
	case errors.Is(err, arbitrage.ErrNoArbitrageOpportunity):
		rec.Outcome = storage.OutcomeNoOpportunity
		fmt.Println("\nno profitable arbitrage opportunity found")
	case err != nil:
		rec.Outcome = storage.OutcomeError
		rec.Error = err.Error()
		fmt.Printf("\nevaluation failed: %v\n", err)
	default:
		rec.Outcome = storage.OutcomeOpportunity
		rec.AToB = opp.Result.AToB
		rec.AmountIn = opp.Result.AmountIn
		rec.Intermediate = opp.Result.IntermediateAmount
		rec.Profit = opp.Result.Profit
		rec.Iterations = opp.Result.Iterations
		rec.ExitReason = string(opp.Result.ExitReason)
		printOpportunity(opp, decimals, sourceTok.Symbol)
	}

	if opp != nil && bundle != nil {
		if err := executeAttempt(ctx, engine, opp, bundle, client, balances, *send, logger); err != nil {
			rec.Outcome = storage.OutcomeError
			rec.Error = err.Error()
			fmt.Printf("\nexecution failed: %v\n", err)
		} else if *send {
			rec.Outcome = storage.OutcomeExecuted
		}
	}

	if err := recordAttempt(cfg.DBPath, rec); err != nil {
		logger.Warn("failed to record attempt", zap.Error(err))
	}
	fmt.Println("\nscan complete")
}

func newLogger(debug bool) *zap.Logger {
	var l *zap.Logger
	var err error
	if debug {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	return l
}

func resolveUnknown(s string) eth.TokenInfo {
	if !common.IsHexAddress(s) {
		log.Fatalf("unknown token %q (known: WETH, USDC, USDT, DAI)", s)
	}
	addr := common.HexToAddress(s)
	return eth.TokenInfo{Address: addr, Decimals: 0, Symbol: addr.Hex()[:10]}
}

func sourceBalance(ctx context.Context, flagValue string, balances *eth.AccountBalances) (uint64, error) {
	if flagValue != "" {
		return strconv.ParseUint(flagValue, 10, 64)
	}
	if balances == nil {
		return 0, fmt.Errorf("no -balance given and no executor key to read it from")
	}
	bal, err := balances.SourceBalance(ctx)
	if err != nil {
		return 0, err
	}
	if !bal.IsUint64() {
		return 0, fmt.Errorf("source balance %s: %w", bal.Dec(), arbitrage.ErrOverflow)
	}
	return bal.Uint64(), nil
}

func newBundle(ctx context.Context, cfg *config.Config, client *eth.Client) (*execution.Bundle, error) {
	opts := execution.Options{
		ChainID:  big.NewInt(cfg.ChainID),
		GasLimit: cfg.Execution.GasLimit,
		GasPrice: new(big.Int).Mul(new(big.Int).SetUint64(cfg.Execution.GasPriceGwei), big.NewInt(1e9)),
		Key:      cfg.ExecutorKey,
	}
	bundle, err := execution.NewBundle(opts)
	if err != nil {
		return nil, err
	}
	if bundle.From() == (common.Address{}) {
		return bundle, nil
	}

	// signed bundles need the account's next nonce
	nonce, err := client.PendingNonceAt(ctx, bundle.From())
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	opts.Nonce = nonce
	return execution.NewBundle(opts)
}

func executeAttempt(ctx context.Context, engine *arbitrage.Engine, opp *arbitrage.Opportunity, bundle *execution.Bundle,
	client *eth.Client, balances *eth.AccountBalances, send bool, logger *zap.Logger) error {
	var before arbitrage.BalanceSnapshot
	if send {
		if balances == nil {
			return fmt.Errorf("sending needs EXECUTOR_KEY")
		}
		var err error
		if before, err = arbitrage.CaptureBalances(ctx, balances); err != nil {
			return fmt.Errorf("capture balances: %w", err)
		}
	}

	attempt, err := engine.Execute(ctx, opp)
	if err != nil {
		return err
	}

	fmt.Println("\nbundle:")
	for i, leg := range attempt.Legs {
		fmt.Printf("  leg %d: %s on %s in=%d min_out=%d\n", i+1, leg.Leg, leg.Pool.Address().Hex(), leg.AmountIn, leg.MinAmountOut)
	}
	for i, tx := range bundle.Transactions() {
		fmt.Printf("  tx %d: nonce=%d gas=%d hash=%s\n", i+1, tx.Nonce(), tx.Gas(), tx.Hash().Hex())
	}
	if !send {
		return nil
	}

	hashes, err := bundle.Send(ctx, client)
	if err != nil {
		return err
	}
	for _, h := range hashes {
		logger.Info("sent", zap.Stringer("tx", h))
	}

	after, err := arbitrage.VerifyBalances(ctx, balances, before)
	if err != nil {
		return err
	}
	logger.Info("balances verified",
		zap.String("native", after.Native.Dec()),
		zap.String("source", after.Source.Dec()),
	)
	return nil
}

func printOpportunity(opp *arbitrage.Opportunity, decimals int32, symbol string) {
	res := opp.Result
	fmt.Println("\nprofitable arbitrage detected")
	fmt.Println("=============================")
	fmt.Printf("buy on:   %s\n", opp.PoolIn.Address().Hex())
	fmt.Printf("sell on:  %s\n", opp.PoolOut.Address().Hex())
	fmt.Printf("price delta: %.2f bps (breakeven %.2f bps)\n", opp.PriceDeltaBps, opp.MinProfitableBps)
	fmt.Printf("input:    %s %s\n", eth.FormatUnits(new(big.Int).SetUint64(res.AmountIn), decimals), symbol)
	fmt.Printf("profit:   %s %s\n", eth.FormatSigned(res.Profit, decimals), symbol)
	fmt.Printf("search:   %d iterations, %s\n", res.Iterations, res.ExitReason)
}

func recordAttempt(dbPath string, rec storage.AttemptRecord) error {
	if dbPath == "" {
		return nil
	}
	store, err := storage.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.RecordAttempt(rec)
}
