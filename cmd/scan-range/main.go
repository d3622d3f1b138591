package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/pulkyeet/amm-arb/internal/backtest"
	"github.com/pulkyeet/amm-arb/internal/config"
	"github.com/pulkyeet/amm-arb/internal/eth"
	"github.com/pulkyeet/amm-arb/internal/snapshot"
)

// scan-range snapshots a set of pools over a block range into a parquet file for cmd/backtest
func main() {
	configPath := flag.String("config", "", "Path to YAML config")
	pools := flag.String("pools", "", "Comma separated kind:address list")
	startBlock := flag.Uint64("start", 0, "Start block")
	endBlock := flag.Uint64("end", 0, "End block, inclusive")
	step := flag.Uint64("step", 1, "Block step size")
	out := flag.String("out", "data/snapshots.parquet", "Output parquet file")
	flag.Parse()

	if *startBlock == 0 || *endBlock < *startBlock || *step == 0 {
		log.Fatal("Usage: -pools kind:addr,... -start N -end M [-step K]")
	}
	refs, err := backtest.ParsePoolRefs(*pools)
	if err != nil {
		log.Fatalf("pools: %v", err)
	}
	if len(refs) < 2 {
		log.Fatal("need at least two pools")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	client, err := eth.NewClient(cfg.RPCURL)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	reader, err := snapshot.NewReader(client, cfg.Cache.Snapshots, logger)
	if err != nil {
		log.Fatalf("snapshot reader: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("recording %d pools over blocks %d to %d (step: %d)\n", len(refs), *startBlock, *endBlock, *step)

	var rows []backtest.PoolRow
	checked, failed := 0, 0
	for block := *startBlock; block <= *endBlock; block += *step {
		if ctx.Err() != nil {
			break
		}
		checked++

		blockCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		blockRows, err := backtest.RecordBlock(blockCtx, reader, refs, block)
		cancel()
		if err != nil {
			failed++
			logger.Warn("block skipped", zap.Uint64("block", block), zap.Error(err))
			continue
		}
		rows = append(rows, blockRows...)

		if checked%10 == 0 {
			fmt.Printf("checked %d blocks, %d rows so far...\n", checked, len(rows))
		}
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0755); err != nil {
		log.Fatalf("output dir: %v", err)
	}
	if err := backtest.WriteRows(*out, rows); err != nil {
		log.Fatalf("write %s: %v", *out, err)
	}
	fmt.Printf("\nwrote %d rows from %d blocks (%d skipped) to %s\n", len(rows), checked-failed, failed, *out)
}
