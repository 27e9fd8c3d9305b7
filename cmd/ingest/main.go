// cmd/ingest loads bar and option-chain exports into the SQLite store read by
// cmd/features.
//
// Usage:
//
//	go run ./cmd/ingest --bars=data/SPY.csv --chain=data/SPY_chain.csv
//	go run ./cmd/ingest --bars=data/SPY.xlsx --sheet=Daily --symbol=SPY
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"marketfeatures/config"
	"marketfeatures/internal/marketdata/filesource"
	"marketfeatures/internal/model"
	sqlitestore "marketfeatures/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[ingest] config: %v", err)
	}

	barsPath := flag.String("bars", cfg.BarsPath, "Bar export to load (CSV or XLSX)")
	sheet := flag.String("sheet", cfg.BarsSheet, "Worksheet of an XLSX export (default: first)")
	chainPath := flag.String("chain", cfg.ChainPath, "Option-chain CSV to load")
	symbol := flag.String("symbol", cfg.Symbol, "Symbol the rows belong to")
	interval := flag.String("interval", cfg.Interval, "Bar interval")
	dbPath := flag.String("db", cfg.SQLitePath, "Path to SQLite database")
	flag.Parse()

	if *barsPath == "" && *chainPath == "" {
		log.Fatal("[ingest] nothing to do: set --bars and/or --chain")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	writer, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: *dbPath})
	if err != nil {
		log.Fatalf("[ingest] sqlite open failed: %v", err)
	}
	defer writer.Close()

	job := ingestJob{
		barsPath:  *barsPath,
		sheet:     *sheet,
		chainPath: *chainPath,
		symbol:    *symbol,
		interval:  *interval,
	}
	stats, err := job.run(ctx, writer)
	if err != nil {
		log.Fatalf("[ingest] %v", err)
	}

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║        INGEST COMPLETE               ║")
	fmt.Println("╠══════════════════════════════════════╣")
	fmt.Printf("║  Symbol:            %-16s ║\n", *symbol)
	fmt.Printf("║  Bars written:      %-16d ║\n", stats.bars)
	fmt.Printf("║  Contracts written: %-16d ║\n", stats.contracts)
	if !stats.lastBar.IsZero() {
		fmt.Printf("║  Last bar:          %-16s ║\n", stats.lastBar.Format("2006-01-02"))
	}
	fmt.Println("╚══════════════════════════════════════╝")
}

// barChainWriter is the subset of the SQLite writer used by an ingest.
type barChainWriter interface {
	WriteBars(ctx context.Context, symbol, interval string, bars model.BarSequence) error
	WriteChain(ctx context.Context, underlying string, contracts []model.OptionContract) error
	LastBarTime(ctx context.Context, symbol, interval string) (int64, error)
}

type ingestJob struct {
	barsPath  string
	sheet     string
	chainPath string
	symbol    string
	interval  string
}

type ingestStats struct {
	bars      int
	contracts int
	lastBar   time.Time
}

// run parses both exports concurrently, then writes them.
func (j ingestJob) run(ctx context.Context, w barChainWriter) (ingestStats, error) {
	var (
		stats ingestStats
		bars  model.BarSequence
		chain []model.OptionContract
	)

	g, _ := errgroup.WithContext(ctx)
	if j.barsPath != "" {
		g.Go(func() error {
			var err error
			if strings.EqualFold(filepath.Ext(j.barsPath), ".xlsx") {
				bars, err = filesource.LoadBarsXLSX(j.barsPath, j.sheet)
			} else {
				bars, err = filesource.LoadBarsFile(j.barsPath)
			}
			if err != nil {
				return fmt.Errorf("parse bars %s: %w", j.barsPath, err)
			}
			return nil
		})
	}
	if j.chainPath != "" {
		g.Go(func() error {
			var err error
			chain, err = filesource.LoadContractsFile(j.chainPath)
			if err != nil {
				return fmt.Errorf("parse chain %s: %w", j.chainPath, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	if len(bars) > 0 {
		if err := w.WriteBars(ctx, j.symbol, j.interval, bars); err != nil {
			return stats, err
		}
		stats.bars = len(bars)
		log.Printf("[ingest] wrote %d bars for %s %s", len(bars), j.symbol, j.interval)

		last, err := w.LastBarTime(ctx, j.symbol, j.interval)
		if err != nil {
			return stats, err
		}
		stats.lastBar = time.Unix(last, 0).UTC()
	}
	if len(chain) > 0 {
		if err := w.WriteChain(ctx, j.symbol, chain); err != nil {
			return stats, err
		}
		stats.contracts = len(chain)
		log.Printf("[ingest] wrote %d contracts for %s", len(chain), j.symbol)
	}
	return stats, nil
}
