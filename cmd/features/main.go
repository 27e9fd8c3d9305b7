// cmd/features computes the technical feature frame and the options chain
// analysis for one symbol, prints a summary and optionally publishes the
// latest results to Redis.
//
// Bars come from FEATURES_BARS_PATH (CSV or XLSX) or, when unset, from the
// SQLite store filled by cmd/ingest. The chain comes from FEATURES_CHAIN_PATH
// or the same store.
//
// Usage:
//
//	go run ./cmd/features --rows=5
//	go run ./cmd/features --serve   # keep /metrics and /healthz up until SIGINT
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"marketfeatures/config"
	"marketfeatures/internal/features"
	"marketfeatures/internal/logger"
	"marketfeatures/internal/marketdata/filesource"
	"marketfeatures/internal/metrics"
	"marketfeatures/internal/model"
	"marketfeatures/internal/notification"
	"marketfeatures/internal/options"
	redisstore "marketfeatures/internal/store/redis"
	sqlitestore "marketfeatures/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	rows := flag.Int("rows", 3, "Feature rows to print from each end of the frame")
	serve := flag.Bool("serve", false, "Keep the metrics server running after the run until interrupted")
	envFile := flag.String("env", "", "Optional .env file to load before the environment")
	flag.Parse()

	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		log.Fatalf("[features] config: %v", err)
	}

	slogger := logger.Init("features", logger.ParseLevel(cfg.LogLevel))
	runID := logger.NewRunID()

	ctx, cancel := context.WithCancel(logger.WithRunID(context.Background(), runID))
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	prom := metrics.NewMetrics(nil)
	health := metrics.NewHealthStatus(cfg.RedisEnabled())
	var srv *metrics.Server
	if cfg.MetricsAddr != "" {
		srv = metrics.NewServer(cfg.MetricsAddr, health, nil)
		srv.Start()
	}

	var pub model.ResultPublisher
	if cfg.RedisEnabled() {
		rp, err := redisstore.New(redisstore.PublisherConfig{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			Interval:     cfg.Interval,
			LatestTTL:    cfg.PublishTTL,
			StreamMaxLen: cfg.StreamMaxLen,
			Metrics:      prom,
		})
		if err != nil {
			log.Fatalf("[features] redis init failed: %v", err)
		}
		health.CheckRedis(ctx, rp.Client())
		pub = rp
		defer rp.Close()
	}

	app := &runner{
		cfg:    cfg,
		log:    slogger,
		prom:   prom,
		health: health,
		pub:    pub,
		rows:   *rows,
		out:    os.Stdout,
	}
	err = app.run(ctx)
	health.RecordRun(err == nil, app.retained)

	var notifier notification.Notifier = notification.NewLogNotifier()
	if cfg.AlertWebhookURL != "" {
		notifier = notification.NewWebhookNotifier(cfg.AlertWebhookURL, 0)
	}
	notification.Dispatch(context.Background(), notifier, app.outcome(runID, err))

	if err != nil {
		slogger.Error("run failed", append(logger.LogWithRun(ctx), slog.String("error", err.Error()))...)
		if srv != nil {
			srv.Stop(context.Background())
		}
		os.Exit(1)
	}

	if srv != nil {
		if *serve {
			log.Printf("[features] serving metrics on %s, Ctrl-C to exit", cfg.MetricsAddr)
			<-ctx.Done()
		}
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		srv.Stop(stopCtx)
		stopCancel()
	}
}

// runner holds the collaborators of one feature run.
type runner struct {
	cfg    *config.Config
	log    *slog.Logger
	prom   *metrics.Metrics
	health *metrics.HealthStatus
	pub    model.ResultPublisher // nil = do not publish
	rows   int
	out    io.Writer

	rowsIn        int
	retained      int
	optionsNoData bool
}

func (a *runner) outcome(runID string, err error) notification.RunOutcome {
	return notification.RunOutcome{
		Symbol:        a.cfg.Symbol,
		RunID:         runID,
		Err:           err,
		RowsIn:        a.rowsIn,
		RowsRetained:  a.retained,
		OptionsNoData: a.optionsNoData,
	}
}

func (a *runner) run(ctx context.Context) error {
	// Opening the writer creates the database and schema on first use.
	store, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: a.cfg.SQLitePath})
	if err != nil {
		return err
	}
	store.Close()

	reader, err := sqlitestore.NewReader(a.cfg.SQLitePath, a.prom)
	if err != nil {
		return err
	}
	defer reader.Close()
	if a.health != nil {
		a.health.CheckSQLite(ctx, reader.DB())
	}

	bars, err := a.loadBars(ctx, reader)
	if err != nil {
		return fmt.Errorf("load bars: %w", err)
	}
	a.rowsIn = len(bars)

	pipeline := features.NewPipeline(features.PipelineConfig{
		Logger:         a.log,
		Metrics:        a.prom,
		MaxParallelism: a.cfg.MaxParallelism,
	})
	frame, err := pipeline.Run(ctx, bars)
	if err != nil {
		return fmt.Errorf("feature pipeline: %w", err)
	}
	a.retained = frame.Len()
	a.printFrame(frame)

	last, ok := bars.Last()
	if !ok {
		return nil
	}

	chain, err := a.loadChain(ctx, reader, last.TS)
	if err != nil {
		return fmt.Errorf("load chain: %w", err)
	}
	analyzer := options.NewAnalyzer(options.AnalyzerConfig{Logger: a.log, Metrics: a.prom})
	result := analyzer.Analyze(ctx, options.BuildSnapshot(a.cfg.Symbol, chain), analysisClose(frame, last))
	a.optionsNoData = errors.Is(result.Err(), model.ErrNoData)
	a.printAnalysis(result)

	if a.pub == nil {
		return nil
	}
	if ts, row, ok := frame.Last(); ok {
		if err := a.pub.PublishFeatures(ctx, a.cfg.Symbol, ts, row); err != nil {
			return err
		}
	}
	if err := a.pub.PublishAnalysis(ctx, result); err != nil {
		return err
	}
	log.Printf("[features] published %s %s to redis", a.cfg.Symbol, a.cfg.Interval)
	return nil
}

func (a *runner) loadBars(ctx context.Context, reader model.BarReader) (model.BarSequence, error) {
	path := a.cfg.BarsPath
	switch {
	case path == "":
		return reader.ReadBars(ctx, a.cfg.Symbol, a.cfg.Interval)
	case strings.EqualFold(filepath.Ext(path), ".xlsx"):
		return filesource.LoadBarsXLSX(path, a.cfg.BarsSheet)
	default:
		return filesource.LoadBarsFile(path)
	}
}

func (a *runner) loadChain(ctx context.Context, reader model.ChainReader, asOf time.Time) ([]model.OptionContract, error) {
	if a.cfg.ChainPath != "" {
		return filesource.LoadContractsFile(a.cfg.ChainPath)
	}
	return reader.ReadChain(ctx, a.cfg.Symbol, asOf)
}

func (a *runner) printFrame(f *features.Frame) {
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, "╔══════════════════════════════════════╗")
	fmt.Fprintln(a.out, "║        FEATURE FRAME                 ║")
	fmt.Fprintln(a.out, "╠══════════════════════════════════════╣")
	fmt.Fprintf(a.out, "║  Symbol:            %-16s ║\n", a.cfg.Symbol)
	fmt.Fprintf(a.out, "║  Rows retained:     %-16d ║\n", f.Len())
	fmt.Fprintf(a.out, "║  Rows trimmed:      %-16d ║\n", f.Trimmed())
	fmt.Fprintf(a.out, "║  Columns:           %-16d ║\n", len(f.Columns()))
	fmt.Fprintln(a.out, "╚══════════════════════════════════════╝")

	n := f.Len()
	for _, i := range headTail(n, a.rows) {
		ts, row := f.Row(i)
		fmt.Fprintf(a.out, "  [%s] %s\n", ts.Format("2006-01-02"), formatRow(row))
	}
}

func (a *runner) printAnalysis(r model.AnalysisResult) {
	fmt.Fprintln(a.out)
	if err := r.Err(); err != nil {
		fmt.Fprintf(a.out, "  options %s: %v\n", a.cfg.Symbol, err)
		return
	}
	fmt.Fprintf(a.out, "  options %s close=%.2f contracts=%d\n", a.cfg.Symbol, r.LastClose, r.Contracts)
	fmt.Fprintf(a.out, "    put/call volume=%s oi=%s\n", r.PutCallVolumeRatio, r.PutCallOIRatio)
	fmt.Fprintf(a.out, "    atm_iv=%s skew=%s\n", r.ATMIV, r.VolatilitySkew)
	fmt.Fprintf(a.out, "    net_delta=%s net_gamma=%s notional=%.0f\n", r.NetDelta, r.NetGamma, r.TotalNotional)
}

// analysisClose is the close the options analysis is centred on: the last
// retained frame row, or the last input bar when nothing survived trimming.
func analysisClose(f *features.Frame, lastBar model.Bar) float64 {
	if c, ok := f.LastClose(); ok {
		return c
	}
	return lastBar.Close
}

// headTail returns the row indexes of the first k and last k rows of an
// n-row frame without repeating any.
func headTail(n, k int) []int {
	if k <= 0 || n == 0 {
		return nil
	}
	if 2*k >= n {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	idx := make([]int, 0, 2*k)
	for i := 0; i < k; i++ {
		idx = append(idx, i)
	}
	for i := n - k; i < n; i++ {
		idx = append(idx, i)
	}
	return idx
}

func formatRow(row map[string]float64) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%.4f", k, row[k])
	}
	return strings.Join(parts, " ")
}
