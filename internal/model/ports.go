package model

import (
	"context"
	"time"
)

// ── Collaborator Port Interfaces ──
// The feature pipeline never performs I/O itself. These interfaces describe
// the collaborators that supply its inputs and consume its outputs.

// BarReader supplies an already-parsed bar sequence.
type BarReader interface {
	// ReadBars returns bars for symbol/interval ordered by timestamp ascending.
	ReadBars(ctx context.Context, symbol, interval string) (BarSequence, error)
}

// ChainReader supplies option contracts for an underlying.
type ChainReader interface {
	// ReadChain returns every stored contract expiring on or after asOf.
	ReadChain(ctx context.Context, underlying string, asOf time.Time) ([]OptionContract, error)
}

// ResultPublisher pushes pipeline outputs to downstream consumers.
type ResultPublisher interface {
	// PublishFeatures publishes the latest retained feature row.
	PublishFeatures(ctx context.Context, symbol string, ts time.Time, row map[string]float64) error

	// PublishAnalysis publishes an options analysis result.
	PublishAnalysis(ctx context.Context, result AnalysisResult) error

	// Close releases underlying resources.
	Close() error
}
