package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"marketfeatures/internal/metrics"
	"marketfeatures/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	defaultLatestTTL    = 24 * time.Hour
	defaultStreamMaxLen = 5000
)

// PublisherConfig configures the Redis publisher.
type PublisherConfig struct {
	Addr         string // Redis address, e.g. "localhost:6379"
	Password     string
	DB           int
	Interval     string        // bar interval, part of the feature keys
	LatestTTL    time.Duration // TTL of the latest-value keys (0 = 24h)
	StreamMaxLen int64         // approximate history length per stream (0 = 5000)
	Metrics      *metrics.Metrics
}

// Publisher pushes the latest feature row and options analyses to Redis.
// Every publish is one pipeline: SET latest with TTL, XADD to the history
// stream and PUBLISH for live subscribers.
type Publisher struct {
	client   *goredis.Client
	interval string
	ttl      time.Duration
	maxLen   int64
	prom     *metrics.Metrics
}

var _ model.ResultPublisher = (*Publisher)(nil)

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// New creates a new Redis Publisher and pings the server.
func New(cfg PublisherConfig) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return newPublisher(client, cfg), nil
}

func newPublisher(client *goredis.Client, cfg PublisherConfig) *Publisher {
	p := &Publisher{
		client:   client,
		interval: cfg.Interval,
		ttl:      cfg.LatestTTL,
		maxLen:   cfg.StreamMaxLen,
		prom:     cfg.Metrics,
	}
	if p.ttl <= 0 {
		p.ttl = defaultLatestTTL
	}
	if p.maxLen <= 0 {
		p.maxLen = defaultStreamMaxLen
	}
	return p
}

// FeaturePayload is the published form of one feature row.
type FeaturePayload struct {
	Symbol   string             `json:"symbol"`
	Interval string             `json:"interval"`
	TS       time.Time          `json:"ts"`
	Features map[string]float64 `json:"features"`
}

// FeaturesLatestKey is the key holding the newest feature row.
func FeaturesLatestKey(interval, symbol string) string {
	return "features:" + interval + ":latest:" + symbol
}

// FeaturesStreamKey is the stream of published feature rows.
func FeaturesStreamKey(interval, symbol string) string {
	return "features:" + interval + ":" + symbol
}

// FeaturesChannel is the pubsub channel for feature rows.
func FeaturesChannel(interval, symbol string) string {
	return "pub:features:" + interval + ":" + symbol
}

// AnalysisLatestKey is the key holding the newest options analysis.
func AnalysisLatestKey(underlying string) string {
	return "options:latest:" + underlying
}

// AnalysisStreamKey is the stream of published options analyses.
func AnalysisStreamKey(underlying string) string {
	return "options:" + underlying
}

// AnalysisChannel is the pubsub channel for options analyses.
func AnalysisChannel(underlying string) string {
	return "pub:options:" + underlying
}

// PublishFeatures writes the feature row of symbol at ts.
func (p *Publisher) PublishFeatures(ctx context.Context, symbol string, ts time.Time, row map[string]float64) error {
	data, err := json.Marshal(FeaturePayload{Symbol: symbol, Interval: p.interval, TS: ts.UTC(), Features: row})
	if err != nil {
		return fmt.Errorf("redis encode features: %w", err)
	}
	return p.write(ctx,
		FeaturesLatestKey(p.interval, symbol),
		FeaturesStreamKey(p.interval, symbol),
		FeaturesChannel(p.interval, symbol),
		string(data))
}

// PublishAnalysis writes an options analysis result. Undefined metrics are
// encoded as JSON null.
func (p *Publisher) PublishAnalysis(ctx context.Context, result model.AnalysisResult) error {
	data := string(result.JSON())
	return p.write(ctx,
		AnalysisLatestKey(result.Underlying),
		AnalysisStreamKey(result.Underlying),
		AnalysisChannel(result.Underlying),
		data)
}

func (p *Publisher) write(ctx context.Context, latestKey, streamKey, channel, jsonData string) error {
	start := time.Now()
	pipe := p.client.Pipeline()

	// SET latest with TTL
	pipe.Set(ctx, latestKey, jsonData, p.ttl)

	// XADD to stream with auto-trimming
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: streamKey,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": jsonData,
		},
	})

	// PUBLISH for real-time subscribers
	pipe.Publish(ctx, channel, jsonData)

	_, err := pipe.Exec(ctx)
	if p.prom != nil {
		p.prom.RedisWriteDur.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return fmt.Errorf("redis pipeline %s: %w", latestKey, err)
	}
	return nil
}

// Close closes the Redis client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
