package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketfeatures/internal/model"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "features:1d:latest:SPY", FeaturesLatestKey("1d", "SPY"))
	assert.Equal(t, "features:1d:SPY", FeaturesStreamKey("1d", "SPY"))
	assert.Equal(t, "pub:features:1d:SPY", FeaturesChannel("1d", "SPY"))
	assert.Equal(t, "options:latest:SPY", AnalysisLatestKey("SPY"))
	assert.Equal(t, "options:SPY", AnalysisStreamKey("SPY"))
	assert.Equal(t, "pub:options:SPY", AnalysisChannel("SPY"))
}

func TestNewPublisher_Defaults(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	p := newPublisher(client, PublisherConfig{Interval: "1d"})
	assert.Equal(t, defaultLatestTTL, p.ttl)
	assert.Equal(t, int64(defaultStreamMaxLen), p.maxLen)

	p = newPublisher(client, PublisherConfig{LatestTTL: time.Minute, StreamMaxLen: 10})
	assert.Equal(t, time.Minute, p.ttl)
	assert.Equal(t, int64(10), p.maxLen)
}

func TestNew_UnreachableServer(t *testing.T) {
	_, err := New(PublisherConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestPublish_PipelineErrorIsReturned(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	p := newPublisher(client, PublisherConfig{Interval: "1d"})
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := p.PublishFeatures(ctx, "SPY", time.Now(), map[string]float64{"rsi_14": 55})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), FeaturesLatestKey("1d", "SPY"))
}

var errCaptured = errors.New("captured")

// captureHook records pipelined commands and stops them before they reach
// the network.
type captureHook struct {
	cmds [][]interface{}
}

func (h *captureHook) BeforeProcess(ctx context.Context, _ goredis.Cmder) (context.Context, error) {
	return ctx, nil
}

func (h *captureHook) AfterProcess(context.Context, goredis.Cmder) error { return nil }

func (h *captureHook) BeforeProcessPipeline(ctx context.Context, cmds []goredis.Cmder) (context.Context, error) {
	for _, c := range cmds {
		h.cmds = append(h.cmds, c.Args())
	}
	return ctx, errCaptured
}

func (h *captureHook) AfterProcessPipeline(context.Context, []goredis.Cmder) error { return nil }

func TestPublishFeatures_PipelineCommands(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"})
	hook := &captureHook{}
	client.AddHook(hook)
	p := newPublisher(client, PublisherConfig{Interval: "1d", LatestTTL: 2 * time.Hour, StreamMaxLen: 100})
	defer p.Close()

	ts := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	err := p.PublishFeatures(context.Background(), "SPY", ts, map[string]float64{"rsi_14": 55})
	require.ErrorIs(t, err, errCaptured)

	want := `{"symbol":"SPY","interval":"1d","ts":"2024-03-14T00:00:00Z","features":{"rsi_14":55}}`
	require.Len(t, hook.cmds, 3)

	set := hook.cmds[0]
	require.Len(t, set, 5)
	assert.Equal(t, "set", set[0])
	assert.Equal(t, "features:1d:latest:SPY", set[1])
	assert.JSONEq(t, want, set[2].(string))
	assert.Equal(t, "ex", set[3])
	assert.Equal(t, int64(7200), set[4])

	xadd := hook.cmds[1]
	assert.Equal(t, []interface{}{"xadd", "features:1d:SPY", "maxlen", "~", int64(100), "*", "data"}, xadd[:7])
	assert.JSONEq(t, want, xadd[7].(string))

	pub := hook.cmds[2]
	assert.Equal(t, []interface{}{"publish", "pub:features:1d:SPY"}, pub[:2])
	assert.JSONEq(t, want, pub[2].(string))
}

func TestPublishAnalysis_PipelineCommands(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"})
	hook := &captureHook{}
	client.AddHook(hook)
	p := newPublisher(client, PublisherConfig{})
	defer p.Close()

	res := model.AnalysisResult{Underlying: "QQQ", PutCallVolumeRatio: model.Some(0.25)}
	require.ErrorIs(t, p.PublishAnalysis(context.Background(), res), errCaptured)

	require.Len(t, hook.cmds, 3)
	assert.Equal(t, []interface{}{"set", "options:latest:QQQ"}, hook.cmds[0][:2])
	assert.Equal(t, int64(defaultLatestTTL/time.Second), hook.cmds[0][4])
	assert.Equal(t, []interface{}{"xadd", "options:QQQ", "maxlen", "~", int64(defaultStreamMaxLen)}, hook.cmds[1][:5])
	assert.Equal(t, []interface{}{"publish", "pub:options:QQQ"}, hook.cmds[2][:2])
	assert.JSONEq(t, string(res.JSON()), hook.cmds[2][2].(string))
}

func TestFeaturePayload_JSON(t *testing.T) {
	ts := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	data, err := json.Marshal(FeaturePayload{Symbol: "SPY", Interval: "1d", TS: ts, Features: map[string]float64{"ema_50": 501.5}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"symbol":"SPY","interval":"1d","ts":"2024-03-14T00:00:00Z","features":{"ema_50":501.5}}`, string(data))
}

func TestAnalysisPayload_UndefinedIsNull(t *testing.T) {
	res := model.AnalysisResult{Underlying: "SPY", PutCallVolumeRatio: model.Some(0.25)}
	var m map[string]any
	require.NoError(t, json.Unmarshal(res.JSON(), &m))
	assert.Equal(t, 0.25, m["put_call_volume_ratio"])
	assert.Nil(t, m["net_delta"])
}
