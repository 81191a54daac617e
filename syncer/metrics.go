package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const metricsKey = "polytraders:feed:metrics"

// FeedMetrics counts live feed activity.
type FeedMetrics struct {
	Polls         int64     `json:"polls"`
	Failures      int64     `json:"failures"`
	Skipped       int64     `json:"skipped"`
	Merged        int64     `json:"merged"`
	LastPollAt    time.Time `json:"lastPollAt"`
	LastLatencyMs int64     `json:"lastLatencyMs"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// MetricsStore keeps feed metrics in memory and mirrors them to Redis when a
// client is configured, so other instances can read them.
type MetricsStore struct {
	redis *redis.Client

	mu      sync.Mutex
	current FeedMetrics
}

// NewMetricsStore creates a metrics store. redisClient may be nil.
func NewMetricsStore(redisClient *redis.Client) *MetricsStore {
	return &MetricsStore{redis: redisClient}
}

// RecordPoll records a completed poll and the number of trades it merged.
func (m *MetricsStore) RecordPoll(ctx context.Context, latency time.Duration, merged int, failed bool) error {
	m.mu.Lock()
	m.current.Polls++
	if failed {
		m.current.Failures++
	}
	m.current.Merged += int64(merged)
	m.current.LastPollAt = time.Now()
	m.current.LastLatencyMs = latency.Milliseconds()
	m.current.UpdatedAt = m.current.LastPollAt
	snapshot := m.current
	m.mu.Unlock()

	return m.save(ctx, snapshot)
}

// RecordSkip records a poll trigger dropped because another poll was in flight.
func (m *MetricsStore) RecordSkip() {
	m.mu.Lock()
	m.current.Skipped++
	m.mu.Unlock()
}

// Local returns the in-process counters.
func (m *MetricsStore) Local() FeedMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// GetMetrics returns the metrics last mirrored to Redis, falling back to the
// in-process counters.
func (m *MetricsStore) GetMetrics(ctx context.Context) (FeedMetrics, error) {
	if m.redis == nil {
		return m.Local(), nil
	}

	data, err := m.redis.Get(ctx, metricsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return m.Local(), nil
		}
		return FeedMetrics{}, err
	}

	var metrics FeedMetrics
	if err := json.Unmarshal([]byte(data), &metrics); err != nil {
		return FeedMetrics{}, err
	}
	return metrics, nil
}

func (m *MetricsStore) save(ctx context.Context, metrics FeedMetrics) error {
	if m.redis == nil {
		return nil
	}
	data, err := json.Marshal(metrics)
	if err != nil {
		return err
	}
	return m.redis.Set(ctx, metricsKey, data, 24*time.Hour).Err()
}
