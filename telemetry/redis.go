package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisSink publishes trial and step records as one hash snapshot per key
// plus a pub/sub notification, so a live dashboard can subscribe instead of
// polling.
type RedisSink struct {
	client       *redis.Client
	trialHashKey string
	trialChannel string
	stepChannel  string
	timeout      time.Duration
}

// NewRedisSink connects to addr (host:port) and returns a sink scoped under
// keyPrefix, e.g. "busoff-sim".
func NewRedisSink(addr, keyPrefix string) *RedisSink {
	client := redis.NewClient(&redis.Options{Addr: addr})
	return &RedisSink{
		client:       client,
		trialHashKey: keyPrefix + ":trials",
		trialChannel: keyPrefix + ":trial",
		stepChannel:  keyPrefix + ":step",
		timeout:      2 * time.Second,
	}
}

func (r *RedisSink) WriteTrial(v interface{}) error {
	return r.publish(r.trialChannel, r.trialHashKey, v)
}

func (r *RedisSink) WriteStep(v interface{}) error {
	return r.publishOnly(r.stepChannel, v)
}

// publish stores v as a hash field (keyed by its trial number, if the
// record exposes one via JSON round-trip) and announces it on channel,
// using an HSet-then-Publish pair so a snapshot and its notification land
// atomically.
func (r *RedisSink) publish(channel, hashKey string, v interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("telemetry: marshaling record: %w", err)
	}

	field := fmt.Sprintf("%d", time.Now().UnixNano())
	var m map[string]interface{}
	if json.Unmarshal(b, &m) == nil {
		if trial, ok := m["trial"]; ok {
			field = fmt.Sprintf("%v", trial)
		}
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, hashKey, field, string(b))
	pipe.Publish(ctx, channel, string(b))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("telemetry: redis pipeline: %w", err)
	}
	return nil
}

func (r *RedisSink) publishOnly(channel string, v interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("telemetry: marshaling record: %w", err)
	}
	if err := r.client.Publish(ctx, channel, string(b)).Err(); err != nil {
		return fmt.Errorf("telemetry: redis publish: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *RedisSink) Close() error {
	return r.client.Close()
}
