// Package redis persists telemetry in Redis lists so that traces outlive
// the process that produced them.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/orichalcum/pkg/schema"
	"github.com/aretw0/orichalcum/pkg/telemetry"
)

// DefaultPrefix namespaces every key written by the sink.
const DefaultPrefix = "orichalcum:telemetry:"

// Sink buffers events and issues and writes them on Flush.
//
// Keys:
//
//	<prefix>events       list of JSON events
//	<prefix>issues       list of JSON issues
//	<prefix>task:<id>    list of JSON events of one task
type Sink struct {
	client *backend.Client
	prefix string
	ttl    time.Duration

	mu      sync.Mutex
	pending []entry
}

type entry struct {
	keys []string
	data []byte
}

type Option func(*Sink)

// WithTTL expires the lists after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Sink) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Sink) {
		s.prefix = prefix
	}
}

// New creates a sink with its own client.
func New(address, password string, db int, opts ...Option) *Sink {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a sink from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Sink {
	s := &Sink{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sink) eventsKey() string            { return s.prefix + "events" }
func (s *Sink) issuesKey() string            { return s.prefix + "issues" }
func (s *Sink) taskKey(taskID string) string { return s.prefix + "task:" + taskID }

func (s *Sink) Record(_ context.Context, e telemetry.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	s.push(entry{keys: []string{s.eventsKey(), s.taskKey(e.TaskID)}, data: data})
	return nil
}

func (s *Sink) RecordIssue(_ context.Context, issue schema.ValidationIssue) error {
	data, err := json.Marshal(issue)
	if err != nil {
		return fmt.Errorf("failed to marshal issue: %w", err)
	}
	s.push(entry{keys: []string{s.issuesKey()}, data: data})
	return nil
}

func (s *Sink) push(e entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, e)
}

// Pending reports how many records wait for the next Flush.
func (s *Sink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Flush writes buffered records in one MULTI/EXEC transaction, so a
// dropped connection applies none of them. Pushes that fail are kept for the
// next attempt; pushes that succeeded are not repeated.
func (s *Sink) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}

	touched := make(map[string]struct{})
	pushes := make([][]*backend.IntCmd, len(batch))
	pipe := s.client.TxPipeline()
	for i, e := range batch {
		for _, k := range e.keys {
			pushes[i] = append(pushes[i], pipe.RPush(ctx, k, e.data))
			touched[k] = struct{}{}
		}
	}
	if s.ttl > 0 {
		for k := range touched {
			pipe.Expire(ctx, k, s.ttl)
		}
	}

	_, err := pipe.Exec(ctx)
	if err == nil {
		return nil
	}

	var retry []entry
	for i, e := range batch {
		var failed []string
		for j, cmd := range pushes[i] {
			if cmd.Err() != nil {
				failed = append(failed, e.keys[j])
			}
		}
		if len(failed) > 0 {
			retry = append(retry, entry{keys: failed, data: e.data})
		}
	}
	s.mu.Lock()
	s.pending = append(retry, s.pending...)
	s.mu.Unlock()
	return fmt.Errorf("failed to flush telemetry to redis: %w", err)
}

// Events reads back every flushed event, oldest first.
func (s *Sink) Events(ctx context.Context) ([]telemetry.Event, error) {
	return readList[telemetry.Event](ctx, s.client, s.eventsKey())
}

// EventsFor reads back the flushed events of one task.
func (s *Sink) EventsFor(ctx context.Context, taskID string) ([]telemetry.Event, error) {
	return readList[telemetry.Event](ctx, s.client, s.taskKey(taskID))
}

// Issues reads back every flushed issue.
func (s *Sink) Issues(ctx context.Context) ([]schema.ValidationIssue, error) {
	return readList[schema.ValidationIssue](ctx, s.client, s.issuesKey())
}

// Close releases the client.
func (s *Sink) Close() error {
	return s.client.Close()
}

func readList[T any](ctx context.Context, client *backend.Client, key string) ([]T, error) {
	raw, err := client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	out := make([]T, 0, len(raw))
	for _, item := range raw {
		var v T
		if err := json.Unmarshal([]byte(item), &v); err != nil {
			return nil, fmt.Errorf("failed to decode %s entry: %w", key, err)
		}
		out = append(out, v)
	}
	return out, nil
}
