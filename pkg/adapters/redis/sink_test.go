package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/orichalcum/pkg/adapters/redis"
	"github.com/aretw0/orichalcum/pkg/flow"
	"github.com/aretw0/orichalcum/pkg/registry"
	"github.com/aretw0/orichalcum/pkg/schema"
	"github.com/aretw0/orichalcum/pkg/telemetry"
	"github.com/aretw0/orichalcum/pkg/value"
)

func setup(t *testing.T, opts ...redis.Option) (*miniredis.Miniredis, *redis.Sink) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, redis.NewFromClient(client, opts...)
}

func TestSink_FlushAndReadBack(t *testing.T) {
	ctx := context.Background()
	mr, sink := setup(t)

	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, sink.Record(ctx, telemetry.Event{
		RunID:  "run-1",
		TaskID: "qa",
		Input:  value.Map(map[string]value.Value{"q": value.Text("hi")}),
		Output: value.Int(7),
		Start:  start,
		End:    start.Add(time.Second),
	}))
	require.NoError(t, sink.RecordIssue(ctx, schema.MissingInputIssue("qa", "qa", schema.Field{Name: "q"}, schema.Never)))
	assert.Equal(t, 2, sink.Pending())
	assert.False(t, mr.Exists(redis.DefaultPrefix+"events"), "nothing is written before Flush")

	require.NoError(t, sink.Flush(ctx))
	assert.Equal(t, 0, sink.Pending())

	events, err := sink.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "run-1", events[0].RunID)
	assert.True(t, events[0].Output.Equal(value.Int(7)))
	assert.Equal(t, time.Second, events[0].Duration())

	byTask, err := sink.EventsFor(ctx, "qa")
	require.NoError(t, err)
	assert.Len(t, byTask, 1)

	issues, err := sink.Issues(ctx)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, schema.MissingInput, issues[0].Code)
}

func TestSink_TTLAndPrefix(t *testing.T) {
	ctx := context.Background()
	mr, sink := setup(t, redis.WithPrefix("test:"), redis.WithTTL(time.Minute))

	require.NoError(t, sink.Record(ctx, telemetry.Event{TaskID: "a"}))
	require.NoError(t, sink.Flush(ctx))

	assert.True(t, mr.Exists("test:events"))
	assert.True(t, mr.Exists("test:task:a"))
	assert.Equal(t, time.Minute, mr.TTL("test:events"))

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("test:events"))
}

func TestSink_FlushFailureKeepsBuffer(t *testing.T) {
	ctx := context.Background()
	mr, sink := setup(t)

	require.NoError(t, sink.Record(ctx, telemetry.Event{TaskID: "a"}))
	mr.SetError("server down")
	assert.Error(t, sink.Flush(ctx))
	assert.Equal(t, 1, sink.Pending())

	mr.SetError("")
	require.NoError(t, sink.Flush(ctx))
	events, err := sink.Events(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestSink_PartialFailureIsNotRepeated(t *testing.T) {
	ctx := context.Background()
	mr, sink := setup(t)

	taskKey := redis.DefaultPrefix + "task:a"
	require.NoError(t, mr.Set(taskKey, "not a list"))

	require.NoError(t, sink.Record(ctx, telemetry.Event{TaskID: "a"}))
	assert.Error(t, sink.Flush(ctx))
	assert.Equal(t, 1, sink.Pending(), "only the failed push is kept")

	events, err := sink.Events(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	mr.Del(taskKey)
	require.NoError(t, sink.Flush(ctx))

	events, err = sink.Events(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1, "the successful push is not written twice")
	byTask, err := sink.EventsFor(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, byTask, 1)
}

func TestSink_FlowIntegration(t *testing.T) {
	ctx := context.Background()
	_, sink := setup(t)

	node := flow.NewNode(flow.Funcs{
		PostFn: func(shared flow.State, _, _ value.Value) (flow.Action, error) {
			shared.Set("out", value.Text("done"))
			return flow.NoAction, nil
		},
	})
	task, err := flow.Seal(registry.New(), node, flow.SealConfig{
		TaskID:      "writer",
		Instruction: "write out",
		Signature:   "-> out",
	})
	require.NoError(t, err)

	_, err = flow.New(task, flow.WithTelemetry(sink)).Run(ctx, flow.NewState())
	require.NoError(t, err)

	events, err := sink.EventsFor(ctx, "writer")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, task.SignatureHash(), events[0].SignatureHash)
}
