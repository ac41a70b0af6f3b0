package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/orichalcum/pkg/value"
)

// Retry re-runs Exec up to attempts times, sleeping wait between tries.
// Prep and Post run once.
func Retry(logic Logic, attempts int, wait time.Duration) Logic {
	if attempts < 1 {
		attempts = 1
	}
	return &retryLogic{Logic: logic, attempts: attempts, wait: wait}
}

type retryLogic struct {
	Logic
	attempts int
	wait     time.Duration
}

func (r *retryLogic) Exec(prepared value.Value) (value.Value, error) {
	var err error
	for i := 0; i < r.attempts; i++ {
		if i > 0 && r.wait > 0 {
			time.Sleep(r.wait)
		}
		var v value.Value
		if v, err = r.Logic.Exec(prepared); err == nil {
			return v, nil
		}
	}
	return value.Null(), fmt.Errorf("after %d attempts: %w", r.attempts, err)
}

// AsyncRetry is Retry for async logic. Waiting between tries honors ctx.
func AsyncRetry(logic AsyncLogic, attempts int, wait time.Duration) AsyncLogic {
	if attempts < 1 {
		attempts = 1
	}
	return &asyncRetryLogic{AsyncLogic: logic, attempts: attempts, wait: wait}
}

type asyncRetryLogic struct {
	AsyncLogic
	attempts int
	wait     time.Duration
}

func (r *asyncRetryLogic) Exec(ctx context.Context, prepared value.Value) (value.Value, error) {
	var err error
	for i := 0; i < r.attempts; i++ {
		if i > 0 && r.wait > 0 {
			timer := time.NewTimer(r.wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return value.Null(), ctx.Err()
			case <-timer.C:
			}
		}
		var v value.Value
		if v, err = r.AsyncLogic.Exec(ctx, prepared); err == nil {
			return v, nil
		}
		if ctx.Err() != nil {
			return value.Null(), ctx.Err()
		}
	}
	return value.Null(), fmt.Errorf("after %d attempts: %w", r.attempts, err)
}

// Timeout bounds each Exec call with a deadline.
func Timeout(logic AsyncLogic, d time.Duration) AsyncLogic {
	return &timeoutLogic{AsyncLogic: logic, d: d}
}

type timeoutLogic struct {
	AsyncLogic
	d time.Duration
}

func (t *timeoutLogic) Exec(ctx context.Context, prepared value.Value) (value.Value, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.AsyncLogic.Exec(ctx, prepared)
}
