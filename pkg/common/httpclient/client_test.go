package httpclient

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryRetriesRetriableFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return Retriable(errors.New("upstream overloaded"))
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestRetryStopsOnDeterministicFailure(t *testing.T) {
	calls := 0
	permanent := errors.New("malformed request")
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected the permanent error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestRetrySucceedsAfterTransientFailure(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 2 {
			return Retriable(errors.New("flaky"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestIsRetriable(t *testing.T) {
	if !IsRetriable(Retriable(errors.New("try again"))) {
		t.Fatal("marked error should be retriable")
	}
	if !IsRetriable(context.DeadlineExceeded) {
		t.Fatal("deadline exceeded should be retriable")
	}
	if IsRetriable(errors.New("bad input")) {
		t.Fatal("plain error should not be retriable")
	}
}
