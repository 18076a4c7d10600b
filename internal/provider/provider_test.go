package provider

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name          string
		status        int
		err           error
		wantRetryable bool
	}{
		{"server error", http.StatusInternalServerError, errors.New("boom"), true},
		{"bad gateway", http.StatusBadGateway, errors.New("bad gateway"), true},
		{"rate limit", http.StatusTooManyRequests, errors.New("slow down"), true},
		{"quota exhausted", http.StatusTooManyRequests, errors.New("monthly quota exceeded"), false},
		{"unauthorized", http.StatusUnauthorized, errors.New("bad key"), false},
		{"forbidden", http.StatusForbidden, errors.New("denied"), false},
		{"bad request", http.StatusBadRequest, errors.New("invalid input"), false},
		{"timeout text", 0, errors.New("dial tcp: i/o timeout"), true},
		{"deadline", 0, context.DeadlineExceeded, true},
		{"unknown", 0, errors.New("something odd"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := Classify("test", tc.status, tc.err)
			if e.Retryable != tc.wantRetryable {
				t.Errorf("Retryable = %v, want %v", e.Retryable, tc.wantRetryable)
			}
			if !errors.Is(e, tc.err) {
				t.Error("Classify lost the underlying error")
			}
		})
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return Classify("test", http.StatusUnauthorized, errors.New("bad key"))
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

func TestRetryRecoversTransient(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return Classify("test", http.StatusServiceUnavailable, errors.New("busy"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 2, time.Millisecond, func() error {
		calls++
		return Classify("test", http.StatusBadGateway, errors.New("still down"))
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 2 {
		t.Errorf("fn called %d times, want 2", calls)
	}
}

func TestRetryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, 3, 50*time.Millisecond, func() error {
		return Classify("test", http.StatusBadGateway, errors.New("down"))
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}
