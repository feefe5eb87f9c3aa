package remotecall

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type apiError struct {
	status int
	code   string
	msg    string
}

func (e *apiError) Error() string     { return fmt.Sprintf("%d %s: %s", e.status, e.code, e.msg) }
func (e *apiError) HTTPStatus() int   { return e.status }
func (e *apiError) ErrorCode() string { return e.code }

func newTestExecutor(t *testing.T, delays *[]time.Duration, events *[]RetryEvent) *Executor {
	return NewExecutor(
		WithLogger(zaptest.NewLogger(t)),
		WithSleep(func(_ context.Context, d time.Duration) error {
			*delays = append(*delays, d)
			return nil
		}),
		WithRetryObserver(func(ev RetryEvent) {
			*events = append(*events, ev)
		}),
	)
}

func TestCallRetries503(t *testing.T) {
	var delays []time.Duration
	var events []RetryEvent
	exec := newTestExecutor(t, &delays, &events)

	attempts := 0
	result, err := Call(context.Background(), exec, "get orders", func(context.Context) (string, error) {
		attempts++
		if attempts <= 3 {
			return "", &apiError{status: 503, msg: "service unavailable"}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 4, attempts)
	require.Len(t, events, 3)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, delays)
	for i, ev := range events {
		assert.Equal(t, "get orders", ev.Context)
		assert.Equal(t, i+1, ev.Attempt)
		assert.Equal(t, delays[i], ev.Delay)
	}
}

func TestCallFailsFastOn400(t *testing.T) {
	var delays []time.Duration
	var events []RetryEvent
	exec := newTestExecutor(t, &delays, &events)

	want := &apiError{status: 400, code: "InvalidInput", msg: "bad weight"}
	attempts := 0
	err := exec.Do(context.Background(), "create shipment", func(context.Context) error {
		attempts++
		return want
	})

	require.Error(t, err)
	assert.Same(t, want, err)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, events)
}

func TestCallExhaustedReturnsLastError(t *testing.T) {
	var delays []time.Duration
	var events []RetryEvent
	exec := newTestExecutor(t, &delays, &events)

	var last error
	attempts := 0
	err := exec.Do(context.Background(), "get items", func(context.Context) error {
		attempts++
		last = &apiError{status: 503, msg: fmt.Sprintf("attempt %d", attempts)}
		return last
	})

	assert.Equal(t, DefaultMaxRetries+1, attempts)
	assert.Same(t, last, err)
	assert.EqualError(t, err, "503 : attempt 4")
	assert.Len(t, events, DefaultMaxRetries)
}

func TestCallRespectsCancelledContext(t *testing.T) {
	exec := NewExecutor(WithBaseDelay(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	want := &apiError{status: 503}
	attempts := 0
	err := exec.Do(ctx, "get orders", func(context.Context) error {
		attempts++
		return want
	})

	assert.Same(t, want, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"503", &apiError{status: 503}, true},
		{"500", &apiError{status: 500}, false},
		{"429 with quota code", &apiError{status: 429, code: "QuotaExceeded"}, false},
		{"quota code without status", &apiError{code: "QuotaExceeded"}, true},
		{"quota in message", errors.New("You exceeded your quota for the requested resource"), true},
		{"rate exceeded in message", errors.New("Request Rate Exceeded"), true},
		{"connection reset", &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET}, true},
		{"connection refused wrapped", fmt.Errorf("post: %w", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}), true},
		{"dns not found", &net.DNSError{Err: "no such host", Name: "sellingpartnerapi.example", IsNotFound: true}, true},
		{"deadline", context.DeadlineExceeded, true},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestNormalize(t *testing.T) {
	f := Normalize(fmt.Errorf("wrapped: %w", &apiError{status: 404, code: "NotFound", msg: "order"}))
	assert.Equal(t, 404, f.StatusCode)
	assert.Equal(t, "NotFound", f.ErrorCode)
	assert.Contains(t, f.Message, "wrapped")

	f = Normalize(&net.DNSError{Err: "server misbehaving", Name: "x", IsTemporary: true})
	assert.Equal(t, "EAI_AGAIN", f.ErrorCode)
	assert.Zero(t, f.StatusCode)
}
