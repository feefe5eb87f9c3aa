// Package remotecall runs calls to the marketplace API with failure
// classification and exponential backoff.
package remotecall

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
)

// Failure is the canonical shape every transport error is reduced to
// before classification.
type Failure struct {
	StatusCode int
	ErrorCode  string
	Message    string
}

type RetryEvent struct {
	Context string
	Attempt int
	Delay   time.Duration
	Err     error
}

type Executor struct {
	maxRetries int
	baseDelay  time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	onRetry    func(RetryEvent)
	zaplog     *zap.Logger
}

type Option func(*Executor)

func WithMaxRetries(n int) Option {
	return func(e *Executor) {
		if n >= 0 {
			e.maxRetries = n
		}
	}
}

func WithBaseDelay(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.baseDelay = d
		}
	}
}

// WithSleep replaces the wait between attempts (tests record delays instead of waiting).
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Executor) {
		e.sleep = sleep
	}
}

func WithRetryObserver(fn func(RetryEvent)) Option {
	return func(e *Executor) {
		e.onRetry = fn
	}
}

func WithLogger(zaplog *zap.Logger) Option {
	return func(e *Executor) {
		if zaplog != nil {
			e.zaplog = zaplog
		}
	}
}

func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultBaseDelay,
		sleep:      sleepContext,
		zaplog:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Do runs op until it succeeds, fails with a terminal error or the retry
// budget is spent. The last error is returned unchanged.
func (e *Executor) Do(ctx context.Context, label string, op func(ctx context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if attempt >= e.maxRetries || !IsRetryable(err) {
			return err
		}

		delay := e.baseDelay * time.Duration(1<<attempt)
		event := RetryEvent{Context: label, Attempt: attempt + 1, Delay: delay, Err: err}
		e.zaplog.Warn("remote call failed, retrying",
			zap.String("context", label),
			zap.Int("attempt", event.Attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if e.onRetry != nil {
			e.onRetry(event)
		}

		// отмена во время ожидания: отдаем последнюю ошибку вызова
		if serr := e.sleep(ctx, delay); serr != nil {
			return err
		}
	}
}

// Call is Do for operations returning a value.
func Call[T any](ctx context.Context, e *Executor, label string, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := e.Do(ctx, label, func(ctx context.Context) error {
		var err error
		result, err = op(ctx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Классификация

var quotaCodes = map[string]struct{}{
	"QuotaExceeded":     {},
	"RateLimitExceeded": {},
	"TooManyRequests":   {},
}

var networkCodes = map[string]struct{}{
	"ETIMEDOUT":    {},
	"ECONNRESET":   {},
	"ECONNREFUSED": {},
	"ECONNABORTED": {},
	"ENOTFOUND":    {},
	"EAI_AGAIN":    {},
	"ENETUNREACH":  {},
	"EHOSTUNREACH": {},
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return Retryable(Normalize(err))
}

// Retryable applies the rules in priority order: 503 retries, any other
// status >= 400 fails fast, then quota and network codes retry.
func Retryable(f Failure) bool {
	switch {
	case f.StatusCode == 503:
		return true
	case f.StatusCode >= 400:
		return false
	}
	if _, ok := quotaCodes[f.ErrorCode]; ok {
		return true
	}
	msg := strings.ToLower(f.Message)
	if strings.Contains(msg, "quota") || strings.Contains(msg, "rate exceeded") {
		return true
	}
	_, ok := networkCodes[f.ErrorCode]
	return ok
}

// Normalize maps any error into the canonical Failure. Errors exposing
// HTTPStatus() / ErrorCode() anywhere in their chain contribute those values.
func Normalize(err error) Failure {
	if err == nil {
		return Failure{}
	}
	f := Failure{Message: err.Error()}

	var withStatus interface{ HTTPStatus() int }
	if errors.As(err, &withStatus) {
		f.StatusCode = withStatus.HTTPStatus()
	}
	var withCode interface{ ErrorCode() string }
	if errors.As(err, &withCode) {
		f.ErrorCode = withCode.ErrorCode()
	}
	if f.ErrorCode == "" {
		f.ErrorCode = networkCode(err)
	}
	return f
}

func networkCode(err error) string {
	switch {
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, io.ErrUnexpectedEOF):
		return "ECONNRESET"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "ECONNREFUSED"
	case errors.Is(err, syscall.ECONNABORTED):
		return "ECONNABORTED"
	case errors.Is(err, syscall.ENETUNREACH):
		return "ENETUNREACH"
	case errors.Is(err, syscall.EHOSTUNREACH):
		return "EHOSTUNREACH"
	case errors.Is(err, syscall.ETIMEDOUT),
		errors.Is(err, os.ErrDeadlineExceeded),
		errors.Is(err, context.DeadlineExceeded):
		return "ETIMEDOUT"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTemporary || dnsErr.IsTimeout {
			return "EAI_AGAIN"
		}
		return "ENOTFOUND"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "ETIMEDOUT"
	}
	return ""
}
