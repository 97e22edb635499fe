package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xiaot623/ragbook/internal/domain"
)

// ErrTimeout reports that a remote call exceeded its deadline.
var ErrTimeout = fmt.Errorf("%w: deadline exceeded", domain.ErrRemoteUnavailable)

// CallWithTimeout runs fn under a context bounded by d and returns as soon as
// that context is done, even if fn ignores it; fn then finishes in the
// background and its result is dropped. A non-positive d leaves ctx untouched.
func CallWithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		val, err := fn(ctx)
		done <- result{val: val, err: err}
	}()

	var zero T
	select {
	case res := <-done:
		if res.err != nil {
			if errors.Is(res.err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return zero, ErrTimeout
			}
			return zero, res.err
		}
		return res.val, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, ErrTimeout
		}
		return zero, ctx.Err()
	}
}

// GenerateWithTimeout is CallWithTimeout specialised to Client.Generate.
func GenerateWithTimeout(ctx context.Context, c Client, d time.Duration, req *GenerateRequest) (string, error) {
	resp, err := CallWithTimeout(ctx, d, func(ctx context.Context) (*GenerateResponse, error) {
		return c.Generate(ctx, req)
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
