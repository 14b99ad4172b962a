package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cosmossdk.io/log"
	"github.com/cenkalti/backoff/v5"

	"github.com/strangelove-ventures/oapp-wirer/types"
)

// Field is one independently settable piece of remote state.
type Field[T any] struct {
	Name  string
	Read  func(ctx context.Context) (T, error)
	Write func(ctx context.Context, desired T) (*types.Receipt, error)
	// Equal reports whether the observed value meets the reference value.
	Equal func(observed, reference T) bool
}

// Change describes a field whose observed value differed from the desired one.
type Change struct {
	Field   string `json:"field" yaml:"field"`
	Current string `json:"current" yaml:"current"`
	Desired string `json:"desired" yaml:"desired"`
	TxHash  string `json:"tx_hash,omitempty" yaml:"tx-hash,omitempty"`
	Applied bool   `json:"applied" yaml:"applied"`
}

// Converger carries the retry policy and context of one pathway.
type Converger struct {
	Pathway string
	Logger  log.Logger
	Options Options

	// OnWrite is called before the first write attempt of a field.
	OnWrite func(field string)
}

// Converge reads f, compares it with desired and writes desired only when they differ.
// It returns nil when nothing had to change.
//
// A write that fails ambiguously is followed by a re-read: the desired value means the
// write landed, the originally observed value means it is safe to retry, anything else
// is a conflict with another writer and is not retried.
func Converge[T any](ctx context.Context, c *Converger, f Field[T], desired T) (*Change, error) {
	observed, err := retryRead(ctx, c, f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	if f.Equal(observed, desired) {
		c.Logger.Debug("Field converged", "field", f.Name)
		return nil, nil
	}

	change := &Change{
		Field:   f.Name,
		Current: format(observed),
		Desired: format(desired),
	}
	opts := c.Options.normalized()
	if opts.DryRun {
		c.Logger.Info("Field diverged", "field", f.Name, "current", change.Current, "desired", change.Desired)
		return change, nil
	}

	if c.OnWrite != nil {
		c.OnWrite(f.Name)
	}

	bo := c.backOff()
	bo.Reset()
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return change, fmt.Errorf("write %s: %w: %w", f.Name, types.ErrCancelled, err)
		}

		c.Logger.Info("Writing field", "field", f.Name, "attempt", attempt, "current", change.Current, "desired", change.Desired)
		receipt, werr := c.write(ctx, func(wctx context.Context) (*types.Receipt, error) {
			return f.Write(wctx, desired)
		})
		if werr == nil {
			change.Applied = true
			if receipt != nil {
				change.TxHash = receipt.TxHash
			}
			c.Logger.Info("Field written", "field", f.Name, "tx", change.TxHash)
			return change, nil
		}
		if !ambiguous(werr) {
			return change, fmt.Errorf("write %s: %w", f.Name, werr)
		}

		c.Logger.Info("Write outcome unknown, re-reading", "field", f.Name, "err", werr)
		rctx, cancel := c.inflight(ctx)
		current, rerr := retryRead(rctx, c, f)
		cancel()
		if rerr != nil {
			return change, fmt.Errorf("write %s: %w", f.Name, errors.Join(werr, rerr))
		}
		if f.Equal(current, desired) {
			change.Applied = true
			return change, nil
		}
		if !f.Equal(current, observed) {
			return change, &types.StateConflictError{
				Pathway:  c.Pathway,
				Field:    f.Name,
				Observed: change.Current,
				Current:  format(current),
			}
		}
		if attempt >= opts.MaxAttempts {
			return change, fmt.Errorf("write %s: giving up after %d attempts: %w", f.Name, attempt, werr)
		}

		next := bo.NextBackOff()
		c.Logger.Debug("Retrying write", "field", f.Name, "next", next)
		if err := sleep(ctx, next); err != nil {
			return change, fmt.Errorf("write %s: %w: %w", f.Name, types.ErrCancelled, err)
		}
	}
}

func retryRead[T any](ctx context.Context, c *Converger, f Field[T]) (T, error) {
	return backoff.Retry(ctx, func() (T, error) {
		v, err := f.Read(ctx)
		if err != nil && !types.IsTransient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(c.backOff()),
		backoff.WithMaxTries(uint(c.Options.normalized().MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.Logger.Debug("Retrying read", "field", f.Name, "next", next, "err", err)
		}),
	)
}

// write runs fn on the in-flight context. A submitted transaction is followed to its
// receipt either way.
func (c *Converger) write(ctx context.Context, fn func(context.Context) (*types.Receipt, error)) (*types.Receipt, error) {
	wctx, cancel := c.inflight(ctx)
	defer cancel()
	return fn(wctx)
}

// inflight derives the context of a write and of the re-read that settles its outcome. It
// survives cancellation of ctx unless writes may be abandoned.
func (c *Converger) inflight(ctx context.Context) (context.Context, context.CancelFunc) {
	if !c.Options.AbandonInflightWrites {
		ctx = context.WithoutCancel(ctx)
	}
	if c.Options.InflightWriteTimeout > 0 {
		return context.WithTimeout(ctx, c.Options.InflightWriteTimeout)
	}
	return context.WithCancel(ctx)
}

func (c *Converger) backOff() *backoff.ExponentialBackOff {
	opts := c.Options.normalized()
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = opts.InitialBackoff
	bo.MaxInterval = opts.MaxBackoff
	return bo
}

// ambiguous reports whether a failed write may still have landed.
func ambiguous(err error) bool {
	return types.IsTransient(err) || errors.Is(err, context.DeadlineExceeded)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func format(v any) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%+v", v)
}
