package migration

import (
	"context"

	"github.com/sethvargo/go-retry"

	"github.com/MKhiriev/go-sync-engine/internal/apperrors"
	"github.com/MKhiriev/go-sync-engine/internal/conflict"
)

func (e *Engine) isRetryable(err error) bool {
	_, ok := e.retryable[conflict.Classify(err)]
	return ok
}

// withRetry runs fn once, then up to MaxRetries more times with capped
// exponential backoff while it fails with an allow-listed error kind.
func (e *Engine) withRetry(ctx context.Context, key string, fn func(context.Context) error) (int, error) {
	backoff := retry.WithMaxRetries(uint64(max(e.cfg.MaxRetries, 0)),
		retry.WithCappedDuration(e.cfg.MaxBackoff, retry.NewExponential(e.cfg.InitialBackoff)))

	attempts := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		err := fn(ctx)
		if err == nil {
			return nil
		}

		if e.isRetryable(err) {
			e.logger.Debug().
				Err(err).
				Str("func", "*Engine.withRetry").
				Str("key", key).
				Int("attempt", attempts).
				Str("kind", conflict.Classify(err).String()).
				Msg("retrying key")
			return retry.RetryableError(err)
		}
		return err
	})

	if err != nil && ctx.Err() != nil {
		err = apperrors.Wrap(apperrors.KindCancelled, "Engine.withRetry", err)
	}
	return attempts, err
}
