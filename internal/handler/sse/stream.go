package sse

import (
	"context"
	"time"
)

// VersionFunc reads the current value of a change counter
type VersionFunc func(ctx context.Context) (uint64, error)

// StreamVersions emits a "change" event whenever version moves past last,
// with keep-alive comments in between. It returns when ctx is done or a
// write fails. Read errors are retried on the next tick.
func StreamVersions(ctx context.Context, w *Writer, cfg *Config, last uint64, version VersionFunc) error {
	poll := time.NewTicker(cfg.PollInterval)
	defer poll.Stop()
	keepAlive := time.NewTicker(cfg.KeepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-keepAlive.C:
			if err := w.WriteKeepAlive(); err != nil {
				return err
			}

		case <-poll.C:
			current, err := version(ctx)
			if err != nil || current == last {
				continue
			}
			last = current
			if err := w.WriteEvent(current, "change", map[string]uint64{"version": current}); err != nil {
				return err
			}
		}
	}
}
