package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

const defaultDebounce = 500 * time.Millisecond

// watchLoop processes each watched path as it settles, one at a time, until
// the events channel closes.
func watchLoop(ctx context.Context, r *runner, events <-chan string, errs <-chan error, enc *json.Encoder, logger *slog.Logger) {
	for {
		select {
		case p, ok := <-events:
			if !ok {
				return
			}
			out, err := r.one(ctx, p)
			if err != nil {
				logger.Warn("extract.file.failed", "path", p, "error", err)
			}
			_ = enc.Encode(result{Path: p, Outcome: out})
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Error("extract.watch.error", "error", err)
		}
	}
}
