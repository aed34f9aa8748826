package ingest

import (
	"context"
	"log/slog"
	"os"
)

// Watch runs ing on every file StartWatcher reports until ctx is done.
// Per-file failures are logged and reported through onResult; they do not
// stop the loop. Files that vanished before processing are skipped.
func Watch(ctx context.Context, ing Ingestor, cfg WatchConfig, logger *slog.Logger, onResult func(IngestionResult)) error {
	if logger == nil {
		logger = slog.Default()
	}
	events, errs, err := StartWatcher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			logger.Info("ingest.watch.stop")
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("ingest.watch.error", "error", err)
		case path, ok := <-events:
			if !ok {
				return nil
			}
			if _, err := os.Stat(path); err != nil {
				logger.Debug("ingest.watch.gone", "path", path)
				continue
			}
			res, err := ing.IngestPath(ctx, path)
			if err != nil {
				res.Err = err.Error()
			}
			if onResult != nil {
				onResult(res)
			}
		}
	}
}
