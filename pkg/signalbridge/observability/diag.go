package observability

import "log/slog"

// EnrichLogger adds bridge context to a logger.
// Returns a new logger with session_id and sdk_surface fields.
func EnrichLogger(logger *slog.Logger, sessionID, sdkSurface string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("session_id", sessionID),
		slog.String("sdk_surface", sdkSurface),
	)
}

// LogSinkFailure logs a captured per-sink delivery failure.
func LogSinkFailure(logger *slog.Logger, sink, detail string) {
	if logger == nil {
		return
	}
	logger.Error("sink delivery failed",
		slog.String("sink", sink),
		slog.String("error", detail),
	)
}

// LogRateLimitedDelivery logs a declined delivery (non-fatal).
func LogRateLimitedDelivery(logger *slog.Logger, sink string) {
	if logger == nil {
		return
	}
	logger.Debug("sink delivery rate limited",
		slog.String("sink", sink),
	)
}

// LogContractWriteFailure logs a contract-log write failure (non-fatal).
func LogContractWriteFailure(logger *slog.Logger, sink string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("contract log write failed",
		slog.String("sink", sink),
		slog.String("error", err.Error()),
	)
}
