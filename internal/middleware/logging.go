package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// LoggingInterceptor returns a Connect interceptor that logs every RPC call.
// It logs the procedure name, user ID, duration, and any error codes/messages.
// Client errors (invalid input, missing records) log at WARN, server faults at ERROR.
//
// It may sit outside the auth interceptor: the user ID set further in is picked up
// after the call returns, and rejected calls are logged without one.
func LoggingInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure
			userID := GetUserID(ctx)
			ctx, c := withCaller(ctx)

			resp, err := next(ctx, req)

			if c.userID != "" {
				userID = c.userID
			}
			attrs := []any{
				"procedure", procedure,
				"user_id", userID,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if err == nil {
				logger.InfoContext(ctx, "RPC ok", attrs...)
				return resp, nil
			}

			var connectErr *connect.Error
			if errors.As(err, &connectErr) && !isServerFault(connectErr.Code()) {
				logger.WarnContext(ctx, "RPC error", append(attrs,
					"code", connectErr.Code().String(),
					"error", connectErr.Message(),
				)...)
			} else {
				logger.ErrorContext(ctx, "RPC error", append(attrs,
					"code", connect.CodeOf(err).String(),
					"error", err,
				)...)
			}
			return resp, err
		}
	}
}

func isServerFault(code connect.Code) bool {
	switch code {
	case connect.CodeInternal, connect.CodeUnknown, connect.CodeDataLoss, connect.CodeUnavailable:
		return true
	}
	return false
}
