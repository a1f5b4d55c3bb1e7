package wrap

import (
	"context"
)

type (
	// LogCtx holds contextual information for logging
	LogCtx struct {
		Action    string
		RequestID string
		RideID    string
		DriverID  string
		RiderID   string
		ConnID    string
	}

	// logCtxKeyStruct is an unexported type for context keys defined in this package.
	logCtxKeyStruct struct{}
)

// LogCtxKey is the key for log context values
var LogCtxKey = &logCtxKeyStruct{}

func get(ctx context.Context) LogCtx {
	if lc, ok := ctx.Value(LogCtxKey).(LogCtx); ok {
		return lc
	}
	return LogCtx{}
}

// WithAction adds or updates the Action in the LogCtx within the context
func WithAction(ctx context.Context, action string) context.Context {
	lc := get(ctx)
	lc.Action = action
	return context.WithValue(ctx, LogCtxKey, lc)
}

// WithRequestID adds or updates the RequestID in the LogCtx within the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	lc := get(ctx)
	lc.RequestID = requestID
	return context.WithValue(ctx, LogCtxKey, lc)
}

// WithRideID adds or updates the RideID in the LogCtx within the context
func WithRideID(ctx context.Context, rideID string) context.Context {
	lc := get(ctx)
	lc.RideID = rideID
	return context.WithValue(ctx, LogCtxKey, lc)
}

// WithDriverID adds or updates the DriverID in the LogCtx within the context
func WithDriverID(ctx context.Context, driverID string) context.Context {
	lc := get(ctx)
	lc.DriverID = driverID
	return context.WithValue(ctx, LogCtxKey, lc)
}

// WithRiderID adds or updates the RiderID in the LogCtx within the context
func WithRiderID(ctx context.Context, riderID string) context.Context {
	lc := get(ctx)
	lc.RiderID = riderID
	return context.WithValue(ctx, LogCtxKey, lc)
}

// WithConnID adds or updates the websocket connection id in the LogCtx
func WithConnID(ctx context.Context, connID string) context.Context {
	lc := get(ctx)
	lc.ConnID = connID
	return context.WithValue(ctx, LogCtxKey, lc)
}

// GetRequestID returns the RequestID from the context, if any.
func GetRequestID(ctx context.Context) string {
	return get(ctx).RequestID
}
