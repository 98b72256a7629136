package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Error type classification constants, one per pipeline failure category.
const (
	// ErrTypeFatalSource marks an unrecoverable error reading a source stream.
	ErrTypeFatalSource = "fatal_source"
	// ErrTypeMissingSource marks a configured source that never produced data.
	ErrTypeMissingSource = "missing_source"
	// ErrTypeOrphanStop marks a Stop event with no matching Start.
	ErrTypeOrphanStop = "orphan_stop"
	// ErrTypeDanglingStart marks a Start event never closed before shutdown.
	ErrTypeDanglingStart = "dangling_start"
	// ErrTypeSinkBackpressure marks a sink that could not accept a batch.
	ErrTypeSinkBackpressure = "sink_backpressure"
	// ErrTypeTimeRegression marks an event timestamp earlier than one already processed.
	ErrTypeTimeRegression = "time_regression"
	// ErrTypeCancel marks a context cancellation or shutdown-triggered abort.
	ErrTypeCancel = "cancel"
	// ErrTypeInternal marks an unexpected internal error.
	ErrTypeInternal = "internal"
)

// Error source classification constants.
const (
	ErrSourceStream    = "stream"
	ErrSourceCorrelate = "correlate"
	ErrSourceSink      = "sink"
	ErrSourceInternal  = "internal"
)

// RecordSpanError records an error on a span with structured classification
// attributes (error.type and optionally error.source).
func RecordSpanError(span trace.Span, err error, errType, errSource string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	attrs := []attribute.KeyValue{
		attribute.String("error.type", errType),
	}

	if errSource != "" {
		attrs = append(attrs, attribute.String("error.source", errSource))
	}

	span.SetAttributes(attrs...)
}

// errPanic is a sentinel error for recovered panics.
var errPanic = errors.New("panic recovered")

// ConnMiddleware wraps a live-capture connection, starting a span for its
// lifetime and recovering panics from handle so a single malformed
// connection cannot bring down the listener. It is the TCP-listener
// analogue of an access log: one span and one summary log line per
// accepted connection.
func ConnMiddleware(tracer trace.Tracer, logger *slog.Logger, conn net.Conn, handle func(net.Conn)) {
	start := time.Now()

	ctx, span := tracer.Start(context.Background(), "source.connection", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	span.SetAttributes(attribute.String("source.remote_addr", conn.RemoteAddr().String()))

	defer func() {
		if r := recover(); r != nil {
			RecordSpanError(span, fmt.Errorf("%w: %v", errPanic, r), ErrTypeInternal, ErrSourceInternal)
			span.AddEvent("panic.stack", trace.WithAttributes(
				attribute.String("stack", string(debug.Stack())),
			))

			_ = conn.Close()
		}

		logger.InfoContext(ctx, "source.connection.closed",
			"remote_addr", conn.RemoteAddr().String(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}()

	handle(conn)
}
