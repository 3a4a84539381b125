package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/pitabwire/util"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys shared by spans and metrics.
//
//nolint:gochecknoglobals // OpenTelemetry attribute keys must be global for reuse
var (
	AttrMethodKey  = attribute.Key("messageformat_method")
	AttrPackageKey = attribute.Key("messageformat_package")
	AttrStatusKey  = attribute.Key("messageformat_status")
	AttrErrorKey   = attribute.Key("messageformat_error")
	AttrPathKey    = attribute.Key("messageformat_catalog_path")
	AttrLocaleKey  = attribute.Key("messageformat_locale")
)

type contextKey string

const (
	startTimeContextKey  contextKey = "spanStartTimeCtxKey"
	methodNameContextKey contextKey = "methodNameCtxKey"
)

type tracer struct {
	name           string
	tracer         trace.Tracer
	latencyMeasure metric.Float64Histogram
}

// NewTracer creates a new tracer for a package on the global providers.
func NewTracer(name string, options ...trace.TracerOption) Tracer {
	return NewTracerFrom(nil, nil, name, options...)
}

// NewTracerFrom creates a tracer on explicit providers; nil selects the global one.
func NewTracerFrom(
	tp trace.TracerProvider,
	mp metric.MeterProvider,
	name string,
	options ...trace.TracerOption,
) Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &tracer{
		name:           name,
		tracer:         tp.Tracer(name, options...),
		latencyMeasure: LatencyMeasure(mp, name),
	}
}

// Start creates and starts a new span and returns the updated context and span.
// The caller is responsible for ending the span with End.
//
//nolint:spancheck // spans are returned to the caller for lifecycle management
func (t *tracer) Start(
	ctx context.Context,
	spanName string,
	options ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	fullName := t.name + "/" + spanName

	options = append(options, trace.WithAttributes(AttrMethodKey.String(spanName)))

	sCtx, span := t.tracer.Start(ctx, spanName, options...)
	sCtx = context.WithValue(sCtx, startTimeContextKey, time.Now())
	return context.WithValue(sCtx, methodNameContextKey, fullName), span
}

// End completes a span, records err on it and feeds the latency histogram.
func (t *tracer) End(ctx context.Context, span trace.Span, err error, options ...trace.SpanEndOption) {
	startTime, ok := ctx.Value(startTimeContextKey).(time.Time)
	if !ok {
		util.Log(ctx).Error("telemetry: span context carries no start time")
		span.End(options...)
		return
	}
	elapsed := time.Since(startTime)

	if err != nil {
		options = append(options, trace.WithStackTrace(true))
		span.SetAttributes(AttrErrorKey.String(err.Error()))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End(options...)

	methodName, _ := ctx.Value(methodNameContextKey).(string)

	t.latencyMeasure.Record(ctx,
		float64(elapsed.Milliseconds()),
		metric.WithAttributes(
			AttrStatusKey.String(ErrorCode(err)),
			AttrMethodKey.String(methodName)),
	)
}

func ErrorCode(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "deadline exceeded"
	}
	return "err"
}
