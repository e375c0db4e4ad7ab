package tracing

import (
	"context"
	"encoding/json"
	"runtime/debug"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/opentracing/opentracing-go/log"

	"github.com/inboxforge/syncengine/internal/logger"
)

const (
	SpanTagMailboxID = "mailbox-id"
	SpanTagUserID    = "user-id"
	SpanTagComponent = "component"
)

const (
	SpanTagComponentRepository = "repository"
	SpanTagComponentService    = "service"
	SpanTagComponentFetcher    = "imapFetcher"
	SpanTagComponentCron       = "cronJob"
)

func StartTracerSpan(ctx context.Context, operationName string) (opentracing.Span, context.Context) {
	span := opentracing.GlobalTracer().StartSpan(operationName)
	return span, opentracing.ContextWithSpan(ctx, span)
}

func SetDefaultServiceSpanTags(ctx context.Context, span opentracing.Span) {
	TagComponentService(span)
}

func SetDefaultRepositorySpanTags(ctx context.Context, span opentracing.Span) {
	TagComponentRepository(span)
}

func TraceErr(span opentracing.Span, err error, fields ...log.Field) {
	if span == nil || err == nil {
		return
	}
	ext.LogError(span, err, fields...)
}

func LogObjectAsJson(span opentracing.Span, name string, object any) {
	if object == nil {
		span.LogFields(log.String(name, "nil"))
		return
	}
	jsonObject, err := json.Marshal(object)
	if err == nil {
		span.LogFields(log.String(name, string(jsonObject)))
	} else {
		span.LogFields(log.Object(name, object))
	}
}

func TagMailboxID(span opentracing.Span, mailboxID string) {
	if mailboxID != "" {
		span.SetTag(SpanTagMailboxID, mailboxID)
	}
}

func TagUserID(span opentracing.Span, userID string) {
	if userID != "" {
		span.SetTag(SpanTagUserID, userID)
	}
}

func TagComponentRepository(span opentracing.Span) {
	span.SetTag(SpanTagComponent, SpanTagComponentRepository)
}

func TagComponentService(span opentracing.Span) {
	span.SetTag(SpanTagComponent, SpanTagComponentService)
}

func TagComponentFetcher(span opentracing.Span) {
	span.SetTag(SpanTagComponent, SpanTagComponentFetcher)
}

func TagComponentCron(span opentracing.Span) {
	span.SetTag(SpanTagComponent, SpanTagComponentCron)
}

// RecoverAndLogToJaeger is deferred at the top of every cron job and worker
// goroutine so a panic in one mailbox's sync cycle can't take the process
// down; it reports the panic as a span and logs it instead of propagating.
func RecoverAndLogToJaeger(appLogger logger.Logger) {
	if r := recover(); r != nil {
		tracer := opentracing.GlobalTracer()
		span := tracer.StartSpan("panic-recovery")
		defer span.Finish()

		stackTrace := string(debug.Stack())
		span.LogKV(
			"event", "error",
			"error.object", r,
			"stack", stackTrace,
		)
		span.SetTag("error", true)

		appLogger.Errorf("Recovered from panic: %v\nStack trace:\n%s", r, stackTrace)
	}
}
