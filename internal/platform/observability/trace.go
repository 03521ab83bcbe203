package observability

import (
	"encoding/binary"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"finitefield.org/storenav/internal/platform/requestctx"
)

// CloudTraceHeader carries the trace context set by Google front ends:
// TRACE_ID/SPAN_ID;o=OPTIONS, with SPAN_ID in decimal.
const CloudTraceHeader = "X-Cloud-Trace-Context"

var tracer = otel.Tracer("finitefield.org/storenav/internal/platform/observability")

// TraceMiddleware continues the trace named by X-Cloud-Trace-Context, opens a
// server span for the request, and stores the trace on the request context
// so RequestLoggerMiddleware can correlate log entries with it.
func TraceMiddleware(projectID string) func(http.Handler) http.Handler {
	projectID = strings.TrimSpace(projectID)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if parent, ok := parseCloudTrace(r.Header.Get(CloudTraceHeader)); ok {
				ctx = trace.ContextWithRemoteSpanContext(ctx, parent)
			}

			ctx, span := tracer.Start(ctx, SanitizeMethod(r.Method),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(requestAttributes(r)...),
			)
			defer span.End()

			info := requestctx.TraceInfo{ProjectID: projectID}
			if sc := span.SpanContext(); sc.IsValid() {
				info.TraceID = sc.TraceID().String()
				info.SpanID = sc.SpanID().String()
				info.Sampled = sc.IsSampled()
				w.Header().Set(CloudTraceHeader, formatCloudTrace(sc))
			}

			recorder := newResponseRecorder(w)
			r = r.WithContext(requestctx.WithTrace(ctx, info))
			next.ServeHTTP(recorder, r)

			route := routePattern(r)
			span.SetName(SanitizeMethod(r.Method) + " " + SanitizeRoute(route))
			span.SetAttributes(
				semconv.HTTPRoute(route),
				semconv.HTTPResponseStatusCode(recorder.Status()),
			)
			if recorder.Status() >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(recorder.Status()))
			}
		})
	}
}

// parseCloudTrace decodes an X-Cloud-Trace-Context value into a remote span
// context. Span ids are decimal per the header format; short hex ids are
// accepted for clients that send them.
func parseCloudTrace(header string) (trace.SpanContext, bool) {
	traceHex, rest, ok := strings.Cut(strings.TrimSpace(header), "/")
	if !ok || len(traceHex) != 32 {
		return trace.SpanContext{}, false
	}
	traceID, err := trace.TraceIDFromHex(strings.ToLower(traceHex))
	if err != nil {
		return trace.SpanContext{}, false
	}

	spanPart, options, _ := strings.Cut(rest, ";")
	spanID, ok := parseCloudSpanID(strings.TrimSpace(spanPart))
	if !ok {
		return trace.SpanContext{}, false
	}

	var flags trace.TraceFlags
	if strings.TrimSpace(options) == "o=1" {
		flags = trace.FlagsSampled
	}
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: flags,
		Remote:     true,
	}), true
}

func parseCloudSpanID(value string) (trace.SpanID, bool) {
	var id trace.SpanID
	if n, err := strconv.ParseUint(value, 10, 64); err == nil {
		binary.BigEndian.PutUint64(id[:], n)
		return id, id.IsValid()
	}
	if value == "" || len(value) > 16 {
		return id, false
	}
	n, err := strconv.ParseUint(value, 16, 64)
	if err != nil {
		return id, false
	}
	binary.BigEndian.PutUint64(id[:], n)
	return id, id.IsValid()
}

func formatCloudTrace(sc trace.SpanContext) string {
	spanID := sc.SpanID()
	option := "0"
	if sc.IsSampled() {
		option = "1"
	}
	return sc.TraceID().String() + "/" + strconv.FormatUint(binary.BigEndian.Uint64(spanID[:]), 10) + ";o=" + option
}

func requestAttributes(r *http.Request) []attribute.KeyValue {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	attrs := []attribute.KeyValue{
		semconv.HTTPRequestMethodKey.String(SanitizeMethod(r.Method)),
		semconv.URLScheme(scheme),
		semconv.URLPath(SanitizeRoute(r.URL.Path)),
	}
	if r.Host != "" {
		attrs = append(attrs, semconv.ServerAddress(r.Host))
	}
	if ua := r.UserAgent(); ua != "" {
		attrs = append(attrs, semconv.UserAgentOriginal(ua))
	}
	if htmx := r.Header.Get("HX-Request"); htmx != "" {
		attrs = append(attrs, attribute.Bool("htmx.request", htmx == "true"))
	}
	return attrs
}
