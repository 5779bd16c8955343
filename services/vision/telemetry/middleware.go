// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	httpLatency  metric.Float64Histogram
	httpRequests metric.Int64Counter

	httpMetricsOnce sync.Once
)

// Middleware returns Gin middleware that traces and measures every request.
//
// Description:
//
//	Wraps each request in a server span with standard HTTP attributes and
//	records request count and latency by route and status class. Spans for
//	5xx responses are marked as errors.
//
// Inputs:
//
//	serviceName - Name for the tracer and meter (e.g., "vision.http").
//
// Thread Safety: Safe for concurrent use.
func Middleware(serviceName string) gin.HandlerFunc {
	tracer := otel.Tracer(serviceName)
	meter := otel.Meter(serviceName)

	httpMetricsOnce.Do(func() {
		var err error
		httpLatency, err = meter.Float64Histogram(
			"vision_http_request_duration_seconds",
			metric.WithDescription("HTTP request duration"),
			metric.WithUnit("s"),
		)
		if err != nil {
			slog.Warn("Failed to create HTTP latency histogram", "error", err)
		}
		httpRequests, err = meter.Int64Counter(
			"vision_http_requests_total",
			metric.WithDescription("Total HTTP requests"),
		)
		if err != nil {
			slog.Warn("Failed to create HTTP request counter", "error", err)
		}
	})

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		ctx, span := tracer.Start(c.Request.Context(), c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", route),
				attribute.String("http.target", c.Request.URL.Path),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= 500 {
			span.SetStatus(codes.Error, "server error")
		}

		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("route", route),
			attribute.Int("status", status),
		)
		if httpLatency != nil {
			httpLatency.Record(ctx, time.Since(start).Seconds(), attrs)
		}
		if httpRequests != nil {
			httpRequests.Add(ctx, 1, attrs)
		}
	}
}
