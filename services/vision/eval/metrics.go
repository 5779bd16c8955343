// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package eval

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for evaluation operations.
var (
	tracer = otel.Tracer("aleutian.vision.eval")
	meter  = otel.Meter("aleutian.vision.eval")
)

// Metrics for evaluation runs.
var (
	evalLatency metric.Float64Histogram
	evalTotal   metric.Int64Counter
	matchTotal  metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		evalLatency, err = meter.Float64Histogram(
			"vision_eval_duration_seconds",
			metric.WithDescription("Duration of detection evaluation runs"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		evalTotal, err = meter.Int64Counter(
			"vision_eval_runs_total",
			metric.WithDescription("Total number of detection evaluation runs"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		matchTotal, err = meter.Int64Counter(
			"vision_eval_matches_total",
			metric.WithDescription("Total matches produced, by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startEvalSpan creates a span for an evaluation run.
func startEvalSpan(ctx context.Context, method, predField, gtField string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "DetectionEval.Evaluate",
		trace.WithAttributes(
			attribute.String("eval.method", method),
			attribute.String("eval.pred_field", predField),
			attribute.String("eval.gt_field", gtField),
		),
	)
}

// setEvalSpanResult sets the result attributes on an evaluation span.
func setEvalSpanResult(span trace.Span, samples, matches int, success bool) {
	span.SetAttributes(
		attribute.Int("eval.samples", samples),
		attribute.Int("eval.matches", matches),
		attribute.Bool("eval.success", success),
	)
}

// recordEvalMetrics records metrics for a completed evaluation run.
func recordEvalMetrics(ctx context.Context, method string, duration time.Duration, tally Tally) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("method", method))
	evalLatency.Record(ctx, duration.Seconds(), attrs)
	evalTotal.Add(ctx, 1, attrs)

	matchTotal.Add(ctx, int64(tally.TP), metric.WithAttributes(attribute.String("outcome", "tp")))
	matchTotal.Add(ctx, int64(tally.FP), metric.WithAttributes(attribute.String("outcome", "fp")))
	matchTotal.Add(ctx, int64(tally.FN), metric.WithAttributes(attribute.String("outcome", "fn")))
}
