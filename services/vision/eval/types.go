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

	"github.com/AleutianAI/AleutianVision/services/vision/dataset"
)

const (
	// DefaultGTField is the label field evaluated against when no
	// ground-truth field is specified.
	DefaultGTField = "ground_truth"

	// DefaultMissing is the substitute label assigned to the absent side
	// of an unmatched object when building classification results.
	DefaultMissing = "none"

	// DefaultMethod is the pre-registered matching method identifier.
	DefaultMethod = "coco"
)

// Match is one matched (ground truth, prediction) label pair produced by a
// matching strategy for a single evaluation unit.
//
// An empty GTLabel marks an unmatched prediction (false positive); an empty
// PredLabel marks an unmatched ground-truth object (false negative); both
// present is a true positive. Both sides empty is invalid input and is not
// validated here — such matches corrupt tallies silently.
type Match struct {
	// GTLabel is the ground-truth object's label, or "" if unmatched.
	GTLabel string `json:"gt_label,omitempty"`

	// PredLabel is the predicted object's label, or "" if unmatched.
	PredLabel string `json:"pred_label,omitempty"`

	// GTID and PredID identify the matched objects, when known.
	GTID   string `json:"gt_id,omitempty"`
	PredID string `json:"pred_id,omitempty"`

	// IoU is the matching overlap reported by the strategy, when applicable.
	IoU float64 `json:"iou,omitempty"`
}

// Tally is the reduction of a match list into classification counts.
// TP+FP+FN always equals the number of matches reduced.
type Tally struct {
	TP int `json:"tp"`
	FP int `json:"fp"`
	FN int `json:"fn"`
}

// add accumulates another tally into this one.
func (t *Tally) add(other Tally) {
	t.TP += other.TP
	t.FP += other.FP
	t.FN += other.FN
}

// EvalInfo describes a recorded named evaluation run: which fields were
// compared and with what configuration.
type EvalInfo struct {
	// EvalKey is the caller-chosen identifier for the run.
	EvalKey string

	// PredField is the predictions label field that was evaluated.
	PredField string

	// GTField is the ground-truth label field that was evaluated against.
	GTField string

	// Config is the resolved method configuration used for the run.
	Config Config
}

// SampleSource is the collection the evaluation scans: ordered samples with
// label fields, per-sample persistence, and evaluation run records.
//
// *dataset.Dataset satisfies this interface.
type SampleSource interface {
	// MediaType reports whether samples are images or videos.
	MediaType() dataset.MediaType

	// ForEachSample calls fn for each sample in order, with the loaded
	// views restricted to the given label fields.
	ForEachSample(ctx context.Context, fields []string, fn func(*dataset.Sample) error) error

	// SaveSample persists a sample view's modifications.
	SaveSample(ctx context.Context, sample *dataset.Sample) error

	// DeleteSampleFields removes sample-level fields and per-detection
	// attributes from every sample.
	DeleteSampleFields(ctx context.Context, paths []string) error

	// DeleteFrameFields removes frame-level fields and per-detection
	// attributes from every frame of every sample.
	DeleteFrameFields(ctx context.Context, paths []string) error

	// RecordEvalRun stores run metadata, replacing any record with the
	// same key.
	RecordEvalRun(ctx context.Context, rec dataset.EvalRecord) error

	// GetEvalRun returns the run metadata stored under the key.
	GetEvalRun(ctx context.Context, evalKey string) (dataset.EvalRecord, error)

	// DeleteEvalRun removes the run metadata stored under the key.
	DeleteEvalRun(ctx context.Context, evalKey string) error
}

// Observer receives progress callbacks during an evaluation scan. All
// callbacks run on the scanning goroutine; implementations must not block.
type Observer interface {
	// EvalStarted is called once before the scan begins.
	EvalStarted(predField, gtField string)

	// SampleEvaluated is called after each sample's units are evaluated,
	// with the sample's summed tally.
	SampleEvaluated(sampleID string, tally Tally)

	// EvalCompleted is called once after the scan, with the total number
	// of accumulated matches.
	EvalCompleted(totalMatches int)
}

// EvaluateOptions configures a detection evaluation run. The zero value
// evaluates against DefaultGTField with the default method and missing
// label, without persistence.
type EvaluateOptions struct {
	// GTField is the ground-truth label field. Default: "ground_truth".
	GTField string

	// EvalKey names the run for persistence. Empty means the evaluation
	// is ephemeral: no per-sample fields and no run record are written.
	EvalKey string

	// Classes is the list of possible classes. When nil, the labels
	// observed in the matches are used.
	Classes []string

	// Missing is the substitute label for unmatched objects.
	// Default: "none".
	Missing string

	// Method selects a matching method from the registry. Ignored when
	// Config is set. Default: "coco".
	Method string

	// Config is an explicit method configuration. When set, Method is
	// ignored.
	Config Config

	// Overrides are named option overrides applied to the resolved
	// config. Unknown option names are rejected.
	Overrides map[string]any

	// Progress optionally receives per-sample progress callbacks.
	Progress Observer
}
