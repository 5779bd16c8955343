// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package vision

import (
	"github.com/AleutianAI/AleutianVision/services/vision/dataset"
	"github.com/AleutianAI/AleutianVision/services/vision/eval"
	"github.com/AleutianAI/AleutianVision/services/vision/labels"
)

// CreateDatasetRequest is the request for POST /v1/vision/datasets.
type CreateDatasetRequest struct {
	// Name uniquely identifies the dataset. Must not contain '/'.
	Name string `json:"name" binding:"required"`

	// MediaType is "image" or "video". Default: "image".
	MediaType string `json:"media_type"`
}

// DatasetResponse describes one dataset.
type DatasetResponse struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type"`

	// SampleCount is the number of samples in the dataset.
	SampleCount int `json:"sample_count"`
}

// DatasetsResponse is the response for GET /v1/vision/datasets.
type DatasetsResponse struct {
	Datasets []string `json:"datasets"`
}

// AddSampleRequest is the request for POST /v1/vision/datasets/:name/samples.
type AddSampleRequest struct {
	// ID is optional; a fresh UUID is assigned when empty.
	ID string `json:"id"`

	// Filepath is the source media path, if known.
	Filepath string `json:"filepath"`

	// Labels maps label field names to detection sets.
	Labels map[string]*labels.Detections `json:"labels"`

	// Frames holds per-frame labels for video samples.
	Frames []*dataset.Frame `json:"frames"`
}

// AddSampleResponse is the response for POST /v1/vision/datasets/:name/samples.
type AddSampleResponse struct {
	// ID is the stored sample's ID.
	ID string `json:"id"`
}

// EvaluateRequest is the request for POST /v1/vision/datasets/:name/evaluate.
type EvaluateRequest struct {
	// PredField is the label field holding predictions. Use the "frames."
	// prefix for frame-scoped fields on video datasets.
	PredField string `json:"pred_field" binding:"required"`

	// GTField is the ground-truth label field. Default: "ground_truth".
	GTField string `json:"gt_field"`

	// EvalKey names the run for persistence. Empty runs are ephemeral.
	EvalKey string `json:"eval_key"`

	// Method selects a matching method. Default: "coco".
	Method string `json:"method"`

	// Classes restricts the reported class axes. Optional.
	Classes []string `json:"classes"`

	// Missing is the substitute label for unmatched objects. Default: "none".
	Missing string `json:"missing"`

	// Overrides are named method option overrides. Unknown names are
	// rejected.
	Overrides map[string]any `json:"overrides"`
}

// EvaluateResponse is the response for POST /v1/vision/datasets/:name/evaluate.
type EvaluateResponse struct {
	// EvalKey echoes the request's eval key, if any.
	EvalKey string `json:"eval_key,omitempty"`

	// Tally is the run-wide TP/FP/FN reduction.
	Tally eval.Tally `json:"tally"`

	// Classes are the confusion matrix axes.
	Classes []string `json:"classes"`

	// ConfusionMatrix holds ground-truth rows by predicted columns.
	ConfusionMatrix [][]int `json:"confusion_matrix"`

	// Report holds per-class precision/recall/F1/support.
	Report map[string]eval.ClassMetrics `json:"report"`

	// Metrics holds the aggregate classification metrics.
	Metrics eval.AggregateMetrics `json:"metrics"`

	// MatchCount is the total number of matches produced.
	MatchCount int `json:"match_count"`
}

// EvalInfoResponse is the response for GET /v1/vision/datasets/:name/evaluations/:key.
type EvalInfoResponse struct {
	EvalKey   string `json:"eval_key"`
	PredField string `json:"pred_field"`
	GTField   string `json:"gt_field"`
	Method    string `json:"method"`

	// Config is the resolved method configuration of the run.
	Config any `json:"config"`
}

// MethodsResponse is the response for GET /v1/vision/methods.
type MethodsResponse struct {
	Methods []string `json:"methods"`
}

// HealthResponse is the response for GET /v1/vision/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// ReadyResponse is the response for GET /v1/vision/ready.
type ReadyResponse struct {
	// Ready is true if the dataset store is reachable.
	Ready bool `json:"ready"`

	// DatasetCount is the number of datasets in the store.
	DatasetCount int `json:"dataset_count"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`
}
