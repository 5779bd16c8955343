// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package vision provides the detection evaluation HTTP service.
//
// The service exposes endpoints for:
//   - Managing datasets of labeled images and videos
//   - Adding and fetching samples
//   - Running detection evaluations and fetching their results
//   - Inspecting and clearing recorded evaluation runs
package vision

import (
	"context"
	"fmt"
	"time"

	"github.com/AleutianAI/AleutianVision/services/vision/dataset"
	"github.com/AleutianAI/AleutianVision/services/vision/eval"

	// Register the built-in COCO matching method.
	_ "github.com/AleutianAI/AleutianVision/services/vision/eval/coco"
)

// ServiceConfig configures the vision service.
type ServiceConfig struct {
	// EvalTimeout bounds a single evaluation run over the whole dataset.
	// Default: 10 minutes.
	EvalTimeout time.Duration

	// MaxSampleDetections caps the detections accepted per label field of
	// one sample. Default: 10000.
	MaxSampleDetections int
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		EvalTimeout:         10 * time.Minute,
		MaxSampleDetections: 10000,
	}
}

// Service implements dataset management and evaluation orchestration over a
// dataset store.
//
// Thread Safety: Safe for concurrent use; all state lives in the store.
type Service struct {
	config ServiceConfig
	store  *dataset.Store
}

// NewService creates a service over the given store.
func NewService(store *dataset.Store, config ServiceConfig) *Service {
	if config.EvalTimeout <= 0 {
		config.EvalTimeout = DefaultServiceConfig().EvalTimeout
	}
	if config.MaxSampleDetections <= 0 {
		config.MaxSampleDetections = DefaultServiceConfig().MaxSampleDetections
	}
	return &Service{config: config, store: store}
}

// CreateDataset creates a dataset with the given media type ("image" when
// empty).
func (s *Service) CreateDataset(ctx context.Context, name, mediaType string) (*dataset.Dataset, error) {
	mt := dataset.MediaType(mediaType)
	if mediaType == "" {
		mt = dataset.MediaTypeImage
	}
	return s.store.CreateDataset(ctx, name, mt)
}

// ListDatasets returns the names of all datasets.
func (s *Service) ListDatasets(ctx context.Context) ([]string, error) {
	return s.store.ListDatasets(ctx)
}

// GetDataset returns a handle to a dataset together with its sample count.
func (s *Service) GetDataset(ctx context.Context, name string) (*dataset.Dataset, int, error) {
	ds, err := s.store.LoadDataset(ctx, name)
	if err != nil {
		return nil, 0, err
	}
	n, err := ds.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return ds, n, nil
}

// DeleteDataset removes a dataset and everything in it.
func (s *Service) DeleteDataset(ctx context.Context, name string) error {
	return s.store.DeleteDataset(ctx, name)
}

// AddSample stores a sample in the named dataset.
//
// Outputs:
//
//	string - The stored sample's ID (assigned when the request omitted one).
//	error - dataset.ErrDatasetNotFound, or a size limit violation.
func (s *Service) AddSample(ctx context.Context, datasetName string, sample *dataset.Sample) (string, error) {
	for field, dets := range sample.Labels {
		if dets.Len() > s.config.MaxSampleDetections {
			return "", fmt.Errorf("field %q has %d detections, limit is %d",
				field, dets.Len(), s.config.MaxSampleDetections)
		}
	}

	ds, err := s.store.LoadDataset(ctx, datasetName)
	if err != nil {
		return "", err
	}
	if err := ds.AddSample(ctx, sample); err != nil {
		return "", err
	}
	return sample.ID, nil
}

// GetSample returns a sample from the named dataset.
func (s *Service) GetSample(ctx context.Context, datasetName, sampleID string) (*dataset.Sample, error) {
	ds, err := s.store.LoadDataset(ctx, datasetName)
	if err != nil {
		return nil, err
	}
	return ds.GetSample(ctx, sampleID)
}

// Evaluate runs a detection evaluation over the named dataset.
//
// Description:
//
//	Translates the API request into evaluation options and runs the scan
//	under the configured timeout. Keyed runs persist per-sample fields and
//	a run record; ephemeral runs only return results.
func (s *Service) Evaluate(ctx context.Context, datasetName string, req EvaluateRequest) (*eval.DetectionResults, error) {
	ds, err := s.store.LoadDataset(ctx, datasetName)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.EvalTimeout)
	defer cancel()

	return eval.EvaluateDetections(ctx, ds, req.PredField, &eval.EvaluateOptions{
		GTField:   req.GTField,
		EvalKey:   req.EvalKey,
		Classes:   req.Classes,
		Missing:   req.Missing,
		Method:    req.Method,
		Overrides: req.Overrides,
	})
}

// EvalInfo returns the recorded metadata of a named evaluation run.
func (s *Service) EvalInfo(ctx context.Context, datasetName, evalKey string) (eval.EvalInfo, error) {
	ds, err := s.store.LoadDataset(ctx, datasetName)
	if err != nil {
		return eval.EvalInfo{}, err
	}
	return eval.GetEvalInfo(ctx, ds, evalKey)
}

// ClearEvaluation removes everything a keyed evaluation run wrote.
func (s *Service) ClearEvaluation(ctx context.Context, datasetName, evalKey string) error {
	ds, err := s.store.LoadDataset(ctx, datasetName)
	if err != nil {
		return err
	}
	return eval.ClearEvaluation(ctx, ds, evalKey)
}

// Methods returns the registered matching method identifiers.
func (s *Service) Methods() []string {
	return eval.ListMethods()
}
