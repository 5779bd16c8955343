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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AleutianAI/AleutianVision/services/vision/dataset"
)

// recordEvalInfo persists the metadata of a completed keyed run, silently
// replacing any record under the same key.
func recordEvalInfo(ctx context.Context, src SampleSource, evalKey, predField, gtField string, cfg Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode %q config: %w", cfg.Method(), err)
	}

	rec := dataset.EvalRecord{
		EvalKey:    evalKey,
		PredField:  predField,
		GTField:    gtField,
		Method:     cfg.Method(),
		Config:     raw,
		RecordedAt: time.Now().UTC(),
	}
	if err := src.RecordEvalRun(ctx, rec); err != nil {
		return fmt.Errorf("record run %q: %w", evalKey, err)
	}
	return nil
}

// GetEvalInfo returns the metadata of a recorded evaluation run, with the
// method configuration reconstructed from its stored form.
//
// Outputs:
//
//	EvalInfo - The recorded fields and config.
//	error - ErrEvalNotFound if the key was never recorded or was cleared;
//	        ErrUnknownMethod if the recorded method is no longer
//	        registered.
func GetEvalInfo(ctx context.Context, src SampleSource, evalKey string) (EvalInfo, error) {
	rec, err := src.GetEvalRun(ctx, evalKey)
	if err != nil {
		if errors.Is(err, dataset.ErrEvalRunNotFound) {
			return EvalInfo{}, fmt.Errorf("%w: %s", ErrEvalNotFound, evalKey)
		}
		return EvalInfo{}, err
	}

	registry.mu.RLock()
	factory, ok := registry.factories[rec.Method]
	registry.mu.RUnlock()
	if !ok {
		return EvalInfo{}, fmt.Errorf("%w: %q", ErrUnknownMethod, rec.Method)
	}

	cfg := factory()
	if len(rec.Config) > 0 {
		if err := json.Unmarshal(rec.Config, cfg); err != nil {
			return EvalInfo{}, fmt.Errorf("decode %q config: %w", rec.Method, err)
		}
	}

	return EvalInfo{
		EvalKey:   rec.EvalKey,
		PredField: rec.PredField,
		GTField:   rec.GTField,
		Config:    cfg,
	}, nil
}
