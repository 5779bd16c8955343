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

	"github.com/AleutianAI/AleutianVision/services/vision/labels"
)

// Strategy is a matching policy: given the ground-truth and predicted
// detection sets for one image or frame, it produces label-pair matches.
//
// Contract: every ground-truth object appears in at most one match as the
// GT side; every prediction appears in at most one match as the pred side;
// unmatched objects on either side appear as matches with the opposite
// side empty.
//
// When evalKey is non-empty, strategies may annotate the detections with
// per-object match fields ("<evalKey>_id", "<evalKey>_iou").
type Strategy interface {
	EvaluateImage(ctx context.Context, gts, preds *labels.Detections, evalKey string) ([]Match, error)
}

// Config identifies a matching method and carries its options. A resolved
// config is immutable for the duration of a run.
type Config interface {
	// Method returns the registry identifier of the matching method.
	Method() string

	// SetOption applies a named option override. Unknown names must be
	// rejected with ErrUnknownOption.
	SetOption(name string, value any) error

	// Build constructs the ready-to-use matching strategy.
	Build() (Strategy, error)
}

// UnimplementedStrategy is the base for strategies without a concrete
// matching policy. Embed it to satisfy Strategy while a policy is under
// development; invoking it fails with ErrNotImplemented.
type UnimplementedStrategy struct{}

// EvaluateImage always fails with ErrNotImplemented.
func (UnimplementedStrategy) EvaluateImage(ctx context.Context, gts, preds *labels.Detections, evalKey string) ([]Match, error) {
	return nil, ErrNotImplemented
}
