// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package coco implements the built-in COCO-style matching strategy:
// greedy IoU-threshold assignment of predictions to ground truth.
//
// The package registers itself under the method identifier "coco"; import
// it for side effects to make the method available:
//
//	import _ "github.com/AleutianAI/AleutianVision/services/vision/eval/coco"
package coco

import (
	"context"
	"fmt"
	"sort"

	"github.com/AleutianAI/AleutianVision/services/vision/eval"
	"github.com/AleutianAI/AleutianVision/services/vision/labels"
)

// Method is the registry identifier of this strategy.
const Method = "coco"

func init() {
	eval.RegisterMethod(Method, func() eval.Config {
		return DefaultConfig()
	})
}

// Config configures COCO-style matching.
type Config struct {
	// IoU is the minimum intersection-over-union for a prediction to
	// match a ground-truth object.
	IoU float64 `json:"iou" validate:"gte=0,lte=1"`

	// Classwise restricts matching to same-label pairs.
	Classwise bool `json:"classwise"`

	// IscrowdAttr names the detection attribute marking crowd regions.
	// Predictions overlapping an already-matched crowd object are
	// ignored rather than counted as false positives.
	IscrowdAttr string `json:"iscrowd" validate:"required"`
}

// DefaultConfig returns the standard COCO matching configuration:
// IoU 0.50, classwise matching, "iscrowd" crowd attribute.
func DefaultConfig() *Config {
	return &Config{
		IoU:         0.50,
		Classwise:   true,
		IscrowdAttr: "iscrowd",
	}
}

// Method returns the registry identifier.
func (c *Config) Method() string {
	return Method
}

// SetOption applies a named option override. Unknown names fail with
// eval.ErrUnknownOption; mistyped values fail with a descriptive error.
func (c *Config) SetOption(name string, value any) error {
	switch name {
	case "iou":
		v, ok := toFloat(value)
		if !ok {
			return fmt.Errorf("option %q: expected number, got %T", name, value)
		}
		c.IoU = v
	case "classwise":
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("option %q: expected bool, got %T", name, value)
		}
		c.Classwise = v
	case "iscrowd":
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("option %q: expected string, got %T", name, value)
		}
		c.IscrowdAttr = v
	default:
		return fmt.Errorf("%w: %q for method %q", eval.ErrUnknownOption, name, Method)
	}
	return nil
}

// Build constructs the matcher for this configuration.
func (c *Config) Build() (eval.Strategy, error) {
	cfg := *c
	return &Matcher{config: cfg}, nil
}

// Matcher performs greedy IoU-threshold bipartite matching.
type Matcher struct {
	config Config
}

// EvaluateImage matches the predicted objects in one image or frame
// against the ground-truth objects.
//
// Description:
//
//	Predictions are visited in confidence-descending order; each takes
//	the unmatched ground-truth object with the highest IoU at or above
//	the threshold (same-label objects only when classwise). Matched
//	pairs, unmatched predictions (empty GT side) and unmatched ground
//	truth (empty pred side) are all emitted. A prediction whose only
//	qualifying overlaps are already-matched crowd objects is dropped
//	entirely, per COCO convention; an eligible unmatched ground truth
//	always takes precedence over a matched crowd region.
//
//	When evalKey is non-empty, "<evalKey>_id" and "<evalKey>_iou"
//	attributes are written to both sides of each matched pair, and every
//	surviving detection gets a "<evalKey>" outcome attribute ("tp",
//	"fp" or "fn"). Dropped crowd duplicates get no outcome.
func (m *Matcher) EvaluateImage(ctx context.Context, gts, preds *labels.Detections, evalKey string) ([]eval.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	gtList := detList(gts)
	predList := detList(preds)

	// Confidence-descending, stable for equal scores.
	order := make([]int, len(predList))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return predList[order[i]].Confidence > predList[order[j]].Confidence
	})

	gtMatched := make([]bool, len(gtList))
	matches := make([]eval.Match, 0, len(gtList)+len(predList))

	for _, pi := range order {
		pred := predList[pi]

		bestIdx := -1
		bestIoU := 0.0
		crowdOverlap := false
		for gi, gt := range gtList {
			if m.config.Classwise && gt.Label != pred.Label {
				continue
			}
			iou := boxIoU(gt.BoundingBox, pred.BoundingBox)
			if iou < m.config.IoU {
				continue
			}
			if gtMatched[gi] {
				// Matched ground truth is only relevant as a crowd
				// region; unmatched candidates always win.
				if m.isCrowd(gt) {
					crowdOverlap = true
				}
				continue
			}
			if bestIdx == -1 || iou > bestIoU {
				bestIdx = gi
				bestIoU = iou
			}
		}

		if bestIdx == -1 {
			if crowdOverlap {
				// Duplicate over an already-matched crowd region:
				// ignore the prediction.
				continue
			}
			if evalKey != "" {
				pred.SetAttribute(evalKey, "fp")
			}
			matches = append(matches, eval.Match{PredLabel: pred.Label, PredID: pred.ID})
			continue
		}

		gt := gtList[bestIdx]
		gtMatched[bestIdx] = true

		if evalKey != "" {
			pred.SetAttribute(evalKey+"_id", gt.ID)
			pred.SetAttribute(evalKey+"_iou", bestIoU)
			pred.SetAttribute(evalKey, "tp")
			gt.SetAttribute(evalKey+"_id", pred.ID)
			gt.SetAttribute(evalKey+"_iou", bestIoU)
			gt.SetAttribute(evalKey, "tp")
		}

		matches = append(matches, eval.Match{
			GTLabel:   gt.Label,
			PredLabel: pred.Label,
			GTID:      gt.ID,
			PredID:    pred.ID,
			IoU:       bestIoU,
		})
	}

	for gi, gt := range gtList {
		if !gtMatched[gi] {
			if evalKey != "" {
				gt.SetAttribute(evalKey, "fn")
			}
			matches = append(matches, eval.Match{GTLabel: gt.Label, GTID: gt.ID})
		}
	}

	return matches, nil
}

func (m *Matcher) isCrowd(det *labels.Detection) bool {
	v, ok := det.Attributes[m.config.IscrowdAttr]
	if !ok {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case float64:
		return val != 0
	case int:
		return val != 0
	default:
		return false
	}
}

func detList(dets *labels.Detections) []*labels.Detection {
	if dets == nil {
		return nil
	}
	return dets.Detections
}

// boxIoU computes intersection-over-union of two [x, y, w, h] boxes.
func boxIoU(a, b [4]float64) float64 {
	ax2 := a[0] + a[2]
	ay2 := a[1] + a[3]
	bx2 := b[0] + b[2]
	by2 := b[1] + b[3]

	ix := min(ax2, bx2) - max(a[0], b[0])
	iy := min(ay2, by2) - max(a[1], b[1])
	if ix <= 0 || iy <= 0 {
		return 0
	}

	inter := ix * iy
	union := a[2]*a[3] + b[2]*b[3] - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	default:
		return 0, false
	}
}
