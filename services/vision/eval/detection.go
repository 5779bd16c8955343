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
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/AleutianVision/services/vision/dataset"
	"github.com/AleutianAI/AleutianVision/services/vision/labels"
)

// EvaluateDetections evaluates predicted detections against ground truth
// across a sample collection.
//
// Description:
//
//	Resolves the matching strategy, scans the collection sequentially
//	(flattening video frames when predField is frame-scoped on a video
//	collection), evaluates each unit, and aggregates the matches into a
//	results model.
//
//	When opts.EvalKey is set, per-sample counts "<key>_tp", "<key>_fp"
//	and "<key>_fn" are written and saved sample by sample as the scan
//	progresses, and run metadata is recorded after the full scan
//	completes. Without an eval key the evaluation is ephemeral. There is
//	no rollback: a failed save aborts the scan and already-saved samples
//	keep their counts.
//
// Inputs:
//
//	ctx - Cancels the scan between units.
//	src - The sample collection to evaluate.
//	predField - Label field holding predictions. Use the "frames."
//	            prefix for frame-scoped fields on video collections.
//	opts - Run options; nil uses the defaults.
//
// Outputs:
//
//	*DetectionResults - Classification results over all matches.
//	error - ErrUnknownMethod/ErrUnknownOption/ErrInvalidConfig before the
//	        scan; strategy or persistence errors abort the scan.
//
// Thread Safety: The scan is single-threaded; one unit is evaluated at a
// time and each sample's save completes before the next sample is read.
func EvaluateDetections(ctx context.Context, src SampleSource, predField string, opts *EvaluateOptions) (*DetectionResults, error) {
	if predField == "" {
		return nil, ErrMissingPredField
	}
	if opts == nil {
		opts = &EvaluateOptions{}
	}

	gtField := opts.GTField
	if gtField == "" {
		gtField = DefaultGTField
	}
	missing := opts.Missing
	if missing == "" {
		missing = DefaultMissing
	}

	cfg, err := ResolveConfig(opts.Config, opts.Method, opts.Overrides)
	if err != nil {
		return nil, err
	}

	strategy, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build %q strategy: %w", cfg.Method(), err)
	}

	processingFrames := src.MediaType() == dataset.MediaTypeVideo && dataset.IsFrameField(predField)
	predName, _ := dataset.TrimFramesPrefix(predField)
	gtName, _ := dataset.TrimFramesPrefix(gtField)

	ctx, span := startEvalSpan(ctx, cfg.Method(), predField, gtField)
	defer span.End()
	start := time.Now()

	logger := slog.With("method", cfg.Method(), "pred_field", predField, "gt_field", gtField)
	logger.Info("Evaluating detections", "eval_key", opts.EvalKey)
	if opts.Progress != nil {
		opts.Progress.EvalStarted(predField, gtField)
	}

	var matches []Match
	sampleCount := 0

	err = src.ForEachSample(ctx, []string{gtField, predField}, func(sample *dataset.Sample) error {
		var sampleTally Tally

		evalUnit := func(gts, preds *labels.Detections) error {
			unitMatches, err := strategy.EvaluateImage(ctx, gts, preds, opts.EvalKey)
			if err != nil {
				return fmt.Errorf("evaluate sample %s: %w", sample.ID, err)
			}
			matches = append(matches, unitMatches...)
			sampleTally.add(tallyMatches(unitMatches))
			return nil
		}

		if processingFrames {
			for _, frame := range sample.Frames {
				if err := evalUnit(frame.Detections(gtName), frame.Detections(predName)); err != nil {
					return err
				}
			}
		} else {
			if err := evalUnit(sample.Detections(gtName), sample.Detections(predName)); err != nil {
				return err
			}
		}

		if opts.EvalKey != "" {
			sample.SetCount(opts.EvalKey+"_tp", sampleTally.TP)
			sample.SetCount(opts.EvalKey+"_fp", sampleTally.FP)
			sample.SetCount(opts.EvalKey+"_fn", sampleTally.FN)
			if err := src.SaveSample(ctx, sample); err != nil {
				return fmt.Errorf("save sample %s: %w", sample.ID, err)
			}
		}

		if opts.Progress != nil {
			opts.Progress.SampleEvaluated(sample.ID, sampleTally)
		}
		sampleCount++
		return nil
	})
	if err != nil {
		setEvalSpanResult(span, sampleCount, len(matches), false)
		return nil, err
	}

	if opts.EvalKey != "" {
		if err := recordEvalInfo(ctx, src, opts.EvalKey, predField, gtField, cfg); err != nil {
			setEvalSpanResult(span, sampleCount, len(matches), false)
			return nil, err
		}
	}

	total := tallyMatches(matches)
	setEvalSpanResult(span, sampleCount, len(matches), true)
	recordEvalMetrics(ctx, cfg.Method(), time.Since(start), total)

	logger.Info("Evaluation complete",
		"samples", sampleCount,
		"matches", len(matches),
		"tp", total.TP,
		"fp", total.FP,
		"fn", total.FN)
	if opts.Progress != nil {
		opts.Progress.EvalCompleted(len(matches))
	}

	return NewDetectionResults(matches, opts.Classes, missing), nil
}

// ClearEvaluation removes everything a keyed evaluation wrote: per-object
// match attributes, per-sample counts, and the run record.
//
// Description:
//
//	Looks up the run record to recover the evaluated fields, removes the
//	"<key>_id"/"<key>_iou"/"<key>" detection attributes from both fields
//	(frame fields when the prediction field was frame-scoped), removes the
//	"<key>_tp"/"<key>_fp"/"<key>_fn" sample counts, and finally deletes
//	the run record.
//
// Outputs:
//
//	error - ErrEvalNotFound if the key was never recorded or was already
//	        cleared; no cleanup is attempted in that case.
func ClearEvaluation(ctx context.Context, src SampleSource, evalKey string) error {
	info, err := GetEvalInfo(ctx, src, evalKey)
	if err != nil {
		return err
	}

	predName, isFrameField := dataset.TrimFramesPrefix(info.PredField)
	gtName, _ := dataset.TrimFramesPrefix(info.GTField)

	attrPaths := []string{
		predName + ".detections." + evalKey + "_id",
		predName + ".detections." + evalKey + "_iou",
		predName + ".detections." + evalKey,
		gtName + ".detections." + evalKey + "_id",
		gtName + ".detections." + evalKey + "_iou",
		gtName + ".detections." + evalKey,
	}

	if isFrameField {
		err = src.DeleteFrameFields(ctx, attrPaths)
	} else {
		err = src.DeleteSampleFields(ctx, attrPaths)
	}
	if err != nil {
		return fmt.Errorf("delete detection fields for %q: %w", evalKey, err)
	}

	countPaths := []string{evalKey + "_tp", evalKey + "_fp", evalKey + "_fn"}
	if err := src.DeleteSampleFields(ctx, countPaths); err != nil {
		return fmt.Errorf("delete count fields for %q: %w", evalKey, err)
	}

	if err := src.DeleteEvalRun(ctx, evalKey); err != nil {
		return fmt.Errorf("delete run record for %q: %w", evalKey, err)
	}

	slog.Info("Cleared evaluation", "eval_key", evalKey,
		"pred_field", info.PredField, "gt_field", info.GTField)
	return nil
}

// tallyMatches reduces a match list into TP/FP/FN counts: empty GT side is
// a false positive, empty pred side a false negative, both present a true
// positive. Label disagreement does not affect the tally; it shows up in
// the confusion matrix instead.
func tallyMatches(matches []Match) Tally {
	var t Tally
	for _, m := range matches {
		switch {
		case m.GTLabel == "":
			t.FP++
		case m.PredLabel == "":
			t.FN++
		default:
			t.TP++
		}
	}
	return t
}
