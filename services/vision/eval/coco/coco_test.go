// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package coco

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianVision/services/vision/eval"
	"github.com/AleutianAI/AleutianVision/services/vision/labels"
)

func det(label string, box [4]float64, confidence float64) *labels.Detection {
	d := labels.NewDetection(label, box)
	d.Confidence = confidence
	return d
}

func evaluate(t *testing.T, cfg *Config, gts, preds []*labels.Detection, evalKey string) []eval.Match {
	t.Helper()
	strategy, err := cfg.Build()
	require.NoError(t, err)
	matches, err := strategy.EvaluateImage(context.Background(),
		labels.NewDetections(gts...), labels.NewDetections(preds...), evalKey)
	require.NoError(t, err)
	return matches
}

func tally(matches []eval.Match) (tp, fp, fn int) {
	for _, m := range matches {
		switch {
		case m.GTLabel == "":
			fp++
		case m.PredLabel == "":
			fn++
		default:
			tp++
		}
	}
	return tp, fp, fn
}

// TestBoxIoU verifies the IoU geometry.
func TestBoxIoU(t *testing.T) {
	t.Run("identical boxes", func(t *testing.T) {
		box := [4]float64{0.1, 0.1, 0.2, 0.2}
		assert.InDelta(t, 1.0, boxIoU(box, box), 1e-9)
	})

	t.Run("disjoint boxes", func(t *testing.T) {
		assert.Equal(t, 0.0, boxIoU(
			[4]float64{0.0, 0.0, 0.1, 0.1},
			[4]float64{0.5, 0.5, 0.1, 0.1}))
	})

	t.Run("touching boxes overlap nothing", func(t *testing.T) {
		assert.Equal(t, 0.0, boxIoU(
			[4]float64{0.0, 0.0, 0.1, 0.1},
			[4]float64{0.1, 0.0, 0.1, 0.1}))
	})

	t.Run("half overlap", func(t *testing.T) {
		// Two 0.2x0.2 boxes shifted by half a width: inter 0.02, union 0.06.
		got := boxIoU(
			[4]float64{0.0, 0.0, 0.2, 0.2},
			[4]float64{0.1, 0.0, 0.2, 0.2})
		assert.InDelta(t, 1.0/3.0, got, 1e-9)
	})

	t.Run("degenerate boxes", func(t *testing.T) {
		assert.Equal(t, 0.0, boxIoU([4]float64{0, 0, 0, 0}, [4]float64{0, 0, 0, 0}))
	})
}

// TestMatcherEvaluateImage verifies the greedy matching policy.
func TestMatcherEvaluateImage(t *testing.T) {
	box := [4]float64{0.1, 0.1, 0.2, 0.2}
	farBox := [4]float64{0.7, 0.7, 0.2, 0.2}

	t.Run("perfect match", func(t *testing.T) {
		matches := evaluate(t, DefaultConfig(),
			[]*labels.Detection{det("cat", box, 0)},
			[]*labels.Detection{det("cat", box, 0.9)}, "")
		require.Len(t, matches, 1)
		assert.Equal(t, "cat", matches[0].GTLabel)
		assert.Equal(t, "cat", matches[0].PredLabel)
		assert.InDelta(t, 1.0, matches[0].IoU, 1e-9)
	})

	t.Run("below threshold is unmatched on both sides", func(t *testing.T) {
		matches := evaluate(t, DefaultConfig(),
			[]*labels.Detection{det("cat", box, 0)},
			[]*labels.Detection{det("cat", farBox, 0.9)}, "")
		tp, fp, fn := tally(matches)
		assert.Equal(t, 0, tp)
		assert.Equal(t, 1, fp)
		assert.Equal(t, 1, fn)
	})

	t.Run("classwise blocks cross-label matches", func(t *testing.T) {
		matches := evaluate(t, DefaultConfig(),
			[]*labels.Detection{det("cat", box, 0)},
			[]*labels.Detection{det("dog", box, 0.9)}, "")
		tp, fp, fn := tally(matches)
		assert.Equal(t, 0, tp)
		assert.Equal(t, 1, fp)
		assert.Equal(t, 1, fn)
	})

	t.Run("classwise off allows cross-label matches", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Classwise = false
		matches := evaluate(t, cfg,
			[]*labels.Detection{det("cat", box, 0)},
			[]*labels.Detection{det("dog", box, 0.9)}, "")
		require.Len(t, matches, 1)
		assert.Equal(t, "cat", matches[0].GTLabel)
		assert.Equal(t, "dog", matches[0].PredLabel)
	})

	t.Run("higher confidence claims the ground truth first", func(t *testing.T) {
		weak := det("cat", box, 0.3)
		strong := det("cat", box, 0.9)
		matches := evaluate(t, DefaultConfig(),
			[]*labels.Detection{det("cat", box, 0)},
			[]*labels.Detection{weak, strong}, "")

		tp, fp, fn := tally(matches)
		assert.Equal(t, 1, tp)
		assert.Equal(t, 1, fp)
		assert.Equal(t, 0, fn)

		for _, m := range matches {
			if m.GTLabel != "" && m.PredLabel != "" {
				assert.Equal(t, strong.ID, m.PredID)
			}
		}
	})

	t.Run("each ground truth matches at most once", func(t *testing.T) {
		matches := evaluate(t, DefaultConfig(),
			[]*labels.Detection{det("cat", box, 0)},
			[]*labels.Detection{det("cat", box, 0.9), det("cat", box, 0.8)}, "")
		tp, fp, fn := tally(matches)
		assert.Equal(t, 1, tp)
		assert.Equal(t, 1, fp)
		assert.Equal(t, 0, fn)
	})

	t.Run("prediction takes the highest IoU candidate", func(t *testing.T) {
		near := det("cat", [4]float64{0.1, 0.1, 0.2, 0.2}, 0)
		shifted := det("cat", [4]float64{0.15, 0.1, 0.2, 0.2}, 0)
		matches := evaluate(t, DefaultConfig(),
			[]*labels.Detection{shifted, near},
			[]*labels.Detection{det("cat", [4]float64{0.1, 0.1, 0.2, 0.2}, 0.9)}, "")

		for _, m := range matches {
			if m.PredLabel != "" && m.GTLabel != "" {
				assert.Equal(t, near.ID, m.GTID)
			}
		}
	})

	t.Run("empty inputs", func(t *testing.T) {
		strategy, err := DefaultConfig().Build()
		require.NoError(t, err)
		matches, err := strategy.EvaluateImage(context.Background(), nil, nil, "")
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("match attributes written only with an eval key", func(t *testing.T) {
		gt := det("cat", box, 0)
		pred := det("cat", box, 0.9)
		evaluate(t, DefaultConfig(), []*labels.Detection{gt}, []*labels.Detection{pred}, "")
		assert.Empty(t, gt.Attributes)
		assert.Empty(t, pred.Attributes)

		gt = det("cat", box, 0)
		pred = det("cat", box, 0.9)
		evaluate(t, DefaultConfig(), []*labels.Detection{gt}, []*labels.Detection{pred}, "run1")
		assert.Equal(t, pred.ID, gt.Attributes["run1_id"])
		assert.Equal(t, gt.ID, pred.Attributes["run1_id"])
		assert.InDelta(t, 1.0, gt.Attributes["run1_iou"].(float64), 1e-9)
	})

	t.Run("outcome attributes mark tp, fp and fn when keyed", func(t *testing.T) {
		matchedGT := det("cat", box, 0)
		lonelyGT := det("dog", farBox, 0)
		matchedPred := det("cat", box, 0.9)
		strayPred := det("cat", [4]float64{0.4, 0.4, 0.1, 0.1}, 0.5)

		evaluate(t, DefaultConfig(),
			[]*labels.Detection{matchedGT, lonelyGT},
			[]*labels.Detection{matchedPred, strayPred}, "run1")

		assert.Equal(t, "tp", matchedGT.Attributes["run1"])
		assert.Equal(t, "tp", matchedPred.Attributes["run1"])
		assert.Equal(t, "fn", lonelyGT.Attributes["run1"])
		assert.Equal(t, "fp", strayPred.Attributes["run1"])
	})
}

// TestMatcherCrowd verifies the crowd-region convention: predictions whose
// only qualifying overlaps are already-matched crowd objects are dropped
// rather than counted as false positives.
func TestMatcherCrowd(t *testing.T) {
	box := [4]float64{0.1, 0.1, 0.3, 0.3}

	crowd := det("cat", box, 0)
	crowd.SetAttribute("iscrowd", true)

	first := det("cat", box, 0.9)
	second := det("cat", box, 0.8)

	matches := evaluate(t, DefaultConfig(),
		[]*labels.Detection{crowd},
		[]*labels.Detection{first, second}, "")

	tp, fp, fn := tally(matches)
	assert.Equal(t, 1, tp, "first prediction matches the crowd region")
	assert.Equal(t, 0, fp, "second prediction is dropped, not a false positive")
	assert.Equal(t, 0, fn)
	assert.Len(t, matches, 1)

	t.Run("numeric crowd flags count too", func(t *testing.T) {
		crowd := det("cat", box, 0)
		crowd.SetAttribute("iscrowd", 1.0)

		matches := evaluate(t, DefaultConfig(),
			[]*labels.Detection{crowd},
			[]*labels.Detection{det("cat", box, 0.9), det("cat", box, 0.8)}, "")
		assert.Len(t, matches, 1)
	})

	t.Run("unmatched ground truth beats a matched crowd region", func(t *testing.T) {
		crowd := det("cat", box, 0)
		crowd.SetAttribute("iscrowd", true)
		// Overlaps the crowd box enough to qualify, but less than fully.
		plain := det("cat", [4]float64{0.15, 0.1, 0.3, 0.3}, 0)

		first := det("cat", box, 0.9)
		second := det("cat", box, 0.8)

		matches := evaluate(t, DefaultConfig(),
			[]*labels.Detection{crowd, plain},
			[]*labels.Detection{first, second}, "")

		tp, fp, fn := tally(matches)
		assert.Equal(t, 2, tp, "second prediction falls through to the plain ground truth")
		assert.Equal(t, 0, fp)
		assert.Equal(t, 0, fn)

		for _, m := range matches {
			if m.PredID == second.ID {
				assert.Equal(t, plain.ID, m.GTID)
			}
		}
	})

	t.Run("non-crowd duplicate is still a false positive", func(t *testing.T) {
		matches := evaluate(t, DefaultConfig(),
			[]*labels.Detection{det("cat", box, 0)},
			[]*labels.Detection{det("cat", box, 0.9), det("cat", box, 0.8)}, "")
		_, fp, _ := tally(matches)
		assert.Equal(t, 1, fp)
	})
}

// TestConfigSetOption verifies option names, types and defaults.
func TestConfigSetOption(t *testing.T) {
	t.Run("iou accepts numbers", func(t *testing.T) {
		cfg := DefaultConfig()
		require.NoError(t, cfg.SetOption("iou", 0.75))
		assert.Equal(t, 0.75, cfg.IoU)
		require.NoError(t, cfg.SetOption("iou", 1))
		assert.Equal(t, 1.0, cfg.IoU)
	})

	t.Run("classwise accepts bools", func(t *testing.T) {
		cfg := DefaultConfig()
		require.NoError(t, cfg.SetOption("classwise", false))
		assert.False(t, cfg.Classwise)
	})

	t.Run("iscrowd accepts strings", func(t *testing.T) {
		cfg := DefaultConfig()
		require.NoError(t, cfg.SetOption("iscrowd", "crowd_flag"))
		assert.Equal(t, "crowd_flag", cfg.IscrowdAttr)
	})

	t.Run("mistyped values are rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.Error(t, cfg.SetOption("iou", "high"))
		assert.Error(t, cfg.SetOption("classwise", "yes"))
		assert.Error(t, cfg.SetOption("iscrowd", 3))
	})

	t.Run("unknown option names are rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		err := cfg.SetOption("max_preds", 100)
		require.Error(t, err)
		assert.ErrorIs(t, err, eval.ErrUnknownOption)
	})
}

// TestBuildCopiesConfig verifies later config mutations do not leak into a
// built matcher.
func TestBuildCopiesConfig(t *testing.T) {
	cfg := DefaultConfig()
	strategy, err := cfg.Build()
	require.NoError(t, err)

	cfg.IoU = 0.99

	box := [4]float64{0.1, 0.1, 0.2, 0.2}
	shifted := [4]float64{0.12, 0.1, 0.2, 0.2}
	matches, err := strategy.EvaluateImage(context.Background(),
		labels.NewDetections(det("cat", box, 0)),
		labels.NewDetections(det("cat", shifted, 0.9)), "")
	require.NoError(t, err)

	// IoU of the shifted pair is ~0.82: above the built 0.50, below 0.99.
	tp, _, _ := tally(matches)
	assert.Equal(t, 1, tp)
}
