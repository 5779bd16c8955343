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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarioMatches is the worked example from the design discussions:
// one true positive with agreeing labels, one false negative, one false
// positive, and one true positive with disagreeing labels.
func scenarioMatches() []Match {
	return []Match{
		{GTLabel: "cat", PredLabel: "cat"},
		{GTLabel: "dog"},
		{PredLabel: "cat"},
		{GTLabel: "cat", PredLabel: "dog"},
	}
}

// TestTallyMatches verifies the TP/FP/FN counting rules.
func TestTallyMatches(t *testing.T) {
	t.Run("empty list", func(t *testing.T) {
		assert.Equal(t, Tally{}, tallyMatches(nil))
	})

	t.Run("single outcomes", func(t *testing.T) {
		assert.Equal(t, Tally{TP: 1}, tallyMatches([]Match{{GTLabel: "a", PredLabel: "a"}}))
		assert.Equal(t, Tally{FN: 1}, tallyMatches([]Match{{GTLabel: "a"}}))
		assert.Equal(t, Tally{FP: 1}, tallyMatches([]Match{{PredLabel: "a"}}))
	})

	t.Run("label disagreement is still a true positive", func(t *testing.T) {
		assert.Equal(t, Tally{TP: 1}, tallyMatches([]Match{{GTLabel: "cat", PredLabel: "dog"}}))
	})

	t.Run("scenario", func(t *testing.T) {
		tally := tallyMatches(scenarioMatches())
		assert.Equal(t, Tally{TP: 2, FP: 1, FN: 1}, tally)
	})

	t.Run("counts partition the match list", func(t *testing.T) {
		matches := scenarioMatches()
		tally := tallyMatches(matches)
		assert.Equal(t, len(matches), tally.TP+tally.FP+tally.FN)
	})
}

// TestNewDetectionResults verifies missing-label substitution and class
// axis construction.
func TestNewDetectionResults(t *testing.T) {
	t.Run("substitutes missing label", func(t *testing.T) {
		r := NewDetectionResults(scenarioMatches(), []string{"cat", "dog"}, "none")
		assert.Equal(t, []string{"cat", "dog", "none", "cat"}, r.YTrue)
		assert.Equal(t, []string{"cat", "none", "cat", "dog"}, r.YPred)
	})

	t.Run("axes are classes plus missing exactly once", func(t *testing.T) {
		r := NewDetectionResults(scenarioMatches(), []string{"cat", "dog"}, "none")
		assert.Equal(t, []string{"cat", "dog", "none"}, r.Classes)

		// Missing already in the supplied classes is not duplicated.
		r = NewDetectionResults(scenarioMatches(), []string{"cat", "none", "dog"}, "none")
		assert.Equal(t, []string{"cat", "none", "dog"}, r.Classes)
	})

	t.Run("observed classes are sorted and deterministic", func(t *testing.T) {
		r1 := NewDetectionResults(scenarioMatches(), nil, "none")
		r2 := NewDetectionResults(scenarioMatches(), nil, "none")
		assert.Equal(t, []string{"cat", "dog", "none"}, r1.Classes)
		assert.Equal(t, r1.Classes, r2.Classes)
	})

	t.Run("duplicate supplied classes are collapsed", func(t *testing.T) {
		r := NewDetectionResults(scenarioMatches(), []string{"cat", "cat", "dog"}, "none")
		assert.Equal(t, []string{"cat", "dog", "none"}, r.Classes)
	})
}

// TestConfusionMatrix verifies the scenario matrix cell by cell.
func TestConfusionMatrix(t *testing.T) {
	r := NewDetectionResults(scenarioMatches(), []string{"cat", "dog"}, "none")
	matrix := r.ConfusionMatrix()
	require.Len(t, matrix, 3)

	// Rows are ground truth, columns predictions; axes cat, dog, none.
	assert.Equal(t, 1, matrix[0][0], "(cat,cat)")
	assert.Equal(t, 1, matrix[0][1], "(cat,dog)")
	assert.Equal(t, 1, matrix[1][2], "(dog,none)")
	assert.Equal(t, 1, matrix[2][0], "(none,cat)")

	total := 0
	for _, row := range matrix {
		for _, n := range row {
			total += n
		}
	}
	assert.Equal(t, 4, total, "every match lands in exactly one cell")
}

// TestReport verifies per-class precision/recall/F1/support.
func TestReport(t *testing.T) {
	r := NewDetectionResults(scenarioMatches(), []string{"cat", "dog"}, "none")
	report := r.Report()
	require.Contains(t, report, "cat")
	require.Contains(t, report, "dog")
	require.Contains(t, report, "none")

	cat := report["cat"]
	// cat row: (cat,cat)=1, (cat,dog)=1 -> support 2, recall 1/2.
	// cat column: (cat,cat)=1, (none,cat)=1 -> precision 1/2.
	assert.Equal(t, 2, cat.Support)
	assert.InDelta(t, 0.5, cat.Precision, 1e-9)
	assert.InDelta(t, 0.5, cat.Recall, 1e-9)
	assert.InDelta(t, 0.5, cat.F1, 1e-9)

	dog := report["dog"]
	assert.Equal(t, 1, dog.Support)
	assert.Equal(t, 0.0, dog.Precision)
	assert.Equal(t, 0.0, dog.Recall)
	assert.Equal(t, 0.0, dog.F1)
}

// TestMetrics verifies the aggregate metrics over the scenario.
func TestMetrics(t *testing.T) {
	r := NewDetectionResults(scenarioMatches(), []string{"cat", "dog"}, "none")
	m := r.Metrics()

	assert.Equal(t, 4, m.Support)
	assert.InDelta(t, 0.25, m.Accuracy, 1e-9)
	// Single-label multiclass: micro precision == micro recall == accuracy.
	assert.InDelta(t, m.Accuracy, m.MicroPrecision, 1e-9)
	assert.InDelta(t, m.Accuracy, m.MicroRecall, 1e-9)
	assert.InDelta(t, (0.5+0+0)/3, m.MacroPrecision, 1e-9)
}

// TestDetectionResultsTally verifies the results model exposes the run tally.
func TestDetectionResultsTally(t *testing.T) {
	r := NewDetectionResults(scenarioMatches(), nil, "none")
	assert.Equal(t, Tally{TP: 2, FP: 1, FN: 1}, r.Tally())
}
