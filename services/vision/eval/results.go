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
	"sort"
)

// ClassificationResults holds parallel ground-truth and predicted label
// sequences plus the class set over which classification metrics are
// computed.
type ClassificationResults struct {
	// YTrue and YPred are the parallel label sequences, with the missing
	// label substituted for absent sides.
	YTrue []string `json:"ytrue"`
	YPred []string `json:"ypred"`

	// Classes are the confusion matrix axes: the supplied or observed
	// classes plus the missing label, each exactly once, in stable order.
	Classes []string `json:"classes"`

	// Missing is the substitute label for unmatched objects.
	Missing string `json:"missing"`
}

// ClassMetrics are the per-class classification metrics.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	// Support is the number of true instances of the class.
	Support int `json:"support"`
}

// AggregateMetrics are collection-wide classification metrics.
type AggregateMetrics struct {
	Accuracy       float64 `json:"accuracy"`
	MicroPrecision float64 `json:"micro_precision"`
	MicroRecall    float64 `json:"micro_recall"`
	MicroF1        float64 `json:"micro_f1"`
	MacroPrecision float64 `json:"macro_precision"`
	MacroRecall    float64 `json:"macro_recall"`
	MacroF1        float64 `json:"macro_f1"`
	// Support is the number of label pairs counted in the matrix.
	Support int `json:"support"`
}

// DetectionResults is the results model of a detection evaluation run: the
// full ordered match list and the classification view derived from it.
type DetectionResults struct {
	ClassificationResults

	// Matches is the full ordered match list from the run.
	Matches []Match `json:"matches"`
}

// NewDetectionResults builds results from the accumulated matches.
//
// Description:
//
//	Substitutes the missing label for the absent side of each match to
//	produce the parallel label sequences. When classes is nil, the
//	distinct labels observed on either side (the missing label excluded
//	unless a real label collides with it) are used, sorted. The missing
//	label is appended to the axes when not already present, so the axes
//	equal classes ∪ {missing} exactly once each, deterministically.
func NewDetectionResults(matches []Match, classes []string, missing string) *DetectionResults {
	ytrue := make([]string, len(matches))
	ypred := make([]string, len(matches))
	for i, m := range matches {
		ytrue[i] = substituteMissing(m.GTLabel, missing)
		ypred[i] = substituteMissing(m.PredLabel, missing)
	}

	if classes == nil {
		observed := make(map[string]bool)
		for _, m := range matches {
			if m.GTLabel != "" {
				observed[m.GTLabel] = true
			}
			if m.PredLabel != "" {
				observed[m.PredLabel] = true
			}
		}
		classes = make([]string, 0, len(observed))
		for label := range observed {
			classes = append(classes, label)
		}
		sort.Strings(classes)
	}

	axes := make([]string, 0, len(classes)+1)
	seen := make(map[string]bool, len(classes)+1)
	for _, c := range classes {
		if !seen[c] {
			axes = append(axes, c)
			seen[c] = true
		}
	}
	if !seen[missing] {
		axes = append(axes, missing)
	}

	return &DetectionResults{
		ClassificationResults: ClassificationResults{
			YTrue:   ytrue,
			YPred:   ypred,
			Classes: axes,
			Missing: missing,
		},
		Matches: matches,
	}
}

// Tally reduces the run's matches into TP/FP/FN counts.
func (r *DetectionResults) Tally() Tally {
	return tallyMatches(r.Matches)
}

// ConfusionMatrix returns the observed-vs-predicted label counts over
// Classes: rows are ground-truth labels, columns predicted labels. Pairs
// with a label outside Classes are excluded.
func (r *ClassificationResults) ConfusionMatrix() [][]int {
	index := make(map[string]int, len(r.Classes))
	for i, c := range r.Classes {
		index[c] = i
	}

	matrix := make([][]int, len(r.Classes))
	for i := range matrix {
		matrix[i] = make([]int, len(r.Classes))
	}

	for i := range r.YTrue {
		row, okRow := index[r.YTrue[i]]
		col, okCol := index[r.YPred[i]]
		if okRow && okCol {
			matrix[row][col]++
		}
	}
	return matrix
}

// Report returns the per-class precision, recall, F1 and support, keyed by
// class, over the confusion matrix axes.
func (r *ClassificationResults) Report() map[string]ClassMetrics {
	matrix := r.ConfusionMatrix()
	report := make(map[string]ClassMetrics, len(r.Classes))

	for i, class := range r.Classes {
		tp := matrix[i][i]
		rowSum := 0
		colSum := 0
		for j := range r.Classes {
			rowSum += matrix[i][j]
			colSum += matrix[j][i]
		}

		precision := safeDiv(float64(tp), float64(colSum))
		recall := safeDiv(float64(tp), float64(rowSum))
		report[class] = ClassMetrics{
			Precision: precision,
			Recall:    recall,
			F1:        harmonicMean(precision, recall),
			Support:   rowSum,
		}
	}
	return report
}

// Metrics returns collection-wide accuracy plus micro and macro averaged
// precision, recall and F1.
func (r *ClassificationResults) Metrics() AggregateMetrics {
	matrix := r.ConfusionMatrix()
	report := r.Report()

	total := 0
	diag := 0
	for i := range matrix {
		diag += matrix[i][i]
		for j := range matrix[i] {
			total += matrix[i][j]
		}
	}

	var microTP, microFP, microFN int
	for i := range matrix {
		tp := matrix[i][i]
		microTP += tp
		for j := range matrix[i] {
			if j != i {
				microFN += matrix[i][j]
				microFP += matrix[j][i]
			}
		}
	}

	microP := safeDiv(float64(microTP), float64(microTP+microFP))
	microR := safeDiv(float64(microTP), float64(microTP+microFN))

	var macroP, macroR, macroF float64
	for _, class := range r.Classes {
		m := report[class]
		macroP += m.Precision
		macroR += m.Recall
		macroF += m.F1
	}
	n := float64(len(r.Classes))
	if n > 0 {
		macroP /= n
		macroR /= n
		macroF /= n
	}

	return AggregateMetrics{
		Accuracy:       safeDiv(float64(diag), float64(total)),
		MicroPrecision: microP,
		MicroRecall:    microR,
		MicroF1:        harmonicMean(microP, microR),
		MacroPrecision: macroP,
		MacroRecall:    macroR,
		MacroF1:        macroF,
		Support:        total,
	}
}

func substituteMissing(label, missing string) string {
	if label == "" {
		return missing
	}
	return label
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func harmonicMean(p, r float64) float64 {
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}
