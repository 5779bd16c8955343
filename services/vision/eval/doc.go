// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package eval implements detection evaluation: matching predicted object
// detections against ground truth across a sample collection and
// aggregating the match outcomes into classification statistics.
//
// The matching policy is pluggable. A Strategy produces per-unit label-pair
// matches; this package resolves the strategy through a method registry,
// drives the sequential scan over samples (or video frames), tallies
// true/false positives and false negatives, optionally persists per-sample
// counts and run metadata under a caller-chosen eval key, and builds a
// confusion-matrix results model from the full match list.
//
// Matching strategies register themselves in init(), so the built-in
// COCO-style method is available after a blank import:
//
//	import _ "github.com/AleutianAI/AleutianVision/services/vision/eval/coco"
//
// Memory scaling: EvaluateDetections accumulates every match in memory for
// the returned results model, so a scan over N objects holds O(N) matches.
// Callers that only need confusion counts over very large collections
// should aggregate per batch instead of evaluating in one run.
//
// Keyed evaluations persist per-sample counts sample by sample during the
// scan and record run metadata only after the full scan completes. An
// interrupted scan therefore leaves counts on the samples already visited
// with no run record; ClearEvaluation cannot remove those counts because
// its key lookup fails. This mirrors the progressive-write design and is
// deliberate.
package eval
