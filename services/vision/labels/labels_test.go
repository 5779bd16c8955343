// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDetection(t *testing.T) {
	d := NewDetection("cat", [4]float64{0.1, 0.2, 0.3, 0.4})
	require.NotEmpty(t, d.ID)
	assert.Equal(t, "cat", d.Label)
	assert.Equal(t, [4]float64{0.1, 0.2, 0.3, 0.4}, d.BoundingBox)

	other := NewDetection("cat", d.BoundingBox)
	assert.NotEqual(t, d.ID, other.ID)
}

func TestDetectionAttributes(t *testing.T) {
	d := NewDetection("cat", [4]float64{})

	// Delete on a nil map is a no-op.
	d.DeleteAttribute("missing")

	d.SetAttribute("eval_iou", 0.75)
	assert.Equal(t, 0.75, d.Attributes["eval_iou"])

	d.SetAttribute("eval_iou", 0.9)
	assert.Equal(t, 0.9, d.Attributes["eval_iou"])

	d.DeleteAttribute("eval_iou")
	assert.NotContains(t, d.Attributes, "eval_iou")
}

func TestDetectionsNilSafety(t *testing.T) {
	var dets *Detections
	assert.Equal(t, 0, dets.Len())
	assert.Nil(t, dets.Labels())
}

func TestDetectionsLabels(t *testing.T) {
	dets := NewDetections(
		NewDetection("cat", [4]float64{}),
		NewDetection("dog", [4]float64{}),
	)
	assert.Equal(t, 2, dets.Len())
	assert.Equal(t, []string{"cat", "dog"}, dets.Labels())
}
