// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package labels defines the label types attached to samples: individual
// object detections and ordered detection sets.
//
// The evaluation engine treats geometry and confidence as opaque; they are
// consumed only by concrete matching strategies. Per-detection evaluation
// fields (matched object ID, matching IoU) are stored in Attributes under
// names derived from the evaluation key.
package labels

import (
	"github.com/google/uuid"
)

// Detection is a single detected object in an image or video frame.
type Detection struct {
	// ID uniquely identifies this detection within its dataset.
	ID string `json:"id"`

	// Label is the class label for this object.
	Label string `json:"label"`

	// BoundingBox is [x, y, width, height] in relative coordinates
	// ([0, 1] in both dimensions). Opaque to the evaluation core.
	BoundingBox [4]float64 `json:"bounding_box"`

	// Confidence is the detector's confidence score, if any.
	Confidence float64 `json:"confidence,omitempty"`

	// Attributes holds additional per-detection data, including fields
	// written by keyed evaluations (e.g. "<eval_key>_id", "<eval_key>_iou",
	// "<eval_key>").
	Attributes map[string]any `json:"attributes,omitempty"`
}

// NewDetection creates a detection with a fresh unique ID.
func NewDetection(label string, boundingBox [4]float64) *Detection {
	return &Detection{
		ID:          uuid.NewString(),
		Label:       label,
		BoundingBox: boundingBox,
	}
}

// SetAttribute sets a named attribute on the detection, allocating the
// attribute map on first use.
func (d *Detection) SetAttribute(name string, value any) {
	if d.Attributes == nil {
		d.Attributes = make(map[string]any)
	}
	d.Attributes[name] = value
}

// DeleteAttribute removes a named attribute. Missing attributes are a no-op.
func (d *Detection) DeleteAttribute(name string) {
	delete(d.Attributes, name)
}

// Detections is an ordered collection of detections belonging to one
// evaluation unit (an image sample or a single video frame).
type Detections struct {
	Detections []*Detection `json:"detections"`
}

// NewDetections creates a detection set from the given detections.
func NewDetections(dets ...*Detection) *Detections {
	return &Detections{Detections: dets}
}

// Len returns the number of detections in the set. Safe on a nil receiver.
func (d *Detections) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Detections)
}

// Labels returns the labels of all detections, in order.
func (d *Detections) Labels() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.Detections))
	for i, det := range d.Detections {
		out[i] = det.Label
	}
	return out
}
