// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dataset

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianVision/services/vision/labels"
)

// MediaType identifies the media type of a dataset's samples.
type MediaType string

const (
	// MediaTypeImage is a dataset of still images.
	MediaTypeImage MediaType = "image"

	// MediaTypeVideo is a dataset of videos with per-frame labels.
	MediaTypeVideo MediaType = "video"
)

// FramesPrefix is the namespace prefix for frame-scoped field names on
// video samples, e.g. "frames.predictions".
const FramesPrefix = "frames."

// IsFrameField reports whether the field name is frame-scoped.
func IsFrameField(field string) bool {
	return strings.HasPrefix(field, FramesPrefix)
}

// TrimFramesPrefix strips the frame namespace prefix, if present, and
// reports whether it was stripped.
func TrimFramesPrefix(field string) (string, bool) {
	if IsFrameField(field) {
		return strings.TrimPrefix(field, FramesPrefix), true
	}
	return field, false
}

// Sample is one item in a dataset: an image, or a video with ordered frames.
//
// Label fields map field names to detection sets. Count fields hold
// integer sample-level values written by keyed evaluations
// (e.g. "<eval_key>_tp"). Frames are present only on video samples.
type Sample struct {
	// ID uniquely identifies the sample within its dataset.
	ID string `json:"id"`

	// Filepath is the source media path, if known.
	Filepath string `json:"filepath,omitempty"`

	// Labels maps label field names to detection sets.
	Labels map[string]*labels.Detections `json:"labels,omitempty"`

	// Counts maps count field names to sample-level integer values.
	Counts map[string]int `json:"counts,omitempty"`

	// Frames holds the ordered frames of a video sample.
	Frames []*Frame `json:"frames,omitempty"`

	// selected records the label fields this view was restricted to.
	// Empty means the full sample was loaded.
	selected []string
}

// Frame is a single video frame with its own label fields.
type Frame struct {
	// Number is the 1-based frame number.
	Number int `json:"number"`

	// Labels maps label field names to detection sets.
	Labels map[string]*labels.Detections `json:"labels,omitempty"`
}

// Detections returns the detection set stored under the given label field,
// or nil if the field is unset.
func (s *Sample) Detections(field string) *labels.Detections {
	return s.Labels[field]
}

// SetDetections stores a detection set under the given label field.
func (s *Sample) SetDetections(field string, dets *labels.Detections) {
	if s.Labels == nil {
		s.Labels = make(map[string]*labels.Detections)
	}
	s.Labels[field] = dets
}

// SetCount stores a sample-level count field.
func (s *Sample) SetCount(name string, value int) {
	if s.Counts == nil {
		s.Counts = make(map[string]int)
	}
	s.Counts[name] = value
}

// Count returns the value of a sample-level count field and whether it is set.
func (s *Sample) Count(name string) (int, bool) {
	v, ok := s.Counts[name]
	return v, ok
}

// AddFrame appends a frame to a video sample, keeping frames ordered by
// frame number.
func (s *Sample) AddFrame(f *Frame) {
	s.Frames = append(s.Frames, f)
	sort.SliceStable(s.Frames, func(i, j int) bool {
		return s.Frames[i].Number < s.Frames[j].Number
	})
}

// SelectedFields returns the label fields this sample view was restricted
// to, or nil when the full sample was loaded.
func (s *Sample) SelectedFields() []string {
	return s.selected
}

// Detections returns the detection set stored under the given label field
// of the frame, or nil if the field is unset.
func (f *Frame) Detections(field string) *labels.Detections {
	return f.Labels[field]
}

// SetDetections stores a detection set under the given label field of the
// frame.
func (f *Frame) SetDetections(field string, dets *labels.Detections) {
	if f.Labels == nil {
		f.Labels = make(map[string]*labels.Detections)
	}
	f.Labels[field] = dets
}

// EvalRecord is the persisted metadata for a named evaluation run.
//
// Records exist only between a completed keyed evaluation and an explicit
// clear of the same key. Re-running a keyed evaluation silently replaces
// the record.
type EvalRecord struct {
	// EvalKey is the caller-chosen identifier for the run.
	EvalKey string `json:"eval_key"`

	// PredField is the predictions label field the run compared.
	PredField string `json:"pred_field"`

	// GTField is the ground-truth label field the run compared.
	GTField string `json:"gt_field"`

	// Method is the matching method identifier.
	Method string `json:"method"`

	// Config is the serialized method configuration.
	Config json.RawMessage `json:"config,omitempty"`

	// RecordedAt is when the run completed.
	RecordedAt time.Time `json:"recorded_at"`
}

// datasetMeta is the persisted per-dataset metadata document.
type datasetMeta struct {
	Name      string    `json:"name"`
	MediaType MediaType `json:"media_type"`
	CreatedAt time.Time `json:"created_at"`
	NextSeq   uint64    `json:"next_seq"`
}
