// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dataset implements the BadgerDB-backed sample collection store.
//
// A Store holds any number of named datasets. Each dataset is an ordered
// collection of samples: images with label fields, or videos with ordered,
// labelled frames. Samples are stored as JSON documents; iteration follows
// insertion order, so repeated scans are deterministic.
//
// The store also persists evaluation run records (EvalRecord), the metadata
// written when a keyed evaluation completes and removed when it is cleared.
//
// Saves are per-sample read-modify-write transactions with no cross-sample
// transactional discipline; an interrupted bulk update leaves a mix of
// updated and untouched samples.
package dataset
