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

import "errors"

// Sentinel errors for the dataset package.
var (
	// ErrDatasetNotFound indicates the named dataset does not exist.
	ErrDatasetNotFound = errors.New("dataset not found")

	// ErrDatasetExists indicates a dataset with the name already exists.
	ErrDatasetExists = errors.New("dataset already exists")

	// ErrSampleNotFound indicates the sample does not exist in the dataset.
	ErrSampleNotFound = errors.New("sample not found")

	// ErrEvalRunNotFound indicates no evaluation run is recorded under the key.
	ErrEvalRunNotFound = errors.New("evaluation run not found")

	// ErrInvalidName indicates an empty or malformed dataset name.
	ErrInvalidName = errors.New("invalid dataset name")
)
