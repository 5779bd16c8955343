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

import "errors"

// Sentinel errors for the eval package.
var (
	// ErrUnknownMethod indicates an unregistered matching method name.
	ErrUnknownMethod = errors.New("unknown evaluation method")

	// ErrUnknownOption indicates a config override naming an option the
	// method's config schema does not define.
	ErrUnknownOption = errors.New("unknown config option")

	// ErrInvalidConfig indicates a resolved config failed validation.
	ErrInvalidConfig = errors.New("invalid evaluation config")

	// ErrNotImplemented indicates a strategy was invoked without a
	// concrete matching policy. This is a configuration error, not a
	// runtime fallback.
	ErrNotImplemented = errors.New("matching strategy not implemented")

	// ErrEvalNotFound indicates no evaluation is recorded under the key.
	ErrEvalNotFound = errors.New("evaluation not found")

	// ErrMissingPredField indicates an evaluation request without a
	// predictions field.
	ErrMissingPredField = errors.New("predictions field is required")
)
