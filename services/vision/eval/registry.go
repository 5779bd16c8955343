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
	"fmt"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
)

// registry maps method identifiers to config factories.
//
// Thread Safety: Safe for concurrent use via read-write mutex. Methods
// register during init(), but lookups may race with late registration in
// tests.
var registry = struct {
	mu        sync.RWMutex
	factories map[string]func() Config
}{
	factories: make(map[string]func() Config),
}

// validate checks struct tags on resolved configs.
var validate = validator.New()

// RegisterMethod registers a matching method's config factory under its
// identifier. Intended to be called from init(); duplicate registration
// panics.
func RegisterMethod(name string, factory func() Config) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if _, exists := registry.factories[name]; exists {
		panic(fmt.Sprintf("eval: method %q registered twice", name))
	}
	registry.factories[name] = factory
}

// ListMethods returns the registered matching method identifiers, sorted.
func ListMethods() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	names := make([]string, 0, len(registry.factories))
	for name := range registry.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveConfig resolves a matching method configuration.
//
// Description:
//
//	When cfg is nil, the default config for method is created (the
//	default method when method is empty too). The overrides are then
//	applied as named option mutations, and the final config is validated.
//
//	Unknown method names fail with ErrUnknownMethod before any scanning
//	begins. Unknown option names fail with ErrUnknownOption rather than
//	being silently attached.
//
// Inputs:
//
//	cfg - Explicit config, or nil to use the method's default.
//	method - Method identifier; ignored when cfg is non-nil.
//	overrides - Named option overrides; may be nil.
//
// Outputs:
//
//	Config - The resolved, validated config.
//	error - ErrUnknownMethod, ErrUnknownOption, or ErrInvalidConfig.
func ResolveConfig(cfg Config, method string, overrides map[string]any) (Config, error) {
	if cfg == nil {
		if method == "" {
			method = DefaultMethod
		}

		registry.mu.RLock()
		factory, ok := registry.factories[method]
		registry.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
		}
		cfg = factory()
	}

	// Deterministic application order for reproducible error reporting.
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := cfg.SetOption(name, overrides[name]); err != nil {
			return nil, err
		}
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return cfg, nil
}
