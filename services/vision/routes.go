// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package vision

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all vision routes with the router.
//
// Description:
//
//	Registers all /v1/vision/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Dataset Endpoints:
//
//	POST   /v1/vision/datasets - Create a dataset
//	GET    /v1/vision/datasets - List datasets
//	GET    /v1/vision/datasets/:name - Get dataset details
//	DELETE /v1/vision/datasets/:name - Delete a dataset
//
// Sample Endpoints:
//
//	POST /v1/vision/datasets/:name/samples - Add a sample
//	GET  /v1/vision/datasets/:name/samples/:id - Get a sample
//
// Evaluation Endpoints:
//
//	POST   /v1/vision/datasets/:name/evaluate - Run a detection evaluation
//	GET    /v1/vision/datasets/:name/evaluations/:key - Get run metadata
//	DELETE /v1/vision/datasets/:name/evaluations/:key - Clear a run
//	GET    /v1/vision/methods - List matching methods
//
// Health Endpoints:
//
//	GET /v1/vision/health - Health check
//	GET /v1/vision/ready - Readiness check
//
// Example:
//
//	service := vision.NewService(store, vision.DefaultServiceConfig())
//	handlers := vision.NewHandlers(service)
//
//	v1 := router.Group("/v1")
//	vision.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	v := rg.Group("/vision")
	{
		// Dataset lifecycle
		v.POST("/datasets", handlers.HandleCreateDataset)
		v.GET("/datasets", handlers.HandleListDatasets)
		v.GET("/datasets/:name", handlers.HandleGetDataset)
		v.DELETE("/datasets/:name", handlers.HandleDeleteDataset)

		// Samples
		v.POST("/datasets/:name/samples", handlers.HandleAddSample)
		v.GET("/datasets/:name/samples/:id", handlers.HandleGetSample)

		// Evaluations
		v.POST("/datasets/:name/evaluate", handlers.HandleEvaluate)
		v.GET("/datasets/:name/evaluations/:key", handlers.HandleGetEvalRun)
		v.DELETE("/datasets/:name/evaluations/:key", handlers.HandleDeleteEvalRun)
		v.GET("/methods", handlers.HandleListMethods)

		// Health checks
		v.GET("/health", handlers.HandleHealth)
		v.GET("/ready", handlers.HandleReady)
	}
}
