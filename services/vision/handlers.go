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
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianVision/services/vision/dataset"
	"github.com/AleutianAI/AleutianVision/services/vision/eval"
)

// ServiceVersion is the vision service version.
const ServiceVersion = "0.1.0"

// Handlers contains the HTTP handlers for the vision service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleCreateDataset handles POST /v1/vision/datasets.
//
// Request Body:
//
//	CreateDatasetRequest
//
// Response:
//
//	201 Created: DatasetResponse
//	400 Bad Request: Validation error
//	409 Conflict: Name already taken
func (h *Handlers) HandleCreateDataset(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleCreateDataset")

	var req CreateDatasetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	ds, err := h.svc.CreateDataset(c.Request.Context(), req.Name, req.MediaType)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "CREATE_FAILED"

		if errors.Is(err, dataset.ErrInvalidName) {
			statusCode = http.StatusBadRequest
			errCode = "INVALID_NAME"
		} else if errors.Is(err, dataset.ErrDatasetExists) {
			statusCode = http.StatusConflict
			errCode = "DATASET_EXISTS"
		}

		logger.Error("Create dataset failed", "name", req.Name, "error", err)
		c.JSON(statusCode, ErrorResponse{Error: err.Error(), Code: errCode})
		return
	}

	logger.Info("Dataset created", "name", ds.Name(), "media_type", ds.MediaType())
	c.JSON(http.StatusCreated, DatasetResponse{
		Name:      ds.Name(),
		MediaType: string(ds.MediaType()),
	})
}

// HandleListDatasets handles GET /v1/vision/datasets.
func (h *Handlers) HandleListDatasets(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleListDatasets")

	names, err := h.svc.ListDatasets(c.Request.Context())
	if err != nil {
		logger.Error("List datasets failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "LIST_FAILED",
		})
		return
	}

	c.JSON(http.StatusOK, DatasetsResponse{Datasets: names})
}

// HandleGetDataset handles GET /v1/vision/datasets/:name.
//
// Response:
//
//	200 OK: DatasetResponse
//	404 Not Found: Unknown dataset
func (h *Handlers) HandleGetDataset(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGetDataset")
	name := c.Param("name")

	ds, count, err := h.svc.GetDataset(c.Request.Context(), name)
	if err != nil {
		h.writeDatasetError(c, logger, name, err)
		return
	}

	c.JSON(http.StatusOK, DatasetResponse{
		Name:        ds.Name(),
		MediaType:   string(ds.MediaType()),
		SampleCount: count,
	})
}

// HandleDeleteDataset handles DELETE /v1/vision/datasets/:name.
func (h *Handlers) HandleDeleteDataset(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleDeleteDataset")
	name := c.Param("name")

	if err := h.svc.DeleteDataset(c.Request.Context(), name); err != nil {
		h.writeDatasetError(c, logger, name, err)
		return
	}

	logger.Info("Dataset deleted", "name", name)
	c.Status(http.StatusNoContent)
}

// HandleAddSample handles POST /v1/vision/datasets/:name/samples.
//
// Request Body:
//
//	AddSampleRequest
//
// Response:
//
//	201 Created: AddSampleResponse
//	400 Bad Request: Validation error
//	404 Not Found: Unknown dataset
func (h *Handlers) HandleAddSample(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleAddSample")
	name := c.Param("name")

	var req AddSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	sample := &dataset.Sample{
		ID:       req.ID,
		Filepath: req.Filepath,
		Labels:   req.Labels,
	}
	for _, frame := range req.Frames {
		sample.AddFrame(frame)
	}

	id, err := h.svc.AddSample(c.Request.Context(), name, sample)
	if err != nil {
		if errors.Is(err, dataset.ErrDatasetNotFound) {
			h.writeDatasetError(c, logger, name, err)
			return
		}
		logger.Error("Add sample failed", "dataset", name, "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "ADD_SAMPLE_FAILED",
		})
		return
	}

	c.JSON(http.StatusCreated, AddSampleResponse{ID: id})
}

// HandleGetSample handles GET /v1/vision/datasets/:name/samples/:id.
func (h *Handlers) HandleGetSample(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGetSample")
	name := c.Param("name")

	sample, err := h.svc.GetSample(c.Request.Context(), name, c.Param("id"))
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "GET_SAMPLE_FAILED"

		if errors.Is(err, dataset.ErrDatasetNotFound) {
			statusCode = http.StatusNotFound
			errCode = "DATASET_NOT_FOUND"
		} else if errors.Is(err, dataset.ErrSampleNotFound) {
			statusCode = http.StatusNotFound
			errCode = "SAMPLE_NOT_FOUND"
		}

		logger.Warn("Get sample failed", "dataset", name, "error", err)
		c.JSON(statusCode, ErrorResponse{Error: err.Error(), Code: errCode})
		return
	}

	c.JSON(http.StatusOK, sample)
}

// HandleEvaluate handles POST /v1/vision/datasets/:name/evaluate.
//
// Description:
//
//	Runs a detection evaluation over the dataset and returns the
//	aggregated results. With an eval key the run also persists per-sample
//	fields and a run record.
//
// Request Body:
//
//	EvaluateRequest
//
// Response:
//
//	200 OK: EvaluateResponse
//	400 Bad Request: Validation, method or option error
//	404 Not Found: Unknown dataset
func (h *Handlers) HandleEvaluate(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleEvaluate")
	name := c.Param("name")

	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	logger.Info("Evaluating detections",
		"dataset", name,
		"pred_field", req.PredField,
		"eval_key", req.EvalKey)

	results, err := h.svc.Evaluate(c.Request.Context(), name, req)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "EVAL_FAILED"

		if errors.Is(err, dataset.ErrDatasetNotFound) {
			statusCode = http.StatusNotFound
			errCode = "DATASET_NOT_FOUND"
		} else if errors.Is(err, eval.ErrUnknownMethod) {
			statusCode = http.StatusBadRequest
			errCode = "UNKNOWN_METHOD"
		} else if errors.Is(err, eval.ErrUnknownOption) {
			statusCode = http.StatusBadRequest
			errCode = "UNKNOWN_OPTION"
		} else if errors.Is(err, eval.ErrInvalidConfig) {
			statusCode = http.StatusBadRequest
			errCode = "INVALID_CONFIG"
		} else if errors.Is(err, eval.ErrMissingPredField) {
			statusCode = http.StatusBadRequest
			errCode = "MISSING_PRED_FIELD"
		}

		logger.Error("Evaluation failed", "dataset", name, "error", err)
		c.JSON(statusCode, ErrorResponse{Error: err.Error(), Code: errCode})
		return
	}

	tally := results.Tally()
	logger.Info("Evaluation complete",
		"dataset", name,
		"matches", len(results.Matches),
		"tp", tally.TP,
		"fp", tally.FP,
		"fn", tally.FN)

	c.JSON(http.StatusOK, EvaluateResponse{
		EvalKey:         req.EvalKey,
		Tally:           tally,
		Classes:         results.Classes,
		ConfusionMatrix: results.ConfusionMatrix(),
		Report:          results.Report(),
		Metrics:         results.Metrics(),
		MatchCount:      len(results.Matches),
	})
}

// HandleGetEvalRun handles GET /v1/vision/datasets/:name/evaluations/:key.
func (h *Handlers) HandleGetEvalRun(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGetEvalRun")
	name := c.Param("name")

	info, err := h.svc.EvalInfo(c.Request.Context(), name, c.Param("key"))
	if err != nil {
		h.writeEvalRunError(c, logger, name, err)
		return
	}

	c.JSON(http.StatusOK, EvalInfoResponse{
		EvalKey:   info.EvalKey,
		PredField: info.PredField,
		GTField:   info.GTField,
		Method:    info.Config.Method(),
		Config:    info.Config,
	})
}

// HandleDeleteEvalRun handles DELETE /v1/vision/datasets/:name/evaluations/:key.
//
// Description:
//
//	Clears the run: per-object match attributes, per-sample counts, and
//	the run record itself.
func (h *Handlers) HandleDeleteEvalRun(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleDeleteEvalRun")
	name := c.Param("name")
	key := c.Param("key")

	if err := h.svc.ClearEvaluation(c.Request.Context(), name, key); err != nil {
		h.writeEvalRunError(c, logger, name, err)
		return
	}

	logger.Info("Evaluation cleared", "dataset", name, "eval_key", key)
	c.Status(http.StatusNoContent)
}

// HandleListMethods handles GET /v1/vision/methods.
func (h *Handlers) HandleListMethods(c *gin.Context) {
	c.JSON(http.StatusOK, MethodsResponse{Methods: h.svc.Methods()})
}

// HandleHealth handles GET /v1/vision/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: "vision",
		Version: ServiceVersion,
	})
}

// HandleReady handles GET /v1/vision/ready.
func (h *Handlers) HandleReady(c *gin.Context) {
	names, err := h.svc.ListDatasets(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, ReadyResponse{Ready: false})
		return
	}
	c.JSON(http.StatusOK, ReadyResponse{Ready: true, DatasetCount: len(names)})
}

func (h *Handlers) writeDatasetError(c *gin.Context, logger *slog.Logger, name string, err error) {
	statusCode := http.StatusInternalServerError
	errCode := "DATASET_ERROR"

	if errors.Is(err, dataset.ErrDatasetNotFound) {
		statusCode = http.StatusNotFound
		errCode = "DATASET_NOT_FOUND"
	}

	logger.Warn("Dataset operation failed", "dataset", name, "error", err)
	c.JSON(statusCode, ErrorResponse{Error: err.Error(), Code: errCode})
}

func (h *Handlers) writeEvalRunError(c *gin.Context, logger *slog.Logger, name string, err error) {
	statusCode := http.StatusInternalServerError
	errCode := "EVAL_RUN_ERROR"

	if errors.Is(err, dataset.ErrDatasetNotFound) {
		statusCode = http.StatusNotFound
		errCode = "DATASET_NOT_FOUND"
	} else if errors.Is(err, eval.ErrEvalNotFound) {
		statusCode = http.StatusNotFound
		errCode = "EVAL_NOT_FOUND"
	}

	logger.Warn("Evaluation run operation failed", "dataset", name, "error", err)
	c.JSON(statusCode, ErrorResponse{Error: err.Error(), Code: errCode})
}

// getOrCreateRequestID gets or creates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
