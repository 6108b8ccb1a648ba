// Package handler provides HTTP handlers for the document hub service.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/dochub/internal/dochub/biz"
	"github.com/kart-io/dochub/internal/model"
	"github.com/kart-io/dochub/pkg/llm"
)

// queryTimeout bounds the end-to-end query flow (embed + search + generate).
const queryTimeout = 60 * time.Second

// HubHandler handles document hub HTTP requests.
type HubHandler struct {
	service biz.Service
	// models lists the model IDs advertised by /v1/models.
	models []ModelInfo
}

// ModelInfo describes a configured model.
type ModelInfo struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Default  bool   `json:"default,omitempty"`
}

// NewHubHandler creates a new HubHandler.
func NewHubHandler(service biz.Service, models []ModelInfo) *HubHandler {
	return &HubHandler{
		service: service,
		models:  models,
	}
}

// SuccessResponse is a standard success response.
type SuccessResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Ingest ingests a document into the caller's namespace.
// Flow-level failures come back as an error-status result with HTTP 200;
// only malformed requests produce a transport error.
func (h *HubHandler) Ingest(c *gin.Context) {
	var req model.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	result := h.service.Ingest(c.Request.Context(), &req)
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: result.Status, Data: result})
}

// DeleteDocument removes all chunks of a document from the caller's namespace.
func (h *HubHandler) DeleteDocument(c *gin.Context) {
	var req model.DeleteDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	result := h.service.DeleteDocument(c.Request.Context(), &req)
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: result.Status, Data: result})
}

// Query answers a question, optionally grounded on stored documents.
func (h *HubHandler) Query(c *gin.Context) {
	var req model.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	// 添加 60 秒超时控制
	ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
	defer cancel()

	result, err := h.service.Query(ctx, &req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			c.JSON(http.StatusRequestTimeout, ErrorResponse{
				Code:    408,
				Message: "Query timeout: the request took too long to process. Please try again or simplify your question.",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: result})
}

// Relevance returns the subset of candidate files relevant to a query.
func (h *HubHandler) Relevance(c *gin.Context) {
	var req model.RelevanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: 400, Message: err.Error()})
		return
	}

	result := h.service.Relevance(c.Request.Context(), &req)
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: result})
}

// Stats returns document hub statistics.
func (h *HubHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: 500, Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: stats})
}

// ModelsResponse lists registered providers and configured models.
type ModelsResponse struct {
	Providers []string    `json:"providers"`
	Models    []ModelInfo `json:"models"`
}

// Models lists the providers registered at startup and the models
// this deployment is configured to serve.
func (h *HubHandler) Models(c *gin.Context) {
	c.JSON(http.StatusOK, SuccessResponse{
		Code:    0,
		Message: "success",
		Data: ModelsResponse{
			Providers: llm.ListProviders(),
			Models:    h.models,
		},
	})
}
