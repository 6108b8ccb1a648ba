package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/dochub/internal/model"
	"github.com/kart-io/dochub/pkg/utils/json"
)

// fakeService 可编程的 Service 实现。
type fakeService struct {
	ingestResult *model.IngestResult
	deleteResult *model.DeleteDocumentResult
	queryResult  *model.QueryResult
	queryErr     error
	relevance    *model.RelevanceResult
	stats        map[string]any
	statsErr     error
}

func (f *fakeService) Ingest(_ context.Context, req *model.IngestRequest) *model.IngestResult {
	if f.ingestResult != nil {
		return f.ingestResult
	}
	return &model.IngestResult{UserID: req.UserID, DocumentID: req.DocumentID, Status: model.StatusSuccess, ChunksIndexed: 1}
}

func (f *fakeService) DeleteDocument(_ context.Context, req *model.DeleteDocumentRequest) *model.DeleteDocumentResult {
	if f.deleteResult != nil {
		return f.deleteResult
	}
	return &model.DeleteDocumentResult{UserID: req.UserID, DocumentID: req.DocumentID, Status: model.StatusSuccess}
}

func (f *fakeService) Query(context.Context, *model.QueryRequest) (*model.QueryResult, error) {
	return f.queryResult, f.queryErr
}

func (f *fakeService) Relevance(context.Context, *model.RelevanceRequest) *model.RelevanceResult {
	return f.relevance
}

func (f *fakeService) Stats(context.Context) (map[string]any, error) {
	return f.stats, f.statsErr
}

func newTestRouter(svc *fakeService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHubHandler(svc, []ModelInfo{{ID: "ollama/llama3", Provider: "ollama", Default: true}})

	r := gin.New()
	v1 := r.Group("/v1")
	v1.POST("/documents", h.Ingest)
	v1.DELETE("/documents", h.DeleteDocument)
	v1.POST("/query", h.Query)
	v1.POST("/relevance", h.Relevance)
	v1.GET("/stats", h.Stats)
	v1.GET("/models", h.Models)
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		buf.Write(data)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIngestHandler(t *testing.T) {
	r := newTestRouter(&fakeService{})

	w := doRequest(t, r, http.MethodPost, "/v1/documents", map[string]any{
		"user_id":     "alice",
		"document_id": "doc-1",
		"content":     "hello world",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, model.StatusSuccess, resp.Message)
}

func TestIngestHandlerFlowErrorIsHTTP200(t *testing.T) {
	// 流程级失败以数据形式返回，不是传输错误
	r := newTestRouter(&fakeService{
		ingestResult: &model.IngestResult{Status: model.StatusError, Error: "document content cannot be empty"},
	})

	w := doRequest(t, r, http.MethodPost, "/v1/documents", map[string]any{
		"user_id":     "alice",
		"document_id": "doc-1",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, model.StatusError, resp.Message)
}

func TestIngestHandlerBadRequest(t *testing.T) {
	r := newTestRouter(&fakeService{})

	// 缺少必填字段
	w := doRequest(t, r, http.MethodPost, "/v1/documents", map[string]any{"content": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteDocumentHandler(t *testing.T) {
	r := newTestRouter(&fakeService{})

	w := doRequest(t, r, http.MethodDelete, "/v1/documents", map[string]any{
		"user_id":     "alice",
		"document_id": "doc-1",
	})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestQueryHandler(t *testing.T) {
	r := newTestRouter(&fakeService{
		queryResult: &model.QueryResult{Answer: "42", ModelUsed: "ollama/llama3"},
	})

	w := doRequest(t, r, http.MethodPost, "/v1/query", map[string]any{"query": "meaning of life"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Code int               `json:"code"`
		Data model.QueryResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "42", resp.Data.Answer)
	assert.Equal(t, "ollama/llama3", resp.Data.ModelUsed)
}

func TestQueryHandlerError(t *testing.T) {
	r := newTestRouter(&fakeService{queryErr: errors.New("model failed to produce a valid output")})

	w := doRequest(t, r, http.MethodPost, "/v1/query", map[string]any{"query": "q"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestQueryHandlerMissingQuery(t *testing.T) {
	r := newTestRouter(&fakeService{})

	w := doRequest(t, r, http.MethodPost, "/v1/query", map[string]any{"user_id": "alice"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRelevanceHandler(t *testing.T) {
	r := newTestRouter(&fakeService{
		relevance: &model.RelevanceResult{RelevantFiles: []string{"a.txt"}},
	})

	w := doRequest(t, r, http.MethodPost, "/v1/relevance", map[string]any{
		"query": "budget",
		"files": []map[string]string{{"name": "a.txt", "data": "budget report"}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data model.RelevanceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"a.txt"}, resp.Data.RelevantFiles)
}

func TestStatsHandler(t *testing.T) {
	r := newTestRouter(&fakeService{
		stats: map[string]any{"store": map[string]any{"row_count": 10}},
	})

	w := doRequest(t, r, http.MethodGet, "/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "row_count")
}

func TestStatsHandlerError(t *testing.T) {
	r := newTestRouter(&fakeService{statsErr: errors.New("store unavailable")})

	w := doRequest(t, r, http.MethodGet, "/v1/stats", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestModelsHandler(t *testing.T) {
	r := newTestRouter(&fakeService{})

	w := doRequest(t, r, http.MethodGet, "/v1/models", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data ModelsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Models, 1)
	assert.Equal(t, "ollama/llama3", resp.Data.Models[0].ID)
	assert.True(t, resp.Data.Models[0].Default)
}
