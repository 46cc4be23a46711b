package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/blocklog/internal/block"
	"github.com/hitoshi/blocklog/internal/middleware"
	"github.com/hitoshi/blocklog/internal/model"
	"github.com/hitoshi/blocklog/internal/repository"
)

// --- モック定義 ---

// mockBlockService はBlockServiceInterfaceのモック実装。
type mockBlockService struct {
	createFn      func(ctx context.Context, userID string, input block.CreateInput) (*model.Block, error)
	getFn         func(ctx context.Context, userID, id string) (*model.Block, error)
	listFn        func(ctx context.Context, userID string, filter repository.BlockFilter) ([]*model.Block, block.Pagination, error)
	listOngoingFn func(ctx context.Context, userID string) ([]*model.Block, error)
	updateFn      func(ctx context.Context, userID, id string, input block.UpdateInput) (*model.Block, error)
	resolveFn     func(ctx context.Context, userID, id string, resolvedAt *time.Time) (*model.Block, error)
	removeFn      func(ctx context.Context, userID, id string) error
}

func (m *mockBlockService) Create(ctx context.Context, userID string, input block.CreateInput) (*model.Block, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, input)
	}
	return nil, nil
}

func (m *mockBlockService) Get(ctx context.Context, userID, id string) (*model.Block, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID, id)
	}
	return nil, nil
}

func (m *mockBlockService) List(ctx context.Context, userID string, filter repository.BlockFilter) ([]*model.Block, block.Pagination, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, filter)
	}
	return nil, block.Pagination{}, nil
}

func (m *mockBlockService) ListOngoing(ctx context.Context, userID string) ([]*model.Block, error) {
	if m.listOngoingFn != nil {
		return m.listOngoingFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockBlockService) Update(ctx context.Context, userID, id string, input block.UpdateInput) (*model.Block, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, id, input)
	}
	return nil, nil
}

func (m *mockBlockService) Resolve(ctx context.Context, userID, id string, resolvedAt *time.Time) (*model.Block, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, userID, id, resolvedAt)
	}
	return nil, nil
}

func (m *mockBlockService) Remove(ctx context.Context, userID, id string) error {
	if m.removeFn != nil {
		return m.removeFn(ctx, userID, id)
	}
	return nil
}

// --- テストヘルパー ---

// withUserID はテスト用にリクエストコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// parseValidationErrorResponse はバリデーションエラーレスポンスをパースするヘルパー。
func parseValidationErrorResponse(t *testing.T, w *httptest.ResponseRecorder) validationErrorResponse {
	t.Helper()
	var result validationErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode validation error response: %v", err)
	}
	return result
}

// testBlock はテスト用のブロッカーを生成するヘルパー。
func testBlock(id string) *model.Block {
	started := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	return &model.Block{
		ID:        id,
		UserID:    "user-123",
		Title:     "CIが落ちる",
		Reason:    "flakyなテストがある",
		Status:    model.BlockStatusOngoing,
		StartedAt: started,
		Duration:  5000,
		Tags: []model.Tag{
			{ID: "tag-1", Name: "インフラ", Color: "#ff0000"},
		},
		CreatedAt: started,
		UpdatedAt: started,
	}
}

// --- POST /api/blocks テスト ---

func TestBlockHandler_CreateBlock_Success(t *testing.T) {
	svc := &mockBlockService{
		createFn: func(ctx context.Context, userID string, input block.CreateInput) (*model.Block, error) {
			if userID != "user-123" {
				t.Errorf("userID = %q, want %q", userID, "user-123")
			}
			if input.Title != "CIが落ちる" {
				t.Errorf("title = %q, want %q", input.Title, "CIが落ちる")
			}
			if len(input.TagIDs) != 1 || input.TagIDs[0] != "tag-1" {
				t.Errorf("tagIDs = %v, want [tag-1]", input.TagIDs)
			}
			return testBlock("block-1"), nil
		},
	}

	h := NewBlockHandler(svc)

	body := `{"title": "CIが落ちる", "reason": "flakyなテストがある", "tagIds": ["tag-1"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/blocks", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.CreateBlock(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if result["id"] != "block-1" {
		t.Errorf("id = %v, want %q", result["id"], "block-1")
	}
	if result["status"] != "ongoing" {
		t.Errorf("status = %v, want %q", result["status"], "ongoing")
	}
	if result["duration"] != float64(5000) {
		t.Errorf("duration = %v, want 5000", result["duration"])
	}

	tags, ok := result["tags"].([]interface{})
	if !ok || len(tags) != 1 {
		t.Fatalf("tags = %v, want 1 entry", result["tags"])
	}
}

func TestBlockHandler_CreateBlock_MissingFields_ReturnsValidationError(t *testing.T) {
	h := NewBlockHandler(&mockBlockService{})

	body := `{"title": "", "reason": ""}`
	req := httptest.NewRequest(http.MethodPost, "/api/blocks", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.CreateBlock(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	errResp := parseValidationErrorResponse(t, w)
	if errResp.Message != "Validation failed" {
		t.Errorf("message = %q, want %q", errResp.Message, "Validation failed")
	}
	if len(errResp.Errors) != 2 {
		t.Fatalf("errors = %d, want 2", len(errResp.Errors))
	}
	if errResp.Errors[0].Field != "title" {
		t.Errorf("errors[0].field = %q, want %q", errResp.Errors[0].Field, "title")
	}
	if errResp.Errors[1].Field != "reason" {
		t.Errorf("errors[1].field = %q, want %q", errResp.Errors[1].Field, "reason")
	}
}

func TestBlockHandler_CreateBlock_InvalidJSON_ReturnsBadRequest(t *testing.T) {
	h := NewBlockHandler(&mockBlockService{})

	body := `{invalid json`
	req := httptest.NewRequest(http.MethodPost, "/api/blocks", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.CreateBlock(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != "INVALID_REQUEST" {
		t.Errorf("code = %q, want %q", errResp["code"], "INVALID_REQUEST")
	}
}

func TestBlockHandler_CreateBlock_NoUserID_ReturnsUnauthorized(t *testing.T) {
	h := NewBlockHandler(&mockBlockService{})

	body := `{"title": "t", "reason": "r"}`
	req := httptest.NewRequest(http.MethodPost, "/api/blocks", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	// ユーザーIDを注入しない
	w := httptest.NewRecorder()

	h.CreateBlock(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

// --- GET /api/blocks テスト ---

func TestBlockHandler_ListBlocks_ForwardsFilter(t *testing.T) {
	svc := &mockBlockService{
		listFn: func(ctx context.Context, userID string, filter repository.BlockFilter) ([]*model.Block, block.Pagination, error) {
			if filter.Status != model.BlockStatusOngoing {
				t.Errorf("status = %q, want %q", filter.Status, model.BlockStatusOngoing)
			}
			if filter.Search != "CI" {
				t.Errorf("search = %q, want %q", filter.Search, "CI")
			}
			if filter.Page != 2 || filter.Limit != 5 {
				t.Errorf("page/limit = %d/%d, want 2/5", filter.Page, filter.Limit)
			}
			if len(filter.TagIDs) != 2 {
				t.Errorf("tagIDs = %v, want 2 entries", filter.TagIDs)
			}
			if filter.StartDate == nil || filter.StartDate.Format("2006-01-02") != "2026-08-01" {
				t.Errorf("startDate = %v, want 2026-08-01", filter.StartDate)
			}
			return []*model.Block{testBlock("block-1")}, block.Pagination{Total: 11, Page: 2, Limit: 5, TotalPages: 3}, nil
		},
	}

	h := NewBlockHandler(svc)

	req := httptest.NewRequest(http.MethodGet,
		"/api/blocks?status=ongoing&search=CI&page=2&limit=5&tagIds=tag-1&tagIds=tag-2&startDate=2026-08-01", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.ListBlocks(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var result blockListResponse
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(result.Blocks) != 1 {
		t.Errorf("blocks = %d, want 1", len(result.Blocks))
	}
	if result.Pagination.Total != 11 || result.Pagination.TotalPages != 3 {
		t.Errorf("pagination = %+v, want total=11 totalPages=3", result.Pagination)
	}
}

func TestBlockHandler_ListBlocks_DefaultPaging(t *testing.T) {
	svc := &mockBlockService{
		listFn: func(ctx context.Context, userID string, filter repository.BlockFilter) ([]*model.Block, block.Pagination, error) {
			if filter.Page != 1 || filter.Limit != 10 {
				t.Errorf("page/limit = %d/%d, want 1/10", filter.Page, filter.Limit)
			}
			return nil, block.Pagination{Page: 1, Limit: 10}, nil
		},
	}

	h := NewBlockHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/blocks?page=abc&limit=-1", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.ListBlocks(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestBlockHandler_ListBlocks_InvalidStatus_ReturnsValidationError(t *testing.T) {
	h := NewBlockHandler(&mockBlockService{})

	req := httptest.NewRequest(http.MethodGet, "/api/blocks?status=done", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.ListBlocks(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	errResp := parseValidationErrorResponse(t, w)
	if len(errResp.Errors) != 1 || errResp.Errors[0].Field != "status" {
		t.Errorf("errors = %+v, want single status error", errResp.Errors)
	}
}

// --- GET /api/blocks/ongoing テスト ---

func TestBlockHandler_ListOngoingBlocks_Success(t *testing.T) {
	svc := &mockBlockService{
		listOngoingFn: func(ctx context.Context, userID string) ([]*model.Block, error) {
			return []*model.Block{testBlock("block-1"), testBlock("block-2")}, nil
		},
	}

	h := NewBlockHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/blocks/ongoing", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.ListOngoingBlocks(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var result []blockResponse
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(result) != 2 {
		t.Errorf("blocks = %d, want 2", len(result))
	}
}

// --- GET /api/blocks/:id テスト ---

func TestBlockHandler_GetBlock_Success(t *testing.T) {
	svc := &mockBlockService{
		getFn: func(ctx context.Context, userID, id string) (*model.Block, error) {
			if id != "block-1" {
				t.Errorf("id = %q, want %q", id, "block-1")
			}
			return testBlock("block-1"), nil
		},
	}

	h := NewBlockHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/blocks/block-1", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "block-1")
	w := httptest.NewRecorder()

	h.GetBlock(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestBlockHandler_GetBlock_NotFound(t *testing.T) {
	svc := &mockBlockService{
		getFn: func(ctx context.Context, userID, id string) (*model.Block, error) {
			return nil, model.NewBlockNotFoundError()
		},
	}

	h := NewBlockHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/blocks/nonexistent", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "nonexistent")
	w := httptest.NewRecorder()

	h.GetBlock(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}

	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != model.ErrCodeBlockNotFound {
		t.Errorf("code = %q, want %q", errResp["code"], model.ErrCodeBlockNotFound)
	}
}

func TestBlockHandler_GetBlock_InternalError_ReturnsInternalServerError(t *testing.T) {
	svc := &mockBlockService{
		getFn: func(ctx context.Context, userID, id string) (*model.Block, error) {
			return nil, errors.New("database error")
		},
	}

	h := NewBlockHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/blocks/block-1", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "block-1")
	w := httptest.NewRecorder()

	h.GetBlock(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}
}

// --- PATCH /api/blocks/:id テスト ---

func TestBlockHandler_UpdateBlock_Success(t *testing.T) {
	svc := &mockBlockService{
		updateFn: func(ctx context.Context, userID, id string, input block.UpdateInput) (*model.Block, error) {
			if input.Title == nil || *input.Title != "新しいタイトル" {
				t.Errorf("title = %v, want 新しいタイトル", input.Title)
			}
			if input.Status == nil || *input.Status != model.BlockStatusResolved {
				t.Errorf("status = %v, want resolved", input.Status)
			}
			if input.Reason != nil {
				t.Errorf("reason = %v, want nil", input.Reason)
			}
			return testBlock(id), nil
		},
	}

	h := NewBlockHandler(svc)

	body := `{"title": "新しいタイトル", "status": "resolved"}`
	req := httptest.NewRequest(http.MethodPut, "/api/blocks/block-1", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "block-1")
	w := httptest.NewRecorder()

	h.UpdateBlock(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

// 更新ボディのresolvedAtがUpdateInputまで届く
func TestBlockHandler_UpdateBlock_ForwardsResolvedAt(t *testing.T) {
	want := time.Date(2026, 8, 31, 9, 0, 5, 0, time.UTC)
	svc := &mockBlockService{
		updateFn: func(ctx context.Context, userID, id string, input block.UpdateInput) (*model.Block, error) {
			if input.ResolvedAt == nil || !input.ResolvedAt.Equal(want) {
				t.Errorf("resolvedAt = %v, want %v", input.ResolvedAt, want)
			}
			return testBlock(id), nil
		},
	}

	h := NewBlockHandler(svc)

	body := `{"status": "resolved", "resolvedAt": "2026-08-31T09:00:05Z"}`
	req := httptest.NewRequest(http.MethodPut, "/api/blocks/block-1", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "block-1")
	w := httptest.NewRecorder()

	h.UpdateBlock(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestBlockHandler_UpdateBlock_InvalidStatus_ReturnsValidationError(t *testing.T) {
	h := NewBlockHandler(&mockBlockService{})

	body := `{"status": "done"}`
	req := httptest.NewRequest(http.MethodPut, "/api/blocks/block-1", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "block-1")
	w := httptest.NewRecorder()

	h.UpdateBlock(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

// --- PATCH /api/blocks/:id/resolve テスト ---

func TestBlockHandler_ResolveBlock_Success(t *testing.T) {
	resolvedAt := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	svc := &mockBlockService{
		resolveFn: func(ctx context.Context, userID, id string, explicit *time.Time) (*model.Block, error) {
			// ボディ省略時はnilが渡る
			if explicit != nil {
				t.Errorf("expected nil resolvedAt, got %v", explicit)
			}
			b := testBlock(id)
			b.Status = model.BlockStatusResolved
			b.ResolvedAt = &resolvedAt
			b.Duration = 3600000
			return b, nil
		},
	}

	h := NewBlockHandler(svc)

	req := httptest.NewRequest(http.MethodPatch, "/api/blocks/block-1/resolve", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "block-1")
	w := httptest.NewRecorder()

	h.ResolveBlock(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["status"] != "resolved" {
		t.Errorf("status = %v, want resolved", result["status"])
	}
	if result["duration"] != float64(3600000) {
		t.Errorf("duration = %v, want 3600000", result["duration"])
	}
	if result["resolvedAt"] == nil {
		t.Error("expected resolvedAt to be set")
	}
}

// ボディで指定したresolvedAtがサービスまで届く
func TestBlockHandler_ResolveBlock_ForwardsExplicitResolvedAt(t *testing.T) {
	want := time.Date(2026, 8, 31, 9, 0, 5, 0, time.UTC)
	var got *time.Time
	svc := &mockBlockService{
		resolveFn: func(ctx context.Context, userID, id string, explicit *time.Time) (*model.Block, error) {
			got = explicit
			b := testBlock(id)
			b.Status = model.BlockStatusResolved
			b.ResolvedAt = explicit
			b.Duration = 5000
			return b, nil
		},
	}

	h := NewBlockHandler(svc)

	body := `{"resolvedAt":"2026-08-31T09:00:05Z"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/blocks/block-1/resolve", bytes.NewBufferString(body))
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "block-1")
	w := httptest.NewRecorder()

	h.ResolveBlock(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if got == nil || !got.Equal(want) {
		t.Errorf("forwarded resolvedAt = %v, want %v", got, want)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["duration"] != float64(5000) {
		t.Errorf("duration = %v, want 5000", result["duration"])
	}
}

func TestBlockHandler_ResolveBlock_ResolvedAtBeforeStartedAt_ReturnsBadRequest(t *testing.T) {
	svc := &mockBlockService{
		resolveFn: func(ctx context.Context, userID, id string, explicit *time.Time) (*model.Block, error) {
			return nil, model.NewInvalidResolvedAtError()
		},
	}

	h := NewBlockHandler(svc)

	body := `{"resolvedAt":"2026-08-31T08:00:00Z"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/blocks/block-1/resolve", bytes.NewBufferString(body))
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "block-1")
	w := httptest.NewRecorder()

	h.ResolveBlock(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != model.ErrCodeInvalidResolvedAt {
		t.Errorf("code = %q, want %q", errResp["code"], model.ErrCodeInvalidResolvedAt)
	}
}

func TestBlockHandler_ResolveBlock_AlreadyResolved_ReturnsConflict(t *testing.T) {
	svc := &mockBlockService{
		resolveFn: func(ctx context.Context, userID, id string, resolvedAt *time.Time) (*model.Block, error) {
			return nil, model.NewBlockAlreadyResolvedError()
		},
	}

	h := NewBlockHandler(svc)

	req := httptest.NewRequest(http.MethodPatch, "/api/blocks/block-1/resolve", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "block-1")
	w := httptest.NewRecorder()

	h.ResolveBlock(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}

	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != model.ErrCodeBlockAlreadyResolved {
		t.Errorf("code = %q, want %q", errResp["code"], model.ErrCodeBlockAlreadyResolved)
	}
}

// --- DELETE /api/blocks/:id テスト ---

func TestBlockHandler_DeleteBlock_Success(t *testing.T) {
	removeCalled := false
	svc := &mockBlockService{
		removeFn: func(ctx context.Context, userID, id string) error {
			removeCalled = true
			if userID != "user-123" {
				t.Errorf("userID = %q, want %q", userID, "user-123")
			}
			if id != "block-1" {
				t.Errorf("id = %q, want %q", id, "block-1")
			}
			return nil
		},
	}

	h := NewBlockHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/blocks/block-1", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "block-1")
	w := httptest.NewRecorder()

	h.DeleteBlock(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if !removeCalled {
		t.Error("expected Remove to be called")
	}
}

func TestBlockHandler_DeleteBlock_NotFound(t *testing.T) {
	svc := &mockBlockService{
		removeFn: func(ctx context.Context, userID, id string) error {
			return model.NewBlockNotFoundError()
		},
	}

	h := NewBlockHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/blocks/nonexistent", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "nonexistent")
	w := httptest.NewRecorder()

	h.DeleteBlock(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

// --- 統一エラーフォーマットのテスト ---

func TestBlockHandler_ErrorResponse_ContainsAllFields(t *testing.T) {
	svc := &mockBlockService{
		getFn: func(ctx context.Context, userID, id string) (*model.Block, error) {
			return nil, model.NewBlockNotFoundError()
		},
	}

	h := NewBlockHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/blocks/block-1", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "block-1")
	w := httptest.NewRecorder()

	h.GetBlock(w, req)

	errResp := parseAPIErrorResponse(t, w)

	// 統一エラーフォーマット（code, message, category, action）の4フィールドを検証
	requiredFields := []string{"code", "message", "category", "action"}
	for _, field := range requiredFields {
		if errResp[field] == "" {
			t.Errorf("expected non-empty %q field in error response", field)
		}
	}
}
