// Package handler はHTTP APIのハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/blocklog/internal/block"
	"github.com/hitoshi/blocklog/internal/middleware"
	"github.com/hitoshi/blocklog/internal/model"
	"github.com/hitoshi/blocklog/internal/repository"
)

// BlockServiceInterface はブロッカーハンドラーが必要とするサービスインターフェース。
type BlockServiceInterface interface {
	Create(ctx context.Context, userID string, input block.CreateInput) (*model.Block, error)
	Get(ctx context.Context, userID, id string) (*model.Block, error)
	List(ctx context.Context, userID string, filter repository.BlockFilter) ([]*model.Block, block.Pagination, error)
	ListOngoing(ctx context.Context, userID string) ([]*model.Block, error)
	Update(ctx context.Context, userID, id string, input block.UpdateInput) (*model.Block, error)
	Resolve(ctx context.Context, userID, id string, resolvedAt *time.Time) (*model.Block, error)
	Remove(ctx context.Context, userID, id string) error
}

// BlockHandler はブロッカー管理のHTTPハンドラー。
type BlockHandler struct {
	service BlockServiceInterface
}

// NewBlockHandler はBlockHandlerを生成する。
func NewBlockHandler(service BlockServiceInterface) *BlockHandler {
	return &BlockHandler{service: service}
}

// createBlockRequest はブロッカー作成リクエストのボディ。
type createBlockRequest struct {
	Title     string     `json:"title"`
	Reason    string     `json:"reason"`
	StartedAt *time.Time `json:"startedAt"`
	TagIDs    []string   `json:"tagIds"`
}

// updateBlockRequest はブロッカー更新リクエストのボディ。
// resolvedAtはstatusをresolvedへ遷移させる場合のみ有効な明示的解決時刻。
type updateBlockRequest struct {
	Title      *string    `json:"title"`
	Reason     *string    `json:"reason"`
	Status     *string    `json:"status"`
	ResolvedAt *time.Time `json:"resolvedAt"`
	TagIDs     *[]string  `json:"tagIds"`
}

// resolveBlockRequest はブロッカー解決リクエストのボディ。ボディ省略時は現在時刻で解決する。
type resolveBlockRequest struct {
	ResolvedAt *time.Time `json:"resolvedAt"`
}

// tagSummary はブロッカーレスポンスに含まれるタグ情報。
type tagSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color"`
}

// blockResponse はブロッカー情報のAPIレスポンス。
// durationは応答生成時点の実効ブロック時間（ミリ秒）。
type blockResponse struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Reason     string       `json:"reason"`
	Status     string       `json:"status"`
	StartedAt  time.Time    `json:"startedAt"`
	ResolvedAt *time.Time   `json:"resolvedAt"`
	Duration   int64        `json:"duration"`
	Tags       []tagSummary `json:"tags"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// paginationResponse はページング情報のAPIレスポンス。
type paginationResponse struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// blockListResponse はブロッカー一覧のAPIレスポンス。
type blockListResponse struct {
	Blocks     []blockResponse    `json:"blocks"`
	Pagination paginationResponse `json:"pagination"`
}

// CreateBlock はブロッカー作成を処理する。
// POST /api/blocks
func (h *BlockHandler) CreateBlock(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createBlockRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	var fieldErrors []fieldError
	if req.Title == "" {
		fieldErrors = append(fieldErrors, fieldError{Field: "title", Message: "タイトルは必須です。"})
	}
	if req.Reason == "" {
		fieldErrors = append(fieldErrors, fieldError{Field: "reason", Message: "理由は必須です。"})
	}
	if len(fieldErrors) > 0 {
		writeValidationError(w, fieldErrors)
		return
	}

	created, err := h.service.Create(r.Context(), userID, block.CreateInput{
		Title:     req.Title,
		Reason:    req.Reason,
		StartedAt: req.StartedAt,
		TagIDs:    req.TagIDs,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toBlockResponse(created))
}

// ListBlocks はブロッカー一覧を処理する。
// GET /api/blocks
func (h *BlockHandler) ListBlocks(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := repository.BlockFilter{
		Status: model.BlockStatus(q.Get("status")),
		Search: q.Get("search"),
		Page:   parseIntQuery(q.Get("page"), 1),
		Limit:  parseIntQuery(q.Get("limit"), 10),
	}
	if tags, ok := q["tagIds"]; ok {
		filter.TagIDs = tags
	}
	if from := parseTimeQuery(q.Get("startDate")); from != nil {
		filter.StartDate = from
	}
	if to := parseTimeQuery(q.Get("endDate")); to != nil {
		filter.EndDate = to
	}

	if filter.Status != "" && !filter.Status.IsValid() {
		writeValidationError(w, []fieldError{{Field: "status", Message: "statusはongoingまたはresolvedを指定してください。"}})
		return
	}

	blocks, page, err := h.service.List(r.Context(), userID, filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, blockListResponse{
		Blocks: toBlockResponses(blocks),
		Pagination: paginationResponse{
			Total:      page.Total,
			Page:       page.Page,
			Limit:      page.Limit,
			TotalPages: page.TotalPages,
		},
	})
}

// ListOngoingBlocks はongoingブロッカー一覧を処理する。
// GET /api/blocks/ongoing
func (h *BlockHandler) ListOngoingBlocks(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	blocks, err := h.service.ListOngoing(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBlockResponses(blocks))
}

// GetBlock はブロッカー詳細を処理する。
// GET /api/blocks/:id
func (h *BlockHandler) GetBlock(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	found, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBlockResponse(found))
}

// UpdateBlock はブロッカー更新を処理する。
// PUT /api/blocks/:id
func (h *BlockHandler) UpdateBlock(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req updateBlockRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	input := block.UpdateInput{
		Title:      req.Title,
		Reason:     req.Reason,
		ResolvedAt: req.ResolvedAt,
		TagIDs:     req.TagIDs,
	}
	if req.Status != nil {
		status := model.BlockStatus(*req.Status)
		if !status.IsValid() {
			writeValidationError(w, []fieldError{{Field: "status", Message: "statusはongoingまたはresolvedを指定してください。"}})
			return
		}
		input.Status = &status
	}

	updated, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBlockResponse(updated))
}

// ResolveBlock はブロッカー解決を処理する。
// PATCH /api/blocks/:id/resolve
func (h *BlockHandler) ResolveBlock(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	// ボディは任意。省略時・空の場合は現在時刻で解決する。
	var req resolveBlockRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
				Code:     "INVALID_REQUEST",
				Message:  "リクエストボディの解析に失敗しました。",
				Category: "validation",
				Action:   "正しいJSON形式でリクエストしてください。",
			})
			return
		}
	}

	resolved, err := h.service.Resolve(r.Context(), userID, chi.URLParam(r, "id"), req.ResolvedAt)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBlockResponse(resolved))
}

// DeleteBlock はブロッカー削除を処理する。
// DELETE /api/blocks/:id
func (h *BlockHandler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Remove(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// toBlockResponse はmodel.BlockからAPIレスポンスに変換する。
func toBlockResponse(b *model.Block) blockResponse {
	tags := make([]tagSummary, 0, len(b.Tags))
	for _, t := range b.Tags {
		tags = append(tags, tagSummary{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			Color:       t.Color,
		})
	}

	return blockResponse{
		ID:         b.ID,
		Title:      b.Title,
		Reason:     b.Reason,
		Status:     string(b.Status),
		StartedAt:  b.StartedAt,
		ResolvedAt: b.ResolvedAt,
		Duration:   b.Duration,
		Tags:       tags,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

// toBlockResponses は複数ブロッカーをAPIレスポンスに変換する。
func toBlockResponses(blocks []*model.Block) []blockResponse {
	responses := make([]blockResponse, 0, len(blocks))
	for _, b := range blocks {
		responses = append(responses, toBlockResponse(b))
	}
	return responses
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// fieldError はバリデーションエラーのフィールド単位の詳細。
type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// validationErrorResponse はバリデーションエラーのレスポンス。
type validationErrorResponse struct {
	Message string       `json:"message"`
	Errors  []fieldError `json:"errors"`
}

// requireUserID はコンテキストからユーザーIDを取得する。
// 取得できない場合は401を書き込んでfalseを返す。
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:     "UNAUTHORIZED",
			Message:  "認証が必要です。",
			Category: "auth",
			Action:   "ログインしてください。",
		})
		return "", false
	}
	return userID, true
}

// decodeJSONBody はリクエストボディをデコードする。
// 失敗時は400を書き込んでfalseを返す。
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return false
	}
	return true
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// writeValidationError はフィールド単位の詳細付きで400を書き込む。
func writeValidationError(w http.ResponseWriter, errs []fieldError) {
	writeJSON(w, http.StatusBadRequest, validationErrorResponse{
		Message: "Validation failed",
		Errors:  errs,
	})
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeJSON(w, statusCode, apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeBlockNotFound, model.ErrCodeTagNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeBlockAlreadyResolved, model.ErrCodeDuplicateTagName, model.ErrCodeDuplicateEmail:
		return http.StatusConflict
	case model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeInvalidResolvedAt, model.ErrCodeInvalidStartedAt, model.ErrCodeInvalidTagColor:
		return http.StatusBadRequest
	case model.ErrCodeAIUnavailable:
		return http.StatusServiceUnavailable
	case model.ErrCodeAIRequestFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// parseIntQuery はクエリパラメータを整数として解釈する。
// 空または不正な場合はデフォルト値を返す。
func parseIntQuery(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// parseTimeQuery はクエリパラメータをRFC 3339または日付として解釈する。
func parseTimeQuery(s string) *time.Time {
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t
	}
	return nil
}
