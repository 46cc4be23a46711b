package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/blocklog/internal/model"
	"github.com/hitoshi/blocklog/internal/repository"
	"github.com/hitoshi/blocklog/internal/tag"
)

// TagServiceInterface はタグハンドラーが必要とするサービスインターフェース。
type TagServiceInterface interface {
	Create(ctx context.Context, userID string, input tag.CreateInput) (*model.Tag, error)
	Get(ctx context.Context, userID, id string) (*model.Tag, error)
	List(ctx context.Context, userID string) ([]*model.Tag, error)
	Update(ctx context.Context, userID, id string, input tag.UpdateInput) (*model.Tag, error)
	Remove(ctx context.Context, userID, id string) error
	Stats(ctx context.Context, userID string) ([]repository.TagStat, error)
}

// TagHandler はタグ管理のHTTPハンドラー。
type TagHandler struct {
	service TagServiceInterface
}

// NewTagHandler はTagHandlerを生成する。
func NewTagHandler(service TagServiceInterface) *TagHandler {
	return &TagHandler{service: service}
}

// createTagRequest はタグ作成リクエストのボディ。
type createTagRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// updateTagRequest はタグ更新リクエストのボディ。
type updateTagRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
}

// tagResponse はタグ情報のAPIレスポンス。
type tagResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// tagStatResponse はタグ別集計1件のAPIレスポンス。
type tagStatResponse struct {
	TagID           string `json:"tagId"`
	TagName         string `json:"tagName"`
	TagColor        string `json:"tagColor"`
	TotalBlocks     int    `json:"totalBlocks"`
	TotalDuration   int64  `json:"totalDuration"`
	AverageDuration int64  `json:"averageDuration"`
}

// CreateTag はタグ作成を処理する。
// POST /api/tags
func (h *TagHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createTagRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.Name == "" {
		writeValidationError(w, []fieldError{{Field: "name", Message: "タグ名は必須です。"}})
		return
	}

	created, err := h.service.Create(r.Context(), userID, tag.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTagResponse(created))
}

// ListTags はタグ一覧を処理する。
// GET /api/tags
func (h *TagHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	tags, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]tagResponse, 0, len(tags))
	for _, t := range tags {
		responses = append(responses, toTagResponse(t))
	}
	writeJSON(w, http.StatusOK, responses)
}

// GetTag はタグ詳細を処理する。
// GET /api/tags/:id
func (h *TagHandler) GetTag(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	found, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTagResponse(found))
}

// UpdateTag はタグ更新を処理する。
// PUT /api/tags/:id
func (h *TagHandler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req updateTagRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	updated, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), tag.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTagResponse(updated))
}

// DeleteTag はタグ削除を処理する。ブロッカー本体は削除されない。
// DELETE /api/tags/:id
func (h *TagHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
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

// TagStats はタグ別集計を処理する。
// GET /api/tags/stats
func (h *TagHandler) TagStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	stats, err := h.service.Stats(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]tagStatResponse, 0, len(stats))
	for _, s := range stats {
		responses = append(responses, tagStatResponse{
			TagID:           s.TagID,
			TagName:         s.TagName,
			TagColor:        s.TagColor,
			TotalBlocks:     s.TotalBlocks,
			TotalDuration:   s.TotalDuration,
			AverageDuration: s.AverageDuration,
		})
	}
	writeJSON(w, http.StatusOK, responses)
}

// toTagResponse はmodel.TagからAPIレスポンスに変換する。
func toTagResponse(t *model.Tag) tagResponse {
	return tagResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Color:       t.Color,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
