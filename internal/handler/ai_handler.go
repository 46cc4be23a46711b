package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/blocklog/internal/ai"
	"github.com/hitoshi/blocklog/internal/model"
	"github.com/hitoshi/blocklog/internal/repository"
)

// similarCandidateLimit は類似判定の候補として渡す直近ブロッカー数の上限。
// プロンプト長を抑えるため全件は渡さない。
const similarCandidateLimit = 50

// AIServiceInterface はAIハンドラーが必要とするサービスインターフェース。
type AIServiceInterface interface {
	Available() bool
	AnalyzeBlock(ctx context.Context, block *model.Block) (*ai.Analysis, error)
	FindSimilar(ctx context.Context, target *model.Block, candidates []*model.Block) ([]ai.SimilarBlock, error)
	SuggestResolution(ctx context.Context, block *model.Block) (*ai.Resolution, error)
}

// AIHandler はAI分析のHTTPハンドラー。
// 対象ブロッカーの取得はブロッカーサービス経由で行い、所有チェックを通す。
type AIHandler struct {
	service AIServiceInterface
	blocks  BlockServiceInterface
}

// NewAIHandler はAIHandlerを生成する。
func NewAIHandler(service AIServiceInterface, blocks BlockServiceInterface) *AIHandler {
	return &AIHandler{service: service, blocks: blocks}
}

// aiRequest はAI分析リクエストのボディ。
type aiRequest struct {
	BlockID string `json:"blockId"`
}

// statusResponse はAI機能の利用可否のAPIレスポンス。
type statusResponse struct {
	Available bool `json:"available"`
}

// similarResponse は類似ブロッカー判定のAPIレスポンス。
type similarResponse struct {
	SimilarBlocks []ai.SimilarBlock `json:"similarBlocks"`
}

// Status はAI機能の利用可否を処理する。
// GET /api/ai/status
func (h *AIHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Available: h.service.Available()})
}

// Analyze はブロッカー分析を処理する。
// POST /api/ai/analyze
func (h *AIHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	_, target, ok := h.resolveTarget(w, r)
	if !ok {
		return
	}

	analysis, err := h.service.AnalyzeBlock(r.Context(), target)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

// Similar は類似ブロッカー判定を処理する。
// POST /api/ai/similar
func (h *AIHandler) Similar(w http.ResponseWriter, r *http.Request) {
	userID, target, ok := h.resolveTarget(w, r)
	if !ok {
		return
	}

	// 直近のブロッカーを候補として渡す
	candidates, _, err := h.blocks.List(r.Context(), userID, repository.BlockFilter{
		Page:  1,
		Limit: similarCandidateLimit,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	similar, err := h.service.FindSimilar(r.Context(), target, candidates)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, similarResponse{SimilarBlocks: similar})
}

// Resolution は解決手順の提案を処理する。
// POST /api/ai/resolution
func (h *AIHandler) Resolution(w http.ResponseWriter, r *http.Request) {
	_, target, ok := h.resolveTarget(w, r)
	if !ok {
		return
	}

	resolution, err := h.service.SuggestResolution(r.Context(), target)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resolution)
}

// resolveTarget はリクエストボディのblockIdから対象ブロッカーを取得する。
// 認証・バリデーション・所有チェックに失敗した場合はレスポンス書き込み済みでfalseを返す。
func (h *AIHandler) resolveTarget(w http.ResponseWriter, r *http.Request) (string, *model.Block, bool) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return "", nil, false
	}

	var req aiRequest
	if !decodeJSONBody(w, r, &req) {
		return "", nil, false
	}
	if req.BlockID == "" {
		writeValidationError(w, []fieldError{{Field: "blockId", Message: "blockIdは必須です。"}})
		return "", nil, false
	}

	target, err := h.blocks.Get(r.Context(), userID, req.BlockID)
	if err != nil {
		handleServiceError(w, err)
		return "", nil, false
	}

	return userID, target, true
}
