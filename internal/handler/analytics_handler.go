package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/blocklog/internal/analytics"
	"github.com/hitoshi/blocklog/internal/model"
	"github.com/hitoshi/blocklog/internal/repository"
)

// AnalyticsServiceInterface は集計ハンドラーが必要とするサービスインターフェース。
type AnalyticsServiceInterface interface {
	Dashboard(ctx context.Context, userID string) (*analytics.Dashboard, error)
	Monthly(ctx context.Context, userID string, year int) ([]repository.MonthlyStat, error)
	Daily(ctx context.Context, userID string, year, month int) ([]repository.DailyStat, error)
	Calendar(ctx context.Context, userID string, year int) ([]repository.DailyStat, error)
	Export(ctx context.Context, userID string) ([]*model.Block, error)
}

// AnalyticsHandler は集計APIのHTTPハンドラー。
type AnalyticsHandler struct {
	service AnalyticsServiceInterface
}

// NewAnalyticsHandler はAnalyticsHandlerを生成する。
func NewAnalyticsHandler(service AnalyticsServiceInterface) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// longestBlockResponse は最長ブロッカーのAPIレスポンス。
type longestBlockResponse struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Duration int64  `json:"duration"`
}

// dashboardResponse はダッシュボード統計のAPIレスポンス。
type dashboardResponse struct {
	TotalBlocks      int                   `json:"totalBlocks"`
	OngoingBlocks    int                   `json:"ongoingBlocks"`
	ResolvedBlocks   int                   `json:"resolvedBlocks"`
	TotalTimeBlocked int64                 `json:"totalTimeBlocked"`
	AverageBlockTime int64                 `json:"averageBlockTime"`
	LongestBlock     *longestBlockResponse `json:"longestBlock"`
}

// monthlyStatResponse は月次集計1件のAPIレスポンス。
type monthlyStatResponse struct {
	Year            int   `json:"year"`
	Month           int   `json:"month"`
	TotalBlocks     int   `json:"totalBlocks"`
	TotalDuration   int64 `json:"totalDuration"`
	AverageDuration int64 `json:"averageDuration"`
}

// dailyStatResponse は日次集計1件のAPIレスポンス。
type dailyStatResponse struct {
	Date          string   `json:"date"`
	TotalBlocks   int      `json:"totalBlocks"`
	BlockTitles   []string `json:"blockTitles"`
	TotalDuration int64    `json:"totalDuration"`
}

// Dashboard はダッシュボード統計を処理する。
// GET /api/analytics/dashboard
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	dash, err := h.service.Dashboard(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := dashboardResponse{
		TotalBlocks:      dash.Counts.Total,
		OngoingBlocks:    dash.Counts.Ongoing,
		ResolvedBlocks:   dash.Counts.Resolved,
		TotalTimeBlocked: dash.Durations.TotalMs,
		AverageBlockTime: dash.Durations.AverageMs,
	}
	if dash.Longest != nil {
		resp.LongestBlock = &longestBlockResponse{
			ID:       dash.Longest.ID,
			Title:    dash.Longest.Title,
			Duration: dash.Longest.DurationMs,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Monthly は月次集計を処理する。
// GET /api/analytics/monthly?year=2026
func (h *AnalyticsHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	year := parseIntQuery(r.URL.Query().Get("year"), 0)

	stats, err := h.service.Monthly(r.Context(), userID, year)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]monthlyStatResponse, 0, len(stats))
	for _, s := range stats {
		responses = append(responses, monthlyStatResponse{
			Year:            s.Year,
			Month:           s.Month,
			TotalBlocks:     s.TotalBlocks,
			TotalDuration:   s.TotalDuration,
			AverageDuration: s.AverageDuration,
		})
	}

	writeJSON(w, http.StatusOK, responses)
}

// Daily は日次集計を処理する。
// GET /api/analytics/daily?year=2026&month=3
func (h *AnalyticsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	year := parseIntQuery(q.Get("year"), 0)
	month := parseIntQuery(q.Get("month"), 0)

	stats, err := h.service.Daily(r.Context(), userID, year, month)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDailyStatResponses(stats))
}

// Calendar は年間カレンダー用の日次集計を処理する。
// GET /api/analytics/calendar?year=2026
func (h *AnalyticsHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	year := parseIntQuery(r.URL.Query().Get("year"), 0)

	stats, err := h.service.Calendar(r.Context(), userID, year)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDailyStatResponses(stats))
}

// exportResponse はエクスポートのAPIレスポンス。
type exportResponse struct {
	ExportDate  time.Time       `json:"exportDate"`
	TotalBlocks int             `json:"totalBlocks"`
	Blocks      []blockResponse `json:"blocks"`
}

// Export は全ブロッカーのJSONエクスポートを処理する。
// GET /api/analytics/export
// durationは格納値のまま出力する（集計ビューとは意図的に異なる）。
func (h *AnalyticsHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	blocks, err := h.service.Export(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="blocks-export.json"`)
	writeJSON(w, http.StatusOK, exportResponse{
		ExportDate:  time.Now().UTC(),
		TotalBlocks: len(blocks),
		Blocks:      toBlockResponses(blocks),
	})
}

// toDailyStatResponses は日次集計をAPIレスポンスに変換する。
func toDailyStatResponses(stats []repository.DailyStat) []dailyStatResponse {
	responses := make([]dailyStatResponse, 0, len(stats))
	for _, s := range stats {
		titles := s.BlockTitles
		if titles == nil {
			titles = []string{}
		}
		responses = append(responses, dailyStatResponse{
			Date:          s.Date,
			TotalBlocks:   s.TotalBlocks,
			BlockTitles:   titles,
			TotalDuration: s.TotalDuration,
		})
	}
	return responses
}
