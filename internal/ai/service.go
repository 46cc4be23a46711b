package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hitoshi/blocklog/internal/metrics"
	"github.com/hitoshi/blocklog/internal/model"
)

// Service はブロッカーのAI分析のサービス層。
// プロンプト構築と生成テキストからの構造化データ抽出を担う。
type Service struct {
	client    *Client
	collector metrics.MetricsCollector
}

// NewService はServiceを生成する。
func NewService(client *Client, collector metrics.MetricsCollector) *Service {
	return &Service{client: client, collector: collector}
}

// Available はAI機能が利用可能かどうかを返す。
func (s *Service) Available() bool {
	return s.client.Available()
}

// Analysis はブロッカー1件の分析結果。
type Analysis struct {
	Summary     string   `json:"summary"`
	Category    string   `json:"category"`
	Suggestions []string `json:"suggestions"`
}

// AnalyzeBlock はブロッカーの内容を分析し、要約・分類・対処案を返す。
func (s *Service) AnalyzeBlock(ctx context.Context, block *model.Block) (*Analysis, error) {
	if !s.Available() {
		return nil, model.NewAIUnavailableError()
	}

	prompt := fmt.Sprintf(`あなたは開発チームのブロッカー分析アシスタントです。
以下のブロッカーを分析し、JSONのみで回答してください。

タイトル: %s
理由: %s
状態: %s

回答形式:
{"summary": "1文の要約", "category": "environment|dependency|review|external|other", "suggestions": ["対処案1", "対処案2"]}`,
		block.Title, block.Reason, block.Status)

	var analysis Analysis
	if err := s.generateInto(ctx, "analyze", prompt, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// SimilarBlock は類似ブロッカー1件の判定結果。
type SimilarBlock struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
	Reason     string  `json:"reason"`
}

// similarResult は生成テキストから抽出する中間構造。
type similarResult struct {
	SimilarBlocks []SimilarBlock `json:"similarBlocks"`
}

// FindSimilar は対象ブロッカーに類似する過去のブロッカーを候補から選ぶ。
// 候補が空の場合はAPIを呼ばずに空リストを返す。
func (s *Service) FindSimilar(ctx context.Context, target *model.Block, candidates []*model.Block) ([]SimilarBlock, error) {
	if !s.Available() {
		return nil, model.NewAIUnavailableError()
	}
	if len(candidates) == 0 {
		return []SimilarBlock{}, nil
	}

	var sb strings.Builder
	for _, c := range candidates {
		if c.ID == target.ID {
			continue
		}
		fmt.Fprintf(&sb, "- id=%s title=%s reason=%s\n", c.ID, c.Title, c.Reason)
	}
	if sb.Len() == 0 {
		return []SimilarBlock{}, nil
	}

	prompt := fmt.Sprintf(`以下の対象ブロッカーに類似する過去のブロッカーを候補から選び、JSONのみで回答してください。
類似度は0から1の数値で、0.5以上のものだけを含めてください。

対象:
タイトル: %s
理由: %s

候補:
%s
回答形式:
{"similarBlocks": [{"id": "候補のid", "title": "候補のtitle", "similarity": 0.8, "reason": "類似と判断した理由"}]}`,
		target.Title, target.Reason, sb.String())

	var result similarResult
	if err := s.generateInto(ctx, "similar", prompt, &result); err != nil {
		return nil, err
	}
	if result.SimilarBlocks == nil {
		result.SimilarBlocks = []SimilarBlock{}
	}
	return result.SimilarBlocks, nil
}

// Resolution は解決手順の提案。
type Resolution struct {
	Steps         []string `json:"steps"`
	EstimatedTime string   `json:"estimatedTime"`
}

// SuggestResolution はブロッカーの解決手順を提案する。
func (s *Service) SuggestResolution(ctx context.Context, block *model.Block) (*Resolution, error) {
	if !s.Available() {
		return nil, model.NewAIUnavailableError()
	}

	prompt := fmt.Sprintf(`以下のブロッカーを解決するための具体的な手順を提案し、JSONのみで回答してください。

タイトル: %s
理由: %s

回答形式:
{"steps": ["手順1", "手順2"], "estimatedTime": "30分"}`,
		block.Title, block.Reason)

	var resolution Resolution
	if err := s.generateInto(ctx, "resolution", prompt, &resolution); err != nil {
		return nil, err
	}
	return &resolution, nil
}

// generateInto はプロンプトを実行し、生成テキストからJSONを抽出してvへデコードする。
func (s *Service) generateInto(ctx context.Context, kind, prompt string, v any) error {
	text, err := s.client.Generate(ctx, prompt)
	if err != nil {
		s.collector.RecordAIRequest(kind, false)
		return model.NewAIRequestFailedError(err.Error())
	}

	if err := json.Unmarshal([]byte(extractJSON(text)), v); err != nil {
		s.collector.RecordAIRequest(kind, false)
		return model.NewAIRequestFailedError("生成結果の形式が不正です")
	}

	s.collector.RecordAIRequest(kind, true)
	return nil
}

// extractJSON は生成テキストからJSONオブジェクト部分を切り出す。
// モデルがコードフェンスや前置きを付けて回答することがあるため、
// 最初の'{'から最後の'}'までを抽出する。
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return text
	}
	return text[start : end+1]
}
