// Package ai はGemini APIによるブロッカー分析機能を提供する。
// APIキー未設定の環境では全機能が無効化され、エンドポイントは503を返す。
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

const (
	// defaultEndpoint はGemini generateContent APIのベースURL。
	defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"
	// defaultModel は分析に使用するモデル名。
	defaultModel = "gemini-2.0-flash"
)

// Client はGemini APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	endpoint   string // テスト用にエンドポイントを差し替え可能
	model      string
}

// NewClient はClientの新しいインスタンスを生成する。
// apiKeyが空の場合でもClient自体は生成され、Availableがfalseを返す。
func NewClient(httpClient *http.Client, logger *slog.Logger, apiKey string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		apiKey:     apiKey,
		endpoint:   defaultEndpoint,
		model:      defaultModel,
	}
}

// Available はAPIキーが設定されているかどうかを返す。
func (c *Client) Available() bool {
	return c.apiKey != ""
}

// generateContentリクエスト・レスポンスの最小構造
type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate はプロンプトを送信して生成テキストを返す。
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("リクエストJSONの生成に失敗しました: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.endpoint, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Gemini APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Gemini APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return "", fmt.Errorf("Gemini APIがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var result generateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("Gemini APIのレスポンスに生成結果が含まれていません")
	}

	return result.Candidates[0].Content.Parts[0].Text, nil
}
