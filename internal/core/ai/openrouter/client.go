package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"nutrition-lens/internal/core/ai/provider"
	"nutrition-lens/internal/core/ai/retry"
	"nutrition-lens/internal/infrastructure/config"
	"nutrition-lens/internal/pkg/common"
)

const (
	providerName   = "openrouter"
	defaultBaseURL = "https://openrouter.ai/api/v1"
)

// Client OpenRouter chat completions 客戶端，作為次要視覺供應者與文字生成
type Client struct {
	client    *resty.Client
	model     string
	textModel string
	maxTokens int
}

// Message 消息結構
type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart 多模態內容片段
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL 圖片位址（data URI）
type ImageURL struct {
	URL string `json:"url"`
}

// Request 表示 API 請求
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

// Response OpenRouter 響應結構
type Response struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
}

// Choice 選擇結構
type Choice struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

// NewClient 創建新的 OpenRouter 客戶端
func NewClient(cfg *config.Config) *Client {
	baseURL := cfg.OpenRouter.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.OpenRouter.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.OpenRouter.APIKey)).
		SetHeader("X-Title", "Nutrition Lens")

	textModel := cfg.OpenRouter.TextModel
	if textModel == "" {
		textModel = cfg.OpenRouter.Model
	}

	return &Client{
		client:    client,
		model:     cfg.OpenRouter.Model,
		textModel: textModel,
		maxTokens: cfg.OpenRouter.MaxTokens,
	}
}

// Name 實作 provider.Provider
func (c *Client) Name() string {
	return providerName
}

// Recognize 送出圖片與指令
func (c *Client) Recognize(ctx context.Context, req provider.Request) (provider.Outcome, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	mime := req.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	parts := []ContentPart{
		{Type: "text", Text: req.Prompt},
		{Type: "image_url", ImageURL: &ImageURL{URL: fmt.Sprintf("data:%s;base64,%s", mime, req.ImageBase64)}},
	}
	return c.complete(ctx, model, parts)
}

// GenerateText 純文字生成
func (c *Client) GenerateText(ctx context.Context, prompt string) (provider.Outcome, error) {
	return c.complete(ctx, c.textModel, []ContentPart{{Type: "text", Text: prompt}})
}

// Close 關閉客戶端
func (c *Client) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}

func (c *Client) complete(ctx context.Context, model string, parts []ContentPart) (provider.Outcome, error) {
	body := Request{
		Model:       model,
		Messages:    []Message{{Role: "user", Content: parts}},
		MaxTokens:   c.maxTokens,
		Temperature: 0.1,
	}

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		common.LogAICall(providerName, model, time.Since(start), err)
		return provider.Outcome{}, fmt.Errorf("failed to send request to OpenRouter: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		statusErr := &retry.StatusError{
			Provider: providerName,
			Status:   resp.StatusCode(),
			Body:     sanitizeResponse(resp.String()),
		}
		common.LogAICall(providerName, model, time.Since(start), statusErr)
		return provider.Outcome{}, statusErr
	}
	common.LogAICall(providerName, model, time.Since(start), nil)

	var result Response
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		common.LogWarn("OpenRouter 回應無法解析",
			zap.String("model", model),
			zap.String("response", sanitizeResponse(resp.String())),
		)
		return provider.StructuralFailure("malformed response envelope"), nil
	}
	if len(result.Choices) == 0 {
		return provider.Empty(), nil
	}

	choice := result.Choices[0]
	switch choice.FinishReason {
	case "length":
		return provider.StructuralFailure("output truncated (length)"), nil
	case "content_filter":
		return provider.StructuralFailure("output blocked (content_filter)"), nil
	}
	if strings.TrimSpace(choice.Message.Content) == "" {
		return provider.Empty(), nil
	}
	return provider.Success(choice.Message.Content), nil
}

var dataURIPattern = regexp.MustCompile(`data:image/[a-zA-Z+.-]+;base64,[A-Za-z0-9+/=]+`)

// sanitizeResponse 移除回應中的圖片資料並限制長度
func sanitizeResponse(body string) string {
	body = dataURIPattern.ReplaceAllString(body, "[IMAGE_DATA_REMOVED]")
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return body
}
