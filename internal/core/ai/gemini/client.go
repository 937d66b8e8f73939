package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"nutrition-lens/internal/core/ai/provider"
	"nutrition-lens/internal/infrastructure/config"
	"nutrition-lens/internal/pkg/common"
)

const providerName = "gemini"

// Client Gemini 多模型視覺辨識與文字生成
type Client struct {
	client          *genai.Client
	models          []string
	textModel       string
	timeout         time.Duration
	temperature     float32
	maxOutputTokens int32
}

// NewClient 創建 Gemini 客戶端
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg.Gemini.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if len(cfg.Gemini.Models) == 0 {
		return nil, fmt.Errorf("at least one gemini model is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.Gemini.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	textModel := cfg.Gemini.TextModel
	if textModel == "" {
		textModel = cfg.Gemini.Models[0]
	}

	common.LogInfo("Gemini 客戶端已初始化",
		zap.Strings("models", cfg.Gemini.Models),
		zap.String("text_model", textModel),
		zap.String("api_key", config.MaskAPIKey(cfg.Gemini.APIKey)),
	)

	return &Client{
		client:          client,
		models:          append([]string(nil), cfg.Gemini.Models...),
		textModel:       textModel,
		timeout:         cfg.Gemini.Timeout,
		temperature:     cfg.Gemini.Temperature,
		maxOutputTokens: cfg.Gemini.MaxOutputTokens,
	}, nil
}

// Name 實作 provider.Provider
func (c *Client) Name() string {
	return providerName
}

// Models 依優先順序回傳模型
func (c *Client) Models() []string {
	return append([]string(nil), c.models...)
}

// GetTimeout 單次請求超時時間
func (c *Client) GetTimeout() time.Duration {
	return c.timeout
}

// Recognize 送出圖片與指令
func (c *Client) Recognize(ctx context.Context, req provider.Request) (provider.Outcome, error) {
	data, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		return provider.Outcome{}, common.ErrImageEncoding.Wrap(err)
	}
	mime := req.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	modelName := req.Model
	if modelName == "" {
		modelName = c.models[0]
	}

	start := time.Now()
	resp, err := c.model(modelName).GenerateContent(ctx,
		genai.Text(req.Prompt),
		genai.Blob{
			MIMEType: mime,
			Data:     data,
		},
	)
	common.LogAICall(providerName, modelName, time.Since(start), err)
	return interpret(resp, err)
}

// GenerateText 純文字生成
func (c *Client) GenerateText(ctx context.Context, prompt string) (provider.Outcome, error) {
	start := time.Now()
	resp, err := c.model(c.textModel).GenerateContent(ctx, genai.Text(prompt))
	common.LogAICall(providerName, c.textModel, time.Since(start), err)
	return interpret(resp, err)
}

// Close 關閉客戶端
func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) model(name string) *genai.GenerativeModel {
	model := c.client.GenerativeModel(name)
	model.SetTemperature(c.temperature)
	if c.maxOutputTokens > 0 {
		model.SetMaxOutputTokens(c.maxOutputTokens)
	}
	model.ResponseMIMEType = "application/json"
	return model
}

// interpret 將 SDK 回應統一為 Outcome；被封鎖或截斷屬於結構性失敗
func interpret(resp *genai.GenerateContentResponse, err error) (provider.Outcome, error) {
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return provider.StructuralFailure(blocked.Error()), nil
		}
		return provider.Outcome{}, err
	}
	if resp == nil {
		return provider.Empty(), nil
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return provider.StructuralFailure(fmt.Sprintf("prompt blocked: %v", resp.PromptFeedback.BlockReason)), nil
	}
	if len(resp.Candidates) == 0 {
		return provider.Empty(), nil
	}

	cand := resp.Candidates[0]
	switch cand.FinishReason {
	case genai.FinishReasonMaxTokens:
		return provider.StructuralFailure("output truncated (MAX_TOKENS)"), nil
	case genai.FinishReasonSafety, genai.FinishReasonRecitation:
		return provider.StructuralFailure(fmt.Sprintf("candidate blocked: %v", cand.FinishReason)), nil
	}

	if cand.Content == nil {
		return provider.Empty(), nil
	}
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return provider.Empty(), nil
	}
	return provider.Success(sb.String()), nil
}
