package model

import (
	"context"
	"fmt"

	"motchat/internal/config"
	"motchat/internal/utils"
	"motchat/pkg/logger"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/qwen"
	einoModel "github.com/cloudwego/eino/components/model"
)

const (
	ProviderOpenAI = "openai"
	ProviderDoubao = "doubao"
	ProviderQwen   = "qwen"
)

// NewSummaryModel 按配置创建生成 MOT 摘要的模型（不需要工具绑定）
func NewSummaryModel(ctx context.Context, cfg *config.Config) (einoModel.ChatModel, error) {
	switch cfg.Model.Provider {
	case ProviderOpenAI, "":
		return createOpenAIModel(cfg.OpenAI)
	case ProviderDoubao:
		return createDoubaoModel(ctx, cfg.Doubao)
	case ProviderQwen:
		return createQwenModel(ctx, cfg.Qwen)
	default:
		return nil, fmt.Errorf("unsupported model provider: %s", cfg.Model.Provider)
	}
}

func createOpenAIModel(cfg config.OpenAIConfig) (einoModel.ChatModel, error) {
	logger.Infof("Using OpenAI-compatible model: %s, BaseURL: %s, API key: %s",
		cfg.Model, cfg.BaseURL, maskKey(cfg.APIKey))

	chatModel, err := newOpenAIChatModel(cfg)
	if err != nil {
		return nil, fmt.Errorf("create openai model: %w", err)
	}
	return chatModel, nil
}

func createDoubaoModel(ctx context.Context, cfg config.DoubaoConfig) (einoModel.ChatModel, error) {
	logger.Infof("Using Doubao model: %s, API key: %s", cfg.Model, maskKey(cfg.APIKey))

	arkConfig := &ark.ChatModelConfig{
		APIKey: cfg.APIKey,
		Model:  cfg.Model,
	}
	if cfg.BaseURL != "" {
		arkConfig.BaseURL = cfg.BaseURL
	}

	chatModel, err := ark.NewChatModel(ctx, arkConfig)
	if err != nil {
		return nil, fmt.Errorf("create doubao model: %w", err)
	}
	return chatModel, nil
}

func createQwenModel(ctx context.Context, cfg config.QwenConfig) (einoModel.ChatModel, error) {
	logger.Infof("Using Qwen model: %s, BaseURL: %s, API key: %s",
		cfg.Model, cfg.BaseURL, maskKey(cfg.APIKey))

	// 流式响应由 Timeout 字段控制，HTTP 客户端本身不限时
	httpClient := utils.NewDebugHTTPClient(0, cfg.DebugRequest)

	chatModel, err := qwen.NewChatModel(ctx, &qwen.ChatModelConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		MaxTokens:   &cfg.MaxTokens,
		Temperature: &cfg.Temperature,
		TopP:        &cfg.TopP,
		Timeout:     cfg.Timeout,
		HTTPClient:  httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create qwen model: %w", err)
	}
	return chatModel, nil
}

func maskKey(key string) string {
	if len(key) > 10 {
		return key[:6] + "..."
	}
	if key == "" {
		return "(empty)"
	}
	return "***"
}
