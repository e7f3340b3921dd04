package service

import (
	"context"
	"fmt"

	"motchat/pkg/logger"

	"github.com/cloudwego/eino/callbacks"
	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

const (
	promptKey  = "prompt"
	summaryKey = "summary"
)

// newSummaryPrompt 提示词和车辆摘要拼接成一条用户消息
func newSummaryPrompt() prompt.ChatTemplate {
	return prompt.FromMessages(schema.FString,
		schema.UserMessage(fmt.Sprintf("{%s}{%s}", promptKey, summaryKey)),
	)
}

// composeSummaryChain 模板 -> 模型
func composeSummaryChain(ctx context.Context, cm einoModel.BaseChatModel) (compose.Runnable[map[string]any, *schema.Message], error) {
	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.
		AppendChatTemplate(newSummaryPrompt(), compose.WithNodeName("SummaryTemplate")).
		AppendChatModel(cm, compose.WithNodeName("SummaryModel"))

	return chain.Compile(ctx)
}

// logCallback 记录各节点的开始和失败，不拷贝流式输出
func logCallback(jobID string) callbacks.Handler {
	log := logger.WithField("job_id", jobID)
	return callbacks.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
			if info != nil {
				log.Debugf("节点开始: %s (%s)", info.Name, info.Component)
			}
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
			if info != nil {
				log.Errorf("节点失败: %s (%s): %v", info.Name, info.Component, err)
			}
			return ctx
		}).
		Build()
}
