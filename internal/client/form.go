package client

import (
	"context"
	"strings"
	"sync"
)

// ChatForm 聊天表单的提交处理。同一时间最多一个推送会话处于打开状态
type ChatForm struct {
	client   *Client
	view     View
	input    Input
	notifier Notifier

	mu      sync.Mutex
	current *StreamSession
}

func NewChatForm(client *Client, view View, input Input, notifier Notifier) *ChatForm {
	return &ChatForm{
		client:   client,
		view:     view,
		input:    input,
		notifier: notifier,
	}
}

// Submit 渲染用户消息并提交。空消息不渲染但仍然发送。
//
// 提交被接受时返回已启动的会话；被拒绝时提示用户并返回 nil。
// 请求失败或响应无法解析时返回错误，不重试。ctx 同时约束推送会话。
func (f *ChatForm) Submit(ctx context.Context) (*StreamSession, error) {
	message := strings.TrimSpace(f.input.Value())
	if message != "" {
		f.view.AppendLabel(RoleUser)
		f.view.AppendMessage(RoleUser, message)
	}

	f.input.Clear()

	resp, err := f.client.PostChat(ctx, message)
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		f.notifier.Notify(ErrorPrefix + " " + resp.Error)
		return nil, nil
	}

	f.view.AppendLabel(RoleAssistant)
	output := f.view.AppendMessage(RoleAssistant, "")

	session := f.client.NewSession(ctx, f.view, output, resp.SessionID)

	f.mu.Lock()
	if f.current != nil {
		f.current.Close()
	}
	f.current = session
	f.mu.Unlock()

	session.Start()
	return session, nil
}

// Current 最近一次打开的会话，可能已经关闭
func (f *ChatForm) Current() *StreamSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Close 关闭当前会话
func (f *ChatForm) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current != nil {
		f.current.Close()
	}
}
