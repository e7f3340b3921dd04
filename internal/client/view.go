// Package client 实现聊天表单的提交流程和流式回复的渲染。
//
// 渲染目标通过 View / Node 抽象：终端、内存 Transcript 或其它前端都可以实现它们。
package client

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Label 角色标签节点显示的文字
func (r Role) Label() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Model"
	default:
		return string(r)
	}
}

// ChatMessage 已渲染的一条消息，不做持久化
type ChatMessage struct {
	Role Role
	Text string
}

// Node 可整体替换或追加文本的消息节点
type Node interface {
	Text() string
	SetText(text string)
	AppendText(text string)
}

// View 消息容器，节点按插入顺序自上而下排列
type View interface {
	AppendLabel(role Role)
	AppendMessage(role Role, text string) Node
	// ScrollToBottom 滚动到最大偏移，保证最新内容可见
	ScrollToBottom()
}

// Notifier 阻塞式的用户提示
type Notifier interface {
	Notify(message string)
}

// Input 表单的输入框
type Input interface {
	Value() string
	Clear()
}
