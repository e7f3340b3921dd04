package client

import (
	"strings"
	"sync"
)

type ElementKind int

const (
	KindLabel ElementKind = iota
	KindMessage
)

// TextNode 并发安全的文本节点
type TextNode struct {
	mu   sync.RWMutex
	text string
}

func NewTextNode(text string) *TextNode {
	return &TextNode{text: text}
}

func (n *TextNode) Text() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.text
}

func (n *TextNode) SetText(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.text = text
}

func (n *TextNode) AppendText(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.text += text
}

type Element struct {
	Kind ElementKind
	Role Role
	Node *TextNode
}

// Transcript 内存中的消息容器，同时记录用户提示
type Transcript struct {
	mu        sync.Mutex
	elements  []Element
	scrollTop int
	notices   []string
}

var (
	_ View     = (*Transcript)(nil)
	_ Notifier = (*Transcript)(nil)
)

func NewTranscript() *Transcript {
	return &Transcript{}
}

func (t *Transcript) AppendLabel(role Role) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.elements = append(t.elements, Element{Kind: KindLabel, Role: role, Node: NewTextNode(role.Label())})
}

func (t *Transcript) AppendMessage(role Role, text string) Node {
	node := NewTextNode(text)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.elements = append(t.elements, Element{Kind: KindMessage, Role: role, Node: node})
	return node
}

func (t *Transcript) ScrollToBottom() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scrollTop = t.scrollHeightLocked()
}

// ScrollTop 当前滚动偏移（行）
func (t *Transcript) ScrollTop() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scrollTop
}

// ScrollHeight 全部内容的行数
func (t *Transcript) ScrollHeight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scrollHeightLocked()
}

func (t *Transcript) scrollHeightLocked() int {
	lines := 0
	for _, el := range t.elements {
		lines += strings.Count(el.Node.Text(), "\n") + 1
	}
	return lines
}

func (t *Transcript) Elements() []Element {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Element, len(t.elements))
	copy(out, t.elements)
	return out
}

// Messages 按顺序返回消息节点的快照，不含角色标签
func (t *Transcript) Messages() []ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []ChatMessage
	for _, el := range t.elements {
		if el.Kind == KindMessage {
			out = append(out, ChatMessage{Role: el.Role, Text: el.Node.Text()})
		}
	}
	return out
}

// Labels 按顺序返回角色标签
func (t *Transcript) Labels() []Role {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Role
	for _, el := range t.elements {
		if el.Kind == KindLabel {
			out = append(out, el.Role)
		}
	}
	return out
}

func (t *Transcript) Notify(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.notices = append(t.notices, message)
}

func (t *Transcript) Notifications() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.notices...)
}
