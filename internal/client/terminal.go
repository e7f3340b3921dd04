package client

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Terminal 把对话按顺序写到终端。追加的文本立即输出，替换从新的一行开始
type Terminal struct {
	mu  sync.Mutex
	out io.Writer
	// 最后输出的内容没有以换行结束
	midLine bool

	userLabel      lipgloss.Style
	assistantLabel lipgloss.Style
	notice         lipgloss.Style
}

var (
	_ View     = (*Terminal)(nil)
	_ Notifier = (*Terminal)(nil)
)

func NewTerminal(out io.Writer) *Terminal {
	r := lipgloss.NewRenderer(out)
	return &Terminal{
		out:            out,
		userLabel:      r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		assistantLabel: r.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		notice:         r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	}
}

func (t *Terminal) AppendLabel(role Role) {
	t.mu.Lock()
	defer t.mu.Unlock()

	style := t.assistantLabel
	if role == RoleUser {
		style = t.userLabel
	}
	t.breakLocked()
	fmt.Fprintln(t.out, style.Render(role.Label()))
}

func (t *Terminal) AppendMessage(role Role, text string) Node {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.breakLocked()
	t.writeLocked(text)
	return &terminalNode{term: t, text: text}
}

// ScrollToBottom 终端输出本身就停留在底部
func (t *Terminal) ScrollToBottom() {}

func (t *Terminal) Notify(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.breakLocked()
	fmt.Fprintln(t.out, t.notice.Render(message))
}

// Break 如果光标停在行中则换行，在下一次提示前调用
func (t *Terminal) Break() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.breakLocked()
}

func (t *Terminal) breakLocked() {
	if t.midLine {
		fmt.Fprintln(t.out)
		t.midLine = false
	}
}

func (t *Terminal) writeLocked(text string) {
	if text == "" {
		return
	}
	fmt.Fprint(t.out, text)
	t.midLine = !strings.HasSuffix(text, "\n")
}

type terminalNode struct {
	term *Terminal
	text string
}

func (n *terminalNode) Text() string {
	n.term.mu.Lock()
	defer n.term.mu.Unlock()
	return n.text
}

func (n *terminalNode) SetText(text string) {
	n.term.mu.Lock()
	defer n.term.mu.Unlock()

	if n.text != "" {
		n.term.breakLocked()
	}
	n.text = text
	n.term.writeLocked(text)
}

func (n *terminalNode) AppendText(text string) {
	n.term.mu.Lock()
	defer n.term.mu.Unlock()

	n.text += text
	n.term.writeLocked(text)
}
