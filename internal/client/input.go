package client

import (
	"strings"

	"github.com/peterh/liner"
)

// LineInput 基于 liner 的交互式输入框，带历史记录
type LineInput struct {
	state  *liner.State
	prompt string
	value  string
}

var _ Input = (*LineInput)(nil)

func NewLineInput(prompt string) *LineInput {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	return &LineInput{state: state, prompt: prompt}
}

// Read 读取一行。Ctrl-C 返回 liner.ErrPromptAborted，输入结束返回 io.EOF
func (l *LineInput) Read() error {
	line, err := l.state.Prompt(l.prompt)
	if err != nil {
		return err
	}
	l.value = line
	if strings.TrimSpace(line) != "" {
		l.state.AppendHistory(line)
	}
	return nil
}

func (l *LineInput) Value() string {
	return l.value
}

func (l *LineInput) Clear() {
	l.value = ""
}

func (l *LineInput) Close() error {
	return l.state.Close()
}
