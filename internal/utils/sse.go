package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const DoneEvent = "done"

var ErrStreamingUnsupported = errors.New("streaming unsupported")

type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// Message 写入一个未命名事件，浏览器端由 onmessage 接收
func (s *SSEWriter) Message(data string) error {
	return s.Write("", data)
}

// Write 写入事件。多行数据（CRLF、CR、LF 均视为换行）拆成多个 data 行，接收端会用 \n 重新拼接
func (s *SSEWriter) Write(event, data string) error {
	var b strings.Builder
	if event != "" {
		fmt.Fprintf(&b, "event: %s\n", event)
	}
	data = strings.ReplaceAll(data, "\r\n", "\n")
	data = strings.ReplaceAll(data, "\r", "\n")
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")

	return s.flush(b.String())
}

// Comment 写入注释行，用作心跳，EventSource 会忽略
func (s *SSEWriter) Comment(text string) error {
	return s.flush(": " + text + "\n\n")
}

func (s *SSEWriter) flush(frame string) error {
	if _, err := fmt.Fprint(s.w, frame); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Close 发送命名的 done 事件，浏览器端据此在服务端断开前主动关闭 EventSource，
// onmessage 不会收到它
func (s *SSEWriter) Close() error {
	return s.Write(DoneEvent, "[DONE]")
}
