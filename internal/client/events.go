package client

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
)

// MaxEventSize 单个事件（或单行）允许的最大字节数
const MaxEventSize = 1 << 20

const defaultEventType = "message"

var ErrEventTooLarge = errors.New("event exceeds maximum size")

// Event 一个已分发的 text/event-stream 事件
type Event struct {
	Type string
	Data string
	ID   string
}

// EventReader 按 EventSource 规则解码事件流：
// 行以 CR、LF 或 CRLF 结束，data 行以 \n 拼接，空行分发事件，冒号开头的行是注释，
// retry 字段忽略。流结束时尚未以空行结束的事件被丢弃。
type EventReader struct {
	scanner *bufio.Scanner
	lastID  string
	first   bool
	// 上一行以 CR 结束，紧随的 LF 属于同一个行尾
	skipLF bool
}

func NewEventReader(r io.Reader) *EventReader {
	e := &EventReader{first: true}
	e.scanner = bufio.NewScanner(r)
	e.scanner.Buffer(make([]byte, 0, 4096), MaxEventSize)
	e.scanner.Split(e.splitLines)
	return e
}

// LastEventID 最近一次收到的 id 字段
func (e *EventReader) LastEventID() string {
	return e.lastID
}

// Next 返回下一个事件，流正常结束时返回 io.EOF
func (e *EventReader) Next() (Event, error) {
	var (
		data      strings.Builder
		eventType string
		hasData   bool
	)

	for {
		line, err := e.readLine()
		if err != nil {
			return Event{}, err
		}

		if line == "" {
			if !hasData {
				eventType = ""
				continue
			}
			if eventType == "" {
				eventType = defaultEventType
			}
			return Event{
				Type: eventType,
				Data: strings.TrimSuffix(data.String(), "\n"),
				ID:   e.lastID,
			}, nil
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "data":
			if data.Len()+len(value) > MaxEventSize {
				return Event{}, ErrEventTooLarge
			}
			data.WriteString(value)
			data.WriteByte('\n')
			hasData = true
		case "event":
			eventType = value
		case "id":
			if !strings.ContainsRune(value, 0) {
				e.lastID = value
			}
		}
	}
}

func (e *EventReader) readLine() (string, error) {
	if !e.scanner.Scan() {
		err := e.scanner.Err()
		switch {
		case err == nil:
			return "", io.EOF
		case errors.Is(err, bufio.ErrTooLong):
			return "", ErrEventTooLarge
		default:
			return "", err
		}
	}

	line := e.scanner.Text()
	if e.first {
		e.first = false
		line = strings.TrimPrefix(line, "\ufeff")
	}
	return line, nil
}

// splitLines 遇到 CR 立即返回该行，不等待后续字节
func (e *EventReader) splitLines(data []byte, atEOF bool) (int, []byte, error) {
	if e.skipLF && len(data) > 0 {
		e.skipLF = false
		if data[0] == '\n' {
			return 1, nil, nil
		}
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\r' {
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
			} else {
				e.skipLF = true
			}
		}
		return i + 1, data[:i], nil
	}

	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
