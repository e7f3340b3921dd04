package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"

	"motchat/pkg/logger"

	"github.com/sirupsen/logrus"
)

const (
	// ErrorPrefix 以它开头的数据帧是终止错误，替换而不是追加
	ErrorPrefix = "Error:"
	// TransportFailureText 连接层失败时显示的固定文字
	TransportFailureText = "Error receiving response from model."
)

type State int

const (
	StateOpen State = iota
	StateClosed
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// CloseReason 会话进入 CLOSED 的原因
type CloseReason int

const (
	ReasonNone CloseReason = iota
	ReasonSentinel
	ReasonTransportError
	ReasonGraceful
	ReasonCancelled
)

func (r CloseReason) String() string {
	switch r {
	case ReasonSentinel:
		return "error sentinel"
	case ReasonTransportError:
		return "transport error"
	case ReasonGraceful:
		return "graceful close"
	case ReasonCancelled:
		return "cancelled"
	default:
		return "none"
	}
}

// StreamSession 一条推送连接，对应一条助手回复。
// 构造后即为 OPEN；CLOSED 是终态，关闭后到达的事件全部丢弃。
type StreamSession struct {
	url        string
	httpClient *http.Client
	view       View
	output     Node
	log        *logrus.Entry

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	state   State
	reason  CloseReason
	err     error
	started bool
}

func newStreamSession(ctx context.Context, httpClient *http.Client, url string, view View, output Node) *StreamSession {
	ctx, cancel := context.WithCancel(ctx)
	return &StreamSession{
		url:        url,
		httpClient: httpClient,
		view:       view,
		output:     output,
		log:        logger.WithField("url", url),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		state:      StateOpen,
	}
}

func (s *StreamSession) URL() string  { return s.url }
func (s *StreamSession) Output() Node { return s.output }

func (s *StreamSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *StreamSession) Reason() CloseReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Err 连接层失败的原因，其它情况为 nil
func (s *StreamSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done 会话结束且读取循环退出后关闭
func (s *StreamSession) Done() <-chan struct{} {
	return s.done
}

func (s *StreamSession) Wait() {
	<-s.done
}

// Start 在后台运行会话
func (s *StreamSession) Start() {
	go s.Run()
}

// Run 建立连接并逐个处理事件，直到会话关闭。只会运行一次
func (s *StreamSession) Run() {
	s.mu.Lock()
	if s.started || s.state == StateClosed {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.started = true
	s.mu.Unlock()

	defer close(s.done)
	defer s.cancel()

	body, err := s.connect()
	if err != nil {
		s.fail(err)
		return
	}
	defer body.Close()

	events := NewEventReader(body)
	for {
		ev, err := events.Next()
		if err != nil {
			s.fail(err)
			return
		}

		if ev.Type != defaultEventType {
			s.log.Debugf("Ignoring %q event", ev.Type)
			continue
		}

		if !s.handleMessage(ev.Data) {
			return
		}
	}
}

// Close 关闭连接，可重复调用；不会改动已渲染的内容
func (s *StreamSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closeLocked(ReasonCancelled) && !s.started {
		close(s.done)
	}
}

// handleMessage 返回 false 表示会话已关闭
func (s *StreamSession) handleMessage(data string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return false
	}

	if strings.HasPrefix(data, ErrorPrefix) {
		s.output.SetText(data)
		s.view.ScrollToBottom()
		s.closeLocked(ReasonSentinel)
		return false
	}

	s.output.AppendText(data)
	s.view.ScrollToBottom()
	return true
}

// fail 处理读取循环的终止错误：取消、正常结束或连接层失败
func (s *StreamSession) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return
	}

	switch {
	case s.ctx.Err() != nil:
		s.closeLocked(ReasonCancelled)
	case errors.Is(err, io.EOF):
		s.log.Info("Stream closed.")
		s.closeLocked(ReasonGraceful)
	default:
		s.log.Errorf("Stream failed: %v", err)
		s.err = err
		s.output.SetText(TransportFailureText)
		s.view.ScrollToBottom()
		s.closeLocked(ReasonTransportError)
	}
}

// closeLocked 返回是否发生了状态转换
func (s *StreamSession) closeLocked(reason CloseReason) bool {
	if s.state == StateClosed {
		return false
	}
	s.state = StateClosed
	s.reason = reason
	s.cancel()
	return true
}

func (s *StreamSession) connect() (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected stream status %d", resp.StatusCode)
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "text/event-stream" {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected stream content type %q", resp.Header.Get("Content-Type"))
	}

	return resp.Body, nil
}
