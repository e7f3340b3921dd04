package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatServer struct {
	mu      sync.Mutex
	bodies  []string
	queries []string

	status   int
	response string
	stream   http.Handler
}

func (s *chatServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case ChatPath:
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.bodies = append(s.bodies, string(body))
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(s.status)
		fmt.Fprint(w, s.response)
	case StreamPath:
		s.mu.Lock()
		s.queries = append(s.queries, r.URL.RawQuery)
		s.mu.Unlock()
		s.stream.ServeHTTP(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *chatServer) Bodies() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.bodies...)
}

func (s *chatServer) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

func newChatServer(t *testing.T, status int, response string, stream http.Handler) (*chatServer, *httptest.Server) {
	t.Helper()
	cs := &chatServer{status: status, response: response, stream: stream}
	srv := httptest.NewServer(cs)
	t.Cleanup(srv.Close)
	return cs, srv
}

func newForm(url string, opts ...Option) (*ChatForm, *Transcript, *fakeInput) {
	view := NewTranscript()
	input := &fakeInput{}
	return NewChatForm(NewClient(url, opts...), view, input, view), view, input
}

func TestChatForm_SubmitSuccess(t *testing.T) {
	cs, srv := newChatServer(t, http.StatusOK, `{"success":true}`,
		sseHandler("data: Hel\n\n", "data: lo\n\n"))
	form, view, input := newForm(srv.URL)
	input.Set("  AB12 CDE  ")

	session, err := form.Submit(context.Background())
	require.NoError(t, err)
	require.NotNil(t, session)
	waitDone(t, session)

	assert.Equal(t, "", input.Value())
	assert.Equal(t, []Role{RoleUser, RoleAssistant}, view.Labels())
	assert.Equal(t, []ChatMessage{
		{Role: RoleUser, Text: "AB12 CDE"},
		{Role: RoleAssistant, Text: "Hello"},
	}, view.Messages())
	assert.Empty(t, view.Notifications())

	require.Len(t, cs.Bodies(), 1)
	assert.JSONEq(t, `{"registration":"AB12 CDE"}`, cs.Bodies()[0])
	assert.Equal(t, []string{""}, cs.Queries())
	assert.Same(t, session, form.Current())
}

func TestChatForm_EmptyMessageStillSent(t *testing.T) {
	cs, srv := newChatServer(t, http.StatusBadRequest,
		`{"success":false,"error":"Registration number is required"}`, sseHandler())
	form, view, input := newForm(srv.URL)
	input.Set("   ")

	session, err := form.Submit(context.Background())
	require.NoError(t, err)
	assert.Nil(t, session)

	require.Len(t, cs.Bodies(), 1)
	assert.JSONEq(t, `{"registration":""}`, cs.Bodies()[0])
	assert.Empty(t, view.Elements())
	assert.Equal(t, []string{"Error: Registration number is required"}, view.Notifications())
	assert.Empty(t, cs.Queries())
}

func TestChatForm_Rejected(t *testing.T) {
	_, srv := newChatServer(t, http.StatusBadRequest,
		`{"success":false,"error":"No MoT test data available for this vehicle."}`, sseHandler())
	form, view, input := newForm(srv.URL)
	input.Set("ZZ99ZZZ")

	session, err := form.Submit(context.Background())
	require.NoError(t, err)
	assert.Nil(t, session)

	// 只有用户消息，没有助手节点
	assert.Equal(t, []Role{RoleUser}, view.Labels())
	assert.Equal(t, []ChatMessage{{Role: RoleUser, Text: "ZZ99ZZZ"}}, view.Messages())
	assert.Equal(t, []string{"Error: No MoT test data available for this vehicle."}, view.Notifications())
	assert.Nil(t, form.Current())
}

func TestChatForm_UndecodableResponse(t *testing.T) {
	_, srv := newChatServer(t, http.StatusBadGateway, `<html>bad gateway</html>`, sseHandler())
	form, view, input := newForm(srv.URL)
	input.Set("AB12CDE")

	session, err := form.Submit(context.Background())
	require.Error(t, err)
	assert.Nil(t, session)
	assert.Equal(t, []Role{RoleUser}, view.Labels())
	assert.Empty(t, view.Notifications())
}

func TestChatForm_Correlation(t *testing.T) {
	cs, srv := newChatServer(t, http.StatusOK, `{"success":true,"session_id":"abc-123"}`,
		sseHandler("data: ok\n\n"))
	form, _, input := newForm(srv.URL, WithCorrelation(true))
	input.Set("AB12CDE")

	session, err := form.Submit(context.Background())
	require.NoError(t, err)
	waitDone(t, session)

	assert.Equal(t, srv.URL+"/stream?session_id=abc-123", session.URL())
	assert.Equal(t, []string{"session_id=abc-123"}, cs.Queries())
}

func TestChatForm_NewSubmissionClosesPrevious(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	blocking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: first\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	_, srv := newChatServer(t, http.StatusOK, `{"success":true}`, blocking)
	form, view, input := newForm(srv.URL)

	input.Set("AB12CDE")
	first, err := form.Submit(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return first.Output().Text() == "first" }, testTimeout, testTick)

	input.Set("CD34EFG")
	second, err := form.Submit(context.Background())
	require.NoError(t, err)
	waitDone(t, first)

	assert.Equal(t, ReasonCancelled, first.Reason())
	assert.Equal(t, "first", first.Output().Text())
	assert.Equal(t, StateOpen, second.State())
	assert.Len(t, view.Messages(), 4)

	form.Close()
	waitDone(t, second)
	assert.Equal(t, ReasonCancelled, second.Reason())
}

func TestClient_PostChatDecodesErrorStatus(t *testing.T) {
	_, srv := newChatServer(t, http.StatusInternalServerError,
		`{"success":false,"error":"Error processing your request. Please try again."}`, sseHandler())

	resp, err := NewClient(srv.URL+"/").PostChat(context.Background(), "AB12CDE")
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "Error processing your request. Please try again.", resp.Error)
}

func TestClient_StreamURL(t *testing.T) {
	plain := NewClient("http://localhost:5000/")
	assert.Equal(t, "http://localhost:5000/stream", plain.StreamURL("abc"))

	correlated := NewClient("http://localhost:5000", WithCorrelation(true))
	assert.Equal(t, "http://localhost:5000/stream?session_id=a+b", correlated.StreamURL("a b"))
	assert.Equal(t, "http://localhost:5000/stream", correlated.StreamURL(""))
}

func TestChatForm_RejectionNotice(t *testing.T) {
	_, srv := newChatServer(t, http.StatusOK, `{"success":false,"error":"bad input"}`, sseHandler())
	form, view, input := newForm(srv.URL)
	input.Set("hi")

	session, err := form.Submit(context.Background())
	require.NoError(t, err)
	assert.Nil(t, session)

	assert.Equal(t, []ChatMessage{{Role: RoleUser, Text: "hi"}}, view.Messages())
	assert.Equal(t, "", input.Value())
	require.Len(t, view.Notifications(), 1)
	assert.Contains(t, view.Notifications()[0], "bad input")
}

func TestChatForm_AssistantNodeStartsEmpty(t *testing.T) {
	release := make(chan struct{})
	blocking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		select {
		case <-release:
			fmt.Fprint(w, "data: Hello\n\n")
		case <-r.Context().Done():
		}
	})
	cs, srv := newChatServer(t, http.StatusOK, `{"success":true}`, blocking)
	form, view, input := newForm(srv.URL)
	input.Set("hi")

	session, err := form.Submit(context.Background())
	require.NoError(t, err)
	require.NotNil(t, session)

	// 连接已建立，但还没有任何数据
	require.Eventually(t, func() bool { return len(cs.Queries()) == 1 }, testTimeout, testTick)
	assert.Equal(t, []Role{RoleUser, RoleAssistant}, view.Labels())
	assert.Equal(t, []ChatMessage{
		{Role: RoleUser, Text: "hi"},
		{Role: RoleAssistant, Text: ""},
	}, view.Messages())
	assert.Equal(t, StateOpen, session.State())

	close(release)
	waitDone(t, session)
	assert.Equal(t, "Hello", view.Messages()[1].Text)
}
