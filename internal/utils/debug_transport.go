package utils

import (
	"bytes"
	"io"
	"net/http"
	"regexp"
	"strings"

	"motchat/pkg/logger"
)

var sensitiveHeaders = []string{
	"Authorization",
	"X-Api-Key",
	"X-Auth-Token",
	"Cookie",
}

var (
	sensitiveFieldPattern = regexp.MustCompile(`("(?i:api_key|apikey|password|secret|client_secret|token|access_token)"\s*:\s*)"[^"]*"`)
	sensitiveFormPattern  = regexp.MustCompile(`((?:^|&)(?i:client_secret|password|token)=)[^&]*`)
)

// DebugTransport 调试用传输层，记录请求方法、地址、请求头和请求体
type DebugTransport struct {
	base    http.RoundTripper
	enabled bool
}

func NewDebugTransport(base http.RoundTripper, enabled bool) *DebugTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &DebugTransport{base: base, enabled: enabled}
}

func (t *DebugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.enabled {
		t.logRequest(req)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil && t.enabled {
		logger.Errorf("[http debug] %s %s failed: %v", req.Method, req.URL.Redacted(), err)
	}
	return resp, err
}

func (t *DebugTransport) logRequest(req *http.Request) {
	entry := logger.WithField("method", req.Method).WithField("url", req.URL.Redacted())
	for name, values := range req.Header {
		if IsSensitiveHeader(name) {
			entry = entry.WithField("header."+name, "[REDACTED]")
		} else {
			entry = entry.WithField("header."+name, strings.Join(values, ", "))
		}
	}

	// GetBody 可用时不消费原始请求体
	if req.Body != nil && req.GetBody != nil {
		if body, err := req.GetBody(); err == nil {
			data, _ := io.ReadAll(body)
			body.Close()
			entry = entry.WithField("body", RedactJSON(string(data)))
		}
	} else if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		if err == nil {
			req.Body = io.NopCloser(bytes.NewReader(data))
			entry = entry.WithField("body", RedactJSON(string(data)))
		}
	}

	entry.Info("[http debug] request")
}

func IsSensitiveHeader(name string) bool {
	for _, sensitive := range sensitiveHeaders {
		if strings.EqualFold(name, sensitive) {
			return true
		}
	}
	return false
}

// RedactJSON 替换 JSON 或表单请求体中敏感字段的值
func RedactJSON(s string) string {
	s = sensitiveFieldPattern.ReplaceAllString(s, `${1}"[REDACTED]"`)
	return sensitiveFormPattern.ReplaceAllString(s, `${1}[REDACTED]`)
}
