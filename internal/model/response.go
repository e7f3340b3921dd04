package model

// ChatResponse POST /chat 的响应
type ChatResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	// SessionID 关联 /stream 订阅，旧服务端可能不返回
	SessionID string `json:"session_id,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}
