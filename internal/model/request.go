package model

// ChatRequest POST /chat 请求体。registration 始终携带，即使为空字符串
type ChatRequest struct {
	Registration string `json:"registration"`
}
