package utils

import (
	"crypto/tls"
	"net/http"
	"time"
)

// NewTransport 返回连接池参数调优过的 Transport
func NewTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
}

// NewHTTPClient timeout 为 0 表示不限时，流式连接必须使用 0
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: NewTransport(),
	}
}

// NewDebugHTTPClient 在 debug 为 true 时记录请求详情（敏感头已脱敏）
func NewDebugHTTPClient(timeout time.Duration, debug bool) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: NewDebugTransport(NewTransport(), debug),
	}
}
