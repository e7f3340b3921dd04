// Package web 内嵌浏览器端聊天页面
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var assets embed.FS

func Index() []byte {
	data, err := assets.ReadFile("static/index.html")
	if err != nil {
		panic(err)
	}
	return data
}

// Static 以 static 目录为根的文件系统
func Static() http.FileSystem {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
