package server

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
)

// dist/ にはトップページと、それが読み込むCSS/JSを置く
//
//go:embed all:dist
var distFS embed.FS

// embeddedAssets は /assets で配信する埋め込みファイルシステムを返す
func embeddedAssets() (http.FileSystem, error) {
	sub, err := fs.Sub(distFS, "dist/assets")
	if err != nil {
		return nil, fmt.Errorf("埋め込みアセットの読み込みに失敗: %w", err)
	}
	return http.FS(sub), nil
}

// embeddedIndex はトップページのHTMLを返す
func embeddedIndex() ([]byte, error) {
	data, err := distFS.ReadFile("dist/index.html")
	if err != nil {
		return nil, fmt.Errorf("埋め込みindex.htmlの読み込みに失敗: %w", err)
	}
	return data, nil
}
