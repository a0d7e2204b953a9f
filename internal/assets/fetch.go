// Package assets はフロントエンドが使う外部JavaScriptライブラリを取得する。
//
// 取得したファイルは assets.dir 配下の js/ に保存され、サーバーが /static で配信する。
package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"
)

// Library は取得対象のライブラリ
type Library struct {
	Name string // 表示名
	URL  string // 取得元
	File string // js/ 配下の保存ファイル名
}

// DefaultLibraries はフロントエンドが必要とするライブラリの一覧を返す
func DefaultLibraries() []Library {
	return []Library{
		{
			Name: "Three.js",
			URL:  "https://cdn.jsdelivr.net/npm/three@0.148.0/build/three.min.js",
			File: "three.min.js",
		},
		{
			Name: "GPUComputationRenderer.js",
			URL:  "https://raw.githubusercontent.com/mrdoob/three.js/dev/examples/jsm/misc/GPUComputationRenderer.js",
			File: "GPUComputationRenderer.js",
		},
	}
}

// Fetcher はライブラリをダウンロードして保存する
type Fetcher struct {
	Client *http.Client
	Dir    string // assets.dir
	Log    logr.Logger
}

// NewFetcher は新しいFetcherを作成する
func NewFetcher(dir string, log logr.Logger) *Fetcher {
	return &Fetcher{
		Client: &http.Client{Timeout: 60 * time.Second},
		Dir:    dir,
		Log:    log.WithName("assets"),
	}
}

// JSDir は保存先ディレクトリを返す
func (f *Fetcher) JSDir() string {
	return filepath.Join(f.Dir, "js")
}

// Fetch はライブラリを順に取得する。最初に失敗した時点で中断する
func (f *Fetcher) Fetch(ctx context.Context, libs []Library) error {
	dir := f.JSDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("保存先ディレクトリの作成に失敗: %w", err)
	}

	for _, lib := range libs {
		f.Log.Info("ダウンロードを開始します", "name", lib.Name, "url", lib.URL)

		n, err := f.download(ctx, lib, dir)
		if err != nil {
			return fmt.Errorf("%s の取得に失敗: %w", lib.Name, err)
		}

		f.Log.Info("ダウンロードが完了しました", "name", lib.Name, "bytes", n)
	}

	return nil
}

func (f *Fetcher) download(ctx context.Context, lib Library, dir string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lib.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("リクエストの作成に失敗: %w", err)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("予期しないステータス: %s", resp.Status)
	}

	// 途中で失敗しても既存のファイルを壊さないよう、一時ファイルに書いてから置き換える
	tmp, err := os.CreateTemp(dir, "."+lib.File+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("一時ファイルの作成に失敗: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name()) // 置き換え後は存在しないのでエラーは無視
	}()

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("書き込みに失敗: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("書き込みに失敗: %w", err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(dir, lib.File)); err != nil {
		return 0, fmt.Errorf("ファイル置き換えに失敗: %w", err)
	}

	return n, nil
}
