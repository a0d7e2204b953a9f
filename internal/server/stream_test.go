package server

import (
	"bufio"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"entangled/internal/params"
	"entangled/internal/relay"
)

// sseReader はSSEストリームからイベントを1件ずつ読む
type sseReader struct {
	scanner *bufio.Scanner
}

func (r *sseReader) next(t *testing.T) (event, data string) {
	t.Helper()

	for r.scanner.Scan() {
		line := r.scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case line == "" && event != "":
			return event, data
		}
	}
	t.Fatalf("SSEストリームが終了しました: %v", r.scanner.Err())
	return "", ""
}

func TestStreamParameters(t *testing.T) {
	ts, r := newTestServer(t, newTestConfig(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/parameters/stream", nil)
	if err != nil {
		t.Fatalf("リクエストの作成に失敗しました: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("HTTPリクエストでエラーが発生しました: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Content-Type が一致しません: %s", ct)
	}

	stream := &sseReader{scanner: bufio.NewScanner(resp.Body)}

	// 接続時のスナップショット
	event, data := stream.next(t)
	if event != relay.EventParameters {
		t.Fatalf("スナップショットイベントが期待されました: got %s", event)
	}
	var p params.Parameters
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		t.Fatalf("スナップショットのデコードに失敗しました: %v (%s)", err, data)
	}
	if p != params.Defaults() {
		t.Errorf("初回スナップショットがデフォルト値ではありません: %+v", p)
	}

	// 更新の配信
	if _, err := r.Apply([]byte(`{"particleCount":321}`)); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	event, data = stream.next(t)
	if event != relay.EventParameters {
		t.Fatalf("スナップショットイベントが期待されました: got %s", event)
	}
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		t.Fatalf("スナップショットのデコードに失敗しました: %v (%s)", err, data)
	}
	if p.ParticleCount != 321 {
		t.Errorf("更新がSSEで配信されていません: %+v", p)
	}

	// 購読を終了すると中継から登録解除される
	cancel()
	waitForClients(t, r, 0)
}
