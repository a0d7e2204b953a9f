package server

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"entangled/internal/params"
	"entangled/internal/relay"
)

func dial(t *testing.T, baseURL string, header http.Header) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(baseURL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("WebSocket接続に失敗しました: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) relay.Message {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("メッセージの受信に失敗しました: %v", err)
	}

	var msg relay.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("メッセージのデコードに失敗しました: %v (%s)", err, data)
	}
	return msg
}

func readSnapshot(t *testing.T, conn *websocket.Conn) (params.Parameters, string) {
	t.Helper()

	msg := readMessage(t, conn)
	if msg.Event != relay.EventParameters {
		t.Fatalf("スナップショットイベントが期待されました: got %s (%s)", msg.Event, msg.Data)
	}
	var p params.Parameters
	if err := json.Unmarshal(msg.Data, &p); err != nil {
		t.Fatalf("スナップショットのデコードに失敗しました: %v", err)
	}
	return p, string(msg.Data)
}

func send(t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		t.Fatalf("メッセージの送信に失敗しました: %v", err)
	}
}

// waitForClients は中継のクライアント数が want になるまで待つ
func waitForClients(t *testing.T, r *relay.Relay, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("クライアント数が一致しません: got %d, want %d", r.ClientCount(), want)
}

func TestWebSocket_ConnectReceivesSnapshot(t *testing.T) {
	ts, _ := newTestServer(t, newTestConfig(t))

	c1 := dial(t, ts.URL, nil)
	c2 := dial(t, ts.URL, nil)

	p1, _ := readSnapshot(t, c1)
	p2, _ := readSnapshot(t, c2)

	if p1 != params.Defaults() {
		t.Errorf("初回スナップショットがデフォルト値ではありません: %+v", p1)
	}
	if p1 != p2 {
		t.Errorf("2クライアントのスナップショットが一致しません: %+v / %+v", p1, p2)
	}
}

func TestWebSocket_UpdateBroadcast(t *testing.T) {
	ts, r := newTestServer(t, newTestConfig(t))

	sender := dial(t, ts.URL, nil)
	other := dial(t, ts.URL, nil)
	readSnapshot(t, sender)
	readSnapshot(t, other)

	send(t, sender, `{"event":"update_parameters","data":{"particleColor":"#ff0000","bogusField":42}}`)

	want := params.Parameters{
		ParticleCount:     10000,
		AttractorPosition: params.Vector3{0, 0, 0},
		ParticleColor:     "#ff0000",
	}
	for _, conn := range []*websocket.Conn{sender, other} {
		got, raw := readSnapshot(t, conn)
		if got != want {
			t.Errorf("配信内容が一致しません: got %+v, want %+v", got, want)
		}
		if strings.Contains(raw, "bogusField") {
			t.Errorf("未知のキーが配信されました: %s", raw)
		}
	}

	if r.Snapshot() != want {
		t.Errorf("共有レコードが一致しません: %+v", r.Snapshot())
	}
}

func TestWebSocket_RejectedUpdate(t *testing.T) {
	ts, r := newTestServer(t, newTestConfig(t))

	sender := dial(t, ts.URL, nil)
	readSnapshot(t, sender)

	send(t, sender, `{"event":"update_parameters","data":{"particleCount":"lots"}}`)

	msg := readMessage(t, sender)
	if msg.Event != relay.EventParametersRejected {
		t.Fatalf("拒否イベントが期待されました: got %s", msg.Event)
	}
	if !strings.Contains(string(msg.Data), params.FieldParticleCount) {
		t.Errorf("拒否内容にフィールド名が含まれていません: %s", msg.Data)
	}
	if r.Snapshot() != params.Defaults() {
		t.Errorf("拒否された更新で共有レコードが変化しました: %+v", r.Snapshot())
	}
}

func TestWebSocket_MalformedMessageKeepsConnection(t *testing.T) {
	ts, _ := newTestServer(t, newTestConfig(t))

	conn := dial(t, ts.URL, nil)
	readSnapshot(t, conn)

	send(t, conn, `this is not json`)
	send(t, conn, `{"data":{}}`)
	send(t, conn, `{"event":"request_parameters","data":"anything"}`)

	if got, _ := readSnapshot(t, conn); got != params.Defaults() {
		t.Errorf("要求に対するスナップショットが一致しません: %+v", got)
	}
}

func TestWebSocket_APIUpdateReachesClients(t *testing.T) {
	ts, _ := newTestServer(t, newTestConfig(t))

	conn := dial(t, ts.URL, nil)
	readSnapshot(t, conn)

	resp := patchParameters(t, ts.URL, `{"attractorPosition":[1,2,3]}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("予期しないステータスコード: got %d", resp.StatusCode)
	}

	got, _ := readSnapshot(t, conn)
	if got.AttractorPosition != (params.Vector3{1, 2, 3}) {
		t.Errorf("API経由の更新が配信されていません: %+v", got)
	}
}

func TestWebSocket_DisconnectDoesNotAffectOthers(t *testing.T) {
	ts, r := newTestServer(t, newTestConfig(t))

	gone := dial(t, ts.URL, nil)
	stay := dial(t, ts.URL, nil)
	readSnapshot(t, gone)
	readSnapshot(t, stay)
	waitForClients(t, r, 2)

	_ = gone.Close()
	waitForClients(t, r, 1)

	send(t, stay, `{"event":"update_parameters","data":{"particleCount":42}}`)
	if got, _ := readSnapshot(t, stay); got.ParticleCount != 42 {
		t.Errorf("残ったクライアントに更新が届いていません: %+v", got)
	}
}

func TestWebSocket_CheckOrigin(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Relay.AllowedOrigins = []string{"http://allowed.example"}
	ts, _ := newTestServer(t, cfg)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
	if err == nil {
		t.Fatal("許可されていないオリジンで接続できてしまいました")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("403が期待されました: %v", resp)
	}

	conn := dial(t, ts.URL, http.Header{"Origin": {"http://allowed.example"}})
	readSnapshot(t, conn)
}

func TestWebSocket_OversizedMessageClosesSender(t *testing.T) {
	cfg := newTestConfig(t)
	ts, r := newTestServer(t, cfg)

	sender := dial(t, ts.URL, nil)
	other := dial(t, ts.URL, nil)
	readSnapshot(t, sender)
	readSnapshot(t, other)
	waitForClients(t, r, 2)

	pad := strings.Repeat("a", int(cfg.Relay.MaxMessageSize))
	send(t, sender, `{"event":"update_parameters","data":{"particleColor":"#00ff00","pad":"`+pad+`"}}`)

	// 送信元の接続だけが閉じられる
	_ = sender.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := sender.ReadMessage(); err == nil {
		t.Fatal("上限を超えたメッセージの送信元が切断されていません")
	}
	waitForClients(t, r, 1)

	if r.Snapshot() != params.Defaults() {
		t.Errorf("上限を超えたメッセージで共有レコードが変化しました: %+v", r.Snapshot())
	}

	// 残ったクライアントは引き続き更新を受け取る
	resp := patchParameters(t, ts.URL, `{"particleCount":77}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("予期しないステータスコード: got %d", resp.StatusCode)
	}
	if got, _ := readSnapshot(t, other); got.ParticleCount != 77 {
		t.Errorf("残ったクライアントに更新が届いていません: %+v", got)
	}
}
