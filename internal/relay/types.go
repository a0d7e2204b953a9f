package relay

import (
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// イベント名
const (
	EventParameters         = "parameters"          // server→client: スナップショット
	EventParametersRejected = "parameters_rejected" // server→client: 更新の拒否通知
	EventRequestParameters  = "request_parameters"  // client→server: スナップショット要求
	EventUpdateParameters   = "update_parameters"   // client→server: 部分更新
)

// DefaultSendBuffer はクライアント送信キューのデフォルト長
const DefaultSendBuffer = 16

// Message はリアルタイム通信路でやり取りするイベント
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Rejection は拒否された更新の送信元に返す内容
type Rejection struct {
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

// Client は中継に接続している1クライアント
//
// send への投入と close は Relay.mu を保持した状態でのみ行う。
type Client struct {
	id     string
	send   chan Message
	closed bool
}

// NewClient は送信キュー長 buffer のクライアントを作成する
func NewClient(buffer int) *Client {
	if buffer < 1 {
		buffer = DefaultSendBuffer
	}
	return &Client{
		id:   uuid.New().String(),
		send: make(chan Message, buffer),
	}
}

// ID はクライアントの一意識別子を返す
func (c *Client) ID() string {
	return c.id
}

// Outbound は送信待ちメッセージのチャンネルを返す。切断時にクローズされる
func (c *Client) Outbound() <-chan Message {
	return c.send
}
