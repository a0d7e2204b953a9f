package relay

import (
	"errors"
	"sync"

	"github.com/go-logr/logr"
	"github.com/goccy/go-json"

	"entangled/internal/params"
)

// Relay は共有パラメータを保持し、接続中の全クライアントへ配信する
type Relay struct {
	mu      sync.Mutex
	params  params.Parameters
	clients map[string]*Client
	closed  bool

	log logr.Logger
}

// New は初期値 initial を持つRelayを作成する
func New(initial params.Parameters, log logr.Logger) *Relay {
	return &Relay{
		params:  initial,
		clients: make(map[string]*Client),
		log:     log.WithName("relay"),
	}
}

// Connect はクライアントを登録し、現在のスナップショットをそのクライアントだけに送る
func (r *Relay) Connect(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		r.disconnectLocked(c)
		return
	}

	r.clients[c.id] = c
	r.log.Info("クライアントが接続しました", "client", c.id, "clients", len(r.clients))

	if msg, ok := r.snapshotMessageLocked(); ok {
		r.sendLocked(c, msg)
	}
}

// Request は payload の内容に関わらず、現在のスナップショットを要求元だけに送る
func (r *Relay) Request(c *Client, payload json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.log.V(1).Info("スナップショットを要求されました", "client", c.id, "payload", string(payload))

	if msg, ok := r.snapshotMessageLocked(); ok {
		r.sendLocked(c, msg)
	}
}

// Update はクライアントからの部分更新を検証・マージし、全クライアントへ配信する
//
// 拒否した場合は共有レコードを変更せず、送信元にだけ拒否イベントを送る。
func (r *Relay) Update(c *Client, payload json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.applyLocked(payload, c.id); err != nil {
		if msg, ok := rejectionMessage(err); ok {
			r.sendLocked(c, msg)
		}
		return err
	}
	return nil
}

// Apply は送信元クライアントを持たない更新（HTTP API など）を適用する
func (r *Relay) Apply(payload []byte) (params.Parameters, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.applyLocked(payload, "api")
}

// Disconnect はクライアントの登録を解除し、送信キューをクローズする。複数回呼んでもよい
func (r *Relay) Disconnect(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, registered := r.clients[c.id]; !registered {
		r.disconnectLocked(c)
		return
	}

	r.disconnectLocked(c)
	r.log.Info("クライアントが切断しました", "client", c.id, "clients", len(r.clients))
}

// Dispatch は受信したメッセージをイベント名で振り分ける
func (r *Relay) Dispatch(c *Client, msg Message) {
	switch msg.Event {
	case EventRequestParameters:
		r.Request(c, msg.Data)
	case EventUpdateParameters:
		// 拒否理由はUpdate内でログと送信元への通知を済ませている
		_ = r.Update(c, msg.Data)
	default:
		r.log.Info("未知のイベントを無視します", "client", c.id, "event", msg.Event)
	}
}

// Snapshot は現在の共有パラメータのコピーを返す
func (r *Relay) Snapshot() params.Parameters {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params
}

// ClientCount は接続中のクライアント数を返す
func (r *Relay) ClientCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Close は全クライアントを切断する。以降の Connect は即座に切断される
func (r *Relay) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	for _, c := range r.clients {
		r.disconnectLocked(c)
	}
	r.log.Info("中継を停止しました")
}

// applyLocked は検証・マージ・配信を行う（ロック済み前提）
func (r *Relay) applyLocked(payload []byte, origin string) (params.Parameters, error) {
	merged, applied, err := params.Merge(r.params, payload)
	if err != nil {
		r.log.Info("更新を拒否しました", "origin", origin, "reason", err.Error())
		return r.params, err
	}

	r.params = merged
	r.log.V(1).Info("パラメータを更新しました", "origin", origin, "fields", applied)

	if msg, ok := r.snapshotMessageLocked(); ok {
		for _, c := range r.clients {
			r.sendLocked(c, msg)
		}
	}
	return merged, nil
}

// snapshotMessageLocked は現在のレコードからスナップショットイベントを作る（ロック済み前提）
func (r *Relay) snapshotMessageLocked() (Message, bool) {
	data, err := json.Marshal(r.params)
	if err != nil {
		r.log.Error(err, "スナップショットのエンコードに失敗")
		return Message{}, false
	}
	return Message{Event: EventParameters, Data: data}, true
}

// sendLocked はクライアントの送信キューへ投入する（ロック済み前提）
//
// 切断済みなら捨て、キューが満杯ならそのクライアントを切断する。
func (r *Relay) sendLocked(c *Client, msg Message) {
	if c.closed {
		return
	}

	select {
	case c.send <- msg:
	default:
		r.log.Info("送信キューが満杯のためクライアントを切断します", "client", c.id, "event", msg.Event)
		r.disconnectLocked(c)
	}
}

// disconnectLocked はクライアントを登録解除してキューをクローズする（ロック済み前提）
func (r *Relay) disconnectLocked(c *Client) {
	if registered, ok := r.clients[c.id]; ok && registered == c {
		delete(r.clients, c.id)
	}
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func rejectionMessage(err error) (Message, bool) {
	rejection := Rejection{Reason: err.Error()}

	var verr *params.ValidationError
	if errors.As(err, &verr) {
		rejection.Field = verr.Field
		rejection.Reason = verr.Reason
	}

	data, mErr := json.Marshal(rejection)
	if mErr != nil {
		return Message{}, false
	}
	return Message{Event: EventParametersRejected, Data: data}, true
}
