package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"entangled/internal/relay"
)

// ServeWebSocket はWebSocket接続を確立し、中継に接続する
func (h *EntangledHandler) ServeWebSocket(c *gin.Context) {
	// 失敗時のHTTP応答は Upgrade が書き込む
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Info("WebSocketへのアップグレードに失敗", "remote", c.Request.RemoteAddr, "error", err.Error())
		return
	}

	client := relay.NewClient(h.config.Relay.SendBuffer)
	log := h.log.WithValues("client", client.ID(), "remote", c.Request.RemoteAddr)

	h.relay.Connect(client)

	go h.writePump(conn, client, log)
	h.readPump(conn, client, log)
}

// readPump はクライアントからのメッセージを読み、中継へ振り分ける
func (h *EntangledHandler) readPump(conn *websocket.Conn, client *relay.Client, log logr.Logger) {
	defer func() {
		h.relay.Disconnect(client)
		_ = conn.Close()
	}()

	pongWait := h.config.Relay.PongWait
	conn.SetReadLimit(h.config.Relay.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Info("WebSocketが予期せず切断されました", "error", err.Error())
			}
			return
		}

		var msg relay.Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Event == "" {
			log.Info("不正なメッセージを破棄しました", "size", len(data))
			continue
		}

		h.relay.Dispatch(client, msg)
	}
}

// writePump は送信キューの内容をソケットへ書き込む。ソケットへの書き込みはここだけで行う
func (h *EntangledHandler) writePump(conn *websocket.Conn, client *relay.Client, log logr.Logger) {
	writeWait := h.config.Relay.WriteWait
	ticker := time.NewTicker(h.config.PingPeriod())
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.Outbound():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 中継側で切断された
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				log.Error(err, "メッセージのエンコードに失敗", "event", msg.Event)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.V(1).Info("WebSocketへの書き込みに失敗", "error", err.Error())
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// checkOrigin は許可オリジンの一覧と照合する。一覧が空なら全て許可する
func (h *EntangledHandler) checkOrigin(r *http.Request) bool {
	allowed := h.config.Relay.AllowedOrigins
	if len(allowed) == 0 {
		return true
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range allowed {
		if o == origin {
			return true
		}
	}
	return false
}
