package server

import (
	"strconv"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"entangled/internal/relay"
)

// streamSSE は共有パラメータをServer-Sent Eventsで配信する
//
// 読み取り専用の購読。中継にはWebSocketのクライアントと同じように登録される。
func (h *EntangledHandler) streamSSE(c *gin.Context) {
	client := relay.NewClient(h.config.Relay.SendBuffer)
	h.relay.Connect(client)
	defer h.relay.Disconnect(client)

	log := h.log.WithValues("client", client.ID(), "remote", c.Request.RemoteAddr)
	log.V(1).Info("SSE購読を開始しました")

	// レスポンスヘッダーを設定
	c.Header("Content-Type", sse.ContentType)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	// クライアント切断を検知するためのコンテキスト
	clientGone := c.Request.Context().Done()

	var seq uint64
	for {
		select {
		case <-clientGone:
			log.V(1).Info("SSE購読が終了しました")
			return

		case msg, ok := <-client.Outbound():
			if !ok {
				// 中継側で切断された
				return
			}

			seq++
			c.Render(-1, sse.Event{
				Id:    strconv.FormatUint(seq, 10),
				Event: msg.Event,
				Data:  string(msg.Data),
			})
			c.Writer.Flush()
		}
	}
}
