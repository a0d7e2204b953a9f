package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/gorilla/websocket"

	"entangled/internal/config"
	"entangled/internal/generated"
	"entangled/internal/params"
	"entangled/internal/relay"
)

// EntangledHandler は生成されたServerInterfaceを実装する
type EntangledHandler struct {
	config   *config.Config
	relay    *relay.Relay
	swagger  *openapi3.T
	index    []byte
	upgrader websocket.Upgrader
	log      logr.Logger
}

// NewEntangledHandler は新しいEntangledHandlerを作成する
func NewEntangledHandler(cfg *config.Config, r *relay.Relay, log logr.Logger) (*EntangledHandler, error) {
	swagger, err := generated.GetSwagger()
	if err != nil {
		return nil, err
	}
	index, err := embeddedIndex()
	if err != nil {
		return nil, err
	}

	h := &EntangledHandler{
		config:  cfg,
		relay:   r,
		swagger: swagger,
		index:   index,
		log:     log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h, nil
}

// HealthCheck はヘルスチェックエンドポイントの実装
func (h *EntangledHandler) HealthCheck(c *gin.Context) {
	response := generated.HealthResponse{
		Status:    generated.Healthy,
		Timestamp: time.Now(),
	}

	c.JSON(http.StatusOK, response)
}

// GetStatus はシステム状態取得エンドポイントの実装
func (h *EntangledHandler) GetStatus(c *gin.Context) {
	response := generated.StatusResponse{
		Status: generated.Running,
		Server: generated.ServerInfo{
			Host: h.config.Server.Host,
			Port: h.config.Server.Port,
		},
		Clients:   h.relay.ClientCount(),
		Timestamp: time.Now(),
	}

	c.JSON(http.StatusOK, response)
}

// GetParameters は共有パラメータ取得エンドポイントの実装
func (h *EntangledHandler) GetParameters(c *gin.Context) {
	c.JSON(http.StatusOK, toSharedParameters(h.relay.Snapshot()))
}

// UpdateParameters は共有パラメータ更新エンドポイントの実装
//
// WebSocketからの更新と同じく、受理したら接続中の全クライアントへ配信される。
func (h *EntangledHandler) UpdateParameters(c *gin.Context) {
	// WebSocketの受信上限と同じ大きさで打ち切る
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.config.Relay.MaxMessageSize)

	body, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, newErrorResponse("body_too_large",
				fmt.Sprintf("リクエストボディは%dバイト以下である必要があります", tooLarge.Limit), err.Error()))
			return
		}
		c.JSON(http.StatusBadRequest, newErrorResponse("invalid_body", "リクエストボディを読み込めません", err.Error()))
		return
	}

	merged, err := h.relay.Apply(body)
	if err != nil {
		var verr *params.ValidationError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, newErrorResponse("invalid_parameters", "パラメータが不正です", verr.Error()))
		case errors.Is(err, params.ErrNotObject):
			c.JSON(http.StatusBadRequest, newErrorResponse("invalid_body", "更新内容はJSONオブジェクトである必要があります", err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, newErrorResponse("internal_error", "更新に失敗しました", err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, toSharedParameters(merged))
}

// StreamParameters はSSE配信エンドポイントの実装（stream.go）
func (h *EntangledHandler) StreamParameters(c *gin.Context) {
	h.streamSSE(c)
}

// GetParameterField は共有パラメータの1フィールド取得エンドポイントの実装
func (h *EntangledHandler) GetParameterField(c *gin.Context, field string) {
	value, ok := h.relay.Snapshot().Get(field)
	if !ok {
		c.JSON(http.StatusNotFound, newErrorResponse("unknown_field", "指定されたフィールドは存在しません", field))
		return
	}

	c.JSON(http.StatusOK, generated.ParameterFieldResponse{
		Field: field,
		Value: value,
	})
}

// GetOpenAPI はAPI定義を返す
func (h *EntangledHandler) GetOpenAPI(c *gin.Context) {
	c.JSON(http.StatusOK, h.swagger)
}

// ServeIndex はトップページを返す
func (h *EntangledHandler) ServeIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", h.index)
}

// NotFound は未定義パスへの応答
func (h *EntangledHandler) NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, newErrorResponse("not_found", "指定されたパスは存在しません", c.Request.URL.Path))
}

// ヘルパー関数

// toSharedParameters は共有パラメータをAPIスキーマに変換する
func toSharedParameters(p params.Parameters) generated.SharedParameters {
	return generated.SharedParameters{
		ParticleCount:     p.ParticleCount,
		AttractorPosition: p.AttractorPosition[:],
		ParticleColor:     p.ParticleColor,
	}
}

// newErrorResponse はエラー応答を作成する
func newErrorResponse(code, message, details string) generated.ErrorResponse {
	resp := generated.ErrorResponse{
		Error:     code,
		Message:   message,
		Timestamp: time.Now(),
	}
	if details != "" {
		resp.Details = stringPtr(details)
	}
	return resp
}

// stringPtr は文字列のポインタを返すヘルパー関数
func stringPtr(s string) *string {
	return &s
}
