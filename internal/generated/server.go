package generated

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// ヘルスチェック
	// (GET /health)
	HealthCheck(c *gin.Context)
	// システム状態の取得
	// (GET /api/status)
	GetStatus(c *gin.Context)
	// 共有パラメータの取得
	// (GET /api/parameters)
	GetParameters(c *gin.Context)
	// 共有パラメータの部分更新
	// (PATCH /api/parameters)
	UpdateParameters(c *gin.Context)
	// 共有パラメータの購読 (Server-Sent Events)
	// (GET /api/parameters/stream)
	StreamParameters(c *gin.Context)
	// 共有パラメータの1フィールドを取得
	// (GET /api/parameters/{field})
	GetParameterField(c *gin.Context, field string)
	// このAPI定義
	// (GET /api/openapi.json)
	GetOpenAPI(c *gin.Context)
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler      ServerInterface
	ErrorHandler func(*gin.Context, error, int)
}

// HealthCheck operation middleware
func (siw *ServerInterfaceWrapper) HealthCheck(c *gin.Context) {
	siw.Handler.HealthCheck(c)
}

// GetStatus operation middleware
func (siw *ServerInterfaceWrapper) GetStatus(c *gin.Context) {
	siw.Handler.GetStatus(c)
}

// GetParameters operation middleware
func (siw *ServerInterfaceWrapper) GetParameters(c *gin.Context) {
	siw.Handler.GetParameters(c)
}

// UpdateParameters operation middleware
func (siw *ServerInterfaceWrapper) UpdateParameters(c *gin.Context) {
	siw.Handler.UpdateParameters(c)
}

// StreamParameters operation middleware
func (siw *ServerInterfaceWrapper) StreamParameters(c *gin.Context) {
	siw.Handler.StreamParameters(c)
}

// GetParameterField operation middleware
func (siw *ServerInterfaceWrapper) GetParameterField(c *gin.Context) {
	var err error

	// ------------- Path parameter "field" -------------
	var field string

	err = runtime.BindStyledParameterWithOptions("simple", "field", c.Param("field"), &field, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter field: %w", err), http.StatusBadRequest)
		return
	}

	siw.Handler.GetParameterField(c, field)
}

// GetOpenAPI operation middleware
func (siw *ServerInterfaceWrapper) GetOpenAPI(c *gin.Context) {
	siw.Handler.GetOpenAPI(c)
}

// GinServerOptions provides options for the Gin server.
type GinServerOptions struct {
	BaseURL      string
	ErrorHandler func(*gin.Context, error, int)
}

// RegisterHandlersWithOptions creates http.Handler with additional options
func RegisterHandlersWithOptions(router gin.IRouter, si ServerInterface, options GinServerOptions) {
	errorHandler := options.ErrorHandler
	if errorHandler == nil {
		errorHandler = func(c *gin.Context, err error, statusCode int) {
			c.JSON(statusCode, gin.H{"msg": err.Error()})
		}
	}

	wrapper := ServerInterfaceWrapper{
		Handler:      si,
		ErrorHandler: errorHandler,
	}

	router.GET(options.BaseURL+"/health", wrapper.HealthCheck)
	router.GET(options.BaseURL+"/api/status", wrapper.GetStatus)
	router.GET(options.BaseURL+"/api/parameters", wrapper.GetParameters)
	router.PATCH(options.BaseURL+"/api/parameters", wrapper.UpdateParameters)
	router.GET(options.BaseURL+"/api/parameters/stream", wrapper.StreamParameters)
	router.GET(options.BaseURL+"/api/parameters/:field", wrapper.GetParameterField)
	router.GET(options.BaseURL+"/api/openapi.json", wrapper.GetOpenAPI)
}
