// Package generated は openapi.yaml に対応する型とginのルーティングを提供する
//
// oapi-codegen の gin-server 出力と同じ形に揃えている。API定義を変更したら
// このパッケージも合わせて更新すること。
package generated

import (
	"time"
)

// Defines values for HealthResponseStatus.
const (
	Healthy HealthResponseStatus = "healthy"
)

// Defines values for StatusResponseStatus.
const (
	Running StatusResponseStatus = "running"
)

// ErrorResponse defines model for ErrorResponse.
type ErrorResponse struct {
	Details   *string   `json:"details,omitempty"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse defines model for HealthResponse.
type HealthResponse struct {
	Status    HealthResponseStatus `json:"status"`
	Timestamp time.Time            `json:"timestamp"`
}

// HealthResponseStatus defines model for HealthResponse.Status.
type HealthResponseStatus string

// ParameterFieldResponse defines model for ParameterFieldResponse.
type ParameterFieldResponse struct {
	Field string      `json:"field"`
	Value interface{} `json:"value"`
}

// ServerInfo defines model for ServerInfo.
type ServerInfo struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// SharedParameters defines model for SharedParameters.
type SharedParameters struct {
	AttractorPosition []float64 `json:"attractorPosition"`
	ParticleColor     string    `json:"particleColor"`
	ParticleCount     int       `json:"particleCount"`
}

// StatusResponse defines model for StatusResponse.
type StatusResponse struct {
	// Clients 接続中のリアルタイムクライアント数
	Clients   int                  `json:"clients"`
	Server    ServerInfo           `json:"server"`
	Status    StatusResponseStatus `json:"status"`
	Timestamp time.Time            `json:"timestamp"`
}

// StatusResponseStatus defines model for StatusResponse.Status.
type StatusResponseStatus string
