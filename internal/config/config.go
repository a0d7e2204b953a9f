package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"entangled/internal/params"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Relay  RelayConfig  `yaml:"relay" mapstructure:"relay"`
	Params ParamsConfig `yaml:"params" mapstructure:"params"`
	Assets AssetsConfig `yaml:"assets" mapstructure:"assets"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host" mapstructure:"host"` // リッスンするホスト
	Port int    `yaml:"port" mapstructure:"port"` // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`         // 読み込みタイムアウト
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`       // 書き込みタイムアウト
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"` // グレースフルシャットダウンの待ち時間
}

// RelayConfig はリアルタイム中継の設定
type RelayConfig struct {
	SendBuffer     int           `yaml:"send_buffer" mapstructure:"send_buffer"`           // クライアント毎の送信キュー長
	MaxMessageSize int64         `yaml:"max_message_size" mapstructure:"max_message_size"` // 受信メッセージの最大バイト数
	WriteWait      time.Duration `yaml:"write_wait" mapstructure:"write_wait"`             // 1メッセージの書き込み期限
	PongWait       time.Duration `yaml:"pong_wait" mapstructure:"pong_wait"`               // pong待ちの期限
	AllowedOrigins []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`   // 空なら全オリジンを許可
}

// ParamsConfig は共有パラメータの初期値
type ParamsConfig struct {
	ParticleCount int    `yaml:"particle_count" mapstructure:"particle_count"`
	ParticleColor string `yaml:"particle_color" mapstructure:"particle_color"`
}

// AssetsConfig は静的ファイルの設定
type AssetsConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"` // fetch-libs の保存先、/static で配信する
}

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5000,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    0, // WebSocket/SSE 用にタイムアウト無効化
			ShutdownTimeout: 5 * time.Second,
		},
		Relay: RelayConfig{
			SendBuffer:     16,
			MaxMessageSize: 4096,
			WriteWait:      10 * time.Second,
			PongWait:       60 * time.Second,
			AllowedOrigins: []string{},
		},
		Params: ParamsConfig{
			ParticleCount: params.DefaultParticleCount,
			ParticleColor: params.DefaultParticleColor,
		},
		Assets: AssetsConfig{
			Dir: "static",
		},
	}
}

// Load は設定を読み込む
//
// 優先順位は 環境変数 > 設定ファイル > デフォルト値。path が空なら設定ファイルは読まない。
func Load(path string) (*Config, error) {
	v := NewViper()
	if err := ReadFile(v, path); err != nil {
		return nil, err
	}

	return FromViper(v)
}

// ReadFile は設定ファイル path を v へ読み込む。path が空なら何もしない
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}
	return nil
}

// NewViper はデフォルト値と環境変数の対応を登録したviperを返す
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v, Default())

	// server.host -> SERVER_HOST
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 互換のため PORT も受け付ける
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")

	return v
}

// FromViper はviperの内容から設定を組み立てて検証する
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("設定の変換に失敗: %w", err)
	}

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	// サーバー設定の検証
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		return errors.New("タイムアウトに負の値は指定できません")
	}

	// 中継設定の検証
	if c.Relay.SendBuffer < 1 {
		return fmt.Errorf("無効な送信キュー長: %d", c.Relay.SendBuffer)
	}
	if c.Relay.MaxMessageSize < 1 {
		return fmt.Errorf("無効な最大メッセージサイズ: %d", c.Relay.MaxMessageSize)
	}
	if c.Relay.WriteWait <= 0 || c.Relay.PongWait <= 0 {
		return errors.New("write_wait と pong_wait は正の値である必要があります")
	}

	// 初期パラメータの検証
	if err := params.Validate(c.InitialParameters()); err != nil {
		return fmt.Errorf("初期パラメータが不正: %w", err)
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// InitialParameters は起動時の共有パラメータを返す
func (c *Config) InitialParameters() params.Parameters {
	p := params.Defaults()
	p.ParticleCount = c.Params.ParticleCount
	p.ParticleColor = c.Params.ParticleColor
	return p
}

// PingPeriod はWebSocketのping送信間隔を返す（pong待ち期限の9割）
func (c *Config) PingPeriod() time.Duration {
	return c.Relay.PongWait * 9 / 10
}

// setDefaults は全キーをviperへ登録する。AutomaticEnv を Unmarshal に反映させるために必要
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("relay.send_buffer", d.Relay.SendBuffer)
	v.SetDefault("relay.max_message_size", d.Relay.MaxMessageSize)
	v.SetDefault("relay.write_wait", d.Relay.WriteWait)
	v.SetDefault("relay.pong_wait", d.Relay.PongWait)
	v.SetDefault("relay.allowed_origins", d.Relay.AllowedOrigins)

	v.SetDefault("params.particle_count", d.Params.ParticleCount)
	v.SetDefault("params.particle_color", d.Params.ParticleColor)

	v.SetDefault("assets.dir", d.Assets.Dir)
}
