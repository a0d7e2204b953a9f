// Package params は全クライアントで共有するシミュレーションパラメータを扱う
//
// # 責務
// - 共有パラメータ (SharedParameters) の型とデフォルト値の定義
// - 既知フィールドのスキーマと型チェック
// - 部分更新の検証とマージ（検証してからマージする）
//
// # 仕様
//   - フィールド集合は固定: particleCount, attractorPosition, particleColor
//   - 未知のキーは無視され、保存されない
//   - 既知フィールドのどれか一つでも不正なら更新全体を拒否する
//   - 状態は持たない。共有レコードの所有者は relay パッケージ
package params

// JSON上のフィールド名
const (
	FieldParticleCount     = "particleCount"
	FieldAttractorPosition = "attractorPosition"
	FieldParticleColor     = "particleColor"
)

// 値の範囲
const (
	DefaultParticleCount = 10000
	DefaultParticleColor = "#ffffff"

	MaxParticleCount = 1000000 // クライアント側の1システムあたり最大粒子数
	MaxCoordinate    = 10000.0 // アトラクタ座標の絶対値上限
)

// Vector3 は (x, y, z) の3要素座標。JSONでは [x, y, z] の配列になる
type Vector3 [3]float64

// Parameters は全クライアントで共有するシミュレーションパラメータ
type Parameters struct {
	ParticleCount     int     `json:"particleCount" validate:"gte=1,lte=1000000"`
	AttractorPosition Vector3 `json:"attractorPosition" validate:"dive,gte=-10000,lte=10000"`
	ParticleColor     string  `json:"particleColor" validate:"required,hexcolor"`
}

// Defaults はプロセス起動時の初期値を返す
func Defaults() Parameters {
	return Parameters{
		ParticleCount:     DefaultParticleCount,
		AttractorPosition: Vector3{0, 0, 0},
		ParticleColor:     DefaultParticleColor,
	}
}

// Fields は既知のフィールド名を固定順で返す
func Fields() []string {
	return []string{FieldParticleCount, FieldAttractorPosition, FieldParticleColor}
}

// Get は指定フィールドの現在値を返す
func (p Parameters) Get(field string) (any, bool) {
	switch field {
	case FieldParticleCount:
		return p.ParticleCount, true
	case FieldAttractorPosition:
		return p.AttractorPosition, true
	case FieldParticleColor:
		return p.ParticleColor, true
	default:
		return nil, false
	}
}
