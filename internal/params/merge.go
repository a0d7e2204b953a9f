package params

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// ErrNotObject は更新内容のトップレベルがJSONオブジェクトでない場合のエラー
var ErrNotObject = errors.New("更新内容はJSONオブジェクトである必要があります")

// ValidationError は既知フィールドの型または値が不正な場合のエラー
type ValidationError struct {
	Field  string // JSON上のフィールド名
	Reason string // 拒否理由
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("フィールド %s が不正です: %s", e.Field, e.Reason)
}

// fieldDecoder は1フィールド分のJSON値を候補レコードへ書き込む
type fieldDecoder func(raw json.RawMessage, p *Parameters) error

var schema = map[string]fieldDecoder{
	FieldParticleCount:     decodeParticleCount,
	FieldAttractorPosition: decodeAttractorPosition,
	FieldParticleColor:     decodeParticleColor,
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// エラーのフィールド名をJSON名で報告する
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Merge は部分更新 payload を current に適用した新しいレコードを返す
//
// 既知フィールドだけを型チェックしてから適用し、結果全体を検証する。
// どれか一つでも不正なら current をそのまま返し、エラーを返す。
// applied には実際に適用されたフィールド名が固定順で入る。
func Merge(current Parameters, payload []byte) (merged Parameters, applied []string, err error) {
	var update map[string]json.RawMessage
	if err := json.Unmarshal(payload, &update); err != nil || update == nil {
		return current, nil, ErrNotObject
	}

	candidate := current
	for _, field := range Fields() {
		raw, ok := update[field]
		if !ok {
			continue
		}
		if isNull(raw) {
			return current, nil, &ValidationError{Field: field, Reason: "nullは指定できません"}
		}
		if err := schema[field](raw, &candidate); err != nil {
			return current, nil, err
		}
		applied = append(applied, field)
	}

	if err := Validate(candidate); err != nil {
		return current, nil, err
	}

	return candidate, applied, nil
}

// Validate はレコード全体が値の範囲を満たすか検証する
func Validate(p Parameters) error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		reason := fe.Tag()
		if fe.Param() != "" {
			reason += "=" + fe.Param()
		}
		return &ValidationError{
			Field:  fe.Field(),
			Reason: fmt.Sprintf("制約 %s を満たしません (値: %v)", reason, fe.Value()),
		}
	}
	return fmt.Errorf("パラメータの検証に失敗: %w", err)
}

func decodeParticleCount(raw json.RawMessage, p *Parameters) error {
	// 整数リテラルだけを受け付ける。小数・文字列・指数表記は拒否する
	n, err := strconv.ParseInt(string(bytes.TrimSpace(raw)), 10, 64)
	if err != nil {
		return &ValidationError{Field: FieldParticleCount, Reason: "整数である必要があります"}
	}
	if n < 1 || n > MaxParticleCount {
		return &ValidationError{
			Field:  FieldParticleCount,
			Reason: fmt.Sprintf("1以上%d以下である必要があります (値: %d)", MaxParticleCount, n),
		}
	}
	p.ParticleCount = int(n)
	return nil
}

func decodeAttractorPosition(raw json.RawMessage, p *Parameters) error {
	var coords []*float64
	if err := json.Unmarshal(raw, &coords); err != nil {
		return &ValidationError{Field: FieldAttractorPosition, Reason: "数値の配列 [x, y, z] である必要があります"}
	}
	if len(coords) != len(p.AttractorPosition) {
		return &ValidationError{
			Field:  FieldAttractorPosition,
			Reason: fmt.Sprintf("要素数は3である必要があります (要素数: %d)", len(coords)),
		}
	}

	var v Vector3
	for i, c := range coords {
		if c == nil {
			return &ValidationError{
				Field:  fmt.Sprintf("%s[%d]", FieldAttractorPosition, i),
				Reason: "nullは指定できません",
			}
		}
		v[i] = *c
	}
	p.AttractorPosition = v
	return nil
}

func decodeParticleColor(raw json.RawMessage, p *Parameters) error {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return &ValidationError{Field: FieldParticleColor, Reason: "文字列である必要があります"}
	}
	p.ParticleColor = s
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
