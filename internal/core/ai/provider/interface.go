package provider

import (
	"context"
	"time"
)

// Kind 供應者回應種類
type Kind int

const (
	// KindSuccess 取得文字輸出
	KindSuccess Kind = iota
	// KindStructuralFailure 內容被封鎖、輸出被截斷等，同層重試無意義
	KindStructuralFailure
	// KindEmpty 沒有任何輸出
	KindEmpty
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindStructuralFailure:
		return "structural_failure"
	case KindEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Outcome 供應者回應，在解析前先統一成三種情況
type Outcome struct {
	Kind   Kind
	Text   string
	Reason string
}

// Success 成功並帶有文字
func Success(text string) Outcome {
	return Outcome{Kind: KindSuccess, Text: text}
}

// StructuralFailure 結構性失敗
func StructuralFailure(reason string) Outcome {
	return Outcome{Kind: KindStructuralFailure, Reason: reason}
}

// Empty 空輸出
func Empty() Outcome {
	return Outcome{Kind: KindEmpty, Reason: "empty output"}
}

// OK 是否成功
func (o Outcome) OK() bool {
	return o.Kind == KindSuccess
}

// Request 視覺辨識請求
type Request struct {
	ImageBase64 string
	MIMEType    string
	Prompt      string
	// Model 多模型供應者使用的模型名稱，空字串代表預設
	Model string
}

// Provider 視覺辨識供應者
// 傳輸層錯誤以 error 回傳，由重試策略分類；內容層問題以 Outcome 表示
type Provider interface {
	// Name 供應者名稱
	Name() string

	// Recognize 送出圖片與指令，回傳統一格式的結果
	Recognize(ctx context.Context, req Request) (Outcome, error)

	// Close 關閉提供者連接
	Close() error
}

// MultiModelProvider 可輪替多個模型的供應者
type MultiModelProvider interface {
	Provider

	// Models 依優先順序回傳模型名稱
	Models() []string

	// GetTimeout 單次請求超時時間
	GetTimeout() time.Duration
}

// TextGenerator 純文字生成，供營養生成使用
type TextGenerator interface {
	Name() string
	GenerateText(ctx context.Context, prompt string) (Outcome, error)
}
