// Package store 基于 SQLite 的语音记录/问答记录存储。
package store

// Utterance 一条定稿的语音记录。定稿后内容不可变，
// 只有 ExcludedFromContext 可由用户操作翻转。
type Utterance struct {
	ID                  string
	Text                string
	CreatedAt           int64 // 毫秒时间戳
	ExcludedFromContext bool
}

// Interaction 一次 LLM 往返的完整记录。
type Interaction struct {
	ID           string
	SystemPrompt string
	UserPrompt   string
	Response     string
	CreatedAt    int64 // 毫秒时间戳
	LatencyMs    int64
	ModelID      string
	Temperature  float64
	MaxTokens    int
	Grade        *int // 0~5，未评分为 nil
}
