package main

import (
	"context"

	"ai_memo/store"
)

// ================= 外部引擎契约 =================
// 麦克风类资源（唤醒检测器、识别引擎）独占共享麦克风：
// orchestrator 保证任一时刻至多一个处于工作态，先 Stop 再 Start。
// 所有 Stop 必须幂等，任何状态下调用都安全。

// WakeDetector 唤醒词检测器。Start 之后命中关键词时回调一次，
// Stop 之后可再次 Start（可重启）。
type WakeDetector interface {
	Initialize() error
	Start(onWake func(keyword string)) error
	Stop()
	Cleanup()
}

// RecognitionCallbacks 识别引擎的回调组。OnError 携带引擎侧错误码（不透明）。
type RecognitionCallbacks struct {
	OnPartial func(text string)
	OnFinal   func(text string)
	OnError   func(code int)
}

// SpeechEngine 流式语音识别引擎。
type SpeechEngine interface {
	Initialize() error
	Start(cb RecognitionCallbacks) error
	Stop()
}

// SpeechSynthesizer 语音合成引擎。Speak 在播放完成后返回；
// 引擎失败返回 error。Stop 幂等，中止当前播放。
type SpeechSynthesizer interface {
	Initialize(ctx context.Context) error
	Speak(ctx context.Context, text string) error
	Stop()
}

// LLMService 大模型推理服务。失败不在核心侧重试。
type LLMService interface {
	GenerateResponse(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error)
}

// NoteStore orchestrator 消费的存储面（由 store.Store 实现）。
type NoteStore interface {
	SaveUtterance(u *store.Utterance) error
	SaveInteraction(it *store.Interaction) error
	MostRecentInteraction() (*store.Interaction, error)
	UpdateGrade(id string, grade int) error
	MarkAllExcluded() error
	RecentNonExcluded(n int) ([]store.Utterance, error)
}
