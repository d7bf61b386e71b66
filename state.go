package main

// ================= 会话状态机定义 =================
// 任一时刻只处于四态之一；所有转移都以 WakeListening 为公共回归点。
// 状态只在 orchestrator 的事件循环里变更，外部仅可读。

type SessionState int

const (
	StateWakeListening SessionState = iota
	StateCapturing
	StateThinking
	StateSpeaking
)

func (s SessionState) String() string {
	switch s {
	case StateWakeListening:
		return "WakeListening"
	case StateCapturing:
		return "Capturing"
	case StateThinking:
		return "Thinking"
	case StateSpeaking:
		return "Speaking"
	default:
		return "Unknown"
	}
}

// ================= 会话事件 =================
// 外部引擎的回调不直接改状态，统一折算成事件投递给事件循环，
// 保证单消费者顺序（同一会话内各阶段的完成事件按序处理）。

type eventKind int

const (
	evWakeDetected eventKind = iota
	evUtteranceFinal
	evCaptureFailed
	evCaptureTimeout
	evInferenceDone
	evInferenceFailed
	evPlaybackDone
)

func (k eventKind) String() string {
	switch k {
	case evWakeDetected:
		return "wake-detected"
	case evUtteranceFinal:
		return "utterance-final"
	case evCaptureFailed:
		return "capture-failed"
	case evCaptureTimeout:
		return "capture-timeout"
	case evInferenceDone:
		return "inference-done"
	case evInferenceFailed:
		return "inference-failed"
	case evPlaybackDone:
		return "playback-done"
	default:
		return "unknown"
	}
}

type sessionEvent struct {
	kind eventKind
	text string // evUtteranceFinal: 定稿文本
	err  error
	// evInferenceDone 携带的待持久化往返记录（持久化动作留在事件循环里做）
	interaction *pendingInteraction
}

type pendingInteraction struct {
	systemPrompt string
	userPrompt   string
	response     string
	latencyMs    int64
	modelID      string
	temperature  float64
	maxTokens    int
}
