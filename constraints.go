package main

import "time"

// ================= 1. 常量配置 =================
// 注意：不要把真实 Key 写死在代码里，统一通过环境变量/配置文件注入（见 deploy/ai_memo.env.example）。
const DASH_API_KEY = ""

const TTS_WS_URL = "wss://dashscope.aliyuncs.com/api-ws/v1/inference/"
const ASR_WS_URL = "wss://dashscope.aliyuncs.com/api-ws/v1/inference/"
const LLM_URL = "https://dashscope.aliyuncs.com/api/v1/services/aigc/text-generation/generation"

const STORE_PATH = "/userdata/AI_MEMO/memo.sqlite"
const KWS_MODEL_DIR = "/userdata/AI_MEMO/kws"

// ================= 1.5 断句参数 =================
// 分段器：每 POLL_INTERVAL 检查一次，距最后一次识别事件超过 PAUSE_THRESHOLD
// 且缓冲非空时定稿。实测 2s 停顿是“说完了”和“在想下一句”的分界。
const PAUSE_THRESHOLD = 2000 * time.Millisecond
const POLL_INTERVAL = 500 * time.Millisecond

// 唤醒后到开启识别之间的缓冲，避免唤醒词尾音被录进语音段
const CAPTURE_SETTLE_DELAY = 300 * time.Millisecond

// 单次采集的兜底上限：一直静音/只有空白内容时强制放弃本次采集回到唤醒监听
const CAPTURE_IDLE_TIMEOUT = 30 * time.Second

// 上下文窗口：组装提示词时取最近 N 条未排除的记录
const CONTEXT_WINDOW = 20

// ================= 2. 触发词库 =================
// 注意：这里放一些常见变体（含中英文），尽量提高命中率；
// 实际部署可通过 triggers.yaml 覆盖（见 config_runtime.go）。
var CLEAR_CONTEXT_PHRASES = []string{
	"clear context", "reset context", "new context",
	"清除上下文", "重置上下文", "重新开始记录",
}

var QUERY_TRIGGER_PHRASES = []string{
	"answer me", "what do you think", "can you help", "tell me",
	"回答我", "你觉得", "帮我想想",
}

// ================= 2.5 播报反馈文案 =================
// 文案可通过 AI_MEMO_FEEDBACK_* 环境变量覆盖
const (
	FEEDBACK_CONTEXT_CLEARED  = "context cleared"
	FEEDBACK_GRADE_SAVED      = "grade saved"
	FEEDBACK_GRADE_RANGE      = "grade must be between 0 and 5"
	FEEDBACK_GRADE_NO_TARGET  = "no response to grade"
	FEEDBACK_EMPTY_CONTEXT    = "nothing to reason about yet"
	FEEDBACK_INFERENCE_FAILED = "sorry, I could not get an answer"
)
