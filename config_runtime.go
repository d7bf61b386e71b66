package main

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ================= 配置加载（最小改动方案） =================
// 目标：新设备一键部署时，不需要改代码/重编译，只需要下发一个 .env 配置文件。
// 约定：
// - 环境变量优先级最高；
// - 若未显式设置环境变量，则尝试加载 env 文件（AI_MEMO_ENV_FILE 或默认路径）；
// - 触发词等“列表型”配置放 triggers.yaml（AI_MEMO_TRIGGERS_FILE），env 表达不便。

type FeedbackTexts struct {
	ContextCleared  string
	GradeSaved      string
	GradeRange      string
	GradeNoTarget   string
	EmptyContext    string
	InferenceFailed string
}

type Config struct {
	// DashScope
	DashAPIKey string

	// 云端接口
	ASRWsURL string
	TTSWsURL string
	LLMURL   string

	// 模型配置
	LLMModel     string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string

	ASRModel      string
	ASRSampleRate int

	TTSModel      string
	TTSVoice      string
	TTSSampleRate int
	TTSVolume     int

	// 本地唤醒（sherpa-onnx KeywordSpotter）
	KwsModelDir     string
	KwsKeywordsFile string

	// 存储
	StorePath string

	// 录音/播放参数
	ArecordDevice     string
	ArecordChannels   int
	ArecordRate       int
	ArecordPeriodSize int
	ArecordBufferSize int
	AplayDevice       string

	// 会话参数
	PauseThreshold     time.Duration
	PollInterval       time.Duration
	SettleDelay        time.Duration
	CaptureIdleTimeout time.Duration
	ContextWindow      int

	// 触发词
	ClearPhrases []string
	QueryPhrases []string

	Feedback FeedbackTexts
}

func loadRuntimeConfig() (*Config, error) {
	loadedEnv, err := loadEnvFileFromCandidates()
	if err != nil {
		log.Printf("⚠️ [配置] 读取 env 文件失败: %v", err)
	} else if loadedEnv != "" {
		log.Printf("🔧 [配置] 已加载 env 文件: %s", loadedEnv)
	}

	cfg := &Config{
		ASRWsURL: ASR_WS_URL,
		TTSWsURL: TTS_WS_URL,
		LLMURL:   LLM_URL,

		LLMModel:     "qwen-turbo-latest",
		Temperature:  0.7,
		MaxTokens:    512,
		SystemPrompt: "You are a hands-free note assistant. Answer briefly, based only on the user's recent notes.",

		ASRModel:      "paraformer-realtime-v2",
		ASRSampleRate: 16000,

		TTSModel:      "cosyvoice-v1",
		TTSVoice:      "longwan",
		TTSSampleRate: 22050,
		TTSVolume:     50,

		KwsModelDir:     KWS_MODEL_DIR,
		KwsKeywordsFile: "",

		StorePath: STORE_PATH,

		ArecordDevice:     "hw:2,0",
		ArecordChannels:   10,
		ArecordRate:       16000,
		ArecordPeriodSize: 256,
		ArecordBufferSize: 16384,
		AplayDevice:       "default",

		PauseThreshold:     PAUSE_THRESHOLD,
		PollInterval:       POLL_INTERVAL,
		SettleDelay:        CAPTURE_SETTLE_DELAY,
		CaptureIdleTimeout: CAPTURE_IDLE_TIMEOUT,
		ContextWindow:      CONTEXT_WINDOW,

		ClearPhrases: CLEAR_CONTEXT_PHRASES,
		QueryPhrases: QUERY_TRIGGER_PHRASES,

		Feedback: FeedbackTexts{
			ContextCleared:  FEEDBACK_CONTEXT_CLEARED,
			GradeSaved:      FEEDBACK_GRADE_SAVED,
			GradeRange:      FEEDBACK_GRADE_RANGE,
			GradeNoTarget:   FEEDBACK_GRADE_NO_TARGET,
			EmptyContext:    FEEDBACK_EMPTY_CONTEXT,
			InferenceFailed: FEEDBACK_INFERENCE_FAILED,
		},
	}

	// API Key：支持两种变量名，方便迁移
	cfg.DashAPIKey = strings.TrimSpace(os.Getenv("AI_MEMO_DASH_API_KEY"))
	if cfg.DashAPIKey == "" {
		cfg.DashAPIKey = strings.TrimSpace(os.Getenv("DASHSCOPE_API_KEY"))
	}
	if cfg.DashAPIKey == "" {
		cfg.DashAPIKey = strings.TrimSpace(DASH_API_KEY)
	}
	if cfg.DashAPIKey == "" {
		return nil, errors.New("未配置 DashScope API Key：请在 env 文件中设置 AI_MEMO_DASH_API_KEY（参考 deploy/ai_memo.env.example）")
	}

	cfg.ASRWsURL = getEnv("AI_MEMO_ASR_WS_URL", cfg.ASRWsURL)
	cfg.TTSWsURL = getEnv("AI_MEMO_TTS_WS_URL", cfg.TTSWsURL)
	cfg.LLMURL = getEnv("AI_MEMO_LLM_URL", cfg.LLMURL)

	cfg.LLMModel = getEnv("AI_MEMO_LLM_MODEL", cfg.LLMModel)
	cfg.Temperature = getEnvFloat("AI_MEMO_LLM_TEMPERATURE", cfg.Temperature)
	cfg.MaxTokens = getEnvInt("AI_MEMO_LLM_MAX_TOKENS", cfg.MaxTokens)
	cfg.SystemPrompt = getEnv("AI_MEMO_SYSTEM_PROMPT", cfg.SystemPrompt)

	cfg.ASRModel = getEnv("AI_MEMO_ASR_MODEL", cfg.ASRModel)
	cfg.ASRSampleRate = getEnvInt("AI_MEMO_ASR_SAMPLE_RATE", cfg.ASRSampleRate)

	cfg.TTSModel = getEnv("AI_MEMO_TTS_MODEL", cfg.TTSModel)
	cfg.TTSVoice = getEnv("AI_MEMO_TTS_VOICE", cfg.TTSVoice)
	cfg.TTSSampleRate = getEnvInt("AI_MEMO_TTS_SAMPLE_RATE", cfg.TTSSampleRate)
	cfg.TTSVolume = getEnvInt("AI_MEMO_TTS_VOLUME", cfg.TTSVolume)

	cfg.KwsModelDir = getEnv("AI_MEMO_KWS_MODEL_DIR", cfg.KwsModelDir)
	cfg.KwsKeywordsFile = getEnv("AI_MEMO_KWS_KEYWORDS_FILE", cfg.KwsKeywordsFile)

	cfg.StorePath = getEnv("AI_MEMO_STORE_PATH", cfg.StorePath)

	cfg.ArecordDevice = getEnv("AI_MEMO_ARECORD_DEVICE", cfg.ArecordDevice)
	cfg.ArecordChannels = getEnvInt("AI_MEMO_ARECORD_CHANNELS", cfg.ArecordChannels)
	cfg.ArecordRate = getEnvInt("AI_MEMO_ARECORD_RATE", cfg.ArecordRate)
	cfg.ArecordPeriodSize = getEnvInt("AI_MEMO_ARECORD_PERIOD_SIZE", cfg.ArecordPeriodSize)
	cfg.ArecordBufferSize = getEnvInt("AI_MEMO_ARECORD_BUFFER_SIZE", cfg.ArecordBufferSize)
	cfg.AplayDevice = getEnv("AI_MEMO_APLAY_DEVICE", cfg.AplayDevice)

	cfg.PauseThreshold = getEnvDuration("AI_MEMO_PAUSE_THRESHOLD", cfg.PauseThreshold)
	cfg.PollInterval = getEnvDuration("AI_MEMO_POLL_INTERVAL", cfg.PollInterval)
	cfg.SettleDelay = getEnvDuration("AI_MEMO_SETTLE_DELAY", cfg.SettleDelay)
	cfg.CaptureIdleTimeout = getEnvDuration("AI_MEMO_CAPTURE_IDLE_TIMEOUT", cfg.CaptureIdleTimeout)
	cfg.ContextWindow = getEnvInt("AI_MEMO_CONTEXT_WINDOW", cfg.ContextWindow)

	cfg.Feedback.ContextCleared = getEnv("AI_MEMO_FEEDBACK_CONTEXT_CLEARED", cfg.Feedback.ContextCleared)
	cfg.Feedback.GradeSaved = getEnv("AI_MEMO_FEEDBACK_GRADE_SAVED", cfg.Feedback.GradeSaved)
	cfg.Feedback.GradeRange = getEnv("AI_MEMO_FEEDBACK_GRADE_RANGE", cfg.Feedback.GradeRange)
	cfg.Feedback.GradeNoTarget = getEnv("AI_MEMO_FEEDBACK_GRADE_NO_TARGET", cfg.Feedback.GradeNoTarget)
	cfg.Feedback.EmptyContext = getEnv("AI_MEMO_FEEDBACK_EMPTY_CONTEXT", cfg.Feedback.EmptyContext)
	cfg.Feedback.InferenceFailed = getEnv("AI_MEMO_FEEDBACK_INFERENCE_FAILED", cfg.Feedback.InferenceFailed)

	if s := strings.TrimSpace(os.Getenv("AI_MEMO_CLEAR_PHRASES")); s != "" {
		if words := splitList(s); len(words) > 0 {
			cfg.ClearPhrases = words
		}
	}
	if s := strings.TrimSpace(os.Getenv("AI_MEMO_QUERY_PHRASES")); s != "" {
		if words := splitList(s); len(words) > 0 {
			cfg.QueryPhrases = words
		}
	}

	if err := cfg.loadTriggersFile(); err != nil {
		return nil, err
	}

	log.Printf("🔧 [配置] LLM(model=%s temp=%.1f) | ASR(model=%s) | TTS(model=%s voice=%s) | store=%s | pause=%s poll=%s",
		cfg.LLMModel, cfg.Temperature, cfg.ASRModel, cfg.TTSModel, cfg.TTSVoice, cfg.StorePath, cfg.PauseThreshold, cfg.PollInterval)
	return cfg, nil
}

// triggersFile 触发词配置文件结构（YAML）。
// 空字段保留内置默认，避免“下发了半份配置把触发词清空”的事故。
type triggersFile struct {
	ClearContextPhrases []string `yaml:"clear_context_phrases"`
	QueryTriggerPhrases []string `yaml:"query_trigger_phrases"`
}

func (c *Config) loadTriggersFile() error {
	path := strings.TrimSpace(os.Getenv("AI_MEMO_TRIGGERS_FILE"))
	if path == "" {
		for _, p := range []string{"/userdata/AI_MEMO/triggers.yaml", "./triggers.yaml"} {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取触发词配置失败: %w", err)
	}
	var tf triggersFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return fmt.Errorf("解析触发词配置失败 %s: %w", path, err)
	}
	if len(tf.ClearContextPhrases) > 0 {
		c.ClearPhrases = tf.ClearContextPhrases
	}
	if len(tf.QueryTriggerPhrases) > 0 {
		c.QueryPhrases = tf.QueryTriggerPhrases
	}
	log.Printf("🔧 [配置] 已加载触发词文件: %s (clear=%d query=%d)", path, len(c.ClearPhrases), len(c.QueryPhrases))
	return nil
}

func loadEnvFileFromCandidates() (string, error) {
	if p := strings.TrimSpace(os.Getenv("AI_MEMO_ENV_FILE")); p != "" {
		if err := loadEnvFile(p); err != nil {
			return "", err
		}
		return p, nil
	}

	candidates := []string{
		"/userdata/AI_MEMO/ai_memo.env",
		"./ai_memo.env",
	}
	for _, p := range candidates {
		if err := loadEnvFile(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return "", err
		}
		return p, nil
	}
	return "", nil
}

// loadEnvFile 读取 KEY=VALUE 配置并写入到进程环境变量（仅在对应 key 未设置时才写入）。
func loadEnvFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		if key == "" {
			continue
		}
		if _, ok := os.LookupEnv(key); ok {
			continue
		}
		val = unquoteEnvValue(val)
		_ = os.Setenv(key, val)
	}
	return scanner.Err()
}

func unquoteEnvValue(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		u, err := strconv.Unquote(v)
		if err == nil {
			return u
		}
		return strings.Trim(v, "\"")
	}
	if len(v) >= 2 && v[0] == '\'' && v[len(v)-1] == '\'' {
		return v[1 : len(v)-1]
	}
	return v
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitList(s string) []string {
	s = strings.ReplaceAll(s, "，", ",")
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
