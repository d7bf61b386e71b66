package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"ai_memo/store"
)

// ================= 会话编排器 =================
// 单事件循环：唤醒检测 → 语音采集 → 意图分发 → (可选)推理 → (可选)播报 → 回到唤醒检测。
// 所有外部回调折算成事件进同一个 channel，循环内串行处理，
// 麦克风类资源（唤醒检测器/识别引擎）由循环保证独占：先停一个再起另一个。
// 任何阶段失败都显式转回 WakeListening，不允许卡死在中间态。

type Orchestrator struct {
	wake WakeDetector
	asr  SpeechEngine
	tts  SpeechSynthesizer
	llm  LLMService
	db   NoteStore
	cfg  *Config

	events chan sessionEvent

	mu    sync.Mutex
	state SessionState

	seg          *Segmenter
	captureTimer *time.Timer

	// 状态指示：每次状态变更回调一次（默认只打日志，可接 LED 等）
	onStateChange func(SessionState)
}

func NewOrchestrator(wake WakeDetector, asr SpeechEngine, tts SpeechSynthesizer, llm LLMService, db NoteStore, cfg *Config) *Orchestrator {
	return &Orchestrator{
		wake:   wake,
		asr:    asr,
		tts:    tts,
		llm:    llm,
		db:     db,
		cfg:    cfg,
		events: make(chan sessionEvent, 8),
		state:  StateWakeListening,
	}
}

// State 当前会话状态（只读，给状态指示/测试用）。
func (o *Orchestrator) State() SessionState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s SessionState) {
	o.mu.Lock()
	prev := o.state
	o.state = s
	cb := o.onStateChange
	o.mu.Unlock()

	if prev != s {
		log.Printf("🔁 [状态] %s -> %s", prev, s)
		if cb != nil {
			cb(s)
		}
	}
}

// Run 启动事件循环，阻塞直到 ctx 取消。
func (o *Orchestrator) Run(ctx context.Context) error {
	o.resumeWake()

	for {
		select {
		case <-ctx.Done():
			o.shutdown()
			return ctx.Err()
		case ev := <-o.events:
			o.handle(ctx, ev)
		}
	}
}

func (o *Orchestrator) handle(ctx context.Context, ev sessionEvent) {
	switch ev.kind {
	case evWakeDetected:
		if o.State() != StateWakeListening {
			// 停止后才送达的迟到回调，丢弃
			return
		}
		o.wake.Stop()
		if o.cfg.SettleDelay > 0 {
			time.Sleep(o.cfg.SettleDelay)
		}
		o.beginCapture()

	case evUtteranceFinal:
		if o.State() != StateCapturing {
			return
		}
		o.endCapture()
		o.handleUtterance(ctx, ev.text)

	case evCaptureFailed:
		if o.State() != StateCapturing {
			return
		}
		log.Printf("⚠️ [采集] 识别异常，丢弃本次语音: %v", ev.err)
		o.endCapture()
		o.resumeWake()

	case evCaptureTimeout:
		if o.State() != StateCapturing {
			return
		}
		log.Printf("😴 [采集] 超时无有效语音，放弃本次采集")
		o.endCapture()
		o.resumeWake()

	case evInferenceDone:
		if o.State() != StateThinking {
			return
		}
		it := &store.Interaction{
			ID:           uuid.NewString(),
			SystemPrompt: ev.interaction.systemPrompt,
			UserPrompt:   ev.interaction.userPrompt,
			Response:     ev.interaction.response,
			CreatedAt:    time.Now().UnixMilli(),
			LatencyMs:    ev.interaction.latencyMs,
			ModelID:      ev.interaction.modelID,
			Temperature:  ev.interaction.temperature,
			MaxTokens:    ev.interaction.maxTokens,
		}
		if err := o.db.SaveInteraction(it); err != nil {
			log.Printf("❌ [存储] 写入问答记录失败: %v", err)
		}
		o.speakResponse(ctx, ev.interaction.response)

	case evInferenceFailed:
		if o.State() != StateThinking {
			return
		}
		log.Printf("❌ [推理] LLM 请求失败: %v", ev.err)
		o.say(ctx, o.cfg.Feedback.InferenceFailed)
		o.resumeWake()

	case evPlaybackDone:
		if o.State() != StateSpeaking {
			return
		}
		o.resumeWake()
	}
}

// beginCapture 启动识别引擎与新的分段会话。分段器一次性使用，每条语音新建。
func (o *Orchestrator) beginCapture() {
	seg := NewSegmenter(o.cfg.PauseThreshold, o.cfg.PollInterval,
		func(text string) {
			log.Printf("👂 [采集] 增量: %s", text)
		},
		func(text string) {
			o.events <- sessionEvent{kind: evUtteranceFinal, text: text}
		},
	)

	cb := RecognitionCallbacks{
		OnPartial: seg.PushPartial,
		OnFinal:   seg.PushFinal,
		OnError: func(code int) {
			// 终止性错误：先取消分段轮询，防止残留缓冲在重启后误定稿
			seg.Stop()
			o.events <- sessionEvent{kind: evCaptureFailed, err: fmt.Errorf("识别引擎错误 code=%d", code)}
		},
	}
	if err := o.asr.Start(cb); err != nil {
		log.Printf("❌ [采集] 识别引擎启动失败: %v", err)
		seg.Stop()
		o.resumeWake()
		return
	}

	o.seg = seg
	o.captureTimer = time.AfterFunc(o.cfg.CaptureIdleTimeout, func() {
		o.events <- sessionEvent{kind: evCaptureTimeout}
	})
	seg.Start()
	o.setState(StateCapturing)
	log.Printf("🎙️ [采集] 开始录入，说完停顿 %s 自动定稿", o.cfg.PauseThreshold)
}

// endCapture 释放识别引擎与采集期资源。幂等。
func (o *Orchestrator) endCapture() {
	o.asr.Stop()
	if o.captureTimer != nil {
		o.captureTimer.Stop()
		o.captureTimer = nil
	}
	if o.seg != nil {
		o.seg.Stop()
		o.seg = nil
	}
}

// handleUtterance 定稿语音的分发：持久化 → 分类 → 按意图处理。
func (o *Orchestrator) handleUtterance(ctx context.Context, text string) {
	log.Printf("✅ [定稿] %s", text)

	u := &store.Utterance{
		ID:        uuid.NewString(),
		Text:      text,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := o.db.SaveUtterance(u); err != nil {
		log.Printf("❌ [存储] 写入语音记录失败: %v", err)
	}

	intent := classify(text, o.cfg.ClearPhrases, o.cfg.QueryPhrases)
	log.Printf("🧭 [意图] %s", intent.Kind)

	switch intent.Kind {
	case IntentClearContext:
		if err := o.db.MarkAllExcluded(); err != nil {
			log.Printf("❌ [存储] 清除上下文失败: %v", err)
		}
		o.say(ctx, o.cfg.Feedback.ContextCleared)
		o.resumeWake()

	case IntentGrade:
		o.handleGrade(ctx, intent.Grade)
		o.resumeWake()

	case IntentQuery:
		o.beginInference(ctx)

	case IntentPlainLog:
		o.resumeWake()
	}
}

// handleGrade 打分指令恒指向“当下最近”的一次往返。
func (o *Orchestrator) handleGrade(ctx context.Context, grade int) {
	if grade < 0 || grade > 5 {
		o.say(ctx, o.cfg.Feedback.GradeRange)
		return
	}
	latest, err := o.db.MostRecentInteraction()
	if err != nil {
		log.Printf("❌ [存储] 查询最近往返失败: %v", err)
		o.say(ctx, o.cfg.Feedback.GradeNoTarget)
		return
	}
	if latest == nil {
		o.say(ctx, o.cfg.Feedback.GradeNoTarget)
		return
	}
	if err := o.db.UpdateGrade(latest.ID, grade); err != nil {
		log.Printf("❌ [存储] 写入评分失败: %v", err)
		o.say(ctx, o.cfg.Feedback.GradeNoTarget)
		return
	}
	o.say(ctx, o.cfg.Feedback.GradeSaved)
}

// beginInference 组装上下文并发起 LLM 推理。空上下文直接播报回退语，不调模型。
func (o *Orchestrator) beginInference(ctx context.Context) {
	prompt, err := buildContext(o.db, o.cfg.ContextWindow)
	if err != nil {
		log.Printf("❌ [推理] %v", err)
		o.say(ctx, o.cfg.Feedback.InferenceFailed)
		o.resumeWake()
		return
	}
	if prompt == "" {
		o.say(ctx, o.cfg.Feedback.EmptyContext)
		o.resumeWake()
		return
	}

	o.setState(StateThinking)
	log.Printf("🧠 [推理] 请求 LLM 思考中...")

	go func() {
		start := time.Now()
		resp, err := o.llm.GenerateResponse(ctx, o.cfg.SystemPrompt, prompt, o.cfg.Temperature, o.cfg.MaxTokens)
		if err != nil {
			o.events <- sessionEvent{kind: evInferenceFailed, err: err}
			return
		}
		logCost("LLM推理", start)
		o.events <- sessionEvent{
			kind: evInferenceDone,
			interaction: &pendingInteraction{
				systemPrompt: o.cfg.SystemPrompt,
				userPrompt:   prompt,
				response:     resp,
				latencyMs:    time.Since(start).Milliseconds(),
				modelID:      o.cfg.LLMModel,
				temperature:  o.cfg.Temperature,
				maxTokens:    o.cfg.MaxTokens,
			},
		}
	}()
}

// speakResponse 播报模型回复；播放完成（或引擎失败）后回到唤醒监听。
func (o *Orchestrator) speakResponse(ctx context.Context, text string) {
	o.setState(StateSpeaking)
	go func() {
		start := time.Now()
		if err := o.tts.Speak(ctx, text); err != nil {
			log.Printf("⚠️ [播报] 合成/播放失败: %v", err)
		} else {
			logCost("TTS播放全流程", start)
		}
		o.events <- sessionEvent{kind: evPlaybackDone}
	}()
}

// say 阶段内的即时反馈播报（确认音/纠错提示），同步等播完。
// 失败只记日志：反馈播不出来不应该把会话卡住。
func (o *Orchestrator) say(ctx context.Context, text string) {
	if err := o.tts.Speak(ctx, text); err != nil {
		log.Printf("⚠️ [播报] 反馈语播放失败: %v", err)
	}
}

// resumeWake 公共回归点：重新武装唤醒检测器。
func (o *Orchestrator) resumeWake() {
	o.setState(StateWakeListening)
	if err := o.wake.Start(func(keyword string) {
		log.Printf("🚀 [唤醒] 命中关键词: %s", keyword)
		o.events <- sessionEvent{kind: evWakeDetected}
	}); err != nil {
		// 降级：唤醒不可用，停在 WakeListening，等下一次人工干预
		log.Printf("❌ [唤醒] 检测器启动失败: %v", err)
	}
}

func (o *Orchestrator) shutdown() {
	o.endCapture()
	o.wake.Stop()
	o.tts.Stop()
}
