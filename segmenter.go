package main

import (
	"strings"
	"sync"
	"time"
)

// ================= 语音分段器 =================
// 把识别引擎的增量事件流切成一条定稿语音：
// - 任何 partial/final 事件都会刷新 lastEvent；
// - 定时轮询，静音超过 pause 且缓冲非空时定稿，一次会话只定稿一次；
// - 纯空白缓冲永远不定稿；
// - 识别引擎终止性错误时必须 Stop，取消轮询，本次会话不产出任何内容。
// 定稿/Stop 之后本实例作废，下一条语音由调用方重新 NewSegmenter。

type Segmenter struct {
	pause time.Duration
	poll  time.Duration

	onPartial func(text string)
	onFinal   func(text string)

	mu        sync.Mutex
	segments  []string
	lastEvent time.Time
	started   bool
	done      bool
	stopCh    chan struct{}
}

func NewSegmenter(pause, poll time.Duration, onPartial, onFinal func(string)) *Segmenter {
	return &Segmenter{
		pause:     pause,
		poll:      poll,
		onPartial: onPartial,
		onFinal:   onFinal,
		stopCh:    make(chan struct{}),
	}
}

// Start 启动静音轮询。重复调用和定稿后的调用都是 no-op。
func (s *Segmenter) Start() {
	s.mu.Lock()
	if s.started || s.done {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.lastEvent = time.Now()
	s.mu.Unlock()

	go s.pollLoop()
}

func (s *Segmenter) pollLoop() {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if text, ok := s.tryFinalize(); ok {
				s.onFinal(text)
				return
			}
		}
	}
}

// tryFinalize 静音判定。返回 (定稿文本, 是否定稿)。
func (s *Segmenter) tryFinalize() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return "", false
	}
	if time.Since(s.lastEvent) < s.pause {
		return "", false
	}
	text := strings.TrimSpace(strings.Join(s.segments, " "))
	if text == "" {
		// 空白缓冲：继续等，不定稿
		return "", false
	}
	s.done = true
	close(s.stopCh)
	return text, true
}

// PushPartial 引擎增量结果：刷新静音计时并透传给调用方。
func (s *Segmenter) PushPartial(text string) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.lastEvent = time.Now()
	cb := s.onPartial
	s.mu.Unlock()

	if cb != nil {
		cb(text)
	}
}

// PushFinal 引擎确认段：追加进缓冲（空格分隔）并刷新静音计时。
// 连续的 final 回调每次都会重置停顿计时。
func (s *Segmenter) PushFinal(segment string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.lastEvent = time.Now()
	if strings.TrimSpace(segment) != "" {
		s.segments = append(s.segments, segment)
	}
}

// Stop 终止本次分段会话：取消轮询，不定稿已有缓冲。幂等。
func (s *Segmenter) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.done = true
	close(s.stopCh)
}
