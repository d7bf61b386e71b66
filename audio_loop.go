package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strconv"
	"sync"

	"ai_memo/aec"
	"ai_memo/vad"
)

// ================= 麦克风前端 =================
// 全局只有一路 arecord 采集循环：10 通道原始帧 → AEC → 单声道 256 点帧。
// 帧只会投递给 MicMux 里“当前被武装”的那一个消费者（唤醒检测器或识别引擎），
// 这就是“麦克风独占”的物理实现：armed 槽位至多一个，换人先 Detach 再 Attach。

// frameSink 单声道帧消费者。speech 是能量 VAD 的判定结果，
// 消费者可以用它省掉静音段（例如识别引擎少传无效音频）。
type frameSink interface {
	AcceptFrames(frame []int16, speech bool)
}

type MicMux struct {
	mu     sync.RWMutex
	active frameSink
}

func NewMicMux() *MicMux {
	return &MicMux{}
}

// Attach 武装一个消费者，替换掉之前的（调用方负责先停旧的）。
func (m *MicMux) Attach(s frameSink) {
	m.mu.Lock()
	m.active = s
	m.mu.Unlock()
}

// Detach 解除武装。只有当前就是 s 时才清空，重复调用安全。
func (m *MicMux) Detach(s frameSink) {
	m.mu.Lock()
	if m.active == s {
		m.active = nil
	}
	m.mu.Unlock()
}

func (m *MicMux) deliver(frame []int16, speech bool) {
	m.mu.RLock()
	sink := m.active
	m.mu.RUnlock()
	if sink != nil {
		sink.AcceptFrames(frame, speech)
	}
}

// micLoop 录音主循环，阻塞运行直到 ctx 取消或录音管道断开。
func micLoop(ctx context.Context, cfg *Config, mux *MicMux, aecProc *aec.Processor, vadEng *vad.Engine) error {
	if cfg.ArecordChannels != aec.InputTotalCh {
		return fmt.Errorf("录音通道数 %d 与 AEC 输入通道数 %d 不一致", cfg.ArecordChannels, aec.InputTotalCh)
	}

	cmd := exec.CommandContext(ctx, "arecord",
		"-D", cfg.ArecordDevice,
		"-c", strconv.Itoa(cfg.ArecordChannels),
		"-r", strconv.Itoa(cfg.ArecordRate),
		"-f", "S16_LE",
		"-t", "raw",
		"--period-size="+strconv.Itoa(cfg.ArecordPeriodSize),
		"--buffer-size="+strconv.Itoa(cfg.ArecordBufferSize),
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("获取录音管道失败: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("启动录音失败: %w", err)
	}
	log.Println("🎤 麦克风已开启...")

	readBuf := make([]byte, aec.InputSize*2)
	rawInt16 := make([]int16, aec.InputSize)
	fallbackMono := make([]int16, aec.FrameSize)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := io.ReadFull(stdout, readBuf); err != nil {
			return fmt.Errorf("录音管道断开: %w", err)
		}
		for i := 0; i < len(rawInt16); i++ {
			rawInt16[i] = int16(binary.LittleEndian.Uint16(readBuf[i*2 : i*2+2]))
		}

		clean, _ := aecProc.Process(rawInt16)
		if clean == nil {
			// AEC 异常回退：取第 0 通道直通，避免整段音频被丢弃
			for i := 0; i < aec.FrameSize; i++ {
				fallbackMono[i] = rawInt16[i*aec.InputTotalCh+0]
			}
			clean = fallbackMono
		}

		frame := make([]int16, len(clean))
		copy(frame, clean)
		mux.deliver(frame, vadEng.IsSpeech(frame))
	}
}
