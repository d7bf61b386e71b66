package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"
)

// ================= 本地唤醒词检测 =================
// sherpa-onnx KeywordSpotter，全离线跑在板端，不耗云端额度。
// 模型目录约定四件套：encoder.onnx / decoder.onnx / joiner.onnx / tokens.txt，
// 关键词表默认取同目录 keywords.txt（可用 AI_MEMO_KWS_KEYWORDS_FILE 覆盖）。
// Start/Stop 只是在 MicMux 上武装/解除，喂流状态保留，重启零成本。

type SherpaWake struct {
	cfg *Config
	mux *MicMux

	mu      sync.Mutex
	spotter *sherpa.KeywordSpotter
	stream  *sherpa.OnlineStream
	armed   bool
	onWake  func(keyword string)
}

func NewSherpaWake(cfg *Config, mux *MicMux) *SherpaWake {
	return &SherpaWake{cfg: cfg, mux: mux}
}

func (w *SherpaWake) Initialize() error {
	dir := w.cfg.KwsModelDir
	for _, f := range []string{"encoder.onnx", "decoder.onnx", "joiner.onnx", "tokens.txt"} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			return fmt.Errorf("唤醒模型文件缺失 %s: %w", f, err)
		}
	}
	keywordsFile := w.cfg.KwsKeywordsFile
	if keywordsFile == "" {
		keywordsFile = filepath.Join(dir, "keywords.txt")
	}

	config := sherpa.KeywordSpotterConfig{}
	config.FeatConfig = sherpa.FeatureConfig{SampleRate: w.cfg.ASRSampleRate, FeatureDim: 80}
	config.ModelConfig.Transducer.Encoder = filepath.Join(dir, "encoder.onnx")
	config.ModelConfig.Transducer.Decoder = filepath.Join(dir, "decoder.onnx")
	config.ModelConfig.Transducer.Joiner = filepath.Join(dir, "joiner.onnx")
	config.ModelConfig.Tokens = filepath.Join(dir, "tokens.txt")
	config.ModelConfig.NumThreads = 1
	config.ModelConfig.Provider = "cpu"
	config.KeywordsFile = keywordsFile
	config.MaxActivePaths = 4
	config.KeywordsScore = 1.0
	config.KeywordsThreshold = 0.25

	spotter := sherpa.NewKeywordSpotter(&config)
	if spotter == nil {
		return fmt.Errorf("唤醒检测器初始化失败（检查模型目录 %s）", dir)
	}

	w.mu.Lock()
	w.spotter = spotter
	w.stream = sherpa.NewKeywordStream(spotter)
	w.mu.Unlock()
	return nil
}

// Start 武装唤醒监听。重复 Start 安全。
func (w *SherpaWake) Start(onWake func(keyword string)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.spotter == nil {
		return fmt.Errorf("唤醒检测器未初始化")
	}
	w.onWake = onWake
	if w.armed {
		return nil
	}
	w.armed = true
	w.mux.Attach(w)
	return nil
}

// Stop 解除武装。幂等，未启动时为 no-op。
func (w *SherpaWake) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.armed {
		return
	}
	w.armed = false
	w.mux.Detach(w)
}

func (w *SherpaWake) Cleanup() {
	w.Stop()
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stream != nil {
		sherpa.DeleteOnlineStream(w.stream)
		w.stream = nil
	}
	if w.spotter != nil {
		sherpa.DeleteKeywordSpotter(w.spotter)
		w.spotter = nil
	}
}

// AcceptFrames 麦克风帧入口（micLoop 协程调用）。
func (w *SherpaWake) AcceptFrames(frame []int16, speech bool) {
	w.mu.Lock()
	if !w.armed || w.spotter == nil {
		w.mu.Unlock()
		return
	}
	spotter := w.spotter
	stream := w.stream
	onWake := w.onWake
	w.mu.Unlock()

	samples := make([]float32, len(frame))
	for i, v := range frame {
		samples[i] = float32(v) / 32768.0
	}
	stream.AcceptWaveform(w.cfg.ASRSampleRate, samples)

	for spotter.IsReady(stream) {
		spotter.Decode(stream)
		result := spotter.GetResult(stream)
		if result.Keyword == "" {
			continue
		}
		// 命中一次就复位解码状态，避免同一声唤醒反复触发
		spotter.Reset(stream)
		if onWake != nil {
			go onWake(result.Keyword)
		}
		return
	}
}
