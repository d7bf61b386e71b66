// Package vad 能量门限 VAD：判定一帧单声道音频里有没有人声。
// 只用来做“该不该往云端送音频”的粗筛，细粒度断句由文本层的分段器负责。
package vad

import (
	"math"
)

const (
	// 能量阈值 (根据 AEC 后的效果调整，通常 500-2000 之间)
	// AEC 处理后，噪音会变小，人声会突显
	DefaultEnergyThreshold = 1000.0
)

type Engine struct {
	threshold float64
}

func NewEngine() *Engine {
	return &Engine{threshold: DefaultEnergyThreshold}
}

// NewEngineWithThreshold 自定义阈值，环境特别吵/特别安静的设备用。
func NewEngineWithThreshold(threshold float64) *Engine {
	if threshold <= 0 {
		threshold = DefaultEnergyThreshold
	}
	return &Engine{threshold: threshold}
}

// IsSpeech 检测一帧是否包含人声。
// input: 单声道 int16 采样（通常 256 点）
func (e *Engine) IsSpeech(data []int16) bool {
	if len(data) == 0 {
		return false
	}

	// 均方根能量 (RMS) + 门限判断；需要更准可以换 WebRTC VAD 的 CGO 方案
	var sumSquares float64
	for _, sample := range data {
		val := float64(sample)
		sumSquares += val * val
	}
	rms := math.Sqrt(sumSquares / float64(len(data)))

	return rms > e.threshold
}
