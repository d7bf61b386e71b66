package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ================= 云端语音合成 =================
// DashScope cosyvoice，duplex websocket：下行二进制 PCM 直接灌进 aplay。
// Speak 同步语义：整段播放完成（或引擎失败）才返回，上层状态机依赖这一点。
// 这里不做打断——播报要么播完要么失败，打断逻辑不在本设计内。

type CloudSpeaker struct {
	cfg *Config

	mu      sync.Mutex
	conn    *websocket.Conn
	player  *pcmPlayer
	stopped bool
}

func NewCloudSpeaker(cfg *Config) *CloudSpeaker {
	return &CloudSpeaker{cfg: cfg}
}

func (s *CloudSpeaker) Initialize(ctx context.Context) error {
	if strings.TrimSpace(s.cfg.DashAPIKey) == "" {
		return errors.New("TTS 未配置 API Key")
	}
	return nil
}

// Speak 合成并播放一段文本，阻塞直到播放完成。
func (s *CloudSpeaker) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	dialer := websocket.Dialer{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
	headers := http.Header{}
	headers.Add("Authorization", "Bearer "+s.cfg.DashAPIKey)
	conn, _, err := dialer.Dial(s.cfg.TTSWsURL, headers)
	if err != nil {
		return fmt.Errorf("TTS 连接失败: %w", err)
	}

	player, err := newPCMPlayer(s.cfg.AplayDevice, s.cfg.TTSSampleRate)
	if err != nil {
		conn.Close()
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.player = player
	s.stopped = false
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
			s.player = nil
		}
		s.mu.Unlock()
		conn.Close()
	}()

	taskID := uuid.NewString()
	taskStarted := make(chan struct{}, 1)
	recvDone := make(chan error, 1)
	ttsStart := time.Now()
	firstPacket := false

	go func() {
		for {
			msgType, msg, err := conn.ReadMessage()
			if err != nil {
				recvDone <- err
				return
			}
			if msgType == websocket.BinaryMessage {
				if !firstPacket {
					firstPacket = true
					logCost("TTS首包延迟(TTFB)", ttsStart)
				}
				if err := player.Write(msg); err != nil {
					recvDone <- err
					return
				}
				continue
			}
			var resp map[string]interface{}
			if err := json.Unmarshal(msg, &resp); err != nil {
				continue
			}
			header, _ := resp["header"].(map[string]interface{})
			switch header["event"] {
			case "task-started":
				select {
				case taskStarted <- struct{}{}:
				default:
				}
			case "task-finished":
				recvDone <- nil
				return
			case "task-failed":
				recvDone <- fmt.Errorf("TTS task-failed: %v", header["error_message"])
				return
			}
		}
	}()

	if err := conn.WriteJSON(map[string]interface{}{
		"header": map[string]interface{}{"task_id": taskID, "action": "run-task", "streaming": "duplex"},
		"payload": map[string]interface{}{
			"task_group": "audio", "task": "tts", "function": "SpeechSynthesizer",
			"model": s.cfg.TTSModel,
			"parameters": map[string]interface{}{
				"text_type": "PlainText", "voice": s.cfg.TTSVoice, "format": "pcm",
				"sample_rate": s.cfg.TTSSampleRate, "volume": s.cfg.TTSVolume, "enable_ssml": false,
			},
			"input": map[string]interface{}{},
		},
	}); err != nil {
		player.Kill()
		return fmt.Errorf("TTS run-task 失败: %w", err)
	}

	select {
	case <-taskStarted:
	case <-time.After(5 * time.Second):
		player.Kill()
		return errors.New("TTS 等待 task-started 超时")
	case <-ctx.Done():
		player.Kill()
		return ctx.Err()
	}

	if err := conn.WriteJSON(map[string]interface{}{
		"header":  map[string]interface{}{"task_id": taskID, "action": "continue-task", "streaming": "duplex"},
		"payload": map[string]interface{}{"input": map[string]interface{}{"text": text}},
	}); err != nil {
		player.Kill()
		return fmt.Errorf("TTS continue-task 失败: %w", err)
	}
	if err := conn.WriteJSON(map[string]interface{}{
		"header":  map[string]interface{}{"task_id": taskID, "action": "finish-task", "streaming": "duplex"},
		"payload": map[string]interface{}{"input": map[string]interface{}{}},
	}); err != nil {
		player.Kill()
		return fmt.Errorf("TTS finish-task 失败: %w", err)
	}

	select {
	case err := <-recvDone:
		if err != nil {
			player.Kill()
			if s.wasStopped() {
				return nil
			}
			return fmt.Errorf("TTS 接收失败: %w", err)
		}
	case <-ctx.Done():
		player.Kill()
		return ctx.Err()
	}

	// 音频已全部送入 aplay，等物理播放结束
	if err := player.Finish(); err != nil && !s.wasStopped() {
		log.Printf("⚠️ [TTS] aplay 退出异常: %v", err)
	}
	return nil
}

// Stop 中止当前播放。幂等，没有在播时为 no-op。
func (s *CloudSpeaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.player != nil {
		s.player.Kill()
		s.player = nil
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

func (s *CloudSpeaker) wasStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}
