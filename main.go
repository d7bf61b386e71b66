package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ai_memo/aec"
	"ai_memo/store"
	"ai_memo/vad"
)

func main() {
	log.SetFlags(log.Ltime | log.Lmicroseconds)
	log.Println("=== AI 语音随手记 (本地唤醒 + 云端识别/合成) ===")

	cfg, err := loadRuntimeConfig()
	if err != nil {
		log.Fatalf("❌ [配置] %v", err)
	}

	db, err := store.Open(cfg.StorePath)
	if err != nil {
		log.Fatalf("❌ [存储] 打开数据库失败: %v", err)
	}
	defer db.Close()

	mux := NewMicMux()
	aecProc := aec.NewProcessor()
	vadEng := vad.NewEngine()

	wake := NewSherpaWake(cfg, mux)
	if err := wake.Initialize(); err != nil {
		log.Fatalf("❌ [唤醒] %v", err)
	}
	defer wake.Cleanup()

	asr := NewCloudRecognizer(cfg, mux)
	if err := asr.Initialize(); err != nil {
		log.Fatalf("❌ [ASR] %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tts := NewCloudSpeaker(cfg)
	if err := tts.Initialize(ctx); err != nil {
		log.Fatalf("❌ [TTS] %v", err)
	}

	llm := NewDashLLM(cfg)
	orch := NewOrchestrator(wake, asr, tts, llm, db, cfg)

	go func() {
		if err := micLoop(ctx, cfg, mux, aecProc, vadEng); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("❌ [录音] 采集循环退出: %v", err)
			cancel()
		}
	}()

	if err := orch.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("❌ [会话] 事件循环异常退出: %v", err)
	}
	log.Println("👋 已退出")
}
