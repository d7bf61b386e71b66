package main

import (
	"log"
	"time"
)

func logCost(stage string, start time.Time) {
	log.Printf("⏱️ [%s] 耗时: %d ms", stage, time.Since(start).Milliseconds())
}
