package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestUnquoteEnvValue(t *testing.T) {
	cases := []struct{ in, want string }{
		{`plain`, `plain`},
		{`"double quoted"`, `double quoted`},
		{`'single quoted'`, `single quoted`},
		{`"带中文 值"`, `带中文 值`},
		{`  spaced  `, `spaced`},
		{`"`, `"`},
	}
	for _, c := range cases {
		if got := unquoteEnvValue(c.in); got != c.want {
			t.Fatalf("unquoteEnvValue(%q) = %q, 期望 %q", c.in, got, c.want)
		}
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" clear context ,reset context,,清除上下文，重置上下文 ")
	want := []string{"clear context", "reset context", "清除上下文", "重置上下文"}
	if len(got) != len(want) {
		t.Fatalf("分段数不对 got=%v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("第%d项期望%q got=%q", i, want[i], got[i])
		}
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("AI_MEMO_TEST_STR", "  hello  ")
	t.Setenv("AI_MEMO_TEST_INT", "42")
	t.Setenv("AI_MEMO_TEST_BAD_INT", "not-a-number")
	t.Setenv("AI_MEMO_TEST_FLOAT", "0.25")
	t.Setenv("AI_MEMO_TEST_DUR", "1500ms")
	t.Setenv("AI_MEMO_TEST_BAD_DUR", "soon")

	if got := getEnv("AI_MEMO_TEST_STR", "def"); got != "hello" {
		t.Fatalf("getEnv 未去除空白 got=%q", got)
	}
	if got := getEnv("AI_MEMO_TEST_MISSING", "def"); got != "def" {
		t.Fatalf("getEnv 缺省值失效 got=%q", got)
	}
	if got := getEnvInt("AI_MEMO_TEST_INT", 0); got != 42 {
		t.Fatalf("getEnvInt got=%d", got)
	}
	if got := getEnvInt("AI_MEMO_TEST_BAD_INT", 7); got != 7 {
		t.Fatalf("非法整数应退回缺省 got=%d", got)
	}
	if got := getEnvFloat("AI_MEMO_TEST_FLOAT", 0); got != 0.25 {
		t.Fatalf("getEnvFloat got=%v", got)
	}
	if got := getEnvDuration("AI_MEMO_TEST_DUR", 0); got != 1500*time.Millisecond {
		t.Fatalf("getEnvDuration got=%v", got)
	}
	if got := getEnvDuration("AI_MEMO_TEST_BAD_DUR", time.Second); got != time.Second {
		t.Fatalf("非法时长应退回缺省 got=%v", got)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := `
# 注释行
AI_MEMO_TEST_FILE_A=alpha
export AI_MEMO_TEST_FILE_B="bravo value"
AI_MEMO_TEST_FILE_C='charlie'
AI_MEMO_TEST_FILE_PRESET=from-file
无效行没有等号
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入临时文件失败: %v", err)
	}

	// 已有环境变量不被文件覆盖
	t.Setenv("AI_MEMO_TEST_FILE_PRESET", "from-env")
	t.Setenv("AI_MEMO_TEST_FILE_A", "")
	os.Unsetenv("AI_MEMO_TEST_FILE_A")
	t.Setenv("AI_MEMO_TEST_FILE_B", "")
	os.Unsetenv("AI_MEMO_TEST_FILE_B")
	t.Setenv("AI_MEMO_TEST_FILE_C", "")
	os.Unsetenv("AI_MEMO_TEST_FILE_C")

	if err := loadEnvFile(path); err != nil {
		t.Fatalf("加载 env 文件失败: %v", err)
	}
	if got := os.Getenv("AI_MEMO_TEST_FILE_A"); got != "alpha" {
		t.Fatalf("A got=%q", got)
	}
	if got := os.Getenv("AI_MEMO_TEST_FILE_B"); got != "bravo value" {
		t.Fatalf("B 双引号未去除 got=%q", got)
	}
	if got := os.Getenv("AI_MEMO_TEST_FILE_C"); got != "charlie" {
		t.Fatalf("C 单引号未去除 got=%q", got)
	}
	if got := os.Getenv("AI_MEMO_TEST_FILE_PRESET"); got != "from-env" {
		t.Fatalf("文件不应覆盖已有环境变量 got=%q", got)
	}
}

func TestLoadTriggersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "triggers.yaml")
	content := `
clear_context_phrases:
  - wipe it all
query_trigger_phrases:
  - please think
  - 帮我想想
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入触发词文件失败: %v", err)
	}
	t.Setenv("AI_MEMO_TRIGGERS_FILE", path)

	cfg := &Config{
		ClearPhrases: []string{"default clear"},
		QueryPhrases: []string{"default query"},
	}
	if err := cfg.loadTriggersFile(); err != nil {
		t.Fatalf("加载触发词文件失败: %v", err)
	}
	if len(cfg.ClearPhrases) != 1 || cfg.ClearPhrases[0] != "wipe it all" {
		t.Fatalf("清除触发词未覆盖 got=%v", cfg.ClearPhrases)
	}
	if len(cfg.QueryPhrases) != 2 || cfg.QueryPhrases[1] != "帮我想想" {
		t.Fatalf("提问触发词未覆盖 got=%v", cfg.QueryPhrases)
	}
}

func TestLoadTriggersFilePartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "triggers.yaml")
	// 只下发一半配置：另一半保留默认，不允许被清空
	content := "query_trigger_phrases:\n  - only queries\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("写入触发词文件失败: %v", err)
	}
	t.Setenv("AI_MEMO_TRIGGERS_FILE", path)

	cfg := &Config{
		ClearPhrases: []string{"keep me"},
		QueryPhrases: []string{"replace me"},
	}
	if err := cfg.loadTriggersFile(); err != nil {
		t.Fatalf("加载触发词文件失败: %v", err)
	}
	if len(cfg.ClearPhrases) != 1 || cfg.ClearPhrases[0] != "keep me" {
		t.Fatalf("半份配置不应清空默认触发词 got=%v", cfg.ClearPhrases)
	}
	if len(cfg.QueryPhrases) != 1 || cfg.QueryPhrases[0] != "only queries" {
		t.Fatalf("提问触发词未覆盖 got=%v", cfg.QueryPhrases)
	}
}

func TestLoadRuntimeConfigEnvOverrides(t *testing.T) {
	t.Setenv("AI_MEMO_DASH_API_KEY", "sk-test")
	t.Setenv("AI_MEMO_LLM_MODEL", "qwen-max")
	t.Setenv("AI_MEMO_PAUSE_THRESHOLD", "900ms")
	t.Setenv("AI_MEMO_CONTEXT_WINDOW", "5")
	t.Setenv("AI_MEMO_CLEAR_PHRASES", "wipe,清掉")
	t.Setenv("AI_MEMO_TRIGGERS_FILE", "")

	cfg, err := loadRuntimeConfig()
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if cfg.DashAPIKey != "sk-test" {
		t.Fatalf("API Key got=%q", cfg.DashAPIKey)
	}
	if cfg.LLMModel != "qwen-max" {
		t.Fatalf("模型覆盖失效 got=%q", cfg.LLMModel)
	}
	if cfg.PauseThreshold != 900*time.Millisecond {
		t.Fatalf("停顿阈值覆盖失效 got=%v", cfg.PauseThreshold)
	}
	if cfg.ContextWindow != 5 {
		t.Fatalf("上下文窗口覆盖失效 got=%d", cfg.ContextWindow)
	}
	if len(cfg.ClearPhrases) != 2 || cfg.ClearPhrases[0] != "wipe" {
		t.Fatalf("触发词覆盖失效 got=%v", cfg.ClearPhrases)
	}
	// 未覆盖项保留默认
	if cfg.PollInterval != POLL_INTERVAL {
		t.Fatalf("默认轮询间隔被意外修改 got=%v", cfg.PollInterval)
	}
	if cfg.Feedback.GradeSaved != FEEDBACK_GRADE_SAVED {
		t.Fatalf("默认反馈语被意外修改 got=%q", cfg.Feedback.GradeSaved)
	}
}
