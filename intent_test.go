package main

import "testing"

var testClearPhrases = []string{"clear context", "reset context", "new context", "清除上下文"}
var testQueryPhrases = []string{"answer me", "what do you think", "can you help", "tell me", "回答我"}

func classifyT(text string) Intent {
	return classify(text, testClearPhrases, testQueryPhrases)
}

func TestClassifyPlainLog(t *testing.T) {
	got := classifyT("today I fixed the boot loader")
	if got.Kind != IntentPlainLog {
		t.Fatalf("普通记录误判为 %s", got.Kind)
	}
}

func TestClassifyClearContext(t *testing.T) {
	for _, text := range []string{
		"clear context",
		"please RESET Context now",
		"ok let's start a new context",
		"帮我清除上下文",
	} {
		if got := classifyT(text); got.Kind != IntentClearContext {
			t.Fatalf("清除上下文识别失败 text=%q got=%s", text, got.Kind)
		}
	}
}

func TestClassifyGrade(t *testing.T) {
	got := classifyT("grade that 3")
	if got.Kind != IntentGrade || got.Grade != 3 {
		t.Fatalf("打分识别失败 got=%+v", got)
	}

	// 超出 0~5 也要分类成 Grade，范围校验在 orchestrator 播报
	got = classifyT("grade that 9")
	if got.Kind != IntentGrade || got.Grade != 9 {
		t.Fatalf("越界打分应照常分类 got=%+v", got)
	}

	got = classifyT("GRADE THAT 0 please")
	if got.Kind != IntentGrade || got.Grade != 0 {
		t.Fatalf("大小写/前后缀不应影响打分识别 got=%+v", got)
	}
}

func TestClassifyGradeWithoutDigit(t *testing.T) {
	// 没带数字不算打分指令，落到更低优先级规则
	if got := classifyT("grade that"); got.Kind != IntentPlainLog {
		t.Fatalf("无数字的 grade that 应落到普通记录 got=%s", got.Kind)
	}
	if got := classifyT("grade that and tell me why"); got.Kind != IntentQuery {
		t.Fatalf("无数字但含提问触发词应判为提问 got=%s", got.Kind)
	}
}

func TestClassifyQuery(t *testing.T) {
	for _, text := range []string{
		"what do you think about this design",
		"Tell Me a summary",
		"回答我这个问题",
	} {
		if got := classifyT(text); got.Kind != IntentQuery {
			t.Fatalf("提问触发识别失败 text=%q got=%s", text, got.Kind)
		}
	}
}

func TestClassifyPriorityOrder(t *testing.T) {
	// 同时命中清除和提问：优先级规则要求判为清除
	got := classifyT("clear context and tell me what happened")
	if got.Kind != IntentClearContext {
		t.Fatalf("优先级失效：应判为 ClearContext got=%s", got.Kind)
	}

	// 同时命中打分和提问：打分优先
	got = classifyT("grade that 4 and tell me why")
	if got.Kind != IntentGrade || got.Grade != 4 {
		t.Fatalf("优先级失效：应判为 Grade got=%+v", got)
	}
}

func TestClassifySameTextStable(t *testing.T) {
	text := "what do you think, clear context?"
	first := classifyT(text)
	second := classifyT(text)
	if first != second {
		t.Fatalf("同一文本重复分类结果不一致: %+v vs %+v", first, second)
	}
}
