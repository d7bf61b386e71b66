package main

import (
	"regexp"
	"strconv"
	"strings"
)

// ================= 意图分类 =================
// 纯函数：同一段文本按固定优先级匹配，首个命中即返回，恒返回四类之一。
// 优先级：清除上下文 > 打分 > 提问 > 普通记录。

type IntentKind int

const (
	IntentClearContext IntentKind = iota
	IntentGrade
	IntentQuery
	IntentPlainLog
)

func (k IntentKind) String() string {
	switch k {
	case IntentClearContext:
		return "ClearContext"
	case IntentGrade:
		return "Grade"
	case IntentQuery:
		return "ConversationalQuery"
	default:
		return "PlainLog"
	}
}

type Intent struct {
	Kind IntentKind
	// Grade 仅在 Kind==IntentGrade 时有效。这里不做范围校验：
	// 超出 0~5 也照常返回，由 orchestrator 播报“无效评分”，
	// 静默吞掉会让用户以为设备没听见。
	Grade int
}

// 打分句式：“grade that <digit>”。没有数字时不算打分指令，落到后面的规则。
var gradePattern = regexp.MustCompile(`(?i)grade\s+that\s+([0-9])\b`)

func classify(text string, clearPhrases, queryPhrases []string) Intent {
	lower := strings.ToLower(text)

	if containsAnyPhrase(lower, clearPhrases) {
		return Intent{Kind: IntentClearContext}
	}
	if m := gradePattern.FindStringSubmatch(text); m != nil {
		v, _ := strconv.Atoi(m[1])
		return Intent{Kind: IntentGrade, Grade: v}
	}
	if containsAnyPhrase(lower, queryPhrases) {
		return Intent{Kind: IntentQuery}
	}
	return Intent{Kind: IntentPlainLog}
}

func containsAnyPhrase(lower string, phrases []string) bool {
	for _, p := range phrases {
		if p == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
