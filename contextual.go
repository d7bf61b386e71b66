package main

import (
	"fmt"
	"strings"
	"time"
)

// ================= 上下文组装 =================
// 取最近 n 条未排除的记录，倒序查询后翻转回时间正序，
// 每行渲染成 “[HH:MM:SS] 内容”。没有可用记录时返回空串，
// 调用方必须把空串当成“没什么可推理的”，跳过 LLM 调用。

func buildContext(s NoteStore, n int) (string, error) {
	recent, err := s.RecentNonExcluded(n)
	if err != nil {
		return "", fmt.Errorf("加载上下文记录失败: %w", err)
	}
	if len(recent) == 0 {
		return "", nil
	}

	lines := make([]string, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		u := recent[i]
		ts := time.UnixMilli(u.CreatedAt).Format("2006-01-02 15:04:05")
		lines = append(lines, fmt.Sprintf("[%s] %s", ts, u.Text))
	}
	return strings.Join(lines, "\n"), nil
}
