package store

import (
	"fmt"
	"path/filepath"
	"testing"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "memo.sqlite"))
	if err != nil {
		t.Fatalf("打开数据库失败: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustSaveUtterance(t *testing.T, s *Store, id, text string, createdAt int64) {
	t.Helper()
	err := s.SaveUtterance(&Utterance{ID: id, Text: text, CreatedAt: createdAt})
	if err != nil {
		t.Fatalf("写入语音记录失败: %v", err)
	}
}

func mustSaveInteraction(t *testing.T, s *Store, id string, createdAt int64) {
	t.Helper()
	err := s.SaveInteraction(&Interaction{
		ID:           id,
		SystemPrompt: "sys",
		UserPrompt:   "user",
		Response:     "resp-" + id,
		CreatedAt:    createdAt,
		LatencyMs:    42,
		ModelID:      "test-model",
		Temperature:  0.7,
		MaxTokens:    256,
	})
	if err != nil {
		t.Fatalf("写入问答记录失败: %v", err)
	}
}

func TestUtteranceRoundTrip(t *testing.T) {
	s := openTemp(t)

	mustSaveUtterance(t, s, "u1", "hello there", 1000)

	recent, err := s.RecentNonExcluded(10)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("期望1条记录 got=%d", len(recent))
	}
	u := recent[0]
	if u.ID != "u1" || u.Text != "hello there" || u.CreatedAt != 1000 || u.ExcludedFromContext {
		t.Fatalf("字段不一致: %+v", u)
	}
}

func TestRecentNonExcludedOrderAndLimit(t *testing.T) {
	s := openTemp(t)

	for i := 1; i <= 5; i++ {
		mustSaveUtterance(t, s, fmt.Sprintf("u%d", i), fmt.Sprintf("note %d", i), int64(i*1000))
	}

	recent, err := s.RecentNonExcluded(3)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("期望3条记录 got=%d", len(recent))
	}
	// 倒序：最新在前
	for i, want := range []string{"u5", "u4", "u3"} {
		if recent[i].ID != want {
			t.Fatalf("第%d条期望%s got=%s", i, want, recent[i].ID)
		}
	}
}

func TestRecentNonExcludedSameTimestamp(t *testing.T) {
	s := openTemp(t)

	// 同一毫秒内写入多条，靠 rowid 保序
	mustSaveUtterance(t, s, "a", "first", 1000)
	mustSaveUtterance(t, s, "b", "second", 1000)
	mustSaveUtterance(t, s, "c", "third", 1000)

	recent, err := s.RecentNonExcluded(10)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(recent) != 3 || recent[0].ID != "c" || recent[2].ID != "a" {
		t.Fatalf("同时间戳排序错误: %+v", recent)
	}
}

func TestMarkAllExcluded(t *testing.T) {
	s := openTemp(t)

	mustSaveUtterance(t, s, "u1", "one", 1000)
	mustSaveUtterance(t, s, "u2", "two", 2000)

	if err := s.MarkAllExcluded(); err != nil {
		t.Fatalf("整体排除失败: %v", err)
	}
	recent, err := s.RecentNonExcluded(10)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(recent) != 0 {
		t.Fatalf("排除后不应有可用记录 got=%+v", recent)
	}

	// 排除后新写入的记录照常可用
	mustSaveUtterance(t, s, "u3", "three", 3000)
	recent, _ = s.RecentNonExcluded(10)
	if len(recent) != 1 || recent[0].ID != "u3" {
		t.Fatalf("新记录应不受历史排除影响 got=%+v", recent)
	}
}

func TestSetUtteranceExcluded(t *testing.T) {
	s := openTemp(t)

	mustSaveUtterance(t, s, "u1", "keep me", 1000)

	if err := s.SetUtteranceExcluded("u1", true); err != nil {
		t.Fatalf("排除失败: %v", err)
	}
	if recent, _ := s.RecentNonExcluded(10); len(recent) != 0 {
		t.Fatalf("排除后仍可见: %+v", recent)
	}

	// 恢复
	if err := s.SetUtteranceExcluded("u1", false); err != nil {
		t.Fatalf("恢复失败: %v", err)
	}
	if recent, _ := s.RecentNonExcluded(10); len(recent) != 1 {
		t.Fatalf("恢复后应重新可见")
	}

	if err := s.SetUtteranceExcluded("missing", true); err == nil {
		t.Fatalf("操作不存在的记录应报错")
	}
}

func TestMostRecentInteraction(t *testing.T) {
	s := openTemp(t)

	it, err := s.MostRecentInteraction()
	if err != nil {
		t.Fatalf("空库查询不应报错: %v", err)
	}
	if it != nil {
		t.Fatalf("空库应返回 nil got=%+v", it)
	}

	mustSaveInteraction(t, s, "it1", 1000)
	mustSaveInteraction(t, s, "it2", 2000)

	it, err = s.MostRecentInteraction()
	if err != nil || it == nil {
		t.Fatalf("查询失败: %v", err)
	}
	if it.ID != "it2" || it.Response != "resp-it2" {
		t.Fatalf("应返回最新往返 got=%+v", it)
	}
	if it.Grade != nil {
		t.Fatalf("未打分的往返 grade 应为 nil")
	}
}

func TestMostRecentInteractionSameTimestamp(t *testing.T) {
	s := openTemp(t)

	mustSaveInteraction(t, s, "early", 1000)
	mustSaveInteraction(t, s, "late", 1000)

	it, err := s.MostRecentInteraction()
	if err != nil || it == nil {
		t.Fatalf("查询失败: %v", err)
	}
	if it.ID != "late" {
		t.Fatalf("同时间戳应返回后写入的 got=%s", it.ID)
	}
}

func TestUpdateGrade(t *testing.T) {
	s := openTemp(t)

	mustSaveInteraction(t, s, "it1", 1000)

	if err := s.UpdateGrade("it1", 4); err != nil {
		t.Fatalf("打分失败: %v", err)
	}
	it, _ := s.MostRecentInteraction()
	if it.Grade == nil || *it.Grade != 4 {
		t.Fatalf("评分未写入 got=%+v", it.Grade)
	}

	// 覆盖写
	if err := s.UpdateGrade("it1", 0); err != nil {
		t.Fatalf("覆盖打分失败: %v", err)
	}
	it, _ = s.MostRecentInteraction()
	if it.Grade == nil || *it.Grade != 0 {
		t.Fatalf("评分未覆盖 got=%+v", it.Grade)
	}

	if err := s.UpdateGrade("missing", 3); err == nil {
		t.Fatalf("给不存在的往返打分应报错")
	}
}

func TestSaveInteractionWithGrade(t *testing.T) {
	s := openTemp(t)

	g := 5
	err := s.SaveInteraction(&Interaction{
		ID: "graded", SystemPrompt: "s", UserPrompt: "u", Response: "r",
		CreatedAt: 1000, LatencyMs: 1, ModelID: "m", Temperature: 0.1, MaxTokens: 8,
		Grade: &g,
	})
	if err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	it, _ := s.MostRecentInteraction()
	if it.Grade == nil || *it.Grade != 5 {
		t.Fatalf("带评分写入后读取不一致: %+v", it.Grade)
	}
}
