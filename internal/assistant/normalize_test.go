package assistant

import (
	"strings"
	"testing"
)

func TestNormalizeKnowledgeMap(t *testing.T) {
	raw := "```json\n{\"center\":{\"label\":\"光合作用\",\"description\":\"绿色植物合成有机物\"},\"parents\":[{\"label\":\"细胞结构\",\"description\":\"前置\"}]}\n```"
	km := normalizeKnowledgeMap(raw)
	if km == nil {
		t.Fatal("expected a map")
	}
	if km.Center.Label != "光合作用" {
		t.Errorf("center = %+v", km.Center)
	}
	if len(km.Parents) != 1 {
		t.Errorf("parents = %+v", km.Parents)
	}
	if km.Children == nil || km.Related == nil {
		t.Error("absent relation arrays should default to empty, not nil")
	}

	if normalizeKnowledgeMap(`{"parents":[]}`) != nil {
		t.Error("map without a center label should be rejected")
	}
	if normalizeKnowledgeMap("抱歉，我无法生成。") != nil {
		t.Error("prose should yield nil")
	}
}

func TestNormalizeTimeline(t *testing.T) {
	tl := normalizeTimeline(`{"title":"中国近代史","events":[{"date":"1839年","title":"虎门销烟","description":"..."}]}`)
	if tl == nil || tl.Title != "中国近代史" || len(tl.Events) != 1 {
		t.Fatalf("unexpected timeline: %+v", tl)
	}

	if normalizeTimeline(`{"title":"空","events":[]}`) != nil {
		t.Error("timeline without events should be rejected")
	}
	if normalizeTimeline("no structure here") != nil {
		t.Error("prose should yield nil")
	}
}

func TestNormalizeBatch_ProseDegrades(t *testing.T) {
	prose := "这道几何题的解法是：先作辅助线……"
	result := normalizeBatch(prose, 1)
	if result.Summary != prose {
		t.Errorf("summary should carry the raw prose, got %q", result.Summary)
	}
	if len(result.Items) != 0 {
		t.Errorf("expected no items, got %d", len(result.Items))
	}
}

func TestNormalizeBatch_ClampsImageIndex(t *testing.T) {
	raw := `{"replyText":"两道题","items":[
		{"imageIndex":-1,"subject":"数学","topic":"t1","content":"c","analysis":"a"},
		{"imageIndex":7,"subject":"物理","topic":"t2","content":"c","analysis":"a"}
	]}`
	result := normalizeBatch(raw, 2)
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	if result.Items[0].ImageIndex != 0 {
		t.Errorf("negative index should clamp to 0, got %d", result.Items[0].ImageIndex)
	}
	if result.Items[1].ImageIndex != 1 {
		t.Errorf("oversized index should clamp to last, got %d", result.Items[1].ImageIndex)
	}
}

func TestNormalizeBatch_MissingReplyText(t *testing.T) {
	result := normalizeBatch(`{"items":[]}`, 0)
	if result.Summary == "" {
		t.Error("summary should fall back to a default line")
	}
}

func TestNormalizeRecommendations(t *testing.T) {
	raw := `{"suggestions":[
		{"focusArea":"几何证明","suggestion":"每天一道辅助线练习","difficulty":"Elite"},
		{"focusArea":"英语语法","suggestion":"时态专项","difficulty":"进阶"}
	]}`
	recs := normalizeRecommendations(raw)
	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(recs))
	}
	if recs[0].Difficulty != DifficultyElite {
		t.Errorf("difficulty = %q", recs[0].Difficulty)
	}
	if recs[1].Difficulty != DifficultyBasic {
		t.Errorf("unknown difficulty should normalize to Basic, got %q", recs[1].Difficulty)
	}

	if got := normalizeRecommendations("无法分析"); len(got) != 0 {
		t.Errorf("prose should yield an empty list, got %+v", got)
	}
}

func TestSystemPrompt_AppendsGuidelines(t *testing.T) {
	p := systemPrompt(map[string]string{
		"数学": "扮演诊断专家",
		"英语": "重点关注语法",
		"物理": "   ",
	})
	for _, want := range []string{"- 数学学科：扮演诊断专家", "- 英语学科：重点关注语法"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(p, "物理学科") {
		t.Error("blank guidelines should be skipped")
	}

	if systemPrompt(nil) != baseSystemInstruction {
		t.Error("no guidelines should leave the base instruction untouched")
	}
}
