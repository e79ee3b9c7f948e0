package assistant

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const baseSystemInstruction = `
角色设定与目标：
你是一个名为“龙珠小助理”（英文名：YiChen）的教育AI助手，专为初中学生设计，提供全科目学习辅导。
你的核心目标是利用《龙珠》动漫的积极能量和世界观，激励学生学习，帮助他们提高“战斗力”（学习能力）。你的回复必须充满活力、热情、友好，并始终使用《龙珠》主题的语言风格。

核心功能与交互要求：
1. 知识点穿线（元气弹知识网络）：
   当用户输入一个知识点时，充当知识架构师，将该知识点放置在学科体系的“知识地图”中。解释该知识点的上下游关联、前置基础和后续延伸。
2. 错题录入与巩固（精神时光屋训练）：
   当接收到错题（文本或图片描述）时，识别题目内容和所属科目/知识点。友好地将该题录入“错题本”。提供详细、耐心的解题思路，引导学生自行解决，而不是直接给出答案。
3. 定制化能力加强（超级赛亚人模式）：
   利用对话历史和用户之前录入的错题数据，智能分析学生的薄弱环节。主动为用户推荐个性化的学习路径。

界面与语言要求：
- 语言：所有回复必须使用简体中文。
- 称谓：称呼用户为“小战士”、“徒弟”、“赛亚人预备役”。
- 鼓励：常用“加油”、“你的战斗力又提升了”、“释放你的潜能”等短语。
- 口头禅：可以偶尔使用“欧斯！”（Osu!）或“龟派气功！”（Kamehameha!）来增加趣味性。

特殊指令：
- 回复要言简意赅，不要堆砌无用的废话。将核心信息直观地呈现给用户。
- 如果用户一次性上传多张图片，请务必分别识别每张图片的内容、所属学科（Subject Enum）和具体知识点，并按照JSON格式返回分析结果以便归类。
`

const jsonOnlySystem = "You are a JSON generator. Return JSON only."

const batchSystem = "You are a helpful assistant. Try to return JSON if possible, otherwise detail the solution."

// systemPrompt appends per-subject guideline lines to the base instruction.
// Guideline content is passed through verbatim; keys are sorted so the
// assembled prompt is deterministic.
func systemPrompt(guidelines map[string]string) string {
	if len(guidelines) == 0 {
		return baseSystemInstruction
	}

	subjects := make([]string, 0, len(guidelines))
	for subject := range guidelines {
		if strings.TrimSpace(guidelines[subject]) != "" {
			subjects = append(subjects, subject)
		}
	}
	if len(subjects) == 0 {
		return baseSystemInstruction
	}
	sort.Strings(subjects)

	var b strings.Builder
	b.WriteString(baseSystemInstruction)
	b.WriteString("\n\n【学科特定行为准则（Subject Specific Guidelines）】\n")
	for _, subject := range subjects {
		fmt.Fprintf(&b, "- %s学科：%s\n", subject, guidelines[subject])
	}
	b.WriteString("\n请严格遵守以上学科准则进行回复。")
	return b.String()
}

func batchPrompt(imageCount int, userContext string) string {
	return fmt.Sprintf(`Task: Analyze %d user-uploaded images.
User Context: %s

Structure:
{
  "replyText": "Summarize analysis in 1 sentence.",
  "items": [
    {
      "imageIndex": 0,
      "subject": "数学",
      "topic": "Topic Name",
      "content": "Description",
      "analysis": "Analysis (max 50 words)."
    }
  ]
}

IF JSON GENERATION FAILS due to complex math formulas or content, just provide the raw analysis text directly.`, imageCount, userContext)
}

func knowledgeMapPrompt(concept string) string {
	return fmt.Sprintf(`Analyze concept: %q.
Return Valid JSON ONLY.
Schema:
{
  "center": { "label": "string", "description": "short definition (10-15 words)" },
  "parents": [{ "label": "string", "description": "relationship (5-10 words)" }],
  "children": [{ "label": "string", "description": "relationship (5-10 words)" }],
  "related": [{ "label": "string", "description": "relationship (5-10 words)" }]
}`, concept)
}

func timelinePrompt(topic string) string {
	return fmt.Sprintf(`Task: Generate historical timeline for %q.
Format: JSON Object ONLY. No markdown. No conversational filler.
Schema: { "title": "string", "events": [{ "date": "string", "title": "string", "description": "string" }] }`, topic)
}

func recommendPrompt(wrongTopics []string) string {
	topics, _ := json.Marshal(wrongTopics)
	return fmt.Sprintf(`Based on wrong topics: %s. Provide 3 suggestions. JSON ONLY. Schema: { "suggestions": [{"focusArea": "string", "suggestion": "string", "difficulty": "Basic|Advanced|Elite"}] }`, topics)
}
