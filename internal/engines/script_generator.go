// internal/engines/script_generator.go
package engines

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/Corphon/RevidClone/internal/models"
	"github.com/mitchellh/go-wordwrap"
	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// DefaultMaxSentences 从简报中最多取用的句子数
	DefaultMaxSentences = 10

	minScenes = 3
	maxScenes = 6

	summaryWidth   = 90
	voiceoverWidth = 80

	fallbackSentence = "Introduce the topic in an engaging manner"
)

// storyArcs 叙事弧模板，按 index % len(storyArcs) 循环取用
var storyArcs = []string{
	"Hook the audience with a relatable question",
	"Present the core promise",
	"Deliver the first key insight",
	"Share the second key insight",
	"Explain how to put the advice into practice",
	"Close with a memorable takeaway",
}

// moodKeywords is checked in order; the first keyword found in the arc wins.
var moodKeywords = []struct {
	keyword string
	mood    string
}{
	{"hook", "energetic"},
	{"promise", "confident"},
	{"insight", "informative"},
	{"practice", "encouraging"},
}

const defaultMood = "uplifting"

// ScriptGenerator 确定性的脚本生成器，模拟 LLM 输出
type ScriptGenerator struct {
	MaxSentences int
}

// NewScriptGenerator 创建脚本生成器，maxSentences <= 0 时使用默认值
func NewScriptGenerator(maxSentences int) *ScriptGenerator {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	return &ScriptGenerator{MaxSentences: maxSentences}
}

// Generate 根据简报和时长生成有序场景列表
func (g *ScriptGenerator) Generate(brief string, durationMinutes int) []models.Scene {
	sentences := g.sentences(brief)
	count := SceneCount(durationMinutes)

	scenes := make([]models.Scene, 0, count)
	for index := 0; index < count; index++ {
		arc := storyArcs[index%len(storyArcs)]
		sentence := sentences[index%len(sentences)]
		summary := strings.Join(wrapLines(fmt.Sprintf("%s: %s", arc, sentence), summaryWidth), "\n")

		scenes = append(scenes, models.Scene{
			Index:                index,
			Title:                sceneTitle(index, arc),
			Summary:              summary,
			Voiceover:            models.StringPtr(strings.Join(wrapLines(summary, voiceoverWidth), " ")),
			Mood:                 models.StringPtr(moodFromArc(arc)),
			AspectRatio:          models.AspectLandscape,
			ThumbnailDescription: models.StringPtr(thumbnailFromArc(arc, sentence)),
		})
	}
	return scenes
}

// SceneCount returns clamp(ceil(duration * 1.5), 3, 6).
func SceneCount(durationMinutes int) int {
	n := int(math.Ceil(float64(durationMinutes) * 1.5))
	return lo.Clamp(n, minScenes, maxScenes)
}

// sentences splits the brief on periods. It never returns an empty slice.
func (g *ScriptGenerator) sentences(brief string) []string {
	limit := g.MaxSentences
	if limit <= 0 {
		limit = DefaultMaxSentences
	}

	parts := strings.Split(strings.ReplaceAll(brief, "\n", " "), ".")
	sentences := lo.Filter(lo.Map(parts, func(part string, _ int) string {
		return strings.TrimSpace(part)
	}), func(part string, _ int) bool {
		return part != ""
	})

	if len(sentences) == 0 {
		if trimmed := strings.TrimSpace(brief); trimmed != "" {
			return []string{trimmed}
		}
		return []string{fallbackSentence}
	}
	if len(sentences) > limit {
		sentences = sentences[:limit]
	}
	return sentences
}

// wrapLines collapses whitespace and word-wraps text to at most width
// columns. A word longer than width is split: its head fills the rest of the
// current line and the tail continues on the next one.
func wrapLines(text string, width uint) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if lo.EveryBy(words, func(word string) bool { return utf8.RuneCountInString(word) <= int(width) }) {
		return strings.Split(wordwrap.WrapString(strings.Join(words, " "), width), "\n")
	}
	return fillBreakingLongWords(words, int(width))
}

// fillBreakingLongWords is a greedy fill over word and single-space chunks.
// go-wordwrap keeps over-long words whole, so this path handles them.
func fillBreakingLongWords(words []string, width int) []string {
	chunks := make([]string, 0, 2*len(words))
	for i, word := range words {
		if i > 0 {
			chunks = append(chunks, " ")
		}
		chunks = append(chunks, word)
	}

	var lines []string
	for len(chunks) > 0 {
		if chunks[0] == " " && len(lines) > 0 {
			chunks = chunks[1:]
		}

		var line []string
		lineLen := 0
		for len(chunks) > 0 {
			n := utf8.RuneCountInString(chunks[0])
			if lineLen+n > width {
				break
			}
			line = append(line, chunks[0])
			lineLen += n
			chunks = chunks[1:]
		}

		if len(chunks) > 0 && utf8.RuneCountInString(chunks[0]) > width {
			room := width - lineLen
			if width < 1 {
				room = 1
			}
			if room > 0 {
				runes := []rune(chunks[0])
				line = append(line, string(runes[:room]))
				chunks[0] = string(runes[room:])
			}
		}

		if len(line) > 0 && line[len(line)-1] == " " {
			line = line[:len(line)-1]
		}
		if len(line) > 0 {
			lines = append(lines, strings.Join(line, ""))
		}
	}
	return lines
}

func sceneTitle(index int, arc string) string {
	caser := cases.Title(language.English)
	words := lo.Map(firstWords(arc, 3), func(word string, _ int) string {
		return caser.String(word)
	})
	return fmt.Sprintf("Scene %d: %s", index+1, strings.Join(words, " "))
}

func moodFromArc(arc string) string {
	lower := strings.ToLower(arc)
	for _, candidate := range moodKeywords {
		if strings.Contains(lower, candidate.keyword) {
			return candidate.mood
		}
	}
	return defaultMood
}

func thumbnailFromArc(arc, sentence string) string {
	keywords := strings.Join(firstWords(sentence, 6), " ")
	return strings.TrimSpace(fmt.Sprintf("%s featuring %s", strings.ToLower(arc), keywords))
}

func firstWords(text string, n int) []string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[:n]
	}
	return words
}
