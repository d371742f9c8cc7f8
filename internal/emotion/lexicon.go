package emotion

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yichenlu/sensereader/pkg/types"
)

// lexicon maps keywords to emotion labels. Both English and Chinese entries
// are scored; matching is substring-based for CJK and token-based for Latin
// script.
var lexicon = map[types.EmotionLabel][]string{
	types.EmotionHappy: {
		"happy", "joy", "joyful", "glad", "delight", "delighted", "cheerful",
		"wonderful", "great", "love", "smile", "laugh", "excited", "exciting",
		"開心", "快樂", "高興", "喜悅", "幸福", "愉快", "歡樂", "真好", "太棒", "興奮",
	},
	types.EmotionSad: {
		"sad", "sadness", "sorrow", "grief", "cry", "tears", "lonely",
		"miserable", "depressed", "unhappy", "mourn",
		"傷心", "難過", "悲傷", "哭", "孤單", "寂寞", "憂鬱", "哀",
	},
	types.EmotionAngry: {
		"angry", "anger", "furious", "rage", "mad", "annoyed", "hate",
		"outraged", "irritated",
		"生氣", "憤怒", "火大", "討厭", "氣死", "惱",
	},
	types.EmotionFear: {
		"fear", "afraid", "scared", "terrified", "horror", "dread", "panic",
		"anxious", "nervous",
		"害怕", "恐懼", "恐怖", "緊張", "驚恐", "畏懼",
	},
	types.EmotionSurprise: {
		"surprise", "surprised", "astonished", "amazed", "sudden", "shocked",
		"unexpected", "wow",
		"驚訝", "驚喜", "突然", "沒想到", "震驚", "嚇一跳",
	},
	types.EmotionDisgust: {
		"disgust", "disgusting", "gross", "revolting", "nausea", "repulsive",
		"sickening",
		"噁心", "反胃", "嫌惡", "作嘔",
	},
}

// aliasLabels maps common off-vocabulary labels onto the closed set. Anything
// not listed here and not already a member collapses to neutral.
var aliasLabels = map[string]types.EmotionLabel{
	"excited":    types.EmotionHappy,
	"excitement": types.EmotionHappy,
	"joyful":     types.EmotionHappy,
	"cheerful":   types.EmotionHappy,
	"depressed":  types.EmotionSad,
	"melancholy": types.EmotionSad,
	"furious":    types.EmotionAngry,
	"scared":     types.EmotionFear,
	"afraid":     types.EmotionFear,
	"terrified":  types.EmotionFear,
	"shocked":    types.EmotionSurprise,
	"amazed":     types.EmotionSurprise,
	"calm":       types.EmotionNeutral,
}

// NormalizeLabel maps an arbitrary label string onto the closed emotion set.
// Unknown labels collapse to neutral.
func NormalizeLabel(raw string) types.EmotionLabel {
	label := types.EmotionLabel(strings.ToLower(strings.TrimSpace(raw)))
	if label.IsValid() {
		return label
	}
	if mapped, ok := aliasLabels[string(label)]; ok {
		return mapped
	}
	return types.EmotionNeutral
}

// scoreText runs the keyword lexicon over text and returns per-label hit
// counts.
func scoreText(text string) map[types.EmotionLabel]int {
	lowered := strings.ToLower(text)
	tokens := make(map[string]int)
	for _, tok := range strings.FieldsFunc(lowered, func(r rune) bool {
		return r >= utf8.RuneSelf || !unicode.IsLetter(r)
	}) {
		tokens[tok]++
	}
	scores := make(map[types.EmotionLabel]int)
	for label, words := range lexicon {
		for _, w := range words {
			if w[0] < utf8.RuneSelf {
				scores[label] += tokens[w]
			} else {
				scores[label] += strings.Count(lowered, w)
			}
		}
	}
	return scores
}
