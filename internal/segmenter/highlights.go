package segmenter

import (
	"unicode"

	"github.com/yichenlu/sensereader/pkg/types"
)

// Highlight weights by kind; the segmenter tests check the exclaim and
// emphasis weights.
const (
	weightQuote    = 0.5
	weightEmphasis = 0.7
	weightExclaim  = 0.9
	weightQuestion = 0.6
	weightEllipsis = 0.4
)

var quotePairs = map[rune]rune{
	'"': '"',
	'“': '”',
	'「': '」',
	'『': '』',
}

// ExtractHighlights scans segment text for quote pairs, exclamations,
// questions, ellipses and all-caps emphasis. Offsets are rune positions
// relative to the segment text.
func ExtractHighlights(text string) []types.Highlight {
	runes := []rune(text)
	highlights := make([]types.Highlight, 0)

	highlights = append(highlights, scanQuotes(runes)...)
	highlights = append(highlights, scanPunctuation(runes)...)
	highlights = append(highlights, scanEmphasis(runes)...)

	return highlights
}

// scanQuotes finds paired quotation marks; unbalanced openers are ignored
func scanQuotes(runes []rune) []types.Highlight {
	out := make([]types.Highlight, 0)
	for i := 0; i < len(runes); i++ {
		closer, ok := quotePairs[runes[i]]
		if !ok {
			continue
		}
		for j := i + 1; j < len(runes); j++ {
			if runes[j] == closer {
				out = append(out, types.Highlight{
					StartChar: i,
					EndChar:   j + 1,
					Kind:      types.HighlightQuote,
					Weight:    weightQuote,
				})
				i = j
				break
			}
		}
	}
	return out
}

func scanPunctuation(runes []rune) []types.Highlight {
	out := make([]types.Highlight, 0)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '!', '！':
			out = append(out, types.Highlight{
				StartChar: i, EndChar: i + 1,
				Kind: types.HighlightExclaim, Weight: weightExclaim,
			})
		case '?', '？':
			out = append(out, types.Highlight{
				StartChar: i, EndChar: i + 1,
				Kind: types.HighlightQuestion, Weight: weightQuestion,
			})
		case '…':
			out = append(out, types.Highlight{
				StartChar: i, EndChar: i + 1,
				Kind: types.HighlightEllipsis, Weight: weightEllipsis,
			})
		case '.':
			if i+2 < len(runes) && runes[i+1] == '.' && runes[i+2] == '.' {
				out = append(out, types.Highlight{
					StartChar: i, EndChar: i + 3,
					Kind: types.HighlightEllipsis, Weight: weightEllipsis,
				})
				i += 2
			}
		}
	}
	return out
}

// scanEmphasis marks all-caps ASCII words of length >= 3
func scanEmphasis(runes []rune) []types.Highlight {
	out := make([]types.Highlight, 0)
	i := 0
	for i < len(runes) {
		if !isASCIILetter(runes[i]) {
			i++
			continue
		}
		start := i
		allUpper := true
		for i < len(runes) && isASCIILetter(runes[i]) {
			if !unicode.IsUpper(runes[i]) {
				allUpper = false
			}
			i++
		}
		if allUpper && i-start >= 3 {
			out = append(out, types.Highlight{
				StartChar: start, EndChar: i,
				Kind: types.HighlightEmphasis, Weight: weightEmphasis,
			})
		}
	}
	return out
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
