package segmenter

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/yichenlu/sensereader/pkg/types"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultMaxChunkChars bounds segment length before sub-splitting
	DefaultMaxChunkChars = 500
	// DefaultReadingWPM is the reading speed used for duration estimates
	DefaultReadingWPM = 200
)

// Options control one segmentation run
type Options struct {
	Strategy      types.SegmentStrategy
	MaxChunkChars int
	ReadingWPM    float64
}

// Service splits narrative text into addressable segments with highlight
// metadata. It is pure CPU and never fails on valid UTF-8; invalid bytes are
// replaced with U+FFFD and flagged as a warning on the affected segment.
type Service struct {
	log zerolog.Logger
}

// NewService creates a new segmenter service
func NewService(log zerolog.Logger) *Service {
	return &Service{log: log.With().Str("component", "segmenter").Logger()}
}

// terminators end a sentence; the terminator run stays with the preceding
// segment and consecutive terminators collapse into one boundary.
var terminators = map[rune]bool{
	'.': true, '!': true, '?': true,
	'。': true, '！': true, '？': true,
}

// span is a half-open rune range [start, end) into the normalized text
type span struct {
	start, end int
}

// Segment splits text according to opts. The returned segments have dense
// indices 0..N-1, strictly increasing start offsets, and concatenating
// segment text plus recorded separators reconstructs the normalized input.
func (s *Service) Segment(text string, opts Options) []*types.Segment {
	if text == "" {
		return []*types.Segment{}
	}

	replaced := false
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
		replaced = true
	}
	text = norm.NFC.String(text)

	if opts.MaxChunkChars <= 0 {
		opts.MaxChunkChars = DefaultMaxChunkChars
	}
	if opts.ReadingWPM <= 0 {
		opts.ReadingWPM = DefaultReadingWPM
	}

	runes := []rune(text)
	strategy := resolveStrategy(text, opts.Strategy)

	var raw []span
	if strategy == types.StrategyParagraph {
		raw = splitParagraphs(runes)
	} else {
		raw = splitSentences(runes)
	}

	pieces := absorbWhitespace(runes, raw)
	pieces = enforceChunkLimit(runes, pieces, opts.MaxChunkChars)

	segments := make([]*types.Segment, 0, len(pieces))
	offset := 0.0
	for i, p := range pieces {
		segText := string(runes[p.text.start:p.text.end])
		words := CountWords(segText)
		dur := float64(words) / (opts.ReadingWPM / 60.0)

		seg := &types.Segment{
			ID:          fmt.Sprintf("seg_%04d", i),
			Index:       i,
			Text:        segText,
			StartChar:   p.text.start,
			EndChar:     p.text.end,
			WordCount:   words,
			EstDuration: dur,
			StartOffset: offset,
			Separator:   string(runes[p.sep.start:p.sep.end]),
			Highlights:  ExtractHighlights(segText),
		}
		if replaced && strings.ContainsRune(segText, '�') {
			seg.Warnings = append(seg.Warnings, "invalid utf-8 bytes replaced with U+FFFD")
		}
		offset += dur
		segments = append(segments, seg)
	}

	s.log.Debug().
		Int("segments", len(segments)).
		Str("strategy", string(strategy)).
		Msg("segmented text")

	return segments
}

// resolveStrategy picks sentence or paragraph mode for adaptive input
func resolveStrategy(text string, strategy types.SegmentStrategy) types.SegmentStrategy {
	switch strategy {
	case types.StrategySentence, types.StrategyParagraph:
		return strategy
	}
	if countParagraphBreaks(text) >= 2 {
		return types.StrategyParagraph
	}
	return types.StrategySentence
}

func countParagraphBreaks(text string) int {
	breaks := 0
	run := 0
	for _, r := range text {
		if r == '\n' {
			run++
			continue
		}
		if run >= 2 {
			breaks++
		}
		run = 0
	}
	if run >= 2 {
		breaks++
	}
	return breaks
}

// splitSentences produces contiguous covering spans that end after a run of
// terminal punctuation.
func splitSentences(runes []rune) []span {
	spans := make([]span, 0)
	start := 0
	i := 0
	for i < len(runes) {
		if terminators[runes[i]] {
			// Collapse consecutive terminators into one boundary.
			for i < len(runes) && terminators[runes[i]] {
				i++
			}
			spans = append(spans, span{start, i})
			start = i
			continue
		}
		i++
	}
	if start < len(runes) {
		spans = append(spans, span{start, len(runes)})
	}
	return spans
}

// splitParagraphs produces contiguous covering spans split on runs of two or
// more newline characters. The newline run is emitted as its own span so the
// whitespace absorption pass records it as a separator.
func splitParagraphs(runes []rune) []span {
	spans := make([]span, 0)
	start := 0
	i := 0
	for i < len(runes) {
		if runes[i] == '\n' {
			runStart := i
			for i < len(runes) && runes[i] == '\n' {
				i++
			}
			if i-runStart >= 2 {
				if runStart > start {
					spans = append(spans, span{start, runStart})
				}
				spans = append(spans, span{runStart, i})
				start = i
			}
			continue
		}
		i++
	}
	if start < len(runes) {
		spans = append(spans, span{start, len(runes)})
	}
	return spans
}

// piece is one output segment: its text span plus the separator span that
// follows it in the original text.
type piece struct {
	text span
	sep  span
}

// absorbWhitespace turns raw covering spans into pieces, dropping
// whitespace-only spans into the preceding piece's separator so the original
// text can always be reconstructed. Leading whitespace of a span moves to the
// previous separator; document-leading whitespace stays with the first piece.
func absorbWhitespace(runes []rune, raw []span) []piece {
	pieces := make([]piece, 0, len(raw))
	carryStart := -1 // start of document-leading whitespace not yet attached

	for _, sp := range raw {
		if isWhitespaceSpan(runes, sp) {
			if len(pieces) > 0 {
				pieces[len(pieces)-1].sep.end = sp.end
			} else if carryStart < 0 {
				carryStart = sp.start
			}
			continue
		}

		start := sp.start
		if carryStart >= 0 {
			start = carryStart
			carryStart = -1
		} else if len(pieces) > 0 {
			// Shift leading whitespace into the previous separator.
			for start < sp.end && unicode.IsSpace(runes[start]) {
				start++
			}
			pieces[len(pieces)-1].sep.end = start
		}
		pieces = append(pieces, piece{
			text: span{start, sp.end},
			sep:  span{sp.end, sp.end},
		})
	}

	return pieces
}

func isWhitespaceSpan(runes []rune, sp span) bool {
	for i := sp.start; i < sp.end; i++ {
		if !unicode.IsSpace(runes[i]) {
			return false
		}
	}
	return true
}

// enforceChunkLimit sub-splits any piece longer than maxChunk runes: first by
// sentence inside the piece, then at the nearest whitespace before the limit,
// and as a last resort at the limit itself.
func enforceChunkLimit(runes []rune, pieces []piece, maxChunk int) []piece {
	out := make([]piece, 0, len(pieces))
	for _, p := range pieces {
		if p.text.end-p.text.start <= maxChunk {
			out = append(out, p)
			continue
		}

		sub := splitSentences(runes[p.text.start:p.text.end])
		rebased := make([]span, len(sub))
		for i, sp := range sub {
			rebased[i] = span{p.text.start + sp.start, p.text.start + sp.end}
		}
		subPieces := absorbWhitespace(runes, rebased)

		expanded := make([]piece, 0, len(subPieces))
		for _, sp := range subPieces {
			expanded = append(expanded, hardSplit(runes, sp, maxChunk)...)
		}
		// The parent's separator belongs after the last sub-piece.
		if len(expanded) > 0 {
			expanded[len(expanded)-1].sep.end = p.sep.end
		}
		out = append(out, expanded...)
	}
	return out
}

// hardSplit chops an oversize piece at whitespace boundaries before the limit
func hardSplit(runes []rune, p piece, maxChunk int) []piece {
	if p.text.end-p.text.start <= maxChunk {
		return []piece{p}
	}

	out := make([]piece, 0)
	start := p.text.start
	for p.text.end-start > maxChunk {
		cut := -1
		for i := start + maxChunk; i > start; i-- {
			if unicode.IsSpace(runes[i-1]) {
				cut = i
				break
			}
		}
		if cut <= start {
			cut = start + maxChunk
		}
		// Trailing whitespace at the cut becomes this chunk's separator.
		textEnd := cut
		for textEnd > start && unicode.IsSpace(runes[textEnd-1]) {
			textEnd--
		}
		sepEnd := cut
		for sepEnd < p.text.end && unicode.IsSpace(runes[sepEnd]) {
			sepEnd++
		}
		out = append(out, piece{text: span{start, textEnd}, sep: span{textEnd, sepEnd}})
		start = sepEnd
	}
	if start < p.text.end {
		out = append(out, piece{text: span{start, p.text.end}, sep: p.sep})
	} else if len(out) > 0 {
		out[len(out)-1].sep.end = p.sep.end
	}
	return out
}

// CountWords counts reading units in text. Other letters and digits count once
// per unbroken run, so both whitespace and punctuation end a word; CJK
// ideographs, kana and Hangul count one per rune, which keeps duration
// estimates sane for text without word spacing.
func CountWords(text string) int {
	words := 0
	inWord := false
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r) ||
			unicode.Is(unicode.Hiragana, r) ||
			unicode.Is(unicode.Katakana, r) ||
			unicode.Is(unicode.Hangul, r):
			words++
			inWord = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if !inWord {
				words++
				inWord = true
			}
		default:
			inWord = false
		}
	}
	return words
}
