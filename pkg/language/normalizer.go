package language

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"xscraper/pkg/logger"
)

// DefaultMaxChunk is the largest piece of text sent in one translation request
const DefaultMaxChunk = 4000

var (
	bracketed     = regexp.MustCompile(`\[.*?\]`)
	parenthetical = regexp.MustCompile(`\(.*?\)`)
)

// Normalized is the outcome of normalizing one post text
type Normalized struct {
	Text       string
	Language   string
	Translated bool
}

// Normalizer detects the language of post text and translates non-target text.
// Translation failures never surface: the cleaned original is kept instead.
type Normalizer struct {
	detector   Detector
	translator Translator
	target     string
	maxChunk   int
	logger     logger.Logger
}

// NewNormalizer creates a normalizer. A nil translator disables translation.
func NewNormalizer(detector Detector, translator Translator, target string, maxChunk int, log logger.Logger) *Normalizer {
	if detector == nil {
		detector = NewDetector()
	}
	if target == "" {
		target = "en"
	}
	if maxChunk <= 0 {
		maxChunk = DefaultMaxChunk
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Normalizer{
		detector:   detector,
		translator: translator,
		target:     target,
		maxChunk:   maxChunk,
		logger:     log.WithField("component", "language"),
	}
}

// Normalize returns text unchanged when it is already in the target language,
// when its language is unknown, or when translation is disabled.
func (n *Normalizer) Normalize(ctx context.Context, text string) Normalized {
	lang := n.detector.Detect(text)
	out := Normalized{Text: text, Language: lang}
	if lang == "" || lang == n.target || n.translator == nil {
		return out
	}

	out.Text, out.Translated = n.Translate(ctx, text, lang)
	return out
}

// Translate cleans text and translates it into the target language in
// bounded chunks. Chunks that fail to translate are kept as they were. The
// second result reports whether at least one chunk came back translated.
func (n *Normalizer) Translate(ctx context.Context, text, from string) (string, bool) {
	cleaned := Clean(text)
	if cleaned == "" || n.translator == nil {
		return cleaned, false
	}

	start := time.Now()
	if utf8.RuneCountInString(cleaned) <= n.maxChunk {
		translated, err := n.translator.Translate(ctx, cleaned, from, n.target)
		logger.LogTranslation(n.logger, from, n.target, 1, time.Since(start), err)
		if err != nil || translated == "" {
			return cleaned, false
		}
		return translated, true
	}

	chunks := SplitChunks(cleaned, n.maxChunk)
	out := make([]string, len(chunks))
	var failed error
	var ok bool
	for i, chunk := range chunks {
		translated, err := n.translator.Translate(ctx, chunk, from, n.target)
		if err != nil || translated == "" {
			if err != nil {
				failed = err
			}
			out[i] = chunk
			continue
		}
		out[i] = translated
		ok = true
	}
	logger.LogTranslation(n.logger, from, n.target, len(chunks), time.Since(start), failed)
	return strings.Join(out, " "), ok
}

// Clean collapses whitespace and strips bracketed and parenthesised fragments
func Clean(text string) string {
	s := collapse(text)
	s = bracketed.ReplaceAllString(s, "")
	s = parenthetical.ReplaceAllString(s, "")
	return collapse(s)
}

// SplitChunks packs whole sentences into chunks of at most max runes. A
// sentence longer than max is packed word by word, and a word longer than max
// is cut. Joining the chunks with single spaces restores the input when it has
// no repeated whitespace.
func SplitChunks(text string, max int) []string {
	if max <= 0 {
		max = DefaultMaxChunk
	}

	var chunks []string
	var current string
	add := func(piece string) {
		switch {
		case current == "":
			current = piece
		case runeLen(current)+1+runeLen(piece) <= max:
			current += " " + piece
		default:
			chunks = append(chunks, current)
			current = piece
		}
	}

	for _, sentence := range splitSentences(text) {
		if runeLen(sentence) <= max {
			add(sentence)
			continue
		}
		for _, word := range strings.Fields(sentence) {
			for runeLen(word) > max {
				if current != "" {
					chunks = append(chunks, current)
					current = ""
				}
				head, tail := splitAtRune(word, max)
				chunks = append(chunks, head)
				word = tail
			}
			if word != "" {
				add(word)
			}
		}
	}
	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

// splitSentences breaks text at whitespace that follows . ! or ?
func splitSentences(text string) []string {
	var sentences []string
	var prev rune
	start := 0
	inGap := false

	for i, r := range text {
		if unicode.IsSpace(r) {
			if !inGap && (prev == '.' || prev == '!' || prev == '?') {
				if s := strings.TrimSpace(text[start:i]); s != "" {
					sentences = append(sentences, s)
				}
				inGap = true
			}
		} else if inGap {
			start = i
			inGap = false
		}
		if !inGap || !unicode.IsSpace(r) {
			prev = r
		}
	}
	if !inGap {
		if s := strings.TrimSpace(text[start:]); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func splitAtRune(s string, n int) (string, string) {
	count := 0
	for i := range s {
		if count == n {
			return s[:i], s[i:]
		}
		count++
	}
	return s, ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
