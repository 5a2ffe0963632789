package language

import (
	"strings"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
)

const (
	detectPrefix    = 500
	detectMinLength = 3
)

// Detector returns the ISO 639-1 code of the dominant language of text, or ""
// when the text is too short or the language cannot be identified.
type Detector interface {
	Detect(text string) string
}

// WhatlangDetector detects language with whatlanggo on a bounded prefix, so
// detection cost does not grow with text length.
type WhatlangDetector struct {
	// MinConfidence below which the result is discarded; zero accepts any guess
	MinConfidence float64
}

// NewDetector returns the default detector
func NewDetector() *WhatlangDetector {
	return &WhatlangDetector{}
}

func (d *WhatlangDetector) Detect(text string) string {
	sample := DetectionSample(text)
	if sample == "" {
		return ""
	}

	info := whatlanggo.Detect(sample)
	if info.Confidence < d.MinConfidence {
		return ""
	}
	return info.Lang.Iso6391()
}

// DetectionSample is the whitespace-collapsed first 500 characters of text,
// or "" when the collapsed text is shorter than 3 characters.
func DetectionSample(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(collapsed) < detectMinLength {
		return ""
	}
	return truncateRunes(collapsed, detectPrefix)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
