package language

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"xscraper/pkg/config"
	"xscraper/pkg/logger"
)

type fixedDetector string

func (d fixedDetector) Detect(string) string { return string(d) }

// countingTranslator upper-cases its input and records every call
type countingTranslator struct {
	mu     sync.Mutex
	calls  []string
	failOn map[int]bool
}

func (c *countingTranslator) Translate(_ context.Context, text, from, to string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := len(c.calls)
	c.calls = append(c.calls, text)
	if c.failOn[idx] {
		return "", errors.New("translation unavailable")
	}
	return strings.ToUpper(text), nil
}

func (c *countingTranslator) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func longText(sentences int) string {
	var b strings.Builder
	for i := 0; i < sentences; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString("esta es una frase bastante larga que se repite muchas veces para llenar el texto.")
	}
	return b.String()
}

func TestDetectionSample(t *testing.T) {
	assert.Equal(t, "", DetectionSample(""))
	assert.Equal(t, "", DetectionSample(" ab "))
	assert.Equal(t, "a b", DetectionSample("  a b "))
	assert.Equal(t, "a b c", DetectionSample(" a  b\n c "))

	long := strings.Repeat("word ", 300)
	sample := DetectionSample(long)
	assert.Equal(t, 500, utf8.RuneCountInString(sample))
}

func TestDetectorShortText(t *testing.T) {
	d := NewDetector()
	assert.Equal(t, "", d.Detect(""))
	assert.Equal(t, "", d.Detect("hi"))
}

func TestDetectorEnglish(t *testing.T) {
	d := NewDetector()
	lang := d.Detect("The weather today is wonderful and I am going for a long walk in the park with my friends before dinner")
	assert.Equal(t, "en", lang)
}

func TestClean(t *testing.T) {
	assert.Equal(t, "hello world", Clean("  hello [note]  (aside) world \n"))
	assert.Equal(t, "", Clean("[only]"))
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("One. Two!  Three? Four")
	assert.Equal(t, []string{"One.", "Two!", "Three?", "Four"}, got)
	assert.Equal(t, []string{"v1.2 stays whole."}, splitSentences("v1.2 stays whole."))
}

func TestSplitChunksBounds(t *testing.T) {
	text := longText(120)
	require.Greater(t, utf8.RuneCountInString(text), 4000)

	chunks := SplitChunks(text, 4000)
	require.GreaterOrEqual(t, len(chunks), 2)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 4000)
	}
	assert.Equal(t, text, strings.Join(chunks, " "))
}

func TestSplitChunksWordFallback(t *testing.T) {
	sentence := strings.TrimSpace(strings.Repeat("palabra ", 30))
	chunks := SplitChunks(sentence, 50)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 50)
	}
	assert.Equal(t, sentence, strings.Join(chunks, " "))

	huge := strings.Repeat("x", 120)
	chunks = SplitChunks(huge, 50)
	assert.Equal(t, []string{strings.Repeat("x", 50), strings.Repeat("x", 50), strings.Repeat("x", 20)}, chunks)
}

func TestNormalizeSkipsTargetLanguage(t *testing.T) {
	tr := &countingTranslator{}
	n := NewNormalizer(fixedDetector("en"), tr, "en", 0, nil)

	out := n.Normalize(context.Background(), "already english [x]")
	assert.Equal(t, "already english [x]", out.Text)
	assert.Equal(t, "en", out.Language)
	assert.False(t, out.Translated)
	assert.Empty(t, tr.Calls())
}

func TestNormalizeUnknownLanguage(t *testing.T) {
	tr := &countingTranslator{}
	n := NewNormalizer(fixedDetector(""), tr, "en", 0, nil)

	out := n.Normalize(context.Background(), "?!")
	assert.Equal(t, "?!", out.Text)
	assert.Empty(t, tr.Calls())
}

func TestNormalizeShortTextSingleCall(t *testing.T) {
	tr := &countingTranslator{}
	n := NewNormalizer(fixedDetector("es"), tr, "en", 0, nil)

	out := n.Normalize(context.Background(), "hola  mundo (saludo)")
	assert.True(t, out.Translated)
	assert.Equal(t, "es", out.Language)
	assert.Equal(t, "HOLA MUNDO", out.Text)
	assert.Len(t, tr.Calls(), 1)
}

func TestNormalizeLongTextChunksInOrder(t *testing.T) {
	tr := &countingTranslator{}
	n := NewNormalizer(fixedDetector("es"), tr, "en", 0, nil)
	text := longText(120)

	out := n.Normalize(context.Background(), text)

	calls := tr.Calls()
	require.GreaterOrEqual(t, len(calls), 2)
	for _, c := range calls {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 4000)
	}
	assert.Equal(t, strings.ToUpper(text), out.Text)
}

func TestTranslateKeepsFailedChunk(t *testing.T) {
	tr := &countingTranslator{failOn: map[int]bool{0: true}}
	log := logger.NewTestLogger()
	n := NewNormalizer(fixedDetector("es"), tr, "en", 0, log)
	text := longText(120)

	out, translated := n.Translate(context.Background(), text, "es")

	assert.True(t, translated)
	chunks := SplitChunks(text, DefaultMaxChunk)
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.True(t, strings.HasPrefix(out, chunks[0]))
	assert.True(t, strings.HasSuffix(out, strings.ToUpper(chunks[len(chunks)-1])))
	assert.True(t, log.HasMessage("Translation failed, keeping original text"))
}

func TestTranslateSingleFailureKeepsCleaned(t *testing.T) {
	tr := &countingTranslator{failOn: map[int]bool{0: true}}
	n := NewNormalizer(fixedDetector("es"), tr, "en", 0, nil)

	out, translated := n.Translate(context.Background(), "hola [1] mundo", "es")
	assert.Equal(t, "hola mundo", out)
	assert.False(t, translated)
}

func TestNormalizeNotTranslatedWhenEveryChunkFails(t *testing.T) {
	text := longText(120)
	chunks := SplitChunks(text, DefaultMaxChunk)
	require.GreaterOrEqual(t, len(chunks), 2)
	failOn := make(map[int]bool, len(chunks))
	for i := range chunks {
		failOn[i] = true
	}
	n := NewNormalizer(fixedDetector("es"), &countingTranslator{failOn: failOn}, "en", 0, nil)

	out := n.Normalize(context.Background(), text)
	assert.False(t, out.Translated)
	assert.Equal(t, "es", out.Language)
	assert.Equal(t, Clean(text), out.Text)

	n = NewNormalizer(fixedDetector("es"), &countingTranslator{failOn: map[int]bool{0: true}}, "en", 0, nil)
	short := n.Normalize(context.Background(), "hola mundo")
	assert.False(t, short.Translated)
	assert.Equal(t, "hola mundo", short.Text)
}

func TestParseGTXResponse(t *testing.T) {
	body := []byte(`[[["Hello ","Hola ",null,null,10],["world","mundo",null,null,10]],null,"es"]`)
	got, ok := ParseGTXResponse(body)
	require.True(t, ok)
	assert.Equal(t, "Hello world", got)

	_, ok = ParseGTXResponse([]byte(`{"error":"bad"}`))
	assert.False(t, ok)

	_, ok = ParseGTXResponse([]byte(`[[[null,"x"]]]`))
	assert.False(t, ok)
}

func TestHTTPTranslator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("client") != "gtx" || q.Get("tl") != "en" || q.Get("sl") != "auto" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`[[["` + strings.ToUpper(q.Get("q")) + `","x"]]]`))
	}))
	defer srv.Close()

	cfg := config.DefaultConfig().Translate
	cfg.Endpoint = srv.URL
	cfg.RequestsPerSecond = 0
	cfg.RetryAttempts = 1

	tr := NewHTTPTranslator(cfg, "test-agent", nil)
	got, err := tr.Translate(context.Background(), "hola", "", "en")
	require.NoError(t, err)
	assert.Equal(t, "HOLA", got)
}

func TestHTTPTranslatorServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	cfg := config.DefaultConfig().Translate
	cfg.Endpoint = srv.URL
	cfg.RequestsPerSecond = 0
	cfg.RetryAttempts = 1

	tr := NewHTTPTranslator(cfg, "", nil)
	_, err := tr.Translate(context.Background(), "hola", "es", "en")
	assert.Error(t, err)
}
