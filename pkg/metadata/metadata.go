package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"xscraper/pkg/models"
	"xscraper/pkg/storage"
)

const (
	ProfileFile = "profile.json"
	TweetsFile  = "tweets.json"
	SummaryFile = "summary.json"
)

// TweetsDocument is the on-disk form of one posts run
type TweetsDocument struct {
	Username   string              `json:"username"`
	Count      int                 `json:"count"`
	ExportedAt time.Time           `json:"exported_at"`
	Tweets     []models.PostRecord `json:"tweets"`
}

// Writer exports scrape results under <root>/<username>/. Every file is
// replaced atomically so a reader never sees a half-written document.
type Writer struct {
	root string
	now  func() time.Time
}

// NewWriter creates a writer rooted at dir
func NewWriter(dir string) *Writer {
	return &Writer{root: dir, now: time.Now}
}

// Dir returns the export directory of username
func (w *Writer) Dir(username string) string {
	return filepath.Join(w.root, username)
}

// SaveProfile writes profile.json and returns its path
func (w *Writer) SaveProfile(username string, rec models.ProfileRecord) (string, error) {
	return w.write(username, ProfileFile, rec)
}

// SaveTweets writes tweets.json and returns its path. A nil slice is written
// as an empty list.
func (w *Writer) SaveTweets(username string, posts []models.PostRecord) (string, error) {
	if posts == nil {
		posts = []models.PostRecord{}
	}
	doc := TweetsDocument{
		Username:   username,
		Count:      len(posts),
		ExportedAt: w.now().UTC(),
		Tweets:     posts,
	}
	return w.write(username, TweetsFile, doc)
}

// SaveSummary writes the run summary and returns its path
func (w *Writer) SaveSummary(username string, summary interface{}) (string, error) {
	return w.write(username, SummaryFile, summary)
}

func (w *Writer) write(username, name string, v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	data = append(data, '\n')

	path := filepath.Join(w.Dir(username), name)
	if _, err := storage.AtomicWrite(path, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return path, nil
}

// LoadProfile reads a profile.json written by SaveProfile
func LoadProfile(path string) (*models.ProfileRecord, error) {
	var rec models.ProfileRecord
	if err := load(path, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// LoadTweets reads a tweets.json written by SaveTweets
func LoadTweets(path string) (*TweetsDocument, error) {
	var doc TweetsDocument
	if err := load(path, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func load(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read metadata file: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return nil
}

// Excerpt returns text on one line, cut to maxRunes with a trailing ellipsis
func Excerpt(text string, maxRunes int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if maxRunes <= 3 || len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes-3]) + "..."
}

// CleanTemp removes temporary files left behind by interrupted writes
func CleanTemp(directory string) (int, error) {
	removed := 0
	err := filepath.Walk(directory, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".tmp") {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove temporary file %s: %w", path, err)
		}
		removed++
		return nil
	})
	return removed, err
}
