package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// ProfileRecord is a snapshot of a profile page taken once per scrape invocation.
// Counts are best effort; zero means unknown.
type ProfileRecord struct {
	Username        string     `json:"username"`
	DisplayName     string     `json:"display_name"`
	Bio             string     `json:"bio,omitempty"`
	Location        string     `json:"location,omitempty"`
	Website         string     `json:"website,omitempty"`
	ProfileImageURL string     `json:"profile_image_url,omitempty"`
	ProfileImage    string     `json:"profile_image_path,omitempty"`
	BannerImageURL  string     `json:"banner_image_url,omitempty"`
	BannerImage     string     `json:"banner_image_path,omitempty"`
	Followers       int64      `json:"followers"`
	Following       int64      `json:"following"`
	TweetsCount     int64      `json:"tweets_count"`
	JoinedDate      *time.Time `json:"joined_date,omitempty"`
	Verified        bool       `json:"verified"`
	Protected       bool       `json:"protected"`
	ScrapedAt       time.Time  `json:"scraped_at"`
}

// PostRecord is one accepted post. It is never modified after it has been
// appended to a scrape result; slices are copied on construction.
type PostRecord struct {
	ID             string    `json:"id"`
	Text           string    `json:"text"`
	NormalizedText string    `json:"normalized_text"`
	Language       string    `json:"language,omitempty"`
	MediaURLs      []string  `json:"media_urls"`
	MediaPaths     []string  `json:"media_paths"`
	Hashtags       []string  `json:"hashtags"`
	URLs           []string  `json:"urls"`
	PostedAt       time.Time `json:"posted_at"`
	// PostedAtEstimated is set when the page had no parsable timestamp and scrape time was used
	PostedAtEstimated bool `json:"posted_at_estimated,omitempty"`
}

// MediaAsset is a remote media file resolved to a content-addressed local path
type MediaAsset struct {
	SourceURL string `json:"source_url"`
	LocalPath string `json:"local_path"`
	Owner     string `json:"owner"`
}

// PostID derives the record identifier from the whitespace-collapsed text and
// the posted-at timestamp. Two posts with an identical opening but different
// bodies or times get different identifiers. A zero postedAt hashes the text
// alone, which keeps posts without a page timestamp stable across scrapes.
func PostID(text string, postedAt time.Time) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(strings.Fields(text), " ")))
	if !postedAt.IsZero() {
		h.Write([]byte{'|'})
		h.Write([]byte(postedAt.UTC().Format(time.RFC3339)))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// RecordID is the identifier of a post. An estimated postedAt is scrape time
// and does not take part in the identifier.
func RecordID(text string, postedAt time.Time, estimated bool) string {
	if estimated {
		return PostID(text, time.Time{})
	}
	return PostID(text, postedAt)
}

// NewPostRecord builds an immutable record, copying every slice it is given
func NewPostRecord(text, normalized, language string, mediaURLs, mediaPaths, hashtags, urls []string, postedAt time.Time, estimated bool) PostRecord {
	return PostRecord{
		ID:                RecordID(text, postedAt, estimated),
		Text:              text,
		NormalizedText:    normalized,
		Language:          language,
		MediaURLs:         cloneStrings(mediaURLs),
		MediaPaths:        cloneStrings(mediaPaths),
		Hashtags:          cloneStrings(hashtags),
		URLs:              cloneStrings(urls),
		PostedAt:          postedAt,
		PostedAtEstimated: estimated,
	}
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
