package folio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Document is the single persisted portfolio record: ordered photo and
// video listings plus named site image slots (hero, about1, about2).
type Document struct {
	SiteImages map[string]string `json:"siteImages,omitempty"`
	Photos     []Photo           `json:"photos"`
	Videos     []Video           `json:"videos"`
}

// Photo is one gallery entry. Category holds one or more
// whitespace-separated tags; slice order is display order.
type Photo struct {
	Src      string `json:"src"`
	Thumb    string `json:"thumb,omitempty"`
	Category string `json:"category"`
	Alt      string `json:"alt,omitempty"`
}

// Video is one video entry. Src is a self-hosted file, VideoURL an
// external embed link; Src wins for playback when both are set.
type Video struct {
	Src      string `json:"src,omitempty"`
	VideoURL string `json:"video_url,omitempty"`
	Category string `json:"category"`
	Label    string `json:"label,omitempty"`
	Poster   string `json:"poster,omitempty"`
}

// PlaybackURL returns the URL a player should use for this video.
func (v Video) PlaybackURL() string {
	if v.Src != "" {
		return v.Src
	}
	return v.VideoURL
}

// Validate checks the document shape before any network call is made.
// Both listing arrays must be present (empty is fine).
func (d *Document) Validate() error {
	if d.Photos == nil || d.Videos == nil {
		return fmt.Errorf("%w: document must contain photos and videos arrays", ErrMalformed)
	}
	return nil
}

// Normalize replaces missing arrays with empty ones so consumers never
// see nil listings on documents read from storage.
func (d *Document) Normalize() {
	if d.Photos == nil {
		d.Photos = []Photo{}
	}
	if d.Videos == nil {
		d.Videos = []Video{}
	}
}

// EncodeDocument serializes the document to canonical pretty-printed
// JSON: two-space indentation, no HTML escaping, trailing newline. This
// is the exact byte form committed to the repository, so category labels
// and captions in non-ASCII scripts pass through untouched.
func EncodeDocument(d Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeDocument parses stored JSON into a Document, tolerating missing
// listing arrays by treating them as empty.
func DecodeDocument(data []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return Document{}, fmt.Errorf("decode document: %w", err)
	}
	d.Normalize()
	return d, nil
}

// Clone returns a deep copy safe to mutate without touching the original.
func (d Document) Clone() Document {
	out := Document{
		Photos: make([]Photo, len(d.Photos)),
		Videos: make([]Video, len(d.Videos)),
	}
	copy(out.Photos, d.Photos)
	copy(out.Videos, d.Videos)
	if d.SiteImages != nil {
		out.SiteImages = make(map[string]string, len(d.SiteImages))
		for k, v := range d.SiteImages {
			out.SiteImages[k] = v
		}
	}
	return out
}

// AppendPhoto adds a photo at the end of the display order.
func (d *Document) AppendPhoto(p Photo) {
	d.Photos = append(d.Photos, p)
}

// RemovePhotos deletes the photos at the given indices, preserving the
// order of the remainder. Out-of-range indices are ignored.
func (d *Document) RemovePhotos(indices ...int) {
	d.Photos = removeIndices(d.Photos, indices)
}

// MovePhoto relocates the photo at from to position to, shifting the
// records in between. Out-of-range arguments leave the document unchanged.
func (d *Document) MovePhoto(from, to int) {
	d.Photos = moveIndex(d.Photos, from, to)
}

// AppendVideo adds a video at the end of the display order.
func (d *Document) AppendVideo(v Video) {
	d.Videos = append(d.Videos, v)
}

// RemoveVideos deletes the videos at the given indices.
func (d *Document) RemoveVideos(indices ...int) {
	d.Videos = removeIndices(d.Videos, indices)
}

// MoveVideo relocates the video at from to position to.
func (d *Document) MoveVideo(from, to int) {
	d.Videos = moveIndex(d.Videos, from, to)
}

// SetSiteImage assigns a reference URL to a named site slot.
func (d *Document) SetSiteImage(slot, url string) {
	if d.SiteImages == nil {
		d.SiteImages = make(map[string]string)
	}
	d.SiteImages[slot] = url
}

func removeIndices[T any](items []T, indices []int) []T {
	if len(indices) == 0 {
		return items
	}
	drop := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(items) {
			drop[i] = struct{}{}
		}
	}
	kept := make([]T, 0, len(items))
	for i, it := range items {
		if _, ok := drop[i]; !ok {
			kept = append(kept, it)
		}
	}
	return kept
}

func moveIndex[T any](items []T, from, to int) []T {
	if from < 0 || from >= len(items) || to < 0 || to >= len(items) || from == to {
		return items
	}
	it := items[from]
	items = append(items[:from], items[from+1:]...)
	items = append(items[:to], append([]T{it}, items[to:]...)...)
	return items
}

// ParseCategories splits a photo/video category string into its tags.
func ParseCategories(category string) []string {
	return strings.Fields(category)
}

// HasCategory reports whether the category string contains the given tag.
func HasCategory(category, tag string) bool {
	for _, t := range ParseCategories(category) {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
