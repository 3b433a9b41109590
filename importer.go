package folio

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
)

const (
	maxThumbWidth  = 600
	jpegQuality    = 80
	maxImportBytes = 20 << 20 // 20MB

	// Social pages only expose their og:image to crawler user agents.
	crawlerUA = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

var ogImageRe = regexp.MustCompile(`<meta property="og:image" content="([^"]+)"`)

// Importer pulls a preview image out of an external page (an Instagram
// post, typically) and rehosts it on the media host, so imported shots
// get stable reference URLs like direct uploads do.
type Importer struct {
	media  *MediaClient
	client *http.Client
}

// NewImporter creates an Importer uploading through the given client.
func NewImporter(media *MediaClient, timeout time.Duration) *Importer {
	return &Importer{
		media:  media,
		client: &http.Client{Timeout: timeout},
	}
}

// ImportResult holds the rehosted asset URLs.
type ImportResult struct {
	URL   string `json:"url"`
	Thumb string `json:"thumb,omitempty"`
}

// ImportPage fetches pageURL, extracts its og:image and uploads it to
// the media host. A width-bounded JPEG thumbnail is generated and
// uploaded alongside; thumbnail failures are logged and leave Thumb
// empty rather than failing the import.
func (i *Importer) ImportPage(ctx context.Context, pageURL string) (ImportResult, error) {
	imageURL, err := i.findPreviewImage(ctx, pageURL)
	if err != nil {
		return ImportResult{}, err
	}

	uploaded, err := i.media.Upload(ctx, imageURL)
	if err != nil {
		return ImportResult{}, fmt.Errorf("rehost image: %w", err)
	}

	result := ImportResult{URL: uploaded.SecureURL}
	thumb, err := i.uploadThumb(ctx, imageURL)
	if err != nil {
		log.Printf("importer: thumbnail for %s failed: %v", pageURL, err)
		return result, nil
	}
	result.Thumb = thumb
	return result, nil
}

// findPreviewImage returns the og:image URL advertised by the page.
func (i *Importer) findPreviewImage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	req.Header.Set("User-Agent", crawlerUA)
	resp, err := i.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()
	html, err := io.ReadAll(io.LimitReader(resp.Body, maxImportBytes))
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}

	m := ogImageRe.FindSubmatch(html)
	if m == nil {
		return "", &UpstreamError{Status: http.StatusNotFound, Body: "no og:image found on page"}
	}
	return strings.ReplaceAll(string(m[1]), "&amp;", "&"), nil
}

// uploadThumb downloads the image, downscales it and uploads the JPEG
// as a base64 data URI.
func (i *Importer) uploadThumb(ctx context.Context, imageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	data, err := makeThumb(io.LimitReader(resp.Body, maxImportBytes))
	if err != nil {
		return "", err
	}
	uri := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)
	uploaded, err := i.media.Upload(ctx, uri)
	if err != nil {
		return "", err
	}
	return uploaded.SecureURL, nil
}

// makeThumb decodes an image, scales it down to maxThumbWidth if wider,
// and encodes it as JPEG.
func makeThumb(src io.Reader) ([]byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxThumbWidth {
		newH := h * maxThumbWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxThumbWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
