package folio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestImportPageRehostsPreviewImage(t *testing.T) {
	imgServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBytes(t, 700, 100))
	}))
	t.Cleanup(imgServer.Close)

	pageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "Googlebot") {
			t.Errorf("page fetched without crawler user agent: %q", ua)
		}
		fmt.Fprintf(w, `<html><head><meta property="og:image" content="%s/shot.png?sz=big&amp;x=1"/></head></html>`, imgServer.URL)
	}))
	t.Cleanup(pageServer.Close)

	var uploads []string
	media := newTestMedia(t, func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		uploads = append(uploads, r.PostFormValue("file"))
		json.NewEncoder(w).Encode(map[string]string{
			"secure_url": fmt.Sprintf("https://res.cloudinary.com/demo/image/upload/v1/rehosted-%d.jpg", len(uploads)),
			"public_id":  fmt.Sprintf("rehosted-%d", len(uploads)),
		})
	})

	imp := NewImporter(media, 5*time.Second)
	res, err := imp.ImportPage(context.Background(), pageServer.URL)
	if err != nil {
		t.Fatalf("ImportPage failed: %v", err)
	}
	if res.URL != "https://res.cloudinary.com/demo/image/upload/v1/rehosted-1.jpg" {
		t.Errorf("URL = %q", res.URL)
	}
	if res.Thumb != "https://res.cloudinary.com/demo/image/upload/v1/rehosted-2.jpg" {
		t.Errorf("Thumb = %q", res.Thumb)
	}

	if len(uploads) != 2 {
		t.Fatalf("uploads = %d, want full image and thumbnail", len(uploads))
	}
	// The og:image URL had an HTML-escaped ampersand.
	if uploads[0] != imgServer.URL+"/shot.png?sz=big&x=1" {
		t.Errorf("full upload file = %q", uploads[0])
	}
	if !strings.HasPrefix(uploads[1], "data:image/jpeg;base64,") {
		t.Errorf("thumbnail should be uploaded as a JPEG data URI, got %q", uploads[1][:min(len(uploads[1]), 40)])
	}
}

func TestImportPageThumbFailureIsBestEffort(t *testing.T) {
	imgServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not an image")
	}))
	t.Cleanup(imgServer.Close)

	pageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<meta property="og:image" content="%s/x.jpg"/>`, imgServer.URL)
	}))
	t.Cleanup(pageServer.Close)

	media := newTestMedia(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"secure_url": "https://res.cloudinary.com/demo/image/upload/v1/full.jpg",
			"public_id":  "full",
		})
	})

	imp := NewImporter(media, 5*time.Second)
	res, err := imp.ImportPage(context.Background(), pageServer.URL)
	if err != nil {
		t.Fatalf("import should survive a thumbnail failure: %v", err)
	}
	if res.URL == "" || res.Thumb != "" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestImportPageNoPreviewImage(t *testing.T) {
	pageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>nothing here</title></head></html>`)
	}))
	t.Cleanup(pageServer.Close)

	media := newTestMedia(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no upload should happen without an og:image")
	})

	imp := NewImporter(media, 5*time.Second)
	_, err := imp.ImportPage(context.Background(), pageServer.URL)
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if ue.Status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", ue.Status)
	}
}

func TestMakeThumbDownscalesWideImages(t *testing.T) {
	data, err := makeThumb(bytes.NewReader(pngBytes(t, 1200, 300)))
	if err != nil {
		t.Fatalf("makeThumb failed: %v", err)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("thumb does not decode: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("format = %q, want jpeg", format)
	}
	if got := img.Bounds().Dx(); got != maxThumbWidth {
		t.Errorf("width = %d, want %d", got, maxThumbWidth)
	}
	if got := img.Bounds().Dy(); got != 150 {
		t.Errorf("height = %d, want 150 (aspect preserved)", got)
	}
}
