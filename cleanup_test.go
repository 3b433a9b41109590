package folio

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestMedia(t *testing.T, handler http.HandlerFunc) *MediaClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	m := NewMediaClient("demo", "key123", NewSigner("apisecret"), 5*time.Second)
	m.BaseURL = srv.URL
	return m
}

func TestReaperDeletesInBackground(t *testing.T) {
	var calls atomic.Int32
	media := newTestMedia(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"result":"ok"}`)
	})

	r := NewReaper(media, 8)
	id := r.Enqueue("portfolio/one")
	if id == "" {
		t.Fatal("Enqueue should return a job id")
	}

	select {
	case res := <-r.Results():
		if res.ID != id || res.PublicID != "portfolio/one" {
			t.Errorf("unexpected result %+v", res)
		}
		if res.Err != nil || res.Status != http.StatusOK {
			t.Errorf("expected clean deletion, got %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no result observed")
	}
	if calls.Load() != 1 {
		t.Errorf("destroy calls = %d, want 1", calls.Load())
	}
	r.Stop()
}

func TestReaperFailureStaysInBackground(t *testing.T) {
	media := newTestMedia(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	})

	r := NewReaper(media, 8)
	r.Enqueue("portfolio/two")

	select {
	case res := <-r.Results():
		// A failing destroy is reported, never raised.
		if res.Status != http.StatusBadGateway {
			t.Errorf("status = %d, want 502", res.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no result observed")
	}
	r.Stop()
}

func TestReaperStopDrainsQueue(t *testing.T) {
	var calls atomic.Int32
	media := newTestMedia(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, `{"result":"ok"}`)
	})

	r := NewReaper(media, 8)
	for i := 0; i < 5; i++ {
		r.Enqueue(fmt.Sprintf("portfolio/%d", i))
	}
	r.Stop()

	if calls.Load() != 5 {
		t.Errorf("destroy calls = %d, want all 5 drained before Stop returns", calls.Load())
	}
}
