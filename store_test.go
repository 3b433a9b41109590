package folio

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

// fakeStore scripts Write outcomes and records the call sequence. With
// conditional set it enforces real compare-and-set semantics instead of
// scripted errors.
type fakeStore struct {
	doc Document
	sha string

	conditional bool
	writeErrs   []error // consumed per attempt; nil means success
	writes      int
	fetches     int
	writtenDoc  Document
	writtenSha  []string
	fetchErr    error
}

func (f *fakeStore) Fetch(ctx context.Context) (Document, string, error) {
	f.fetches++
	if f.fetchErr != nil {
		return Document{}, "", f.fetchErr
	}
	return f.doc, f.sha, nil
}

func (f *fakeStore) Write(ctx context.Context, doc Document, message, sha string) (string, error) {
	f.writes++
	f.writtenDoc = doc
	f.writtenSha = append(f.writtenSha, sha)
	var err error
	if len(f.writeErrs) > 0 {
		err, f.writeErrs = f.writeErrs[0], f.writeErrs[1:]
	}
	if err != nil {
		return "", err
	}
	if f.conditional && sha != f.sha {
		return "", &ConflictError{Status: http.StatusConflict, Message: "sha does not match"}
	}
	f.doc = doc
	f.sha = f.sha + "'"
	return f.sha, nil
}

func emptyDoc() Document {
	return Document{Photos: []Photo{}, Videos: []Video{}}
}

func TestSaveSucceedsFirstAttempt(t *testing.T) {
	store := &fakeStore{doc: emptyDoc(), sha: "abc"}

	newSha, err := Save(context.Background(), store, emptyDoc(), "update", "abc")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if newSha == "abc" {
		t.Error("new token should differ from the supplied one")
	}
	if store.writes != 1 {
		t.Errorf("writes = %d, want 1", store.writes)
	}
	if store.fetches != 0 {
		t.Errorf("fetches = %d, want 0 (no conflict, no refetch)", store.fetches)
	}
}

func TestSaveRetriesOnceOnStaleToken(t *testing.T) {
	store := &fakeStore{
		doc:       emptyDoc(),
		sha:       "def",
		writeErrs: []error{&ConflictError{Status: http.StatusConflict}},
	}

	doc := emptyDoc()
	doc.AppendPhoto(Photo{Src: "https://cdn.example/a.jpg", Category: "portrait"})

	newSha, err := Save(context.Background(), store, doc, "update", "abc")
	if err != nil {
		t.Fatalf("Save should succeed on the retried attempt: %v", err)
	}
	if store.writes != 2 {
		t.Errorf("writes = %d, want 2", store.writes)
	}
	if store.fetches != 1 {
		t.Errorf("fetches = %d, want exactly 1 internal refetch", store.fetches)
	}
	if store.writtenSha[1] != "def" {
		t.Errorf("retried write used sha %q, want refreshed %q", store.writtenSha[1], "def")
	}
	if newSha == "" {
		t.Error("expected a new token from the retried write")
	}
}

func TestSaveGivesUpAfterRetryBound(t *testing.T) {
	conflict := func() error {
		return &ConflictError{Status: http.StatusUnprocessableEntity, Message: "sha does not match"}
	}
	store := &fakeStore{
		doc:       emptyDoc(),
		sha:       "zzz",
		writeErrs: []error{conflict(), conflict(), conflict(), conflict()},
	}

	_, err := Save(context.Background(), store, emptyDoc(), "update", "abc")
	if !IsConflict(err) {
		t.Fatalf("expected conflict error after exhausted retries, got %v", err)
	}
	// 1 initial attempt + 2 retries, then stop.
	if store.writes != 3 {
		t.Errorf("writes = %d, want 3 total attempts", store.writes)
	}
	if store.fetches != 2 {
		t.Errorf("fetches = %d, want 2", store.fetches)
	}
}

func TestSaveDoesNotRetryHardFailures(t *testing.T) {
	store := &fakeStore{
		doc:       emptyDoc(),
		sha:       "abc",
		writeErrs: []error{&UpstreamError{Status: http.StatusBadGateway, Body: "boom"}},
	}

	_, err := Save(context.Background(), store, emptyDoc(), "update", "abc")
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if store.writes != 1 {
		t.Errorf("writes = %d, want 1 (no retry on hard failure)", store.writes)
	}
	if store.fetches != 0 {
		t.Errorf("fetches = %d, want 0", store.fetches)
	}
}

func TestSaveRejectsMalformedDocumentBeforeWriting(t *testing.T) {
	store := &fakeStore{doc: emptyDoc(), sha: "abc"}

	_, err := Save(context.Background(), store, Document{Photos: []Photo{}}, "update", "abc")
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected malformed input error, got %v", err)
	}
	if store.writes != 0 || store.fetches != 0 {
		t.Error("no store call should happen for malformed input")
	}
}

func TestSaveSurfacesRefetchFailure(t *testing.T) {
	store := &fakeStore{
		doc:       emptyDoc(),
		sha:       "def",
		writeErrs: []error{&ConflictError{Status: http.StatusConflict}},
		fetchErr:  &UpstreamError{Status: http.StatusInternalServerError, Body: "down"},
	}

	_, err := Save(context.Background(), store, emptyDoc(), "update", "abc")
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected the refetch failure to surface, got %v", err)
	}
	if store.writes != 1 {
		t.Errorf("writes = %d, want 1", store.writes)
	}
}

// Writer A and writer B both start from token "abc". B lands first; A's
// conditional write conflicts, refetches, and overwrites B's content
// wholesale. Losing B's changes is the documented last-writer-wins
// policy, asserted here on purpose.
func TestSaveLastWriterWins(t *testing.T) {
	store := &fakeStore{doc: emptyDoc(), sha: "abc", conditional: true}

	docB := emptyDoc()
	docB.AppendPhoto(Photo{Src: "https://cdn.example/b.jpg", Category: "editorial"})
	if _, err := Save(context.Background(), store, docB, "B adds photo", "abc"); err != nil {
		t.Fatalf("writer B failed: %v", err)
	}

	docA := emptyDoc()
	docA.AppendPhoto(Photo{Src: "https://cdn.example/a.jpg", Category: "portrait"})
	newSha, err := Save(context.Background(), store, docA, "A adds photo", "abc")
	if err != nil {
		t.Fatalf("writer A should succeed after conflict retry: %v", err)
	}
	if newSha == "" {
		t.Fatal("writer A should get a fresh token")
	}

	final, _, err := store.Fetch(context.Background())
	if err != nil {
		t.Fatalf("final fetch failed: %v", err)
	}
	if len(final.Photos) != 1 || final.Photos[0].Src != "https://cdn.example/a.jpg" {
		t.Errorf("final document = %+v, want only writer A's photo (B's edit clobbered)", final.Photos)
	}
}
