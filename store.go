package folio

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes callers branch on.
var (
	// ErrUnauthorized means the caller credential was missing or invalid.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrMisconfigured means a required secret or setting is not provisioned.
	ErrMisconfigured = errors.New("server misconfigured")
	// ErrMalformed means the input failed shape validation before any
	// network call was attempted.
	ErrMalformed = errors.New("malformed input")
)

// ConflictError reports a conditional write rejected because the supplied
// version token no longer matches the document's current version.
type ConflictError struct {
	Status  int    // upstream status that signalled the conflict
	Message string // upstream error text, if any
}

func (e *ConflictError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("version conflict (status %d)", e.Status)
	}
	return fmt.Sprintf("version conflict (status %d): %s", e.Status, e.Message)
}

// IsConflict reports whether err is a version conflict at any wrap depth.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// UpstreamError carries an unexpected hosting-system or media-host
// response through to the caller without retrying.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream failure (status %d): %s", e.Status, e.Body)
}

// DocumentStore provides read and conditional-write access to the single
// portfolio document. Implementations are stateless between calls; the
// version token returned by Fetch or Write is the caller's baseline for
// the next conditional write.
type DocumentStore interface {
	// Fetch returns the current document and its version token.
	Fetch(ctx context.Context) (Document, string, error)
	// Write commits doc with the given message if sha still matches the
	// document's current version. It returns the new version token, or a
	// *ConflictError when the token is stale.
	Write(ctx context.Context, doc Document, message, sha string) (string, error)
}

// maxWriteRetries bounds the automatic conflict-retry loop: up to this
// many refetch-and-retry rounds after the initial attempt.
const maxWriteRetries = 2

// Save runs one conditional write against the store with bounded
// optimistic-concurrency retry. On a version conflict it refetches the
// current token and resubmits the caller's document unchanged: full
// last-writer-wins at document granularity, no field-level merge. Any
// non-conflict error fails immediately. After maxWriteRetries conflicts
// the last conflict is surfaced and no further attempts are made.
func Save(ctx context.Context, store DocumentStore, doc Document, message, sha string) (string, error) {
	if err := doc.Validate(); err != nil {
		return "", err
	}
	for attempt := 0; ; attempt++ {
		newSha, err := store.Write(ctx, doc, message, sha)
		if err == nil {
			return newSha, nil
		}
		if !IsConflict(err) || attempt >= maxWriteRetries {
			return "", err
		}
		// Stale token: pick up the current version and resubmit the
		// caller's content intact.
		_, currentSha, ferr := store.Fetch(ctx)
		if ferr != nil {
			return "", fmt.Errorf("refetch after conflict: %w", ferr)
		}
		sha = currentSha
	}
}
