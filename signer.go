package folio

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"
)

// Signer issues time-boxed signatures that let a client talk to the
// media host directly without ever seeing the API secret. The host
// recomputes the digest over the same canonical parameter string plus
// the shared secret and checks timestamp freshness on its side; nothing
// is enforced or stored locally.
type Signer struct {
	secret string

	// now is swappable in tests.
	now func() time.Time
}

// NewSigner creates a Signer around the media host's API secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: secret, now: time.Now}
}

// Configured reports whether the shared secret is provisioned.
func (s *Signer) Configured() bool {
	return s.secret != ""
}

// Signature is an upload authorization: valid for the media host's own
// timestamp-freshness window, scoped to the signed parameters only.
type Signature struct {
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
}

// SignUpload authorizes a plain upload with no extra transform
// parameters: the canonical string is just the timestamp, so any file
// can be uploaded within the timestamp window.
func (s *Signer) SignUpload() (Signature, error) {
	ts := s.now().Unix()
	return s.signUploadAt(ts)
}

func (s *Signer) signUploadAt(ts int64) (Signature, error) {
	if !s.Configured() {
		return Signature{}, fmt.Errorf("%w: media API secret missing", ErrMisconfigured)
	}
	return Signature{Signature: s.digest(fmt.Sprintf("timestamp=%d", ts)), Timestamp: ts}, nil
}

// SignDestroy authorizes deletion of one specific asset. Unlike the
// upload signature the asset ID is part of the canonical string, so the
// authorization binds to that asset alone.
func (s *Signer) SignDestroy(publicID string) (Signature, error) {
	ts := s.now().Unix()
	return s.signDestroyAt(publicID, ts)
}

func (s *Signer) signDestroyAt(publicID string, ts int64) (Signature, error) {
	if !s.Configured() {
		return Signature{}, fmt.Errorf("%w: media API secret missing", ErrMisconfigured)
	}
	canonical := fmt.Sprintf("public_id=%s&timestamp=%d", publicID, ts)
	return Signature{Signature: s.digest(canonical), Timestamp: ts}, nil
}

// digest is the media host's signing scheme: hex SHA-1 over the
// canonical parameter string immediately followed by the secret.
func (s *Signer) digest(params string) string {
	sum := sha1.Sum([]byte(params + s.secret))
	return hex.EncodeToString(sum[:])
}
