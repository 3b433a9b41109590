package folio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultMediaAPI = "https://api.cloudinary.com"

// MediaClient performs the server-side media host calls: destroying
// assets and uploading on behalf of the import path. Browser uploads
// never go through it; they use signatures from the Signer directly.
type MediaClient struct {
	BaseURL   string // overridable for tests (default api.cloudinary.com)
	CloudName string
	APIKey    string
	Signer    *Signer

	Client *http.Client
}

// NewMediaClient creates a client for the given media host account.
func NewMediaClient(cloudName, apiKey string, signer *Signer, timeout time.Duration) *MediaClient {
	return &MediaClient{
		BaseURL:   defaultMediaAPI,
		CloudName: cloudName,
		APIKey:    apiKey,
		Signer:    signer,
		Client:    &http.Client{Timeout: timeout},
	}
}

// Configured reports whether the account settings needed for API calls
// are present.
func (m *MediaClient) Configured() bool {
	return m.CloudName != "" && m.Signer != nil && m.Signer.Configured()
}

func (m *MediaClient) endpoint(action string) string {
	base := m.BaseURL
	if base == "" {
		base = defaultMediaAPI
	}
	return fmt.Sprintf("%s/v1_1/%s/image/%s", base, m.CloudName, action)
}

func (m *MediaClient) postForm(ctx context.Context, endpoint string, form url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("media host request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read media host response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// Destroy signs and submits a destroy request for the asset. The host's
// raw JSON result and status are returned verbatim so callers can relay
// them; a non-2xx status is not an error here.
func (m *MediaClient) Destroy(ctx context.Context, publicID string) (int, []byte, error) {
	if !m.Configured() {
		return 0, nil, fmt.Errorf("%w: media host account not configured", ErrMisconfigured)
	}
	sig, err := m.Signer.SignDestroy(publicID)
	if err != nil {
		return 0, nil, err
	}
	form := url.Values{}
	form.Set("public_id", publicID)
	form.Set("api_key", m.APIKey)
	form.Set("timestamp", strconv.FormatInt(sig.Timestamp, 10))
	form.Set("signature", sig.Signature)
	return m.postForm(ctx, m.endpoint("destroy"), form)
}

// UploadResult is the subset of the media host's upload response the
// import path consumes.
type UploadResult struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
}

// Upload signs and submits a plain upload. file may be a remote URL or
// a base64 data URI; the host fetches or decodes it itself and assigns
// the public ID. The upload signature covers only the timestamp, so no
// other parameters may be added to the form.
func (m *MediaClient) Upload(ctx context.Context, file string) (UploadResult, error) {
	if !m.Configured() {
		return UploadResult{}, fmt.Errorf("%w: media host account not configured", ErrMisconfigured)
	}
	sig, err := m.Signer.SignUpload()
	if err != nil {
		return UploadResult{}, err
	}
	form := url.Values{}
	form.Set("file", file)
	form.Set("api_key", m.APIKey)
	form.Set("timestamp", strconv.FormatInt(sig.Timestamp, 10))
	form.Set("signature", sig.Signature)
	status, body, err := m.postForm(ctx, m.endpoint("upload"), form)
	if err != nil {
		return UploadResult{}, err
	}
	var result UploadResult
	if err := json.Unmarshal(body, &result); err != nil || result.SecureURL == "" {
		return UploadResult{}, &UpstreamError{Status: status, Body: strings.TrimSpace(string(body))}
	}
	return result, nil
}

// PublicIDFromURL extracts the asset ID from a media host delivery URL
// (the segment between the version marker and the file extension).
// It returns "" when the URL is not a media host asset.
func PublicIDFromURL(assetURL string) string {
	if !strings.Contains(assetURL, "cloudinary.com") {
		return ""
	}
	parts := strings.SplitN(assetURL, "/upload/", 2)
	if len(parts) != 2 {
		return ""
	}
	rest := parts[1]
	// Skip the "v123456789/" version segment when present.
	if strings.HasPrefix(rest, "v") {
		if i := strings.IndexByte(rest, '/'); i > 1 && isDigits(rest[1:i]) {
			rest = rest[i+1:]
		}
	}
	if dot := strings.LastIndexByte(rest, '.'); dot > 0 {
		rest = rest[:dot]
	}
	if rest == "" {
		return ""
	}
	return rest
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
