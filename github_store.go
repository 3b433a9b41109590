package folio

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultGitHubAPI = "https://api.github.com"

// GitHubStore keeps the portfolio document as a single file on a fixed
// branch of a GitHub repository, using the contents API. The file's blob
// SHA is the version token: every Write is a conditional update that the
// API rejects when the SHA is stale, and every accepted Write produces a
// new commit with the caller's message.
type GitHubStore struct {
	BaseURL string // API root, overridable for tests (default api.github.com)
	Repo    string // "owner/name"
	Branch  string
	Path    string // file path inside the repository
	Token   string // installation or personal access token

	Client *http.Client
}

// NewGitHubStore creates a store for the given repository file.
func NewGitHubStore(repo, branch, path, token string, timeout time.Duration) *GitHubStore {
	return &GitHubStore{
		BaseURL: defaultGitHubAPI,
		Repo:    repo,
		Branch:  branch,
		Path:    path,
		Token:   token,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (s *GitHubStore) contentsURL() string {
	base := s.BaseURL
	if base == "" {
		base = defaultGitHubAPI
	}
	return fmt.Sprintf("%s/repos/%s/contents/%s", base, s.Repo, s.Path)
}

func (s *GitHubStore) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(req)
}

// Fetch reads the current document and its blob SHA from the repository.
// The API transports file content as base64 text; it is decoded to UTF-8
// before parsing so multi-byte captions and category labels survive.
func (s *GitHubStore) Fetch(ctx context.Context) (Document, string, error) {
	u := s.contentsURL() + "?ref=" + url.QueryEscape(s.Branch)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Document{}, "", err
	}
	resp, err := s.do(req)
	if err != nil {
		return Document{}, "", fmt.Errorf("fetch document: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Document{}, "", fmt.Errorf("read fetch response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Document{}, "", s.apiError(resp.StatusCode, body)
	}

	var payload struct {
		Content string `json:"content"`
		SHA     string `json:"sha"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Document{}, "", fmt.Errorf("parse contents response: %w", err)
	}
	// GitHub wraps base64 content in newlines.
	raw, err := base64.StdEncoding.DecodeString(stripWhitespace(payload.Content))
	if err != nil {
		return Document{}, "", fmt.Errorf("decode file content: %w", err)
	}
	doc, err := DecodeDocument(raw)
	if err != nil {
		return Document{}, "", err
	}
	return doc, payload.SHA, nil
}

// Write commits the document when sha still matches the file's current
// blob SHA. A stale sha surfaces as *ConflictError; the contents API
// signals it with either 409 or a 422 whose message says the SHA does
// not match, so both map to the same error.
func (s *GitHubStore) Write(ctx context.Context, doc Document, message, sha string) (string, error) {
	encoded, err := EncodeDocument(doc)
	if err != nil {
		return "", err
	}
	reqBody, err := json.Marshal(map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(encoded),
		"sha":     sha,
		"branch":  s.Branch,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.contentsURL(), bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.do(req)
	if err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read write response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", s.apiError(resp.StatusCode, body)
	}

	var payload struct {
		Content struct {
			SHA string `json:"sha"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("parse commit response: %w", err)
	}
	return payload.Content.SHA, nil
}

// apiError classifies a non-success contents API response.
func (s *GitHubStore) apiError(status int, body []byte) error {
	message := apiMessage(body)
	switch {
	case status == http.StatusConflict:
		return &ConflictError{Status: status, Message: message}
	case status == http.StatusUnprocessableEntity && strings.Contains(message, "does not match"):
		return &ConflictError{Status: status, Message: message}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, message)
	default:
		return &UpstreamError{Status: status, Body: message}
	}
}

func apiMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(body))
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)
}
