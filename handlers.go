package folio

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// handleSignUpload issues an upload authorization for a direct
// browser-to-media-host upload.
func (a *App) handleSignUpload(c echo.Context) error {
	sig, err := a.Signer.SignUpload()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sig)
}

// handleConfig exposes the media host account identifiers the admin UI
// needs to build upload requests. The API secret never leaves the server.
func (a *App) handleConfig(c echo.Context) error {
	if a.Media == nil || a.Media.CloudName == "" {
		return fmt.Errorf("%w: media host account not configured", ErrMisconfigured)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"cloud_name": a.Media.CloudName,
		"api_key":    a.Media.APIKey,
	})
}

type deleteImageRequest struct {
	PublicID string `json:"public_id"`
}

// handleDeleteImage signs and submits a destroy request for one asset
// and relays the media host's JSON result verbatim. Best-effort: a
// failure here never blocks the caller's own document update.
func (a *App) handleDeleteImage(c echo.Context) error {
	var req deleteImageRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.PublicID) == "" {
		return c.JSON(http.StatusBadRequest, errorBody("public_id is required"))
	}
	status, body, err := a.Media.Destroy(c.Request().Context(), req.PublicID)
	if err != nil {
		if errors.Is(err, ErrMisconfigured) {
			return err
		}
		return c.JSON(http.StatusBadGateway, errorBody(err.Error()))
	}
	return c.JSONBlob(status, body)
}

// handleDataGet returns the current document and its version token for
// an editing session.
func (a *App) handleDataGet(c echo.Context) error {
	doc, sha, err := a.Store.Fetch(c.Request().Context())
	if err != nil {
		return a.storeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": doc,
		"sha":  sha,
	})
}

type dataSaveRequest struct {
	Content Document `json:"content"`
	Message string   `json:"message"`
	SHA     string   `json:"sha"`
	// RemovedAssets lists media host asset URLs (or raw public IDs)
	// whose records this update drops; they are deleted in the
	// background after the write lands.
	RemovedAssets []string `json:"removedAssets,omitempty"`
}

// handleDataSave runs one conditional write with bounded conflict retry.
// Asset cleanup for removed records is queued after a successful write
// and never awaited.
func (a *App) handleDataSave(c echo.Context) error {
	var req dataSaveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid request body"))
	}
	if err := req.Content.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid data format"))
	}
	if req.SHA == "" {
		return c.JSON(http.StatusBadRequest, errorBody("sha is required"))
	}
	message := req.Message
	if message == "" {
		message = "Update portfolio data"
	}

	newSha, err := Save(c.Request().Context(), a.Store, req.Content, message, req.SHA)
	if err != nil {
		return a.storeError(c, err)
	}

	a.Cache.Invalidate()
	for _, asset := range req.RemovedAssets {
		publicID := PublicIDFromURL(asset)
		if publicID == "" && !strings.Contains(asset, "/") {
			publicID = asset
		}
		if publicID != "" && a.Reaper != nil {
			a.Reaper.Enqueue(publicID)
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"newSha":  newSha,
	})
}

// handlePublicData serves the document to the public site through the
// TTL cache, no credential required.
func (a *App) handlePublicData(c echo.Context) error {
	doc, err := a.Cache.Get(c.Request().Context())
	if err != nil {
		c.Logger().Errorf("public data: %v", err)
		return c.JSON(http.StatusBadGateway, errorBody("Failed to load data"))
	}
	return c.JSON(http.StatusOK, doc)
}

type importRequest struct {
	URL string `json:"url"`
}

// handleImport rehosts an external page's preview image.
func (a *App) handleImport(c echo.Context) error {
	var req importRequest
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		return c.JSON(http.StatusBadRequest, errorBody("url is required"))
	}
	result, err := a.Importer.ImportPage(c.Request().Context(), req.URL)
	if err != nil {
		return a.storeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// storeError maps the typed failure classes onto the response contract:
// conflicts and upstream failures keep their upstream status, sentinel
// errors fall through to the HTTP error handler.
func (a *App) storeError(c echo.Context, err error) error {
	var ce *ConflictError
	if errors.As(err, &ce) {
		status := ce.Status
		if status == 0 {
			status = http.StatusConflict
		}
		return c.JSON(status, errorBody(ce.Error()))
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		status := ue.Status
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		return c.JSON(status, map[string]any{
			"error":   "Upstream request failed",
			"details": map[string]any{"message": ue.Body},
		})
	}
	return err
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(a.staticDir + "/favicon.svg")
}

func (a *App) handleRobots(c echo.Context) error {
	return c.File(a.staticDir + "/robots.txt")
}
