// Package folio is the backend for a model portfolio website and its
// admin panel, built with Go and Echo. The portfolio lives in a single
// JSON document held in a version-controlled repository and edited
// through conditional writes with bounded conflict retry; photo and
// video binaries live on a hosted media service that browsers upload to
// directly using short-lived signatures issued here.
package folio

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
)

// App is the central folio application. It wires together the document
// store, cache, signature broker, media client, and HTTP handlers.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo

	Store    DocumentStore
	Cache    *DocumentCache
	Signer   *Signer
	Media    *MediaClient
	Importer *Importer
	Reaper   *Reaper

	checker      CredentialChecker
	authLimiter  *AuthLimiter
	customRoutes []func(*App)
	staticDir    string
}

// New creates a folio App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		staticDir: "public",
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Start initializes the backends, middleware, and routes, then starts
// the server.
func (a *App) Start() error {
	if err := a.bootstrap(); err != nil {
		return err
	}
	defer a.Reaper.Stop()

	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// bootstrap wires backends, middleware, and routes without binding the
// listener.
func (a *App) bootstrap() error {
	if a.Config.AdminSecret == "" && a.Config.JWTSecret == "" {
		return fmt.Errorf("folio: AdminSecret or JWTSecret is required")
	}

	// Credential strategies: any configured checker may authorize a
	// request.
	var checkers anyChecker
	if a.Config.AdminSecret != "" {
		checkers = append(checkers, StaticSecretChecker{Secret: a.Config.AdminSecret})
	}
	if a.Config.JWTSecret != "" {
		checkers = append(checkers, JWTChecker{Secret: []byte(a.Config.JWTSecret)})
	}
	a.checker = checkers

	a.Signer = NewSigner(a.Config.MediaAPISecret)
	if a.Media == nil {
		a.Media = NewMediaClient(a.Config.MediaCloudName, a.Config.MediaAPIKey, a.Signer, a.Config.HTTPTimeout)
	}
	a.Importer = NewImporter(a.Media, a.Config.HTTPTimeout)
	a.Reaper = NewReaper(a.Media, 64)

	// Document backend: hosted repository when configured, local SQLite
	// otherwise.
	if a.Store == nil {
		if a.Config.RepoSlug != "" {
			a.Store = NewGitHubStore(a.Config.RepoSlug, a.Config.RepoBranch,
				a.Config.RepoFilePath, a.Config.RepoToken, a.Config.HTTPTimeout)
		} else {
			store, err := NewSQLiteStore(a.Config.DatabasePath)
			if err != nil {
				return fmt.Errorf("folio: init store: %w", err)
			}
			a.Store = store
		}
	}

	a.Cache = NewDocumentCache(a.Store, a.Config.CacheTTL)
	a.authLimiter = NewAuthLimiter(10, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Public site
	e.Static("/public", a.staticDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/data.json", a.handlePublicData)

	// Admin API
	e.GET("/api/sign-upload", a.requireAdmin(a.handleSignUpload))
	e.GET("/api/config", a.requireAdmin(a.handleConfig))
	e.POST("/api/delete-image", a.requireAdmin(a.handleDeleteImage))
	e.GET("/api/data", a.requireAdmin(a.handleDataGet))
	e.POST("/api/data", a.requireAdmin(a.handleDataSave))
	e.POST("/api/import", a.requireAdmin(a.handleImport))
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.Reaper != nil {
		a.Reaper.Stop()
	}
	if s, ok := a.Store.(*SQLiteStore); ok && s != nil {
		return s.Close()
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback
// if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally
// exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("folio: required environment variable %s is not set", key)
	}
	return v
}
