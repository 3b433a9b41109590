package folio

import "time"

// SiteConfig holds all configuration for a folio deployment.
type SiteConfig struct {
	Name string // Site name (default "Portfolio")
	Addr string // Listen address (default ":3000")

	AdminSecret string // Static shared admin bearer secret
	JWTSecret   string // Optional: HS256 secret for JWT admin tokens

	MediaCloudName string // Media host account name
	MediaAPIKey    string // Media host API key (public half)
	MediaAPISecret string // Media host API secret, shared only with the host

	RepoSlug     string // "owner/name"; empty selects the SQLite backend
	RepoBranch   string // Branch holding the document (default "main")
	RepoFilePath string // Document path in the repo (default "public/data.json")
	RepoToken    string // Hosting-system access token

	DatabasePath string // SQLite path for the local backend (default "data/folio.db")

	CacheTTL    time.Duration // Public document cache TTL (default 5min)
	HTTPTimeout time.Duration // Outbound call timeout (default 30s)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Portfolio"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.RepoBranch == "" {
		c.RepoBranch = "main"
	}
	if c.RepoFilePath == "" {
		c.RepoFilePath = "public/data.json"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/folio.db"
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = 30 * time.Second
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithStore overrides the document backend chosen from config.
func WithStore(s DocumentStore) Option {
	return func(a *App) {
		a.Store = s
	}
}

// WithMediaClient overrides the media host client (used by tests).
func WithMediaClient(m *MediaClient) Option {
	return func(a *App) {
		a.Media = m
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback runs before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for the public site's static assets
// (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}
