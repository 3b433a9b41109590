package main

import (
	"log"

	"github.com/okuneva/folio"
)

func main() {
	app := folio.New(folio.SiteConfig{
		Name: folio.EnvOr("SITE_NAME", "Portfolio"),
		Addr: folio.EnvOr("ADDR", ":3000"),

		AdminSecret: folio.EnvOr("ADMIN_SECRET", ""),
		JWTSecret:   folio.EnvOr("JWT_SECRET", ""),

		MediaCloudName: folio.EnvOr("CLOUDINARY_CLOUD_NAME", ""),
		MediaAPIKey:    folio.EnvOr("CLOUDINARY_API_KEY", ""),
		MediaAPISecret: folio.EnvOr("CLOUDINARY_API_SECRET", ""),

		RepoSlug:     folio.EnvOr("REPO_SLUG", ""),
		RepoBranch:   folio.EnvOr("REPO_BRANCH", "main"),
		RepoFilePath: folio.EnvOr("REPO_FILE_PATH", "public/data.json"),
		RepoToken:    folio.EnvOr("REPO_TOKEN", ""),

		DatabasePath: folio.EnvOr("DATABASE_PATH", "data/folio.db"),
	})
	defer app.Close()

	if err := app.Start(); err != nil {
		log.Fatalf("folio: %v", err)
	}
}
