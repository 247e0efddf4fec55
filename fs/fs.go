// Package appfs embeds the files shipped with the binaries: SQL migrations, email templates and assets.
package appfs

import "embed"

const (
	MigrationsDir        = "migrations"
	EmailTemplatesDir    = "templates/email"
	CommonPasswordsAsset = "assets/common-passwords.txt.gz"
)

//go:embed migrations/*.sql templates/email/* assets/*
var FS embed.FS
