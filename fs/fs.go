// Package appfs embeds the files shipped inside the binaries: SQL migrations and assets.
package appfs

import "embed"

//go:embed migrations assets
var FS embed.FS
