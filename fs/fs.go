// Package appfs embeds the portal's non-Go assets.
package appfs

import "embed"

//go:embed migrations
var FS embed.FS
