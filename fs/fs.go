// Package appfs exposes static files embedded in the binary.
package appfs

import "embed"

//go:embed migrations
var FS embed.FS
