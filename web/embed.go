// Package web contains the embedded frontend assets.
package web

import "embed"

//go:embed index.html css js

// Assets contains the embedded frontend files.
var Assets embed.FS
