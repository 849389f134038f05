// Package web embeds the status page served at the site root.
package web

import "embed"

// Content holds the embedded status page.
//
//go:embed index.html
var Content embed.FS
