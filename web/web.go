// Package web carries the embedded templates and static assets served
// by the dashboard.
package web

import "embed"

//go:embed templates
var Templates embed.FS

//go:embed static
var Static embed.FS
