// Package web embeds the HTML templates and static assets served by
// internal/http.
package web

import "embed"

// TemplatesFS holds one layout plus one file per page.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet.
//
//go:embed static/*
var StaticFS embed.FS
