// Package web bundles the HTML templates and static assets of the calculator.
package web

import "embed"

// FS holds templates/ and static/.
//
//go:embed templates/*.html static/*
var FS embed.FS
