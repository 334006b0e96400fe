// Package handlers holds the view models shared by the page layouts.
package handlers

import (
	"harbourpools.org/passport-web/internal/nav"
)

// PageData is a generic view model for pages using the shared layout.
type PageData struct {
	Title string
	Path  string
	Nav   []nav.RenderedItem

	// Badge is the "<visited> / <total>" header counter.
	Badge string

	// Alert carries a one-shot banner (e.g. a failed rename or reset).
	Alert string

	// CSRF is the per-session token echoed by mutation forms.
	CSRF string

	// Per-page view model payloads
	Passport any
	Overview any
	Guide    any
}
