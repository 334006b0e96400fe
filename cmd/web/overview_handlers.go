package main

import (
	"net/http"

	"harbourpools.org/passport-web/internal/format"
	handlersPkg "harbourpools.org/passport-web/internal/handlers"
	mw "harbourpools.org/passport-web/internal/middleware"
	"harbourpools.org/passport-web/internal/nav"
)

// OverviewHandler renders every pool as a colored marker on one map.
// The page reads the catalog and visited map independently of the detail
// page: consistency between the two comes only from the shared store.
func OverviewHandler(w http.ResponseWriter, r *http.Request) {
	visited := store.ReadVisited()
	view := buildOverviewView(pools, catalogErr, visited)

	vm := handlersPkg.PageData{
		Title:    "Overview · Harbour Pools Passport",
		Path:     r.URL.Path,
		Nav:      nav.Build(r.URL.Path),
		Badge:    format.Badge(view.Visited, view.Total),
		Alert:    alertMessage(r.URL.Query().Get("alert")),
		CSRF:     mw.GetSession(r).CSRFToken,
		Overview: view,
	}
	renderPage(w, r, "overview", vm)
}
