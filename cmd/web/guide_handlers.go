package main

import (
	"errors"
	"html/template"
	"net/http"

	"harbourpools.org/passport-web/internal/content"
	"harbourpools.org/passport-web/internal/format"
	handlersPkg "harbourpools.org/passport-web/internal/handlers"
	"harbourpools.org/passport-web/internal/nav"
	"harbourpools.org/passport-web/internal/passport"
)

const guideSlug = "how-it-works"

// GuideView drives the static guide page.
type GuideView struct {
	Title   string
	Summary string
	Body    template.HTML
	Updated string
}

// GuideHandler renders the markdown guide shipped with the app.
func GuideHandler(w http.ResponseWriter, r *http.Request) {
	page, err := contentClient.Get(guideSlug)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			http.Error(w, "page not found", http.StatusNotFound)
			return
		}
		http.Error(w, "page unavailable", http.StatusInternalServerError)
		return
	}

	view := GuideView{
		Title:   page.Title,
		Summary: page.Summary,
		Body:    template.HTML(page.HTML),
	}
	if !page.UpdatedAt.IsZero() {
		view.Updated = format.Date(page.UpdatedAt)
	}

	visited := passport.CountVisited(store.ReadVisited())
	vm := handlersPkg.PageData{
		Title: page.Title + " · Harbour Pools Passport",
		Path:  r.URL.Path,
		Nav:   nav.Build(r.URL.Path),
		Badge: format.Badge(visited, len(pools)),
		Guide: view,
	}
	renderPage(w, r, "guide", vm)
}
