package main

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"harbourpools.org/passport-web/internal/catalog"
	"harbourpools.org/passport-web/internal/format"
	handlersPkg "harbourpools.org/passport-web/internal/handlers"
	mw "harbourpools.org/passport-web/internal/middleware"
	"harbourpools.org/passport-web/internal/nav"
	"harbourpools.org/passport-web/internal/passport"
)

// PassportHandler renders the detail/list page. The list/stamps switch
// is a query parameter with no persistence of its own: every plain load
// comes back in list mode. The stamps page cursor, by contrast, is
// persisted and re-clamped (with the clamped value written back) on
// every render so un-visiting or a shrunken catalog never leaves a
// dangling page reference.
func PassportHandler(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("view")
	if mode != "stamps" {
		mode = "list"
	}

	st := readState(store)
	if mode == "stamps" {
		ordered := passport.VisitedInOrder(pools, st.Visited)
		if clamped := passport.ClampPage(st.StampsPage, len(ordered)); clamped != st.StampsPage {
			store.WriteStampsPage(clamped)
			st.StampsPage = clamped
		}
	}

	view := buildPassportView(pools, catalogErr, st, mode, r.URL.Query().Get("stamped"))

	vm := handlersPkg.PageData{
		Title:    "Harbour Pools Passport",
		Path:     r.URL.Path,
		Nav:      nav.Build(r.URL.Path),
		Badge:    format.Badge(view.Visited, view.Total),
		Alert:    alertMessage(r.URL.Query().Get("alert")),
		CSRF:     mw.GetSession(r).CSRFToken,
		Passport: view,
	}
	renderPage(w, r, "passport", vm)
}

// PassportToggleHandler flips the visited stamp for one pool, persists,
// and redirects so the affected views re-render from the store.
func PassportToggleHandler(w http.ResponseWriter, r *http.Request) {
	poolID := chi.URLParam(r, "poolID")
	if _, ok := catalog.ByID(pools, poolID); !ok {
		http.Error(w, "unknown pool", http.StatusNotFound)
		return
	}
	stamped := ctrl.Toggle(poolID)

	q := url.Values{}
	if mode := r.FormValue("view"); mode == "stamps" {
		q.Set("view", "stamps")
	}
	if stamped {
		q.Set("stamped", poolID)
	}
	dest := "/"
	if enc := q.Encode(); enc != "" {
		dest += "?" + enc
	}
	redirect(w, r, dest)
}

// PassportSelectHandler persists a new selected pool (clamped to the
// catalog range) for the detail view.
func PassportSelectHandler(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "invalid index", http.StatusBadRequest)
		return
	}
	store.WriteSelection(catalog.ClampIndex(idx, len(pools)))
	redirect(w, r, "/")
}

// StampsPageHandler advances the stamps gallery one page in either
// direction, clamped to the valid range, and persists the result.
func StampsPageHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	visited := passport.CountVisited(store.ReadVisited())
	page := store.ReadStampsPage()
	switch r.FormValue("dir") {
	case "next":
		page++
	case "prev":
		page--
	default:
		http.Error(w, "invalid direction", http.StatusBadRequest)
		return
	}
	store.WriteStampsPage(passport.ClampPage(page, visited))
	redirect(w, r, "/?view=stamps")
}

// alertMessage maps the one-shot alert codes carried on redirects to
// their user-facing text.
func alertMessage(code string) string {
	switch code {
	case "name-save-failed":
		return "Your name could not be saved on this device. It will be lost when you close the app."
	case "reset-failed":
		return "The passport could not be reset: storage is unavailable. Nothing was cleared."
	default:
		return ""
	}
}
