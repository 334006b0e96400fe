package main

import (
	"net/http"
	"strings"
)

// ProfileNameHandler renames the passport holder. Unlike the routine
// state writes, a storage failure here is surfaced: the rename is
// user-initiated and the user must know persistence did not happen.
func ProfileNameHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))
	if err := store.WriteProfileName(name); err != nil {
		redirect(w, r, "/?view=stamps&alert=name-save-failed")
		return
	}
	redirect(w, r, "/?view=stamps")
}

// ProfileResetHandler clears all persisted passport state. The form
// carries confirm=yes only after the browser-side confirmation dialog
// that spells out what is cleared (name, visited entries, selection,
// stamps page); without it the operation aborts silently. A failed
// delete is reported and nothing is cleared.
func ProfileResetHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	if r.FormValue("confirm") != "yes" {
		redirect(w, r, "/overview")
		return
	}
	if err := store.Reset(); err != nil {
		redirect(w, r, "/overview?alert=reset-failed")
		return
	}
	// full reload so every view re-derives from the now-empty store
	redirect(w, r, "/")
}
