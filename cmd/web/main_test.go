package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"harbourpools.org/passport-web/internal/catalog"
	"harbourpools.org/passport-web/internal/content"
	"harbourpools.org/passport-web/internal/passport"
	"harbourpools.org/passport-web/internal/testutil"
)

// newTestRouter builds a router like main() does, backed by a throwaway
// state database.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	devMode = true
	templatesDir = "../../templates"
	publicDir = "../../public"
	if _, err := parseTemplates(); err != nil {
		t.Fatalf("parseTemplates failed: %v", err)
	}
	var err error
	store, err = passport.Open(filepath.Join(t.TempDir(), "passport.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	ctrl = passport.NewController(store)
	pools, catalogErr = catalog.Load("../../data/pools.yaml")
	if catalogErr != nil {
		t.Fatalf("load catalog: %v", catalogErr)
	}
	contentClient = content.NewClient("../../content")
	return newRouter()
}

// browser carries the session and CSRF cookies harvested from a first GET
// so that subsequent form posts pass the CSRF middleware.
type browser struct {
	srv  http.Handler
	csrf string
	sess string
}

func boot(t *testing.T, srv http.Handler) *browser {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("boot GET / status=%d body=%s", rec.Code, rec.Body.String())
	}
	b := &browser{srv: srv}
	for _, c := range rec.Result().Cookies() {
		switch c.Name {
		case "csrf_token":
			b.csrf = c.Value
		case "POOLPASS_SESSION":
			b.sess = c.Value
		}
	}
	if b.csrf == "" || b.sess == "" {
		t.Fatalf("expected csrf and session cookies, got csrf=%q session=%q", b.csrf, b.sess)
	}
	return b
}

func (b *browser) cookies() string {
	return "csrf_token=" + b.csrf + "; POOLPASS_SESSION=" + b.sess
}

func (b *browser) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Cookie", b.cookies())
	rec := httptest.NewRecorder()
	b.srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET %s status=%d body=%s", path, rec.Code, rec.Body.String())
	}
	return rec
}

func (b *browser) post(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf_token", b.csrf)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Cookie", b.cookies())
	rec := httptest.NewRecorder()
	b.srv.ServeHTTP(rec, req)
	return rec
}

// postOK posts and asserts the see-other redirect a successful mutation
// answers with, returning its Location.
func (b *browser) postOK(t *testing.T, path string, form url.Values) string {
	t.Helper()
	rec := b.post(t, path, form)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("POST %s status=%d body=%s", path, rec.Code, rec.Body.String())
	}
	return rec.Header().Get("Location")
}

func TestHealthzOK(t *testing.T) {
	srv := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body=%s", rec.Code, rec.Body.String())
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "ok" {
		t.Fatalf("expected body 'ok', got %q", got)
	}
}

func TestPassportListRenders(t *testing.T) {
	srv := newTestRouter(t)
	b := boot(t, srv)
	body := b.get(t, "/").Body.String()

	if !strings.Contains(body, fmt.Sprintf("0 / %d", len(pools))) {
		t.Fatalf("expected zero badge in body")
	}
	if !strings.Contains(body, "Mark as visited") {
		t.Fatalf("expected toggle label in body")
	}
	if !strings.Contains(body, `data-pool-row="maccallum"`) {
		t.Fatalf("expected pool rows in body")
	}
	// first pool selected by default
	if !strings.Contains(body, `data-pool-detail data-pool="maccallum"`) {
		t.Fatalf("expected first pool in detail section; body=%s", body)
	}
	if !strings.Contains(body, "poolMap('map'") {
		t.Fatalf("expected map bootstrap script in body")
	}
}

func TestPostWithoutCSRFForbidden(t *testing.T) {
	srv := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/passport/pools/maccallum/toggle", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for missing CSRF, got %d", rec.Code)
	}
}

func TestToggleUnknownPool(t *testing.T) {
	srv := newTestRouter(t)
	b := boot(t, srv)
	rec := b.post(t, "/passport/pools/no-such-pool/toggle", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown pool, got %d", rec.Code)
	}
}

func TestToggleStampAndRemove(t *testing.T) {
	srv := newTestRouter(t)
	b := boot(t, srv)

	loc := b.postOK(t, "/passport/pools/maccallum/toggle", nil)
	if loc != "/?stamped=maccallum" {
		t.Fatalf("expected stamped redirect, got %q", loc)
	}

	body := b.get(t, "/").Body.String()
	if !strings.Contains(body, fmt.Sprintf("1 / %d", len(pools))) {
		t.Fatalf("expected badge to count the stamp")
	}
	if !strings.Contains(body, "Visited &middot;") && !strings.Contains(body, "Visited ·") {
		t.Fatalf("expected visited toggle label; body=%s", body)
	}

	doc := testutil.ParseHTML(t, b.get(t, "/?view=stamps").Body.Bytes())
	if n := doc.Find("[data-stamp-card]").Length(); n != 1 {
		t.Fatalf("expected 1 stamp card, got %d", n)
	}
	if doc.Find(`[data-stamp-card][data-pool="maccallum"]`).Length() != 1 {
		t.Fatalf("expected the maccallum card")
	}

	// second toggle removes the stamp
	if loc := b.postOK(t, "/passport/pools/maccallum/toggle", nil); loc != "/" {
		t.Fatalf("expected plain redirect after un-stamp, got %q", loc)
	}
	body = b.get(t, "/?view=stamps").Body.String()
	if !strings.Contains(body, "data-stamps-empty") {
		t.Fatalf("expected empty stamps message after un-stamp")
	}
}

func TestJustStampedEmphasis(t *testing.T) {
	srv := newTestRouter(t)
	b := boot(t, srv)
	b.postOK(t, "/passport/pools/balmoral/toggle", url.Values{"view": {"stamps"}})

	// follow the redirect the toggle answered with
	doc := testutil.ParseHTML(t, b.get(t, "/?view=stamps&stamped=balmoral").Body.Bytes())
	if doc.Find(`.stamp-card.just-stamped[data-pool="balmoral"]`).Length() != 1 {
		t.Fatalf("expected just-stamped emphasis on the fresh card")
	}

	// a plain reload renders without the one-shot emphasis
	doc = testutil.ParseHTML(t, b.get(t, "/?view=stamps").Body.Bytes())
	if doc.Find(".just-stamped").Length() != 0 {
		t.Fatalf("expected no emphasis on plain reload")
	}
}

func TestSelectPoolPersistsAndClamps(t *testing.T) {
	srv := newTestRouter(t)
	b := boot(t, srv)

	b.postOK(t, "/passport/select/2", nil)
	doc := testutil.ParseHTML(t, b.get(t, "/").Body.Bytes())
	if got := doc.Find("[data-pool-detail] h1").Text(); got != pools[2].Name {
		t.Fatalf("expected detail for %q, got %q", pools[2].Name, got)
	}
	if doc.Find("li.selected [data-pool-row]").AttrOr("data-pool-row", "") != pools[2].ID {
		t.Fatalf("expected row %q selected", pools[2].ID)
	}

	// out-of-range index falls back to the first pool
	b.postOK(t, "/passport/select/99", nil)
	doc = testutil.ParseHTML(t, b.get(t, "/").Body.Bytes())
	if got := doc.Find("[data-pool-detail] h1").Text(); got != pools[0].Name {
		t.Fatalf("expected fallback to %q, got %q", pools[0].Name, got)
	}
}

func TestStampsPaginationAndClamp(t *testing.T) {
	srv := newTestRouter(t)
	b := boot(t, srv)

	for _, id := range []string{"maccallum", "dawn-fraser", "murray-rose", "greenwich"} {
		b.postOK(t, "/passport/pools/"+id+"/toggle", nil)
	}

	body := b.get(t, "/?view=stamps").Body.String()
	if !strings.Contains(body, "Page 1 of 2") {
		t.Fatalf("expected page 1 of 2; body=%s", body)
	}

	b.postOK(t, "/passport/stamps/page", url.Values{"dir": {"next"}})
	doc := testutil.ParseHTML(t, b.get(t, "/?view=stamps").Body.Bytes())
	if !strings.Contains(doc.Find("[data-stamps-pager]").Text(), "Page 2 of 2") {
		t.Fatalf("expected page 2 of 2")
	}
	if n := doc.Find("[data-stamp-card]").Length(); n != 1 {
		t.Fatalf("expected 1 card on the last page, got %d", n)
	}

	// advancing past the end stays on the last page
	b.postOK(t, "/passport/stamps/page", url.Values{"dir": {"next"}})
	if got := store.ReadStampsPage(); got != 1 {
		t.Fatalf("expected page to stay at 1, got %d", got)
	}

	// un-visiting below the page boundary re-clamps and persists the clamp
	b.postOK(t, "/passport/pools/greenwich/toggle", nil)
	body = b.get(t, "/?view=stamps").Body.String()
	if !strings.Contains(body, "Page 1 of 1") {
		t.Fatalf("expected re-clamped pager; body=%s", body)
	}
	if got := store.ReadStampsPage(); got != 0 {
		t.Fatalf("expected persisted clamp to page 0, got %d", got)
	}
}

func TestStampsPageInvalidDirection(t *testing.T) {
	srv := newTestRouter(t)
	b := boot(t, srv)
	rec := b.post(t, "/passport/stamps/page", url.Values{"dir": {"sideways"}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad direction, got %d", rec.Code)
	}
}

func TestProfileRename(t *testing.T) {
	srv := newTestRouter(t)
	b := boot(t, srv)

	loc := b.postOK(t, "/profile/name", url.Values{"name": {"  Alex  "}})
	if loc != "/?view=stamps" {
		t.Fatalf("expected stamps redirect, got %q", loc)
	}
	body := b.get(t, "/?view=stamps").Body.String()
	if !strings.Contains(body, "Alex&rsquo;s passport") {
		t.Fatalf("expected trimmed holder name on the cover; body=%s", body)
	}
}

func TestProfileRenameStorageFailure(t *testing.T) {
	srv := newTestRouter(t)
	b := boot(t, srv)
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	loc := b.postOK(t, "/profile/name", url.Values{"name": {"Alex"}})
	if loc != "/?view=stamps&alert=name-save-failed" {
		t.Fatalf("expected failure redirect, got %q", loc)
	}
	body := b.get(t, loc).Body.String()
	if !strings.Contains(body, "could not be saved on this device") {
		t.Fatalf("expected persistence alert; body=%s", body)
	}
	// the session copy is still shown
	if !strings.Contains(body, "Alex&rsquo;s passport") {
		t.Fatalf("expected in-memory name to render; body=%s", body)
	}
}

func TestResetRequiresConfirmation(t *testing.T) {
	srv := newTestRouter(t)
	b := boot(t, srv)
	b.postOK(t, "/passport/pools/balmoral/toggle", nil)

	loc := b.postOK(t, "/profile/reset", url.Values{"confirm": {"no"}})
	if loc != "/overview" {
		t.Fatalf("expected silent abort redirect, got %q", loc)
	}
	if got := passport.CountVisited(store.ReadVisited()); got != 1 {
		t.Fatalf("expected state untouched after declined reset, got %d visited", got)
	}
}

func TestResetClearsEverything(t *testing.T) {
	srv := newTestRouter(t)
	b := boot(t, srv)
	b.postOK(t, "/passport/pools/balmoral/toggle", nil)
	b.postOK(t, "/passport/pools/woolwich/toggle", nil)
	b.postOK(t, "/profile/name", url.Values{"name": {"Alex"}})

	loc := b.postOK(t, "/profile/reset", url.Values{"confirm": {"yes"}})
	if loc != "/" {
		t.Fatalf("expected home redirect after reset, got %q", loc)
	}

	body := b.get(t, "/").Body.String()
	if !strings.Contains(body, fmt.Sprintf("0 / %d", len(pools))) {
		t.Fatalf("expected zero badge after reset")
	}
	body = b.get(t, "/?view=stamps").Body.String()
	if !strings.Contains(body, "data-stamps-empty") || strings.Contains(body, "Alex") {
		t.Fatalf("expected empty anonymous passport after reset; body=%s", body)
	}
}

func TestOverviewSummaryAndMarkers(t *testing.T) {
	srv := newTestRouter(t)
	b := boot(t, srv)

	body := b.get(t, "/overview").Body.String()
	if !strings.Contains(body, fmt.Sprintf("You have visited 0 of %d pools.", len(pools))) {
		t.Fatalf("expected overview summary; body=%s", body)
	}
	if strings.Contains(body, markerVisited) {
		t.Fatalf("expected no visited markers yet")
	}
	if !strings.Contains(body, markerUnvisited) {
		t.Fatalf("expected unvisited markers")
	}

	b.postOK(t, "/passport/pools/balmoral/toggle", nil)
	body = b.get(t, "/overview").Body.String()
	if !strings.Contains(body, fmt.Sprintf("You have visited 1 of %d pools.", len(pools))) {
		t.Fatalf("expected updated summary; body=%s", body)
	}
	if !strings.Contains(body, markerVisited) {
		t.Fatalf("expected a visited marker after toggling")
	}
	if !strings.Contains(body, "poolMap('overview-map'") {
		t.Fatalf("expected overview map bootstrap script")
	}
}

func TestOverviewEmptyCatalog(t *testing.T) {
	srv := newTestRouter(t)
	pools, catalogErr = nil, nil
	b := boot(t, srv)

	body := b.get(t, "/overview").Body.String()
	if !strings.Contains(body, "data-overview-empty") {
		t.Fatalf("expected empty-catalog message; body=%s", body)
	}
}

func TestCatalogErrorRendered(t *testing.T) {
	srv := newTestRouter(t)
	pools, catalogErr = nil, errors.New("yaml exploded")
	b := boot(t, srv)

	for _, path := range []string{"/", "/overview"} {
		body := b.get(t, path).Body.String()
		if !strings.Contains(body, "data-catalog-error") {
			t.Fatalf("expected catalog error on %s; body=%s", path, body)
		}
	}
}

func TestGuidePageRenders(t *testing.T) {
	srv := newTestRouter(t)
	b := boot(t, srv)

	body := b.get(t, "/guide").Body.String()
	if !strings.Contains(body, "How the passport works") {
		t.Fatalf("expected guide title; body=%s", body)
	}
	if !strings.Contains(body, "<h2") {
		t.Fatalf("expected rendered markdown headings")
	}
	if strings.Contains(body, "<script>alert") {
		t.Fatalf("expected sanitized guide HTML")
	}
}
