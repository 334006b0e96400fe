package main

import (
	"flag"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"harbourpools.org/passport-web/internal/catalog"
	"harbourpools.org/passport-web/internal/content"
	mw "harbourpools.org/passport-web/internal/middleware"
	"harbourpools.org/passport-web/internal/passport"
)

var (
	templatesDir = "templates"
	publicDir    = "public"
	// devMode is set in main() based on env: POOLPASS_DEV (preferred) or DEV (fallback)
	devMode   bool
	tmplCache *template.Template

	store         *passport.Store
	ctrl          *passport.Controller
	pools         []catalog.PoolRecord
	catalogErr    error
	contentClient *content.Client
)

func main() {
	// .env is optional; real env always wins
	_ = godotenv.Load()

	var (
		addr        string
		tmplPath    string
		pubPath     string
		dataPath    string
		contentPath string
		dbPath      string
	)
	// Port resolution: prefer POOLPASS_PORT, then PORT, else 8080
	port := os.Getenv("POOLPASS_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = "8080"
	}
	flag.StringVar(&addr, "addr", ":"+port, "HTTP listen address")
	flag.StringVar(&tmplPath, "templates", templatesDir, "templates directory")
	flag.StringVar(&pubPath, "public", publicDir, "public assets directory")
	flag.StringVar(&dataPath, "data", "data/pools.yaml", "pool catalog file")
	flag.StringVar(&contentPath, "content", "content", "guide pages directory")
	flag.StringVar(&dbPath, "state", passport.DefaultPath(), "passport state database")
	flag.Parse()

	templatesDir = tmplPath
	publicDir = pubPath

	// Dev mode: prefer POOLPASS_DEV, fallback to DEV
	devMode = os.Getenv("POOLPASS_DEV") != "" || os.Getenv("DEV") != ""

	if !devMode {
		// Parse templates once in production
		tc, err := parseTemplates()
		if err != nil {
			log.Fatalf("parse templates: %v", err)
		}
		tmplCache = tc
	}

	// The state store degrades to memory-only when the database cannot be
	// opened; the session still works, nothing survives restart.
	var err error
	store, err = passport.Open(dbPath)
	if err != nil {
		log.Printf("state store not persistent: %v", err)
	}
	ctrl = passport.NewController(store)

	// Catalog load failure is non-fatal: views render the error in place.
	pools, catalogErr = catalog.Load(dataPath)
	if catalogErr != nil {
		log.Printf("catalog: %v", catalogErr)
	}

	contentClient = content.NewClient(contentPath)

	r := newRouter()

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("passport-web listening on %s (devMode=%v, pools=%d)", addr, devMode, len(pools))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("listen: %v", err)
	}
}

func newRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.HTMX)
	r.Use(mw.Session)
	r.Use(mw.CSRF)
	r.Use(mw.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(middleware.Timeout(30 * time.Second))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Static assets under /assets/
	assets := http.StripPrefix("/assets", mw.AssetsWithCache(filepath.Join(publicDir, "assets")))
	r.Handle("/assets/*", assets)

	// Detail/list page and its mutations
	r.Get("/", PassportHandler)
	r.Post("/passport/pools/{poolID}/toggle", PassportToggleHandler)
	r.Post("/passport/select/{index}", PassportSelectHandler)
	r.Post("/passport/stamps/page", StampsPageHandler)

	// Overview page
	r.Get("/overview", OverviewHandler)

	// Profile
	r.Post("/profile/name", ProfileNameHandler)
	r.Post("/profile/reset", ProfileResetHandler)

	// Guide
	r.Get("/guide", GuideHandler)

	return r
}

func parseTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"now":  time.Now,
		"add1": func(n int) int { return n + 1 },
	}
	// Recursively discover and parse all .tmpl files. Note: ParseGlob doesn't support **.
	var files []string
	if err := filepath.WalkDir(templatesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(d.Name(), ".tmpl") {
			files = append(files, path)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no templates found under %s", templatesDir)
	}
	return template.New("_root").Funcs(funcMap).ParseFiles(files...)
}

// renderPage executes the named page template. In dev mode, templates are
// reparsed on each request.
func renderPage(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	var t *template.Template
	if devMode {
		tc, err := parseTemplates()
		if err != nil {
			http.Error(w, fmt.Sprintf("template parse error: %v", err), http.StatusInternalServerError)
			return
		}
		t = tc
	} else {
		t = tmplCache
	}
	if t == nil {
		http.Error(w, "template not initialized", http.StatusInternalServerError)
		return
	}
	if err := t.ExecuteTemplate(w, name, data); err != nil {
		http.Error(w, fmt.Sprintf("template exec error: %v", err), http.StatusInternalServerError)
		return
	}
}

// redirect sends the browser (or htmx) to url after a mutation so the
// next render reads fresh persisted state.
func redirect(w http.ResponseWriter, r *http.Request, url string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", url)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}
