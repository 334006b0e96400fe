// Package content serves the static guide pages shipped with the app as
// markdown files with YAML front matter.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when no page exists for a slug.
var ErrNotFound = errors.New("content: not found")

// Page is a rendered static page.
type Page struct {
	Slug      string
	Title     string
	Summary   string
	HTML      string
	UpdatedAt time.Time
}

type frontMatter struct {
	Title     string `yaml:"title"`
	Summary   string `yaml:"summary"`
	UpdatedAt string `yaml:"updated_at"`
}

const defaultDir = "content"

// Client loads and caches pages from a local directory.
type Client struct {
	dir string

	mu    sync.RWMutex
	items map[string]cacheEntry
	ttl   time.Duration
}

type cacheEntry struct {
	page    Page
	expires time.Time
}

func NewClient(dir string) *Client {
	if strings.TrimSpace(dir) == "" {
		dir = defaultDir
	}
	return &Client{dir: dir, items: map[string]cacheEntry{}, ttl: 5 * time.Minute}
}

// SetCacheDuration overrides the in-memory cache duration (primarily for tests).
func (c *Client) SetCacheDuration(d time.Duration) {
	if d <= 0 {
		d = time.Minute
	}
	c.mu.Lock()
	c.ttl = d
	c.items = map[string]cacheEntry{}
	c.mu.Unlock()
}

// Get loads the page for slug, rendering its markdown body to sanitized HTML.
func (c *Client) Get(slug string) (Page, error) {
	slug = sanitizeSlug(slug)
	if slug == "" {
		return Page{}, ErrNotFound
	}
	c.mu.RLock()
	entry, ok := c.items[slug]
	ttl := c.ttl
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.expires) {
		return entry.page, nil
	}

	page, err := c.load(slug)
	if err != nil {
		return Page{}, err
	}
	c.mu.Lock()
	c.items[slug] = cacheEntry{page: page, expires: time.Now().Add(ttl)}
	c.mu.Unlock()
	return page, nil
}

func (c *Client) load(slug string) (Page, error) {
	file := filepath.Join(c.dir, slug+".md")
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Page{}, ErrNotFound
		}
		return Page{}, fmt.Errorf("content: read %s: %w", file, err)
	}
	fm, body := splitFrontMatter(string(data))
	front := frontMatter{}
	if strings.TrimSpace(fm) != "" {
		if err := yaml.Unmarshal([]byte(fm), &front); err != nil {
			return Page{}, fmt.Errorf("content: parse front matter %s: %w", file, err)
		}
	}
	html, err := renderMarkdown(body)
	if err != nil {
		return Page{}, fmt.Errorf("content: render %s: %w", file, err)
	}
	page := Page{
		Slug:    slug,
		Title:   strings.TrimSpace(front.Title),
		Summary: strings.TrimSpace(front.Summary),
		HTML:    html,
	}
	if page.Title == "" {
		page.Title = prettifySlug(slug)
	}
	if t, err := time.Parse("2006-01-02", strings.TrimSpace(front.UpdatedAt)); err == nil {
		page.UpdatedAt = t
	} else if info, statErr := os.Stat(file); statErr == nil {
		page.UpdatedAt = info.ModTime()
	}
	return page, nil
}

func renderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return bluemonday.UGCPolicy().Sanitize(buf.String()), nil
}

func splitFrontMatter(input string) (string, string) {
	input = strings.TrimLeft(input, "\uFEFF")
	lines := strings.Split(input, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return "", input
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			fm := strings.Join(lines[1:i], "\n")
			body := strings.Join(lines[i+1:], "\n")
			return fm, strings.TrimLeft(body, "\n\r")
		}
	}
	return "", input
}

func sanitizeSlug(slug string) string {
	slug = strings.TrimSpace(strings.ToLower(slug))
	slug = strings.Trim(slug, "/")
	if slug == "" || strings.Contains(slug, "..") || strings.ContainsRune(slug, os.PathSeparator) {
		return ""
	}
	return slug
}

func prettifySlug(slug string) string {
	parts := strings.Split(slug, "-")
	for i, part := range parts {
		if part == "" {
			continue
		}
		runes := []rune(part)
		if runes[0] >= 'a' && runes[0] <= 'z' {
			runes[0] -= 'a' - 'A'
		}
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}
