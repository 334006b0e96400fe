// Package passport owns the device-local persisted state of the pool
// passport: which pools have been stamped, the selected pool, the stamps
// page cursor, and the holder's display name.
package passport

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// Persisted key names. The version suffix lets an incompatible schema
// change ship under a new key without clobbering older data; readers
// treat an absent key as the default.
const (
	keyVisited     = "visited_v2_3"
	keySelection   = "selected_v2_3"
	keyStampsPage  = "stamps_page_v2_3"
	keyProfileName = "profile_name_v2_3"
)

// ErrStorageUnavailable reports that the underlying database could not be
// written. Callers that must tell the user about lost persistence (rename,
// reset) receive it; the routine state writes swallow it instead.
var ErrStorageUnavailable = errors.New("passport: storage unavailable")

// Store is a small key/value persistence layer over a local SQLite file.
// Writes always land in an in-memory overlay first so the session keeps
// working even when the database is unavailable; only the overlay is lost
// on restart in that case.
type Store struct {
	db *sql.DB

	mu  sync.RWMutex
	mem map[string]string
}

// DefaultPath returns the per-device database location under the user
// config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "passport.db"
	}
	return filepath.Join(dir, "poolpass", "passport.db")
}

// Open opens (creating if needed) the passport database at path. On any
// failure it returns a memory-only store alongside the error so the
// caller can keep serving without persistence.
func Open(path string) (*Store, error) {
	s := &Store{mem: map[string]string{}}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return s, fmt.Errorf("passport: create state dir: %w", err)
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return s, fmt.Errorf("passport: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return s, fmt.Errorf("passport: open %s: %w", path, err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS kv (
  key   TEXT PRIMARY KEY,
  value TEXT NOT NULL
);
	`); err != nil {
		_ = db.Close()
		return s, fmt.Errorf("passport: init schema: %w", err)
	}
	s.db = db
	return s, nil
}

// OpenMemory returns a store with no backing database. Writes survive for
// the process lifetime only.
func OpenMemory() *Store {
	return &Store{mem: map[string]string{}}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// getRaw prefers the in-memory overlay (it always reflects the latest
// write of this session), then the database.
func (s *Store) getRaw(key string) (string, bool) {
	s.mu.RLock()
	v, ok := s.mem[key]
	s.mu.RUnlock()
	if ok {
		return v, true
	}
	if s.db == nil {
		return "", false
	}
	var val string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&val)
	if err != nil {
		return "", false
	}
	return val, true
}

func (s *Store) setRaw(key, value string) error {
	s.mu.Lock()
	s.mem[key] = value
	s.mu.Unlock()
	if s.db == nil {
		return ErrStorageUnavailable
	}
	_, err := s.db.Exec(
		"INSERT INTO kv(key, value) VALUES(?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// setRawQuiet is the write path for the routine state slices: a storage
// failure is logged and swallowed, the overlay still advances.
func (s *Store) setRawQuiet(key, value string) {
	if err := s.setRaw(key, value); err != nil {
		log.Printf("passport: write %s not persisted: %v", key, err)
	}
}

// ReadVisited returns the visited map, or an empty map when the key is
// absent or the stored value does not parse. Dates are returned exactly
// as stored; DisplayDate converts legacy values at render time.
func (s *Store) ReadVisited() VisitedMap {
	raw, ok := s.getRaw(keyVisited)
	if !ok || strings.TrimSpace(raw) == "" {
		return VisitedMap{}
	}
	var m VisitedMap
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		log.Printf("passport: corrupt visited map, starting empty: %v", err)
		return VisitedMap{}
	}
	if m == nil {
		return VisitedMap{}
	}
	return m
}

// WriteVisited persists the whole visited map. Storage failure is
// swallowed; the session continues from the in-memory copy.
func (s *Store) WriteVisited(m VisitedMap) {
	if m == nil {
		m = VisitedMap{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		log.Printf("passport: marshal visited map: %v", err)
		return
	}
	s.setRawQuiet(keyVisited, string(b))
}

// ReadSelection returns the persisted pool index, floored at zero.
// Clamping against the catalog length is the caller's job since the
// store does not know the catalog.
func (s *Store) ReadSelection() int {
	return s.readInt(keySelection)
}

func (s *Store) WriteSelection(idx int) {
	if idx < 0 {
		idx = 0
	}
	s.setRawQuiet(keySelection, strconv.Itoa(idx))
}

// ReadStampsPage returns the persisted stamps page cursor, floored at zero.
func (s *Store) ReadStampsPage() int {
	return s.readInt(keyStampsPage)
}

func (s *Store) WriteStampsPage(page int) {
	if page < 0 {
		page = 0
	}
	s.setRawQuiet(keyStampsPage, strconv.Itoa(page))
}

func (s *Store) readInt(key string) int {
	raw, ok := s.getRaw(key)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ReadProfileName returns the passport holder's display name, empty when unset.
func (s *Store) ReadProfileName() string {
	raw, _ := s.getRaw(keyProfileName)
	return raw
}

// WriteProfileName persists the display name. Unlike the routine state
// writes the error is returned: the rename is user-initiated and the user
// must know when persistence did not happen.
func (s *Store) WriteProfileName(name string) error {
	return s.setRaw(keyProfileName, name)
}

// Reset deletes all four persisted keys in one transaction. On failure
// nothing is cleared, including the overlay, and the caller aborts.
func (s *Store) Reset() error {
	if s.db == nil {
		return ErrStorageUnavailable
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	for _, key := range []string{keyVisited, keySelection, keyStampsPage, keyProfileName} {
		if _, err := tx.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	s.mu.Lock()
	s.mem = map[string]string{}
	s.mu.Unlock()
	return nil
}
