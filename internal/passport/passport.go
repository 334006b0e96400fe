package passport

import (
	"sort"
	"time"

	"harbourpools.org/passport-web/internal/catalog"
)

// VisitedEntry records one stamped pool. Done is always true when the
// entry exists; un-visiting deletes the entry rather than flagging it.
type VisitedEntry struct {
	Done bool   `json:"done"`
	Date string `json:"date"`
}

// VisitedMap maps pool id to its stamp. Absence of a key means the pool
// has not been visited.
type VisitedMap map[string]VisitedEntry

// CountVisited is the number of stamped pools. Done is invariantly true
// for present entries, so this is simply the key count.
func CountVisited(m VisitedMap) int {
	return len(m)
}

// DisplayDateLayout is the canonical storage and display form.
const DisplayDateLayout = "02/01/2006"

// legacyDateLayout is the pre-v2 storage form, still honoured on read.
const legacyDateLayout = "2006-01-02"

// DisplayDate converts a stored date into display form. Legacy ISO values
// are converted on the fly; storage is never rewritten for them. Values
// that parse as neither layout are returned untouched.
func DisplayDate(s string) string {
	if _, err := time.Parse(DisplayDateLayout, s); err == nil {
		return s
	}
	if t, err := time.Parse(legacyDateLayout, s); err == nil {
		return t.Format(DisplayDateLayout)
	}
	return s
}

// ParseDate parses a stored visit date in either the display or the
// legacy layout.
func ParseDate(s string) (time.Time, bool) {
	if t, err := time.Parse(DisplayDateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(legacyDateLayout, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Controller is the single write path for visited state.
type Controller struct {
	store *Store
	now   func() time.Time
}

func NewController(s *Store) *Controller {
	return &Controller{store: s, now: time.Now}
}

// SetClock overrides the stamping clock (tests).
func (c *Controller) SetClock(now func() time.Time) { c.now = now }

// Toggle flips the visited status of poolID: an existing stamp is removed,
// otherwise the pool is stamped with today's date. The whole updated map
// is persisted before the caller re-renders. Reports whether the pool is
// visited after the toggle.
func (c *Controller) Toggle(poolID string) bool {
	m := c.store.ReadVisited()
	if _, ok := m[poolID]; ok {
		delete(m, poolID)
		c.store.WriteVisited(m)
		return false
	}
	m[poolID] = VisitedEntry{Done: true, Date: c.now().Format(DisplayDateLayout)}
	c.store.WriteVisited(m)
	return true
}

// VisitedPool pairs a catalog record with its stamp.
type VisitedPool struct {
	Pool  catalog.PoolRecord
	Entry VisitedEntry
}

// VisitedInOrder filters pools down to the stamped ones and sorts them by
// actual visit date, oldest first. The source tracker compared the
// DD/MM/YYYY strings lexicographically, which inverts across month and
// year boundaries; this sorts on the parsed date instead. Unparseable
// dates sink to the end; ties keep catalog order.
func VisitedInOrder(pools []catalog.PoolRecord, m VisitedMap) []VisitedPool {
	out := make([]VisitedPool, 0, len(m))
	for _, p := range pools {
		if e, ok := m[p.ID]; ok {
			out = append(out, VisitedPool{Pool: p, Entry: e})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, oki := ParseDate(out[i].Entry.Date)
		tj, okj := ParseDate(out[j].Entry.Date)
		if oki != okj {
			return oki
		}
		if !oki {
			return false
		}
		return ti.Before(tj)
	})
	return out
}

// PageSize is the fixed number of stamp cards per passport page.
const PageSize = 3

// PageCount returns the number of stamp pages for visited pools: at least
// one, even with nothing stamped.
func PageCount(visited int) int {
	if visited <= 0 {
		return 1
	}
	return (visited + PageSize - 1) / PageSize
}

// ClampPage confines page to the valid range for visited pools.
func ClampPage(page, visited int) int {
	last := PageCount(visited) - 1
	if page > last {
		return last
	}
	if page < 0 {
		return 0
	}
	return page
}

// PageSlice returns the visited pools shown on page (already clamped).
func PageSlice(ordered []VisitedPool, page int) []VisitedPool {
	start := page * PageSize
	if start >= len(ordered) {
		return nil
	}
	end := start + PageSize
	if end > len(ordered) {
		end = len(ordered)
	}
	return ordered[start:end]
}
