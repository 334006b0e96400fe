package format

import (
	"fmt"
	"time"
)

// Badge renders the visited-count header badge, e.g. "3 / 12".
func Badge(visited, total int) string {
	return fmt.Sprintf("%d / %d", visited, total)
}

// Date formats a time in the passport's display form.
func Date(t time.Time) string {
	return t.Format("02/01/2006")
}

// Plural picks the singular or plural noun for n.
func Plural(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
