package main

import (
	"harbourpools.org/passport-web/internal/catalog"
	"harbourpools.org/passport-web/internal/mapview"
	"harbourpools.org/passport-web/internal/passport"
)

// genericSuburb labels pools whose record carries no suburb.
const genericSuburb = "Harbourside"

// stateSnapshot is everything the renderers derive their output from,
// read from the store once per request. Views are pure functions of a
// snapshot; nothing is rendered that was not persisted (or, when storage
// is down, accepted into the store's session overlay) first.
type stateSnapshot struct {
	Visited     passport.VisitedMap
	Selection   int
	StampsPage  int
	ProfileName string
}

func readState(s *passport.Store) stateSnapshot {
	return stateSnapshot{
		Visited:     s.ReadVisited(),
		Selection:   s.ReadSelection(),
		StampsPage:  s.ReadStampsPage(),
		ProfileName: s.ReadProfileName(),
	}
}

// PassportView drives the detail/list page in both of its modes.
type PassportView struct {
	Mode         string // "list" or "stamps"
	CatalogError string

	Rows   []PoolRow
	Detail *PoolDetail
	Stamps StampsView

	Visited int
	Total   int
}

// PoolRow is one entry in the pool list.
type PoolRow struct {
	Index    int
	ID       string
	Name     string
	Suburb   string
	Visited  bool
	Selected bool
}

// PoolDetail is the expanded, currently-selected pool.
type PoolDetail struct {
	Index       int
	ID          string
	Name        string
	Suburb      string
	Visited     bool
	VisitedDate string
	ToggleLabel string
	Map         mapview.View
}

// StampsView is the paginated passport gallery.
type StampsView struct {
	HolderName string
	Cards      []StampCard
	Page       int
	Pages      int
	HasPrev    bool
	HasNext    bool
	Empty      bool
}

// StampCard is one collected stamp.
type StampCard struct {
	ID          string
	Name        string
	Suburb      string
	Image       string
	Date        string
	JustStamped bool
}

// buildPassportView derives the detail/list page from a state snapshot.
// stampedID optionally flags one card for the one-shot emphasis after a
// fresh stamp; it is transient UI state, never persisted.
func buildPassportView(pools []catalog.PoolRecord, loadErr error, st stateSnapshot, mode, stampedID string) PassportView {
	view := PassportView{
		Mode:    mode,
		Visited: passport.CountVisited(st.Visited),
		Total:   len(pools),
	}
	if loadErr != nil {
		view.CatalogError = "The pool catalog could not be loaded. Reload the page to try again."
		return view
	}

	selected := catalog.ClampIndex(st.Selection, len(pools))
	for i, p := range pools {
		_, visited := st.Visited[p.ID]
		view.Rows = append(view.Rows, PoolRow{
			Index:    i,
			ID:       p.ID,
			Name:     p.Name,
			Suburb:   suburbLabel(p),
			Visited:  visited,
			Selected: i == selected,
		})
	}
	if len(pools) > 0 {
		view.Detail = buildPoolDetail(pools[selected], selected, st.Visited)
	}
	view.Stamps = buildStampsView(pools, st, stampedID)
	return view
}

func buildPoolDetail(p catalog.PoolRecord, index int, visited passport.VisitedMap) *PoolDetail {
	d := &PoolDetail{
		Index:       index,
		ID:          p.ID,
		Name:        p.Name,
		Suburb:      suburbLabel(p),
		ToggleLabel: "Mark as visited",
		Map:         mapview.Detail(mapview.LatLng{Lat: p.Lat, Lng: p.Lng}, p.Name),
	}
	if e, ok := visited[p.ID]; ok {
		d.Visited = true
		d.VisitedDate = passport.DisplayDate(e.Date)
		d.ToggleLabel = "Visited · " + d.VisitedDate
	}
	return d
}

// buildStampsView paginates the visited pools in visit-date order. The
// caller has already clamped and persisted st.StampsPage for this render.
func buildStampsView(pools []catalog.PoolRecord, st stateSnapshot, stampedID string) StampsView {
	ordered := passport.VisitedInOrder(pools, st.Visited)
	page := passport.ClampPage(st.StampsPage, len(ordered))
	sv := StampsView{
		HolderName: st.ProfileName,
		Page:       page,
		Pages:      passport.PageCount(len(ordered)),
		Empty:      len(ordered) == 0,
	}
	sv.HasPrev = page > 0
	sv.HasNext = page < sv.Pages-1
	for _, vp := range passport.PageSlice(ordered, page) {
		sv.Cards = append(sv.Cards, StampCard{
			ID:          vp.Pool.ID,
			Name:        vp.Pool.Name,
			Suburb:      suburbLabel(vp.Pool),
			Image:       vp.Pool.StampImage(),
			Date:        passport.DisplayDate(vp.Entry.Date),
			JustStamped: stampedID != "" && vp.Pool.ID == stampedID,
		})
	}
	return sv
}

func suburbLabel(p catalog.PoolRecord) string {
	if p.Suburb != "" {
		return p.Suburb
	}
	return genericSuburb
}
