package main

import (
	"fmt"

	"harbourpools.org/passport-web/internal/catalog"
	"harbourpools.org/passport-web/internal/mapview"
	"harbourpools.org/passport-web/internal/passport"
)

// Marker colors by visited status.
const (
	markerVisited   = "#1b7f4b"
	markerUnvisited = "#b3342e"
)

// OverviewView drives the all-pools overview page.
type OverviewView struct {
	CatalogError string
	Empty        bool
	Summary      string
	Visited      int
	Total        int
	Map          mapview.View
}

// buildOverviewView derives the overview from the catalog and a fresh
// visited map. Visited status is computed live on every load; nothing
// here is cached between page loads.
func buildOverviewView(pools []catalog.PoolRecord, loadErr error, visited passport.VisitedMap) OverviewView {
	view := OverviewView{
		Visited: passport.CountVisited(visited),
		Total:   len(pools),
	}
	if loadErr != nil {
		view.CatalogError = "The pool catalog could not be loaded. Reload the page to try again."
		return view
	}
	if len(pools) == 0 {
		view.Empty = true
		view.Summary = "No pools in the catalog yet."
		return view
	}

	markers := make([]mapview.Marker, 0, len(pools))
	for _, p := range pools {
		color := markerUnvisited
		if _, ok := visited[p.ID]; ok {
			color = markerVisited
		}
		markers = append(markers, mapview.Marker{
			LatLng: mapview.LatLng{Lat: p.Lat, Lng: p.Lng},
			Popup:  p.Name,
			Color:  color,
		})
	}
	view.Map = mapview.Overview(markers)
	view.Summary = fmt.Sprintf("You have visited %d of %d pools.", view.Visited, view.Total)
	return view
}
