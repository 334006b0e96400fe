// Package mapview describes what the client-side map widget should show.
// The widget itself (Leaflet over a public tile service) is an opaque
// capability; Go only assembles its configuration and serializes it for
// the page templates.
package mapview

import (
	"encoding/json"
	"html/template"
)

// Tile source and attribution for the public tile service. Attribution is
// a display requirement of the tile provider.
const (
	TileURL     = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"
	Attribution = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`
)

const (
	DefaultZoom    = 14
	DefaultPadding = 32
)

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Marker is one point on the map. Popup text opens on click; Color picks
// the marker style.
type Marker struct {
	LatLng
	Popup string `json:"popup,omitempty"`
	Color string `json:"color,omitempty"`
}

// View is the full widget configuration handed to the client.
type View struct {
	Center      LatLng   `json:"center"`
	Zoom        int      `json:"zoom"`
	Animate     bool     `json:"animate"`
	Markers     []Marker `json:"markers"`
	FitBounds   bool     `json:"fitBounds"`
	Padding     int      `json:"padding"`
	TileURL     string   `json:"tileUrl"`
	Attribution string   `json:"attribution"`
}

// Detail builds the single-pool view: centered on the pool, popup bound
// to its marker, animated pan when the widget is already live.
func Detail(center LatLng, popup string) View {
	return View{
		Center:      center,
		Zoom:        DefaultZoom,
		Animate:     true,
		Markers:     []Marker{{LatLng: center, Popup: popup}},
		TileURL:     TileURL,
		Attribution: Attribution,
	}
}

// Overview builds the all-pools view: every marker shown, viewport fitted
// to the bounds containing them.
func Overview(markers []Marker) View {
	v := View{
		Zoom:        DefaultZoom,
		Markers:     markers,
		FitBounds:   len(markers) > 0,
		Padding:     DefaultPadding,
		TileURL:     TileURL,
		Attribution: Attribution,
	}
	if len(markers) > 0 {
		sw, ne := Bounds(markers)
		v.Center = LatLng{Lat: (sw.Lat + ne.Lat) / 2, Lng: (sw.Lng + ne.Lng) / 2}
	}
	return v
}

// Bounds returns the south-west and north-east corners containing all
// markers. Callers must pass at least one marker.
func Bounds(markers []Marker) (sw, ne LatLng) {
	sw, ne = markers[0].LatLng, markers[0].LatLng
	for _, m := range markers[1:] {
		if m.Lat < sw.Lat {
			sw.Lat = m.Lat
		}
		if m.Lng < sw.Lng {
			sw.Lng = m.Lng
		}
		if m.Lat > ne.Lat {
			ne.Lat = m.Lat
		}
		if m.Lng > ne.Lng {
			ne.Lng = m.Lng
		}
	}
	return sw, ne
}

// JSON serializes the view for embedding in a template script block.
func (v View) JSON() template.JS {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return template.JS(b)
}
