package httpapi

import (
	"hash/fnv"
	"net/http"
	"strings"

	"sitemanager/core-go/internal/tree"
)

// Default map centre used for sites without coordinates.
const (
	mapDefaultLat = 47.6062
	mapDefaultLng = -122.3321
	mapJitterDeg  = 0.05
)

type mapPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type mapMarker struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Path        []string       `json:"path"`
	Lat         float64        `json:"lat"`
	Lng         float64        `json:"lng"`
	Severity    *tree.Severity `json:"severity,omitempty"`
	Label       string         `json:"label,omitempty"`
	Color       string         `json:"color,omitempty"`
	IPAddress   string         `json:"ipAddress,omitempty"`
	State       string         `json:"state,omitempty"`
	Country     string         `json:"country,omitempty"`
	Approximate bool           `json:"approximate"`
}

type mapSites struct {
	Center  mapPoint    `json:"center"`
	Markers []mapMarker `json:"markers"`
}

// jitter places a site without coordinates near the default centre. The offset is
// derived from the name-path so a site keeps its position across requests.
func jitter(path []string) mapPoint {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.Join(path, "\x1f")))
	sum := h.Sum64()

	unit := func(bits uint64) float64 {
		return float64(bits&0xffff)/0xffff*2 - 1
	}
	return mapPoint{
		Lat: mapDefaultLat + unit(sum)*mapJitterDeg,
		Lng: mapDefaultLng + unit(sum>>16)*mapJitterDeg,
	}
}

func buildMapSites(nodes []*tree.Node) mapSites {
	leaves := tree.Leaves(nodes)
	out := mapSites{
		Center:  mapPoint{Lat: mapDefaultLat, Lng: mapDefaultLng},
		Markers: make([]mapMarker, 0, len(leaves)),
	}

	var sumLat, sumLng float64
	for _, leaf := range leaves {
		n := leaf.Node
		m := mapMarker{
			ID:   n.SelectionValue(),
			Name: n.Name,
			Path: leaf.Path,
		}
		if loc := n.Location; loc != nil {
			m.IPAddress = loc.IPAddress
			m.State = loc.State
			m.Country = loc.Country
		}
		if n.Location.HasCoordinates() {
			m.Lat, m.Lng = *n.Location.Latitude, *n.Location.Longitude
		} else {
			p := jitter(leaf.Path)
			m.Lat, m.Lng = p.Lat, p.Lng
			m.Approximate = true
		}
		if n.MaxAlarmSeverity != nil {
			if style, ok := tree.LookupSeverity(*n.MaxAlarmSeverity); ok {
				sev := style.Level
				m.Severity = &sev
				m.Label = style.Label
				m.Color = style.Color
			}
		}

		sumLat += m.Lat
		sumLng += m.Lng
		out.Markers = append(out.Markers, m)
	}

	if count := len(out.Markers); count > 0 {
		out.Center = mapPoint{Lat: sumLat / float64(count), Lng: sumLng / float64(count)}
	}
	return out
}

func (h *Handler) handleMapSites(w http.ResponseWriter, r *http.Request) {
	view, ok := h.loadTree(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, buildMapSites(view.nodes))
}
