// Package mapview decides what the live map draws. It turns location records
// into markers, keeps the camera still once the user has taken control and
// tracks the single selected marker.
package mapview

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/crash-ph/admin-console/internal/metrics"
	"github.com/rs/zerolog"
)

// Marker layers. Marker ids are prefixed with their layer so ids coming from
// different tables never collide.
const (
	LayerOffices     = "office"
	LayerReports     = "report"
	LayerCheckpoints = "checkpoint"
)

// FocusZoom is the minimum zoom used when centring on a selected marker.
const FocusZoom = 15

var ErrUnknownMarker = errors.New("unknown marker")

// Record is a location to pin, before validation.
type Record struct {
	ID      string
	Kind    string
	Lat     float64
	Lng     float64
	Title   string
	Details []string
}

// MarkerID returns the id a record of layer is shown under.
func MarkerID(layer, id string) string {
	return layer + ":" + id
}

// SyncResult summarises one layer sync.
type SyncResult struct {
	Added   int
	Moved   int
	Updated int
	Removed int
	Skipped []string
	Fitted  bool
}

// Reconciler keeps a Widget in step with the latest records. It is safe for
// concurrent use.
type Reconciler struct {
	mu sync.Mutex

	widget  Widget
	log     *zerolog.Logger
	focusKm float64

	markers    map[string]Marker
	rendered   bool
	interacted bool
	hasView    bool
	center     LatLng
	zoom       int
	selected   string
}

// NewReconciler creates a reconciler drawing on widget. Selecting a marker
// re-centres the map only when it lies more than focusKm from the view centre.
func NewReconciler(widget Widget, focusKm float64, log *zerolog.Logger) *Reconciler {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Reconciler{
		widget:  widget,
		log:     log,
		focusKm: focusKm,
		markers: make(map[string]Marker),
	}
}

// SyncLayer replaces the markers of one layer with records. Only differences
// reach the widget. The camera fits all markers on the first render and when
// a new marker appears, unless the user has moved the map.
func (r *Reconciler) SyncLayer(layer string, records []Record) SyncResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result SyncResult

	desired := make(map[string]Marker, len(records))
	for _, rec := range records {
		if !ValidPosition(rec.Lat, rec.Lng) {
			r.log.Debug().
				Str("layer", layer).
				Str("id", rec.ID).
				Float64("lat", rec.Lat).
				Float64("lng", rec.Lng).
				Msg("skipping record with invalid coordinates")
			metrics.MarkersSkipped.WithLabelValues(layer).Inc()
			result.Skipped = append(result.Skipped, rec.ID)
			continue
		}

		id := MarkerID(layer, rec.ID)
		desired[id] = Marker{
			ID:       id,
			Layer:    layer,
			Kind:     rec.Kind,
			Position: LatLng{Lat: rec.Lat, Lng: rec.Lng},
			Title:    rec.Title,
			Details:  rec.Details,
		}
	}

	for _, id := range r.sortedIDs() {
		m := r.markers[id]
		if m.Layer != layer {
			continue
		}
		if _, ok := desired[id]; ok {
			continue
		}
		if r.selected == id {
			r.widget.ClosePopup(id)
			r.selected = ""
		}
		r.widget.RemoveMarker(id)
		delete(r.markers, id)
		result.Removed++
	}

	grew := false
	ids := make([]string, 0, len(desired))
	for id := range desired {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		m := desired[id]
		current, ok := r.markers[id]
		switch {
		case !ok:
			r.widget.AddMarker(m, r.iconFor(m))
			result.Added++
			grew = true
		default:
			if current.Position != m.Position {
				r.widget.MoveMarker(id, m.Position)
				result.Moved++
			}
			if !current.sameContent(m) {
				r.widget.UpdateMarker(m, r.iconFor(m))
				result.Updated++
			}
		}
		r.markers[id] = m
	}

	if !r.interacted && len(r.markers) > 0 && (!r.rendered || grew) {
		if b, ok := BoundsOf(r.positions()); ok {
			r.widget.FitBounds(b)
			result.Fitted = true
		}
	}
	if len(r.markers) > 0 {
		r.rendered = true
	}

	return result
}

// MarkInteraction records that the user panned or zoomed the map. Automatic
// fitting stops for the rest of the reconciler's life.
func (r *Reconciler) MarkInteraction() {
	r.mu.Lock()
	r.interacted = true
	r.mu.Unlock()
}

// UpdateView records the map's current centre and zoom.
func (r *Reconciler) UpdateView(center LatLng, zoom int) {
	r.mu.Lock()
	r.center = center
	r.zoom = zoom
	r.hasView = true
	r.mu.Unlock()
}

// Select highlights a marker and opens its popup, closing the popup of any
// previously selected marker. The map is re-centred only when the marker is
// far from the current view.
func (r *Reconciler) Select(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.markers[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMarker, id)
	}
	if r.selected == id {
		return nil
	}

	r.deselectLocked()

	r.selected = id
	r.widget.SetIcon(id, r.iconFor(m))
	r.widget.OpenPopup(id)

	if !r.hasView || DistanceKm(r.center, m.Position) > r.focusKm {
		zoom := r.zoom
		if zoom < FocusZoom {
			zoom = FocusZoom
		}
		r.widget.SetView(m.Position, zoom)
		r.center = m.Position
		r.zoom = zoom
		r.hasView = true
	}
	return nil
}

// Deselect closes the open popup and restores the selected marker's icon.
func (r *Reconciler) Deselect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deselectLocked()
}

// Selected returns the id of the selected marker, if any.
func (r *Reconciler) Selected() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected
}

// Markers returns the ids currently on the map, sorted.
func (r *Reconciler) Markers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedIDs()
}

func (r *Reconciler) deselectLocked() {
	if r.selected == "" {
		return
	}

	prev := r.selected
	r.selected = ""
	r.widget.ClosePopup(prev)
	if m, ok := r.markers[prev]; ok {
		r.widget.SetIcon(prev, r.iconFor(m))
	}
}

func (r *Reconciler) iconFor(m Marker) Icon {
	if m.ID == r.selected {
		return Icon{Kind: m.Kind, Size: SelectedIconSize, ZIndex: SelectedZIndex}
	}
	return Icon{Kind: m.Kind, Size: IconSize}
}

func (r *Reconciler) sortedIDs() []string {
	ids := make([]string, 0, len(r.markers))
	for id := range r.markers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Reconciler) positions() []LatLng {
	points := make([]LatLng, 0, len(r.markers))
	for _, id := range r.sortedIDs() {
		points = append(points, r.markers[id].Position)
	}
	return points
}
