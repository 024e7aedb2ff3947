package mapview

import "sync"

// Icon sizes and stacking order for normal and selected markers.
const (
	IconSize         = 30
	SelectedIconSize = 44
	SelectedZIndex   = 1000
)

// Icon describes how a marker is drawn.
type Icon struct {
	Kind   string `json:"kind"`
	Size   int    `json:"size"`
	ZIndex int    `json:"zIndex"`
}

// Marker is one pin on the map.
type Marker struct {
	ID       string   `json:"id"`
	Layer    string   `json:"layer"`
	Kind     string   `json:"kind"`
	Position LatLng   `json:"position"`
	Title    string   `json:"title"`
	Details  []string `json:"details,omitempty"`
}

func (m Marker) sameContent(o Marker) bool {
	if m.Kind != o.Kind || m.Title != o.Title || len(m.Details) != len(o.Details) {
		return false
	}
	for i := range m.Details {
		if m.Details[i] != o.Details[i] {
			return false
		}
	}
	return true
}

// Widget is the map the reconciler draws on.
type Widget interface {
	AddMarker(m Marker, icon Icon)
	MoveMarker(id string, to LatLng)
	UpdateMarker(m Marker, icon Icon)
	RemoveMarker(id string)
	SetIcon(id string, icon Icon)
	OpenPopup(id string)
	ClosePopup(id string)
	FitBounds(b Bounds)
	SetView(center LatLng, zoom int)
}

// Command ops recorded by CommandBuffer.
const (
	OpAdd        = "add"
	OpMove       = "move"
	OpUpdate     = "update"
	OpRemove     = "remove"
	OpIcon       = "icon"
	OpOpenPopup  = "openPopup"
	OpClosePopup = "closePopup"
	OpFitBounds  = "fitBounds"
	OpSetView    = "setView"
)

// Command is one widget call in a form the page script can apply.
type Command struct {
	Op       string  `json:"op"`
	ID       string  `json:"id,omitempty"`
	Marker   *Marker `json:"marker,omitempty"`
	Icon     *Icon   `json:"icon,omitempty"`
	Position *LatLng `json:"position,omitempty"`
	Bounds   *Bounds `json:"bounds,omitempty"`
	Zoom     int     `json:"zoom,omitempty"`
}

// CommandBuffer records widget calls until they are flushed to the browser.
type CommandBuffer struct {
	mu       sync.Mutex
	commands []Command
}

func (b *CommandBuffer) push(c Command) {
	b.mu.Lock()
	b.commands = append(b.commands, c)
	b.mu.Unlock()
}

func (b *CommandBuffer) AddMarker(m Marker, icon Icon) {
	b.push(Command{Op: OpAdd, ID: m.ID, Marker: &m, Icon: &icon})
}

func (b *CommandBuffer) MoveMarker(id string, to LatLng) {
	b.push(Command{Op: OpMove, ID: id, Position: &to})
}

func (b *CommandBuffer) UpdateMarker(m Marker, icon Icon) {
	b.push(Command{Op: OpUpdate, ID: m.ID, Marker: &m, Icon: &icon})
}

func (b *CommandBuffer) RemoveMarker(id string) {
	b.push(Command{Op: OpRemove, ID: id})
}

func (b *CommandBuffer) SetIcon(id string, icon Icon) {
	b.push(Command{Op: OpIcon, ID: id, Icon: &icon})
}

func (b *CommandBuffer) OpenPopup(id string) {
	b.push(Command{Op: OpOpenPopup, ID: id})
}

func (b *CommandBuffer) ClosePopup(id string) {
	b.push(Command{Op: OpClosePopup, ID: id})
}

func (b *CommandBuffer) FitBounds(bounds Bounds) {
	b.push(Command{Op: OpFitBounds, Bounds: &bounds})
}

func (b *CommandBuffer) SetView(center LatLng, zoom int) {
	b.push(Command{Op: OpSetView, Position: &center, Zoom: zoom})
}

// Flush returns the recorded commands and empties the buffer.
func (b *CommandBuffer) Flush() []Command {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.commands
	b.commands = nil
	return out
}
