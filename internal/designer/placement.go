package designer

import (
	"math"

	"github.com/google/uuid"
)

// Default placement values
const (
	DefaultItemColor = "#A0522D"
	DefaultItemType  = "Generic"
	DefaultItemSize  = 50.0
	DefaultScale     = 1.0
)

// DefaultPosition is where a new item lands: room center, slightly above the floor
var DefaultPosition = Vec3{0, 0.5, 0}

// Vec3 is an x, y, z triple, encoded as a JSON array
type Vec3 [3]float64

// Axis selects a Vec3 component
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// ParseAxis converts "x", "y" or "z" to an Axis
func ParseAxis(s string) (Axis, bool) {
	switch s {
	case "x", "X":
		return AxisX, true
	case "y", "Y":
		return AxisY, true
	case "z", "Z":
		return AxisZ, true
	}
	return 0, false
}

// Dimensions is a furniture bounding box
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Length float64 `json:"length"`
}

// Placement is a catalog item positioned in a room
type Placement struct {
	ID         string     `json:"id"`
	ProductID  string     `json:"productId,omitempty"`
	Type       string     `json:"type"`
	Title      string     `json:"title,omitempty"`
	ModelURL   string     `json:"modelUrl,omitempty"`
	Thumbnail  string     `json:"thumbnail,omitempty"`
	Position   Vec3       `json:"position"`
	Rotation   Vec3       `json:"rotation"`
	Scale      float64    `json:"scale"`
	Color      string     `json:"color"`
	Dimensions Dimensions `json:"dimensions"`
}

// PlacementSpec describes a placement to add. Nil fields take defaults.
type PlacementSpec struct {
	ID         string      `json:"id,omitempty"`
	ProductID  string      `json:"productId,omitempty"`
	Type       string      `json:"type,omitempty"`
	Title      string      `json:"title,omitempty"`
	ModelURL   string      `json:"modelUrl,omitempty"`
	Thumbnail  string      `json:"thumbnail,omitempty"`
	Position   *Vec3       `json:"position,omitempty"`
	Rotation   *Vec3       `json:"rotation,omitempty"`
	Scale      *float64    `json:"scale,omitempty"`
	Color      string      `json:"color,omitempty"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
}

// Build turns a spec into a placement with defaults applied and the
// position clamped to the room.
func (s PlacementSpec) Build(room RoomDimensions) (Placement, error) {
	p := Placement{
		ID:        s.ID,
		ProductID: s.ProductID,
		Type:      s.Type,
		Title:     s.Title,
		ModelURL:  s.ModelURL,
		Thumbnail: s.Thumbnail,
		Position:  DefaultPosition,
		Scale:     DefaultScale,
		Color:     s.Color,
		Dimensions: Dimensions{
			Width:  DefaultItemSize,
			Height: DefaultItemSize,
			Length: DefaultItemSize,
		},
	}
	if s.Position != nil {
		p.Position = *s.Position
	}
	if s.Rotation != nil {
		p.Rotation = *s.Rotation
	}
	if s.Scale != nil {
		if *s.Scale <= 0 {
			return Placement{}, ErrInvalidScale
		}
		p.Scale = *s.Scale
	}
	if s.Dimensions != nil {
		p.Dimensions = *s.Dimensions
	}
	if p.Color != "" && !ValidColor(p.Color) {
		return Placement{}, ErrInvalidColor
	}
	return normalizePlacement(p, room), nil
}

// normalizePlacement fills blanks left by older stored layouts and keeps
// the transform inside the room.
func normalizePlacement(p Placement, room RoomDimensions) Placement {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Type == "" {
		p.Type = DefaultItemType
	}
	if p.Color == "" {
		p.Color = DefaultItemColor
	}
	if p.Scale <= 0 {
		p.Scale = DefaultScale
	}
	if p.Dimensions == (Dimensions{}) {
		p.Dimensions = Dimensions{Width: DefaultItemSize, Height: DefaultItemSize, Length: DefaultItemSize}
	}
	p.Position = clampToRoom(p.Position, room)
	for i := range p.Rotation {
		p.Rotation[i] = normalizeAngle(p.Rotation[i])
	}
	return p
}

func clampToRoom(v Vec3, room RoomDimensions) Vec3 {
	return Vec3{
		clamp(v[AxisX], -room.Width/2, room.Width/2),
		clamp(v[AxisY], 0, room.Height),
		clamp(v[AxisZ], -room.Depth/2, room.Depth/2),
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(lo, math.Min(hi, v))
}

// normalizeAngle maps radians into [0, 2π)
func normalizeAngle(r float64) float64 {
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	r = math.Mod(r, 2*math.Pi)
	if r < 0 {
		r += 2 * math.Pi
	}
	return r
}
