package designer

import (
	"fmt"
	"math"
)

// Canvas is a room plus the furniture placed in it and the current selection
type Canvas struct {
	room     Room
	items    []Placement
	selected string
}

// NewCanvas builds a canvas from stored state. Missing room fields take
// defaults and every item is normalized against the room.
func NewCanvas(room Room, items []Placement) (*Canvas, error) {
	room, err := NormalizeRoom(room)
	if err != nil {
		return nil, err
	}

	c := &Canvas{room: room, items: make([]Placement, 0, len(items))}
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if seen[it.ID] {
			// duplicated ids would make every id-addressed operation ambiguous
			it.ID = ""
		}
		it = normalizePlacement(it, room.Dimensions)
		seen[it.ID] = true
		c.items = append(c.items, it)
	}
	return c, nil
}

// Room returns the room configuration
func (c *Canvas) Room() Room {
	return c.room
}

// Items returns a copy of the placements in insertion order
func (c *Canvas) Items() []Placement {
	out := make([]Placement, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of placements
func (c *Canvas) Len() int {
	return len(c.items)
}

// Find returns the placement with the given id
func (c *Canvas) Find(id string) (Placement, bool) {
	if i := c.index(id); i >= 0 {
		return c.items[i], true
	}
	return Placement{}, false
}

// Selected returns the selected placement, if any
func (c *Canvas) Selected() (Placement, bool) {
	if c.selected == "" {
		return Placement{}, false
	}
	return c.Find(c.selected)
}

// SelectedID returns the id of the selected placement or ""
func (c *Canvas) SelectedID() string {
	return c.selected
}

// Add places a new item and selects it
func (c *Canvas) Add(spec PlacementSpec) (Placement, error) {
	if spec.ProductID != "" {
		for _, it := range c.items {
			if it.ProductID == spec.ProductID {
				return Placement{}, ErrAlreadyPlaced
			}
		}
	}
	if spec.ID != "" && c.index(spec.ID) >= 0 {
		spec.ID = ""
	}

	p, err := spec.Build(c.room.Dimensions)
	if err != nil {
		return Placement{}, err
	}

	c.items = append(c.items, p)
	c.selected = p.ID
	return p, nil
}

// Remove drops an item. Removing the selected item clears the selection.
func (c *Canvas) Remove(id string) error {
	i := c.index(id)
	if i < 0 {
		return ErrItemNotFound
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	if c.selected == id {
		c.selected = ""
	}
	return nil
}

// Select toggles the selection of an item and reports whether it is now selected
func (c *Canvas) Select(id string) (bool, error) {
	if c.index(id) < 0 {
		return false, ErrItemNotFound
	}
	if c.selected == id {
		c.selected = ""
		return false, nil
	}
	c.selected = id
	return true, nil
}

// ClearSelection deselects whatever is selected
func (c *Canvas) ClearSelection() {
	c.selected = ""
}

// Move sets one coordinate of an item, clamped to the room
func (c *Canvas) Move(id string, axis Axis, value float64) (Placement, error) {
	if axis < AxisX || axis > AxisZ {
		return Placement{}, fmt.Errorf("invalid axis %d", axis)
	}
	return c.update(id, func(p *Placement) error {
		pos := p.Position
		pos[axis] = value
		p.Position = clampToRoom(pos, c.room.Dimensions)
		return nil
	})
}

// SetPosition moves an item, clamped to the room
func (c *Canvas) SetPosition(id string, pos Vec3) (Placement, error) {
	return c.update(id, func(p *Placement) error {
		p.Position = clampToRoom(pos, c.room.Dimensions)
		return nil
	})
}

// SetRotation replaces the full rotation of an item
func (c *Canvas) SetRotation(id string, rot Vec3) (Placement, error) {
	return c.update(id, func(p *Placement) error {
		for i := range rot {
			p.Rotation[i] = normalizeAngle(rot[i])
		}
		return nil
	})
}

// Rotate sets the y-axis rotation of an item in radians
func (c *Canvas) Rotate(id string, radians float64) (Placement, error) {
	return c.update(id, func(p *Placement) error {
		p.Rotation[AxisY] = normalizeAngle(radians)
		return nil
	})
}

// QuickRotate snaps the y-axis rotation to quarter turns: 0°, 90°, 180° or 270°
func (c *Canvas) QuickRotate(id string, quarters int) (Placement, error) {
	q := ((quarters % 4) + 4) % 4
	return c.Rotate(id, float64(q)*math.Pi/2)
}

// Recolor paints an item
func (c *Canvas) Recolor(id, color string) (Placement, error) {
	if !ValidColor(color) {
		return Placement{}, ErrInvalidColor
	}
	return c.update(id, func(p *Placement) error {
		p.Color = color
		return nil
	})
}

// SetScale resizes an item uniformly
func (c *Canvas) SetScale(id string, scale float64) (Placement, error) {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return Placement{}, ErrInvalidScale
	}
	return c.update(id, func(p *Placement) error {
		p.Scale = scale
		return nil
	})
}

// SetWallColor paints walls. With uniform walls only WallAll may be painted
// and it paints every wall; otherwise a single wall is painted and the
// shared color is cleared.
func (c *Canvas) SetWallColor(wall Wall, color string, uniform bool) error {
	if !ValidColor(color) {
		return ErrInvalidColor
	}
	if _, err := ParseWall(string(wall)); err != nil {
		return err
	}

	switch {
	case uniform && wall == WallAll:
		c.room.WallColors = WallColors{All: color, Front: color, Back: color, Left: color, Right: color}
	case uniform:
		return ErrUniformWalls
	case wall == WallAll:
		// painting "all" in non-uniform mode still paints every wall
		c.room.WallColors = WallColors{All: color, Front: color, Back: color, Left: color, Right: color}
	default:
		c.room.WallColors.set(wall, color)
		c.room.WallColors.All = ""
	}
	return nil
}

// SetFloorColor paints the floor
func (c *Canvas) SetFloorColor(color string) error {
	if !ValidColor(color) {
		return ErrInvalidColor
	}
	c.room.FloorColor = color
	return nil
}

// Resize changes the room size and pulls every item back inside it
func (c *Canvas) Resize(dims RoomDimensions) error {
	if !dims.Valid() {
		return ErrInvalidDimensions
	}
	c.room.Dimensions = dims
	for i := range c.items {
		c.items[i].Position = clampToRoom(c.items[i].Position, dims)
	}
	return nil
}

func (c *Canvas) update(id string, fn func(*Placement) error) (Placement, error) {
	i := c.index(id)
	if i < 0 {
		return Placement{}, ErrItemNotFound
	}
	p := c.items[i]
	if err := fn(&p); err != nil {
		return Placement{}, err
	}
	c.items[i] = p
	return p, nil
}

func (c *Canvas) index(id string) int {
	if id == "" {
		return -1
	}
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}
